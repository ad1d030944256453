// Package stack provides a fixed-capacity LIFO stack.
package stack

import (
	"fmt"

	"github.com/Guliveer/vitalis/secagent/internal/result"
)

// Stack holds at most Cap values. Its backing array is allocated once by New.
type Stack[T any] struct {
	items []T
}

// New creates an empty stack able to hold capacity values.
func New[T any](capacity int) *Stack[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Stack[T]{items: make([]T, 0, capacity)}
}

// Push adds v on top of the stack.
func (s *Stack[T]) Push(v T) error {
	if len(s.items) == cap(s.items) {
		return fmt.Errorf("stack push: capacity %d reached: %w", cap(s.items), result.ErrMemoryException)
	}
	s.items = append(s.items, v)
	return nil
}

// Pop removes and returns the top value.
func (s *Stack[T]) Pop() (T, error) {
	var zero T
	n := len(s.items)
	if n == 0 {
		return zero, result.ErrEmpty
	}
	v := s.items[n-1]
	s.items[n-1] = zero
	s.items = s.items[:n-1]
	return v, nil
}

// Peek returns the top value without removing it.
func (s *Stack[T]) Peek() (T, error) {
	if len(s.items) == 0 {
		var zero T
		return zero, result.ErrEmpty
	}
	return s.items[len(s.items)-1], nil
}

func (s *Stack[T]) Len() int      { return len(s.items) }
func (s *Stack[T]) Cap() int      { return cap(s.items) }
func (s *Stack[T]) IsEmpty() bool { return len(s.items) == 0 }
