// Package pool implements a fixed-capacity object pool.
//
// All slots are allocated when the pool is created. Get and Free are O(1):
// free slots are tracked by index on a stack, and a slot's identity is its
// address inside the arena.
package pool

import (
	"fmt"

	"github.com/Guliveer/vitalis/secagent/internal/result"
	"github.com/Guliveer/vitalis/secagent/internal/stack"
)

// Pool hands out pointers to pre-allocated values of type T.
type Pool[T any] struct {
	slots []T
	inUse []bool
	free  *stack.Stack[int]
	index map[*T]int
}

// New allocates a pool of capacity slots. setup, when non-nil, runs once per
// slot so values can pre-size their internal buffers.
func New[T any](capacity int, setup func(*T)) *Pool[T] {
	if capacity < 0 {
		capacity = 0
	}
	p := &Pool[T]{
		slots: make([]T, capacity),
		inUse: make([]bool, capacity),
		free:  stack.New[int](capacity),
		index: make(map[*T]int, capacity),
	}
	// Push in reverse so the first Get returns slot 0.
	for i := capacity - 1; i >= 0; i-- {
		if setup != nil {
			setup(&p.slots[i])
		}
		p.index[&p.slots[i]] = i
		_ = p.free.Push(i)
	}
	return p
}

// Get takes a free slot. It returns ErrMemoryException when the pool is
// exhausted. The slot keeps whatever state it had when it was freed.
func (p *Pool[T]) Get() (*T, error) {
	i, err := p.free.Pop()
	if err != nil {
		return nil, fmt.Errorf("pool get: all %d slots in use: %w", len(p.slots), result.ErrMemoryException)
	}
	p.inUse[i] = true
	return &p.slots[i], nil
}

// Free returns v to the pool. Pointers not owned by this pool and slots that
// are already free are rejected with ErrBadArgument.
func (p *Pool[T]) Free(v *T) error {
	i, ok := p.index[v]
	if !ok {
		return fmt.Errorf("pool free: foreign object: %w", result.ErrBadArgument)
	}
	if !p.inUse[i] {
		return fmt.Errorf("pool free: slot %d already free: %w", i, result.ErrBadArgument)
	}
	p.inUse[i] = false
	return p.free.Push(i)
}

// Owns reports whether v is a slot of this pool.
func (p *Pool[T]) Owns(v *T) bool {
	_, ok := p.index[v]
	return ok
}

func (p *Pool[T]) Cap() int       { return len(p.slots) }
func (p *Pool[T]) Available() int { return p.free.Len() }
func (p *Pool[T]) InUse() int     { return len(p.slots) - p.free.Len() }
