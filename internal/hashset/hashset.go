// Package hashset implements a bounded hash set with chained buckets whose
// entries come from a fixed-capacity pool.
package hashset

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/Guliveer/vitalis/secagent/internal/pool"
	"github.com/Guliveer/vitalis/secagent/internal/result"
)

type entry[T comparable] struct {
	value T
	next  *entry[T]
}

// Set stores at most Cap distinct values.
type Set[T comparable] struct {
	buckets []*entry[T]
	entries *pool.Pool[entry[T]]
	hash    func(T) uint64
	size    int
}

// New creates a set with the given number of buckets and entry capacity.
func New[T comparable](buckets, capacity int, hash func(T) uint64) *Set[T] {
	if buckets < 1 {
		buckets = 1
	}
	return &Set[T]{
		buckets: make([]*entry[T], buckets),
		entries: pool.New[entry[T]](capacity, nil),
		hash:    hash,
	}
}

// NewString creates a string set hashed with xxhash.
func NewString(buckets, capacity int) *Set[string] {
	return New[string](buckets, capacity, xxhash.Sum64String)
}

func (s *Set[T]) bucket(v T) int {
	return int(s.hash(v) % uint64(len(s.buckets)))
}

// Add inserts v. Adding a value already present is a no-op.
func (s *Set[T]) Add(v T) error {
	b := s.bucket(v)
	for e := s.buckets[b]; e != nil; e = e.next {
		if e.value == v {
			return nil
		}
	}
	e, err := s.entries.Get()
	if err != nil {
		return fmt.Errorf("hashset add: %w", err)
	}
	e.value = v
	e.next = s.buckets[b]
	s.buckets[b] = e
	s.size++
	return nil
}

// Contains reports whether v is in the set.
func (s *Set[T]) Contains(v T) bool {
	for e := s.buckets[s.bucket(v)]; e != nil; e = e.next {
		if e.value == v {
			return true
		}
	}
	return false
}

// Remove deletes v. It returns ErrEmpty when v is not present.
func (s *Set[T]) Remove(v T) error {
	b := s.bucket(v)
	var prev *entry[T]
	for e := s.buckets[b]; e != nil; prev, e = e, e.next {
		if e.value != v {
			continue
		}
		if prev == nil {
			s.buckets[b] = e.next
		} else {
			prev.next = e.next
		}
		*e = entry[T]{}
		s.size--
		return s.entries.Free(e)
	}
	return result.ErrEmpty
}

// Foreach calls fn for every value in unspecified order.
func (s *Set[T]) Foreach(fn func(T)) {
	for _, e := range s.buckets {
		for ; e != nil; e = e.next {
			fn(e.value)
		}
	}
}

// Clear removes all values.
func (s *Set[T]) Clear() {
	for i, e := range s.buckets {
		for e != nil {
			next := e.next
			*e = entry[T]{}
			_ = s.entries.Free(e)
			e = next
		}
		s.buckets[i] = nil
	}
	s.size = 0
}

func (s *Set[T]) Len() int { return s.size }
func (s *Set[T]) Cap() int { return s.entries.Cap() }
