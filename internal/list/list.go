// Package list implements a doubly linked list whose nodes come from a
// fixed-capacity pool owned by the list.
//
// Values are moved into the list on insert and handed back on removal; the
// list never shares a node with another list.
package list

import (
	"fmt"

	"github.com/Guliveer/vitalis/secagent/internal/pool"
	"github.com/Guliveer/vitalis/secagent/internal/result"
)

// Node is one element of a List.
type Node[T any] struct {
	Value T

	prev, next *Node[T]
	list       *List[T]
}

// Next returns the following node or nil at the tail.
func (n *Node[T]) Next() *Node[T] { return n.next }

// Prev returns the preceding node or nil at the head.
func (n *Node[T]) Prev() *Node[T] { return n.prev }

// List is a bounded ordered sequence.
type List[T any] struct {
	nodes      *pool.Pool[Node[T]]
	head, tail *Node[T]
	size       int
	release    func(T)
}

// New creates a list able to hold capacity values. release, when non-nil, is
// called for every value still in the list when Clear runs.
func New[T any](capacity int, release func(T)) *List[T] {
	return &List[T]{
		nodes:   pool.New[Node[T]](capacity, nil),
		release: release,
	}
}

func (l *List[T]) Len() int      { return l.size }
func (l *List[T]) Cap() int      { return l.nodes.Cap() }
func (l *List[T]) IsEmpty() bool { return l.size == 0 }
func (l *List[T]) IsFull() bool  { return l.nodes.Available() == 0 }

// First returns the head node or nil.
func (l *List[T]) First() *Node[T] { return l.head }

// Last returns the tail node or nil.
func (l *List[T]) Last() *Node[T] { return l.tail }

func (l *List[T]) newNode(v T) (*Node[T], error) {
	n, err := l.nodes.Get()
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	*n = Node[T]{Value: v, list: l}
	return n, nil
}

// AddFirst inserts v at the head.
func (l *List[T]) AddFirst(v T) (*Node[T], error) {
	n, err := l.newNode(v)
	if err != nil {
		return nil, err
	}
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	} else {
		l.tail = n
	}
	l.head = n
	l.size++
	return n, nil
}

// AddLast inserts v at the tail.
func (l *List[T]) AddLast(v T) (*Node[T], error) {
	n, err := l.newNode(v)
	if err != nil {
		return nil, err
	}
	n.prev = l.tail
	if l.tail != nil {
		l.tail.next = n
	} else {
		l.head = n
	}
	l.tail = n
	l.size++
	return n, nil
}

// Remove unlinks n and returns its value. n must belong to l.
func (l *List[T]) Remove(n *Node[T]) (T, error) {
	var zero T
	if n == nil || n.list != l {
		return zero, fmt.Errorf("list remove: node not in list: %w", result.ErrBadArgument)
	}
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	v := n.Value
	*n = Node[T]{}
	l.size--
	if err := l.nodes.Free(n); err != nil {
		return zero, err
	}
	return v, nil
}

// RemoveFirst removes the head value. It returns ErrEmpty on an empty list.
func (l *List[T]) RemoveFirst() (T, error) {
	if l.head == nil {
		var zero T
		return zero, result.ErrEmpty
	}
	return l.Remove(l.head)
}

// RemoveLast removes the tail value. It returns ErrEmpty on an empty list.
func (l *List[T]) RemoveLast() (T, error) {
	if l.tail == nil {
		var zero T
		return zero, result.ErrEmpty
	}
	return l.Remove(l.tail)
}

// Find returns the first node whose value satisfies match, or nil.
func (l *List[T]) Find(match func(T) bool) *Node[T] {
	for n := l.head; n != nil; n = n.next {
		if match(n.Value) {
			return n
		}
	}
	return nil
}

// Foreach calls fn for each value from head to tail.
func (l *List[T]) Foreach(fn func(T)) {
	for n := l.head; n != nil; n = n.next {
		fn(n.Value)
	}
}

// Concat moves all values of other to the tail of l, leaving other empty.
// Nothing is moved when l cannot take all of them.
func (l *List[T]) Concat(other *List[T]) error {
	if other == nil || other == l {
		return fmt.Errorf("list concat: %w", result.ErrBadArgument)
	}
	if l.nodes.Available() < other.size {
		return fmt.Errorf("list concat: need %d free nodes, have %d: %w",
			other.size, l.nodes.Available(), result.ErrMemoryException)
	}
	for other.head != nil {
		v, err := other.Remove(other.head)
		if err != nil {
			return err
		}
		if _, err := l.AddLast(v); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes every value, passing each to the release function.
func (l *List[T]) Clear() {
	for l.head != nil {
		v, err := l.Remove(l.head)
		if err != nil {
			return
		}
		if l.release != nil {
			l.release(v)
		}
	}
}

// Iterator returns a forward cursor positioned before the head.
func (l *List[T]) Iterator() *Iterator[T] {
	return &Iterator[T]{list: l}
}

// Iterator walks a list from head to tail. It does not own the values and
// must not be used across removals of the node it last returned.
type Iterator[T any] struct {
	list    *List[T]
	next    *Node[T]
	started bool
}

// Next returns the next value, or false once the tail has been passed.
func (it *Iterator[T]) Next() (T, bool) {
	if !it.started {
		it.started = true
		it.next = it.list.head
	}
	if it.next == nil {
		var zero T
		return zero, false
	}
	n := it.next
	it.next = n.next
	return n.Value, true
}

// Reset moves the cursor back before the head.
func (it *Iterator[T]) Reset() {
	it.started = false
	it.next = nil
}
