package list

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guliveer/vitalis/secagent/internal/result"
)

func values[T any](l *List[T]) []T {
	var out []T
	l.Foreach(func(v T) { out = append(out, v) })
	return out
}

func TestAddFirstLast(t *testing.T) {
	l := New[int](4, nil)
	_, err := l.AddLast(2)
	require.NoError(t, err)
	_, err = l.AddLast(3)
	require.NoError(t, err)
	_, err = l.AddFirst(1)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, values(l))
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, 1, l.First().Value)
	assert.Equal(t, 3, l.Last().Value)
}

func TestCapacity(t *testing.T) {
	l := New[int](1, nil)
	_, err := l.AddLast(1)
	require.NoError(t, err)
	assert.True(t, l.IsFull())

	_, err = l.AddFirst(0)
	assert.ErrorIs(t, err, result.ErrMemoryException)

	_, err = l.RemoveFirst()
	require.NoError(t, err)
	_, err = l.AddLast(2)
	assert.NoError(t, err)
}

func TestRemove(t *testing.T) {
	l := New[string](4, nil)
	_, _ = l.AddLast("a")
	mid, _ := l.AddLast("b")
	_, _ = l.AddLast("c")

	v, err := l.Remove(mid)
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	assert.Equal(t, []string{"a", "c"}, values(l))

	_, err = l.Remove(mid)
	assert.ErrorIs(t, err, result.ErrBadArgument)

	other := New[string](1, nil)
	n, _ := other.AddLast("x")
	_, err = l.Remove(n)
	assert.ErrorIs(t, err, result.ErrBadArgument)

	last, err := l.RemoveLast()
	require.NoError(t, err)
	assert.Equal(t, "c", last)
	first, err := l.RemoveFirst()
	require.NoError(t, err)
	assert.Equal(t, "a", first)

	_, err = l.RemoveFirst()
	assert.ErrorIs(t, err, result.ErrEmpty)
	_, err = l.RemoveLast()
	assert.ErrorIs(t, err, result.ErrEmpty)
	assert.Nil(t, l.First())
	assert.Nil(t, l.Last())
}

func TestFind(t *testing.T) {
	l := New[int](3, nil)
	for i := 1; i <= 3; i++ {
		_, _ = l.AddLast(i * 10)
	}
	n := l.Find(func(v int) bool { return v > 15 })
	require.NotNil(t, n)
	assert.Equal(t, 20, n.Value)
	assert.Equal(t, 10, n.Prev().Value)
	assert.Equal(t, 30, n.Next().Value)

	assert.Nil(t, l.Find(func(v int) bool { return v == 99 }))
}

func TestConcat(t *testing.T) {
	a := New[int](4, nil)
	b := New[int](2, nil)
	_, _ = a.AddLast(1)
	_, _ = b.AddLast(2)
	_, _ = b.AddLast(3)

	require.NoError(t, a.Concat(b))
	assert.Equal(t, []int{1, 2, 3}, values(a))
	assert.True(t, b.IsEmpty())

	small := New[int](1, nil)
	_, _ = b.AddLast(4)
	_, _ = b.AddLast(5)
	assert.ErrorIs(t, small.Concat(b), result.ErrMemoryException)
	assert.Equal(t, 2, b.Len(), "nothing moved on failure")

	assert.ErrorIs(t, a.Concat(a), result.ErrBadArgument)
	assert.ErrorIs(t, a.Concat(nil), result.ErrBadArgument)
}

func TestClearReleasesValues(t *testing.T) {
	var released []int
	l := New[int](3, func(v int) { released = append(released, v) })
	for i := 0; i < 3; i++ {
		_, _ = l.AddLast(i)
	}
	l.Clear()
	assert.Equal(t, []int{0, 1, 2}, released)
	assert.Equal(t, 0, l.Len())

	_, err := l.AddLast(7)
	assert.NoError(t, err, "nodes returned to the pool")
}

func TestIteratorRestartable(t *testing.T) {
	l := New[int](3, nil)
	for i := 1; i <= 3; i++ {
		_, _ = l.AddLast(i)
	}

	it := l.Iterator()
	var first []int
	for v, ok := it.Next(); ok; v, ok = it.Next() {
		first = append(first, v)
	}
	_, ok := it.Next()
	assert.False(t, ok)

	it.Reset()
	var second []int
	for v, ok := it.Next(); ok; v, ok = it.Next() {
		second = append(second, v)
	}
	assert.Equal(t, []int{1, 2, 3}, first)
	assert.Equal(t, first, second)
}

func TestIteratorEmpty(t *testing.T) {
	it := New[int](0, nil).Iterator()
	_, ok := it.Next()
	assert.False(t, ok)
}
