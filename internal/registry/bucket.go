package registry

import (
	"time"

	"github.com/Guliveer/vitalis/secagent/internal/collector"
	"github.com/Guliveer/vitalis/secagent/internal/list"
)

// Bucket holds the collectors of one priority tier and the round-robin
// cursor the drain uses to rotate among them.
//
// The cursor is nil iff the bucket has no members.
type Bucket struct {
	priority collector.Priority
	interval time.Duration
	members  *list.List[*collector.Collector]
	cursor   *list.Node[*collector.Collector]
}

func (b *Bucket) Priority() collector.Priority { return b.priority }
func (b *Bucket) Interval() time.Duration      { return b.interval }
func (b *Bucket) Len() int                     { return b.members.Len() }

func (b *Bucket) add(c *collector.Collector) error {
	n, err := b.members.AddLast(c)
	if err != nil {
		return err
	}
	if b.cursor == nil {
		b.cursor = n
	}
	return nil
}

// step moves the cursor one member forward, wrapping after the last.
func (b *Bucket) step() {
	if b.cursor == nil {
		return
	}
	if next := b.cursor.Next(); next != nil {
		b.cursor = next
		return
	}
	b.cursor = b.members.First()
}

// Current returns the collector under the cursor without moving it.
func (b *Bucket) Current() *collector.Collector {
	if b.cursor == nil {
		return nil
	}
	return b.cursor.Value
}

// NextCyclic advances the cursor and returns the collector it lands on.
func (b *Bucket) NextCyclic() *collector.Collector {
	b.step()
	return b.Current()
}

// SetCurrent places the cursor on c. It returns false if c is not a member.
func (b *Bucket) SetCurrent(c *collector.Collector) bool {
	n := b.members.Find(func(m *collector.Collector) bool { return m == c })
	if n == nil {
		return false
	}
	b.cursor = n
	return true
}

// CurrentNonEmpty returns the collector under the cursor if it has queued
// events, otherwise advances to the next one that does. It returns nil after
// one revolution without finding any and leaves the cursor where it was.
func (b *Bucket) CurrentNonEmpty() *collector.Collector {
	if b.cursor == nil {
		return nil
	}
	return b.seekNonEmpty()
}

// NextNonEmpty advances the cursor at least once and returns the first
// collector with queued events, possibly the one it started from. It returns
// nil after one revolution without finding any, with the cursor one step past
// where it started so the next pass begins after the last collector served.
func (b *Bucket) NextNonEmpty() *collector.Collector {
	if b.cursor == nil {
		return nil
	}
	b.step()
	return b.seekNonEmpty()
}

// seekNonEmpty visits every member once starting at the cursor. The cursor is
// restored when none has queued events.
func (b *Bucket) seekNonEmpty() *collector.Collector {
	home := b.cursor
	for i := 0; i < b.members.Len(); i++ {
		if !b.cursor.Value.IsEmpty() {
			return b.cursor.Value
		}
		b.step()
	}
	b.cursor = home
	return nil
}

// HasEvents reports whether any member has queued events.
func (b *Bucket) HasEvents() bool {
	return b.members.Find(func(c *collector.Collector) bool { return !c.IsEmpty() }) != nil
}

// Foreach visits members in registration order.
func (b *Bucket) Foreach(fn func(*collector.Collector)) {
	b.members.Foreach(fn)
}
