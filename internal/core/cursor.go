package core

import "github.com/Guliveer/vitalis/secagent/internal/registry"

// drainState is where the drain stands between calls.
type drainState uint8

const (
	// stateIdle starts the next call at the head bucket.
	stateIdle drainState = iota
	// stateSuspended resumes the next call at bucket, whose own round-robin
	// cursor still points at the pending event.
	stateSuspended
)

type cursor struct {
	state  drainState
	bucket *registry.Bucket
}

// begin returns the bucket a drain call starts from. A suspended position
// with nothing left at or after it falls back to the head.
func (c *cursor) begin(r *registry.Registry) *registry.Bucket {
	if c.state == stateSuspended {
		for b := c.bucket; b != nil; b = r.NextPriority(b) {
			if b.HasEvents() {
				return c.bucket
			}
		}
	}
	c.reset()
	return r.HeadPriority()
}

func (c *cursor) suspend(b *registry.Bucket) {
	c.state = stateSuspended
	c.bucket = b
}

func (c *cursor) reset() {
	c.state = stateIdle
	c.bucket = nil
}
