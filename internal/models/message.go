package models

import (
	"bytes"
	"fmt"
	"io"

	"github.com/Guliveer/vitalis/secagent/internal/pool"
	"github.com/Guliveer/vitalis/secagent/internal/result"
)

// MessageSchemaVersion is the envelope schema version.
const MessageSchemaVersion = "1.0"

var messageSuffix = []byte("]}")

// Message accumulates serialized events up to a byte capacity.
//
// The envelope is
//
//	{"AgentVersion":..,"AgentId":..,"MessageSchemaVersion":"1.0","Events":[...]}
type Message struct {
	buf      []byte
	capacity int
	events   int
	sealed   bool

	owner *MessagePool
}

// MessagePool hands out Messages with pre-sized buffers.
type MessagePool struct {
	messages *pool.Pool[Message]
	capacity int
}

// NewMessagePool allocates count messages of capacity bytes each.
func NewMessagePool(count, capacity int) *MessagePool {
	p := &MessagePool{capacity: capacity}
	p.messages = pool.New[Message](count, func(m *Message) {
		m.buf = make([]byte, 0, capacity)
		m.capacity = capacity
		m.owner = p
	})
	return p
}

// Capacity is the byte capacity of every message in the pool.
func (p *MessagePool) Capacity() int { return p.capacity }

// Available returns the number of free messages.
func (p *MessagePool) Available() int { return p.messages.Available() }

// New takes a message from the pool and writes its envelope prefix.
func (p *MessagePool) New(agentID, agentVersion string) (*Message, error) {
	if blank(agentID) || blank(agentVersion) {
		return nil, fmt.Errorf("message: blank agent id or version: %w", result.ErrBadArgument)
	}

	var prefix bytes.Buffer
	prefix.WriteString(`{"AgentVersion":`)
	if err := writeJSON(&prefix, agentVersion); err != nil {
		return nil, fmt.Errorf("message: %v: %w", err, result.ErrException)
	}
	prefix.WriteString(`,"AgentId":`)
	if err := writeJSON(&prefix, agentID); err != nil {
		return nil, fmt.Errorf("message: %v: %w", err, result.ErrException)
	}
	prefix.WriteString(`,"MessageSchemaVersion":"` + MessageSchemaVersion + `","Events":[`)
	if prefix.Len()+len(messageSuffix) > p.capacity {
		return nil, fmt.Errorf("message: envelope of %d bytes exceeds capacity %d: %w",
			prefix.Len()+len(messageSuffix), p.capacity, result.ErrException)
	}

	m, err := p.messages.Get()
	if err != nil {
		return nil, fmt.Errorf("message: %w", err)
	}
	m.buf = append(m.buf[:0], prefix.Bytes()...)
	m.events = 0
	m.sealed = false
	return m, nil
}

// Release returns m to its pool. A nil message is ignored.
func (m *Message) Release() {
	if m == nil || m.owner == nil {
		return
	}
	m.buf = m.buf[:0]
	m.events = 0
	m.sealed = false
	_ = m.owner.messages.Free(m)
}

// Len is the serialized length, including the closing bytes.
func (m *Message) Len() int { return len(m.buf) + len(messageSuffix) }

// Cap is the byte capacity.
func (m *Message) Cap() int { return m.capacity }

// Events returns the number of appended events.
func (m *Message) Events() int { return m.events }

// HasEvents reports whether at least one event was appended.
func (m *Message) HasEvents() bool { return m.events > 0 }

// Sealed reports whether the message accepts no more events.
func (m *Message) Sealed() bool { return m.sealed }

// Seal closes the message to further appends.
func (m *Message) Seal() { m.sealed = true }

func (m *Message) cost(e *Event) int {
	if m.events > 0 {
		return e.Len() + 1
	}
	return e.Len()
}

// CanAppend reports whether e still fits.
func (m *Message) CanAppend(e *Event) bool {
	if m == nil || e == nil || !e.Built() || m.sealed {
		return false
	}
	return m.Len()+m.cost(e) <= m.capacity
}

// Append copies the serialized e into the message.
func (m *Message) Append(e *Event) error {
	if m == nil || e == nil {
		return fmt.Errorf("message append: %w", result.ErrBadArgument)
	}
	if !m.CanAppend(e) {
		return fmt.Errorf("message append: event %q of %d bytes does not fit %d/%d: %w",
			e.Name(), e.Len(), m.Len(), m.capacity, result.ErrException)
	}
	if m.events > 0 {
		m.buf = append(m.buf, ',')
	}
	m.buf = append(m.buf, e.Data()...)
	m.events++
	return nil
}

// Bytes returns the serialized message. The slice is valid until the next
// Append or Release.
func (m *Message) Bytes() []byte {
	return append(m.buf[:len(m.buf):len(m.buf)+len(messageSuffix)], messageSuffix...)
}

// ToJSON copies the serialized message into dst and returns the byte count.
func (m *Message) ToJSON(dst []byte) (int, error) {
	if m == nil {
		return 0, fmt.Errorf("message json: %w", result.ErrBadArgument)
	}
	if len(dst) < m.Len() {
		return 0, fmt.Errorf("message json: need %d bytes, have %d: %w", m.Len(), len(dst), result.ErrException)
	}
	n := copy(dst, m.buf)
	n += copy(dst[n:], messageSuffix)
	return n, nil
}

// WriteTo writes the serialized message to w.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(m.buf)
	if err != nil {
		return int64(n), err
	}
	k, err := w.Write(messageSuffix)
	return int64(n + k), err
}
