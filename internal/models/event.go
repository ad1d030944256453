package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Guliveer/vitalis/secagent/internal/pool"
	"github.com/Guliveer/vitalis/secagent/internal/result"
)

// TimestampLayout is the format of TimestampLocal and TimestampUTC.
const TimestampLayout = "2006-01-02T15:04:05"

// Header carries the descriptive fields of a new Event.
type Header struct {
	Name                 string
	PayloadSchemaVersion string
	Category             string
	EventType            string
	// Time defaults to the pool clock when zero.
	Time time.Time
}

// Event is one collected fact. It is mutable until Build and immutable after.
type Event struct {
	id     string
	header Header

	// base is the serialized size with an empty payload list.
	base    int
	payload []byte
	items   int

	data  []byte
	built bool

	owner *EventPool
}

type eventJSON struct {
	ID                   string          `json:"Id"`
	Name                 string          `json:"Name"`
	PayloadSchemaVersion string          `json:"PayloadSchemaVersion"`
	Category             string          `json:"Category"`
	EventType            string          `json:"EventType"`
	TimestampLocal       string          `json:"TimestampLocal"`
	TimestampUTC         string          `json:"TimestampUTC"`
	Payload              json.RawMessage `json:"Payload"`
	IsEmpty              bool            `json:"IsEmpty"`
}

// EventPoolConfig sizes an EventPool.
type EventPoolConfig struct {
	Count   int
	MaxSize int
	// NewID defaults to a random UUID.
	NewID func() string
	// Now defaults to time.Now.
	Now func() time.Time
	// Location renders TimestampLocal; defaults to time.Local.
	Location *time.Location
}

// EventPool hands out Events with pre-sized buffers.
type EventPool struct {
	events  *pool.Pool[Event]
	maxSize int
	newID   func() string
	now     func() time.Time
	loc     *time.Location
}

// NewEventPool allocates cfg.Count events, each able to hold cfg.MaxSize
// serialized bytes.
func NewEventPool(cfg EventPoolConfig) *EventPool {
	p := &EventPool{
		maxSize: cfg.MaxSize,
		newID:   cfg.NewID,
		now:     cfg.Now,
		loc:     cfg.Location,
	}
	if p.newID == nil {
		p.newID = uuid.NewString
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.loc == nil {
		p.loc = time.Local
	}
	p.events = pool.New[Event](cfg.Count, func(e *Event) {
		e.payload = make([]byte, 0, cfg.MaxSize)
		e.data = make([]byte, 0, cfg.MaxSize)
		e.owner = p
	})
	return p
}

// MaxSize is the largest serialized event the pool can hold.
func (p *EventPool) MaxSize() int { return p.maxSize }

// Available returns the number of free events.
func (p *EventPool) Available() int { return p.events.Available() }

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// New takes an event from the pool and initializes its header.
func (p *EventPool) New(h Header) (*Event, error) {
	if blank(h.Name) || blank(h.PayloadSchemaVersion) || blank(h.Category) || blank(h.EventType) {
		return nil, fmt.Errorf("event: blank header field: %w", result.ErrBadArgument)
	}
	e, err := p.events.Get()
	if err != nil {
		return nil, fmt.Errorf("event: %w", err)
	}
	if h.Time.IsZero() {
		h.Time = p.now()
	}
	e.id = p.newID()
	e.header = h
	e.payload = e.payload[:0]
	e.items = 0
	e.built = false

	buf := bytes.NewBuffer(e.data[:0])
	if err := e.encode(buf); err != nil {
		e.Release()
		return nil, fmt.Errorf("event: %v: %w", err, result.ErrException)
	}
	// "IsEmpty":false is one byte longer than true.
	e.base = buf.Len() + 1
	e.data = e.data[:0]
	if e.base > p.maxSize {
		e.Release()
		return nil, fmt.Errorf("event: header of %d bytes exceeds capacity %d: %w", e.base, p.maxSize, result.ErrException)
	}
	return e, nil
}

// Release returns e to its pool. A nil event is ignored.
func (e *Event) Release() {
	if e == nil || e.owner == nil {
		return
	}
	e.id = ""
	e.header = Header{}
	e.built = false
	_ = e.owner.events.Free(e)
}

// AppendPayload serializes v as the next payload item.
func (e *Event) AppendPayload(v any) error {
	if e == nil || v == nil {
		return fmt.Errorf("event payload: %w", result.ErrBadArgument)
	}
	if e.built {
		return fmt.Errorf("event payload: event already built: %w", result.ErrException)
	}
	var buf bytes.Buffer
	if err := writeJSON(&buf, v); err != nil {
		return fmt.Errorf("event payload: %v: %w", err, result.ErrException)
	}
	need := buf.Len()
	if e.items > 0 {
		need++
	}
	if e.base+len(e.payload)+need > e.owner.maxSize {
		return fmt.Errorf("event payload: %d bytes exceed capacity %d: %w",
			e.base+len(e.payload)+need, e.owner.maxSize, result.ErrException)
	}
	if e.items > 0 {
		e.payload = append(e.payload, ',')
	}
	e.payload = append(e.payload, buf.Bytes()...)
	e.items++
	return nil
}

// Build serializes the event. Building an already built event is a no-op.
func (e *Event) Build() error {
	if e == nil {
		return fmt.Errorf("event build: %w", result.ErrBadArgument)
	}
	if e.built {
		return nil
	}
	buf := bytes.NewBuffer(e.data[:0])
	if err := e.encode(buf); err != nil {
		return fmt.Errorf("event build: %v: %w", err, result.ErrException)
	}
	if buf.Len() > e.owner.maxSize {
		return fmt.Errorf("event build: %d bytes exceed capacity %d: %w",
			buf.Len(), e.owner.maxSize, result.ErrException)
	}
	e.data = buf.Bytes()
	e.built = true
	return nil
}

func (e *Event) encode(buf *bytes.Buffer) error {
	raw := make(json.RawMessage, 0, len(e.payload)+2)
	raw = append(raw, '[')
	raw = append(raw, e.payload...)
	raw = append(raw, ']')

	doc := eventJSON{
		ID:                   e.id,
		Name:                 e.header.Name,
		PayloadSchemaVersion: e.header.PayloadSchemaVersion,
		Category:             e.header.Category,
		EventType:            e.header.EventType,
		TimestampLocal:       e.header.Time.In(e.owner.loc).Format(TimestampLayout),
		TimestampUTC:         e.header.Time.UTC().Format(TimestampLayout),
		Payload:              raw,
		IsEmpty:              e.items == 0,
	}
	return writeJSON(buf, doc)
}

func (e *Event) ID() string                   { return e.id }
func (e *Event) Name() string                 { return e.header.Name }
func (e *Event) PayloadSchemaVersion() string { return e.header.PayloadSchemaVersion }
func (e *Event) Category() string             { return e.header.Category }
func (e *Event) EventType() string            { return e.header.EventType }
func (e *Event) Time() time.Time              { return e.header.Time }
func (e *Event) Items() int                   { return e.items }
func (e *Event) IsEmpty() bool                { return e.items == 0 }
func (e *Event) Built() bool                  { return e.built }

// Data returns the serialized event, or nil before Build.
func (e *Event) Data() []byte {
	if e == nil || !e.built {
		return nil
	}
	return e.data
}

// Len returns the serialized length; 0 for a nil or unbuilt event.
func (e *Event) Len() int {
	if e == nil || !e.built {
		return 0
	}
	return len(e.data)
}

// GetData copies the serialized event into dst and returns the byte count.
func (e *Event) GetData(dst []byte) (int, error) {
	if e == nil {
		return 0, fmt.Errorf("event data: %w", result.ErrBadArgument)
	}
	if !e.built {
		return 0, fmt.Errorf("event data: not built: %w", result.ErrException)
	}
	if len(dst) < len(e.data) {
		return 0, fmt.Errorf("event data: need %d bytes, have %d: %w", len(e.data), len(dst), result.ErrException)
	}
	return copy(dst, e.data), nil
}
