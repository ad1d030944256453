// Package collector defines the Collector: one telemetry source together with
// its bounded queue of produced events, its priority and its due-time state.
//
// Concrete sources implement Source; the registry wraps each in a Collector.
package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/secagent/internal/list"
	"github.com/Guliveer/vitalis/secagent/internal/models"
	"github.com/Guliveer/vitalis/secagent/internal/result"
)

// MaxNameLen bounds a collector name.
const MaxNameLen = 32

// ErrQueueFull is returned by Push when the collector's queue has no room.
// It wraps result.ErrMemoryException.
var ErrQueueFull = fmt.Errorf("event queue full: %w", result.ErrMemoryException)

// Sink receives the events produced by a Source. Push takes ownership of the
// event in every case: on failure the event is released.
type Sink interface {
	Push(e *models.Event) error
}

// Source is the plugin contract implemented by every concrete collector.
type Source interface {
	Name() string
	Type() Type
	Priority() Priority
	// Collect produces zero or more events into sink.
	Collect(ctx context.Context, sink Sink) error
	Deinit()
}

// Env is what an initializer gets to build its Source.
type Env struct {
	Events *models.EventPool
	Now    func() time.Time
	Logger *zap.Logger
}

// Init constructs a Source. The registry runs one per configured collector.
type Init func(env Env) (Source, error)

// Collector wraps a Source with its event queue and due-time state.
type Collector struct {
	name     string
	typ      Type
	priority Priority
	last     time.Time

	source     Source
	queue      *list.List[*models.Event]
	collecting bool
	rejected   uint64

	logger *zap.Logger
}

// New allocates a Collector for src. The registry uses Init on pooled slots
// instead.
func New(src Source, queueCapacity int, logger *zap.Logger) (*Collector, error) {
	c := &Collector{}
	if err := c.Init(src, queueCapacity, logger); err != nil {
		return nil, err
	}
	return c, nil
}

// Init binds src to c and allocates a queue of queueCapacity events.
func (c *Collector) Init(src Source, queueCapacity int, logger *zap.Logger) error {
	if c == nil || src == nil {
		return fmt.Errorf("collector init: %w", result.ErrBadArgument)
	}
	name := src.Name()
	if strings.TrimSpace(name) == "" || len(name) > MaxNameLen {
		return fmt.Errorf("collector init: invalid name %q: %w", name, result.ErrBadArgument)
	}
	if !src.Type().Valid() || !src.Priority().Valid() {
		return fmt.Errorf("collector init %s: invalid type %d or priority %d: %w",
			name, src.Type(), src.Priority(), result.ErrBadArgument)
	}
	if queueCapacity < 1 {
		return fmt.Errorf("collector init %s: queue capacity %d: %w", name, queueCapacity, result.ErrBadArgument)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	*c = Collector{
		name:     name,
		typ:      src.Type(),
		priority: src.Priority(),
		source:   src,
		queue:    list.New[*models.Event](queueCapacity, (*models.Event).Release),
		logger:   logger.With(zap.String("collector", name)),
	}
	return nil
}

// Deinit releases every queued event and tears down the source.
func (c *Collector) Deinit() {
	if c == nil || c.source == nil {
		return
	}
	c.queue.Clear()
	c.source.Deinit()
	*c = Collector{}
}

// Collect runs the source once. A full queue is logged, not reported.
func (c *Collector) Collect(ctx context.Context) error {
	if c == nil || c.source == nil {
		return fmt.Errorf("collect: %w", result.ErrBadArgument)
	}
	if c.collecting {
		return fmt.Errorf("collect %s: already in progress: %w", c.name, result.ErrException)
	}
	c.collecting = true
	defer func() { c.collecting = false }()

	err := c.source.Collect(ctx, c)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrQueueFull):
		c.logger.Warn("Event queue full, newer events rejected",
			zap.Int("queued", c.queue.Len()),
			zap.Uint64("rejected_total", c.rejected))
		return nil
	default:
		return fmt.Errorf("collect %s: %w", c.name, err)
	}
}

// Push builds e if needed and appends it to the queue.
func (c *Collector) Push(e *models.Event) error {
	if c == nil || c.queue == nil || e == nil {
		e.Release()
		return fmt.Errorf("push: %w", result.ErrBadArgument)
	}
	if err := e.Build(); err != nil {
		e.Release()
		return fmt.Errorf("push %s: %w", c.name, err)
	}
	if _, err := c.queue.AddLast(e); err != nil {
		e.Release()
		c.rejected++
		return ErrQueueFull
	}
	return nil
}

// Peek returns the oldest queued event without removing it.
func (c *Collector) Peek() (*models.Event, error) {
	if c == nil || c.queue == nil {
		return nil, fmt.Errorf("peek: %w", result.ErrBadArgument)
	}
	n := c.queue.First()
	if n == nil {
		return nil, result.ErrEmpty
	}
	return n.Value, nil
}

// Pop removes and returns the oldest queued event. The caller owns it.
func (c *Collector) Pop() (*models.Event, error) {
	if c == nil || c.queue == nil {
		return nil, fmt.Errorf("pop: %w", result.ErrBadArgument)
	}
	return c.queue.RemoveFirst()
}

// IsEmpty reports whether no event is queued. A nil collector is empty.
func (c *Collector) IsEmpty() bool {
	return c == nil || c.queue == nil || c.queue.IsEmpty()
}

// Len returns the number of queued events.
func (c *Collector) Len() int {
	if c.IsEmpty() {
		return 0
	}
	return c.queue.Len()
}

func (c *Collector) Name() string             { return c.name }
func (c *Collector) Type() Type               { return c.typ }
func (c *Collector) Priority() Priority       { return c.priority }
func (c *Collector) Rejected() uint64         { return c.rejected }
func (c *Collector) LastCollected() time.Time { return c.last }

// SetLastCollected records when the source last ran.
func (c *Collector) SetLastCollected(t time.Time) { c.last = t }
