// Package core drives the collector registry: Collect runs every due
// collector once per tick, and Get drains queued events into size-bounded
// messages in priority then round-robin order.
//
// A Core is not safe for concurrent use. Collect and Get are called serially
// from one control loop.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/secagent/internal/collector"
	"github.com/Guliveer/vitalis/secagent/internal/list"
	"github.com/Guliveer/vitalis/secagent/internal/metrics"
	"github.com/Guliveer/vitalis/secagent/internal/models"
	"github.com/Guliveer/vitalis/secagent/internal/notifier"
	"github.com/Guliveer/vitalis/secagent/internal/registry"
	"github.com/Guliveer/vitalis/secagent/internal/result"
)

// Config wires a Core to its registry and message pool.
type Config struct {
	AgentID      string
	AgentVersion string
	// MaxMessagesPerCall bounds the messages one Get emits; 0 means no limit.
	MaxMessagesPerCall int

	Registry *registry.Registry
	Messages *models.MessagePool
	// Notifier, when set, receives one collector.Announcement per collector.
	Notifier *notifier.Notifier
	Metrics  *metrics.Metrics
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *zap.Logger
}

// Core is the tick and drain engine.
type Core struct {
	agentID      string
	agentVersion string
	maxMessages  int

	registry *registry.Registry
	messages *models.MessagePool
	metrics  *metrics.Metrics
	now      func() time.Time
	logger   *zap.Logger

	cursor cursor
}

// New validates cfg and announces every registered collector.
func New(cfg Config) (*Core, error) {
	if cfg.Registry == nil || cfg.Messages == nil {
		return nil, fmt.Errorf("core: registry and message pool are required: %w", result.ErrBadArgument)
	}
	if strings.TrimSpace(cfg.AgentID) == "" || strings.TrimSpace(cfg.AgentVersion) == "" {
		return nil, fmt.Errorf("core: agent id and version are required: %w", result.ErrBadArgument)
	}
	if cfg.MaxMessagesPerCall < 0 {
		return nil, fmt.Errorf("core: max messages per call %d: %w", cfg.MaxMessagesPerCall, result.ErrBadArgument)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	c := &Core{
		agentID:      cfg.AgentID,
		agentVersion: cfg.AgentVersion,
		maxMessages:  cfg.MaxMessagesPerCall,
		registry:     cfg.Registry,
		messages:     cfg.Messages,
		metrics:      cfg.Metrics,
		now:          cfg.Now,
		logger:       cfg.Logger.Named("core"),
	}
	if cfg.Notifier != nil {
		c.announce(cfg.Notifier)
	}
	return c, nil
}

func (c *Core) announce(n *notifier.Notifier) {
	c.registry.Foreach(func(_ *registry.Bucket, col *collector.Collector) {
		_, err := n.Notify(notifier.TopicSystem, notifier.MessageSystemConfiguration,
			collector.Announcement{Type: col.Type(), Priority: col.Priority()})
		if err != nil {
			c.logger.Warn("Failed to announce collector", zap.String("collector", col.Name()), zap.Error(err))
		}
	})
}

// Collect invokes every collector whose interval has elapsed, in bucket then
// registration order. A failing collector does not stop the others; its
// timestamp is left unchanged so the next tick retries it. The returned error
// combines every failure and wraps result.ErrException.
func (c *Core) Collect(ctx context.Context) error {
	now := c.now()
	var errs error
	ran := 0

	c.registry.Foreach(func(b *registry.Bucket, col *collector.Collector) {
		if now.Sub(col.LastCollected()) < b.Interval() {
			return
		}
		ran++
		start := time.Now()
		err := col.Collect(ctx)
		c.metrics.ObserveCollect(col.Name(), time.Since(start), err)
		if err != nil {
			c.logger.Error("Collector failed",
				zap.String("collector", col.Name()),
				zap.Stringer("priority", b.Priority()),
				zap.Error(err))
			errs = multierr.Append(errs, err)
			return
		}
		col.SetLastCollected(now)
	})

	c.logger.Debug("Tick complete", zap.Int("collected", ran))
	if errs != nil {
		return fmt.Errorf("%w: %w", result.ErrException, errs)
	}
	return nil
}

// Get drains queued events into sealed messages appended to out. It returns
// result.ErrEmpty when no event was appended. The position reached is kept
// so the next call continues exactly where this one stopped.
//
// out's capacity and MaxMessagesPerCall both bound the messages emitted by
// one call; the event that would need the next message stays queued. Reaching
// MaxMessagesPerCall is not an error. A full out list or an exhausted message
// pool returns an error wrapping result.ErrMemoryException, and any messages
// sealed before it stay in out for the caller.
func (c *Core) Get(out *list.List[*models.Message]) error {
	if out == nil {
		return fmt.Errorf("get: nil message list: %w", result.ErrBadArgument)
	}
	if !c.registry.HasEvents() {
		c.cursor.reset()
		return result.ErrEmpty
	}

	d := drain{core: c, out: out, bucket: c.cursor.begin(c.registry)}
	err := d.run()

	if d.emitted == 0 {
		if err != nil {
			return err
		}
		return result.ErrEmpty
	}
	c.logger.Debug("Drain complete",
		zap.Int("messages", d.emitted),
		zap.Int("events", d.appended),
		zap.Int("dropped", d.dropped))
	if err != nil && !errors.Is(err, errLimit) {
		return fmt.Errorf("get: suspended after %d messages: %w", d.emitted, err)
	}
	return nil
}

// drain is the state of one Get call.
type drain struct {
	core   *Core
	out    *list.List[*models.Message]
	bucket *registry.Bucket
	msg    *models.Message

	emitted  int
	appended int
	dropped  int
}

func (d *drain) run() error {
	c := d.core
	for d.bucket != nil {
		col := d.bucket.CurrentNonEmpty()
		if col == nil {
			d.bucket = c.registry.NextPriority(d.bucket)
			continue
		}
		ev, err := col.Peek()
		if err != nil {
			d.bucket = c.registry.NextPriority(d.bucket)
			continue
		}

		if d.msg == nil {
			if err := d.open(); err != nil {
				c.cursor.suspend(d.bucket)
				return err
			}
		}

		switch {
		case d.msg.CanAppend(ev):
			d.take(col, ev)
		case d.msg.HasEvents():
			// Full: seal and retry the same event against a fresh message.
			d.seal()
		default:
			d.drop(col, ev)
		}
	}

	d.seal()
	c.cursor.reset()
	return nil
}

var errLimit = errors.New("message limit reached")

// open takes a new message, unless this call has reached its limit.
func (d *drain) open() error {
	c := d.core
	if c.maxMessages > 0 && d.emitted >= c.maxMessages {
		return errLimit
	}
	if d.out.IsFull() {
		return fmt.Errorf("get: message list full: %w", result.ErrMemoryException)
	}
	msg, err := c.messages.New(c.agentID, c.agentVersion)
	if err != nil {
		c.logger.Warn("No message available, drain suspended", zap.Int("emitted", d.emitted), zap.Error(err))
		return err
	}
	d.msg = msg
	return nil
}

// take moves ev from col into the open message and advances the cursor.
func (d *drain) take(col *collector.Collector, ev *models.Event) {
	c := d.core
	_, _ = col.Pop()
	if err := d.msg.Append(ev); err != nil {
		c.logger.Error("Event append failed, event dropped",
			zap.String("collector", col.Name()),
			zap.String("event", ev.Name()),
			zap.Error(err))
		c.metrics.EventDropped(metrics.DropAppend)
		d.dropped++
	} else {
		c.metrics.EventDrained(d.bucket.Priority().String())
		d.appended++
	}
	ev.Release()
	d.bucket.NextNonEmpty()
}

// drop discards an event too large for an empty message.
func (d *drain) drop(col *collector.Collector, ev *models.Event) {
	c := d.core
	_, _ = col.Pop()
	c.logger.Warn("Event exceeds message capacity, dropped",
		zap.String("collector", col.Name()),
		zap.String("event", ev.Name()),
		zap.Int("size", ev.Len()),
		zap.Int("capacity", d.msg.Cap()))
	c.metrics.EventDropped(metrics.DropOversized)
	d.dropped++
	ev.Release()
	d.bucket.NextNonEmpty()
}

// seal closes the open message and hands it to out. An open message without
// events goes back to the pool.
func (d *drain) seal() {
	if d.msg == nil {
		return
	}
	msg := d.msg
	d.msg = nil
	if !msg.HasEvents() {
		msg.Release()
		return
	}
	msg.Seal()
	if _, err := d.out.AddLast(msg); err != nil {
		// open checks the list has room, so this is an invariant failure.
		d.core.logger.Error("Sealed message lost", zap.Int("events", msg.Events()), zap.Error(err))
		msg.Release()
		return
	}
	d.core.metrics.MessageSealed(msg.Len())
	d.emitted++
}
