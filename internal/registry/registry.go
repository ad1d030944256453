// Package registry builds and owns the collector collection: three priority
// buckets, High first and Low last, each with an interval and a round-robin
// cursor. Bucket order is the scan order of both the tick and the drain.
package registry

import (
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/secagent/internal/collector"
	"github.com/Guliveer/vitalis/secagent/internal/list"
	"github.com/Guliveer/vitalis/secagent/internal/models"
	"github.com/Guliveer/vitalis/secagent/internal/pool"
	"github.com/Guliveer/vitalis/secagent/internal/result"
)

// Config is everything the registry needs at construction.
type Config struct {
	// Intervals holds the collection interval per priority.
	Intervals [collector.NumPriorities]time.Duration
	// Inits is the initializer table, in registration order.
	Inits         []collector.Init
	MaxCollectors int
	QueueCapacity int
	Events        *models.EventPool
	// Now defaults to time.Now.
	Now func() time.Time
	// Stagger draws the initial offset of a collector within its tier
	// interval. Defaults to a uniform draw of whole seconds in [0, interval).
	Stagger func(interval time.Duration) time.Duration
	Logger  *zap.Logger
}

// Registry is the collector collection.
type Registry struct {
	buckets    [collector.NumPriorities]Bucket
	collectors *pool.Pool[collector.Collector]
	logger     *zap.Logger
}

func defaultStagger(interval time.Duration) time.Duration {
	secs := int64(interval / time.Second)
	if secs <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(secs)) * time.Second
}

// New runs every initializer and places the resulting collectors in their
// priority's bucket. Initializers that fail are logged and skipped.
func New(cfg Config) (*Registry, error) {
	if cfg.MaxCollectors < 0 || cfg.QueueCapacity < 1 {
		return nil, fmt.Errorf("registry: max collectors %d, queue capacity %d: %w",
			cfg.MaxCollectors, cfg.QueueCapacity, result.ErrBadArgument)
	}
	for p, iv := range cfg.Intervals {
		if iv <= 0 {
			return nil, fmt.Errorf("registry: %s interval %s: %w", collector.Priority(p), iv, result.ErrBadArgument)
		}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Stagger == nil {
		cfg.Stagger = defaultStagger
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	r := &Registry{
		collectors: pool.New[collector.Collector](cfg.MaxCollectors, nil),
		logger:     cfg.Logger.Named("registry"),
	}
	for p := range r.buckets {
		r.buckets[p] = Bucket{
			priority: collector.Priority(p),
			interval: cfg.Intervals[p],
			members:  list.New[*collector.Collector](cfg.MaxCollectors, nil),
		}
	}

	env := collector.Env{Events: cfg.Events, Now: cfg.Now, Logger: cfg.Logger}
	now := cfg.Now()
	for i, initFn := range cfg.Inits {
		if initFn == nil {
			continue
		}
		if r.collectors.Available() == 0 {
			r.logger.Error("Collector pool exhausted, remaining collectors not registered",
				zap.Int("registered", r.Len()),
				zap.Int("skipped", len(cfg.Inits)-i))
			break
		}
		if err := r.register(initFn, env, cfg, now); err != nil {
			r.logger.Warn("Collector not registered", zap.Int("index", i), zap.Error(err))
		}
	}

	r.logger.Info("Collectors registered",
		zap.Int("high", r.buckets[collector.PriorityHigh].Len()),
		zap.Int("medium", r.buckets[collector.PriorityMedium].Len()),
		zap.Int("low", r.buckets[collector.PriorityLow].Len()))
	return r, nil
}

func (r *Registry) register(initFn collector.Init, env collector.Env, cfg Config, now time.Time) error {
	slot, err := r.collectors.Get()
	if err != nil {
		return err
	}
	src, err := initFn(env)
	if err != nil {
		_ = r.collectors.Free(slot)
		return fmt.Errorf("init: %w", err)
	}
	if err := slot.Init(src, cfg.QueueCapacity, env.Logger); err != nil {
		src.Deinit()
		_ = r.collectors.Free(slot)
		return err
	}

	b := r.ByPriority(slot.Priority())
	slot.SetLastCollected(staggered(now, b.interval, cfg.Stagger(b.interval)))
	if err := b.add(slot); err != nil {
		slot.Deinit()
		_ = r.collectors.Free(slot)
		return err
	}
	return nil
}

// staggered returns now-offset, collapsing to "due now" when the offset is
// outside [0, interval).
func staggered(now time.Time, interval, offset time.Duration) time.Time {
	if offset < 0 || offset >= interval {
		return now.Add(-interval)
	}
	return now.Add(-offset)
}

// HeadPriority returns the High bucket.
func (r *Registry) HeadPriority() *Bucket {
	return &r.buckets[collector.PriorityHigh]
}

// NextPriority returns the bucket after b, or nil after Low.
func (r *Registry) NextPriority(b *Bucket) *Bucket {
	if b == nil {
		return nil
	}
	return r.ByPriority(b.priority + 1)
}

// ByPriority returns the bucket for p, or nil for an invalid priority.
func (r *Registry) ByPriority(p collector.Priority) *Bucket {
	if !p.Valid() {
		return nil
	}
	return &r.buckets[p]
}

// Foreach visits every collector, bucket by bucket, in list order.
func (r *Registry) Foreach(fn func(*Bucket, *collector.Collector)) {
	for i := range r.buckets {
		b := &r.buckets[i]
		b.Foreach(func(c *collector.Collector) { fn(b, c) })
	}
}

// Find returns the collector registered under name, or nil.
func (r *Registry) Find(name string) *collector.Collector {
	for i := range r.buckets {
		n := r.buckets[i].members.Find(func(c *collector.Collector) bool { return c.Name() == name })
		if n != nil {
			return n.Value
		}
	}
	return nil
}

// HasEvents reports whether any collector has queued events.
func (r *Registry) HasEvents() bool {
	for i := range r.buckets {
		if r.buckets[i].HasEvents() {
			return true
		}
	}
	return false
}

// Len returns the number of registered collectors.
func (r *Registry) Len() int {
	n := 0
	for i := range r.buckets {
		n += r.buckets[i].Len()
	}
	return n
}

// Deinit tears down every collector and returns it to the pool.
func (r *Registry) Deinit() error {
	var errs error
	for i := range r.buckets {
		b := &r.buckets[i]
		for !b.members.IsEmpty() {
			c, err := b.members.RemoveFirst()
			if err != nil {
				errs = multierr.Append(errs, err)
				break
			}
			c.Deinit()
			errs = multierr.Append(errs, r.collectors.Free(c))
		}
		b.cursor = nil
	}
	return errs
}
