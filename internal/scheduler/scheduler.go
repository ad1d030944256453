// Package scheduler implements the tick-based control loop. Each tick runs
// the engine's collection pass and then drains queued events into messages.
// The scheduler does NOT store or send messages itself; it invokes a
// callback when a batch is ready.
package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/secagent/internal/list"
	"github.com/Guliveer/vitalis/secagent/internal/models"
	"github.com/Guliveer/vitalis/secagent/internal/result"
)

// Engine is the tick and drain contract of core.Core.
type Engine interface {
	Collect(ctx context.Context) error
	Get(out *list.List[*models.Message]) error
}

// BatchFunc receives the messages of one drain call. The list is cleared,
// and its messages released, after the callback returns.
type BatchFunc func(out *list.List[*models.Message]) error

// Scheduler calls Collect and Get serially on one goroutine.
type Scheduler struct {
	engine Engine
	tick   time.Duration
	logger *zap.Logger

	out          *list.List[*models.Message]
	onBatchReady BatchFunc
}

// New creates a Scheduler that ticks every tick and hands off at most
// messagesPerDrain messages per drain call.
func New(engine Engine, tick time.Duration, messagesPerDrain int, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		engine: engine,
		tick:   tick,
		logger: logger.Named("scheduler"),
		out:    list.New[*models.Message](messagesPerDrain, (*models.Message).Release),
	}
}

// OnBatchReady sets the callback invoked with every drained batch.
func (s *Scheduler) OnBatchReady(fn BatchFunc) {
	s.onBatchReady = fn
}

// Start runs ticks until the context is cancelled. The first tick runs
// immediately.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs one tick: a collection pass, then drain calls until the
// engine has nothing more to emit. It returns the number of drained batches.
// Messages the engine emitted alongside an error are handed off before the
// drain stops.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	if err := s.engine.Collect(ctx); err != nil {
		s.logger.Warn("Collection pass had failures", zap.Error(err))
	}

	batches := 0
	for ctx.Err() == nil {
		err := s.engine.Get(s.out)
		if s.out.Len() > 0 {
			batches++
			s.handOff()
		}
		if err != nil {
			s.out.Clear()
			if !errors.Is(err, result.ErrEmpty) {
				s.logger.Warn("Drain stopped", zap.Error(err))
			}
			break
		}
	}
	return batches
}

func (s *Scheduler) handOff() {
	defer s.out.Clear()

	s.logger.Debug("Batch ready", zap.Int("messages", s.out.Len()))
	if s.onBatchReady == nil {
		return
	}
	if err := s.onBatchReady(s.out); err != nil {
		s.logger.Warn("Batch hand-off failed", zap.Error(err))
	}
}
