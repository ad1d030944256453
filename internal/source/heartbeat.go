package source

import (
	"context"

	"github.com/Guliveer/vitalis/secagent/internal/collector"
	"github.com/Guliveer/vitalis/secagent/internal/models"
)

type heartbeat struct {
	base
}

// Heartbeat emits one payload-free event per collection, proving liveness.
func Heartbeat(priority collector.Priority) collector.Init {
	return func(env collector.Env) (collector.Source, error) {
		b, err := newBase(collector.TypeHeartbeat, priority, env)
		if err != nil {
			return nil, err
		}
		return &heartbeat{base: b}, nil
	}
}

func (h *heartbeat) Collect(_ context.Context, sink collector.Sink) error {
	e, err := h.newEvent(models.CategoryPeriodic)
	if err != nil {
		return err
	}
	return sink.Push(e)
}
