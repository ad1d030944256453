// Package collectortest provides a scriptable collector.Source for tests.
package collectortest

import (
	"context"
	"strconv"

	"github.com/Guliveer/vitalis/secagent/internal/collector"
	"github.com/Guliveer/vitalis/secagent/internal/models"
)

// Source produces Pending events on its next Collect, named after the
// source followed by a running index: "h1" yields "h10", "h11", ...
type Source struct {
	SourceName     string
	SourceType     collector.Type
	SourcePriority collector.Priority

	// Pending is consumed by Collect.
	Pending int
	// PayloadFor, when set, supplies the payload of the i-th event. A nil
	// payload leaves the event empty.
	PayloadFor func(i int) any
	// Err is returned by Collect before producing anything.
	Err error

	Calls    int
	Deinited bool

	events   *models.EventPool
	produced int
}

// New creates a test source of type Test.
func New(name string, priority collector.Priority, pending int) *Source {
	return &Source{
		SourceName:     name,
		SourceType:     collector.TypeTest,
		SourcePriority: priority,
		Pending:        pending,
	}
}

// Init returns an initializer that binds s to the registry's event pool.
func (s *Source) Init() collector.Init {
	return func(env collector.Env) (collector.Source, error) {
		s.events = env.Events
		return s, nil
	}
}

// Bind sets the event pool directly, for use without a registry.
func (s *Source) Bind(events *models.EventPool) { s.events = events }

func (s *Source) Name() string                 { return s.SourceName }
func (s *Source) Type() collector.Type         { return s.SourceType }
func (s *Source) Priority() collector.Priority { return s.SourcePriority }
func (s *Source) Deinit()                      { s.Deinited = true }

// Collect pushes the pending events into sink.
func (s *Source) Collect(_ context.Context, sink collector.Sink) error {
	s.Calls++
	if s.Err != nil {
		return s.Err
	}
	for s.Pending > 0 {
		s.Pending--
		e, err := s.events.New(models.Header{
			Name:                 s.SourceName + strconv.Itoa(s.produced),
			PayloadSchemaVersion: models.PayloadSchemaVersion,
			Category:             models.CategoryPeriodic,
			EventType:            models.EventTypeDiagnostic,
		})
		if err != nil {
			return err
		}
		if s.PayloadFor != nil {
			if p := s.PayloadFor(s.produced); p != nil {
				if err := e.AppendPayload(p); err != nil {
					e.Release()
					return err
				}
			}
		}
		s.produced++
		if err := sink.Push(e); err != nil {
			return err
		}
	}
	return nil
}
