package collector_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Guliveer/vitalis/secagent/internal/collector"
	"github.com/Guliveer/vitalis/secagent/internal/collector/collectortest"
	"github.com/Guliveer/vitalis/secagent/internal/models"
	"github.com/Guliveer/vitalis/secagent/internal/result"
)

func newEvents(count int) *models.EventPool {
	return models.NewEventPool(models.EventPoolConfig{Count: count, MaxSize: 512})
}

func TestNilCollector(t *testing.T) {
	var c *collector.Collector

	_, err := c.Peek()
	assert.ErrorIs(t, err, result.ErrBadArgument)
	_, err = c.Pop()
	assert.ErrorIs(t, err, result.ErrBadArgument)
	assert.ErrorIs(t, c.Collect(context.Background()), result.ErrBadArgument)
	assert.True(t, c.IsEmpty())
}

func TestEmptyQueue(t *testing.T) {
	src := collectortest.New("m1", collector.PriorityMedium, 0)
	c, err := collector.New(src, 4, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = c.Peek()
	assert.ErrorIs(t, err, result.ErrEmpty)
	_, err = c.Pop()
	assert.ErrorIs(t, err, result.ErrEmpty)
}

func TestCollectPeekPop(t *testing.T) {
	src := collectortest.New("m1", collector.PriorityMedium, 2)
	src.Bind(newEvents(4))
	c, err := collector.New(src, 4, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, c.Collect(context.Background()))
	assert.Equal(t, 2, c.Len())

	e, err := c.Peek()
	require.NoError(t, err)
	assert.Equal(t, "m10", e.Name())
	assert.True(t, e.Built())

	popped, err := c.Pop()
	require.NoError(t, err)
	assert.Same(t, e, popped)
	popped.Release()

	e, err = c.Pop()
	require.NoError(t, err)
	assert.Equal(t, "m11", e.Name())
	assert.True(t, c.IsEmpty())
}

func TestFullQueueIsNotAFailure(t *testing.T) {
	events := newEvents(8)
	src := collectortest.New("h1", collector.PriorityHigh, 5)
	src.Bind(events)
	c, err := collector.New(src, 2, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, c.Collect(context.Background()))
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, uint64(1), c.Rejected())
	assert.Equal(t, 6, events.Available(), "rejected event returned to the pool")

	e, err := c.Peek()
	require.NoError(t, err)
	assert.Equal(t, "h10", e.Name(), "oldest events are kept")
}

func TestCollectFailure(t *testing.T) {
	src := collectortest.New("l1", collector.PriorityLow, 1)
	src.Err = errors.New("enumeration failed")
	c, err := collector.New(src, 2, zaptest.NewLogger(t))
	require.NoError(t, err)

	err = c.Collect(context.Background())
	assert.ErrorContains(t, err, "enumeration failed")
	assert.ErrorContains(t, err, "l1")
}

// reentrantSource calls back into the collector that owns it.
type reentrantSource struct {
	*collectortest.Source
	inner error
}

func (s *reentrantSource) Collect(ctx context.Context, sink collector.Sink) error {
	s.Calls++
	s.inner = sink.(*collector.Collector).Collect(ctx)
	return nil
}

func TestCollectRejectsReentry(t *testing.T) {
	src := &reentrantSource{Source: collectortest.New("h1", collector.PriorityHigh, 0)}
	c, err := collector.New(src, 2, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, c.Collect(context.Background()))
	assert.ErrorIs(t, src.inner, result.ErrException)
	assert.ErrorContains(t, src.inner, "already in progress")

	src.inner = nil
	require.NoError(t, c.Collect(context.Background()), "guard is cleared after the call")
	assert.ErrorIs(t, src.inner, result.ErrException)
	assert.Equal(t, 2, src.Calls)
}

func TestInitValidation(t *testing.T) {
	tests := []struct {
		name string
		src  collector.Source
		cap  int
	}{
		{"nil source", nil, 1},
		{"blank name", collectortest.New(" ", collector.PriorityHigh, 0), 1},
		{"long name", collectortest.New("a-name-that-is-way-too-long-for-a-collector", collector.PriorityHigh, 0), 1},
		{"bad priority", collectortest.New("x", collector.Priority(9), 0), 1},
		{"zero capacity", collectortest.New("x", collector.PriorityHigh, 0), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := collector.New(tt.src, tt.cap, zaptest.NewLogger(t))
			assert.ErrorIs(t, err, result.ErrBadArgument)
		})
	}
}

func TestDeinitReleasesQueue(t *testing.T) {
	events := newEvents(3)
	src := collectortest.New("h1", collector.PriorityHigh, 3)
	src.Bind(events)
	c, err := collector.New(src, 3, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, c.Collect(context.Background()))
	assert.Equal(t, 0, events.Available())

	c.Deinit()
	assert.Equal(t, 3, events.Available())
	assert.True(t, src.Deinited)
}

func TestLastCollected(t *testing.T) {
	c, err := collector.New(collectortest.New("h1", collector.PriorityHigh, 0), 1, zaptest.NewLogger(t))
	require.NoError(t, err)
	ts := time.Unix(1700000000, 0)
	c.SetLastCollected(ts)
	assert.Equal(t, ts, c.LastCollected())
	assert.Equal(t, collector.TypeTest, c.Type())
	assert.Equal(t, collector.PriorityHigh, c.Priority())
}

func TestParsePriority(t *testing.T) {
	p, err := collector.ParsePriority("Medium")
	require.NoError(t, err)
	assert.Equal(t, collector.PriorityMedium, p)

	_, err = collector.ParsePriority("urgent")
	assert.Error(t, err)
	assert.Equal(t, "low", collector.PriorityLow.String())
	assert.Equal(t, "ListeningPorts", collector.TypeListeningPorts.String())
	assert.False(t, collector.Type(12).Valid())
}
