package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/Guliveer/vitalis/secagent/internal/list"
	"github.com/Guliveer/vitalis/secagent/internal/models"
	"github.com/Guliveer/vitalis/secagent/internal/result"
)

// fakeEngine emits the queued batch sizes one Get at a time.
type fakeEngine struct {
	messages *models.MessagePool
	batches  []int
	collects int
	gets     int
	getErr   error
	collErr  error
	// lastErr is returned together with the final batch.
	lastErr  error
}

func (f *fakeEngine) Collect(context.Context) error {
	f.collects++
	return f.collErr
}

func (f *fakeEngine) Get(out *list.List[*models.Message]) error {
	f.gets++
	if f.getErr != nil {
		return f.getErr
	}
	if len(f.batches) == 0 {
		return fmt.Errorf("drain: %w", result.ErrEmpty)
	}
	n := f.batches[0]
	f.batches = f.batches[1:]
	for i := 0; i < n; i++ {
		m, err := f.messages.New("agent", "1")
		if err != nil {
			return err
		}
		if _, err := out.AddLast(m); err != nil {
			m.Release()
			return err
		}
	}
	if len(f.batches) == 0 {
		return f.lastErr
	}
	return nil
}

func newFake(batches ...int) *fakeEngine {
	return &fakeEngine{messages: models.NewMessagePool(4, 256), batches: batches}
}

func TestRunOnceDrainsUntilEmpty(t *testing.T) {
	engine := newFake(2, 1, 2)
	s := New(engine, time.Second, 4, zaptest.NewLogger(t))

	var sizes []int
	s.OnBatchReady(func(out *list.List[*models.Message]) error {
		sizes = append(sizes, out.Len())
		return nil
	})

	assert.Equal(t, 3, s.RunOnce(context.Background()))
	assert.Equal(t, []int{2, 1, 2}, sizes)
	assert.Equal(t, 1, engine.collects)
	assert.Equal(t, 4, engine.gets)
	assert.Equal(t, 4, engine.messages.Available(), "messages are released after hand-off")
}

func TestRunOnceCollectFailureStillDrains(t *testing.T) {
	engine := newFake(1)
	engine.collErr = errors.New("collector broke")
	s := New(engine, time.Second, 4, zaptest.NewLogger(t))

	assert.Equal(t, 1, s.RunOnce(context.Background()))
}

func TestRunOnceStopsOnDrainError(t *testing.T) {
	engine := newFake(1, 1)
	engine.getErr = fmt.Errorf("drain: %w", result.ErrMemoryException)
	s := New(engine, time.Second, 4, zaptest.NewLogger(t))

	assert.Equal(t, 0, s.RunOnce(context.Background()))
	assert.Equal(t, 1, engine.gets)
}

func TestRunOnceHandsOffPartialBatch(t *testing.T) {
	engine := newFake(2, 1)
	engine.lastErr = fmt.Errorf("drain: %w", result.ErrMemoryException)
	s := New(engine, time.Second, 4, zaptest.NewLogger(t))

	var sizes []int
	s.OnBatchReady(func(out *list.List[*models.Message]) error {
		sizes = append(sizes, out.Len())
		return nil
	})

	assert.Equal(t, 2, s.RunOnce(context.Background()))
	assert.Equal(t, []int{2, 1}, sizes)
	assert.Equal(t, 2, engine.gets, "drain stops after the failing call")
	assert.Equal(t, 4, engine.messages.Available())
}

func TestHandOffErrorDoesNotStopDrain(t *testing.T) {
	engine := newFake(1, 1)
	s := New(engine, time.Second, 4, zaptest.NewLogger(t))
	s.OnBatchReady(func(*list.List[*models.Message]) error { return errors.New("spool down") })

	assert.Equal(t, 2, s.RunOnce(context.Background()))
	assert.Equal(t, 4, engine.messages.Available())
}

func TestStartStopsOnCancel(t *testing.T) {
	engine := newFake()
	s := New(engine, 10*time.Millisecond, 4, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.GreaterOrEqual(t, engine.collects, 1)
}
