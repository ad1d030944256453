package registry

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
)

var (
	testNow       = time.Unix(1700000000, 0)
	testIntervals = [collector.NumPriorities]time.Duration{10 * time.Second, 30 * time.Second, 60 * time.Second}
)

func newTestRegistry(t *testing.T, sources ...*collectortest.Source) *Registry {
	t.Helper()
	inits := make([]collector.Init, 0, len(sources))
	for _, s := range sources {
		inits = append(inits, s.Init())
	}
	r, err := New(Config{
		Intervals:     testIntervals,
		Inits:         inits,
		MaxCollectors: 8,
		QueueCapacity: 16,
		Events:        models.NewEventPool(models.EventPoolConfig{Count: 64, MaxSize: 512}),
		Now:           func() time.Time { return testNow },
		Stagger:       func(iv time.Duration) time.Duration { return iv },
		Logger:        zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Deinit() })
	return r
}

func fill(t *testing.T, r *Registry) {
	t.Helper()
	r.Foreach(func(_ *Bucket, c *collector.Collector) {
		require.NoError(t, c.Collect(context.Background()))
	})
}

func TestPriorityOrder(t *testing.T) {
	r := newTestRegistry(t)

	head := r.HeadPriority()
	require.NotNil(t, head)
	assert.Equal(t, collector.PriorityHigh, head.Priority())

	medium := r.NextPriority(head)
	require.NotNil(t, medium)
	assert.Equal(t, collector.PriorityMedium, medium.Priority())

	low := r.NextPriority(medium)
	require.NotNil(t, low)
	assert.Equal(t, collector.PriorityLow, low.Priority())
	assert.Equal(t, 60*time.Second, low.Interval())

	assert.Nil(t, r.NextPriority(low))
	assert.Nil(t, r.NextPriority(nil))
	assert.Same(t, medium, r.ByPriority(collector.PriorityMedium))
	assert.Nil(t, r.ByPriority(collector.Priority(3)))
	assert.Nil(t, r.ByPriority(collector.Priority(-1)))
}

func TestEmptyRegistry(t *testing.T) {
	r := newTestRegistry(t)

	assert.Equal(t, 0, r.Len())
	assert.False(t, r.HasEvents())
	for b := r.HeadPriority(); b != nil; b = r.NextPriority(b) {
		assert.Nil(t, b.Current())
		assert.Nil(t, b.NextCyclic())
		assert.Nil(t, b.CurrentNonEmpty())
		assert.Nil(t, b.NextNonEmpty())
	}
	assert.Nil(t, r.Find("h1"))
}

func TestBucketMembership(t *testing.T) {
	h1 := collectortest.New("h1", collector.PriorityHigh, 0)
	m1 := collectortest.New("m1", collector.PriorityMedium, 0)
	h2 := collectortest.New("h2", collector.PriorityHigh, 0)
	l1 := collectortest.New("l1", collector.PriorityLow, 0)
	r := newTestRegistry(t, h1, m1, h2, l1)

	assert.Equal(t, 4, r.Len())

	var order []string
	r.Foreach(func(b *Bucket, c *collector.Collector) {
		order = append(order, b.Priority().String()+":"+c.Name())
	})
	assert.Equal(t, []string{"high:h1", "high:h2", "medium:m1", "low:l1"}, order)
	assert.Equal(t, "m1", r.Find("m1").Name())
}

func TestCyclicCursor(t *testing.T) {
	r := newTestRegistry(t,
		collectortest.New("m1", collector.PriorityMedium, 0),
		collectortest.New("m2", collector.PriorityMedium, 0),
	)
	b := r.ByPriority(collector.PriorityMedium)

	assert.Equal(t, "m1", b.Current().Name())
	assert.Equal(t, "m1", b.Current().Name(), "Current does not advance")
	assert.Equal(t, "m2", b.NextCyclic().Name())
	assert.Equal(t, "m1", b.NextCyclic().Name(), "wraps after the last member")

	require.True(t, b.SetCurrent(r.Find("m2")))
	assert.Equal(t, "m1", b.NextCyclic().Name())

	other := newTestRegistry(t, collectortest.New("x", collector.PriorityMedium, 0))
	assert.False(t, b.SetCurrent(other.Find("x")))
}

func TestCurrentNonEmptySkipsDrained(t *testing.T) {
	r := newTestRegistry(t,
		collectortest.New("h1", collector.PriorityHigh, 2),
		collectortest.New("h2", collector.PriorityHigh, 1),
		collectortest.New("h3", collector.PriorityHigh, 0),
	)
	fill(t, r)
	b := r.HeadPriority()

	pop := func(c *collector.Collector) {
		e, err := c.Pop()
		require.NoError(t, err)
		e.Release()
	}

	c := b.CurrentNonEmpty()
	require.NotNil(t, c)
	assert.Equal(t, "h1", c.Name())
	pop(c)

	c = b.CurrentNonEmpty()
	assert.Equal(t, "h1", c.Name())
	pop(c)

	c = b.CurrentNonEmpty()
	assert.Equal(t, "h2", c.Name())
	pop(c)

	assert.Nil(t, b.CurrentNonEmpty())
	assert.False(t, b.HasEvents())
	assert.NotNil(t, b.Current(), "cursor stays on a member")
}

func TestNextNonEmptyRoundRobin(t *testing.T) {
	r := newTestRegistry(t,
		collectortest.New("h1", collector.PriorityHigh, 2),
		collectortest.New("h2", collector.PriorityHigh, 1),
		collectortest.New("h3", collector.PriorityHigh, 2),
	)
	fill(t, r)
	b := r.HeadPriority()

	pop := func(c *collector.Collector) {
		e, err := c.Pop()
		require.NoError(t, err)
		e.Release()
	}

	assert.Equal(t, "h1", b.CurrentNonEmpty().Name())
	c := b.NextNonEmpty()
	assert.Equal(t, "h2", c.Name())
	pop(c)
	assert.Equal(t, "h3", b.NextNonEmpty().Name())
	assert.Equal(t, "h1", b.NextNonEmpty().Name(), "wraps to the first member")

	c = b.NextNonEmpty()
	assert.Equal(t, "h3", c.Name())
	pop(c)
	pop(c)

	c = b.NextNonEmpty()
	assert.Equal(t, "h1", c.Name())
	pop(c)
	assert.Equal(t, "h1", b.NextNonEmpty().Name(), "a lone non-empty member is found again")
	pop(c)

	assert.Nil(t, b.NextNonEmpty())
}

func TestExhaustedBucketRestsAfterLastServed(t *testing.T) {
	r := newTestRegistry(t,
		collectortest.New("h1", collector.PriorityHigh, 1),
		collectortest.New("h2", collector.PriorityHigh, 2),
		collectortest.New("h3", collector.PriorityHigh, 1),
	)
	fill(t, r)
	b := r.HeadPriority()

	var served []string
	for c := b.CurrentNonEmpty(); c != nil; c = b.NextNonEmpty() {
		served = append(served, c.Name())
		e, err := c.Pop()
		require.NoError(t, err)
		e.Release()
	}
	assert.Equal(t, []string{"h1", "h2", "h3", "h2"}, served)
	assert.Equal(t, "h3", b.Current().Name(), "successor of the last collector served")

	assert.Nil(t, b.CurrentNonEmpty())
	assert.Equal(t, "h3", b.Current().Name(), "a failed lookup leaves the cursor in place")
}

func TestStaggeredStart(t *testing.T) {
	tests := []struct {
		name   string
		offset time.Duration
		want   time.Duration
	}{
		{"zero offset", 0, 0},
		{"inside interval", 4 * time.Second, 4 * time.Second},
		{"equal to interval collapses", 10 * time.Second, 10 * time.Second},
		{"beyond interval collapses", 25 * time.Second, 10 * time.Second},
		{"negative collapses", -time.Second, 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := staggered(testNow, 10*time.Second, tt.offset)
			assert.Equal(t, tt.want, testNow.Sub(got))
		})
	}
}

func TestDefaultStaggerWithinInterval(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := defaultStagger(5 * time.Second)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, 5*time.Second)
	}
	assert.Equal(t, time.Duration(0), defaultStagger(500*time.Millisecond))
}

func TestFailingInitIsSkipped(t *testing.T) {
	bad := func(collector.Env) (collector.Source, error) { return nil, errors.New("no netlink") }
	good := collectortest.New("h1", collector.PriorityHigh, 0)

	r, err := New(Config{
		Intervals:     testIntervals,
		Inits:         []collector.Init{bad, good.Init(), nil},
		MaxCollectors: 4,
		QueueCapacity: 4,
		Logger:        zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())
	assert.NotNil(t, r.Find("h1"))
}

func TestCollectorPoolExhaustion(t *testing.T) {
	r, err := New(Config{
		Intervals: testIntervals,
		Inits: []collector.Init{
			collectortest.New("h1", collector.PriorityHigh, 0).Init(),
			collectortest.New("h2", collector.PriorityHigh, 0).Init(),
			collectortest.New("h3", collector.PriorityHigh, 0).Init(),
		},
		MaxCollectors: 2,
		QueueCapacity: 4,
		Logger:        zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())
	assert.Nil(t, r.Find("h3"))
}

func TestInvalidConfig(t *testing.T) {
	_, err := New(Config{Intervals: testIntervals, QueueCapacity: 0})
	assert.Error(t, err)

	_, err = New(Config{QueueCapacity: 1})
	assert.Error(t, err, "zero intervals are rejected")
}

func TestDeinitFreesCollectors(t *testing.T) {
	h1 := collectortest.New("h1", collector.PriorityHigh, 2)
	r := newTestRegistry(t, h1)
	fill(t, r)

	require.NoError(t, r.Deinit())
	assert.True(t, h1.Deinited)
	assert.Equal(t, 0, r.Len())
	assert.Nil(t, r.HeadPriority().Current())
}
