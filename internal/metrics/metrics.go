// Package metrics exposes the engine's counters as Prometheus metrics on a
// private registry.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Drop reasons.
const (
	DropOversized = "oversized"
	DropAppend    = "append_failed"
)

// Metrics groups every instrument the agent records. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	collectRuns     *prometheus.CounterVec
	collectErrors   *prometheus.CounterVec
	collectDuration *prometheus.HistogramVec
	eventsDrained   *prometheus.CounterVec
	eventsDropped   *prometheus.CounterVec
	messages        prometheus.Counter
	messageBytes    prometheus.Histogram
}

// New creates the instruments and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		collectRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "secagent_collect_runs_total",
			Help: "Collector invocations by the tick",
		}, []string{"collector"}),
		collectErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "secagent_collect_errors_total",
			Help: "Collector invocations that failed",
		}, []string{"collector"}),
		collectDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "secagent_collect_duration_seconds",
			Help:    "Collection duration per collector",
			Buckets: prometheus.DefBuckets,
		}, []string{"collector"}),
		eventsDrained: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "secagent_events_drained_total",
			Help: "Events appended to messages",
		}, []string{"priority"}),
		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "secagent_events_dropped_total",
			Help: "Events discarded by the drain",
		}, []string{"reason"}),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "secagent_messages_sealed_total",
			Help: "Messages sealed by the drain",
		}),
		messageBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "secagent_message_bytes",
			Help:    "Serialized size of sealed messages",
			Buckets: prometheus.ExponentialBuckets(256, 2, 8),
		}),
	}
	reg.MustRegister(m.collectRuns, m.collectErrors, m.collectDuration,
		m.eventsDrained, m.eventsDropped, m.messages, m.messageBytes)
	return m
}

// ObserveCollect records one collector invocation.
func (m *Metrics) ObserveCollect(collector string, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.collectRuns.WithLabelValues(collector).Inc()
	m.collectDuration.WithLabelValues(collector).Observe(took.Seconds())
	if err != nil {
		m.collectErrors.WithLabelValues(collector).Inc()
	}
}

// EventDrained counts an event appended to a message.
func (m *Metrics) EventDrained(priority string) {
	if m == nil {
		return
	}
	m.eventsDrained.WithLabelValues(priority).Inc()
}

// EventDropped counts an event discarded by the drain.
func (m *Metrics) EventDropped(reason string) {
	if m == nil {
		return
	}
	m.eventsDropped.WithLabelValues(reason).Inc()
}

// MessageSealed counts a sealed message of size bytes.
func (m *Metrics) MessageSealed(size int) {
	if m == nil {
		return
	}
	m.messages.Inc()
	m.messageBytes.Observe(float64(size))
}

// Serve exposes reg on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Metrics endpoint listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
