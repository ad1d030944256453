package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/secagent/internal/collector"
	"github.com/Guliveer/vitalis/secagent/internal/collectorsinfo"
	"github.com/Guliveer/vitalis/secagent/internal/config"
	"github.com/Guliveer/vitalis/secagent/internal/core"
	"github.com/Guliveer/vitalis/secagent/internal/metrics"
	"github.com/Guliveer/vitalis/secagent/internal/models"
	"github.com/Guliveer/vitalis/secagent/internal/notifier"
	"github.com/Guliveer/vitalis/secagent/internal/outbox"
	"github.com/Guliveer/vitalis/secagent/internal/platform"
	"github.com/Guliveer/vitalis/secagent/internal/registry"
	"github.com/Guliveer/vitalis/secagent/internal/scheduler"
	"github.com/Guliveer/vitalis/secagent/internal/source"
)

// agent owns every long-lived component, in construction order.
type agent struct {
	cfg    *config.Config
	logger *zap.Logger

	notifier  *notifier.Notifier
	info      *collectorsinfo.Info
	registry  *registry.Registry
	core      *core.Core
	outbox    *outbox.Outbox
	scheduler *scheduler.Scheduler
	promReg   *prometheus.Registry
}

// sourceInits maps the enabled collectors of cfg to their initializers.
func sourceInits(cfg *config.Config, info *collectorsinfo.Info) ([]collector.Init, error) {
	var inits []collector.Init
	for _, s := range cfg.Collectors.Sources() {
		if !s.Enabled {
			continue
		}
		prio, err := collector.ParsePriority(s.Priority)
		if err != nil {
			return nil, fmt.Errorf("collector %s: %w", s.Type, err)
		}
		switch s.Type {
		case collector.TypeHeartbeat:
			inits = append(inits, source.Heartbeat(prio))
		case collector.TypeConnectionCreate:
			inits = append(inits, source.ConnectionCreate(prio, cfg.Limits.TrackedConnections))
		case collector.TypeListeningPorts:
			inits = append(inits, source.ListeningPorts(prio))
		case collector.TypeSystemInformation:
			inits = append(inits, source.SystemInformation(prio, info, cfg.Limits.ExtraDetails))
		}
	}
	return inits, nil
}

// buildAgent wires configuration into a ready agent. stagger may be nil.
func buildAgent(cfg *config.Config, logger *zap.Logger, stagger func(time.Duration) time.Duration) (*agent, error) {
	a := &agent{cfg: cfg, logger: logger}
	built := false
	defer func() {
		if !built {
			_ = a.close()
		}
	}()

	agentID := cfg.Agent.ID
	if agentID == "" {
		id, err := platform.AgentID(platform.New())
		if err != nil {
			return nil, fmt.Errorf("resolving agent id: %w", err)
		}
		agentID = id
	}

	a.promReg = prometheus.NewRegistry()
	a.promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(a.promReg)

	a.notifier = notifier.New(cfg.Limits.NotifierEntries)
	intervals := cfg.Collection.Intervals()
	info, err := collectorsinfo.New(a.notifier, intervals)
	if err != nil {
		return nil, fmt.Errorf("collectors info: %w", err)
	}
	a.info = info

	inits, err := sourceInits(cfg, info)
	if err != nil {
		return nil, err
	}

	events := models.NewEventPool(models.EventPoolConfig{
		Count:   cfg.Limits.EventPoolSize,
		MaxSize: cfg.Limits.EventMaxSize,
	})
	a.registry, err = registry.New(registry.Config{
		Intervals:     intervals,
		Inits:         inits,
		MaxCollectors: cfg.Limits.MaxCollectors,
		QueueCapacity: cfg.Limits.QueueCapacity,
		Events:        events,
		Stagger:       stagger,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	a.core, err = core.New(core.Config{
		AgentID:            agentID,
		AgentVersion:       cfg.Agent.Version,
		MaxMessagesPerCall: cfg.Limits.MaxMessagesPerCall,
		Registry:           a.registry,
		Messages:           models.NewMessagePool(cfg.Limits.MessagePoolSize, cfg.Limits.MessageMaxSize),
		Notifier:           a.notifier,
		Metrics:            m,
		Logger:             logger,
	})
	if err != nil {
		return nil, err
	}

	a.outbox, err = outbox.New(cfg.Outbox, logger)
	if err != nil {
		return nil, err
	}

	a.scheduler = scheduler.New(a.core, cfg.Collection.Tick.Duration, cfg.Limits.MessagesPerDrain, logger)
	a.scheduler.OnBatchReady(a.outbox.Store)

	built = true
	logger.Info("Agent configured",
		zap.String("agent_id", agentID),
		zap.Int("collectors", a.registry.Len()),
		zap.Duration("tick", cfg.Collection.Tick.Duration))
	return a, nil
}

// run blocks until ctx is cancelled.
func (a *agent) run(ctx context.Context) {
	if addr := a.cfg.Metrics.Addr; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, a.promReg, a.logger); err != nil {
				a.logger.Error("Metrics endpoint failed", zap.Error(err))
			}
		}()
	}
	a.scheduler.Start(ctx)
}

// close tears components down in reverse construction order.
func (a *agent) close() error {
	var errs error
	if a.outbox != nil {
		errs = multierr.Append(errs, a.outbox.Close())
	}
	if a.registry != nil {
		errs = multierr.Append(errs, a.registry.Deinit())
	}
	if a.info != nil {
		errs = multierr.Append(errs, a.info.Close())
	}
	if a.notifier != nil {
		a.notifier.Deinit()
	}
	return errs
}
