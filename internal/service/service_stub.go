//go:build !windows

// Package service provides a stub implementation for non-Windows platforms.
// On macOS and Linux the agent runs as a foreground process; the Windows
// service wrapper is not needed.
package service

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"
)

// Name is the service name used in logs.
const Name = "SecAgent"

// AgentService is a foreground runner for non-Windows platforms.
type AgentService struct {
	logger  *zap.Logger
	startFn func(ctx context.Context)
}

// New creates a stub service wrapper for non-Windows platforms. The stop
// grace is unused; the caller owns cancellation.
func New(logger *zap.Logger, startFn func(ctx context.Context), _ time.Duration) *AgentService {
	return &AgentService{
		logger:  logger.Named("service"),
		startFn: startFn,
	}
}

// IsWindowsService always returns false on non-Windows platforms.
func IsWindowsService() bool {
	return false
}

// Run executes the agent directly (no service wrapper needed on non-Windows).
func (s *AgentService) Run() error {
	return s.RunContext(context.Background())
}

// RunContext executes the agent until ctx is cancelled. Under systemd the
// service manager is told when the agent is ready and when it stops.
func (s *AgentService) RunContext(ctx context.Context) error {
	s.logger.Debug("Running in foreground", zap.String("service", Name))
	s.notify(daemon.SdNotifyReady)
	s.startFn(ctx)
	s.notify(daemon.SdNotifyStopping)
	return nil
}

func (s *AgentService) notify(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		s.logger.Warn("systemd notification failed", zap.String("state", state), zap.Error(err))
		return
	}
	if sent {
		s.logger.Debug("systemd notified", zap.String("state", state))
	}
}
