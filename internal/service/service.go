//go:build windows

// Package service provides Windows Service integration.
// When running as a Windows service, the agent enters the SCM control loop.
// When running from a terminal, it runs in foreground.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/windows/svc"
)

// Name is the SCM service name.
const Name = "SecAgent"

// AgentService implements the Windows service interface (svc.Handler).
type AgentService struct {
	logger    *zap.Logger
	startFn   func(ctx context.Context)
	stopGrace time.Duration
}

// New creates a new Windows service wrapper.
// The startFn is called with a cancellable context when the service starts.
// On stop, startFn gets stopGrace to return.
func New(logger *zap.Logger, startFn func(ctx context.Context), stopGrace time.Duration) *AgentService {
	return &AgentService{
		logger:    logger.Named("service"),
		startFn:   startFn,
		stopGrace: stopGrace,
	}
}

// IsWindowsService checks if the process is running as a Windows service.
func IsWindowsService() bool {
	isService, err := svc.IsWindowsService()
	if err != nil {
		return false
	}
	return isService
}

// Run starts the Windows service control loop.
func (s *AgentService) Run() error {
	return svc.Run(Name, s)
}

// RunContext executes the agent in the foreground until ctx is cancelled.
func (s *AgentService) RunContext(ctx context.Context) error {
	s.startFn(ctx)
	return nil
}

// Execute implements the svc.Handler interface for Windows SCM integration.
func (s *AgentService) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (ssec bool, errno uint32) {
	changes <- svc.Status{State: svc.StartPending}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.startFn(ctx)
	}()

	changes <- svc.Status{
		State:   svc.Running,
		Accepts: svc.AcceptStop | svc.AcceptShutdown,
	}
	s.logger.Info("Windows service started")

	for {
		select {
		case <-done:
			s.logger.Warn("Agent exited without a stop request")
			return false, 1
		case c := <-r:
			switch c.Cmd {
			case svc.Interrogate:
				changes <- c.CurrentStatus
			case svc.Stop, svc.Shutdown:
				s.logger.Info("Windows service stopping")
				changes <- svc.Status{State: svc.StopPending}
				cancel()
				select {
				case <-done:
				case <-time.After(s.stopGrace):
					s.logger.Warn("Agent did not stop in time", zap.Duration("grace", s.stopGrace))
				}
				return false, 0
			default:
				s.logger.Warn("Unexpected service control request",
					zap.Uint32("cmd", uint32(c.Cmd)))
			}
		}
	}
}

// Install provides instructions for installing the service.
func Install(exePath string) error {
	return fmt.Errorf("use 'sc create %s binPath= \"%s\"' to install", Name, exePath)
}
