//go:build windows

package autostart

import (
	"fmt"
	"time"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

const (
	serviceName    = "SecAgent"
	serviceDisplay = "Security Telemetry Agent"
	serviceDesc    = "Collects host security events and spools them as telemetry messages"

	stopTimeout = 10 * time.Second
)

// windowsManager implements Manager for Windows using the Service Control Manager.
type windowsManager struct{}

// New returns a Manager that uses the Windows Service Control Manager.
func New() Manager {
	return &windowsManager{}
}

// ServiceName returns the Windows service name.
func (w *windowsManager) ServiceName() string { return serviceName }

// IsInstalled checks whether the service is registered in the SCM.
func (w *windowsManager) IsInstalled() (bool, error) {
	m, err := mgr.Connect()
	if err != nil {
		return false, fmt.Errorf("connecting to SCM: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(serviceName)
	if err != nil {
		return false, nil
	}
	s.Close()
	return true, nil
}

// Install creates the Windows service and starts it immediately.
func (w *windowsManager) Install(execPath string, args ...string) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connecting to SCM: %w", err)
	}
	defer m.Disconnect()

	s, err := m.CreateService(serviceName, execPath, mgr.Config{
		DisplayName: serviceDisplay,
		Description: serviceDesc,
		StartType:   mgr.StartAutomatic,
	}, args...)
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}
	defer s.Close()

	// Match the systemd unit: restart 10s after a crash, reset daily.
	restart := []mgr.RecoveryAction{{Type: mgr.ServiceRestart, Delay: 10 * time.Second}}
	if err := s.SetRecoveryActions(restart, uint32((24 * time.Hour).Seconds())); err != nil {
		return fmt.Errorf("setting recovery actions: %w", err)
	}

	if err := s.Start(); err != nil {
		return fmt.Errorf("starting service: %w", err)
	}
	return nil
}

// Uninstall stops and deletes the Windows service.
func (w *windowsManager) Uninstall() error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connecting to SCM: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(serviceName)
	if err != nil {
		return fmt.Errorf("opening service: %w", err)
	}
	defer s.Close()

	if status, err := s.Control(svc.Stop); err == nil {
		waitStopped(s, status, stopTimeout)
	}

	if err := s.Delete(); err != nil {
		return fmt.Errorf("deleting service: %w", err)
	}
	return nil
}

// waitStopped polls s until it reports Stopped or timeout elapses.
func waitStopped(s *mgr.Service, status svc.Status, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for status.State != svc.Stopped && time.Now().Before(deadline) {
		time.Sleep(300 * time.Millisecond)
		next, err := s.Query()
		if err != nil {
			return
		}
		status = next
	}
}
