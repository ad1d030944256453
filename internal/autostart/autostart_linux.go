//go:build linux

package autostart

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

const (
	serviceName = "secagent"
	unitPath    = "/etc/systemd/system/secagent.service"
	dataDir     = "/var/lib/secagent"
)

// unitTemplate is the systemd unit file written during installation.
// The placeholder {exec} is replaced with the binary path and arguments.
const unitTemplate = `[Unit]
Description=Security Telemetry Agent
After=network-online.target
Wants=network-online.target

[Service]
Type=notify
ExecStart={exec}
WorkingDirectory=/var/lib/secagent
Restart=always
RestartSec=10
StandardOutput=journal
StandardError=journal
SyslogIdentifier=secagent

# Security hardening
NoNewPrivileges=true
ProtectSystem=strict
ProtectHome=true
ReadWritePaths=/var/lib/secagent
PrivateTmp=true

[Install]
WantedBy=multi-user.target
`

// linuxManager implements Manager for Linux using systemd.
type linuxManager struct {
	unitPath string
	run      func(name string, args ...string) error
}

// New returns a Manager that uses systemd for service management.
func New() Manager {
	return &linuxManager{
		unitPath: unitPath,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// ServiceName returns the systemd service name.
func (l *linuxManager) ServiceName() string { return serviceName }

func renderUnit(execPath string, args []string) string {
	cmd := quoteArgs(append([]string{execPath}, args...))
	return strings.ReplaceAll(unitTemplate, "{exec}", cmd)
}

// IsInstalled checks whether the systemd unit file exists.
func (l *linuxManager) IsInstalled() (bool, error) {
	_, err := os.Stat(l.unitPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking unit file: %w", err)
	}
	return true, nil
}

// Install writes the systemd unit file, reloads the daemon, enables and starts the service.
func (l *linuxManager) Install(execPath string, args ...string) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(l.unitPath, []byte(renderUnit(execPath, args)), 0644); err != nil {
		return fmt.Errorf("writing unit file: %w", err)
	}

	commands := [][]string{
		{"systemctl", "daemon-reload"},
		{"systemctl", "enable", serviceName},
		{"systemctl", "start", serviceName},
	}
	for _, c := range commands {
		if err := l.run(c[0], c[1:]...); err != nil {
			return fmt.Errorf("running %s: %w", strings.Join(c, " "), err)
		}
	}
	return nil
}

// Uninstall stops, disables, and removes the systemd service.
func (l *linuxManager) Uninstall() error {
	// Stop and disable fail when the unit is already inactive.
	_ = l.run("systemctl", "stop", serviceName)
	_ = l.run("systemctl", "disable", serviceName)

	if err := os.Remove(l.unitPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing unit file: %w", err)
	}

	_ = l.run("systemctl", "daemon-reload")
	return nil
}
