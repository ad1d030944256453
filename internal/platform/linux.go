//go:build linux

package platform

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// LinuxPlatform reads the systemd / D-Bus machine id.
type LinuxPlatform struct {
	paths []string
}

// New creates a new Linux platform instance.
func New() Platform {
	return &LinuxPlatform{paths: []string{"/etc/machine-id", "/var/lib/dbus/machine-id"}}
}

// Name returns the platform identifier.
func (p *LinuxPlatform) Name() string { return "linux" }

// MachineID returns the first non-empty machine-id file.
func (p *LinuxPlatform) MachineID() (string, error) {
	for _, path := range p.paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	}
	return "", errors.New("machine id not found")
}
