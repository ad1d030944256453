//go:build !linux && !windows

package platform

import (
	"context"

	"github.com/shirou/gopsutil/v3/host"
)

// GenericPlatform asks gopsutil for the host id.
type GenericPlatform struct{}

// New creates a platform instance for the remaining operating systems.
func New() Platform {
	return &GenericPlatform{}
}

// Name returns the platform identifier.
func (p *GenericPlatform) Name() string { return "generic" }

// MachineID returns the host UUID reported by the OS.
func (p *GenericPlatform) MachineID() (string, error) {
	return host.HostIDWithContext(context.Background())
}
