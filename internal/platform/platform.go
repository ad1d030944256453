// Package platform provides the OS-specific facts gopsutil does not cover.
// Each supported OS implements the Platform interface.
package platform

import (
	"fmt"
	"os"
	"strings"
)

// Platform provides OS-specific functionality beyond what gopsutil offers.
type Platform interface {
	// MachineID returns a stable identifier of the host installation.
	MachineID() (string, error)

	// Name returns the platform name (windows, linux, generic).
	Name() string
}

// AgentID returns the machine id of p, falling back to the host name.
func AgentID(p Platform) (string, error) {
	id, err := p.MachineID()
	if err == nil && strings.TrimSpace(id) != "" {
		return strings.TrimSpace(id), nil
	}
	host, herr := os.Hostname()
	if herr != nil || host == "" {
		return "", fmt.Errorf("no machine id (%v) and no host name (%v)", err, herr)
	}
	return host, nil
}
