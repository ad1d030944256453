// Package autostart installs the agent as a boot-time OS service.
package autostart

import (
	"errors"
	"strings"
)

// ErrUnsupported is returned on platforms without a service manager backend.
var ErrUnsupported = errors.New("autostart not supported on this platform")

// Manager provides platform-specific autostart installation.
type Manager interface {
	IsInstalled() (bool, error)
	// Install registers execPath, started with args, and starts it.
	Install(execPath string, args ...string) error
	Uninstall() error
	ServiceName() string
}

// quoteArgs joins args for a command line, quoting those with spaces.
func quoteArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if strings.ContainsAny(a, " \t") {
			a = `"` + a + `"`
		}
		quoted[i] = a
	}
	return strings.Join(quoted, " ")
}
