package collector

import (
	"fmt"
	"strings"
)

// Priority is a collection tier. Lower values drain first.
type Priority int

const (
	PriorityHigh Priority = iota
	PriorityMedium
	PriorityLow
)

// NumPriorities is the number of tiers.
const NumPriorities = 3

var priorityNames = [NumPriorities]string{"high", "medium", "low"}

func (p Priority) Valid() bool { return p >= 0 && int(p) < NumPriorities }

func (p Priority) String() string {
	if !p.Valid() {
		return fmt.Sprintf("priority(%d)", int(p))
	}
	return priorityNames[p]
}

// ParsePriority accepts "high", "medium" or "low", case-insensitively.
func ParsePriority(s string) (Priority, error) {
	for i, name := range priorityNames {
		if strings.EqualFold(s, name) {
			return Priority(i), nil
		}
	}
	return 0, fmt.Errorf("unknown priority %q", s)
}

// Type identifies the kind of source behind a collector.
type Type int

const (
	TypeSystemInformation Type = iota
	TypeConnectionCreate
	TypeListeningPorts
	TypeHeartbeat
	TypeTest
)

// NumTypes is the number of collector kinds.
const NumTypes = 5

var typeNames = [NumTypes]string{
	"SystemInformation",
	"ConnectionCreate",
	"ListeningPorts",
	"Heartbeat",
	"Test",
}

func (t Type) Valid() bool { return t >= 0 && int(t) < NumTypes }

// String returns the collector name registered for the type.
func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("type(%d)", int(t))
	}
	return typeNames[t]
}

// Announcement is published on the notifier's system topic for every
// registered collector.
type Announcement struct {
	Type     Type
	Priority Priority
}
