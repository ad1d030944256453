// Package models defines the telemetry value objects produced by collectors
// and batched by the core: Events, Messages and the payload schemas they
// carry. Their JSON layout is the agent's wire format.
package models

import (
	"bytes"
	"encoding/json"
)

// Event names, one per collector kind.
const (
	NameSystemInformation = "SystemInformation"
	NameListeningPorts    = "ListeningPorts"
	NameConnectionCreate  = "ConnectionCreate"
	NameHeartbeat         = "Heartbeat"
)

// Categories describe how an event was produced.
const (
	CategoryPeriodic   = "Periodic"
	CategoryAggregated = "Aggregated"
	CategoryTriggered  = "Triggered"
)

// Event types.
const (
	EventTypeSecurity    = "Security"
	EventTypeOperational = "Operational"
	EventTypeDiagnostic  = "Diagnostic"
)

// PayloadSchemaVersion is the schema version of every payload defined here.
const PayloadSchemaVersion = "1.0"

// Connection directions.
const (
	DirectionIn  = "In"
	DirectionOut = "Out"
)

// SystemInformationPayload describes the host the agent runs on.
type SystemInformationPayload struct {
	OSName                  string        `json:"OSName"`
	OSVersion               string        `json:"OSVersion"`
	OsArchitecture          string        `json:"OsArchitecture"`
	HostName                string        `json:"HostName"`
	TotalPhysicalMemoryInKB uint64        `json:"TotalPhysicalMemoryInKB"`
	FreePhysicalMemoryInKB  uint64        `json:"FreePhysicalMemoryInKB"`
	ExtraDetails            *ExtraDetails `json:"ExtraDetails,omitempty"`
}

// ListeningPortsPayload describes one socket accepting connections.
type ListeningPortsPayload struct {
	Protocol      string        `json:"Protocol"`
	LocalAddress  string        `json:"LocalAddress"`
	LocalPort     string        `json:"LocalPort"`
	RemoteAddress string        `json:"RemoteAddress"`
	RemotePort    string        `json:"RemotePort"`
	ExtraDetails  *ExtraDetails `json:"ExtraDetails,omitempty"`
}

// ConnectionCreatePayload describes a newly observed connection.
type ConnectionCreatePayload struct {
	LocalAddress  string `json:"LocalAddress"`
	RemoteAddress string `json:"RemoteAddress"`
	Protocol      string `json:"Protocol"`
	LocalPort     string `json:"LocalPort"`
	RemotePort    string `json:"RemotePort"`
	Direction     string `json:"Direction"`
}

// Pair is one ExtraDetails entry.
type Pair struct {
	Key   string
	Value string
}

// ExtraDetails is a bounded string map that keeps insertion order when
// serialized as a JSON object.
type ExtraDetails struct {
	pairs []Pair
}

// NewExtraDetails creates an empty map holding at most max entries.
func NewExtraDetails(max int) *ExtraDetails {
	if max < 0 {
		max = 0
	}
	return &ExtraDetails{pairs: make([]Pair, 0, max)}
}

// Add appends an entry. It returns false when the map is full.
func (d *ExtraDetails) Add(key, value string) bool {
	if len(d.pairs) == cap(d.pairs) {
		return false
	}
	d.pairs = append(d.pairs, Pair{Key: key, Value: value})
	return true
}

// Get returns the value stored under key.
func (d *ExtraDetails) Get(key string) (string, bool) {
	for _, p := range d.pairs {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

func (d *ExtraDetails) Len() int      { return len(d.pairs) }
func (d *ExtraDetails) Cap() int      { return cap(d.pairs) }
func (d *ExtraDetails) Pairs() []Pair { return d.pairs }
func (d *ExtraDetails) Reset()        { d.pairs = d.pairs[:0] }

// MarshalJSON encodes the entries as an object in insertion order.
func (d *ExtraDetails) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range d.pairs {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, p.Key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSON(&buf, p.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// writeJSON encodes v without HTML escaping and without the encoder's
// trailing newline.
func writeJSON(buf *bytes.Buffer, v any) error {
	start := buf.Len()
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		buf.Truncate(start)
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}
