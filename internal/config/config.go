// Package config handles configuration loading from YAML files and environment variables.
// Configuration precedence: CLI flags > environment variables > config file > embedded > defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Guliveer/vitalis/secagent/internal/collector"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SEC_AGENT_"

var valid = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(f reflect.Value) interface{} {
		return f.Interface().(Duration).Duration
	}, Duration{})
	return v
}

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "15s", "30s", "1m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds all agent configuration.
type Config struct {
	Agent      AgentConfig      `yaml:"agent"`
	Collection CollectionConfig `yaml:"collection"`
	Limits     LimitsConfig     `yaml:"limits"`
	Collectors CollectorsConfig `yaml:"collectors"`
	Outbox     OutboxConfig     `yaml:"outbox"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// AgentConfig identifies the agent in every message. An empty ID is filled
// with the machine id at startup.
type AgentConfig struct {
	ID      string `yaml:"id"`
	Version string `yaml:"version" validate:"required"`
}

// CollectionConfig holds the tick period and the interval of each priority.
type CollectionConfig struct {
	Tick   Duration `yaml:"tick" validate:"gt=0"`
	High   Duration `yaml:"high" validate:"gt=0"`
	Medium Duration `yaml:"medium" validate:"gt=0"`
	Low    Duration `yaml:"low" validate:"gt=0"`
}

// Intervals returns the collection intervals indexed by priority.
func (c CollectionConfig) Intervals() [collector.NumPriorities]time.Duration {
	return [collector.NumPriorities]time.Duration{
		collector.PriorityHigh:   c.High.Duration,
		collector.PriorityMedium: c.Medium.Duration,
		collector.PriorityLow:    c.Low.Duration,
	}
}

// LimitsConfig sizes every pool the agent allocates at startup.
type LimitsConfig struct {
	MaxCollectors      int `yaml:"max_collectors" validate:"gte=1"`
	QueueCapacity      int `yaml:"queue_capacity" validate:"gte=1"`
	EventPoolSize      int `yaml:"event_pool_size" validate:"gte=1"`
	EventMaxSize       int `yaml:"event_max_size" validate:"gte=256"`
	MessagePoolSize    int `yaml:"message_pool_size" validate:"gte=1"`
	MessageMaxSize     int `yaml:"message_max_size" validate:"gtfield=EventMaxSize"`
	MessagesPerDrain   int `yaml:"messages_per_drain" validate:"gte=1"`
	MaxMessagesPerCall int `yaml:"max_messages_per_call" validate:"gte=0"`
	NotifierEntries    int `yaml:"notifier_entries" validate:"gte=1"`
	ExtraDetails       int `yaml:"extra_details" validate:"gte=0"`
	TrackedConnections int `yaml:"tracked_connections" validate:"gte=1"`
}

// SourceConfig enables a collector and assigns its priority.
type SourceConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Priority string `yaml:"priority" validate:"oneof=high medium low"`
}

// CollectorsConfig holds one entry per built-in collector.
type CollectorsConfig struct {
	Heartbeat         SourceConfig `yaml:"heartbeat"`
	SystemInformation SourceConfig `yaml:"system_information"`
	ListeningPorts    SourceConfig `yaml:"listening_ports"`
	ConnectionCreate  SourceConfig `yaml:"connection_create"`
}

// OutboxConfig holds the local spool for drained messages.
type OutboxConfig struct {
	Path     string   `yaml:"path" validate:"required"`
	Rotation Duration `yaml:"rotation" validate:"gt=0"`
	MaxAge   Duration `yaml:"max_age" validate:"gte=0"`
}

// LoggingConfig holds logging settings. An empty File disables the file
// output.
type LoggingConfig struct {
	Level    string   `yaml:"level" validate:"oneof=debug info warn error"`
	File     string   `yaml:"file"`
	Rotation Duration `yaml:"rotation" validate:"gt=0"`
	MaxAge   Duration `yaml:"max_age" validate:"gte=0"`
}

// MetricsConfig holds the optional Prometheus listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Version: "1",
		},
		Collection: CollectionConfig{
			Tick:   Duration{1 * time.Second},
			High:   Duration{10 * time.Second},
			Medium: Duration{1 * time.Minute},
			Low:    Duration{5 * time.Minute},
		},
		Limits: LimitsConfig{
			MaxCollectors:      8,
			QueueCapacity:      64,
			EventPoolSize:      256,
			EventMaxSize:       4096,
			MessagePoolSize:    8,
			MessageMaxSize:     64 * 1024,
			MessagesPerDrain:   8,
			MaxMessagesPerCall: 0,
			NotifierEntries:    8,
			ExtraDetails:       16,
			TrackedConnections: 1024,
		},
		Collectors: CollectorsConfig{
			Heartbeat:         SourceConfig{Enabled: true, Priority: "high"},
			SystemInformation: SourceConfig{Enabled: true, Priority: "low"},
			ListeningPorts:    SourceConfig{Enabled: true, Priority: "medium"},
			ConnectionCreate:  SourceConfig{Enabled: true, Priority: "high"},
		},
		Outbox: OutboxConfig{
			Path:     "./outbox/messages.jsonl",
			Rotation: Duration{1 * time.Hour},
			MaxAge:   Duration{24 * time.Hour},
		},
		Logging: LoggingConfig{
			Level:    "info",
			File:     "./secagent.log",
			Rotation: Duration{24 * time.Hour},
			MaxAge:   Duration{7 * 24 * time.Hour},
		},
	}
}

// LoadFromBytes parses YAML configuration from a byte slice and merges with defaults.
// Environment variables take precedence over values from the byte slice.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config data: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads configuration from a YAML file and merges with defaults.
// If path is empty or the file does not exist, only defaults and environment
// variables are used.
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromBytes(nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		return LoadFromBytes(nil)
	}

	return LoadFromBytes(data)
}

// CLIOverrides holds values from command-line flags.
// Empty strings are treated as "not set" and skipped.
type CLIOverrides struct {
	AgentID  string
	LogLevel string
}

// Locate searches standard config file paths and returns the first one found.
// Returns empty string if no config file exists.
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadLayered loads configuration with the full precedence chain:
// CLI flags > env vars > external YAML file > embedded bytes > defaults.
//
// An optional configPath argument controls external-file discovery:
//   - omitted        → auto-discover via Locate()
//   - explicit value  → use that path ("" means no external file)
func LoadLayered(cli CLIOverrides, embedded []byte, configPath ...string) (*Config, error) {
	cfg := DefaultConfig()

	if len(embedded) > 0 {
		if err := yaml.Unmarshal(embedded, cfg); err != nil {
			return nil, fmt.Errorf("parsing embedded config: %w", err)
		}
	}

	var filePath string
	if len(configPath) > 0 {
		filePath = configPath[0]
	} else {
		filePath = Locate()
	}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", filePath, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("reading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if cli.AgentID != "" {
		cfg.Agent.ID = cli.AgentID
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}

	return cfg, nil
}

// WriteConfig serializes the config to a YAML file at the given path.
// Creates parent directories if needed.
func WriteConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0640)
}

// applyEnvOverrides applies SEC_AGENT_* environment variables.
func applyEnvOverrides(cfg *Config) error {
	strs := []struct {
		name string
		dst  *string
	}{
		{"ID", &cfg.Agent.ID},
		{"VERSION", &cfg.Agent.Version},
		{"LOG_LEVEL", &cfg.Logging.Level},
		{"LOG_FILE", &cfg.Logging.File},
		{"OUTBOX_PATH", &cfg.Outbox.Path},
		{"METRICS_ADDR", &cfg.Metrics.Addr},
	}
	for _, s := range strs {
		if v := os.Getenv(EnvPrefix + s.name); v != "" {
			*s.dst = v
		}
	}

	if v := os.Getenv(EnvPrefix + "TICK"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTICK: %w", EnvPrefix, err)
		}
		cfg.Collection.Tick = Duration{d}
	}
	if v := os.Getenv(EnvPrefix + "MAX_MESSAGES_PER_CALL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sMAX_MESSAGES_PER_CALL: %w", EnvPrefix, err)
		}
		cfg.Limits.MaxMessagesPerCall = n
	}
	return nil
}

// Validate checks the configuration against its field constraints.
func (c *Config) Validate() error {
	if err := valid.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Sources lists the collector entries in registration order.
func (c *CollectorsConfig) Sources() []NamedSource {
	return []NamedSource{
		{collector.TypeHeartbeat, c.Heartbeat},
		{collector.TypeConnectionCreate, c.ConnectionCreate},
		{collector.TypeListeningPorts, c.ListeningPorts},
		{collector.TypeSystemInformation, c.SystemInformation},
	}
}

// NamedSource pairs a collector type with its configuration.
type NamedSource struct {
	Type collector.Type
	SourceConfig
}
