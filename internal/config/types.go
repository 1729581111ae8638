package config

import (
	"fmt"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Logging     LoggingConfig     `yaml:"logging" mapstructure:"logging"`
	Hardware    HardwareConfig    `yaml:"hardware" mapstructure:"hardware"`
	Routing     RoutingConfig     `yaml:"routing" mapstructure:"routing"`
	Scheduler   SchedulerConfig   `yaml:"scheduler" mapstructure:"scheduler"`
	Speculative SpeculativeConfig `yaml:"speculative" mapstructure:"speculative"`
	Metrics     MetricsConfig     `yaml:"metrics" mapstructure:"metrics"`
	Catalog     CatalogConfig     `yaml:"catalog" mapstructure:"catalog"`
	Backend     BackendConfig     `yaml:"backend" mapstructure:"backend"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// GetAddress returns the server address in host:port format
func (s *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Theme      string `yaml:"theme" mapstructure:"theme"`
	LogDir     string `yaml:"log_dir" mapstructure:"log_dir"`
	FileOutput bool   `yaml:"file_output" mapstructure:"file_output"`
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`
}

// HardwareConfig holds hardware detection configuration
type HardwareConfig struct {
	// ForcedTier pins the tier instead of sensing (testing/ops override).
	// Empty means sense the real host.
	ForcedTier string `yaml:"forced_tier" mapstructure:"forced_tier"`
}

// RoutingConfig holds router policy knobs
type RoutingConfig struct {
	MaxFallbackDepth    int     `yaml:"max_fallback_depth" mapstructure:"max_fallback_depth"`
	EscalationEnabled   bool    `yaml:"escalation_enabled" mapstructure:"escalation_enabled"`
	EscalationThreshold float64 `yaml:"escalation_threshold" mapstructure:"escalation_threshold"`
	SpeculativeEnabled  bool    `yaml:"speculative_enabled" mapstructure:"speculative_enabled"`
	DefaultPriority     int     `yaml:"default_priority" mapstructure:"default_priority"`
	// QueuedTTL is how long a slot-exhausted routing request may sit in
	// the overflow queue before being discarded.
	QueuedTTL time.Duration `yaml:"queued_ttl" mapstructure:"queued_ttl"`
}

// SchedulerConfig holds queue and worker pool configuration
type SchedulerConfig struct {
	MaxSize         int           `yaml:"max_size" mapstructure:"max_size"`
	MaxConcurrent   int           `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	DefaultPriority int           `yaml:"default_priority" mapstructure:"default_priority"`
	AgingEnabled    bool          `yaml:"aging_enabled" mapstructure:"aging_enabled"`
	AgingThreshold  time.Duration `yaml:"aging_threshold" mapstructure:"aging_threshold"`
	AgingIncrement  int           `yaml:"aging_increment" mapstructure:"aging_increment"`
	ProcessingRate  float64       `yaml:"processing_rate" mapstructure:"processing_rate"`
}

// SpeculativeConfig holds draft/verify decoding configuration
type SpeculativeConfig struct {
	MaxDraftTokens       int     `yaml:"max_draft_tokens" mapstructure:"max_draft_tokens"`
	AdaptiveDraftTokens  bool    `yaml:"adaptive_draft_tokens" mapstructure:"adaptive_draft_tokens"`
	TargetAcceptanceRate float64 `yaml:"target_acceptance_rate" mapstructure:"target_acceptance_rate"`
	MinSpeedup           float64 `yaml:"min_speedup" mapstructure:"min_speedup"`
	MinSamples           int     `yaml:"min_samples" mapstructure:"min_samples"`
}

// MetricsConfig holds metric history configuration
type MetricsConfig struct {
	MaxHistory int `yaml:"max_history" mapstructure:"max_history"`
}

// CatalogConfig holds catalog overrides file configuration
type CatalogConfig struct {
	// File is an optional yaml overrides file merged over the defaults.
	File string `yaml:"file" mapstructure:"file"`
	// Watch hot-reloads the file on change.
	Watch bool `yaml:"watch" mapstructure:"watch"`
}

// BackendConfig holds local inference backend probe configuration
type BackendConfig struct {
	ProbeEnabled bool          `yaml:"probe_enabled" mapstructure:"probe_enabled"`
	WaitForReady time.Duration `yaml:"wait_for_ready" mapstructure:"wait_for_ready"`
}
