package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultPort = 19843
	DefaultHost = "localhost"
)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Theme:      "default",
			LogDir:     "./logs",
			FileOutput: true,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
		},
		Hardware: HardwareConfig{
			ForcedTier: "",
		},
		Routing: RoutingConfig{
			MaxFallbackDepth:    3,
			EscalationEnabled:   true,
			EscalationThreshold: 0.7,
			SpeculativeEnabled:  true,
			DefaultPriority:     5,
			QueuedTTL:           60 * time.Second,
		},
		Scheduler: SchedulerConfig{
			MaxSize:         100,
			MaxConcurrent:   4,
			DefaultPriority: 5,
			AgingEnabled:    true,
			AgingThreshold:  30 * time.Second,
			AgingIncrement:  1,
		},
		Speculative: SpeculativeConfig{
			MaxDraftTokens:       8,
			AdaptiveDraftTokens:  true,
			TargetAcceptanceRate: 0.68,
			MinSpeedup:           1.2,
			MinSamples:           5,
		},
		Metrics: MetricsConfig{
			MaxHistory: 1000,
		},
		Catalog: CatalogConfig{
			File:  "",
			Watch: false,
		},
		Backend: BackendConfig{
			ProbeEnabled: true,
			WaitForReady: 0,
		},
	}
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	config := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("GANTRY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Try to read config file
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, check if we have GANTRY_CONFIG_FILE env var
		if configFile := os.Getenv("GANTRY_CONFIG_FILE"); configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
			}
		}
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects configurations the components would misbehave on.
func (c *Config) Validate() error {
	if c.Routing.EscalationThreshold <= 0 || c.Routing.EscalationThreshold > 1 {
		return fmt.Errorf("routing.escalation_threshold must be in (0,1], got %v", c.Routing.EscalationThreshold)
	}
	if c.Scheduler.MaxSize < 1 {
		return fmt.Errorf("scheduler.max_size must be >= 1, got %d", c.Scheduler.MaxSize)
	}
	if c.Scheduler.MaxConcurrent < 1 {
		return fmt.Errorf("scheduler.max_concurrent must be >= 1, got %d", c.Scheduler.MaxConcurrent)
	}
	if c.Speculative.MaxDraftTokens < 1 {
		return fmt.Errorf("speculative.max_draft_tokens must be >= 1, got %d", c.Speculative.MaxDraftTokens)
	}
	if c.Metrics.MaxHistory < 1 {
		return fmt.Errorf("metrics.max_history must be >= 1, got %d", c.Metrics.MaxHistory)
	}
	return nil
}
