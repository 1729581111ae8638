package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Host != "localhost" || cfg.Server.Port != 19843 {
		t.Errorf("unexpected server defaults: %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Server.GetAddress() != "localhost:19843" {
		t.Errorf("unexpected address: %s", cfg.Server.GetAddress())
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Theme != "default" {
		t.Errorf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.Routing.EscalationThreshold != 0.7 {
		t.Errorf("unexpected escalation threshold: %v", cfg.Routing.EscalationThreshold)
	}
	if !cfg.Routing.SpeculativeEnabled || !cfg.Routing.EscalationEnabled {
		t.Error("routing features default on")
	}
	if cfg.Scheduler.MaxSize != 100 || cfg.Scheduler.MaxConcurrent != 4 {
		t.Errorf("unexpected scheduler defaults: %+v", cfg.Scheduler)
	}
	if cfg.Scheduler.AgingThreshold != 30*time.Second || cfg.Scheduler.AgingIncrement != 1 {
		t.Errorf("unexpected aging defaults: %+v", cfg.Scheduler)
	}
	if cfg.Speculative.MaxDraftTokens != 8 || cfg.Speculative.TargetAcceptanceRate != 0.68 {
		t.Errorf("unexpected speculative defaults: %+v", cfg.Speculative)
	}
	if cfg.Metrics.MaxHistory != 1000 {
		t.Errorf("unexpected metrics history: %d", cfg.Metrics.MaxHistory)
	}
	if cfg.Hardware.ForcedTier != "" {
		t.Errorf("hardware tier must not be forced by default, got %q", cfg.Hardware.ForcedTier)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero threshold", func(c *Config) { c.Routing.EscalationThreshold = 0 }, "escalation_threshold"},
		{"threshold above one", func(c *Config) { c.Routing.EscalationThreshold = 1.5 }, "escalation_threshold"},
		{"zero queue size", func(c *Config) { c.Scheduler.MaxSize = 0 }, "max_size"},
		{"zero concurrency", func(c *Config) { c.Scheduler.MaxConcurrent = 0 }, "max_concurrent"},
		{"zero draft tokens", func(c *Config) { c.Speculative.MaxDraftTokens = 0 }, "max_draft_tokens"},
		{"zero metric history", func(c *Config) { c.Metrics.MaxHistory = 0 }, "max_history"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q should mention %q", err, tc.wantErr)
			}
		})
	}

	// Boundary values that must pass.
	cfg := DefaultConfig()
	cfg.Routing.EscalationThreshold = 1.0
	cfg.Scheduler.MaxSize = 1
	cfg.Scheduler.MaxConcurrent = 1
	cfg.Speculative.MaxDraftTokens = 1
	cfg.Metrics.MaxHistory = 1
	if err := cfg.Validate(); err != nil {
		t.Errorf("boundary values must validate, got %v", err)
	}
}
