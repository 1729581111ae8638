package domain

import "time"

// InferenceMetricSample is one completed-inference measurement.
type InferenceMetricSample struct {
	Timestamp      time.Time `json:"timestamp"`
	AgentID        string    `json:"agent_id"`
	Model          string    `json:"model"`
	DurationMs     int64     `json:"duration_ms"`
	TokensIn       int       `json:"tokens_in"`
	TokensOut      int       `json:"tokens_out"`
	Confidence     float64   `json:"confidence"`
	WasEscalated   bool      `json:"was_escalated"`
	EnergyWh       float64   `json:"energy_wh"`
	AcceptanceRate float64   `json:"acceptance_rate,omitempty"`
	HasAcceptance  bool      `json:"-"`
}

// AgentSummary aggregates samples for one agent. An agent with no samples
// yields the zero value, never an error.
type AgentSummary struct {
	AgentID           string         `json:"agent_id"`
	TotalInferences   int            `json:"total_inferences"`
	AvgDurationMs     float64        `json:"avg_duration_ms"`
	AvgConfidence     float64        `json:"avg_confidence"`
	EscalationRate    float64        `json:"escalation_rate"`
	P50DurationMs     int64          `json:"p50_duration_ms"`
	P95DurationMs     int64          `json:"p95_duration_ms"`
	P99DurationMs     int64          `json:"p99_duration_ms"`
	ModelUsage        map[string]int `json:"model_usage"`
	AvgAcceptanceRate float64        `json:"avg_acceptance_rate,omitempty"`
}

// ModelUsage ranks one model by how often it was used.
type ModelUsage struct {
	Model string `json:"model"`
	Count int    `json:"count"`
}

// GlobalSummary aggregates samples across all agents.
type GlobalSummary struct {
	TotalInferences int                     `json:"total_inferences"`
	AvgConfidence   float64                 `json:"avg_confidence"`
	EscalationRate  float64                 `json:"escalation_rate"`
	Agents          map[string]AgentSummary `json:"agents"`
	TopModels       []ModelUsage            `json:"top_models"`
}
