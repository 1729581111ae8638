package domain

import "time"

// InferenceRequest is a unit of inference work admitted to the scheduler.
// Priority 0 means unset and is replaced with the queue default at
// admission; afterwards it is mutated only by the aging mechanism.
// Everything else is fixed at admission.
type InferenceRequest struct {
	ID          string        `json:"id"`
	AgentID     string        `json:"agent_id"`
	Prompt      string        `json:"prompt"`
	Priority    int           `json:"priority"`
	EnqueuedAt  time.Time     `json:"enqueued_at"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Timeout     time.Duration `json:"timeout"`
}

// Age returns how long the request has been waiting.
func (r *InferenceRequest) Age(now time.Time) time.Duration {
	return now.Sub(r.EnqueuedAt)
}

// Expired reports whether the request outlived its timeout while queued.
// A zero timeout never expires.
func (r *InferenceRequest) Expired(now time.Time) bool {
	return r.Timeout > 0 && r.Age(now) > r.Timeout
}
