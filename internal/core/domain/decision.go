package domain

// RouteOptions tune a single routing call.
type RouteOptions struct {
	// MaxBudget filters candidates to CostFactor <= MaxBudget when > 0.
	MaxBudget float64
	// Urgent biases selection toward the fastest hardware-compatible
	// candidate.
	Urgent bool
	// Priority carried through to the scheduler when the decision queues.
	// Zero means unset; the router substitutes its default.
	Priority int
}

// RoutingDecision is the transient outcome of one routing call. It is
// returned to the caller and never persisted.
type RoutingDecision struct {
	AgentID             string          `json:"agent_id"`
	Model               *ModelProfile   `json:"model"`
	ConsideredChain     []*ModelProfile `json:"considered_chain"`
	Tier                HardwareTier    `json:"tier"`
	Resolution          ResolutionKind  `json:"resolution"`
	UseSpeculative      bool            `json:"use_speculative"`
	EstimatedTokensPerS float64         `json:"estimated_tokens_per_sec"`
	EstimatedCost       float64         `json:"estimated_cost"`

	// Queued is true when the agent's concurrency slots were exhausted;
	// QueuePosition is the request's rank in the scheduler (0 = next).
	Queued        bool   `json:"queued"`
	QueuePosition int    `json:"queue_position,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
}
