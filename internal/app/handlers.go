package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mereck/gantry/internal/core/domain"
	"github.com/mereck/gantry/internal/deploy"
	"github.com/mereck/gantry/internal/version"
	"github.com/mereck/gantry/pkg/format"
)

type routeRequest struct {
	AgentID    string  `json:"agent_id"`
	Prompt     string  `json:"prompt"`
	Confidence float64 `json:"confidence"`
	MaxBudget  float64 `json:"max_budget,omitempty"`
	Urgent     bool    `json:"urgent,omitempty"`
	Priority   int     `json:"priority,omitempty"`
}

type inferRequest struct {
	AgentID   string `json:"agent_id"`
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens,omitempty"`
	Priority  int    `json:"priority,omitempty"`
	TimeoutMs int64  `json:"timeout_ms,omitempty"`
}

// routeHandler resolves an agent to a model without executing anything.
func (a *Application) routeHandler(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	decision, err := a.router.Route(req.AgentID, req.Prompt, req.Confidence, &domain.RouteOptions{
		MaxBudget: req.MaxBudget,
		Urgent:    req.Urgent,
		Priority:  req.Priority,
	})
	if err != nil {
		writeRoutingError(w, err)
		return
	}

	a.busWorkers.PublishAsync(*decision)
	writeJSON(w, http.StatusOK, decision)
}

// releaseHandler frees a concurrency slot taken by an earlier routing call.
func (a *Application) releaseHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AgentID string `json:"agent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.AgentID == "" {
		writeError(w, http.StatusBadRequest, "agent_id is required")
		return
	}

	a.router.ReleaseSlot(req.AgentID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "released", "agent_id": req.AgentID})
}

// inferHandler runs a request through the scheduler pool and blocks until
// it completes or the client goes away.
func (a *Application) inferHandler(w http.ResponseWriter, r *http.Request) {
	var req inferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.AgentID == "" || req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "agent_id and prompt are required")
		return
	}

	work := &domain.InferenceRequest{
		AgentID:   req.AgentID,
		Prompt:    req.Prompt,
		MaxTokens: req.MaxTokens,
		Priority:  req.Priority,
		Timeout:   time.Duration(req.TimeoutMs) * time.Millisecond,
	}

	resultCh := a.pool.Submit(work)

	select {
	case <-r.Context().Done():
		a.queue.Remove(work.ID)
		return
	case result := <-resultCh:
		if result.Err != nil {
			writeRoutingError(w, result.Err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"request_id": work.ID,
			"agent_id":   work.AgentID,
			"output":     result.Output,
		})
	}
}

func (a *Application) hardwareHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.hardware.Detect())
}

func (a *Application) modelsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.catalog.List())
}

func (a *Application) agentsHandler(w http.ResponseWriter, r *http.Request) {
	ids := a.catalog.AgentIDs()
	mappings := make([]*domain.AgentModelMapping, 0, len(ids))
	for _, id := range ids {
		if mapping, ok := a.catalog.GetForAgent(id); ok {
			mappings = append(mappings, mapping)
		}
	}
	writeJSON(w, http.StatusOK, mappings)
}

// deployHandler renders the agent's deployment config as plain text.
func (a *Application) deployHandler(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent")
	if agentID == "" {
		writeError(w, http.StatusBadRequest, "agent query parameter is required")
		return
	}
	mapping, ok := a.catalog.GetForAgent(agentID)
	if !ok {
		writeRoutingError(w, &domain.AgentNotFoundError{AgentID: agentID})
		return
	}

	temperature, _ := strconv.ParseFloat(r.URL.Query().Get("temperature"), 64)
	maxTokens, _ := strconv.Atoi(r.URL.Query().Get("max_tokens"))

	rendered, err := deploy.RenderAgentConfig(deploy.AgentConfig{
		Mapping:     mapping,
		Tier:        a.hardware.Detect(),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set(ContentTypeHeader, ContentTypeText)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(rendered))
}

// metricsHandler returns the per-agent summary when ?agent= is given and
// the global summary otherwise.
func (a *Application) metricsHandler(w http.ResponseWriter, r *http.Request) {
	if agentID := r.URL.Query().Get("agent"); agentID != "" {
		writeJSON(w, http.StatusOK, a.tracker.Summary(agentID))
		return
	}
	writeJSON(w, http.StatusOK, a.tracker.GlobalSummary())
}

func (a *Application) queueHandler(w http.ResponseWriter, r *http.Request) {
	a.overflow.PruneExpired()
	writeJSON(w, http.StatusOK, map[string]any{
		"queue":          a.queue.GetStats(),
		"overflow":       a.overflow.GetStats(),
		"fairness_score": a.pool.FairnessScore(),
	})
}

func (a *Application) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (a *Application) statusHandler(w http.ResponseWriter, r *http.Request) {
	backendStatus := a.backend.CheckStatus(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"version":    version.Version,
		"uptime":     format.Duration(time.Since(a.startTime)),
		"tier":       a.hardware.Detect().ID,
		"queue_size": a.queue.Size(),
		"backend":    backendStatus,
	})
}

func (a *Application) versionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    version.Name,
		"version": version.Version,
		"commit":  version.Commit,
		"built":   version.Date,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set(ContentTypeHeader, ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeRoutingError maps core errors onto HTTP statuses.
func writeRoutingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAgentNotFound), errors.Is(err, domain.ErrModelNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, domain.ErrRequestTimeout):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, domain.ErrQueueCleared):
		writeError(w, http.StatusConflict, err.Error())
	default:
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
