package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mereck/gantry/internal/adapter/catalog"
	"github.com/mereck/gantry/internal/adapter/hardware"
	"github.com/mereck/gantry/internal/adapter/scheduler"
	"github.com/mereck/gantry/internal/adapter/stats"
	"github.com/mereck/gantry/internal/config"
	"github.com/mereck/gantry/internal/core/domain"
	"github.com/mereck/gantry/internal/logger"
	"github.com/mereck/gantry/internal/router"
	"github.com/mereck/gantry/pkg/eventbus"
)

// newTestApplication wires a handler-testable application around the
// default catalog and a stubbed inference handler. No sockets are opened.
func newTestApplication(t *testing.T) *Application {
	t.Helper()

	log := logger.NewPlainStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	cat := catalog.NewMemoryCatalog().WithDefaults()
	profiler := hardware.NewProfiler(hardware.SensorForTier(domain.TierHigh), nil)
	tracker := stats.NewTracker(100)
	queue := scheduler.NewPriorityQueue(scheduler.QueueConfig{MaxSize: 10, DefaultPriority: 5})
	overflow := scheduler.NewPriorityQueue(scheduler.QueueConfig{MaxSize: 10, DefaultPriority: 5})

	a := &Application{
		startTime: time.Now(),
		config:    config.DefaultConfig(),
		logger:    log,
		registry:  NewRouteRegistry(log),
		catalog:   cat,
		hardware:  profiler,
		tracker:   tracker,
		queue:     queue,
		overflow:  overflow,
		router:    router.New(router.DefaultRouterConfig(), cat, profiler, tracker, overflow, nil),
		bus:       eventbus.New[domain.RoutingDecision](),
		errCh:     make(chan error, 1),
	}
	a.busWorkers = eventbus.NewWorkerPool(a.bus, 1, 16)
	a.pool = scheduler.NewPool(queue, func(ctx context.Context, req *domain.InferenceRequest) (string, error) {
		return "stub output for " + req.AgentID, nil
	}, 2, nil)

	t.Cleanup(func() {
		a.pool.Shutdown()
		a.busWorkers.Shutdown()
		a.bus.Shutdown()
	})
	return a
}

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func getPath(t *testing.T, handler http.HandlerFunc, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestRouteHandler(t *testing.T) {
	a := newTestApplication(t)

	rec := postJSON(t, a.routeHandler, "/api/route",
		`{"agent_id": "general", "prompt": "hello", "confidence": 0.9}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ContentTypeJSON, rec.Header().Get(ContentTypeHeader))

	var decision domain.RoutingDecision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.Equal(t, "general", decision.AgentID)
	require.NotNil(t, decision.Model)
	assert.NotEmpty(t, decision.Model.Name)
	assert.Equal(t, domain.TierHigh, decision.Tier.ID)
	assert.False(t, decision.Queued)
}

func TestRouteHandler_InvalidBody(t *testing.T) {
	a := newTestApplication(t)

	rec := postJSON(t, a.routeHandler, "/api/route", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouteHandler_UnknownAgent(t *testing.T) {
	a := newTestApplication(t)
	a.catalog.Clear()

	rec := postJSON(t, a.routeHandler, "/api/route",
		`{"agent_id": "ghost", "prompt": "hello", "confidence": 0.9}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReleaseHandler(t *testing.T) {
	a := newTestApplication(t)

	rec := postJSON(t, a.releaseHandler, "/api/route/release", `{"agent_id": "general"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "released", body["status"])
	assert.Equal(t, "general", body["agent_id"])
}

func TestReleaseHandler_MissingAgent(t *testing.T) {
	a := newTestApplication(t)

	rec := postJSON(t, a.releaseHandler, "/api/route/release", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInferHandler(t *testing.T) {
	a := newTestApplication(t)

	rec := postJSON(t, a.inferHandler, "/api/infer",
		`{"agent_id": "general", "prompt": "hello"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "general", body["agent_id"])
	assert.Equal(t, "stub output for general", body["output"])
	assert.NotEmpty(t, body["request_id"])
}

func TestInferHandler_MissingFields(t *testing.T) {
	a := newTestApplication(t)

	rec := postJSON(t, a.inferHandler, "/api/infer", `{"agent_id": "general"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, a.inferHandler, "/api/infer", `{"prompt": "hello"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeployHandler(t *testing.T) {
	a := newTestApplication(t)

	rec := getPath(t, a.deployHandler, "/api/agents/deploy?agent=general")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ContentTypeText, rec.Header().Get(ContentTypeHeader))

	body := rec.Body.String()
	assert.Contains(t, body, "# gantry agent configuration: general")
	assert.Contains(t, body, "model: ")
	assert.Contains(t, body, "temperature: 0.7")
}

func TestDeployHandler_MissingAgentParam(t *testing.T) {
	a := newTestApplication(t)

	rec := getPath(t, a.deployHandler, "/api/agents/deploy")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeployHandler_UnknownAgent(t *testing.T) {
	a := newTestApplication(t)

	rec := getPath(t, a.deployHandler, "/api/agents/deploy?agent=ghost")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHardwareHandler(t *testing.T) {
	a := newTestApplication(t)

	rec := getPath(t, a.hardwareHandler, "/api/hardware")
	require.Equal(t, http.StatusOK, rec.Code)

	var tier domain.HardwareTier
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tier))
	assert.Equal(t, domain.TierHigh, tier.ID)
}

func TestModelsHandler(t *testing.T) {
	a := newTestApplication(t)

	rec := getPath(t, a.modelsHandler, "/api/models")
	require.Equal(t, http.StatusOK, rec.Code)

	var models []*domain.ModelProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &models))
	assert.Len(t, models, len(a.catalog.List()))
	assert.NotEmpty(t, models)
}

func TestAgentsHandler(t *testing.T) {
	a := newTestApplication(t)

	rec := getPath(t, a.agentsHandler, "/api/agents")
	require.Equal(t, http.StatusOK, rec.Code)

	var mappings []*domain.AgentModelMapping
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mappings))
	assert.Len(t, mappings, len(a.catalog.AgentIDs()))
}

func TestMetricsHandler(t *testing.T) {
	a := newTestApplication(t)
	a.tracker.Record(domain.InferenceMetricSample{AgentID: "general", Model: "m", DurationMs: 5})

	rec := getPath(t, a.metricsHandler, "/api/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	var global domain.GlobalSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &global))
	assert.Equal(t, 1, global.TotalInferences)

	rec = getPath(t, a.metricsHandler, "/api/metrics?agent=general")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary domain.AgentSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "general", summary.AgentID)
	assert.Equal(t, 1, summary.TotalInferences)
}

func TestQueueHandler(t *testing.T) {
	a := newTestApplication(t)

	rec := getPath(t, a.queueHandler, "/api/queue")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "queue")
	assert.Contains(t, body, "overflow")
	assert.Equal(t, 1.0, body["fairness_score"])
}

// Slot-exhausted routing requests must land in the overflow queue, never
// the worker pool's queue: the pool would otherwise execute prompts whose
// callers already got a queued decision and are going to retry.
func TestRouteHandler_OverflowStaysOutOfWorkerPool(t *testing.T) {
	a := newTestApplication(t)

	// researcher allows a single concurrent inference
	body := `{"agent_id": "researcher", "prompt": "survey the field", "confidence": 0.9}`

	rec := postJSON(t, a.routeHandler, "/api/route", body)
	require.Equal(t, http.StatusOK, rec.Code)
	var first domain.RoutingDecision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	require.False(t, first.Queued)

	rec = postJSON(t, a.routeHandler, "/api/route", body)
	require.Equal(t, http.StatusOK, rec.Code)
	var second domain.RoutingDecision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	require.True(t, second.Queued)
	assert.NotEmpty(t, second.RequestID)

	assert.Equal(t, 1, a.overflow.Size())
	assert.Equal(t, 0, a.queue.Size())
	assert.Equal(t, int64(0), a.queue.GetStats().TotalEnqueued)
}

func TestHealthHandler(t *testing.T) {
	a := newTestApplication(t)

	rec := getPath(t, a.healthHandler, "/internal/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "healthy"))
}

func TestVersionHandler(t *testing.T) {
	a := newTestApplication(t)

	rec := getPath(t, a.versionHandler, "/version")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "gantry", body["name"])
	assert.NotEmpty(t, body["version"])
}

func TestWriteRoutingError_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"agent not found", &domain.AgentNotFoundError{AgentID: "x"}, http.StatusNotFound},
		{"queue full", &domain.QueueFullError{MaxSize: 1}, http.StatusTooManyRequests},
		{"request timeout", &domain.RequestTimeoutError{RequestID: "x"}, http.StatusGatewayTimeout},
		{"queue cleared", domain.ErrQueueCleared, http.StatusConflict},
		{"validation", domain.NewValidationError("field", nil, "bad"), http.StatusBadRequest},
		{"anything else", assert.AnError, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeRoutingError(rec, tc.err)
			assert.Equal(t, tc.expected, rec.Code)
		})
	}
}

func TestRouteRegistry(t *testing.T) {
	log := logger.NewPlainStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	registry := NewRouteRegistry(log)

	registry.Register("/one", func(http.ResponseWriter, *http.Request) {}, "first")
	registry.RegisterWithMethod("/two", func(http.ResponseWriter, *http.Request) {}, "second", http.MethodPost)

	routes := registry.GetRoutes()
	require.Len(t, routes, 2)
	assert.Equal(t, http.MethodGet, routes["/one"].Method)
	assert.Equal(t, http.MethodPost, routes["/two"].Method)
	assert.Less(t, routes["/one"].Order, routes["/two"].Order)

	mux := http.NewServeMux()
	registry.WireUp(mux)

	req := httptest.NewRequest(http.MethodGet, "/one", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
