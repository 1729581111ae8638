package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mereck/gantry/internal/adapter/backend"
	"github.com/mereck/gantry/internal/adapter/catalog"
	"github.com/mereck/gantry/internal/adapter/hardware"
	"github.com/mereck/gantry/internal/adapter/scheduler"
	"github.com/mereck/gantry/internal/adapter/speculative"
	"github.com/mereck/gantry/internal/adapter/stats"
	"github.com/mereck/gantry/internal/config"
	"github.com/mereck/gantry/internal/core/domain"
	"github.com/mereck/gantry/internal/core/ports"
	"github.com/mereck/gantry/internal/logger"
	"github.com/mereck/gantry/internal/router"
	"github.com/mereck/gantry/pkg/eventbus"
	"github.com/mereck/gantry/pkg/format"
)

// Application wires the routing core to its adapters and exposes it over
// HTTP.
type Application struct {
	startTime time.Time
	config    *config.Config
	server    *http.Server
	logger    logger.StyledLogger
	registry  *RouteRegistry

	catalog  *catalog.MemoryCatalog
	hardware *hardware.Profiler
	tracker  *stats.Tracker
	// queue feeds the worker pool; overflow holds slot-exhausted routing
	// requests waiting for a retry. The pool must never drain overflow or
	// it would execute prompts no caller is waiting on.
	queue    *scheduler.PriorityQueue
	overflow *scheduler.PriorityQueue
	pool     *scheduler.Pool
	router   *router.Router
	decoder  *speculative.Decoder
	backend  *backend.Manager

	// Routing decisions fan out through the bus; the worker pool keeps
	// publishing off the request path.
	bus        *eventbus.EventBus[domain.RoutingDecision]
	busWorkers *eventbus.WorkerPool[domain.RoutingDecision]

	stopWatch func()
	busDone   func()
	errCh     chan error
}

// New creates a fully wired application instance.
func New(startTime time.Time, log logger.StyledLogger) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cat := catalog.NewMemoryCatalog().WithDefaults()
	if cfg.Catalog.File != "" {
		if err := cat.LoadFile(cfg.Catalog.File); err != nil {
			return nil, fmt.Errorf("failed to load catalog file %s: %w", cfg.Catalog.File, err)
		}
		log.InfoWithCount("Loaded catalog overrides", len(cat.List()), "file", cfg.Catalog.File)
	}

	var sensor ports.HardwareSensor = hardware.NewHostSensor()
	if cfg.Hardware.ForcedTier != "" {
		forced := domain.TierID(cfg.Hardware.ForcedTier)
		if !forced.Valid() {
			return nil, fmt.Errorf("unknown hardware tier %q", cfg.Hardware.ForcedTier)
		}
		sensor = hardware.SensorForTier(forced)
	}
	profiler := hardware.NewProfiler(sensor, log)

	tracker := stats.NewTracker(cfg.Metrics.MaxHistory)

	queueConfig := scheduler.QueueConfig{
		MaxSize:         cfg.Scheduler.MaxSize,
		DefaultPriority: cfg.Scheduler.DefaultPriority,
		AgingEnabled:    cfg.Scheduler.AgingEnabled,
		AgingThreshold:  cfg.Scheduler.AgingThreshold,
		AgingIncrement:  cfg.Scheduler.AgingIncrement,
		ProcessingRate:  cfg.Scheduler.ProcessingRate,
	}
	queue := scheduler.NewPriorityQueue(queueConfig)
	overflow := scheduler.NewPriorityQueue(queueConfig)

	rt := router.New(router.Config{
		MaxFallbackDepth:    cfg.Routing.MaxFallbackDepth,
		EscalationEnabled:   cfg.Routing.EscalationEnabled,
		EscalationThreshold: cfg.Routing.EscalationThreshold,
		SpeculativeEnabled:  cfg.Routing.SpeculativeEnabled,
		DefaultPriority:     cfg.Routing.DefaultPriority,
		QueuedTTL:           cfg.Routing.QueuedTTL,
	}, cat, profiler, tracker, overflow, log)

	mgr := backend.NewManager(log)
	decoder := speculative.NewDecoder(speculative.Config{
		MaxDraftTokens:       cfg.Speculative.MaxDraftTokens,
		AdaptiveDraftTokens:  cfg.Speculative.AdaptiveDraftTokens,
		TargetAcceptanceRate: cfg.Speculative.TargetAcceptanceRate,
		MinSpeedup:           cfg.Speculative.MinSpeedup,
		MinSamples:           cfg.Speculative.MinSamples,
	}, mgr.Generate, log)

	app := &Application{
		startTime: startTime,
		config:    cfg,
		logger:    log,
		registry:  NewRouteRegistry(log),
		catalog:   cat,
		hardware:  profiler,
		tracker:   tracker,
		queue:     queue,
		overflow:  overflow,
		router:    rt,
		decoder:   decoder,
		backend:   mgr,
		bus:       eventbus.New[domain.RoutingDecision](),
		errCh:     make(chan error, 1),
	}

	app.busWorkers = eventbus.NewWorkerPool(app.bus, 2, 64)
	app.pool = scheduler.NewPool(queue, app.runInference, cfg.Scheduler.MaxConcurrent, log)

	app.server = &http.Server{
		Addr:         cfg.Server.GetAddress(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return app, nil
}

// Start brings up catalog watching, the backend probe and the web server.
func (a *Application) Start(ctx context.Context) error {
	tier := a.hardware.Detect()
	a.logger.Info("Hardware profile detected",
		"tier", string(tier.ID),
		"vram_gb", tier.VRAMGB,
		"quant", string(tier.RecommendedQuant))

	if a.config.Catalog.File != "" && a.config.Catalog.Watch {
		stop, err := a.catalog.Watch(a.config.Catalog.File, a.logger)
		if err != nil {
			a.logger.Warn("Catalog watch unavailable", "error", err)
		} else {
			a.stopWatch = stop
		}
	}

	if a.config.Backend.ProbeEnabled {
		go a.probeBackend(ctx)
	}

	go a.consumeDecisions(ctx)

	go func() {
		select {
		case err := <-a.errCh:
			a.logger.Error("Server startup error", "error", err)
		case <-ctx.Done():
			return
		}
	}()

	a.startWebServer()

	a.logger.Info("Gantry started", "bind", a.server.Addr)
	return nil
}

// Stop shuts everything down in dependency order.
func (a *Application) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.config.Server.ShutdownTimeout)
	defer cancel()

	if a.stopWatch != nil {
		a.stopWatch()
	}
	if a.busDone != nil {
		a.busDone()
	}

	a.pool.Shutdown()
	a.busWorkers.Shutdown()
	a.bus.Shutdown()

	a.logger.Info("Scheduler fairness at shutdown",
		"score", format.Percentage(a.pool.FairnessScore()*100))

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	return nil
}

// probeBackend waits for the local daemon and logs what it found. The
// router keeps working either way.
func (a *Application) probeBackend(ctx context.Context) {
	if a.config.Backend.WaitForReady > 0 {
		if !a.backend.WaitForReady(ctx, a.config.Backend.WaitForReady) {
			a.logger.Warn("Inference backend did not become ready",
				"waited", a.config.Backend.WaitForReady.String())
			return
		}
	}

	status := a.backend.CheckStatus(ctx)
	if !status.Running {
		a.logger.Warn("No inference backend detected", "port", status.Port)
		return
	}
	a.logger.InfoWithCount("Inference backend detected", len(status.Models),
		"port", status.Port, "version", status.Version)
}

// consumeDecisions drains the decision bus so routing outcomes show up in
// the logs even when no external subscriber is attached.
func (a *Application) consumeDecisions(ctx context.Context) {
	ch, done := a.bus.Subscribe(ctx)
	a.busDone = done

	for {
		select {
		case <-ctx.Done():
			return
		case decision, ok := <-ch:
			if !ok {
				return
			}
			if decision.Model == nil {
				continue
			}
			a.logger.Debug("Routing decision",
				"agent", decision.AgentID,
				"model", decision.Model.Name,
				"resolution", decision.Resolution.String(),
				"queued", decision.Queued)
		}
	}
}

// runInference executes a dequeued request against the backend, routing by
// the request's agent. Speculative decoding is used when the decoder still
// considers it beneficial.
func (a *Application) runInference(ctx context.Context, req *domain.InferenceRequest) (string, error) {
	resolution := a.catalog.ResolveForAgent(req.AgentID)
	if resolution.Kind == domain.ResolutionNotFound {
		return "", &domain.AgentNotFoundError{AgentID: req.AgentID}
	}
	profile := resolution.Mapping.Primary
	model := profile.Name

	start := time.Now()
	sample := domain.InferenceMetricSample{
		AgentID:    req.AgentID,
		Model:      model,
		Confidence: 1,
		Timestamp:  start,
	}

	var text string
	draft := ""
	if profile.DraftCapable {
		draft = a.draftModelFor(profile)
	}

	if draft != "" && a.decoder.IsBeneficial() {
		outcome, err := a.decoder.Decode(ctx, req.Prompt, draft, model, req.MaxTokens)
		if err != nil {
			return "", err
		}
		text = outcome.Output
		sample.TokensOut = outcome.TokensGenerated
		sample.AcceptanceRate = outcome.AcceptanceRate
		sample.HasAcceptance = true
	} else {
		result, err := a.backend.Generate(ctx, model, req.Prompt, req.MaxTokens)
		if err != nil {
			return "", err
		}
		text = result.Text
		sample.TokensOut = result.TokensOut
		sample.Confidence = result.Confidence
	}

	sample.DurationMs = time.Since(start).Milliseconds()
	a.tracker.Record(sample)

	return text, nil
}

// draftModelFor picks a cheaper stablemate to draft for the verify model,
// preferring the same family so the token distributions line up.
func (a *Application) draftModelFor(verify *domain.ModelProfile) string {
	var best *domain.ModelProfile
	for _, p := range a.catalog.List() {
		if p.Name == verify.Name || p.CostFactor >= verify.CostFactor {
			continue
		}
		if p.Family != verify.Family && p.Strength != domain.StrengthSpeed {
			continue
		}
		if best == nil || p.CostFactor < best.CostFactor {
			best = p
		}
	}
	if best == nil {
		return ""
	}
	return best.Name
}
