package app

import (
	"errors"
	"net/http"
)

const (
	ContentTypeJSON   = "application/json"
	ContentTypeText   = "text/plain"
	ContentTypeHeader = "Content-Type"
)

func (a *Application) startWebServer() {
	a.logger.Info("Starting WebServer...", "host", a.config.Server.Host, "port", a.config.Server.Port)

	mux := http.NewServeMux()

	a.registerRoutes()
	a.registry.WireUp(mux)

	a.server.Handler = mux

	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error", "error", err)
			a.errCh <- err
		}
	}()

	a.logger.Info("Started WebServer", "bind", a.server.Addr)
}

func (a *Application) registerRoutes() {
	a.registry.RegisterWithMethod("/api/route", a.routeHandler, "Route an agent's inference request", http.MethodPost)
	a.registry.RegisterWithMethod("/api/route/release", a.releaseHandler, "Release an agent's concurrency slot", http.MethodPost)
	a.registry.RegisterWithMethod("/api/infer", a.inferHandler, "Submit a request to the inference pool", http.MethodPost)
	a.registry.Register("/api/hardware", a.hardwareHandler, "Detected hardware profile")
	a.registry.Register("/api/models", a.modelsHandler, "Registered model profiles")
	a.registry.Register("/api/agents", a.agentsHandler, "Registered agent mappings")
	a.registry.Register("/api/agents/deploy", a.deployHandler, "Rendered per-agent deployment config")
	a.registry.Register("/api/metrics", a.metricsHandler, "Inference metrics summary")
	a.registry.Register("/api/queue", a.queueHandler, "Scheduler queue statistics")
	a.registry.Register("/internal/health", a.healthHandler, "Health check endpoint")
	a.registry.Register("/internal/status", a.statusHandler, "Process status")
	a.registry.Register("/version", a.versionHandler, "Version information")
}
