package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/mereck/gantry/internal/app"
	"github.com/mereck/gantry/internal/env"
	"github.com/mereck/gantry/internal/logger"
	"github.com/mereck/gantry/internal/version"
	"github.com/mereck/gantry/pkg/container"
	"github.com/mereck/gantry/pkg/format"
	"github.com/mereck/gantry/pkg/nerdstats"
	"github.com/mereck/gantry/pkg/profiler"
)

func main() {
	startTime := time.Now()
	vlog := log.New(log.Writer(), "", 0)
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.PrintVersionInfo(true, vlog)
		os.Exit(0)
	} else {
		version.PrintVersionInfo(false, vlog)
	}

	lcfg := buildLoggerConfig()
	logInstance, styledLogger, cleanup, err := logger.NewWithTheme(lcfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	slog.SetDefault(logInstance)

	styledLogger.Info("Initialising", "version", version.Version, "pid", os.Getpid())

	if container.IsContainerised() {
		styledLogger.Info("Containerised environment detected")
	}

	if profilerAddr := env.GetEnvOrDefault("GANTRY_PROFILER", ""); profilerAddr != "" {
		styledLogger.Warn("Profiler enabled", "bind", profilerAddr)
		profiler.InitialiseProfiler(profilerAddr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		styledLogger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	application, err := app.New(startTime, styledLogger)
	if err != nil {
		logger.FatalWithLogger(logInstance, "Failed to create application", "error", err)
	}

	if err := application.Start(ctx); err != nil {
		logger.FatalWithLogger(logInstance, "Failed to start application", "error", err)
	}

	<-ctx.Done()

	if err := application.Stop(context.Background()); err != nil {
		styledLogger.Error("Error during shutdown", "error", err)
	}

	reportProcessStats(styledLogger, startTime)

	styledLogger.Info("Gantry has shutdown")
}

func reportProcessStats(logger logger.StyledLogger, startTime time.Time) {
	runtime.GC()

	stats := nerdstats.Snapshot(startTime)

	logger.Info("Process Memory Stats",
		"heap_alloc", format.Bytes(stats.HeapAlloc),
		"heap_sys", format.Bytes(stats.HeapSys),
		"heap_inuse", format.Bytes(stats.HeapInuse),
		"total_alloc", format.Bytes(stats.TotalAlloc),
		"pressure", stats.GetMemoryPressure(),
	)

	if stats.NumGC > 0 {
		logger.Info("Garbage Collection Stats",
			"num_gc_cycles", stats.NumGC,
			"last_gc", stats.LastGC.Format(time.RFC3339),
			"total_gc_time", format.Duration(stats.TotalGCTime),
			"avg_gc_pause", nerdstats.CalculateAverageGCPause(stats),
		)
	}

	logger.Info("Runtime Stats",
		"uptime", format.Duration(stats.Uptime),
		"go_version", stats.GoVersion,
		"num_goroutines", stats.NumGoroutines,
		"goroutine_health", stats.GetGoroutineHealthStatus(),
		"num_cpu", stats.NumCPU,
	)
}

// buildLoggerConfig creates logger config from environment variables with defaults
func buildLoggerConfig() *logger.Config {
	return &logger.Config{
		Level:      env.GetEnvOrDefault("GANTRY_LOG_LEVEL", "info"),
		FileOutput: env.GetEnvBoolOrDefault("GANTRY_FILE_OUTPUT", true),
		LogDir:     env.GetEnvOrDefault("GANTRY_LOG_DIR", "./logs"),
		MaxSize:    env.GetEnvIntOrDefault("GANTRY_MAX_SIZE", 100),
		MaxBackups: env.GetEnvIntOrDefault("GANTRY_MAX_BACKUPS", 5),
		MaxAge:     env.GetEnvIntOrDefault("GANTRY_MAX_AGE", 30),
		Theme:      env.GetEnvOrDefault("GANTRY_THEME", "default"),
	}
}
