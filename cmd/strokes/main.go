package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/Strokes/internal/analysis"
	"github.com/MikeSquared-Agency/Strokes/internal/api"
	"github.com/MikeSquared-Agency/Strokes/internal/config"
	"github.com/MikeSquared-Agency/Strokes/internal/hermes"
	"github.com/MikeSquared-Agency/Strokes/internal/probability"
	"github.com/MikeSquared-Agency/Strokes/internal/profile"
	"github.com/MikeSquared-Agency/Strokes/internal/session"
	"github.com/MikeSquared-Agency/Strokes/internal/simulator"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prof, err := profile.Load()
	if err != nil {
		logger.Error("invalid profile", "error", err)
		os.Exit(1)
	}
	defaultArchetype := profile.Archetype(cfg.Editor.DefaultArchetype)
	if _, ok := prof.Baseline(defaultArchetype); !ok {
		logger.Error("unknown default archetype", "archetype", defaultArchetype)
		os.Exit(1)
	}
	rebalancer := probability.NewRebalancer(prof.Partition, probability.WithEpsilon(cfg.Editor.Epsilon))

	// Score engine
	engine := simulator.NewHTTPClient(cfg.Engine.URL, cfg.EngineTimeout(), cfg.Engine.MaxRetries)
	if err := engine.Health(ctx); err != nil {
		logger.Warn("score engine not reachable yet, scores will show as unavailable", "url", cfg.Engine.URL, "error", err)
	}

	// Hermes (optional)
	var hermesClient hermes.Client
	if cfg.Hermes.URL != "" {
		hc, err := hermes.NewNATSClient(ctx, cfg.Hermes.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to hermes, running without events", "error", err)
		} else {
			hermesClient = hc
			defer hc.Close()
			logger.Info("connected to hermes")
		}
	}
	events := hermes.NewEmitter(hermesClient, logger)

	// Sessions
	manager := session.NewManager(prof, rebalancer, engine, events, session.Options{
		Debounce:      cfg.Debounce(),
		IdleTimeout:   cfg.IdleTimeout(),
		SweepInterval: cfg.SweepInterval(),
	}, logger)
	manager.Start(ctx)
	defer manager.Stop()
	logger.Info("session manager started", "idle_timeout", cfg.IdleTimeout(), "debounce", cfg.Debounce())

	// API server
	router := api.NewRouter(manager, analysis.NewAnalyzer(engine, prof), events, api.Options{
		DefaultArchetype:  defaultArchetype,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
		AllowedOrigins:    cfg.CORS.AllowedOrigins,
	}, logger)
	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Metrics server
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: api.NewMetricsRouter(),
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
}
