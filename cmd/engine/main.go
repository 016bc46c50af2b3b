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

	"github.com/MikeSquared-Agency/Strokes/internal/api"
	"github.com/MikeSquared-Agency/Strokes/internal/config"
	"github.com/MikeSquared-Agency/Strokes/internal/markov"
	"github.com/MikeSquared-Agency/Strokes/internal/profile"
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

	// Smoke-test the model against the built-in baselines before serving.
	for _, a := range profile.Archetypes() {
		base, _ := profile.Baseline(a)
		score, err := markov.ExpectedScore(base)
		if err != nil {
			logger.Error("hole model rejected baseline", "archetype", a, "error", err)
			os.Exit(1)
		}
		logger.Info("baseline expected score", "archetype", a, "score", score)
	}

	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Engine.Port),
		Handler: api.NewEngineRouter(logger),
	}
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Engine.MetricsPort),
		Handler: api.NewMetricsRouter(),
	}

	go func() {
		logger.Info("engine starting", "port", cfg.Engine.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("engine server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Engine.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
}
