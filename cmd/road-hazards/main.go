package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"

	"github.com/mr1hm/road-hazard-alerts/internal/api"
	"github.com/mr1hm/road-hazard-alerts/internal/catalog"
	"github.com/mr1hm/road-hazard-alerts/internal/config"
	"github.com/mr1hm/road-hazard-alerts/internal/journal"
	"github.com/mr1hm/road-hazard-alerts/internal/logging"
	"github.com/mr1hm/road-hazard-alerts/internal/models"
	"github.com/mr1hm/road-hazard-alerts/internal/observability"
	"github.com/mr1hm/road-hazard-alerts/internal/position"
	"github.com/mr1hm/road-hazard-alerts/internal/repository"
	"github.com/mr1hm/road-hazard-alerts/internal/stream"
	"github.com/mr1hm/road-hazard-alerts/internal/tracker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	if dir := filepath.Dir(cfg.DB.Path); cfg.DB.Path != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logging.Fatalf("Failed to create database directory: %v", err)
		}
	}
	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	// Journal writes alert activations off the tracker loop
	j := journal.New(cfg.Worker, db, metrics)
	j.Start(ctx)

	// Broadcaster feeds SSE clients
	broadcaster := stream.NewBroadcaster()

	samples := make(chan models.PositionSample, 16)
	errs := make(chan error, 4)

	var (
		live position.Source
		feed api.PositionFeed
	)
	if cfg.GPS.Enabled {
		locator := position.NewPushLocator(clock)
		opts := position.WatchOptions{
			HighAccuracy: cfg.GPS.HighAccuracy,
			MaximumAge:   cfg.GPS.MaximumAge,
			Timeout:      cfg.GPS.Timeout,
		}
		live = position.NewLive(locator, opts, clock, samples, errs)
		feed = locator
	}

	simCfg := position.SimulatorConfig{
		Center:   models.Coordinates{Latitude: cfg.Map.CenterLat, Longitude: cfg.Map.CenterLng},
		Radius:   cfg.Simulation.RadiusDeg,
		Step:     cfg.Simulation.StepRad,
		Interval: cfg.Simulation.Tick,
	}
	sim := position.NewSimulator(simCfg, clock, samples)

	hazards := catalog.All()
	tr := tracker.New(tracker.Options{
		Hazards:   hazards,
		Samples:   samples,
		Errors:    errs,
		Live:      live,
		Simulator: sim,
		Publisher: broadcaster,
		Recorder:  j,
		Metrics:   metrics,
		Clock:     clock,
	})
	tr.Start(ctx)

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router, err := api.NewRouter(api.RouterConfig{
		TrustedProxies: cfg.Server.TrustedProxies,
		RPS:            cfg.RateLimit.RPS,
		Burst:          cfg.RateLimit.Burst,
		ClientTTL:      cfg.RateLimit.ClientTTL,
		Metrics:        metrics,
	})
	if err != nil {
		logging.Fatalf("Failed to build router: %v", err)
	}

	handler := api.NewHandler(hazards, tr, feed, db, broadcaster, metrics)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr, "live_location", cfg.GPS.Enabled)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	tr.Stop()
	broadcaster.Close() // Close all streams gracefully
	j.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
