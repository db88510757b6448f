package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/collision-dashboard/internal/adapter/httpadapter"
	"github.com/couchcryptid/collision-dashboard/internal/adapter/mapbox"
	"github.com/couchcryptid/collision-dashboard/internal/config"
	"github.com/couchcryptid/collision-dashboard/internal/dashboard"
	"github.com/couchcryptid/collision-dashboard/internal/dataset"
	"github.com/couchcryptid/collision-dashboard/internal/domain"
	"github.com/couchcryptid/collision-dashboard/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Map center labelling is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	source := dataset.NewFileSource(cfg.DataPath)
	cache := dataset.NewCache(dataset.NewCSVLoader(source, logger, metrics), logger, metrics)
	svc := dashboard.New(cache, geocoder, cfg.RowTiers, cfg.DefaultRowLimit, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, cache, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Warm the default tier; readiness flips once it lands.
	if cfg.Preload {
		go func() {
			if err := svc.Preload(ctx); err != nil {
				logger.Error("preload failed", "row_limit", cfg.DefaultRowLimit, "path", cfg.DataPath, "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
