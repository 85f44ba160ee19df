package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	httpadapter "github.com/nearspot/locationd/internal/adapter/http"
	kafkaadapter "github.com/nearspot/locationd/internal/adapter/kafka"
	"github.com/nearspot/locationd/internal/config"
	"github.com/nearspot/locationd/internal/geocode"
	"github.com/nearspot/locationd/internal/observability"
	"github.com/nearspot/locationd/internal/position"
	"github.com/nearspot/locationd/internal/scheduler"
	"github.com/nearspot/locationd/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	db, err := store.OpenBolt(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}

	source := position.NewGPSD(cfg.GPSDAddr, clock, logger, metrics)

	// Google is the primary geocoder when an API key is configured; Nominatim
	// is always present as the fallback.
	var primary geocode.Provider
	if cfg.GoogleAPIKey != "" {
		primary, err = geocode.NewGoogleProvider(cfg.GoogleAPIKey, cfg.GeocodeTimeout, metrics)
		if err != nil {
			logger.Error("failed to create google geocoder", "error", err)
			os.Exit(1)
		}
		logger.Info("google geocoding enabled", "timeout", cfg.GeocodeTimeout)
	} else {
		logger.Info("google geocoding disabled, using nominatim only")
	}
	secondary := geocode.NewNominatimProvider(cfg.NominatimURL, cfg.NominatimUserAgent, cfg.GeocodeTimeout, metrics)

	resolver := geocode.NewCachedResolver(
		geocode.NewResolver(primary, secondary, logger),
		cfg.GeocodeCacheSize,
		metrics,
	)

	sched := scheduler.New(scheduler.Config{
		Position:        source,
		Resolver:        resolver,
		Snapshots:       db,
		History:         db,
		Slots:           cfg.Slots,
		FreshnessWindow: cfg.FreshnessWindow,
		Clock:           clock,
		Logger:          logger,
		Metrics:         metrics,
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, sched, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional update-event publishing (feature-flagged via KAFKA_BROKERS).
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled() {
		publisher = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaUpdatesTopic, logger)
		updates := sched.Subscribe()
		go publisher.Run(ctx, updates)
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaUpdatesTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	sched.Stop()
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("shutdown complete")
}
