package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/gin-gonic/gin"
	"github.com/saaga0h/floorplan-dashboard/internal/api"
	"github.com/saaga0h/floorplan-dashboard/internal/dashboard"
	"github.com/saaga0h/floorplan-dashboard/internal/filter"
	"github.com/saaga0h/floorplan-dashboard/internal/i18n"
	"github.com/saaga0h/floorplan-dashboard/internal/ingest"
	"github.com/saaga0h/floorplan-dashboard/internal/occupancy"
	"github.com/saaga0h/floorplan-dashboard/internal/prefs"
	"github.com/saaga0h/floorplan-dashboard/internal/sample"
	"github.com/saaga0h/floorplan-dashboard/internal/schedule"
	"github.com/saaga0h/floorplan-dashboard/pkg/config"
	"github.com/saaga0h/floorplan-dashboard/pkg/health"
	"github.com/saaga0h/floorplan-dashboard/pkg/mqtt"
	"github.com/saaga0h/floorplan-dashboard/pkg/postgres"
	"github.com/saaga0h/floorplan-dashboard/pkg/redis"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// Load configuration with hierarchy: defaults → env → flags
	cfg := config.NewConfig()
	cfg.ServiceName = "dashboard-server"
	cfg.LoadFromEnv()
	cfg.LoadFromFlags()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("Starting floor-plan dashboard",
		"service_name", cfg.ServiceName,
		"http_port", cfg.HTTPPort,
		"prefs_backend", cfg.PrefsBackend,
		"mqtt_enabled", cfg.MQTTEnabled,
		"log_level", cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	backend, err := connectPrefs(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to connect preference store", "backend", cfg.PrefsBackend, "error", err)
		os.Exit(1)
	}

	var mqttClient mqtt.Client
	var publisher occupancy.FramePublisher = occupancy.NopPublisher{}
	if cfg.MQTTEnabled {
		mqttClient = mqtt.NewClient(cfg, logger)
		if err := connectWithRetry(ctx, cfg, logger, "mqtt", mqttClient.Connect); err != nil {
			// Frames are dropped until the broker becomes reachable
			logger.Warn("MQTT unavailable, frames will be dropped", "broker", cfg.MQTTAddress(), "error", err)
		}
		publisher = occupancy.NewMQTTPublisher(mqttClient, mqtt.FrameTopic(cfg.FrameTopic, ""), logger)
	}

	catalog, err := loadCatalog(cfg)
	if err != nil {
		logger.Error("Failed to load locale catalog", "file", cfg.LocaleCatalogFile, "error", err)
		os.Exit(1)
	}

	engine := filter.NewEngine(backend.store, logger)
	playback := occupancy.NewPlayback(schedule.NewTickerScheduler(), cfg.PlaybackInterval(), publisher, logger)
	svc := dashboard.NewService(engine, catalog, playback, backend.store, dashboard.Options{
		BucketWidth: int64(cfg.BucketWidthSec),
		Latitude:    cfg.Latitude,
		Longitude:   cfg.Longitude,
		Location:    cfg.Location(),
	}, logger)

	// Preferences must be restored before the first load
	svc.Restore(ctx)
	if err := loadData(ctx, cfg, svc); err != nil {
		logger.Error("Failed to load startup data", "error", err)
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	checker := health.NewChecker(mqttClient, backend.redis, backend.postgres, logger)
	cache := api.NewQueryCache(cfg.QueryCacheSize, 0, logger)
	router := api.NewRouter(svc, checker, cache, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received (SIGTERM/SIGINT)")
	case err := <-serverErr:
		logger.Error("HTTP server failed", "error", err)
	}

	logger.Info("Initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server", "error", err)
	}

	playback.Stop()

	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	backend.close(logger)

	logger.Info("Dashboard shutdown complete")
}

// prefsBackend holds the preference store and the client behind it
type prefsBackend struct {
	store    prefs.Store
	redis    redis.Client
	postgres postgres.Client
}

func (b prefsBackend) close(logger *slog.Logger) {
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			logger.Error("Error closing Redis client", "error", err)
		}
	}
	if b.postgres != nil {
		if err := b.postgres.Disconnect(); err != nil {
			logger.Error("Error closing Postgres client", "error", err)
		}
	}
}

func connectPrefs(ctx context.Context, cfg *config.Config, logger *slog.Logger) (prefsBackend, error) {
	switch cfg.PrefsBackend {
	case "redis":
		client := redis.NewClient(cfg, logger)
		if err := connectWithRetry(ctx, cfg, logger, "redis", client.Ping); err != nil {
			return prefsBackend{}, err
		}
		return prefsBackend{store: prefs.NewRedisStore(client), redis: client}, nil

	case "postgres":
		client := postgres.NewClient(cfg, logger)
		if err := connectWithRetry(ctx, cfg, logger, "postgres", client.Connect); err != nil {
			return prefsBackend{}, err
		}
		store := prefs.NewPostgresStore(client)
		if err := store.EnsureSchema(ctx); err != nil {
			return prefsBackend{}, err
		}
		return prefsBackend{store: store, postgres: client}, nil

	default:
		return prefsBackend{store: prefs.NewMemoryStore()}, nil
	}
}

// connectWithRetry retries connect with exponential backoff
func connectWithRetry(ctx context.Context, cfg *config.Config, logger *slog.Logger, name string, connect func(context.Context) error) error {
	attempts := cfg.ConnectRetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	err := retry.Do(
		func() error { return connect(ctx) },
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("Retrying connection", "target", name, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to %s after %d attempts: %w", name, attempts, err)
	}
	return nil
}

func loadCatalog(cfg *config.Config) (*i18n.Catalog, error) {
	var catalog *i18n.Catalog
	var err error
	if cfg.LocaleCatalogFile != "" {
		catalog, err = i18n.LoadCatalog(cfg.LocaleCatalogFile)
	} else {
		catalog, err = i18n.Default()
	}
	if err != nil {
		return nil, err
	}

	if cfg.DefaultLocale != "" {
		if !catalog.IsSupported(cfg.DefaultLocale) {
			return nil, fmt.Errorf("default locale %q is not in the catalog", cfg.DefaultLocale)
		}
		catalog.DefaultLocale = cfg.DefaultLocale
	}
	return catalog, nil
}

// loadData loads the configured files. Either file left empty falls back
// to its bundled sample counterpart.
func loadData(ctx context.Context, cfg *config.Config, svc *dashboard.Service) error {
	layout, err := payloadFor(cfg.LayoutFile, ingest.KindLayout)
	if err != nil {
		return err
	}
	series, err := payloadFor(cfg.TimeSeriesFile, ingest.KindTimeSeries)
	if err != nil {
		return err
	}

	svc.Apply(ctx, layout)
	svc.Apply(ctx, series)
	return nil
}

func payloadFor(path string, want ingest.Kind) (*ingest.Payload, error) {
	if path == "" {
		switch want {
		case ingest.KindLayout:
			layout, err := sample.Layout()
			if err != nil {
				return nil, err
			}
			return &ingest.Payload{Kind: ingest.KindLayout, Layout: layout}, nil
		default:
			ts, err := sample.TimeSeries()
			if err != nil {
				return nil, err
			}
			return &ingest.Payload{Kind: ingest.KindTimeSeries, TimeSeries: ts}, nil
		}
	}

	payload, err := ingest.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	if payload.Kind != want {
		return nil, fmt.Errorf("%s holds %s data, expected %s", path, payload.Kind, want)
	}
	return payload, nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
