package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/weather-alert-dashboard/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-alert-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/weather-alert-dashboard/internal/adapter/openweather"
	"github.com/couchcryptid/weather-alert-dashboard/internal/auth"
	"github.com/couchcryptid/weather-alert-dashboard/internal/cache"
	"github.com/couchcryptid/weather-alert-dashboard/internal/config"
	"github.com/couchcryptid/weather-alert-dashboard/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	creds, err := auth.NewCredentials(cfg.AdminPassword, cfg.GuestPassword)
	if err != nil {
		logger.Error("failed to initialize credentials", "error", err)
		os.Exit(1)
	}

	cacheMgr, err := cache.NewManager(cfg.CacheDir, cache.Options{
		Clock:   clock,
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		logger.Error("failed to initialize cache", "dir", cfg.CacheDir, "error", err)
		os.Exit(1)
	}

	// Weather provider (feature-flagged via OPENWEATHER_API_KEY).
	var weather openweather.Provider
	var weatherClient *openweather.Client
	if cfg.WeatherEnabled {
		weatherClient = openweather.NewClient(cfg.WeatherAPIKey, cfg.WeatherTimeout, metrics, logger)
		weather = openweather.NewCachedProvider(weatherClient, cfg.WeatherCacheTTL, clock, metrics)
		logger.Info("weather provider enabled", "cache_ttl", cfg.WeatherCacheTTL, "timeout", cfg.WeatherTimeout)
	} else {
		logger.Info("weather provider disabled")
	}

	// Alert publishing (feature-flagged via KAFKA_BROKERS).
	var alerts httpadapter.AlertPublisher
	var publisher *kafkaadapter.AlertPublisher
	if cfg.AlertsEnabled {
		publisher = kafkaadapter.NewAlertPublisher(cfg.KafkaBrokers, cfg.KafkaAlertTopic, metrics, logger)
		alerts = publisher
		logger.Info("alert publishing enabled", "topic", cfg.KafkaAlertTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("alert publishing disabled")
	}

	sessions := httpadapter.NewSessionStore(func() *auth.Session {
		return auth.NewSession(creds, auth.Options{
			MaxAttempts:   cfg.AuthMaxAttempts,
			LockoutWindow: cfg.AuthLockoutWindow,
			Clock:         clock,
			Logger:        logger,
		})
	}, clock)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Sessions:        sessions,
		Cache:           cacheMgr,
		Weather:         weather,
		Alerts:          alerts,
		Ready:           cacheMgr,
		DefaultLocation: cfg.DefaultLocation,
		Clock:           clock,
		Metrics:         metrics,
		Logger:          logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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
	if weatherClient != nil {
		if err := weatherClient.Close(); err != nil {
			logger.Error("weather client close error", "error", err)
		}
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("alert publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
