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

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/flightdeck/internal/api"
	"github.com/neexbeast/flightdeck/internal/cache"
	"github.com/neexbeast/flightdeck/internal/config"
	"github.com/neexbeast/flightdeck/internal/observability"
	"github.com/neexbeast/flightdeck/internal/publish"
	"github.com/neexbeast/flightdeck/internal/refresh"
	"github.com/neexbeast/flightdeck/internal/storage"
	"github.com/neexbeast/flightdeck/internal/validation"
	"github.com/neexbeast/flightdeck/internal/weather"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	pool, err := storage.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if err := storage.RunMigrations(ctx, pool, cfg.MigrationsDir, log); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Connect to Redis.
	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()

	var publisher publish.Publisher = publish.Nop{}
	metrics := observability.NewMetrics()
	if len(cfg.KafkaBrokers) > 0 {
		publisher = publish.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, metrics, log)
		log.Info("publishing observations", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("closing publisher", "err", err)
		}
	}()

	// Wire dependencies.
	repo := storage.NewRepository(pool)
	cacheLayer := cache.NewCache(redisClient, cfg.CacheTTL, metrics)
	fetcher := weather.NewFetcher(weather.Config{
		NOAABaseURL:    cfg.NOAABaseURL,
		CheckWXAPIKey:  cfg.CheckWXAPIKey,
		CheckWXBaseURL: cfg.CheckWXBaseURL,
		HazardRangeNm:  cfg.HazardRangeNm,
	}, log, metrics)
	clock := clockwork.NewRealClock()
	svc := refresh.NewService(fetcher, repo, cacheLayer, publisher, metrics, clock, log)

	validator, err := validation.New()
	if err != nil {
		return fmt.Errorf("compiling payload schemas: %w", err)
	}

	if cfg.RefreshEnabled {
		scheduler, err := refresh.NewScheduler(ctx, svc, cfg.RefreshSchedule, log)
		if err != nil {
			return err
		}
		scheduler.Start()
		defer func() {
			<-scheduler.Stop().Done()
			log.Info("refresh scheduler stopped")
		}()
	}

	handlers := api.NewHandlers(repo, cacheLayer, svc, validator, clock, log)
	router := api.NewRouter(handlers, api.RouterConfig{
		Token:              cfg.BearerToken,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		AllowedOrigins:     cfg.AllowedOrigins,
		HealthChecks: []api.HealthCheck{
			{Name: "db", Pinger: pool},
			{Name: "redis", Pinger: &redisPingerAdapter{client: redisClient}},
		},
	}, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("server goroutine panicked", "recover", r)
				errCh <- fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info("server starting", "port", cfg.Port, "refresh_enabled", cfg.RefreshEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listening: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server shut down cleanly")
	return nil
}

// redisPingerAdapter adapts redis.Client to api.Pinger.
type redisPingerAdapter struct {
	client *redis.Client
}

func (r *redisPingerAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
