package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/FyliaCare/calibration-mvp-sub000/internal/cache"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/config"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/database"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/handlers"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/jobs"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/log"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/notify"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/repository"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	if cfg.Auth.LinkTokenSecret == "" && cfg.Environment == "production" {
		logger.Fatal().Msg("auth.linktokensecret must be set in production")
	}

	ctx := context.Background()

	if err := database.Migrate(ctx, cfg.Postgres.DSN); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	var notifier notify.Notifier
	if cfg.Environment == "production" {
		notifier = notify.NewStreamNotifier(redisClient)
	} else {
		notifier = notify.NewLogNotifier(logger)
	}

	handlerSet := handlers.NewHandlerSet(logger, dbPool, redisClient, notifier, cfg)

	if err := handlerSet.Bootstrap(ctx); err != nil {
		logger.Fatal().Err(err).Msg("bootstrap seeding failed")
	}

	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(
		repository.NewOTPRepository(dbPool),
		repository.NewTokenRepository(dbPool),
		logger,
	)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, handlerSet, dbPool, redisClient)
}

func waitForShutdown(
	logger zerolog.Logger,
	srv *server.HTTPServer,
	scheduler *jobs.Scheduler,
	handlerSet handlers.HandlerSet,
	db *pgxpool.Pool,
	redisClient *redis.Client,
) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	scheduler.Stop()
	handlerSet.Close()

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
