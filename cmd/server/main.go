package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/shiptrack/tracking-system/internal/api"
	"github.com/shiptrack/tracking-system/internal/core/ports"
	"github.com/shiptrack/tracking-system/internal/core/service"
	mongodb "github.com/shiptrack/tracking-system/internal/infrastructure/db/mongo"
	redisdb "github.com/shiptrack/tracking-system/internal/infrastructure/db/redis"
	"github.com/shiptrack/tracking-system/internal/infrastructure/geocode"
	"github.com/shiptrack/tracking-system/internal/infrastructure/queue"
	"github.com/shiptrack/tracking-system/internal/pkg/config"
	"github.com/shiptrack/tracking-system/internal/realtime"
	"github.com/shiptrack/tracking-system/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() { _ = rdb.Close() }()

	shipmentRepo := mongodb.NewShipmentRepository(db)
	if err := shipmentRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure mongodb indexes")
	}
	driverRepo := mongodb.NewDriverRepository(db)
	if err := driverRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure mongodb indexes")
	}
	authRepo := mongodb.NewAuthRepository(db)
	if err := authRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure mongodb indexes")
	}

	var geocoder ports.Geocoder
	if cfg.Geocoder.APIKey != "" {
		geocoder = geocode.NewOpenCageClient(cfg.Geocoder.APIKey, cfg.Geocoder.BaseURL, cfg.Geocoder.Timeout, log)
	} else {
		log.Warn().Msg("no geocoder api key configured, location labels fall back to coordinates")
	}
	labelCache := redisdb.NewLabelCache(rdb)

	registry := realtime.NewRegistry()
	hub := realtime.NewHub(registry, logger.Component("hub"))

	locationService := service.NewLocationService(shipmentRepo, driverRepo, geocoder, labelCache, hub, logger.Component("ingest"))
	dispatcher := queue.NewDispatcher(cfg.Ingest.Workers, locationService, logger.Component("dispatcher"))
	dispatcher.Start(ctx)

	deps := api.Deps{
		Mongo:     db,
		Redis:     rdb,
		Hub:       hub,
		Reports:   dispatcher,
		Auth:      service.NewAuthService(authRepo, driverRepo, cfg.JWTSecret, 24*time.Hour),
		Shipment:  service.NewShipmentService(shipmentRepo, driverRepo, geocoder, log),
		Driver:    service.NewDriverService(driverRepo, log),
		JWTSecret: cfg.JWTSecret,
	}
	e := api.NewRouter(deps)

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	hub.CloseAll()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	log.Info().Msg("server stopped")
}
