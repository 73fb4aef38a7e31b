package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/b2bwholesale/ordering-sync/internal/api"
	"github.com/b2bwholesale/ordering-sync/internal/api/handler"
	"github.com/b2bwholesale/ordering-sync/internal/core/realtime"
	"github.com/b2bwholesale/ordering-sync/internal/core/service"
	mongodb "github.com/b2bwholesale/ordering-sync/internal/infrastructure/db/mongo"
	redisdb "github.com/b2bwholesale/ordering-sync/internal/infrastructure/db/redis"
	"github.com/b2bwholesale/ordering-sync/internal/infrastructure/queue"
	"github.com/b2bwholesale/ordering-sync/internal/infrastructure/ws"
	"github.com/b2bwholesale/ordering-sync/internal/pkg/config"
	"github.com/b2bwholesale/ordering-sync/pkg/logger"

	_ "github.com/b2bwholesale/ordering-sync/docs"
)

const (
	tokenTTL        = 24 * time.Hour
	shutdownTimeout = 10 * time.Second
	devJWTSecret    = "dev-only-secret"
	serviceName     = "ordering-sync"
)

// @title                       Wholesale Ordering Sync API
// @version                     1.0
// @description                 Real-time product and order sync for admin and partner clients.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	// Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config
	cfg := config.Load()

	// Logger
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
	})
	log.Info().Str("env", cfg.Env).Msg("starting application")

	if cfg.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET not set, using development secret")
		cfg.JWTSecret = devJWTSecret
	}

	// Infra
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		AppName:     serviceName,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
	})
	if err != nil {
		log.Fatal().Err(err).Str("database", cfg.Mongo.Database).Msg("mongo connection failed")
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()
	log.Info().Msg("mongo connected")

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		ClientName: serviceName,
		PoolSize:   cfg.Redis.PoolSize,
	})
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis connection failed")
	}
	defer rdb.Close()
	log.Info().Msg("redis connected")

	// Adapters
	authRepo := mongodb.NewAuthRepository(db)
	drops := mongodb.NewDropRepository(db)
	if err := authRepo.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to ensure auth indexes")
	}
	if err := drops.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to ensure drop audit indexes")
	}
	dedup := redisdb.NewDedupStore(rdb, cfg.Sync.DedupTTL)

	// Core
	authSvc := service.NewAuthService(authRepo, cfg.JWTSecret, tokenTTL)
	core := realtime.NewCore(realtime.Options{
		Retry: realtime.RetryOptions{
			Interval:    cfg.Sync.RetryInterval,
			MaxAttempts: cfg.Sync.RetryMaxAttempts,
			Recorder:    drops,
		},
		Identities: authSvc,
	}, logger.Component("sync"))

	hub := ws.NewHub(ws.Options{
		SendBuffer:      cfg.WS.SendBuffer,
		WriteTimeout:    cfg.WS.WriteTimeout,
		PingInterval:    cfg.WS.PingInterval,
		MaxMessageBytes: cfg.WS.MaxMessageBytes,
	}, logger.Component("ws"))
	if err := core.Initialize(ctx, hub); err != nil {
		log.Fatal().Err(err).Msg("sync core initialization failed")
	}

	eventSvc := service.NewEventService(core, dedup, logger.Component("intake"))
	intake := queue.NewDispatcher(cfg.Sync.IntakeWorkers, eventSvc, logger.Component("intake"))
	intake.Start(ctx)

	// Server
	e := api.NewRouter(api.Deps{
		Auth:             authSvc,
		Tokens:           authSvc,
		AllowAdminSignup: cfg.AllowAdminSignup,
		Intake:           intake,
		Sync:             core,
		WS:               ws.NewHandler(hub, logger.Component("ws")).Connect,
		Checks: map[string]handler.Check{
			"mongodb": mongodb.Pinger(mongoClient),
			"redis":   redisdb.Pinger(rdb),
		},
		Log: logger.Component("http"),
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()
	log.Info().Str("port", cfg.Port).Msg("server started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	hub.Shutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	core.Close()
	log.Info().Msg("stopped")
}
