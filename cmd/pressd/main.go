// Command pressd runs the article authority: the REST API pressctl talks to.
//
//	@title						Induspress API
//	@version					1.0
//	@description				Article authoring and moderation API.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ibtissamelhani/induspress/internal/api"
	"github.com/ibtissamelhani/induspress/internal/api/handler"
	"github.com/ibtissamelhani/induspress/internal/core/domain"
	"github.com/ibtissamelhani/induspress/internal/core/service"
	mongodb "github.com/ibtissamelhani/induspress/internal/infrastructure/db/mongo"
	redisdb "github.com/ibtissamelhani/induspress/internal/infrastructure/db/redis"
	"github.com/ibtissamelhani/induspress/internal/infrastructure/queue"
	"github.com/ibtissamelhani/induspress/internal/pkg/config"
	"github.com/ibtissamelhani/induspress/pkg/logger"
)

const (
	eventWorkers    = 4
	shutdownTimeout = 10 * time.Second
)

var defaultCategories = []domain.Category{
	{ID: "tech", Name: "Technology"},
	{ID: "industry", Name: "Industry"},
	{ID: "energy", Name: "Energy"},
	{ID: "logistics", Name: "Logistics"},
}

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty && !cfg.Production(),
		Service: "pressd",
	})
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to create indexes")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer func() { _ = rdb.Close() }()

	categories := mongodb.NewCategoryRepository(db)
	if err := categories.Seed(ctx, defaultCategories); err != nil {
		log.Fatal().Err(err).Msg("failed to seed categories")
	}

	events := mongodb.NewEventRepository(db)
	dispatcher := queue.NewDispatcher(eventWorkers, service.NewEventService(events, logger.Component(log, "events")), log)
	// Workers outlive the signal context so Close can drain pending events.
	dispatcher.Start(context.WithoutCancel(ctx))

	articles := service.NewArticleService(
		mongodb.NewArticleRepository(db),
		categories,
		events,
		dispatcher,
		redisdb.NewIdempotencyStore(rdb, ""),
		logger.Component(log, "articles"),
	)
	auth := service.NewAuthService(mongodb.NewUserRepository(db), cfg.JWTSecret, cfg.Authority.TokenTTL)

	e := api.NewRouter(api.Deps{
		Auth:     auth,
		Articles: articles,
		Readiness: map[string]handler.Check{
			"mongodb": func(ctx context.Context) error { return mongodb.Ping(ctx, db) },
			"redis":   func(ctx context.Context) error { return redisdb.Ping(ctx, rdb) },
		},
		JWTSecret: cfg.JWTSecret,
		Log:       logger.Component(log, "http"),
	})

	go func() {
		log.Info().Str("port", cfg.Authority.Port).Msg("pressd listening")
		if err := e.Start(":" + cfg.Authority.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	dispatcher.Close()
}
