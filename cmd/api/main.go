package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mednais/sop-marketplace/backend/internal/adapters/access"
	"github.com/mednais/sop-marketplace/backend/internal/adapters/cache"
	"github.com/mednais/sop-marketplace/backend/internal/adapters/database"
	"github.com/mednais/sop-marketplace/backend/internal/adapters/events"
	"github.com/mednais/sop-marketplace/backend/internal/api/handlers"
	"github.com/mednais/sop-marketplace/backend/internal/api/routes"
	"github.com/mednais/sop-marketplace/backend/internal/application/services"
	"github.com/mednais/sop-marketplace/backend/internal/domain/providers"
	"github.com/mednais/sop-marketplace/backend/internal/domain/repositories"
	"github.com/mednais/sop-marketplace/backend/internal/infrastructure/clients/postgres"
	"github.com/mednais/sop-marketplace/backend/internal/infrastructure/clients/redis"
	"github.com/mednais/sop-marketplace/backend/internal/infrastructure/observability"
	"github.com/mednais/sop-marketplace/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// OpenTelemetry pipelines, if configured
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Warn().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	// Redis is optional; the service runs without caching and events
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, continuing without cache and events")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	var cacheProvider providers.CacheProvider
	var eventBus providers.EventBus
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
		eventBus = events.NewRedisEventBus(redisClient)
		log.Info().Msg("cache and event bus initialized")
	}

	// Procedure reads go through the cache when Redis is up
	var procedureRepo repositories.ProcedureRepository = database.NewProcedureAdapter(pgClient)
	if cacheProvider != nil {
		procedureRepo = database.NewCachedProcedureAdapter(procedureRepo, cacheProvider, metrics)
	}

	sessionRepo := database.NewSessionAdapter(pgClient)
	stepExecutionRepo := database.NewStepExecutionAdapter(pgClient)
	accessProvider := access.NewPurchaseAccessProvider(pgClient)

	executionService := services.NewExecutionService(
		sessionRepo,
		stepExecutionRepo,
		procedureRepo,
		accessProvider,
		eventBus,
		metrics,
	)
	statisticsService := services.NewStatisticsService(
		sessionRepo,
		stepExecutionRepo,
		procedureRepo,
	)

	sessionHandler := handlers.NewSessionHandler(executionService)
	statisticsHandler := handlers.NewStatisticsHandler(statisticsService)

	router := routes.NewRouter(sessionHandler, statisticsHandler, metrics)

	server := &http.Server{
		Addr:         cfg.Server.ServerAddr(),
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("error during server shutdown")
	}

	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing event bus")
		}
	}

	log.Info().Msg("server stopped")
}
