// Command badge-engine runs the badge evaluation engine: it consumes
// domain events, maintains user statistics, evaluates the badge catalog
// and serves Prometheus metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turnomed/badge-engine/internal/cache"
	"github.com/turnomed/badge-engine/internal/catalog"
	"github.com/turnomed/badge-engine/internal/config"
	"github.com/turnomed/badge-engine/internal/repository"
	"github.com/turnomed/badge-engine/internal/service/dispatcher"
	"github.com/turnomed/badge-engine/internal/service/engine"
	"github.com/turnomed/badge-engine/internal/service/scheduler"
	"github.com/turnomed/badge-engine/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log := logger.Get()

	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.Postgres.MigrationsPath != "" {
		if err := db.Migrate(cfg.Database.Postgres.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
		log.Info().Msg("Database migrations applied")
	}

	var responseCache *cache.Cache
	if cfg.Database.Redis.Enabled {
		responseCache, err = cache.New(&cfg.Database.Redis, cfg.Database.Redis.CacheTTLDuration(), log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer responseCache.Close()
	}

	cat, err := catalog.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load badge catalog")
	}
	log.Info().Int("badges", cat.Size()).Msg("Badge catalog loaded")

	statsRepo := repository.NewStatsRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	userRepo := repository.NewUserRepository(db)

	engineSvc := engine.NewService(cat, statsRepo, badgeRepo, progressRepo, userRepo, responseCache, log)

	disp := dispatcher.NewDispatcher(statsRepo, engineSvc, dispatcher.Options{
		Workers:        cfg.Engine.Workers,
		QueueSize:      cfg.Engine.QueueSize,
		HandlerTimeout: cfg.Engine.HandlerTimeout,
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	disp.Start(ctx)

	sched := scheduler.NewService(cfg, userRepo, engineSvc, log)
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info().Int("port", cfg.Metrics.Port).Str("path", cfg.Metrics.Path).Msg("Metrics endpoint listening")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	log.Info().Str("environment", cfg.Server.Environment).Msg("Badge engine started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	sched.Stop()
	cancel()
	disp.Stop()
	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}
}
