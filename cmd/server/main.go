package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rpattn/ctedash/internal/auth"
	"github.com/rpattn/ctedash/internal/cache"
	"github.com/rpattn/ctedash/internal/config"
	"github.com/rpattn/ctedash/internal/db"
	"github.com/rpattn/ctedash/internal/export"
	"github.com/rpattn/ctedash/internal/ingestion"
	"github.com/rpattn/ctedash/internal/logging"
	"github.com/rpattn/ctedash/internal/query"
	"github.com/rpattn/ctedash/internal/repository"
	"github.com/rpattn/ctedash/internal/server"

	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", ".", "directory holding config.yaml and .env")
	flag.Parse()

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger := logging.Setup(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	// Setup database connection
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer conn.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.Database); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Create repositories
	tenantStore := repository.NewTenantStore(conn)
	ledgerRepo := repository.NewLedgerRepository(conn)
	userRepo := repository.NewUserRepository(conn)
	logRepo := repository.NewIngestionLogRepository(conn.Pool)

	var summaries *cache.SummaryCache
	if cfg.Redis.Enabled {
		summaries, err = cache.Connect(ctx, cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer summaries.Close()
	}

	authService := auth.NewService(userRepo, tenantStore, auth.NewHasher(0), logging.Component("auth"))
	created, err := authService.Bootstrap(ctx, auth.NewUserRequest{
		Username: cfg.Admin.Username,
		Password: cfg.Admin.Password,
		Tenant:   cfg.Admin.Tenant,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to bootstrap administrator")
	}
	if created {
		logger.Info().Str("username", cfg.Admin.Username).Msg("bootstrap administrator created")
	}

	// A nil *cache.SummaryCache must not reach the services as a non-nil interface.
	var queryCache query.SummaryCache
	var invalidator ingestion.SummaryInvalidator
	if summaries != nil {
		queryCache = summaries
		invalidator = summaries
	}

	queryService := query.NewService(tenantStore, ledgerRepo, userRepo, queryCache, logging.Component("query"))
	router := server.NewRouter(server.Dependencies{
		Auth:           authService,
		Ingestion:      ingestion.NewService(tenantStore, ledgerRepo, logRepo, invalidator, logging.Component("ingestion")),
		Query:          queryService,
		Export:         export.NewService(queryService),
		Ledger:         ledgerRepo,
		Logger:         logging.Component("http"),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}
