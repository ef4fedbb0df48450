package main

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"captionstudio/internal/adapters/storage/localfs"
	"captionstudio/internal/config"
	"captionstudio/internal/httpapi"
	"captionstudio/internal/httpapi/handlers"
	"captionstudio/internal/pkg/logger"
	"captionstudio/internal/pkg/shutdown"
	"captionstudio/internal/queue"
	"captionstudio/internal/render"
	"captionstudio/internal/repositories"
	"captionstudio/internal/storage"
	"captionstudio/internal/transcribe"
	"captionstudio/internal/util"
)

func main() {
	// Initialize logger
	log := logger.New(logger.Config{
		Level:       util.Env("LOG_LEVEL", "info"),
		Format:      util.Env("LOG_FORMAT", "json"),
		ServiceName: "captionstudio-api",
		AddSource:   util.BoolEnv("LOG_SOURCE", false),
	})

	log.Info("starting caption studio API",
		"version", "0.1.0",
	)

	// Load configuration
	if err := config.LoadDotEnv(); err != nil {
		log.LogFatal("failed to load .env files", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.LogFatal("invalid configuration", err)
	}

	ctx := context.Background()

	// Initialize shutdown manager
	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	// Connect to PostgreSQL
	log.Info("connecting to PostgreSQL")
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.LogFatal("failed to connect to PostgreSQL", err)
	}
	shutdownMgr.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	// Verify PostgreSQL connection
	if err := pool.Ping(ctx); err != nil {
		log.LogFatal("failed to ping PostgreSQL", err)
	}
	sessions := repositories.NewSessionRepository(pool)
	if err := sessions.EnsureSchema(ctx); err != nil {
		log.LogFatal("failed to create render_sessions schema", err)
	}
	log.Info("PostgreSQL connected")

	// Connect to Redis
	log.Info("connecting to Redis")
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	shutdownMgr.Register("redis", func(ctx context.Context) error {
		return rdb.Close()
	})

	// Verify Redis connection
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.LogFatal("failed to ping Redis", err)
	}
	log.Info("Redis connected")

	// Initialize storage provider
	log.Info("initializing storage provider")
	sp, err := storage.NewProvider(ctx, cfg.Storage, cfg.HTTP.PublicBaseURL)
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}
	log.Info("storage provider initialized", "provider", sp.Provider())

	// Render and transcription clients
	renderProvider := render.NewHTTPProvider(cfg.Render)
	transcriber := transcribe.NewService(
		transcribe.NewClient(cfg.Transcription.BaseURL, cfg.Transcription.APIKey),
		cfg.Transcription.APIKey,
		cfg.HTTP.PublicBaseURL,
		log,
	)

	// Create HTTP router
	router := httpapi.NewRouter(httpapi.Deps{
		Deps: handlers.Deps{
			Sessions:    sessions,
			Queue:       queue.NewRedisQueue(rdb, cfg.QueueName),
			Storage:     sp,
			Videos:      localfs.New(cfg.Storage.UploadDir, cfg.HTTP.PublicBaseURL),
			Transcriber: transcriber,
			Submitter:   render.NewSubmitter(cfg.Render, renderProvider, log),
			Poller:      render.NewPoller(cfg.Render, renderProvider, log),
			Log:         log,
		},
		CORSOrigins: cfg.HTTP.CORSOrigins,
	})

	// Create HTTP server. Transcription waits on the provider inside the
	// request, so writes get a generous timeout.
	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Register server shutdown
	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	// Start server in goroutine
	go func() {
		log.Info("HTTP server listening",
			"addr", server.Addr,
			"port", cfg.HTTP.Port,
			"public_base_url", cfg.HTTP.PublicBaseURL,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	// Wait for shutdown signal
	shutdownMgr.Wait(ctx)
}
