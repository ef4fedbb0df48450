package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"captionstudio/internal/config"
	"captionstudio/internal/pkg/logger"
	"captionstudio/internal/pkg/shutdown"
	"captionstudio/internal/queue"
	"captionstudio/internal/render"
	"captionstudio/internal/repositories"
	"captionstudio/internal/util"
	"captionstudio/internal/worker"
)

func main() {
	log := logger.New(logger.Config{
		Level:       util.Env("LOG_LEVEL", "info"),
		Format:      util.Env("LOG_FORMAT", "json"),
		ServiceName: "captionstudio-worker",
		AddSource:   util.BoolEnv("LOG_SOURCE", false),
	})

	if err := config.LoadDotEnv(); err != nil {
		log.LogFatal("failed to load .env files", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.LogFatal("invalid configuration", err)
	}

	shutdownMgr := shutdown.NewManager(log, 30*time.Second)
	ctx := shutdownMgr.Context()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.LogFatal("failed to connect to PostgreSQL", err)
	}
	shutdownMgr.RegisterSimple("postgres", pool.Close)

	sessions := repositories.NewSessionRepository(pool)
	if err := sessions.EnsureSchema(ctx); err != nil {
		log.LogFatal("failed to create render_sessions schema", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	shutdownMgr.Register("redis", func(ctx context.Context) error {
		return rdb.Close()
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.LogFatal("failed to ping Redis", err)
	}

	deps := worker.Deps{
		Sessions: sessions,
		Queue:    queue.NewRedisQueue(rdb, cfg.QueueName),
		Render:   cfg.Render,
		Provider: render.NewHTTPProvider(cfg.Render),
		Log:      log,
	}

	stopped := make(chan struct{})
	shutdownMgr.Register("worker", func(ctx context.Context) error {
		select {
		case <-stopped:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	go func() {
		defer close(stopped)
		log.Info("render worker started",
			"queue", cfg.QueueName,
			"gateway", cfg.Render.GatewayURL,
		)
		if err := worker.Run(ctx, deps); err != nil {
			log.Error("worker stopped with error", "error", err.Error())
		}
	}()

	shutdownMgr.Wait(context.Background())
}
