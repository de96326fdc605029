package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"basegraph.app/crmsync/common/logger"
	"basegraph.app/crmsync/common/otel"
	"basegraph.app/crmsync/core/config"
	"basegraph.app/crmsync/internal/attio"
	"basegraph.app/crmsync/internal/metrics"
	"basegraph.app/crmsync/internal/queue"
	"basegraph.app/crmsync/internal/worker"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", banner)

	telemetry, err := otel.Setup(ctx, cfg)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)
	metrics.RegisterDefault()

	slog.InfoContext(ctx, "crmsync delivery worker starting",
		"env", cfg.Env,
		"stream", cfg.Redis.Stream,
		"consumer_group", cfg.Redis.Group,
		"consumer_name", cfg.Redis.Consumer)

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Redis.Stream)

	consumer, err := queue.NewRedisConsumer(ctx, redisClient, queue.ConsumerConfig{
		Stream:    cfg.Redis.Stream,
		Group:     cfg.Redis.Group,
		Consumer:  cfg.Redis.Consumer,
		BatchSize: 16,
		Block:     5 * time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	w := worker.New(consumer, attio.NewHTTPSender(cfg.Attio.DeliveryTimeout))

	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Run(ctx)
	}()

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.InfoContext(ctx, "received shutdown signal", "signal", sig)
		w.Stop()
	case err := <-errCh:
		if err != nil {
			slog.ErrorContext(ctx, "worker stopped with error", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

const banner = `
  ___ _ __ _ __ ___  ___ _   _ _ __   ___
 / __| '__| '_ ` + "`" + ` _ \/ __| | | | '_ \ / __|
| (__| |  | | | | | \__ \ |_| | | | | (__
 \___|_|  |_| |_| |_|___/\__, |_| |_|\___|
                         |___/   worker
`
