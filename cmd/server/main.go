package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"basegraph.app/crmsync/common/id"
	"basegraph.app/crmsync/common/logger"
	"basegraph.app/crmsync/common/otel"
	"basegraph.app/crmsync/core/config"
	"basegraph.app/crmsync/core/db"
	"basegraph.app/crmsync/internal/attio"
	"basegraph.app/crmsync/internal/http/middleware"
	httprouter "basegraph.app/crmsync/internal/http/router"
	"basegraph.app/crmsync/internal/metrics"
	"basegraph.app/crmsync/internal/queue"
	"basegraph.app/crmsync/internal/service"
	"basegraph.app/crmsync/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)
	metrics.RegisterDefault()

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "crmsync starting",
		"env", cfg.Env,
		"service", cfg.OTel.ServiceName,
		"delivery_mode", cfg.Attio.DeliveryMode,
		"auth_mode", cfg.Attio.AuthMode)

	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	var database store.Database
	if cfg.DB.Enabled() {
		conn, err := db.New(ctx, cfg.DB)
		if err != nil {
			slog.ErrorContext(ctx, "failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer conn.Close()
		if err := conn.EnsureSchema(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to apply schema", "error", err)
			os.Exit(1)
		}
		database = store.NewPostgresStore(conn)
		slog.InfoContext(ctx, "database connected")
	} else {
		database = store.NewMemoryStore()
		slog.WarnContext(ctx, "DATABASE_URL not set, using in-memory store")
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build adapter registry", "error", err)
		os.Exit(1)
	}
	for _, a := range registry.Adapters() {
		meta := a.Meta()
		slog.InfoContext(ctx, "attio adapter registered", "local_model", meta.LocalModel, "external_object", meta.ExternalObject)
	}

	sender, scheduler, closeSender, err := buildSender(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to set up delivery", "error", err)
		os.Exit(1)
	}
	defer closeSender()

	// The reconciler and dispatcher work on the raw store; only local writes made through the
	// services go through the hooked store and are announced to the dispatcher.
	hooked := store.NewHookedStore(database)
	var dispatcherOpts []attio.DispatcherOption
	if scheduler != nil {
		dispatcherOpts = append(dispatcherOpts, attio.WithScheduler(scheduler))
	}
	dispatcher := attio.NewDispatcher(registry, database, store.NewStores(database).Endpoints(), sender, dispatcherOpts...)
	hooked.OnMutation(dispatcher.OnMutation)
	reconciler := attio.NewReconciler(registry, database, dispatcher)

	services := service.NewServices(store.NewStores(hooked), service.NewTxRunner(hooked), reconciler, cfg.Attio)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services, registry)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if scheduler != nil {
		if err := scheduler.Drain(shutdownCtx); err != nil {
			slog.WarnContext(shutdownCtx, "background deliveries still running at shutdown", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func buildRegistry(cfg config.Config) (*attio.Registry, error) {
	builtins := attio.Builtins(attio.Features{Organizations: cfg.Features.Organizations})
	if !cfg.Attio.MappingsEnabled() {
		return attio.NewRegistry(builtins)
	}

	mappings, err := attio.LoadMappings(cfg.Attio.MappingsFile)
	if err != nil {
		return nil, err
	}
	return attio.NewRegistry(builtins, attio.MappedAdapters(mappings)...)
}

// buildSender picks the delivery transport. The scheduler is non-nil only in background mode
// and must be drained on shutdown.
func buildSender(ctx context.Context, cfg config.Config) (attio.Sender, *attio.GoScheduler, func(), error) {
	switch cfg.Attio.DeliveryMode {
	case config.DeliveryModeQueue:
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("parsing redis url: %w", err)
		}
		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		slog.InfoContext(ctx, "redis connected", "stream", cfg.Redis.Stream)

		producer := queue.NewRedisProducer(redisClient, cfg.Redis.Stream, slog.Default())
		return producer, nil, func() { _ = producer.Close() }, nil
	case config.DeliveryModeBackground:
		return attio.NewHTTPSender(cfg.Attio.DeliveryTimeout), attio.NewGoScheduler(), func() {}, nil
	default:
		return attio.NewHTTPSender(cfg.Attio.DeliveryTimeout), nil, func() {}, nil
	}
}

func setupRouter(cfg config.Config, services *service.Services, registry *attio.Registry) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	httprouter.SetupRoutes(router, services, registry, httprouter.RouterConfig{
		AdminAPIKey:  cfg.AdminAPIKey,
		InboundRPS:   cfg.Attio.InboundRPS,
		InboundBurst: cfg.Attio.InboundBurst,
	})

	return router
}

const banner = `
  ___ _ __ _ __ ___  ___ _   _ _ __   ___
 / __| '__| '_ ` + "`" + ` _ \/ __| | | | '_ \ / __|
| (__| |  | | | | | \__ \ |_| | | | | (__
 \___|_|  |_| |_| |_|___/\__, |_| |_|\___|
                         |___/   server
`
