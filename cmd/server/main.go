package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"boardstack.app/workspace-service/common/id"
	"boardstack.app/workspace-service/common/logger"
	"boardstack.app/workspace-service/common/otel"
	"boardstack.app/workspace-service/core/config"
	"boardstack.app/workspace-service/core/db"
	"boardstack.app/workspace-service/internal/cache"
	"boardstack.app/workspace-service/internal/client"
	"boardstack.app/workspace-service/internal/events"
	"boardstack.app/workspace-service/internal/http/middleware"
	httprouter "boardstack.app/workspace-service/internal/http/router"
	"boardstack.app/workspace-service/internal/service"
	"boardstack.app/workspace-service/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "workspace service starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

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
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Events.Stream)

	cacheStore := cache.NewRedisStore(redisClient)
	workspaceCache := cache.NewWorkspaceCache(cacheStore, cfg.Cache.WorkspaceTTL)

	publisher := events.NewRedisPublisher(redisClient, cfg.Events.Stream, slog.Default())
	defer publisher.Close()

	authClient := client.NewAuthClient(cfg.Upstream.AuthURL, cfg.Upstream.Timeout)
	subscriptionClient := client.NewSubscriptionClient(cfg.Upstream.SubscriptionURL, cfg.Upstream.Timeout, cacheStore)
	roleClient := client.NewRoleClient(cfg.Upstream.RoleURL, cfg.Upstream.Timeout)
	profileClient := client.NewUserProfileClient(cfg.Upstream.UserProfileURL, cfg.Upstream.InternalAPIKey, cfg.Upstream.Timeout, cacheStore)

	workspaceStore := store.NewWorkspaceStore(database.Pool())
	services := service.NewServices(workspaceStore, workspaceCache, subscriptionClient, publisher)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services, httprouter.Dependencies{
		Auth:          authClient,
		Profiles:      profileClient,
		Subscriptions: subscriptionClient,
		Roles:         roleClient,
		DBPing:        database.Ping,
		RedisPing: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
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

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, services *service.Services, deps httprouter.Dependencies) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services, deps)

	return router
}
