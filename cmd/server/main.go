package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aryan0dhankhar/teamspace/internal/app"
	"github.com/aryan0dhankhar/teamspace/internal/handler"
	"github.com/aryan0dhankhar/teamspace/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/teamspace/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/teamspace/internal/observability/metrics"
	"github.com/aryan0dhankhar/teamspace/internal/observability/tracing"
	"github.com/aryan0dhankhar/teamspace/internal/reliability/circuitbreaker"
	"github.com/aryan0dhankhar/teamspace/internal/security/audit"
	"github.com/aryan0dhankhar/teamspace/internal/security/ratelimit"
	"github.com/aryan0dhankhar/teamspace/pkg/config"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting teamspace server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing
	shutdownTracing, err := tracing.Init(ctx, log, cfg.OTLPEndpoint, "teamspace", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracing shutdown failed", slog.String("error", err.Error()))
		}
	}()

	// 4. Database
	pool, err := app.OpenDatabase(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Migrate(ctx); err != nil {
		log.Error("failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	checks := map[string]handler.Pinger{"database": pool}

	// 5. Redis
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
		checks["redis"] = redisClient
	}

	// 6. Repositories and services
	svc := app.NewServices(pool.Gorm(), cfg, log)

	// 7. Security components
	localLimiter := ratelimit.NewMemoryLimiter(cfg.RateLimitPerMinute, time.Minute)
	defer localLimiter.Stop()

	var remoteLimiter *ratelimit.RedisLimiter
	if redisClient != nil {
		remoteLimiter = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimitPerMinute, time.Minute)
	}
	breaker := circuitbreaker.New("ratelimit_redis", circuitbreaker.DefaultConfig(), log)
	breaker.OnStateChange(func(name string, _, to circuitbreaker.State) {
		metrics.SetBreakerState(name, int(to))
	})
	limiter := ratelimit.NewGuarded(remoteLimiter, localLimiter, breaker, log)
	auditLogger := audit.NewLogger(log)

	// 8. Handlers and routes
	router := handler.NewRouter(handler.RouterDeps{
		Auth:        handler.NewAuthHandler(svc.Auth, log),
		Tenants:     handler.NewTenantHandler(svc.Teams, app.TeamDefaults(cfg.Team), log),
		Dialogs:     handler.NewDialogHandler(svc.Dialogs, log),
		Health:      handler.NewHealthHandler(checks, log),
		Tokens:      svc.Tokens,
		Limiter:     limiter,
		Audit:       auditLogger,
		CORSOrigins: cfg.CORSAllowedOrigins,
		Logger:      log,
	})

	// 9. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      otelhttp.NewHandler(router, "teamspace"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.Bool("redis", redisClient != nil),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.String("rate_limit_window", "1m"),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", slog.String("error", err.Error()))
			sigChan <- syscall.SIGTERM
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}
	cancel()
	log.Info("server stopped")
}
