// Package main is the entry point for the visualeyes API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"visualeyes/internal/core/ratelimit"
	"visualeyes/internal/domain/catalog"
	"visualeyes/internal/domain/customer"
	"visualeyes/internal/domain/identity"
	v1 "visualeyes/internal/infrastructure/http/v1"
	"visualeyes/internal/infrastructure/storage/postgres"
	"visualeyes/internal/notify"
	"visualeyes/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting visualeyes server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	go func() {
		ticker := time.NewTicker(getEnvDuration("POOL_STATS_INTERVAL", time.Minute))
		defer ticker.Stop()
		for range ticker.C {
			postgres.LogPoolStats(ctx, pool.Pool)
		}
	}()

	txManager := postgres.NewTxManager(pool)

	// --- Repositories ---
	employeeRepo := postgres.NewEmployeeRepo(txManager)
	customerRepo := postgres.NewCustomerRepo(txManager)
	catalogRepo := postgres.NewCatalogRepo(txManager)

	auditStore, err := postgres.NewAuditStore(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit store", "error", err)
	}

	// --- Notifications ---
	var notifier notify.Notifier
	if amqpURL := os.Getenv("AMQP_URL"); amqpURL != "" {
		publisher, err := notify.NewAMQPPublisher(amqpURL)
		if err != nil {
			log.Fatalw("failed to connect to message broker", "error", err)
		}
		defer publisher.Close()
		notifier = publisher
		log.Info("notification publisher connected")
	} else {
		notifier = notify.LogNotifier{}
		log.Warn("AMQP_URL not set, notifications will only be logged")
	}

	// --- Rate limiter ---
	limiterCfg := ratelimit.Config{
		Attempts: getEnvInt("LOGIN_RATE_ATTEMPTS", 10),
		Window:   getEnvDuration("LOGIN_RATE_WINDOW", 15*time.Minute),
	}
	var limiter ratelimit.Limiter
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatalw("invalid REDIS_URL", "error", err)
		}
		limiter = ratelimit.NewRedisLimiter(redis.NewClient(opts), limiterCfg)
		log.Info("rate limiter backed by redis")
	} else {
		limiter = ratelimit.NewMemoryLimiter(limiterCfg)
		log.Warn("REDIS_URL not set, rate limiting is per-process only")
	}

	// --- Tokens ---
	tokenConfig := identity.DefaultTokenConfig(mustEnv("JWT_SECRET"))
	if ttl := getEnvDuration("ACCESS_TOKEN_TTL", 0); ttl > 0 {
		tokenConfig.AccessTokenTTL = ttl
	}
	if ttl := getEnvDuration("REFRESH_TOKEN_TTL", 0); ttl > 0 {
		tokenConfig.RefreshTokenTTL = ttl
	}
	tokenService := identity.NewTokenService(tokenConfig)

	// --- Domain services ---
	resolver := identity.NewResolver()

	identityService := identity.NewService(
		employeeRepo,
		txManager,
		tokenService,
		resolver,
		notifier,
		auditStore,
		identity.DefaultServiceConfig(),
	)

	customerService := customer.NewService(
		customerRepo,
		employeeRepo,
		txManager,
		tokenService,
		resolver,
		notifier,
		auditStore,
		customer.DefaultServiceConfig(),
	)

	catalogService := catalog.NewService(catalogRepo, catalogRepo, resolver)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:            pool,
		Logger:          log,
		TokenVerifier:   tokenService,
		IdentityService: identityService,
		CustomerService: customerService,
		CatalogService:  catalogService,
		LoginLimiter:    limiter,
		AuditHistory:    auditStore,
		Resolver:        resolver,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
