package di

import (
	"context"
	"fmt"
	"time"

	"user-auth-service/cmd/api/infrastructure"
	"user-auth-service/internal/adapter/cache"
	"user-auth-service/internal/adapter/db/postgres"
	ginhandler "user-auth-service/internal/adapter/gin/handler"
	ginrouter "user-auth-service/internal/adapter/gin/router"
	grpcadapter "user-auth-service/internal/adapter/grpc"
	"user-auth-service/internal/adapter/grpc/middleware"
	"user-auth-service/internal/adapter/repository/cached"
	openweather "user-auth-service/internal/adapter/weather"
	"user-auth-service/internal/config"
	"user-auth-service/internal/usecase/auth"
	"user-auth-service/internal/usecase/user"
	"user-auth-service/internal/usecase/weather"
	"user-auth-service/internal/usecase/webhook"
	redisclient "user-auth-service/pkg/redis"
	"user-auth-service/pkg/security"
	"user-auth-service/pkg/token"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *gorm.DB
	Store       *postgres.UserStore
	RedisClient *redisclient.Client
	Tokens      *token.Service
	UserUC      user.Usecase
	AuthUC      *auth.Usecase
	RateLimiter *middleware.RateLimiter
	Handlers    ginrouter.Handlers
	TokenServer *grpcadapter.TokenServer
}

// NewContainer creates and initializes all application dependencies
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (_ *Container, err error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	c := &Container{Config: cfg, Logger: l}
	defer func() {
		if err != nil {
			err = multierr.Append(err, c.Close())
		}
	}()

	// Initialize database
	c.DB, err = infrastructure.NewDatabase(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	c.Store = postgres.NewUserStore(c.DB, time.Duration(cfg.DB.StoreTimeoutSeconds)*time.Second, l)
	if err = c.Store.Migrate(ctx); err != nil {
		return nil, err
	}

	// Initialize Redis client
	c.RedisClient, err = infrastructure.NewRedisClient(ctx, cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	c.Tokens, err = token.NewService(
		cfg.Auth.JWTSecret,
		cfg.Auth.JWTAlgorithm,
		time.Duration(cfg.Auth.AccessTokenExpireMinutes)*time.Minute,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	// Initialize cache layer
	userCache := cache.NewRedisUserCache(c.RedisClient.Client, time.Duration(cfg.Redis.CacheTTL)*time.Second, l)
	weatherCache := cache.NewRedisWeatherCache(c.RedisClient.Client, time.Duration(cfg.Weather.CacheTTLSeconds)*time.Second, l)
	ledger := cache.NewRedisEventLedger(c.RedisClient.Client, time.Duration(cfg.Webhook.DedupTTLSeconds)*time.Second)

	// Initialize repository
	repo := cached.NewCachedUserRepository(c.Store, userCache, l)

	// Initialize use cases
	hasher := security.NewArgon2Hasher(security.Argon2Params{
		MemoryKiB:  uint32(cfg.Password.MemoryKiB),
		Iterations: uint32(cfg.Password.Iterations),
		Threads:    uint8(cfg.Password.Threads),
	})
	c.UserUC = user.New(repo, l)
	c.AuthUC = auth.New(repo, hasher, c.Tokens, l)
	weatherUC := weather.New(openweather.NewClient(openweather.Config{
		BaseURL: cfg.Weather.BaseURL,
		APIKey:  cfg.Weather.APIKey,
		Timeout: time.Duration(cfg.Weather.TimeoutSeconds) * time.Second,
	}, l), weatherCache, l)
	webhookUC := webhook.New(cfg.Webhook.Secret, ledger, l)

	// Initialize rate limiter
	c.RateLimiter = middleware.NewRateLimiter(
		c.RedisClient.Client,
		middleware.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstCapacity:     cfg.RateLimit.BurstCapacity,
			WindowSeconds:     cfg.RateLimit.WindowSeconds,
			Enabled:           cfg.RateLimit.Enabled,
		},
		l,
	)

	// Initialize transport handlers
	deps := map[string]ginhandler.Pinger{
		"database": c.Store,
		"redis":    c.RedisClient,
	}
	c.Handlers = ginrouter.Handlers{
		User:     ginhandler.NewUserHandler(c.UserUC, l),
		Auth:     ginhandler.NewAuthHandler(c.AuthUC, l),
		External: ginhandler.NewExternalHandler(weatherUC, webhookUC, cfg.Webhook.MaxBodyBytes, l),
		Health:   ginhandler.NewHealthHandler(cfg.Logger.ServiceName, deps, l),
	}
	c.TokenServer = grpcadapter.NewTokenServer(c.Tokens, l)

	return c, nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var err error

	// Close Redis connection
	if c.RedisClient != nil {
		if cerr := c.RedisClient.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to close Redis: %w", cerr))
		}
	}

	// Close database connection
	if c.DB != nil {
		if cerr := infrastructure.CloseDatabase(c.DB); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to close database: %w", cerr))
		}
	}

	return err
}
