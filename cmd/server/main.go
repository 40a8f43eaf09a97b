package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vncsmyrnk/accounts/internal/adapters/handler/http"
	"github.com/vncsmyrnk/accounts/internal/adapters/password"
	"github.com/vncsmyrnk/accounts/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/accounts/internal/adapters/throttle"
	"github.com/vncsmyrnk/accounts/internal/adapters/token/jwt"
	"github.com/vncsmyrnk/accounts/internal/config"
	"github.com/vncsmyrnk/accounts/internal/core/ports"
	"github.com/vncsmyrnk/accounts/internal/core/services"
	"github.com/vncsmyrnk/accounts/internal/logging"
)

// @title                       Accounts API
// @version                     1.0
// @description                 User accounts and token authentication.
// @BasePath                    /api
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Access token as `Bearer <token>`.
func main() {
	migrate := flag.Bool("migrate", false, "apply pending migrations before serving")
	flag.Parse()

	if err := run(*migrate); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, closer, err := logging.New(logging.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer closer.Close()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DSN(), postgres.DefaultPoolConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	if migrate {
		if err := postgres.Migrate(ctx, db.DB); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	throttler, closeRedis := newThrottler(ctx, cfg, logger)
	defer closeRedis()

	hasher, err := password.NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}
	codec, err := jwt.NewCodec([]byte(cfg.JWTSecret), cfg.JWTIssuer)
	if err != nil {
		return err
	}
	sameSite, err := cfg.SameSite()
	if err != nil {
		return err
	}

	userRepo := postgres.NewUserRepository(db)
	revocationRepo := postgres.NewRevocationRepository(db)
	entityRepo := postgres.NewEntityRepository(db)

	authService := services.NewAuthService(userRepo, revocationRepo, hasher, codec, throttler, logger.Named("auth"),
		services.AuthServiceConfig{
			AccessTokenTTL:  cfg.AccessTokenTTL,
			RefreshTokenTTL: cfg.RefreshTokenTTL,
		})
	userService := services.NewUserService(userRepo, hasher, logger.Named("users"))
	entityService := services.NewEntityService(entityRepo)
	sweeper := services.NewRevocationSweeper(revocationRepo, logger.Named("sweeper"), services.SweeperConfig{
		Interval: cfg.SweepInterval,
		Timeout:  cfg.SweepTimeout,
	})

	httpLogger := logger.Named("http")
	handler := http.NewHandler(
		http.NewAuthHandler(authService, http.CookieConfig{Secure: cfg.CookieSecure, SameSite: sameSite}, httpLogger),
		http.NewUserHandler(userService, authService, httpLogger),
		http.NewEntityHandler(entityService, httpLogger),
		codec,
		http.RouterConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			RequestTimeout: cfg.RequestTimeout,
			RateLimiter:    http.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst),
			Health:         db,
			Logger:         httpLogger,
		},
	)
	server := &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.RequestTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("gracefully shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newThrottler returns the Redis-backed login throttler, or a no-op one when
// REDIS_ADDR is unset.
func newThrottler(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.LoginThrottler, func()) {
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set, login throttling disabled")
		return throttle.Noop{}, func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable at startup, throttle checks will fail open", zap.Error(err))
	}
	throttler := throttle.NewRedisThrottler(client, throttle.Config{
		MaxAttempts: cfg.LoginMaxAttempts,
		Cooldown:    cfg.LoginCooldown,
	})
	return throttler, func() { _ = client.Close() }
}
