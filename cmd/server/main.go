package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/example/twiller/internal/clock"
	"github.com/example/twiller/internal/config"
	"github.com/example/twiller/internal/database"
	"github.com/example/twiller/internal/logging"
	"github.com/example/twiller/internal/otp"
	"github.com/example/twiller/internal/repository"
	"github.com/example/twiller/internal/routes"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	clk := clock.System{}
	stores := buildStores(cfg, clk, logger)

	app := routes.NewApp(routes.NewDeps(cfg, stores, clk, logger), cfg)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		logger.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("starting server",
		zap.String("port", cfg.AppPort),
		zap.String("storage", cfg.StorageBackend),
		zap.String("otp_store", cfg.OTPBackend),
		zap.Bool("quota_fail_open", cfg.QuotaFailOpen))
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		logger.Fatal("fiber.Listen error", zap.Error(err))
	}
}

func buildStores(cfg *config.Config, clk clock.Clock, logger *zap.Logger) routes.Stores {
	var stores routes.Stores

	switch cfg.StorageBackend {
	case config.BackendMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		mem := repository.NewMemoryStore()
		stores.Accounts = mem
		stores.Subscriptions = mem
		stores.Tweets = mem
		stores.Logins = mem
	default:
		db := database.Connect(cfg.DatabaseURL, cfg.IsProduction(), logger)
		stores.Accounts = repository.NewAccountRepository(db)
		stores.Subscriptions = repository.NewSubscriptionRepository(db)
		stores.Tweets = repository.NewTweetRepository(db)
		stores.Logins = repository.NewLoginHistoryRepository(db)
	}

	switch cfg.OTPBackend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		stores.OTP = otp.NewRedisStore(client, clk)
	default:
		stores.OTP = otp.NewMemoryStore()
	}

	return stores
}
