package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/quantalink/qnet-gateway/internal/config"
	"github.com/quantalink/qnet-gateway/internal/logging"
	"github.com/quantalink/qnet-gateway/internal/server"
	"github.com/quantalink/qnet-gateway/internal/storage"
	"go.uber.org/zap"
)

func main() {
	// Load env if it exists
	godotenv.Load()

	cfg, err := config.Load("config.json")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	var redis *storage.RedisClient
	if cfg.Redis.Enabled {
		redis, err = storage.NewRedis(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redis.Close()
		logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr()))
	}

	var postgres *storage.Postgres
	if cfg.Postgres.DSN != "" {
		postgres, err = storage.NewPostgres(cfg.Postgres.DSN)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer postgres.Close()

		if err := postgres.AutoMigrate(); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		logger.Info("connected to postgres")
	}

	srv := server.New(cfg, logger, redis, postgres)

	go func() {
		addr := ":" + cfg.Server.Port
		if err := srv.Run(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}

	logger.Info("gateway exited")
}
