// cmd/historian/main.go is an asynchronous historian service that pops room
// actions from a Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/tombola/internal/config"
	"github.com/jason-s-yu/tombola/internal/database"
	"github.com/jason-s-yu/tombola/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetLevel(cfg.LogLevel)

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}
	redisAddr := cfg.RedisAddr
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Fatalf("database: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr, DB: cfg.RedisDB})
	defer rdb.Close()

	svc := historian.NewService(rdb, database.NewActionStore(pool), historian.Options{
		Queue:      cfg.QueueName,
		BatchSize:  cfg.HistorianBatchSize,
		FlushDelay: cfg.HistorianFlush,
		Inactivity: cfg.HistorianInactivity,
	}, logger)

	if err := svc.Run(ctx); err != nil {
		logger.Errorf("historian exited: %v", err)
	}
}
