// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/tombola/internal/cache"
	"github.com/jason-s-yu/tombola/internal/clock"
	"github.com/jason-s-yu/tombola/internal/config"
	"github.com/jason-s-yu/tombola/internal/handlers"
	"github.com/jason-s-yu/tombola/internal/room"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := room.Options{
		Clock:           clock.Real(),
		VerifyClaims:    cfg.VerifyClaims,
		AutoResumeDelay: cfg.AutoResumeDelay,
	}

	var publisher *cache.Publisher
	if cfg.RedisAddr != "" {
		publisher = cache.NewPublisher(cfg.RedisAddr, cfg.RedisDB, cfg.QueueName, cfg.PublishTTL, logger)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := publisher.Ping(pingCtx); err != nil {
			logger.Warnf("redis at %s not reachable, actions will be dropped until it is: %v", cfg.RedisAddr, err)
		}
		cancel()
		opts.Recorder = publisher
	} else {
		logger.Info("REDIS_ADDR not set, room history is not recorded")
	}

	srv := handlers.NewRoomServer(opts, logger)
	srv.OriginPatterns = cfg.AllowedOrigins
	srv.MessageRate = cfg.MessageRate
	srv.MessageBurst = cfg.MessageBurst

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Running on %s", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		srv.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if publisher != nil {
		if cerr := publisher.Close(); cerr != nil {
			logger.Warnf("closing redis publisher: %v", cerr)
		}
	}
	if err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}
