// Package main is the entry point for the farmastok sweeper: a background
// process that force-submits overdue stock-count tasks and prunes expired
// refresh tokens on an interval.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"farmastok/internal/domain/opname"
	"farmastok/internal/infrastructure/storage/postgres"
	"farmastok/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting farmastok sweeper")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)
	opnameRepo := postgres.NewOpnameRepo(txManager)
	batchRepo := postgres.NewBatchRepo(txManager)
	catalogRepo := postgres.NewCatalogRepo(txManager)
	tokenRepo := postgres.NewTokenRepo(txManager)
	opnameService := opname.NewService(opnameRepo, batchRepo, catalogRepo, txManager)

	interval := getEnvDuration("SWEEP_INTERVAL", 15*time.Minute)
	sweeper := &Sweeper{
		opname:   opnameService,
		tokens:   tokenRepo,
		log:      log,
		interval: interval,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down sweeper...")
	cancel()

	wg.Wait()
	log.Info("sweeper stopped")
}

// Sweeper runs the periodic maintenance passes.
type Sweeper struct {
	opname   *opname.Service
	tokens   interface {
		CleanupExpiredTokens(ctx context.Context) (int, error)
	}
	log      *logger.Logger
	interval time.Duration
}

// Run sweeps on the configured interval until the context is cancelled.
// One pass runs immediately at startup so overdue tasks surface without
// waiting a full interval.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	swept, err := s.opname.SweepOverdue(ctx, time.Now())
	if err != nil {
		s.log.Errorw("overdue task sweep failed", "error", err)
	} else if swept > 0 {
		s.log.Infow("overdue tasks auto-submitted", "tasks", swept)
	}

	removed, err := s.tokens.CleanupExpiredTokens(ctx)
	if err != nil {
		s.log.Errorw("token cleanup failed", "error", err)
	} else if removed > 0 {
		s.log.Infow("expired refresh tokens removed", "tokens", removed)
	}
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
