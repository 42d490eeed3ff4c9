package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ayo6706/fcy-position/internal/api"
	"github.com/ayo6706/fcy-position/internal/api/middleware"
	"github.com/ayo6706/fcy-position/internal/config"
	"github.com/ayo6706/fcy-position/internal/db"
	"github.com/ayo6706/fcy-position/internal/idempotency"
	"github.com/ayo6706/fcy-position/internal/observability"
	"github.com/ayo6706/fcy-position/internal/repository"
	"github.com/ayo6706/fcy-position/internal/service"
	"github.com/ayo6706/fcy-position/internal/worker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Run bootstraps the HTTP server and background workers, blocking until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()
	middleware.SetJWTSecret(cfg.JWTSecret)
	middleware.SetJWTValidation(cfg.JWTIssuer, cfg.JWTAudience)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.RunMigrations {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL, db.PoolSize{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	redisClient, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	idemStore := idempotency.NewStore(redisClient, repository.New(pool), cfg.IdempotencyTTL)
	svcs, correspondent := buildServices(cfg, repository.NewStore(pool), redisClient)
	stopWorkers := startWorkers(ctx, cfg, correspondent, idemStore)

	router := api.NewRouter(cfg, logger, pool, redisClient, idemStore, svcs)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort), zap.String("base_currency", cfg.BaseCurrency))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("stopping workers")
	stopWorkers()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

// buildServices wires the engine services over one store. The correspondent
// service is returned separately for the limit sweep worker.
func buildServices(cfg *config.Config, store *repository.Store, cache redis.Cmdable) (api.Services, *service.CorrespondentService) {
	opts := service.Options{
		BaseCurrency:     cfg.BaseCurrency,
		CashItemCode:     cfg.CashItemCode,
		DueFromBanksCode: cfg.DueFromBanksCode,
		DueToBanksCode:   cfg.DueToBanksCode,
		CapitalFallback:  cfg.CapitalFallback,
		CashCoverTopN:    cfg.CashCoverTopN,
	}
	audit := service.NewAuditService()
	capital := service.NewCapitalService(store, audit, opts)
	rates := service.NewExchangeRateService(store, cache, cfg.RateCacheTTL)
	correspondent := service.NewCorrespondentService(store, audit, opts)
	return api.Services{
		Ledger:        service.NewLedgerService(store, audit),
		Transactions:  service.NewTransactionService(store, audit, opts),
		Positions:     service.NewPositionService(store, rates, capital, opts),
		Capital:       capital,
		Rates:         rates,
		Correspondent: correspondent,
		Alerts:        service.NewAlertService(store, audit),
	}, correspondent
}

// startWorkers launches the periodic limit sweep and idempotency purge and
// returns a func that stops both.
func startWorkers(ctx context.Context, cfg *config.Config, sweeper worker.LimitSweeper, purger worker.KeyPurger) func() {
	sweep := worker.NewLimitSweepWorker(sweeper).WithInterval(cfg.LimitSweepInterval)
	purge := worker.NewIdempotencyPurgeWorker(purger)
	stopSweep := sweep.Run(ctx)
	stopPurge := purge.Run(ctx)
	zap.L().Info("workers started", zap.Duration("limit_sweep_interval", cfg.LimitSweepInterval))
	return func() {
		stopSweep()
		stopPurge()
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
