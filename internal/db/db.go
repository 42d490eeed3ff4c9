package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PoolSize bounds the connection pool. Zero values keep the pgx defaults.
type PoolSize struct {
	MaxConns int32
	MinConns int32
}

// Connect opens a pgx pool and verifies it with a ping.
func Connect(ctx context.Context, dbURL string, size PoolSize) (*pgxpool.Pool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	if size.MaxConns > 0 {
		config.MaxConns = size.MaxConns
	}
	if size.MinConns > 0 && size.MinConns <= config.MaxConns {
		config.MinConns = size.MinConns
	}
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	zap.L().Info("database pool ready",
		zap.String("database", config.ConnConfig.Database),
		zap.Int32("max_conns", config.MaxConns),
		zap.Int32("min_conns", config.MinConns),
	)
	return pool, nil
}
