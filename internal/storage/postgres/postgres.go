// Package postgres stores arena accounts and battle reports in PostgreSQL
// through pgx v5.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/server"
)

const (
	connectAttempts = 5
	connectBackoff  = 500 * time.Millisecond
)

// Store is a connection pool plus the repositories that share it.
type Store struct {
	pool     *pgxpool.Pool
	logger   *zap.Logger
	Accounts *AccountRepository
	Reports  *ReportRepository
}

// Open connects to the database described by cfg. The first ping is retried
// with doubling backoff so the server can start alongside its database.
//
// Precondition: cfg must pass config validation; logger must be non-nil.
// Postcondition: Returns a Store whose pool answered a ping, or an error.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	wait := connectBackoff
	for attempt := 1; ; attempt++ {
		err = pool.Ping(ctx)
		if err == nil {
			break
		}
		if attempt == connectAttempts {
			pool.Close()
			return nil, fmt.Errorf("pinging database after %d attempts: %w", attempt, err)
		}
		logger.Warn("database not ready, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		select {
		case <-time.After(wait):
			wait *= 2
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		}
	}

	return &Store{
		pool:     pool,
		logger:   logger,
		Accounts: NewAccountRepository(pool),
		Reports:  NewReportRepository(pool),
	}, nil
}

// Ping checks that the database answers within timeout.
func (s *Store) Ping(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Pool exposes the pgx pool for ad hoc queries in tests and tools.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Close releases every connection. The Store is unusable afterwards.
func (s *Store) Close() { s.pool.Close() }

// Monitor returns a lifecycle service that pings the database every interval
// and logs failures. Stopping it closes the Store.
func (s *Store) Monitor(interval time.Duration) server.Service {
	stop := make(chan struct{})
	return &server.FuncService{
		StartFn: func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := s.Ping(context.Background(), 5*time.Second); err != nil {
						s.logger.Warn("database health check failed", zap.Error(err))
					}
				case <-stop:
					return nil
				}
			}
		},
		StopFn: func() {
			close(stop)
			s.Close()
		},
	}
}
