package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
)

// Store drivers.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver          string
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
}

// Store is an open run-history database.
type Store struct {
	drv     *entsql.Driver
	pool    *pgxpool.Pool // postgres only
	dialect string
	logger  *slog.Logger
}

// Open connects to the configured database. SQLite goes through
// modernc.org/sqlite; Postgres through a pgx pool wrapped as *sql.DB.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case DriverSQLite:
		logger.Info("opening sqlite store", "dsn", cfg.DSN)
		db, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			logger.Error("failed to open sqlite store", "error", err)
			return nil, storageError("open sqlite", err)
		}
		// one writer; in-memory databases are per connection
		db.SetMaxOpenConns(1)
		return &Store{drv: entsql.OpenDB(dialect.SQLite, db), dialect: dialect.SQLite, logger: logger}, nil

	case DriverPostgres:
		logger.Info("connecting to database", "driver", cfg.Driver)
		pc, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			logger.Error("failed to parse database dsn", "error", err)
			return nil, storageError("parse dsn", err)
		}
		if cfg.MaxConns > 0 {
			pc.MaxConns = cfg.MaxConns
		}
		if cfg.MinConns > 0 {
			pc.MinConns = cfg.MinConns
		}
		if cfg.MaxConnLifetime > 0 {
			pc.MaxConnLifetime = cfg.MaxConnLifetime
		}
		pc.ConnConfig.RuntimeParams["application_name"] = "invoice-ocr"

		dialCtx, cancel := common.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
		pool, err := pgxpool.NewWithConfig(dialCtx, pc)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			return nil, storageError("connect", err)
		}
		// Wrap pool as *sql.DB for the ent SQL driver
		db := stdlib.OpenDBFromPool(pool)
		logger.Info("successfully connected to database")
		return &Store{drv: entsql.OpenDB(dialect.Postgres, db), pool: pool, dialect: dialect.Postgres, logger: logger}, nil

	default:
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unsupported store driver %q", cfg.Driver), common.ErrInvalidInput)
	}
}

// Dialect returns the ent dialect name.
func (s *Store) Dialect() string { return s.dialect }

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.drv.DB() }

// Close closes the database connections gracefully
func (s *Store) Close() error {
	s.logger.Info("closing database connections")
	err := s.drv.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	if err != nil {
		s.logger.Error("failed to close database", "error", err)
		return err
	}
	s.logger.Info("database connections closed")
	return nil
}

// HealthCheck pings the database to catch DSN issues early.
func (s *Store) HealthCheck(ctx context.Context, timeout time.Duration) error {
	s.logger.Debug("pinging database")
	ctx, cancel := common.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.DB().PingContext(ctx); err != nil {
		return storageError("ping", err)
	}
	s.logger.Debug("database ping successful")
	return nil
}

func storageError(op string, err error) error {
	return common.NewAppError(common.CodeStorage, op, fmt.Errorf("%w: %w", common.ErrStorage, err))
}
