// Package postgres implements the loan storage ports on PostgreSQL using a
// pgx connection pool and goqu-built statements.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // registers the dialect
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	dialectPostgres = "postgres"

	tableLoans       = "loans"
	tableAdjustments = "pending_adjustments"

	codeUniqueViolation = "23505"
)

var dialect = goqu.Dialect(dialectPostgres)

// querier is the subset of *pgxpool.Pool the repositories use.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schema = `
CREATE TABLE IF NOT EXISTS loans (
	id          BIGSERIAL PRIMARY KEY,
	book_id     TEXT        NOT NULL,
	user_id     TEXT        NOT NULL,
	loan_date   TIMESTAMPTZ NOT NULL,
	return_date TIMESTAMPTZ NULL,
	status      TEXT        NOT NULL CHECK (status IN ('BORROWED', 'RETURNED'))
);
CREATE UNIQUE INDEX IF NOT EXISTS uniq_open_loan_per_book_user
	ON loans (book_id, user_id) WHERE status = 'BORROWED';
CREATE INDEX IF NOT EXISTS idx_loans_loan_date ON loans (loan_date, id);

CREATE TABLE IF NOT EXISTS pending_adjustments (
	id          BIGSERIAL PRIMARY KEY,
	loan_id     TEXT        NOT NULL,
	book_id     TEXT        NOT NULL,
	delta       INTEGER     NOT NULL,
	reason      TEXT        NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL
);
`

// Config holds the pool settings.
type Config struct {
	URL             string
	MaxConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

type Store struct {
	pool        *pgxpool.Pool
	Loans       *LoanRepository
	Adjustments *AdjustmentRepository
}

// Open creates the pool, pings it and applies the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{
		pool:        pool,
		Loans:       NewLoanRepository(pool),
		Adjustments: NewAdjustmentRepository(pool),
	}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close(context.Context) error {
	s.pool.Close()
	return nil
}
