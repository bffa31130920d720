package infra

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fd1az/arbitrage-sequences/business/arbitrage/app"
	"github.com/fd1az/arbitrage-sequences/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-sequences/internal/apperror"
	"github.com/fd1az/arbitrage-sequences/internal/logger"
)

// DBPool is the subset of pgxpool.Pool the store uses.
type DBPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

var _ app.OpportunityObserver = (*PostgresStore)(nil)

const schema = `
	CREATE TABLE IF NOT EXISTS opportunity_log (
		id               UUID PRIMARY KEY,
		exchange         TEXT NOT NULL,
		cycle_key        TEXT NOT NULL,
		path             TEXT NOT NULL,
		hops             INTEGER NOT NULL,
		currency         TEXT NOT NULL,
		amount           NUMERIC NOT NULL,
		profit           NUMERIC NOT NULL,
		indicator_output NUMERIC NOT NULL,
		detected_at      TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS opportunity_log_exchange_detected_idx
		ON opportunity_log (exchange, detected_at DESC)`

const writeTimeout = 5 * time.Second

// PostgresStore keeps the opportunity log in PostgreSQL.
type PostgresStore struct {
	pool   DBPool
	logger logger.LoggerInterface
}

// NewPostgresStore creates a store over pool.
func NewPostgresStore(pool DBPool, log logger.LoggerInterface) *PostgresStore {
	return &PostgresStore{pool: pool, logger: log}
}

// EnsureSchema creates the opportunity table if needed.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return apperror.New(apperror.CodeStoreFailed,
			apperror.WithCause(err),
			apperror.WithContext("create opportunity_log"))
	}
	return nil
}

// OnOpportunity stores opp. Failures are logged, never propagated to the poller.
func (s *PostgresStore) OnOpportunity(ctx context.Context, opp domain.Opportunity) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := s.Insert(ctx, opp); err != nil {
		s.logger.Warn(ctx, "opportunity store failed", "exchange", opp.Exchange, "cycle", opp.Path, "error", err)
	}
}

// Insert writes one opportunity.
func (s *PostgresStore) Insert(ctx context.Context, opp domain.Opportunity) error {
	const query = `
		INSERT INTO opportunity_log (
			id, exchange, cycle_key, path, hops, currency,
			amount, profit, indicator_output, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`

	rec := newOpportunityRecord(opp)
	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.Exchange, rec.CycleKey, rec.Path, rec.Hops, rec.Currency,
		rec.Amount, rec.Profit, rec.IndicatorOutput, rec.DetectedAt,
	)
	if err != nil {
		return apperror.New(apperror.CodeStoreFailed,
			apperror.WithCause(err),
			apperror.WithContext("insert opportunity "+rec.ID.String()))
	}
	return nil
}

// Recent returns the latest limit opportunities of exchange, newest first.
func (s *PostgresStore) Recent(ctx context.Context, exchange string, limit int) ([]domain.Opportunity, error) {
	const query = `
		SELECT id, exchange, cycle_key, path, hops, currency,
			amount, profit, indicator_output, detected_at
		FROM opportunity_log
		WHERE exchange = $1
		ORDER BY detected_at DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, exchange, limit)
	if err != nil {
		return nil, apperror.New(apperror.CodeStoreFailed,
			apperror.WithCause(err),
			apperror.WithContext("query opportunity_log"))
	}
	defer rows.Close()

	var out []domain.Opportunity
	for rows.Next() {
		var rec opportunityRecord
		if err := rows.Scan(
			&rec.ID, &rec.Exchange, &rec.CycleKey, &rec.Path, &rec.Hops, &rec.Currency,
			&rec.Amount, &rec.Profit, &rec.IndicatorOutput, &rec.DetectedAt,
		); err != nil {
			return nil, apperror.New(apperror.CodeStoreFailed,
				apperror.WithCause(err),
				apperror.WithContext("scan opportunity"))
		}
		out = append(out, rec.opportunity())
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.New(apperror.CodeStoreFailed, apperror.WithCause(err))
	}
	return out, nil
}

// Ping checks the connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
