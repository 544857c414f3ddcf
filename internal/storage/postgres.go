package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/aabhinavcode/privacy-expense-tracker/internal/config"
	"github.com/aabhinavcode/privacy-expense-tracker/internal/models"
)

// ddl creates the expense schema. Natural keys are unique, so re-ingesting
// the same statement is a no-op.
const ddl = `
CREATE SCHEMA IF NOT EXISTS expense;

CREATE TABLE IF NOT EXISTS expense.payments (
    id              BIGSERIAL PRIMARY KEY,
    natural_key     TEXT NOT NULL UNIQUE,
    trans_date      DATE NOT NULL,
    post_date       DATE NOT NULL,
    description     TEXT NOT NULL,
    amount          NUMERIC(12, 2) NOT NULL,
    source          TEXT NOT NULL DEFAULT 'CIBC',
    statement_file  TEXT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS expense.transactions (
    id              BIGSERIAL PRIMARY KEY,
    natural_key     TEXT NOT NULL UNIQUE,
    trans_date      DATE NOT NULL,
    post_date       DATE NOT NULL,
    description     TEXT NOT NULL,
    category        TEXT NOT NULL,
    amount          NUMERIC(12, 2) NOT NULL,
    location        TEXT,
    city            TEXT,
    province        TEXT,
    source          TEXT NOT NULL DEFAULT 'CIBC',
    statement_file  TEXT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_transactions_trans_date
    ON expense.transactions (trans_date);

CREATE INDEX IF NOT EXISTS idx_transactions_category
    ON expense.transactions (category);

CREATE INDEX IF NOT EXISTS idx_transactions_city
    ON expense.transactions (city);

CREATE INDEX IF NOT EXISTS idx_payments_trans_date
    ON expense.payments (trans_date);
`

const insertPayment = `
INSERT INTO expense.payments (
    natural_key, trans_date, post_date,
    description, amount, source, statement_file
)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (natural_key) DO NOTHING`

const insertCharge = `
INSERT INTO expense.transactions (
    natural_key, trans_date, post_date,
    description, category, amount,
    location, city, province,
    source, statement_file
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (natural_key) DO NOTHING`

// Store persists normalized statements in Postgres.
type Store struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// Open creates a connection pool from config and verifies connectivity.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*Store, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "privacy-expense-tracker"

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	logger.Info().
		Str("database", pc.ConnConfig.Database).
		Str("host", pc.ConnConfig.Host).
		Msg("connected to database")
	return &Store{pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Init creates the expense schema, tables and indexes if missing.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	return nil
}

// IngestResult reports the outcome of loading one statement. Skipped rows
// already existed under the same natural key.
type IngestResult struct {
	BatchID          uuid.UUID `json:"batchId"`
	PaymentsInserted int       `json:"paymentsInserted"`
	PaymentsSkipped  int       `json:"paymentsSkipped"`
	ChargesInserted  int       `json:"chargesInserted"`
	ChargesSkipped   int       `json:"chargesSkipped"`
}

// Ingest loads a statement's records. Inserts are keyed on the natural key
// with ON CONFLICT DO NOTHING, so feeding the same document twice never
// duplicates rows.
func (s *Store) Ingest(ctx context.Context, stmt *models.Statement) (*IngestResult, error) {
	result := &IngestResult{BatchID: uuid.New()}
	if len(stmt.Transactions) == 0 {
		return result, nil
	}

	batch := &pgx.Batch{}
	sections := make([]models.Section, 0, len(stmt.Transactions))
	for _, txn := range stmt.Transactions {
		switch txn.Section {
		case models.SectionPayment:
			batch.Queue(insertPayment,
				txn.NaturalKey,
				txn.TransDate.Time,
				txn.PostDate.Time,
				txn.Description,
				txn.Amount.StringFixed(2),
				txn.Source,
				txn.StatementFile,
			)
		default:
			batch.Queue(insertCharge,
				txn.NaturalKey,
				txn.TransDate.Time,
				txn.PostDate.Time,
				txn.Description,
				txn.Category,
				txn.Amount.StringFixed(2),
				txn.Location,
				txn.City,
				txn.Province,
				txn.Source,
				txn.StatementFile,
			)
		}
		sections = append(sections, txn.Section)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for _, section := range sections {
		tag, err := br.Exec()
		if err != nil {
			return nil, fmt.Errorf("ingest batch %s: %w", result.BatchID, err)
		}
		inserted := tag.RowsAffected() == 1
		switch {
		case section == models.SectionPayment && inserted:
			result.PaymentsInserted++
		case section == models.SectionPayment:
			result.PaymentsSkipped++
		case inserted:
			result.ChargesInserted++
		default:
			result.ChargesSkipped++
		}
	}

	s.logger.Info().
		Str("batch_id", result.BatchID.String()).
		Str("statement_file", stmt.SourceFile).
		Int("payments_inserted", result.PaymentsInserted).
		Int("payments_skipped", result.PaymentsSkipped).
		Int("charges_inserted", result.ChargesInserted).
		Int("charges_skipped", result.ChargesSkipped).
		Msg("statement ingested")
	return result, nil
}
