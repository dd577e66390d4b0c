package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/brojonat/phoenix/service/solana"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// UpsertResult reports what an upsert did to the stored row.
type UpsertResult string

const (
	UpsertInserted  UpsertResult = "inserted"
	UpsertUpdated   UpsertResult = "updated"
	UpsertUnchanged UpsertResult = "unchanged" // row was already Finalized
)

// Store persists canonical transactions keyed by signature.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store with the given database connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return NewStore(pool), nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the transactions table if it doesn't exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// UpsertTransaction stores tx. Re-delivering a signature updates the row
// unless that would lower its confirmation status
// (Unconfirmed < Confirmed < Finalized). Finalized rows are never rewritten.
func (s *Store) UpsertTransaction(ctx context.Context, tx *solana.Transaction) (UpsertResult, error) {
	const query = `
		INSERT INTO transactions (
			signature, "timestamp", successful, confirmation_status, slot, fee, compute_units
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (signature) DO UPDATE SET
			"timestamp"         = EXCLUDED."timestamp",
			successful          = EXCLUDED.successful,
			confirmation_status = EXCLUDED.confirmation_status,
			slot                = EXCLUDED.slot,
			fee                 = EXCLUDED.fee,
			compute_units       = EXCLUDED.compute_units,
			updated_at          = now()
		WHERE transactions.confirmation_status <> 'Finalized'
		  AND CASE EXCLUDED.confirmation_status
		        WHEN 'Unconfirmed' THEN 0 WHEN 'Confirmed' THEN 1 ELSE 2 END
		   >= CASE transactions.confirmation_status
		        WHEN 'Unconfirmed' THEN 0 WHEN 'Confirmed' THEN 1 ELSE 2 END
		RETURNING (xmax = 0) AS inserted`

	var inserted bool
	err := s.pool.QueryRow(ctx, query,
		tx.Signature,
		tx.Timestamp,
		tx.Successful,
		string(tx.ConfirmationStatus),
		int64(tx.Slot),
		int64(tx.Fee),
		int64(tx.ComputeUnits),
	).Scan(&inserted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UpsertUnchanged, nil
		}
		return "", fmt.Errorf("upsert transaction %s: %w", tx.Signature, err)
	}

	if inserted {
		return UpsertInserted, nil
	}
	return UpsertUpdated, nil
}

// GetTransaction retrieves a transaction by its signature.
func (s *Store) GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	const query = `
		SELECT signature, "timestamp", successful, confirmation_status, slot, fee, compute_units
		FROM transactions
		WHERE signature = $1`

	tx, err := scanTransaction(s.pool.QueryRow(ctx, query, signature))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", signature, ErrNotFound)
		}
		return nil, fmt.Errorf("get transaction %s: %w", signature, err)
	}
	return tx, nil
}

// ListTransactionsParams contains pagination parameters.
type ListTransactionsParams struct {
	Limit  int32
	Offset int32
}

// ListTransactions returns transactions newest slot first.
func (s *Store) ListTransactions(ctx context.Context, params ListTransactionsParams) ([]*solana.Transaction, error) {
	const query = `
		SELECT signature, "timestamp", successful, confirmation_status, slot, fee, compute_units
		FROM transactions
		ORDER BY slot DESC, signature
		LIMIT $1 OFFSET $2`

	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, query, limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*solana.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// CountTransactions returns the number of stored transactions.
func (s *Store) CountTransactions(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func scanTransaction(row pgx.Row) (*solana.Transaction, error) {
	var (
		tx                       solana.Transaction
		status                   string
		slot, fee, computeUnits int64
	)
	if err := row.Scan(
		&tx.Signature,
		&tx.Timestamp,
		&tx.Successful,
		&status,
		&slot,
		&fee,
		&computeUnits,
	); err != nil {
		return nil, err
	}
	tx.ConfirmationStatus = solana.ConfirmationStatus(status)
	tx.Slot = uint64(slot)
	tx.Fee = uint64(fee)
	tx.ComputeUnits = uint64(computeUnits)
	return &tx, nil
}
