package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iigoraya/p2p-auction/internal/domain/shared"

	_ "github.com/lib/pq"
)

const createRecordsTable = `
	CREATE TABLE IF NOT EXISTS auction_records (
		key   TEXT PRIMARY KEY,
		value BYTEA NOT NULL
	)
`

// PostgresStore implements the durable ordered store on a single Postgres
// table keyed by identifier. The primary key gives ordered scans and the
// ON CONFLICT clauses give atomic upsert and conditional insert.
type PostgresStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

type PostgresStoreParams struct {
	URL    string
	Logger zerolog.Logger
}

// NewPostgresStore opens a connection pool and ensures the records table
// exists
func NewPostgresStore(params PostgresStoreParams) (*PostgresStore, error) {
	db, err := sql.Open("postgres", params.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	if _, err := db.Exec(createRecordsTable); err != nil {
		return nil, fmt.Errorf("failed to create records table: %w", err)
	}

	return &PostgresStore{
		db:     db,
		logger: params.Logger.With().Str("component", "postgres_store").Logger(),
	}, nil
}

// Get retrieves the value stored for key
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM auction_records WHERE key = $1`, key,
	).Scan(&value)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}

	return value, nil
}

// Put upserts the value stored for key
func (s *PostgresStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auction_records (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, value)

	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

// PutIfAbsent stores the value only if the key does not exist yet
func (s *PostgresStore) PutIfAbsent(ctx context.Context, key string, value []byte) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO auction_records (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING
	`, key, value)

	if err != nil {
		return fmt.Errorf("failed to conditionally write key %s: %w", key, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return shared.ErrKeyExists
	}
	return nil
}

// Scan visits every key/value pair in key order
func (s *PostgresStore) Scan(ctx context.Context, fn func(key string, value []byte) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM auction_records ORDER BY key`,
	)
	if err != nil {
		return fmt.Errorf("failed to scan records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("failed to scan record: %w", err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating records: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	s.logger.Debug().Msg("Closing postgres store")
	return s.db.Close()
}
