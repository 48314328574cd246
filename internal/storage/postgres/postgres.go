package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Store keeps key-value documents in a single table. It backs deployments
// where the history should survive the host machine, while keeping the
// same absent-vs-empty semantics as the file store.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, db *sql.DB) (*Store, error) {
	query := `
		CREATE TABLE IF NOT EXISTS kv_documents (
			key        TEXT PRIMARY KEY,
			value      BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return nil, fmt.Errorf("creating kv_documents table: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte

	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_documents WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("reading %q: %w", key, err)
	}

	return value, true, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_documents (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_documents WHERE key = $1`, key); err != nil {
		return fmt.Errorf("deleting %q: %w", key, err)
	}

	return nil
}
