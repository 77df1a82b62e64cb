package auth

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS auth (uuid TEXT PRIMARY KEY)`

// Store keeps issued tokens in a sqlite database.
type Store struct {
	db *sqlx.DB
}

// OpenStore opens (creating if needed) the token database at path.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open auth store: %w", err)
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create auth table: %w", err)
	}
	return &Store{db: db}, nil
}

// Add stores token. Adding an existing token is not an error.
func (s *Store) Add(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO auth (uuid) VALUES (?)`, token); err != nil {
		return fmt.Errorf("add token: %w", err)
	}
	return nil
}

// Remove deletes token and reports whether it existed.
func (s *Store) Remove(ctx context.Context, token string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM auth WHERE uuid = ?`, token)
	if err != nil {
		return false, fmt.Errorf("remove token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove token: %w", err)
	}
	return n > 0, nil
}

// Has reports whether token is stored.
func (s *Store) Has(ctx context.Context, token string) (bool, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM auth WHERE uuid = ?`, token); err != nil {
		return false, fmt.Errorf("lookup token: %w", err)
	}
	return n > 0, nil
}

// List returns every stored token in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var tokens []string
	if err := s.db.SelectContext(ctx, &tokens, `SELECT uuid FROM auth ORDER BY uuid`); err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	return tokens, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
