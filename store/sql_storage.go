package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Dialect selects the placeholder style of an SQLStorage.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// SQLStorage keeps items in the analytics_storage table of a SQLite or
// PostgreSQL database.
type SQLStorage struct {
	db      *sql.DB
	dialect Dialect
	quota   int64
	timeout time.Duration
}

// NewSQLStorage creates the backing table when it does not exist yet.
func NewSQLStorage(db *sql.DB, dialect Dialect, quota int64) (*SQLStorage, error) {
	s := &SQLStorage{db: db, dialect: dialect, quota: quota, timeout: 5 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	query := `
		CREATE TABLE IF NOT EXISTS analytics_storage (
			item_key   TEXT PRIMARY KEY,
			item_value TEXT NOT NULL,
			updated_at BIGINT NOT NULL
		)
	`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return nil, fmt.Errorf("failed to create analytics_storage table: %w", err)
	}
	return s, nil
}

func (s *SQLStorage) bind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	out := make([]byte, 0, len(query)+8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, fmt.Sprintf("$%d", n)...)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}

func (s *SQLStorage) GetItem(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var value string
	err := s.db.QueryRowContext(ctx, s.bind(`SELECT item_value FROM analytics_storage WHERE item_key = ?`), key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get item %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLStorage) SetItem(key, value string) error {
	if err := checkQuota(s.quota, key, value); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	query := `
		INSERT INTO analytics_storage (item_key, item_value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (item_key) DO UPDATE SET item_value = excluded.item_value, updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, s.bind(query), key, value, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to set item %q: %w", key, err)
	}
	return nil
}

func (s *SQLStorage) RemoveItem(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, s.bind(`DELETE FROM analytics_storage WHERE item_key = ?`), key); err != nil {
		return fmt.Errorf("failed to remove item %q: %w", key, err)
	}
	return nil
}
