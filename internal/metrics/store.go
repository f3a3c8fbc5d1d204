package metrics

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"
)

// New creates a new counters Store.
func New(db *sql.DB) Store {
	return &store{
		db: db,
	}
}

// Add upserts a counter key and increments its value by n.
func (s *store) Add(ctx context.Context, key string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO counters (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = value + excluded.value;
	`, key, n)
	if err != nil {
		return fmt.Errorf("failed to increment counter %q: %w", key, err)
	}
	log.Debug("Incremented counter", "key", key, "by", n)
	return nil
}

// GetAll returns all counters from the database.
func (s *store) GetAll(ctx context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM counters")
	if err != nil {
		return nil, fmt.Errorf("failed to query counters: %w", err)
	}
	defer rows.Close()

	counters := make(map[string]int)
	for rows.Next() {
		var key string
		var value int
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan counter: %w", err)
		}
		counters[key] = value
	}
	return counters, rows.Err()
}
