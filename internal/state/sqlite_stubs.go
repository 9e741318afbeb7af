package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, path, contentHash, optionsKey string) (string, bool, error) {
	if s.db == nil {
		return "", false, fmt.Errorf("database not opened")
	}

	var stub string
	err := s.db.QueryRowContext(ctx,
		`SELECT stub FROM stub_cache WHERE path = ? AND content_hash = ? AND options_key = ?`,
		path, contentHash, optionsKey,
	).Scan(&stub)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Debug("stub cache miss", "path", path)
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cached stub: %w", err)
	}

	s.logger.Debug("stub cache hit", "path", path)
	return stub, true, nil
}

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, e Entry) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	updated := e.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stub_cache (path, content_hash, options_key, stub, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content_hash = excluded.content_hash,
			options_key = excluded.options_key,
			stub = excluded.stub,
			updated_at = excluded.updated_at`,
		e.Path, e.ContentHash, e.OptionsKey, e.Stub, updated.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store stub: %w", err)
	}
	return nil
}

// Stats implements Store.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	if s.db == nil {
		return Stats{}, fmt.Errorf("database not opened")
	}

	var stats Stats
	var last sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(LENGTH(stub)), 0), MAX(updated_at) FROM stub_cache`,
	).Scan(&stats.Entries, &stats.StubBytes, &last)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read cache stats: %w", err)
	}
	if last.Valid {
		stats.LastUpdated = time.Unix(last.Int64, 0)
	}
	return stats, nil
}

// Clear implements Store.
func (s *SQLiteStore) Clear(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database not opened")
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM stub_cache`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear stub cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleared entries: %w", err)
	}
	return n, nil
}
