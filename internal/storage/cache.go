package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SaveCacheEntry persists a reference data payload for an entity type,
// refreshing its fetch timestamp.
func (s *Store) SaveCacheEntry(ctx context.Context, entity string, payload json.RawMessage, fetchedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ref_cache (entity, payload, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(entity) DO UPDATE SET
			payload = excluded.payload,
			fetched_at = excluded.fetched_at
	`, entity, string(payload), fetchedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save cache entry %s: %w", entity, err)
	}
	return nil
}

// CacheEntry returns the cached payload and fetch time for an entity
// type. ok is false when no entry exists.
func (s *Store) CacheEntry(ctx context.Context, entity string) (payload json.RawMessage, fetchedAt time.Time, ok bool, err error) {
	var (
		raw string
		ms  int64
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM ref_cache WHERE entity = ?`, entity,
	).Scan(&raw, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("read cache entry %s: %w", entity, err)
	}
	return json.RawMessage(raw), time.UnixMilli(ms), true, nil
}
