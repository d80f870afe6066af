package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestCacheEntry_MissingEntity(t *testing.T) {
	s := createTestStore(t)

	_, _, ok, err := s.CacheEntry(context.Background(), "products")
	if err != nil {
		t.Fatalf("CacheEntry() failed: %v", err)
	}
	if ok {
		t.Error("ok = true for missing entity, want false")
	}
}

func TestSaveCacheEntry_RefreshesTimestamp(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	second := first.Add(2 * time.Hour)

	if err := s.SaveCacheEntry(ctx, "products", json.RawMessage(`[{"id":"P1"}]`), first); err != nil {
		t.Fatalf("SaveCacheEntry() failed: %v", err)
	}
	if err := s.SaveCacheEntry(ctx, "products", json.RawMessage(`[{"id":"P1"},{"id":"P2"}]`), second); err != nil {
		t.Fatalf("SaveCacheEntry() failed: %v", err)
	}

	payload, fetchedAt, ok, err := s.CacheEntry(ctx, "products")
	if err != nil {
		t.Fatalf("CacheEntry() failed: %v", err)
	}
	if !ok {
		t.Fatal("ok = false, want true")
	}
	if !fetchedAt.Equal(second) {
		t.Errorf("fetchedAt = %v, want %v", fetchedAt, second)
	}

	var rows []map[string]string
	if err := json.Unmarshal(payload, &rows); err != nil {
		t.Fatalf("payload not valid JSON: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("payload has %d rows, want 2", len(rows))
	}
}
