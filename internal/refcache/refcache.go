// Package refcache is a read-through, time-bounded cache of read-mostly
// reference data (products and tables).
//
// Read policy: a cached payload younger than the TTL is served without a
// refresh. An expired (or missing) payload triggers exactly one refresh
// attempt when online and zero when offline; offline reads serve stale
// data because stale data is strictly better than none. A failed refresh
// with an existing entry is absorbed silently (serve stale, log); a
// failed refresh with no entry surfaces pos.ErrCacheMiss, the one
// blocking error in the taxonomy.
//
// The remote store is the only writer of reference data from this core's
// perspective; this is not a write-through cache.
package refcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/PoalNinh/poscore/internal/connectivity"
	"github.com/PoalNinh/poscore/internal/pos"
	"github.com/PoalNinh/poscore/internal/remote"
	"github.com/PoalNinh/poscore/internal/storage"
)

// DefaultTTL is how long a cache entry is considered fresh.
const DefaultTTL = time.Hour

// Logical entity names used as cache keys. The remote entity names they
// map to are configured per deployment.
const (
	EntityProducts = "products"
	EntityTables   = "tables"
)

// Cache serves reference data from durable storage, refreshing from the
// remote store when online and the TTL has elapsed.
type Cache struct {
	store    *storage.Store
	remote   remote.Requester
	monitor  *connectivity.Monitor
	now      func() time.Time
	ttl      time.Duration
	entities map[string]string // logical name -> remote entity name
	logger   *slog.Logger
}

// New creates a reference cache. entities maps the logical entity names
// (EntityProducts, EntityTables) to the remote store's entity names.
func New(
	store *storage.Store,
	rem remote.Requester,
	monitor *connectivity.Monitor,
	entities map[string]string,
	ttl time.Duration,
	now func() time.Time,
	logger *slog.Logger,
) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		store:    store,
		remote:   rem,
		monitor:  monitor,
		now:      now,
		ttl:      ttl,
		entities: entities,
		logger:   logger,
	}
}

// Get returns the cached payload for a logical entity, refreshing it
// first when the entry is missing or expired and the terminal is online.
// stale reports that the returned payload is older than the TTL.
func (c *Cache) Get(ctx context.Context, entity string) (payload json.RawMessage, stale bool, err error) {
	cached, fetchedAt, ok, err := c.store.CacheEntry(ctx, entity)
	if err != nil {
		return nil, false, err
	}

	fresh := ok && c.now().Sub(fetchedAt) < c.ttl
	if fresh {
		return cached, false, nil
	}

	if !c.monitor.IsOnline() {
		if ok {
			return cached, true, nil
		}
		return nil, false, fmt.Errorf("%s: %w", entity, pos.ErrCacheMiss)
	}

	refreshed, err := c.refresh(ctx, entity)
	if err != nil {
		if ok {
			// Serve stale rather than fail: the cashier can keep selling
			// from yesterday's catalog.
			c.logger.Warn("cache refresh failed, serving stale", "entity", entity, "error", err)
			return cached, true, nil
		}
		return nil, false, fmt.Errorf("%s: %w: %v", entity, pos.ErrCacheMiss, err)
	}
	return refreshed, false, nil
}

// refresh fetches the entity from the remote store and persists it with
// a new fetch timestamp.
func (c *Cache) refresh(ctx context.Context, entity string) (json.RawMessage, error) {
	remoteName, ok := c.entities[entity]
	if !ok {
		return nil, fmt.Errorf("no remote entity configured for %q", entity)
	}

	rows, err := c.remote.Request(ctx, remoteName, remote.OpFind, remote.Payload{
		Selector: fmt.Sprintf("Filter(%s, true)", remoteName),
	})
	if err != nil {
		return nil, err
	}

	if err := c.store.SaveCacheEntry(ctx, entity, rows, c.now()); err != nil {
		return nil, err
	}
	return rows, nil
}

// Products returns the cached product catalog.
func (c *Cache) Products(ctx context.Context) ([]pos.Product, bool, error) {
	payload, stale, err := c.Get(ctx, EntityProducts)
	if err != nil {
		return nil, false, err
	}
	var products []pos.Product
	if err := json.Unmarshal(payload, &products); err != nil {
		return nil, false, fmt.Errorf("decode products: %w", err)
	}
	return products, stale, nil
}

// Tables returns the cached table list.
func (c *Cache) Tables(ctx context.Context) ([]pos.Table, bool, error) {
	payload, stale, err := c.Get(ctx, EntityTables)
	if err != nil {
		return nil, false, err
	}
	var tables []pos.Table
	if err := json.Unmarshal(payload, &tables); err != nil {
		return nil, false, fmt.Errorf("decode tables: %w", err)
	}
	return tables, stale, nil
}

// Product resolves one product by id from the cached catalog. Satisfies
// the order store's product lookup.
func (c *Cache) Product(ctx context.Context, productID string) (pos.Product, error) {
	products, _, err := c.Products(ctx)
	if err != nil {
		return pos.Product{}, err
	}
	for _, p := range products {
		if p.ID == productID {
			return p, nil
		}
	}
	return pos.Product{}, fmt.Errorf("%s: %w", productID, pos.ErrUnknownProduct)
}
