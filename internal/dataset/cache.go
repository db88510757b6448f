package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/couchcryptid/collision-dashboard/internal/domain"
	"github.com/couchcryptid/collision-dashboard/internal/observability"
	"golang.org/x/sync/singleflight"
)

type cacheKey struct {
	rowLimit    int
	fingerprint string
}

func (k cacheKey) String() string {
	return fmt.Sprintf("%d|%s", k.rowLimit, k.fingerprint)
}

// Entry describes one cached Dataset.
type Entry struct {
	RowLimit    int       `json:"row_limit"`
	Fingerprint string    `json:"fingerprint"`
	Records     int       `json:"records"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// Cache memoizes Datasets by row limit and source fingerprint. Concurrent
// misses for the same key share one load. Failed loads are not cached.
type Cache struct {
	inner   Loader
	logger  *slog.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	entries map[cacheKey]*domain.Dataset
	group   singleflight.Group
}

// NewCache wraps inner with memoization.
func NewCache(inner Loader, logger *slog.Logger, metrics *observability.Metrics) *Cache {
	return &Cache{
		inner:   inner,
		logger:  logger,
		metrics: metrics,
		entries: make(map[cacheKey]*domain.Dataset),
	}
}

// Load returns the cached Dataset for rowLimit, loading it on a miss. A changed
// source fingerprint is a miss and evicts entries built from older content.
func (c *Cache) Load(ctx context.Context, rowLimit int) (*domain.Dataset, error) {
	if rowLimit <= 0 {
		return nil, fmt.Errorf("%w: row limit %d must be positive", domain.ErrInvalidParameter, rowLimit)
	}

	fingerprint, err := c.inner.Fingerprint()
	if err != nil {
		return nil, err
	}
	key := cacheKey{rowLimit: rowLimit, fingerprint: fingerprint}

	if ds, ok := c.get(key); ok {
		c.metrics.DatasetCache.WithLabelValues("hit").Inc()
		return ds, nil
	}
	c.metrics.DatasetCache.WithLabelValues("miss").Inc()

	// The shared load must not be cut short by whichever caller started it.
	loadCtx := context.WithoutCancel(ctx)
	v, err, shared := c.group.Do(key.String(), func() (any, error) {
		if ds, ok := c.get(key); ok {
			return ds, nil
		}
		ds, err := c.inner.Load(loadCtx, rowLimit)
		if err != nil {
			return nil, err
		}
		c.put(key, ds)
		return ds, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("dataset load shared", "row_limit", rowLimit)
	}
	return v.(*domain.Dataset), nil
}

// Fingerprint reports the fingerprint of the underlying source.
func (c *Cache) Fingerprint() (string, error) {
	return c.inner.Fingerprint()
}

// Invalidate drops every cached Dataset and returns how many were removed.
func (c *Cache) Invalidate() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[cacheKey]*domain.Dataset)
	c.logger.Info("dataset cache invalidated", "entries", n)
	return n
}

// Entries lists cached Datasets ordered by row limit.
func (c *Cache) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry, 0, len(c.entries))
	for k, ds := range c.entries {
		out = append(out, Entry{
			RowLimit:    k.rowLimit,
			Fingerprint: k.fingerprint,
			Records:     ds.Len(),
			LoadedAt:    ds.LoadedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RowLimit != out[j].RowLimit {
			return out[i].RowLimit < out[j].RowLimit
		}
		return out[i].Fingerprint < out[j].Fingerprint
	})
	return out
}

func (c *Cache) get(key cacheKey) (*domain.Dataset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ds, ok := c.entries[key]
	return ds, ok
}

// put stores ds unless the source moved on while it was loading, so a slow
// load of older content cannot evict entries for the current fingerprint.
func (c *Cache) put(key cacheKey, ds *domain.Dataset) {
	if current, err := c.inner.Fingerprint(); err == nil && current != key.fingerprint {
		c.logger.Info("discarded dataset loaded from superseded source",
			"row_limit", key.rowLimit, "fingerprint", key.fingerprint, "current", current)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for k := range c.entries {
		if k.fingerprint != key.fingerprint {
			delete(c.entries, k)
			c.logger.Info("evicted stale dataset", "row_limit", k.rowLimit, "fingerprint", k.fingerprint)
		}
	}
	c.entries[key] = ds
}
