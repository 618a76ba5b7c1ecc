package source

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"patdash/internal/cache"
	"patdash/internal/core"
)

// Cached wraps a Fetcher with a short-lived result cache so UI refresh ticks
// do not hit the drive every time. Concurrent misses share one fetch and
// failures are never cached.
type Cached struct {
	next  Fetcher
	key   string
	ttl   time.Duration
	grids *cache.LRUCache[cachedGrid]
	group singleflight.Group
}

type cachedGrid struct {
	grid      core.Grid
	fetchedAt time.Time
}

// NewCached returns next wrapped in a cache keyed by key. A ttl <= 0
// disables caching.
func NewCached(next Fetcher, key string, ttl time.Duration) *Cached {
	return &Cached{
		next:  next,
		key:   key,
		ttl:   ttl,
		grids: cache.NewLRUCache[cachedGrid](1, ttl),
	}
}

// Fetch returns the cached grid when fresh, otherwise fetches it.
func (c *Cached) Fetch(ctx context.Context) (core.Grid, error) {
	g, _, err := c.FetchWithTime(ctx)
	return g, err
}

// FetchWithTime is Fetch that also reports when the grid was retrieved.
func (c *Cached) FetchWithTime(ctx context.Context) (core.Grid, time.Time, error) {
	if c.ttl > 0 {
		if hit, ok := c.grids.Get(c.key); ok {
			slog.DebugContext(ctx, "Grid cache hit", "source", c.key, "rows", hit.grid.Rows())
			return hit.grid, hit.fetchedAt, nil
		}
	}

	// The flight outlives any single caller; fetchers bound it with their own timeout.
	flightCtx := context.WithoutCancel(ctx)
	v, err, shared := c.group.Do(c.key, func() (any, error) {
		g, err := c.next.Fetch(flightCtx)
		if err != nil {
			return nil, err
		}
		entry := cachedGrid{grid: g, fetchedAt: time.Now()}
		if c.ttl > 0 {
			c.grids.Set(c.key, entry)
		}
		return entry, nil
	})
	if err != nil {
		return nil, time.Time{}, err
	}
	entry := v.(cachedGrid)
	slog.DebugContext(ctx, "Grid fetched", "source", c.key, "rows", entry.grid.Rows(), "shared", shared)
	return entry.grid, entry.fetchedAt, nil
}

// Invalidate drops the cached grid so the next Fetch goes to the source.
func (c *Cached) Invalidate() {
	c.grids.Delete(c.key)
	c.group.Forget(c.key)
}

// CleanExpired lets a cache.Manager sweep the entry.
func (c *Cached) CleanExpired() int {
	return c.grids.CleanExpired()
}
