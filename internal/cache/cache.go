// Package cache holds the in-memory, TTL-bounded cache for the bulk
// "all locations" dataset.
//
// The cache has three states: empty, populated, and fetch-in-flight. Any
// number of concurrent callers that miss share one underlying fetch. When a
// refresh fails completely (no records and incomplete pagination) a
// previously populated entry is served stale instead of being overwritten.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/logging"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/metrics"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/model"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/pinmeto"
)

// DefaultTTL is how long a populated entry is served without refetching.
const DefaultTTL = 5 * time.Minute

const flightKey = "locations"

// FetchFunc performs the full-dataset fetch.
type FetchFunc func(ctx context.Context) pinmeto.LocationSet

// Snapshot is what a Get returns. Locations is shared with the cache and
// must not be modified.
type Snapshot struct {
	Locations       []model.Location
	AllPagesFetched bool
	FetchedAt       time.Time
	// CacheHit is true when no fetch ran for this call.
	CacheHit bool
	// Stale is true when a failed refresh fell back to the previous entry.
	Stale bool
	// Err is the non-fatal error behind a partial or stale result.
	Err error
}

type entry struct {
	locations       []model.Location
	allPagesFetched bool
	fetchedAt       time.Time
}

// LocationCache caches the result of one FetchFunc.
type LocationCache struct {
	fetch   FetchFunc
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics

	mu    sync.RWMutex
	entry *entry

	flight singleflight.Group
}

// Option customises a LocationCache.
type Option func(*LocationCache)

// WithTTL sets the entry lifetime. Non-positive values keep DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *LocationCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *LocationCache) { c.now = now }
}

// WithMetrics attaches metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *LocationCache) { c.metrics = m }
}

// New creates a LocationCache around fetch.
func New(fetch FetchFunc, opts ...Option) *LocationCache {
	c := &LocationCache{fetch: fetch, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured entry lifetime.
func (c *LocationCache) TTL() time.Duration { return c.ttl }

// Get returns the cached locations, fetching them when the cache is empty,
// expired, or force is set. A force refresh still joins an in-flight fetch
// and still falls back to stale data on total failure.
func (c *LocationCache) Get(ctx context.Context, force bool) (Snapshot, error) {
	if !force {
		if e := c.fresh(); e != nil {
			c.metrics.RecordCacheLookup("hit")
			return snapshotOf(e, true), nil
		}
	}
	c.metrics.RecordCacheLookup("miss")

	ch := c.flight.DoChan(flightKey, func() (interface{}, error) {
		// A flight that completed just before this one may have refreshed
		// the entry already.
		if !force {
			if e := c.fresh(); e != nil {
				return snapshotOf(e, true), nil
			}
		}
		return c.refresh(context.WithoutCancel(ctx))
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return Snapshot{}, r.Err
		}
		return r.Val.(Snapshot), nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// refresh runs the fetch and applies the replacement rule.
func (c *LocationCache) refresh(ctx context.Context) (Snapshot, error) {
	log := logging.Ctx(ctx)
	started := c.now()
	set := c.fetch(ctx)

	if len(set.Locations) == 0 && !set.AllPagesFetched {
		c.mu.RLock()
		prev := c.entry
		c.mu.RUnlock()

		if prev != nil {
			log.Warn().Err(set.Err).Int("cached", len(prev.locations)).
				Dur("age", c.now().Sub(prev.fetchedAt)).
				Msg("locations refresh failed; serving stale cache")
			c.metrics.RecordCacheLookup("stale")
			s := snapshotOf(prev, false)
			s.Stale = true
			s.Err = set.Err
			return s, nil
		}
		if set.Err != nil {
			return Snapshot{}, set.Err
		}
		return Snapshot{}, &pinmeto.Error{
			Kind:    pinmeto.KindUnknownError,
			Message: "Unable to fetch location data",
		}
	}

	e := &entry{
		locations:       set.Locations,
		allPagesFetched: set.AllPagesFetched,
		fetchedAt:       c.now(),
	}
	c.mu.Lock()
	c.entry = e
	c.mu.Unlock()
	c.metrics.SetCacheEntries(len(e.locations))

	log.Info().Int("locations", len(e.locations)).Bool("all_pages_fetched", e.allPagesFetched).
		Dur("took", e.fetchedAt.Sub(started)).Msg("locations cache refreshed")

	s := snapshotOf(e, false)
	s.Err = set.Err
	return s, nil
}

// fresh returns the current entry if it has not outlived the TTL.
func (c *LocationCache) fresh() *entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil {
		return nil
	}
	if c.now().Sub(c.entry.fetchedAt) > c.ttl {
		return nil
	}
	return c.entry
}

// Invalidate drops the cached entry. An in-flight fetch is not cancelled.
func (c *LocationCache) Invalidate() {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
	c.metrics.SetCacheEntries(0)
}

// Info describes the current cache state.
func (c *LocationCache) Info() model.CacheInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info := model.CacheInfo{TTLSeconds: c.ttl.Seconds()}
	if c.entry == nil {
		return info
	}
	info.Cached = true
	info.AgeSeconds = c.now().Sub(c.entry.fetchedAt).Seconds()
	info.Size = len(c.entry.locations)
	info.AllPagesFetched = c.entry.allPagesFetched
	return info
}

func snapshotOf(e *entry, hit bool) Snapshot {
	return Snapshot{
		Locations:       e.locations,
		AllPagesFetched: e.allPagesFetched,
		FetchedAt:       e.fetchedAt,
		CacheHit:        hit,
	}
}
