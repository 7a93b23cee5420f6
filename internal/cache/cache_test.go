package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/cache"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/metrics"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/model"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/pinmeto"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock { return &clock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fetcher returns queued results in order, repeating the last one.
type fetcher struct {
	mu      sync.Mutex
	calls   int32
	results []pinmeto.LocationSet
	gate    chan struct{}
}

func (f *fetcher) Fetch(ctx context.Context) pinmeto.LocationSet {
	n := atomic.AddInt32(&f.calls, 1)
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := int(n) - 1
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i]
}

func (f *fetcher) Calls() int { return int(atomic.LoadInt32(&f.calls)) }

func locations(ids ...string) []model.Location {
	out := make([]model.Location, len(ids))
	for i, id := range ids {
		out[i] = model.Location{StoreID: id, Name: "Store " + id}
	}
	return out
}

func ok(ids ...string) pinmeto.LocationSet {
	return pinmeto.LocationSet{Locations: locations(ids...), AllPagesFetched: true}
}

func failed() pinmeto.LocationSet {
	return pinmeto.LocationSet{Err: &pinmeto.Error{Kind: pinmeto.KindServerError, Retryable: true, Message: "down"}}
}

// ─── TTL ─────────────────────────────────────────────────────────────────────

func TestGetWithinTTLDoesNotFetch(t *testing.T) {
	clk := newClock()
	f := &fetcher{results: []pinmeto.LocationSet{ok("1", "2")}}
	c := cache.New(f.Fetch, cache.WithClock(clk.Now))

	ctx := context.Background()
	first, err := c.Get(ctx, false)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first.CacheHit {
		t.Error("first Get: expected a miss")
	}
	clk.Advance(cache.DefaultTTL)
	second, err := c.Get(ctx, false)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !second.CacheHit {
		t.Error("second Get: expected a hit at exactly the TTL")
	}
	if f.Calls() != 1 {
		t.Errorf("fetches: expected 1, got %d", f.Calls())
	}
}

func TestGetAfterTTLFetchesOnce(t *testing.T) {
	clk := newClock()
	f := &fetcher{results: []pinmeto.LocationSet{ok("1"), ok("1", "2", "3")}}
	c := cache.New(f.Fetch, cache.WithClock(clk.Now), cache.WithTTL(time.Minute))

	ctx := context.Background()
	if _, err := c.Get(ctx, false); err != nil {
		t.Fatalf("Get: %v", err)
	}
	clk.Advance(time.Minute + time.Second)
	snap, err := c.Get(ctx, false)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(snap.Locations) != 3 {
		t.Errorf("locations: expected 3, got %d", len(snap.Locations))
	}
	if f.Calls() != 2 {
		t.Errorf("fetches: expected 2, got %d", f.Calls())
	}
}

func TestForceRefreshBypassesTTL(t *testing.T) {
	f := &fetcher{results: []pinmeto.LocationSet{ok("1"), ok("1", "2")}}
	c := cache.New(f.Fetch)

	ctx := context.Background()
	if _, err := c.Get(ctx, false); err != nil {
		t.Fatalf("Get: %v", err)
	}
	snap, err := c.Get(ctx, true)
	if err != nil {
		t.Fatalf("Get(force): %v", err)
	}
	if len(snap.Locations) != 2 || f.Calls() != 2 {
		t.Errorf("expected a second fetch with 2 locations, got %d locations after %d fetches", len(snap.Locations), f.Calls())
	}
}

func TestInvalidate(t *testing.T) {
	f := &fetcher{results: []pinmeto.LocationSet{ok("1")}}
	c := cache.New(f.Fetch)

	ctx := context.Background()
	_, _ = c.Get(ctx, false)
	c.Invalidate()
	if c.Info().Cached {
		t.Error("Info: expected empty cache after Invalidate")
	}
	_, _ = c.Get(ctx, false)
	if f.Calls() != 2 {
		t.Errorf("fetches: expected 2, got %d", f.Calls())
	}
}

// ─── Stale fallback ──────────────────────────────────────────────────────────

func TestStaleFallbackOnTotalFailure(t *testing.T) {
	clk := newClock()
	f := &fetcher{results: []pinmeto.LocationSet{ok("1", "2"), failed()}}
	m := metrics.New()
	c := cache.New(f.Fetch, cache.WithClock(clk.Now), cache.WithMetrics(m))

	ctx := context.Background()
	if _, err := c.Get(ctx, false); err != nil {
		t.Fatalf("Get: %v", err)
	}
	clk.Advance(10 * time.Minute)

	snap, err := c.Get(ctx, false)
	if err != nil {
		t.Fatalf("Get: expected stale data, got error %v", err)
	}
	if !snap.Stale {
		t.Error("Stale: expected true")
	}
	if len(snap.Locations) != 2 || snap.Locations[0].StoreID != "1" {
		t.Errorf("locations: expected the previous entry unchanged, got %+v", snap.Locations)
	}
	if !pinmeto.IsRetryable(snap.Err) {
		t.Errorf("Err: expected the retryable refresh failure, got %v", snap.Err)
	}
	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("stale")); got != 1 {
		t.Errorf("stale lookups: expected 1, got %g", got)
	}
}

func TestForceRefreshKeepsStaleFallback(t *testing.T) {
	f := &fetcher{results: []pinmeto.LocationSet{ok("1"), failed()}}
	c := cache.New(f.Fetch)

	ctx := context.Background()
	_, _ = c.Get(ctx, false)
	snap, err := c.Get(ctx, true)
	if err != nil {
		t.Fatalf("Get(force): %v", err)
	}
	if !snap.Stale || len(snap.Locations) != 1 {
		t.Errorf("expected stale fallback, got stale=%v locations=%d", snap.Stale, len(snap.Locations))
	}
	if info := c.Info(); info.Size != 1 {
		t.Errorf("Info.Size: expected the entry to survive, got %d", info.Size)
	}
}

func TestTotalFailureWithoutEntry(t *testing.T) {
	f := &fetcher{results: []pinmeto.LocationSet{failed()}}
	c := cache.New(f.Fetch)

	_, err := c.Get(context.Background(), false)
	var pe *pinmeto.Error
	if !errors.As(err, &pe) || pe.Kind != pinmeto.KindServerError {
		t.Fatalf("expected SERVER_ERROR, got %v", err)
	}
	if c.Info().Cached {
		t.Error("a failed fetch must not populate the cache")
	}
}

func TestPartialResultReplacesEntry(t *testing.T) {
	partial := pinmeto.LocationSet{Locations: locations("9"), AllPagesFetched: false, Err: errors.New("page 2 failed")}
	f := &fetcher{results: []pinmeto.LocationSet{ok("1", "2"), partial}}
	c := cache.New(f.Fetch)

	ctx := context.Background()
	_, _ = c.Get(ctx, false)
	snap, err := c.Get(ctx, true)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if snap.Stale || snap.AllPagesFetched || len(snap.Locations) != 1 {
		t.Errorf("expected the partial result to replace the entry, got %+v", snap)
	}
}

func TestEmptyCompleteResultReplacesEntry(t *testing.T) {
	f := &fetcher{results: []pinmeto.LocationSet{ok("1"), ok()}}
	c := cache.New(f.Fetch)

	ctx := context.Background()
	_, _ = c.Get(ctx, false)
	snap, err := c.Get(ctx, true)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if snap.Stale || len(snap.Locations) != 0 {
		t.Errorf("expected a legitimately empty result, got %+v", snap)
	}
}

// ─── Single flight ───────────────────────────────────────────────────────────

func TestConcurrentMissesShareOneFetch(t *testing.T) {
	f := &fetcher{results: []pinmeto.LocationSet{ok("1", "2", "3")}, gate: make(chan struct{})}
	c := cache.New(f.Fetch)

	const callers = 25
	var wg sync.WaitGroup
	sizes := make([]int, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := c.Get(context.Background(), i%2 == 0)
			sizes[i], errs[i] = len(snap.Locations), err
		}(i)
	}
	// Let every caller reach the in-flight fetch before it resolves.
	time.Sleep(50 * time.Millisecond)
	close(f.gate)
	wg.Wait()

	if f.Calls() != 1 {
		t.Errorf("fetches: expected 1, got %d", f.Calls())
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil || sizes[i] != 3 {
			t.Errorf("caller %d: got %d locations, err %v", i, sizes[i], errs[i])
		}
	}
}

func TestCancelledCallerDoesNotCancelFetch(t *testing.T) {
	f := &fetcher{results: []pinmeto.LocationSet{ok("1")}, gate: make(chan struct{})}
	c := cache.New(f.Fetch)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Get(ctx, false)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	close(f.gate)
	snap, err := c.Get(context.Background(), false)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(snap.Locations) != 1 || f.Calls() != 1 {
		t.Errorf("expected the original fetch to populate the cache, got %d locations after %d fetches", len(snap.Locations), f.Calls())
	}
}

// ─── Info ────────────────────────────────────────────────────────────────────

func TestInfo(t *testing.T) {
	clk := newClock()
	f := &fetcher{results: []pinmeto.LocationSet{ok("1", "2")}}
	c := cache.New(f.Fetch, cache.WithClock(clk.Now))

	if info := c.Info(); info.Cached || info.TTLSeconds != 300 {
		t.Errorf("empty Info: got %+v", info)
	}
	_, _ = c.Get(context.Background(), false)
	clk.Advance(30 * time.Second)
	info := c.Info()
	if !info.Cached || info.Size != 2 || info.AgeSeconds != 30 || !info.AllPagesFetched {
		t.Errorf("Info: got %+v", info)
	}
}
