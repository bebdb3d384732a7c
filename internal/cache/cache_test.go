package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func fetchValue(v any) FetchFunc {
	return func(context.Context) (any, error) { return v, nil }
}

func TestGet_MissThenHit(t *testing.T) {
	c := New()
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) (any, error) {
		calls++
		return "data", nil
	}

	v, err := c.Get(ctx, "k", fetch, FetchOptions{})
	require.NoError(t, err)
	require.Equal(t, "data", v)
	require.Equal(t, 1, calls)

	v, err = c.Get(ctx, "k", fetch, FetchOptions{})
	require.NoError(t, err)
	require.Equal(t, "data", v)
	require.Equal(t, 1, calls, "second call must be served from cache")

	stats := c.Stats()
	require.Equal(t, int64(1), stats.Hits)
	require.Equal(t, int64(1), stats.Misses)
	require.Equal(t, 1, stats.Size)
}

func TestGet_TTLExpiry(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) (any, error) {
		calls++
		return calls, nil
	}

	_, err := c.Get(ctx, "k", fetch, FetchOptions{TTL: time.Minute})
	require.NoError(t, err)

	// Under the TTL: hit.
	clock.Advance(59 * time.Second)
	v, err := c.Get(ctx, "k", fetch, FetchOptions{TTL: time.Minute})
	require.NoError(t, err)
	require.Equal(t, 1, v)
	require.Equal(t, 1, calls)

	// Past the TTL: miss, refetch.
	clock.Advance(2 * time.Second)
	v, err = c.Get(ctx, "k", fetch, FetchOptions{TTL: time.Minute})
	require.NoError(t, err)
	require.Equal(t, 2, v)
	require.Equal(t, 2, calls)
}

func TestGet_ConcurrentDedup(t *testing.T) {
	c := New()
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	fetch := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "shared", nil
	}

	const waiters = 8
	results := make([]any, waiters)
	errs := make([]error, waiters)
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Get(ctx, "slow", fetch, FetchOptions{})
		}(i)
	}

	// Give every goroutine a chance to join the pending window.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&calls), "concurrent callers must share one fetch")
	for i := range results {
		require.NoError(t, errs[i])
		require.Equal(t, "shared", results[i])
	}
}

func TestGet_FailureFansOutAndIsNotCached(t *testing.T) {
	c := New()
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	failing := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return nil, fmt.Errorf("remote down")
	}

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Get(ctx, "bad", failing, FetchOptions{})
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, err := range errs {
		require.Error(t, err, "failure must fan out to every waiter")
	}

	// The in-flight slot is cleared: the next call retries.
	v, err := c.Get(ctx, "bad", fetchValue("recovered"), FetchOptions{})
	require.NoError(t, err)
	require.Equal(t, "recovered", v)
}

func TestGet_ForceRefresh(t *testing.T) {
	c := New()
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) (any, error) {
		calls++
		return calls, nil
	}

	_, err := c.Get(ctx, "k", fetch, FetchOptions{})
	require.NoError(t, err)

	v, err := c.Get(ctx, "k", fetch, FetchOptions{ForceRefresh: true})
	require.NoError(t, err)
	require.Equal(t, 2, v)
	require.Equal(t, 2, calls)

	// The refreshed value repopulated the cache.
	v, err = c.Get(ctx, "k", fetch, FetchOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, v)
	require.Equal(t, 2, calls)
}

func TestSetEnabled_FalseClearsAndBypasses(t *testing.T) {
	c := New()
	ctx := context.Background()

	_, err := c.Get(ctx, "k", fetchValue("v"), FetchOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, c.Stats().Size)

	c.SetEnabled(false)
	require.Equal(t, 0, c.Stats().Size)

	calls := 0
	fetch := func(context.Context) (any, error) {
		calls++
		return "fresh", nil
	}
	for i := 0; i < 3; i++ {
		v, err := c.Get(ctx, "k", fetch, FetchOptions{})
		require.NoError(t, err)
		require.Equal(t, "fresh", v)
	}
	require.Equal(t, 3, calls, "disabled cache must bypass on every call")
	require.Equal(t, 0, c.Stats().Size)

	c.SetEnabled(true)
	_, err = c.Get(ctx, "k", fetch, FetchOptions{})
	require.NoError(t, err)
	require.Equal(t, 4, calls)
	require.Equal(t, 1, c.Stats().Size)
}

func TestInvalidate(t *testing.T) {
	c := New()
	ctx := context.Background()

	_, err := c.Get(ctx, "k", fetchValue("v"), FetchOptions{})
	require.NoError(t, err)

	require.True(t, c.Invalidate("k"))
	require.False(t, c.Invalidate("k"), "second invalidate finds nothing")
	require.Equal(t, int64(1), c.Stats().Evictions)
}

func TestInvalidatePattern(t *testing.T) {
	c := New()
	ctx := context.Background()

	keys := []string{
		"scenario:abc",
		"scenario:abc:latest",
		"scenario:abc:version:3",
		"scenario:abc:version:3:summary",
		"scenario:abc:versions",
		"scenario:xyz:latest",
		"scenarios:list",
	}
	for _, k := range keys {
		_, err := c.Get(ctx, k, fetchValue(k), FetchOptions{})
		require.NoError(t, err)
	}

	deleted := c.InvalidatePattern("scenario:abc*")
	require.Equal(t, 5, deleted)

	stats := c.Stats()
	require.Equal(t, 2, stats.Size)
	require.Equal(t, int64(5), stats.Evictions)

	// Unrelated entries survive.
	v, err := c.Get(ctx, "scenario:xyz:latest", fetchValue("new"), FetchOptions{})
	require.NoError(t, err)
	require.Equal(t, "scenario:xyz:latest", v, "cached value for untouched key must survive")
}

func TestMatchPattern(t *testing.T) {
	cases := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"scenario:abc*", "scenario:abc", true},
		{"scenario:abc*", "scenario:abc:latest", true},
		{"scenario:abc*", "scenario:xyz", false},
		{"scenario:abc", "scenario:abc", true},
		{"scenario:abc", "scenario:abcd", false},
		{"*", "anything", true},
		{"*", "", true},
		{"*:latest", "scenario:abc:latest", true},
		{"*:latest", "scenarios:list", false},
		{"scenario:*:versions", "scenario:abc:versions", true},
		{"scenario:*:versions", "scenario:abc:latest", false},
	}

	for _, tc := range cases {
		if got := matchPattern(tc.pattern, tc.key); got != tc.want {
			t.Errorf("matchPattern(%q, %q) = %v, want %v", tc.pattern, tc.key, got, tc.want)
		}
	}
}

func TestClear(t *testing.T) {
	c := New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.Get(ctx, fmt.Sprintf("k%d", i), fetchValue(i), FetchOptions{})
		require.NoError(t, err)
	}

	c.Clear()
	stats := c.Stats()
	require.Equal(t, 0, stats.Size)
	require.Equal(t, int64(3), stats.Evictions)
}

func TestCleanup(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))
	ctx := context.Background()

	_, err := c.Get(ctx, "short", fetchValue(1), FetchOptions{TTL: time.Second})
	require.NoError(t, err)
	_, err = c.Get(ctx, "long", fetchValue(2), FetchOptions{TTL: time.Hour})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	removed := c.Cleanup()
	require.Equal(t, 1, removed)

	stats := c.Stats()
	require.Equal(t, 1, stats.Size)
}

func TestGetBatch(t *testing.T) {
	c := New()
	ctx := context.Background()

	_, err := c.Get(ctx, "a", fetchValue("cached-a"), FetchOptions{})
	require.NoError(t, err)

	var batchCalls int
	var requested []string
	batch := func(_ context.Context, missing []string) (map[string]any, error) {
		batchCalls++
		requested = missing
		out := make(map[string]any, len(missing))
		for _, k := range missing {
			out[k] = "fetched-" + k
		}
		return out, nil
	}

	result, err := c.GetBatch(ctx, []string{"a", "b", "c"}, batch, FetchOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, batchCalls, "one batch call for all missing keys")
	require.ElementsMatch(t, []string{"b", "c"}, requested)
	require.Equal(t, "cached-a", result["a"])
	require.Equal(t, "fetched-b", result["b"])
	require.Equal(t, "fetched-c", result["c"])

	// Batch results landed in the cache.
	result, err = c.GetBatch(ctx, []string{"a", "b", "c"}, batch, FetchOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, batchCalls, "fully cached batch must not refetch")
	require.Len(t, result, 3)
}

func TestGetBatch_Error(t *testing.T) {
	c := New()
	ctx := context.Background()

	_, err := c.GetBatch(ctx, []string{"x"}, func(context.Context, []string) (map[string]any, error) {
		return nil, fmt.Errorf("batch failed")
	}, FetchOptions{})
	require.Error(t, err)
	require.Equal(t, 0, c.Stats().Size)
}

func TestHitRate(t *testing.T) {
	c := New()
	ctx := context.Background()

	require.Equal(t, 0.0, c.HitRate(), "no traffic yet")

	_, err := c.Get(ctx, "k", fetchValue(1), FetchOptions{})
	require.NoError(t, err)
	_, err = c.Get(ctx, "k", fetchValue(1), FetchOptions{})
	require.NoError(t, err)

	require.InDelta(t, 0.5, c.HitRate(), 0.001)
}
