// Package cache provides a TTL query cache with in-flight request
// deduplication, glob invalidation, and batch fill. A cache instance is
// constructed explicitly and injected at the composition root; losing it
// never loses data, only forces recomputation.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchFunc loads the value for a single key on a cache miss.
type FetchFunc func(ctx context.Context) (any, error)

// BatchFetchFunc loads values for all missing keys in one call.
// The returned map is keyed by the same strings as the request.
type BatchFetchFunc func(ctx context.Context, missing []string) (map[string]any, error)

// FetchOptions control one Get or GetBatch call.
type FetchOptions struct {
	// TTL for any entry written by this call; 0 uses the cache default.
	TTL time.Duration

	// ForceRefresh bypasses the cached entry and any pending fetch.
	ForceRefresh bool
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
}

type entry struct {
	data     any
	storedAt time.Time
	ttl      time.Duration
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

// QueryCache is a string-keyed TTL cache. Concurrent Gets for the same key
// during one pending window trigger exactly one underlying fetch; the result
// (success or failure) fans out to every waiter. Failures are never cached.
type QueryCache struct {
	mu        sync.Mutex
	entries   map[string]entry
	enabled   bool
	hits      int64
	misses    int64
	evictions int64

	defaultTTL time.Duration
	now        func() time.Time
	flight     singleflight.Group
}

// Option configures a QueryCache.
type Option func(*QueryCache)

// WithDefaultTTL sets the TTL used when FetchOptions.TTL is zero.
func WithDefaultTTL(d time.Duration) Option {
	return func(c *QueryCache) { c.defaultTTL = d }
}

// WithDisabled starts the cache disabled; every Get bypasses caching
// until SetEnabled(true).
func WithDisabled() Option {
	return func(c *QueryCache) { c.enabled = false }
}

// WithClock overrides the time source. Tests use this to drive TTL expiry
// without sleeping.
func WithClock(now func() time.Time) Option {
	return func(c *QueryCache) { c.now = now }
}

// New creates a QueryCache.
func New(opts ...Option) *QueryCache {
	c := &QueryCache{
		entries:    make(map[string]entry),
		enabled:    true,
		defaultTTL: 2 * time.Minute,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value for key, or fetches it. On a miss the fetch
// is registered in-flight so concurrent callers share one pending result.
// A failed fetch clears the in-flight slot and is never cached, so the next
// call retries.
func (c *QueryCache) Get(ctx context.Context, key string, fetch FetchFunc, opts FetchOptions) (any, error) {
	ttl := c.resolveTTL(opts.TTL)

	if opts.ForceRefresh || !c.Enabled() {
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if c.Enabled() {
			c.put(key, value, ttl)
		}
		return value, nil
	}

	if value, ok := c.lookup(key, true); ok {
		return value, nil
	}

	value, err, _ := c.flight.Do(key, func() (any, error) {
		// A concurrent flight may have filled the entry between our
		// lookup and joining the group.
		if value, ok := c.lookup(key, false); ok {
			return value, nil
		}

		c.mu.Lock()
		c.misses++
		c.mu.Unlock()

		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.put(key, value, ttl)
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// GetBatch partitions keys into cached and missing, issues at most one
// batchFetch for the missing set, and merges the results into both the
// cache and the returned map.
func (c *QueryCache) GetBatch(ctx context.Context, keys []string, batchFetch BatchFetchFunc, opts FetchOptions) (map[string]any, error) {
	ttl := c.resolveTTL(opts.TTL)

	result := make(map[string]any, len(keys))
	var missing []string

	if c.Enabled() {
		for _, key := range keys {
			if value, ok := c.lookup(key, true); ok {
				result[key] = value
				continue
			}
			c.mu.Lock()
			c.misses++
			c.mu.Unlock()
			missing = append(missing, key)
		}
	} else {
		missing = keys
	}

	if len(missing) == 0 {
		return result, nil
	}

	fetched, err := batchFetch(ctx, missing)
	if err != nil {
		return nil, err
	}

	for key, value := range fetched {
		result[key] = value
		if c.Enabled() {
			c.put(key, value, ttl)
		}
	}

	return result, nil
}

// Invalidate drops one entry. Returns true (and counts an eviction) only if
// the entry was present.
func (c *QueryCache) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	c.evictions++
	return true
}

// InvalidatePattern deletes every key matching the glob, where * matches
// zero or more characters and the pattern is anchored at both ends.
// Returns the number of entries deleted.
func (c *QueryCache) InvalidatePattern(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	deleted := 0
	for key := range c.entries {
		if matchPattern(pattern, key) {
			delete(c.entries, key)
			c.evictions++
			deleted++
		}
	}
	return deleted
}

// Clear drops everything; every dropped entry counts as an eviction.
func (c *QueryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictions += int64(len(c.entries))
	c.entries = make(map[string]entry)
}

// Cleanup eagerly sweeps all expired entries and returns how many were
// removed. Distinct from the lazy removal that happens on access.
func (c *QueryCache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			c.evictions++
			removed++
		}
	}
	return removed
}

// SetEnabled toggles caching. Disabling clears the cache immediately and
// makes subsequent Gets bypass caching until re-enabled.
func (c *QueryCache) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.enabled = enabled
	if !enabled {
		c.evictions += int64(len(c.entries))
		c.entries = make(map[string]entry)
	}
}

// Enabled reports whether caching is active.
func (c *QueryCache) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Stats returns a snapshot of the counters.
func (c *QueryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.entries),
	}
}

// HitRate returns hits/(hits+misses), or 0 before any traffic.
func (c *QueryCache) HitRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}

// lookup returns the live entry for key, lazily removing it if expired.
func (c *QueryCache) lookup(key string, countHit bool) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		c.evictions++
		return nil, false
	}
	if countHit {
		c.hits++
	}
	return e.data, true
}

func (c *QueryCache) put(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	c.entries[key] = entry{data: value, storedAt: c.now(), ttl: ttl}
}

func (c *QueryCache) resolveTTL(ttl time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return c.defaultTTL
}

// matchPattern matches key against a glob where * means zero or more
// characters, anchored at both ends. Non-star text must appear in order.
func matchPattern(pattern, key string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == key
	}

	if !strings.HasPrefix(key, parts[0]) {
		return false
	}
	rest := key[len(parts[0]):]

	for _, part := range parts[1 : len(parts)-1] {
		if part == "" {
			continue
		}
		idx := strings.Index(rest, part)
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(part):]
	}

	return strings.HasSuffix(rest, parts[len(parts)-1])
}
