package metacache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"vidfetch/internal/logging"
	"vidfetch/internal/metrics"
)

// Defaults tuned for extractor metadata, which changes infrequently.
const (
	DefaultTTL           = time.Hour
	DefaultSweepInterval = 5 * time.Minute
)

// Options configures a Cache.
type Options struct {
	// Name labels metrics and logs (e.g. "info").
	Name          string
	TTL           time.Duration
	SweepInterval time.Duration
	// MaxEntries caps the cache; 0 means unbounded. When full, expired entries
	// go first, then the entries closest to expiry.
	MaxEntries int
	Logger     *slog.Logger
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Stats summarizes cache activity.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

type entry[T any] struct {
	data      T
	expiresAt time.Time
}

// Cache is a time-to-live key/value store. Reads past expiry are misses and
// evict the entry; a background sweep started with Start removes the rest.
// Writes are last-write-wins. Nothing is persisted.
type Cache[T any] struct {
	name          string
	ttl           time.Duration
	sweepInterval time.Duration
	maxEntries    int
	logger        *slog.Logger
	now           func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry[T]

	hits   atomic.Int64
	misses atomic.Int64

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	stopped   chan struct{}
}

// New constructs a Cache. It does not start the sweep loop.
func New[T any](opts Options) *Cache[T] {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Name == "" {
		opts.Name = "default"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache[T]{
		name:          opts.Name,
		ttl:           opts.TTL,
		sweepInterval: opts.SweepInterval,
		maxEntries:    opts.MaxEntries,
		logger:        logging.NewComponentLogger(opts.Logger, "metacache"),
		now:           opts.Now,
		entries:       make(map[string]*entry[T]),
	}
}

// Get returns the cached value for key, or false on a miss.
func (c *Cache[T]) Get(key string) (T, bool) {
	var zero T
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.recordMiss("miss")
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		// Only drop the entry we saw; a concurrent Set may have replaced it.
		if current, still := c.entries[key]; still && current == e {
			delete(c.entries, key)
			metrics.CacheEvictionsTotal.WithLabelValues(c.name).Inc()
		}
		c.mu.Unlock()
		c.recordMiss("expired")
		return zero, false
	}
	c.hits.Add(1)
	metrics.CacheRequestsTotal.WithLabelValues(c.name, "hit").Inc()
	return e.data, true
}

// Has reports whether key holds an unexpired value without counting a lookup.
func (c *Cache[T]) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return ok && c.now().Before(e.expiresAt)
}

// Set stores value under key. A ttl of zero or less uses the cache default.
func (c *Cache[T]) Set(key string, value T, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictLocked(now)
	}
	c.entries[key] = &entry[T]{data: value, expiresAt: now.Add(ttl)}
}

// Delete removes key. Missing keys are ignored.
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry[T])
	c.mu.Unlock()
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns entry count and hit/miss counters.
func (c *Cache[T]) Stats() Stats {
	return Stats{Entries: c.Len(), Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Sweep removes expired entries and returns how many were dropped. Unexpired
// entries are never touched.
func (c *Cache[T]) Sweep() int {
	now := c.now()
	c.mu.Lock()
	removed := 0
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()
	if removed > 0 {
		metrics.CacheEvictionsTotal.WithLabelValues(c.name).Add(float64(removed))
		c.logger.Debug("cache sweep removed expired entries",
			logging.String("cache", c.name),
			logging.Int("removed", removed),
		)
	}
	return removed
}

// Start launches the periodic sweep. Calling Start on a running cache is a no-op.
func (c *Cache[T]) Start(ctx context.Context) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.cancel != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.stopped = make(chan struct{})
	go c.sweepLoop(loopCtx, c.stopped)
}

// Close stops the sweep loop and waits for it to exit. It is idempotent.
func (c *Cache[T]) Close() {
	c.lifecycle.Lock()
	cancel, stopped := c.cancel, c.stopped
	c.cancel, c.stopped = nil, nil
	c.lifecycle.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}

func (c *Cache[T]) sweepLoop(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

func (c *Cache[T]) recordMiss(result string) {
	c.misses.Add(1)
	metrics.CacheRequestsTotal.WithLabelValues(c.name, result).Inc()
}

// evictLocked makes room for one entry. Caller holds c.mu.
func (c *Cache[T]) evictLocked(now time.Time) {
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}
	for len(c.entries) >= c.maxEntries {
		var oldestKey string
		var oldest time.Time
		for key, e := range c.entries {
			if oldestKey == "" || e.expiresAt.Before(oldest) {
				oldestKey, oldest = key, e.expiresAt
			}
		}
		delete(c.entries, oldestKey)
	}
}
