// Package cache holds completed search results with TTL expiry, LRU
// eviction, and continuously maintained hit-rate statistics.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/athlinked/searchkit/internal/domain/search/result"
)

// Defaults applied when Config fields are zero.
const (
	DefaultMaxEntries        = 1000
	DefaultTTL               = 5 * time.Minute
	DefaultPrefetchThreshold = 3
)

// perItemOverheadBytes is the rough in-memory cost of one cached item beyond
// its text, used for the memory estimate.
const perItemOverheadBytes = 192

// Config tunes the cache.
type Config struct {
	MaxEntries        int
	DefaultTTL        time.Duration
	PrefetchThreshold int
}

func (c *Config) applyDefaults() {
	if c.MaxEntries <= 0 {
		c.MaxEntries = DefaultMaxEntries
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = DefaultTTL
	}
	if c.PrefetchThreshold <= 0 {
		c.PrefetchThreshold = DefaultPrefetchThreshold
	}
}

// Stats is a snapshot of the cache counters.
type Stats struct {
	TotalRequests        int64
	Hits                 int64
	Misses               int64
	HitRate              float64 // percent
	EntryCount           int
	EstimatedMemoryBytes int64
}

type entry struct {
	payload        result.Page
	insertedAt     time.Time
	ttl            time.Duration
	accessCount    int64
	lastAccessedAt time.Time
	sizeBytes      int64
}

// RefreshFunc re-executes the search behind a hot key. It runs detached and
// must store its own result via Set.
type RefreshFunc func(key string)

// Cache is a bounded key -> result-page store. Every public method is one
// atomic critical section: expiry-on-read, evict-then-insert, and stat
// updates never interleave.
type Cache struct {
	mu       sync.Mutex
	cfg      Config
	entries  map[string]*entry
	seen     map[string]int // per-key request counts for prefetch eligibility
	refresh  RefreshFunc
	hitTotal *prometheus.CounterVec // label "result": hit/miss, optional
	logger   *zap.Logger
	nowFn    func() time.Time

	totalRequests int64
	hits          int64
	misses        int64
}

// New creates a result cache.
// hitTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(cfg Config, hitTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		cfg:      cfg,
		entries:  make(map[string]*entry),
		seen:     make(map[string]int),
		hitTotal: hitTotal,
		logger:   logger,
		nowFn:    time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.nowFn = now
	return c
}

// MaxEntries reports the configured entry capacity.
func (c *Cache) MaxEntries() int { return c.cfg.MaxEntries }

// SetRefreshFunc installs the background refresh hook used for prefetching.
func (c *Cache) SetRefreshFunc(fn RefreshFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresh = fn
}

// Get returns the cached page for key. An entry past its TTL is deleted on
// read and counted as a miss. A hit bumps the entry's access metadata.
func (c *Cache) Get(key string) (result.Page, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFn()
	c.totalRequests++
	c.seen[key]++

	e, ok := c.entries[key]
	if !ok {
		c.miss()
		return result.Page{}, false
	}
	if now.Sub(e.insertedAt) > e.ttl {
		delete(c.entries, key)
		c.miss()
		return result.Page{}, false
	}

	e.accessCount++
	e.lastAccessedAt = now
	c.hits++
	c.inc("hit")
	return e.payload, true
}

// Set inserts or overwrites the page for key. At capacity, the entry with
// the oldest lastAccessedAt is evicted first. A key requested at least
// PrefetchThreshold times triggers the detached refresh hook.
func (c *Cache) Set(key string, page result.Page, ttl ...time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d := c.cfg.DefaultTTL
	if len(ttl) > 0 && ttl[0] > 0 {
		d = ttl[0]
	}

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.cfg.MaxEntries {
		c.evictOldest()
	}

	now := c.nowFn()
	c.entries[key] = &entry{
		payload:        page,
		insertedAt:     now,
		ttl:            d,
		lastAccessedAt: now,
		sizeBytes:      pageSize(key, page),
	}

	if c.refresh != nil && c.seen[key] >= c.cfg.PrefetchThreshold {
		// Reset the count so a refresh that re-Sets the key cannot retrigger
		// itself. The next threshold-many requests arm the hook again.
		c.seen[key] = 0
		go c.refresh(key)
	}
}

// Invalidate removes entries. An empty pattern clears everything; otherwise
// every key containing the pattern as a substring is removed. Returns the
// number of entries dropped.
func (c *Cache) Invalidate(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pattern == "" {
		n := len(c.entries)
		c.entries = make(map[string]*entry)
		c.seen = make(map[string]int)
		return n
	}

	n := 0
	for k := range c.entries {
		if strings.Contains(k, pattern) {
			delete(c.entries, k)
			delete(c.seen, k)
			n++
		}
	}
	return n
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var mem int64
	for _, e := range c.entries {
		mem += e.sizeBytes
	}

	s := Stats{
		TotalRequests:        c.totalRequests,
		Hits:                 c.hits,
		Misses:               c.misses,
		EntryCount:           len(c.entries),
		EstimatedMemoryBytes: mem,
	}
	if c.totalRequests > 0 {
		s.HitRate = float64(c.hits) / float64(c.totalRequests) * 100
	}
	return s
}

// evictOldest removes the least-recently-accessed entry. Linear scan: the
// cache is capped at a size where O(n) eviction is cheaper than keeping an
// ordered structure.
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.lastAccessedAt.Before(oldest) {
			oldestKey = k
			oldest = e.lastAccessedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.logger.Debug("Evicted cache entry", zap.String("key", oldestKey))
	}
}

func (c *Cache) miss() {
	c.misses++
	c.inc("miss")
}

func (c *Cache) inc(res string) {
	if c.hitTotal != nil {
		c.hitTotal.WithLabelValues(res).Inc()
	}
}

func pageSize(key string, page result.Page) int64 {
	size := int64(len(key))
	for i := range page.Items {
		size += int64(len(page.Items[i].Item.Text())+len(page.Items[i].Highlighted)) + perItemOverheadBytes
	}
	return size
}
