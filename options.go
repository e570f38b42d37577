package searchkit

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Engine.
type Option interface {
	apply(*engineConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*engineConfig)

func (f optionFunc) apply(c *engineConfig) { f(c) }

type engineConfig struct {
	source Source

	redisAddrs    []string
	redisUsername string
	redisPassword string
	redisDB       int
	keyPrefix     string

	timeout           time.Duration
	fuzzyPreset       string
	cacheMaxEntries   int
	cacheTTL          time.Duration
	prefetchThreshold int
	seedTerms         []string

	logger *zap.Logger
}

// WithSource sets the document source queries run against. Required.
func WithSource(src Source) Option {
	return optionFunc(func(c *engineConfig) {
		c.source = src
	})
}

// WithRedis persists suggestion records and search history to a Redis
// instance. Without it the engine keeps them in memory only.
func WithRedis(addr, username, password string, db int) Option {
	return optionFunc(func(c *engineConfig) {
		c.redisAddrs = []string{addr}
		c.redisUsername = username
		c.redisPassword = password
		c.redisDB = db
	})
}

// WithKeyPrefix namespaces all persisted keys. Default: "searchkit:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *engineConfig) {
		c.keyPrefix = prefix
	})
}

// WithTimeout sets the per-fetch budget. Default: 5s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *engineConfig) {
		c.timeout = d
	})
}

// WithFuzzyPreset selects the fuzzy matching preset by name
// (default, strict, relaxed, exact).
func WithFuzzyPreset(name string) Option {
	return optionFunc(func(c *engineConfig) {
		c.fuzzyPreset = name
	})
}

// WithCacheSize sets the result cache capacity. Default: 1000 entries.
func WithCacheSize(n int) Option {
	return optionFunc(func(c *engineConfig) {
		c.cacheMaxEntries = n
	})
}

// WithCacheTTL sets the result cache entry lifetime. Default: 5 minutes.
func WithCacheTTL(d time.Duration) Option {
	return optionFunc(func(c *engineConfig) {
		c.cacheTTL = d
	})
}

// WithPrefetchThreshold sets how many accesses mark a cache key
// prefetch-eligible. Default: 3.
func WithPrefetchThreshold(n int) Option {
	return optionFunc(func(c *engineConfig) {
		c.prefetchThreshold = n
	})
}

// WithSeedTerms seeds the suggestion engine's popular terms.
func WithSeedTerms(terms []string) Option {
	return optionFunc(func(c *engineConfig) {
		c.seedTerms = terms
	})
}

// WithLogger enables structured logging for engine operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *engineConfig) {
		c.logger = l
	})
}
