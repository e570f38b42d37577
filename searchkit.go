// Package searchkit is a search and relevance engine: fuzzy matching,
// relevance scoring, result caching, query planning, suggestions, and
// performance monitoring over an application-supplied document source.
package searchkit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/athlinked/searchkit/internal/cache"
	"github.com/athlinked/searchkit/internal/domain/search/result"
	"github.com/athlinked/searchkit/internal/domain/search/searchtype"
	"github.com/athlinked/searchkit/internal/kv"
	"github.com/athlinked/searchkit/internal/match"
	"github.com/athlinked/searchkit/internal/monitor"
	"github.com/athlinked/searchkit/internal/optimizer"
	searchuc "github.com/athlinked/searchkit/internal/usecase/search"
	suggestuc "github.com/athlinked/searchkit/internal/usecase/suggest"
)

// Engine is the searchkit SDK entry point.
type Engine struct {
	store       kv.Store
	results     *cache.Cache
	opt         *optimizer.Optimizer
	perf        *monitor.Monitor
	suggestions *suggestuc.Service
	searchSvc   *searchuc.Service
}

// New creates an Engine over the given document source.
func New(opts ...Option) (*Engine, error) {
	cfg := &engineConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.source == nil {
		return nil, errors.New("searchkit: document source required (use WithSource)")
	}
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	suggestions := suggestuc.New(store, logger)
	if len(cfg.seedTerms) > 0 {
		suggestions.WithSeedTerms(cfg.seedTerms)
	}
	if err := suggestions.Load(context.Background()); err != nil {
		logger.Warn("Failed to restore suggestion state", zap.Error(err))
	}

	results := cache.New(cache.Config{
		MaxEntries:        cfg.cacheMaxEntries,
		DefaultTTL:        cfg.cacheTTL,
		PrefetchThreshold: cfg.prefetchThreshold,
	}, nil, logger)

	opt := optimizer.New()
	perf := monitor.New(nil, logger)

	searchSvc := searchuc.New(
		sourceExecutor{src: cfg.source}, opt, results, suggestions, perf, logger,
	)
	if cfg.timeout > 0 {
		searchSvc.WithTimeout(cfg.timeout)
	}
	if cfg.fuzzyPreset != "" {
		searchSvc.WithFuzzyOptions(match.PresetByName(cfg.fuzzyPreset))
	}
	searchSvc.WithPrefetch()

	return &Engine{
		store:       store,
		results:     results,
		opt:         opt,
		perf:        perf,
		suggestions: suggestions,
		searchSvc:   searchSvc,
	}, nil
}

func createStore(cfg *engineConfig) (kv.Store, error) {
	prefix := cfg.keyPrefix
	if prefix == "" {
		prefix = "searchkit:"
	}
	if len(cfg.redisAddrs) == 0 {
		return kv.NewPrefixStore(kv.NewMemoryStore(), prefix), nil
	}
	s, err := kv.NewRedisStore(kv.Config{
		Addrs:    cfg.redisAddrs,
		Username: cfg.redisUsername,
		Password: cfg.redisPassword,
		DB:       cfg.redisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("searchkit: create redis store: %w", err)
	}
	return kv.NewPrefixStore(s, prefix), nil
}

// Close releases all resources.
func (e *Engine) Close() {
	if e.store != nil {
		e.store.Close()
	}
}

// Search starts a fluent search for the given term.
func (e *Engine) Search(term string) *SearchBuilder {
	return &SearchBuilder{engine: e, term: term, searchType: All}
}

// Suggest returns ranked auto-complete candidates for a partial term.
func (e *Engine) Suggest(term string, st SearchType, limit int) []Suggestion {
	opts := suggestuc.DefaultOptions()
	if limit > 0 {
		opts.MaxSuggestions = limit
	}
	items := e.suggestions.Suggest(term, searchtype.Type(st), opts)
	out := make([]Suggestion, len(items))
	for i, it := range items {
		out[i] = Suggestion{
			Text:     it.Text,
			Kind:     string(it.Kind),
			Category: it.Category,
			Score:    it.Score,
		}
	}
	return out
}

// RecordFilterUse records a filter interaction for future suggestions.
func (e *Engine) RecordFilterUse(ctx context.Context, value, category string, st SearchType) {
	e.suggestions.RecordFilterUse(ctx, value, category, searchtype.Type(st))
}

// RecordSavedSearch records a saved-search name for future suggestions.
func (e *Engine) RecordSavedSearch(ctx context.Context, name string, st SearchType) {
	e.suggestions.RecordSavedSearch(ctx, name, searchtype.Type(st))
}

// History returns recent search terms, most recent first.
func (e *Engine) History() []string {
	return e.suggestions.History()
}

// ClearSuggestions removes suggestion records for one type, or all of them
// when st is All.
func (e *Engine) ClearSuggestions(ctx context.Context, st SearchType) {
	e.suggestions.Clear(ctx, searchtype.Type(st))
}

// CacheStats reports result cache counters.
func (e *Engine) CacheStats() CacheStats {
	st := e.results.Stats()
	return CacheStats{
		TotalRequests:        st.TotalRequests,
		Hits:                 st.Hits,
		Misses:               st.Misses,
		HitRate:              st.HitRate,
		EntryCount:           st.EntryCount,
		EstimatedMemoryBytes: st.EstimatedMemoryBytes,
	}
}

// InvalidateCache removes cached result sets whose key contains pattern.
// An empty pattern clears the cache. Returns the number of entries removed.
func (e *Engine) InvalidateCache(pattern string) int {
	return e.results.Invalidate(pattern)
}

// PerformanceStatus reports rolling statistics and trailing-window activity.
func (e *Engine) PerformanceStatus() PerformanceStatus {
	rolling := e.perf.Rolling()
	rt := e.perf.RealtimeStatus()
	alerts := e.perf.Alerts()

	out := PerformanceStatus{
		Samples:            rolling.Samples,
		MeanResponseTimeMs: rolling.MeanResponseTimeMs,
		ErrorRate:          rolling.ErrorRate,
		CacheHitRate:       rolling.CacheHitRate,
		LastHour:           windowStats(rt.LastHour),
		LastMinute:         windowStats(rt.LastMinute),
	}
	out.Alerts = make([]Alert, len(alerts))
	for i, a := range alerts {
		out.Alerts[i] = Alert{
			ID:        a.ID,
			Kind:      string(a.Kind),
			Severity:  string(a.Severity),
			Value:     a.Value,
			Threshold: a.Threshold,
			Timestamp: a.Timestamp,
		}
	}
	return out
}

// OptimizationSuggestions returns tuning advice derived from recent
// performance, plus accumulated composite index candidates.
func (e *Engine) OptimizationSuggestions() OptimizationReport {
	recs := e.opt.Recommendations()
	report := OptimizationReport{Suggestions: e.perf.OptimizationSuggestions()}
	report.IndexCandidates = make([]IndexCandidate, len(recs))
	for i, r := range recs {
		report.IndexCandidates[i] = IndexCandidate{
			Collection: r.Collection,
			Fields:     r.Fields,
		}
	}
	return report
}

// Suggestion is one ranked auto-complete candidate.
type Suggestion struct {
	Text     string
	Kind     string // term, filter, savedSearch
	Category string
	Score    float64
}

// CacheStats is a snapshot of result cache counters.
type CacheStats struct {
	TotalRequests        int64
	Hits                 int64
	Misses               int64
	HitRate              float64 // percent
	EntryCount           int
	EstimatedMemoryBytes int64
}

// WindowStats summarize a trailing wall-clock window.
type WindowStats struct {
	Searches           int
	Errors             int
	CacheHits          int
	MeanResponseTimeMs float64
}

// Alert is one threshold crossing.
type Alert struct {
	ID        string
	Kind      string
	Severity  string
	Value     float64
	Threshold float64
	Timestamp time.Time
}

// PerformanceStatus combines rolling statistics, trailing-window activity,
// and active alerts.
type PerformanceStatus struct {
	Samples            int
	MeanResponseTimeMs float64
	ErrorRate          float64 // percent
	CacheHitRate       float64 // percent
	LastHour           WindowStats
	LastMinute         WindowStats
	Alerts             []Alert
}

// IndexCandidate is a recommended composite index.
type IndexCandidate struct {
	Collection string
	Fields     []string
}

// OptimizationReport carries performance advice and index candidates.
type OptimizationReport struct {
	Suggestions     []string
	IndexCandidates []IndexCandidate
}

func windowStats(w monitor.WindowStats) WindowStats {
	return WindowStats{
		Searches:           w.Searches,
		Errors:             w.Errors,
		CacheHits:          w.CacheHits,
		MeanResponseTimeMs: w.MeanResponseTimeMs,
	}
}

// sourceExecutor adapts the public Source to the internal executor contract.
type sourceExecutor struct {
	src Source
}

func (a sourceExecutor) Execute(ctx context.Context, plan *optimizer.Plan) ([]result.Item, error) {
	req := SourceRequest{
		Collection:    plan.Collection,
		EstimatedCost: plan.EstimatedCost,
	}
	req.Constraints = make([]Constraint, len(plan.Constraints))
	for i, c := range plan.Constraints {
		req.Constraints[i] = Constraint{
			Kind:   c.Kind.String(),
			Field:  c.Field,
			Op:     c.Op,
			Values: c.Values,
		}
	}

	docs, err := a.src.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	items := make([]result.Item, len(docs))
	for i, d := range docs {
		items[i] = result.NewItem(
			d.ID, searchtype.Type(d.Type), d.Text,
			d.Attributes, d.Popularity, d.CreatedAt, d.LastUsedAt,
		)
	}
	return items, nil
}
