// Package search orchestrates one search invocation:
// Validate -> CacheLookup -> {HitReturn | Execute -> Score -> Cache -> Return},
// reporting every outcome to the performance monitor.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/athlinked/searchkit/internal/cache"
	"github.com/athlinked/searchkit/internal/domain"
	"github.com/athlinked/searchkit/internal/domain/search/query"
	"github.com/athlinked/searchkit/internal/domain/search/result"
	"github.com/athlinked/searchkit/internal/domain/search/searchtype"
	"github.com/athlinked/searchkit/internal/match"
	"github.com/athlinked/searchkit/internal/monitor"
	"github.com/athlinked/searchkit/internal/optimizer"
	"github.com/athlinked/searchkit/internal/score"
	suggestuc "github.com/athlinked/searchkit/internal/usecase/suggest"
)

// DefaultTimeout bounds one store fetch.
const DefaultTimeout = 5 * time.Second

// Service is the search orchestrator.
type Service struct {
	exec        Executor
	opt         *optimizer.Optimizer
	results     *cache.Cache
	suggestions *suggestuc.Service
	perf        *monitor.Monitor
	matcher     *match.Matcher
	scorer      *score.Scorer
	fuzzyOpts   match.Options
	timeout     time.Duration
	logger      *zap.Logger
	nowFn       func() time.Time

	prefetch bool
	hotCap   int
	hotMu    sync.Mutex
	hot      map[string]query.Query // cache key -> query, insertion-bounded
	hotOrder []string

	reqTotal *prometheus.CounterVec
	durHist  *prometheus.HistogramVec
}

// New creates a search orchestrator. The suggestion engine and monitor may be
// nil when those facilities are not wanted.
func New(
	exec Executor,
	opt *optimizer.Optimizer,
	results *cache.Cache,
	suggestions *suggestuc.Service,
	perf *monitor.Monitor,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		exec:        exec,
		opt:         opt,
		results:     results,
		suggestions: suggestions,
		perf:        perf,
		matcher:     match.New(),
		scorer:      score.New(),
		fuzzyOpts:   match.Default,
		timeout:     DefaultTimeout,
		logger:      logger,
		nowFn:       time.Now,
	}
}

// WithTimeout overrides the store fetch budget.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// WithFuzzyOptions overrides the fuzzy matching preset.
func (s *Service) WithFuzzyOptions(o match.Options) *Service {
	s.fuzzyOpts = o
	return s
}

// WithClock overrides the time source. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.nowFn = now
	return s
}

// WithMetrics attaches Prometheus instrumentation. The counter takes
// type/status labels, the histogram a type label. Nil collectors disable it.
func (s *Service) WithMetrics(requests *prometheus.CounterVec, duration *prometheus.HistogramVec) *Service {
	s.reqTotal = requests
	s.durHist = duration
	return s
}

// WithPrefetch connects the result cache's refresh hook: queries requested
// often enough are re-executed in the background on insert so repeat callers
// keep hitting warm entries. The remembered-query map is capped at the
// cache's own capacity so it cannot outgrow the entries it refreshes.
func (s *Service) WithPrefetch() *Service {
	if s.results != nil {
		s.prefetch = true
		s.hotCap = s.results.MaxEntries()
		s.hot = make(map[string]query.Query)
		s.results.SetRefreshFunc(s.refreshHot)
	}
	return s
}

// rememberHot keeps the query behind a cache key so the refresh hook can
// re-execute it. At capacity the oldest remembered key is dropped.
func (s *Service) rememberHot(key string, q *query.Query) {
	s.hotMu.Lock()
	defer s.hotMu.Unlock()

	if _, ok := s.hot[key]; !ok {
		if len(s.hotOrder) >= s.hotCap && len(s.hotOrder) > 0 {
			oldest := s.hotOrder[0]
			s.hotOrder = s.hotOrder[1:]
			delete(s.hot, oldest)
		}
		s.hotOrder = append(s.hotOrder, key)
	}
	s.hot[key] = *q
}

func (s *Service) refreshHot(key string) {
	s.hotMu.Lock()
	q, ok := s.hot[key]
	s.hotMu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	items, err := s.execute(ctx, &q)
	if err != nil {
		s.logger.Debug("Prefetch refresh failed", zap.String("term", q.Term()), zap.Error(err))
		return
	}
	s.results.Set(key, s.scorePage(&q, items))
	s.logger.Debug("Prefetched hot query", zap.String("term", q.Term()))
}

// Search executes one search invocation end to end. The query carries its own
// validation, so a Query value is proof the Validate step passed.
func (s *Service) Search(ctx context.Context, q *query.Query) (result.Page, error) {
	started := s.nowFn()

	key := q.CacheKey()
	if s.prefetch {
		s.rememberHot(key, q)
	}
	if s.results != nil {
		if full, ok := s.results.Get(key); ok {
			page := paginate(full, q)
			s.record(q, started, len(page.Items), true, nil)
			s.feedHistory(ctx, q)
			return page, nil
		}
	}

	items, err := s.execute(ctx, q)
	if err != nil {
		s.record(q, started, 0, false, err)
		return result.Page{}, err
	}

	full := s.scorePage(q, items)
	if s.results != nil {
		s.results.Set(key, full)
	}

	page := paginate(full, q)
	if len(page.Items) == 0 && s.suggestions != nil {
		for _, c := range s.suggestions.Suggest(q.Term(), q.Type(), suggestuc.DefaultOptions()) {
			page.Suggestions = append(page.Suggestions, c.Text)
		}
	}

	s.record(q, started, len(page.Items), false, nil)
	s.feedHistory(ctx, q)
	return page, nil
}

// execute fetches candidates for the query, fanning out when the query spans
// every type. The fetch races a timer: on timeout the caller gets a timeout
// error while the late result, if it arrives, is still scored and cached.
func (s *Service) execute(ctx context.Context, q *query.Query) ([]result.Item, error) {
	if q.Type() == searchtype.All {
		return s.fanOut(ctx, q)
	}
	return s.fetch(ctx, q)
}

type fetchOutcome struct {
	items []result.Item
	err   error
}

func (s *Service) fetch(ctx context.Context, q *query.Query) ([]result.Item, error) {
	plan := s.opt.Plan(q)

	ch := make(chan fetchOutcome, 1)
	go func() {
		items, err := s.exec.Execute(ctx, plan)
		ch <- fetchOutcome{items: items, err: err}
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		if out.err != nil {
			return nil, domain.NewTransport("execute", out.err)
		}
		return out.items, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("execute: %w", ctx.Err())
	case <-timer.C:
		// Abandoned fetch: score and cache the late result when it lands so
		// the work is not wasted, but do not deliver it to this caller.
		go s.cacheLateResult(q, ch)
		return nil, domain.NewTimeout(s.timeout.Milliseconds())
	}
}

func (s *Service) cacheLateResult(q *query.Query, ch <-chan fetchOutcome) {
	out := <-ch
	if out.err != nil || s.results == nil {
		return
	}
	s.results.Set(q.CacheKey(), s.scorePage(q, out.items))
	s.logger.Debug("Cached late search result", zap.String("term", q.Term()))
}

// fanOut runs one optimized sub-search per concrete type. A failing
// sub-search contributes zero items; only all of them failing fails the call.
// Merged results are re-sorted by recency before truncation.
func (s *Service) fanOut(ctx context.Context, q *query.Query) ([]result.Item, error) {
	types := searchtype.All.Concrete()
	pages := make([][]result.Item, len(types))
	errs := make([]error, len(types))

	g, gctx := errgroup.WithContext(ctx)
	for i, st := range types {
		i, st := i, st
		g.Go(func() error {
			sub := q.WithType(st)
			items, err := s.fetch(gctx, &sub)
			if err != nil {
				// Degrade gracefully; the slice stays empty.
				errs[i] = err
				s.logger.Warn("Sub-search failed",
					zap.String("type", string(st)), zap.Error(err))
				return nil
			}
			pages[i] = items
			return nil
		})
	}
	_ = g.Wait()

	var merged []result.Item
	failed := 0
	for i := range types {
		if errs[i] != nil {
			failed++
			continue
		}
		merged = append(merged, pages[i]...)
	}
	if failed == len(types) {
		return nil, fmt.Errorf("all sub-searches failed: %w", errors.Join(errs...))
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt().After(merged[j].CreatedAt())
	})
	return merged, nil
}

// scorePage applies fuzzy filtering and relevance ranking, deduplicates by
// record identity, and computes facets. Pagination happens later so the full
// ranked set can be cached once and serve every page.
func (s *Service) scorePage(q *query.Query, items []result.Item) result.Page {
	now := s.nowFn()
	term := q.Term()

	seen := make(map[string]bool, len(items))
	scored := make([]result.ScoredItem, 0, len(items))
	for _, it := range items {
		id := string(it.Kind()) + "/" + it.ID()
		if seen[id] {
			continue
		}
		seen[id] = true

		mr := s.matcher.Match(term, it.Text(), s.fuzzyOpts)
		if q.Exact() && !strings.EqualFold(term, it.Text()) {
			continue
		}
		if q.Fuzzy() && !mr.Matched {
			continue
		}

		scored = append(scored, result.ScoredItem{
			Item: it,
			Score: s.scorer.Score(score.Input{
				Text:            it.Text(),
				Term:            term,
				FuzzySimilarity: mr.Similarity,
				Popularity:      it.Popularity(),
				LastUsedAt:      it.LastUsedAt(),
			}, now),
			Highlighted: score.Highlight(it.Text(), term),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return result.Page{
		Items:      scored,
		TotalCount: len(scored),
		Facets:     computeFacets(scored),
	}
}

// paginate slices the cached full result set down to the requested window.
func paginate(full result.Page, q *query.Query) result.Page {
	page := result.Page{
		TotalCount: full.TotalCount,
		Facets:     full.Facets,
	}

	start := q.Offset()
	if start > len(full.Items) {
		start = len(full.Items)
	}
	end := start + q.Limit()
	if end > len(full.Items) {
		end = len(full.Items)
	}

	page.Items = append([]result.ScoredItem(nil), full.Items[start:end]...)
	page.HasMore = end < len(full.Items)
	if page.HasMore {
		page.NextOffset = end
	}
	return page
}

// computeFacets counts attribute values across the scored set.
func computeFacets(items []result.ScoredItem) map[string]map[string]int {
	facets := make(map[string]map[string]int)
	for i := range items {
		for k, v := range items[i].Item.Attributes() {
			if v == "" {
				continue
			}
			if facets[k] == nil {
				facets[k] = make(map[string]int)
			}
			facets[k][v]++
		}
	}
	if len(facets) == 0 {
		return nil
	}
	return facets
}

// record reports one performance sample.
func (s *Service) record(q *query.Query, started time.Time, results int, cached bool, err error) {
	elapsed := s.nowFn().Sub(started)

	if s.reqTotal != nil {
		status := "ok"
		switch {
		case err != nil:
			status = "error"
		case cached:
			status = "cached"
		}
		s.reqTotal.WithLabelValues(string(q.Type()), status).Inc()
	}
	if s.durHist != nil {
		s.durHist.WithLabelValues(string(q.Type())).Observe(elapsed.Seconds())
	}

	if s.perf == nil {
		return
	}
	sample := monitor.Sample{
		Timestamp:      s.nowFn(),
		ResponseTimeMs: float64(elapsed.Microseconds()) / 1000,
		ResultCount:    results,
		Cached:         cached,
		Errored:        err != nil,
	}
	if err != nil {
		sample.ErrorKind = errorKind(err)
	}
	s.perf.Record(sample)
}

// feedHistory keeps the suggestion engine's recent/popular history current.
func (s *Service) feedHistory(ctx context.Context, q *query.Query) {
	if s.suggestions == nil || q.Term() == "" {
		return
	}
	s.suggestions.RecordUse(ctx, q.Term(), q.Type())
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, domain.ErrTransport):
		return "transport"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	default:
		return "internal"
	}
}
