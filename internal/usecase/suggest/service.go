// Package suggest maintains per-search-type suggestion records and ranks
// them for auto-complete. Persistence is best-effort: storage failures are
// logged and the engine continues with in-memory state.
package suggest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/athlinked/searchkit/internal/domain/search/searchtype"
	domsuggest "github.com/athlinked/searchkit/internal/domain/suggest"
	"github.com/athlinked/searchkit/internal/match"
	"github.com/athlinked/searchkit/internal/score"
)

// Engine limits.
const (
	DefaultMaxSuggestions = 10
	HistorySize           = 20
	MaxCacheEntries       = 100
	CacheTTL              = 5 * time.Minute
	popularTermCount      = 10

	// Fixed base popularity for candidates that carry no usage record.
	historyPopularity     = 0.3
	popularPopularity     = 0.4
	savedSearchPopularity = 0.5
)

// Persistence keys.
const (
	recordsKey = "suggestions"
	historyKey = "history"
)

// Options tune one Suggest call.
type Options struct {
	MaxSuggestions int
	IncludeHistory bool
	IncludePopular bool
}

// DefaultOptions returns the standard auto-complete options.
func DefaultOptions() Options {
	return Options{MaxSuggestions: DefaultMaxSuggestions, IncludeHistory: true, IncludePopular: true}
}

// Suggestion is one ranked auto-complete candidate.
type Suggestion struct {
	Text     string
	Kind     domsuggest.Kind
	Category string
	Score    float64
}

// bucket keeps records in insertion order per search type.
type bucket struct {
	order   []string
	records map[string]*domsuggest.Record // keyed by lowercased text
}

func newBucket() *bucket {
	return &bucket{records: make(map[string]*domsuggest.Record)}
}

func (b *bucket) upsertRestored(r *domsuggest.Record) {
	k := strings.ToLower(r.Text())
	if _, ok := b.records[k]; !ok {
		b.order = append(b.order, k)
	}
	b.records[k] = r
}

func (b *bucket) upsert(text string, kind domsuggest.Kind, category string, now time.Time) *domsuggest.Record {
	k := strings.ToLower(text)
	if r, ok := b.records[k]; ok {
		r.Touch(now)
		return r
	}
	r := domsuggest.New(text, kind, category, now)
	b.records[k] = &r
	b.order = append(b.order, k)
	return &r
}

type historyEntry struct {
	Term string
	At   time.Time
}

type cacheEntry struct {
	term       string
	items      []Suggestion
	insertedAt time.Time
}

// Service is the suggestion engine.
type Service struct {
	mu      sync.Mutex
	buckets map[searchtype.Type]*bucket
	history []historyEntry // most-recent-first
	seeded  []string       // popular terms without usage records
	cache   map[string]cacheEntry

	store       store // nil disables persistence
	historySize int
	matcher     *match.Matcher
	scorer      *score.Scorer
	logger      *zap.Logger
	nowFn       func() time.Time
}

// New creates a suggestion engine. A nil store disables persistence.
func New(st store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		buckets:     make(map[searchtype.Type]*bucket),
		cache:       make(map[string]cacheEntry),
		store:       st,
		historySize: HistorySize,
		matcher:     match.New(),
		scorer:      score.New(),
		logger:      logger,
		nowFn:       time.Now,
	}
}

// WithHistorySize overrides the history ring capacity.
func (s *Service) WithHistorySize(n int) *Service {
	if n > 0 {
		s.historySize = n
	}
	return s
}

// WithClock overrides the time source. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.nowFn = now
	return s
}

// WithSeedTerms installs popular terms that rank even before any usage is
// recorded (fixed popularity, no record).
func (s *Service) WithSeedTerms(terms []string) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeded = append(s.seeded[:0], terms...)
	return s
}

// RecordUse registers one use of a search term and feeds the history ring.
func (s *Service) RecordUse(ctx context.Context, term string, st searchtype.Type) {
	term = strings.TrimSpace(term)
	if term == "" {
		return
	}

	s.mu.Lock()
	now := s.nowFn()
	s.bucketFor(st).upsert(term, domsuggest.KindTerm, "", now)
	s.pushHistory(term, now)
	s.invalidateCacheFor(term)
	s.mu.Unlock()

	s.persist(ctx)
}

// RecordFilterUse registers one use of a filter value under its category.
func (s *Service) RecordFilterUse(ctx context.Context, value, category string, st searchtype.Type) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}

	s.mu.Lock()
	s.bucketFor(st).upsert(value, domsuggest.KindFilter, category, s.nowFn())
	s.invalidateCacheFor(value)
	s.mu.Unlock()

	s.persist(ctx)
}

// RecordSavedSearch registers a saved search with its fixed default popularity.
func (s *Service) RecordSavedSearch(ctx context.Context, name string, st searchtype.Type) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}

	s.mu.Lock()
	r := s.bucketFor(st).upsert(name, domsuggest.KindSavedSearch, "", s.nowFn())
	if r.UseCount() == 1 {
		r.SetPopularity(savedSearchPopularity)
	}
	s.invalidateCacheFor(name)
	s.mu.Unlock()

	s.persist(ctx)
}

// Suggest returns ranked auto-complete candidates for a partial term.
// Results are cached for CacheTTL keyed by (term, type, options).
func (s *Service) Suggest(term string, st searchtype.Type, opts Options) []Suggestion {
	if opts.MaxSuggestions <= 0 {
		opts.MaxSuggestions = DefaultMaxSuggestions
	}
	term = strings.TrimSpace(term)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFn()
	key := suggestCacheKey(term, st, opts)
	if e, ok := s.cache[key]; ok && now.Sub(e.insertedAt) <= CacheTTL {
		return cloneSuggestions(e.items)
	}

	byText := make(map[string]Suggestion) // lowercased text -> best candidate

	// (a) matching search-type records plus the generic "all" bucket.
	for _, b := range s.candidateBuckets(st) {
		for _, k := range b.order {
			r := b.records[k]
			sim, ok := s.hit(term, r.Text())
			if !ok {
				continue
			}
			r.Refresh(now)
			keep(byText, Suggestion{
				Text:     r.Text(),
				Kind:     r.Kind(),
				Category: r.Category(),
				Score: s.scorer.Score(score.Input{
					Text:            r.Text(),
					Term:            term,
					FuzzySimilarity: sim,
					Popularity:      r.Popularity(),
					LastUsedAt:      r.LastUsedAt(),
					Kind:            string(r.Kind()),
				}, now),
			})
		}
	}

	// (b) recent search history, most-recent-first.
	if opts.IncludeHistory {
		for _, h := range s.history {
			sim, ok := s.hit(term, h.Term)
			if !ok {
				continue
			}
			keep(byText, Suggestion{
				Text: h.Term,
				Kind: domsuggest.KindTerm,
				Score: s.scorer.Score(score.Input{
					Text:            h.Term,
					Term:            term,
					FuzzySimilarity: sim,
					Popularity:      historyPopularity,
					LastUsedAt:      h.At,
				}, now),
			})
		}
	}

	// (c) globally popular terms; seeded ones have no record to score from.
	if opts.IncludePopular {
		for _, p := range s.popularTerms() {
			sim, ok := s.hit(term, p)
			if !ok {
				continue
			}
			keep(byText, Suggestion{
				Text: p,
				Kind: domsuggest.KindTerm,
				Score: s.scorer.Score(score.Input{
					Text:            p,
					Term:            term,
					FuzzySimilarity: sim,
					Popularity:      popularPopularity,
				}, now),
			})
		}
	}

	out := make([]Suggestion, 0, len(byText))
	for _, c := range byText {
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > opts.MaxSuggestions {
		out = out[:opts.MaxSuggestions]
	}

	s.cacheResult(key, term, out, now)
	return cloneSuggestions(out)
}

// Clear drops records for one concrete search type. An empty or all type
// drops every record and the history.
func (s *Service) Clear(ctx context.Context, st searchtype.Type) {
	s.mu.Lock()
	if st == "" || st == searchtype.All {
		s.buckets = make(map[searchtype.Type]*bucket)
		s.history = nil
	} else {
		delete(s.buckets, st)
	}
	s.cache = make(map[string]cacheEntry)
	s.mu.Unlock()

	s.persist(ctx)
}

// History returns the recent search terms, most recent first.
func (s *Service) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.history))
	for i, h := range s.history {
		out[i] = h.Term
	}
	return out
}

// Counts reports record counts per search type for diagnostics.
func (s *Service) Counts() map[searchtype.Type]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[searchtype.Type]int, len(s.buckets))
	for st, b := range s.buckets {
		out[st] = len(b.records)
	}
	return out
}

// --- internals (callers hold s.mu) ---

func (s *Service) bucketFor(st searchtype.Type) *bucket {
	b, ok := s.buckets[st]
	if !ok {
		b = newBucket()
		s.buckets[st] = b
	}
	return b
}

func (s *Service) candidateBuckets(st searchtype.Type) []*bucket {
	var bs []*bucket
	if b, ok := s.buckets[st]; ok {
		bs = append(bs, b)
	}
	if st != searchtype.All {
		if b, ok := s.buckets[searchtype.All]; ok {
			bs = append(bs, b)
		}
	}
	return bs
}

// hit reports whether candidate qualifies for term: empty terms accept
// everything, otherwise substring containment or the default fuzzy preset.
func (s *Service) hit(term, candidate string) (float64, bool) {
	if term == "" {
		return 0, true
	}
	r := s.matcher.Match(term, candidate, match.Default)
	return r.Similarity, r.Matched
}

func (s *Service) pushHistory(term string, now time.Time) {
	k := strings.ToLower(term)
	for i, h := range s.history {
		if strings.ToLower(h.Term) == k {
			s.history = append(s.history[:i], s.history[i+1:]...)
			break
		}
	}
	s.history = append([]historyEntry{{Term: term, At: now}}, s.history...)
	if len(s.history) > s.historySize {
		s.history = s.history[:s.historySize]
	}
}

// popularTerms merges the highest-popularity records across every bucket
// with the seeded terms.
func (s *Service) popularTerms() []string {
	type ranked struct {
		text string
		pop  float64
	}
	var rs []ranked
	for _, b := range s.buckets {
		for _, r := range b.records {
			rs = append(rs, ranked{text: r.Text(), pop: r.Popularity()})
		}
	}
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].pop > rs[j].pop })
	if len(rs) > popularTermCount {
		rs = rs[:popularTermCount]
	}

	out := make([]string, 0, len(rs)+len(s.seeded))
	for _, r := range rs {
		out = append(out, r.text)
	}
	out = append(out, s.seeded...)
	return out
}

func (s *Service) cacheResult(key, term string, items []Suggestion, now time.Time) {
	if len(s.cache) >= MaxCacheEntries {
		s.evictOldestCached()
	}
	s.cache[key] = cacheEntry{term: strings.ToLower(term), items: items, insertedAt: now}
}

func (s *Service) evictOldestCached() {
	var oldestKey string
	var oldest time.Time
	for k, e := range s.cache {
		if oldestKey == "" || e.insertedAt.Before(oldest) {
			oldestKey = k
			oldest = e.insertedAt
		}
	}
	if oldestKey != "" {
		delete(s.cache, oldestKey)
	}
}

// invalidateCacheFor drops cached suggestion lists a newly used term could
// have appeared in: any cached term that prefixes the term, or vice versa.
func (s *Service) invalidateCacheFor(term string) {
	k := strings.ToLower(term)
	for key, e := range s.cache {
		if e.term == "" || strings.HasPrefix(k, e.term) || strings.HasPrefix(e.term, k) {
			delete(s.cache, key)
		}
	}
}

func suggestCacheKey(term string, st searchtype.Type, opts Options) string {
	return fmt.Sprintf("%s|%s|%d|%t|%t",
		strings.ToLower(term), st, opts.MaxSuggestions, opts.IncludeHistory, opts.IncludePopular)
}

func keep(byText map[string]Suggestion, c Suggestion) {
	k := strings.ToLower(c.Text)
	if prev, ok := byText[k]; ok && prev.Score >= c.Score {
		return
	}
	byText[k] = c
}

func cloneSuggestions(in []Suggestion) []Suggestion {
	out := make([]Suggestion, len(in))
	copy(out, in)
	return out
}
