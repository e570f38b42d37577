package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/athlinked/searchkit/internal/cache"
	"github.com/athlinked/searchkit/internal/domain"
	"github.com/athlinked/searchkit/internal/domain/search/filter"
	"github.com/athlinked/searchkit/internal/domain/search/query"
	"github.com/athlinked/searchkit/internal/domain/search/result"
	"github.com/athlinked/searchkit/internal/domain/search/searchtype"
	"github.com/athlinked/searchkit/internal/metrics"
	"github.com/athlinked/searchkit/internal/monitor"
	"github.com/athlinked/searchkit/internal/optimizer"
	docrepo "github.com/athlinked/searchkit/internal/repository/document"
	searchuc "github.com/athlinked/searchkit/internal/usecase/search"
	suggestuc "github.com/athlinked/searchkit/internal/usecase/suggest"
)

// Error codes returned in JSON error bodies.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeUnknownType      = "unknown_search_type"
	codeNotFound         = "not_found"
	codeTimeout          = "timeout"
	codeUpstreamError    = "upstream_error"
	codeInternalError    = "internal_error"
)

// Server exposes the search engine over HTTP.
type Server struct {
	search      *searchuc.Service
	suggestions *suggestuc.Service
	results     *cache.Cache
	perf        *monitor.Monitor
	opt         *optimizer.Optimizer
	docs        *docrepo.Repo
	logger      *zap.Logger

	defaultLimit int
	maxLimit     int
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	suggestions *suggestuc.Service,
	results *cache.Cache,
	perf *monitor.Monitor,
	opt *optimizer.Optimizer,
	docs *docrepo.Repo,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		search:      search,
		suggestions: suggestions,
		results:     results,
		perf:        perf,
		opt:         opt,
		docs:        docs,
		logger:      logger,
	}
}

// WithPagination overrides the page size applied when a request omits a
// limit, and caps requested limits. Zero values keep the domain defaults.
func (s *Server) WithPagination(defaultLimit, maxLimit int) *Server {
	s.defaultLimit = defaultLimit
	s.maxLimit = maxLimit
	return s
}

// Routes mounts the API handlers on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Get("/suggest", s.handleSuggest)
		r.Get("/history", s.handleHistory)
		r.Put("/documents", s.handleUpsertDocuments)
		r.Delete("/documents/{type}/{id}", s.handleDeleteDocument)
		r.Route("/diagnostics", func(r chi.Router) {
			r.Get("/cache", s.handleCacheStats)
			r.Get("/performance", s.handlePerformance)
			r.Get("/suggestions", s.handleOptimizationSuggestions)
		})
		r.Route("/admin", func(r chi.Router) {
			r.Post("/invalidate-cache", s.handleInvalidateCache)
			r.Post("/clear-suggestions", s.handleClearSuggestions)
		})
	})
	r.Get("/healthz", s.handleHealthz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}

// searchRequest is the POST /search body.
type searchRequest struct {
	Term      string            `json:"term"`
	Type      string            `json:"type,omitempty"`
	Filters   []filterCondition `json:"filters,omitempty"`
	SortBy    string            `json:"sort_by,omitempty"`
	SortOrder string            `json:"sort_order,omitempty"`
	Limit     int               `json:"limit,omitempty"`
	Offset    int               `json:"offset,omitempty"`
	Fuzzy     bool              `json:"fuzzy,omitempty"`
	Exact     bool              `json:"exact,omitempty"`
}

// filterCondition is the wire form of one filter. Exactly one of value,
// values, range, or dates must be present.
type filterCondition struct {
	Field  string     `json:"field"`
	Value  *string    `json:"value,omitempty"`
	Values []string   `json:"values,omitempty"`
	Range  *rangeBody `json:"range,omitempty"`
	Dates  *datesBody `json:"dates,omitempty"`
}

type rangeBody struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

type datesBody struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

type searchResponse struct {
	Items       []resultItem              `json:"items"`
	TotalCount  int                       `json:"total_count"`
	Facets      map[string]map[string]int `json:"facets,omitempty"`
	Suggestions []string                  `json:"suggestions,omitempty"`
	HasMore     bool                      `json:"has_more"`
	NextOffset  *int                      `json:"next_offset,omitempty"`
}

type resultItem struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Text        string            `json:"text"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Score       float64           `json:"score"`
	Highlighted string            `json:"highlighted,omitempty"`
}

// handleSearch handles POST /api/v1/search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	conds, err := conditionsFromWire(req.Filters)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	limit := req.Limit
	if limit <= 0 && s.defaultLimit > 0 {
		limit = s.defaultLimit
	}
	if s.maxLimit > 0 && limit > s.maxLimit {
		limit = s.maxLimit
	}

	q, err := query.New(query.Params{
		Term:       req.Term,
		SearchType: searchtype.Type(req.Type),
		Filters:    conds,
		SortBy:     req.SortBy,
		SortOrder:  query.Order(req.SortOrder),
		Limit:      limit,
		Offset:     req.Offset,
		Fuzzy:      req.Fuzzy,
		Exact:      req.Exact,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	page, err := s.search.Search(r.Context(), &q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pageToWire(page))
}

// handleSuggest handles GET /api/v1/suggest?term=&type=&limit=.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	metrics.SuggestionRequestsTotal.Inc()

	term := r.URL.Query().Get("term")
	st := searchtype.Type(r.URL.Query().Get("type"))
	if st == "" {
		st = searchtype.All
	}
	if !st.IsValid() {
		writeError(w, http.StatusBadRequest, codeUnknownType, "unknown search type "+strconv.Quote(string(st)))
		return
	}

	opts := suggestuc.DefaultOptions()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, codeBadRequest, "limit must be a positive integer")
			return
		}
		opts.MaxSuggestions = n
	}

	items := s.suggestions.Suggest(term, st, opts)
	out := make([]suggestionItem, len(items))
	for i, it := range items {
		out[i] = suggestionItem{
			Text:     it.Text,
			Kind:     string(it.Kind),
			Category: it.Category,
			Score:    it.Score,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

type suggestionItem struct {
	Text     string  `json:"text"`
	Kind     string  `json:"kind"`
	Category string  `json:"category,omitempty"`
	Score    float64 `json:"score"`
}

// handleHistory handles GET /api/v1/history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": s.suggestions.History()})
}

// handleCacheStats handles GET /api/v1/diagnostics/cache.
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	st := s.results.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"total_requests":         st.TotalRequests,
		"hits":                   st.Hits,
		"misses":                 st.Misses,
		"hit_rate_pct":           st.HitRate,
		"entry_count":            st.EntryCount,
		"estimated_memory_bytes": st.EstimatedMemoryBytes,
	})
}

// handlePerformance handles GET /api/v1/diagnostics/performance.
func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	rolling := s.perf.Rolling()
	status := s.perf.RealtimeStatus()
	alerts := s.perf.Alerts()

	wireAlerts := make([]alertItem, len(alerts))
	for i, a := range alerts {
		wireAlerts[i] = alertItem{
			ID:        a.ID,
			Kind:      string(a.Kind),
			Severity:  string(a.Severity),
			Value:     a.Value,
			Threshold: a.Threshold,
			Timestamp: a.Timestamp,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rolling": map[string]any{
			"samples":               rolling.Samples,
			"mean_response_time_ms": rolling.MeanResponseTimeMs,
			"error_rate_pct":        rolling.ErrorRate,
			"cache_hit_rate_pct":    rolling.CacheHitRate,
		},
		"last_hour":   windowToWire(status.LastHour),
		"last_minute": windowToWire(status.LastMinute),
		"alerts":      wireAlerts,
	})
}

type alertItem struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Severity  string    `json:"severity"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

func windowToWire(w monitor.WindowStats) map[string]any {
	return map[string]any{
		"searches":              w.Searches,
		"errors":                w.Errors,
		"cache_hits":            w.CacheHits,
		"mean_response_time_ms": w.MeanResponseTimeMs,
	}
}

// handleOptimizationSuggestions handles GET /api/v1/diagnostics/suggestions.
func (s *Server) handleOptimizationSuggestions(w http.ResponseWriter, r *http.Request) {
	recs := s.opt.Recommendations()
	indexes := make([]map[string]any, len(recs))
	for i, rec := range recs {
		indexes[i] = map[string]any{
			"collection": rec.Collection,
			"fields":     rec.Fields,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"suggestions":      s.perf.OptimizationSuggestions(),
		"index_candidates": indexes,
	})
}

// handleInvalidateCache handles POST /api/v1/admin/invalidate-cache.
func (s *Server) handleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pattern string `json:"pattern"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	removed := s.results.Invalidate(req.Pattern)
	s.logger.Info("Cache invalidated",
		zap.String("pattern", req.Pattern), zap.Int("removed", removed))
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

// handleClearSuggestions handles POST /api/v1/admin/clear-suggestions.
func (s *Server) handleClearSuggestions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	st := searchtype.Type(req.Type)
	if st == "" {
		st = searchtype.All
	}
	if !st.IsValid() {
		writeError(w, http.StatusBadRequest, codeUnknownType, "unknown search type "+strconv.Quote(req.Type))
		return
	}

	s.suggestions.Clear(r.Context(), st)
	w.WriteHeader(http.StatusNoContent)
}

// documentBody is the wire form of one indexed document.
type documentBody struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Text       string            `json:"text"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Popularity float64           `json:"popularity,omitempty"`
	CreatedAt  time.Time         `json:"created_at,omitempty"`
	LastUsedAt time.Time         `json:"last_used_at,omitempty"`
}

// handleUpsertDocuments handles PUT /api/v1/documents.
func (s *Server) handleUpsertDocuments(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Documents []documentBody `json:"documents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "documents is required")
		return
	}

	now := time.Now()
	items := make([]result.Item, 0, len(req.Documents))
	for _, d := range req.Documents {
		if d.ID == "" || d.Text == "" {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "document id and text are required")
			return
		}
		st := searchtype.Type(d.Type)
		if !st.IsValid() || st == searchtype.All {
			writeError(w, http.StatusBadRequest, codeUnknownType, "unknown document type "+strconv.Quote(d.Type))
			return
		}
		createdAt := d.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		lastUsedAt := d.LastUsedAt
		if lastUsedAt.IsZero() {
			lastUsedAt = createdAt
		}
		items = append(items, result.NewItem(
			d.ID, st, d.Text, d.Attributes, d.Popularity, createdAt, lastUsedAt,
		))
	}

	if err := s.docs.Upsert(r.Context(), items...); err != nil {
		s.handleDomainError(w, err)
		return
	}

	// Indexed content changed; cached result sets are stale.
	s.results.Invalidate("")
	writeJSON(w, http.StatusOK, map[string]any{"indexed": len(items)})
}

// handleDeleteDocument handles DELETE /api/v1/documents/{type}/{id}.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	st := searchtype.Type(chi.URLParam(r, "type"))
	id := chi.URLParam(r, "id")
	if !st.IsValid() || st == searchtype.All {
		writeError(w, http.StatusBadRequest, codeUnknownType, "unknown document type "+strconv.Quote(string(st)))
		return
	}

	existed, err := s.docs.Delete(r.Context(), st, id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if !existed {
		writeError(w, http.StatusNotFound, codeNotFound, "document not found")
		return
	}

	s.results.Invalidate("")
	w.WriteHeader(http.StatusNoContent)
}

// handleHealthz handles GET /healthz.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"code":       codeValidationFailed,
			"message":    "validation failed",
			"violations": ve.Violations,
		})
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
	case errors.Is(err, domain.ErrUnknownSearchType):
		writeError(w, http.StatusBadRequest, codeUnknownType, err.Error())
	case errors.Is(err, domain.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, codeTimeout, "search timed out")
	case errors.Is(err, domain.ErrTransport):
		s.logger.Warn("upstream error", zap.Error(err))
		writeError(w, http.StatusBadGateway, codeUpstreamError, "document store unavailable")
	default:
		s.logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func conditionsFromWire(in []filterCondition) ([]filter.Condition, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]filter.Condition, 0, len(in))
	for _, fc := range in {
		cond, err := conditionFromWire(fc)
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}

func conditionFromWire(fc filterCondition) (filter.Condition, error) {
	set := 0
	if fc.Value != nil {
		set++
	}
	if len(fc.Values) > 0 {
		set++
	}
	if fc.Range != nil {
		set++
	}
	if fc.Dates != nil {
		set++
	}
	if set != 1 {
		return filter.Condition{},
			errors.New("filter for " + strconv.Quote(fc.Field) + " must have exactly one of value, values, range, dates")
	}

	switch {
	case fc.Value != nil:
		return filter.NewScalar(fc.Field, *fc.Value)
	case len(fc.Values) > 0:
		return filter.NewSet(fc.Field, fc.Values)
	case fc.Range != nil:
		return filter.NewNumericRange(fc.Field, filter.NumericRange{Min: fc.Range.Min, Max: fc.Range.Max})
	default:
		dr := filter.DateRange{}
		if fc.Dates.From != nil {
			dr.From = *fc.Dates.From
		}
		if fc.Dates.To != nil {
			dr.To = *fc.Dates.To
		}
		return filter.NewDateRange(fc.Field, dr)
	}
}

func pageToWire(page result.Page) searchResponse {
	items := make([]resultItem, len(page.Items))
	for i := range page.Items {
		it := &page.Items[i]
		items[i] = resultItem{
			ID:          it.Item.ID(),
			Type:        string(it.Item.Kind()),
			Text:        it.Item.Text(),
			Attributes:  it.Item.Attributes(),
			Score:       it.Score,
			Highlighted: it.Highlighted,
		}
	}

	resp := searchResponse{
		Items:       items,
		TotalCount:  page.TotalCount,
		Facets:      page.Facets,
		Suggestions: page.Suggestions,
		HasMore:     page.HasMore,
	}
	if page.HasMore {
		n := page.NextOffset
		resp.NextOffset = &n
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}
