package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/athlinked/searchkit/internal/domain"
	"github.com/athlinked/searchkit/internal/domain/search/filter"
	"github.com/athlinked/searchkit/internal/domain/search/searchtype"
)

// Search parameter limits.
const (
	MaxTermLength = 256
	MinLimit      = 1
	MaxLimit      = 100
	DefaultLimit  = 20
)

// Order is the sort direction.
type Order string

// Sort directions.
const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Query is a validated, immutable search query.
type Query struct {
	term       string
	searchType searchtype.Type
	filters    []filter.Condition
	sortBy     string
	sortOrder  Order
	limit      int
	offset     int
	fuzzy      bool
	exact      bool
}

// Params carries the raw search parameters into New.
type Params struct {
	Term       string
	SearchType searchtype.Type
	Filters    []filter.Condition
	SortBy     string
	SortOrder  Order
	Limit      int
	Offset     int
	Fuzzy      bool
	Exact      bool
}

// New validates and normalizes search parameters, collecting every violation
// rather than stopping at the first. Defaults: type=all, limit=20, order=desc.
// Limit is clamped to [1,100].
func New(p Params) (Query, error) {
	var violations []string

	term := strings.TrimSpace(p.Term)
	if term == "" {
		violations = append(violations, "term is required")
	}
	if len(term) > MaxTermLength {
		violations = append(violations, fmt.Sprintf("term too long (max %d chars)", MaxTermLength))
	}

	st := p.SearchType
	if st == "" {
		st = searchtype.All
	}
	if !st.IsValid() {
		violations = append(violations, fmt.Sprintf("unknown search type %q", st))
	}

	if len(p.Filters) > filter.MaxConditions {
		violations = append(violations,
			fmt.Sprintf("too many filters (max %d)", filter.MaxConditions))
	}

	order := p.SortOrder
	if order == "" {
		order = Desc
	}
	if order != Asc && order != Desc {
		violations = append(violations, fmt.Sprintf("sort order must be asc or desc, got %q", order))
	}

	if p.Offset < 0 {
		violations = append(violations, fmt.Sprintf("offset must be >= 0, got %d", p.Offset))
	}

	if p.Fuzzy && p.Exact {
		violations = append(violations, "fuzzy and exact matching are mutually exclusive")
	}

	if len(violations) > 0 {
		return Query{}, domain.NewValidation(violations)
	}

	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit < MinLimit {
		limit = MinLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	fs := make([]filter.Condition, len(p.Filters))
	copy(fs, p.Filters)

	return Query{
		term:       term,
		searchType: st,
		filters:    fs,
		sortBy:     p.SortBy,
		sortOrder:  order,
		limit:      limit,
		offset:     p.Offset,
		fuzzy:      p.Fuzzy,
		exact:      p.Exact,
	}, nil
}

// Term returns the free-text search term.
func (q *Query) Term() string { return q.term }

// Type returns the search type.
func (q *Query) Type() searchtype.Type { return q.searchType }

// Filters returns the filter conditions.
func (q *Query) Filters() []filter.Condition { return q.filters }

// SortBy returns the sort field ("" for default recency ordering).
func (q *Query) SortBy() string { return q.sortBy }

// SortOrder returns the sort direction.
func (q *Query) SortOrder() Order { return q.sortOrder }

// Limit returns the maximum results per page.
func (q *Query) Limit() int { return q.limit }

// Offset returns the pagination offset.
func (q *Query) Offset() int { return q.offset }

// Fuzzy reports whether typo-tolerant matching is enabled.
func (q *Query) Fuzzy() bool { return q.fuzzy }

// Exact reports whether only exact term matches are accepted.
func (q *Query) Exact() bool { return q.exact }

// WithType returns a copy of the query retargeted at a concrete search type.
// Used by the fan-out path; the original query is not modified.
func (q Query) WithType(st searchtype.Type) Query {
	q.searchType = st
	return q
}

// CacheKey builds the deterministic cache key: normalized term, search type,
// key-sorted canonical filters, sort field/direction, and limit. Two
// semantically identical queries always collide regardless of construction
// order. Offset is excluded so all pages of one query share an entry space.
func (q *Query) CacheKey() string {
	parts := make([]string, 0, len(q.filters)+4)
	parts = append(parts, strings.ToLower(q.term), string(q.searchType))

	fks := make([]string, len(q.filters))
	for i, c := range q.filters {
		fks[i] = c.CanonicalKey()
	}
	sort.Strings(fks)
	parts = append(parts, fks...)

	parts = append(parts,
		q.sortBy+":"+string(q.sortOrder),
		fmt.Sprintf("limit=%d", q.limit),
	)
	return strings.Join(parts, "|")
}
