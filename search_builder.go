package searchkit

import (
	"context"
	"time"

	"github.com/athlinked/searchkit/internal/domain/search/filter"
	"github.com/athlinked/searchkit/internal/domain/search/query"
	"github.com/athlinked/searchkit/internal/domain/search/result"
	"github.com/athlinked/searchkit/internal/domain/search/searchtype"
)

// Result is one scored search hit.
type Result struct {
	ID          string
	Type        SearchType
	Text        string
	Attributes  map[string]string
	Score       float64
	Highlighted string
	CreatedAt   time.Time
}

// Page is one page of ranked results.
type Page struct {
	Items       []Result
	TotalCount  int
	Facets      map[string]map[string]int
	Suggestions []string
	HasMore     bool
	NextOffset  int
}

// SearchBuilder is a fluent builder for search queries.
type SearchBuilder struct {
	engine     *Engine
	term       string
	searchType SearchType
	filters    []filter.Condition
	filterErr  error
	sortBy     string
	sortOrder  string
	limit      int
	offset     int
	fuzzy      bool
	exact      bool
}

// Type restricts the search to one collection. Default: All.
func (b *SearchBuilder) Type(st SearchType) *SearchBuilder {
	b.searchType = st
	return b
}

// Where adds an exact-match filter on a field.
func (b *SearchBuilder) Where(field, value string) *SearchBuilder {
	b.addFilter(filter.NewScalar(field, value))
	return b
}

// WhereIn adds a set-membership filter on a field.
func (b *SearchBuilder) WhereIn(field string, values ...string) *SearchBuilder {
	b.addFilter(filter.NewSet(field, values))
	return b
}

// Between adds a numeric range filter. Pass nil for an open bound.
func (b *SearchBuilder) Between(field string, min, max *float64) *SearchBuilder {
	b.addFilter(filter.NewNumericRange(field, filter.NumericRange{Min: min, Max: max}))
	return b
}

// CreatedBetween adds a date range filter. Zero times are open bounds.
func (b *SearchBuilder) CreatedBetween(field string, from, to time.Time) *SearchBuilder {
	b.addFilter(filter.NewDateRange(field, filter.DateRange{From: from, To: to}))
	return b
}

// SortBy sets the sort field and direction ("asc" or "desc").
func (b *SearchBuilder) SortBy(field, order string) *SearchBuilder {
	b.sortBy = field
	b.sortOrder = order
	return b
}

// Limit sets the page size. Default: 20, clamped to [1,100].
func (b *SearchBuilder) Limit(n int) *SearchBuilder {
	b.limit = n
	return b
}

// Offset sets the pagination offset.
func (b *SearchBuilder) Offset(n int) *SearchBuilder {
	b.offset = n
	return b
}

// Fuzzy enables fuzzy matching of candidate text.
func (b *SearchBuilder) Fuzzy() *SearchBuilder {
	b.fuzzy = true
	return b
}

// Exact requires candidate text to equal the term (case-insensitive).
func (b *SearchBuilder) Exact() *SearchBuilder {
	b.exact = true
	return b
}

// Do executes the search.
func (b *SearchBuilder) Do(ctx context.Context) (Page, error) {
	if b.filterErr != nil {
		return Page{}, b.filterErr
	}

	q, err := query.New(query.Params{
		Term:       b.term,
		SearchType: searchtype.Type(b.searchType),
		Filters:    b.filters,
		SortBy:     b.sortBy,
		SortOrder:  query.Order(b.sortOrder),
		Limit:      b.limit,
		Offset:     b.offset,
		Fuzzy:      b.fuzzy,
		Exact:      b.exact,
	})
	if err != nil {
		return Page{}, err
	}

	page, err := b.engine.searchSvc.Search(ctx, &q)
	if err != nil {
		return Page{}, err
	}
	return fromPage(page), nil
}

// addFilter keeps the first construction error; Do surfaces it.
func (b *SearchBuilder) addFilter(c filter.Condition, err error) {
	if err != nil {
		if b.filterErr == nil {
			b.filterErr = err
		}
		return
	}
	b.filters = append(b.filters, c)
}

func fromPage(page result.Page) Page {
	out := Page{
		TotalCount:  page.TotalCount,
		Facets:      page.Facets,
		Suggestions: page.Suggestions,
		HasMore:     page.HasMore,
		NextOffset:  page.NextOffset,
	}
	out.Items = make([]Result, len(page.Items))
	for i := range page.Items {
		it := &page.Items[i]
		out.Items[i] = Result{
			ID:          it.Item.ID(),
			Type:        SearchType(it.Item.Kind()),
			Text:        it.Item.Text(),
			Attributes:  it.Item.Attributes(),
			Score:       it.Score,
			Highlighted: it.Highlighted,
			CreatedAt:   it.Item.CreatedAt(),
		}
	}
	return out
}
