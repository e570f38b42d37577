package searchkit

import (
	"context"
	"time"
)

// SearchType selects the collection a query runs against.
type SearchType string

// Search types.
const (
	Users  SearchType = "users"
	Events SearchType = "events"
	Videos SearchType = "videos"
	All    SearchType = "all"
)

// Document is one searchable record supplied by a Source.
type Document struct {
	ID         string
	Type       SearchType
	Text       string
	Attributes map[string]string
	Popularity float64
	CreatedAt  time.Time
	LastUsedAt time.Time
}

// Constraint is one ordered clause of an optimized fetch.
type Constraint struct {
	Kind   string // eq, range, array, other, order, page
	Field  string
	Op     string
	Values []string
}

// SourceRequest describes one fetch against a document source. Constraints
// arrive cheapest-first; a source may honor them or return a superset and
// let the engine filter and rank.
type SourceRequest struct {
	Collection    string
	Constraints   []Constraint
	EstimatedCost int
}

// Source supplies candidate documents for a query.
type Source interface {
	Fetch(ctx context.Context, req SourceRequest) ([]Document, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, req SourceRequest) ([]Document, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context, req SourceRequest) ([]Document, error) {
	return f(ctx, req)
}
