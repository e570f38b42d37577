// Package optimizer translates a semantic query into an ordered backend
// constraint list, estimates its execution cost, and accumulates composite
// index recommendations.
package optimizer

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/athlinked/searchkit/internal/domain/search/filter"
	"github.com/athlinked/searchkit/internal/domain/search/query"
)

// Kind classes constraints by backend precedence. Lower kinds must come
// first: index-backed stores require constraint prefix alignment, and
// equality prefixes minimize scan cost.
type Kind int

// Constraint kinds in precedence order.
const (
	KindEquality Kind = iota
	KindRange
	KindArray
	KindOther
	KindOrder
	KindPagination
)

// String returns the kind name for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindEquality:
		return "eq"
	case KindRange:
		return "range"
	case KindArray:
		return "array"
	case KindOther:
		return "other"
	case KindOrder:
		return "order"
	case KindPagination:
		return "page"
	default:
		return "unknown"
	}
}

// Per-constraint costs.
const (
	costEquality = 1
	costIn       = 2
	costRange    = 2
	costArray    = 2
	costTerm     = 1
	costSort     = 1
)

// DefaultCostThreshold is the estimated cost past which a plan collects a
// composite-index recommendation.
const DefaultCostThreshold = 8

// secondarySortField stabilizes ordering when the primary sort key is not
// the creation timestamp.
const secondarySortField = "createdAt"

// Constraint is one ordered backend clause.
type Constraint struct {
	Kind   Kind
	Field  string
	Op     string
	Values []string
	Cost   int
}

// Plan is the optimized form of one query.
type Plan struct {
	Collection      string
	Constraints     []Constraint
	EstimatedCost   int
	Recommendations []string
}

// String renders the plan for debugging, one clause per precedence slot.
func (p *Plan) String() string {
	parts := []string{"PLAN", p.Collection}
	for _, c := range p.Constraints {
		clause := c.Kind.String() + "(" + c.Field
		if c.Op != "" {
			clause += " " + c.Op
		}
		if len(c.Values) > 0 {
			clause += " " + strings.Join(c.Values, ",")
		}
		clause += ")"
		parts = append(parts, clause)
	}
	parts = append(parts, fmt.Sprintf("cost=%d", p.EstimatedCost))
	return strings.Join(parts, " ")
}

// IndexRecommendation is a candidate composite index.
type IndexRecommendation struct {
	Collection string
	Fields     []string
}

// Optimizer builds constraint plans and accumulates deduplicated index
// recommendations across queries.
type Optimizer struct {
	mu            sync.Mutex
	costThreshold int
	recommended   []IndexRecommendation
}

// New creates an optimizer with the default cost threshold.
func New() *Optimizer {
	return &Optimizer{costThreshold: DefaultCostThreshold}
}

// WithCostThreshold overrides the recommendation threshold.
func (o *Optimizer) WithCostThreshold(n int) *Optimizer {
	if n > 0 {
		o.costThreshold = n
	}
	return o
}

// Plan maps a query onto an ordered constraint list. Ordering: equality,
// range, array, free-text, ordering, pagination.
func (o *Optimizer) Plan(q *query.Query) *Plan {
	var cs []Constraint

	for _, c := range q.Filters() {
		cs = append(cs, fromCondition(c))
	}

	if q.Term() != "" {
		cs = append(cs, Constraint{
			Kind: KindOther, Field: "text", Op: "match",
			Values: []string{q.Term()}, Cost: costTerm,
		})
	}

	cs = append(cs, orderConstraints(q)...)

	cs = append(cs, Constraint{
		Kind: KindPagination, Field: "limit",
		Values: []string{
			fmt.Sprintf("%d", q.Limit()),
			fmt.Sprintf("offset=%d", q.Offset()),
		},
	})

	sort.SliceStable(cs, func(i, j int) bool { return cs[i].Kind < cs[j].Kind })

	p := &Plan{Collection: string(q.Type()), Constraints: cs}
	for _, c := range cs {
		p.EstimatedCost += c.Cost
	}

	if p.EstimatedCost > o.costThreshold {
		p.Recommendations = append(p.Recommendations,
			fmt.Sprintf("too many constraints (cost %d) — consider a composite index on %s",
				p.EstimatedCost, p.Collection))
	}

	o.recordIndexCandidate(p)
	return p
}

// Recommendations returns the accumulated composite index candidates.
func (o *Optimizer) Recommendations() []IndexRecommendation {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]IndexRecommendation, len(o.recommended))
	copy(out, o.recommended)
	return out
}

// recordIndexCandidate stores a composite index candidate for any plan
// touching more than one indexed field, deduplicated by exact field order.
func (o *Optimizer) recordIndexCandidate(p *Plan) {
	var fields []string
	for _, c := range p.Constraints {
		switch c.Kind {
		case KindEquality, KindRange, KindArray, KindOrder:
			fields = append(fields, c.Field)
		}
	}
	if len(fields) < 2 {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	for _, r := range o.recommended {
		if r.Collection == p.Collection && sameFields(r.Fields, fields) {
			return
		}
	}
	o.recommended = append(o.recommended, IndexRecommendation{
		Collection: p.Collection,
		Fields:     fields,
	})
}

func fromCondition(c filter.Condition) Constraint {
	switch c.Kind() {
	case filter.KindScalar:
		return Constraint{
			Kind: KindEquality, Field: c.Field(), Op: "==",
			Values: []string{c.Scalar()}, Cost: costEquality,
		}
	case filter.KindSet:
		return Constraint{
			Kind: KindArray, Field: c.Field(), Op: "in",
			Values: c.Set(), Cost: costIn,
		}
	case filter.KindNumericRange:
		r := c.NumericRange()
		return Constraint{
			Kind: KindRange, Field: c.Field(), Op: "between",
			Values: []string{numBound(r.Min), numBound(r.Max)}, Cost: costRange,
		}
	case filter.KindDateRange:
		r := c.DateRange()
		return Constraint{
			Kind: KindRange, Field: c.Field(), Op: "between",
			Values: []string{dateBound(r.From), dateBound(r.To)}, Cost: costRange,
		}
	default:
		return Constraint{Kind: KindOther, Field: c.Field(), Cost: costArray}
	}
}

// orderConstraints emits the primary sort and, when the primary key differs
// from the creation timestamp, a stabilizing secondary sort.
func orderConstraints(q *query.Query) []Constraint {
	sortBy := q.SortBy()
	if sortBy == "" {
		sortBy = secondarySortField
	}

	cs := []Constraint{{
		Kind: KindOrder, Field: sortBy,
		Op: string(q.SortOrder()), Cost: costSort,
	}}
	if sortBy != secondarySortField {
		cs = append(cs, Constraint{
			Kind: KindOrder, Field: secondarySortField,
			Op: string(query.Desc), Cost: costSort,
		})
	}
	return cs
}

func sameFields(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func numBound(b *float64) string {
	if b == nil {
		return "*"
	}
	return fmt.Sprintf("%g", *b)
}

func dateBound(t time.Time) string {
	if t.IsZero() {
		return "*"
	}
	return t.UTC().Format(time.RFC3339)
}
