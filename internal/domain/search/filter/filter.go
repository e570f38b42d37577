package filter

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// MaxConditions is the maximum number of filter conditions per query.
const MaxConditions = 32

// Kind discriminates the closed set of filter condition shapes.
type Kind int

// Condition kinds.
const (
	KindScalar Kind = iota
	KindSet
	KindNumericRange
	KindDateRange
)

// String returns the kind name for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindSet:
		return "set"
	case KindNumericRange:
		return "numeric_range"
	case KindDateRange:
		return "date_range"
	default:
		return "unknown"
	}
}

// Condition is a single validated filter clause. Exactly one shape is set,
// chosen at construction; there is no untyped escape hatch.
type Condition struct {
	field  string
	kind   Kind
	scalar string
	set    []string
	num    *NumericRange
	dates  *DateRange
}

// NewScalar creates an exact-equality condition.
func NewScalar(field, value string) (Condition, error) {
	if field == "" {
		return Condition{}, fmt.Errorf("filter field is required")
	}
	if value == "" {
		return Condition{}, fmt.Errorf("scalar value is required for field %q", field)
	}
	return Condition{field: field, kind: KindScalar, scalar: value}, nil
}

// NewSet creates a multi-value membership ("in") condition.
func NewSet(field string, values []string) (Condition, error) {
	if field == "" {
		return Condition{}, fmt.Errorf("filter field is required")
	}
	if len(values) == 0 {
		return Condition{}, fmt.Errorf("set filter for field %q needs at least one value", field)
	}
	vs := make([]string, len(values))
	copy(vs, values)
	return Condition{field: field, kind: KindSet, set: vs}, nil
}

// NewNumericRange creates a numeric range condition.
func NewNumericRange(field string, r NumericRange) (Condition, error) {
	if field == "" {
		return Condition{}, fmt.Errorf("filter field is required")
	}
	if err := r.validate(); err != nil {
		return Condition{}, fmt.Errorf("field %q: %w", field, err)
	}
	return Condition{field: field, kind: KindNumericRange, num: &r}, nil
}

// NewDateRange creates a date range condition.
func NewDateRange(field string, r DateRange) (Condition, error) {
	if field == "" {
		return Condition{}, fmt.Errorf("filter field is required")
	}
	if err := r.validate(); err != nil {
		return Condition{}, fmt.Errorf("field %q: %w", field, err)
	}
	return Condition{field: field, kind: KindDateRange, dates: &r}, nil
}

// Field returns the document field this condition applies to.
func (c Condition) Field() string { return c.field }

// Kind returns the condition shape.
func (c Condition) Kind() Kind { return c.kind }

// Scalar returns the equality value (KindScalar only).
func (c Condition) Scalar() string { return c.scalar }

// Set returns the membership values (KindSet only).
func (c Condition) Set() []string { return c.set }

// NumericRange returns the numeric bounds (KindNumericRange only).
func (c Condition) NumericRange() *NumericRange { return c.num }

// DateRange returns the date bounds (KindDateRange only).
func (c Condition) DateRange() *DateRange { return c.dates }

// NumericRange holds inclusive numeric bounds. A nil bound is open.
type NumericRange struct {
	Min *float64
	Max *float64
}

func (r NumericRange) validate() error {
	if r.Min == nil && r.Max == nil {
		return fmt.Errorf("numeric range needs at least one bound")
	}
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return fmt.Errorf("numeric range min %g exceeds max %g", *r.Min, *r.Max)
	}
	return nil
}

// DateRange holds inclusive date bounds. A zero time is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) validate() error {
	if r.From.IsZero() && r.To.IsZero() {
		return fmt.Errorf("date range needs at least one bound")
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.From.After(r.To) {
		return fmt.Errorf("date range from %s is after to %s",
			r.From.Format(time.RFC3339), r.To.Format(time.RFC3339))
	}
	return nil
}

// CanonicalKey renders the condition into a stable string fragment used for
// cache keying. Equal conditions always render identically.
func (c Condition) CanonicalKey() string {
	switch c.kind {
	case KindScalar:
		return c.field + "=" + strings.ToLower(c.scalar)
	case KindSet:
		vs := make([]string, len(c.set))
		for i, v := range c.set {
			vs[i] = strings.ToLower(v)
		}
		sort.Strings(vs)
		return c.field + " in[" + strings.Join(vs, ",") + "]"
	case KindNumericRange:
		return c.field + " " + renderBound(c.num.Min) + ".." + renderBound(c.num.Max)
	case KindDateRange:
		return c.field + " " + renderDate(c.dates.From) + ".." + renderDate(c.dates.To)
	default:
		return c.field
	}
}

func renderBound(b *float64) string {
	if b == nil {
		return "*"
	}
	return fmt.Sprintf("%g", *b)
}

func renderDate(t time.Time) string {
	if t.IsZero() {
		return "*"
	}
	return t.UTC().Format(time.RFC3339)
}
