package optimizer

import (
	"strings"
	"testing"
	"time"

	"github.com/athlinked/searchkit/internal/domain/search/filter"
	"github.com/athlinked/searchkit/internal/domain/search/query"
	"github.com/athlinked/searchkit/internal/domain/search/searchtype"
)

func floatPtr(f float64) *float64 { return &f }

func mustQuery(t *testing.T, p query.Params) *query.Query {
	t.Helper()
	q, err := query.New(p)
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	return &q
}

func kinds(p *Plan) []Kind {
	out := make([]Kind, len(p.Constraints))
	for i, c := range p.Constraints {
		out[i] = c.Kind
	}
	return out
}

func TestPlan_PrecedenceOrdering(t *testing.T) {
	eq, _ := filter.NewScalar("role", "coach")
	set, _ := filter.NewSet("sport", []string{"running", "cycling"})
	rng, _ := filter.NewNumericRange("age", filter.NumericRange{Min: floatPtr(18), Max: floatPtr(40)})

	// Deliberately out of order on input.
	q := mustQuery(t, query.Params{
		Term:       "marathon",
		SearchType: searchtype.Users,
		Filters:    []filter.Condition{set, rng, eq},
		SortBy:     "name",
	})

	p := New().Plan(q)
	got := kinds(p)
	want := []Kind{KindEquality, KindRange, KindArray, KindOther, KindOrder, KindOrder, KindPagination}
	if len(got) != len(want) {
		t.Fatalf("constraints = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("constraint %d = %v, want %v (plan: %s)", i, got[i], want[i], p.String())
		}
	}
}

func TestPlan_CostModel(t *testing.T) {
	eq, _ := filter.NewScalar("role", "coach")
	set, _ := filter.NewSet("sport", []string{"running"})
	dr, _ := filter.NewDateRange("createdAt", filter.DateRange{
		From: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	q := mustQuery(t, query.Params{
		Term:       "marathon",
		SearchType: searchtype.Events,
		Filters:    []filter.Condition{eq, set, dr},
		SortBy:     "name",
	})

	p := New().Plan(q)
	// eq=1, set=2, dateRange=2, term=1, sort=1, secondary sort=1
	if p.EstimatedCost != 8 {
		t.Errorf("cost = %d, want 8 (plan: %s)", p.EstimatedCost, p.String())
	}
}

func TestPlan_DefaultSortNeedsNoSecondary(t *testing.T) {
	q := mustQuery(t, query.Params{Term: "x", SearchType: searchtype.Users})
	p := New().Plan(q)

	orders := 0
	for _, c := range p.Constraints {
		if c.Kind == KindOrder {
			orders++
		}
	}
	if orders != 1 {
		t.Errorf("order constraints = %d, want 1 for default recency sort", orders)
	}
}

func TestPlan_RecommendationPastThreshold(t *testing.T) {
	eq, _ := filter.NewScalar("role", "coach")
	set, _ := filter.NewSet("sport", []string{"running"})
	rng, _ := filter.NewNumericRange("age", filter.NumericRange{Min: floatPtr(18)})

	q := mustQuery(t, query.Params{
		Term:       "marathon",
		SearchType: searchtype.Users,
		Filters:    []filter.Condition{eq, set, rng},
		SortBy:     "name",
	})

	p := New().WithCostThreshold(3).Plan(q)
	if len(p.Recommendations) == 0 {
		t.Fatal("expected a composite index recommendation")
	}
	if !strings.Contains(p.Recommendations[0], "composite index") {
		t.Errorf("recommendation = %q", p.Recommendations[0])
	}
}

func TestPlan_NoRecommendationUnderThreshold(t *testing.T) {
	q := mustQuery(t, query.Params{Term: "x", SearchType: searchtype.Users})
	p := New().Plan(q)
	if len(p.Recommendations) != 0 {
		t.Errorf("unexpected recommendations: %v", p.Recommendations)
	}
}

func TestRecommendations_DeduplicatedByFieldOrder(t *testing.T) {
	o := New()
	eq, _ := filter.NewScalar("role", "coach")

	q := mustQuery(t, query.Params{
		Term:       "x",
		SearchType: searchtype.Users,
		Filters:    []filter.Condition{eq},
		SortBy:     "name",
	})

	o.Plan(q)
	o.Plan(q)

	recs := o.Recommendations()
	if len(recs) != 1 {
		t.Fatalf("recommendations = %d, want 1", len(recs))
	}
	if recs[0].Collection != "users" {
		t.Errorf("collection = %q", recs[0].Collection)
	}
	// role (eq), name (order), createdAt (secondary order)
	if len(recs[0].Fields) != 3 {
		t.Errorf("fields = %v", recs[0].Fields)
	}
}

func TestRecommendations_SingleFieldPlansIgnored(t *testing.T) {
	o := New()
	q := mustQuery(t, query.Params{Term: "x", SearchType: searchtype.Users})
	o.Plan(q)
	if len(o.Recommendations()) != 0 {
		t.Error("single indexed field should not produce a candidate")
	}
}

func TestPlan_String(t *testing.T) {
	eq, _ := filter.NewScalar("role", "coach")
	q := mustQuery(t, query.Params{
		Term: "marathon", SearchType: searchtype.Users,
		Filters: []filter.Condition{eq},
	})
	s := New().Plan(q).String()
	for _, frag := range []string{"PLAN users", "eq(role == coach)", "cost="} {
		if !strings.Contains(s, frag) {
			t.Errorf("String() = %q, missing %q", s, frag)
		}
	}
}
