package document

import (
	"context"
	"testing"
	"time"

	"github.com/athlinked/searchkit/internal/domain/search/query"
	"github.com/athlinked/searchkit/internal/domain/search/result"
	"github.com/athlinked/searchkit/internal/domain/search/searchtype"
	"github.com/athlinked/searchkit/internal/kv"
	"github.com/athlinked/searchkit/internal/optimizer"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func doc(id string, st searchtype.Type, text string, attrs map[string]string) result.Item {
	return result.NewItem(id, st, text, attrs, 0.5, base, base)
}

func mustPlan(t *testing.T, p query.Params) *optimizer.Plan {
	t.Helper()
	q, err := query.New(p)
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	return optimizer.New().Plan(&q)
}

func TestUpsertAndExecute(t *testing.T) {
	repo := New(kv.NewMemoryStore(), nil)
	ctx := context.Background()

	err := repo.Upsert(ctx,
		doc("e1", searchtype.Events, "berlin marathon", map[string]string{"city": "berlin"}),
		doc("e2", searchtype.Events, "munich marathon", map[string]string{"city": "munich"}),
		doc("u1", searchtype.Users, "marathon coach", nil),
	)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if got := repo.Count(searchtype.Events); got != 2 {
		t.Errorf("events count = %d, want 2", got)
	}

	items, err := repo.Execute(ctx, mustPlan(t, query.Params{
		Term: "marathon", SearchType: searchtype.Events,
	}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("items = %d, want 2", len(items))
	}
}

func TestExecute_EqualityConstraint(t *testing.T) {
	repo := New(kv.NewMemoryStore(), nil)
	ctx := context.Background()

	_ = repo.Upsert(ctx,
		doc("e1", searchtype.Events, "berlin marathon", map[string]string{"city": "berlin"}),
		doc("e2", searchtype.Events, "munich marathon", map[string]string{"city": "munich"}),
	)

	cond := mustScalar(t, "city", "berlin")
	items, err := repo.Execute(ctx, mustPlan(t, query.Params{
		Term: "marathon", SearchType: searchtype.Events, Filters: cond,
	}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(items) != 1 || items[0].ID() != "e1" {
		t.Errorf("items = %+v, want only the berlin event", items)
	}
}

func TestExecute_NumericRangeConstraint(t *testing.T) {
	repo := New(kv.NewMemoryStore(), nil)
	ctx := context.Background()

	_ = repo.Upsert(ctx,
		doc("e1", searchtype.Events, "10k run", map[string]string{"distance_km": "10"}),
		doc("e2", searchtype.Events, "marathon", map[string]string{"distance_km": "42.2"}),
	)

	lo := 20.0
	items, err := repo.Execute(ctx, mustPlan(t, query.Params{
		Term: "run", SearchType: searchtype.Events,
		Filters: mustNumericRange(t, "distance_km", &lo, nil),
	}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(items) != 1 || items[0].ID() != "e2" {
		t.Errorf("items = %+v, want only the marathon", items)
	}
}

func TestExecute_UnknownCollection(t *testing.T) {
	repo := New(kv.NewMemoryStore(), nil)

	plan := &optimizer.Plan{Collection: "podcasts"}
	if _, err := repo.Execute(context.Background(), plan); err == nil {
		t.Fatal("expected error for unknown collection")
	}
}

func TestDelete(t *testing.T) {
	repo := New(kv.NewMemoryStore(), nil)
	ctx := context.Background()

	_ = repo.Upsert(ctx, doc("u1", searchtype.Users, "marathon coach", nil))

	existed, err := repo.Delete(ctx, searchtype.Users, "u1")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !existed {
		t.Error("expected document to exist")
	}
	if got := repo.Count(searchtype.Users); got != 0 {
		t.Errorf("count = %d, want 0", got)
	}

	existed, err = repo.Delete(ctx, searchtype.Users, "u1")
	if err != nil || existed {
		t.Errorf("second delete: existed=%v err=%v", existed, err)
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	store := kv.NewMemoryStore()
	ctx := context.Background()

	first := New(store, nil)
	_ = first.Upsert(ctx,
		doc("u1", searchtype.Users, "marathon coach", map[string]string{"sport": "running"}),
		doc("v1", searchtype.Videos, "race highlights", nil),
	)

	second := New(store, nil)
	if err := second.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := second.Count(searchtype.Users); got != 1 {
		t.Errorf("restored users = %d, want 1", got)
	}
	if got := second.Count(searchtype.Videos); got != 1 {
		t.Errorf("restored videos = %d, want 1", got)
	}

	items, err := second.Execute(ctx, mustPlan(t, query.Params{
		Term: "marathon", SearchType: searchtype.Users,
	}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(items) != 1 || items[0].Attributes()["sport"] != "running" {
		t.Errorf("restored item = %+v", items)
	}
}

func TestLoad_EmptyStore(t *testing.T) {
	repo := New(kv.NewMemoryStore(), nil)
	if err := repo.Load(context.Background()); err != nil {
		t.Fatalf("Load on empty store: %v", err)
	}
}
