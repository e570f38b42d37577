// Package document is a KV-backed document repository. It keeps the working
// set in memory, persists one JSON blob per collection, and serves fetches
// for the search orchestrator.
package document

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/athlinked/searchkit/internal/domain/search/result"
	"github.com/athlinked/searchkit/internal/domain/search/searchtype"
	"github.com/athlinked/searchkit/internal/optimizer"
)

// store is the consumer interface for document persistence (ISP).
type store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// Repo holds documents per collection.
type Repo struct {
	mu     sync.RWMutex
	docs   map[searchtype.Type]map[string]result.Item
	order  map[searchtype.Type][]string
	store  store
	logger *zap.Logger
}

// New creates a document repository. The store may be nil for a purely
// in-memory repository.
func New(st store, logger *zap.Logger) *Repo {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Repo{
		docs:   make(map[searchtype.Type]map[string]result.Item),
		order:  make(map[searchtype.Type][]string),
		store:  st,
		logger: logger,
	}
	for _, t := range searchtype.All.Concrete() {
		r.docs[t] = make(map[string]result.Item)
	}
	return r
}

// Upsert stores documents and persists the touched collections.
func (r *Repo) Upsert(ctx context.Context, items ...result.Item) error {
	touched := make(map[searchtype.Type]bool)

	r.mu.Lock()
	for _, it := range items {
		st := it.Kind()
		bucket, ok := r.docs[st]
		if !ok {
			r.mu.Unlock()
			return fmt.Errorf("upsert %s: unknown collection %q", it.ID(), st)
		}
		if _, exists := bucket[it.ID()]; !exists {
			r.order[st] = append(r.order[st], it.ID())
		}
		bucket[it.ID()] = it
		touched[st] = true
	}
	r.mu.Unlock()

	for st := range touched {
		if err := r.persist(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes one document. Returns true if it existed.
func (r *Repo) Delete(ctx context.Context, st searchtype.Type, id string) (bool, error) {
	r.mu.Lock()
	bucket, ok := r.docs[st]
	if !ok {
		r.mu.Unlock()
		return false, fmt.Errorf("delete %s: unknown collection %q", id, st)
	}
	_, existed := bucket[id]
	if existed {
		delete(bucket, id)
		ids := r.order[st]
		for i, v := range ids {
			if v == id {
				r.order[st] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
	}
	r.mu.Unlock()

	if !existed {
		return false, nil
	}
	return true, r.persist(ctx, st)
}

// Count returns the number of documents in one collection.
func (r *Repo) Count(st searchtype.Type) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs[st])
}

// Execute fetches the plan's collection and applies its filter constraints.
// Ordering and pagination constraints are left to the caller, which re-ranks
// by relevance anyway.
func (r *Repo) Execute(ctx context.Context, plan *optimizer.Plan) ([]result.Item, error) {
	st := searchtype.Type(plan.Collection)

	r.mu.RLock()
	bucket, ok := r.docs[st]
	if !ok {
		r.mu.RUnlock()
		return nil, fmt.Errorf("execute: unknown collection %q", plan.Collection)
	}
	ids := r.order[st]
	out := make([]result.Item, 0, len(ids))
	for _, id := range ids {
		it := bucket[id]
		if matchesConstraints(&it, plan.Constraints) {
			out = append(out, it)
		}
	}
	r.mu.RUnlock()

	return out, nil
}

func matchesConstraints(it *result.Item, constraints []optimizer.Constraint) bool {
	for _, c := range constraints {
		switch c.Kind {
		case optimizer.KindEquality:
			if len(c.Values) != 1 || it.Attributes()[c.Field] != c.Values[0] {
				return false
			}
		case optimizer.KindArray:
			if !containsValue(c.Values, it.Attributes()[c.Field]) {
				return false
			}
		case optimizer.KindRange:
			if !matchesRange(it, c) {
				return false
			}
		default:
			// order and pagination handled downstream
		}
	}
	return true
}

func containsValue(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// matchesRange checks a range constraint. Bounds arrive rendered: "*" for an
// open bound, a decimal for numeric ranges, RFC3339 for date ranges. Numeric
// bounds compare against the named attribute, date bounds against createdAt.
func matchesRange(it *result.Item, c optimizer.Constraint) bool {
	if len(c.Values) != 2 {
		return true
	}
	return boundHolds(it, c.Field, c.Values[0], false) &&
		boundHolds(it, c.Field, c.Values[1], true)
}

func boundHolds(it *result.Item, field, bound string, upper bool) bool {
	if bound == "*" {
		return true
	}

	if n, err := strconv.ParseFloat(bound, 64); err == nil {
		raw, ok := it.Attributes()[field]
		if !ok {
			return false
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return false
		}
		if upper {
			return v <= n
		}
		return v >= n
	}

	if ts, err := time.Parse(time.RFC3339, bound); err == nil {
		if upper {
			return !it.CreatedAt().After(ts)
		}
		return !it.CreatedAt().Before(ts)
	}
	return false
}
