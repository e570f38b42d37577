package search

import (
	"context"

	"github.com/athlinked/searchkit/internal/domain/search/result"
	"github.com/athlinked/searchkit/internal/optimizer"
)

// Executor runs one optimized constraint plan against the document store.
// It is the only collaborator allowed to touch the store.
type Executor interface {
	Execute(ctx context.Context, plan *optimizer.Plan) ([]result.Item, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, plan *optimizer.Plan) ([]result.Item, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, plan *optimizer.Plan) ([]result.Item, error) {
	return f(ctx, plan)
}
