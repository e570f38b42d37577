// Package kv is the durable key-value collaborator used for best-effort
// persistence of suggestion records and search history.
package kv

import (
	"context"
	"errors"
)

// ErrKeyNotFound signals an absent key.
var ErrKeyNotFound = errors.New("kv: key not found")

// Store persists JSON blobs by key.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Close()
}
