package kv

import "context"

// Compile-time check: PrefixStore implements Store.
var _ Store = (*PrefixStore)(nil)

// PrefixStore namespaces every key of an underlying Store. It lets several
// engines share one backing store without key collisions.
type PrefixStore struct {
	inner  Store
	prefix string
}

// NewPrefixStore wraps a store so that all keys carry the given prefix.
// An empty prefix returns the inner store unchanged.
func NewPrefixStore(inner Store, prefix string) Store {
	if prefix == "" {
		return inner
	}
	return &PrefixStore{inner: inner, prefix: prefix}
}

// Load retrieves a value by prefixed key.
func (s *PrefixStore) Load(ctx context.Context, key string) ([]byte, error) {
	return s.inner.Load(ctx, s.prefix+key)
}

// Save stores a value at the prefixed key.
func (s *PrefixStore) Save(ctx context.Context, key string, data []byte) error {
	return s.inner.Save(ctx, s.prefix+key, data)
}

// Close closes the underlying store.
func (s *PrefixStore) Close() {
	s.inner.Close()
}
