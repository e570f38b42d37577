package kv

import (
	"context"
	"errors"
	"testing"
)

func TestPrefixStore_NamespacesKeys(t *testing.T) {
	inner := NewMemoryStore()
	s := NewPrefixStore(inner, "app:")
	ctx := context.Background()

	if err := s.Save(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := inner.Load(ctx, "app:k")
	if err != nil {
		t.Fatalf("inner Load: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("inner value = %q", got)
	}
	if _, err := inner.Load(ctx, "k"); !errors.Is(err, ErrKeyNotFound) {
		t.Error("unprefixed key should not exist in the inner store")
	}

	back, err := s.Load(ctx, "k")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(back) != "v" {
		t.Errorf("Load = %q", back)
	}
}

func TestPrefixStore_Isolation(t *testing.T) {
	inner := NewMemoryStore()
	a := NewPrefixStore(inner, "a:")
	b := NewPrefixStore(inner, "b:")
	ctx := context.Background()

	if err := a.Save(ctx, "k", []byte("from-a")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := b.Load(ctx, "k"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("err = %v, want ErrKeyNotFound", err)
	}
}

func TestPrefixStore_EmptyPrefixPassthrough(t *testing.T) {
	inner := NewMemoryStore()
	if s := NewPrefixStore(inner, ""); s != Store(inner) {
		t.Error("empty prefix should return the inner store")
	}
}
