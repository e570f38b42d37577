package kv

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Save(ctx, "k", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx, "k")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Errorf("Load = %q", got)
	}
}

func TestMemoryStore_Missing(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Load(context.Background(), "absent")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("err = %v, want ErrKeyNotFound", err)
	}
}

func TestMemoryStore_CopiesData(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	data := []byte("abc")
	if err := s.Save(ctx, "k", data); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data[0] = 'x'

	got, _ := s.Load(ctx, "k")
	if string(got) != "abc" {
		t.Error("store aliased the caller's slice")
	}
	got[0] = 'y'
	again, _ := s.Load(ctx, "k")
	if string(again) != "abc" {
		t.Error("load returned an aliased slice")
	}
}
