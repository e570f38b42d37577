package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/athlinked/searchkit/internal/domain/search/searchtype"
	domsuggest "github.com/athlinked/searchkit/internal/domain/suggest"
	"github.com/athlinked/searchkit/internal/kv"
)

type recordDTO struct {
	Text       string    `json:"text"`
	Kind       string    `json:"kind"`
	Category   string    `json:"category,omitempty"`
	UseCount   int       `json:"useCount"`
	LastUsedAt time.Time `json:"lastUsedAt"`
	Popularity float64   `json:"popularity"`
}

type historyDTO struct {
	Term string    `json:"term"`
	At   time.Time `json:"at"`
}

// Load restores persisted records and history. Missing keys are not an
// error: the engine simply starts empty.
func (s *Service) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.store.Load(ctx, recordsKey)
	switch {
	case errors.Is(err, kv.ErrKeyNotFound):
	case err != nil:
		return err
	default:
		var dump map[searchtype.Type][]recordDTO
		if err := json.Unmarshal(data, &dump); err != nil {
			return err
		}
		s.buckets = make(map[searchtype.Type]*bucket, len(dump))
		for st, recs := range dump {
			b := newBucket()
			for _, d := range recs {
				r := domsuggest.Reconstruct(
					d.Text, domsuggest.Kind(d.Kind), d.Category,
					d.UseCount, d.LastUsedAt, d.Popularity,
				)
				b.upsertRestored(&r)
			}
			s.buckets[st] = b
		}
	}

	data, err = s.store.Load(ctx, historyKey)
	switch {
	case errors.Is(err, kv.ErrKeyNotFound):
	case err != nil:
		return err
	default:
		var hist []historyDTO
		if err := json.Unmarshal(data, &hist); err != nil {
			return err
		}
		s.history = s.history[:0]
		for _, h := range hist {
			s.history = append(s.history, historyEntry{Term: h.Term, At: h.At})
		}
	}
	return nil
}

// persist writes records and history to the store. Failures are logged and
// swallowed: durability of suggestions is a non-critical enhancement.
func (s *Service) persist(ctx context.Context) {
	if s.store == nil {
		return
	}

	s.mu.Lock()
	dump := make(map[searchtype.Type][]recordDTO, len(s.buckets))
	for st, b := range s.buckets {
		recs := make([]recordDTO, 0, len(b.order))
		for _, k := range b.order {
			r := b.records[k]
			recs = append(recs, recordDTO{
				Text:       r.Text(),
				Kind:       string(r.Kind()),
				Category:   r.Category(),
				UseCount:   r.UseCount(),
				LastUsedAt: r.LastUsedAt(),
				Popularity: r.Popularity(),
			})
		}
		dump[st] = recs
	}
	hist := make([]historyDTO, len(s.history))
	for i, h := range s.history {
		hist[i] = historyDTO{Term: h.Term, At: h.At}
	}
	s.mu.Unlock()

	if data, err := json.Marshal(dump); err == nil {
		if err := s.store.Save(ctx, recordsKey, data); err != nil {
			s.logger.Warn("Failed to persist suggestion records", zap.Error(err))
		}
	}
	if data, err := json.Marshal(hist); err == nil {
		if err := s.store.Save(ctx, historyKey, data); err != nil {
			s.logger.Warn("Failed to persist search history", zap.Error(err))
		}
	}
}
