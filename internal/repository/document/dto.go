package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/athlinked/searchkit/internal/domain/search/result"
	"github.com/athlinked/searchkit/internal/domain/search/searchtype"
	"github.com/athlinked/searchkit/internal/kv"
)

type docDTO struct {
	ID         string            `json:"id"`
	Text       string            `json:"text"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Popularity float64           `json:"popularity"`
	CreatedAt  time.Time         `json:"createdAt"`
	LastUsedAt time.Time         `json:"lastUsedAt"`
}

func collectionKey(st searchtype.Type) string {
	return "docs:" + string(st)
}

// Load restores all collections from the store. Missing keys are not an
// error: the collection simply starts empty.
func (r *Repo) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, st := range searchtype.All.Concrete() {
		data, err := r.store.Load(ctx, collectionKey(st))
		if errors.Is(err, kv.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load collection %s: %w", st, err)
		}

		var dump []docDTO
		if err := json.Unmarshal(data, &dump); err != nil {
			return fmt.Errorf("decode collection %s: %w", st, err)
		}

		bucket := make(map[string]result.Item, len(dump))
		order := make([]string, 0, len(dump))
		for _, d := range dump {
			bucket[d.ID] = result.NewItem(
				d.ID, st, d.Text, d.Attributes,
				d.Popularity, d.CreatedAt, d.LastUsedAt,
			)
			order = append(order, d.ID)
		}
		r.docs[st] = bucket
		r.order[st] = order
	}
	return nil
}

// persist writes one collection to the store.
func (r *Repo) persist(ctx context.Context, st searchtype.Type) error {
	if r.store == nil {
		return nil
	}

	r.mu.RLock()
	dump := make([]docDTO, 0, len(r.order[st]))
	for _, id := range r.order[st] {
		it := r.docs[st][id]
		dump = append(dump, docDTO{
			ID:         it.ID(),
			Text:       it.Text(),
			Attributes: it.Attributes(),
			Popularity: it.Popularity(),
			CreatedAt:  it.CreatedAt(),
			LastUsedAt: it.LastUsedAt(),
		})
	}
	r.mu.RUnlock()

	data, err := json.Marshal(dump)
	if err != nil {
		return fmt.Errorf("encode collection %s: %w", st, err)
	}
	if err := r.store.Save(ctx, collectionKey(st), data); err != nil {
		return fmt.Errorf("save collection %s: %w", st, err)
	}
	return nil
}
