package result

import (
	"time"

	"github.com/athlinked/searchkit/internal/domain/search/searchtype"
)

// Item is a typed record returned by the document store.
type Item struct {
	id         string
	kind       searchtype.Type
	text       string
	attributes map[string]string
	popularity float64
	createdAt  time.Time
	lastUsedAt time.Time
}

// NewItem creates a store record.
func NewItem(
	id string, kind searchtype.Type, text string,
	attributes map[string]string, popularity float64,
	createdAt, lastUsedAt time.Time,
) Item {
	return Item{
		id: id, kind: kind, text: text,
		attributes: attributes, popularity: popularity,
		createdAt: createdAt, lastUsedAt: lastUsedAt,
	}
}

// ID returns the record identifier.
func (i *Item) ID() string { return i.id }

// Kind returns the record's search type.
func (i *Item) Kind() searchtype.Type { return i.kind }

// Text returns the searchable text.
func (i *Item) Text() string { return i.text }

// Attributes returns the record's categorical attributes.
func (i *Item) Attributes() map[string]string { return i.attributes }

// Popularity returns the record's popularity signal.
func (i *Item) Popularity() float64 { return i.popularity }

// CreatedAt returns the record creation time.
func (i *Item) CreatedAt() time.Time { return i.createdAt }

// LastUsedAt returns when the record was last interacted with.
func (i *Item) LastUsedAt() time.Time { return i.lastUsedAt }

// ScoredItem wraps an Item with its per-query relevance score and a
// highlighted rendering of the matched text. Scores are transient: they are
// recomputed for every query and never persisted.
type ScoredItem struct {
	Item        Item
	Score       float64
	Highlighted string
}

// Page is one page of ranked search results.
type Page struct {
	Items       []ScoredItem
	TotalCount  int
	Facets      map[string]map[string]int
	Suggestions []string
	HasMore     bool
	NextOffset  int
}
