package suggest

import (
	"math"
	"time"
)

// Popularity decay parameters: popularity decays linearly to the floor as the
// record's last use ages toward the horizon.
const (
	DecayHorizonDays = 30
	DecayFloor       = 0.1
)

// Kind discriminates what a suggestion record describes.
type Kind string

// Record kinds.
const (
	KindTerm        Kind = "term"
	KindFilter      Kind = "filter"
	KindSavedSearch Kind = "savedSearch"
)

// Record is a single auto-complete candidate with its usage statistics.
type Record struct {
	text       string
	kind       Kind
	category   string
	useCount   int
	lastUsedAt time.Time
	popularity float64
}

// New creates a record for a first observed use.
func New(text string, kind Kind, category string, now time.Time) Record {
	r := Record{text: text, kind: kind, category: category, useCount: 1, lastUsedAt: now}
	r.popularity = computePopularity(r.useCount, r.lastUsedAt, now)
	return r
}

// Reconstruct rebuilds a record from persisted state without touching its
// statistics.
func Reconstruct(text string, kind Kind, category string, useCount int, lastUsedAt time.Time, popularity float64) Record {
	return Record{
		text: text, kind: kind, category: category,
		useCount: useCount, lastUsedAt: lastUsedAt, popularity: popularity,
	}
}

// Text returns the suggestion text.
func (r *Record) Text() string { return r.text }

// Kind returns the record kind.
func (r *Record) Kind() Kind { return r.kind }

// Category returns the optional filter category.
func (r *Record) Category() string { return r.category }

// UseCount returns how many times the suggestion was used.
func (r *Record) UseCount() int { return r.useCount }

// LastUsedAt returns the time of the most recent use.
func (r *Record) LastUsedAt() time.Time { return r.lastUsedAt }

// Popularity returns the decayed popularity score.
func (r *Record) Popularity() float64 { return r.popularity }

// Touch records another use and recomputes popularity.
func (r *Record) Touch(now time.Time) {
	r.useCount++
	r.lastUsedAt = now
	r.popularity = computePopularity(r.useCount, r.lastUsedAt, now)
}

// Refresh recomputes popularity against the current time without counting a use.
func (r *Record) Refresh(now time.Time) {
	r.popularity = computePopularity(r.useCount, r.lastUsedAt, now)
}

// SetPopularity overrides the computed popularity. Saved searches start at a
// fixed default instead of the usage-derived value.
func (r *Record) SetPopularity(p float64) { r.popularity = p }

// computePopularity is ln(useCount+1) scaled by linear recency decay.
func computePopularity(useCount int, lastUsedAt, now time.Time) float64 {
	return math.Log(float64(useCount)+1) * RecencyFactor(lastUsedAt, now)
}

// RecencyFactor decays linearly from 1 at lastUsedAt to DecayFloor at the
// horizon and stays at the floor afterwards.
func RecencyFactor(lastUsedAt, now time.Time) float64 {
	days := now.Sub(lastUsedAt).Hours() / 24
	if days <= 0 {
		return 1
	}
	f := 1 - days/DecayHorizonDays
	if f < DecayFloor {
		return DecayFloor
	}
	return f
}
