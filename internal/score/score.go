// Package score ranks search candidates by combining match quality with
// popularity, recency, and kind signals into one deterministic score.
package score

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// MaxScore caps the final relevance score.
const MaxScore = 2.0

// Base components in precedence order; the first applicable one wins.
const (
	baseExact     = 1.0
	baseHasPrefix = 0.8
	baseSubstring = 0.6
	fuzzyScale    = 0.4
)

// Default signal weights.
const (
	DefaultPopularityWeight = 0.6
	DefaultRecencyWeight    = 0.4
)

// recencyHorizonDays is the age at which the recency term reaches zero.
const recencyHorizonDays = 30

// Kind boosts applied on top of the base component.
const (
	BoostSavedSearch = 0.2
	BoostFilter      = 0.1
)

// Input carries one candidate's signals into Score.
type Input struct {
	Text            string
	Term            string
	FuzzySimilarity float64
	Popularity      float64
	LastUsedAt      time.Time
	Kind            string // "savedSearch", "filter", or anything else
}

// Scorer combines match, popularity, and recency signals.
type Scorer struct {
	popularityWeight float64
	recencyWeight    float64
}

// New creates a scorer with the default weights.
func New() *Scorer {
	return &Scorer{
		popularityWeight: DefaultPopularityWeight,
		recencyWeight:    DefaultRecencyWeight,
	}
}

// NewWithWeights creates a scorer with custom popularity/recency weights.
func NewWithWeights(popularity, recency float64) *Scorer {
	return &Scorer{popularityWeight: popularity, recencyWeight: recency}
}

// Score computes the relevance of a candidate for a query term at the given
// time. The result is deterministic for identical numeric inputs and never
// exceeds MaxScore.
func (s *Scorer) Score(in Input, now time.Time) float64 {
	total := baseComponent(in.Text, in.Term, in.FuzzySimilarity)
	total += in.Popularity * s.popularityWeight
	total += recencyTerm(in.LastUsedAt, now) * s.recencyWeight
	total += kindBoost(in.Kind)

	if total > MaxScore {
		return MaxScore
	}
	return total
}

func baseComponent(text, term string, fuzzySimilarity float64) float64 {
	lt := strings.ToLower(text)
	lq := strings.ToLower(term)
	switch {
	case lt == lq:
		return baseExact
	case strings.HasPrefix(lt, lq):
		return baseHasPrefix
	case strings.Contains(lt, lq):
		return baseSubstring
	default:
		return fuzzySimilarity * fuzzyScale
	}
}

func recencyTerm(lastUsedAt, now time.Time) float64 {
	if lastUsedAt.IsZero() {
		return 0
	}
	days := now.Sub(lastUsedAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	r := 1 - days/recencyHorizonDays
	if r < 0 {
		return 0
	}
	return r
}

func kindBoost(kind string) float64 {
	switch kind {
	case "savedSearch":
		return BoostSavedSearch
	case "filter":
		return BoostFilter
	default:
		return 0
	}
}

// Highlight wraps the first case-insensitive occurrence of term inside text
// in <em> tags, preserving the original casing. Text without a hit is
// returned unchanged.
func Highlight(text, term string) string {
	if term == "" {
		return text
	}
	start, end := foldIndex(text, term)
	if start < 0 {
		return text
	}
	return text[:start] + "<em>" + text[start:end] + "</em>" + text[end:]
}

// foldIndex locates the first case-insensitive occurrence of term in text
// and returns its byte bounds within text. The fold is applied rune by rune:
// lowering can change a rune's encoded length, so offsets computed against a
// lowered copy of text would not be valid slice positions in the original.
func foldIndex(text, term string) (int, int) {
	termRunes := []rune(term)
	for start := 0; start < len(text); {
		if n, ok := foldPrefixLen(text[start:], termRunes); ok {
			return start, start + n
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		start += size
	}
	return -1, -1
}

// foldPrefixLen reports whether s starts with term under case folding, and
// how many bytes of s that prefix spans.
func foldPrefixLen(s string, term []rune) (int, bool) {
	n := 0
	for _, tr := range term {
		r, size := utf8.DecodeRuneInString(s[n:])
		if size == 0 {
			return 0, false
		}
		if r != tr && unicode.ToLower(r) != unicode.ToLower(tr) {
			return 0, false
		}
		n += size
	}
	return n, true
}
