// Package match implements edit-distance based approximate string matching.
// It is pure and stateless beyond its configuration.
package match

import (
	"sort"
	"strings"
)

// Options bound what counts as a match.
type Options struct {
	MaxDistance int
	Threshold   float64
}

// Named presets.
var (
	// Default balances typo tolerance against noise.
	Default = Options{MaxDistance: 2, Threshold: 0.6}
	// Strict allows a single typo on near-identical strings.
	Strict = Options{MaxDistance: 1, Threshold: 0.8}
	// Relaxed admits loosely similar strings.
	Relaxed = Options{MaxDistance: 3, Threshold: 0.4}
	// Exact requires identical strings.
	Exact = Options{MaxDistance: 0, Threshold: 1.0}
)

// PresetByName resolves a preset name from configuration.
// Unknown names fall back to Default.
func PresetByName(name string) Options {
	switch name {
	case "strict":
		return Strict
	case "relaxed":
		return Relaxed
	case "exact":
		return Exact
	default:
		return Default
	}
}

// Result is the outcome of a single match test.
type Result struct {
	Matched    bool
	Similarity float64
	Distance   int
}

// Candidate is one target ranked by FindMatches.
type Candidate struct {
	Target string
	Result Result
}

// Matcher computes edit distance and similarity between strings.
type Matcher struct {
	caseSensitive bool
}

// New creates a case-insensitive matcher.
func New() *Matcher {
	return &Matcher{}
}

// NewCaseSensitive creates a matcher that compares strings as given.
func NewCaseSensitive() *Matcher {
	return &Matcher{caseSensitive: true}
}

// Distance computes the Levenshtein edit distance between a and b.
func (m *Matcher) Distance(a, b string) int {
	if !m.caseSensitive {
		a = strings.ToLower(a)
		b = strings.ToLower(b)
	}
	return levenshtein([]rune(a), []rune(b))
}

// Similarity maps edit distance into [0,1]: 1 - distance/max(len). Two empty
// strings are identical, similarity 1.
func (m *Matcher) Similarity(a, b string) float64 {
	if !m.caseSensitive {
		a = strings.ToLower(a)
		b = strings.ToLower(b)
	}
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

// Match tests query against target: matched iff the distance is within
// opts.MaxDistance and the similarity reaches opts.Threshold. A query
// contained inside the target also matches (partial typing of a longer word),
// except under a zero edit budget.
func (m *Matcher) Match(query, target string, opts Options) Result {
	q, tgt := query, target
	if !m.caseSensitive {
		q = strings.ToLower(q)
		tgt = strings.ToLower(tgt)
	}
	d := levenshtein([]rune(q), []rune(tgt))
	s := similarityFromDistance(d, q, tgt)

	matched := d <= opts.MaxDistance && s >= opts.Threshold
	if !matched && opts.MaxDistance > 0 && q != "" && strings.Contains(tgt, q) {
		matched = true
	}
	return Result{Matched: matched, Similarity: s, Distance: d}
}

func similarityFromDistance(d int, a, b string) float64 {
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(d)/float64(longest)
}

// FindMatches tests query against every target and returns the matches
// sorted by descending similarity.
func (m *Matcher) FindMatches(query string, targets []string, opts Options) []Candidate {
	var out []Candidate
	for _, t := range targets {
		if r := m.Match(query, t, opts); r.Matched {
			out = append(out, Candidate{Target: t, Result: r})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Result.Similarity > out[j].Result.Similarity
	})
	return out
}

// levenshtein runs the classic dynamic program over a
// (len(b)+1) x (len(a)+1) matrix.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(b)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(a)+1)
		matrix[i][0] = i
	}
	for j := 0; j <= len(a); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(b); i++ {
		for j := 1; j <= len(a); j++ {
			if b[i-1] == a[j-1] {
				matrix[i][j] = matrix[i-1][j-1]
				continue
			}
			matrix[i][j] = 1 + min3(
				matrix[i-1][j-1], // substitution
				matrix[i][j-1],   // insertion
				matrix[i-1][j],   // deletion
			)
		}
	}
	return matrix[len(b)][len(a)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
