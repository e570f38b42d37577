package match

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	m := New()
	tests := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"same", "same", 0},
		{"Same", "sAME", 0}, // case-insensitive
		{"maratón", "marathon", 2},
		{"a", "b", 1},
	}
	for _, tt := range tests {
		if got := m.Distance(tt.a, tt.b); got != tt.want {
			t.Errorf("Distance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDistance_Symmetry(t *testing.T) {
	m := New()
	pairs := [][2]string{
		{"kitten", "sitting"},
		{"marathon", "mara"},
		{"", "x"},
	}
	for _, p := range pairs {
		if m.Distance(p[0], p[1]) != m.Distance(p[1], p[0]) {
			t.Errorf("Distance(%q, %q) not symmetric", p[0], p[1])
		}
	}
}

func TestDistance_CaseSensitive(t *testing.T) {
	m := NewCaseSensitive()
	if got := m.Distance("Same", "same"); got != 1 {
		t.Errorf("Distance = %d, want 1", got)
	}
}

func TestSimilarity(t *testing.T) {
	m := New()
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"same", "same", 1},
		{"kitten", "sitting", 1 - 3.0/7},
		{"abc", "", 0},
	}
	for _, tt := range tests {
		got := m.Similarity(tt.a, tt.b)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Similarity(%q, %q) = %g, want %g", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSimilarity_Bounds(t *testing.T) {
	m := New()
	pairs := [][2]string{
		{"a", "completely different"},
		{"marathon", "maratón"},
		{"x", "x"},
	}
	for _, p := range pairs {
		s := m.Similarity(p[0], p[1])
		if s < 0 || s > 1 {
			t.Errorf("Similarity(%q, %q) = %g out of [0,1]", p[0], p[1], s)
		}
	}
}

func TestMatch_Presets(t *testing.T) {
	m := New()
	tests := []struct {
		name        string
		query, tgt  string
		opts        Options
		wantMatched bool
	}{
		{"exact identical", "run", "run", Exact, true},
		{"exact one off", "run", "ran", Exact, false},
		{"strict one typo", "sprint", "sprintt", Strict, true},
		{"strict two typos", "sprint", "sprintts", Strict, false},
		{"default two edits", "marathon", "maratón", Default, true},
		{"relaxed low similarity", "jump", "skip", Relaxed, false},
		{"default unrelated", "mara", "sprint", Default, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := m.Match(tt.query, tt.tgt, tt.opts)
			if r.Matched != tt.wantMatched {
				t.Errorf("Matched = %v (sim=%g dist=%d), want %v",
					r.Matched, r.Similarity, r.Distance, tt.wantMatched)
			}
		})
	}
}

func TestMatch_ContainmentCountsAsMatch(t *testing.T) {
	m := New()
	r := m.Match("mara", "marathon", Default)
	if !r.Matched {
		t.Errorf("partial typing should match (sim=%g dist=%d)", r.Similarity, r.Distance)
	}
	if r := m.Match("mara", "marathon", Exact); r.Matched {
		t.Error("containment must not bypass a zero edit budget")
	}
}

func TestFindMatches_RankedBySimilarity(t *testing.T) {
	m := New()
	got := m.FindMatches("mara", []string{"marathon", "maratón", "sprint"}, Default)
	if len(got) != 2 {
		t.Fatalf("matches = %d, want marathon and maratón", len(got))
	}
	for _, c := range got {
		if c.Target == "sprint" {
			t.Error("sprint should not match")
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Result.Similarity > got[i-1].Result.Similarity {
			t.Error("results not sorted by descending similarity")
		}
	}
}

func TestPresetByName(t *testing.T) {
	if PresetByName("strict") != Strict {
		t.Error("strict preset not resolved")
	}
	if PresetByName("bogus") != Default {
		t.Error("unknown preset should fall back to Default")
	}
}
