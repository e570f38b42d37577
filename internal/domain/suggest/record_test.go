package suggest

import (
	"math"
	"testing"
	"time"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNew_FirstUse(t *testing.T) {
	r := New("marathon", KindTerm, "", base)
	if r.UseCount() != 1 {
		t.Errorf("useCount = %d, want 1", r.UseCount())
	}
	want := math.Log(2)
	if math.Abs(r.Popularity()-want) > 1e-9 {
		t.Errorf("popularity = %g, want %g", r.Popularity(), want)
	}
}

func TestTouch_IncrementsAndRecomputes(t *testing.T) {
	r := New("marathon", KindTerm, "", base)
	r.Touch(base.Add(time.Hour))
	if r.UseCount() != 2 {
		t.Errorf("useCount = %d, want 2", r.UseCount())
	}
	want := math.Log(3)
	if math.Abs(r.Popularity()-want) > 1e-9 {
		t.Errorf("popularity = %g, want %g", r.Popularity(), want)
	}
}

func TestRecencyFactor(t *testing.T) {
	tests := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"fresh", 0, 1},
		{"future clock skew", -time.Hour, 1},
		{"15 days", 15 * 24 * time.Hour, 0.5},
		{"30 days hits floor", 30 * 24 * time.Hour, DecayFloor},
		{"beyond horizon stays at floor", 90 * 24 * time.Hour, DecayFloor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RecencyFactor(base.Add(-tt.age), base)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("factor = %g, want %g", got, tt.want)
			}
		})
	}
}

func TestRefresh_DecaysWithoutCounting(t *testing.T) {
	r := New("marathon", KindTerm, "", base)
	before := r.Popularity()
	r.Refresh(base.Add(20 * 24 * time.Hour))
	if r.UseCount() != 1 {
		t.Errorf("useCount changed to %d", r.UseCount())
	}
	if r.Popularity() >= before {
		t.Errorf("popularity did not decay: %g -> %g", before, r.Popularity())
	}
}

func TestReconstruct_PreservesState(t *testing.T) {
	r := Reconstruct("10k", KindFilter, "distance", 7, base, 1.23)
	if r.UseCount() != 7 || r.Popularity() != 1.23 || r.Category() != "distance" {
		t.Errorf("reconstructed record lost state: %+v", r)
	}
}
