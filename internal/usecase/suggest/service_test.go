package suggest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/athlinked/searchkit/internal/domain/search/searchtype"
	domsuggest "github.com/athlinked/searchkit/internal/domain/suggest"
	"github.com/athlinked/searchkit/internal/kv"
)

var ctx = context.Background()

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestEngine() (*Service, *fakeClock) {
	clk := newFakeClock()
	return New(nil, nil).WithClock(clk.Now), clk
}

func texts(ss []Suggestion) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.Text
	}
	return out
}

func contains(ss []string, want string) bool {
	for _, s := range ss {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}

func TestSuggest_RecordedTermsMatch(t *testing.T) {
	s, _ := newTestEngine()
	s.RecordUse(ctx, "marathon", searchtype.Events)
	s.RecordUse(ctx, "sprint", searchtype.Events)

	got := s.Suggest("mara", searchtype.Events, DefaultOptions())
	if !contains(texts(got), "marathon") {
		t.Errorf("suggestions = %v, want marathon", texts(got))
	}
	if contains(texts(got), "sprint") {
		t.Errorf("sprint should not match mara: %v", texts(got))
	}
}

func TestSuggest_AllBucketIsShared(t *testing.T) {
	s, _ := newTestEngine()
	s.RecordUse(ctx, "marathon", searchtype.All)

	got := s.Suggest("mara", searchtype.Events, DefaultOptions())
	if !contains(texts(got), "marathon") {
		t.Errorf("all-bucket record missing from events suggestions: %v", texts(got))
	}
}

func TestSuggest_SortedDescendingAndTruncated(t *testing.T) {
	s, clk := newTestEngine()
	for _, term := range []string{
		"run", "runner", "running", "runway", "rundown",
		"runoff", "runtime", "runabout", "rune", "rung", "runnel", "runup",
	} {
		s.RecordUse(ctx, term, searchtype.All)
		clk.Advance(time.Second)
	}

	got := s.Suggest("run", searchtype.All, Options{MaxSuggestions: 5})
	if len(got) != 5 {
		t.Fatalf("len = %d, want truncation to 5", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Error("suggestions not sorted by descending score")
		}
	}
}

func TestSuggest_DeduplicatesCaseInsensitively(t *testing.T) {
	s, _ := newTestEngine()
	s.RecordUse(ctx, "Marathon", searchtype.Users)
	s.RecordUse(ctx, "marathon", searchtype.All)

	got := s.Suggest("marathon", searchtype.Users, DefaultOptions())
	seen := 0
	for _, c := range got {
		if strings.EqualFold(c.Text, "marathon") {
			seen++
		}
	}
	if seen != 1 {
		t.Errorf("marathon appeared %d times, want 1", seen)
	}
}

func TestSuggest_HistoryCandidates(t *testing.T) {
	s, _ := newTestEngine()
	s.RecordUse(ctx, "trail running", searchtype.Videos)

	got := s.Suggest("trail", searchtype.Users, DefaultOptions())
	// No users/all record exists; history still surfaces the term.
	if !contains(texts(got), "trail running") {
		t.Errorf("history candidate missing: %v", texts(got))
	}
}

func TestSuggest_HistoryDisabled(t *testing.T) {
	s, _ := newTestEngine()
	s.RecordUse(ctx, "trail running", searchtype.Videos)

	got := s.Suggest("trail", searchtype.Users,
		Options{MaxSuggestions: 10, IncludeHistory: false, IncludePopular: false})
	if len(got) != 0 {
		t.Errorf("suggestions = %v, want none", texts(got))
	}
}

func TestSuggest_SeededPopularTerms(t *testing.T) {
	s, _ := newTestEngine()
	s.WithSeedTerms([]string{"triathlon"})

	got := s.Suggest("tria", searchtype.Users, DefaultOptions())
	if !contains(texts(got), "triathlon") {
		t.Errorf("seeded popular term missing: %v", texts(got))
	}
}

func TestSuggest_SavedSearchBoostedOverPlainTerm(t *testing.T) {
	s, _ := newTestEngine()
	s.RecordSavedSearch(ctx, "coaches near me", searchtype.Users)
	s.RecordUse(ctx, "coaches online", searchtype.Users)

	got := s.Suggest("coaches", searchtype.Users, DefaultOptions())
	if len(got) < 2 {
		t.Fatalf("suggestions = %v", texts(got))
	}
	var saved, term float64
	for _, c := range got {
		switch c.Kind {
		case domsuggest.KindSavedSearch:
			saved = c.Score
		case domsuggest.KindTerm:
			term = c.Score
		}
	}
	if saved <= term {
		t.Errorf("saved search score %g should beat plain term score %g", saved, term)
	}
}

func TestHistory_BoundedAndDeduplicated(t *testing.T) {
	s, clk := newTestEngine()
	for i := 0; i < HistorySize+5; i++ {
		s.RecordUse(ctx, "term"+string(rune('a'+i)), searchtype.All)
		clk.Advance(time.Second)
	}
	s.RecordUse(ctx, "terma", searchtype.All) // re-use moves to front

	h := s.History()
	if len(h) != HistorySize {
		t.Errorf("history len = %d, want %d", len(h), HistorySize)
	}
	if h[0] != "terma" {
		t.Errorf("most recent = %q, want terma", h[0])
	}
}

func TestSuggestCache_InvalidatedByRecordUse(t *testing.T) {
	s, _ := newTestEngine()
	s.RecordUse(ctx, "marathon", searchtype.Events)

	before := s.Suggest("mara", searchtype.Events, DefaultOptions())
	s.RecordUse(ctx, "maranello", searchtype.Events)
	after := s.Suggest("mara", searchtype.Events, DefaultOptions())

	if len(after) == len(before) {
		t.Errorf("cached result not invalidated: before=%v after=%v",
			texts(before), texts(after))
	}
}

func TestSuggestCache_ServesWithinTTL(t *testing.T) {
	s, clk := newTestEngine()
	s.RecordUse(ctx, "marathon", searchtype.Events)

	first := s.Suggest("mara", searchtype.Events, DefaultOptions())
	clk.Advance(CacheTTL - time.Second)
	second := s.Suggest("mara", searchtype.Events, DefaultOptions())
	if len(first) != len(second) {
		t.Error("cached result changed within ttl")
	}
}

func TestClear(t *testing.T) {
	s, _ := newTestEngine()
	s.RecordUse(ctx, "marathon", searchtype.Events)
	s.RecordUse(ctx, "coach", searchtype.Users)

	s.Clear(ctx, searchtype.Events)
	if n := s.Counts()[searchtype.Events]; n != 0 {
		t.Errorf("events records = %d after clear", n)
	}
	if n := s.Counts()[searchtype.Users]; n != 1 {
		t.Errorf("users records = %d, want 1", n)
	}

	s.Clear(ctx, "")
	if len(s.Counts()) != 0 {
		t.Error("full clear left records behind")
	}
}

func TestClear_AllWipesEveryType(t *testing.T) {
	s, _ := newTestEngine()
	s.RecordUse(ctx, "marathon", searchtype.Events)
	s.RecordUse(ctx, "coach", searchtype.Users)
	s.RecordUse(ctx, "training", searchtype.All)

	s.Clear(ctx, searchtype.All)

	if len(s.Counts()) != 0 {
		t.Errorf("counts = %v after clearing all", s.Counts())
	}
	if h := s.History(); len(h) != 0 {
		t.Errorf("history = %v after clearing all", h)
	}
}

func TestPersistence_RoundTrip(t *testing.T) {
	st := kv.NewMemoryStore()
	clk := newFakeClock()

	s := New(st, nil).WithClock(clk.Now)
	s.RecordUse(ctx, "marathon", searchtype.Events)
	s.RecordSavedSearch(ctx, "coaches near me", searchtype.Users)

	restored := New(st, nil).WithClock(clk.Now)
	if err := restored.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := restored.Suggest("mara", searchtype.Events, DefaultOptions())
	if !contains(texts(got), "marathon") {
		t.Errorf("restored suggestions = %v", texts(got))
	}
	if len(restored.History()) == 0 {
		t.Error("history not restored")
	}
}

type failingStore struct{}

func (failingStore) Load(context.Context, string) ([]byte, error) {
	return nil, errors.New("quota exceeded")
}

func (failingStore) Save(context.Context, string, []byte) error {
	return errors.New("quota exceeded")
}

func TestPersistence_FailuresDoNotSurface(t *testing.T) {
	s := New(failingStore{}, nil)
	// Must not panic or error; the engine keeps working in memory.
	s.RecordUse(ctx, "marathon", searchtype.Events)
	got := s.Suggest("mara", searchtype.Events, DefaultOptions())
	if !contains(texts(got), "marathon") {
		t.Errorf("in-memory state lost on persistence failure: %v", texts(got))
	}
}
