package loader

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"campuscal/internal/model"
)

func TestRelevantYears(t *testing.T) {
	tests := []struct {
		view model.View
		ref  time.Time
		want []int
	}{
		{model.ViewDay, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), []int{2024}},
		{model.ViewWeek, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), []int{2024}},
		{model.ViewMonth, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), []int{2024}},
		{model.ViewMonth, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), []int{2023, 2024}},
		{model.ViewMonth, time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC), []int{2024, 2025}},
		{model.ViewYear, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), []int{2024, 2025, 2026}},
	}
	for _, tt := range tests {
		if got := RelevantYears(tt.view, tt.ref); !slices.Equal(got, tt.want) {
			t.Errorf("RelevantYears(%s, %s) = %v, want %v", tt.view, tt.ref.Format("2006-01"), got, tt.want)
		}
	}
}

func idSet(events []model.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	sort.Strings(out)
	return out
}

func TestMergeDeduplicates(t *testing.T) {
	dup := []model.Event{
		{ID: "1", Start: "2024-03-10T09:00"},
		{ID: "1", Start: "2024-03-10T09:00"},
	}
	got := Merge(nil, dup)
	if len(got) != 1 {
		t.Fatalf("merge of duplicates = %d events", len(got))
	}

	a := []model.Event{{ID: "1"}, {ID: "2"}}
	b := []model.Event{{ID: "2"}, {ID: "3"}}
	once := Merge(nil, a)
	twice := Merge(once, a)
	if !slices.Equal(idSet(once), idSet(twice)) {
		t.Errorf("merge not idempotent: %v vs %v", idSet(once), idSet(twice))
	}
	ab := Merge(Merge(nil, a), b)
	ba := Merge(Merge(nil, b), a)
	if !slices.Equal(idSet(ab), idSet(ba)) {
		t.Errorf("merge not commutative: %v vs %v", idSet(ab), idSet(ba))
	}

	existing := []model.Event{{ID: "1", Title: "kept"}}
	if got := Merge(existing, []model.Event{{ID: "1", Title: "incoming"}}); got[0].Title != "kept" {
		t.Errorf("existing event replaced: %+v", got)
	}
	if existing[0].Title != "kept" || len(existing) != 1 {
		t.Errorf("input mutated: %+v", existing)
	}
}

type countingSource struct {
	mu    sync.Mutex
	calls map[int]int
	fail  map[int]bool
}

func (s *countingSource) FetchEventsForYear(_ context.Context, year int) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = map[int]int{}
	}
	s.calls[year]++
	if s.fail[year] {
		return nil, errors.New("network down")
	}
	return []model.Event{{ID: "shared", Date: "2024-12-31"}, {ID: string(rune('0' + year%10)), Date: "2024-06-01"}}, nil
}

func TestFetchAndApply(t *testing.T) {
	src := &countingSource{fail: map[int]bool{2025: true}}
	l := New(src)
	loaded := YearSet{}

	outcomes := l.Fetch(context.Background(), []int{2024, 2025, 2026})
	if len(outcomes) != 3 || outcomes[1].Year != 2025 || outcomes[1].Err == nil {
		t.Fatalf("outcomes = %+v", outcomes)
	}
	events := Apply(loaded, nil, outcomes)

	if !loaded.Has(2024) || loaded.Has(2025) || !loaded.Has(2026) {
		t.Errorf("loaded = %v", loaded.Sorted())
	}
	if got := idSet(events); !slices.Equal(got, []string{"4", "6", "shared"}) {
		t.Errorf("events = %v", got)
	}
	if missing := loaded.Missing([]int{2024, 2025, 2026}); !slices.Equal(missing, []int{2025}) {
		t.Errorf("Missing = %v", missing)
	}
}

func TestFetchRecoversFromPanickingSource(t *testing.T) {
	l := New(SourceFunc(func(context.Context, int) ([]model.Event, error) {
		panic("import failed")
	}))
	out := l.Fetch(context.Background(), []int{2024})
	if out[0].Err == nil {
		t.Fatal("expected error from panicking source")
	}
}

func TestNullSource(t *testing.T) {
	l := New(nil)
	out := l.Fetch(context.Background(), []int{2024})
	if out[0].Err != nil || len(out[0].Events) != 0 {
		t.Errorf("null source outcome = %+v", out[0])
	}
}

func TestFetchTimeout(t *testing.T) {
	l := New(SourceFunc(func(ctx context.Context, _ int) ([]model.Event, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}))
	l.Timeout = 10 * time.Millisecond
	out := l.Fetch(context.Background(), []int{2024})
	if !errors.Is(out[0].Err, context.DeadlineExceeded) {
		t.Errorf("err = %v", out[0].Err)
	}
}
