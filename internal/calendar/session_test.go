package calendar

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"campuscal/internal/layout"
	"campuscal/internal/model"
)

type fakeSource struct {
	mu       sync.Mutex
	requests []int
	fail     map[int]error
	byYear   map[int][]model.Event
}

func (f *fakeSource) FetchEventsForYear(_ context.Context, year int) ([]model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, year)
	if err := f.fail[year]; err != nil {
		return nil, err
	}
	return f.byYear[year], nil
}

func (f *fakeSource) requested() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := slices.Clone(f.requests)
	slices.Sort(out)
	return out
}

func (f *fakeSource) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = nil
}

// gatedSource holds every fetch until release is closed.
type gatedSource struct {
	fakeSource
	started chan int
	release chan struct{}
}

func newGatedSource() *gatedSource {
	return &gatedSource{started: make(chan int, 8), release: make(chan struct{})}
}

func (g *gatedSource) FetchEventsForYear(ctx context.Context, year int) ([]model.Event, error) {
	g.mu.Lock()
	g.requests = append(g.requests, year)
	g.mu.Unlock()
	g.started <- year
	select {
	case <-g.release:
		return []model.Event{{ID: "held", Start: "2024-07-02T09:00"}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func newTestSession(now time.Time, src *fakeSource, seed ...model.Event) *Session {
	opts := layout.DefaultOptions()
	opts.Now = now
	return NewSession(Options{
		Now:    fixedClock(now),
		Layout: opts,
		Source: src,
		Seed:   seed,
	})
}

func TestNextYearFetchesNeighbours(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{}
	s := newTestSession(time.Date(2024, 6, 1, 9, 0, 0, 0, time.Local), src)

	if _, err := s.Navigate(ctx, Command{Action: ActionView, View: "year"}); err != nil {
		t.Fatal(err)
	}
	if got := src.requested(); !slices.Equal(got, []int{2023, 2024, 2025}) {
		t.Fatalf("year view fetched %v", got)
	}
	src.reset()

	if _, err := s.Navigate(ctx, Command{Action: ActionNext}); err != nil {
		t.Fatal(err)
	}
	st := s.State()
	if st.Reference.Year() != 2025 {
		t.Errorf("reference year = %d", st.Reference.Year())
	}
	// {2024, 2025, 2026} minus the already loaded 2024 and 2025.
	if got := src.requested(); !slices.Equal(got, []int{2026}) {
		t.Errorf("next fetched %v, want [2026]", got)
	}
	if got := st.LoadedYears.Sorted(); !slices.Equal(got, []int{2023, 2024, 2025, 2026}) {
		t.Errorf("LoadedYears = %v", got)
	}
}

func TestLoadedYearIsNeverRefetched(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{}
	s := newTestSession(time.Date(2024, 6, 1, 9, 0, 0, 0, time.Local), src)

	s.Sync(ctx)
	for range 5 {
		s.Navigate(ctx, Command{Action: ActionNext})
		s.Navigate(ctx, Command{Action: ActionPrev})
	}
	s.Navigate(ctx, Command{Action: ActionView, View: "week"})
	s.Navigate(ctx, Command{Action: ActionView, View: "day"})

	counts := map[int]int{}
	for _, y := range src.requested() {
		counts[y]++
	}
	for y, n := range counts {
		if n != 1 {
			t.Errorf("year %d requested %d times", y, n)
		}
	}
	if counts[2024] != 1 {
		t.Errorf("2024 requests = %d", counts[2024])
	}
}

func TestPendingFetchKeepsSessionResponsive(t *testing.T) {
	ctx := context.Background()
	src := newGatedSource()
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.Local)
	opts := layout.DefaultOptions()
	opts.Now = now
	s := NewSession(Options{Now: fixedClock(now), Layout: opts, Source: src})

	first := make(chan struct{})
	go func() {
		defer close(first)
		s.Sync(ctx)
	}()
	select {
	case <-src.started:
	case <-time.After(5 * time.Second):
		t.Fatal("fetch never started")
	}

	if !s.Loading() || !s.Render().Loading {
		t.Error("session should report loading while 2024 is in flight")
	}

	second := make(chan []int, 1)
	go func() {
		var years []int
		for _, o := range s.Sync(ctx) {
			years = append(years, o.Year)
		}
		second <- years
	}()
	select {
	case years := <-second:
		if len(years) != 0 {
			t.Errorf("concurrent Sync fetched %v", years)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("concurrent Sync blocked on the pending fetch")
	}

	navigated := make(chan error, 1)
	go func() {
		_, err := s.Navigate(ctx, Command{Action: ActionNext})
		navigated <- err
	}()
	select {
	case err := <-navigated:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("navigation blocked while a fetch was pending")
	}
	if st := s.State(); st.Reference.Month() != time.July {
		t.Errorf("reference = %v, want July", st.Reference)
	}

	close(src.release)
	<-first

	if got := src.requested(); !slices.Equal(got, []int{2024}) {
		t.Errorf("requests = %v, want [2024]", got)
	}
	if s.Loading() {
		t.Error("still loading after the fetch finished")
	}
	tree := s.Render()
	if tree.Loading || !slices.Equal(tree.LoadedYears, []int{2024}) {
		t.Errorf("loading = %v loaded = %v", tree.Loading, tree.LoadedYears)
	}
	if len(s.State().Remote) != 1 {
		t.Errorf("late result not merged: %+v", s.State().Remote)
	}
}

func TestDuplicateEventsAcrossYearsMergeOnce(t *testing.T) {
	ev := model.Event{ID: "1", Start: "2024-03-10T09:00"}
	src := &fakeSource{byYear: map[int][]model.Event{2023: {ev}, 2024: {ev}, 2025: {ev}}}
	s := newTestSession(time.Date(2024, 3, 10, 9, 0, 0, 0, time.Local), src)

	s.Navigate(context.Background(), Command{Action: ActionView, View: "year"})
	st := s.State()
	if len(st.Remote) != 1 {
		t.Fatalf("Remote = %+v", st.Remote)
	}
	tree := s.Render()
	if tree.Year.Months[2].Total != 1 {
		t.Errorf("March total = %d", tree.Year.Months[2].Total)
	}
}

func TestFetchFailureIsRetriedAndWarned(t *testing.T) {
	ctx := context.Background()
	local := model.Event{ID: "sample", Title: "Orientation", Start: "2024-03-11T10:00"}
	src := &fakeSource{fail: map[int]error{2024: errors.New("offline")}}
	s := newTestSession(time.Date(2024, 3, 10, 9, 0, 0, 0, time.Local), src, local)

	s.Sync(ctx)
	st := s.State()
	if st.LoadedYears.Has(2024) {
		t.Fatal("failed year marked loaded")
	}
	ws := s.Warnings()
	if len(ws) != 1 || ws[0].Kind != WarnYearFetch || ws[0].Year != 2024 {
		t.Fatalf("warnings = %+v", ws)
	}

	tree := s.Render()
	found := false
	for _, w := range tree.Month.Weeks {
		for _, c := range w {
			for _, e := range c.Events {
				found = found || e.ID == "sample"
			}
		}
	}
	if !found {
		t.Error("local event hidden after fetch failure")
	}

	// A second failure keeps a single warning for the year.
	s.Sync(ctx)
	if n := len(s.Warnings()); n != 1 {
		t.Errorf("warnings after retry = %d", n)
	}

	src.mu.Lock()
	delete(src.fail, 2024)
	src.byYear = map[int][]model.Event{2024: {{ID: "r1", Date: "2024-03-12"}}}
	src.mu.Unlock()

	s.Sync(ctx)
	if !s.State().LoadedYears.Has(2024) {
		t.Error("retry did not load 2024")
	}
	if n := len(s.Warnings()); n != 0 {
		t.Errorf("warning not cleared after success: %+v", s.Warnings())
	}
	if got := src.requested(); !slices.Equal(got, []int{2024, 2024, 2024}) {
		t.Errorf("requests = %v", got)
	}
}

func TestDismissWarning(t *testing.T) {
	src := &fakeSource{fail: map[int]error{2024: errors.New("offline")}}
	s := newTestSession(time.Date(2024, 3, 10, 9, 0, 0, 0, time.Local), src)
	s.Sync(context.Background())
	if !s.DismissWarning("year-fetch-2024") {
		t.Fatal("dismiss failed")
	}
	if s.DismissWarning("year-fetch-2024") {
		t.Error("second dismiss reported success")
	}
}

func TestDegradedSessionWarns(t *testing.T) {
	s := NewSession(Options{
		Now:       fixedClock(time.Date(2024, 3, 10, 9, 0, 0, 0, time.Local)),
		Layout:    layout.DefaultOptions(),
		SourceErr: errors.New("no source configured"),
	})
	ws := s.Warnings()
	if len(ws) != 1 || ws[0].Kind != WarnSourceUnavailable {
		t.Fatalf("warnings = %+v", ws)
	}
	if out := s.Sync(context.Background()); len(out) != 1 || out[0].Err != nil {
		t.Errorf("null source sync = %+v", out)
	}
}

func TestLocalEventsAlwaysRender(t *testing.T) {
	src := &fakeSource{byYear: map[int][]model.Event{2024: {{ID: "remote", Start: "2024-03-10T11:00"}}}}
	s := newTestSession(time.Date(2024, 3, 10, 9, 0, 0, 0, time.Local), src)

	ev, err := s.AddLocalEvent(model.LocalInput{Title: "Review", DateISO: "2024-03-10", TimeHHMM: "09:30", DurationHours: 0.5, Category: "meeting"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddLocalEvent(model.LocalInput{Title: ""}); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("invalid input err = %v", err)
	}
	s.Sync(context.Background())

	tree := s.Render()
	if len(tree.Agenda) != 2 || tree.Agenda[0].ID != ev.ID || tree.Agenda[1].ID != "remote" {
		t.Errorf("agenda = %+v", tree.Agenda)
	}
}

func TestNavigateRejectsBadCommands(t *testing.T) {
	s := newTestSession(time.Date(2024, 3, 10, 9, 0, 0, 0, time.Local), &fakeSource{})
	bad := []Command{
		{Action: "sideways"},
		{Action: ActionView, View: "decade"},
		{Action: ActionDay, Date: "not-a-date"},
		{Action: ActionMonth, Month: 13},
	}
	for _, c := range bad {
		if _, err := s.Navigate(context.Background(), c); !errors.Is(err, ErrBadCommand) {
			t.Errorf("Navigate(%+v) err = %v", c, err)
		}
	}
}

func TestRenderEveryViewWithBadDates(t *testing.T) {
	events := []model.Event{{ID: "bad", Date: "not-a-date"}, {ID: "ok", Start: "2024-03-10T09:00"}}
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.Local)
	opts := layout.DefaultOptions()
	opts.Now = now

	for _, v := range model.Views {
		st := NewState(now)
		st.View = v
		tree := Render(st, events, opts)
		if tree.View != v {
			t.Errorf("tree view = %s, want %s", tree.View, v)
		}
		for _, a := range tree.Agenda {
			if a.ID == "bad" {
				t.Errorf("%s agenda shows unparseable event", v)
			}
		}
		switch v {
		case model.ViewDay:
			if tree.Day == nil || len(tree.Day.Blocks) != 1 || len(tree.Hours) != 13 {
				t.Errorf("day tree = %+v", tree.Day)
			}
		case model.ViewWeek:
			if tree.Week == nil || len(tree.Week.Columns) != 7 {
				t.Errorf("week tree = %+v", tree.Week)
			}
		case model.ViewMonth:
			if tree.Month == nil {
				t.Error("month tree missing")
			}
		case model.ViewYear:
			if tree.Year == nil || len(tree.Year.Months) != 12 {
				t.Error("year tree missing")
			}
		}
	}
}

func TestDayColumnMatchesAgenda(t *testing.T) {
	ctx := context.Background()
	ev := model.Event{ID: "talk", Title: "Guest talk", Start: "2024-03-15T10:00"}
	s := newTestSession(time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local), &fakeSource{}, ev)

	s.Navigate(ctx, Command{Action: ActionDay, Date: "2024-03-15"})
	s.Navigate(ctx, Command{Action: ActionView, View: "day"})

	tree := s.Render()
	if tree.Day == nil || !tree.Day.Date.Equal(day(2024, 3, 15)) {
		t.Fatalf("day column = %+v", tree.Day)
	}
	if len(tree.Day.Blocks) != 1 || len(tree.Agenda) != 1 {
		t.Errorf("blocks = %d agenda = %d, want 1 and 1", len(tree.Day.Blocks), len(tree.Agenda))
	}
}

func TestTitles(t *testing.T) {
	st := NewState(time.Date(2024, 12, 31, 9, 0, 0, 0, time.Local))
	cases := map[model.View]string{
		model.ViewDay:   "Tuesday, December 31, 2024",
		model.ViewWeek:  "Dec 30, 2024 - Jan 5, 2025",
		model.ViewMonth: "December 2024",
		model.ViewYear:  "2024",
	}
	for v, want := range cases {
		st.View = v
		if got := Title(st, time.Monday); got != want {
			t.Errorf("Title(%s) = %q, want %q", v, got, want)
		}
	}
	st.Reference = time.Date(2024, 3, 13, 0, 0, 0, 0, time.Local)
	st.View = model.ViewWeek
	if got := Title(st, time.Monday); got != "Mar 11 - Mar 17, 2024" {
		t.Errorf("week title = %q", got)
	}
}

func TestSampleEvents(t *testing.T) {
	now := time.Date(2024, 2, 14, 12, 0, 0, 0, time.Local)
	samples := SampleEvents(now)
	seen := map[string]bool{}
	for _, e := range samples {
		if seen[e.ID] {
			t.Errorf("duplicate sample id %s", e.ID)
		}
		seen[e.ID] = true
		tm, ok := model.Resolve(e)
		if !ok {
			t.Errorf("sample %s does not parse", e.ID)
			continue
		}
		if tm.Start.Month() != time.February || tm.Start.Year() != 2024 {
			t.Errorf("sample %s outside the month: %v", e.ID, tm.Start)
		}
	}

	s := newTestSession(now, &fakeSource{}, samples...)
	s.Sync(context.Background())
	if n := len(s.State().Local); n != len(samples) {
		t.Errorf("Local = %d", n)
	}
}
