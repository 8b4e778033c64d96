// Package loader keeps the calendar's event working set in step with the
// years the current frame needs. Each calendar year is fetched from the
// event source at most once per session after it has loaded successfully.
package loader

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	appLog "campuscal/internal/log"
	"campuscal/internal/model"
)

// ErrSourceUnavailable is returned by the null source and by constructors
// that could not build a live source.
var ErrSourceUnavailable = errors.New("event source unavailable")

// Source delivers the complete event set of one calendar year.
type Source interface {
	FetchEventsForYear(ctx context.Context, year int) ([]model.Event, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, year int) ([]model.Event, error)

func (f SourceFunc) FetchEventsForYear(ctx context.Context, year int) ([]model.Event, error) {
	return f(ctx, year)
}

// NullSource is the stand-in used when no live source is configured. It
// succeeds with no events, so years are marked loaded and never retried.
type NullSource struct{}

func (NullSource) FetchEventsForYear(context.Context, int) ([]model.Event, error) {
	return nil, nil
}

// RelevantYears lists the years the frame of view around ref needs, in
// ascending order.
func RelevantYears(view model.View, ref time.Time) []int {
	y := ref.Year()
	years := []int{y}
	switch view {
	case model.ViewYear:
		years = []int{y - 1, y, y + 1}
	case model.ViewMonth:
		switch ref.Month() {
		case time.January:
			years = []int{y - 1, y}
		case time.December:
			years = []int{y, y + 1}
		}
	}
	return years
}

// YearSet is the set of years that loaded successfully. It only grows.
type YearSet map[int]struct{}

func (s YearSet) Has(y int) bool {
	_, ok := s[y]
	return ok
}

func (s YearSet) Add(y int) {
	s[y] = struct{}{}
}

// Sorted returns the members in ascending order.
func (s YearSet) Sorted() []int {
	out := make([]int, 0, len(s))
	for y := range s {
		out = append(out, y)
	}
	slices.Sort(out)
	return out
}

// Missing returns the members of years not in s, keeping their order.
func (s YearSet) Missing(years []int) []int {
	var out []int
	for _, y := range years {
		if !s.Has(y) {
			out = append(out, y)
		}
	}
	return out
}

// Merge appends the incoming events whose IDs are not already present.
// Existing events keep their position; duplicates inside incoming collapse
// to their first occurrence. Merge is idempotent, and merging A then B
// yields the same ID set as B then A.
func Merge(existing, incoming []model.Event) []model.Event {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]model.Event, 0, len(existing)+len(incoming))
	for _, e := range existing {
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	for _, e := range incoming {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}

// Outcome is the result of fetching one year.
type Outcome struct {
	Year   int
	Events []model.Event
	Err    error
}

// Loader fetches years from a Source.
type Loader struct {
	source Source
	// Timeout bounds each year fetch; zero means no extra bound.
	Timeout time.Duration
}

// New wraps source; a nil source becomes NullSource.
func New(source Source) *Loader {
	if source == nil {
		source = NullSource{}
	}
	return &Loader{source: source}
}

// Fetch requests every year concurrently and returns one Outcome per year
// in the order given. Completion order does not matter to callers.
func (l *Loader) Fetch(ctx context.Context, years []int) []Outcome {
	out := make([]Outcome, len(years))
	var wg sync.WaitGroup
	for i, y := range years {
		wg.Add(1)
		go func(i, year int) {
			defer wg.Done()
			out[i] = l.fetchOne(ctx, year)
		}(i, y)
	}
	wg.Wait()
	return out
}

func (l *Loader) fetchOne(ctx context.Context, year int) (o Outcome) {
	o.Year = year
	defer func() {
		if r := recover(); r != nil {
			o.Events, o.Err = nil, fmt.Errorf("fetch year %d: source panicked: %v", year, r)
		}
	}()

	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	appLog.Info("loader: fetching year", "year", year)
	events, err := l.source.FetchEventsForYear(ctx, year)
	if err != nil {
		appLog.Error("loader: year fetch failed", err, "year", year)
		return Outcome{Year: year, Err: fmt.Errorf("fetch year %d: %w", year, err)}
	}
	appLog.Info("loader: year fetched", "year", year, "event_count", len(events))
	return Outcome{Year: year, Events: events}
}

// Apply merges successful outcomes into events and marks their years in
// loaded. Failed years are left unmarked so a later pass retries them.
func Apply(loaded YearSet, events []model.Event, outcomes []Outcome) []model.Event {
	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		loaded.Add(o.Year)
		events = Merge(events, o.Events)
	}
	return events
}
