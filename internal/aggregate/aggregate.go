// Package aggregate groups and orders resolved events. Every function
// returns fresh slices and leaves its input untouched.
package aggregate

import (
	"slices"
	"time"

	"campuscal/internal/model"
	"campuscal/internal/timeparse"
)

// MonthKey identifies a calendar month.
type MonthKey struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month t falls in.
func MonthOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// SortByStart returns a copy of events ordered by start. Equal starts keep
// their input order.
func SortByStart(events []model.Timed) []model.Timed {
	out := slices.Clone(events)
	slices.SortStableFunc(out, func(a, b model.Timed) int {
		return a.Start.Compare(b.Start)
	})
	return out
}

// OnDate returns the events starting on day, in start order.
func OnDate(events []model.Timed, day time.Time) []model.Timed {
	var out []model.Timed
	for _, e := range events {
		if timeparse.SameDay(e.Start, day) {
			out = append(out, e)
		}
	}
	return SortByStart(out)
}

// Agenda is OnDate over raw events: unparseable events are dropped.
func Agenda(events []model.Event, day time.Time) []model.Timed {
	return OnDate(model.ResolveAll(events, day.Location()), day)
}

// ByDate groups events by the YYYY-MM-DD of their start. Within a group the
// input order is kept.
func ByDate(events []model.Timed) map[string][]model.Timed {
	out := make(map[string][]model.Timed)
	for _, e := range events {
		k := timeparse.DateKey(e.Start)
		out[k] = append(out[k], e)
	}
	return out
}

// ByMonth groups events by the month of their start.
func ByMonth(events []model.Timed) map[MonthKey][]model.Timed {
	out := make(map[MonthKey][]model.Timed)
	for _, e := range events {
		k := MonthOf(e.Start)
		out[k] = append(out[k], e)
	}
	return out
}

// InRange keeps events starting in [from, to).
func InRange(events []model.Timed, from, to time.Time) []model.Timed {
	var out []model.Timed
	for _, e := range events {
		if !e.Start.Before(from) && e.Start.Before(to) {
			out = append(out, e)
		}
	}
	return out
}

// CountByCategory tallies category keys.
func CountByCategory(events []model.Timed) map[string]int {
	out := make(map[string]int)
	for _, e := range events {
		out[e.Category.Key]++
	}
	return out
}
