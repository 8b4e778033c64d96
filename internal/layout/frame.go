// Package layout turns resolved events into positioned blocks for the day,
// week, month and year views. All functions are pure: they read the events
// and options they are given and allocate fresh results.
package layout

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"campuscal/internal/timeparse"
)

// Options carries the presentation constants shared by every view.
type Options struct {
	// WindowStartHour / WindowEndHour bound the visible hours of the day and
	// week columns, e.g. 7 and 20.
	WindowStartHour int
	WindowEndHour   int

	// MinHeight is the smallest displayed block height, in percent.
	MinHeight float64

	FirstWeekday time.Weekday

	// MonthCellCap is how many chips a month cell shows before "+N more".
	MonthCellCap int
	// YearNotableCap is how many titles a year-view month shows.
	YearNotableCap int

	// Now drives "today" flags and the now indicator.
	Now time.Time
}

// DefaultOptions mirrors the shipped configuration.
func DefaultOptions() Options {
	return Options{
		WindowStartHour: 7,
		WindowEndHour:   20,
		MinHeight:       5,
		FirstWeekday:    time.Monday,
		MonthCellCap:    3,
		YearNotableCap:  2,
		Now:             time.Now(),
	}
}

func (o Options) normalized() Options {
	if o.WindowStartHour < 0 || o.WindowStartHour > 23 {
		o.WindowStartHour = 7
	}
	if o.WindowEndHour <= o.WindowStartHour || o.WindowEndHour > 24 {
		o.WindowEndHour = 20
	}
	if o.MinHeight < 0 {
		o.MinHeight = 0
	}
	if o.MonthCellCap <= 0 {
		o.MonthCellCap = 3
	}
	if o.YearNotableCap <= 0 {
		o.YearNotableCap = 2
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	return o
}

// windowMinutes is the length of the visible hour window.
func (o Options) windowMinutes() float64 {
	return float64(o.WindowEndHour-o.WindowStartHour) * 60
}

// WeekStart returns midnight of the first day of t's week.
func WeekStart(t time.Time, first time.Weekday) time.Time {
	d := timeparse.StartOfDay(t)
	back := (int(d.Weekday()) - int(first) + 7) % 7
	return d.AddDate(0, 0, -back)
}

// MonthStart returns midnight of the first of t's month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// YearStart returns midnight of January 1 of t's year.
func YearStart(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}

// MonthGrid returns the first and last rendered cell of t's month: the
// week-aligned days on or before the 1st and on or after the last day.
func MonthGrid(t time.Time, first time.Weekday) (start, last time.Time) {
	ms := MonthStart(t)
	me := ms.AddDate(0, 1, -1)
	start = WeekStart(ms, first)
	last = WeekStart(me, first).AddDate(0, 0, 6)
	return start, last
}

// Weekdays lists the column order for a week starting on first.
func Weekdays(first time.Weekday) []time.Weekday {
	out := make([]time.Weekday, 7)
	for i := range out {
		out[i] = time.Weekday((int(first) + i) % 7)
	}
	return out
}

// days enumerates n consecutive local midnights from start.
func days(start time.Time, n int) ([]time.Time, error) {
	return recur(rrule.DAILY, timeparse.StartOfDay(start), n)
}

// monthStarts enumerates the twelve month starts of t's year.
func monthStarts(t time.Time) ([]time.Time, error) {
	return recur(rrule.MONTHLY, YearStart(t), 12)
}

// recur expands a COUNT-bounded rule from start. Occurrences keep start's
// wall clock, so local midnights stay midnights across DST changes.
func recur(freq rrule.Frequency, start time.Time, n int) ([]time.Time, error) {
	if n <= 0 {
		return nil, nil
	}
	r, err := rrule.NewRRule(rrule.ROption{Freq: freq, Dtstart: start, Count: n})
	if err != nil {
		return nil, fmt.Errorf("frame rule from %s: %w", start.Format(time.DateOnly), err)
	}
	out := r.All()
	if len(out) != n {
		return nil, fmt.Errorf("frame rule from %s: got %d occurrences, want %d", start.Format(time.DateOnly), len(out), n)
	}
	return out, nil
}

func overflowLabel(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("+%d more", n)
}
