package model

import (
	"fmt"
	"strings"
	"time"

	"campuscal/internal/category"
	"campuscal/internal/timeparse"
)

// DefaultDuration applies wherever a layout needs an end and the event has
// none (or an unusable one).
const DefaultDuration = time.Hour

// Event is an event as delivered by a source or created locally. Dates stay
// in their string form; they are resolved to instants at render time so a
// malformed value only hides the event instead of failing the load.
type Event struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	// Date is the legacy date-only (or full instant) field. Start wins when
	// both are set.
	Date  string `json:"date,omitempty"`
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`

	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`

	// Local marks events created in this session rather than fetched.
	Local bool `json:"local,omitempty"`
}

// StartRaw is the string the start instant is read from.
func (e Event) StartRaw() string {
	if strings.TrimSpace(e.Start) != "" {
		return e.Start
	}
	return e.Date
}

// Timed is an Event whose start has been resolved. End is always after
// Start; a missing end is Start + DefaultDuration.
type Timed struct {
	Event
	Start    time.Time           `json:"start_at"`
	End      time.Time           `json:"end_at"`
	Category category.Descriptor `json:"style"`
	// EndDefaulted reports that End was derived rather than read.
	EndDefaulted bool `json:"end_defaulted,omitempty"`
}

// Duration of the resolved interval.
func (t Timed) Duration() time.Duration {
	return t.End.Sub(t.Start)
}

// Resolve parses e in the host location. ok is false when the event has no
// parseable start and must be left out of every view.
func Resolve(e Event) (Timed, bool) {
	return ResolveIn(e, time.Local)
}

// ResolveIn is Resolve with an explicit location.
func ResolveIn(e Event, loc *time.Location) (Timed, bool) {
	start, err := timeparse.ParseIn(e.StartRaw(), loc)
	if err != nil {
		return Timed{}, false
	}

	out := Timed{
		Event:    e,
		Start:    start,
		Category: category.Lookup(e.Category),
	}

	end, err := timeparse.ParseIn(e.End, loc)
	if strings.TrimSpace(e.End) == "" || err != nil || !end.After(start) {
		end = start.Add(DefaultDuration)
		out.EndDefaulted = true
	}
	out.End = end
	return out, true
}

// ResolveAll resolves events in order, dropping unparseable ones. The input
// slice is not modified.
func ResolveAll(events []Event, loc *time.Location) []Timed {
	out := make([]Timed, 0, len(events))
	for _, e := range events {
		if t, ok := ResolveIn(e, loc); ok {
			out = append(out, t)
		}
	}
	return out
}

// View is one of the four calendar presentations.
type View string

const (
	ViewDay   View = "day"
	ViewWeek  View = "week"
	ViewMonth View = "month"
	ViewYear  View = "year"
)

// Views lists every view in zoom order.
var Views = []View{ViewDay, ViewWeek, ViewMonth, ViewYear}

// ParseView validates a view name.
func ParseView(s string) (View, error) {
	v := View(strings.ToLower(strings.TrimSpace(s)))
	switch v {
	case ViewDay, ViewWeek, ViewMonth, ViewYear:
		return v, nil
	}
	return "", fmt.Errorf("unknown view %q", s)
}
