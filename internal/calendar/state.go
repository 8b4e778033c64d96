// Package calendar owns the per-session calendar state: which date and view
// are framed, which years have been loaded and which events are known. It
// mediates every navigation and hands the merged events to the layout
// engines through Render.
package calendar

import (
	"maps"
	"slices"
	"time"

	"campuscal/internal/loader"
	"campuscal/internal/model"
)

// State is the authoritative calendar state of one session.
type State struct {
	Reference time.Time
	Selected  time.Time
	View      model.View

	// LoadedYears only grows within a session.
	LoadedYears loader.YearSet

	// Remote is the deduplicated union of every fetched year.
	Remote []model.Event
	// Local holds events created in this session (and sample events). They
	// are never deduplicated against fetched years.
	Local []model.Event
}

// NewState frames now in month view.
func NewState(now time.Time) State {
	return State{
		Reference:   now,
		Selected:    now,
		View:        model.ViewMonth,
		LoadedYears: loader.YearSet{},
	}
}

// Events is the working set handed to the layouts: remote then local.
func (s State) Events() []model.Event {
	out := make([]model.Event, 0, len(s.Remote)+len(s.Local))
	out = append(out, s.Remote...)
	return append(out, s.Local...)
}

// Clone returns a deep copy safe to read while the original keeps changing.
func (s State) Clone() State {
	c := s
	c.LoadedYears = maps.Clone(s.LoadedYears)
	if c.LoadedYears == nil {
		c.LoadedYears = loader.YearSet{}
	}
	c.Remote = slices.Clone(s.Remote)
	c.Local = slices.Clone(s.Local)
	return c
}
