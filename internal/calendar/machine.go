package calendar

import (
	"time"

	"campuscal/internal/layout"
	"campuscal/internal/loader"
	"campuscal/internal/model"
	"campuscal/internal/timeparse"
)

type phase int

const (
	phaseIdle phase = iota
	phaseTransitioning
)

// Machine is the navigation/view state machine. A view switch is a two-step
// transition: RequestView moves the machine to transitioning, Apply commits
// the pending view and returns it to idle. Requests that arrive while a
// switch is pending are ignored.
type Machine struct {
	state        State
	phase        phase
	pending      model.View
	firstWeekday time.Weekday
	now          func() time.Time
}

// NewMachine starts in month view on today.
func NewMachine(now func() time.Time, firstWeekday time.Weekday) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{
		state:        NewState(now()),
		firstWeekday: firstWeekday,
		now:          now,
	}
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	return m.state.Clone()
}

// Transitioning reports whether a view switch is pending.
func (m *Machine) Transitioning() bool {
	return m.phase == phaseTransitioning
}

// RequestView starts a switch to v. It returns false, changing nothing,
// when a switch is already pending or v is already active.
func (m *Machine) RequestView(v model.View) bool {
	if m.phase == phaseTransitioning || v == m.state.View {
		return false
	}
	m.phase = phaseTransitioning
	m.pending = v
	return true
}

// Apply commits the pending view. The guard resets as soon as the view has
// changed.
func (m *Machine) Apply() bool {
	if m.phase != phaseTransitioning {
		return false
	}
	m.setView(m.pending)
	m.phase = phaseIdle
	return true
}

// SwitchView is RequestView followed by Apply.
func (m *Machine) SwitchView(v model.View) bool {
	return m.RequestView(v) && m.Apply()
}

// setView changes the active view. Entering month view pulls a selection
// that lies outside the reference month back to that month's first day.
// Entering day view frames the selected day, since in day view the two
// dates always coincide. Other switches leave both dates alone.
func (m *Machine) setView(v model.View) {
	m.state.View = v
	switch {
	case v == model.ViewMonth && !sameMonth(m.state.Selected, m.state.Reference):
		m.state.Selected = layout.MonthStart(m.state.Reference)
	case v == model.ViewDay:
		m.state.Reference = m.state.Selected
	}
}

// Next moves the frame one unit forward.
func (m *Machine) Next() { m.Step(1) }

// Prev moves the frame one unit back.
func (m *Machine) Prev() { m.Step(-1) }

// Step moves the frame by dir units of the active view.
func (m *Machine) Step(dir int) {
	ref := m.state.Reference
	switch m.state.View {
	case model.ViewDay:
		ref = ref.AddDate(0, 0, dir)
		m.state.Reference, m.state.Selected = ref, ref
	case model.ViewWeek:
		ref = ref.AddDate(0, 0, 7*dir)
		m.state.Reference = ref
		m.state.Selected = layout.WeekStart(ref, m.firstWeekday)
	case model.ViewMonth:
		ref = addMonths(ref, dir)
		m.state.Reference = ref
		m.state.Selected = layout.MonthStart(ref)
	case model.ViewYear:
		ref = addMonths(ref, 12*dir)
		m.state.Reference = ref
		m.state.Selected = layout.YearStart(ref)
	}
}

// Today frames the current instant, keeping the view.
func (m *Machine) Today() {
	now := m.now()
	m.state.Reference, m.state.Selected = now, now
}

// SelectDay focuses day. In month view a day of an adjacent month reframes
// to that month; in week view it drills down to the day view; in day view
// the frame follows the selection.
func (m *Machine) SelectDay(day time.Time) bool {
	switch m.state.View {
	case model.ViewWeek:
		if !m.RequestView(model.ViewDay) {
			return false
		}
		m.state.Reference, m.state.Selected = day, day
		m.Apply()
	case model.ViewDay:
		m.state.Reference, m.state.Selected = day, day
	case model.ViewMonth:
		m.state.Selected = day
		if !sameMonth(day, m.state.Reference) {
			m.state.Reference = day
		}
	default:
		m.state.Selected = day
	}
	return true
}

// SelectMonth drills down from the year view into month view of (year, month).
func (m *Machine) SelectMonth(year int, month time.Month) bool {
	loc := m.state.Reference.Location()
	target := time.Date(year, month, 1, 0, 0, 0, 0, loc)

	if m.state.View == model.ViewMonth {
		m.state.Reference = target
		m.setView(model.ViewMonth)
		return true
	}
	if !m.RequestView(model.ViewMonth) {
		return false
	}
	m.state.Reference = target
	m.Apply()
	return true
}

// merge folds loader outcomes into the state.
func (m *Machine) merge(outcomes []loader.Outcome) {
	m.state.Remote = loader.Apply(m.state.LoadedYears, m.state.Remote, outcomes)
}

func (m *Machine) addLocal(e model.Event) {
	m.state.Local = append(m.state.Local, e)
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// addMonths shifts t by n months, clamping the day to the target month's
// length (Jan 31 + 1 month is Feb 29 in a leap year).
func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	day := min(t.Day(), last)
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// dayOf parses a YYYY-MM-DD (or any accepted form) as a local day.
func dayOf(s string, loc *time.Location) (time.Time, error) {
	return timeparse.ParseIn(s, loc)
}
