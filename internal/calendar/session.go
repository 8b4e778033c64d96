package calendar

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"campuscal/internal/layout"
	"campuscal/internal/loader"
	appLog "campuscal/internal/log"
	"campuscal/internal/model"
)

// Warning kinds.
const (
	WarnYearFetch         = "year-fetch"
	WarnSourceUnavailable = "source-unavailable"
)

// Warning is a transient, dismissible notice for the user.
type Warning struct {
	ID      string    `json:"id"`
	Kind    string    `json:"kind"`
	Year    int       `json:"year,omitempty"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Options configures a Session.
type Options struct {
	Now    func() time.Time
	Layout layout.Options

	// Source is the live event source. Nil selects loader.NullSource.
	Source loader.Source
	// SourceErr, when set, records why no live source could be built; the
	// session runs in degraded mode and says so in a warning.
	SourceErr    error
	FetchTimeout time.Duration

	// Seed events are added as local events and stay visible whatever
	// happens to remote fetches.
	Seed []model.Event
}

// Session is one user's calendar: the state machine plus the year loader.
// The state is only touched under mu; fetches run without it, so navigation
// stays responsive while years load.
type Session struct {
	mu       sync.Mutex
	machine  *Machine
	loader   *loader.Loader
	layout   layout.Options
	now      func() time.Time
	inflight map[int]bool
	warnings []Warning
}

// NewSession builds a session framed on today in month view.
func NewSession(opts Options) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Session{
		machine:  NewMachine(opts.Now, opts.Layout.FirstWeekday),
		loader:   loader.New(opts.Source),
		layout:   opts.Layout,
		now:      opts.Now,
		inflight: make(map[int]bool),
	}
	s.loader.Timeout = opts.FetchTimeout
	for _, e := range opts.Seed {
		e.Local = true
		s.machine.addLocal(e)
	}
	if opts.SourceErr != nil {
		appLog.Error("calendar: running without remote events", opts.SourceErr)
		s.warn(Warning{
			ID:      WarnSourceUnavailable,
			Kind:    WarnSourceUnavailable,
			Message: "Remote events could not be loaded; showing local events only.",
		})
	}
	return s
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.State()
}

// Sync fetches the years the current frame needs and has not loaded yet.
// When every relevant year is loaded (or already in flight) it returns at
// once without touching the source.
func (s *Session) Sync(ctx context.Context) []loader.Outcome {
	s.mu.Lock()
	st := s.machine.state
	var fetch []int
	for _, y := range st.LoadedYears.Missing(loader.RelevantYears(st.View, st.Reference)) {
		if !s.inflight[y] {
			s.inflight[y] = true
			fetch = append(fetch, y)
		}
	}
	s.mu.Unlock()

	if len(fetch) == 0 {
		return nil
	}

	outcomes := s.loader.Fetch(ctx, fetch)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range outcomes {
		delete(s.inflight, o.Year)
		id := yearWarningID(o.Year)
		if o.Err != nil {
			s.warn(Warning{
				ID:      id,
				Kind:    WarnYearFetch,
				Year:    o.Year,
				Message: fmt.Sprintf("Events for %d could not be loaded. They will be retried.", o.Year),
			})
			continue
		}
		s.dismiss(id)
	}
	s.machine.merge(outcomes)
	return outcomes
}

// Loading reports whether any year fetch is pending.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight) > 0
}

// Warnings returns the active warnings, oldest first.
func (s *Session) Warnings() []Warning {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.warnings)
}

// DismissWarning drops the warning with id. It reports whether one existed.
func (s *Session) DismissWarning(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dismiss(id)
}

func (s *Session) warn(w Warning) {
	w.At = s.now()
	s.dismiss(w.ID)
	s.warnings = append(s.warnings, w)
}

func (s *Session) dismiss(id string) bool {
	n := len(s.warnings)
	s.warnings = slices.DeleteFunc(s.warnings, func(w Warning) bool { return w.ID == id })
	return len(s.warnings) != n
}

func yearWarningID(year int) string {
	return WarnYearFetch + "-" + strconv.Itoa(year)
}

// AddLocalEvent validates the form input and adds the event to the session.
func (s *Session) AddLocalEvent(in model.LocalInput) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := model.NewLocalEvent(in, s.machine.state.Reference.Location())
	if err != nil {
		return model.Event{}, err
	}
	s.machine.addLocal(e)
	appLog.Info("calendar: local event added", "id", e.ID, "start", e.Start, "category", e.Category)
	return e, nil
}

// Action names a navigation operation.
type Action string

const (
	ActionNext   Action = "next"
	ActionPrev   Action = "prev"
	ActionToday  Action = "today"
	ActionView   Action = "view"
	ActionDay    Action = "day"
	ActionMonth  Action = "month"
	ActionReload Action = "reload"
)

// Command is a navigation request from a host surface.
type Command struct {
	Action Action `json:"action"`
	View   string `json:"view,omitempty"`
	// Date is the day for ActionDay (YYYY-MM-DD).
	Date string `json:"date,omitempty"`
	// Year/Month pick the month for ActionMonth; Year defaults to the
	// reference year.
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
}

// ErrBadCommand wraps rejected navigation input.
var ErrBadCommand = errors.New("invalid navigation command")

// Navigate applies cmd and then loads whatever years the new frame needs.
// applied is false when the transition was ignored by the view guard.
func (s *Session) Navigate(ctx context.Context, cmd Command) (applied bool, err error) {
	applied, err = s.apply(cmd)
	if err != nil {
		return false, err
	}
	s.Sync(ctx)
	return applied, nil
}

func (s *Session) apply(cmd Command) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.machine
	loc := m.state.Reference.Location()

	switch cmd.Action {
	case ActionNext:
		m.Next()
	case ActionPrev:
		m.Prev()
	case ActionToday:
		m.Today()
	case ActionReload:
	case ActionView:
		v, err := model.ParseView(cmd.View)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrBadCommand, err)
		}
		if !m.RequestView(v) {
			return false, nil
		}
		m.Apply()
	case ActionDay:
		d, err := dayOf(cmd.Date, loc)
		if err != nil {
			return false, fmt.Errorf("%w: date %q", ErrBadCommand, cmd.Date)
		}
		return m.SelectDay(d), nil
	case ActionMonth:
		if cmd.Month < 1 || cmd.Month > 12 {
			return false, fmt.Errorf("%w: month %d", ErrBadCommand, cmd.Month)
		}
		year := cmd.Year
		if year == 0 {
			year = m.state.Reference.Year()
		}
		return m.SelectMonth(year, time.Month(cmd.Month)), nil
	default:
		return false, fmt.Errorf("%w: action %q", ErrBadCommand, cmd.Action)
	}
	return true, nil
}

// Render lays out the current state.
func (s *Session) Render() Tree {
	s.mu.Lock()
	st := s.machine.State()
	loading := len(s.inflight) > 0
	warnings := slices.Clone(s.warnings)
	s.mu.Unlock()

	opts := s.layout
	opts.Now = s.now()
	t := Render(st, st.Events(), opts)
	t.Loading = loading
	t.Warnings = warnings
	return t
}
