// Package caldav serves calendar years from a CalDAV collection.
package caldav

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"

	"campuscal/internal/category"
	appLog "campuscal/internal/log"
	"campuscal/internal/model"
	"campuscal/internal/timeparse"
)

// Config locates the collection.
type Config struct {
	Endpoint string
	Username string
	Password string
	// CalendarPath is the collection to query. Empty means the first
	// calendar found under the user's home set.
	CalendarPath string
	Timeout      time.Duration
}

// Source queries one year of VEVENTs per request.
type Source struct {
	client *caldav.Client
	loc    *time.Location

	mu   sync.Mutex
	path string
}

// New connects lazily: no request is made until the first fetch.
func New(cfg Config, loc *time.Location) (*Source, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("caldav: endpoint is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if loc == nil {
		loc = time.Local
	}

	var transport http.RoundTripper = http.DefaultTransport
	if cfg.Username != "" {
		transport = &basicAuthTransport{username: cfg.Username, password: cfg.Password}
	}
	client, err := caldav.NewClient(&http.Client{Transport: transport, Timeout: cfg.Timeout}, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("caldav: connect: %w", err)
	}
	return &Source{client: client, loc: loc, path: cfg.CalendarPath}, nil
}

type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

// FetchEventsForYear implements loader.Source.
func (s *Source) FetchEventsForYear(ctx context.Context, year int) ([]model.Event, error) {
	path, err := s.calendarPath(ctx)
	if err != nil {
		return nil, err
	}

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, s.loc)
	to := from.AddDate(1, 0, 0)
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     "VCALENDAR",
			AllProps: true,
			Comps: []caldav.CalendarCompRequest{{
				Name:     "VEVENT",
				AllProps: true,
			}},
		},
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{{
				Name:  "VEVENT",
				Start: from.UTC(),
				End:   to.UTC(),
			}},
		},
	}

	objects, err := s.client.QueryCalendar(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("caldav: query %d: %w", year, err)
	}

	var events []model.Event
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		events = append(events, EventsFromCalendar(obj.Data, s.loc)...)
	}
	appLog.Info("caldav year loaded", "year", year, "objects", len(objects), "events", len(events))
	return events, nil
}

// calendarPath resolves and remembers the collection path.
func (s *Source) calendarPath(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path != "" {
		return s.path, nil
	}

	principal, err := s.client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("caldav: find principal: %w", err)
	}
	home, err := s.client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("caldav: find home set: %w", err)
	}
	cals, err := s.client.FindCalendars(ctx, home)
	if err != nil {
		return "", fmt.Errorf("caldav: find calendars: %w", err)
	}
	if len(cals) == 0 {
		return "", errors.New("caldav: no calendars in home set")
	}
	s.path = cals[0].Path
	appLog.Info("caldav calendar discovered", "path", s.path, "name", cals[0].Name)
	return s.path, nil
}

// EventsFromCalendar converts every VEVENT of cal. Events without a UID or
// a readable DTSTART are skipped.
func EventsFromCalendar(cal *ical.Calendar, loc *time.Location) []model.Event {
	var out []model.Event
	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		ev, err := eventFromComponent(comp, loc)
		if err != nil {
			appLog.Debug("caldav vevent skipped", "err", err)
			continue
		}
		out = append(out, ev)
	}
	return out
}

func eventFromComponent(comp *ical.Component, loc *time.Location) (model.Event, error) {
	var ev model.Event

	ev.ID = text(comp, ical.PropUID)
	if ev.ID == "" {
		return ev, errors.New("missing UID")
	}
	if rid := text(comp, ical.PropRecurrenceID); rid != "" {
		ev.ID += "@" + rid
	}
	ev.Title = text(comp, ical.PropSummary)
	ev.Description = text(comp, ical.PropDescription)
	ev.Location = text(comp, ical.PropLocation)
	ev.Category = category.DefaultKey
	for _, c := range strings.Split(text(comp, ical.PropCategories), ",") {
		if key, ok := category.Match(c); ok {
			ev.Category = key
			break
		}
	}

	start := comp.Props.Get(ical.PropDateTimeStart)
	if start == nil {
		return ev, errors.New("missing DTSTART")
	}
	if start.Params.Get(ical.ParamValue) == string(ical.ValueDate) || !strings.Contains(start.Value, "T") {
		d, err := time.ParseInLocation("20060102", start.Value, loc)
		if err != nil {
			return ev, err
		}
		ev.Date = timeparse.DateKey(d)
		return ev, nil
	}

	st, err := start.DateTime(loc)
	if err != nil {
		return ev, err
	}
	ev.Start = timeparse.FormatInstant(st.In(loc))
	if end := comp.Props.Get(ical.PropDateTimeEnd); end != nil {
		if et, err := end.DateTime(loc); err == nil && et.After(st) {
			ev.End = timeparse.FormatInstant(et.In(loc))
		}
	}
	return ev, nil
}

func text(comp *ical.Component, name string) string {
	if p := comp.Props.Get(name); p != nil {
		return strings.TrimSpace(p.Value)
	}
	return ""
}
