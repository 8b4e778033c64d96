package ics

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	appLog "campuscal/internal/log"
	"campuscal/internal/model"
	"campuscal/internal/timeparse"
)

// YearPlaceholder is replaced by the requested year in a feed URL template.
const YearPlaceholder = "{year}"

// YearSource serves one year of events from an ICS feed. With a URL
// template ("https://host/events-{year}.ics") each year is its own feed;
// without the placeholder the single feed is fetched and filtered by year.
type YearSource struct {
	fetcher  *Fetcher
	template string
	loc      *time.Location
}

// NewYearSource builds a source over fetcher. loc is the display location;
// nil means time.Local.
func NewYearSource(fetcher *Fetcher, urlTemplate string, loc *time.Location) *YearSource {
	if loc == nil {
		loc = time.Local
	}
	return &YearSource{fetcher: fetcher, template: urlTemplate, loc: loc}
}

// FetchEventsForYear implements loader.Source.
func (s *YearSource) FetchEventsForYear(ctx context.Context, year int) ([]model.Event, error) {
	y := strconv.Itoa(year)
	feed := Feed{ID: "ics-" + y, URL: strings.ReplaceAll(s.template, YearPlaceholder, y)}

	res, err := s.fetcher.Fetch(ctx, feed)
	if err != nil {
		return nil, err
	}
	events, err := ParseEvents(res.Body, s.loc)
	if err != nil {
		return nil, fmt.Errorf("ics: parse %s: %w", feed.ID, err)
	}
	if !strings.Contains(s.template, YearPlaceholder) {
		events = inYear(events, year, s.loc)
	}
	appLog.Info("ics year loaded", "year", year, "events", len(events), "from_cache", res.FromCache)
	return events, nil
}

func inYear(events []model.Event, year int, loc *time.Location) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		t, err := timeparse.ParseIn(e.StartRaw(), loc)
		if err == nil && t.Year() == year {
			out = append(out, e)
		}
	}
	return out
}
