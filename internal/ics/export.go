package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"campuscal/internal/aggregate"
	"campuscal/internal/model"
)

const productID = "-//campuscal//Academic Calendar//EN"

// Encode renders events as a VCALENDAR in start order. Events without a
// readable start are left out, like they are from every view. Date-only
// events become all-day VEVENTs.
func Encode(events []model.Event, loc *time.Location, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, t := range aggregate.SortByStart(model.ResolveAll(events, loc)) {
		ve := cal.AddEvent(t.ID)
		ve.SetDtStampTime(stamp.UTC())
		if t.Title != "" {
			ve.SetSummary(t.Title)
		}
		if t.Description != "" {
			ve.SetDescription(t.Description)
		}
		if t.Location != "" {
			ve.SetLocation(t.Location)
		}
		ve.SetProperty(ical.ComponentPropertyCategories, t.Category.Name)

		if allDay(t.Event) {
			y, m, d := t.Start.Date()
			day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
			ve.SetAllDayStartAt(day)
			ve.SetAllDayEndAt(day.AddDate(0, 0, 1))
			continue
		}
		ve.SetStartAt(t.Start)
		ve.SetEndAt(t.End)
	}
	return cal.Serialize()
}

func allDay(e model.Event) bool {
	return strings.TrimSpace(e.Start) == "" && len(strings.TrimSpace(e.Date)) == len("2006-01-02")
}
