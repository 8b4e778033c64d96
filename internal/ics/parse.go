package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"campuscal/internal/category"
	appLog "campuscal/internal/log"
	"campuscal/internal/model"
	"campuscal/internal/timeparse"
)

// ParseEvents decodes an ICS payload into calendar events. Instants are
// converted to loc and stored in the canonical local form; all-day events
// keep only their date. A VEVENT that cannot be read is logged and skipped.
//
// Recurrence rules are not expanded: a recurring VEVENT contributes its
// first occurrence only.
func ParseEvents(body []byte, loc *time.Location) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	events := make([]model.Event, 0)
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(ve, loc)
		if err != nil {
			appLog.Error("ics vevent skipped", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (model.Event, error) {
	var out model.Event

	uid := propValue(ve, ical.ComponentPropertyUniqueId)
	if uid == "" {
		return out, errors.New("missing UID")
	}
	out.ID = uid
	// Overridden instances share the UID of their series.
	if rid := propValue(ve, ical.ComponentProperty("RECURRENCE-ID")); rid != "" {
		out.ID = uid + "@" + rid
	}

	out.Title = propValue(ve, ical.ComponentPropertySummary)
	out.Description = propValue(ve, ical.ComponentPropertyDescription)
	out.Location = propValue(ve, ical.ComponentPropertyLocation)
	out.Category = categoryOf(propValue(ve, ical.ComponentPropertyCategories))

	dtstart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtstart == nil || dtstart.Value == "" {
		return out, errors.New("missing DTSTART")
	}

	if isDateValue(dtstart) {
		d, err := time.ParseInLocation("20060102", strings.TrimSpace(dtstart.Value), loc)
		if err != nil {
			return out, err
		}
		out.Date = timeparse.DateKey(d)
		return out, nil
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, err
	}
	out.Start = timeparse.FormatInstant(start.In(loc))
	if end, err := ve.GetEndAt(); err == nil && end.After(start) {
		out.End = timeparse.FormatInstant(end.In(loc))
	}
	if propValue(ve, ical.ComponentPropertyRrule) != "" {
		appLog.Debug("ics recurring event kept as single occurrence", "uid", uid)
	}
	return out, nil
}

func propValue(ve *ical.VEvent, p ical.ComponentProperty) string {
	if prop := ve.GetProperty(p); prop != nil {
		return strings.TrimSpace(prop.Value)
	}
	return ""
}

// isDateValue reports an all-day DTSTART: VALUE=DATE or a bare YYYYMMDD.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// categoryOf picks the first CATEGORIES entry naming a known category.
func categoryOf(raw string) string {
	for _, part := range strings.Split(raw, ",") {
		if key, ok := category.Match(part); ok {
			return key
		}
	}
	return category.DefaultKey
}
