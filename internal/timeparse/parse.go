// Package timeparse normalizes the date/time strings carried by events into
// local-time instants.
//
// Every form is parsed with time.ParseInLocation against time.Local, so a
// date-only string always means local midnight and is never read as UTC
// midnight shifted into the local zone.
package timeparse

import (
	"errors"
	"strings"
	"time"

	appLog "campuscal/internal/log"
)

// ErrUnparseable is returned when no recognized form matches the input.
var ErrUnparseable = errors.New("timeparse: unparseable date")

const (
	LayoutInstant        = "2006-01-02T15:04:05"
	LayoutInstantMinutes = "2006-01-02T15:04"
	LayoutDate           = "2006-01-02"
)

// fallbackLayouts are tried in order once the ISO forms have failed.
// Month-first wins over day-first for ambiguous inputs such as 03/04/2024.
var fallbackLayouts = []string{
	LayoutDate,
	"01/02/2006",
	"02/01/2006",
}

// Parse returns the local instant described by s, or ErrUnparseable.
func Parse(s string) (time.Time, error) {
	return ParseIn(s, time.Local)
}

// ParseIn is Parse with an explicit location standing in for the host clock.
func ParseIn(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	v := strings.TrimSpace(s)
	if v == "" {
		return time.Time{}, ErrUnparseable
	}

	if t, err := time.ParseInLocation(LayoutInstant, v, loc); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(LayoutInstantMinutes, v, loc); err == nil {
		return t, nil
	}

	// Date with a time marker we could not read: keep the date part only.
	if i := strings.IndexByte(v, 'T'); i > 0 {
		if t, err := time.ParseInLocation(LayoutDate, v[:i], loc); err == nil {
			return t, nil
		}
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}

	appLog.Debug("timeparse: unparseable date", "value", s)
	return time.Time{}, ErrUnparseable
}

// Valid reports whether s parses to an instant.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// StartOfDay returns local midnight of t's calendar day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DateKey formats t as YYYY-MM-DD; used as the grouping key by date.
func DateKey(t time.Time) string {
	return t.Format(LayoutDate)
}

// FormatInstant renders t in the canonical seconds form accepted by Parse.
func FormatInstant(t time.Time) string {
	return t.Format(LayoutInstant)
}
