package timeparse

import (
	"errors"
	"testing"
	"time"
)

func TestParseForms(t *testing.T) {
	loc := time.FixedZone("campus", -5*3600)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-10T09:15:30", time.Date(2024, 3, 10, 9, 15, 30, 0, loc)},
		{"2024-03-10T09:15", time.Date(2024, 3, 10, 9, 15, 0, 0, loc)},
		{"2024-03-10T09:15:30.000Z", time.Date(2024, 3, 10, 0, 0, 0, 0, loc)},
		{"2024-03-10T", time.Date(2024, 3, 10, 0, 0, 0, 0, loc)},
		{"2024-03-10", time.Date(2024, 3, 10, 0, 0, 0, 0, loc)},
		{"  2024-03-10  ", time.Date(2024, 3, 10, 0, 0, 0, 0, loc)},
		{"03/04/2024", time.Date(2024, 3, 4, 0, 0, 0, 0, loc)},
		{"25/12/2024", time.Date(2024, 12, 25, 0, 0, 0, 0, loc)},
	}

	for _, tt := range tests {
		got, err := ParseIn(tt.in, loc)
		if err != nil {
			t.Errorf("ParseIn(%q) error: %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) || got.Location() != loc {
			t.Errorf("ParseIn(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseUnparseable(t *testing.T) {
	for _, in := range []string{"", "not-a-date", "2024-02-30", "13/13/2024", "T09:00"} {
		if _, err := Parse(in); !errors.Is(err, ErrUnparseable) {
			t.Errorf("Parse(%q) err = %v, want ErrUnparseable", in, err)
		}
		if Valid(in) {
			t.Errorf("Valid(%q) = true", in)
		}
	}
}

// Every calendar day of a leap year must come back as local midnight of the
// same Y/M/D, whatever the host zone.
func TestDateOnlyHasNoDrift(t *testing.T) {
	zones := []*time.Location{
		time.UTC,
		time.FixedZone("east", 14*3600),
		time.FixedZone("west", -12*3600),
	}
	for _, loc := range zones {
		d := time.Date(2024, 1, 1, 0, 0, 0, 0, loc)
		for d.Year() == 2024 {
			key := d.Format(LayoutDate)
			got, err := ParseIn(key, loc)
			if err != nil {
				t.Fatalf("ParseIn(%q) in %s: %v", key, loc, err)
			}
			if got.Year() != d.Year() || got.Month() != d.Month() || got.Day() != d.Day() {
				t.Fatalf("ParseIn(%q) in %s drifted to %v", key, loc, got)
			}
			if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 {
				t.Fatalf("ParseIn(%q) in %s is not midnight: %v", key, loc, got)
			}
			d = d.AddDate(0, 0, 1)
		}
	}
}

func TestDayHelpers(t *testing.T) {
	a := time.Date(2024, 3, 10, 23, 59, 0, 0, time.Local)
	b := time.Date(2024, 3, 10, 0, 1, 0, 0, time.Local)
	if !SameDay(a, b) {
		t.Errorf("SameDay(%v, %v) = false", a, b)
	}
	if SameDay(a, b.AddDate(0, 0, 1)) {
		t.Errorf("SameDay across days = true")
	}
	if got := StartOfDay(a); !got.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.Local)) {
		t.Errorf("StartOfDay = %v", got)
	}
	if DateKey(a) != "2024-03-10" {
		t.Errorf("DateKey = %s", DateKey(a))
	}
	if FormatInstant(a) != "2024-03-10T23:59:00" {
		t.Errorf("FormatInstant = %s", FormatInstant(a))
	}
}
