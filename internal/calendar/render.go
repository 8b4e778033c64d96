package calendar

import (
	"fmt"
	"time"

	"campuscal/internal/aggregate"
	"campuscal/internal/category"
	"campuscal/internal/layout"
	"campuscal/internal/model"
)

// Tree is the toolkit-neutral render output for one state. Exactly one of
// Day, Week, Month and Year is set, matching View.
type Tree struct {
	View      model.View   `json:"view"`
	Views     []model.View `json:"views"`
	Title     string       `json:"title"`
	Reference time.Time    `json:"reference"`
	Selected  time.Time    `json:"selected"`

	Day   *layout.DayColumn   `json:"day,omitempty"`
	Week  *layout.WeekLayout  `json:"week,omitempty"`
	Month *layout.MonthLayout `json:"month,omitempty"`
	Year  *layout.YearLayout  `json:"year,omitempty"`

	// Hours labels the rows of the day and week views.
	Hours []int `json:"hours,omitempty"`

	// Agenda lists the selected day's events in start order.
	Agenda []model.Timed `json:"agenda"`

	Categories  []category.Descriptor `json:"categories"`
	LoadedYears []int                 `json:"loaded_years"`
	Loading     bool                  `json:"loading"`
	Warnings    []Warning             `json:"warnings"`
}

// Render lays out events for st. It is a pure function of its arguments.
func Render(st State, events []model.Event, opts layout.Options) Tree {
	t := Tree{
		View:        st.View,
		Views:       model.Views,
		Title:       Title(st, opts.FirstWeekday),
		Reference:   st.Reference,
		Selected:    st.Selected,
		Agenda:      aggregate.Agenda(events, st.Selected),
		Categories:  category.All(),
		LoadedYears: st.LoadedYears.Sorted(),
		Warnings:    []Warning{},
	}
	if t.Agenda == nil {
		t.Agenda = []model.Timed{}
	}

	switch st.View {
	case model.ViewDay:
		d := layout.Day(events, st.Reference, opts)
		t.Day = &d
		t.Hours = layout.Hours(opts)
	case model.ViewWeek:
		w := layout.Week(events, st.Reference, opts)
		t.Week = &w
		t.Hours = layout.Hours(opts)
	case model.ViewYear:
		y := layout.Year(events, st.Reference, opts)
		t.Year = &y
	default:
		m := layout.Month(events, st.Reference, opts)
		t.View = model.ViewMonth
		t.Month = &m
	}
	return t
}

// Title is the heading of the frame.
func Title(st State, first time.Weekday) string {
	ref := st.Reference
	switch st.View {
	case model.ViewDay:
		return ref.Format("Monday, January 2, 2006")
	case model.ViewWeek:
		start := layout.WeekStart(ref, first)
		end := start.AddDate(0, 0, 6)
		if start.Year() != end.Year() {
			return fmt.Sprintf("%s - %s", start.Format("Jan 2, 2006"), end.Format("Jan 2, 2006"))
		}
		return fmt.Sprintf("%s - %s", start.Format("Jan 2"), end.Format("Jan 2, 2006"))
	case model.ViewYear:
		return ref.Format("2006")
	default:
		return ref.Format("January 2006")
	}
}
