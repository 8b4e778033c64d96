package calendar

import (
	"time"

	"campuscal/internal/model"
	"campuscal/internal/timeparse"
)

// SampleEvents is a small demo set placed around now's month, one per
// common category. IDs are stable so re-seeding never duplicates.
func SampleEvents(now time.Time) []model.Event {
	y, m, _ := now.Date()
	loc := now.Location()
	at := func(day, hour, minute int) string {
		return timeparse.FormatInstant(time.Date(y, m, day, hour, minute, 0, 0, loc))
	}
	date := func(day int) string {
		return timeparse.DateKey(time.Date(y, m, day, 0, 0, 0, 0, loc))
	}

	return []model.Event{
		{ID: "sample-orientation", Title: "Orientation week kickoff", Start: at(2, 9, 0), End: at(2, 11, 0), Category: "academic", Location: "Main Hall"},
		{ID: "sample-seminar", Title: "Research seminar", Start: at(9, 14, 0), End: at(9, 15, 30), Category: "seminar", Location: "Room 204"},
		{ID: "sample-faculty", Title: "Faculty meeting", Start: at(12, 10, 0), Category: "meeting"},
		{ID: "sample-deadline", Title: "Course registration closes", Date: date(15), Category: "deadline"},
		{ID: "sample-midterm", Title: "Midterm examinations", Start: at(20, 8, 30), End: at(20, 11, 30), Category: "exam"},
		{ID: "sample-concert", Title: "Spring concert", Start: at(24, 19, 0), End: at(24, 21, 0), Category: "cultural"},
		{ID: "sample-holiday", Title: "Campus holiday", Date: date(28), Category: "holiday"},
	}
}
