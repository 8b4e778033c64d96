package layout

import (
	"time"

	"campuscal/internal/aggregate"
	appLog "campuscal/internal/log"
	"campuscal/internal/model"
	"campuscal/internal/timeparse"
)

// MonthCell is one day of the month grid.
type MonthCell struct {
	Date    time.Time `json:"date"`
	Key     string    `json:"key"`
	InMonth bool      `json:"in_month"`
	IsToday bool      `json:"is_today"`

	// Events holds at most MonthCellCap chips, in start order.
	Events        []model.Timed `json:"events"`
	Total         int           `json:"total"`
	Overflow      int           `json:"overflow"`
	OverflowLabel string        `json:"overflow_label,omitempty"`
}

// MonthLayout is a whole number of weeks covering the framed month.
type MonthLayout struct {
	Year      int            `json:"year"`
	Month     time.Month     `json:"month"`
	GridStart time.Time      `json:"grid_start"`
	GridEnd   time.Time      `json:"grid_end"`
	Weekdays  []time.Weekday `json:"weekdays"`
	Weeks     [][]MonthCell  `json:"weeks"`
}

// Month lays out the month containing ref. Cells of adjacent months are
// flagged InMonth=false but still carry their events.
func Month(events []model.Event, ref time.Time, opts Options) MonthLayout {
	opts = opts.normalized()
	start, last := MonthGrid(ref, opts.FirstWeekday)
	n := int(last.Sub(start).Hours()/24+0.5) + 1

	resolved := aggregate.InRange(model.ResolveAll(events, ref.Location()), start, last.AddDate(0, 0, 1))
	byDate := aggregate.ByDate(resolved)

	out := MonthLayout{
		Year:      ref.Year(),
		Month:     ref.Month(),
		GridStart: start,
		GridEnd:   last,
		Weekdays:  Weekdays(opts.FirstWeekday),
	}

	dates, err := days(start, n)
	if err != nil {
		appLog.Error("layout: month frame", err, "start", start)
		return out
	}
	var week []MonthCell
	for _, d := range dates {
		key := timeparse.DateKey(d)
		dayEvents := aggregate.SortByStart(byDate[key])

		cell := MonthCell{
			Date:    d,
			Key:     key,
			InMonth: d.Month() == ref.Month() && d.Year() == ref.Year(),
			IsToday: timeparse.SameDay(d, opts.Now),
			Total:   len(dayEvents),
			Events:  dayEvents,
		}
		if cell.Events == nil {
			cell.Events = []model.Timed{}
		}
		if cell.Total > opts.MonthCellCap {
			cell.Events = dayEvents[:opts.MonthCellCap]
			cell.Overflow = cell.Total - opts.MonthCellCap
			cell.OverflowLabel = overflowLabel(cell.Overflow)
		}

		week = append(week, cell)
		if len(week) == 7 {
			out.Weeks = append(out.Weeks, week)
			week = nil
		}
	}
	return out
}
