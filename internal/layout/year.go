package layout

import (
	"slices"
	"time"

	"campuscal/internal/aggregate"
	"campuscal/internal/category"
	appLog "campuscal/internal/log"
	"campuscal/internal/model"
	"campuscal/internal/timeparse"
)

// DateSummary is the chip for one date with events in the year view.
type DateSummary struct {
	Date     time.Time           `json:"date"`
	Day      int                 `json:"day"`
	Count    int                 `json:"count"`
	Category category.Descriptor `json:"category"`
}

// MonthSummary is one of the twelve year-view cells.
type MonthSummary struct {
	Month time.Month    `json:"month"`
	Start time.Time     `json:"start"`
	Dates []DateSummary `json:"dates"`
	Total int           `json:"total"`

	Notable       []model.Timed `json:"notable"`
	Overflow      int           `json:"overflow"`
	OverflowLabel string        `json:"overflow_label,omitempty"`
}

// YearLayout covers January to December of one year.
type YearLayout struct {
	Year   int            `json:"year"`
	Months []MonthSummary `json:"months"`
}

// Year lays out the year containing ref. Each date with events is coloured
// by its predominant category.
func Year(events []model.Event, ref time.Time, opts Options) YearLayout {
	opts = opts.normalized()
	start := YearStart(ref)
	resolved := aggregate.InRange(model.ResolveAll(events, ref.Location()), start, start.AddDate(1, 0, 0))
	byMonth := aggregate.ByMonth(resolved)

	out := YearLayout{Year: start.Year()}
	starts, err := monthStarts(start)
	if err != nil {
		appLog.Error("layout: year frame", err, "start", start)
		return out
	}
	for _, ms := range starts {
		monthEvents := aggregate.SortByStart(byMonth[aggregate.MonthOf(ms)])
		out.Months = append(out.Months, monthSummary(ms, monthEvents, opts))
	}
	return out
}

func monthSummary(start time.Time, events []model.Timed, opts Options) MonthSummary {
	ms := MonthSummary{
		Month:   start.Month(),
		Start:   start,
		Dates:   []DateSummary{},
		Total:   len(events),
		Notable: []model.Timed{},
	}

	for key, dayEvents := range aggregate.ByDate(events) {
		d, err := timeparse.ParseIn(key, start.Location())
		if err != nil {
			continue
		}
		ms.Dates = append(ms.Dates, DateSummary{
			Date:     d,
			Day:      d.Day(),
			Count:    len(dayEvents),
			Category: category.Lookup(category.Predominant(aggregate.CountByCategory(dayEvents))),
		})
	}
	slices.SortFunc(ms.Dates, func(a, b DateSummary) int { return a.Day - b.Day })

	n := min(len(events), opts.YearNotableCap)
	ms.Notable = append(ms.Notable, events[:n]...)
	ms.Overflow = len(events) - n
	ms.OverflowLabel = overflowLabel(ms.Overflow)
	return ms
}
