package layout

import (
	"slices"
	"time"

	"campuscal/internal/aggregate"
	appLog "campuscal/internal/log"
	"campuscal/internal/model"
	"campuscal/internal/timeparse"
)

// Block is one event placed in a day column. Top and Height are the
// displayed percentages of the hour window; RawTop and RawHeight are the
// unclamped values straight from the time math.
type Block struct {
	Event model.Timed `json:"event"`

	RawTop    float64 `json:"raw_top"`
	RawHeight float64 `json:"raw_height"`
	Top       float64 `json:"top"`
	Height    float64 `json:"height"`

	// Horizontal placement among overlapping events.
	Lane  int     `json:"lane"`
	Lanes int     `json:"lanes"`
	Left  float64 `json:"left"`
	Width float64 `json:"width"`

	ClippedTop    bool `json:"clipped_top,omitempty"`
	ClippedBottom bool `json:"clipped_bottom,omitempty"`
}

// DayColumn is the layout of a single day.
type DayColumn struct {
	Date    time.Time `json:"date"`
	IsToday bool      `json:"is_today"`
	Blocks  []Block   `json:"blocks"`

	// Now is the now-indicator offset, set only on today's column while the
	// current time is inside the hour window.
	Now *float64 `json:"now,omitempty"`
}

// Hours lists the hour labels of the visible window.
func Hours(opts Options) []int {
	opts = opts.normalized()
	out := make([]int, 0, opts.WindowEndHour-opts.WindowStartHour)
	for h := opts.WindowStartHour; h < opts.WindowEndHour; h++ {
		out = append(out, h)
	}
	return out
}

// Day lays out the events starting on day.
func Day(events []model.Event, day time.Time, opts Options) DayColumn {
	opts = opts.normalized()
	return dayColumn(model.ResolveAll(events, day.Location()), day, opts)
}

func dayColumn(resolved []model.Timed, day time.Time, opts Options) DayColumn {
	date := timeparse.StartOfDay(day)
	col := DayColumn{
		Date:    date,
		IsToday: timeparse.SameDay(date, opts.Now),
		Blocks:  []Block{},
	}

	for _, ev := range aggregate.OnDate(resolved, date) {
		top, height := Position(ev.Start, ev.End, date, opts)
		col.Blocks = append(col.Blocks, Block{Event: ev, RawTop: top, RawHeight: height})
	}
	clampBlocks(col.Blocks, opts.MinHeight)
	assignLanes(col.Blocks)

	if col.IsToday {
		if p, ok := NowOffset(date, opts); ok {
			col.Now = &p
		}
	}
	return col
}

// Position converts an interval on day into (top, height) percentages of
// the hour window. The values are not clamped.
func Position(start, end, day time.Time, opts Options) (top, height float64) {
	opts = opts.normalized()
	total := opts.windowMinutes()
	// Wall-clock hour, not elapsed time from midnight: the two differ on
	// DST-change days.
	y, m, d := day.Date()
	windowStart := time.Date(y, m, d, opts.WindowStartHour, 0, 0, 0, day.Location())

	top = start.Sub(windowStart).Minutes() / total * 100
	height = end.Sub(start).Minutes() / total * 100
	return top, height
}

// NowOffset is the now indicator for day, if opts.Now is on day and inside
// the window.
func NowOffset(day time.Time, opts Options) (float64, bool) {
	opts = opts.normalized()
	if !timeparse.SameDay(day, opts.Now) {
		return 0, false
	}
	top, _ := Position(opts.Now, opts.Now, day, opts)
	if top < 0 || top > 100 {
		return 0, false
	}
	return top, true
}

// clampBlocks derives Top/Height from the raw values: the block is cut to
// the window, kept at least minHeight tall and never pushed past the bottom.
func clampBlocks(blocks []Block, minHeight float64) {
	for i := range blocks {
		b := &blocks[i]
		rawBottom := b.RawTop + b.RawHeight

		top := clamp(b.RawTop, 0, 100)
		bottom := clamp(rawBottom, 0, 100)
		h := bottom - top
		if h < minHeight {
			h = minHeight
		}
		if h > 100 {
			h = 100
		}
		if top+h > 100 {
			top = 100 - h
		}

		b.Top, b.Height = top, h
		b.ClippedTop = b.RawTop < 0
		b.ClippedBottom = rawBottom > 100
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// assignLanes spreads overlapping events across side-by-side lanes. Blocks
// arrive sorted by start. Events that only touch do not overlap.
func assignLanes(blocks []Block) {
	i := 0
	for i < len(blocks) {
		// Grow a cluster of transitively overlapping events.
		clusterEnd := blocks[i].Event.End
		j := i + 1
		for j < len(blocks) && blocks[j].Event.Start.Before(clusterEnd) {
			if blocks[j].Event.End.After(clusterEnd) {
				clusterEnd = blocks[j].Event.End
			}
			j++
		}

		var laneEnds []time.Time
		for k := i; k < j; k++ {
			lane := slices.IndexFunc(laneEnds, func(end time.Time) bool {
				return !end.After(blocks[k].Event.Start)
			})
			if lane < 0 {
				lane = len(laneEnds)
				laneEnds = append(laneEnds, blocks[k].Event.End)
			} else {
				laneEnds[lane] = blocks[k].Event.End
			}
			blocks[k].Lane = lane
		}

		lanes := len(laneEnds)
		for k := i; k < j; k++ {
			blocks[k].Lanes = lanes
			blocks[k].Width = 100 / float64(lanes)
			blocks[k].Left = float64(blocks[k].Lane) * blocks[k].Width
		}
		i = j
	}
}

// WeekLayout is seven day columns from the week start.
type WeekLayout struct {
	Start   time.Time   `json:"start"`
	End     time.Time   `json:"end"`
	Columns []DayColumn `json:"columns"`
}

// Week lays out the week containing ref. Each column is an independent
// day layout over the events starting on that date.
func Week(events []model.Event, ref time.Time, opts Options) WeekLayout {
	opts = opts.normalized()
	start := WeekStart(ref, opts.FirstWeekday)
	resolved := aggregate.InRange(model.ResolveAll(events, ref.Location()), start, start.AddDate(0, 0, 7))

	out := WeekLayout{Start: start, End: start.AddDate(0, 0, 6), Columns: []DayColumn{}}
	dates, err := days(start, 7)
	if err != nil {
		appLog.Error("layout: week frame", err, "start", start)
		return out
	}
	for _, d := range dates {
		out.Columns = append(out.Columns, dayColumn(resolved, d, opts))
	}
	return out
}
