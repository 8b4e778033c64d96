// Package textview draws a calendar render tree for the terminal.
package textview

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"campuscal/internal/calendar"
	"campuscal/internal/category"
	"campuscal/internal/layout"
	"campuscal/internal/model"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#b45309")).Bold(true)
	headStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#374151"))
	todayStyle   = lipgloss.NewStyle().Reverse(true)
	outsideStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#d1d5db")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, true, true, false).BorderForeground(lipgloss.Color("#e5e7eb"))
)

// DefaultWidth is used when the caller passes no width.
const DefaultWidth = 112

// Render draws tree in at most width columns.
func Render(tree calendar.Tree, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}

	var parts []string
	head := titleStyle.Render(tree.Title) + dimStyle.Render("["+string(tree.View)+"]")
	if tree.Loading {
		head += dimStyle.Render(" loading…")
	}
	parts = append(parts, head)
	for _, w := range tree.Warnings {
		parts = append(parts, warnStyle.Render("! "+w.Message))
	}

	switch {
	case tree.Day != nil:
		parts = append(parts, dayView(*tree.Day, tree.Hours, width))
	case tree.Week != nil:
		parts = append(parts, weekView(*tree.Week, width))
	case tree.Month != nil:
		parts = append(parts, monthView(*tree.Month, width))
	case tree.Year != nil:
		parts = append(parts, yearView(*tree.Year, width))
	}

	parts = append(parts, agenda(tree.Selected, tree.Agenda), legend(tree.Categories))
	return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
}

func chip(d category.Descriptor) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(d.Text)).Background(lipgloss.Color(d.LightFill))
}

func truncate(s string, w int) string {
	if w <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	if w == 1 {
		return "…"
	}
	return string(r[:w-1]) + "…"
}

// dayView lists one row per window hour with the blocks starting in it.
func dayView(col layout.DayColumn, hours []int, width int) string {
	byHour := make(map[int][]layout.Block)
	for _, b := range col.Blocks {
		h := b.Event.Start.Hour()
		switch {
		case len(hours) > 0 && h < hours[0]:
			h = hours[0]
		case len(hours) > 0 && h > hours[len(hours)-1]:
			h = hours[len(hours)-1]
		}
		byHour[h] = append(byHour[h], b)
	}

	var lines []string
	for _, h := range hours {
		label := dimStyle.Render(fmt.Sprintf("%02d:00 │", h))
		row := []string{label}
		for _, b := range byHour[h] {
			row = append(row, chip(b.Event.Category).Render(blockLabel(b, width/2)))
		}
		lines = append(lines, strings.Join(row, " "))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func blockLabel(b layout.Block, w int) string {
	s := b.Event.Start.Format("15:04") + "-" + b.Event.End.Format("15:04") + " " + b.Event.Title
	if b.ClippedTop {
		s = "↑" + s
	}
	if b.ClippedBottom {
		s += "↓"
	}
	return truncate(s, w)
}

func weekView(w layout.WeekLayout, width int) string {
	colW := max(width/len(w.Columns)-1, 8)
	cols := make([]string, 0, len(w.Columns))
	for _, c := range w.Columns {
		head := headStyle.Render(truncate(c.Date.Format("Mon 2"), colW))
		if c.IsToday {
			head = todayStyle.Render(truncate(c.Date.Format("Mon 2"), colW))
		}
		lines := []string{head}
		for _, b := range c.Blocks {
			lines = append(lines, chip(b.Event.Category).Render(truncate(b.Event.Start.Format("15:04")+" "+b.Event.Title, colW)))
		}
		cols = append(cols, cellStyle.Width(colW).Render(strings.Join(lines, "\n")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func monthView(m layout.MonthLayout, width int) string {
	colW := max(width/7-1, 8)
	header := make([]string, 0, 7)
	for _, d := range m.Weekdays {
		header = append(header, headStyle.Width(colW+1).Render(d.String()[:3]))
	}
	rows := []string{lipgloss.JoinHorizontal(lipgloss.Top, header...)}

	for _, week := range m.Weeks {
		cells := make([]string, 0, len(week))
		for _, c := range week {
			num := fmt.Sprintf("%2d", c.Date.Day())
			switch {
			case c.IsToday:
				num = todayStyle.Render(num)
			case !c.InMonth:
				num = outsideStyle.Render(num)
			}
			lines := []string{num}
			for _, e := range c.Events {
				lines = append(lines, chip(e.Category).Render(truncate(e.Title, colW)))
			}
			if c.Overflow > 0 {
				lines = append(lines, dimStyle.Render(c.OverflowLabel))
			}
			cells = append(cells, cellStyle.Width(colW).Height(4).Render(strings.Join(lines, "\n")))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func yearView(y layout.YearLayout, width int) string {
	const perRow = 4
	boxW := max(width/perRow-4, 14)

	var rows []string
	for i := 0; i < len(y.Months); i += perRow {
		var boxes []string
		for _, ms := range y.Months[i:min(i+perRow, len(y.Months))] {
			lines := []string{headStyle.Render(fmt.Sprintf("%s (%d)", ms.Month, ms.Total))}
			var dots []string
			for _, d := range ms.Dates {
				dots = append(dots, chip(d.Category).Render(fmt.Sprintf("%d", d.Day)))
			}
			if len(dots) > 0 {
				lines = append(lines, lipgloss.NewStyle().Width(boxW).Render(strings.Join(dots, " ")))
			}
			for _, n := range ms.Notable {
				lines = append(lines, chip(n.Category).Render(truncate(n.Title, boxW)))
			}
			if ms.Overflow > 0 {
				lines = append(lines, dimStyle.Render(ms.OverflowLabel))
			}
			boxes = append(boxes, boxStyle.Width(boxW).Render(strings.Join(lines, "\n")))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func agenda(day time.Time, events []model.Timed) string {
	lines := []string{headStyle.Render(day.Format("Monday, January 2"))}
	if len(events) == 0 {
		lines = append(lines, dimStyle.Render("  no events"))
	}
	for _, e := range events {
		line := fmt.Sprintf("  %s-%s  %s", e.Start.Format("15:04"), e.End.Format("15:04"), e.Title)
		if e.Location != "" {
			line += dimStyle.Render(" @ " + e.Location)
		}
		lines = append(lines, chip(e.Category).Render(e.Category.ShortName)+line)
	}
	return strings.Join(lines, "\n")
}

func legend(cats []category.Descriptor) string {
	parts := make([]string, 0, len(cats))
	for _, c := range cats {
		parts = append(parts, chip(c).Render(" "+c.ShortName+" ")+" "+c.Name)
	}
	return dimStyle.Render("Legend: ") + strings.Join(parts, "  ")
}
