package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"campuscal/internal/category"
	"campuscal/internal/timeparse"
)

// ErrInvalidInput wraps every validation failure of LocalInput.
var ErrInvalidInput = errors.New("invalid event input")

// MaxDurationHours caps a local event at one leap year.
const MaxDurationHours = 24 * 366

// LocalInput is what the event-creation form hands over.
type LocalInput struct {
	Title         string  `json:"title"`
	DateISO       string  `json:"date"`
	TimeHHMM      string  `json:"time"`
	DurationHours float64 `json:"duration_hours"`
	Category      string  `json:"category"`
	Description   string  `json:"description,omitempty"`
	Location      string  `json:"location,omitempty"`
}

// Validate rejects input that must never reach the calendar core.
func (in LocalInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if _, err := time.Parse(timeparse.LayoutDate, strings.TrimSpace(in.DateISO)); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	if _, err := time.Parse("15:04", strings.TrimSpace(in.TimeHHMM)); err != nil {
		return fmt.Errorf("%w: time must be HH:mm", ErrInvalidInput)
	}
	if in.DurationHours <= 0 || math.IsNaN(in.DurationHours) || math.IsInf(in.DurationHours, 0) {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
	}
	if in.DurationHours > MaxDurationHours {
		return fmt.Errorf("%w: duration must be at most %d hours", ErrInvalidInput, MaxDurationHours)
	}
	return nil
}

// NewLocalEvent builds an Event from validated form input. Start is date+time
// in loc; End is Start + DurationHours.
func NewLocalEvent(in LocalInput, loc *time.Location) (Event, error) {
	if err := in.Validate(); err != nil {
		return Event{}, err
	}
	if loc == nil {
		loc = time.Local
	}

	start, err := time.ParseInLocation(timeparse.LayoutInstantMinutes,
		strings.TrimSpace(in.DateISO)+"T"+strings.TrimSpace(in.TimeHHMM), loc)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	end := start.Add(time.Duration(in.DurationHours * float64(time.Hour)))

	return Event{
		ID:          "local-" + uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Date:        timeparse.DateKey(start),
		Start:       timeparse.FormatInstant(start),
		End:         timeparse.FormatInstant(end),
		Category:    category.Normalize(in.Category),
		Description: in.Description,
		Location:    in.Location,
		Local:       true,
	}, nil
}
