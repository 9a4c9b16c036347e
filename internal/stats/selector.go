package stats

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rithvickkr/DOBBE-assignment/internal/scheduling"
)

// ErrInvalidSelector is returned for selectors that are neither a date nor a relative tag.
var ErrInvalidSelector = errors.New("date must be YYYY-MM-DD, today, tomorrow or yesterday")

const selectorPrefix = "appointments_"

// DateSelector is an explicit date or a day offset resolved at request time.
type DateSelector struct {
	date     string
	offset   int
	relative bool
}

// ParseDateSelector accepts YYYY-MM-DD, today, tomorrow or yesterday, each
// optionally prefixed with "appointments_".
func ParseDateSelector(raw string) (DateSelector, error) {
	s := strings.TrimPrefix(strings.TrimSpace(raw), selectorPrefix)
	switch strings.ToLower(s) {
	case "today":
		return DateSelector{relative: true}, nil
	case "tomorrow":
		return DateSelector{relative: true, offset: 1}, nil
	case "yesterday":
		return DateSelector{relative: true, offset: -1}, nil
	}
	if !scheduling.ValidDate(s) {
		return DateSelector{}, fmt.Errorf("stats: selector %q: %w", raw, ErrInvalidSelector)
	}
	return DateSelector{date: s}, nil
}

// On returns the selector for an explicit date.
func On(date string) DateSelector {
	return DateSelector{date: date}
}

// Today returns the selector for the current day.
func Today() DateSelector {
	return DateSelector{relative: true}
}

// Resolve returns the calendar date for now in loc.
func (d DateSelector) Resolve(now time.Time, loc *time.Location) string {
	if !d.relative {
		return d.date
	}
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return local.AddDate(0, 0, d.offset).Format(scheduling.DateLayout)
}

func (d DateSelector) String() string {
	if !d.relative {
		return d.date
	}
	switch d.offset {
	case 1:
		return "tomorrow"
	case -1:
		return "yesterday"
	default:
		return "today"
	}
}
