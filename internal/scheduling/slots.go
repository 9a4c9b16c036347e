package scheduling

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ValidDate reports whether date is a real calendar date in YYYY-MM-DD form.
func ValidDate(date string) bool {
	if len(date) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, date)
	return err == nil
}

// ContainsSlot reports whether slot is in slots.
func ContainsSlot(slots []string, slot string) bool {
	for _, s := range slots {
		if s == slot {
			return true
		}
	}
	return false
}

// WithoutSlot returns a new slice with slot removed and whether it was present.
// The input slice is never modified.
func WithoutSlot(slots []string, slot string) ([]string, bool) {
	out := make([]string, 0, len(slots))
	found := false
	for _, s := range slots {
		if s == slot && !found {
			found = true
			continue
		}
		out = append(out, s)
	}
	return out, found
}

// NormalizeSlots trims labels, drops blanks and removes duplicates, keeping first-seen order.
func NormalizeSlots(slots []string) []string {
	seen := make(map[string]struct{}, len(slots))
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// UnionSlots appends additions that are neither already open nor booked.
// It returns the new open set and the additions refused because they are booked.
func UnionSlots(existing, additions []string, booked map[string]struct{}) ([]string, []string) {
	out := append([]string(nil), existing...)
	var skipped []string
	for _, s := range NormalizeSlots(additions) {
		if ContainsSlot(out, s) {
			continue
		}
		if _, taken := booked[s]; taken {
			skipped = append(skipped, s)
			continue
		}
		out = append(out, s)
	}
	return out, skipped
}

// ClockTime is a wall-clock time of day.
type ClockTime struct {
	Hour   int
	Minute int
}

// On places the clock time on date in loc.
func (c ClockTime) On(date string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("scheduling: %w", ErrInvalidDate)
	}
	return day.Add(time.Duration(c.Hour)*time.Hour + time.Duration(c.Minute)*time.Minute), nil
}

// ParseSlotLabel converts labels like "9AM-10AM" or "2:30PM-3:15PM" to clock times.
func ParseSlotLabel(label string) (ClockTime, ClockTime, error) {
	parts := strings.Split(strings.ReplaceAll(label, " ", ""), "-")
	if len(parts) != 2 {
		return ClockTime{}, ClockTime{}, fmt.Errorf("scheduling: slot %q is not a start-end range", label)
	}
	start, err := parseClock(parts[0])
	if err != nil {
		return ClockTime{}, ClockTime{}, fmt.Errorf("scheduling: slot %q: %w", label, err)
	}
	end, err := parseClock(parts[1])
	if err != nil {
		return ClockTime{}, ClockTime{}, fmt.Errorf("scheduling: slot %q: %w", label, err)
	}
	return start, end, nil
}

func parseClock(raw string) (ClockTime, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	var meridiem string
	switch {
	case strings.HasSuffix(s, "AM"):
		meridiem, s = "AM", strings.TrimSuffix(s, "AM")
	case strings.HasSuffix(s, "PM"):
		meridiem, s = "PM", strings.TrimSuffix(s, "PM")
	}

	hourPart, minutePart := s, "0"
	if idx := strings.Index(s, ":"); idx >= 0 {
		hourPart, minutePart = s[:idx], s[idx+1:]
	}
	hour, err := strconv.Atoi(hourPart)
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid hour %q", raw)
	}
	minute, err := strconv.Atoi(minutePart)
	if err != nil || minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("invalid minute %q", raw)
	}

	switch meridiem {
	case "AM":
		if hour < 1 || hour > 12 {
			return ClockTime{}, fmt.Errorf("invalid hour %q", raw)
		}
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour < 1 || hour > 12 {
			return ClockTime{}, fmt.Errorf("invalid hour %q", raw)
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour < 0 || hour > 23 {
			return ClockTime{}, fmt.Errorf("invalid hour %q", raw)
		}
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}
