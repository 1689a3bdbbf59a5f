// Package catalog holds the club's fixed playing-slot schedule.
package catalog

import (
	"strings"
	"time"
)

// Slot is one bookable time range on a single court. Times are "HH:MM".
type Slot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// The schedule is fixed club policy, not stored data: three evening slots on
// weekdays, two midday slots on Saturday, closed on Sunday.
var (
	weekdaySlots = []Slot{
		{Start: "15:30", End: "17:00"},
		{Start: "17:00", End: "18:30"},
		{Start: "18:30", End: "20:00"},
	}
	saturdaySlots = []Slot{
		{Start: "11:00", End: "12:30"},
		{Start: "12:30", End: "14:00"},
	}
)

// SlotsForDate returns the ordered slot sequence for the date's weekday.
// Sunday yields an empty sequence: the club is closed.
func SlotsForDate(date time.Time) []Slot {
	switch date.Weekday() {
	case time.Sunday:
		return nil
	case time.Saturday:
		return slotsCopy(saturdaySlots)
	default:
		return slotsCopy(weekdaySlots)
	}
}

// SlotsForISODate parses an ISO YYYY-MM-DD date and returns its slots.
func SlotsForISODate(date string) ([]Slot, error) {
	parsed, err := ParseISODate(date)
	if err != nil {
		return nil, err
	}
	return SlotsForDate(parsed), nil
}

// ParseISODate parses a YYYY-MM-DD date in the club's local time zone.
func ParseISODate(date string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", strings.TrimSpace(date), time.Local)
}

// NormalizeTime truncates a stored time value to its "HH:MM" prefix. The
// backend returns "HH:MM:SS" for time columns while the catalog uses "HH:MM";
// both spellings of the same time must compare equal.
func NormalizeTime(t string) string {
	t = strings.TrimSpace(t)
	if len(t) > 5 {
		return t[:5]
	}
	return t
}

// FindSlot returns the catalog slot for the ISO date whose start matches the
// given time, using normalized comparison. ok is false when the date is
// invalid or no slot matches.
func FindSlot(date string, start string) (Slot, bool) {
	slots, err := SlotsForISODate(date)
	if err != nil {
		return Slot{}, false
	}
	start = NormalizeTime(start)
	for _, slot := range slots {
		if slot.Start == start {
			return slot, true
		}
	}
	return Slot{}, false
}

func slotsCopy(slots []Slot) []Slot {
	out := make([]Slot, len(slots))
	copy(out, slots)
	return out
}
