// Package clock provides the wall-clock time-of-day and calendar-date
// primitives used by the scheduling engine. Appointments never cross
// midnight, so a time of day is a plain minute offset within one date.
package clock

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Time is a time of day expressed as minutes since midnight (0..1439).
type Time int

// DayEnd is the latest representable time of day, 23:59. Derived end times
// that would cross midnight are clamped to it.
const DayEnd Time = 23*60 + 59

// MinutesPerDay is the number of minutes in one calendar day.
const MinutesPerDay = 24 * 60

// Parse parses "HH:MM" (and tolerates a trailing ":SS") into a Time.
func Parse(s string) (Time, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	var h, m int
	if _, err := fmt.Sscanf(parts[0]+":"+parts[1], "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time of day out of range %q", s)
	}
	return Time(h*60 + m), nil
}

// FromTime extracts the time of day from a time.Time in its location.
func FromTime(t time.Time) Time {
	return Time(t.Hour()*60 + t.Minute())
}

// Valid reports whether t falls within a single day.
func (t Time) Valid() bool { return t >= 0 && t < MinutesPerDay }

// Minutes returns t as an integer minute offset.
func (t Time) Minutes() int { return int(t) }

// Add returns t shifted by mins minutes. The result is not clamped.
func (t Time) Add(mins int) Time { return t + Time(mins) }

// AddClamped returns t shifted by mins minutes, clamped to DayEnd so the
// result never crosses midnight.
func (t Time) AddClamped(mins int) Time {
	v := t + Time(mins)
	if v > DayEnd {
		return DayEnd
	}
	return v
}

func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalJSON encodes the time as an "HH:MM" string.
func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes an "HH:MM" string.
func (t *Time) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// DateLayout is the calendar-date wire format.
const DateLayout = "2006-01-02"

// DateOnly truncates t to its calendar date at midnight UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a "YYYY-MM-DD" calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return d, nil
}

// FormatDate renders t as "YYYY-MM-DD".
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// SameDate reports whether a and b fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
