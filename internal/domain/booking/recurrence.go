package booking

import (
	"fmt"
	"sort"
	"time"

	"github.com/agendly/agendly/pkg/clock"
)

// Frequency values a recurrence pattern accepts.
const (
	FrequencyWeekly   = "weekly"
	FrequencyBiweekly = "biweekly"
	FrequencyMonthly  = "monthly"
)

const (
	// MaxOccurrences caps the occurrence count a pattern may request.
	MaxOccurrences = 52
	// HorizonDays is a hard ceiling on how far a series may extend past
	// its start date, independent of the requested termination.
	HorizonDays = 365
)

// RecurrencePattern describes how a series repeats. It exists only
// transiently during generation and preview; the only persisted trace is on
// the series' appointments.
type RecurrencePattern struct {
	Frequency  string  `json:"frequency"`
	DaysOfWeek []int   `json:"days_of_week,omitempty"`
	Interval   int     `json:"interval"`
	EndDate    *string `json:"end_date,omitempty"`
	Count      *int    `json:"count,omitempty"`
}

// Validate checks the pattern before any dates are generated.
func (p *RecurrencePattern) Validate() *SchedulingError {
	switch p.Frequency {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
	default:
		return NewValidationError(CodeInvalidPattern,
			fmt.Sprintf("frequency must be weekly, biweekly or monthly, got %q", p.Frequency))
	}

	if len(p.DaysOfWeek) > 0 {
		if p.Frequency == FrequencyMonthly {
			return NewValidationError(CodeInvalidPattern, "days_of_week is not valid for monthly patterns")
		}
		for _, d := range p.DaysOfWeek {
			if d < 0 || d > 6 {
				return NewValidationError(CodeInvalidPattern,
					fmt.Sprintf("days_of_week entries must be 0-6, got %d", d))
			}
		}
	}

	if p.Interval < 1 || p.Interval > 4 {
		return NewValidationError(CodeInvalidPattern,
			fmt.Sprintf("interval must be between 1 and 4, got %d", p.Interval))
	}

	if p.EndDate == nil && p.Count == nil {
		return NewValidationError(CodeInvalidPattern,
			"pattern must specify either an end date or an occurrence count")
	}
	if p.EndDate != nil {
		if _, err := clock.ParseDate(*p.EndDate); err != nil {
			return NewValidationError(CodeInvalidPattern,
				fmt.Sprintf("invalid end date %q", *p.EndDate))
		}
	}
	if p.Count != nil && (*p.Count < 2 || *p.Count > MaxOccurrences) {
		return NewValidationError(CodeInvalidPattern,
			fmt.Sprintf("occurrence count must be between 2 and %d, got %d", MaxOccurrences, *p.Count))
	}
	return nil
}

// Generate expands the pattern into an ordered list of dates, startDate
// always first. The loop stops at the occurrence count, the end-date bound,
// or the hard horizon, whichever comes first.
func (p *RecurrencePattern) Generate(startDate time.Time) ([]time.Time, *SchedulingError) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	start := clock.DateOnly(startDate)
	horizon := start.AddDate(0, 0, HorizonDays)

	var endBound *time.Time
	if p.EndDate != nil {
		d, _ := clock.ParseDate(*p.EndDate)
		endBound = &d
	}

	maxCount := MaxOccurrences
	if p.Count != nil {
		maxCount = *p.Count
	}

	days := append([]int(nil), p.DaysOfWeek...)
	sort.Ints(days)

	interval := p.Interval
	if p.Frequency == FrequencyBiweekly {
		interval = 2
	}

	dates := []time.Time{start}
	current := start
	for len(dates) < maxCount {
		var next time.Time
		switch {
		case p.Frequency == FrequencyMonthly:
			next = addMonthsClamped(current, interval, start.Day())
		case len(days) > 0:
			next = nextWeekdayInRotation(current, days, interval)
		default:
			next = current.AddDate(0, 0, 7*interval)
		}

		if next.After(horizon) {
			break
		}
		if endBound != nil && next.After(*endBound) {
			break
		}
		dates = append(dates, next)
		current = next
	}
	return dates, nil
}

// nextWeekdayInRotation scans forward within the current rotation window for
// the next weekday in the set strictly after the current weekday; when none
// remain this week it jumps to the first weekday of the week `interval`
// weeks later.
func nextWeekdayInRotation(current time.Time, sortedDays []int, interval int) time.Time {
	curWeekday := int(current.Weekday())
	for _, d := range sortedDays {
		if d > curWeekday {
			return current.AddDate(0, 0, d-curWeekday)
		}
	}
	return current.AddDate(0, 0, 7*interval-curWeekday+sortedDays[0])
}

// addMonthsClamped advances by the given months keeping the anchor
// day-of-month, clamping to the target month's last day when shorter.
func addMonthsClamped(current time.Time, months, anchorDay int) time.Time {
	year, month, _ := current.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, current.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	day := anchorDay
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 0, 0, 0, 0, current.Location())
}
