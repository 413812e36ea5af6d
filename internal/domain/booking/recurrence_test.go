package booking

import (
	"testing"
	"time"

	"github.com/agendly/agendly/pkg/clock"
)

func intPtr(v int) *int          { return &v }
func strPtr(s string) *string    { return &s }

func formatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = clock.FormatDate(d)
	}
	return out
}

func assertDates(t *testing.T, got []time.Time, want []string) {
	t.Helper()
	gotStr := formatDates(got)
	if len(gotStr) != len(want) {
		t.Fatalf("expected %d dates %v, got %d dates %v", len(want), want, len(gotStr), gotStr)
	}
	for i := range want {
		if gotStr[i] != want[i] {
			t.Errorf("date[%d] = %s, want %s", i, gotStr[i], want[i])
		}
	}
}

func TestPattern_Validate(t *testing.T) {
	tests := []struct {
		name    string
		pattern RecurrencePattern
		wantErr bool
	}{
		{"weekly with count", RecurrencePattern{Frequency: "weekly", Interval: 1, Count: intPtr(4)}, false},
		{"monthly with end date", RecurrencePattern{Frequency: "monthly", Interval: 1, EndDate: strPtr("2026-12-01")}, false},
		{"unknown frequency", RecurrencePattern{Frequency: "daily", Interval: 1, Count: intPtr(4)}, true},
		{"bad weekday", RecurrencePattern{Frequency: "weekly", Interval: 1, DaysOfWeek: []int{7}, Count: intPtr(4)}, true},
		{"weekdays on monthly", RecurrencePattern{Frequency: "monthly", Interval: 1, DaysOfWeek: []int{1}, Count: intPtr(4)}, true},
		{"interval too large", RecurrencePattern{Frequency: "weekly", Interval: 5, Count: intPtr(4)}, true},
		{"no termination", RecurrencePattern{Frequency: "weekly", Interval: 1}, true},
		{"count too small", RecurrencePattern{Frequency: "weekly", Interval: 1, Count: intPtr(1)}, true},
		{"count too large", RecurrencePattern{Frequency: "weekly", Interval: 1, Count: intPtr(53)}, true},
		{"bad end date", RecurrencePattern{Frequency: "weekly", Interval: 1, EndDate: strPtr("not-a-date")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pattern.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerate_WeeklyWithWeekdaySet(t *testing.T) {
	// 2026-01-07 is a Wednesday (weekday 3).
	p := RecurrencePattern{Frequency: "weekly", Interval: 1, DaysOfWeek: []int{3}, Count: intPtr(4)}
	dates, err := p.Generate(date(t, "2026-01-07"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	assertDates(t, dates, []string{"2026-01-07", "2026-01-14", "2026-01-21", "2026-01-28"})
}

func TestGenerate_WeeklyMultipleWeekdays(t *testing.T) {
	// Monday and Thursday starting from a Monday (2026-01-05).
	p := RecurrencePattern{Frequency: "weekly", Interval: 1, DaysOfWeek: []int{1, 4}, Count: intPtr(5)}
	dates, err := p.Generate(date(t, "2026-01-05"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	assertDates(t, dates, []string{"2026-01-05", "2026-01-08", "2026-01-12", "2026-01-15", "2026-01-19"})
}

func TestGenerate_WeeklyWithoutWeekdaySet(t *testing.T) {
	p := RecurrencePattern{Frequency: "weekly", Interval: 1, Count: intPtr(3)}
	dates, err := p.Generate(date(t, "2026-01-07"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	assertDates(t, dates, []string{"2026-01-07", "2026-01-14", "2026-01-21"})
}

func TestGenerate_Biweekly(t *testing.T) {
	// Biweekly always advances two weeks regardless of the interval field.
	p := RecurrencePattern{Frequency: "biweekly", Interval: 1, Count: intPtr(3)}
	dates, err := p.Generate(date(t, "2026-01-07"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	assertDates(t, dates, []string{"2026-01-07", "2026-01-21", "2026-02-04"})
}

func TestGenerate_Monthly(t *testing.T) {
	p := RecurrencePattern{Frequency: "monthly", Interval: 1, Count: intPtr(3)}
	dates, err := p.Generate(date(t, "2026-01-15"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	assertDates(t, dates, []string{"2026-01-15", "2026-02-15", "2026-03-15"})
}

func TestGenerate_MonthlyClampsToShortMonths(t *testing.T) {
	// Anchored on the 31st the series clamps to each month's last day and
	// snaps back when a 31-day month returns.
	p := RecurrencePattern{Frequency: "monthly", Interval: 1, Count: intPtr(4)}
	dates, err := p.Generate(date(t, "2026-01-31"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	assertDates(t, dates, []string{"2026-01-31", "2026-02-28", "2026-03-31", "2026-04-30"})
}

func TestGenerate_EndDateBound(t *testing.T) {
	p := RecurrencePattern{Frequency: "weekly", Interval: 1, EndDate: strPtr("2026-01-21")}
	dates, err := p.Generate(date(t, "2026-01-07"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	assertDates(t, dates, []string{"2026-01-07", "2026-01-14", "2026-01-21"})
}

func TestGenerate_HorizonCap(t *testing.T) {
	// A monthly pattern asking for 52 occurrences would run four years;
	// the horizon stops it within 365 days of the start.
	p := RecurrencePattern{Frequency: "monthly", Interval: 1, Count: intPtr(52)}
	dates, err := p.Generate(date(t, "2026-01-15"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(dates) != 13 {
		t.Fatalf("expected 13 dates within the horizon, got %d", len(dates))
	}
	last := dates[len(dates)-1]
	horizon := date(t, "2026-01-15").AddDate(0, 0, HorizonDays)
	if last.After(horizon) {
		t.Errorf("last date %s exceeds horizon %s", clock.FormatDate(last), clock.FormatDate(horizon))
	}
}
