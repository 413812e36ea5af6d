package clock

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Time
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 9*60 + 30, false},
		{"23:59", DayEnd, false},
		{"14:05:00", 14*60 + 5, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"noon", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Parse(%q): expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAddClamped(t *testing.T) {
	start := Time(22 * 60) // 22:00
	if got := start.AddClamped(600); got != DayEnd {
		t.Errorf("22:00 + 600min = %s, want 23:59", got)
	}
	if got := start.AddClamped(60); got != Time(23*60) {
		t.Errorf("22:00 + 60min = %s, want 23:00", got)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	in := Time(9*60 + 15)
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"09:15"` {
		t.Errorf("marshal = %s, want \"09:15\"", data)
	}
	var out Time
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != in {
		t.Errorf("round trip = %v, want %v", out, in)
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	var out Time
	if err := json.Unmarshal([]byte(`"25:99"`), &out); err == nil {
		t.Error("expected error for out-of-range time")
	}
	if err := json.Unmarshal([]byte(`42`), &out); err == nil {
		t.Error("expected error for non-string JSON")
	}
}

func TestDateOnly(t *testing.T) {
	loc := time.FixedZone("X", -5*3600)
	in := time.Date(2026, 3, 14, 18, 45, 12, 0, loc)
	got := DateOnly(in)
	if got.Hour() != 0 || got.Minute() != 0 || got.Day() != 14 {
		t.Errorf("DateOnly = %v", got)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-01-07")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Weekday() != time.Wednesday {
		t.Errorf("2026-01-07 weekday = %v, want Wednesday", d.Weekday())
	}
	if _, err := ParseDate("07/01/2026"); err == nil {
		t.Error("expected error for wrong layout")
	}
}
