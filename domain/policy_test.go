package domain

import (
	"testing"
	"time"
)

// TestQuietHours_Contains_Wraparound: a
// quiet window that wraps midnight (22:00-07:00) must still suppress a
// signal that arrives after midnight but before the window's end.
func TestQuietHours_Contains_Wraparound(t *testing.T) {
	q := QuietHours{Enabled: true, Start: "22:00", End: "07:00"}

	cases := []struct {
		name string
		hhmm string
		want bool
	}{
		{"well inside evening half", "23:15", true},
		{"well inside morning half", "03:00", true},
		{"outside, midday", "12:00", false},
		{"outside, just before start", "21:59", false},
		{"at start boundary, inclusive", "22:00", true},
		{"at end boundary, inclusive", "07:00", true},
		{"just after end boundary", "07:01", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			when := mustParseClock(t, tc.hhmm)
			got, err := q.Contains(when)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Contains(%s) = %v, want %v", tc.hhmm, got, tc.want)
			}
		})
	}
}

func TestQuietHours_Contains_NonWrapping(t *testing.T) {
	q := QuietHours{Enabled: true, Start: "09:00", End: "17:00"}

	cases := []struct {
		hhmm string
		want bool
	}{
		{"08:59", false},
		{"09:00", true},
		{"12:00", true},
		{"17:00", true},
		{"17:01", false},
	}
	for _, tc := range cases {
		when := mustParseClock(t, tc.hhmm)
		got, err := q.Contains(when)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tc.want {
			t.Errorf("Contains(%s) = %v, want %v", tc.hhmm, got, tc.want)
		}
	}
}

func TestQuietHours_Contains_DisabledAlwaysFalse(t *testing.T) {
	q := QuietHours{Enabled: false, Start: "22:00", End: "07:00"}
	got, err := q.Contains(mustParseClock(t, "23:15"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got {
		t.Error("disabled quiet hours must never suppress")
	}
}

func TestQuietHours_Contains_RejectsMalformedClock(t *testing.T) {
	q := QuietHours{Enabled: true, Start: "not-a-time", End: "07:00"}
	if _, err := q.Contains(mustParseClock(t, "23:15")); err == nil {
		t.Error("expected an error for a malformed start time")
	}
}

func mustParseClock(t *testing.T, hhmm string) time.Time {
	t.Helper()
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		t.Fatalf("parse %q: %v", hhmm, err)
	}
	return parsed
}
