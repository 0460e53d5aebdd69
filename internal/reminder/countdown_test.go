package reminder

import (
	"testing"
	"time"
)

func TestCountdown(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		due  time.Time
		want string
	}{
		{"seconds only", now.Add(45 * time.Second), "45s"},
		{"hours and minutes", now.Add(90 * time.Minute), "1h 30m"},
		{"days skip zero hours", now.Add(48*time.Hour + 5*time.Minute + 10*time.Second), "2d 5m"},
		{"partial second rounds up", now.Add(500 * time.Millisecond), "1s"},
		{"exactly due", now, NoTimeLeft},
		{"past", now.Add(-time.Minute), NoTimeLeft},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Countdown(tc.due, now); got != tc.want {
				t.Fatalf("Countdown() = %q, want %q", got, tc.want)
			}
		})
	}
}
