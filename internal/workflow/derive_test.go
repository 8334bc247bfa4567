package workflow

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonthsBetween(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int
	}{
		{"same month floors to one", date(2026, 3, 1), date(2026, 3, 20), 1},
		{"one month", date(2026, 3, 1), date(2026, 4, 1), 1},
		{"across year boundary", date(2025, 11, 15), date(2026, 2, 15), 3},
		{"full year", date(2026, 1, 1), date(2027, 1, 1), 12},
		{"end before start floors to one", date(2026, 5, 1), date(2026, 3, 1), 1},
	}
	for _, tt := range tests {
		if got := MonthsBetween(tt.start, tt.end); got != tt.want {
			t.Errorf("%s: MonthsBetween = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestClampAlertDays(t *testing.T) {
	t.Parallel()
	tests := []struct {
		days, def, want int
	}{
		{0, 7, 7},    // zero takes the default
		{-5, 7, 7},   // negative takes the default
		{30, 7, 30},  // in range passes through
		{90, 7, 60},  // clamped to the 60-day ceiling
		{0, 0, 1},    // degenerate default still clamped to floor
	}
	for _, tt := range tests {
		if got := ClampAlertDays(tt.days, tt.def); got != tt.want {
			t.Errorf("ClampAlertDays(%d, %d) = %d, want %d", tt.days, tt.def, got, tt.want)
		}
	}
}

func TestAlertEligible(t *testing.T) {
	t.Parallel()
	expiry := date(2026, 4, 10)
	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"well before window", date(2026, 3, 1), false},
		{"window edge", date(2026, 4, 3), true},
		{"inside window", date(2026, 4, 8), true},
		{"expiry day", date(2026, 4, 10), true},
		{"already expired", date(2026, 5, 1), true},
	}
	for _, tt := range tests {
		if got := AlertEligible(tt.now, expiry, 7); got != tt.want {
			t.Errorf("%s: AlertEligible = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSameCalendarDay(t *testing.T) {
	t.Parallel()
	a := time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC)
	b := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	c := time.Date(2026, 3, 11, 0, 1, 0, 0, time.UTC)
	if !SameCalendarDay(a, b) {
		t.Error("same day reported as different")
	}
	if SameCalendarDay(b, c) {
		t.Error("different days reported as same")
	}
}

func TestMonthlyCostCents(t *testing.T) {
	t.Parallel()
	if got := MonthlyCostCents(120000, 12); got != 10000 {
		t.Errorf("MonthlyCostCents = %d, want 10000", got)
	}
	if got := MonthlyCostCents(5000, 0); got != 5000 {
		t.Errorf("zero months should floor to one, got %d", got)
	}
}

func TestProjectedExpiry(t *testing.T) {
	t.Parallel()
	// Jan 31 + 1 month normalizes past the short February.
	if got := ProjectedExpiry(date(2026, 1, 31), 1); !got.Equal(date(2026, 3, 3)) {
		t.Errorf("ProjectedExpiry = %v, want 2026-03-03", got)
	}
	if got := ProjectedExpiry(date(2026, 3, 10), 12); !got.Equal(date(2027, 3, 10)) {
		t.Errorf("ProjectedExpiry = %v, want 2027-03-10", got)
	}
}

func TestMonthKey(t *testing.T) {
	t.Parallel()
	if got := MonthKey(time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)); got != "2026-08" {
		t.Errorf("MonthKey = %q, want 2026-08", got)
	}
}
