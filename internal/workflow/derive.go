package workflow

import "time"

// Bounds for the per-subscription renewal alert window, in days before
// expiry.
const (
    MinAlertDays = 1
    MaxAlertDays = 60
)

// MonthsBetween returns the calendar-month difference between two dates,
// floored at 1 so a same-month range is treated as a one-time month.
func MonthsBetween(start, end time.Time) int {
    months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
    if months < 1 {
        return 1
    }
    return months
}

// ClampAlertDays forces an alert window into the allowed 1-60 range,
// substituting the given default for zero or negative input.
func ClampAlertDays(days, def int) int {
    if days <= 0 {
        days = def
    }
    if days < MinAlertDays {
        return MinAlertDays
    }
    if days > MaxAlertDays {
        return MaxAlertDays
    }
    return days
}

// DaysUntil returns whole days from now until the given date, negative
// once the date has passed. Both times are truncated to their calendar
// day in UTC so the result does not flap within a day.
func DaysUntil(now, date time.Time) int {
    nowDay := time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), 0, 0, 0, 0, time.UTC)
    dateDay := time.Date(date.UTC().Year(), date.UTC().Month(), date.UTC().Day(), 0, 0, 0, 0, time.UTC)
    return int(dateDay.Sub(nowDay) / (24 * time.Hour))
}

// AlertEligible reports whether a subscription with the given expiry and
// alert window should raise a renewal alert: the expiry lies within the
// window, or has already passed.
func AlertEligible(now, expiry time.Time, alertDays int) bool {
    d := DaysUntil(now, expiry)
    if d < 0 {
        return true // already expired
    }
    return d <= alertDays
}

// SameCalendarDay reports whether two instants fall on the same UTC
// calendar day. Used to keep the renewal alert idempotent per day.
func SameCalendarDay(a, b time.Time) bool {
    ay, am, ad := a.UTC().Date()
    by, bm, bd := b.UTC().Date()
    return ay == by && am == bm && ad == bd
}

// MonthKey formats an instant as the "2006-01" key used by the monthly
// continuation map.
func MonthKey(t time.Time) string {
    return t.UTC().Format("2006-01")
}

// MonthlyCostCents returns the monthly-equivalent cost of a subscription
// priced for the given number of months.
func MonthlyCostCents(costCents int64, months int) int64 {
    if months < 1 {
        months = 1
    }
    return costCents / int64(months)
}

// ProjectedExpiry is the expiry a subscription would get if it were paid
// now-as-requested: request date plus duration in months. Until payment
// this is a display projection, not persisted truth.
func ProjectedExpiry(requestDate time.Time, durationMonths int) time.Time {
    return requestDate.AddDate(0, durationMonths, 0)
}
