// Package dates holds calendar arithmetic shared by registration flows.
package dates

import "time"

// LeapSafeAddYears adds years to t, keeping the month, clock time and location.
// A day past the end of the target month is clamped to its last day, so Feb 29
// plus one year is Feb 28 rather than time.AddDate's Mar 1.
func LeapSafeAddYears(t time.Time, years int) time.Time {
	if years == 0 {
		return t
	}
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()
	targetYear := year + years
	if last := DaysIn(targetYear, month); day > last {
		day = last
	}
	return time.Date(targetYear, month, day, hour, minute, sec, t.Nanosecond(), t.Location())
}

// DaysIn returns the number of days in month of year.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// EarliestOf returns the earlier of a and b.
func EarliestOf(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}
