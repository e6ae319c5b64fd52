package model

import "time"

// MonthOf normalizes a timestamp to the first of its month at midnight UTC.
// That date is the period key for budgets and alerts.
func MonthOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthBounds returns the [start, end) window for the month containing the
// given period key. The end is the first instant of the following month, so
// December rolls over to January of the next year.
func MonthBounds(month time.Time) (start, end time.Time) {
	start = MonthOf(month)
	end = start.AddDate(0, 1, 0)
	return start, end
}

// MonthKey renders a period key in the canonical storage form.
func MonthKey(month time.Time) string {
	return MonthOf(month).Format("2006-01")
}

// ParseMonthKey parses a canonical period key back into a first-of-month date.
func ParseMonthKey(key string) (time.Time, error) {
	return time.Parse("2006-01", key)
}
