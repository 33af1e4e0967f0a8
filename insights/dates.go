package insights

import "time"

// civilDate truncates a timestamp to its calendar date.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysUntil returns the whole calendar days from today until t. Negative
// means t is in the past. Callers must check for the zero time themselves;
// a missing date never reaches this function.
func daysUntil(today, t time.Time) int {
	return int(civilDate(t).Sub(civilDate(today)).Hours() / 24)
}
