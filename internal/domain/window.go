package domain

import "time"

// ReportWindow is the [From, To] timestamp range a report aggregates over.
type ReportWindow struct {
	From time.Time
	To   time.Time
}

// NewReportWindow derives a window from day offsets relative to now:
// From is fromDays ago at 00:00:00, To is toDays ago at 23:59:59.
// Both boundaries are in UTC.
func NewReportWindow(now time.Time, fromDays, toDays int) ReportWindow {
	now = now.UTC()
	from := now.AddDate(0, 0, -fromDays)
	to := now.AddDate(0, 0, -toDays)
	return ReportWindow{
		From: time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC),
		To:   time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, time.UTC),
	}
}

// Contains reports whether t falls inside the window, boundaries included.
func (w ReportWindow) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}
