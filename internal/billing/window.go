package billing

import "time"

// Window is one billing month as a half-open UTC interval [Start, End):
// Start is 00:00:00 UTC on day 1 of the month, End is 00:00:00 UTC on day 1
// of the following month.
type Window struct {
	Start time.Time
	End   time.Time
}

// MonthWindow returns the billing window for a calendar month
func MonthWindow(year int, month time.Month) Window {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Window{
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}
}

// CurrentMonth returns the billing window containing now
func CurrentMonth(now time.Time) Window {
	now = now.UTC()
	return MonthWindow(now.Year(), now.Month())
}

// PreviousMonth returns the billing window for the month before now.
// This is the default invoicing period: invoices are generated for closed
// months, not the one still running.
func PreviousMonth(now time.Time) Window {
	now = now.UTC()
	return MonthWindow(now.Year(), now.Month()).previous()
}

func (w Window) previous() Window {
	start := w.Start.AddDate(0, -1, 0)
	return Window{Start: start, End: w.Start}
}

// Year returns the calendar year of the window
func (w Window) Year() int {
	return w.Start.Year()
}

// Month returns the calendar month of the window
func (w Window) Month() time.Month {
	return w.Start.Month()
}

// Days returns the actual day count of the billing month (28-31).
// Invoice rates always divide by this, never by a flat 30.
func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours() / 24)
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(w.Start) && t.Before(w.End)
}
