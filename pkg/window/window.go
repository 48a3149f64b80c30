// Package window decides which calendar days a run covers.
//
// A Window spans Reference-DaysBack through Reference, inclusive on both ends,
// so a zero-day window still covers the reference day itself. Days are kept
// as UTC midnights carrying the reference's local calendar date, so zones
// whose DST shift skips local midnight cannot repeat or drop a day.
package window

import (
	"regexp"
	"strings"
	"time"
)

// DefaultDaysBack is used when the operator gives no usable value
const DefaultDaysBack = 7

// Window is the inclusive range of days a run fetches
type Window struct {
	DaysBack int
	// Reference is the last day covered, as a UTC midnight
	Reference time.Time
}

// New builds a window ending on the calendar day of reference, read in
// reference's own location. Negative daysBack falls back to DefaultDaysBack.
func New(daysBack int, reference time.Time) Window {
	if daysBack < 0 {
		daysBack = DefaultDaysBack
	}
	return Window{
		DaysBack:  daysBack,
		Reference: day(reference),
	}
}

// Start returns the first day in the window
func (w Window) Start() time.Time {
	return w.offset(-w.DaysBack)
}

// Dates returns every day in the window in ascending order
func (w Window) Dates() []time.Time {
	dates := make([]time.Time, 0, w.DaysBack+1)
	for i := -w.DaysBack; i <= 0; i++ {
		dates = append(dates, w.offset(i))
	}
	return dates
}

// Contains reports whether the calendar date of t, in t's location, falls
// inside the window
func (w Window) Contains(t time.Time) bool {
	d := day(t)
	return !d.Before(w.Start()) && !d.After(w.Reference)
}

// offset is rebuilt from the calendar fields; time.Date normalizes overflow
func (w Window) offset(days int) time.Time {
	y, m, d := w.Reference.Date()
	return time.Date(y, m, d+days, 0, 0, 0, 0, time.UTC)
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// date patterns found in listing rows, link text and file names
var datePatterns = []struct {
	re     *regexp.Regexp
	layout string
}{
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}`), "2006-01-02"},
	{regexp.MustCompile(`\d{4}_\d{2}_\d{2}`), "2006_01_02"},
	{regexp.MustCompile(`\d{2}-[A-Za-z]{3}-\d{4}`), "02-Jan-2006"},
	{regexp.MustCompile(`(?:^|\D)(\d{8})(?:\D|$)`), "20060102"},
}

// ExtractDate finds the first recognizable date in s. Formats are tried in a
// fixed order and candidates that do not parse as real dates are skipped.
func ExtractDate(s string) (time.Time, bool) {
	for _, p := range datePatterns {
		for _, m := range p.re.FindAllStringSubmatch(s, -1) {
			candidate := m[0]
			if len(m) > 1 {
				candidate = m[1]
			}
			if p.layout == "02-Jan-2006" {
				candidate = normalizeMonth(candidate)
			}
			if t, err := time.Parse(p.layout, candidate); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// normalizeMonth turns "05-JAN-2024" into "05-Jan-2024" for time.Parse
func normalizeMonth(s string) string {
	if len(s) != 11 {
		return s
	}
	return s[:3] + strings.ToUpper(s[3:4]) + strings.ToLower(s[4:6]) + s[6:]
}
