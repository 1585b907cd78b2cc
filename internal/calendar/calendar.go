// Package calendar holds the working-day arithmetic every date-relative rule
// builds on. Everything here operates on calendar dates (UTC midnight), never
// on instants, so results do not depend on server time zone.
package calendar

import (
	"time"

	"github.com/leavedesk/leave-management/internal"
)

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewDate builds a calendar date.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// WorkingDays counts the Monday-to-Friday dates in [start, end] inclusive.
// A weekend-only range legitimately yields 0; the only invalid input is an
// inverted range.
func WorkingDays(start, end time.Time) (int, error) {
	start, end = DateOf(start), DateOf(end)
	if start.After(end) {
		return 0, internal.ErrInvalidRange
	}

	count := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if !isWeekend(d) {
			count++
		}
	}
	return count, nil
}

// Overlaps reports whether the inclusive ranges [aStart, aEnd] and
// [bStart, bEnd] share at least one calendar day.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !DateOf(aStart).After(DateOf(bEnd)) && !DateOf(aEnd).Before(DateOf(bStart))
}

// Clock supplies "now" to date-relative validation. Services never read the
// wall clock directly; tests substitute a fixed clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func SystemClock() Clock { return systemClock{} }

// FixedClock returns a Clock pinned to t.
func FixedClock(t time.Time) Clock { return fixedClock{t} }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }
