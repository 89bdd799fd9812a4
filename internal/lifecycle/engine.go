// Package lifecycle derives an exam's status from its calendar dates.
//
// Dates are civil days. They are compared against the calendar day of now in now's
// location, so callers pick the time zone by choosing which location now carries.
package lifecycle

import "time"

type Status string

const (
	StatusComingSoon Status = "Coming Soon"
	StatusOpen       Status = "Open"
	StatusClosed     Status = "Closed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusComingSoon, StatusOpen, StatusClosed:
		return true
	default:
		return false
	}
}

// rank orders statuses by freshness. It only ever increases as time passes.
func (s Status) rank() int {
	switch s {
	case StatusComingSoon:
		return 0
	case StatusOpen:
		return 1
	case StatusClosed:
		return 2
	default:
		return -1
	}
}

// Dates holds the exam fields status depends on. Nil means unknown.
type Dates struct {
	ApplicationStart *time.Time
	ApplicationClose *time.Time
	Exam             *time.Time
}

// Derive returns the status of an exam on the calendar day of now.
//
// The application window closes at the end of ApplicationClose, or at the end of the
// exam day when no close date is known. It opens on ApplicationStart; without a start
// date an exam whose window has not closed is Open.
func Derive(d Dates, now time.Time) Status {
	today := civil(now)

	closeDate := d.ApplicationClose
	if closeDate == nil {
		closeDate = d.Exam
	}
	if closeDate != nil && civilOf(*closeDate).before(today) {
		return StatusClosed
	}
	if d.ApplicationStart != nil && today.before(civilOf(*d.ApplicationStart)) {
		return StatusComingSoon
	}
	return StatusOpen
}

type day struct {
	year  int
	month time.Month
	day   int
}

// civil is the calendar day of t in t's own location.
func civil(t time.Time) day {
	y, m, d := t.Date()
	return day{y, m, d}
}

// civilOf reads a stored date. Stored dates carry their day in UTC regardless of the
// location the driver attached, so the UTC calendar fields are authoritative.
func civilOf(t time.Time) day {
	y, m, d := t.UTC().Date()
	return day{y, m, d}
}

func (a day) before(b day) bool {
	if a.year != b.year {
		return a.year < b.year
	}
	if a.month != b.month {
		return a.month < b.month
	}
	return a.day < b.day
}
