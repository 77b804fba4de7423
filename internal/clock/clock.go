// Package clock supplies the current time to code that must not read the system clock directly.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

type System struct{}

func (System) Now() time.Time {
	return time.Now().UTC()
}

// Fixed always reports the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time {
	return time.Time(f)
}

// Today returns the calendar date of now in loc as midnight UTC.
func Today(c Clock, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}

	y, m, d := c.Now().In(loc).Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
