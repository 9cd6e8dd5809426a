package scheduler

import "time"

// Date identifies a calendar day independent of time-of-day and zone.
// It is comparable and therefore usable as a map key.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf truncates an instant to its calendar day in the instant's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a day in ISO 8601 form (2006-01-02).
func ParseDate(value string) (Date, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Time returns midnight UTC on the day.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the day n days after d; n may be negative.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Weekday returns the day of week.
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// ISOWeek returns the ISO 8601 year and week number.
func (d Date) ISOWeek() (int, int) {
	return d.Time().ISOWeek()
}

// Before reports whether d falls strictly before other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// After reports whether d falls strictly after other.
func (d Date) After(other Date) bool {
	return other.Before(d)
}

// IsZero reports whether d is the zero value.
func (d Date) IsZero() bool {
	return d == Date{}
}

// DaysUntil returns the signed number of days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Time().Sub(d.Time()) / (24 * time.Hour))
}

// String renders the day in ISO 8601 form.
func (d Date) String() string {
	return d.Time().Format("2006-01-02")
}

// DateRange is an inclusive span of days.
type DateRange struct {
	From Date
	To   Date
}

// Contains reports whether day falls within the range, inclusive of both ends.
func (r DateRange) Contains(day Date) bool {
	return !day.Before(r.From) && !day.After(r.To)
}

// Days enumerates every day in the range in ascending order.
func (r DateRange) Days() []Date {
	if r.To.Before(r.From) {
		return nil
	}
	days := make([]Date, 0, r.From.DaysUntil(r.To)+1)
	for day := r.From; !day.After(r.To); day = day.AddDays(1) {
		days = append(days, day)
	}
	return days
}

// weekStart returns the Monday on or before the day, matching ISO week
// boundaries used by the weekly cap.
func weekStart(day Date) Date {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDays(-offset)
}
