package timesheet

import (
	"fmt"
	"time"
)

// Month identifies a calendar month independent of timezone.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a YYYY-MM month key.
func ParseMonth(raw string) (Month, error) {
	parsed, err := time.Parse("2006-01", raw)
	if err != nil {
		return Month{}, fmt.Errorf("parse month %q: %w", raw, err)
	}
	return Month{Year: parsed.Year(), Month: parsed.Month()}, nil
}

// MonthOf returns the month containing t in loc.
func MonthOf(t time.Time, loc *time.Location) Month {
	local := t.In(loc)
	return Month{Year: local.Year(), Month: local.Month()}
}

// String renders the month as YYYY-MM.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Window returns the half-open interval [start, end) of the month in loc.
func (m Month) Window(loc *time.Location) (time.Time, time.Time) {
	return dayStart(m.Year, m.Month, 1, loc), dayStart(m.Year, m.Month+1, 1, loc)
}

// dayStart returns the first instant whose local date in loc is the given
// (normalized) date. Where a transition skips local midnight, that is the
// transition itself rather than the hour time.Date resolves to on the
// previous day.
func dayStart(year int, month time.Month, day int, loc *time.Location) time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, loc)
	want := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	for localDate(t, loc).Before(want) {
		t = t.Add(untilMidnight(t.In(loc)))
	}
	return t
}

func localDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// untilMidnight is the wall-clock time left in local's day; always positive.
func untilMidnight(local time.Time) time.Duration {
	elapsed := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second +
		time.Duration(local.Nanosecond())
	return 24*time.Hour - elapsed
}

// Days returns the number of calendar days in the month.
func (m Month) Days() int {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
