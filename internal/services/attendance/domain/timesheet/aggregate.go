// Package timesheet aggregates sessions into local-day and month totals.
package timesheet

import (
	"time"

	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/session"
)

// MaxDays is the fixed length of the per-day array.
const MaxDays = 31

// Day summarizes one local calendar day. Days past the end of the month are
// zero-valued placeholders with InMonth false.
type Day struct {
	Day        int
	InMonth    bool
	FirstStart *time.Time
	LastEnd    *time.Time
	Duration   time.Duration
}

// Minutes returns the worked time in minutes, including fractions.
func (d Day) Minutes() float64 {
	return d.Duration.Minutes()
}

// MonthTimesheet is the derived monthly summary for one employee.
type MonthTimesheet struct {
	EmployeeID string
	ProjectID  string
	Month      Month
	Location   *time.Location
	Days       [MaxDays]Day
	Total      time.Duration
	Anomalies  []session.Anomaly
}

// TotalMinutes returns the month total in minutes.
func (m MonthTimesheet) TotalMinutes() float64 {
	return m.Total.Minutes()
}

// Aggregate clips sessions to the month window in loc and splits them at local
// midnights. Open sessions end at now, or at month end when now is later.
func Aggregate(employeeID string, month Month, loc *time.Location, sessions []session.Session, now time.Time) MonthTimesheet {
	if loc == nil {
		loc = time.UTC
	}
	sheet := MonthTimesheet{EmployeeID: employeeID, Month: month, Location: loc}
	daysInMonth := month.Days()
	for i := range sheet.Days {
		sheet.Days[i] = Day{Day: i + 1, InMonth: i < daysInMonth}
	}

	windowStart, windowEnd := month.Window(loc)
	for _, s := range sessions {
		start := s.Start
		end := s.EndOr(now)
		if start.Before(windowStart) {
			start = windowStart
		}
		if end.After(windowEnd) {
			end = windowEnd
		}
		for start.Before(end) {
			local := start.In(loc)
			partEnd := end
			if boundary := nextDayBoundary(local, loc); boundary.Before(partEnd) {
				partEnd = boundary
			}
			sheet.Days[local.Day()-1].add(start, partEnd)
			start = partEnd
		}
	}

	for _, d := range sheet.Days {
		sheet.Total += d.Duration
	}
	return sheet
}

// nextDayBoundary returns the start of the local day after local's, which is
// always after local. A midnight repeated by a fall-back transition is counted
// from its later occurrence when local is already past the earlier one.
func nextDayBoundary(local time.Time, loc *time.Location) time.Time {
	y, m, d := local.Date()
	next := dayStart(y, m, d+1, loc)
	if !next.After(local) {
		next = local.Add(untilMidnight(local))
	}
	return next
}

func (d *Day) add(start, end time.Time) {
	d.Duration += end.Sub(start)
	if d.FirstStart == nil || start.Before(*d.FirstStart) {
		first := start
		d.FirstStart = &first
	}
	if d.LastEnd == nil || end.After(*d.LastEnd) {
		last := end
		d.LastEnd = &last
	}
}
