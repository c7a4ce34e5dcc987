package attendance

import (
	"time"

	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/ledger"
	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/presence"
	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/timesheet"
	"github.com/shiftproof/shiftproof/internal/services/attendance/service"
)

type dayJSON struct {
	Day        int     `json:"day"`
	InMonth    bool    `json:"in_month"`
	FirstStart *string `json:"first_start,omitempty"`
	LastEnd    *string `json:"last_end,omitempty"`
	Minutes    float64 `json:"minutes"`
}

type anomalyJSON struct {
	Kind string `json:"kind"`
	At   string `json:"at"`
}

type timesheetJSON struct {
	EmployeeID   string        `json:"employee_id"`
	ProjectID    string        `json:"project_id,omitempty"`
	Month        string        `json:"month"`
	Timezone     string        `json:"timezone"`
	Days         []dayJSON     `json:"days"`
	TotalMinutes float64       `json:"total_minutes"`
	Anomalies    []anomalyJSON `json:"anomalies"`
}

func timesheetResponse(m timesheet.MonthTimesheet) timesheetJSON {
	loc := m.Location
	if loc == nil {
		loc = time.UTC
	}
	out := timesheetJSON{
		EmployeeID:   m.EmployeeID,
		ProjectID:    m.ProjectID,
		Month:        m.Month.String(),
		Timezone:     loc.String(),
		Days:         make([]dayJSON, 0, len(m.Days)),
		TotalMinutes: m.TotalMinutes(),
		Anomalies:    make([]anomalyJSON, 0, len(m.Anomalies)),
	}
	for _, d := range m.Days {
		out.Days = append(out.Days, dayJSON{
			Day:        d.Day,
			InMonth:    d.InMonth,
			FirstStart: localTime(d.FirstStart, loc),
			LastEnd:    localTime(d.LastEnd, loc),
			Minutes:    d.Minutes(),
		})
	}
	for _, a := range m.Anomalies {
		out.Anomalies = append(out.Anomalies, anomalyJSON{Kind: string(a.Kind), At: a.At.In(loc).Format(time.RFC3339)})
	}
	return out
}

func localTime(t *time.Time, loc *time.Location) *string {
	if t == nil {
		return nil
	}
	s := t.In(loc).Format(time.RFC3339)
	return &s
}

// challengeJSON hides the fire time until it has passed.
type challengeJSON struct {
	ID           string  `json:"id"`
	ProjectID    string  `json:"project_id"`
	CalendarDate string  `json:"calendar_date"`
	Slot         int     `json:"slot"`
	Revealed     bool    `json:"revealed"`
	FiredAt      *string `json:"fired_at,omitempty"`
	Deadline     string  `json:"deadline"`
	RadiusMeters float64 `json:"radius_meters"`
	Responded    bool    `json:"responded"`
	RespondedAt  *string `json:"responded_at,omitempty"`
}

func challengeResponse(c presence.Challenge, now time.Time) challengeJSON {
	loc := c.Location()
	out := challengeJSON{
		ID:           c.ID,
		ProjectID:    c.ProjectID,
		CalendarDate: c.CalendarDate.String(),
		Slot:         int(c.Slot),
		Revealed:     c.Revealed(now),
		Deadline:     c.Deadline().Format(time.RFC3339),
		RadiusMeters: c.RadiusMeters,
		Responded:    c.Responded,
		RespondedAt:  localTime(c.RespondedAt, loc),
	}
	if out.Revealed {
		out.FiredAt = localTime(&c.FiredAt, loc)
	}
	return out
}

type challengeListJSON struct {
	Challenges []challengeJSON `json:"challenges"`
}

func challengeListResponse(list []presence.Challenge, now time.Time) challengeListJSON {
	out := challengeListJSON{Challenges: make([]challengeJSON, 0, len(list))}
	for _, c := range list {
		out.Challenges = append(out.Challenges, challengeResponse(c, now))
	}
	return out
}

type outcomeJSON struct {
	Accepted       bool     `json:"accepted"`
	Reason         string   `json:"reason,omitempty"`
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
	Deadline       string   `json:"deadline,omitempty"`
}

func outcomeResponse(o presence.Outcome) outcomeJSON {
	out := outcomeJSON{
		Accepted:       o.Accepted,
		Reason:         string(o.Reason),
		DistanceMeters: o.DistanceMeters,
	}
	if !o.Deadline.IsZero() {
		out.Deadline = o.Deadline.Format(time.RFC3339)
	}
	return out
}

type eventJSON struct {
	Seq        int64    `json:"seq"`
	ProjectID  string   `json:"project_id,omitempty"`
	Action     string   `json:"action"`
	OccurredAt string   `json:"occurred_at"`
	Lat        *float64 `json:"lat,omitempty"`
	Lng        *float64 `json:"lng,omitempty"`
}

func eventResponse(evt ledger.Event) eventJSON {
	out := eventJSON{
		Seq:        evt.Seq,
		ProjectID:  evt.ProjectID,
		Action:     string(evt.Action),
		OccurredAt: evt.OccurredAt.UTC().Format(time.RFC3339),
	}
	if evt.Geo != nil {
		lat, lng := evt.Geo.Lat, evt.Geo.Lng
		out.Lat, out.Lng = &lat, &lng
	}
	return out
}

type eventPageJSON struct {
	Events        []eventJSON `json:"events"`
	NextPageToken string      `json:"next_page_token,omitempty"`
}

func eventPageResponse(page service.EventsPage) eventPageJSON {
	out := eventPageJSON{Events: make([]eventJSON, 0, len(page.Events)), NextPageToken: page.NextPageToken}
	for _, evt := range page.Events {
		out.Events = append(out.Events, eventResponse(evt))
	}
	return out
}

type createChallengeRequest struct {
	Slot int `json:"slot"`
}

type fireTimeRequest struct {
	FiredAt *time.Time `json:"fired_at"`
}

type respondRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type toggleRequest struct {
	OccurredAt *time.Time `json:"occurred_at"`
	Lat        *float64   `json:"lat"`
	Lng        *float64   `json:"lng"`
}
