// Package presence models geofenced proof-of-presence challenges.
package presence

import (
	"strconv"
	"time"

	apperrors "github.com/shiftproof/shiftproof/internal/platform/errors"
)

// Slot numbers one of the day's scheduled challenges.
type Slot int

const (
	SlotMorning   Slot = 1
	SlotAfternoon Slot = 2
)

// Slots lists every daily slot in fire order.
var Slots = []Slot{SlotMorning, SlotAfternoon}

// schedule holds local wall-clock hours for one slot. Fire times fall in
// [fireFrom, fireUntil); responses are accepted until the deadline.
type schedule struct {
	fireFrom  int
	fireUntil int
	deadline  int
}

var schedules = map[Slot]schedule{
	SlotMorning:   {fireFrom: 8, fireUntil: 11, deadline: 12},
	SlotAfternoon: {fireFrom: 13, fireUntil: 16, deadline: 17},
}

// ParseSlot validates a slot number.
func ParseSlot(n int) (Slot, error) {
	slot := Slot(n)
	if _, ok := schedules[slot]; !ok {
		return 0, apperrors.WithMetadata(apperrors.CodeChallengeInvalidSlot, "slot must be 1 or 2", map[string]string{"Slot": strconv.Itoa(n)})
	}
	return slot, nil
}

// FireWindow returns the half-open window a fire time is drawn from.
func (s Slot) FireWindow(date Date, loc *time.Location) (time.Time, time.Time) {
	sched := schedules[s]
	return date.At(sched.fireFrom, loc), date.At(sched.fireUntil, loc)
}

// Deadline returns the fixed response cutoff for the slot on date.
func (s Slot) Deadline(date Date, loc *time.Location) time.Time {
	return date.At(schedules[s].deadline, loc)
}

// Challenge is one scheduled presence check for an employee on a project.
type Challenge struct {
	ID           string
	EmployeeID   string
	ProjectID    string
	SiteLat      float64
	SiteLng      float64
	RadiusMeters float64
	// Timezone is the project timezone the calendar date and deadline use.
	Timezone     string
	CalendarDate Date
	Slot         Slot
	FiredAt      time.Time
	Responded    bool
	RespondedAt  *time.Time
	CreatedAt    time.Time
}

// Location resolves the challenge timezone. Stores refuse to write or read an
// unknown zone name, so only a zero-value Timezone resolves to UTC here.
func (c Challenge) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Deadline returns the response cutoff for the challenge.
func (c Challenge) Deadline() time.Time {
	return c.Slot.Deadline(c.CalendarDate, c.Location())
}

// Revealed reports whether the fire time has passed at now.
func (c Challenge) Revealed(now time.Time) bool {
	return !now.Before(c.FiredAt)
}
