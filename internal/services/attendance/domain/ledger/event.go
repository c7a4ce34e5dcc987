// Package ledger defines the append-only attendance event model.
//
// Events are written by the scan front door and are never edited. Ordering is
// by OccurredAt, ties broken by insertion sequence.
package ledger

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Action is the direction of a clock toggle.
type Action string

const (
	ActionEnter Action = "ENTER"
	ActionExit  Action = "EXIT"
)

// ParseAction normalizes a wire value into an Action.
func ParseAction(raw string) (Action, error) {
	switch Action(strings.ToUpper(strings.TrimSpace(raw))) {
	case ActionEnter:
		return ActionEnter, nil
	case ActionExit:
		return ActionExit, nil
	default:
		return "", fmt.Errorf("unknown attendance action %q", raw)
	}
}

// Opposite returns the action a toggle produces after a.
func (a Action) Opposite() Action {
	if a == ActionEnter {
		return ActionExit
	}
	return ActionEnter
}

// Geo is an optional reported position.
type Geo struct {
	Lat float64
	Lng float64
}

// Event is one immutable toggle in an employee's ledger.
type Event struct {
	// Seq is the storage insertion sequence; it breaks OccurredAt ties.
	Seq        int64
	EmployeeID string
	// ProjectID is empty for events recorded without a project scope.
	ProjectID  string
	Action     Action
	OccurredAt time.Time
	Geo        *Geo
}

// Compare orders events by OccurredAt then Seq.
func Compare(a, b Event) int {
	if c := a.OccurredAt.Compare(b.OccurredAt); c != 0 {
		return c
	}
	return cmp.Compare(a.Seq, b.Seq)
}

// Sort orders events in place by ledger order.
func Sort(events []Event) {
	slices.SortStableFunc(events, Compare)
}

// Latest returns the chronologically last event, or nil for an empty slice.
func Latest(events []Event) *Event {
	if len(events) == 0 {
		return nil
	}
	latest := events[0]
	for _, evt := range events[1:] {
		if Compare(evt, latest) > 0 {
			latest = evt
		}
	}
	return &latest
}
