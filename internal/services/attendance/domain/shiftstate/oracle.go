// Package shiftstate answers whether a shift is open today.
//
// The answer is derived from the latest event alone, not from full session
// reconstruction. A stale ENTER with no matching EXIT counts as open only when
// it happened on the current local date, so the two views can disagree for
// sessions left open across midnight.
package shiftstate

import (
	"time"

	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/ledger"
)

// Active reports whether latest is an ENTER on the same local date as now.
func Active(latest *ledger.Event, loc *time.Location, now time.Time) bool {
	if latest == nil || latest.Action != ledger.ActionEnter {
		return false
	}
	if loc == nil {
		loc = time.UTC
	}
	return SameDate(latest.OccurredAt, now, loc)
}

// SameDate reports whether a and b fall on the same calendar date in loc.
func SameDate(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
