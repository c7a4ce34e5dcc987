// Package session rebuilds work sessions from an attendance ledger.
//
// Reconstruction is a single left-to-right scan holding at most one pending
// entry. It never fails: irregular sequences are resolved deterministically
// and reported as anomalies for data-quality monitoring.
package session

import (
	"time"

	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/ledger"
)

// Session is a derived work interval. End is nil while the session is open.
type Session struct {
	EmployeeID string
	// ProjectID is the project scope of the ENTER that opened the session.
	ProjectID string
	Start     time.Time
	End       *time.Time
}

// Open reports whether the session has no end yet.
func (s Session) Open() bool {
	return s.End == nil
}

// EndOr returns End, or fallback for an open session.
func (s Session) EndOr(fallback time.Time) time.Time {
	if s.End == nil {
		return fallback
	}
	return *s.End
}

// AnomalyKind classifies an irregular ledger sequence.
type AnomalyKind string

const (
	// AnomalyDoubleEntry is an ENTER while another entry is pending; the
	// pending session is closed at the new ENTER.
	AnomalyDoubleEntry AnomalyKind = "double_entry"
	// AnomalyOrphanExit is an EXIT with no pending entry; it is ignored.
	AnomalyOrphanExit AnomalyKind = "orphan_exit"
	// AnomalyExitBeforeEntry is an EXIT earlier than the pending entry; it
	// is dropped and the entry stays pending.
	AnomalyExitBeforeEntry AnomalyKind = "exit_before_entry"
	// AnomalyZeroLength is a close at exactly the entry instant; no session
	// is emitted for it.
	AnomalyZeroLength AnomalyKind = "zero_length"
	// AnomalyOpenAtEnd is an entry still pending when the input ends.
	AnomalyOpenAtEnd AnomalyKind = "open_at_end"
)

// Anomaly records one irregularity and the event that caused it.
type Anomaly struct {
	Kind AnomalyKind
	At   time.Time
	Seq  int64
}

// Result is the output of Reconstruct.
type Result struct {
	Sessions  []Session
	Anomalies []Anomaly
}

// CountByKind tallies anomalies per kind.
func (r Result) CountByKind() map[AnomalyKind]int {
	counts := make(map[AnomalyKind]int, len(r.Anomalies))
	for _, a := range r.Anomalies {
		counts[a.Kind]++
	}
	return counts
}

// Reconstruct converts one employee's events, in ledger order, into
// non-overlapping sessions with Start < End. At most the last session is open.
func Reconstruct(events []ledger.Event) Result {
	var (
		result  Result
		pending *ledger.Event
	)

	closeAt := func(entry ledger.Event, end time.Time, cause ledger.Event) {
		if !end.After(entry.OccurredAt) {
			result.Anomalies = append(result.Anomalies, Anomaly{Kind: AnomalyZeroLength, At: end, Seq: cause.Seq})
			return
		}
		result.Sessions = append(result.Sessions, Session{
			EmployeeID: entry.EmployeeID,
			ProjectID:  entry.ProjectID,
			Start:      entry.OccurredAt,
			End:        &end,
		})
	}

	for _, evt := range events {
		switch evt.Action {
		case ledger.ActionEnter:
			if pending != nil {
				result.Anomalies = append(result.Anomalies, Anomaly{Kind: AnomalyDoubleEntry, At: evt.OccurredAt, Seq: evt.Seq})
				closeAt(*pending, evt.OccurredAt, evt)
			}
			entry := evt
			pending = &entry
		case ledger.ActionExit:
			switch {
			case pending == nil:
				result.Anomalies = append(result.Anomalies, Anomaly{Kind: AnomalyOrphanExit, At: evt.OccurredAt, Seq: evt.Seq})
			case evt.OccurredAt.Before(pending.OccurredAt):
				result.Anomalies = append(result.Anomalies, Anomaly{Kind: AnomalyExitBeforeEntry, At: evt.OccurredAt, Seq: evt.Seq})
			default:
				closeAt(*pending, evt.OccurredAt, evt)
				pending = nil
			}
		}
	}

	if pending != nil {
		result.Anomalies = append(result.Anomalies, Anomaly{Kind: AnomalyOpenAtEnd, At: pending.OccurredAt, Seq: pending.Seq})
		result.Sessions = append(result.Sessions, Session{
			EmployeeID: pending.EmployeeID,
			ProjectID:  pending.ProjectID,
			Start:      pending.OccurredAt,
		})
	}
	return result
}
