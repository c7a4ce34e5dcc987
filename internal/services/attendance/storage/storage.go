package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/ledger"
	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/presence"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness constraint rejected a write.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrAlreadyResponded indicates a challenge left the unanswered state
	// before the write landed.
	ErrAlreadyResponded = errors.New("challenge already responded")
)

// TimePrecision is the resolution stored timestamps keep. Writers truncate to
// it so the value they hold matches what a later read returns.
const TimePrecision = time.Millisecond

// EventQuery scopes a ledger read for one employee.
type EventQuery struct {
	EmployeeID string
	// ProjectID limits the read to one project when set.
	ProjectID string
}

// ListEventsPageRequest pages an employee's ledger newest first.
type ListEventsPageRequest struct {
	EmployeeID string
	PageSize   int
	// BeforeSeq returns only events with seq lower than this value (0 for the first page).
	BeforeSeq int64
	// FilterClause is an optional SQL WHERE clause fragment.
	FilterClause string
	// FilterParams are the positional parameters for the filter clause.
	FilterParams []any
}

// ListEventsPageResult is one page of ledger events.
type ListEventsPageResult struct {
	Events []ledger.Event
	// NextBeforeSeq is the cursor for the following page, zero when exhausted.
	NextBeforeSeq int64
}

// EventStore persists the append-only attendance ledger.
type EventStore interface {
	// AppendEvent stores evt and returns it with its assigned Seq.
	AppendEvent(ctx context.Context, evt ledger.Event) (ledger.Event, error)
	// LatestEvent returns the newest event in ledger order or ErrNotFound.
	LatestEvent(ctx context.Context, query EventQuery) (ledger.Event, error)
	// LatestEventBefore returns the newest event strictly before t or ErrNotFound.
	LatestEventBefore(ctx context.Context, query EventQuery, t time.Time) (ledger.Event, error)
	// ListEventsBetween returns events in [from, until) in ledger order.
	ListEventsBetween(ctx context.Context, query EventQuery, from, until time.Time) ([]ledger.Event, error)
	ListEventsPage(ctx context.Context, req ListEventsPageRequest) (ListEventsPageResult, error)
}

// ChallengeKey identifies a challenge by its unique tuple.
type ChallengeKey struct {
	EmployeeID   string
	ProjectID    string
	CalendarDate presence.Date
	Slot         presence.Slot
}

// ChallengeStore persists presence challenges.
type ChallengeStore interface {
	// CreateChallenge inserts c or returns ErrAlreadyExists when its key is taken.
	CreateChallenge(ctx context.Context, c presence.Challenge) error
	GetChallenge(ctx context.Context, challengeID string) (presence.Challenge, error)
	GetChallengeByKey(ctx context.Context, key ChallengeKey) (presence.Challenge, error)
	// ListChallenges returns the day's challenges ordered by slot.
	ListChallenges(ctx context.Context, employeeID, projectID string, date presence.Date) ([]presence.Challenge, error)
	// ReplaceFireTime moves an unanswered challenge's fire time. It returns
	// ErrNotFound for an unknown key and ErrAlreadyResponded once answered.
	ReplaceFireTime(ctx context.Context, key ChallengeKey, firedAt time.Time) (presence.Challenge, error)
	// MarkResponded flips responded from false to true. It returns
	// ErrAlreadyResponded when another response won.
	MarkResponded(ctx context.Context, challengeID string, respondedAt time.Time) error
}

// Project is the local replica of a registry project.
type Project struct {
	ID string
	// Site is nil when the registry has no coordinates.
	Site *presence.Anchor
	// RadiusMeters is zero when the registry defines none.
	RadiusMeters float64
	// Timezone is an IANA name, empty when the registry defines none.
	Timezone  string
	UpdatedAt time.Time
}

// Member is one employee's membership in a project.
type Member struct {
	ProjectID  string
	EmployeeID string
	Active     bool
	UpdatedAt  time.Time
}

// ProjectRegistry reads and replicates registry projects and memberships.
type ProjectRegistry interface {
	GetProject(ctx context.Context, projectID string) (Project, error)
	PutProject(ctx context.Context, project Project) error
	PutMember(ctx context.Context, member Member) error
	// IsActiveMember reports current membership; unknown pairs are not members.
	IsActiveMember(ctx context.Context, projectID, employeeID string) (bool, error)
	// ListActiveMembers returns active employee ids ordered by id.
	ListActiveMembers(ctx context.Context, projectID string) ([]string, error)
}
