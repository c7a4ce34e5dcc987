package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/shiftproof/shiftproof/internal/platform/errors"
	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/ledger"
	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/presence"
	"github.com/shiftproof/shiftproof/internal/services/attendance/storage"
	"github.com/shiftproof/shiftproof/internal/services/attendance/storage/filter"
)

const (
	defaultListEventsPageSize = 50
	maxListEventsPageSize     = 200
)

// ToggleInput records one scan at the front door.
type ToggleInput struct {
	EmployeeID string
	ProjectID  string
	// OccurredAt defaults to now.
	OccurredAt *time.Time
	Geo        *ledger.Geo
}

// RecordToggle appends the next clock action for an employee on a project.
// The direction flips the latest event: after ENTER comes EXIT, otherwise ENTER.
func (s *Service) RecordToggle(ctx context.Context, in ToggleInput) (ledger.Event, error) {
	employeeID, err := requireEmployee(in.EmployeeID)
	if err != nil {
		return ledger.Event{}, err
	}
	projectID, err := requireProject(in.ProjectID)
	if err != nil {
		return ledger.Event{}, err
	}
	if in.Geo != nil {
		if err := presence.ValidateCoordinates(in.Geo.Lat, in.Geo.Lng); err != nil {
			return ledger.Event{}, err
		}
	}
	if err := s.requireMember(ctx, projectID, employeeID); err != nil {
		return ledger.Event{}, err
	}

	latest, err := s.latestEvent(ctx, storage.EventQuery{EmployeeID: employeeID, ProjectID: projectID})
	if err != nil {
		return ledger.Event{}, err
	}
	action := ledger.ActionEnter
	if latest != nil {
		action = latest.Action.Opposite()
	}
	occurredAt := s.now()
	if in.OccurredAt != nil {
		occurredAt = in.OccurredAt.UTC()
	}

	evt, err := s.events.AppendEvent(ctx, ledger.Event{
		EmployeeID: employeeID,
		ProjectID:  projectID,
		Action:     action,
		OccurredAt: occurredAt,
		Geo:        in.Geo,
	})
	if err != nil {
		return ledger.Event{}, fmt.Errorf("append event: %w", err)
	}
	return evt, nil
}

// ListEventsInput pages the caller's ledger.
type ListEventsInput struct {
	EmployeeID string
	// Filter is an AIP-160 expression over action, project_id and occurred_at.
	Filter    string
	PageSize  int
	PageToken string
}

// EventsPage is one page of ledger events.
type EventsPage struct {
	Events        []ledger.Event
	NextPageToken string
}

// ListEvents returns the caller's events, most recently recorded first.
func (s *Service) ListEvents(ctx context.Context, in ListEventsInput) (EventsPage, error) {
	employeeID, err := requireEmployee(in.EmployeeID)
	if err != nil {
		return EventsPage{}, err
	}
	cond, err := filter.ParseEventFilter(in.Filter)
	if err != nil {
		return EventsPage{}, apperrors.Wrap(apperrors.CodeInvalidEventFilter, "invalid event filter", err)
	}

	pageSize := in.PageSize
	if pageSize <= 0 {
		pageSize = defaultListEventsPageSize
	}
	if pageSize > maxListEventsPageSize {
		pageSize = maxListEventsPageSize
	}
	var beforeSeq int64
	if token := strings.TrimSpace(in.PageToken); token != "" {
		beforeSeq, err = strconv.ParseInt(token, 10, 64)
		if err != nil || beforeSeq <= 0 {
			return EventsPage{}, apperrors.New(apperrors.CodeInvalidRequest, "invalid page token")
		}
	}

	page, err := s.events.ListEventsPage(ctx, storage.ListEventsPageRequest{
		EmployeeID:   employeeID,
		PageSize:     pageSize,
		BeforeSeq:    beforeSeq,
		FilterClause: cond.Clause,
		FilterParams: cond.Params,
	})
	if err != nil {
		return EventsPage{}, fmt.Errorf("list events: %w", err)
	}
	result := EventsPage{Events: page.Events}
	if page.NextBeforeSeq > 0 {
		result.NextPageToken = strconv.FormatInt(page.NextBeforeSeq, 10)
	}
	return result, nil
}
