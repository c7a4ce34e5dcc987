package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/shiftproof/shiftproof/internal/platform/errors"
	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/ledger"
	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/session"
	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/timesheet"
	"github.com/shiftproof/shiftproof/internal/services/attendance/storage"
)

// projectTimesheetConcurrency bounds parallel per-member aggregation.
const projectTimesheetConcurrency = 4

// MonthTimesheetInput selects one employee's month.
type MonthTimesheetInput struct {
	EmployeeID string
	// Month is formatted YYYY-MM.
	Month string
	// Timezone is an IANA name; empty uses the project or default timezone.
	Timezone string
	// ProjectID optionally scopes the ledger to one project.
	ProjectID string
}

// MonthTimesheet rebuilds sessions from the ledger and aggregates them into
// local-day buckets for the requested month.
func (s *Service) MonthTimesheet(ctx context.Context, in MonthTimesheetInput) (timesheet.MonthTimesheet, error) {
	employeeID, err := requireEmployee(in.EmployeeID)
	if err != nil {
		return timesheet.MonthTimesheet{}, err
	}
	month, err := timesheet.ParseMonth(strings.TrimSpace(in.Month))
	if err != nil {
		return timesheet.MonthTimesheet{}, apperrors.WithMetadata(apperrors.CodeTimesheetInvalidMonth, err.Error(), map[string]string{"Month": in.Month})
	}
	projectID := strings.TrimSpace(in.ProjectID)
	loc, err := s.timesheetLocation(ctx, projectID, in.Timezone)
	if err != nil {
		return timesheet.MonthTimesheet{}, err
	}
	return s.monthTimesheet(ctx, employeeID, projectID, month, loc)
}

// ProjectTimesheets aggregates every active member of a project in parallel.
// Results are ordered by employee id.
func (s *Service) ProjectTimesheets(ctx context.Context, projectID, rawMonth, timezone string) ([]timesheet.MonthTimesheet, error) {
	projectID, err := requireProject(projectID)
	if err != nil {
		return nil, err
	}
	month, err := timesheet.ParseMonth(strings.TrimSpace(rawMonth))
	if err != nil {
		return nil, apperrors.WithMetadata(apperrors.CodeTimesheetInvalidMonth, err.Error(), map[string]string{"Month": rawMonth})
	}
	loc, err := s.timesheetLocation(ctx, projectID, timezone)
	if err != nil {
		return nil, err
	}
	members, err := s.registry.ListActiveMembers(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list project members: %w", err)
	}

	sheets := make([]timesheet.MonthTimesheet, len(members))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(projectTimesheetConcurrency)
	for i, employeeID := range members {
		g.Go(func() error {
			sheet, err := s.monthTimesheet(gctx, employeeID, projectID, month, loc)
			if err != nil {
				return fmt.Errorf("timesheet for %s: %w", employeeID, err)
			}
			sheets[i] = sheet
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sheets, nil
}

func (s *Service) monthTimesheet(ctx context.Context, employeeID, projectID string, month timesheet.Month, loc *time.Location) (timesheet.MonthTimesheet, error) {
	query := storage.EventQuery{EmployeeID: employeeID, ProjectID: projectID}
	windowStart, windowEnd := month.Window(loc)

	events, err := s.windowEvents(ctx, query, windowStart, windowEnd)
	if err != nil {
		return timesheet.MonthTimesheet{}, err
	}
	result := session.Reconstruct(events)
	sheet := timesheet.Aggregate(employeeID, month, loc, result.Sessions, s.now())
	sheet.ProjectID = projectID
	sheet.Anomalies = result.Anomalies

	if len(result.Anomalies) > 0 {
		counts := result.CountByKind()
		s.metrics.ObserveAnomalies(counts)
		log.Printf("ledger anomalies employee=%s project=%s month=%s count=%d", employeeID, projectID, month, len(result.Anomalies))
	}
	return sheet, nil
}

// windowEvents reads the ledger for [start, end) plus the entry still
// pending at start, so sessions crossing into the month are counted.
func (s *Service) windowEvents(ctx context.Context, query storage.EventQuery, start, end time.Time) ([]ledger.Event, error) {
	events, err := s.events.ListEventsBetween(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	prior, err := s.events.LatestEventBefore(ctx, query, start)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("get event before window: %w", err)
	case prior.Action == ledger.ActionEnter:
		events = append([]ledger.Event{prior}, events...)
	}
	return events, nil
}

func (s *Service) timesheetLocation(ctx context.Context, projectID, timezone string) (*time.Location, error) {
	timezone = strings.TrimSpace(timezone)
	if timezone != "" {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, apperrors.WithMetadata(apperrors.CodeTimesheetInvalidTimezone, err.Error(), map[string]string{"Timezone": timezone})
		}
		return loc, nil
	}
	if projectID == "" {
		return s.defaultLocation, nil
	}
	project, err := s.project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.projectLocation(project), nil
}
