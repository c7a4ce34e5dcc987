package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/ledger"
	"github.com/shiftproof/shiftproof/internal/services/attendance/storage"
)

const eventColumns = `seq, employee_id, project_id, action, occurred_at, geo_lat, geo_lng`

// AppendEvent appends one toggle to the ledger.
func (s *Store) AppendEvent(ctx context.Context, evt ledger.Event) (ledger.Event, error) {
	if err := s.ready(ctx); err != nil {
		return ledger.Event{}, err
	}
	evt.EmployeeID = strings.TrimSpace(evt.EmployeeID)
	evt.ProjectID = strings.TrimSpace(evt.ProjectID)
	if evt.EmployeeID == "" {
		return ledger.Event{}, fmt.Errorf("employee id is required")
	}
	action, err := ledger.ParseAction(string(evt.Action))
	if err != nil {
		return ledger.Event{}, err
	}
	evt.Action = action
	if evt.OccurredAt.IsZero() {
		return ledger.Event{}, fmt.Errorf("occurred at is required")
	}

	var lat, lng *float64
	if evt.Geo != nil {
		lat, lng = &evt.Geo.Lat, &evt.Geo.Lng
	}
	res, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO events (employee_id, project_id, action, occurred_at, geo_lat, geo_lng, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		evt.EmployeeID,
		evt.ProjectID,
		string(evt.Action),
		toMillis(evt.OccurredAt),
		nullFloat(lat),
		nullFloat(lng),
		toMillis(time.Now()),
	)
	if err != nil {
		return ledger.Event{}, fmt.Errorf("append event: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return ledger.Event{}, fmt.Errorf("read event seq: %w", err)
	}
	evt.Seq = seq
	evt.OccurredAt = fromMillis(toMillis(evt.OccurredAt))
	return evt, nil
}

// LatestEvent returns the newest event in ledger order.
func (s *Store) LatestEvent(ctx context.Context, query storage.EventQuery) (ledger.Event, error) {
	return s.latest(ctx, query, nil)
}

// LatestEventBefore returns the newest event strictly before t.
func (s *Store) LatestEventBefore(ctx context.Context, query storage.EventQuery, t time.Time) (ledger.Event, error) {
	return s.latest(ctx, query, &t)
}

func (s *Store) latest(ctx context.Context, query storage.EventQuery, before *time.Time) (ledger.Event, error) {
	if err := s.ready(ctx); err != nil {
		return ledger.Event{}, err
	}
	where, params, err := scopeClause(query)
	if err != nil {
		return ledger.Event{}, err
	}
	if before != nil {
		where += " AND occurred_at < ?"
		params = append(params, toMillis(*before))
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+eventColumns+` FROM events WHERE `+where+`
		 ORDER BY occurred_at DESC, seq DESC
		 LIMIT 1`,
		params...,
	)
	evt, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Event{}, storage.ErrNotFound
		}
		return ledger.Event{}, fmt.Errorf("get latest event: %w", err)
	}
	return evt, nil
}

// ListEventsBetween returns events in [from, until) in ledger order.
func (s *Store) ListEventsBetween(ctx context.Context, query storage.EventQuery, from, until time.Time) ([]ledger.Event, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	where, params, err := scopeClause(query)
	if err != nil {
		return nil, err
	}
	params = append(params, toMillis(from), toMillis(until))

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+eventColumns+` FROM events WHERE `+where+`
		   AND occurred_at >= ? AND occurred_at < ?
		 ORDER BY occurred_at ASC, seq ASC`,
		params...,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []ledger.Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// ListEventsPage returns one page of an employee's events, most recently
// recorded first.
func (s *Store) ListEventsPage(ctx context.Context, req storage.ListEventsPageRequest) (storage.ListEventsPageResult, error) {
	if err := s.ready(ctx); err != nil {
		return storage.ListEventsPageResult{}, err
	}
	employeeID := strings.TrimSpace(req.EmployeeID)
	if employeeID == "" {
		return storage.ListEventsPageResult{}, fmt.Errorf("employee id is required")
	}
	if req.PageSize <= 0 {
		return storage.ListEventsPageResult{}, fmt.Errorf("page size must be greater than zero")
	}

	query := `SELECT ` + eventColumns + ` FROM events WHERE employee_id = ?`
	params := []any{employeeID}
	if req.BeforeSeq > 0 {
		query += " AND seq < ?"
		params = append(params, req.BeforeSeq)
	}
	if req.FilterClause != "" {
		query += " AND (" + req.FilterClause + ")"
		params = append(params, req.FilterParams...)
	}
	query += " ORDER BY seq DESC LIMIT ?"
	params = append(params, req.PageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, params...)
	if err != nil {
		return storage.ListEventsPageResult{}, fmt.Errorf("list events page: %w", err)
	}
	defer rows.Close()

	result := storage.ListEventsPageResult{Events: make([]ledger.Event, 0, req.PageSize)}
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return storage.ListEventsPageResult{}, fmt.Errorf("scan event: %w", err)
		}
		result.Events = append(result.Events, evt)
	}
	if err := rows.Err(); err != nil {
		return storage.ListEventsPageResult{}, fmt.Errorf("list events page: %w", err)
	}
	if len(result.Events) > req.PageSize {
		result.Events = result.Events[:req.PageSize]
		result.NextBeforeSeq = result.Events[req.PageSize-1].Seq
	}
	return result, nil
}

func scopeClause(query storage.EventQuery) (string, []any, error) {
	employeeID := strings.TrimSpace(query.EmployeeID)
	if employeeID == "" {
		return "", nil, fmt.Errorf("employee id is required")
	}
	where := "employee_id = ?"
	params := []any{employeeID}
	if projectID := strings.TrimSpace(query.ProjectID); projectID != "" {
		where += " AND project_id = ?"
		params = append(params, projectID)
	}
	return where, params, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (ledger.Event, error) {
	var (
		evt        ledger.Event
		action     string
		occurredAt int64
		lat, lng   sql.NullFloat64
	)
	if err := row.Scan(&evt.Seq, &evt.EmployeeID, &evt.ProjectID, &action, &occurredAt, &lat, &lng); err != nil {
		return ledger.Event{}, err
	}
	evt.Action = ledger.Action(action)
	evt.OccurredAt = fromMillis(occurredAt)
	if lat.Valid && lng.Valid {
		evt.Geo = &ledger.Geo{Lat: lat.Float64, Lng: lng.Float64}
	}
	return evt, nil
}
