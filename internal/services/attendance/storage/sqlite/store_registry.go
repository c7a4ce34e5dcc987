package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/presence"
	"github.com/shiftproof/shiftproof/internal/services/attendance/storage"
)

// PutProject upserts the replica of a registry project.
func (s *Store) PutProject(ctx context.Context, project storage.Project) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	projectID := strings.TrimSpace(project.ID)
	if projectID == "" {
		return fmt.Errorf("project id is required")
	}

	var lat, lng, radius *float64
	if project.Site != nil {
		lat, lng = &project.Site.Lat, &project.Site.Lng
	}
	if project.RadiusMeters > 0 {
		radius = &project.RadiusMeters
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO projects (project_id, site_lat, site_lng, radius_meters, timezone, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(project_id) DO UPDATE SET
		   site_lat = excluded.site_lat,
		   site_lng = excluded.site_lng,
		   radius_meters = excluded.radius_meters,
		   timezone = excluded.timezone,
		   updated_at = excluded.updated_at`,
		projectID,
		nullFloat(lat),
		nullFloat(lng),
		nullFloat(radius),
		strings.TrimSpace(project.Timezone),
		toMillis(project.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put project: %w", err)
	}
	return nil
}

// GetProject returns the replica of a registry project.
func (s *Store) GetProject(ctx context.Context, projectID string) (storage.Project, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Project{}, err
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT project_id, site_lat, site_lng, radius_meters, timezone, updated_at
		 FROM projects WHERE project_id = ?`,
		strings.TrimSpace(projectID),
	)
	var (
		project       storage.Project
		lat, lng, rad sql.NullFloat64
		updatedAt     int64
	)
	if err := row.Scan(&project.ID, &lat, &lng, &rad, &project.Timezone, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Project{}, storage.ErrNotFound
		}
		return storage.Project{}, fmt.Errorf("get project: %w", err)
	}
	if lat.Valid && lng.Valid {
		project.Site = &presence.Anchor{Lat: lat.Float64, Lng: lng.Float64}
	}
	if rad.Valid {
		project.RadiusMeters = rad.Float64
	}
	project.UpdatedAt = fromMillis(updatedAt)
	return project, nil
}

// PutMember upserts one membership row.
func (s *Store) PutMember(ctx context.Context, member storage.Member) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	projectID := strings.TrimSpace(member.ProjectID)
	employeeID := strings.TrimSpace(member.EmployeeID)
	if projectID == "" {
		return fmt.Errorf("project id is required")
	}
	if employeeID == "" {
		return fmt.Errorf("employee id is required")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO project_members (project_id, employee_id, active, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(project_id, employee_id) DO UPDATE SET
		   active = excluded.active,
		   updated_at = excluded.updated_at`,
		projectID,
		employeeID,
		member.Active,
		toMillis(member.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put member: %w", err)
	}
	return nil
}

// IsActiveMember reports whether employeeID currently belongs to projectID.
func (s *Store) IsActiveMember(ctx context.Context, projectID, employeeID string) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	var active bool
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT active FROM project_members WHERE project_id = ? AND employee_id = ?`,
		strings.TrimSpace(projectID),
		strings.TrimSpace(employeeID),
	).Scan(&active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check membership: %w", err)
	}
	return active, nil
}

// ListActiveMembers returns the active employees of a project.
func (s *Store) ListActiveMembers(ctx context.Context, projectID string) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT employee_id FROM project_members
		 WHERE project_id = ? AND active = 1
		 ORDER BY employee_id ASC`,
		strings.TrimSpace(projectID),
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var employeeID string
		if err := rows.Scan(&employeeID); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, employeeID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}
