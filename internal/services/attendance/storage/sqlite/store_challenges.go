package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/presence"
	"github.com/shiftproof/shiftproof/internal/services/attendance/storage"
)

const challengeColumns = `challenge_id, employee_id, project_id, site_lat, site_lng, radius_meters, timezone,
	calendar_date, slot, fired_at, responded, responded_at, created_at`

// CreateChallenge inserts a challenge; a taken (employee, project, date, slot)
// tuple returns storage.ErrAlreadyExists.
func (s *Store) CreateChallenge(ctx context.Context, c presence.Challenge) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("challenge id is required")
	}
	if strings.TrimSpace(c.EmployeeID) == "" {
		return fmt.Errorf("employee id is required")
	}
	if strings.TrimSpace(c.ProjectID) == "" {
		return fmt.Errorf("project id is required")
	}
	if _, err := presence.ParseSlot(int(c.Slot)); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("challenge timezone: %w", err)
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO challenges (`+challengeColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.EmployeeID,
		c.ProjectID,
		c.SiteLat,
		c.SiteLng,
		c.RadiusMeters,
		c.Timezone,
		c.CalendarDate.String(),
		int(c.Slot),
		toMillis(c.FiredAt),
		c.Responded,
		respondedAtValue(c.RespondedAt),
		toMillis(c.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create challenge: %w", err)
	}
	return nil
}

// GetChallenge returns a challenge by id.
func (s *Store) GetChallenge(ctx context.Context, challengeID string) (presence.Challenge, error) {
	if err := s.ready(ctx); err != nil {
		return presence.Challenge{}, err
	}
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return presence.Challenge{}, fmt.Errorf("challenge id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE challenge_id = ?`, challengeID)
	c, err := scanChallenge(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return presence.Challenge{}, storage.ErrNotFound
		}
		return presence.Challenge{}, fmt.Errorf("get challenge: %w", err)
	}
	return c, nil
}

// GetChallengeByKey returns the challenge holding a unique tuple.
func (s *Store) GetChallengeByKey(ctx context.Context, key storage.ChallengeKey) (presence.Challenge, error) {
	if err := s.ready(ctx); err != nil {
		return presence.Challenge{}, err
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+challengeColumns+` FROM challenges
		 WHERE employee_id = ? AND project_id = ? AND calendar_date = ? AND slot = ?`,
		key.EmployeeID,
		key.ProjectID,
		key.CalendarDate.String(),
		int(key.Slot),
	)
	c, err := scanChallenge(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return presence.Challenge{}, storage.ErrNotFound
		}
		return presence.Challenge{}, fmt.Errorf("get challenge by key: %w", err)
	}
	return c, nil
}

// ListChallenges returns one employee's challenges for a project and date.
func (s *Store) ListChallenges(ctx context.Context, employeeID, projectID string, date presence.Date) ([]presence.Challenge, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+challengeColumns+` FROM challenges
		 WHERE employee_id = ? AND project_id = ? AND calendar_date = ?
		 ORDER BY slot ASC`,
		employeeID,
		projectID,
		date.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	defer rows.Close()

	var challenges []presence.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan challenge: %w", err)
		}
		challenges = append(challenges, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	return challenges, nil
}

// ReplaceFireTime moves the fire time of an unanswered challenge.
func (s *Store) ReplaceFireTime(ctx context.Context, key storage.ChallengeKey, firedAt time.Time) (presence.Challenge, error) {
	if err := s.ready(ctx); err != nil {
		return presence.Challenge{}, err
	}
	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE challenges SET fired_at = ?
		 WHERE employee_id = ? AND project_id = ? AND calendar_date = ? AND slot = ? AND responded = 0`,
		toMillis(firedAt),
		key.EmployeeID,
		key.ProjectID,
		key.CalendarDate.String(),
		int(key.Slot),
	)
	if err != nil {
		return presence.Challenge{}, fmt.Errorf("replace fire time: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return presence.Challenge{}, fmt.Errorf("replace fire time: %w", err)
	}

	c, err := s.GetChallengeByKey(ctx, key)
	if err != nil {
		return presence.Challenge{}, err
	}
	if affected == 0 {
		return presence.Challenge{}, storage.ErrAlreadyResponded
	}
	return c, nil
}

// MarkResponded records a successful response. The guarded update makes the
// false-to-true transition happen at most once.
func (s *Store) MarkResponded(ctx context.Context, challengeID string, respondedAt time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE challenges SET responded = 1, responded_at = ?
		 WHERE challenge_id = ? AND responded = 0`,
		toMillis(respondedAt),
		challengeID,
	)
	if err != nil {
		return fmt.Errorf("mark challenge responded: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark challenge responded: %w", err)
	}
	if affected == 1 {
		return nil
	}
	if _, err := s.GetChallenge(ctx, challengeID); err != nil {
		return err
	}
	return storage.ErrAlreadyResponded
}

func respondedAtValue(value *time.Time) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*value), Valid: true}
}

func scanChallenge(row rowScanner) (presence.Challenge, error) {
	var (
		c           presence.Challenge
		date        string
		slot        int
		firedAt     int64
		respondedAt sql.NullInt64
		createdAt   int64
	)
	err := row.Scan(
		&c.ID,
		&c.EmployeeID,
		&c.ProjectID,
		&c.SiteLat,
		&c.SiteLng,
		&c.RadiusMeters,
		&c.Timezone,
		&date,
		&slot,
		&firedAt,
		&c.Responded,
		&respondedAt,
		&createdAt,
	)
	if err != nil {
		return presence.Challenge{}, err
	}
	c.CalendarDate, err = presence.ParseDate(date)
	if err != nil {
		return presence.Challenge{}, err
	}
	// Deadlines are computed in this zone, so an unknown name is corrupt data.
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return presence.Challenge{}, fmt.Errorf("challenge %s timezone: %w", c.ID, err)
	}
	c.Slot = presence.Slot(slot)
	c.FiredAt = fromMillis(firedAt)
	c.CreatedAt = fromMillis(createdAt)
	if respondedAt.Valid {
		at := fromMillis(respondedAt.Int64)
		c.RespondedAt = &at
	}
	return c, nil
}
