package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	apperrors "github.com/shiftproof/shiftproof/internal/platform/errors"
	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/ledger"
	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/presence"
	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/shiftstate"
	"github.com/shiftproof/shiftproof/internal/services/attendance/storage"
)

// shift is the resolved context of an open shift on a project.
type shift struct {
	employeeID string
	project    storage.Project
	loc        *time.Location
	now        time.Time
	today      presence.Date
}

func (sh shift) key(slot presence.Slot) storage.ChallengeKey {
	return storage.ChallengeKey{
		EmployeeID:   sh.employeeID,
		ProjectID:    sh.project.ID,
		CalendarDate: sh.today,
		Slot:         slot,
	}
}

// openShift enforces the scheduling preconditions in order: project
// membership, a known site anchor, then an active shift today.
func (s *Service) openShift(ctx context.Context, employeeID, projectID string) (shift, error) {
	employeeID, err := requireEmployee(employeeID)
	if err != nil {
		return shift{}, err
	}
	projectID, err = requireProject(projectID)
	if err != nil {
		return shift{}, err
	}
	if err := s.requireMember(ctx, projectID, employeeID); err != nil {
		return shift{}, err
	}
	project, err := s.project(ctx, projectID)
	if err != nil {
		return shift{}, err
	}
	if project.Site == nil {
		return shift{}, apperrors.New(apperrors.CodeProjectSiteLocationMissing, "project site location missing")
	}

	loc := s.projectLocation(project)
	now := s.now()
	latest, err := s.latestEvent(ctx, storage.EventQuery{EmployeeID: employeeID, ProjectID: projectID})
	if err != nil {
		return shift{}, err
	}
	if !shiftstate.Active(latest, loc, now) {
		return shift{}, apperrors.New(apperrors.CodeShiftNotActive, "no active shift today")
	}
	return shift{
		employeeID: employeeID,
		project:    project,
		loc:        loc,
		now:        now,
		today:      presence.DateOf(now, loc),
	}, nil
}

func (s *Service) latestEvent(ctx context.Context, query storage.EventQuery) (*ledger.Event, error) {
	latest, err := s.events.LatestEvent(ctx, query)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest event: %w", err)
	}
	return &latest, nil
}

// EnsureTodayChallenges makes sure both daily slots exist for an open shift.
// Existing slots are returned untouched; a concurrent caller losing the
// insert race re-reads the winner's row.
func (s *Service) EnsureTodayChallenges(ctx context.Context, employeeID, projectID string) ([]presence.Challenge, error) {
	sh, err := s.openShift(ctx, employeeID, projectID)
	if err != nil {
		return nil, err
	}

	challenges := make([]presence.Challenge, 0, len(presence.Slots))
	for _, slot := range presence.Slots {
		c, err := s.ensureSlot(ctx, sh, slot, func() (time.Time, error) {
			from, until := slot.FireWindow(sh.today, sh.loc)
			return s.picker.PickBetween(from, until)
		})
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, c)
	}
	return challenges, nil
}

// CreateChallenge creates one slot on demand, firing now. It is gated like
// EnsureTodayChallenges and returns the existing row when the slot is taken.
func (s *Service) CreateChallenge(ctx context.Context, employeeID, projectID string, slotNumber int) (presence.Challenge, error) {
	slot, err := presence.ParseSlot(slotNumber)
	if err != nil {
		return presence.Challenge{}, err
	}
	sh, err := s.openShift(ctx, employeeID, projectID)
	if err != nil {
		return presence.Challenge{}, err
	}
	return s.ensureSlot(ctx, sh, slot, func() (time.Time, error) {
		return sh.now, nil
	})
}

// ReplaceFireTimeInput forces a new fire time on an existing slot.
type ReplaceFireTimeInput struct {
	EmployeeID string
	ProjectID  string
	Slot       int
	// FiredAt defaults to now.
	FiredAt *time.Time
}

// ReplaceFireTime moves the fire time of today's slot. It requires an
// active shift and fails when the slot does not exist or was answered.
func (s *Service) ReplaceFireTime(ctx context.Context, in ReplaceFireTimeInput) (presence.Challenge, error) {
	slot, err := presence.ParseSlot(in.Slot)
	if err != nil {
		return presence.Challenge{}, err
	}
	sh, err := s.openShift(ctx, in.EmployeeID, in.ProjectID)
	if err != nil {
		return presence.Challenge{}, err
	}
	firedAt := sh.now
	if in.FiredAt != nil {
		firedAt = in.FiredAt.UTC()
	}

	c, err := s.challenges.ReplaceFireTime(ctx, sh.key(slot), firedAt)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return presence.Challenge{}, apperrors.WithMetadata(apperrors.CodeChallengeNotFound, "challenge slot not created", map[string]string{"Slot": strconv.Itoa(in.Slot)})
	case errors.Is(err, storage.ErrAlreadyResponded):
		return presence.Challenge{}, apperrors.New(apperrors.CodeChallengeAlreadyResponded, "challenge already responded")
	case err != nil:
		return presence.Challenge{}, fmt.Errorf("replace fire time: %w", err)
	}
	log.Printf("challenge fire time replaced id=%s slot=%d fired_at=%s", c.ID, c.Slot, c.FiredAt.Format(time.RFC3339))
	return c, nil
}

// ListTodayChallenges returns today's challenges for a project without
// creating any.
func (s *Service) ListTodayChallenges(ctx context.Context, employeeID, projectID string) ([]presence.Challenge, error) {
	employeeID, err := requireEmployee(employeeID)
	if err != nil {
		return nil, err
	}
	projectID, err = requireProject(projectID)
	if err != nil {
		return nil, err
	}
	project, err := s.project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	today := presence.DateOf(s.now(), s.projectLocation(project))
	challenges, err := s.challenges.ListChallenges(ctx, employeeID, projectID, today)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	return challenges, nil
}

func (s *Service) ensureSlot(ctx context.Context, sh shift, slot presence.Slot, fireTime func() (time.Time, error)) (presence.Challenge, error) {
	key := sh.key(slot)
	existing, err := s.challenges.GetChallengeByKey(ctx, key)
	if err == nil {
		s.metrics.ObserveChallenge(slot, ChallengeExisting)
		return existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return presence.Challenge{}, fmt.Errorf("get challenge: %w", err)
	}

	firedAt, err := fireTime()
	if err != nil {
		return presence.Challenge{}, fmt.Errorf("pick fire time: %w", err)
	}
	challengeID, err := s.idGenerator()
	if err != nil {
		return presence.Challenge{}, fmt.Errorf("generate challenge id: %w", err)
	}
	c := presence.Challenge{
		ID:           challengeID,
		EmployeeID:   sh.employeeID,
		ProjectID:    sh.project.ID,
		SiteLat:      sh.project.Site.Lat,
		SiteLng:      sh.project.Site.Lng,
		RadiusMeters: s.projectRadius(sh.project),
		Timezone:     sh.loc.String(),
		CalendarDate: sh.today,
		Slot:         slot,
		FiredAt:      firedAt.UTC().Truncate(storage.TimePrecision),
		CreatedAt:    sh.now.UTC().Truncate(storage.TimePrecision),
	}

	err = s.challenges.CreateChallenge(ctx, c)
	switch {
	case err == nil:
		s.metrics.ObserveChallenge(slot, ChallengeCreated)
		return c, nil
	case errors.Is(err, storage.ErrAlreadyExists):
		winner, err := s.challenges.GetChallengeByKey(ctx, key)
		if err != nil {
			return presence.Challenge{}, fmt.Errorf("re-read challenge: %w", err)
		}
		s.metrics.ObserveChallenge(slot, ChallengeCollision)
		return winner, nil
	default:
		return presence.Challenge{}, fmt.Errorf("create challenge: %w", err)
	}
}
