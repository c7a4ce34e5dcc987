// Package service orchestrates the attendance engines over storage.
//
// Reporting reads the ledger and rebuilds sessions on every call. Presence
// checks are gated on project membership, a known site anchor and an open
// shift before any challenge is written.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/shiftproof/shiftproof/internal/platform/errors"
	"github.com/shiftproof/shiftproof/internal/platform/id"
	"github.com/shiftproof/shiftproof/internal/random"
	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/presence"
	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/session"
	"github.com/shiftproof/shiftproof/internal/services/attendance/storage"
)

// DefaultRadiusMeters applies when neither the project nor config set a radius.
const DefaultRadiusMeters = 150

// Stores groups the persistence dependencies.
type Stores struct {
	Events     storage.EventStore
	Challenges storage.ChallengeStore
	Registry   storage.ProjectRegistry
}

// Metrics receives counters for data-quality and verification monitoring.
// Implementations must be safe for concurrent use.
type Metrics interface {
	ObserveAnomalies(counts map[session.AnomalyKind]int)
	ObserveChallenge(slot presence.Slot, outcome ChallengeOutcome)
	ObserveAdjudication(outcome presence.Outcome)
}

// ChallengeOutcome describes what ensuring one slot did.
type ChallengeOutcome string

const (
	ChallengeCreated   ChallengeOutcome = "created"
	ChallengeExisting  ChallengeOutcome = "existing"
	ChallengeCollision ChallengeOutcome = "collision"
)

// Config carries defaults and injectable collaborators. Nil fields fall
// back to production implementations.
type Config struct {
	// DefaultLocation applies when a project defines no timezone.
	DefaultLocation     *time.Location
	DefaultRadiusMeters float64
	Picker              random.TimePicker
	Metrics             Metrics
	Clock               func() time.Time
	IDGenerator         func() (string, error)
}

// Service implements the attendance operations.
type Service struct {
	events     storage.EventStore
	challenges storage.ChallengeStore
	registry   storage.ProjectRegistry

	defaultLocation *time.Location
	defaultRadius   float64
	picker          random.TimePicker
	metrics         Metrics
	clock           func() time.Time
	idGenerator     func() (string, error)
}

// New builds a Service.
func New(stores Stores, cfg Config) (*Service, error) {
	if stores.Events == nil {
		return nil, fmt.Errorf("event store is required")
	}
	if stores.Challenges == nil {
		return nil, fmt.Errorf("challenge store is required")
	}
	if stores.Registry == nil {
		return nil, fmt.Errorf("project registry is required")
	}

	svc := &Service{
		events:          stores.Events,
		challenges:      stores.Challenges,
		registry:        stores.Registry,
		defaultLocation: cfg.DefaultLocation,
		defaultRadius:   cfg.DefaultRadiusMeters,
		picker:          cfg.Picker,
		metrics:         cfg.Metrics,
		clock:           cfg.Clock,
		idGenerator:     cfg.IDGenerator,
	}
	if svc.defaultLocation == nil {
		svc.defaultLocation = time.UTC
	}
	if svc.defaultRadius <= 0 {
		svc.defaultRadius = DefaultRadiusMeters
	}
	if svc.picker == nil {
		svc.picker = random.CryptoPicker{}
	}
	if svc.metrics == nil {
		svc.metrics = noopMetrics{}
	}
	if svc.clock == nil {
		svc.clock = time.Now
	}
	if svc.idGenerator == nil {
		svc.idGenerator = id.NewID
	}
	return svc, nil
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

func requireEmployee(employeeID string) (string, error) {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return "", apperrors.New(apperrors.CodeEmployeeMissing, "employee id is required")
	}
	return employeeID, nil
}

func requireProject(projectID string) (string, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return "", apperrors.New(apperrors.CodeProjectScopeMissing, "project id is required")
	}
	return projectID, nil
}

// project returns the registry replica, or an empty project when unknown.
func (s *Service) project(ctx context.Context, projectID string) (storage.Project, error) {
	project, err := s.registry.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Project{ID: projectID}, nil
		}
		return storage.Project{}, fmt.Errorf("get project: %w", err)
	}
	return project, nil
}

// projectLocation resolves the project timezone, falling back to the default.
func (s *Service) projectLocation(project storage.Project) *time.Location {
	if project.Timezone == "" {
		return s.defaultLocation
	}
	loc, err := time.LoadLocation(project.Timezone)
	if err != nil {
		return s.defaultLocation
	}
	return loc
}

func (s *Service) projectRadius(project storage.Project) float64 {
	if project.RadiusMeters > 0 {
		return project.RadiusMeters
	}
	return s.defaultRadius
}

func (s *Service) requireMember(ctx context.Context, projectID, employeeID string) error {
	member, err := s.registry.IsActiveMember(ctx, projectID, employeeID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return apperrors.New(apperrors.CodeProjectMembershipRequired, "employee is not a project member")
	}
	return nil
}

type noopMetrics struct{}

func (noopMetrics) ObserveAnomalies(map[session.AnomalyKind]int)     {}
func (noopMetrics) ObserveChallenge(presence.Slot, ChallengeOutcome) {}
func (noopMetrics) ObserveAdjudication(presence.Outcome)             {}
