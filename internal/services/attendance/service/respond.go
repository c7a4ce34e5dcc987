package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/presence"
	"github.com/shiftproof/shiftproof/internal/services/attendance/storage"
)

// RespondInput is one reported position for a challenge.
type RespondInput struct {
	ChallengeID string
	EmployeeID  string
	Lat         float64
	Lng         float64
}

// RespondToChallenge adjudicates a response. Rejections are returned as an
// outcome, not an error; errors are reserved for invalid input and storage
// failures. An accepted response is recorded at most once.
func (s *Service) RespondToChallenge(ctx context.Context, in RespondInput) (presence.Outcome, error) {
	employeeID, err := requireEmployee(in.EmployeeID)
	if err != nil {
		return presence.Outcome{}, err
	}
	if err := presence.ValidateCoordinates(in.Lat, in.Lng); err != nil {
		return presence.Outcome{}, err
	}
	resp := presence.Response{ResponderID: employeeID, Lat: in.Lat, Lng: in.Lng, At: s.now()}

	facts, err := s.adjudicationFacts(ctx, strings.TrimSpace(in.ChallengeID), employeeID)
	if err != nil {
		return presence.Outcome{}, err
	}
	outcome := presence.Adjudicate(facts, resp)

	if outcome.Accepted {
		err := s.challenges.MarkResponded(ctx, facts.Challenge.ID, resp.At)
		switch {
		case errors.Is(err, storage.ErrAlreadyResponded):
			outcome = presence.Outcome{Reason: presence.ReasonAlreadyResponded, Deadline: outcome.Deadline}
		case err != nil:
			return presence.Outcome{}, fmt.Errorf("mark challenge responded: %w", err)
		default:
			log.Printf("challenge accepted id=%s employee=%s distance_m=%.1f", facts.Challenge.ID, employeeID, *outcome.DistanceMeters)
		}
	}
	s.metrics.ObserveAdjudication(outcome)
	return outcome, nil
}

// adjudicationFacts loads only what the next validation step needs: an
// unknown or foreign challenge short-circuits before registry reads.
func (s *Service) adjudicationFacts(ctx context.Context, challengeID, employeeID string) (presence.Facts, error) {
	if challengeID == "" {
		return presence.Facts{}, nil
	}
	c, err := s.challenges.GetChallenge(ctx, challengeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return presence.Facts{}, nil
		}
		return presence.Facts{}, fmt.Errorf("get challenge: %w", err)
	}
	facts := presence.Facts{Challenge: &c}
	if c.EmployeeID != employeeID {
		return facts, nil
	}

	facts.Member, err = s.registry.IsActiveMember(ctx, c.ProjectID, employeeID)
	if err != nil {
		return presence.Facts{}, fmt.Errorf("check membership: %w", err)
	}
	project, err := s.project(ctx, c.ProjectID)
	if err != nil {
		return presence.Facts{}, err
	}
	facts.Site = project.Site
	return facts, nil
}
