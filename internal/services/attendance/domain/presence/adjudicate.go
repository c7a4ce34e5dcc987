package presence

import (
	"strconv"
	"time"

	apperrors "github.com/shiftproof/shiftproof/internal/platform/errors"
)

// Reason names why a response was rejected.
type Reason string

const (
	ReasonChallengeNotFound   Reason = "challenge_not_found"
	ReasonChallengeNotOwned   Reason = "challenge_not_owned"
	ReasonAlreadyResponded    Reason = "already_responded"
	ReasonNotProjectMember    Reason = "not_project_member"
	ReasonExpired             Reason = "expired"
	ReasonSiteLocationMissing Reason = "site_location_missing"
	ReasonOutOfRange          Reason = "out_of_range"
)

var reasonCodes = map[Reason]apperrors.Code{
	ReasonChallengeNotFound:   apperrors.CodeChallengeNotFound,
	ReasonChallengeNotOwned:   apperrors.CodeChallengeNotOwned,
	ReasonAlreadyResponded:    apperrors.CodeChallengeAlreadyResponded,
	ReasonNotProjectMember:    apperrors.CodeProjectMembershipRequired,
	ReasonExpired:             apperrors.CodeChallengeExpired,
	ReasonSiteLocationMissing: apperrors.CodeProjectSiteLocationMissing,
	ReasonOutOfRange:          apperrors.CodeChallengeOutOfRange,
}

// Code returns the error code a rejection reason renders as.
func (r Reason) Code() apperrors.Code {
	if code, ok := reasonCodes[r]; ok {
		return code
	}
	return apperrors.CodeUnknown
}

// Response is a reported position for a challenge.
type Response struct {
	ResponderID string
	Lat         float64
	Lng         float64
	At          time.Time
}

// Facts are the externally resolved inputs adjudication depends on.
type Facts struct {
	// Challenge is nil when the id did not resolve.
	Challenge *Challenge
	// Member reports current membership of the challenge project.
	Member bool
	// Site is nil when the registry has no coordinates for the project.
	Site *Anchor
}

// Outcome is the decision for one response.
type Outcome struct {
	Accepted bool
	Reason   Reason
	// DistanceMeters is set once the distance step was reached.
	DistanceMeters *float64
	RadiusMeters   float64
	Deadline       time.Time
}

// Err converts a rejection into a structured error; it is nil when accepted.
func (o Outcome) Err() error {
	if o.Accepted {
		return nil
	}
	metadata := map[string]string{}
	if !o.Deadline.IsZero() {
		metadata["Deadline"] = o.Deadline.Format("15:04")
	}
	if o.DistanceMeters != nil {
		metadata["Distance"] = strconv.FormatFloat(*o.DistanceMeters, 'f', 0, 64)
		metadata["Radius"] = strconv.FormatFloat(o.RadiusMeters, 'f', 0, 64)
	}
	return apperrors.WithMetadata(o.Reason.Code(), string(o.Reason), metadata)
}

// Adjudicate validates a response, stopping at the first failing step:
// existence and ownership, terminal state, membership, deadline, then
// distance from the site anchor against the stored radius.
func Adjudicate(facts Facts, resp Response) Outcome {
	c := facts.Challenge
	if c == nil {
		return Outcome{Reason: ReasonChallengeNotFound}
	}
	if c.EmployeeID != resp.ResponderID {
		return Outcome{Reason: ReasonChallengeNotOwned}
	}
	deadline := c.Deadline()
	if c.Responded {
		return Outcome{Reason: ReasonAlreadyResponded, Deadline: deadline}
	}
	if !facts.Member {
		return Outcome{Reason: ReasonNotProjectMember, Deadline: deadline}
	}
	if !resp.At.Before(deadline) {
		return Outcome{Reason: ReasonExpired, Deadline: deadline}
	}
	if facts.Site == nil {
		return Outcome{Reason: ReasonSiteLocationMissing, Deadline: deadline}
	}
	distance := DistanceMeters(facts.Site.Lat, facts.Site.Lng, resp.Lat, resp.Lng)
	if distance > c.RadiusMeters {
		return Outcome{Reason: ReasonOutOfRange, DistanceMeters: &distance, RadiusMeters: c.RadiusMeters, Deadline: deadline}
	}
	return Outcome{Accepted: true, DistanceMeters: &distance, RadiusMeters: c.RadiusMeters, Deadline: deadline}
}
