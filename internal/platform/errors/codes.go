// Package errors provides structured error handling with i18n support.
package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Request validation errors
	CodeInvalidRequest      Code = "REQUEST_INVALID"
	CodeEmployeeMissing     Code = "EMPLOYEE_ID_MISSING"
	CodeProjectScopeMissing Code = "PROJECT_SCOPE_MISSING"
	CodeInvalidCoordinates  Code = "GEO_INVALID_COORDINATES"
	CodeInvalidEventFilter  Code = "EVENT_INVALID_FILTER"

	// Timesheet errors
	CodeTimesheetInvalidMonth    Code = "TIMESHEET_INVALID_MONTH"
	CodeTimesheetInvalidTimezone Code = "TIMESHEET_INVALID_TIMEZONE"

	// Project registry errors
	CodeProjectMembershipRequired  Code = "PROJECT_MEMBERSHIP_REQUIRED"
	CodeProjectSiteLocationMissing Code = "PROJECT_SITE_LOCATION_MISSING"

	// Shift errors
	CodeShiftNotActive Code = "SHIFT_NOT_ACTIVE"

	// Challenge errors
	CodeChallengeInvalidSlot      Code = "CHALLENGE_INVALID_SLOT"
	CodeChallengeNotFound         Code = "CHALLENGE_NOT_FOUND"
	CodeChallengeNotOwned         Code = "CHALLENGE_NOT_OWNED"
	CodeChallengeExpired          Code = "CHALLENGE_EXPIRED"
	CodeChallengeOutOfRange       Code = "CHALLENGE_OUT_OF_RANGE"
	CodeChallengeAlreadyResponded Code = "CHALLENGE_ALREADY_RESPONDED"

	// Auth errors
	CodeUnauthenticated Code = "UNAUTHENTICATED"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeInvalidRequest,
		CodeEmployeeMissing,
		CodeProjectScopeMissing,
		CodeInvalidCoordinates,
		CodeInvalidEventFilter,
		CodeTimesheetInvalidMonth,
		CodeTimesheetInvalidTimezone,
		CodeChallengeInvalidSlot:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeProjectMembershipRequired,
		CodeProjectSiteLocationMissing,
		CodeShiftNotActive,
		CodeChallengeExpired,
		CodeChallengeAlreadyResponded:
		return codes.FailedPrecondition

	case CodeChallengeOutOfRange:
		return codes.OutOfRange

	case CodeChallengeNotOwned:
		return codes.PermissionDenied

	// NotFound - resource doesn't exist
	case CodeNotFound,
		CodeChallengeNotFound:
		return codes.NotFound

	case CodeUnauthenticated:
		return codes.Unauthenticated

	default:
		return codes.Internal
	}
}

// HTTPStatus maps the code onto an HTTP status through its gRPC code, using
// the same table as the google.rpc HTTP mapping.
func (c Code) HTTPStatus() int {
	return HTTPStatusFromGRPC(c.GRPCCode())
}

// HTTPStatusFromGRPC converts a gRPC status code to its HTTP equivalent.
func HTTPStatusFromGRPC(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.Canceled:
		return 499
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
