package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeInvalidRequest             = "REQUEST_INVALID"
	CodeEmployeeMissing            = "EMPLOYEE_ID_MISSING"
	CodeProjectScopeMissing        = "PROJECT_SCOPE_MISSING"
	CodeInvalidCoordinates         = "GEO_INVALID_COORDINATES"
	CodeInvalidEventFilter         = "EVENT_INVALID_FILTER"
	CodeTimesheetInvalidMonth      = "TIMESHEET_INVALID_MONTH"
	CodeTimesheetInvalidTimezone   = "TIMESHEET_INVALID_TIMEZONE"
	CodeProjectMembershipRequired  = "PROJECT_MEMBERSHIP_REQUIRED"
	CodeProjectSiteLocationMissing = "PROJECT_SITE_LOCATION_MISSING"
	CodeShiftNotActive             = "SHIFT_NOT_ACTIVE"
	CodeChallengeInvalidSlot       = "CHALLENGE_INVALID_SLOT"
	CodeChallengeNotFound          = "CHALLENGE_NOT_FOUND"
	CodeChallengeNotOwned          = "CHALLENGE_NOT_OWNED"
	CodeChallengeExpired           = "CHALLENGE_EXPIRED"
	CodeChallengeOutOfRange        = "CHALLENGE_OUT_OF_RANGE"
	CodeChallengeAlreadyResponded  = "CHALLENGE_ALREADY_RESPONDED"
	CodeUnauthenticated            = "UNAUTHENTICATED"
	CodeNotFound                   = "NOT_FOUND"
	CodeUnknown                    = "UNKNOWN"
)

var enUS = map[Code]string{
	CodeInvalidRequest:             "The request is invalid.",
	CodeEmployeeMissing:            "An employee is required.",
	CodeProjectScopeMissing:        "A project is required.",
	CodeInvalidCoordinates:         "The reported location is not a valid coordinate.",
	CodeInvalidEventFilter:         "The event filter could not be understood.",
	CodeTimesheetInvalidMonth:      "Month must be formatted as YYYY-MM.",
	CodeTimesheetInvalidTimezone:   "Unknown timezone {{.Timezone}}.",
	CodeProjectMembershipRequired:  "You are not a member of this project.",
	CodeProjectSiteLocationMissing: "The project site location is missing.",
	CodeShiftNotActive:             "You have no active shift today.",
	CodeChallengeInvalidSlot:       "Slot must be 1 or 2.",
	CodeChallengeNotFound:          "The presence check does not exist.",
	CodeChallengeNotOwned:          "This presence check belongs to someone else.",
	CodeChallengeExpired:           "The presence check closed at {{.Deadline}}.",
	CodeChallengeOutOfRange:        "You are {{.Distance}} m from the site; the limit is {{.Radius}} m.",
	CodeChallengeAlreadyResponded:  "This presence check was already answered.",
	CodeUnauthenticated:            "Sign in to continue.",
	CodeNotFound:                   "Not found.",
	CodeUnknown:                    "Something went wrong. Please try again.",
}
