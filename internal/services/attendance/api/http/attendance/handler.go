package attendance

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shiftproof/shiftproof/internal/platform/httpx"
	"github.com/shiftproof/shiftproof/internal/platform/requestctx"
	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/ledger"
	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/presence"
	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/timesheet"
	"github.com/shiftproof/shiftproof/internal/services/attendance/export"
	"github.com/shiftproof/shiftproof/internal/services/attendance/service"
)

// Service is the attendance surface the transport calls.
type Service interface {
	MonthTimesheet(ctx context.Context, in service.MonthTimesheetInput) (timesheet.MonthTimesheet, error)
	EnsureTodayChallenges(ctx context.Context, employeeID, projectID string) ([]presence.Challenge, error)
	ListTodayChallenges(ctx context.Context, employeeID, projectID string) ([]presence.Challenge, error)
	CreateChallenge(ctx context.Context, employeeID, projectID string, slot int) (presence.Challenge, error)
	ReplaceFireTime(ctx context.Context, in service.ReplaceFireTimeInput) (presence.Challenge, error)
	RespondToChallenge(ctx context.Context, in service.RespondInput) (presence.Outcome, error)
	RecordToggle(ctx context.Context, in service.ToggleInput) (ledger.Event, error)
	ListEvents(ctx context.Context, in service.ListEventsInput) (service.EventsPage, error)
}

// Handler routes the attendance API.
type Handler struct {
	svc   Service
	clock func() time.Time
}

// NewHandler builds the authenticated API handler. A nil clock uses time.Now.
func NewHandler(svc Service, verifier *Verifier, clock func() time.Time) (http.Handler, error) {
	if svc == nil {
		return nil, fmt.Errorf("attendance service is required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("token verifier is required")
	}
	if clock == nil {
		clock = time.Now
	}
	h := &Handler{svc: svc, clock: clock}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/timesheets/{month}", h.getMonthTimesheet)
	mux.HandleFunc("GET /v1/timesheets/{month}/export.xlsx", h.exportMonthTimesheet)
	mux.HandleFunc("POST /v1/projects/{projectID}/challenges/today", h.ensureTodayChallenges)
	mux.HandleFunc("GET /v1/projects/{projectID}/challenges/today", h.listTodayChallenges)
	mux.HandleFunc("POST /v1/projects/{projectID}/challenges", h.createChallenge)
	mux.HandleFunc("PUT /v1/projects/{projectID}/challenges/{slot}/fire-time", h.replaceFireTime)
	mux.HandleFunc("POST /v1/challenges/{challengeID}/responses", h.respondToChallenge)
	mux.HandleFunc("POST /v1/projects/{projectID}/toggle", h.recordToggle)
	mux.HandleFunc("GET /v1/events", h.listEvents)

	return httpx.Chain(mux, Authenticate(verifier)), nil
}

func (h *Handler) monthInput(r *http.Request) service.MonthTimesheetInput {
	query := r.URL.Query()
	return service.MonthTimesheetInput{
		EmployeeID: requestctx.UserIDFromContext(r.Context()),
		Month:      r.PathValue("month"),
		Timezone:   query.Get("timezone"),
		ProjectID:  query.Get("project_id"),
	}
}

func (h *Handler) getMonthTimesheet(w http.ResponseWriter, r *http.Request) {
	sheet, err := h.svc.MonthTimesheet(r.Context(), h.monthInput(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, timesheetResponse(sheet))
}

func (h *Handler) exportMonthTimesheet(w http.ResponseWriter, r *http.Request) {
	sheet, err := h.svc.MonthTimesheet(r.Context(), h.monthInput(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, []timesheet.MonthTimesheet{sheet}); err != nil {
		writeError(w, r, fmt.Errorf("render workbook: %w", err))
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "timesheet-"+sheet.Month.String()+".xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) ensureTodayChallenges(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.EnsureTodayChallenges(r.Context(), requestctx.UserIDFromContext(r.Context()), r.PathValue("projectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, challengeListResponse(list, h.clock()))
}

func (h *Handler) listTodayChallenges(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListTodayChallenges(r.Context(), requestctx.UserIDFromContext(r.Context()), r.PathValue("projectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, challengeListResponse(list, h.clock()))
}

func (h *Handler) createChallenge(w http.ResponseWriter, r *http.Request) {
	var req createChallengeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, badRequest("invalid challenge request", err))
		return
	}
	c, err := h.svc.CreateChallenge(r.Context(), requestctx.UserIDFromContext(r.Context()), r.PathValue("projectID"), req.Slot)
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, challengeResponse(c, h.clock()))
}

func (h *Handler) replaceFireTime(w http.ResponseWriter, r *http.Request) {
	slot, err := strconv.Atoi(r.PathValue("slot"))
	if err != nil {
		writeError(w, r, badRequest("slot must be a number", err))
		return
	}
	var req fireTimeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, badRequest("invalid fire time request", err))
		return
	}
	c, err := h.svc.ReplaceFireTime(r.Context(), service.ReplaceFireTimeInput{
		EmployeeID: requestctx.UserIDFromContext(r.Context()),
		ProjectID:  r.PathValue("projectID"),
		Slot:       slot,
		FiredAt:    req.FiredAt,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, challengeResponse(c, h.clock()))
}

// respondToChallenge answers 200 for an accepted response and the status of
// the rejection reason otherwise, with the outcome as body in both cases.
func (h *Handler) respondToChallenge(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, badRequest("invalid response body", err))
		return
	}
	if req.Lat == nil || req.Lng == nil {
		writeError(w, r, badRequest("lat and lng are required", nil))
		return
	}
	outcome, err := h.svc.RespondToChallenge(r.Context(), service.RespondInput{
		ChallengeID: r.PathValue("challengeID"),
		EmployeeID:  requestctx.UserIDFromContext(r.Context()),
		Lat:         *req.Lat,
		Lng:         *req.Lng,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if !outcome.Accepted {
		status = outcome.Reason.Code().HTTPStatus()
	}
	_ = httpx.WriteJSON(w, status, outcomeResponse(outcome))
}

func (h *Handler) recordToggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, badRequest("invalid toggle request", err))
		return
	}
	if (req.Lat == nil) != (req.Lng == nil) {
		writeError(w, r, badRequest("lat and lng must be set together", nil))
		return
	}
	in := service.ToggleInput{
		EmployeeID: requestctx.UserIDFromContext(r.Context()),
		ProjectID:  r.PathValue("projectID"),
		OccurredAt: req.OccurredAt,
	}
	if req.Lat != nil {
		in.Geo = &ledger.Geo{Lat: *req.Lat, Lng: *req.Lng}
	}
	evt, err := h.svc.RecordToggle(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, eventResponse(evt))
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var pageSize int
	if raw := strings.TrimSpace(query.Get("page_size")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, badRequest("page_size must be a non-negative number", err))
			return
		}
		pageSize = n
	}
	page, err := h.svc.ListEvents(r.Context(), service.ListEventsInput{
		EmployeeID: requestctx.UserIDFromContext(r.Context()),
		Filter:     query.Get("filter"),
		PageSize:   pageSize,
		PageToken:  query.Get("page_token"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, eventPageResponse(page))
}
