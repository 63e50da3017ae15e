package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/verawork/vera-backend/internal/schedule/repository"
	"github.com/verawork/vera-backend/internal/schedule/service"
	"github.com/verawork/vera-backend/pkg/errors"
	"github.com/verawork/vera-backend/pkg/httputil"
	"github.com/verawork/vera-backend/pkg/logger"
)

// RecurringHandler handles recurring shift rule endpoints
type RecurringHandler struct {
	expander *service.ExpanderService
	rules    *repository.RecurringRepository
	logger   *logger.Logger
}

// NewRecurringHandler creates a new recurring shift handler
func NewRecurringHandler(expander *service.ExpanderService, rules *repository.RecurringRepository, log *logger.Logger) *RecurringHandler {
	return &RecurringHandler{expander: expander, rules: rules, logger: log}
}

type createRuleRequest struct {
	Weekday            int     `json:"weekday" validate:"min=0,max=6"`
	StartTime          string  `json:"start_time" validate:"required"`
	EndTime            string  `json:"end_time" validate:"required"`
	BreakMinutes       int     `json:"break_minutes" validate:"min=0"`
	EmployeeID         *string `json:"employee_id,omitempty"`
	TemplateID         *string `json:"template_id,omitempty"`
	ValidFrom          string  `json:"valid_from" validate:"required"`
	ValidUntil         string  `json:"valid_until" validate:"required"`
	HolidayProfileID   *string `json:"holiday_profile_id,omitempty"`
	SkipPublicHolidays bool    `json:"skip_public_holidays"`
	Label              *string `json:"label,omitempty"`
}

// List lists recurring shift rules
func (h *RecurringHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") != "false"

	rules, err := h.rules.List(r.Context(), activeOnly)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, rules)
}

// Create creates a rule and materialises it over its validity window
func (h *RecurringHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	validFrom, err := time.Parse("2006-01-02", req.ValidFrom)
	if err != nil {
		httputil.Error(w, errors.BadRequest("valid_from must be an ISO date"))
		return
	}
	validUntil, err := time.Parse("2006-01-02", req.ValidUntil)
	if err != nil {
		httputil.Error(w, errors.BadRequest("valid_until must be an ISO date"))
		return
	}

	userID := httputil.GetUserID(r.Context())
	rule := &repository.RecurringShift{
		Weekday:            req.Weekday,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		BreakMinutes:       req.BreakMinutes,
		EmployeeID:         req.EmployeeID,
		TemplateID:         req.TemplateID,
		ValidFrom:          validFrom,
		ValidUntil:         validUntil,
		HolidayProfileID:   req.HolidayProfileID,
		SkipPublicHolidays: req.SkipPublicHolidays,
		Label:              req.Label,
	}
	if userID != "" {
		rule.CreatedBy = &userID
	}

	result, err := h.expander.CreateAndGenerate(r.Context(), rule)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, result)
}

// Preview dry-runs an expansion without writing
func (h *RecurringHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req service.PreviewRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.expander.Preview(r.Context(), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

// Update changes a rule's definition without touching generated shifts
func (h *RecurringHandler) Update(w http.ResponseWriter, r *http.Request) {
	rule, err := h.rules.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req createRuleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	validFrom, err := time.Parse("2006-01-02", req.ValidFrom)
	if err != nil {
		httputil.Error(w, errors.BadRequest("valid_from must be an ISO date"))
		return
	}
	validUntil, err := time.Parse("2006-01-02", req.ValidUntil)
	if err != nil {
		httputil.Error(w, errors.BadRequest("valid_until must be an ISO date"))
		return
	}

	rule.Weekday = req.Weekday
	rule.StartTime = req.StartTime
	rule.EndTime = req.EndTime
	rule.BreakMinutes = req.BreakMinutes
	rule.EmployeeID = req.EmployeeID
	rule.TemplateID = req.TemplateID
	rule.ValidFrom = validFrom
	rule.ValidUntil = validUntil
	rule.HolidayProfileID = req.HolidayProfileID
	rule.SkipPublicHolidays = req.SkipPublicHolidays
	rule.Label = req.Label

	if err := h.rules.Update(r.Context(), rule); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, rule)
}

type updateFromRequest struct {
	FromDate string `json:"from_date" validate:"required"`
	service.RegenerateUpdate
}

// UpdateFrom regenerates a rule's shifts from a date onwards,
// optionally with changed times
func (h *RecurringHandler) UpdateFrom(w http.ResponseWriter, r *http.Request) {
	var req updateFromRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	fromDate, err := time.Parse("2006-01-02", req.FromDate)
	if err != nil {
		httputil.Error(w, errors.BadRequest("from_date must be an ISO date"))
		return
	}

	result, err := h.expander.RegenerateFrom(r.Context(), chi.URLParam(r, "id"), fromDate, &req.RegenerateUpdate)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

// Delete soft-deletes a rule and its still-planned generated shifts
func (h *RecurringHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.expander.SoftDelete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
