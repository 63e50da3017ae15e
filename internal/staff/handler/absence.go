package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/verawork/vera-backend/internal/staff/repository"
	"github.com/verawork/vera-backend/internal/staff/service"
	"github.com/verawork/vera-backend/pkg/httputil"
	"github.com/verawork/vera-backend/pkg/logger"
)

// AbsenceHandler handles absence endpoints
type AbsenceHandler struct {
	service *service.AbsenceService
	logger  *logger.Logger
}

// NewAbsenceHandler creates a new absence handler
func NewAbsenceHandler(svc *service.AbsenceService, log *logger.Logger) *AbsenceHandler {
	return &AbsenceHandler{service: svc, logger: log}
}

// List lists absences
func (h *AbsenceHandler) List(w http.ResponseWriter, r *http.Request) {
	var params repository.AbsenceListParams
	if e := r.URL.Query().Get("employee_id"); e != "" {
		params.EmployeeID = &e
	}
	if s := r.URL.Query().Get("status"); s != "" {
		params.Status = &s
	}
	if y := r.URL.Query().Get("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err == nil {
			params.Year = &year
		}
	}

	absences, err := h.service.List(r.Context(), params)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, absences)
}

// Create files an absence request
func (h *AbsenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateAbsenceRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	a, err := h.service.Create(r.Context(), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, a)
}

// Get returns one absence
func (h *AbsenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, a)
}

type decideRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

// Decide approves or rejects an absence
func (h *AbsenceHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var req decideRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.Decide(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

// ListCare lists care absences
func (h *AbsenceHandler) ListCare(w http.ResponseWriter, r *http.Request) {
	var employeeID *string
	if e := r.URL.Query().Get("employee_id"); e != "" {
		employeeID = &e
	}

	absences, err := h.service.ListCare(r.Context(), employeeID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, absences)
}

// CreateCare records a care absence
func (h *AbsenceHandler) CreateCare(w http.ResponseWriter, r *http.Request) {
	var req service.CreateCareRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	c, err := h.service.CreateCare(r.Context(), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, c)
}
