package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/verawork/vera-backend/internal/schedule/repository"
	"github.com/verawork/vera-backend/internal/schedule/service"
	"github.com/verawork/vera-backend/pkg/httputil"
	"github.com/verawork/vera-backend/pkg/logger"
)

// ShiftHandler handles shift endpoints
type ShiftHandler struct {
	service *service.ShiftService
	logger  *logger.Logger
}

// NewShiftHandler creates a new shift handler
func NewShiftHandler(svc *service.ShiftService, log *logger.Logger) *ShiftHandler {
	return &ShiftHandler{service: svc, logger: log}
}

// List lists shifts with optional filters
func (h *ShiftHandler) List(w http.ResponseWriter, r *http.Request) {
	params := repository.ShiftListParams{
		Page:    parseIntQuery(r, "page", 1),
		PerPage: parseIntQuery(r, "per_page", 100),
	}

	if v := r.URL.Query().Get("employee_id"); v != "" {
		params.EmployeeID = &v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		params.Status = &v
	}
	params.OpenOnly = r.URL.Query().Get("open_only") == "true"

	if v := r.URL.Query().Get("from"); v != "" {
		if d, err := time.Parse("2006-01-02", v); err == nil {
			params.StartDate = &d
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if d, err := time.Parse("2006-01-02", v); err == nil {
			params.EndDate = &d
		}
	}

	shifts, total, err := h.service.List(r.Context(), params)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, shifts, &httputil.Meta{
		Page:    params.Page,
		PerPage: params.PerPage,
		Total:   total,
	})
}

// Get gets a single shift
func (h *ShiftHandler) Get(w http.ResponseWriter, r *http.Request) {
	shift, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, shift)
}

// Create creates a single shift
func (h *ShiftHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateShiftRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	shift, err := h.service.Create(r.Context(), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, shift)
}

// CreateBulk creates many shifts atomically
func (h *ShiftHandler) CreateBulk(w http.ResponseWriter, r *http.Request) {
	var reqs []service.CreateShiftRequest
	if err := httputil.DecodeJSON(r, &reqs); err != nil {
		httputil.Error(w, err)
		return
	}
	for _, req := range reqs {
		if err := httputil.Validate(req); err != nil {
			httputil.Error(w, err)
			return
		}
	}

	shifts, err := h.service.CreateBulk(r.Context(), reqs)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, shifts)
}

// Update applies a partial shift update under the role matrix
func (h *ShiftHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateShiftRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	shift, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, shift)
}

// Confirm transitions a planned shift to confirmed
func (h *ShiftHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req service.ConfirmShiftRequest
	if r.ContentLength > 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}
	}

	shift, err := h.service.Confirm(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, shift)
}

// Claim assigns an open shift to the caller's employee
func (h *ShiftHandler) Claim(w http.ResponseWriter, r *http.Request) {
	shift, err := h.service.Claim(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, shift)
}

// Delete removes a shift
func (h *ShiftHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

func parseIntQuery(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}
