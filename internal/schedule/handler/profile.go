package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/verawork/vera-backend/internal/schedule/service"
	"github.com/verawork/vera-backend/pkg/httputil"
	"github.com/verawork/vera-backend/pkg/logger"
)

// ProfileHandler handles holiday profile endpoints
type ProfileHandler struct {
	service *service.ProfileService
	logger  *logger.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(svc *service.ProfileService, log *logger.Logger) *ProfileHandler {
	return &ProfileHandler{service: svc, logger: log}
}

// List lists the tenant's holiday profiles
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.List(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, profiles)
}

// Get gets a profile with its periods and custom days
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, profile)
}

// Create creates a profile, optionally pre-filled with the school year
func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateProfileRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	profile, err := h.service.Create(r.Context(), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, profile)
}

// Update renames, re-regions, or activates a profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateProfileRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	profile, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, profile)
}

// Delete removes an unreferenced profile
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// AddPeriod attaches a vacation period
func (h *ProfileHandler) AddPeriod(w http.ResponseWriter, r *http.Request) {
	var req service.PeriodRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	period, err := h.service.AddPeriod(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, period)
}

// RemovePeriod detaches a vacation period
func (h *ProfileHandler) RemovePeriod(w http.ResponseWriter, r *http.Request) {
	err := h.service.RemovePeriod(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "pid"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// AddCustomDay attaches a custom holiday date
func (h *ProfileHandler) AddCustomDay(w http.ResponseWriter, r *http.Request) {
	var req service.CustomDayRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	day, err := h.service.AddCustomDay(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, day)
}

// RemoveCustomDay detaches a custom holiday
func (h *ProfileHandler) RemoveCustomDay(w http.ResponseWriter, r *http.Request) {
	err := h.service.RemoveCustomDay(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "did"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
