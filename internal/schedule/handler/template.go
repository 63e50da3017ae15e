package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/verawork/vera-backend/internal/schedule/service"
	"github.com/verawork/vera-backend/pkg/httputil"
)

// TemplateHandler handles shift template endpoints
type TemplateHandler struct {
	service *service.TemplateService
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(svc *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{service: svc}
}

// List lists shift templates
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") == "true"

	templates, err := h.service.List(r.Context(), activeOnly)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, templates)
}

// Create creates a shift template
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.TemplateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	tmpl, err := h.service.Create(r.Context(), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, tmpl)
}

// Update replaces a template's definition
func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.TemplateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	tmpl, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, tmpl)
}
