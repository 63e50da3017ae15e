package notify

import (
	"net/http"
	"strconv"

	"github.com/verawork/vera-backend/internal/auth"
	"github.com/verawork/vera-backend/pkg/config"
	"github.com/verawork/vera-backend/pkg/errors"
	"github.com/verawork/vera-backend/pkg/httputil"
	"github.com/verawork/vera-backend/pkg/logger"
)

// Handler handles notification log and push subscription endpoints
type Handler struct {
	repo    *Repository
	webpush *config.WebPushConfig
	logger  *logger.Logger
}

// NewHandler creates a new notification handler
func NewHandler(repo *Repository, webpush *config.WebPushConfig, log *logger.Logger) *Handler {
	return &Handler{repo: repo, webpush: webpush, logger: log}
}

// ListLogs lists dispatch records. Employees see only their own.
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	var employeeID *string
	if e := r.URL.Query().Get("employee_id"); e != "" {
		employeeID = &e
	}

	if !auth.IsPrivileged(httputil.GetUserRole(r.Context())) {
		own := httputil.GetEmployeeID(r.Context())
		if own == "" {
			httputil.Error(w, errors.Forbidden("no employee linked to this account"))
			return
		}
		employeeID = &own
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		limit, _ = strconv.Atoi(l)
	}

	logs, err := h.repo.ListLogs(r.Context(), employeeID, limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, logs)
}

// VAPIDPublicKey exposes the push application server key
func (h *Handler) VAPIDPublicKey(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"public_key": h.webpush.VAPIDPublicKey,
	})
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
	Keys     struct {
		P256dh string `json:"p256dh" validate:"required"`
		Auth   string `json:"auth" validate:"required"`
	} `json:"keys"`
}

// Subscribe registers the caller's browser push endpoint
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	employeeID := httputil.GetEmployeeID(r.Context())
	if employeeID == "" {
		httputil.Error(w, errors.Forbidden("no employee linked to this account"))
		return
	}

	var req subscribeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	sub := &PushSubscription{
		EmployeeID: employeeID,
		Endpoint:   req.Endpoint,
		P256dh:     req.Keys.P256dh,
		Auth:       req.Keys.Auth,
	}
	if err := h.repo.SaveSubscription(r.Context(), sub); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, sub)
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
}

// Unsubscribe removes a push endpoint
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.repo.DeleteSubscription(r.Context(), req.Endpoint); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
