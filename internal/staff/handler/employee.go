package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/verawork/vera-backend/internal/staff/repository"
	"github.com/verawork/vera-backend/internal/staff/service"
	"github.com/verawork/vera-backend/pkg/errors"
	"github.com/verawork/vera-backend/pkg/httputil"
	"github.com/verawork/vera-backend/pkg/logger"
)

// EmployeeHandler handles employee endpoints
type EmployeeHandler struct {
	employees *service.EmployeeService
	contracts *service.ContractService
	logger    *logger.Logger
}

// NewEmployeeHandler creates a new employee handler
func NewEmployeeHandler(employees *service.EmployeeService, contracts *service.ContractService, log *logger.Logger) *EmployeeHandler {
	return &EmployeeHandler{employees: employees, contracts: contracts, logger: log}
}

// List lists employees
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	params := repository.EmployeeListParams{
		ActiveOnly: r.URL.Query().Get("active_only") == "true",
	}
	if s := r.URL.Query().Get("search"); s != "" {
		params.Search = &s
	}
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		params.Page = p
	}
	if pp, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil {
		params.PerPage = pp
	}

	employees, total, err := h.employees.List(r.Context(), params)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSONWithMeta(w, http.StatusOK, employees, &httputil.Meta{
		Page:    params.Page,
		PerPage: params.PerPage,
		Total:   total,
	})
}

// Create creates an employee
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateEmployeeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	e, err := h.employees.Create(r.Context(), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, e)
}

// Me returns the caller's linked employee record
func (h *EmployeeHandler) Me(w http.ResponseWriter, r *http.Request) {
	e, err := h.employees.Me(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, e)
}

// UpdateMe updates the caller's own employee record
func (h *EmployeeHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	employeeID := httputil.GetEmployeeID(r.Context())
	if employeeID == "" {
		httputil.Error(w, errors.NotFound("employee"))
		return
	}
	h.update(w, r, employeeID)
}

// Get returns one employee
func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.employees.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, e)
}

// Update updates an employee
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, chi.URLParam(r, "id"))
}

func (h *EmployeeHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	var req service.UpdateEmployeeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	e, err := h.employees.Update(r.Context(), id, req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, e)
}

// Delete deactivates an employee
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.employees.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// RotateToken issues a fresh calendar feed token
func (h *EmployeeHandler) RotateToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.employees.RotateICalToken(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"ical_token": token})
}

// ListContracts returns an employee's contract history
func (h *EmployeeHandler) ListContracts(w http.ResponseWriter, r *http.Request) {
	contracts, err := h.contracts.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, contracts)
}

// AddContract appends a contract change
func (h *EmployeeHandler) AddContract(w http.ResponseWriter, r *http.Request) {
	var req service.AddContractRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	c, err := h.contracts.Add(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, c)
}
