package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/verawork/vera-backend/internal/payroll/repository"
	"github.com/verawork/vera-backend/internal/payroll/service"
	staffrepo "github.com/verawork/vera-backend/internal/staff/repository"
	"github.com/verawork/vera-backend/internal/tenants"
	"github.com/verawork/vera-backend/pkg/errors"
	"github.com/verawork/vera-backend/pkg/httputil"
	"github.com/verawork/vera-backend/pkg/logger"
)

// PayrollHandler handles payroll endpoints
type PayrollHandler struct {
	service   *service.PayrollService
	entries   *repository.PayrollRepository
	employees *staffrepo.EmployeeRepository
	tenants   *tenants.Repository
	logger    *logger.Logger
}

// NewPayrollHandler creates a new payroll handler
func NewPayrollHandler(
	svc *service.PayrollService,
	entries *repository.PayrollRepository,
	employees *staffrepo.EmployeeRepository,
	tenantRepo *tenants.Repository,
	log *logger.Logger,
) *PayrollHandler {
	return &PayrollHandler{
		service:   svc,
		entries:   entries,
		employees: employees,
		tenants:   tenantRepo,
		logger:    log,
	}
}

// parseMonth accepts YYYY-MM or YYYY-MM-DD and normalises to the first
// of the month.
func parseMonth(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01", s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, errors.BadRequest("month must be YYYY-MM or YYYY-MM-DD")
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
}

// List lists payroll entries
func (h *PayrollHandler) List(w http.ResponseWriter, r *http.Request) {
	var params repository.ListParams
	if e := r.URL.Query().Get("employee_id"); e != "" {
		params.EmployeeID = &e
	}
	if m := r.URL.Query().Get("month"); m != "" {
		month, err := parseMonth(m)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		params.Month = &month
	}
	if s := r.URL.Query().Get("status"); s != "" {
		params.Status = &s
	}

	entries, err := h.service.List(r.Context(), params)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, entries)
}

type calculateRequest struct {
	EmployeeID string `json:"employee_id" validate:"required,uuid"`
	Month      string `json:"month" validate:"required"`
}

// Calculate recomputes one employee-month
func (h *PayrollHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}
	month, err := parseMonth(req.Month)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.CalculateOne(r.Context(), req.EmployeeID, month)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

type calculateAllRequest struct {
	Month string `json:"month" validate:"required"`
}

// CalculateAll recomputes the month for every active employee
func (h *PayrollHandler) CalculateAll(w http.ResponseWriter, r *http.Request) {
	var req calculateAllRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}
	month, err := parseMonth(req.Month)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.CalculateAll(r.Context(), month)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

// Get returns one payroll entry
func (h *PayrollHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, entry)
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft approved paid"`
}

// UpdateStatus moves an entry along its status transitions
func (h *PayrollHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	entry, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, entry)
}

// PDF streams one entry as a payslip PDF
func (h *PayrollHandler) PDF(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	employee, err := h.employees.GetByID(r.Context(), entry.EmployeeID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	tenantName, err := h.tenants.Name(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	data, err := service.GeneratePayslipPDF(entry, employee, tenantName)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	filename := fmt.Sprintf("lohnzettel_%s_%s.pdf",
		employee.LastName, entry.Month.Format("2006-01"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Export streams all entries of one month as XLSX
func (h *PayrollHandler) Export(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonth(r.URL.Query().Get("month"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	entries, err := h.entries.ListForMonth(r.Context(), month)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	data, err := service.GenerateMonthXLSX(entries, month)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	filename := fmt.Sprintf("lohnabrechnung_%s.xlsx", month.Format("2006-01"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
