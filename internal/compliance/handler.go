package compliance

import (
	"net/http"
	"time"

	"github.com/verawork/vera-backend/internal/schedule/repository"
	"github.com/verawork/vera-backend/pkg/httputil"
)

// Handler handles compliance endpoints
type Handler struct {
	service *Service
	shifts  *repository.ShiftRepository
}

// NewHandler creates a new compliance handler
func NewHandler(service *Service, shifts *repository.ShiftRepository) *Handler {
	return &Handler{service: service, shifts: shifts}
}

// Violation is one flagged shift in the violations listing
type Violation struct {
	ShiftID        string  `json:"shift_id"`
	ShiftDate      string  `json:"shift_date"`
	StartTime      string  `json:"start_time"`
	EndTime        string  `json:"end_time"`
	EmployeeID     *string `json:"employee_id,omitempty"`
	EmployeeName   string  `json:"employee_name"`
	RestPeriodOK   bool    `json:"rest_period_ok"`
	BreakOK        bool    `json:"break_ok"`
	MinijobLimitOK bool    `json:"minijob_limit_ok"`
	Status         string  `json:"status"`
}

// ListViolations returns all shifts with at least one compliance flag down
func (h *Handler) ListViolations(w http.ResponseWriter, r *http.Request) {
	var employeeID *string
	var from, to *time.Time

	if e := r.URL.Query().Get("employee_id"); e != "" {
		employeeID = &e
	}
	if f := r.URL.Query().Get("from"); f != "" {
		t, err := time.Parse("2006-01-02", f)
		if err == nil {
			from = &t
		}
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err == nil {
			to = &t
		}
	}

	shifts, err := h.shifts.ListFlagged(r.Context(), employeeID, from, to)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	violations := make([]Violation, 0, len(shifts))
	for _, s := range shifts {
		name := "–"
		if s.EmployeeName != nil {
			name = *s.EmployeeName
		}
		violations = append(violations, Violation{
			ShiftID:        s.ID,
			ShiftDate:      s.Date.Format("2006-01-02"),
			StartTime:      s.StartTime,
			EndTime:        s.EndTime,
			EmployeeID:     s.EmployeeID,
			EmployeeName:   name,
			RestPeriodOK:   s.RestPeriodOK,
			BreakOK:        s.BreakOK,
			MinijobLimitOK: s.MinijobLimitOK,
			Status:         s.Status,
		})
	}
	httputil.JSON(w, http.StatusOK, violations)
}

// Run re-evaluates all assigned shifts in the range, defaulting to the
// last 365 days.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	today := time.Now().Truncate(24 * time.Hour)
	from := today.AddDate(0, 0, -365)
	to := today

	if f := r.URL.Query().Get("from"); f != "" {
		t, err := time.Parse("2006-01-02", f)
		if err == nil {
			from = t
		}
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err == nil {
			to = t
		}
	}

	result, err := h.service.Run(r.Context(), from, to)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}
