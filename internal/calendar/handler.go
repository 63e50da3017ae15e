package calendar

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/verawork/vera-backend/internal/holidays"
	schedulerepo "github.com/verawork/vera-backend/internal/schedule/repository"
	staffrepo "github.com/verawork/vera-backend/internal/staff/repository"
	"github.com/verawork/vera-backend/pkg/errors"
	"github.com/verawork/vera-backend/pkg/httputil"
	"github.com/verawork/vera-backend/pkg/logger"
	"github.com/verawork/vera-backend/pkg/tenant"
)

// Handler serves the public iCal feed and the authenticated
// vacation-data endpoint.
type Handler struct {
	employees *staffrepo.EmployeeRepository
	shifts    *schedulerepo.ShiftRepository
	profiles  *schedulerepo.ProfileRepository
	calendar  *holidays.Calendar
	logger    *logger.Logger
}

// NewHandler creates a new calendar handler
func NewHandler(
	employees *staffrepo.EmployeeRepository,
	shifts *schedulerepo.ShiftRepository,
	profiles *schedulerepo.ProfileRepository,
	cal *holidays.Calendar,
	log *logger.Logger,
) *Handler {
	return &Handler{
		employees: employees,
		shifts:    shifts,
		profiles:  profiles,
		calendar:  cal,
		logger:    log,
	}
}

// Feed serves GET /calendar/{token}.ics. The token is the credential;
// no bearer auth applies. Scope follows the employee's ical_scope.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSuffix(chi.URLParam(r, "token"), ".ics")
	if token == "" {
		httputil.Error(w, errors.NotFound("calendar"))
		return
	}

	employee, tenantID, err := h.employees.GetByICalToken(r.Context(), token)
	if err != nil {
		httputil.Error(w, errors.NotFound("calendar"))
		return
	}
	ctx := tenant.WithTenantID(r.Context(), tenantID)

	now := time.Now()
	from := now.AddDate(-1, 0, 0)
	to := now.AddDate(1, 0, 0)

	var employeeID *string
	calName := "VERA – Alle Dienste"
	filename := "vera-alle-dienste.ics"
	if employee.ICalScope != "tenant" {
		employeeID = &employee.ID
		calName = "VERA – " + employee.FullName()
		filename = "vera-" + strings.ToLower(employee.FirstName) + ".ics"
	}

	shifts, err := h.shifts.ListForFeed(ctx, employeeID, from, to)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	body := BuildFeed(shifts, calName, now)
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

// VacationPeriodOut is one vacation range for calendar display
type VacationPeriodOut struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Color     string `json:"color"`
}

// CustomHolidayOut is one tenant-defined closure day
type CustomHolidayOut struct {
	ID    string `json:"id"`
	Date  string `json:"date"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// PublicHolidayOut is one statutory holiday
type PublicHolidayOut struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// VacationData is the payload for the calendar background layer
type VacationData struct {
	VacationPeriods []VacationPeriodOut `json:"vacation_periods"`
	CustomHolidays  []CustomHolidayOut  `json:"custom_holidays"`
	PublicHolidays  []PublicHolidayOut  `json:"public_holidays"`
}

// Vacations serves GET /calendar/vacation-data?from=&to= with the
// active profile's periods and custom days plus statutory holidays.
func (h *Handler) Vacations(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		httputil.Error(w, errors.BadRequest("from must be YYYY-MM-DD"))
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		httputil.Error(w, errors.BadRequest("to must be YYYY-MM-DD"))
		return
	}

	data := VacationData{
		VacationPeriods: []VacationPeriodOut{},
		CustomHolidays:  []CustomHolidayOut{},
		PublicHolidays:  []PublicHolidayOut{},
	}

	active, err := h.profiles.GetActive(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	region := holidays.DefaultRegion
	if active != nil {
		profile, err := h.profiles.GetWithDetails(r.Context(), active.ID)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		if profile.RegionCode != "" {
			region = profile.RegionCode
		}
		for _, vp := range profile.VacationPeriods {
			if vp.EndDate.Before(from) || vp.StartDate.After(to) {
				continue
			}
			data.VacationPeriods = append(data.VacationPeriods, VacationPeriodOut{
				ID:        vp.ID,
				Name:      vp.Name,
				StartDate: vp.StartDate.Format("2006-01-02"),
				EndDate:   vp.EndDate.Format("2006-01-02"),
				Color:     vp.Color,
			})
		}
		for _, ch := range profile.CustomHolidays {
			if ch.Date.Before(from) || ch.Date.After(to) {
				continue
			}
			data.CustomHolidays = append(data.CustomHolidays, CustomHolidayOut{
				ID:    ch.ID,
				Date:  ch.Date.Format("2006-01-02"),
				Name:  ch.Name,
				Color: ch.Color,
			})
		}
	}

	for year := from.Year(); year <= to.Year(); year++ {
		for dateStr, name := range h.calendar.Year(region, year) {
			d, err := time.Parse(holidays.DateFormat, dateStr)
			if err != nil || d.Before(from) || d.After(to) {
				continue
			}
			data.PublicHolidays = append(data.PublicHolidays, PublicHolidayOut{
				Date: dateStr,
				Name: name,
			})
		}
	}

	httputil.JSON(w, http.StatusOK, data)
}
