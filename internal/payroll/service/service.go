package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/verawork/vera-backend/internal/auth"
	"github.com/verawork/vera-backend/internal/holidays"
	"github.com/verawork/vera-backend/internal/payroll/repository"
	schedulerepo "github.com/verawork/vera-backend/internal/schedule/repository"
	staffrepo "github.com/verawork/vera-backend/internal/staff/repository"
	"github.com/verawork/vera-backend/pkg/errors"
	"github.com/verawork/vera-backend/pkg/httputil"
	"github.com/verawork/vera-backend/pkg/logger"
	"github.com/verawork/vera-backend/pkg/messaging"
	"github.com/verawork/vera-backend/pkg/tenant"
)

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// PayrollService computes and manages monthly settlements.
type PayrollService struct {
	entries   *repository.PayrollRepository
	shifts    *schedulerepo.ShiftRepository
	employees *staffrepo.EmployeeRepository
	contracts *staffrepo.ContractRepository
	calendar  *holidays.Calendar
	publisher EventPublisher
	logger    *logger.Logger
}

// NewPayrollService creates a new payroll service
func NewPayrollService(
	entries *repository.PayrollRepository,
	shifts *schedulerepo.ShiftRepository,
	employees *staffrepo.EmployeeRepository,
	contracts *staffrepo.ContractRepository,
	calendar *holidays.Calendar,
	publisher EventPublisher,
	log *logger.Logger,
) *PayrollService {
	return &PayrollService{
		entries:   entries,
		shifts:    shifts,
		employees: employees,
		contracts: contracts,
		calendar:  calendar,
		publisher: publisher,
		logger:    log,
	}
}

var defaultAnnualLimit = decimal.NewFromFloat(6672.00)

// CalculateResult is one recomputed settlement plus the carryover it
// produced for the following month.
type CalculateResult struct {
	Entry        *repository.PayrollEntry `json:"entry"`
	NewCarryover float64                  `json:"new_carryover"`
}

// CalculateOne recomputes the settlement for (employee, month). A
// locked (approved or paid) entry is never touched; the caller gets a
// conflict instead. An existing draft is replaced.
func (s *PayrollService) CalculateOne(ctx context.Context, employeeID string, month time.Time) (*CalculateResult, error) {
	if !auth.IsPrivileged(httputil.GetUserRole(ctx)) {
		return nil, errors.Forbidden("insufficient permissions")
	}

	month = firstOfMonth(month)

	existing, err := s.entries.GetByEmployeeMonth(ctx, employeeID, month)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status != repository.StatusDraft {
		return nil, errors.Conflict("payroll entry is locked")
	}

	result, err := s.compute(ctx, employeeID, month)
	if err != nil {
		return nil, err
	}

	if err := s.entries.Replace(ctx, result.Entry); err != nil {
		return nil, err
	}

	if result.NewCarryover != 0 {
		userID := httputil.GetUserID(ctx)
		carry := &repository.HoursCarryover{
			EmployeeID: employeeID,
			FromMonth:  month,
			ToMonth:    month.AddDate(0, 1, 0),
			Hours:      result.NewCarryover,
			CreatedBy:  &userID,
		}
		if err := s.entries.InsertCarryover(ctx, carry); err != nil {
			return nil, err
		}
	}

	s.publishEntry(ctx, messaging.EventPayrollCalculated, result.Entry)
	return result, nil
}

// CalculateAllResult summarises a whole-tenant payroll run
type CalculateAllResult struct {
	Calculated int `json:"calculated"`
	Skipped    int `json:"skipped"`
}

// CalculateAll recomputes the month for every active employee,
// silently skipping locked entries.
func (s *PayrollService) CalculateAll(ctx context.Context, month time.Time) (*CalculateAllResult, error) {
	if !auth.IsPrivileged(httputil.GetUserRole(ctx)) {
		return nil, errors.Forbidden("insufficient permissions")
	}

	month = firstOfMonth(month)

	employees, err := s.employees.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	result := &CalculateAllResult{}
	for _, e := range employees {
		existing, err := s.entries.GetByEmployeeMonth(ctx, e.ID, month)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.Status != repository.StatusDraft {
			result.Skipped++
			continue
		}

		cr, err := s.compute(ctx, e.ID, month)
		if err != nil {
			return nil, err
		}
		if err := s.entries.Replace(ctx, cr.Entry); err != nil {
			return nil, err
		}
		if cr.NewCarryover != 0 {
			carry := &repository.HoursCarryover{
				EmployeeID: e.ID,
				FromMonth:  month,
				ToMonth:    month.AddDate(0, 1, 0),
				Hours:      cr.NewCarryover,
			}
			if err := s.entries.InsertCarryover(ctx, carry); err != nil {
				return nil, err
			}
		}
		result.Calculated++
	}
	return result, nil
}

// compute builds one settlement without persisting it
func (s *PayrollService) compute(ctx context.Context, employeeID string, month time.Time) (*CalculateResult, error) {
	employee, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	hourlyRate := employee.HourlyRate
	monthlyLimit := employee.MonthlyHoursLimit
	annualLimit := defaultAnnualLimit
	if employee.AnnualSalaryLimit != nil {
		annualLimit = *employee.AnnualSalaryLimit
	}

	contract, err := s.contracts.ResolveAt(ctx, employeeID, month)
	if err != nil {
		return nil, err
	}
	if contract != nil {
		hourlyRate = contract.HourlyRate
		if contract.MonthlyHoursLimit != nil {
			monthlyLimit = contract.MonthlyHoursLimit
		}
		if contract.AnnualSalaryLimit != nil {
			annualLimit = *contract.AnnualSalaryLimit
		}
	}

	shifts, err := s.shifts.ListPayable(ctx, employeeID, month)
	if err != nil {
		return nil, err
	}

	carryoverHours := 0.0
	carry, err := s.entries.LatestCarryover(ctx, employeeID, month)
	if err != nil {
		return nil, err
	}
	if carry != nil {
		carryoverHours = carry.Hours
	}

	isHoliday := func(date time.Time) bool {
		return s.calendar.IsHoliday(holidays.DefaultRegion, date)
	}

	actualHours := 0.0
	surcharges := newShiftSurcharges()
	for _, shift := range shifts {
		actualHours += shift.NetHours()
		surcharges.merge(CalcSurcharges(shift, hourlyRate, isHoliday))
	}

	paidHours := actualHours + carryoverHours
	newCarryover := 0.0
	if monthlyLimit != nil && paidHours > *monthlyLimit {
		newCarryover = paidHours - *monthlyLimit
		paidHours = *monthlyLimit
	}

	baseWage := decimal.NewFromFloat(paidHours).Mul(hourlyRate).Round(2)
	totalGross := baseWage.Add(surcharges.Total()).Round(2)

	yearStart := time.Date(month.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	ytd, err := s.entries.YTDGross(ctx, employeeID, yearStart, month)
	if err != nil {
		return nil, err
	}
	ytdGross := ytd.Add(totalGross).Round(2)

	entry := &repository.PayrollEntry{
		EmployeeID:           employeeID,
		Month:                month,
		PlannedHours:         monthlyLimit,
		ActualHours:          round2(actualHours),
		CarryoverHours:       round2(carryoverHours),
		PaidHours:            round2(paidHours),
		EarlyHours:           round2(surcharges.Hours[CategoryEarly]),
		LateHours:            round2(surcharges.Hours[CategoryLate]),
		NightHours:           round2(surcharges.Hours[CategoryNight]),
		WeekendHours:         round2(surcharges.Hours[CategoryWeekend]),
		SundayHours:          round2(surcharges.Hours[CategorySunday]),
		HolidayHours:         round2(surcharges.Hours[CategoryHoliday]),
		BaseWage:             baseWage,
		EarlySurcharge:       surcharges.Amounts[CategoryEarly].Round(2),
		LateSurcharge:        surcharges.Amounts[CategoryLate].Round(2),
		NightSurcharge:       surcharges.Amounts[CategoryNight].Round(2),
		WeekendSurcharge:     surcharges.Amounts[CategoryWeekend].Round(2),
		SundaySurcharge:      surcharges.Amounts[CategorySunday].Round(2),
		HolidaySurcharge:     surcharges.Amounts[CategoryHoliday].Round(2),
		TotalGross:           totalGross,
		YTDGross:             ytdGross,
		AnnualLimitRemaining: annualLimit.Sub(ytdGross).Round(2),
		Status:               repository.StatusDraft,
	}
	return &CalculateResult{Entry: entry, NewCarryover: round2(newCarryover)}, nil
}

// Get returns one entry. Employees see only their own.
func (s *PayrollService) Get(ctx context.Context, id string) (*repository.PayrollEntry, error) {
	entry, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.IsPrivileged(httputil.GetUserRole(ctx)) && httputil.GetEmployeeID(ctx) != entry.EmployeeID {
		return nil, errors.NotFound("payroll entry")
	}
	return entry, nil
}

// List lists entries. Non-privileged callers are scoped to their own.
func (s *PayrollService) List(ctx context.Context, params repository.ListParams) ([]*repository.PayrollEntry, error) {
	if !auth.IsPrivileged(httputil.GetUserRole(ctx)) {
		employeeID := httputil.GetEmployeeID(ctx)
		if employeeID == "" {
			return []*repository.PayrollEntry{}, nil
		}
		params.EmployeeID = &employeeID
	}
	return s.entries.List(ctx, params)
}

// allowed status transitions; paid is terminal
var statusTransitions = map[string]map[string]bool{
	repository.StatusDraft:    {repository.StatusApproved: true},
	repository.StatusApproved: {repository.StatusPaid: true, repository.StatusDraft: true},
}

// UpdateStatus moves an entry along draft -> approved -> paid, with
// approved -> draft permitted as an un-lock.
func (s *PayrollService) UpdateStatus(ctx context.Context, id, status string) (*repository.PayrollEntry, error) {
	if !auth.IsPrivileged(httputil.GetUserRole(ctx)) {
		return nil, errors.Forbidden("insufficient permissions")
	}

	entry, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !statusTransitions[entry.Status][status] {
		return nil, errors.BadRequest("invalid status transition " + entry.Status + " -> " + status)
	}

	if err := s.entries.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	entry.Status = status

	eventType := ""
	switch status {
	case repository.StatusApproved:
		eventType = messaging.EventPayrollApproved
	case repository.StatusPaid:
		eventType = messaging.EventPayrollPaid
	}
	if eventType != "" {
		s.publishEntry(ctx, eventType, entry)
	}
	return entry, nil
}

func (s *PayrollService) publishEntry(ctx context.Context, eventType string, entry *repository.PayrollEntry) {
	if s.publisher == nil {
		return
	}
	tenantID, _ := tenant.TenantID(ctx)
	event := messaging.PayrollEntryEvent{
		EntryID:    entry.ID,
		TenantID:   tenantID,
		EmployeeID: entry.EmployeeID,
		Month:      entry.Month.Format("2006-01"),
		Status:     entry.Status,
		TotalGross: entry.TotalGross.StringFixed(2),
	}
	if err := s.publisher.Publish(ctx, eventType, event); err != nil {
		s.logger.Warn().Err(err).Str("entry_id", entry.ID).Msg("Failed to publish payroll event")
	}
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
