package compliance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/verawork/vera-backend/internal/holidays"
	schedulerepo "github.com/verawork/vera-backend/internal/schedule/repository"
	staffrepo "github.com/verawork/vera-backend/internal/staff/repository"
	"github.com/verawork/vera-backend/pkg/logger"
)

// GrossProvider sums committed payroll gross for the minijob checks.
// Implemented by the payroll repository.
type GrossProvider interface {
	MonthlyGross(ctx context.Context, employeeID string, monthStart time.Time) (decimal.Decimal, error)
	AnnualGrossBefore(ctx context.Context, employeeID string, yearStart, monthStart time.Time) (decimal.Decimal, error)
}

// Service evaluates shifts and persists the resulting flags.
type Service struct {
	shifts    *schedulerepo.ShiftRepository
	employees *staffrepo.EmployeeRepository
	gross     GrossProvider
	calendar  *holidays.Calendar
	logger    *logger.Logger
}

// NewService creates a new compliance service
func NewService(
	shifts *schedulerepo.ShiftRepository,
	employees *staffrepo.EmployeeRepository,
	gross GrossProvider,
	calendar *holidays.Calendar,
	log *logger.Logger,
) *Service {
	return &Service{
		shifts:    shifts,
		employees: employees,
		gross:     gross,
		calendar:  calendar,
		logger:    log,
	}
}

// Check evaluates one shift against its employee context
func (s *Service) Check(ctx context.Context, shift *schedulerepo.Shift, employee *staffrepo.Employee) (*Result, error) {
	in := Input{
		Date:         shift.Date,
		StartTime:    shift.StartTime,
		EndTime:      shift.EndTime,
		BreakMinutes: shift.BreakMinutes,
		ContractType: employee.ContractType,
	}

	prev, err := s.shifts.PreviousShift(ctx, employee.ID, shift.Date)
	if err != nil {
		return nil, err
	}
	in.PrevShift = prev

	if employee.ContractType == staffrepo.ContractMinijob {
		monthStart := time.Date(shift.Date.Year(), shift.Date.Month(), 1, 0, 0, 0, 0, time.UTC)
		yearStart := time.Date(shift.Date.Year(), 1, 1, 0, 0, 0, 0, time.UTC)

		monthly, err := s.gross.MonthlyGross(ctx, employee.ID, monthStart)
		if err != nil {
			return nil, err
		}
		annual, err := s.gross.AnnualGrossBefore(ctx, employee.ID, yearStart, monthStart)
		if err != nil {
			return nil, err
		}
		in.MonthlyGross = monthly
		in.AnnualGross = annual
	}

	if name, ok := s.calendar.HolidayName(holidays.DefaultRegion, shift.Date); ok {
		in.HolidayName = name
	}

	return Evaluate(in), nil
}

// Refresh re-evaluates one shift and persists its flags. Errors are
// logged and swallowed so the caller's write never rolls back over a
// failed evaluation.
func (s *Service) Refresh(ctx context.Context, shiftID string) {
	shift, err := s.shifts.GetByID(ctx, shiftID)
	if err != nil {
		s.logger.Warn().Err(err).Str("shift_id", shiftID).Msg("Compliance refresh: shift not loadable")
		return
	}
	if shift.EmployeeID == nil {
		return
	}

	employee, err := s.employees.GetByID(ctx, *shift.EmployeeID)
	if err != nil {
		s.logger.Warn().Err(err).Str("shift_id", shiftID).Msg("Compliance refresh: employee not loadable")
		return
	}

	result, err := s.Check(ctx, shift, employee)
	if err != nil {
		s.logger.Warn().Err(err).Str("shift_id", shiftID).Msg("Compliance refresh: evaluation failed")
		return
	}

	restOK, breakOK, minijobOK := result.Flags()
	if err := s.shifts.UpdateComplianceFlags(ctx, shiftID, restOK, breakOK, minijobOK); err != nil {
		s.logger.Warn().Err(err).Str("shift_id", shiftID).Msg("Compliance refresh: flag update failed")
	}
}

// RunResult summarises a bulk compliance run
type RunResult struct {
	Checked    int `json:"checked"`
	Violations int `json:"violations"`
}

// Run re-evaluates every assigned, non-cancelled shift in the range
// and rewrites its flags. Shifts whose employee cannot be loaded are
// skipped.
func (s *Service) Run(ctx context.Context, from, to time.Time) (*RunResult, error) {
	shifts, err := s.shifts.ListAssignedRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	employees := map[string]*staffrepo.Employee{}
	result := &RunResult{}

	for _, shift := range shifts {
		employee, ok := employees[*shift.EmployeeID]
		if !ok {
			employee, err = s.employees.GetByID(ctx, *shift.EmployeeID)
			if err != nil {
				continue
			}
			employees[*shift.EmployeeID] = employee
		}

		cr, err := s.Check(ctx, shift, employee)
		if err != nil {
			return nil, err
		}

		restOK, breakOK, minijobOK := cr.Flags()
		if err := s.shifts.UpdateComplianceFlags(ctx, shift.ID, restOK, breakOK, minijobOK); err != nil {
			return nil, err
		}

		result.Checked++
		if !(restOK && breakOK && minijobOK) {
			result.Violations++
		}
	}
	return result, nil
}
