package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/verawork/vera-backend/internal/auth"
	"github.com/verawork/vera-backend/internal/staff/repository"
	"github.com/verawork/vera-backend/pkg/errors"
	"github.com/verawork/vera-backend/pkg/httputil"
)

// ContractService manages contract history.
type ContractService struct {
	contracts *repository.ContractRepository
	employees *repository.EmployeeRepository
}

// NewContractService creates a new contract service
func NewContractService(contracts *repository.ContractRepository, employees *repository.EmployeeRepository) *ContractService {
	return &ContractService{contracts: contracts, employees: employees}
}

// List returns an employee's contract history, newest first. Employees
// may read their own; everything else is privileged.
func (s *ContractService) List(ctx context.Context, employeeID string) ([]*repository.ContractHistory, error) {
	if !auth.IsPrivileged(httputil.GetUserRole(ctx)) && httputil.GetEmployeeID(ctx) != employeeID {
		return nil, errors.Forbidden("insufficient permissions")
	}
	return s.contracts.List(ctx, employeeID)
}

// AddContractRequest appends a contract change effective at valid_from
type AddContractRequest struct {
	ValidFrom          string   `json:"valid_from" validate:"required"`
	ContractType       string   `json:"contract_type" validate:"required"`
	HourlyRate         string   `json:"hourly_rate" validate:"required"`
	WeeklyHours        *float64 `json:"weekly_hours,omitempty"`
	FullTimePercentage *float64 `json:"full_time_percentage,omitempty"`
	MonthlyHoursLimit  *float64 `json:"monthly_hours_limit,omitempty"`
	AnnualSalaryLimit  *string  `json:"annual_salary_limit,omitempty"`
	Note               *string  `json:"note,omitempty"`
}

// Add appends a contract entry, closing the open one and refreshing
// the employee's cached contract fields. Admin only.
func (s *ContractService) Add(ctx context.Context, employeeID string, req AddContractRequest) (*repository.ContractHistory, error) {
	if httputil.GetUserRole(ctx) != "admin" {
		return nil, errors.Forbidden("insufficient permissions")
	}
	if !validContractTypes[req.ContractType] {
		return nil, errors.BadRequest("contract_type must be one of: minijob, part_time, full_time")
	}

	validFrom, err := time.Parse("2006-01-02", req.ValidFrom)
	if err != nil {
		return nil, errors.BadRequest("valid_from must be YYYY-MM-DD")
	}
	rate, err := decimal.NewFromString(req.HourlyRate)
	if err != nil || rate.IsNegative() {
		return nil, errors.BadRequest("hourly_rate must be a non-negative decimal")
	}

	var annual *decimal.Decimal
	if req.AnnualSalaryLimit != nil {
		d, err := decimal.NewFromString(*req.AnnualSalaryLimit)
		if err != nil {
			return nil, errors.BadRequest("annual_salary_limit must be a decimal")
		}
		annual = &d
	}

	if _, err := s.employees.GetByID(ctx, employeeID); err != nil {
		return nil, err
	}

	userID := httputil.GetUserID(ctx)
	c := &repository.ContractHistory{
		EmployeeID:         employeeID,
		ValidFrom:          validFrom,
		ContractType:       req.ContractType,
		HourlyRate:         rate,
		WeeklyHours:        req.WeeklyHours,
		FullTimePercentage: req.FullTimePercentage,
		MonthlyHoursLimit:  req.MonthlyHoursLimit,
		AnnualSalaryLimit:  annual,
		Note:               req.Note,
		CreatedByUserID:    &userID,
	}
	if err := s.contracts.Insert(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ResolveAt returns the contract snapshot effective at a date, falling
// back to the employee's cached fields when no history row covers it.
func (s *ContractService) ResolveAt(ctx context.Context, employeeID string, at time.Time) (*repository.ContractHistory, error) {
	c, err := s.contracts.ResolveAt(ctx, employeeID, at)
	if err != nil {
		return nil, err
	}
	if c != nil {
		return c, nil
	}

	e, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	return &repository.ContractHistory{
		EmployeeID:         e.ID,
		ContractType:       e.ContractType,
		HourlyRate:         e.HourlyRate,
		WeeklyHours:        e.WeeklyHours,
		FullTimePercentage: e.FullTimePercentage,
		MonthlyHoursLimit:  e.MonthlyHoursLimit,
		AnnualSalaryLimit:  e.AnnualSalaryLimit,
	}, nil
}
