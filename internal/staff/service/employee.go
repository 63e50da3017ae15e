package service

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
	"github.com/verawork/vera-backend/internal/auth"
	"github.com/verawork/vera-backend/internal/staff/repository"
	"github.com/verawork/vera-backend/pkg/errors"
	"github.com/verawork/vera-backend/pkg/httputil"
	"github.com/verawork/vera-backend/pkg/logger"
)

// EmployeeService manages employee records.
type EmployeeService struct {
	employees *repository.EmployeeRepository
	contracts *repository.ContractRepository
	logger    *logger.Logger
}

// NewEmployeeService creates a new employee service
func NewEmployeeService(employees *repository.EmployeeRepository, contracts *repository.ContractRepository, log *logger.Logger) *EmployeeService {
	return &EmployeeService{employees: employees, contracts: contracts, logger: log}
}

var validContractTypes = map[string]bool{
	repository.ContractMinijob:  true,
	repository.ContractPartTime: true,
	repository.ContractFullTime: true,
}

// CreateEmployeeRequest creates an employee together with its initial
// contract snapshot.
type CreateEmployeeRequest struct {
	UserID             *string  `json:"user_id,omitempty"`
	FirstName          string   `json:"first_name" validate:"required,min=1,max=100"`
	LastName           string   `json:"last_name" validate:"required,min=1,max=100"`
	Email              *string  `json:"email,omitempty" validate:"omitempty,email"`
	Phone              *string  `json:"phone,omitempty"`
	ContractType       string   `json:"contract_type" validate:"required"`
	HourlyRate         string   `json:"hourly_rate" validate:"required"`
	WeeklyHours        *float64 `json:"weekly_hours,omitempty"`
	FullTimePercentage *float64 `json:"full_time_percentage,omitempty"`
	MonthlyHoursLimit  *float64 `json:"monthly_hours_limit,omitempty"`
	AnnualSalaryLimit  *string  `json:"annual_salary_limit,omitempty"`
	VacationDays       int      `json:"vacation_days"`
	Qualifications     []string `json:"qualifications"`
}

// Create creates an employee. Privileged roles only.
func (s *EmployeeService) Create(ctx context.Context, req CreateEmployeeRequest) (*repository.Employee, error) {
	if !auth.IsPrivileged(httputil.GetUserRole(ctx)) {
		return nil, errors.Forbidden("insufficient permissions")
	}
	if !validContractTypes[req.ContractType] {
		return nil, errors.BadRequest("contract_type must be one of: minijob, part_time, full_time")
	}

	rate, err := decimal.NewFromString(req.HourlyRate)
	if err != nil || rate.IsNegative() {
		return nil, errors.BadRequest("hourly_rate must be a non-negative decimal")
	}

	// Minijob employees default to the statutory annual ceiling.
	annualLimit := req.AnnualSalaryLimit
	var annual *decimal.Decimal
	if annualLimit != nil {
		d, err := decimal.NewFromString(*annualLimit)
		if err != nil {
			return nil, errors.BadRequest("annual_salary_limit must be a decimal")
		}
		annual = &d
	} else if req.ContractType == repository.ContractMinijob {
		d := decimal.NewFromFloat(6672.00)
		annual = &d
	}

	e := &repository.Employee{
		UserID:             req.UserID,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Email:              req.Email,
		Phone:              req.Phone,
		ContractType:       req.ContractType,
		HourlyRate:         rate,
		WeeklyHours:        req.WeeklyHours,
		FullTimePercentage: req.FullTimePercentage,
		MonthlyHoursLimit:  req.MonthlyHoursLimit,
		AnnualSalaryLimit:  annual,
		VacationDays:       req.VacationDays,
		Qualifications:     req.Qualifications,
		Active:             true,
	}
	if err := s.employees.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Get returns one employee
func (s *EmployeeService) Get(ctx context.Context, id string) (*repository.Employee, error) {
	return s.employees.GetByID(ctx, id)
}

// Me returns the caller's linked employee record
func (s *EmployeeService) Me(ctx context.Context) (*repository.Employee, error) {
	employeeID := httputil.GetEmployeeID(ctx)
	if employeeID == "" {
		return nil, errors.NotFound("employee")
	}
	return s.employees.GetByID(ctx, employeeID)
}

// List lists employees. Non-privileged callers see active ones only.
func (s *EmployeeService) List(ctx context.Context, params repository.EmployeeListParams) ([]*repository.Employee, int64, error) {
	if !auth.IsPrivileged(httputil.GetUserRole(ctx)) {
		params.ActiveOnly = true
	}
	return s.employees.List(ctx, params)
}

// UpdateEmployeeRequest applies a partial employee update. Contract
// fields change through the contract endpoints, not here.
type UpdateEmployeeRequest struct {
	FirstName       *string          `json:"first_name,omitempty"`
	LastName        *string          `json:"last_name,omitempty"`
	Email           *string          `json:"email,omitempty" validate:"omitempty,email"`
	Phone           *string          `json:"phone,omitempty"`
	VacationDays    *int             `json:"vacation_days,omitempty"`
	Qualifications  []string         `json:"qualifications,omitempty"`
	ICalScope       *string          `json:"ical_scope,omitempty" validate:"omitempty,oneof=own tenant"`
	TelegramChatID  *string          `json:"telegram_chat_id,omitempty"`
	QuietHoursStart *string          `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd   *string          `json:"quiet_hours_end,omitempty"`
	Prefs           *json.RawMessage `json:"notification_prefs,omitempty"`
	Active          *bool            `json:"active,omitempty"`
}

// Update applies a partial update. Employees may edit their own
// contact details and notification settings; everything else is
// privileged.
func (s *EmployeeService) Update(ctx context.Context, id string, req UpdateEmployeeRequest) (*repository.Employee, error) {
	privileged := auth.IsPrivileged(httputil.GetUserRole(ctx))
	if !privileged {
		if httputil.GetEmployeeID(ctx) != id {
			return nil, errors.Forbidden("insufficient permissions")
		}
		if req.VacationDays != nil || req.Qualifications != nil ||
			req.Active != nil || req.ICalScope != nil {
			return nil, errors.Forbidden("field requires manager or admin role")
		}
	}

	e, err := s.employees.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		e.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		e.LastName = *req.LastName
	}
	if req.Email != nil {
		e.Email = req.Email
	}
	if req.Phone != nil {
		e.Phone = req.Phone
	}
	if req.VacationDays != nil {
		e.VacationDays = *req.VacationDays
	}
	if req.Qualifications != nil {
		e.Qualifications = req.Qualifications
	}
	if req.ICalScope != nil {
		e.ICalScope = *req.ICalScope
	}
	if req.TelegramChatID != nil {
		e.TelegramChatID = req.TelegramChatID
	}
	if req.QuietHoursStart != nil {
		e.QuietHoursStart = *req.QuietHoursStart
	}
	if req.QuietHoursEnd != nil {
		e.QuietHoursEnd = *req.QuietHoursEnd
	}
	if req.Prefs != nil {
		e.NotificationPrefs = *req.Prefs
	}
	if req.Active != nil {
		e.Active = *req.Active
	}

	if err := s.employees.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Deactivate retires an employee. Admin only.
func (s *EmployeeService) Deactivate(ctx context.Context, id string) error {
	if httputil.GetUserRole(ctx) != "admin" {
		return errors.Forbidden("insufficient permissions")
	}
	return s.employees.Deactivate(ctx, id)
}

// RotateICalToken issues a fresh calendar token, revoking the old one.
// Employees may rotate their own; privileged roles any.
func (s *EmployeeService) RotateICalToken(ctx context.Context, id string) (string, error) {
	if !auth.IsPrivileged(httputil.GetUserRole(ctx)) && httputil.GetEmployeeID(ctx) != id {
		return "", errors.Forbidden("insufficient permissions")
	}
	return s.employees.RotateICalToken(ctx, id)
}
