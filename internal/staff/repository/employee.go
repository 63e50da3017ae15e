package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/verawork/vera-backend/pkg/database"
	"github.com/verawork/vera-backend/pkg/errors"
	"github.com/verawork/vera-backend/pkg/tenant"
)

// Contract types
const (
	ContractMinijob  = "minijob"
	ContractPartTime = "part_time"
	ContractFullTime = "full_time"
)

// Employee is a member of the workforce. The contract fields are a
// cache of the currently open ContractHistory row and are rewritten on
// every contract mutation.
type Employee struct {
	ID                 string           `db:"id" json:"id"`
	UserID             *string          `db:"user_id" json:"user_id,omitempty"`
	FirstName          string           `db:"first_name" json:"first_name"`
	LastName           string           `db:"last_name" json:"last_name"`
	Email              *string          `db:"email" json:"email,omitempty"`
	Phone              *string          `db:"phone" json:"phone,omitempty"`
	ContractType       string           `db:"contract_type" json:"contract_type"`
	HourlyRate         decimal.Decimal  `db:"hourly_rate" json:"hourly_rate"`
	WeeklyHours        *float64         `db:"weekly_hours" json:"weekly_hours,omitempty"`
	FullTimePercentage *float64         `db:"full_time_percentage" json:"full_time_percentage,omitempty"`
	MonthlyHoursLimit  *float64         `db:"monthly_hours_limit" json:"monthly_hours_limit,omitempty"`
	AnnualSalaryLimit  *decimal.Decimal `db:"annual_salary_limit" json:"annual_salary_limit,omitempty"`
	VacationDays       int              `db:"vacation_days" json:"vacation_days"`
	Qualifications     pq.StringArray   `db:"qualifications" json:"qualifications"`
	ICalToken          string           `db:"ical_token" json:"-"`
	ICalScope          string           `db:"ical_scope" json:"ical_scope"` // own, tenant
	TelegramChatID     *string          `db:"telegram_chat_id" json:"telegram_chat_id,omitempty"`
	QuietHoursStart    string           `db:"quiet_hours_start" json:"quiet_hours_start"`
	QuietHoursEnd      string           `db:"quiet_hours_end" json:"quiet_hours_end"`
	NotificationPrefs  json.RawMessage  `db:"notification_prefs" json:"notification_prefs,omitempty"`
	Active             bool             `db:"active" json:"active"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updated_at"`
}

// FullName returns "First Last".
func (e *Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

const employeeColumns = `
	id, user_id, first_name, last_name, email, phone, contract_type,
	hourly_rate, weekly_hours, full_time_percentage, monthly_hours_limit,
	annual_salary_limit, vacation_days, qualifications, ical_token, ical_scope,
	telegram_chat_id,
	quiet_hours_start::text as quiet_hours_start,
	quiet_hours_end::text as quiet_hours_end,
	notification_prefs, active, created_at, updated_at`

// EmployeeListParams filters the employee list
type EmployeeListParams struct {
	ActiveOnly bool
	Search     *string
	Page       int
	PerPage    int
}

// EmployeeRepository handles employee persistence
type EmployeeRepository struct {
	db *database.DB
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *database.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// Create creates a new employee with a fresh calendar token
func (r *EmployeeRepository) Create(ctx context.Context, e *Employee) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.ICalToken == "" {
		e.ICalToken = uuid.New().String()
	}
	if e.ICalScope == "" {
		e.ICalScope = "own"
	}
	if e.QuietHoursStart == "" {
		e.QuietHoursStart = "21:00:00"
	}
	if e.QuietHoursEnd == "" {
		e.QuietHoursEnd = "07:00:00"
	}

	query := `
		INSERT INTO employees (
			id, tenant_id, user_id, first_name, last_name, email, phone,
			contract_type, hourly_rate, weekly_hours, full_time_percentage,
			monthly_hours_limit, annual_salary_limit, vacation_days,
			qualifications, ical_token, ical_scope, telegram_chat_id,
			quiet_hours_start, quiet_hours_end, notification_prefs, active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		          $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRowxContext(ctx, query,
		e.ID, tenantID, e.UserID, e.FirstName, e.LastName, e.Email, e.Phone,
		e.ContractType, e.HourlyRate, e.WeeklyHours, e.FullTimePercentage,
		e.MonthlyHoursLimit, e.AnnualSalaryLimit, e.VacationDays,
		e.Qualifications, e.ICalToken, e.ICalScope, e.TelegramChatID,
		e.QuietHoursStart, e.QuietHoursEnd, e.NotificationPrefs, e.Active,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
}

// GetByID gets an employee by ID within the tenant
func (r *EmployeeRepository) GetByID(ctx context.Context, id string) (*Employee, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var e Employee
	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE id = $1 AND tenant_id = $2
	`
	err = r.db.GetContext(ctx, &e, query, id, tenantID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("employee")
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetByUserID gets the employee linked to a user account
func (r *EmployeeRepository) GetByUserID(ctx context.Context, userID string) (*Employee, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var e Employee
	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE user_id = $1 AND tenant_id = $2
	`
	err = r.db.GetContext(ctx, &e, query, userID, tenantID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("employee")
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetByICalToken resolves a calendar token to its employee and tenant.
// The token itself is the credential; no tenant context is required.
func (r *EmployeeRepository) GetByICalToken(ctx context.Context, token string) (*Employee, string, error) {
	var row struct {
		Employee
		TenantID string `db:"tenant_id"`
	}
	query := `
		SELECT tenant_id, ` + employeeColumns + `
		FROM employees
		WHERE ical_token = $1 AND active = true
	`
	err := r.db.GetContext(ctx, &row, query, token)
	if err == sql.ErrNoRows {
		return nil, "", errors.NotFound("calendar")
	}
	if err != nil {
		return nil, "", err
	}
	return &row.Employee, row.TenantID, nil
}

// List lists employees with optional search
func (r *EmployeeRepository) List(ctx context.Context, params EmployeeListParams) ([]*Employee, int64, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, 0, err
	}

	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 || params.PerPage > 200 {
		params.PerPage = 50
	}

	whereClause := " WHERE tenant_id = $1"
	args := []interface{}{tenantID}

	if params.ActiveOnly {
		whereClause += " AND active = true"
	}
	if params.Search != nil {
		args = append(args, "%"+*params.Search+"%")
		whereClause += fmt.Sprintf(" AND (first_name ILIKE $%d OR last_name ILIKE $%d)", len(args), len(args))
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM employees"+whereClause, args...); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + employeeColumns + " FROM employees" + whereClause +
		fmt.Sprintf(" ORDER BY last_name, first_name LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, params.PerPage, (params.Page-1)*params.PerPage)

	var employees []*Employee
	if err := r.db.SelectContext(ctx, &employees, query, args...); err != nil {
		return nil, 0, err
	}
	return employees, total, nil
}

// ListActive returns all active employees of the tenant
func (r *EmployeeRepository) ListActive(ctx context.Context) ([]*Employee, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var employees []*Employee
	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE tenant_id = $1 AND active = true
		ORDER BY last_name, first_name
	`
	if err := r.db.SelectContext(ctx, &employees, query, tenantID); err != nil {
		return nil, err
	}
	return employees, nil
}

// Update persists mutable employee fields. Contract cache fields are
// written only through the contract repository.
func (r *EmployeeRepository) Update(ctx context.Context, e *Employee) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE employees SET
			user_id = $3, first_name = $4, last_name = $5, email = $6, phone = $7,
			vacation_days = $8, qualifications = $9, ical_scope = $10,
			telegram_chat_id = $11, quiet_hours_start = $12, quiet_hours_end = $13,
			notification_prefs = $14, active = $15, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
	`
	result, err := r.db.ExecContext(ctx, query,
		e.ID, tenantID, e.UserID, e.FirstName, e.LastName, e.Email, e.Phone,
		e.VacationDays, e.Qualifications, e.ICalScope,
		e.TelegramChatID, e.QuietHoursStart, e.QuietHoursEnd,
		e.NotificationPrefs, e.Active,
	)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("employee")
	}
	return nil
}

// Deactivate retires an employee without losing history
func (r *EmployeeRepository) Deactivate(ctx context.Context, id string) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE employees SET active = false, updated_at = NOW() WHERE id = $1 AND tenant_id = $2`,
		id, tenantID)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("employee")
	}
	return nil
}

// RotateICalToken revokes the current calendar token by replacing it
func (r *EmployeeRepository) RotateICalToken(ctx context.Context, id string) (string, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return "", err
	}

	token := uuid.New().String()
	result, err := r.db.ExecContext(ctx,
		`UPDATE employees SET ical_token = $3, updated_at = NOW() WHERE id = $1 AND tenant_id = $2`,
		id, tenantID, token)
	if err != nil {
		return "", err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return "", errors.NotFound("employee")
	}
	return token, nil
}
