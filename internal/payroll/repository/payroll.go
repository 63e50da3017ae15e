package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/verawork/vera-backend/pkg/database"
	"github.com/verawork/vera-backend/pkg/errors"
	"github.com/verawork/vera-backend/pkg/tenant"
)

// Payroll entry statuses
const (
	StatusDraft    = "draft"
	StatusApproved = "approved"
	StatusPaid     = "paid"
)

// PayrollEntry is one employee-month settlement. (employee_id, month)
// is unique per tenant; month is always a first-of-month date.
type PayrollEntry struct {
	ID                   string          `db:"id" json:"id"`
	EmployeeID           string          `db:"employee_id" json:"employee_id"`
	Month                time.Time       `db:"month" json:"month"`
	PlannedHours         *float64        `db:"planned_hours" json:"planned_hours,omitempty"`
	ActualHours          float64         `db:"actual_hours" json:"actual_hours"`
	CarryoverHours       float64         `db:"carryover_hours" json:"carryover_hours"`
	PaidHours            float64         `db:"paid_hours" json:"paid_hours"`
	EarlyHours           float64         `db:"early_hours" json:"early_hours"`
	LateHours            float64         `db:"late_hours" json:"late_hours"`
	NightHours           float64         `db:"night_hours" json:"night_hours"`
	WeekendHours         float64         `db:"weekend_hours" json:"weekend_hours"`
	SundayHours          float64         `db:"sunday_hours" json:"sunday_hours"`
	HolidayHours         float64         `db:"holiday_hours" json:"holiday_hours"`
	BaseWage             decimal.Decimal `db:"base_wage" json:"base_wage"`
	EarlySurcharge       decimal.Decimal `db:"early_surcharge" json:"early_surcharge"`
	LateSurcharge        decimal.Decimal `db:"late_surcharge" json:"late_surcharge"`
	NightSurcharge       decimal.Decimal `db:"night_surcharge" json:"night_surcharge"`
	WeekendSurcharge     decimal.Decimal `db:"weekend_surcharge" json:"weekend_surcharge"`
	SundaySurcharge      decimal.Decimal `db:"sunday_surcharge" json:"sunday_surcharge"`
	HolidaySurcharge     decimal.Decimal `db:"holiday_surcharge" json:"holiday_surcharge"`
	TotalGross           decimal.Decimal `db:"total_gross" json:"total_gross"`
	YTDGross             decimal.Decimal `db:"ytd_gross" json:"ytd_gross"`
	AnnualLimitRemaining decimal.Decimal `db:"annual_limit_remaining" json:"annual_limit_remaining"`
	Status               string          `db:"status" json:"status"`
	Notes                *string         `db:"notes" json:"notes,omitempty"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`

	// Joined
	EmployeeName *string `db:"employee_name" json:"employee_name,omitempty"`
}

// HoursCarryover moves signed hours between months, typically written
// when a month's paid hours hit the contract limit.
type HoursCarryover struct {
	ID         string    `db:"id" json:"id"`
	EmployeeID string    `db:"employee_id" json:"employee_id"`
	FromMonth  time.Time `db:"from_month" json:"from_month"`
	ToMonth    time.Time `db:"to_month" json:"to_month"`
	Hours      float64   `db:"hours" json:"hours"`
	Reason     *string   `db:"reason" json:"reason,omitempty"`
	CreatedBy  *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

const payrollColumns = `
	p.id, p.employee_id, p.month, p.planned_hours, p.actual_hours,
	p.carryover_hours, p.paid_hours,
	p.early_hours, p.late_hours, p.night_hours,
	p.weekend_hours, p.sunday_hours, p.holiday_hours,
	p.base_wage, p.early_surcharge, p.late_surcharge, p.night_surcharge,
	p.weekend_surcharge, p.sunday_surcharge, p.holiday_surcharge,
	p.total_gross, p.ytd_gross, p.annual_limit_remaining,
	p.status, p.notes, p.created_at`

// ListParams filters the payroll list
type ListParams struct {
	EmployeeID *string
	Month      *time.Time
	Status     *string
}

// PayrollRepository handles payroll persistence
type PayrollRepository struct {
	db *database.DB
}

// NewPayrollRepository creates a new payroll repository
func NewPayrollRepository(db *database.DB) *PayrollRepository {
	return &PayrollRepository{db: db}
}

// GetByID gets a payroll entry by ID
func (r *PayrollRepository) GetByID(ctx context.Context, id string) (*PayrollEntry, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var p PayrollEntry
	query := `
		SELECT ` + payrollColumns + `,
		       e.first_name || ' ' || e.last_name as employee_name
		FROM payroll_entries p
		JOIN employees e ON e.id = p.employee_id
		WHERE p.id = $1 AND p.tenant_id = $2
	`
	err = r.db.GetContext(ctx, &p, query, id, tenantID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("payroll entry")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByEmployeeMonth returns the entry for (employee, month), or nil
func (r *PayrollRepository) GetByEmployeeMonth(ctx context.Context, employeeID string, month time.Time) (*PayrollEntry, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var p PayrollEntry
	query := `
		SELECT ` + payrollColumns + `
		FROM payroll_entries p
		WHERE p.tenant_id = $1 AND p.employee_id = $2 AND p.month = $3
	`
	err = r.db.GetContext(ctx, &p, query, tenantID, employeeID, month)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List lists payroll entries with optional filters, newest month first
func (r *PayrollRepository) List(ctx context.Context, params ListParams) ([]*PayrollEntry, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + payrollColumns + `,
		       e.first_name || ' ' || e.last_name as employee_name
		FROM payroll_entries p
		JOIN employees e ON e.id = p.employee_id
		WHERE p.tenant_id = $1
	`
	args := []interface{}{tenantID}

	if params.EmployeeID != nil {
		args = append(args, *params.EmployeeID)
		query += fmt.Sprintf(" AND p.employee_id = $%d", len(args))
	}
	if params.Month != nil {
		args = append(args, *params.Month)
		query += fmt.Sprintf(" AND p.month = $%d", len(args))
	}
	if params.Status != nil {
		args = append(args, *params.Status)
		query += fmt.Sprintf(" AND p.status = $%d", len(args))
	}
	query += " ORDER BY p.month DESC, e.last_name, e.first_name"

	var entries []*PayrollEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListForMonth returns all entries of one month joined with names
func (r *PayrollRepository) ListForMonth(ctx context.Context, month time.Time) ([]*PayrollEntry, error) {
	return r.List(ctx, ListParams{Month: &month})
}

// Replace swaps the draft entry for (employee, month) with the given
// recomputed one inside a single transaction. The caller must have
// verified no locked entry exists.
func (r *PayrollRepository) Replace(ctx context.Context, p *PayrollEntry) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = StatusDraft
	}

	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM payroll_entries
			WHERE tenant_id = $1 AND employee_id = $2 AND month = $3 AND status = $4
		`, tenantID, p.EmployeeID, p.Month, StatusDraft)
		if err != nil {
			return err
		}

		return tx.QueryRowxContext(ctx, `
			INSERT INTO payroll_entries (
				id, tenant_id, employee_id, month, planned_hours, actual_hours,
				carryover_hours, paid_hours,
				early_hours, late_hours, night_hours,
				weekend_hours, sunday_hours, holiday_hours,
				base_wage, early_surcharge, late_surcharge, night_surcharge,
				weekend_surcharge, sunday_surcharge, holiday_surcharge,
				total_gross, ytd_gross, annual_limit_remaining, status, notes
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			          $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
			RETURNING created_at
		`,
			p.ID, tenantID, p.EmployeeID, p.Month, p.PlannedHours, p.ActualHours,
			p.CarryoverHours, p.PaidHours,
			p.EarlyHours, p.LateHours, p.NightHours,
			p.WeekendHours, p.SundayHours, p.HolidayHours,
			p.BaseWage, p.EarlySurcharge, p.LateSurcharge, p.NightSurcharge,
			p.WeekendSurcharge, p.SundaySurcharge, p.HolidaySurcharge,
			p.TotalGross, p.YTDGross, p.AnnualLimitRemaining, p.Status, p.Notes,
		).Scan(&p.CreatedAt)
	})
}

// UpdateStatus moves an entry to a new status
func (r *PayrollRepository) UpdateStatus(ctx context.Context, id, status string) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE payroll_entries SET status = $3 WHERE id = $1 AND tenant_id = $2`,
		id, tenantID, status)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("payroll entry")
	}
	return nil
}

// YTDGross sums total_gross of committed entries from the start of the
// year up to but excluding month.
func (r *PayrollRepository) YTDGross(ctx context.Context, employeeID string, yearStart, month time.Time) (decimal.Decimal, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	var sum decimal.NullDecimal
	query := `
		SELECT SUM(total_gross)
		FROM payroll_entries
		WHERE tenant_id = $1 AND employee_id = $2
		  AND month >= $3 AND month < $4
		  AND status IN ($5, $6)
	`
	err = r.db.GetContext(ctx, &sum, query, tenantID, employeeID, yearStart, month, StatusApproved, StatusPaid)
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// MonthlyGross sums total_gross already recorded for (employee, month)
// regardless of status. Used by the minijob compliance check.
func (r *PayrollRepository) MonthlyGross(ctx context.Context, employeeID string, monthStart time.Time) (decimal.Decimal, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	var sum decimal.NullDecimal
	query := `
		SELECT SUM(total_gross)
		FROM payroll_entries
		WHERE tenant_id = $1 AND employee_id = $2 AND month = $3
	`
	err = r.db.GetContext(ctx, &sum, query, tenantID, employeeID, monthStart)
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// AnnualGrossBefore sums total_gross for months in [yearStart,
// monthStart). Used by the minijob compliance check.
func (r *PayrollRepository) AnnualGrossBefore(ctx context.Context, employeeID string, yearStart, monthStart time.Time) (decimal.Decimal, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	var sum decimal.NullDecimal
	query := `
		SELECT SUM(total_gross)
		FROM payroll_entries
		WHERE tenant_id = $1 AND employee_id = $2
		  AND month >= $3 AND month < $4
	`
	err = r.db.GetContext(ctx, &sum, query, tenantID, employeeID, yearStart, monthStart)
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// LatestCarryover returns the most recent carryover targeting the
// month, or nil.
func (r *PayrollRepository) LatestCarryover(ctx context.Context, employeeID string, toMonth time.Time) (*HoursCarryover, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var c HoursCarryover
	query := `
		SELECT id, employee_id, from_month, to_month, hours, reason, created_by, created_at
		FROM hours_carryover
		WHERE tenant_id = $1 AND employee_id = $2 AND to_month = $3
		ORDER BY created_at DESC
		LIMIT 1
	`
	err = r.db.GetContext(ctx, &c, query, tenantID, employeeID, toMonth)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// InsertCarryover records a signed hours transfer between months
func (r *PayrollRepository) InsertCarryover(ctx context.Context, c *HoursCarryover) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	query := `
		INSERT INTO hours_carryover (
			id, tenant_id, employee_id, from_month, to_month, hours, reason, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	return r.db.QueryRowxContext(ctx, query,
		c.ID, tenantID, c.EmployeeID, c.FromMonth, c.ToMonth, c.Hours, c.Reason, c.CreatedBy,
	).Scan(&c.CreatedAt)
}
