package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/verawork/vera-backend/pkg/database"
	"github.com/verawork/vera-backend/pkg/errors"
	"github.com/verawork/vera-backend/pkg/tenant"
)

// ContractHistory is a contract snapshot valid over (valid_from,
// valid_to]. Per employee at most one row is open (valid_to IS NULL)
// and rows never overlap.
type ContractHistory struct {
	ID                 string           `db:"id" json:"id"`
	EmployeeID         string           `db:"employee_id" json:"employee_id"`
	ValidFrom          time.Time        `db:"valid_from" json:"valid_from"`
	ValidTo            *time.Time       `db:"valid_to" json:"valid_to,omitempty"`
	ContractType       string           `db:"contract_type" json:"contract_type"`
	HourlyRate         decimal.Decimal  `db:"hourly_rate" json:"hourly_rate"`
	WeeklyHours        *float64         `db:"weekly_hours" json:"weekly_hours,omitempty"`
	FullTimePercentage *float64         `db:"full_time_percentage" json:"full_time_percentage,omitempty"`
	MonthlyHoursLimit  *float64         `db:"monthly_hours_limit" json:"monthly_hours_limit,omitempty"`
	AnnualSalaryLimit  *decimal.Decimal `db:"annual_salary_limit" json:"annual_salary_limit,omitempty"`
	Note               *string          `db:"note" json:"note,omitempty"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
	CreatedByUserID    *string          `db:"created_by_user_id" json:"created_by_user_id,omitempty"`
}

const contractColumns = `
	id, employee_id, valid_from, valid_to, contract_type, hourly_rate,
	weekly_hours, full_time_percentage, monthly_hours_limit,
	annual_salary_limit, note, created_at, created_by_user_id`

// ContractRepository handles contract history persistence
type ContractRepository struct {
	db *database.DB
}

// NewContractRepository creates a new contract repository
func NewContractRepository(db *database.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// List returns the employee's contract rows, newest first
func (r *ContractRepository) List(ctx context.Context, employeeID string) ([]*ContractHistory, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var rows []*ContractHistory
	query := `
		SELECT ` + contractColumns + `
		FROM contract_history
		WHERE tenant_id = $1 AND employee_id = $2
		ORDER BY valid_from DESC
	`
	if err := r.db.SelectContext(ctx, &rows, query, tenantID, employeeID); err != nil {
		return nil, err
	}
	return rows, nil
}

// Insert appends a new contract entry. Inside one transaction the
// currently open entry is closed at the new valid_from and the Employee
// cache fields are rewritten to mirror the new open entry.
func (r *ContractRepository) Insert(ctx context.Context, c *ContractHistory) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE contract_history SET valid_to = $3
			WHERE tenant_id = $1 AND employee_id = $2 AND valid_to IS NULL
		`, tenantID, c.EmployeeID, c.ValidFrom)
		if err != nil {
			return err
		}

		err = tx.QueryRowxContext(ctx, `
			INSERT INTO contract_history (
				id, tenant_id, employee_id, valid_from, valid_to, contract_type,
				hourly_rate, weekly_hours, full_time_percentage,
				monthly_hours_limit, annual_salary_limit, note, created_by_user_id
			) VALUES ($1, $2, $3, $4, NULL, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING created_at
		`,
			c.ID, tenantID, c.EmployeeID, c.ValidFrom, c.ContractType,
			c.HourlyRate, c.WeeklyHours, c.FullTimePercentage,
			c.MonthlyHoursLimit, c.AnnualSalaryLimit, c.Note, c.CreatedByUserID,
		).Scan(&c.CreatedAt)
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE employees SET
				contract_type = $3, hourly_rate = $4, weekly_hours = $5,
				full_time_percentage = $6, monthly_hours_limit = $7,
				annual_salary_limit = $8, updated_at = NOW()
			WHERE id = $1 AND tenant_id = $2
		`,
			c.EmployeeID, tenantID, c.ContractType, c.HourlyRate, c.WeeklyHours,
			c.FullTimePercentage, c.MonthlyHoursLimit, c.AnnualSalaryLimit,
		)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("employee")
		}
		return nil
	})
}

// ResolveAt returns the contract snapshot in effect at the given date,
// or nil when no history row covers it. Payroll falls back to the
// Employee cache in that case.
func (r *ContractRepository) ResolveAt(ctx context.Context, employeeID string, at time.Time) (*ContractHistory, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var c ContractHistory
	query := `
		SELECT ` + contractColumns + `
		FROM contract_history
		WHERE tenant_id = $1 AND employee_id = $2
		  AND valid_from <= $3 AND (valid_to IS NULL OR valid_to > $3)
		ORDER BY valid_from DESC
		LIMIT 1
	`
	err = r.db.GetContext(ctx, &c, query, tenantID, employeeID, at)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
