package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/verawork/vera-backend/pkg/database"
	"github.com/verawork/vera-backend/pkg/errors"
	"github.com/verawork/vera-backend/pkg/tenant"
)

// RecurringShift is a weekly-periodic rule materialised into concrete
// shifts over [valid_from, valid_until].
type RecurringShift struct {
	ID                 string    `db:"id" json:"id"`
	Weekday            int       `db:"weekday" json:"weekday"` // 0=Monday .. 6=Sunday
	StartTime          string    `db:"start_time" json:"start_time"`
	EndTime            string    `db:"end_time" json:"end_time"`
	BreakMinutes       int       `db:"break_minutes" json:"break_minutes"`
	EmployeeID         *string   `db:"employee_id" json:"employee_id,omitempty"`
	TemplateID         *string   `db:"template_id" json:"template_id,omitempty"`
	ValidFrom          time.Time `db:"valid_from" json:"valid_from"`
	ValidUntil         time.Time `db:"valid_until" json:"valid_until"`
	HolidayProfileID   *string   `db:"holiday_profile_id" json:"holiday_profile_id,omitempty"`
	SkipPublicHolidays bool      `db:"skip_public_holidays" json:"skip_public_holidays"`
	Label              *string   `db:"label" json:"label,omitempty"`
	Active             bool      `db:"active" json:"active"`
	CreatedBy          *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

const recurringColumns = `
	id, weekday, start_time::text as start_time, end_time::text as end_time,
	break_minutes, employee_id, template_id, valid_from, valid_until,
	holiday_profile_id, skip_public_holidays, label, active, created_by, created_at`

// RecurringRepository handles recurring shift rule persistence
type RecurringRepository struct {
	db *database.DB
}

// NewRecurringRepository creates a new recurring shift repository
func NewRecurringRepository(db *database.DB) *RecurringRepository {
	return &RecurringRepository{db: db}
}

// Create creates a recurring shift rule
func (r *RecurringRepository) Create(ctx context.Context, rule *RecurringShift) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	rule.Active = true

	query := `
		INSERT INTO recurring_shifts (
			id, tenant_id, weekday, start_time, end_time, break_minutes,
			employee_id, template_id, valid_from, valid_until,
			holiday_profile_id, skip_public_holidays, label, active, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at
	`
	return r.db.QueryRowxContext(ctx, query,
		rule.ID, tenantID, rule.Weekday, rule.StartTime, rule.EndTime, rule.BreakMinutes,
		rule.EmployeeID, rule.TemplateID, rule.ValidFrom, rule.ValidUntil,
		rule.HolidayProfileID, rule.SkipPublicHolidays, rule.Label, rule.Active, rule.CreatedBy,
	).Scan(&rule.CreatedAt)
}

// GetByID gets a rule by ID
func (r *RecurringRepository) GetByID(ctx context.Context, id string) (*RecurringShift, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var rule RecurringShift
	query := `
		SELECT ` + recurringColumns + `
		FROM recurring_shifts
		WHERE id = $1 AND tenant_id = $2
	`
	err = r.db.GetContext(ctx, &rule, query, id, tenantID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("recurring_shift")
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// List lists the tenant's rules, optionally only active ones
func (r *RecurringRepository) List(ctx context.Context, activeOnly bool) ([]*RecurringShift, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + recurringColumns + `
		FROM recurring_shifts
		WHERE tenant_id = $1
	`
	if activeOnly {
		query += " AND active = true"
	}
	query += " ORDER BY weekday, start_time"

	var rules []*RecurringShift
	if err := r.db.SelectContext(ctx, &rules, query, tenantID); err != nil {
		return nil, err
	}
	return rules, nil
}

// Update updates a rule's definition
func (r *RecurringRepository) Update(ctx context.Context, rule *RecurringShift) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE recurring_shifts SET
			weekday = $3, start_time = $4, end_time = $5, break_minutes = $6,
			employee_id = $7, template_id = $8, valid_from = $9, valid_until = $10,
			holiday_profile_id = $11, skip_public_holidays = $12, label = $13
		WHERE id = $1 AND tenant_id = $2
	`
	result, err := r.db.ExecContext(ctx, query,
		rule.ID, tenantID, rule.Weekday, rule.StartTime, rule.EndTime, rule.BreakMinutes,
		rule.EmployeeID, rule.TemplateID, rule.ValidFrom, rule.ValidUntil,
		rule.HolidayProfileID, rule.SkipPublicHolidays, rule.Label,
	)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("recurring_shift")
	}
	return nil
}

// Deactivate clears the active flag. Rules are never hard-deleted while
// generated shifts still reference them.
func (r *RecurringRepository) Deactivate(ctx context.Context, id string) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE recurring_shifts SET active = false WHERE id = $1 AND tenant_id = $2`,
		id, tenantID)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("recurring_shift")
	}
	return nil
}
