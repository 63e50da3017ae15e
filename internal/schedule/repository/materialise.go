package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/verawork/vera-backend/pkg/tenant"
)

// CreateWithShifts inserts a rule together with its materialised shifts
// in one transaction. Either the rule and all shifts are written or
// nothing is.
func (r *RecurringRepository) CreateWithShifts(ctx context.Context, rule *RecurringShift, shifts []*Shift) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	rule.Active = true

	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		ruleQuery := `
			INSERT INTO recurring_shifts (
				id, tenant_id, weekday, start_time, end_time, break_minutes,
				employee_id, template_id, valid_from, valid_until,
				holiday_profile_id, skip_public_holidays, label, active, created_by
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			RETURNING created_at
		`
		err := tx.QueryRowxContext(ctx, ruleQuery,
			rule.ID, tenantID, rule.Weekday, rule.StartTime, rule.EndTime, rule.BreakMinutes,
			rule.EmployeeID, rule.TemplateID, rule.ValidFrom, rule.ValidUntil,
			rule.HolidayProfileID, rule.SkipPublicHolidays, rule.Label, rule.Active, rule.CreatedBy,
		).Scan(&rule.CreatedAt)
		if err != nil {
			return err
		}

		shiftQuery := `
			INSERT INTO shifts (
				id, tenant_id, employee_id, template_id, recurring_shift_id, date,
				start_time, end_time, break_minutes, location, notes, status,
				is_holiday, is_weekend, is_sunday, is_override
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			RETURNING created_at, updated_at
		`
		for _, s := range shifts {
			if s.ID == "" {
				s.ID = uuid.New().String()
			}
			s.RecurringShiftID = &rule.ID
			err := tx.QueryRowxContext(ctx, shiftQuery,
				s.ID, tenantID, s.EmployeeID, s.TemplateID, s.RecurringShiftID, s.Date,
				s.StartTime, s.EndTime, s.BreakMinutes, s.Location, s.Notes, s.Status,
				s.IsHoliday, s.IsWeekend, s.IsSunday, s.IsOverride,
			).Scan(&s.CreatedAt, &s.UpdatedAt)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ListRuleShiftDates returns the dates of all shifts still referencing
// the rule. Generation excludes these dates, which keeps repeated runs
// idempotent and preserves confirmed and override shifts pointwise.
func (r *ShiftRepository) ListRuleShiftDates(ctx context.Context, ruleID string) ([]time.Time, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var dates []time.Time
	query := `
		SELECT date FROM shifts
		WHERE tenant_id = $1 AND recurring_shift_id = $2
		ORDER BY date
	`
	if err := r.db.SelectContext(ctx, &dates, query, tenantID, ruleID); err != nil {
		return nil, err
	}
	return dates, nil
}
