package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/verawork/vera-backend/pkg/database"
	"github.com/verawork/vera-backend/pkg/errors"
	"github.com/verawork/vera-backend/pkg/tenant"
)

// Shift statuses
const (
	ShiftPlanned          = "planned"
	ShiftConfirmed        = "confirmed"
	ShiftCompleted        = "completed"
	ShiftCancelled        = "cancelled"
	ShiftCancelledAbsence = "cancelled_absence"
)

// Shift is one concrete work assignment for a day and time window.
// Times are TIME columns carried as HH:MM:SS strings; a shift whose
// end_time is not after start_time crosses midnight.
type Shift struct {
	ID                 string     `db:"id" json:"id"`
	EmployeeID         *string    `db:"employee_id" json:"employee_id,omitempty"`
	TemplateID         *string    `db:"template_id" json:"template_id,omitempty"`
	RecurringShiftID   *string    `db:"recurring_shift_id" json:"recurring_shift_id,omitempty"`
	Date               time.Time  `db:"date" json:"date"`
	StartTime          string     `db:"start_time" json:"start_time"`
	EndTime            string     `db:"end_time" json:"end_time"`
	BreakMinutes       int        `db:"break_minutes" json:"break_minutes"`
	Location           *string    `db:"location" json:"location,omitempty"`
	Notes              *string    `db:"notes" json:"notes,omitempty"`
	Status             string     `db:"status" json:"status"`
	CancellationReason *string    `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	ActualStart        *string    `db:"actual_start" json:"actual_start,omitempty"`
	ActualEnd          *string    `db:"actual_end" json:"actual_end,omitempty"`
	ConfirmedBy        *string    `db:"confirmed_by" json:"confirmed_by,omitempty"`
	ConfirmedAt        *time.Time `db:"confirmed_at" json:"confirmed_at,omitempty"`
	ConfirmationNote   *string    `db:"confirmation_note" json:"confirmation_note,omitempty"`
	IsHoliday          bool       `db:"is_holiday" json:"is_holiday"`
	IsWeekend          bool       `db:"is_weekend" json:"is_weekend"`
	IsSunday           bool       `db:"is_sunday" json:"is_sunday"`
	RestPeriodOK       bool       `db:"rest_period_ok" json:"rest_period_ok"`
	BreakOK            bool       `db:"break_ok" json:"break_ok"`
	MinijobLimitOK     bool       `db:"minijob_limit_ok" json:"minijob_limit_ok"`
	HoursCarriedOver   float64    `db:"hours_carried_over" json:"hours_carried_over"`
	IsOverride         bool       `db:"is_override" json:"is_override"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`

	// Joined fields (populated by specific queries)
	EmployeeName *string `db:"employee_name" json:"employee_name,omitempty"`
	TemplateName *string `db:"template_name" json:"template_name,omitempty"`
}

// ShiftListParams holds parameters for listing shifts
type ShiftListParams struct {
	EmployeeID *string
	StartDate  *time.Time
	EndDate    *time.Time
	Status     *string
	OpenOnly   bool
	Page       int
	PerPage    int
}

const shiftColumns = `
	s.id, s.employee_id, s.template_id, s.recurring_shift_id, s.date,
	s.start_time::text as start_time, s.end_time::text as end_time,
	s.break_minutes, s.location, s.notes, s.status, s.cancellation_reason,
	s.actual_start::text as actual_start, s.actual_end::text as actual_end,
	s.confirmed_by, s.confirmed_at, s.confirmation_note,
	s.is_holiday, s.is_weekend, s.is_sunday,
	s.rest_period_ok, s.break_ok, s.minijob_limit_ok,
	s.hours_carried_over, s.is_override, s.created_at, s.updated_at`

// ShiftRepository handles shift persistence
type ShiftRepository struct {
	db *database.DB
}

// NewShiftRepository creates a new shift repository
func NewShiftRepository(db *database.DB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

// Create inserts a single shift
func (r *ShiftRepository) Create(ctx context.Context, s *Shift) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Status == "" {
		s.Status = ShiftPlanned
	}

	query := `
		INSERT INTO shifts (
			id, tenant_id, employee_id, template_id, recurring_shift_id, date,
			start_time, end_time, break_minutes, location, notes, status,
			is_holiday, is_weekend, is_sunday, is_override
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRowxContext(ctx, query,
		s.ID, tenantID, s.EmployeeID, s.TemplateID, s.RecurringShiftID, s.Date,
		s.StartTime, s.EndTime, s.BreakMinutes, s.Location, s.Notes, s.Status,
		s.IsHoliday, s.IsWeekend, s.IsSunday, s.IsOverride,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

// CreateBulk inserts many shifts inside one transaction. Either all
// shifts are written or none.
func (r *ShiftRepository) CreateBulk(ctx context.Context, shifts []*Shift) error {
	if len(shifts) == 0 {
		return nil
	}

	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		query := `
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
			if s.Status == "" {
				s.Status = ShiftPlanned
			}
			err := tx.QueryRowxContext(ctx, query,
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

// GetByID gets a shift by ID within the tenant
func (r *ShiftRepository) GetByID(ctx context.Context, id string) (*Shift, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var s Shift
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts s
		WHERE s.id = $1 AND s.tenant_id = $2
	`
	err = r.db.GetContext(ctx, &s, query, id, tenantID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("shift")
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// List lists shifts with optional filters, ascending by date and start time
func (r *ShiftRepository) List(ctx context.Context, params ShiftListParams) ([]*Shift, int64, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, 0, err
	}

	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 || params.PerPage > 500 {
		params.PerPage = 100
	}

	whereClause := " WHERE s.tenant_id = $1"
	args := []interface{}{tenantID}

	if params.EmployeeID != nil {
		args = append(args, *params.EmployeeID)
		whereClause += fmt.Sprintf(" AND s.employee_id = $%d", len(args))
	}
	if params.OpenOnly {
		whereClause += " AND s.employee_id IS NULL"
	}
	if params.StartDate != nil {
		args = append(args, *params.StartDate)
		whereClause += fmt.Sprintf(" AND s.date >= $%d", len(args))
	}
	if params.EndDate != nil {
		args = append(args, *params.EndDate)
		whereClause += fmt.Sprintf(" AND s.date <= $%d", len(args))
	}
	if params.Status != nil {
		args = append(args, *params.Status)
		whereClause += fmt.Sprintf(" AND s.status = $%d", len(args))
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM shifts s" + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + shiftColumns + `,
		       e.first_name || ' ' || e.last_name as employee_name,
		       t.name as template_name
		FROM shifts s
		LEFT JOIN employees e ON e.id = s.employee_id
		LEFT JOIN shift_templates t ON t.id = s.template_id` +
		whereClause +
		fmt.Sprintf(" ORDER BY s.date, s.start_time LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)

	args = append(args, params.PerPage, (params.Page-1)*params.PerPage)

	var shifts []*Shift
	if err := r.db.SelectContext(ctx, &shifts, query, args...); err != nil {
		return nil, 0, err
	}
	return shifts, total, nil
}

// Update persists mutable shift fields
func (r *ShiftRepository) Update(ctx context.Context, s *Shift) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE shifts SET
			employee_id = $3, template_id = $4, date = $5, start_time = $6,
			end_time = $7, break_minutes = $8, location = $9, notes = $10,
			status = $11, cancellation_reason = $12, actual_start = $13,
			actual_end = $14, confirmed_by = $15, confirmed_at = $16,
			confirmation_note = $17, is_holiday = $18, is_weekend = $19,
			is_sunday = $20, is_override = $21, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
	`
	result, err := r.db.ExecContext(ctx, query,
		s.ID, tenantID, s.EmployeeID, s.TemplateID, s.Date, s.StartTime,
		s.EndTime, s.BreakMinutes, s.Location, s.Notes,
		s.Status, s.CancellationReason, s.ActualStart,
		s.ActualEnd, s.ConfirmedBy, s.ConfirmedAt,
		s.ConfirmationNote, s.IsHoliday, s.IsWeekend,
		s.IsSunday, s.IsOverride,
	)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("shift")
	}
	return nil
}

// UpdateComplianceFlags persists the evaluator's reduced flags.
// Runs outside the primary write transaction; failures are the
// caller's to swallow.
func (r *ShiftRepository) UpdateComplianceFlags(ctx context.Context, id string, restOK, breakOK, minijobOK bool) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE shifts SET
			rest_period_ok = $3, break_ok = $4, minijob_limit_ok = $5, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
	`
	result, err := r.db.ExecContext(ctx, query, id, tenantID, restOK, breakOK, minijobOK)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("shift")
	}
	return nil
}

// Claim atomically assigns an open planned shift to an employee.
// The predicate makes a second claimer lose with a conflict.
func (r *ShiftRepository) Claim(ctx context.Context, shiftID, employeeID string) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE shifts SET employee_id = $3, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
		  AND employee_id IS NULL AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, shiftID, tenantID, employeeID, ShiftPlanned)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.Conflict("shift is no longer open")
	}
	return nil
}

// Delete removes a shift
func (r *ShiftRepository) Delete(ctx context.Context, id string) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM shifts WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("shift")
	}
	return nil
}

// DeleteGenerated deletes the regenerable shifts of a rule: planned,
// not overridden, and (when fromDate is set) on or after that date.
// Confirmed, completed, cancelled, and override shifts survive.
func (r *ShiftRepository) DeleteGenerated(ctx context.Context, ruleID string, fromDate *time.Time) (int64, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return 0, err
	}

	query := `
		DELETE FROM shifts
		WHERE tenant_id = $1 AND recurring_shift_id = $2
		  AND status = $3 AND is_override = false
	`
	args := []interface{}{tenantID, ruleID, ShiftPlanned}

	if fromDate != nil {
		args = append(args, *fromDate)
		query += fmt.Sprintf(" AND date >= $%d", len(args))
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	affected, _ := result.RowsAffected()
	return affected, nil
}

// PreviousShift returns the last non-cancelled shift of the employee
// strictly before the given date, or nil when there is none.
func (r *ShiftRepository) PreviousShift(ctx context.Context, employeeID string, before time.Time) (*Shift, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var s Shift
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts s
		WHERE s.tenant_id = $1 AND s.employee_id = $2 AND s.date < $3
		  AND s.status NOT IN ($4, $5)
		ORDER BY s.date DESC, s.end_time DESC
		LIMIT 1
	`
	err = r.db.GetContext(ctx, &s, query, tenantID, employeeID, before, ShiftCancelled, ShiftCancelledAbsence)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListForEmployeeRange returns the employee's shifts inside the inclusive
// date range, excluding none by status. Ascending by date and start time.
func (r *ShiftRepository) ListForEmployeeRange(ctx context.Context, employeeID string, from, to time.Time) ([]*Shift, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var shifts []*Shift
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts s
		WHERE s.tenant_id = $1 AND s.employee_id = $2 AND s.date BETWEEN $3 AND $4
		ORDER BY s.date, s.start_time
	`
	if err := r.db.SelectContext(ctx, &shifts, query, tenantID, employeeID, from, to); err != nil {
		return nil, err
	}
	return shifts, nil
}

// ListPayable returns the employee's confirmed and completed shifts for
// the calendar month starting at monthStart.
func (r *ShiftRepository) ListPayable(ctx context.Context, employeeID string, monthStart time.Time) ([]*Shift, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	monthEnd := monthStart.AddDate(0, 1, -1)

	var shifts []*Shift
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts s
		WHERE s.tenant_id = $1 AND s.employee_id = $2
		  AND s.date BETWEEN $3 AND $4
		  AND s.status IN ($5, $6)
		ORDER BY s.date, s.start_time
	`
	err = r.db.SelectContext(ctx, &shifts, query, tenantID, employeeID, monthStart, monthEnd, ShiftConfirmed, ShiftCompleted)
	if err != nil {
		return nil, err
	}
	return shifts, nil
}

// CancelForAbsence transitions the employee's shifts in the inclusive
// range to cancelled_absence, skipping already-cancelled ones.
// Returns the affected shift IDs.
func (r *ShiftRepository) CancelForAbsence(ctx context.Context, employeeID string, from, to time.Time) ([]string, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var ids []string
	query := `
		UPDATE shifts SET status = $5, updated_at = NOW()
		WHERE tenant_id = $1 AND employee_id = $2 AND date BETWEEN $3 AND $4
		  AND status NOT IN ($5, $6)
		RETURNING id
	`
	err = r.db.SelectContext(ctx, &ids, query, tenantID, employeeID, from, to, ShiftCancelledAbsence, ShiftCancelled)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// RestoreFromAbsence returns cancelled_absence shifts in the range to
// planned. Used when a previously approved absence is rejected.
func (r *ShiftRepository) RestoreFromAbsence(ctx context.Context, employeeID string, from, to time.Time) ([]string, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var ids []string
	query := `
		UPDATE shifts SET status = $5, updated_at = NOW()
		WHERE tenant_id = $1 AND employee_id = $2 AND date BETWEEN $3 AND $4
		  AND status = $6
		RETURNING id
	`
	err = r.db.SelectContext(ctx, &ids, query, tenantID, employeeID, from, to, ShiftPlanned, ShiftCancelledAbsence)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ListUpcoming returns non-cancelled shifts on the given date with an
// assigned employee. Used by the reminder jobs.
func (r *ShiftRepository) ListUpcoming(ctx context.Context, date time.Time) ([]*Shift, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var shifts []*Shift
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts s
		WHERE s.tenant_id = $1 AND s.date = $2 AND s.employee_id IS NOT NULL
		  AND s.status NOT IN ($3, $4)
		ORDER BY s.start_time
	`
	if err := r.db.SelectContext(ctx, &shifts, query, tenantID, date, ShiftCancelled, ShiftCancelledAbsence); err != nil {
		return nil, err
	}
	return shifts, nil
}

// ListForFeed returns non-cancelled shifts for the iCal feed, scoped to
// one employee or to the whole tenant, joined with template names.
func (r *ShiftRepository) ListForFeed(ctx context.Context, employeeID *string, from, to time.Time) ([]*Shift, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + shiftColumns + `,
		       e.first_name || ' ' || e.last_name as employee_name,
		       t.name as template_name
		FROM shifts s
		LEFT JOIN employees e ON e.id = s.employee_id
		LEFT JOIN shift_templates t ON t.id = s.template_id
		WHERE s.tenant_id = $1 AND s.date BETWEEN $2 AND $3
		  AND s.status NOT IN ($4, $5)
	`
	args := []interface{}{tenantID, from, to, ShiftCancelled, ShiftCancelledAbsence}

	if employeeID != nil {
		args = append(args, *employeeID)
		query += fmt.Sprintf(" AND s.employee_id = $%d", len(args))
	}
	query += " ORDER BY s.date, s.start_time"

	var shifts []*Shift
	if err := r.db.SelectContext(ctx, &shifts, query, args...); err != nil {
		return nil, err
	}
	return shifts, nil
}

// ListFlagged returns non-cancelled shifts with at least one compliance
// flag down, newest first, joined with employee names.
func (r *ShiftRepository) ListFlagged(ctx context.Context, employeeID *string, from, to *time.Time) ([]*Shift, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + shiftColumns + `,
		       e.first_name || ' ' || e.last_name as employee_name
		FROM shifts s
		LEFT JOIN employees e ON e.id = s.employee_id
		WHERE s.tenant_id = $1 AND s.status NOT IN ($2, $3)
		  AND (s.rest_period_ok = false OR s.break_ok = false OR s.minijob_limit_ok = false)
	`
	args := []interface{}{tenantID, ShiftCancelled, ShiftCancelledAbsence}

	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND s.date >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND s.date <= $%d", len(args))
	}
	if employeeID != nil {
		args = append(args, *employeeID)
		query += fmt.Sprintf(" AND s.employee_id = $%d", len(args))
	}
	query += " ORDER BY s.date DESC, s.start_time"

	var shifts []*Shift
	if err := r.db.SelectContext(ctx, &shifts, query, args...); err != nil {
		return nil, err
	}
	return shifts, nil
}

// ListAssignedRange returns all assigned, non-cancelled shifts in the
// inclusive range, ascending. Used by the bulk compliance run.
func (r *ShiftRepository) ListAssignedRange(ctx context.Context, from, to time.Time) ([]*Shift, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var shifts []*Shift
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts s
		WHERE s.tenant_id = $1 AND s.date BETWEEN $2 AND $3
		  AND s.employee_id IS NOT NULL
		  AND s.status NOT IN ($4, $5)
		ORDER BY s.date, s.start_time
	`
	if err := r.db.SelectContext(ctx, &shifts, query, tenantID, from, to, ShiftCancelled, ShiftCancelledAbsence); err != nil {
		return nil, err
	}
	return shifts, nil
}
