package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/verawork/vera-backend/pkg/database"
	"github.com/verawork/vera-backend/pkg/errors"
	"github.com/verawork/vera-backend/pkg/tenant"
)

// Absence types and statuses
const (
	AbsenceVacation      = "vacation"
	AbsenceSick          = "sick"
	AbsenceSchoolHoliday = "school_holiday"
	AbsenceOther         = "other"

	AbsencePending  = "pending"
	AbsenceApproved = "approved"
	AbsenceRejected = "rejected"
)

// EmployeeAbsence is a leave request over an inclusive date range.
type EmployeeAbsence struct {
	ID         string     `db:"id" json:"id"`
	EmployeeID string     `db:"employee_id" json:"employee_id"`
	Type       string     `db:"type" json:"type"`
	StartDate  time.Time  `db:"start_date" json:"start_date"`
	EndDate    time.Time  `db:"end_date" json:"end_date"`
	DaysCount  *float64   `db:"days_count" json:"days_count,omitempty"`
	Status     string     `db:"status" json:"status"`
	Notes      *string    `db:"notes" json:"notes,omitempty"`
	ApprovedBy *string    `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`

	// Joined
	EmployeeName *string `db:"employee_name" json:"employee_name,omitempty"`
}

// CareAbsence records child-sickness leave, tracked separately from
// regular absences for statutory reporting.
type CareAbsence struct {
	ID         string    `db:"id" json:"id"`
	EmployeeID string    `db:"employee_id" json:"employee_id"`
	ChildName  string    `db:"child_name" json:"child_name"`
	StartDate  time.Time `db:"start_date" json:"start_date"`
	EndDate    time.Time `db:"end_date" json:"end_date"`
	DaysCount  *float64  `db:"days_count" json:"days_count,omitempty"`
	Notes      *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AbsenceListParams filters the absence list
type AbsenceListParams struct {
	EmployeeID *string
	Status     *string
	Year       *int
}

// AbsenceRepository handles absence persistence
type AbsenceRepository struct {
	db *database.DB
}

// NewAbsenceRepository creates a new absence repository
func NewAbsenceRepository(db *database.DB) *AbsenceRepository {
	return &AbsenceRepository{db: db}
}

// Create creates an absence request
func (r *AbsenceRepository) Create(ctx context.Context, a *EmployeeAbsence) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Status == "" {
		a.Status = AbsencePending
	}

	query := `
		INSERT INTO employee_absences (
			id, tenant_id, employee_id, type, start_date, end_date,
			days_count, status, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	return r.db.QueryRowxContext(ctx, query,
		a.ID, tenantID, a.EmployeeID, a.Type, a.StartDate, a.EndDate,
		a.DaysCount, a.Status, a.Notes,
	).Scan(&a.CreatedAt)
}

// GetByID gets an absence by ID
func (r *AbsenceRepository) GetByID(ctx context.Context, id string) (*EmployeeAbsence, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var a EmployeeAbsence
	query := `
		SELECT id, employee_id, type, start_date, end_date, days_count,
		       status, notes, approved_by, approved_at, created_at
		FROM employee_absences
		WHERE id = $1 AND tenant_id = $2
	`
	err = r.db.GetContext(ctx, &a, query, id, tenantID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("absence")
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// List lists absences with optional filters
func (r *AbsenceRepository) List(ctx context.Context, params AbsenceListParams) ([]*EmployeeAbsence, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT a.id, a.employee_id, a.type, a.start_date, a.end_date,
		       a.days_count, a.status, a.notes, a.approved_by, a.approved_at,
		       a.created_at,
		       e.first_name || ' ' || e.last_name as employee_name
		FROM employee_absences a
		JOIN employees e ON e.id = a.employee_id
		WHERE a.tenant_id = $1
	`
	args := []interface{}{tenantID}

	if params.EmployeeID != nil {
		args = append(args, *params.EmployeeID)
		query += fmt.Sprintf(" AND a.employee_id = $%d", len(args))
	}
	if params.Status != nil {
		args = append(args, *params.Status)
		query += fmt.Sprintf(" AND a.status = $%d", len(args))
	}
	if params.Year != nil {
		args = append(args, *params.Year)
		query += fmt.Sprintf(" AND EXTRACT(YEAR FROM a.start_date) = $%d", len(args))
	}
	query += " ORDER BY a.start_date DESC"

	var absences []*EmployeeAbsence
	if err := r.db.SelectContext(ctx, &absences, query, args...); err != nil {
		return nil, err
	}
	return absences, nil
}

// UpdateStatus records an approval decision
func (r *AbsenceRepository) UpdateStatus(ctx context.Context, id, status, approverID string) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE employee_absences SET
			status = $3, approved_by = $4, approved_at = NOW()
		WHERE id = $1 AND tenant_id = $2
	`
	result, err := r.db.ExecContext(ctx, query, id, tenantID, status, approverID)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("absence")
	}
	return nil
}

// CreateCare creates a care absence entry
func (r *AbsenceRepository) CreateCare(ctx context.Context, c *CareAbsence) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	query := `
		INSERT INTO care_absences (
			id, tenant_id, employee_id, child_name, start_date, end_date,
			days_count, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	return r.db.QueryRowxContext(ctx, query,
		c.ID, tenantID, c.EmployeeID, c.ChildName, c.StartDate, c.EndDate,
		c.DaysCount, c.Notes,
	).Scan(&c.CreatedAt)
}

// ListCare lists care absences, optionally for one employee
func (r *AbsenceRepository) ListCare(ctx context.Context, employeeID *string) ([]*CareAbsence, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, employee_id, child_name, start_date, end_date,
		       days_count, notes, created_at
		FROM care_absences
		WHERE tenant_id = $1
	`
	args := []interface{}{tenantID}

	if employeeID != nil {
		args = append(args, *employeeID)
		query += fmt.Sprintf(" AND employee_id = $%d", len(args))
	}
	query += " ORDER BY start_date DESC"

	var absences []*CareAbsence
	if err := r.db.SelectContext(ctx, &absences, query, args...); err != nil {
		return nil, err
	}
	return absences, nil
}
