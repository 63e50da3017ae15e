package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/verawork/vera-backend/pkg/database"
	"github.com/verawork/vera-backend/pkg/errors"
	"github.com/verawork/vera-backend/pkg/tenant"
)

// ShiftTemplate is a reusable shift definition. Generated shifts
// reference templates rather than copying them.
type ShiftTemplate struct {
	ID             string         `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	Weekdays       pq.Int64Array  `db:"weekdays" json:"weekdays"` // 0=Monday .. 6=Sunday
	StartTime      string         `db:"start_time" json:"start_time"`
	EndTime        string         `db:"end_time" json:"end_time"`
	BreakMinutes   int            `db:"break_minutes" json:"break_minutes"`
	Location       *string        `db:"location" json:"location,omitempty"`
	RequiredSkills pq.StringArray `db:"required_skills" json:"required_skills"`
	Color          string         `db:"color" json:"color"`
	IsActive       bool           `db:"is_active" json:"is_active"`
	ValidFrom      *time.Time     `db:"valid_from" json:"valid_from,omitempty"`
	ValidUntil     *time.Time     `db:"valid_until" json:"valid_until,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

const templateColumns = `
	id, name, weekdays, start_time::text as start_time, end_time::text as end_time,
	break_minutes, location, required_skills, color, is_active,
	valid_from, valid_until, created_at, updated_at`

// TemplateRepository handles shift template persistence
type TemplateRepository struct {
	db *database.DB
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *database.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create creates a new shift template
func (r *TemplateRepository) Create(ctx context.Context, tmpl *ShiftTemplate) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if tmpl.ID == "" {
		tmpl.ID = uuid.New().String()
	}
	if tmpl.Color == "" {
		tmpl.Color = "#22c55e"
	}

	query := `
		INSERT INTO shift_templates (
			id, tenant_id, name, weekdays, start_time, end_time, break_minutes,
			location, required_skills, color, is_active, valid_from, valid_until
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRowxContext(ctx, query,
		tmpl.ID, tenantID, tmpl.Name, tmpl.Weekdays, tmpl.StartTime, tmpl.EndTime,
		tmpl.BreakMinutes, tmpl.Location, tmpl.RequiredSkills, tmpl.Color,
		tmpl.IsActive, tmpl.ValidFrom, tmpl.ValidUntil,
	).Scan(&tmpl.CreatedAt, &tmpl.UpdatedAt)
}

// GetByID gets a shift template by ID
func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*ShiftTemplate, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var tmpl ShiftTemplate
	query := `
		SELECT ` + templateColumns + `
		FROM shift_templates
		WHERE id = $1 AND tenant_id = $2
	`
	err = r.db.GetContext(ctx, &tmpl, query, id, tenantID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("shift_template")
	}
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// List lists shift templates, optionally active ones only
func (r *TemplateRepository) List(ctx context.Context, activeOnly bool) ([]*ShiftTemplate, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + templateColumns + `
		FROM shift_templates
		WHERE tenant_id = $1
	`
	if activeOnly {
		query += " AND is_active = true"
	}
	query += " ORDER BY name"

	var templates []*ShiftTemplate
	if err := r.db.SelectContext(ctx, &templates, query, tenantID); err != nil {
		return nil, err
	}
	return templates, nil
}

// Update updates a shift template
func (r *TemplateRepository) Update(ctx context.Context, tmpl *ShiftTemplate) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE shift_templates SET
			name = $3, weekdays = $4, start_time = $5, end_time = $6,
			break_minutes = $7, location = $8, required_skills = $9, color = $10,
			is_active = $11, valid_from = $12, valid_until = $13, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
	`
	result, err := r.db.ExecContext(ctx, query,
		tmpl.ID, tenantID, tmpl.Name, tmpl.Weekdays, tmpl.StartTime, tmpl.EndTime,
		tmpl.BreakMinutes, tmpl.Location, tmpl.RequiredSkills, tmpl.Color,
		tmpl.IsActive, tmpl.ValidFrom, tmpl.ValidUntil,
	)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("shift_template")
	}
	return nil
}
