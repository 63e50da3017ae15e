package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/verawork/vera-backend/pkg/database"
	"github.com/verawork/vera-backend/pkg/errors"
	"github.com/verawork/vera-backend/pkg/tenant"
)

// HolidayProfile bundles vacation ranges and discrete custom-holiday
// dates. At most one profile per tenant is active.
type HolidayProfile struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	RegionCode string    `db:"region_code" json:"region_code"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`

	// Eager-loaded on the detail endpoint
	VacationPeriods []*VacationPeriod `db:"-" json:"vacation_periods,omitempty"`
	CustomHolidays  []*CustomHoliday  `db:"-" json:"custom_holidays,omitempty"`
}

// VacationPeriod is an inclusive date range owned by a profile.
type VacationPeriod struct {
	ID        string    `db:"id" json:"id"`
	ProfileID string    `db:"profile_id" json:"profile_id"`
	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	Color     string    `db:"color" json:"color"`
}

// CustomHoliday is a single tenant-defined holiday date.
type CustomHoliday struct {
	ID        string    `db:"id" json:"id"`
	ProfileID string    `db:"profile_id" json:"profile_id"`
	Date      time.Time `db:"date" json:"date"`
	Name      string    `db:"name" json:"name"`
	Color     string    `db:"color" json:"color"`
}

// ProfileRepository handles holiday profile persistence
type ProfileRepository struct {
	db *database.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create creates a holiday profile
func (r *ProfileRepository) Create(ctx context.Context, p *HolidayProfile) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.RegionCode == "" {
		p.RegionCode = "BW"
	}

	query := `
		INSERT INTO holiday_profiles (id, tenant_id, name, region_code, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	return r.db.QueryRowxContext(ctx, query,
		p.ID, tenantID, p.Name, p.RegionCode, p.Active,
	).Scan(&p.CreatedAt)
}

// GetByID gets a profile without its children
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*HolidayProfile, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var p HolidayProfile
	query := `
		SELECT id, name, region_code, active, created_at
		FROM holiday_profiles
		WHERE id = $1 AND tenant_id = $2
	`
	err = r.db.GetContext(ctx, &p, query, id, tenantID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("holiday_profile")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetWithDetails eager-loads a profile with its vacation periods and
// custom holidays.
func (r *ProfileRepository) GetWithDetails(ctx context.Context, id string) (*HolidayProfile, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	periodQuery := `
		SELECT id, profile_id, name, start_date, end_date, color
		FROM vacation_periods
		WHERE profile_id = $1
		ORDER BY start_date
	`
	if err := r.db.SelectContext(ctx, &p.VacationPeriods, periodQuery, id); err != nil {
		return nil, err
	}

	holidayQuery := `
		SELECT id, profile_id, date, name, color
		FROM custom_holidays
		WHERE profile_id = $1
		ORDER BY date
	`
	if err := r.db.SelectContext(ctx, &p.CustomHolidays, holidayQuery, id); err != nil {
		return nil, err
	}

	return p, nil
}

// GetActive returns the tenant's active profile with details, or nil
// when no profile is active.
func (r *ProfileRepository) GetActive(ctx context.Context) (*HolidayProfile, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var p HolidayProfile
	query := `
		SELECT id, name, region_code, active, created_at
		FROM holiday_profiles
		WHERE tenant_id = $1 AND active = true
		LIMIT 1
	`
	err = r.db.GetContext(ctx, &p, query, tenantID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.GetWithDetails(ctx, p.ID)
}

// List lists the tenant's profiles
func (r *ProfileRepository) List(ctx context.Context) ([]*HolidayProfile, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var profiles []*HolidayProfile
	query := `
		SELECT id, name, region_code, active, created_at
		FROM holiday_profiles
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`
	if err := r.db.SelectContext(ctx, &profiles, query, tenantID); err != nil {
		return nil, err
	}
	return profiles, nil
}

// Update renames a profile or changes its region
func (r *ProfileRepository) Update(ctx context.Context, p *HolidayProfile) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE holiday_profiles SET name = $3, region_code = $4
		WHERE id = $1 AND tenant_id = $2
	`
	result, err := r.db.ExecContext(ctx, query, p.ID, tenantID, p.Name, p.RegionCode)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("holiday_profile")
	}
	return nil
}

// Activate sets the target profile active and all other profiles of the
// tenant inactive inside a single transaction, keeping the at-most-one
// invariant even under concurrent activations.
func (r *ProfileRepository) Activate(ctx context.Context, id string) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE holiday_profiles SET active = false WHERE tenant_id = $1 AND id <> $2`,
			tenantID, id,
		); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE holiday_profiles SET active = true WHERE id = $1 AND tenant_id = $2`,
			id, tenantID,
		)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("holiday_profile")
		}
		return nil
	})
}

// CountReferencingRules counts active recurring shifts referencing the
// profile. A non-zero count blocks deletion.
func (r *ProfileRepository) CountReferencingRules(ctx context.Context, profileID string) (int64, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	query := `
		SELECT COUNT(*) FROM recurring_shifts
		WHERE tenant_id = $1 AND holiday_profile_id = $2 AND active = true
	`
	if err := r.db.GetContext(ctx, &count, query, tenantID, profileID); err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes a profile; vacation periods and custom holidays
// cascade at the schema level.
func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM holiday_profiles WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("holiday_profile")
	}
	return nil
}

// AddPeriod attaches a vacation period to a profile
func (r *ProfileRepository) AddPeriod(ctx context.Context, p *VacationPeriod) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Color == "" {
		p.Color = "#f59e0b"
	}

	query := `
		INSERT INTO vacation_periods (id, tenant_id, profile_id, name, start_date, end_date, color)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.db.ExecContext(ctx, query,
		p.ID, tenantID, p.ProfileID, p.Name, p.StartDate, p.EndDate, p.Color)
	return err
}

// RemovePeriod detaches a vacation period
func (r *ProfileRepository) RemovePeriod(ctx context.Context, profileID, periodID string) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM vacation_periods WHERE id = $1 AND profile_id = $2 AND tenant_id = $3`,
		periodID, profileID, tenantID)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("vacation_period")
	}
	return nil
}

// AddCustomHoliday attaches a custom holiday date to a profile
func (r *ProfileRepository) AddCustomHoliday(ctx context.Context, h *CustomHoliday) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.Color == "" {
		h.Color = "#ef4444"
	}

	query := `
		INSERT INTO custom_holidays (id, tenant_id, profile_id, date, name, color)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.db.ExecContext(ctx, query,
		h.ID, tenantID, h.ProfileID, h.Date, h.Name, h.Color)
	return err
}

// RemoveCustomHoliday detaches a custom holiday
func (r *ProfileRepository) RemoveCustomHoliday(ctx context.Context, profileID, holidayID string) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM custom_holidays WHERE id = $1 AND profile_id = $2 AND tenant_id = $3`,
		holidayID, profileID, tenantID)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("custom_holiday")
	}
	return nil
}
