package tenants

import (
	"context"
	"database/sql"

	"github.com/verawork/vera-backend/pkg/database"
	"github.com/verawork/vera-backend/pkg/errors"
	"github.com/verawork/vera-backend/pkg/tenant"
)

// Repository reads the tenant registry. Tenants are provisioned out of
// band; this service only consumes them.
type Repository struct {
	db *database.DB
}

// NewRepository creates a new tenant repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Name returns the display name of the tenant in context
func (r *Repository) Name(ctx context.Context) (string, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return "", err
	}

	var name string
	err = r.db.GetContext(ctx, &name, `SELECT name FROM tenants WHERE id = $1`, tenantID)
	if err == sql.ErrNoRows {
		return "", errors.NotFound("tenant")
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// ListActiveIDs returns the IDs of all active tenants. Used by the
// background jobs to fan out per tenant; needs no tenant context.
func (r *Repository) ListActiveIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `SELECT id FROM tenants WHERE is_active = TRUE ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	return ids, nil
}
