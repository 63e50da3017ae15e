package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/verawork/vera-backend/pkg/database"
	"github.com/verawork/vera-backend/pkg/tenant"
)

// Actions recorded for privileged mutations
const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionConfirm = "confirm"
	ActionClaim   = "claim"
	ActionDelete  = "delete"
)

// Entry is one append-only audit record.
type Entry struct {
	ID         string          `db:"id" json:"id"`
	TenantID   *string         `db:"tenant_id" json:"tenant_id,omitempty"`
	UserID     *string         `db:"user_id" json:"user_id,omitempty"`
	EntityType string          `db:"entity_type" json:"entity_type"`
	EntityID   *string         `db:"entity_id" json:"entity_id,omitempty"`
	Action     string          `db:"action" json:"action"`
	OldValues  json.RawMessage `db:"old_values" json:"old_values,omitempty"`
	NewValues  json.RawMessage `db:"new_values" json:"new_values,omitempty"`
	IPAddress  *string         `db:"ip_address" json:"ip_address,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// ListParams filters the audit trail.
type ListParams struct {
	EntityType *string
	EntityID   *string
	UserID     *string
	Action     *string
	Page       int
	PerPage    int
}

// Repository appends and reads audit records. Records are never
// updated or deleted here.
type Repository struct {
	db *database.DB
}

// NewRepository creates a new audit repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Record appends one audit entry. Old and new values are reduced to the
// changed keys by the caller; nil maps are stored as NULL.
func (r *Repository) Record(ctx context.Context, userID, entityType, entityID, action string, oldValues, newValues map[string]any) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	var oldJSON, newJSON []byte
	if oldValues != nil {
		if oldJSON, err = json.Marshal(oldValues); err != nil {
			return err
		}
	}
	if newValues != nil {
		if newJSON, err = json.Marshal(newValues); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO audit_logs (
			id, tenant_id, user_id, entity_type, entity_id, action,
			old_values, new_values, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`
	_, err = r.db.ExecContext(ctx, query,
		uuid.New().String(), tenantID, nullable(userID), entityType, nullable(entityID),
		action, nullableBytes(oldJSON), nullableBytes(newJSON),
	)
	return err
}

// List returns audit entries for the tenant, newest first.
func (r *Repository) List(ctx context.Context, params ListParams) ([]*Entry, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 || params.PerPage > 200 {
		params.PerPage = 50
	}

	query := `
		SELECT id, tenant_id, user_id, entity_type, entity_id, action,
		       old_values, new_values, ip_address, created_at
		FROM audit_logs
		WHERE tenant_id = $1
	`
	args := []interface{}{tenantID}

	if params.EntityType != nil {
		args = append(args, *params.EntityType)
		query += ` AND entity_type = $` + itoa(len(args))
	}
	if params.EntityID != nil {
		args = append(args, *params.EntityID)
		query += ` AND entity_id = $` + itoa(len(args))
	}
	if params.UserID != nil {
		args = append(args, *params.UserID)
		query += ` AND user_id = $` + itoa(len(args))
	}
	if params.Action != nil {
		args = append(args, *params.Action)
		query += ` AND action = $` + itoa(len(args))
	}

	args = append(args, params.PerPage)
	query += ` ORDER BY created_at DESC LIMIT $` + itoa(len(args))
	args = append(args, (params.Page-1)*params.PerPage)
	query += ` OFFSET $` + itoa(len(args))

	var entries []*Entry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, err
	}
	return entries, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

func itoa(n int) string {
	// query placeholders never exceed two digits
	if n < 10 {
		return string(rune('0' + n))
	}
	return string(rune('0'+n/10)) + string(rune('0'+n%10))
}
