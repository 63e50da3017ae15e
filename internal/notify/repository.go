package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/verawork/vera-backend/pkg/database"
	"github.com/verawork/vera-backend/pkg/tenant"
)

// Delivery statuses; every dispatch attempt ends in exactly one
const (
	StatusSent            = "sent"
	StatusFailed          = "failed"
	StatusSkippedQuietHrs = "skipped_quiet_hours"
)

// NotificationLog is one terminal dispatch record per (event, channel)
type NotificationLog struct {
	ID         string     `db:"id" json:"id"`
	EmployeeID string     `db:"employee_id" json:"employee_id"`
	Channel    string     `db:"channel" json:"channel"`
	EventType  string     `db:"event_type" json:"event_type"`
	Subject    *string    `db:"subject" json:"subject,omitempty"`
	Body       string     `db:"body" json:"body"`
	Status     string     `db:"status" json:"status"`
	Error      *string    `db:"error" json:"error,omitempty"`
	SentAt     *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// PushSubscription is one registered browser push endpoint. Endpoints
// are globally unique.
type PushSubscription struct {
	ID         string    `db:"id" json:"id"`
	EmployeeID string    `db:"employee_id" json:"employee_id"`
	Endpoint   string    `db:"endpoint" json:"endpoint"`
	P256dh     string    `db:"p256dh" json:"p256dh"`
	Auth       string    `db:"auth" json:"auth"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Repository persists notification logs and push subscriptions
type Repository struct {
	db *database.DB
}

// NewRepository creates a new notify repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// RecordLog appends one dispatch outcome
func (r *Repository) RecordLog(ctx context.Context, l *NotificationLog) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if l.ID == "" {
		l.ID = uuid.New().String()
	}

	query := `
		INSERT INTO notification_logs (
			id, tenant_id, employee_id, channel, event_type, subject, body,
			status, error, sent_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	return r.db.QueryRowxContext(ctx, query,
		l.ID, tenantID, l.EmployeeID, l.Channel, l.EventType, l.Subject, l.Body,
		l.Status, l.Error, l.SentAt,
	).Scan(&l.CreatedAt)
}

// ListLogs returns dispatch records, newest first
func (r *Repository) ListLogs(ctx context.Context, employeeID *string, limit int) ([]*NotificationLog, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, employee_id, channel, event_type, subject, body,
		       status, error, sent_at, created_at
		FROM notification_logs
		WHERE tenant_id = $1
	`
	args := []interface{}{tenantID}

	if employeeID != nil {
		args = append(args, *employeeID)
		query += fmt.Sprintf(" AND employee_id = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	var logs []*NotificationLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, err
	}
	return logs, nil
}

// SaveSubscription upserts a push subscription by endpoint
func (r *Repository) SaveSubscription(ctx context.Context, s *PushSubscription) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if s.ID == "" {
		s.ID = uuid.New().String()
	}

	query := `
		INSERT INTO push_subscriptions (id, tenant_id, employee_id, endpoint, p256dh, auth)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (endpoint) DO UPDATE SET
			employee_id = EXCLUDED.employee_id,
			p256dh = EXCLUDED.p256dh,
			auth = EXCLUDED.auth
		RETURNING created_at
	`
	return r.db.QueryRowxContext(ctx, query,
		s.ID, tenantID, s.EmployeeID, s.Endpoint, s.P256dh, s.Auth,
	).Scan(&s.CreatedAt)
}

// ListSubscriptions returns the employee's registered push endpoints
func (r *Repository) ListSubscriptions(ctx context.Context, employeeID string) ([]*PushSubscription, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var subs []*PushSubscription
	query := `
		SELECT id, employee_id, endpoint, p256dh, auth, created_at
		FROM push_subscriptions
		WHERE tenant_id = $1 AND employee_id = $2
	`
	if err := r.db.SelectContext(ctx, &subs, query, tenantID, employeeID); err != nil {
		return nil, err
	}
	return subs, nil
}

// DeleteSubscription removes an expired or unsubscribed endpoint
func (r *Repository) DeleteSubscription(ctx context.Context, endpoint string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	return err
}
