package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verawork/vera-backend/internal/audit"
	"github.com/verawork/vera-backend/pkg/database"
	"github.com/verawork/vera-backend/pkg/logger"
	"github.com/verawork/vera-backend/pkg/tenant"
	"github.com/verawork/vera-backend/pkg/testutil"
)

func newRepo(t *testing.T) (*audit.Repository, *testutil.MockDB) {
	mockDB := testutil.NewMockDB(t)
	db := database.FromSqlx(mockDB.DB, logger.New("audit-test", "test"))
	return audit.NewRepository(db), mockDB
}

func TestRecord_InsertsChangedKeys(t *testing.T) {
	repo, mockDB := newRepo(t)
	defer mockDB.Close()

	ctx := tenant.WithTenantID(context.Background(), "tenant-1")

	mockDB.ExpectExec("INSERT INTO audit_logs").
		WithArgs(sqlmock.AnyArg(), "tenant-1", "user-1", "shift", "shift-1", "update",
			[]byte(`{"status":"planned"}`), []byte(`{"status":"confirmed"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Record(ctx, "user-1", "shift", "shift-1", "update",
		map[string]any{"status": "planned"},
		map[string]any{"status": "confirmed"})
	require.NoError(t, err)

	mockDB.ExpectationsWereMet(t)
}

func TestRecord_NilValuesStoredAsNull(t *testing.T) {
	repo, mockDB := newRepo(t)
	defer mockDB.Close()

	ctx := tenant.WithTenantID(context.Background(), "tenant-1")

	mockDB.ExpectExec("INSERT INTO audit_logs").
		WithArgs(sqlmock.AnyArg(), "tenant-1", "user-1", "shift", "shift-1", "create",
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Record(ctx, "user-1", "shift", "shift-1", "create", nil, nil)
	require.NoError(t, err)

	mockDB.ExpectationsWereMet(t)
}

func TestRecord_RequiresTenantContext(t *testing.T) {
	repo, mockDB := newRepo(t)
	defer mockDB.Close()

	err := repo.Record(context.Background(), "user-1", "shift", "shift-1", "update", nil, nil)
	assert.Error(t, err)
}

func TestList_FiltersByEntity(t *testing.T) {
	repo, mockDB := newRepo(t)
	defer mockDB.Close()

	ctx := tenant.WithTenantID(context.Background(), "tenant-1")
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "user_id", "entity_type", "entity_id", "action",
		"old_values", "new_values", "ip_address", "created_at",
	}).AddRow("a1", "tenant-1", "user-1", "shift", "shift-1", "update",
		[]byte(`{"status":"planned"}`), []byte(`{"status":"confirmed"}`), nil, now)

	mockDB.Mock.ExpectQuery("SELECT (.+) FROM audit_logs").
		WithArgs("tenant-1", "shift", "shift-1", 50, 0).
		WillReturnRows(rows)

	entityType := "shift"
	entityID := "shift-1"
	entries, err := repo.List(ctx, audit.ListParams{
		EntityType: &entityType,
		EntityID:   &entityID,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "update", entries[0].Action)
	assert.JSONEq(t, `{"status":"confirmed"}`, string(entries[0].NewValues))

	mockDB.ExpectationsWereMet(t)
}
