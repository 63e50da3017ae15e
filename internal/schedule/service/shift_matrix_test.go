package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verawork/vera-backend/internal/audit"
	"github.com/verawork/vera-backend/internal/holidays"
	"github.com/verawork/vera-backend/internal/schedule/repository"
	"github.com/verawork/vera-backend/pkg/database"
	apperrors "github.com/verawork/vera-backend/pkg/errors"
	"github.com/verawork/vera-backend/pkg/httputil"
	"github.com/verawork/vera-backend/pkg/logger"
	"github.com/verawork/vera-backend/pkg/tenant"
	"github.com/verawork/vera-backend/pkg/testutil"
)

var storedShiftCols = []string{
	"id", "employee_id", "template_id", "recurring_shift_id", "date",
	"start_time", "end_time", "break_minutes", "location", "notes", "status",
	"cancellation_reason", "actual_start", "actual_end",
	"confirmed_by", "confirmed_at", "confirmation_note",
	"is_holiday", "is_weekend", "is_sunday",
	"rest_period_ok", "break_ok", "minijob_limit_ok",
	"hours_carried_over", "is_override", "created_at", "updated_at",
}

func storedShiftRow(employeeID interface{}, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(storedShiftCols).AddRow(
		"shift-1", employeeID, nil, nil, day("2025-03-10"),
		"09:00:00", "17:00:00", 0, nil, nil, status,
		nil, nil, nil, nil, nil, nil,
		false, false, false, true, true, true,
		0.0, false, now, now,
	)
}

func newShiftService(t *testing.T) (*ShiftService, *testutil.MockDB) {
	mockDB := testutil.NewMockDB(t)
	db := database.FromSqlx(mockDB.DB, logger.New("schedule-test", "test"))

	svc := NewShiftService(
		repository.NewShiftRepository(db),
		holidays.NewCalendar(),
		audit.NewRepository(db),
		nil,
		nil,
		logger.New("schedule-test", "test"),
	)
	return svc, mockDB
}

func userCtx(role, employeeID string) context.Context {
	ctx := tenant.WithTenantID(context.Background(), "tenant-1")
	ctx = httputil.WithUserContext(ctx, "user-1", "", role)
	if employeeID != "" {
		ctx = httputil.WithEmployeeID(ctx, employeeID)
	}
	return ctx
}

func TestUpdate_EmployeeMayTouchOwnPlannedShift(t *testing.T) {
	svc, mockDB := newShiftService(t)
	defer mockDB.Close()

	mockDB.Mock.ExpectQuery("SELECT (.+) FROM shifts").
		WillReturnRows(storedShiftRow("emp-1", repository.ShiftPlanned))
	mockDB.Mock.ExpectExec("UPDATE shifts").
		WillReturnResult(sqlmock.NewResult(0, 1))

	shift, err := svc.Update(userCtx("employee", "emp-1"), "shift-1", UpdateShiftRequest{
		Notes:       strptr("Schlüssel beim Empfang"),
		ActualStart: strptr("09:05:00"),
	})
	require.NoError(t, err)
	require.NotNil(t, shift.Notes)
	assert.Equal(t, "Schlüssel beim Empfang", *shift.Notes)

	mockDB.ExpectationsWereMet(t)
}

func TestUpdate_EmployeeCannotChangeSchedule(t *testing.T) {
	svc, mockDB := newShiftService(t)
	defer mockDB.Close()

	mockDB.Mock.ExpectQuery("SELECT (.+) FROM shifts").
		WillReturnRows(storedShiftRow("emp-1", repository.ShiftPlanned))

	_, err := svc.Update(userCtx("employee", "emp-1"), "shift-1", UpdateShiftRequest{
		StartTime: strptr("10:00:00"),
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	mockDB.ExpectationsWereMet(t)
}

func TestUpdate_EmployeeCannotTouchForeignShift(t *testing.T) {
	svc, mockDB := newShiftService(t)
	defer mockDB.Close()

	mockDB.Mock.ExpectQuery("SELECT (.+) FROM shifts").
		WillReturnRows(storedShiftRow("emp-2", repository.ShiftPlanned))

	_, err := svc.Update(userCtx("employee", "emp-1"), "shift-1", UpdateShiftRequest{
		Notes: strptr("x"),
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}

func TestUpdate_ManagerCannotEditCompletedShift(t *testing.T) {
	svc, mockDB := newShiftService(t)
	defer mockDB.Close()

	mockDB.Mock.ExpectQuery("SELECT (.+) FROM shifts").
		WillReturnRows(storedShiftRow("emp-1", repository.ShiftCompleted))

	_, err := svc.Update(userCtx("manager", ""), "shift-1", UpdateShiftRequest{
		Notes: strptr("zu spät"),
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}

func TestUpdate_ManagerCannotSetCompleted(t *testing.T) {
	svc, mockDB := newShiftService(t)
	defer mockDB.Close()

	mockDB.Mock.ExpectQuery("SELECT (.+) FROM shifts").
		WillReturnRows(storedShiftRow("emp-1", repository.ShiftConfirmed))

	_, err := svc.Update(userCtx("manager", ""), "shift-1", UpdateShiftRequest{
		Status: strptr(repository.ShiftCompleted),
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}

func TestUpdate_AdminStatusEscapeHatch(t *testing.T) {
	svc, mockDB := newShiftService(t)
	defer mockDB.Close()

	mockDB.Mock.ExpectQuery("SELECT (.+) FROM shifts").
		WillReturnRows(storedShiftRow("emp-1", repository.ShiftCompleted))
	mockDB.Mock.ExpectExec("UPDATE shifts").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.Mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	shift, err := svc.Update(userCtx("admin", ""), "shift-1", UpdateShiftRequest{
		Status: strptr(repository.ShiftPlanned),
	})
	require.NoError(t, err)
	assert.Equal(t, repository.ShiftPlanned, shift.Status)

	mockDB.ExpectationsWereMet(t)
}

func TestClaim_PrivilegedUsersAssignInstead(t *testing.T) {
	svc, mockDB := newShiftService(t)
	defer mockDB.Close()

	_, err := svc.Claim(userCtx("manager", ""), "shift-1")
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}

func TestClaim_AlreadyAssignedConflicts(t *testing.T) {
	svc, mockDB := newShiftService(t)
	defer mockDB.Close()

	mockDB.Mock.ExpectQuery("SELECT (.+) FROM shifts").
		WillReturnRows(storedShiftRow("emp-2", repository.ShiftPlanned))

	_, err := svc.Claim(userCtx("employee", "emp-1"), "shift-1")
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
}

func TestClaim_LosesRaceOnConcurrentClaim(t *testing.T) {
	svc, mockDB := newShiftService(t)
	defer mockDB.Close()

	// The read still sees the shift open; the guarded update finds it taken.
	mockDB.Mock.ExpectQuery("SELECT (.+) FROM shifts").
		WillReturnRows(storedShiftRow(nil, repository.ShiftPlanned))
	mockDB.Mock.ExpectExec("UPDATE shifts").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := svc.Claim(userCtx("employee", "emp-1"), "shift-1")
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))

	mockDB.ExpectationsWereMet(t)
}

func TestClaim_AssignsOpenShift(t *testing.T) {
	svc, mockDB := newShiftService(t)
	defer mockDB.Close()

	mockDB.Mock.ExpectQuery("SELECT (.+) FROM shifts").
		WillReturnRows(storedShiftRow(nil, repository.ShiftPlanned))
	mockDB.Mock.ExpectExec("UPDATE shifts").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.Mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	shift, err := svc.Claim(userCtx("employee", "emp-1"), "shift-1")
	require.NoError(t, err)
	require.NotNil(t, shift.EmployeeID)
	assert.Equal(t, "emp-1", *shift.EmployeeID)

	mockDB.ExpectationsWereMet(t)
}
