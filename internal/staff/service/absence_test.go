package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	schedulerepo "github.com/verawork/vera-backend/internal/schedule/repository"
	"github.com/verawork/vera-backend/internal/staff/repository"
	"github.com/verawork/vera-backend/pkg/database"
	apperrors "github.com/verawork/vera-backend/pkg/errors"
	"github.com/verawork/vera-backend/pkg/httputil"
	"github.com/verawork/vera-backend/pkg/logger"
	"github.com/verawork/vera-backend/pkg/messaging"
	"github.com/verawork/vera-backend/pkg/tenant"
	"github.com/verawork/vera-backend/pkg/testutil"
)

var absenceCols = []string{
	"id", "employee_id", "type", "start_date", "end_date", "days_count",
	"status", "notes", "approved_by", "approved_at", "created_at",
}

func storedAbsenceRow(status string) *sqlmock.Rows {
	return sqlmock.NewRows(absenceCols).AddRow(
		"abs-1", "emp-1", repository.AbsenceVacation,
		time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC),
		nil, status, nil, nil, nil, time.Now(),
	)
}

func newAbsenceService(t *testing.T) (*AbsenceService, *testutil.MockDB, *testutil.MockPublisher) {
	mockDB := testutil.NewMockDB(t)
	db := database.FromSqlx(mockDB.DB, logger.New("staff-test", "test"))
	publisher := testutil.NewMockPublisher()

	svc := NewAbsenceService(
		repository.NewAbsenceRepository(db),
		repository.NewEmployeeRepository(db),
		schedulerepo.NewShiftRepository(db),
		publisher,
		logger.New("staff-test", "test"),
	)
	return svc, mockDB, publisher
}

func absenceCtx(role, employeeID string) context.Context {
	ctx := tenant.WithTenantID(context.Background(), "tenant-1")
	ctx = httputil.WithUserContext(ctx, "user-1", "", role)
	if employeeID != "" {
		ctx = httputil.WithEmployeeID(ctx, employeeID)
	}
	return ctx
}

func TestDecide_ApprovalCancelsOverlappingShifts(t *testing.T) {
	svc, mockDB, publisher := newAbsenceService(t)
	defer mockDB.Close()

	mockDB.Mock.ExpectQuery("SELECT (.+) FROM employee_absences").
		WillReturnRows(storedAbsenceRow(repository.AbsencePending))
	mockDB.Mock.ExpectExec("UPDATE employee_absences").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.Mock.ExpectQuery("UPDATE shifts").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s1").AddRow("s2"))

	result, err := svc.Decide(absenceCtx("manager", ""), "abs-1", repository.AbsenceApproved)
	require.NoError(t, err)

	assert.Equal(t, repository.AbsenceApproved, result.Absence.Status)
	assert.Equal(t, 2, result.ShiftsFlipped)
	require.NotNil(t, result.Absence.ApprovedBy)
	assert.Equal(t, "user-1", *result.Absence.ApprovedBy)

	publisher.AssertEventPublished(t, messaging.EventAbsenceApproved)
	mockDB.ExpectationsWereMet(t)
}

func TestDecide_RejectAfterApprovalRestoresShifts(t *testing.T) {
	svc, mockDB, publisher := newAbsenceService(t)
	defer mockDB.Close()

	mockDB.Mock.ExpectQuery("SELECT (.+) FROM employee_absences").
		WillReturnRows(storedAbsenceRow(repository.AbsenceApproved))
	mockDB.Mock.ExpectExec("UPDATE employee_absences").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.Mock.ExpectQuery("UPDATE shifts").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s1"))

	result, err := svc.Decide(absenceCtx("admin", ""), "abs-1", repository.AbsenceRejected)
	require.NoError(t, err)

	assert.Equal(t, repository.AbsenceRejected, result.Absence.Status)
	assert.Equal(t, 1, result.ShiftsFlipped)

	publisher.AssertEventPublished(t, messaging.EventAbsenceRejected)
	mockDB.ExpectationsWereMet(t)
}

func TestDecide_RejectPendingTouchesNoShifts(t *testing.T) {
	svc, mockDB, _ := newAbsenceService(t)
	defer mockDB.Close()

	mockDB.Mock.ExpectQuery("SELECT (.+) FROM employee_absences").
		WillReturnRows(storedAbsenceRow(repository.AbsencePending))
	mockDB.Mock.ExpectExec("UPDATE employee_absences").
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := svc.Decide(absenceCtx("manager", ""), "abs-1", repository.AbsenceRejected)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ShiftsFlipped)

	mockDB.ExpectationsWereMet(t)
}

func TestDecide_SameDecisionIsIdempotent(t *testing.T) {
	svc, mockDB, publisher := newAbsenceService(t)
	defer mockDB.Close()

	mockDB.Mock.ExpectQuery("SELECT (.+) FROM employee_absences").
		WillReturnRows(storedAbsenceRow(repository.AbsenceApproved))

	result, err := svc.Decide(absenceCtx("admin", ""), "abs-1", repository.AbsenceApproved)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ShiftsFlipped)

	publisher.AssertNoEventsPublished(t)
	mockDB.ExpectationsWereMet(t)
}

func TestDecide_RequiresPrivilegedRole(t *testing.T) {
	svc, mockDB, _ := newAbsenceService(t)
	defer mockDB.Close()

	_, err := svc.Decide(absenceCtx("employee", "emp-1"), "abs-1", repository.AbsenceApproved)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}

func TestCreate_EmployeeOnlyFilesForSelf(t *testing.T) {
	svc, mockDB, _ := newAbsenceService(t)
	defer mockDB.Close()

	_, err := svc.Create(absenceCtx("employee", "emp-1"), CreateAbsenceRequest{
		EmployeeID: "emp-2",
		Type:       repository.AbsenceVacation,
		StartDate:  "2025-04-01",
		EndDate:    "2025-04-05",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}

func TestCreate_RejectsInvertedRange(t *testing.T) {
	svc, mockDB, _ := newAbsenceService(t)
	defer mockDB.Close()

	_, err := svc.Create(absenceCtx("manager", ""), CreateAbsenceRequest{
		EmployeeID: "emp-1",
		Type:       repository.AbsenceSick,
		StartDate:  "2025-04-05",
		EndDate:    "2025-04-01",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}
