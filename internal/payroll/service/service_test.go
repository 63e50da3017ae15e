package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verawork/vera-backend/internal/holidays"
	"github.com/verawork/vera-backend/internal/payroll/repository"
	schedulerepo "github.com/verawork/vera-backend/internal/schedule/repository"
	staffrepo "github.com/verawork/vera-backend/internal/staff/repository"
	"github.com/verawork/vera-backend/pkg/database"
	"github.com/verawork/vera-backend/pkg/logger"
	"github.com/verawork/vera-backend/pkg/tenant"
	"github.com/verawork/vera-backend/pkg/testutil"
)

var employeeCols = []string{
	"id", "user_id", "first_name", "last_name", "email", "phone", "contract_type",
	"hourly_rate", "weekly_hours", "full_time_percentage", "monthly_hours_limit",
	"annual_salary_limit", "vacation_days", "qualifications", "ical_token", "ical_scope",
	"telegram_chat_id", "quiet_hours_start", "quiet_hours_end",
	"notification_prefs", "active", "created_at", "updated_at",
}

var shiftCols = []string{
	"id", "employee_id", "template_id", "recurring_shift_id", "date",
	"start_time", "end_time", "break_minutes", "location", "notes", "status",
	"cancellation_reason", "actual_start", "actual_end",
	"confirmed_by", "confirmed_at", "confirmation_note",
	"is_holiday", "is_weekend", "is_sunday",
	"rest_period_ok", "break_ok", "minijob_limit_ok",
	"hours_carried_over", "is_override", "created_at", "updated_at",
}

func payableShiftRow(rows *sqlmock.Rows, id, day, start, end string, breakMinutes int) {
	d, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	now := time.Now()
	rows.AddRow(id, "emp-1", nil, nil, d, start, end, breakMinutes, nil, nil,
		schedulerepo.ShiftCompleted, nil, nil, nil, nil, nil, nil,
		false, false, false, true, true, true, 0.0, false, now, now)
}

func newComputeService(t *testing.T) (*PayrollService, *testutil.MockDB) {
	mockDB := testutil.NewMockDB(t)
	db := database.FromSqlx(mockDB.DB, logger.New("payroll-test", "test"))

	svc := NewPayrollService(
		repository.NewPayrollRepository(db),
		schedulerepo.NewShiftRepository(db),
		staffrepo.NewEmployeeRepository(db),
		staffrepo.NewContractRepository(db),
		holidays.NewCalendar(),
		nil,
		logger.New("payroll-test", "test"),
	)
	return svc, mockDB
}

// expectComputeQueries mocks the load sequence of one settlement:
// employee, contract resolution (none), payable shifts, carryover, YTD.
func expectComputeQueries(mockDB *testutil.MockDB, monthlyLimit float64, shifts *sqlmock.Rows, carryIn float64, ytd string) {
	now := time.Now()

	mockDB.Mock.ExpectQuery("SELECT (.+) FROM employees").
		WillReturnRows(sqlmock.NewRows(employeeCols).AddRow(
			"emp-1", nil, "Anna", "Beispiel", nil, nil, "part_time",
			"15.00", nil, nil, monthlyLimit,
			nil, 24, "{}", "token-1", "own",
			nil, "21:00:00", "07:00:00",
			[]byte("{}"), true, now, now,
		))

	mockDB.Mock.ExpectQuery("SELECT (.+) FROM contract_history").
		WillReturnError(sql.ErrNoRows)

	mockDB.Mock.ExpectQuery("SELECT (.+) FROM shifts").
		WillReturnRows(shifts)

	if carryIn != 0 {
		mockDB.Mock.ExpectQuery("SELECT (.+) FROM hours_carryover").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "employee_id", "from_month", "to_month", "hours", "reason", "created_by", "created_at",
			}).AddRow("c1", "emp-1", now, now, carryIn, nil, nil, now))
	} else {
		mockDB.Mock.ExpectQuery("SELECT (.+) FROM hours_carryover").
			WillReturnError(sql.ErrNoRows)
	}

	mockDB.Mock.ExpectQuery(`SELECT SUM\(total_gross\)`).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(ytd))
}

func TestCompute_CapProducesCarryover(t *testing.T) {
	svc, mockDB := newComputeService(t)
	defer mockDB.Close()

	// Two plain 8h weekday shifts plus 2h carried in against a 12h cap.
	shifts := sqlmock.NewRows(shiftCols)
	payableShiftRow(shifts, "s1", "2025-03-11", "09:00:00", "17:00:00", 0)
	payableShiftRow(shifts, "s2", "2025-03-12", "09:00:00", "17:00:00", 0)

	expectComputeQueries(mockDB, 12, shifts, 2, "100.00")

	ctx := tenant.WithTenantID(context.Background(), "tenant-1")
	month := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	result, err := svc.compute(ctx, "emp-1", month)
	require.NoError(t, err)

	entry := result.Entry
	assert.Equal(t, 16.0, entry.ActualHours)
	assert.Equal(t, 2.0, entry.CarryoverHours)
	assert.Equal(t, 12.0, entry.PaidHours)
	assert.Equal(t, 6.0, result.NewCarryover)

	assert.Equal(t, "180.00", entry.BaseWage.StringFixed(2))
	assert.Equal(t, "180.00", entry.TotalGross.StringFixed(2))
	assert.Equal(t, "280.00", entry.YTDGross.StringFixed(2))
	assert.Equal(t, "6392.00", entry.AnnualLimitRemaining.StringFixed(2))
	assert.Equal(t, repository.StatusDraft, entry.Status)

	mockDB.ExpectationsWereMet(t)
}

func TestCompute_UnderLimitNoCarryover(t *testing.T) {
	svc, mockDB := newComputeService(t)
	defer mockDB.Close()

	shifts := sqlmock.NewRows(shiftCols)
	payableShiftRow(shifts, "s1", "2025-03-11", "09:00:00", "13:00:00", 0)

	expectComputeQueries(mockDB, 40, shifts, 0, "0")

	ctx := tenant.WithTenantID(context.Background(), "tenant-1")
	month := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	result, err := svc.compute(ctx, "emp-1", month)
	require.NoError(t, err)

	assert.Equal(t, 4.0, result.Entry.ActualHours)
	assert.Equal(t, 4.0, result.Entry.PaidHours)
	assert.Equal(t, 0.0, result.NewCarryover)
	assert.Equal(t, "60.00", result.Entry.BaseWage.StringFixed(2))

	mockDB.ExpectationsWereMet(t)
}
