package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verawork/vera-backend/internal/schedule/repository"
)

func strptr(s string) *string { return &s }
func intptr(i int) *int       { return &i }

func baseShift() *repository.Shift {
	employeeID := "emp-1"
	return &repository.Shift{
		ID:         "shift-1",
		EmployeeID: &employeeID,
		Date:       day("2025-03-10"),
		StartTime:  "09:00:00",
		EndTime:    "17:00:00",
		Status:     repository.ShiftPlanned,
	}
}

func TestApplyShiftUpdate_ChangedKeysOnly(t *testing.T) {
	shift := baseShift()

	oldValues, newValues := applyShiftUpdate(shift, UpdateShiftRequest{
		StartTime:    strptr("10:00:00"),
		BreakMinutes: intptr(30),
	})

	assert.Equal(t, map[string]any{"start_time": "09:00:00", "break_minutes": 0}, oldValues)
	assert.Equal(t, map[string]any{"start_time": "10:00:00", "break_minutes": 30}, newValues)

	assert.Equal(t, "10:00:00", shift.StartTime)
	assert.Equal(t, 30, shift.BreakMinutes)
	assert.Equal(t, "17:00:00", shift.EndTime)
}

func TestApplyShiftUpdate_NoOpValuesProduceNoImage(t *testing.T) {
	shift := baseShift()

	oldValues, newValues := applyShiftUpdate(shift, UpdateShiftRequest{
		StartTime: strptr("09:00:00"),
		EndTime:   strptr("17:00:00"),
	})

	assert.Empty(t, oldValues)
	assert.Empty(t, newValues)
}

func TestApplyShiftUpdate_StatusTransition(t *testing.T) {
	shift := baseShift()
	reason := "krank"

	oldValues, newValues := applyShiftUpdate(shift, UpdateShiftRequest{
		Status:             strptr(repository.ShiftCancelled),
		CancellationReason: &reason,
	})

	assert.Equal(t, repository.ShiftPlanned, oldValues["status"])
	assert.Equal(t, repository.ShiftCancelled, newValues["status"])
	assert.Equal(t, repository.ShiftCancelled, shift.Status)
	require.NotNil(t, shift.CancellationReason)
	assert.Equal(t, "krank", *shift.CancellationReason)
}

func TestApplyShiftUpdate_ReassignsEmployee(t *testing.T) {
	shift := baseShift()

	oldValues, newValues := applyShiftUpdate(shift, UpdateShiftRequest{
		EmployeeID: strptr("emp-2"),
	})

	assert.Equal(t, "emp-1", oldValues["employee_id"])
	assert.Equal(t, "emp-2", newValues["employee_id"])
	require.NotNil(t, shift.EmployeeID)
	assert.Equal(t, "emp-2", *shift.EmployeeID)
}

func TestValidStatuses(t *testing.T) {
	for _, status := range []string{
		repository.ShiftPlanned, repository.ShiftConfirmed, repository.ShiftCompleted,
		repository.ShiftCancelled, repository.ShiftCancelledAbsence,
	} {
		assert.True(t, validStatuses[status], status)
	}
	assert.False(t, validStatuses["archived"])
}
