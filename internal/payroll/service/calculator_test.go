package service_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	payrollsvc "github.com/verawork/vera-backend/internal/payroll/service"
	schedulerepo "github.com/verawork/vera-backend/internal/schedule/repository"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func neverHoliday(time.Time) bool  { return false }
func alwaysHoliday(time.Time) bool { return true }

func shiftOn(day, start, end string, breakMinutes int) *schedulerepo.Shift {
	return &schedulerepo.Shift{
		Date:         date(day),
		StartTime:    start,
		EndTime:      end,
		BreakMinutes: breakMinutes,
	}
}

func amount(t *testing.T, s *payrollsvc.ShiftSurcharges, category string) string {
	t.Helper()
	return s.Amounts[category].Round(2).StringFixed(2)
}

func TestCalcSurcharges_PlainWeekday(t *testing.T) {
	// Tuesday 09:00-17:00 touches no surcharge window.
	s := payrollsvc.CalcSurcharges(
		shiftOn("2025-03-11", "09:00:00", "17:00:00", 30),
		decimal.NewFromInt(10), neverHoliday)

	assert.Empty(t, s.Hours)
	assert.True(t, s.Total().IsZero())
}

func TestCalcSurcharges_WeekendOnWholeNetHours(t *testing.T) {
	// Saturday, 8h net after the break.
	s := payrollsvc.CalcSurcharges(
		shiftOn("2025-03-08", "10:00:00", "18:30:00", 30),
		decimal.NewFromInt(10), neverHoliday)

	assert.Equal(t, 8.0, s.Hours[payrollsvc.CategoryWeekend])
	assert.Equal(t, "20.00", amount(t, s, payrollsvc.CategoryWeekend))
}

func TestCalcSurcharges_SundayBeatsWeekend(t *testing.T) {
	s := payrollsvc.CalcSurcharges(
		shiftOn("2025-03-09", "10:00:00", "16:00:00", 0),
		decimal.NewFromInt(10), neverHoliday)

	assert.Equal(t, 6.0, s.Hours[payrollsvc.CategorySunday])
	assert.NotContains(t, s.Hours, payrollsvc.CategoryWeekend)
	assert.Equal(t, "30.00", amount(t, s, payrollsvc.CategorySunday))
}

func TestCalcSurcharges_HolidayBeatsSunday(t *testing.T) {
	// Whit Sunday style setup: a holiday falling on a Sunday pays the
	// holiday rate only.
	s := payrollsvc.CalcSurcharges(
		shiftOn("2025-06-08", "10:00:00", "14:00:00", 0),
		decimal.NewFromInt(10), alwaysHoliday)

	assert.Equal(t, 4.0, s.Hours[payrollsvc.CategoryHoliday])
	assert.NotContains(t, s.Hours, payrollsvc.CategorySunday)
	assert.Equal(t, "50.00", amount(t, s, payrollsvc.CategoryHoliday))
}

func TestCalcSurcharges_EarlyLateNightWindows(t *testing.T) {
	// 05:00-07:00 on a weekday: one early hour doubling as night,
	// one plain hour after 06:00.
	s := payrollsvc.CalcSurcharges(
		shiftOn("2025-03-11", "05:00:00", "07:00:00", 0),
		decimal.NewFromInt(10), neverHoliday)

	assert.Equal(t, 1.0, s.Hours[payrollsvc.CategoryEarly])
	assert.Equal(t, 1.0, s.Hours[payrollsvc.CategoryNight])
	assert.NotContains(t, s.Hours, payrollsvc.CategoryLate)
}

func TestCalcSurcharges_PartialSlice(t *testing.T) {
	// 21:30-22:00 is half a late hour anchored at the start time.
	s := payrollsvc.CalcSurcharges(
		shiftOn("2025-03-11", "21:30:00", "22:00:00", 0),
		decimal.NewFromInt(10), neverHoliday)

	assert.Equal(t, 0.5, s.Hours[payrollsvc.CategoryLate])
	assert.Equal(t, "0.63", amount(t, s, payrollsvc.CategoryLate))
}

func TestCalcSurcharges_HolidayNightShiftAcrossMidnight(t *testing.T) {
	// Allerheiligen 2025 falls on a Saturday; 22:00-02:00 at 10.00/h.
	s := payrollsvc.CalcSurcharges(
		shiftOn("2025-11-01", "22:00:00", "02:00:00", 0),
		decimal.NewFromInt(10), alwaysHoliday)

	require.Equal(t, 4.0, s.Hours[payrollsvc.CategoryHoliday])
	assert.Equal(t, 2.0, s.Hours[payrollsvc.CategoryLate])
	assert.Equal(t, 3.0, s.Hours[payrollsvc.CategoryNight])
	assert.Equal(t, 2.0, s.Hours[payrollsvc.CategoryEarly])

	assert.Equal(t, "50.00", amount(t, s, payrollsvc.CategoryHoliday))
	assert.Equal(t, "2.50", amount(t, s, payrollsvc.CategoryLate))
	assert.Equal(t, "7.50", amount(t, s, payrollsvc.CategoryNight))
	assert.Equal(t, "2.50", amount(t, s, payrollsvc.CategoryEarly))

	assert.Equal(t, "62.50", s.Total().Round(2).StringFixed(2))
}
