package holidays_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verawork/vera-backend/internal/holidays"
)

func TestEaster(t *testing.T) {
	tests := []struct {
		year int
		want string
	}{
		{2024, "2024-03-31"},
		{2025, "2025-04-20"},
		{2026, "2026-04-05"},
		{2027, "2027-03-28"},
	}

	for _, tt := range tests {
		got := holidays.Easter(tt.year).Format(holidays.DateFormat)
		assert.Equal(t, tt.want, got, "Easter %d", tt.year)
	}
}

func TestForYear_BW2025(t *testing.T) {
	set := holidays.ForYear("BW", 2025)

	require.Len(t, set, 14)

	expected := map[string]string{
		"2025-01-01": "Neujahr",
		"2025-01-06": "Heilige Drei Könige",
		"2025-04-18": "Karfreitag",
		"2025-04-20": "Ostersonntag",
		"2025-04-21": "Ostermontag",
		"2025-05-01": "Tag der Arbeit",
		"2025-05-29": "Christi Himmelfahrt",
		"2025-06-08": "Pfingstsonntag",
		"2025-06-09": "Pfingstmontag",
		"2025-06-19": "Fronleichnam",
		"2025-10-03": "Tag der Deutschen Einheit",
		"2025-11-01": "Allerheiligen",
		"2025-12-25": "1. Weihnachtstag",
		"2025-12-26": "2. Weihnachtstag",
	}

	assert.Equal(t, expected, set)
}

func TestForYear_BW2026(t *testing.T) {
	set := holidays.ForYear("BW", 2026)

	require.Len(t, set, 14)

	// Easter-derived dates for 2026
	assert.Equal(t, "Karfreitag", set["2026-04-03"])
	assert.Equal(t, "Ostersonntag", set["2026-04-05"])
	assert.Equal(t, "Ostermontag", set["2026-04-06"])
	assert.Equal(t, "Christi Himmelfahrt", set["2026-05-14"])
	assert.Equal(t, "Pfingstsonntag", set["2026-05-24"])
	assert.Equal(t, "Pfingstmontag", set["2026-05-25"])
	assert.Equal(t, "Fronleichnam", set["2026-06-04"])
}

func TestForYear_NationwideFallback(t *testing.T) {
	set := holidays.ForYear("BY", 2025)

	require.Len(t, set, 9)
	assert.Contains(t, set, "2025-01-01")
	assert.NotContains(t, set, "2025-01-06")
	assert.NotContains(t, set, "2025-11-01")
}

func TestCalendar_IsHoliday(t *testing.T) {
	cal := holidays.NewCalendar()

	allSaints := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, cal.IsHoliday("BW", allSaints))

	name, ok := cal.HolidayName("BW", allSaints)
	require.True(t, ok)
	assert.Equal(t, "Allerheiligen", name)

	ordinary := time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)
	assert.False(t, cal.IsHoliday("BW", ordinary))

	_, ok = cal.HolidayName("BW", ordinary)
	assert.False(t, ok)
}

func TestWeekdayHelpers(t *testing.T) {
	monday := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	saturday := time.Date(2025, 9, 6, 0, 0, 0, 0, time.UTC)
	sunday := time.Date(2025, 9, 7, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, holidays.Weekday(monday))
	assert.Equal(t, 5, holidays.Weekday(saturday))
	assert.Equal(t, 6, holidays.Weekday(sunday))

	assert.False(t, holidays.IsWeekend(monday))
	assert.True(t, holidays.IsWeekend(saturday))
	assert.True(t, holidays.IsWeekend(sunday))

	assert.False(t, holidays.IsSunday(saturday))
	assert.True(t, holidays.IsSunday(sunday))
}
