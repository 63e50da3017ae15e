package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verawork/vera-backend/internal/holidays"
	"github.com/verawork/vera-backend/internal/schedule/repository"
)

func day(s string) time.Time {
	d, err := time.Parse(holidays.DateFormat, s)
	if err != nil {
		panic(err)
	}
	return d
}

func dates(ts []time.Time) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Format(holidays.DateFormat))
	}
	return out
}

func TestYearsCovered(t *testing.T) {
	assert.Equal(t, []int{2025}, YearsCovered(day("2025-03-01"), day("2025-06-30")))
	assert.Equal(t, []int{2025, 2026}, YearsCovered(day("2025-12-01"), day("2026-01-31")))
	assert.Nil(t, YearsCovered(day("2026-01-01"), day("2025-01-01")))
}

func TestBuildSkipSet_ProfileOnly(t *testing.T) {
	profile := &repository.HolidayProfile{
		RegionCode: "BW",
		VacationPeriods: []*repository.VacationPeriod{
			{Name: "Ostern", StartDate: day("2025-04-14"), EndDate: day("2025-04-17")},
		},
		CustomHolidays: []*repository.CustomHoliday{
			{Date: day("2025-07-01")},
		},
	}

	set := BuildSkipSet(holidays.NewCalendar(), profile, false, nil)

	assert.True(t, set.Contains(day("2025-04-14")))
	assert.True(t, set.Contains(day("2025-04-17")))
	assert.False(t, set.Contains(day("2025-04-18")))
	assert.True(t, set.Contains(day("2025-07-01")))
	// Public holidays stay in without the flag.
	assert.False(t, set.Contains(day("2025-12-25")))
}

func TestBuildSkipSet_PublicHolidays(t *testing.T) {
	set := BuildSkipSet(holidays.NewCalendar(), nil, true, []int{2025})

	assert.True(t, set.Contains(day("2025-01-01")))
	assert.True(t, set.Contains(day("2025-12-25")))
	assert.True(t, set.Contains(day("2025-06-19"))) // Fronleichnam, BW
	assert.False(t, set.Contains(day("2025-03-03")))
}

func TestBuildSkipSet_NilProfileContributesNothing(t *testing.T) {
	set := BuildSkipSet(holidays.NewCalendar(), nil, false, []int{2025})
	assert.Empty(t, set)
}

func TestExpandDates_WeekdayProjection(t *testing.T) {
	// Mondays in March 2025: 3rd, 10th, 17th, 24th, 31st.
	generated, skipped := expandDates(0, day("2025-03-01"), day("2025-03-31"), SkipSet{})

	assert.Equal(t, []string{
		"2025-03-03", "2025-03-10", "2025-03-17", "2025-03-24", "2025-03-31",
	}, dates(generated))
	assert.Empty(t, skipped)
}

func TestExpandDates_SkipSetSplitsOrdered(t *testing.T) {
	skip := SkipSet{
		"2025-03-10": {},
		"2025-03-24": {},
	}

	generated, skipped := expandDates(0, day("2025-03-01"), day("2025-03-31"), skip)

	assert.Equal(t, []string{"2025-03-03", "2025-03-17", "2025-03-31"}, dates(generated))
	assert.Equal(t, []string{"2025-03-10", "2025-03-24"}, dates(skipped))
}

func TestExpandDates_InclusiveBounds(t *testing.T) {
	// Both range ends are Mondays and both are produced.
	generated, _ := expandDates(0, day("2025-03-03"), day("2025-03-10"), SkipSet{})
	require.Len(t, generated, 2)
	assert.Equal(t, "2025-03-03", generated[0].Format(holidays.DateFormat))
	assert.Equal(t, "2025-03-10", generated[1].Format(holidays.DateFormat))
}

func TestExpandDates_InvertedRange(t *testing.T) {
	generated, skipped := expandDates(0, day("2025-03-31"), day("2025-03-01"), SkipSet{})
	assert.Empty(t, generated)
	assert.Empty(t, skipped)
}
