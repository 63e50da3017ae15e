package service

import (
	"time"

	"github.com/verawork/vera-backend/internal/holidays"
	"github.com/verawork/vera-backend/internal/schedule/repository"
)

// SkipSet is the set of calendar dates omitted during expansion,
// keyed by ISO date.
type SkipSet map[string]struct{}

// Contains reports membership for a date.
func (s SkipSet) Contains(date time.Time) bool {
	_, ok := s[date.Format(holidays.DateFormat)]
	return ok
}

// BuildSkipSet combines a profile's vacation periods and custom
// holidays with (optionally) the statutory holidays of the covered
// years. An absent profile contributes nothing; the builder never
// fails.
func BuildSkipSet(cal *holidays.Calendar, profile *repository.HolidayProfile, skipPublicHolidays bool, years []int) SkipSet {
	set := make(SkipSet)

	region := holidays.DefaultRegion
	if profile != nil {
		if profile.RegionCode != "" {
			region = profile.RegionCode
		}
		for _, p := range profile.VacationPeriods {
			for d := p.StartDate; !d.After(p.EndDate); d = d.AddDate(0, 0, 1) {
				set[d.Format(holidays.DateFormat)] = struct{}{}
			}
		}
		for _, h := range profile.CustomHolidays {
			set[h.Date.Format(holidays.DateFormat)] = struct{}{}
		}
	}

	if skipPublicHolidays {
		for _, year := range years {
			for date := range cal.Year(region, year) {
				set[date] = struct{}{}
			}
		}
	}

	return set
}

// YearsCovered lists the calendar years touched by the inclusive range.
func YearsCovered(from, until time.Time) []int {
	if from.After(until) {
		return nil
	}
	var years []int
	for y := from.Year(); y <= until.Year(); y++ {
		years = append(years, y)
	}
	return years
}
