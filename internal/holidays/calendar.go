package holidays

import (
	"sync"
	"time"
)

// DefaultRegion is the region used when no holiday profile narrows it down.
const DefaultRegion = "BW"

// DateFormat is the canonical wire format for calendar dates.
const DateFormat = "2006-01-02"

// Easter returns the date of Easter Sunday for the given year,
// computed with Gauss's algorithm.
func Easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// ForYear returns the statutory holidays of a region for one year,
// keyed by ISO date. Only "BW" (Baden-Wuerttemberg) carries the full
// regional set; other region codes fall back to the nationwide core.
func ForYear(region string, year int) map[string]string {
	easter := Easter(year)

	set := make(map[string]string)
	set[dateKey(year, time.January, 1)] = "Neujahr"
	set[easterOffset(easter, -2)] = "Karfreitag"
	set[easterOffset(easter, 1)] = "Ostermontag"
	set[dateKey(year, time.May, 1)] = "Tag der Arbeit"
	set[easterOffset(easter, 39)] = "Christi Himmelfahrt"
	set[easterOffset(easter, 50)] = "Pfingstmontag"
	set[dateKey(year, time.October, 3)] = "Tag der Deutschen Einheit"
	set[dateKey(year, time.December, 25)] = "1. Weihnachtstag"
	set[dateKey(year, time.December, 26)] = "2. Weihnachtstag"

	if region == "BW" {
		set[dateKey(year, time.January, 6)] = "Heilige Drei Könige"
		set[easterOffset(easter, 0)] = "Ostersonntag"
		set[easterOffset(easter, 49)] = "Pfingstsonntag"
		set[easterOffset(easter, 60)] = "Fronleichnam"
		set[dateKey(year, time.November, 1)] = "Allerheiligen"
	}

	return set
}

// Calendar caches holiday sets per (region, year). Queries are O(1)
// after the first access for a given pair. Safe for concurrent use.
type Calendar struct {
	mu    sync.RWMutex
	cache map[cacheKey]map[string]string
}

type cacheKey struct {
	region string
	year   int
}

// NewCalendar creates an empty holiday calendar cache.
func NewCalendar() *Calendar {
	return &Calendar{cache: make(map[cacheKey]map[string]string)}
}

// Year returns the holiday map for (region, year), computing and caching
// it on first access.
func (c *Calendar) Year(region string, year int) map[string]string {
	key := cacheKey{region: region, year: year}

	c.mu.RLock()
	set, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return set
	}

	set = ForYear(region, year)

	c.mu.Lock()
	c.cache[key] = set
	c.mu.Unlock()

	return set
}

// IsHoliday reports whether the date is a statutory holiday in the region.
func (c *Calendar) IsHoliday(region string, date time.Time) bool {
	_, ok := c.Year(region, date.Year())[date.Format(DateFormat)]
	return ok
}

// HolidayName returns the localised holiday name for the date, if any.
func (c *Calendar) HolidayName(region string, date time.Time) (string, bool) {
	name, ok := c.Year(region, date.Year())[date.Format(DateFormat)]
	return name, ok
}

func dateKey(year int, month time.Month, day int) string {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Format(DateFormat)
}

func easterOffset(easter time.Time, days int) string {
	return easter.AddDate(0, 0, days).Format(DateFormat)
}

// Weekday maps a date to the 0=Monday .. 6=Sunday convention used
// throughout scheduling.
func Weekday(date time.Time) int {
	return (int(date.Weekday()) + 6) % 7
}

// IsWeekend reports whether the date falls on Saturday or Sunday.
func IsWeekend(date time.Time) bool {
	wd := Weekday(date)
	return wd == 5 || wd == 6
}

// IsSunday reports whether the date falls on a Sunday.
func IsSunday(date time.Time) bool {
	return Weekday(date) == 6
}
