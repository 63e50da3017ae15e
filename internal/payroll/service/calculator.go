package service

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	schedulerepo "github.com/verawork/vera-backend/internal/schedule/repository"
)

// Surcharge categories
const (
	CategoryEarly   = "early"
	CategoryLate    = "late"
	CategoryNight   = "night"
	CategoryWeekend = "weekend"
	CategorySunday  = "sunday"
	CategoryHoliday = "holiday"
)

// Surcharge rates as fractions of base pay (§3b EStG figures)
var surchargeRates = map[string]decimal.Decimal{
	CategoryEarly:   decimal.NewFromFloat(0.125),
	CategoryLate:    decimal.NewFromFloat(0.125),
	CategoryNight:   decimal.NewFromFloat(0.25),
	CategoryWeekend: decimal.NewFromFloat(0.25),
	CategorySunday:  decimal.NewFromFloat(0.50),
	CategoryHoliday: decimal.NewFromFloat(1.25),
}

// ShiftSurcharges carries the per-category surcharge hours and
// monetary amounts accumulated over one or more shifts.
type ShiftSurcharges struct {
	Hours   map[string]float64
	Amounts map[string]decimal.Decimal
}

func newShiftSurcharges() *ShiftSurcharges {
	return &ShiftSurcharges{
		Hours:   map[string]float64{},
		Amounts: map[string]decimal.Decimal{},
	}
}

func (s *ShiftSurcharges) add(category string, hours float64, hourlyRate decimal.Decimal) {
	s.Hours[category] += hours
	amount := decimal.NewFromFloat(hours).Mul(hourlyRate).Mul(surchargeRates[category])
	s.Amounts[category] = s.Amounts[category].Add(amount)
}

func (s *ShiftSurcharges) merge(other *ShiftSurcharges) {
	for k, v := range other.Hours {
		s.Hours[k] += v
	}
	for k, v := range other.Amounts {
		s.Amounts[k] = s.Amounts[k].Add(v)
	}
}

// Total sums all surcharge amounts
func (s *ShiftSurcharges) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range s.Amounts {
		total = total.Add(v)
	}
	return total
}

// CalcSurcharges attributes surcharges for one shift. At most one
// day-category surcharge (holiday before sunday before weekend)
// applies to the whole net-hours block; time-of-day surcharges walk
// the shift in one-hour slices anchored at the start time and stack
// with the day category.
func CalcSurcharges(shift *schedulerepo.Shift, hourlyRate decimal.Decimal, isHoliday func(time.Time) bool) *ShiftSurcharges {
	result := newShiftSurcharges()

	netHours := shift.NetHours()
	switch {
	case isHoliday(shift.Date):
		result.add(CategoryHoliday, netHours, hourlyRate)
	case shift.Date.Weekday() == time.Sunday:
		result.add(CategorySunday, netHours, hourlyRate)
	case shift.Date.Weekday() == time.Saturday:
		result.add(CategoryWeekend, netHours, hourlyRate)
	}

	start, err1 := schedulerepo.ParseClock(shift.StartTime)
	end, err2 := schedulerepo.ParseClock(shift.EndTime)
	if err1 != nil || err2 != nil {
		return result
	}
	if end <= start {
		end += 24 * 60
	}

	for current := start; current < end; {
		next := current + 60
		if next > end {
			next = end
		}
		h := (current / 60) % 24
		fraction := float64(next-current) / 60

		if h < 6 {
			result.add(CategoryEarly, fraction, hourlyRate)
		}
		if h >= 20 {
			result.add(CategoryLate, fraction, hourlyRate)
		}
		if h >= 23 || h < 6 {
			result.add(CategoryNight, fraction, hourlyRate)
		}
		current = next
	}

	return result
}

// round2 rounds hours to two decimals for persistence
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
