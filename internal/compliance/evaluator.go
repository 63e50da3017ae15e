package compliance

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/verawork/vera-backend/internal/schedule/repository"
)

// Statutory limits, 2025 values
const (
	MinRestHours        = 11
	BreakAfter6hMinutes = 30
	BreakAfter9hMinutes = 45
)

// Minijob ceilings, 2025 values
var (
	MinijobMonthlyLimit = decimal.NewFromFloat(556.00)
	MinijobAnnualLimit  = decimal.NewFromFloat(6672.00)
)

// Result carries the outcome of one shift evaluation. Violations and
// warnings are disjoint; a shift is ok when no violation was recorded.
type Result struct {
	Violations []string `json:"violations"`
	Warnings   []string `json:"warnings"`
}

// IsOK reports whether the shift passed all checks
func (r *Result) IsOK() bool {
	return len(r.Violations) == 0
}

// Flags reduces the result to the three booleans persisted on the
// shift, keyed by category substring.
func (r *Result) Flags() (restOK, breakOK, minijobOK bool) {
	restOK, breakOK, minijobOK = true, true, true
	for _, v := range r.Violations {
		if strings.Contains(v, "Ruhezeit") {
			restOK = false
		}
		if strings.Contains(v, "Pause") {
			breakOK = false
		}
		if strings.Contains(v, "Minijob") {
			minijobOK = false
		}
	}
	return restOK, breakOK, minijobOK
}

// Input is everything one evaluation needs, already loaded. PrevShift
// is the employee's last non-cancelled shift strictly before Date, or
// nil. MonthlyGross and AnnualGross come from committed payroll
// entries and matter only for minijob contracts.
type Input struct {
	Date         time.Time
	StartTime    string
	EndTime      string
	BreakMinutes int
	ContractType string
	PrevShift    *repository.Shift
	MonthlyGross decimal.Decimal
	AnnualGross  decimal.Decimal
	HolidayName  string
}

// Evaluate runs the rest-period, break, and minijob checks for one
// shift and appends an informational warning on public holidays.
func Evaluate(in Input) *Result {
	result := &Result{}

	checkRestPeriod(in, result)
	checkBreak(in, result)
	if in.ContractType == "minijob" {
		checkMinijobLimit(in, result)
	}
	if in.HolidayName != "" {
		result.Warnings = append(result.Warnings, "Feiertag: "+in.HolidayName)
	}

	return result
}

// checkRestPeriod enforces the 11h minimum between the end of the
// previous shift and the start of this one (ArbZG paragraph 5).
func checkRestPeriod(in Input, result *Result) {
	prev := in.PrevShift
	if prev == nil {
		return
	}

	prevStart, err1 := repository.ParseClock(prev.StartTime)
	prevEnd, err2 := repository.ParseClock(prev.EndTime)
	currStart, err3 := repository.ParseClock(in.StartTime)
	if err1 != nil || err2 != nil || err3 != nil {
		return
	}

	prevEndAt := prev.Date.Add(time.Duration(prevEnd) * time.Minute)
	if prevEnd < prevStart {
		prevEndAt = prevEndAt.Add(24 * time.Hour)
	}
	currStartAt := in.Date.Add(time.Duration(currStart) * time.Minute)

	restHours := currStartAt.Sub(prevEndAt).Hours()
	if restHours < MinRestHours {
		result.Violations = append(result.Violations,
			fmt.Sprintf("Ruhezeit unterschritten: %.1fh (min. %dh)", restHours, MinRestHours))
	}
}

// checkBreak enforces the statutory break minimums by gross working
// time (ArbZG paragraph 4). Break minutes do not reduce the working
// time considered here.
func checkBreak(in Input, result *Result) {
	start, err1 := repository.ParseClock(in.StartTime)
	end, err2 := repository.ParseClock(in.EndTime)
	if err1 != nil || err2 != nil {
		return
	}
	if end < start {
		end += 24 * 60
	}
	workHours := float64(end-start) / 60

	if workHours > 9 && in.BreakMinutes < BreakAfter9hMinutes {
		result.Violations = append(result.Violations,
			fmt.Sprintf("Nach 9h Arbeitszeit: mind. %d Min Pause erforderlich", BreakAfter9hMinutes))
	} else if workHours > 6 && in.BreakMinutes < BreakAfter6hMinutes {
		result.Violations = append(result.Violations,
			fmt.Sprintf("Nach 6h Arbeitszeit: mind. %d Min Pause erforderlich", BreakAfter6hMinutes))
	}
}

// checkMinijobLimit compares committed payroll gross against the
// monthly and annual minijob ceilings. The monthly and near-annual
// breaches are warnings; only exceeding the annual ceiling is a
// violation.
func checkMinijobLimit(in Input, result *Result) {
	if in.MonthlyGross.GreaterThan(MinijobMonthlyLimit) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Minijob-Monatsgrenze überschritten: %s€ (Limit: %s€)",
				in.MonthlyGross.StringFixed(2), MinijobMonthlyLimit.StringFixed(2)))
	}

	nearLimit := MinijobAnnualLimit.Mul(decimal.NewFromFloat(0.95))
	if in.AnnualGross.GreaterThan(nearLimit) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Minijob-Jahresgrenze fast erreicht: %s€ von %s€",
				in.AnnualGross.StringFixed(2), MinijobAnnualLimit.StringFixed(2)))
	}
	if in.AnnualGross.GreaterThan(MinijobAnnualLimit) {
		result.Violations = append(result.Violations,
			fmt.Sprintf("Minijob-Jahresgrenze überschritten: %s€ (Limit: %s€)",
				in.AnnualGross.StringFixed(2), MinijobAnnualLimit.StringFixed(2)))
	}
}
