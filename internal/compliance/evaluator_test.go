package compliance_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verawork/vera-backend/internal/compliance"
	"github.com/verawork/vera-backend/internal/schedule/repository"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestEvaluate_CleanShift(t *testing.T) {
	result := compliance.Evaluate(compliance.Input{
		Date:         date("2025-03-10"),
		StartTime:    "09:00:00",
		EndTime:      "14:00:00",
		BreakMinutes: 0,
		ContractType: "part_time",
	})

	assert.True(t, result.IsOK())
	assert.Empty(t, result.Violations)
	assert.Empty(t, result.Warnings)

	restOK, breakOK, minijobOK := result.Flags()
	assert.True(t, restOK)
	assert.True(t, breakOK)
	assert.True(t, minijobOK)
}

func TestEvaluate_RestPeriodViolation(t *testing.T) {
	prev := &repository.Shift{
		Date:      date("2025-03-09"),
		StartTime: "14:00:00",
		EndTime:   "22:00:00",
	}

	result := compliance.Evaluate(compliance.Input{
		Date:      date("2025-03-10"),
		StartTime: "06:00:00",
		EndTime:   "12:00:00",
		PrevShift: prev,
	})

	require.Len(t, result.Violations, 1)
	assert.Equal(t, "Ruhezeit unterschritten: 8.0h (min. 11h)", result.Violations[0])

	restOK, breakOK, minijobOK := result.Flags()
	assert.False(t, restOK)
	assert.True(t, breakOK)
	assert.True(t, minijobOK)
}

func TestEvaluate_RestPeriodExactlyElevenHours(t *testing.T) {
	prev := &repository.Shift{
		Date:      date("2025-03-09"),
		StartTime: "12:00:00",
		EndTime:   "20:00:00",
	}

	result := compliance.Evaluate(compliance.Input{
		Date:      date("2025-03-10"),
		StartTime: "07:00:00",
		EndTime:   "15:00:00",
		PrevShift: prev,
	})

	assert.True(t, result.IsOK())
}

func TestEvaluate_RestPeriodMidnightWrap(t *testing.T) {
	// Previous shift 22:00-02:00 ends on the following day; rest until
	// an 08:00 start the same day is only six hours.
	prev := &repository.Shift{
		Date:      date("2025-03-09"),
		StartTime: "22:00:00",
		EndTime:   "02:00:00",
	}

	result := compliance.Evaluate(compliance.Input{
		Date:      date("2025-03-10"),
		StartTime: "08:00:00",
		EndTime:   "14:00:00",
		PrevShift: prev,
	})

	require.Len(t, result.Violations, 1)
	assert.Contains(t, result.Violations[0], "Ruhezeit unterschritten: 6.0h")
}

func TestEvaluate_BreakRules(t *testing.T) {
	tests := []struct {
		name         string
		start, end   string
		breakMinutes int
		violation    string
	}{
		{"six hours exactly needs no break", "08:00:00", "14:00:00", 0, ""},
		{"over six hours without break", "08:00:00", "14:30:00", 0, "Nach 6h Arbeitszeit: mind. 30 Min Pause erforderlich"},
		{"over six hours with 30min break", "08:00:00", "14:30:00", 30, ""},
		{"over nine hours with only 30min", "08:00:00", "17:30:00", 30, "Nach 9h Arbeitszeit: mind. 45 Min Pause erforderlich"},
		{"over nine hours with 45min break", "08:00:00", "17:30:00", 45, ""},
		{"midnight wrap counts full duration", "20:00:00", "04:00:00", 0, "Nach 6h Arbeitszeit: mind. 30 Min Pause erforderlich"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := compliance.Evaluate(compliance.Input{
				Date:         date("2025-03-10"),
				StartTime:    tt.start,
				EndTime:      tt.end,
				BreakMinutes: tt.breakMinutes,
			})

			if tt.violation == "" {
				assert.Empty(t, result.Violations)
			} else {
				require.Len(t, result.Violations, 1)
				assert.Equal(t, tt.violation, result.Violations[0])
			}
		})
	}
}

func TestEvaluate_MinijobMonthlyWarning(t *testing.T) {
	result := compliance.Evaluate(compliance.Input{
		Date:         date("2025-03-10"),
		StartTime:    "09:00:00",
		EndTime:      "13:00:00",
		ContractType: "minijob",
		MonthlyGross: decimal.NewFromFloat(600.00),
	})

	// Monthly breach warns but does not flag the shift.
	assert.True(t, result.IsOK())
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "Minijob-Monatsgrenze überschritten: 600.00€")
}

func TestEvaluate_MinijobAnnualLimit(t *testing.T) {
	result := compliance.Evaluate(compliance.Input{
		Date:         date("2025-11-10"),
		StartTime:    "09:00:00",
		EndTime:      "13:00:00",
		ContractType: "minijob",
		AnnualGross:  decimal.NewFromFloat(6700.00),
	})

	require.Len(t, result.Violations, 1)
	assert.Contains(t, result.Violations[0], "Minijob-Jahresgrenze überschritten: 6700.00€")

	// 95% of the annual ceiling also trips the near-limit warning.
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "Minijob-Jahresgrenze fast erreicht")

	_, _, minijobOK := result.Flags()
	assert.False(t, minijobOK)
}

func TestEvaluate_MinijobChecksSkippedForOtherContracts(t *testing.T) {
	result := compliance.Evaluate(compliance.Input{
		Date:         date("2025-11-10"),
		StartTime:    "09:00:00",
		EndTime:      "13:00:00",
		ContractType: "full_time",
		AnnualGross:  decimal.NewFromFloat(50000.00),
	})

	assert.True(t, result.IsOK())
	assert.Empty(t, result.Warnings)
}

func TestEvaluate_HolidayWarning(t *testing.T) {
	result := compliance.Evaluate(compliance.Input{
		Date:        date("2025-12-25"),
		StartTime:   "09:00:00",
		EndTime:     "13:00:00",
		HolidayName: "1. Weihnachtstag",
	})

	assert.True(t, result.IsOK())
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "Feiertag: 1. Weihnachtstag", result.Warnings[0])
}
