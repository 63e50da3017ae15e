package service

import (
	"bytes"
	"fmt"
	"time"

	"github.com/verawork/vera-backend/internal/payroll/repository"
	"github.com/xuri/excelize/v2"
)

// GenerateMonthXLSX renders all settlements of one month as a
// spreadsheet and returns the XLSX bytes.
func GenerateMonthXLSX(entries []*repository.PayrollEntry, month time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := fmt.Sprintf("%s %d", monthNames[int(month.Month())], month.Year())
	f.SetSheetName("Sheet1", sheet)

	headers := []string{
		"Mitarbeiter", "Monat", "Status",
		"Gearbeitet (h)", "Übertrag (h)", "Bezahlt (h)",
		"Früh (h)", "Spät (h)", "Nacht (h)", "Wochenende (h)", "Sonntag (h)", "Feiertag (h)",
		"Grundlohn (€)", "Früh (€)", "Spät (€)", "Nacht (€)", "Wochenende (€)", "Sonntag (€)", "Feiertag (€)",
		"Brutto (€)", "YTD (€)", "Restgrenze (€)",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"1E3A5F"}, Pattern: 1},
	})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		f.SetCellStyle(sheet, "A1", last, headerStyle)
	}

	for row, e := range entries {
		name := ""
		if e.EmployeeName != nil {
			name = *e.EmployeeName
		}
		values := []interface{}{
			name, e.Month.Format("2006-01"), e.Status,
			e.ActualHours, e.CarryoverHours, e.PaidHours,
			e.EarlyHours, e.LateHours, e.NightHours,
			e.WeekendHours, e.SundayHours, e.HolidayHours,
			e.BaseWage.InexactFloat64(),
			e.EarlySurcharge.InexactFloat64(),
			e.LateSurcharge.InexactFloat64(),
			e.NightSurcharge.InexactFloat64(),
			e.WeekendSurcharge.InexactFloat64(),
			e.SundaySurcharge.InexactFloat64(),
			e.HolidaySurcharge.InexactFloat64(),
			e.TotalGross.InexactFloat64(),
			e.YTDGross.InexactFloat64(),
			e.AnnualLimitRemaining.InexactFloat64(),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	f.SetColWidth(sheet, "A", "A", 24)
	f.SetColWidth(sheet, "B", "V", 13)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
