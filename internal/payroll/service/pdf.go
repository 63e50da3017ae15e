package service

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/verawork/vera-backend/internal/payroll/repository"
	staffrepo "github.com/verawork/vera-backend/internal/staff/repository"
)

var contractLabels = map[string]string{
	"minijob":   "Minijob",
	"part_time": "Teilzeit",
	"full_time": "Vollzeit",
}

var statusLabels = map[string]string{
	repository.StatusDraft:    "Entwurf",
	repository.StatusApproved: "Genehmigt",
	repository.StatusPaid:     "Bezahlt",
}

var surchargeLabels = map[string]string{
	CategoryEarly:   "Frühzuschlag (00-06 Uhr, 12,5 %)",
	CategoryLate:    "Spätzuschlag (20-24 Uhr, 12,5 %)",
	CategoryNight:   "Nachtzuschlag (23-06 Uhr, 25 %)",
	CategoryWeekend: "Wochenend-Zuschlag Sa (25 %)",
	CategorySunday:  "Sonntagszuschlag (50 %)",
	CategoryHoliday: "Feiertagszuschlag (125 %)",
}

var monthNames = []string{
	"", "Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// surchargeOrder fixes the category printing order on payslips
var surchargeOrder = []string{
	CategoryEarly, CategoryLate, CategoryNight,
	CategoryWeekend, CategorySunday, CategoryHoliday,
}

func fmtEuro(d decimal.Decimal) string {
	s := d.StringFixed(2)
	s = strings.ReplaceAll(s, ".", ",")
	return s + " €"
}

func fmtHours(v float64) string {
	if v == 0 {
		return "–"
	}
	return fmt.Sprintf("%.2f h", v)
}

// GeneratePayslipPDF renders one settlement as an A4 payslip and
// returns the PDF bytes.
func GeneratePayslipPDF(entry *repository.PayrollEntry, employee *staffrepo.Employee, tenantName string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	usable := pageW - 40

	// Header bar
	pdf.SetFillColor(30, 58, 95)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(usable*0.6, 10, tr("VERA – Lohnabrechnung"), "", 0, "L", true, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(usable*0.4, 10, tr(tenantName), "", 1, "R", true, 0, "")
	pdf.Ln(4)

	monthLabel := fmt.Sprintf("%s %d", monthNames[int(entry.Month.Month())], entry.Month.Year())
	contractLabel := contractLabels[employee.ContractType]
	if contractLabel == "" {
		contractLabel = employee.ContractType
	}
	statusLabel := statusLabels[entry.Status]
	if statusLabel == "" {
		statusLabel = entry.Status
	}

	// Employee and month block
	pdf.SetTextColor(0, 0, 0)
	infoRow := func(k1, v1, k2, v2 string) {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(usable*0.175, 6, tr(k1), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(usable*0.325, 6, tr(v1), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(usable*0.175, 6, tr(k2), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(usable*0.325, 6, tr(v2), "", 1, "L", false, 0, "")
	}
	infoRow("Mitarbeiter", employee.FullName(), "Monat", monthLabel)
	infoRow("Vertragsart", contractLabel, "Stundenlohn", fmtEuro(employee.HourlyRate))
	infoRow("Status", statusLabel, "", "")
	pdf.Ln(4)

	heading := func(text string) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(30, 58, 95)
		pdf.CellFormat(usable, 7, tr(text), "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
	tableRow := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 9)
		pdf.CellFormat(usable*0.7, 6, tr(label), "1", 0, "L", false, 0, "")
		pdf.CellFormat(usable*0.3, 6, tr(value), "1", 1, "R", false, 0, "")
	}

	// Hours table
	heading("Stunden")
	if entry.PlannedHours != nil {
		tableRow("Geplant", fmtHours(*entry.PlannedHours), false)
	}
	tableRow("Gearbeitet", fmtHours(entry.ActualHours), false)
	tableRow("Übertrag", fmtHours(entry.CarryoverHours), false)
	tableRow("Bezahlt", fmtHours(entry.PaidHours), false)

	surchargeHours := map[string]float64{
		CategoryEarly:   entry.EarlyHours,
		CategoryLate:    entry.LateHours,
		CategoryNight:   entry.NightHours,
		CategoryWeekend: entry.WeekendHours,
		CategorySunday:  entry.SundayHours,
		CategoryHoliday: entry.HolidayHours,
	}
	for _, cat := range surchargeOrder {
		if surchargeHours[cat] > 0 {
			tableRow(surchargeLabels[cat], fmtHours(surchargeHours[cat]), false)
		}
	}
	pdf.Ln(4)

	// Wage table
	heading("Vergütung")
	if entry.BaseWage.IsPositive() {
		tableRow("Grundlohn", fmtEuro(entry.BaseWage), false)
	}
	surchargeAmounts := map[string]decimal.Decimal{
		CategoryEarly:   entry.EarlySurcharge,
		CategoryLate:    entry.LateSurcharge,
		CategoryNight:   entry.NightSurcharge,
		CategoryWeekend: entry.WeekendSurcharge,
		CategorySunday:  entry.SundaySurcharge,
		CategoryHoliday: entry.HolidaySurcharge,
	}
	for _, cat := range surchargeOrder {
		if surchargeAmounts[cat].IsPositive() {
			tableRow(surchargeLabels[cat], fmtEuro(surchargeAmounts[cat]), false)
		}
	}
	tableRow("Brutto gesamt", fmtEuro(entry.TotalGross), true)

	// Minijob annual ceiling block
	if employee.ContractType == staffrepo.ContractMinijob {
		pdf.Ln(4)
		heading("Minijob-Jahresgrenze")

		limit := decimal.NewFromFloat(6672.00)
		if employee.AnnualSalaryLimit != nil {
			limit = *employee.AnnualSalaryLimit
		}
		pct := 0.0
		if limit.IsPositive() {
			ratio, _ := entry.YTDGross.Div(limit).Float64()
			pct = ratio * 100
			if pct > 100 {
				pct = 100
			}
		}

		tableRow("YTD-Brutto (kumuliert)", fmtEuro(entry.YTDGross), false)
		tableRow("Jahresgrenze", fmtEuro(limit), false)
		tableRow("Verbleibend", fmtEuro(entry.AnnualLimitRemaining), false)
		tableRow("Ausschöpfung", fmt.Sprintf("%.1f %%", pct), false)

		if pct >= 95 {
			pdf.SetFont("Helvetica", "B", 8)
			pdf.SetTextColor(220, 38, 38)
			pdf.CellFormat(usable, 6, tr("Jahresgrenze nahezu ausgeschöpft!"), "", 1, "L", false, 0, "")
			pdf.SetTextColor(0, 0, 0)
		}
	}

	if entry.Notes != nil && *entry.Notes != "" {
		pdf.Ln(4)
		heading("Notizen")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(usable, 5, tr(*entry.Notes), "", "L", false)
	}

	// Footer
	pdf.Ln(6)
	pdf.SetDrawColor(107, 114, 128)
	x, y := pdf.GetXY()
	pdf.Line(x, y, x+usable, y)
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(107, 114, 128)
	footer := fmt.Sprintf("Erstellt am %s · VERA Schichtplanner · Status: %s",
		time.Now().UTC().Format("02.01.2006"), statusLabel)
	pdf.CellFormat(usable, 5, tr(footer), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
