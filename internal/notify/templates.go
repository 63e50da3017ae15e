package notify

import (
	"fmt"
	"strings"
	"time"

	schedulerepo "github.com/verawork/vera-backend/internal/schedule/repository"
	staffrepo "github.com/verawork/vera-backend/internal/staff/repository"
)

var weekdayShort = []string{"Mo", "Di", "Mi", "Do", "Fr", "Sa", "So"}

func weekdayLabel(d time.Time) string {
	return weekdayShort[(int(d.Weekday())+6)%7]
}

func clockShort(s string) string {
	if len(s) >= 5 {
		return s[:5]
	}
	return s
}

// ShiftAssignedMessage builds the notification for a newly assigned shift
func ShiftAssignedMessage(shift *schedulerepo.Shift, employee *staffrepo.Employee) (subject, message string) {
	dateLabel := shift.Date.Format("02.01.2006")
	var b strings.Builder
	fmt.Fprintf(&b, "Hallo %s,\n\n", employee.FirstName)
	b.WriteString("Du wurdest für folgenden Dienst eingeplant:\n")
	fmt.Fprintf(&b, "Datum:  %s, %s\n", weekdayLabel(shift.Date), dateLabel)
	fmt.Fprintf(&b, "Zeit:   %s – %s Uhr\n", clockShort(shift.StartTime), clockShort(shift.EndTime))
	if shift.Location != nil && *shift.Location != "" {
		fmt.Fprintf(&b, "Ort:    %s\n", *shift.Location)
	}
	b.WriteString("\nVERA Schichtplanner")
	return "Neuer Dienst: " + dateLabel, b.String()
}

// ShiftChangedMessage builds the notification for an edited shift
func ShiftChangedMessage(shift *schedulerepo.Shift, employee *staffrepo.Employee, changedFields []string) (subject, message string) {
	dateLabel := shift.Date.Format("02.01.2006")
	var b strings.Builder
	fmt.Fprintf(&b, "Hallo %s,\n\n", employee.FirstName)
	fmt.Fprintf(&b, "Dein Dienst am %s, %s wurde geändert (%s):\n",
		weekdayLabel(shift.Date), dateLabel, strings.Join(changedFields, ", "))
	fmt.Fprintf(&b, "Zeit:   %s – %s Uhr\n", clockShort(shift.StartTime), clockShort(shift.EndTime))
	if shift.Location != nil && *shift.Location != "" {
		fmt.Fprintf(&b, "Ort:    %s\n", *shift.Location)
	}
	b.WriteString("\nVERA Schichtplanner")
	return "Dienständerung: " + dateLabel, b.String()
}

// ShiftReminderMessage builds the reminder for tomorrow's shift
func ShiftReminderMessage(shift *schedulerepo.Shift, employee *staffrepo.Employee) (subject, message string) {
	dateLabel := shift.Date.Format("02.01.2006")
	var b strings.Builder
	fmt.Fprintf(&b, "Hallo %s,\n\n", employee.FirstName)
	fmt.Fprintf(&b, "Erinnerung an Deinen Dienst morgen (%s, %s):\n",
		weekdayLabel(shift.Date), dateLabel)
	fmt.Fprintf(&b, "Zeit:   %s – %s Uhr\n", clockShort(shift.StartTime), clockShort(shift.EndTime))
	if shift.Location != nil && *shift.Location != "" {
		fmt.Fprintf(&b, "Ort:    %s\n", *shift.Location)
	}
	b.WriteString("\nVERA Schichtplanner")
	return "Diensterinnerung: " + dateLabel, b.String()
}

// AbsenceDecisionMessage builds the notification for an absence decision
func AbsenceDecisionMessage(absence *staffrepo.EmployeeAbsence, employee *staffrepo.Employee, decision string) (subject, message string) {
	label := "abgelehnt"
	if decision == staffrepo.AbsenceApproved {
		label = "genehmigt"
	}
	startLabel := absence.StartDate.Format("02.01.2006")

	var b strings.Builder
	fmt.Fprintf(&b, "Hallo %s,\n\n", employee.FirstName)
	fmt.Fprintf(&b, "Dein Abwesenheitsantrag wurde %s:\n", label)
	fmt.Fprintf(&b, "Zeitraum: %s – %s\n", startLabel, absence.EndDate.Format("02.01.2006"))
	fmt.Fprintf(&b, "Art:      %s\n", absence.Type)
	if absence.Notes != nil && *absence.Notes != "" {
		fmt.Fprintf(&b, "Notiz:    %s\n", *absence.Notes)
	}
	b.WriteString("\nVERA Schichtplanner")
	return fmt.Sprintf("Abwesenheitsantrag %s: %s", label, startLabel), b.String()
}
