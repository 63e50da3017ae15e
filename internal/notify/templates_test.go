package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	schedulerepo "github.com/verawork/vera-backend/internal/schedule/repository"
	staffrepo "github.com/verawork/vera-backend/internal/staff/repository"
)

func templateShift() *schedulerepo.Shift {
	location := "Praxis Mitte"
	return &schedulerepo.Shift{
		Date:      time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), // a Monday
		StartTime: "09:00:00",
		EndTime:   "17:00:00",
		Location:  &location,
	}
}

func templateEmployee() *staffrepo.Employee {
	return &staffrepo.Employee{FirstName: "Anna", LastName: "Beispiel"}
}

func TestShiftAssignedMessage(t *testing.T) {
	subject, message := ShiftAssignedMessage(templateShift(), templateEmployee())

	assert.Equal(t, "Neuer Dienst: 10.03.2025", subject)
	assert.Contains(t, message, "Hallo Anna,")
	assert.Contains(t, message, "Datum:  Mo, 10.03.2025")
	assert.Contains(t, message, "Zeit:   09:00 – 17:00 Uhr")
	assert.Contains(t, message, "Ort:    Praxis Mitte")
	assert.Contains(t, message, "VERA Schichtplanner")
}

func TestShiftChangedMessage(t *testing.T) {
	subject, message := ShiftChangedMessage(templateShift(), templateEmployee(), []string{"start_time", "end_time"})

	assert.Equal(t, "Dienständerung: 10.03.2025", subject)
	assert.Contains(t, message, "wurde geändert (start_time, end_time)")
}

func TestShiftReminderMessage(t *testing.T) {
	subject, message := ShiftReminderMessage(templateShift(), templateEmployee())

	assert.Equal(t, "Diensterinnerung: 10.03.2025", subject)
	assert.Contains(t, message, "Erinnerung an Deinen Dienst morgen (Mo, 10.03.2025)")
}

func TestAbsenceDecisionMessage(t *testing.T) {
	absence := &staffrepo.EmployeeAbsence{
		Type:      staffrepo.AbsenceVacation,
		StartDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC),
	}

	subject, message := AbsenceDecisionMessage(absence, templateEmployee(), staffrepo.AbsenceApproved)
	assert.Equal(t, "Abwesenheitsantrag genehmigt: 01.04.2025", subject)
	assert.Contains(t, message, "Dein Abwesenheitsantrag wurde genehmigt:")
	assert.Contains(t, message, "Zeitraum: 01.04.2025 – 05.04.2025")

	subject, message = AbsenceDecisionMessage(absence, templateEmployee(), staffrepo.AbsenceRejected)
	assert.Equal(t, "Abwesenheitsantrag abgelehnt: 01.04.2025", subject)
	assert.Contains(t, message, "abgelehnt")
}
