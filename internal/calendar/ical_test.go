package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verawork/vera-backend/internal/schedule/repository"
)

func strptr(s string) *string { return &s }

func feedShift(id, day, start, end, status string) *repository.Shift {
	d, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return &repository.Shift{
		ID:        id,
		Date:      d,
		StartTime: start,
		EndTime:   end,
		Status:    status,
	}
}

func TestEscapeText(t *testing.T) {
	assert.Equal(t, `Praxis\, 1. OG\; links`, escapeText("Praxis, 1. OG; links"))
	assert.Equal(t, `a\\b`, escapeText(`a\b`))
	assert.Equal(t, `Zeile 1\nZeile 2`, escapeText("Zeile 1\nZeile 2"))
}

func TestFoldLine(t *testing.T) {
	short := "SUMMARY:Dienst"
	assert.Equal(t, short, foldLine(short))

	long := "DESCRIPTION:" + strings.Repeat("x", 100)
	folded := foldLine(long)
	parts := strings.Split(folded, "\r\n ")
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], 75)
}

func TestBuildFeed_EventShape(t *testing.T) {
	shift := feedShift("abc-123", "2025-03-10", "09:00:00", "17:00:00", repository.ShiftConfirmed)
	shift.TemplateName = strptr("Frühdienst")
	shift.EmployeeName = strptr("Anna Beispiel")
	shift.BreakMinutes = 30

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	feed := BuildFeed([]*repository.Shift{shift}, "VERA – Anna Beispiel", now)

	assert.True(t, strings.HasPrefix(feed, "BEGIN:VCALENDAR\r\n"))
	assert.True(t, strings.HasSuffix(feed, "END:VCALENDAR\r\n"))
	assert.Contains(t, feed, "PRODID:-//VERA//Schichtkalender//DE\r\n")
	assert.Contains(t, feed, "X-WR-TIMEZONE:Europe/Berlin\r\n")

	assert.Contains(t, feed, "UID:vera-shift-abc-123@vera\r\n")
	assert.Contains(t, feed, "DTSTAMP:20250301T120000Z\r\n")
	assert.Contains(t, feed, "DTSTART;TZID=Europe/Berlin:20250310T090000\r\n")
	assert.Contains(t, feed, "DTEND;TZID=Europe/Berlin:20250310T170000\r\n")
	assert.Contains(t, feed, "SUMMARY:Frühdienst\r\n")
	assert.Contains(t, feed, "STATUS:CONFIRMED\r\n")
	assert.Contains(t, feed, `Mitarbeiter: Anna Beispiel\nStatus: Bestätigt\nPause: 30 min`)
}

func TestBuildFeed_PlannedIsTentativeWithDefaultSummary(t *testing.T) {
	shift := feedShift("s1", "2025-03-10", "09:00:00", "12:00:00", repository.ShiftPlanned)

	feed := BuildFeed([]*repository.Shift{shift}, "VERA", time.Now())

	assert.Contains(t, feed, "SUMMARY:Dienst\r\n")
	assert.Contains(t, feed, "STATUS:TENTATIVE\r\n")
}

func TestBuildFeed_MidnightCrossingAdvancesEnd(t *testing.T) {
	shift := feedShift("s2", "2025-03-10", "22:00:00", "02:00:00", repository.ShiftConfirmed)

	feed := BuildFeed([]*repository.Shift{shift}, "VERA", time.Now())

	assert.Contains(t, feed, "DTSTART;TZID=Europe/Berlin:20250310T220000\r\n")
	assert.Contains(t, feed, "DTEND;TZID=Europe/Berlin:20250311T020000\r\n")
}

func TestBuildFeed_SkipsCancelledShifts(t *testing.T) {
	shifts := []*repository.Shift{
		feedShift("keep", "2025-03-10", "09:00:00", "12:00:00", repository.ShiftConfirmed),
		feedShift("gone", "2025-03-11", "09:00:00", "12:00:00", repository.ShiftCancelled),
		feedShift("gone2", "2025-03-12", "09:00:00", "12:00:00", repository.ShiftCancelledAbsence),
	}

	feed := BuildFeed(shifts, "VERA", time.Now())

	assert.Contains(t, feed, "UID:vera-shift-keep@vera")
	assert.NotContains(t, feed, "UID:vera-shift-gone@vera")
	assert.NotContains(t, feed, "UID:vera-shift-gone2@vera")
	assert.Equal(t, 1, strings.Count(feed, "BEGIN:VEVENT"))
}
