package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/verawork/vera-backend/internal/schedule/repository"
)

var statusLabels = map[string]string{
	repository.ShiftPlanned:          "Geplant",
	repository.ShiftConfirmed:        "Bestätigt",
	repository.ShiftCompleted:        "Abgeschlossen",
	repository.ShiftCancelled:        "Abgesagt",
	repository.ShiftCancelledAbsence: "Abgesagt (Abwesenheit)",
}

// berlin is the application-default display zone for feed times
var berlin = mustLoadLocation("Europe/Berlin")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// escapeText escapes commas, semicolons, backslashes, and newlines per
// RFC 5545 section 3.3.11.
func escapeText(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, ";", `\;`)
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}

// foldLine folds content lines longer than 75 octets with CRLF plus
// space continuation.
func foldLine(line string) string {
	if len(line) <= 75 {
		return line
	}
	var b strings.Builder
	for len(line) > 75 {
		b.WriteString(line[:75])
		b.WriteString("\r\n ")
		line = line[75:]
	}
	b.WriteString(line)
	return b.String()
}

func writeLine(b *strings.Builder, line string) {
	b.WriteString(foldLine(line))
	b.WriteString("\r\n")
}

// eventTimes resolves a shift's wall-clock window in Europe/Berlin,
// advancing the end by one day for midnight-crossing shifts.
func eventTimes(s *repository.Shift) (time.Time, time.Time, error) {
	startMin, err := repository.ParseClock(s.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endMin, err := repository.ParseClock(s.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	d := s.Date
	start := time.Date(d.Year(), d.Month(), d.Day(), startMin/60, startMin%60, 0, 0, berlin)
	end := time.Date(d.Year(), d.Month(), d.Day(), endMin/60, endMin%60, 0, 0, berlin)
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end, nil
}

// BuildFeed renders the shifts as a VCALENDAR. Cancelled shifts are
// expected to be filtered out by the caller's query.
func BuildFeed(shifts []*repository.Shift, calName string, now time.Time) string {
	var b strings.Builder
	stamp := now.UTC().Format("20060102T150405Z")

	writeLine(&b, "BEGIN:VCALENDAR")
	writeLine(&b, "PRODID:-//VERA//Schichtkalender//DE")
	writeLine(&b, "VERSION:2.0")
	writeLine(&b, "CALSCALE:GREGORIAN")
	writeLine(&b, "METHOD:PUBLISH")
	writeLine(&b, "X-WR-CALNAME:"+escapeText(calName))
	writeLine(&b, "X-WR-TIMEZONE:Europe/Berlin")
	writeLine(&b, "REFRESH-INTERVAL;VALUE=DURATION:PT1H")
	writeLine(&b, "X-PUBLISHED-TTL:PT1H")

	for _, s := range shifts {
		if s.Status == repository.ShiftCancelled || s.Status == repository.ShiftCancelledAbsence {
			continue
		}
		start, end, err := eventTimes(s)
		if err != nil {
			continue
		}

		writeLine(&b, "BEGIN:VEVENT")
		writeLine(&b, fmt.Sprintf("UID:vera-shift-%s@vera", s.ID))
		writeLine(&b, "DTSTAMP:"+stamp)
		writeLine(&b, "DTSTART;TZID=Europe/Berlin:"+start.Format("20060102T150405"))
		writeLine(&b, "DTEND;TZID=Europe/Berlin:"+end.Format("20060102T150405"))

		summary := "Dienst"
		if s.TemplateName != nil && *s.TemplateName != "" {
			summary = *s.TemplateName
		}
		writeLine(&b, "SUMMARY:"+escapeText(summary))

		if s.Location != nil && *s.Location != "" {
			writeLine(&b, "LOCATION:"+escapeText(*s.Location))
		}

		var lines []string
		if s.EmployeeName != nil && *s.EmployeeName != "" {
			lines = append(lines, "Mitarbeiter: "+*s.EmployeeName)
		}
		label := statusLabels[s.Status]
		if label == "" {
			label = s.Status
		}
		lines = append(lines, "Status: "+label)
		if s.BreakMinutes > 0 {
			lines = append(lines, fmt.Sprintf("Pause: %d min", s.BreakMinutes))
		}
		if s.ConfirmationNote != nil && *s.ConfirmationNote != "" {
			lines = append(lines, "Hinweis: "+*s.ConfirmationNote)
		}
		if s.Notes != nil && *s.Notes != "" {
			lines = append(lines, "Notiz: "+*s.Notes)
		}
		writeLine(&b, "DESCRIPTION:"+escapeText(strings.Join(lines, "\n")))

		status := "TENTATIVE"
		if s.Status == repository.ShiftConfirmed || s.Status == repository.ShiftCompleted {
			status = "CONFIRMED"
		}
		writeLine(&b, "STATUS:"+status)
		writeLine(&b, "LAST-MODIFIED:"+stamp)
		writeLine(&b, "END:VEVENT")
	}

	writeLine(&b, "END:VCALENDAR")
	return b.String()
}
