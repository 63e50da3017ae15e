package notify

import (
	"context"
	"encoding/json"
	"time"

	staffrepo "github.com/verawork/vera-backend/internal/staff/repository"
	"github.com/verawork/vera-backend/pkg/config"
	"github.com/verawork/vera-backend/pkg/logger"
)

// Event types the dispatcher knows message templates for
const (
	EventShiftAssigned   = "shift_assigned"
	EventShiftChanged    = "shift_changed"
	EventShiftReminder   = "shift_reminder"
	EventAbsenceApproved = "absence_approved"
	EventAbsenceRejected = "absence_rejected"
)

var berlin = mustLoadLocation("Europe/Berlin")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// prefs is the shape of Employee.notification_prefs. Absent keys
// default to email on, telegram and push off, all events on.
type prefs struct {
	Channels map[string]bool `json:"channels"`
	Events   map[string]bool `json:"events"`
}

func parsePrefs(raw json.RawMessage) prefs {
	p := prefs{}
	if len(raw) > 0 {
		json.Unmarshal(raw, &p)
	}
	return p
}

func (p prefs) channelEnabled(channel string) bool {
	if v, ok := p.Channels[channel]; ok {
		return v
	}
	return channel == ChannelEmail
}

func (p prefs) eventEnabled(eventType string) bool {
	if v, ok := p.Events[eventType]; ok {
		return v
	}
	return true
}

// Dispatcher fans one notification out to the employee's configured
// channels. Channel failures never propagate to the caller; every
// attempt leaves a terminal log row.
type Dispatcher struct {
	repo     *Repository
	email    *emailChannel
	telegram *telegramChannel
	push     *pushChannel
	logger   *logger.Logger
	now      func() time.Time
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(repo *Repository, cfg *config.Config, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		repo:     repo,
		email:    &emailChannel{cfg: &cfg.SMTP},
		telegram: newTelegramChannel(&cfg.Telegram),
		push:     &pushChannel{cfg: &cfg.WebPush, repo: repo},
		logger:   log,
		now:      time.Now,
	}
}

// inQuietHours reports whether the Berlin wall clock falls inside the
// employee's quiet window, with wrap-around when start > end.
func inQuietHours(e *staffrepo.Employee, now time.Time) bool {
	start := clockMinutes(e.QuietHoursStart, 21*60)
	end := clockMinutes(e.QuietHoursEnd, 7*60)

	local := now.In(berlin)
	cur := local.Hour()*60 + local.Minute()

	if start > end {
		return cur >= start || cur <= end
	}
	return cur >= start && cur <= end
}

func clockMinutes(s string, fallback int) int {
	if len(s) < 5 {
		return fallback
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return fallback
	}
	return h*60 + m
}

// Dispatch delivers one message to the employee. Quiet hours suppress
// all channels with a single skipped_quiet_hours record.
func (d *Dispatcher) Dispatch(ctx context.Context, employee *staffrepo.Employee, eventType, subject, message string) {
	p := parsePrefs(employee.NotificationPrefs)
	if !p.eventEnabled(eventType) {
		return
	}

	if inQuietHours(employee, d.now()) {
		d.record(ctx, employee.ID, "all", eventType, subject, message, StatusSkippedQuietHrs, nil, nil)
		return
	}

	if p.channelEnabled(ChannelTelegram) && employee.TelegramChatID != nil {
		err := d.telegram.send(ctx, *employee.TelegramChatID, message)
		d.recordOutcome(ctx, employee.ID, ChannelTelegram, eventType, subject, message, err)
	}

	if p.channelEnabled(ChannelEmail) && employee.Email != nil {
		err := d.email.send(*employee.Email, subject, message)
		d.recordOutcome(ctx, employee.ID, ChannelEmail, eventType, subject, message, err)
	}

	if p.channelEnabled(ChannelPush) {
		err := d.push.send(ctx, employee.ID, subject, message)
		d.recordOutcome(ctx, employee.ID, ChannelPush, eventType, subject, message, err)
	}
}

func (d *Dispatcher) recordOutcome(ctx context.Context, employeeID, channel, eventType, subject, message string, sendErr error) {
	if sendErr != nil {
		msg := sendErr.Error()
		if len(msg) > 200 {
			msg = msg[:200]
		}
		d.record(ctx, employeeID, channel, eventType, subject, message, StatusFailed, &msg, nil)
		return
	}
	now := d.now().UTC()
	d.record(ctx, employeeID, channel, eventType, subject, message, StatusSent, nil, &now)
}

func (d *Dispatcher) record(ctx context.Context, employeeID, channel, eventType, subject, message, status string, errText *string, sentAt *time.Time) {
	var subj *string
	if subject != "" {
		subj = &subject
	}
	log := &NotificationLog{
		EmployeeID: employeeID,
		Channel:    channel,
		EventType:  eventType,
		Subject:    subj,
		Body:       message,
		Status:     status,
		Error:      errText,
		SentAt:     sentAt,
	}
	if err := d.repo.RecordLog(ctx, log); err != nil {
		d.logger.Warn().Err(err).
			Str("employee_id", employeeID).
			Str("channel", channel).
			Msg("Failed to record notification log")
	}
}
