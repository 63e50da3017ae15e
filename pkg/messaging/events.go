package messaging

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types
const (
	// Shift lifecycle events
	EventShiftCreated   = "schedule.shift.created"
	EventShiftUpdated   = "schedule.shift.updated"
	EventShiftConfirmed = "schedule.shift.confirmed"
	EventShiftClaimed   = "schedule.shift.claimed"
	EventShiftDeleted   = "schedule.shift.deleted"

	// Recurring rule events
	EventRecurringGenerated   = "schedule.recurring.generated"
	EventRecurringRegenerated = "schedule.recurring.regenerated"
	EventRecurringDeleted     = "schedule.recurring.deleted"

	// Absence events
	EventAbsenceRequested = "staff.absence.requested"
	EventAbsenceApproved  = "staff.absence.approved"
	EventAbsenceRejected  = "staff.absence.rejected"

	// Payroll events
	EventPayrollCalculated = "payroll.entry.calculated"
	EventPayrollApproved   = "payroll.entry.approved"
	EventPayrollPaid       = "payroll.entry.paid"

	// Notification dispatch requests (consumed by the notification dispatcher)
	EventNotifyShiftAssigned   = "notify.shift_assigned"
	EventNotifyShiftChanged    = "notify.shift_changed"
	EventNotifyShiftReminder   = "notify.shift_reminder"
	EventNotifyAbsenceApproved = "notify.absence_approved"
	EventNotifyAbsenceRejected = "notify.absence_rejected"
)

// Exchange and queue names
const (
	ExchangeEvents     = "vera.events"
	QueueNotifications = "vera.notifications"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	TenantID      string          `json:"tenant_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Shift events

// ShiftCreatedEvent is published when a shift is created
type ShiftCreatedEvent struct {
	ShiftID    string  `json:"shift_id"`
	TenantID   string  `json:"tenant_id"`
	EmployeeID *string `json:"employee_id,omitempty"`
	Date       string  `json:"date"`
	StartTime  string  `json:"start_time"`
	EndTime    string  `json:"end_time"`
}

// ShiftUpdatedEvent is published when a shift is updated
type ShiftUpdatedEvent struct {
	ShiftID    string         `json:"shift_id"`
	TenantID   string         `json:"tenant_id"`
	EmployeeID *string        `json:"employee_id,omitempty"`
	Fields     map[string]any `json:"fields"`
}

// ShiftConfirmedEvent is published when a shift is confirmed
type ShiftConfirmedEvent struct {
	ShiftID     string `json:"shift_id"`
	TenantID    string `json:"tenant_id"`
	ConfirmedBy string `json:"confirmed_by"`
}

// ShiftClaimedEvent is published when an open shift is claimed
type ShiftClaimedEvent struct {
	ShiftID    string `json:"shift_id"`
	TenantID   string `json:"tenant_id"`
	EmployeeID string `json:"employee_id"`
}

// ShiftDeletedEvent is published when a shift is deleted
type ShiftDeletedEvent struct {
	ShiftID  string `json:"shift_id"`
	TenantID string `json:"tenant_id"`
}

// Recurring rule events

// RecurringGeneratedEvent is published after rule materialisation
type RecurringGeneratedEvent struct {
	RecurringShiftID string `json:"recurring_shift_id"`
	TenantID         string `json:"tenant_id"`
	GeneratedCount   int    `json:"generated_count"`
	SkippedCount     int    `json:"skipped_count"`
	FromDate         string `json:"from_date"`
	UntilDate        string `json:"until_date"`
}

// Absence events

// AbsenceDecisionEvent is published when an absence is approved or rejected
type AbsenceDecisionEvent struct {
	AbsenceID     string `json:"absence_id"`
	TenantID      string `json:"tenant_id"`
	EmployeeID    string `json:"employee_id"`
	Decision      string `json:"decision"` // approved, rejected
	ShiftsFlipped int    `json:"shifts_flipped"`
	ReviewerID    string `json:"reviewer_id"`
}

// Payroll events

// PayrollEntryEvent is published on payroll entry state changes
type PayrollEntryEvent struct {
	EntryID    string `json:"entry_id"`
	TenantID   string `json:"tenant_id"`
	EmployeeID string `json:"employee_id"`
	Month      string `json:"month"`
	Status     string `json:"status"`
	TotalGross string `json:"total_gross"`
}

// Notification dispatch requests

// NotifyRequest asks the notification dispatcher to deliver a message
// to an employee via their configured channels.
type NotifyRequest struct {
	TenantID   string `json:"tenant_id"`
	EmployeeID string `json:"employee_id"`
	EventType  string `json:"event_type"` // shift_assigned, shift_changed, shift_reminder, absence_approved, absence_rejected
	Subject    string `json:"subject,omitempty"`
	Message    string `json:"message"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), time.Now().Nanosecond()%10000)
}
