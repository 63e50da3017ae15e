package notify

import (
	"context"

	schedulerepo "github.com/verawork/vera-backend/internal/schedule/repository"
	staffrepo "github.com/verawork/vera-backend/internal/staff/repository"
	"github.com/verawork/vera-backend/pkg/logger"
	"github.com/verawork/vera-backend/pkg/messaging"
	"github.com/verawork/vera-backend/pkg/tenant"
)

// Consumer translates domain events into notification dispatches. It
// listens on the shared events exchange; dispatch failures never nack
// the message since every channel attempt is logged terminally.
type Consumer struct {
	dispatcher *Dispatcher
	shifts     *schedulerepo.ShiftRepository
	employees  *staffrepo.EmployeeRepository
	absences   *staffrepo.AbsenceRepository
	logger     *logger.Logger
}

// NewConsumer creates a new notification consumer
func NewConsumer(
	dispatcher *Dispatcher,
	shifts *schedulerepo.ShiftRepository,
	employees *staffrepo.EmployeeRepository,
	absences *staffrepo.AbsenceRepository,
	log *logger.Logger,
) *Consumer {
	return &Consumer{
		dispatcher: dispatcher,
		shifts:     shifts,
		employees:  employees,
		absences:   absences,
		logger:     log,
	}
}

// Register wires the consumer's handlers and bindings
func (c *Consumer) Register(consumer *messaging.Consumer) error {
	if err := consumer.Subscribe(messaging.ExchangeEvents, "schedule.shift.*"); err != nil {
		return err
	}
	if err := consumer.Subscribe(messaging.ExchangeEvents, "staff.absence.*"); err != nil {
		return err
	}
	if err := consumer.Subscribe(messaging.ExchangeEvents, "notify.*"); err != nil {
		return err
	}

	consumer.RegisterHandler(messaging.EventShiftCreated, c.handleShiftAssigned)
	consumer.RegisterHandler(messaging.EventShiftClaimed, c.handleShiftClaimed)
	consumer.RegisterHandler(messaging.EventShiftUpdated, c.handleShiftChanged)
	consumer.RegisterHandler(messaging.EventAbsenceApproved, c.handleAbsenceDecision)
	consumer.RegisterHandler(messaging.EventAbsenceRejected, c.handleAbsenceDecision)
	consumer.RegisterHandler(messaging.EventNotifyShiftReminder, c.handleNotifyRequest)
	return nil
}

func (c *Consumer) handleShiftAssigned(ctx context.Context, event *messaging.Event) error {
	var payload messaging.ShiftCreatedEvent
	if err := event.UnmarshalData(&payload); err != nil {
		return err
	}
	if payload.EmployeeID == nil {
		return nil
	}

	ctx = tenant.WithTenantID(ctx, payload.TenantID)
	shift, employee, err := c.load(ctx, payload.ShiftID, *payload.EmployeeID)
	if err != nil {
		c.logger.Warn().Err(err).Str("shift_id", payload.ShiftID).Msg("Notification skipped")
		return nil
	}

	subject, message := ShiftAssignedMessage(shift, employee)
	c.dispatcher.Dispatch(ctx, employee, EventShiftAssigned, subject, message)
	return nil
}

func (c *Consumer) handleShiftClaimed(ctx context.Context, event *messaging.Event) error {
	var payload messaging.ShiftClaimedEvent
	if err := event.UnmarshalData(&payload); err != nil {
		return err
	}

	ctx = tenant.WithTenantID(ctx, payload.TenantID)
	shift, employee, err := c.load(ctx, payload.ShiftID, payload.EmployeeID)
	if err != nil {
		c.logger.Warn().Err(err).Str("shift_id", payload.ShiftID).Msg("Notification skipped")
		return nil
	}

	subject, message := ShiftAssignedMessage(shift, employee)
	c.dispatcher.Dispatch(ctx, employee, EventShiftAssigned, subject, message)
	return nil
}

func (c *Consumer) handleShiftChanged(ctx context.Context, event *messaging.Event) error {
	var payload messaging.ShiftUpdatedEvent
	if err := event.UnmarshalData(&payload); err != nil {
		return err
	}
	if payload.EmployeeID == nil {
		return nil
	}

	ctx = tenant.WithTenantID(ctx, payload.TenantID)
	shift, employee, err := c.load(ctx, payload.ShiftID, *payload.EmployeeID)
	if err != nil {
		c.logger.Warn().Err(err).Str("shift_id", payload.ShiftID).Msg("Notification skipped")
		return nil
	}

	fields := make([]string, 0, len(payload.Fields))
	for k := range payload.Fields {
		fields = append(fields, k)
	}
	subject, message := ShiftChangedMessage(shift, employee, fields)
	c.dispatcher.Dispatch(ctx, employee, EventShiftChanged, subject, message)
	return nil
}

func (c *Consumer) handleAbsenceDecision(ctx context.Context, event *messaging.Event) error {
	var payload messaging.AbsenceDecisionEvent
	if err := event.UnmarshalData(&payload); err != nil {
		return err
	}

	ctx = tenant.WithTenantID(ctx, payload.TenantID)
	absence, err := c.absences.GetByID(ctx, payload.AbsenceID)
	if err != nil {
		c.logger.Warn().Err(err).Str("absence_id", payload.AbsenceID).Msg("Notification skipped")
		return nil
	}
	employee, err := c.employees.GetByID(ctx, absence.EmployeeID)
	if err != nil {
		c.logger.Warn().Err(err).Str("absence_id", payload.AbsenceID).Msg("Notification skipped")
		return nil
	}

	eventType := EventAbsenceRejected
	if payload.Decision == staffrepo.AbsenceApproved {
		eventType = EventAbsenceApproved
	}
	subject, message := AbsenceDecisionMessage(absence, employee, payload.Decision)
	c.dispatcher.Dispatch(ctx, employee, eventType, subject, message)
	return nil
}

// handleNotifyRequest delivers a pre-built message, used by the
// reminder jobs.
func (c *Consumer) handleNotifyRequest(ctx context.Context, event *messaging.Event) error {
	var payload messaging.NotifyRequest
	if err := event.UnmarshalData(&payload); err != nil {
		return err
	}

	ctx = tenant.WithTenantID(ctx, payload.TenantID)
	employee, err := c.employees.GetByID(ctx, payload.EmployeeID)
	if err != nil {
		c.logger.Warn().Err(err).Str("employee_id", payload.EmployeeID).Msg("Notification skipped")
		return nil
	}

	c.dispatcher.Dispatch(ctx, employee, payload.EventType, payload.Subject, payload.Message)
	return nil
}

func (c *Consumer) load(ctx context.Context, shiftID, employeeID string) (*schedulerepo.Shift, *staffrepo.Employee, error) {
	shift, err := c.shifts.GetByID(ctx, shiftID)
	if err != nil {
		return nil, nil, err
	}
	employee, err := c.employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, nil, err
	}
	return shift, employee, nil
}
