package service

import (
	"context"
	"time"

	"github.com/verawork/vera-backend/internal/audit"
	"github.com/verawork/vera-backend/internal/auth"
	"github.com/verawork/vera-backend/internal/holidays"
	"github.com/verawork/vera-backend/internal/schedule/repository"
	"github.com/verawork/vera-backend/pkg/errors"
	"github.com/verawork/vera-backend/pkg/httputil"
	"github.com/verawork/vera-backend/pkg/logger"
	"github.com/verawork/vera-backend/pkg/messaging"
	"github.com/verawork/vera-backend/pkg/tenant"
)

// ComplianceRefresher re-evaluates a shift's compliance flags after a
// successful write. Implementations swallow their own errors; a failed
// evaluation never aborts the primary operation.
type ComplianceRefresher interface {
	Refresh(ctx context.Context, shiftID string)
}

// ShiftService enforces the shift lifecycle and role matrix.
type ShiftService struct {
	shifts     *repository.ShiftRepository
	calendar   *holidays.Calendar
	audit      *audit.Repository
	compliance ComplianceRefresher
	publisher  EventPublisher
	logger     *logger.Logger
}

// NewShiftService creates a new shift service
func NewShiftService(
	shifts *repository.ShiftRepository,
	calendar *holidays.Calendar,
	auditRepo *audit.Repository,
	compliance ComplianceRefresher,
	publisher EventPublisher,
	log *logger.Logger,
) *ShiftService {
	return &ShiftService{
		shifts:     shifts,
		calendar:   calendar,
		audit:      auditRepo,
		compliance: compliance,
		publisher:  publisher,
		logger:     log,
	}
}

// CreateShiftRequest creates one concrete shift.
type CreateShiftRequest struct {
	EmployeeID   *string `json:"employee_id,omitempty"`
	TemplateID   *string `json:"template_id,omitempty"`
	Date         string  `json:"date" validate:"required"`
	StartTime    string  `json:"start_time" validate:"required"`
	EndTime      string  `json:"end_time" validate:"required"`
	BreakMinutes int     `json:"break_minutes" validate:"min=0"`
	Location     *string `json:"location,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

// UpdateShiftRequest carries a partial shift mutation. Nil fields are
// untouched.
type UpdateShiftRequest struct {
	EmployeeID         *string `json:"employee_id,omitempty"`
	Date               *string `json:"date,omitempty"`
	StartTime          *string `json:"start_time,omitempty"`
	EndTime            *string `json:"end_time,omitempty"`
	BreakMinutes       *int    `json:"break_minutes,omitempty"`
	Location           *string `json:"location,omitempty"`
	Notes              *string `json:"notes,omitempty"`
	Status             *string `json:"status,omitempty"`
	CancellationReason *string `json:"cancellation_reason,omitempty"`
	ActualStart        *string `json:"actual_start,omitempty"`
	ActualEnd          *string `json:"actual_end,omitempty"`
}

// ConfirmShiftRequest closes the planned phase of a shift.
type ConfirmShiftRequest struct {
	ConfirmationNote *string `json:"confirmation_note,omitempty"`
	ActualStart      *string `json:"actual_start,omitempty"`
	ActualEnd        *string `json:"actual_end,omitempty"`
}

var validStatuses = map[string]bool{
	repository.ShiftPlanned:          true,
	repository.ShiftConfirmed:        true,
	repository.ShiftCompleted:        true,
	repository.ShiftCancelled:        true,
	repository.ShiftCancelledAbsence: true,
}

// Create creates a shift. Privileged roles only.
func (s *ShiftService) Create(ctx context.Context, req CreateShiftRequest) (*repository.Shift, error) {
	if !auth.IsPrivileged(httputil.GetUserRole(ctx)) {
		return nil, errors.Forbidden("insufficient permissions")
	}

	shift, err := s.buildShift(req)
	if err != nil {
		return nil, err
	}

	if err := s.shifts.Create(ctx, shift); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, shift.ID, audit.ActionCreate, nil, map[string]any{
		"date":        shift.Date.Format(holidays.DateFormat),
		"start_time":  shift.StartTime,
		"end_time":    shift.EndTime,
		"employee_id": deref(shift.EmployeeID),
		"status":      shift.Status,
	})

	s.refresh(ctx, shift)
	s.publishShiftEvent(ctx, messaging.EventShiftCreated, shift)

	return shift, nil
}

// CreateBulk creates many shifts in one transaction. Privileged only.
func (s *ShiftService) CreateBulk(ctx context.Context, reqs []CreateShiftRequest) ([]*repository.Shift, error) {
	if !auth.IsPrivileged(httputil.GetUserRole(ctx)) {
		return nil, errors.Forbidden("insufficient permissions")
	}
	if len(reqs) == 0 {
		return nil, errors.BadRequest("no shifts given")
	}

	shifts := make([]*repository.Shift, 0, len(reqs))
	for _, req := range reqs {
		shift, err := s.buildShift(req)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, shift)
	}

	if err := s.shifts.CreateBulk(ctx, shifts); err != nil {
		return nil, err
	}

	for _, shift := range shifts {
		s.refresh(ctx, shift)
	}
	return shifts, nil
}

// Get returns one shift within the caller's tenant.
func (s *ShiftService) Get(ctx context.Context, id string) (*repository.Shift, error) {
	return s.shifts.GetByID(ctx, id)
}

// List lists shifts. Non-privileged callers are restricted to their own
// shifts and open ones.
func (s *ShiftService) List(ctx context.Context, params repository.ShiftListParams) ([]*repository.Shift, int64, error) {
	return s.shifts.List(ctx, params)
}

// Update applies a partial mutation under the role matrix:
// admins may change anything including status; managers may edit
// planned and confirmed shifts; an employee may touch only
// actual_start, actual_end, and notes of their own planned shift.
func (s *ShiftService) Update(ctx context.Context, id string, req UpdateShiftRequest) (*repository.Shift, error) {
	shift, err := s.shifts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	role := httputil.GetUserRole(ctx)

	switch {
	case role == "admin":
		// full access including the administrative status escape hatch

	case role == "manager":
		if shift.Status != repository.ShiftPlanned && shift.Status != repository.ShiftConfirmed {
			return nil, errors.Forbidden("only an admin may edit a closed shift")
		}

	default:
		if shift.EmployeeID == nil || *shift.EmployeeID != httputil.GetEmployeeID(ctx) {
			return nil, errors.Forbidden("insufficient permissions")
		}
		if shift.Status != repository.ShiftPlanned {
			return nil, errors.Forbidden("shift can no longer be edited")
		}
		if req.EmployeeID != nil || req.Date != nil || req.StartTime != nil ||
			req.EndTime != nil || req.BreakMinutes != nil || req.Location != nil ||
			req.Status != nil || req.CancellationReason != nil {
			return nil, errors.Forbidden("only actual times and notes may be changed")
		}
	}

	if req.Status != nil {
		if !validStatuses[*req.Status] {
			return nil, errors.BadRequest("unknown shift status")
		}
		if role == "manager" && *req.Status != repository.ShiftConfirmed &&
			*req.Status != repository.ShiftCancelled && *req.Status != repository.ShiftPlanned {
			return nil, errors.Forbidden("status change not permitted")
		}
	}

	oldValues, newValues := applyShiftUpdate(shift, req)
	if len(newValues) == 0 {
		return shift, nil
	}

	if req.Date != nil {
		date, err := time.Parse(holidays.DateFormat, *req.Date)
		if err != nil {
			return nil, errors.BadRequest("date must be an ISO date")
		}
		shift.Date = date
	}

	// Derived flags are recomputed on every write.
	shift.IsWeekend = holidays.IsWeekend(shift.Date)
	shift.IsSunday = holidays.IsSunday(shift.Date)
	shift.IsHoliday = s.calendar.IsHoliday(holidays.DefaultRegion, shift.Date)

	// A manual edit detaches the shift from blanket regeneration.
	if shift.RecurringShiftID != nil && auth.IsPrivileged(role) {
		shift.IsOverride = true
	}

	if err := s.shifts.Update(ctx, shift); err != nil {
		return nil, err
	}

	if auth.IsPrivileged(role) {
		s.recordAudit(ctx, shift.ID, audit.ActionUpdate, oldValues, newValues)
	}

	s.refresh(ctx, shift)
	s.publishShiftEvent(ctx, messaging.EventShiftUpdated, shift)

	return shift, nil
}

// Confirm transitions a planned shift to confirmed. Manager or admin.
func (s *ShiftService) Confirm(ctx context.Context, id string, req ConfirmShiftRequest) (*repository.Shift, error) {
	if !auth.IsPrivileged(httputil.GetUserRole(ctx)) {
		return nil, errors.Forbidden("insufficient permissions")
	}

	shift, err := s.shifts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if shift.Status != repository.ShiftPlanned {
		return nil, errors.BadRequest("only a planned shift can be confirmed")
	}

	userID := httputil.GetUserID(ctx)
	now := time.Now().UTC()

	shift.Status = repository.ShiftConfirmed
	shift.ConfirmedBy = &userID
	shift.ConfirmedAt = &now
	shift.ConfirmationNote = req.ConfirmationNote
	if req.ActualStart != nil {
		shift.ActualStart = req.ActualStart
	}
	if req.ActualEnd != nil {
		shift.ActualEnd = req.ActualEnd
	}

	if err := s.shifts.Update(ctx, shift); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, shift.ID, audit.ActionConfirm,
		map[string]any{"status": repository.ShiftPlanned},
		map[string]any{"status": repository.ShiftConfirmed, "confirmed_by": userID},
	)

	s.refresh(ctx, shift)
	s.publishShiftEvent(ctx, messaging.EventShiftConfirmed, shift)

	return shift, nil
}

// Claim assigns an open shift to the caller's linked employee. Only
// non-privileged users claim; a second claimer loses with a conflict.
func (s *ShiftService) Claim(ctx context.Context, id string) (*repository.Shift, error) {
	if auth.IsPrivileged(httputil.GetUserRole(ctx)) {
		return nil, errors.Forbidden("privileged users assign shifts instead of claiming them")
	}

	employeeID := httputil.GetEmployeeID(ctx)
	if employeeID == "" {
		return nil, errors.Forbidden("no employee record linked to this account")
	}

	shift, err := s.shifts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if shift.EmployeeID != nil {
		return nil, errors.Conflict("shift is already assigned")
	}
	if shift.Status != repository.ShiftPlanned {
		return nil, errors.BadRequest("only a planned shift can be claimed")
	}

	if err := s.shifts.Claim(ctx, id, employeeID); err != nil {
		return nil, err
	}

	shift.EmployeeID = &employeeID

	s.recordAudit(ctx, shift.ID, audit.ActionClaim,
		map[string]any{"employee_id": nil},
		map[string]any{"employee_id": employeeID},
	)

	s.refresh(ctx, shift)
	s.publishShiftEvent(ctx, messaging.EventShiftClaimed, shift)

	return shift, nil
}

// Delete removes a shift. Managers may delete planned shifts; any other
// state requires an admin.
func (s *ShiftService) Delete(ctx context.Context, id string) error {
	role := httputil.GetUserRole(ctx)
	if !auth.IsPrivileged(role) {
		return errors.Forbidden("insufficient permissions")
	}

	shift, err := s.shifts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if role != "admin" && shift.Status != repository.ShiftPlanned {
		return errors.Forbidden("only an admin may delete a non-planned shift")
	}

	if err := s.shifts.Delete(ctx, id); err != nil {
		return err
	}

	s.recordAudit(ctx, id, audit.ActionDelete,
		map[string]any{"status": shift.Status, "date": shift.Date.Format(holidays.DateFormat)}, nil)

	s.publishShiftEvent(ctx, messaging.EventShiftDeleted, shift)
	return nil
}

func (s *ShiftService) buildShift(req CreateShiftRequest) (*repository.Shift, error) {
	date, err := time.Parse(holidays.DateFormat, req.Date)
	if err != nil {
		return nil, errors.BadRequest("date must be an ISO date")
	}
	if _, err := repository.ParseClock(req.StartTime); err != nil {
		return nil, errors.BadRequest("start_time must be HH:MM or HH:MM:SS")
	}
	if _, err := repository.ParseClock(req.EndTime); err != nil {
		return nil, errors.BadRequest("end_time must be HH:MM or HH:MM:SS")
	}

	return &repository.Shift{
		EmployeeID:   req.EmployeeID,
		TemplateID:   req.TemplateID,
		Date:         date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		BreakMinutes: req.BreakMinutes,
		Location:     req.Location,
		Notes:        req.Notes,
		Status:       repository.ShiftPlanned,
		IsWeekend:    holidays.IsWeekend(date),
		IsSunday:     holidays.IsSunday(date),
		IsHoliday:    s.calendar.IsHoliday(holidays.DefaultRegion, date),
	}, nil
}

// applyShiftUpdate mutates the shift in place and returns the preimage
// and postimage of the changed keys only.
func applyShiftUpdate(shift *repository.Shift, req UpdateShiftRequest) (oldValues, newValues map[string]any) {
	oldValues = make(map[string]any)
	newValues = make(map[string]any)

	set := func(key string, oldVal, newVal any, apply func()) {
		if oldVal == newVal {
			return
		}
		oldValues[key] = oldVal
		newValues[key] = newVal
		apply()
	}

	if req.EmployeeID != nil {
		set("employee_id", deref(shift.EmployeeID), *req.EmployeeID, func() { shift.EmployeeID = req.EmployeeID })
	}
	if req.Date != nil {
		set("date", shift.Date.Format(holidays.DateFormat), *req.Date, func() {})
	}
	if req.StartTime != nil {
		set("start_time", shift.StartTime, *req.StartTime, func() { shift.StartTime = *req.StartTime })
	}
	if req.EndTime != nil {
		set("end_time", shift.EndTime, *req.EndTime, func() { shift.EndTime = *req.EndTime })
	}
	if req.BreakMinutes != nil {
		set("break_minutes", shift.BreakMinutes, *req.BreakMinutes, func() { shift.BreakMinutes = *req.BreakMinutes })
	}
	if req.Location != nil {
		set("location", deref(shift.Location), *req.Location, func() { shift.Location = req.Location })
	}
	if req.Notes != nil {
		set("notes", deref(shift.Notes), *req.Notes, func() { shift.Notes = req.Notes })
	}
	if req.Status != nil {
		set("status", shift.Status, *req.Status, func() { shift.Status = *req.Status })
	}
	if req.CancellationReason != nil {
		set("cancellation_reason", deref(shift.CancellationReason), *req.CancellationReason,
			func() { shift.CancellationReason = req.CancellationReason })
	}
	if req.ActualStart != nil {
		set("actual_start", deref(shift.ActualStart), *req.ActualStart, func() { shift.ActualStart = req.ActualStart })
	}
	if req.ActualEnd != nil {
		set("actual_end", deref(shift.ActualEnd), *req.ActualEnd, func() { shift.ActualEnd = req.ActualEnd })
	}

	return oldValues, newValues
}

func (s *ShiftService) recordAudit(ctx context.Context, shiftID, action string, oldValues, newValues map[string]any) {
	err := s.audit.Record(ctx, httputil.GetUserID(ctx), "shift", shiftID, action, oldValues, newValues)
	if err != nil {
		s.logger.Warn().Err(err).Str("shift_id", shiftID).Msg("failed to write audit record")
	}
}

func (s *ShiftService) refresh(ctx context.Context, shift *repository.Shift) {
	if s.compliance == nil || shift.EmployeeID == nil {
		return
	}
	s.compliance.Refresh(ctx, shift.ID)
}

func (s *ShiftService) publishShiftEvent(ctx context.Context, eventType string, shift *repository.Shift) {
	if s.publisher == nil {
		return
	}

	tenantID, _ := tenant.TenantID(ctx)
	event := messaging.ShiftCreatedEvent{
		ShiftID:    shift.ID,
		TenantID:   tenantID,
		EmployeeID: shift.EmployeeID,
		Date:       shift.Date.Format(holidays.DateFormat),
		StartTime:  shift.StartTime,
		EndTime:    shift.EndTime,
	}
	if err := s.publisher.Publish(ctx, eventType, event); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish shift event")
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
