package service

import (
	"context"
	"time"

	"github.com/verawork/vera-backend/internal/auth"
	schedulerepo "github.com/verawork/vera-backend/internal/schedule/repository"
	"github.com/verawork/vera-backend/internal/staff/repository"
	"github.com/verawork/vera-backend/pkg/errors"
	"github.com/verawork/vera-backend/pkg/httputil"
	"github.com/verawork/vera-backend/pkg/logger"
	"github.com/verawork/vera-backend/pkg/messaging"
	"github.com/verawork/vera-backend/pkg/tenant"
)

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// AbsenceService coordinates leave requests and the shifts they touch.
type AbsenceService struct {
	absences  *repository.AbsenceRepository
	employees *repository.EmployeeRepository
	shifts    *schedulerepo.ShiftRepository
	publisher EventPublisher
	logger    *logger.Logger
}

// NewAbsenceService creates a new absence service
func NewAbsenceService(
	absences *repository.AbsenceRepository,
	employees *repository.EmployeeRepository,
	shifts *schedulerepo.ShiftRepository,
	publisher EventPublisher,
	log *logger.Logger,
) *AbsenceService {
	return &AbsenceService{
		absences:  absences,
		employees: employees,
		shifts:    shifts,
		publisher: publisher,
		logger:    log,
	}
}

var validAbsenceTypes = map[string]bool{
	repository.AbsenceVacation:      true,
	repository.AbsenceSick:          true,
	repository.AbsenceSchoolHoliday: true,
	repository.AbsenceOther:         true,
}

// CreateAbsenceRequest files a leave request
type CreateAbsenceRequest struct {
	EmployeeID string   `json:"employee_id" validate:"required,uuid"`
	Type       string   `json:"type" validate:"required"`
	StartDate  string   `json:"start_date" validate:"required"`
	EndDate    string   `json:"end_date" validate:"required"`
	DaysCount  *float64 `json:"days_count,omitempty"`
	Notes      *string  `json:"notes,omitempty"`
}

// Create files a leave request. Non-privileged callers may only file
// for their own linked employee.
func (s *AbsenceService) Create(ctx context.Context, req CreateAbsenceRequest) (*repository.EmployeeAbsence, error) {
	if !auth.IsPrivileged(httputil.GetUserRole(ctx)) && httputil.GetEmployeeID(ctx) != req.EmployeeID {
		return nil, errors.Forbidden("insufficient permissions")
	}
	if !validAbsenceTypes[req.Type] {
		return nil, errors.BadRequest("type must be one of: vacation, sick, school_holiday, other")
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, errors.BadRequest("start_date must be YYYY-MM-DD")
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, errors.BadRequest("end_date must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return nil, errors.BadRequest("end_date must not be before start_date")
	}

	if _, err := s.employees.GetByID(ctx, req.EmployeeID); err != nil {
		return nil, err
	}

	a := &repository.EmployeeAbsence{
		EmployeeID: req.EmployeeID,
		Type:       req.Type,
		StartDate:  start,
		EndDate:    end,
		DaysCount:  req.DaysCount,
		Notes:      req.Notes,
		Status:     repository.AbsencePending,
	}
	if err := s.absences.Create(ctx, a); err != nil {
		return nil, err
	}

	s.publish(ctx, messaging.EventAbsenceRequested, a, 0, "")
	return a, nil
}

// Get returns one absence. Employees see only their own.
func (s *AbsenceService) Get(ctx context.Context, id string) (*repository.EmployeeAbsence, error) {
	a, err := s.absences.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.IsPrivileged(httputil.GetUserRole(ctx)) && httputil.GetEmployeeID(ctx) != a.EmployeeID {
		return nil, errors.NotFound("absence")
	}
	return a, nil
}

// List lists absences. Non-privileged callers are scoped to their own.
func (s *AbsenceService) List(ctx context.Context, params repository.AbsenceListParams) ([]*repository.EmployeeAbsence, error) {
	if !auth.IsPrivileged(httputil.GetUserRole(ctx)) {
		employeeID := httputil.GetEmployeeID(ctx)
		if employeeID == "" {
			return []*repository.EmployeeAbsence{}, nil
		}
		params.EmployeeID = &employeeID
	}
	return s.absences.List(ctx, params)
}

// DecideResult reports an approval decision and its side effects
type DecideResult struct {
	Absence       *repository.EmployeeAbsence `json:"absence"`
	ShiftsFlipped int                         `json:"shifts_flipped"`
}

// Decide approves or rejects a leave request. Approval cancels every
// non-cancelled shift of the employee inside the range; rejecting a
// previously approved absence restores those shifts to planned.
func (s *AbsenceService) Decide(ctx context.Context, id, decision string) (*DecideResult, error) {
	role := httputil.GetUserRole(ctx)
	if !auth.IsPrivileged(role) {
		return nil, errors.Forbidden("insufficient permissions")
	}
	if decision != repository.AbsenceApproved && decision != repository.AbsenceRejected {
		return nil, errors.BadRequest("status must be approved or rejected")
	}

	a, err := s.absences.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	previousStatus := a.Status
	if previousStatus == decision {
		return &DecideResult{Absence: a}, nil
	}

	reviewerID := httputil.GetUserID(ctx)
	if err := s.absences.UpdateStatus(ctx, id, decision, reviewerID); err != nil {
		return nil, err
	}

	var flipped []string
	switch {
	case decision == repository.AbsenceApproved:
		flipped, err = s.shifts.CancelForAbsence(ctx, a.EmployeeID, a.StartDate, a.EndDate)
	case decision == repository.AbsenceRejected && previousStatus == repository.AbsenceApproved:
		flipped, err = s.shifts.RestoreFromAbsence(ctx, a.EmployeeID, a.StartDate, a.EndDate)
	}
	if err != nil {
		return nil, err
	}

	a.Status = decision
	a.ApprovedBy = &reviewerID
	now := time.Now()
	a.ApprovedAt = &now

	eventType := messaging.EventAbsenceApproved
	if decision == repository.AbsenceRejected {
		eventType = messaging.EventAbsenceRejected
	}
	s.publish(ctx, eventType, a, len(flipped), reviewerID)

	return &DecideResult{Absence: a, ShiftsFlipped: len(flipped)}, nil
}

// CreateCareRequest files a child-sickness absence
type CreateCareRequest struct {
	EmployeeID string   `json:"employee_id" validate:"required,uuid"`
	ChildName  string   `json:"child_name" validate:"required,min=1,max=100"`
	StartDate  string   `json:"start_date" validate:"required"`
	EndDate    string   `json:"end_date" validate:"required"`
	DaysCount  *float64 `json:"days_count,omitempty"`
	Notes      *string  `json:"notes,omitempty"`
}

// CreateCare records a care absence. These carry no approval workflow
// and do not touch shifts.
func (s *AbsenceService) CreateCare(ctx context.Context, req CreateCareRequest) (*repository.CareAbsence, error) {
	if !auth.IsPrivileged(httputil.GetUserRole(ctx)) && httputil.GetEmployeeID(ctx) != req.EmployeeID {
		return nil, errors.Forbidden("insufficient permissions")
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, errors.BadRequest("start_date must be YYYY-MM-DD")
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, errors.BadRequest("end_date must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return nil, errors.BadRequest("end_date must not be before start_date")
	}

	c := &repository.CareAbsence{
		EmployeeID: req.EmployeeID,
		ChildName:  req.ChildName,
		StartDate:  start,
		EndDate:    end,
		DaysCount:  req.DaysCount,
		Notes:      req.Notes,
	}
	if err := s.absences.CreateCare(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListCare lists care absences. Non-privileged callers see their own.
func (s *AbsenceService) ListCare(ctx context.Context, employeeID *string) ([]*repository.CareAbsence, error) {
	if !auth.IsPrivileged(httputil.GetUserRole(ctx)) {
		own := httputil.GetEmployeeID(ctx)
		if own == "" {
			return []*repository.CareAbsence{}, nil
		}
		employeeID = &own
	}
	return s.absences.ListCare(ctx, employeeID)
}

func (s *AbsenceService) publish(ctx context.Context, eventType string, a *repository.EmployeeAbsence, flipped int, reviewerID string) {
	if s.publisher == nil {
		return
	}
	tenantID, _ := tenant.TenantID(ctx)
	event := messaging.AbsenceDecisionEvent{
		AbsenceID:     a.ID,
		TenantID:      tenantID,
		EmployeeID:    a.EmployeeID,
		Decision:      a.Status,
		ShiftsFlipped: flipped,
		ReviewerID:    reviewerID,
	}
	if err := s.publisher.Publish(ctx, eventType, event); err != nil {
		s.logger.Warn().Err(err).Str("absence_id", a.ID).Msg("Failed to publish absence event")
	}
}
