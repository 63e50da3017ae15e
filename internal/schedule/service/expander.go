package service

import (
	"context"
	"time"

	"github.com/verawork/vera-backend/internal/holidays"
	"github.com/verawork/vera-backend/internal/schedule/repository"
	"github.com/verawork/vera-backend/pkg/errors"
	"github.com/verawork/vera-backend/pkg/logger"
	"github.com/verawork/vera-backend/pkg/messaging"
	"github.com/verawork/vera-backend/pkg/tenant"
)

// EventPublisher publishes domain events without blocking the caller's
// primary write path.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// ExpanderService materialises recurring shift rules into concrete
// planned shifts.
type ExpanderService struct {
	rules     *repository.RecurringRepository
	shifts    *repository.ShiftRepository
	profiles  *repository.ProfileRepository
	calendar  *holidays.Calendar
	publisher EventPublisher
	logger    *logger.Logger
}

// NewExpanderService creates a new expander service
func NewExpanderService(
	rules *repository.RecurringRepository,
	shifts *repository.ShiftRepository,
	profiles *repository.ProfileRepository,
	calendar *holidays.Calendar,
	publisher EventPublisher,
	log *logger.Logger,
) *ExpanderService {
	return &ExpanderService{
		rules:     rules,
		shifts:    shifts,
		profiles:  profiles,
		calendar:  calendar,
		publisher: publisher,
		logger:    log,
	}
}

// PreviewRequest describes a dry-run expansion.
type PreviewRequest struct {
	Weekday            int     `json:"weekday" validate:"min=0,max=6"`
	FromDate           string  `json:"from_date" validate:"required"`
	UntilDate          string  `json:"until_date" validate:"required"`
	HolidayProfileID   *string `json:"holiday_profile_id,omitempty"`
	SkipPublicHolidays bool    `json:"skip_public_holidays"`
}

// PreviewResult reports what an expansion would produce.
type PreviewResult struct {
	GeneratedCount int      `json:"generated_count"`
	SkippedCount   int      `json:"skipped_count"`
	SkippedDates   []string `json:"skipped_dates"`
}

// GenerateResult reports a completed materialisation.
type GenerateResult struct {
	Rule           *repository.RecurringShift `json:"rule"`
	Shifts         []*repository.Shift        `json:"shifts"`
	GeneratedCount int                        `json:"generated_count"`
	SkippedCount   int                        `json:"skipped_count"`
}

// expandDates walks the inclusive range ascending and splits the
// weekday projection into kept and skipped dates. An inverted range
// yields two empty slices, no error.
func expandDates(weekday int, from, until time.Time, skip SkipSet) (generated, skipped []time.Time) {
	for d := from; !d.After(until); d = d.AddDate(0, 0, 1) {
		if holidays.Weekday(d) != weekday {
			continue
		}
		if skip.Contains(d) {
			skipped = append(skipped, d)
			continue
		}
		generated = append(generated, d)
	}
	return generated, skipped
}

// Preview computes an expansion without writing anything.
func (s *ExpanderService) Preview(ctx context.Context, req PreviewRequest) (*PreviewResult, error) {
	from, err := time.Parse(holidays.DateFormat, req.FromDate)
	if err != nil {
		return nil, errors.BadRequest("from_date must be an ISO date")
	}
	until, err := time.Parse(holidays.DateFormat, req.UntilDate)
	if err != nil {
		return nil, errors.BadRequest("until_date must be an ISO date")
	}
	if req.Weekday < 0 || req.Weekday > 6 {
		return nil, errors.BadRequest("weekday must be between 0 and 6")
	}

	var profile *repository.HolidayProfile
	if req.HolidayProfileID != nil {
		if profile, err = s.profiles.GetWithDetails(ctx, *req.HolidayProfileID); err != nil {
			return nil, err
		}
	}

	skip := BuildSkipSet(s.calendar, profile, req.SkipPublicHolidays, YearsCovered(from, until))
	generated, skipped := expandDates(req.Weekday, from, until, skip)

	result := &PreviewResult{
		GeneratedCount: len(generated),
		SkippedCount:   len(skipped),
		SkippedDates:   make([]string, 0, len(skipped)),
	}
	for _, d := range skipped {
		result.SkippedDates = append(result.SkippedDates, d.Format(holidays.DateFormat))
	}
	return result, nil
}

// buildShifts turns expansion dates into planned shift rows inheriting
// the rule's time, break, employee, and template.
func buildShifts(rule *repository.RecurringShift, dates []time.Time) []*repository.Shift {
	shifts := make([]*repository.Shift, 0, len(dates))
	for _, d := range dates {
		shifts = append(shifts, &repository.Shift{
			EmployeeID:       rule.EmployeeID,
			TemplateID:       rule.TemplateID,
			RecurringShiftID: &rule.ID,
			Date:             d,
			StartTime:        rule.StartTime,
			EndTime:          rule.EndTime,
			BreakMinutes:     rule.BreakMinutes,
			Status:           repository.ShiftPlanned,
			IsWeekend:        holidays.IsWeekend(d),
			IsSunday:         holidays.IsSunday(d),
			IsOverride:       false,
		})
	}
	return shifts
}

// CreateAndGenerate validates a new rule, materialises it over its
// validity window, and commits rule plus shifts atomically.
func (s *ExpanderService) CreateAndGenerate(ctx context.Context, rule *repository.RecurringShift) (*GenerateResult, error) {
	if rule.Weekday < 0 || rule.Weekday > 6 {
		return nil, errors.BadRequest("weekday must be between 0 and 6")
	}
	if rule.ValidFrom.After(rule.ValidUntil) {
		return nil, errors.BadRequest("valid_from must not be after valid_until")
	}

	var profile *repository.HolidayProfile
	var err error
	if rule.HolidayProfileID != nil {
		if profile, err = s.profiles.GetWithDetails(ctx, *rule.HolidayProfileID); err != nil {
			return nil, err
		}
	}

	skip := BuildSkipSet(s.calendar, profile, rule.SkipPublicHolidays, YearsCovered(rule.ValidFrom, rule.ValidUntil))
	dates, skipped := expandDates(rule.Weekday, rule.ValidFrom, rule.ValidUntil, skip)
	shifts := buildShifts(rule, dates)

	if err := s.rules.CreateWithShifts(ctx, rule, shifts); err != nil {
		return nil, err
	}

	s.publishGenerated(ctx, rule, len(shifts), len(skipped), rule.ValidFrom, rule.ValidUntil)

	return &GenerateResult{
		Rule:           rule,
		Shifts:         shifts,
		GeneratedCount: len(shifts),
		SkippedCount:   len(skipped),
	}, nil
}

// RegenerateUpdate carries the rule fields that may change when
// regenerating from a date onwards.
type RegenerateUpdate struct {
	StartTime    *string `json:"start_time,omitempty"`
	EndTime      *string `json:"end_time,omitempty"`
	BreakMinutes *int    `json:"break_minutes,omitempty"`
	EmployeeID   *string `json:"employee_id,omitempty"`
	ValidUntil   *string `json:"valid_until,omitempty"`
}

// RegenerateFrom applies the update to the rule, deletes its
// regenerable shifts on or after fromDate, and re-materialises the
// window [fromDate, validUntil]. Confirmed, completed, cancelled, and
// override shifts are preserved pointwise; their dates are excluded
// from re-creation.
func (s *ExpanderService) RegenerateFrom(ctx context.Context, ruleID string, fromDate time.Time, update *RegenerateUpdate) (*GenerateResult, error) {
	rule, err := s.rules.GetByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	if update != nil {
		if update.StartTime != nil {
			rule.StartTime = *update.StartTime
		}
		if update.EndTime != nil {
			rule.EndTime = *update.EndTime
		}
		if update.BreakMinutes != nil {
			rule.BreakMinutes = *update.BreakMinutes
		}
		if update.EmployeeID != nil {
			rule.EmployeeID = update.EmployeeID
		}
		if update.ValidUntil != nil {
			until, err := time.Parse(holidays.DateFormat, *update.ValidUntil)
			if err != nil {
				return nil, errors.BadRequest("valid_until must be an ISO date")
			}
			rule.ValidUntil = until
		}
		if err := s.rules.Update(ctx, rule); err != nil {
			return nil, err
		}
	}

	deleted, err := s.shifts.DeleteGenerated(ctx, ruleID, &fromDate)
	if err != nil {
		return nil, err
	}

	var profile *repository.HolidayProfile
	if rule.HolidayProfileID != nil {
		if profile, err = s.profiles.GetWithDetails(ctx, *rule.HolidayProfileID); err != nil {
			return nil, err
		}
	}

	skip := BuildSkipSet(s.calendar, profile, rule.SkipPublicHolidays, YearsCovered(fromDate, rule.ValidUntil))

	// Surviving shifts (confirmed, cancelled, overrides) keep their dates.
	existing, err := s.shifts.ListRuleShiftDates(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	for _, d := range existing {
		skip[d.Format(holidays.DateFormat)] = struct{}{}
	}

	dates, skipped := expandDates(rule.Weekday, fromDate, rule.ValidUntil, skip)
	shifts := buildShifts(rule, dates)

	if err := s.shifts.CreateBulk(ctx, shifts); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("recurring_shift_id", ruleID).
		Int64("deleted", deleted).
		Int("generated", len(shifts)).
		Msg("regenerated recurring shift")

	s.publishGenerated(ctx, rule, len(shifts), len(skipped), fromDate, rule.ValidUntil)

	return &GenerateResult{
		Rule:           rule,
		Shifts:         shifts,
		GeneratedCount: len(shifts),
		SkippedCount:   len(skipped),
	}, nil
}

// SoftDelete deactivates a rule and removes its still-planned,
// non-override shifts regardless of date.
func (s *ExpanderService) SoftDelete(ctx context.Context, ruleID string) error {
	if _, err := s.rules.GetByID(ctx, ruleID); err != nil {
		return err
	}

	if err := s.rules.Deactivate(ctx, ruleID); err != nil {
		return err
	}

	deleted, err := s.shifts.DeleteGenerated(ctx, ruleID, nil)
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("recurring_shift_id", ruleID).
		Int64("deleted", deleted).
		Msg("recurring shift deactivated")

	return nil
}

func (s *ExpanderService) publishGenerated(ctx context.Context, rule *repository.RecurringShift, generated, skipped int, from, until time.Time) {
	if s.publisher == nil {
		return
	}

	tenantID, _ := tenant.TenantID(ctx)
	event := messaging.RecurringGeneratedEvent{
		RecurringShiftID: rule.ID,
		TenantID:         tenantID,
		GeneratedCount:   generated,
		SkippedCount:     skipped,
		FromDate:         from.Format(holidays.DateFormat),
		UntilDate:        until.Format(holidays.DateFormat),
	}
	if err := s.publisher.Publish(ctx, messaging.EventRecurringGenerated, event); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish generation event")
	}
}
