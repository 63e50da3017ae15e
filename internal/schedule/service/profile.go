package service

import (
	"context"
	"time"

	"github.com/verawork/vera-backend/internal/holidays"
	"github.com/verawork/vera-backend/internal/schedule/repository"
	"github.com/verawork/vera-backend/pkg/errors"
	"github.com/verawork/vera-backend/pkg/logger"
)

// ProfileService manages holiday profiles and their children.
type ProfileService struct {
	profiles *repository.ProfileRepository
	logger   *logger.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(profiles *repository.ProfileRepository, log *logger.Logger) *ProfileService {
	return &ProfileService{profiles: profiles, logger: log}
}

// CreateProfileRequest creates a holiday profile. With
// prefill_school_vacations the tabulated regional school year is
// attached as vacation periods.
type CreateProfileRequest struct {
	Name                   string `json:"name" validate:"required,min=1,max=200"`
	RegionCode             string `json:"region_code"`
	Activate               bool   `json:"activate"`
	PrefillSchoolVacations bool   `json:"prefill_school_vacations"`
}

// PeriodRequest attaches a vacation period.
type PeriodRequest struct {
	Name      string `json:"name" validate:"required"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
	Color     string `json:"color"`
}

// CustomDayRequest attaches a custom holiday date.
type CustomDayRequest struct {
	Date  string `json:"date" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Color string `json:"color"`
}

// Create creates a profile, optionally pre-filled and activated.
func (s *ProfileService) Create(ctx context.Context, req CreateProfileRequest) (*repository.HolidayProfile, error) {
	profile := &repository.HolidayProfile{
		Name:       req.Name,
		RegionCode: req.RegionCode,
	}

	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, err
	}

	if req.PrefillSchoolVacations {
		for _, v := range holidays.BWSchoolVacations2025 {
			start, _ := time.Parse(holidays.DateFormat, v.StartDate)
			end, _ := time.Parse(holidays.DateFormat, v.EndDate)
			period := &repository.VacationPeriod{
				ProfileID: profile.ID,
				Name:      v.Name,
				StartDate: start,
				EndDate:   end,
			}
			if err := s.profiles.AddPeriod(ctx, period); err != nil {
				return nil, err
			}
		}
	}

	if req.Activate {
		if err := s.profiles.Activate(ctx, profile.ID); err != nil {
			return nil, err
		}
		profile.Active = true
	}

	return s.profiles.GetWithDetails(ctx, profile.ID)
}

// Get returns a profile with its periods and custom days.
func (s *ProfileService) Get(ctx context.Context, id string) (*repository.HolidayProfile, error) {
	return s.profiles.GetWithDetails(ctx, id)
}

// List lists the tenant's profiles.
func (s *ProfileService) List(ctx context.Context) ([]*repository.HolidayProfile, error) {
	return s.profiles.List(ctx)
}

// UpdateProfileRequest renames a profile or switches its region, and
// may activate it.
type UpdateProfileRequest struct {
	Name       *string `json:"name,omitempty"`
	RegionCode *string `json:"region_code,omitempty"`
	Active     *bool   `json:"active,omitempty"`
}

// Update applies a partial profile update. Setting active=true runs the
// atomic activation; active=false is rejected, a profile is deactivated
// by activating another.
func (s *ProfileService) Update(ctx context.Context, id string, req UpdateProfileRequest) (*repository.HolidayProfile, error) {
	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		profile.Name = *req.Name
	}
	if req.RegionCode != nil {
		profile.RegionCode = *req.RegionCode
	}
	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, err
	}

	if req.Active != nil {
		if !*req.Active {
			return nil, errors.BadRequest("deactivate a profile by activating another one")
		}
		if err := s.profiles.Activate(ctx, id); err != nil {
			return nil, err
		}
	}

	return s.profiles.GetWithDetails(ctx, id)
}

// Delete removes a profile unless an active recurring shift still
// references it.
func (s *ProfileService) Delete(ctx context.Context, id string) error {
	count, err := s.profiles.CountReferencingRules(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.Conflict("profile is referenced by active recurring shifts")
	}
	return s.profiles.Delete(ctx, id)
}

// AddPeriod attaches a vacation period after validating its range.
func (s *ProfileService) AddPeriod(ctx context.Context, profileID string, req PeriodRequest) (*repository.VacationPeriod, error) {
	if _, err := s.profiles.GetByID(ctx, profileID); err != nil {
		return nil, err
	}

	start, err := time.Parse(holidays.DateFormat, req.StartDate)
	if err != nil {
		return nil, errors.BadRequest("start_date must be an ISO date")
	}
	end, err := time.Parse(holidays.DateFormat, req.EndDate)
	if err != nil {
		return nil, errors.BadRequest("end_date must be an ISO date")
	}
	if start.After(end) {
		return nil, errors.BadRequest("start_date must not be after end_date")
	}

	period := &repository.VacationPeriod{
		ProfileID: profileID,
		Name:      req.Name,
		StartDate: start,
		EndDate:   end,
		Color:     req.Color,
	}
	if err := s.profiles.AddPeriod(ctx, period); err != nil {
		return nil, err
	}
	return period, nil
}

// RemovePeriod detaches a vacation period.
func (s *ProfileService) RemovePeriod(ctx context.Context, profileID, periodID string) error {
	return s.profiles.RemovePeriod(ctx, profileID, periodID)
}

// AddCustomDay attaches a custom holiday date.
func (s *ProfileService) AddCustomDay(ctx context.Context, profileID string, req CustomDayRequest) (*repository.CustomHoliday, error) {
	if _, err := s.profiles.GetByID(ctx, profileID); err != nil {
		return nil, err
	}

	date, err := time.Parse(holidays.DateFormat, req.Date)
	if err != nil {
		return nil, errors.BadRequest("date must be an ISO date")
	}

	day := &repository.CustomHoliday{
		ProfileID: profileID,
		Date:      date,
		Name:      req.Name,
		Color:     req.Color,
	}
	if err := s.profiles.AddCustomHoliday(ctx, day); err != nil {
		return nil, err
	}
	return day, nil
}

// RemoveCustomDay detaches a custom holiday.
func (s *ProfileService) RemoveCustomDay(ctx context.Context, profileID, dayID string) error {
	return s.profiles.RemoveCustomHoliday(ctx, profileID, dayID)
}
