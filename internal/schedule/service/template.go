package service

import (
	"context"

	"github.com/lib/pq"
	"github.com/verawork/vera-backend/internal/schedule/repository"
	"github.com/verawork/vera-backend/pkg/errors"
)

// TemplateService manages shift templates.
type TemplateService struct {
	templates *repository.TemplateRepository
}

// NewTemplateService creates a new template service
func NewTemplateService(templates *repository.TemplateRepository) *TemplateService {
	return &TemplateService{templates: templates}
}

// TemplateRequest creates or replaces a shift template.
type TemplateRequest struct {
	Name           string   `json:"name" validate:"required,min=1,max=200"`
	Weekdays       []int64  `json:"weekdays" validate:"required,min=1,dive,min=0,max=6"`
	StartTime      string   `json:"start_time" validate:"required"`
	EndTime        string   `json:"end_time" validate:"required"`
	BreakMinutes   int      `json:"break_minutes" validate:"min=0"`
	Location       *string  `json:"location,omitempty"`
	RequiredSkills []string `json:"required_skills"`
	Color          string   `json:"color"`
	IsActive       bool     `json:"is_active"`
}

// Create creates a shift template
func (s *TemplateService) Create(ctx context.Context, req TemplateRequest) (*repository.ShiftTemplate, error) {
	if err := validateTemplateTimes(req); err != nil {
		return nil, err
	}

	tmpl := &repository.ShiftTemplate{
		Name:           req.Name,
		Weekdays:       pq.Int64Array(req.Weekdays),
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		BreakMinutes:   req.BreakMinutes,
		Location:       req.Location,
		RequiredSkills: pq.StringArray(req.RequiredSkills),
		Color:          req.Color,
		IsActive:       req.IsActive,
	}
	if err := s.templates.Create(ctx, tmpl); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// List lists templates
func (s *TemplateService) List(ctx context.Context, activeOnly bool) ([]*repository.ShiftTemplate, error) {
	return s.templates.List(ctx, activeOnly)
}

// Update replaces a template's definition
func (s *TemplateService) Update(ctx context.Context, id string, req TemplateRequest) (*repository.ShiftTemplate, error) {
	if err := validateTemplateTimes(req); err != nil {
		return nil, err
	}

	tmpl, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	tmpl.Name = req.Name
	tmpl.Weekdays = pq.Int64Array(req.Weekdays)
	tmpl.StartTime = req.StartTime
	tmpl.EndTime = req.EndTime
	tmpl.BreakMinutes = req.BreakMinutes
	tmpl.Location = req.Location
	tmpl.RequiredSkills = pq.StringArray(req.RequiredSkills)
	tmpl.Color = req.Color
	tmpl.IsActive = req.IsActive

	if err := s.templates.Update(ctx, tmpl); err != nil {
		return nil, err
	}
	return tmpl, nil
}

func validateTemplateTimes(req TemplateRequest) error {
	if _, err := repository.ParseClock(req.StartTime); err != nil {
		return errors.BadRequest("start_time must be HH:MM or HH:MM:SS")
	}
	if _, err := repository.ParseClock(req.EndTime); err != nil {
		return errors.BadRequest("end_time must be HH:MM or HH:MM:SS")
	}
	return nil
}
