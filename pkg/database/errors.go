package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/verawork/vera-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}

// mapCheckConstraint maps specific CHECK constraint names to user-friendly messages.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "date_range_valid"):
		return errors.Validation(map[string]string{
			"end_date": "must not be before start_date",
		})

	case strings.Contains(constraint, "contract_type_valid"):
		return errors.Validation(map[string]string{
			"contract_type": "must be one of: minijob, part_time, full_time",
		})

	case strings.Contains(constraint, "status_valid"):
		return errors.Validation(map[string]string{
			"status": "value is not allowed for this entity",
		})

	case strings.Contains(constraint, "weekday_valid"):
		return errors.Validation(map[string]string{
			"weekday": "must be between 0 (Monday) and 6 (Sunday)",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "payroll_entries_employee_id_month"):
		return "a payroll entry for this employee and month already exists"
	case strings.Contains(constraint, "ical_token"):
		return "calendar token collision, retry the operation"
	case strings.Contains(constraint, "email"):
		return "a record with this email already exists"
	case strings.Contains(constraint, "endpoint"):
		return "this push subscription is already registered"
	default:
		return "a record with these values already exists"
	}
}
