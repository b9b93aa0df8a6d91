package utils

import "errors"

// Error kinds. Every DomainError unwraps to exactly one of these.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrDatabaseError = errors.New("database error")
)

type DomainError struct {
	Kind    error
	Message string
}

func (e *DomainError) Error() string { return e.Message }

func (e *DomainError) Unwrap() error { return e.Kind }

func NewDomainError(kind error, message string) *DomainError {
	return &DomainError{Kind: kind, Message: message}
}

var (
	ErrInvalidCredentials = NewDomainError(ErrUnauthorized, "Invalid email or password")
	ErrEmailAlreadyExists = NewDomainError(ErrConflict, "Email already registered")

	ErrPlanNotFound         = NewDomainError(ErrNotFound, "Plan not found")
	ErrPlaceNotFound        = NewDomainError(ErrNotFound, "Place not found")
	ErrPlanForbidden        = NewDomainError(ErrForbidden, "Plan belongs to another user")
	ErrPlanHasNoPlaces      = NewDomainError(ErrValidation, "Plan must have at least one place")
	ErrPlanMissingDates     = NewDomainError(ErrValidation, "Plan must have start and end dates")
	ErrInvalidDateRange     = NewDomainError(ErrValidation, "End date must be after start date")
	ErrPlaceOutsidePlan     = NewDomainError(ErrValidation, "Place dates must be within the plan's date range")
	ErrGenerationInProgress = NewDomainError(ErrConflict, "Generation already in progress for this plan")
	ErrGenerationNotFound   = NewDomainError(ErrNotFound, "No generation found for this plan")
	ErrGeneratedPlanMissing = NewDomainError(ErrNotFound, "No generated plan found")
)
