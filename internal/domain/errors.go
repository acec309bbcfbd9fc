package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lead or resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateReference signals a unique-constraint collision on the lead
// reference; callers regenerate and retry a bounded number of times.
var ErrDuplicateReference = errors.New("duplicate reference")

// ErrDuplicateSlug signals a slug collision on a content resource.
var ErrDuplicateSlug = errors.New("duplicate slug")

// ValidationError covers bad input shape, size or type. The guest can
// correct and retry.
type ValidationError struct {
	Code    string
	Message string
}

const (
	CodeMissingField    = "missing_field"
	CodeInvalidDates    = "invalid_dates"
	CodeInvalidCategory = "invalid_category"
	CodeInvalidCount    = "invalid_count"
	CodeTooManyGuests   = "too_many_guests"
	CodeUnsupportedType = "unsupported_type"
	CodeTooLarge        = "too_large"
)

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Code, e.Message)
}

func Validation(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

// NoInventoryError means no active hotel/room matched the requested city.
type NoInventoryError struct {
	City string
}

func (e *NoInventoryError) Error() string {
	return fmt.Sprintf("no inventory available in %q", e.City)
}

// InvalidStateError means the attempted transition is not legal from the
// lead's current status. The client's view is stale and should refresh.
type InvalidStateError struct {
	Current   LeadStatus
	Attempted string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s a lead in status %q", e.Attempted, e.Current)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNoInventory(err error) bool {
	var ne *NoInventoryError
	return errors.As(err, &ne)
}

func IsInvalidState(err error) bool {
	var se *InvalidStateError
	return errors.As(err, &se)
}
