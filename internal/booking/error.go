package booking

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	ErrNextID           = errors.New("get next id from generator")
	ErrInvalidDateRange = errors.New("check-out must be after check-in")
	ErrNotFound         = errors.New("booking not found")
	ErrPersist          = errors.New("persist bookings")
)

// ValidationError maps each offending input field to what is wrong with it.
type ValidationError struct {
	fields map[string][]string
	cause  error
}

func NewValidationError() *ValidationError {
	//nolint:exhaustruct
	return &ValidationError{
		fields: make(map[string][]string),
	}
}

func IsValidationError(err error) *ValidationError {
	if err == nil {
		return nil
	}

	var validationError *ValidationError

	if errors.As(err, &validationError) {
		return validationError
	}

	return nil
}

func (ve *ValidationError) Add(field, msg string) {
	ve.fields[field] = append(ve.fields[field], msg)
}

func (ve *ValidationError) merge(other *ValidationError) {
	for field, msgs := range other.fields {
		ve.fields[field] = append(ve.fields[field], msgs...)
	}

	if ve.cause == nil {
		ve.cause = other.cause
	}
}

func (ve *ValidationError) fieldsCount() int {
	return len(ve.fields)
}

// orNil keeps a *ValidationError with no fields from turning into a non-nil error.
func (ve *ValidationError) orNil() error {
	if ve.fieldsCount() == 0 {
		return nil
	}

	return ve
}

func (ve *ValidationError) Error() string {
	keys := slices.Sorted(maps.Keys(ve.fields))

	return fmt.Sprintf("validation failed for %v: %+v", keys, ve.fields)
}

func (ve *ValidationError) Fields() map[string][]string {
	out := make(map[string][]string, len(ve.fields))
	for field, msgs := range ve.fields {
		out[field] = slices.Clone(msgs)
	}

	return out
}

func (ve *ValidationError) Unwrap() error {
	return ve.cause
}
