// Package apperr defines the error taxonomy shared by the billing core.
// Data-layer failures are wrapped into one of these categories so the HTTP
// layer can map them to status codes without inspecting SQL errors.
package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	ErrNotFound            = errors.New("billing: not found")
	ErrDuplicateAssignment = errors.New("billing: duplicate assignment")
	ErrConstraintViolation = errors.New("billing: constraint violation")
	ErrNumberGeneration    = errors.New("billing: invoice number generation failed")
)

// ValidationError reports a malformed or missing request field. It is
// raised before any write, so no rollback is implied.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("billing: validation failed for %s: %s", e.Field, e.Message)
}

func Validation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NotFound wraps ErrNotFound with the entity and key that missed.
func NotFound(entity string, key any) error {
	return fmt.Errorf("%w: %s %v", ErrNotFound, entity, key)
}

// DuplicateAssignment wraps ErrDuplicateAssignment for a rejected create.
func DuplicateAssignment(customerID, planID string) error {
	return fmt.Errorf("%w: customer %s already assigned plan %s", ErrDuplicateAssignment, customerID, planID)
}

// Constraint wraps a database constraint failure (bad item id, duplicate
// pair, non-positive quantity) so callers can match on the category while
// keeping the driver error in the chain.
func Constraint(err error) error {
	return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
}
