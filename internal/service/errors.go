package service

import (
	"errors"
	"fmt"

	"catalog-api/internal/domain"
	"catalog-api/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be greater than 0")
	ErrInsufficientStock = repository.ErrInsufficientStock
	ErrIntegrityCleanup  = errors.New("referential integrity cleanup failed")
)

const relatedObjectMissing = "Related object does not exist"

// IntegrityCleanupError is returned when the dependents of a record being
// deleted could not be cleaned up. The deletion does not happen.
type IntegrityCleanupError struct {
	Entity string
	ID     uuid.UUID
	Err    error
}

func (e *IntegrityCleanupError) Error() string {
	return fmt.Sprintf("failed to clean up references to %s %s: %v", e.Entity, e.ID, e.Err)
}

func (e *IntegrityCleanupError) Unwrap() error {
	return e.Err
}

func (e *IntegrityCleanupError) Is(target error) bool {
	return target == ErrIntegrityCleanup
}

// missingReference turns a not found lookup into a validation error on field
func missingReference(field string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NewValidationError(field, relatedObjectMissing)
	}
	return fmt.Errorf("failed to resolve %s: %w", field, err)
}
