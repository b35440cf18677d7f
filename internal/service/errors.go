package service

import (
	"fmt"

	"github.com/yourusername/study-engine/internal/models"
)

// Error kinds per spec.md §7, modeled on the teacher's struct-typed
// *AuthRequiredError (internal/service/service.go) — data-carrying
// errors checked at the call site with errors.As, not sentinel vars.

type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found (id: %v)", e.Entity, e.ID)
}

type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s", e.Reason)
}

type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s", e.Reason)
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (field: %s): %s", e.Field, e.Reason)
}

type PartiallyCompleteError struct {
	Placements []models.Placement
}

func (e *PartiallyCompleteError) Error() string {
	return fmt.Sprintf("partially complete: %d placements committed before deadline", len(e.Placements))
}

type BackendUnavailableError struct {
	Cause error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("backend unavailable: %v", e.Cause)
}

func (e *BackendUnavailableError) Unwrap() error { return e.Cause }
