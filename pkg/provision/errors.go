package provision

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrValidation is returned when a required profile field is missing or malformed.
	// Not retried.
	ErrValidation = errors.New("provision: invalid profile")

	// ErrConflict is returned when the email already belongs to a user of another tenant.
	// Not retried; the records are never merged or re-parented.
	ErrConflict = errors.New("provision: account belongs to another tenant")

	// ErrTransientStorage marks storage failures worth one retry: unique constraint
	// races, serialization failures, dropped connections.
	ErrTransientStorage = errors.New("provision: transient storage error")

	// ErrNotFound is returned by Store lookups that match nothing.
	ErrNotFound = errors.New("provision: record not found")
)

// ValidationError names the offending field. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("provision: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConflictError reports which tenant owns the colliding email, so the user can be
// told where to sign in. It matches ErrConflict with errors.Is.
type ConflictError struct {
	Email         string
	OwnerTenantID uuid.UUID
	TargetTenant  uuid.UUID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("provision: email %s belongs to tenant %s, not %s", e.Email, e.OwnerTenantID, e.TargetTenant)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientStorage)
}
