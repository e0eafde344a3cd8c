package application

import (
	"errors"
	"fmt"

	"github.com/example/room-booking/internal/policy"
)

var (
	// ErrForbidden is matched by every ForbiddenError.
	ErrForbidden = errors.New("application: forbidden")
	// ErrNotFound is returned when the requested resource does not exist or is not visible.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a resource with the same identity is already stored.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidState is matched by every InvalidStateError.
	ErrInvalidState = errors.New("application: invalid state transition")
	// ErrConflict is matched by every ConflictError.
	ErrConflict = errors.New("application: booking conflict")
	// ErrStoreUnavailable is matched by every StoreUnavailableError.
	ErrStoreUnavailable = errors.New("application: store unavailable")
)

// ValidationError maps request fields to a human readable problem.
type ValidationError struct {
	FieldErrors map[string]string
}

func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether at least one field was rejected.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message per field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// merge folds other into v without overwriting existing fields.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// ForbiddenError reports that the actor lacks the role or ownership for an action.
type ForbiddenError struct {
	Action policy.Action
	// Anonymous is set when the caller presented no identity at all.
	Anonymous bool
}

func (e *ForbiddenError) Error() string {
	if e.Anonymous {
		return fmt.Sprintf("authentication required to %s", e.Action)
	}
	return fmt.Sprintf("not allowed to %s", e.Action)
}

// Is makes errors.Is(err, ErrForbidden) hold.
func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

func forbidden(actor policy.Actor, action policy.Action) error {
	return &ForbiddenError{Action: action, Anonymous: actor.IsAnonymous()}
}

// InvalidStateError reports a transition that is not legal from the booking's current status.
type InvalidStateError struct {
	BookingID string
	Status    BookingStatus
	Action    policy.Action
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("booking %s is %s and cannot %s", e.BookingID, e.Status, e.Action)
}

// Is makes errors.Is(err, ErrInvalidState) hold.
func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }

// ConflictError reports that an approved booking already occupies part of the window.
type ConflictError struct {
	BookingID            string
	ConflictingBookingID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("booking %s overlaps approved booking %s", e.BookingID, e.ConflictingBookingID)
}

// Is makes errors.Is(err, ErrConflict) hold.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// StoreUnavailableError wraps a failure of the entity store. The core never retries it.
type StoreUnavailableError struct {
	Operation string
	Err       error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Operation, e.Err)
}

// Unwrap exposes the store error.
func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStoreUnavailable) hold.
func (e *StoreUnavailableError) Is(target error) bool { return target == ErrStoreUnavailable }

// isApplicationError reports whether err already belongs to the service taxonomy.
func isApplicationError(err error) bool {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		return true
	case errors.Is(err, ErrForbidden),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrAlreadyExists),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrStoreUnavailable):
		return true
	}
	return false
}
