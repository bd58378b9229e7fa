// Package apperr defines the error taxonomy shared by the state machines,
// the service layer and the repositories.  Sentinel values are compared
// with errors.Is; the typed errors carry the entities and counts involved
// so handlers can explain a failure (e.g. "requested 3, available 1").
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a referenced booking, asset or user
	// does not exist.  Handlers translate it into HTTP 404.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller lacks the role or the
	// assignment relationship required by an operation.  HTTP 403.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidTransition is returned when a requested status change is
	// not in the allowed-next set of the entity's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInsufficientInventory is returned when fewer available assets of
	// a type exist than requested.
	ErrInsufficientInventory = errors.New("insufficient inventory")

	// ErrUnavailableResources is returned when explicitly requested
	// caddies are not valid or not available.
	ErrUnavailableResources = errors.New("unavailable resources")

	// ErrConcurrentModification is returned when a guarded bulk update
	// touched fewer rows than expected.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrValidation is returned for malformed or missing input.
	ErrValidation = errors.New("validation error")
)

// NotFound wraps ErrNotFound with the entity name and identifier.
func NotFound(entity string, id uint64) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}

// Forbidden wraps ErrForbidden with a reason.
func Forbidden(reason string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, reason)
}

// Validation wraps ErrValidation with a formatted message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// TransitionError describes a rejected status change.
type TransitionError struct {
	Entity string
	ID     uint64
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("%s status cannot change from '%s' to '%s'", e.Entity, e.From, e.To)
	}
	return fmt.Sprintf("%s %d status cannot change from '%s' to '%s'", e.Entity, e.ID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// StateError reports an entity that is not in the status an operation
// requires, e.g. a caddy starting a round while not booked.
type StateError struct {
	Entity string
	ID     uint64
	Status string
	Want   []string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s %d is '%s', expected '%s'", e.Entity, e.ID, e.Status, strings.Join(e.Want, "' or '"))
}

func (e *StateError) Unwrap() error { return ErrInvalidTransition }

// InventoryError reports a reservation that could not be satisfied from
// the available pool.
type InventoryError struct {
	Type      string
	Requested int
	Available int
}

func (e *InventoryError) Error() string {
	return fmt.Sprintf("not enough %s available: requested %d, available %d", e.Type, e.Requested, e.Available)
}

func (e *InventoryError) Unwrap() error { return ErrInsufficientInventory }

// UnavailableError names the requested caddies that could not be claimed.
type UnavailableError struct {
	IDs []uint64
}

func (e *UnavailableError) Error() string {
	parts := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		parts[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("caddies not available: [%s]", strings.Join(parts, ","))
}

func (e *UnavailableError) Unwrap() error { return ErrUnavailableResources }

// ConflictError reports a guarded update whose modified count did not
// match the number of referenced rows.
type ConflictError struct {
	Entity   string
	Expected int64
	Modified int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s changed concurrently: expected %d updates, applied %d", e.Entity, e.Expected, e.Modified)
}

func (e *ConflictError) Unwrap() error { return ErrConcurrentModification }

// CheckModified returns a ConflictError unless modified equals expected.
func CheckModified(entity string, expected int, modified int64) error {
	if int64(expected) != modified {
		return &ConflictError{Entity: entity, Expected: int64(expected), Modified: modified}
	}
	return nil
}
