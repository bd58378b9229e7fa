package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedErrorsUnwrapToSentinels(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"transition", &TransitionError{Entity: "asset", ID: 1, From: "booked", To: "clean"}, ErrInvalidTransition},
		{"inventory", &InventoryError{Type: "golfCart", Requested: 2, Available: 1}, ErrInsufficientInventory},
		{"unavailable", &UnavailableError{IDs: []uint64{7}}, ErrUnavailableResources},
		{"conflict", &ConflictError{Entity: "assets", Expected: 2, Modified: 1}, ErrConcurrentModification},
		{"not found", NotFound("booking", 3), ErrNotFound},
		{"forbidden", Forbidden("caddy not assigned"), ErrForbidden},
		{"validation", Validation("players must be 1..4"), ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("start round: %w", tc.err)
			assert.ErrorIs(t, wrapped, tc.sentinel)
		})
	}
}

func TestInventoryErrorCarriesCounts(t *testing.T) {
	err := fmt.Errorf("book slot: %w", &InventoryError{Type: "golfCart", Requested: 2, Available: 1})

	var inv *InventoryError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, 2, inv.Requested)
	assert.Equal(t, 1, inv.Available)
	assert.Contains(t, err.Error(), "requested 2, available 1")
}

func TestUnavailableErrorListsIDs(t *testing.T) {
	err := &UnavailableError{IDs: []uint64{4, 9}}
	assert.Equal(t, "caddies not available: [4,9]", err.Error())
}

func TestCheckModified(t *testing.T) {
	assert.NoError(t, CheckModified("assets", 3, 3))

	err := CheckModified("assets", 3, 2)
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.EqualValues(t, 3, ce.Expected)
	assert.EqualValues(t, 2, ce.Modified)
}

func TestStateErrorMessage(t *testing.T) {
	err := &StateError{Entity: "caddy", ID: 7, Status: "available", Want: []string{"booked"}}
	assert.Equal(t, "caddy 7 is 'available', expected 'booked'", err.Error())
	assert.ErrorIs(t, err, ErrInvalidTransition)

	multi := &StateError{Entity: "asset", ID: 3, Status: "broken", Want: []string{"spare", "available"}}
	assert.Equal(t, "asset 3 is 'broken', expected 'spare' or 'available'", multi.Error())
}
