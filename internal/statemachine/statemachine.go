// Package statemachine holds the transition tables for assets, caddies and
// bookings.  Each table maps a current status to the statuses it may move
// to; anything absent is rejected with an apperr.TransitionError.
package statemachine

import (
	"github.com/iliyamo/golf-ops/internal/apperr"
	"github.com/iliyamo/golf-ops/internal/model"
)

// Table is a transition table keyed by current status.
type Table[S ~string] struct {
	entity string
	next   map[S][]S
}

// NewTable builds a table for the named entity.
func NewTable[S ~string](entity string, next map[S][]S) Table[S] {
	return Table[S]{entity: entity, next: next}
}

// Allows reports whether from -> to is an edge of the table.
func (t Table[S]) Allows(from, to S) bool {
	for _, s := range t.next[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Next returns the allowed successors of from.  The slice must not be
// modified.
func (t Table[S]) Next(from S) []S { return t.next[from] }

// Check returns nil when from -> to is allowed, otherwise a
// TransitionError naming the entity.
func (t Table[S]) Check(id uint64, from, to S) error {
	if t.Allows(from, to) {
		return nil
	}
	return &apperr.TransitionError{Entity: t.entity, ID: id, From: string(from), To: string(to)}
}

// Assets is the normal asset lifecycle.  spare -> available is the
// replacement-flow return path.
var Assets = NewTable("asset", map[model.AssetStatus][]model.AssetStatus{
	model.AssetAvailable: {model.AssetBooked, model.AssetSpare},
	model.AssetBooked:    {model.AssetInUse},
	model.AssetInUse:     {model.AssetClean, model.AssetBroken},
	model.AssetClean:     {model.AssetAvailable, model.AssetSpare},
	model.AssetBroken:    {model.AssetClean, model.AssetSpare},
	model.AssetSpare:     {model.AssetInUse, model.AssetAvailable},
})

// AssetCompensations are the inverse edges used only when a booking is
// cancelled.  inUse -> clean is also a forward edge.
var AssetCompensations = NewTable("asset", map[model.AssetStatus][]model.AssetStatus{
	model.AssetBooked: {model.AssetAvailable},
	model.AssetInUse:  {model.AssetClean},
})

// Caddies is the caddy duty cycle.  offDuty, resting and unavailable have
// no outgoing edges; leaving them requires an administrative override.
var Caddies = NewTable("caddy", map[model.CaddyStatus][]model.CaddyStatus{
	model.CaddyBooked:    {model.CaddyOnDuty},
	model.CaddyOnDuty:    {model.CaddyOffDuty, model.CaddyResting, model.CaddyAvailable, model.CaddyCleaning},
	model.CaddyAvailable: {model.CaddyUnavailable, model.CaddyResting},
	model.CaddyCleaning:  {model.CaddyAvailable},
})

// CaddyCompensations are the inverse edges used on cancellation.
var CaddyCompensations = NewTable("caddy", map[model.CaddyStatus][]model.CaddyStatus{
	model.CaddyBooked: {model.CaddyAvailable},
	model.CaddyOnDuty: {model.CaddyCleaning},
})

// Bookings is the booking lifecycle; completed and cancelled are terminal.
var Bookings = NewTable("booking", map[model.BookingStatus][]model.BookingStatus{
	model.BookingBooked: {model.BookingCompleted, model.BookingCancelled},
})
