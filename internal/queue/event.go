// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/golf-ops/internal/model"
)

// Booking lifecycle actions.  The routing key of a booking event is
// "booking." + action.
const (
	ActionBooked         = "created"
	ActionRoundStarted   = "round_started"
	ActionRoundEnded     = "round_ended"
	ActionReleased       = "released"
	ActionCancelled      = "cancelled"
	ActionRoundCancelled = "round_cancelled"
	ActionDeleted        = "deleted"
	ActionCartReplaced   = "cart_replaced"
	ActionRescheduled    = "rescheduled"
)

// BookingEvent is published after a lifecycle step commits.  It carries
// the resource claims as they stand after the step so consumers never
// need to query the primary database.
type BookingEvent struct {
	EventID     string   `json:"event_id"`
	Action      string   `json:"action"`
	BookingID   uint64   `json:"booking_id"`
	OwnerID     uint64   `json:"owner_id"`
	ActorID     uint64   `json:"actor_id"`
	ActorRole   string   `json:"actor_role"`
	Status      string   `json:"status"`
	Date        string   `json:"date"`
	TimeSlot    string   `json:"time_slot"`
	CaddyIDs    []uint64 `json:"caddy_ids"`
	GolfCartIDs []uint64 `json:"golf_cart_ids"`
	GolfBagIDs  []uint64 `json:"golf_bag_ids"`
	OccurredAt  string   `json:"occurred_at"`
}

// RoutingKey returns the topic routing key for the event.
func (e BookingEvent) RoutingKey() string { return "booking." + e.Action }

// NewBookingEvent snapshots b for the given action and caller.
func NewBookingEvent(action string, caller model.Caller, b *model.Booking) BookingEvent {
	return BookingEvent{
		EventID:     uuid.NewString(),
		Action:      action,
		BookingID:   b.ID,
		OwnerID:     b.UserID,
		ActorID:     caller.UserID,
		ActorRole:   string(caller.Role),
		Status:      string(b.Status),
		Date:        b.Date.Format("2006-01-02"),
		TimeSlot:    b.TimeSlot,
		CaddyIDs:    b.CaddyIDs,
		GolfCartIDs: b.GolfCartIDs,
		GolfBagIDs:  b.GolfBagIDs,
		OccurredAt:  time.Now().UTC().Format(time.RFC3339),
	}
}

// AuditEvent mirrors an audit_log row for administrative bypasses.
type AuditEvent struct {
	EventID    string           `json:"event_id"`
	Entry      model.AuditEntry `json:"entry"`
	OccurredAt string           `json:"occurred_at"`
}

// RoutingKey returns the topic routing key for the event.
func (e AuditEvent) RoutingKey() string { return "audit." + e.Entry.Action }

// NewAuditEvent wraps an audit entry for publishing.
func NewAuditEvent(entry model.AuditEntry) AuditEvent {
	return AuditEvent{
		EventID:    uuid.NewString(),
		Entry:      entry,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}
