package model

import "time"

// AuditEntry records an administrative bypass of the guarded state
// machine: a direct status override or a forced booking deletion.  It
// is written in the same transaction as the change it describes.
type AuditEntry struct {
	ID        uint64    `json:"id"`
	ActorID   uint64    `json:"actor_id"`
	ActorRole Role      `json:"actor_role"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	EntityID  uint64    `json:"entity_id"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Audit actions.
const (
	AuditOverrideAsset = "override_asset_status"
	AuditOverrideCaddy = "override_caddy_status"
	AuditDeleteBooking = "delete_booking"
)
