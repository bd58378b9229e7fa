// Package service implements the booking lifecycle and the asset/caddy
// status protocol.  Every operation runs inside one Store transaction:
// it locks the rows it reads, checks the transition tables, applies
// guarded status updates and commits or rolls back as a unit.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/golf-ops/internal/model"
	"github.com/iliyamo/golf-ops/internal/queue"
)

// Store opens transactions over the entity store.  WithTx commits when fn
// returns nil and rolls back on error or panic.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of reads and writes the service performs inside one
// transaction.  Lock* methods take row locks that are held until the
// transaction ends.  Update* methods return the number of rows matched by
// the guard; an empty from slice means the write is unconditional.
type Tx interface {
	// LockAvailableAssets claims up to limit available assets of type t,
	// skipping rows locked by concurrent transactions.
	LockAvailableAssets(ctx context.Context, t model.AssetType, limit int) ([]uint64, error)
	LockAssets(ctx context.Context, ids []uint64) ([]model.Asset, error)
	UpdateAssetStatus(ctx context.Context, ids []uint64, from []model.AssetStatus, to model.AssetStatus) (int64, error)
	InsertAsset(ctx context.Context, a *model.Asset) error
	ListAssets(ctx context.Context, f AssetFilter) ([]model.Asset, error)
	AssetSummary(ctx context.Context) (model.AssetSummary, error)

	// LockAvailableCaddies returns the subset of ids that are caddies in
	// status available, locking them.
	LockAvailableCaddies(ctx context.Context, ids []uint64) ([]uint64, error)
	LockUsers(ctx context.Context, ids []uint64) ([]model.User, error)
	UpdateCaddyStatus(ctx context.Context, ids []uint64, from []model.CaddyStatus, to model.CaddyStatus) (int64, error)

	CreateBooking(ctx context.Context, b *model.Booking) error
	GetBooking(ctx context.Context, id uint64) (*model.Booking, error)
	LockBooking(ctx context.Context, id uint64) (*model.Booking, error)
	UpdateBookingStatus(ctx context.Context, id uint64, from, to model.BookingStatus) (int64, error)
	ClearBookingResources(ctx context.Context, id uint64) error
	ReplaceBookingAsset(ctx context.Context, bookingID, oldID, newID uint64) (int64, error)
	DeleteBooking(ctx context.Context, id uint64) (int64, error)
	UpdateBookingTimeSlot(ctx context.Context, id uint64, slot string) error
	ListBookings(ctx context.Context, f BookingFilter) ([]model.Booking, error)

	InsertAudit(ctx context.Context, e *model.AuditEntry) error
}

// AssetFilter narrows ListAssets.  Zero values match everything.
type AssetFilter struct {
	Type   model.AssetType
	Status model.AssetStatus
}

// BookingFilter narrows ListBookings.  Zero values match everything.
type BookingFilter struct {
	UserID  uint64
	CaddyID uint64
	Status  model.BookingStatus
	Date    time.Time
}

// Publisher receives events after a transaction commits.
type Publisher interface {
	PublishBookingEvent(ctx context.Context, ev queue.BookingEvent) error
	PublishAuditEvent(ctx context.Context, ev queue.AuditEvent) error
}
