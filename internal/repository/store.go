package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/golf-ops/internal/model"
	"github.com/iliyamo/golf-ops/internal/service"
)

// Store implements service.Store on MySQL.  Each WithTx call runs in one
// database transaction using the repositories' Tx methods.
type Store struct {
	db       *sql.DB
	Assets   *AssetRepo
	Users    *UserRepo
	Bookings *BookingRepo
	Audit    *AuditRepo
}

// NewStore wires the repositories over db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:       db,
		Assets:   NewAssetRepo(db),
		Users:    NewUserRepo(db),
		Bookings: NewBookingRepo(db),
		Audit:    NewAuditRepo(db),
	}
}

// WithTx begins a transaction, runs fn and commits when fn returns nil.
// Any error or panic from fn rolls the transaction back.
func (s *Store) WithTx(ctx context.Context, fn func(tx service.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&sqlTx{s: s, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// sqlTx binds the repositories to one *sql.Tx.
type sqlTx struct {
	s  *Store
	tx *sql.Tx
}

var _ service.Tx = (*sqlTx)(nil)

func (t *sqlTx) LockAvailableAssets(ctx context.Context, typ model.AssetType, limit int) ([]uint64, error) {
	return t.s.Assets.LockAvailableTx(ctx, t.tx, typ, limit)
}

func (t *sqlTx) LockAssets(ctx context.Context, ids []uint64) ([]model.Asset, error) {
	return t.s.Assets.LockByIDsTx(ctx, t.tx, ids)
}

func (t *sqlTx) UpdateAssetStatus(ctx context.Context, ids []uint64, from []model.AssetStatus, to model.AssetStatus) (int64, error) {
	return t.s.Assets.UpdateStatusTx(ctx, t.tx, ids, from, to)
}

func (t *sqlTx) InsertAsset(ctx context.Context, a *model.Asset) error {
	return t.s.Assets.CreateTx(ctx, t.tx, a)
}

func (t *sqlTx) ListAssets(ctx context.Context, f service.AssetFilter) ([]model.Asset, error) {
	return t.s.Assets.ListTx(ctx, t.tx, f)
}

func (t *sqlTx) AssetSummary(ctx context.Context) (model.AssetSummary, error) {
	return t.s.Assets.SummaryTx(ctx, t.tx)
}

func (t *sqlTx) LockAvailableCaddies(ctx context.Context, ids []uint64) ([]uint64, error) {
	return t.s.Users.LockAvailableCaddiesTx(ctx, t.tx, ids)
}

func (t *sqlTx) LockUsers(ctx context.Context, ids []uint64) ([]model.User, error) {
	return t.s.Users.LockByIDsTx(ctx, t.tx, ids)
}

func (t *sqlTx) UpdateCaddyStatus(ctx context.Context, ids []uint64, from []model.CaddyStatus, to model.CaddyStatus) (int64, error) {
	return t.s.Users.UpdateCaddyStatusTx(ctx, t.tx, ids, from, to)
}

func (t *sqlTx) CreateBooking(ctx context.Context, b *model.Booking) error {
	return t.s.Bookings.CreateTx(ctx, t.tx, b)
}

func (t *sqlTx) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	return t.s.Bookings.GetTx(ctx, t.tx, id)
}

func (t *sqlTx) LockBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	return t.s.Bookings.LockTx(ctx, t.tx, id)
}

func (t *sqlTx) UpdateBookingStatus(ctx context.Context, id uint64, from, to model.BookingStatus) (int64, error) {
	return t.s.Bookings.UpdateStatusTx(ctx, t.tx, id, from, to)
}

func (t *sqlTx) ClearBookingResources(ctx context.Context, id uint64) error {
	return t.s.Bookings.ClearResourcesTx(ctx, t.tx, id)
}

func (t *sqlTx) ReplaceBookingAsset(ctx context.Context, bookingID, oldID, newID uint64) (int64, error) {
	return t.s.Bookings.ReplaceAssetTx(ctx, t.tx, bookingID, oldID, newID)
}

func (t *sqlTx) DeleteBooking(ctx context.Context, id uint64) (int64, error) {
	return t.s.Bookings.DeleteTx(ctx, t.tx, id)
}

func (t *sqlTx) UpdateBookingTimeSlot(ctx context.Context, id uint64, slot string) error {
	return t.s.Bookings.UpdateTimeSlotTx(ctx, t.tx, id, slot)
}

func (t *sqlTx) ListBookings(ctx context.Context, f service.BookingFilter) ([]model.Booking, error) {
	return t.s.Bookings.ListTx(ctx, t.tx, f)
}

func (t *sqlTx) InsertAudit(ctx context.Context, e *model.AuditEntry) error {
	return t.s.Audit.InsertTx(ctx, t.tx, e)
}
