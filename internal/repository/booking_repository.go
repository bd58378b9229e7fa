package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/golf-ops/internal/apperr"
	"github.com/iliyamo/golf-ops/internal/model"
	"github.com/iliyamo/golf-ops/internal/service"
)

const (
	bookingColumns = `b.id, b.user_id, b.play_date, b.time_slot, b.course_type, b.players, b.group_name,
	b.golf_cart_qty, b.golf_bag_qty, b.total_price, b.is_paid, b.status, b.created_at, b.updated_at`
	dateLayout = "2006-01-02"
)

// BookingRepo persists bookings together with their caddy and asset
// references (booking_caddies, booking_assets).  Reference rows keep the
// original order through their position column.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// CreateTx inserts b and its reference rows.  b.ID is set on success.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (user_id, play_date, time_slot, course_type, players, group_name,
		   golf_cart_qty, golf_bag_qty, total_price, is_paid, status)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		b.UserID, b.Date.UTC().Format(dateLayout), b.TimeSlot, b.CourseType, b.Players, b.GroupName,
		b.GolfCartQty, b.GolfBagQty, b.TotalPrice, b.IsPaid, string(b.Status))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	for i, cid := range b.CaddyIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO booking_caddies (booking_id, caddy_id, position) VALUES (?,?,?)",
			b.ID, cid, i); err != nil {
			return err
		}
	}
	pos := 0
	for _, group := range []struct {
		t   model.AssetType
		ids []uint64
	}{{model.AssetGolfCart, b.GolfCartIDs}, {model.AssetGolfBag, b.GolfBagIDs}} {
		for _, aid := range group.ids {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO booking_assets (booking_id, asset_id, asset_type, position) VALUES (?,?,?,?)",
				b.ID, aid, string(group.t), pos); err != nil {
				return err
			}
			pos++
		}
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	return nil
}

// GetTx loads one booking with its references.
func (r *BookingRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	return r.get(ctx, tx, id, "")
}

// LockTx loads one booking and locks its row until tx ends.
func (r *BookingRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	return r.get(ctx, tx, id, " FOR UPDATE")
}

func (r *BookingRepo) get(ctx context.Context, tx *sql.Tx, id uint64, suffix string) (*model.Booking, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings b WHERE b.id=?"+suffix, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("booking", id)
	}
	if err != nil {
		return nil, err
	}
	list := []model.Booking{b}
	if err := r.loadRefs(ctx, tx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// UpdateStatusTx moves the booking from -> to and returns the matched row
// count (0 when the booking is missing or not in from).
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, from, to model.BookingStatus) (int64, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE bookings SET status=?, updated_at=CURRENT_TIMESTAMP WHERE id=? AND status=?",
		string(to), id, string(from))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ClearResourcesTx drops every caddy and asset reference of the booking.
func (r *BookingRepo) ClearResourcesTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM booking_caddies WHERE booking_id=?", id); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, "DELETE FROM booking_assets WHERE booking_id=?", id)
	return err
}

// ReplaceAssetTx swaps oldID for newID in the booking's asset references.
func (r *BookingRepo) ReplaceAssetTx(ctx context.Context, tx *sql.Tx, bookingID, oldID, newID uint64) (int64, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE booking_assets SET asset_id=? WHERE booking_id=? AND asset_id=?",
		newID, bookingID, oldID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteTx removes the booking; reference rows cascade.
func (r *BookingRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) (int64, error) {
	res, err := tx.ExecContext(ctx, "DELETE FROM bookings WHERE id=?", id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateTimeSlotTx changes the tee time label.
func (r *BookingRepo) UpdateTimeSlotTx(ctx context.Context, tx *sql.Tx, id uint64, slot string) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE bookings SET time_slot=?, updated_at=CURRENT_TIMESTAMP WHERE id=?", slot, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("booking", id)
	}
	return nil
}

// ListTx returns bookings matching f ordered by id.
func (r *BookingRepo) ListTx(ctx context.Context, tx *sql.Tx, f service.BookingFilter) ([]model.Booking, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != 0 {
		where = append(where, "b.user_id=?")
		args = append(args, f.UserID)
	}
	if f.CaddyID != 0 {
		where = append(where, "EXISTS (SELECT 1 FROM booking_caddies bc WHERE bc.booking_id=b.id AND bc.caddy_id=?)")
		args = append(args, f.CaddyID)
	}
	if f.Status != "" {
		where = append(where, "b.status=?")
		args = append(args, string(f.Status))
	}
	if !f.Date.IsZero() {
		where = append(where, "b.play_date=?")
		args = append(args, f.Date.UTC().Format(dateLayout))
	}
	q := "SELECT " + bookingColumns + " FROM bookings b"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY b.id"

	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if err := r.loadRefs(ctx, tx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// loadRefs fills caddy and asset ids for the given bookings with one
// query per reference table.
func (r *BookingRepo) loadRefs(ctx context.Context, tx *sql.Tx, list []model.Booking) error {
	if len(list) == 0 {
		return nil
	}
	idx := make(map[uint64]int, len(list))
	ids := make([]uint64, len(list))
	for i := range list {
		idx[list[i].ID] = i
		ids[i] = list[i].ID
		list[i].CaddyIDs = []uint64{}
		list[i].GolfCartIDs = []uint64{}
		list[i].GolfBagIDs = []uint64{}
	}
	in := "(" + placeholders(len(ids)) + ")"

	rows, err := tx.QueryContext(ctx,
		"SELECT booking_id, caddy_id FROM booking_caddies WHERE booking_id IN "+in+" ORDER BY booking_id, position",
		idArgs(ids)...)
	if err != nil {
		return err
	}
	for rows.Next() {
		var bid, cid uint64
		if err := rows.Scan(&bid, &cid); err != nil {
			rows.Close()
			return err
		}
		b := &list[idx[bid]]
		b.CaddyIDs = append(b.CaddyIDs, cid)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	rows, err = tx.QueryContext(ctx,
		"SELECT booking_id, asset_id, asset_type FROM booking_assets WHERE booking_id IN "+in+" ORDER BY booking_id, position",
		idArgs(ids)...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			bid, aid uint64
			t        model.AssetType
		)
		if err := rows.Scan(&bid, &aid, &t); err != nil {
			return err
		}
		b := &list[idx[bid]]
		if t == model.AssetGolfCart {
			b.GolfCartIDs = append(b.GolfCartIDs, aid)
		} else {
			b.GolfBagIDs = append(b.GolfBagIDs, aid)
		}
	}
	return rows.Err()
}

func scanBooking(s rowScanner) (model.Booking, error) {
	var b model.Booking
	err := s.Scan(&b.ID, &b.UserID, &b.Date, &b.TimeSlot, &b.CourseType, &b.Players, &b.GroupName,
		&b.GolfCartQty, &b.GolfBagQty, &b.TotalPrice, &b.IsPaid, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}
