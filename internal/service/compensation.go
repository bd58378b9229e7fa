package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/iliyamo/golf-ops/internal/apperr"
	"github.com/iliyamo/golf-ops/internal/logger"
	"github.com/iliyamo/golf-ops/internal/model"
	"github.com/iliyamo/golf-ops/internal/queue"
	"github.com/iliyamo/golf-ops/internal/statemachine"
)

// CancelBeforeStart returns a booking's claimed carts, bags and caddies to
// available and marks the booking cancelled.  An assigned caddy may cancel
// while still booked; the owner and staff may cancel while no caddy has
// started the round.
func (s *Service) CancelBeforeStart(ctx context.Context, caller model.Caller, bookingID uint64) (*model.Booking, error) {
	var b, released *model.Booking
	err := s.run(ctx, "CancelBeforeStart", caller, func(ctx context.Context, tx Tx) error {
		var err error
		if b, err = tx.LockBooking(ctx, bookingID); err != nil {
			return err
		}
		if err := requireBookingStatus(b, model.BookingBooked); err != nil {
			return err
		}
		caddies, err := lockCaddyStatuses(ctx, tx, b.CaddyIDs)
		if err != nil {
			return err
		}
		switch {
		case caller.Role == model.RoleCaddy:
			if !b.HasCaddy(caller.UserID) {
				return apperr.Forbidden(fmt.Sprintf("caddy %d is not assigned to booking %d", caller.UserID, b.ID))
			}
			if st := caddies[caller.UserID]; st != model.CaddyBooked {
				return &apperr.StateError{Entity: "caddy", ID: caller.UserID, Status: string(st), Want: []string{string(model.CaddyBooked)}}
			}
		case caller.Role.Staff() || b.UserID == caller.UserID:
			for _, id := range b.CaddyIDs {
				if st, ok := caddies[id]; ok && st != model.CaddyBooked {
					return &apperr.StateError{Entity: "caddy", ID: id, Status: string(st), Want: []string{string(model.CaddyBooked)}}
				}
			}
		default:
			return apperr.Forbidden("booking belongs to another user")
		}

		assets, _, err := lockAssetStatuses(ctx, tx, b.AssetIDs())
		if err != nil {
			return err
		}
		if err := applyTransition(statemachine.AssetCompensations, "asset", b.AssetIDs(), assets,
			move[model.AssetStatus]{From: model.AssetBooked, To: model.AssetAvailable},
			assetUpdater(ctx, tx)); err != nil {
			return err
		}
		if err := applyTransition(statemachine.CaddyCompensations, "caddy", b.CaddyIDs, caddies,
			move[model.CaddyStatus]{From: model.CaddyBooked, To: model.CaddyAvailable},
			caddyUpdater(ctx, tx)); err != nil {
			return err
		}
		released, err = cancelBooking(ctx, tx, b)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publishBooking(ctx, queue.ActionCancelled, caller, released)
	return b, nil
}

// CancelDuringRound abandons a round in progress.  Carts and bags in use
// go to clean, caddies on duty go to cleaning, and anything still only
// booked returns to available.  An assigned caddy on duty or staff may
// call it.
func (s *Service) CancelDuringRound(ctx context.Context, caller model.Caller, bookingID uint64) (*model.Booking, error) {
	var b, released *model.Booking
	err := s.run(ctx, "CancelDuringRound", caller, func(ctx context.Context, tx Tx) error {
		var err error
		if b, err = tx.LockBooking(ctx, bookingID); err != nil {
			return err
		}
		caddies, err := lockCaddyStatuses(ctx, tx, b.CaddyIDs)
		if err != nil {
			return err
		}
		switch {
		case caller.Role == model.RoleCaddy:
			if !b.HasCaddy(caller.UserID) {
				return apperr.Forbidden(fmt.Sprintf("caddy %d is not assigned to booking %d", caller.UserID, b.ID))
			}
			if st := caddies[caller.UserID]; st != model.CaddyOnDuty {
				return &apperr.StateError{Entity: "caddy", ID: caller.UserID, Status: string(st), Want: []string{string(model.CaddyOnDuty)}}
			}
		case caller.Role.Staff():
		default:
			return apperr.Forbidden("only an assigned caddy or staff can cancel a round")
		}
		if err := requireBookingStatus(b, model.BookingBooked); err != nil {
			return err
		}

		assets, _, err := lockAssetStatuses(ctx, tx, b.AssetIDs())
		if err != nil {
			return err
		}
		for _, m := range []move[model.AssetStatus]{
			{From: model.AssetInUse, To: model.AssetClean, Lenient: true},
			{From: model.AssetBooked, To: model.AssetAvailable, Lenient: true},
		} {
			if err := applyTransition(statemachine.AssetCompensations, "asset", b.AssetIDs(), assets, m, assetUpdater(ctx, tx)); err != nil {
				return err
			}
		}
		for _, m := range []move[model.CaddyStatus]{
			{From: model.CaddyOnDuty, To: model.CaddyCleaning, Lenient: true},
			{From: model.CaddyBooked, To: model.CaddyAvailable, Lenient: true},
		} {
			if err := applyTransition(statemachine.CaddyCompensations, "caddy", b.CaddyIDs, caddies, m, caddyUpdater(ctx, tx)); err != nil {
				return err
			}
		}
		released, err = cancelBooking(ctx, tx, b)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publishBooking(ctx, queue.ActionRoundCancelled, caller, released)
	return b, nil
}

// cancelBooking clears b's resource lists and moves it to cancelled.  It
// returns a copy of b as it was before the lists were cleared.
func cancelBooking(ctx context.Context, tx Tx, b *model.Booking) (*model.Booking, error) {
	if err := statemachine.Bookings.Check(b.ID, b.Status, model.BookingCancelled); err != nil {
		return nil, err
	}
	if err := tx.ClearBookingResources(ctx, b.ID); err != nil {
		return nil, fmt.Errorf("clear booking resources: %w", err)
	}
	n, err := tx.UpdateBookingStatus(ctx, b.ID, b.Status, model.BookingCancelled)
	if err != nil {
		return nil, err
	}
	if err := apperr.CheckModified("bookings", 1, n); err != nil {
		return nil, err
	}
	before := *b
	before.Status = model.BookingCancelled
	b.CaddyIDs = []uint64{}
	b.GolfCartIDs = []uint64{}
	b.GolfBagIDs = []uint64{}
	b.Status = model.BookingCancelled
	return &before, nil
}

// DeleteBooking is the administrative bulk release: every referenced
// asset and caddy is forced to available whatever its status, the booking
// row is removed and the deletion is recorded in the audit log.
func (s *Service) DeleteBooking(ctx context.Context, caller model.Caller, bookingID uint64) error {
	if caller.Role != model.RoleAdmin {
		return apperr.Forbidden("only admins can delete bookings")
	}
	var (
		b     *model.Booking
		entry *model.AuditEntry
	)
	err := s.run(ctx, "DeleteBooking", caller, func(ctx context.Context, tx Tx) error {
		var err error
		if b, err = tx.LockBooking(ctx, bookingID); err != nil {
			return err
		}
		assets, _, err := lockAssetStatuses(ctx, tx, b.AssetIDs())
		if err != nil {
			return err
		}
		if len(assets) > 0 {
			ids := keys(assets)
			n, err := tx.UpdateAssetStatus(ctx, ids, nil, model.AssetAvailable)
			if err != nil {
				return err
			}
			if err := apperr.CheckModified("assets", len(ids), n); err != nil {
				return err
			}
		}
		caddies, err := lockCaddyStatuses(ctx, tx, b.CaddyIDs)
		if err != nil {
			return err
		}
		if len(caddies) > 0 {
			ids := keys(caddies)
			n, err := tx.UpdateCaddyStatus(ctx, ids, nil, model.CaddyAvailable)
			if err != nil {
				return err
			}
			if err := apperr.CheckModified("caddies", len(ids), n); err != nil {
				return err
			}
		}
		n, err := tx.DeleteBooking(ctx, b.ID)
		if err != nil {
			return err
		}
		if err := apperr.CheckModified("bookings", 1, n); err != nil {
			return err
		}
		entry = &model.AuditEntry{
			ActorID:   caller.UserID,
			ActorRole: caller.Role,
			Action:    model.AuditDeleteBooking,
			Entity:    "booking",
			EntityID:  b.ID,
			From:      string(b.Status),
			To:        "deleted",
			Detail:    fmt.Sprintf("released carts=%v bags=%v caddies=%v", b.GolfCartIDs, b.GolfBagIDs, b.CaddyIDs),
		}
		return tx.InsertAudit(ctx, entry)
	})
	if err != nil {
		return err
	}
	s.publishBooking(ctx, queue.ActionDeleted, caller, b)
	s.publishAudit(ctx, entry)
	return nil
}

// ReplaceResult is the outcome of ReplaceGolfCart.  SpareID is zero when
// no available cart could be moved into the spare pool.
type ReplaceResult struct {
	Booking *model.Booking `json:"booking"`
	OldCart model.Asset    `json:"old_cart"`
	NewCart model.Asset    `json:"new_cart"`
	SpareID uint64         `json:"spare_id,omitempty"`
}

// ReplaceGolfCart swaps a faulty cart out of a booking mid-round; at least
// one assigned caddy must be on duty.  The new
// cart must be a spare or available golf cart that the booking does not
// already hold; it goes straight to inUse and the old cart to broken.
// Afterwards one available cart, if any, is demoted to spare to keep the
// standing spare pool.
func (s *Service) ReplaceGolfCart(ctx context.Context, caller model.Caller, bookingID, oldID, newID uint64) (*ReplaceResult, error) {
	if !caller.Role.Staff() {
		return nil, apperr.Forbidden("only starters and admins can replace golf carts")
	}
	if oldID == 0 || newID == 0 {
		return nil, apperr.Validation("oldGolfCartId and newGolfCartId are required")
	}
	if oldID == newID {
		return nil, apperr.Validation("replacement cart must differ from the old cart")
	}
	var (
		res     *ReplaceResult
		noSpare bool
	)
	err := s.run(ctx, "ReplaceGolfCart", caller, func(ctx context.Context, tx Tx) error {
		b, err := tx.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := requireBookingStatus(b, model.BookingBooked); err != nil {
			return err
		}
		caddies, err := lockCaddyStatuses(ctx, tx, b.CaddyIDs)
		if err != nil {
			return err
		}
		if !roundStarted(caddies) {
			return &apperr.StateError{Entity: "booking", ID: b.ID, Status: "not started", Want: []string{"in round"}}
		}
		if !b.HasGolfCart(oldID) {
			return apperr.Validation("golf cart %d is not part of booking %d", oldID, b.ID)
		}
		if contains(b.AssetIDs(), newID) {
			return apperr.Validation("golf cart %d is already assigned to booking %d", newID, b.ID)
		}
		_, rows, err := lockAssetStatuses(ctx, tx, []uint64{oldID, newID})
		if err != nil {
			return err
		}
		oldCart, ok := rows[oldID]
		if !ok {
			return apperr.NotFound("asset", oldID)
		}
		newCart, ok := rows[newID]
		if !ok {
			return apperr.NotFound("asset", newID)
		}
		if newCart.Type != model.AssetGolfCart {
			return apperr.Validation("asset %d is a %s, not a golf cart", newID, newCart.Type)
		}
		switch newCart.Status {
		case model.AssetSpare:
		case model.AssetAvailable:
			// An available cart joins the round through the spare pool.
			if err := statemachine.Assets.Check(newID, model.AssetAvailable, model.AssetSpare); err != nil {
				return err
			}
		default:
			return &apperr.StateError{Entity: "asset", ID: newID, Status: string(newCart.Status),
				Want: []string{string(model.AssetSpare), string(model.AssetAvailable)}}
		}
		if err := statemachine.Assets.Check(newID, model.AssetSpare, model.AssetInUse); err != nil {
			return err
		}

		n, err := tx.UpdateAssetStatus(ctx, []uint64{newID}, []model.AssetStatus{model.AssetSpare, model.AssetAvailable}, model.AssetInUse)
		if err != nil {
			return err
		}
		if err := apperr.CheckModified("assets", 1, n); err != nil {
			return err
		}
		if n, err = tx.UpdateAssetStatus(ctx, []uint64{oldID}, nil, model.AssetBroken); err != nil {
			return err
		}
		if err := apperr.CheckModified("assets", 1, n); err != nil {
			return err
		}
		if n, err = tx.ReplaceBookingAsset(ctx, b.ID, oldID, newID); err != nil {
			return err
		}
		if err := apperr.CheckModified("bookings", 1, n); err != nil {
			return err
		}
		for i, id := range b.GolfCartIDs {
			if id == oldID {
				b.GolfCartIDs[i] = newID
			}
		}
		oldCart.Status = model.AssetBroken
		newCart.Status = model.AssetInUse
		res = &ReplaceResult{Booking: b, OldCart: oldCart, NewCart: newCart}

		if !s.replenishSpare {
			return nil
		}
		spare, err := tx.LockAvailableAssets(ctx, model.AssetGolfCart, 1)
		if err != nil {
			return fmt.Errorf("select spare candidate: %w", err)
		}
		if len(spare) == 0 {
			noSpare = true
			return nil
		}
		if n, err = tx.UpdateAssetStatus(ctx, spare, []model.AssetStatus{model.AssetAvailable}, model.AssetSpare); err != nil {
			return err
		}
		if err := apperr.CheckModified("assets", 1, n); err != nil {
			return err
		}
		res.SpareID = spare[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	if noSpare {
		logger.WarnLogger.WithField("booking_id", bookingID).Warn("no available golf cart left to replenish the spare pool")
	}
	s.publishBooking(ctx, queue.ActionCartReplaced, caller, res.Booking)
	return res, nil
}

func keys[S any](m map[uint64]S) []uint64 {
	out := make([]uint64, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// roundStarted reports whether any assigned caddy has gone on duty.
func roundStarted(caddies map[uint64]model.CaddyStatus) bool {
	for _, st := range caddies {
		if st == model.CaddyOnDuty {
			return true
		}
	}
	return false
}
