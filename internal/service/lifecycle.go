package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/golf-ops/internal/apperr"
	"github.com/iliyamo/golf-ops/internal/model"
	"github.com/iliyamo/golf-ops/internal/queue"
	"github.com/iliyamo/golf-ops/internal/statemachine"
)

// BookingRequest is the input of BookSlot.  Repeated ids in CaddyIDs are
// collapsed to one assignment at the first occurrence's position.
type BookingRequest struct {
	// UserID is the booking owner.  Zero means the caller; staff may book
	// on behalf of another user.
	UserID      uint64
	Date        time.Time
	TimeSlot    string
	CourseType  string
	Players     int
	GroupName   string
	CaddyIDs    []uint64
	GolfCartQty int
	GolfBagQty  int
	TotalPrice  int64
	IsPaid      bool
}

func (r *BookingRequest) validate() error {
	r.TimeSlot = strings.TrimSpace(r.TimeSlot)
	r.GroupName = strings.TrimSpace(r.GroupName)
	switch {
	case r.Date.IsZero():
		return apperr.Validation("date is required")
	case r.TimeSlot == "":
		return apperr.Validation("time_slot is required")
	case r.CourseType != model.Course9 && r.CourseType != model.Course18:
		return apperr.Validation("course_type must be %q or %q", model.Course9, model.Course18)
	case r.Players < 1 || r.Players > 4:
		return apperr.Validation("players must be between 1 and 4")
	case r.GroupName == "":
		return apperr.Validation("group_name is required")
	case r.GolfCartQty < 0 || r.GolfBagQty < 0:
		return apperr.Validation("quantities must not be negative")
	case r.TotalPrice < 0:
		return apperr.Validation("total_price must not be negative")
	}
	return nil
}

// BookSlot reserves the requested carts, bags and caddies and records the
// booking.  Any allocator failure rolls every reservation back.
func (s *Service) BookSlot(ctx context.Context, caller model.Caller, req BookingRequest) (*model.Booking, error) {
	if !caller.Is(model.RoleUser, model.RoleStarter, model.RoleAdmin) {
		return nil, apperr.Forbidden("caddies cannot create bookings")
	}
	owner := caller.UserID
	if req.UserID != 0 && req.UserID != caller.UserID {
		if !caller.Role.Staff() {
			return nil, apperr.Forbidden("only staff can book for another user")
		}
		owner = req.UserID
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	var b *model.Booking
	err := s.run(ctx, "BookSlot", caller, func(ctx context.Context, tx Tx) error {
		if owner != caller.UserID {
			users, err := tx.LockUsers(ctx, []uint64{owner})
			if err != nil {
				return err
			}
			if len(users) == 0 {
				return apperr.NotFound("user", owner)
			}
		}
		carts, err := ReserveAssets(ctx, tx, model.AssetGolfCart, req.GolfCartQty)
		if err != nil {
			return err
		}
		bags, err := ReserveAssets(ctx, tx, model.AssetGolfBag, req.GolfBagQty)
		if err != nil {
			return err
		}
		caddies, err := ReserveCaddies(ctx, tx, req.CaddyIDs)
		if err != nil {
			return err
		}
		b = &model.Booking{
			UserID:      owner,
			Date:        req.Date,
			TimeSlot:    req.TimeSlot,
			CourseType:  req.CourseType,
			Players:     req.Players,
			GroupName:   req.GroupName,
			CaddyIDs:    caddies,
			GolfCartIDs: carts,
			GolfBagIDs:  bags,
			GolfCartQty: req.GolfCartQty,
			GolfBagQty:  req.GolfBagQty,
			TotalPrice:  req.TotalPrice,
			IsPaid:      req.IsPaid,
			Status:      model.BookingBooked,
		}
		if err := tx.CreateBooking(ctx, b); err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishBooking(ctx, queue.ActionBooked, caller, b)
	return b, nil
}

// GetBooking returns a booking visible to caller: its owner, an assigned
// caddy, or staff.
func (s *Service) GetBooking(ctx context.Context, caller model.Caller, id uint64) (*model.Booking, error) {
	var b *model.Booking
	err := s.run(ctx, "GetBooking", caller, func(ctx context.Context, tx Tx) error {
		var err error
		b, err = tx.GetBooking(ctx, id)
		if err != nil {
			return err
		}
		return canView(caller, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListBookings returns the caller's own bookings, the bookings a caddy is
// assigned to, or every booking for staff.
func (s *Service) ListBookings(ctx context.Context, caller model.Caller, f BookingFilter) ([]model.Booking, error) {
	switch {
	case caller.Role.Staff():
	case caller.Role == model.RoleCaddy:
		f.UserID = 0
		f.CaddyID = caller.UserID
	default:
		f.UserID = caller.UserID
		f.CaddyID = 0
	}
	var out []model.Booking
	err := s.run(ctx, "ListBookings", caller, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.ListBookings(ctx, f)
		return err
	})
	return out, err
}

// UpdateTimeSlot moves a booking that has not been played yet to another
// time slot.  Owner or staff only.
func (s *Service) UpdateTimeSlot(ctx context.Context, caller model.Caller, id uint64, slot string) (*model.Booking, error) {
	slot = strings.TrimSpace(slot)
	if slot == "" {
		return nil, apperr.Validation("time_slot is required")
	}
	var b *model.Booking
	err := s.run(ctx, "UpdateTimeSlot", caller, func(ctx context.Context, tx Tx) error {
		var err error
		if b, err = tx.LockBooking(ctx, id); err != nil {
			return err
		}
		if b.UserID != caller.UserID && !caller.Role.Staff() {
			return apperr.Forbidden("only the owner or staff can reschedule a booking")
		}
		if err := requireBookingStatus(b, model.BookingBooked); err != nil {
			return err
		}
		if err := tx.UpdateBookingTimeSlot(ctx, id, slot); err != nil {
			return err
		}
		b.TimeSlot = slot
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishBooking(ctx, queue.ActionRescheduled, caller, b)
	return b, nil
}

// StartRound moves the booking's carts and bags from booked to inUse and
// the acting caddy from booked to onDuty.  Assets already inUse were
// started by a co-caddy and are left as they are.
func (s *Service) StartRound(ctx context.Context, caller model.Caller, bookingID uint64) (*model.Booking, error) {
	var b *model.Booking
	err := s.run(ctx, "StartRound", caller, func(ctx context.Context, tx Tx) error {
		var err error
		if b, err = tx.LockBooking(ctx, bookingID); err != nil {
			return err
		}
		caddy, err := lockActingCaddy(ctx, tx, caller, b)
		if err != nil {
			return err
		}
		if err := requireCaddyStatus(caddy, model.CaddyBooked); err != nil {
			return err
		}
		if err := requireBookingStatus(b, model.BookingBooked); err != nil {
			return err
		}
		assets, _, err := lockAssetStatuses(ctx, tx, b.AssetIDs())
		if err != nil {
			return err
		}
		if err := applyTransition(statemachine.Assets, "asset", b.AssetIDs(), assets,
			move[model.AssetStatus]{From: model.AssetBooked, To: model.AssetInUse, Done: []model.AssetStatus{model.AssetInUse}},
			assetUpdater(ctx, tx)); err != nil {
			return err
		}
		return applyTransition(statemachine.Caddies, "caddy", []uint64{caddy.ID},
			map[uint64]model.CaddyStatus{caddy.ID: caddy.CaddyStatus},
			move[model.CaddyStatus]{From: model.CaddyBooked, To: model.CaddyOnDuty},
			caddyUpdater(ctx, tx))
	})
	if err != nil {
		return nil, err
	}
	s.publishBooking(ctx, queue.ActionRoundStarted, caller, b)
	return b, nil
}

// EndRound moves the carts and bags from inUse to clean, the acting caddy
// from onDuty to cleaning and the booking to completed.  A booking already
// completed by a co-caddy is accepted whatever its assets' statuses are by
// then.
func (s *Service) EndRound(ctx context.Context, caller model.Caller, bookingID uint64) (*model.Booking, error) {
	var b *model.Booking
	err := s.run(ctx, "EndRound", caller, func(ctx context.Context, tx Tx) error {
		var err error
		if b, err = tx.LockBooking(ctx, bookingID); err != nil {
			return err
		}
		caddy, err := lockActingCaddy(ctx, tx, caller, b)
		if err != nil {
			return err
		}
		if err := requireCaddyStatus(caddy, model.CaddyOnDuty); err != nil {
			return err
		}
		if err := requireBookingStatus(b, model.BookingBooked, model.BookingCompleted); err != nil {
			return err
		}
		assets, _, err := lockAssetStatuses(ctx, tx, b.AssetIDs())
		if err != nil {
			return err
		}
		// Once a co-caddy has completed the booking its assets may already
		// be released or repaired; only the caddy is left to wind down.
		if err := applyTransition(statemachine.Assets, "asset", b.AssetIDs(), assets,
			move[model.AssetStatus]{
				From:    model.AssetInUse,
				To:      model.AssetClean,
				Done:    []model.AssetStatus{model.AssetClean, model.AssetBroken},
				Lenient: b.Status == model.BookingCompleted,
			},
			assetUpdater(ctx, tx)); err != nil {
			return err
		}
		if err := applyTransition(statemachine.Caddies, "caddy", []uint64{caddy.ID},
			map[uint64]model.CaddyStatus{caddy.ID: caddy.CaddyStatus},
			move[model.CaddyStatus]{From: model.CaddyOnDuty, To: model.CaddyCleaning},
			caddyUpdater(ctx, tx)); err != nil {
			return err
		}
		if b.Status == model.BookingCompleted {
			return nil
		}
		if err := statemachine.Bookings.Check(b.ID, b.Status, model.BookingCompleted); err != nil {
			return err
		}
		n, err := tx.UpdateBookingStatus(ctx, b.ID, model.BookingBooked, model.BookingCompleted)
		if err != nil {
			return err
		}
		if err := apperr.CheckModified("bookings", 1, n); err != nil {
			return err
		}
		b.Status = model.BookingCompleted
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishBooking(ctx, queue.ActionRoundEnded, caller, b)
	return b, nil
}

// Release is the caddy's self-release after a completed round: the
// booking's assets that are still clean become available and the caddy
// moves from cleaning to available.  A caddy that is already available
// gets the unchanged record back and nothing is written.
func (s *Service) Release(ctx context.Context, caller model.Caller, bookingID uint64) (*model.User, error) {
	if caller.Role != model.RoleCaddy {
		return nil, apperr.Forbidden("only caddies can release themselves")
	}
	var (
		caddy   *model.User
		b       *model.Booking
		changed bool
	)
	err := s.run(ctx, "Release", caller, func(ctx context.Context, tx Tx) error {
		users, err := tx.LockUsers(ctx, []uint64{caller.UserID})
		if err != nil {
			return err
		}
		if len(users) == 0 {
			return apperr.NotFound("caddy", caller.UserID)
		}
		caddy = &users[0]
		if caddy.CaddyStatus == model.CaddyAvailable {
			return nil
		}
		if err := requireCaddyStatus(caddy, model.CaddyCleaning); err != nil {
			return err
		}
		if b, err = tx.LockBooking(ctx, bookingID); err != nil {
			return err
		}
		if !b.HasCaddy(caddy.ID) {
			return apperr.Forbidden(fmt.Sprintf("caddy %d is not assigned to booking %d", caddy.ID, b.ID))
		}
		if err := requireBookingStatus(b, model.BookingCompleted); err != nil {
			return err
		}
		assets, _, err := lockAssetStatuses(ctx, tx, b.AssetIDs())
		if err != nil {
			return err
		}
		if err := applyTransition(statemachine.Assets, "asset", b.AssetIDs(), assets,
			move[model.AssetStatus]{From: model.AssetClean, To: model.AssetAvailable, Lenient: true},
			assetUpdater(ctx, tx)); err != nil {
			return err
		}
		if err := applyTransition(statemachine.Caddies, "caddy", []uint64{caddy.ID},
			map[uint64]model.CaddyStatus{caddy.ID: caddy.CaddyStatus},
			move[model.CaddyStatus]{From: model.CaddyCleaning, To: model.CaddyAvailable},
			caddyUpdater(ctx, tx)); err != nil {
			return err
		}
		caddy.CaddyStatus = model.CaddyAvailable
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.publishBooking(ctx, queue.ActionReleased, caller, b)
	}
	return caddy, nil
}

// lockActingCaddy checks that caller is a caddy assigned to b and returns
// the caller's locked user row.
func lockActingCaddy(ctx context.Context, tx Tx, caller model.Caller, b *model.Booking) (*model.User, error) {
	if caller.Role != model.RoleCaddy {
		return nil, apperr.Forbidden("only caddies can perform this action")
	}
	if !b.HasCaddy(caller.UserID) {
		return nil, apperr.Forbidden(fmt.Sprintf("caddy %d is not assigned to booking %d", caller.UserID, b.ID))
	}
	users, err := tx.LockUsers(ctx, []uint64{caller.UserID})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 || !users[0].IsCaddy() {
		return nil, apperr.NotFound("caddy", caller.UserID)
	}
	return &users[0], nil
}

func requireCaddyStatus(u *model.User, want ...model.CaddyStatus) error {
	if contains(want, u.CaddyStatus) {
		return nil
	}
	return &apperr.StateError{Entity: "caddy", ID: u.ID, Status: string(u.CaddyStatus), Want: strs(want)}
}

func requireBookingStatus(b *model.Booking, want ...model.BookingStatus) error {
	if contains(want, b.Status) {
		return nil
	}
	return &apperr.StateError{Entity: "booking", ID: b.ID, Status: string(b.Status), Want: strs(want)}
}

func canView(caller model.Caller, b *model.Booking) error {
	if caller.Role.Staff() || b.UserID == caller.UserID {
		return nil
	}
	if caller.Role == model.RoleCaddy && b.HasCaddy(caller.UserID) {
		return nil
	}
	return apperr.Forbidden("booking belongs to another user")
}

func strs[S ~string](in []S) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
