package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/golf-ops/internal/apperr"
	"github.com/iliyamo/golf-ops/internal/model"
	"github.com/iliyamo/golf-ops/internal/queue"
	"github.com/iliyamo/golf-ops/internal/service"
	"github.com/iliyamo/golf-ops/internal/service/memstore"
)

func TestFullRoundLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	carts := f.st.AddAssets(model.AssetGolfCart, model.AssetAvailable, 1)
	bags := f.st.AddAssets(model.AssetGolfBag, model.AssetAvailable, 1)
	x := f.addCaddy("x")

	b := f.book(t, 1, 1, x)
	assert.Equal(t, model.BookingBooked, b.Status)
	assert.Equal(t, carts, b.GolfCartIDs)
	assert.Equal(t, bags, b.GolfBagIDs)
	assert.Equal(t, []uint64{x.UserID}, b.CaddyIDs)
	f.requireAssets(t, b.AssetIDs(), model.AssetBooked)
	f.requireCaddy(t, x, model.CaddyBooked)

	_, err := f.svc.StartRound(ctx, x, b.ID)
	require.NoError(t, err)
	f.requireAssets(t, b.AssetIDs(), model.AssetInUse)
	f.requireCaddy(t, x, model.CaddyOnDuty)

	ended, err := f.svc.EndRound(ctx, x, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCompleted, ended.Status)
	f.requireAssets(t, b.AssetIDs(), model.AssetClean)
	f.requireCaddy(t, x, model.CaddyCleaning)
	assert.Equal(t, model.BookingCompleted, f.stored(t, b.ID).Status)

	caddy, err := f.svc.Release(ctx, x, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CaddyAvailable, caddy.CaddyStatus)
	f.requireAssets(t, b.AssetIDs(), model.AssetAvailable)
	f.requireCaddy(t, x, model.CaddyAvailable)

	assert.Equal(t, []string{
		queue.ActionBooked, queue.ActionRoundStarted, queue.ActionRoundEnded, queue.ActionReleased,
	}, f.events.actions())
}

func TestBookSlotRollsBackOnUnavailableCaddy(t *testing.T) {
	f := newFixture(t)
	carts := f.st.AddAssets(model.AssetGolfCart, model.AssetAvailable, 2)
	bags := f.st.AddAssets(model.AssetGolfBag, model.AssetAvailable, 1)
	busy := f.addCaddy("busy")

	_, err := f.svc.TransitionCaddy(context.Background(), busy, busy.UserID, model.CaddyResting)
	require.NoError(t, err)

	_, err = f.svc.BookSlot(context.Background(), f.owner, service.BookingRequest{
		Date: time.Now(), TimeSlot: "08:00", CourseType: model.Course9, Players: 2, GroupName: "pair",
		CaddyIDs: []uint64{busy.UserID}, GolfCartQty: 2, GolfBagQty: 1,
	})
	var ue *apperr.UnavailableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, []uint64{busy.UserID}, ue.IDs)
	f.requireAssets(t, carts, model.AssetAvailable)
	f.requireAssets(t, bags, model.AssetAvailable)
	assert.Empty(t, f.events.actions())
}

func TestBookSlotInsufficientCartsLeavesEverythingAvailable(t *testing.T) {
	f := newFixture(t)
	carts := f.st.AddAssets(model.AssetGolfCart, model.AssetAvailable, 2)
	x := f.addCaddy("x")

	_, err := f.svc.BookSlot(context.Background(), f.owner, service.BookingRequest{
		Date: time.Now(), TimeSlot: "08:00", CourseType: model.Course18, Players: 3, GroupName: "trio",
		CaddyIDs: []uint64{x.UserID}, GolfCartQty: 3,
	})
	var inv *apperr.InventoryError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, 3, inv.Requested)
	assert.Equal(t, 2, inv.Available)
	f.requireAssets(t, carts, model.AssetAvailable)
	f.requireCaddy(t, x, model.CaddyAvailable)
}

func TestBookSlotValidation(t *testing.T) {
	f := newFixture(t)
	base := service.BookingRequest{Date: time.Now(), TimeSlot: "09:00", CourseType: model.Course9, Players: 1, GroupName: "solo"}
	cases := map[string]func(r *service.BookingRequest){
		"missing date":   func(r *service.BookingRequest) { r.Date = time.Time{} },
		"blank slot":     func(r *service.BookingRequest) { r.TimeSlot = "  " },
		"course type":    func(r *service.BookingRequest) { r.CourseType = "27" },
		"too many":       func(r *service.BookingRequest) { r.Players = 5 },
		"no players":     func(r *service.BookingRequest) { r.Players = 0 },
		"no group":       func(r *service.BookingRequest) { r.GroupName = "" },
		"negative carts": func(r *service.BookingRequest) { r.GolfCartQty = -1 },
		"negative price": func(r *service.BookingRequest) { r.TotalPrice = -10 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := base
			mutate(&req)
			_, err := f.svc.BookSlot(context.Background(), f.owner, req)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestBookSlotOnBehalfRequiresStaff(t *testing.T) {
	f := newFixture(t)
	other := f.st.AddUser("other", model.RoleUser, model.CaddyAvailable)
	req := service.BookingRequest{UserID: other, Date: time.Now(), TimeSlot: "09:00", CourseType: model.Course9, Players: 1, GroupName: "solo"}

	_, err := f.svc.BookSlot(context.Background(), f.owner, req)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	b, err := f.svc.BookSlot(context.Background(), f.starter, req)
	require.NoError(t, err)
	assert.Equal(t, other, b.UserID)

	_, err = f.svc.BookSlot(context.Background(), f.addCaddy("c"), req)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestStartRoundByUnassignedCaddyChangesNothing(t *testing.T) {
	f := newFixture(t)
	f.st.AddAssets(model.AssetGolfCart, model.AssetAvailable, 1)
	x, y := f.addCaddy("x"), f.addCaddy("y")
	b := f.book(t, 1, 0, x)

	_, err := f.svc.StartRound(context.Background(), y, b.ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)
	f.requireAssets(t, b.AssetIDs(), model.AssetBooked)
	f.requireCaddy(t, x, model.CaddyBooked)
	f.requireCaddy(t, y, model.CaddyAvailable)

	_, err = f.svc.StartRound(context.Background(), f.starter, b.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestStartRoundRequiresBookedCaddy(t *testing.T) {
	f := newFixture(t)
	x := f.addCaddy("x")
	b := f.book(t, 0, 0, x)
	_, err := f.svc.StartRound(context.Background(), x, b.ID)
	require.NoError(t, err)

	_, err = f.svc.StartRound(context.Background(), x, b.ID)
	var se *apperr.StateError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, string(model.CaddyOnDuty), se.Status)
}

func TestCoCaddiesShareOneRound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.st.AddAssets(model.AssetGolfCart, model.AssetAvailable, 2)
	x, y := f.addCaddy("x"), f.addCaddy("y")
	b := f.book(t, 2, 0, x, y)

	_, err := f.svc.StartRound(ctx, x, b.ID)
	require.NoError(t, err)
	_, err = f.svc.StartRound(ctx, y, b.ID)
	require.NoError(t, err, "assets already in use count as started")
	f.requireCaddy(t, y, model.CaddyOnDuty)

	_, err = f.svc.EndRound(ctx, x, b.ID)
	require.NoError(t, err)
	done, err := f.svc.EndRound(ctx, y, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCompleted, done.Status)
	f.requireAssets(t, b.AssetIDs(), model.AssetClean)
}

func TestCoCaddyEndsAfterPartnerReleased(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.st.AddAssets(model.AssetGolfCart, model.AssetAvailable, 1)
	x, y := f.addCaddy("x"), f.addCaddy("y")
	b := f.book(t, 1, 0, x, y)

	_, err := f.svc.StartRound(ctx, x, b.ID)
	require.NoError(t, err)
	_, err = f.svc.StartRound(ctx, y, b.ID)
	require.NoError(t, err)
	_, err = f.svc.EndRound(ctx, x, b.ID)
	require.NoError(t, err)
	_, err = f.svc.Release(ctx, x, b.ID)
	require.NoError(t, err)
	f.requireAssets(t, b.AssetIDs(), model.AssetAvailable)

	done, err := f.svc.EndRound(ctx, y, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCompleted, done.Status)
	f.requireCaddy(t, y, model.CaddyCleaning)
	f.requireAssets(t, b.AssetIDs(), model.AssetAvailable)
}

func TestBookSlotCollapsesRepeatedCaddy(t *testing.T) {
	f := newFixture(t)
	x := f.addCaddy("x")
	b := f.book(t, 0, 0, x, x)
	assert.Equal(t, []uint64{x.UserID}, b.CaddyIDs)
	f.requireCaddy(t, x, model.CaddyBooked)
}

func TestStartRoundMixedAssetStatesIsConflict(t *testing.T) {
	f := newFixture(t)
	carts := f.st.AddAssets(model.AssetGolfCart, model.AssetAvailable, 2)
	x := f.addCaddy("x")
	b := f.book(t, 2, 0, x)
	_, err := f.svc.OverrideAssetStatus(context.Background(), f.admin, carts[1], model.AssetBroken, "flat tyre")
	require.NoError(t, err)

	_, err = f.svc.StartRound(context.Background(), x, b.ID)
	require.ErrorIs(t, err, apperr.ErrConcurrentModification)
	assert.Equal(t, model.AssetBooked, f.st.Asset(carts[0]).Status)
	f.requireCaddy(t, x, model.CaddyBooked)
}

func TestStartRoundConcurrentWriterAborts(t *testing.T) {
	f := newFixture(t)
	carts := f.st.AddAssets(model.AssetGolfCart, model.AssetAvailable, 2)
	x := f.addCaddy("x")
	b := f.book(t, 2, 0, x)

	f.st.BeforeUpdate = func(op string, tx *memstore.Tx) {
		if op == "UpdateAssetStatus" {
			tx.SetAssetStatus(carts[0], model.AssetSpare)
		}
	}
	_, err := f.svc.StartRound(context.Background(), x, b.ID)
	f.st.BeforeUpdate = nil
	require.ErrorIs(t, err, apperr.ErrConcurrentModification)
	f.requireAssets(t, carts, model.AssetBooked)
	f.requireCaddy(t, x, model.CaddyBooked)
}

func TestEndRoundRequiresOnDuty(t *testing.T) {
	f := newFixture(t)
	x := f.addCaddy("x")
	b := f.book(t, 0, 0, x)

	_, err := f.svc.EndRound(context.Background(), x, b.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Equal(t, model.BookingBooked, f.stored(t, b.ID).Status)
}

func TestReleaseIsIdempotentForAvailableCaddy(t *testing.T) {
	f := newFixture(t)
	x := f.addCaddy("x")

	got, err := f.svc.Release(context.Background(), x, 12345)
	require.NoError(t, err)
	assert.Equal(t, f.st.User(x.UserID), *got)
	assert.Empty(t, f.events.actions())
}

func TestReleaseOnlyMovesAssetsStillClean(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	carts := f.st.AddAssets(model.AssetGolfCart, model.AssetAvailable, 2)
	x := f.addCaddy("x")
	b := f.book(t, 2, 0, x)
	_, err := f.svc.StartRound(ctx, x, b.ID)
	require.NoError(t, err)
	_, err = f.svc.EndRound(ctx, x, b.ID)
	require.NoError(t, err)
	_, err = f.svc.TransitionAsset(ctx, f.starter, carts[1], model.AssetSpare)
	require.NoError(t, err)

	_, err = f.svc.Release(ctx, x, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AssetAvailable, f.st.Asset(carts[0]).Status)
	assert.Equal(t, model.AssetSpare, f.st.Asset(carts[1]).Status)
}

func TestReleaseRequiresCompletedAssignedBooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	x, y := f.addCaddy("x"), f.addCaddy("y")
	b := f.book(t, 0, 0, x)
	other := f.book(t, 0, 0, y)
	_, err := f.svc.StartRound(ctx, x, b.ID)
	require.NoError(t, err)

	_, err = f.svc.Release(ctx, x, b.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition, "caddy is onDuty, not cleaning")

	_, err = f.svc.EndRound(ctx, x, b.ID)
	require.NoError(t, err)
	_, err = f.svc.Release(ctx, x, other.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	f.requireCaddy(t, x, model.CaddyCleaning)

	_, err = f.svc.Release(ctx, f.starter, b.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestGetAndListBookingsRespectOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	x, y := f.addCaddy("x"), f.addCaddy("y")
	b := f.book(t, 0, 0, x)
	stranger := model.Caller{UserID: f.st.AddUser("stranger", model.RoleUser, model.CaddyAvailable), Role: model.RoleUser}

	_, err := f.svc.GetBooking(ctx, f.owner, b.ID)
	assert.NoError(t, err)
	_, err = f.svc.GetBooking(ctx, x, b.ID)
	assert.NoError(t, err)
	_, err = f.svc.GetBooking(ctx, y, b.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.GetBooking(ctx, stranger, b.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.GetBooking(ctx, f.admin, 9999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	mine, err := f.svc.ListBookings(ctx, stranger, service.BookingFilter{})
	require.NoError(t, err)
	assert.Empty(t, mine)
	assigned, err := f.svc.ListBookings(ctx, x, service.BookingFilter{UserID: f.owner.UserID})
	require.NoError(t, err)
	assert.Len(t, assigned, 1)
	all, err := f.svc.ListBookings(ctx, f.starter, service.BookingFilter{Status: model.BookingBooked})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpdateTimeSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.book(t, 0, 0)

	got, err := f.svc.UpdateTimeSlot(ctx, f.owner, b.ID, "10:40")
	require.NoError(t, err)
	assert.Equal(t, "10:40", got.TimeSlot)
	assert.Equal(t, "10:40", f.stored(t, b.ID).TimeSlot)

	_, err = f.svc.UpdateTimeSlot(ctx, f.owner, b.ID, " ")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.CancelBeforeStart(ctx, f.owner, b.ID)
	require.NoError(t, err)
	_, err = f.svc.UpdateTimeSlot(ctx, f.owner, b.ID, "11:00")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.events.fail = true
	f.st.AddAssets(model.AssetGolfBag, model.AssetAvailable, 1)

	b := f.book(t, 0, 1)
	assert.Equal(t, model.BookingBooked, f.stored(t, b.ID).Status)
}
