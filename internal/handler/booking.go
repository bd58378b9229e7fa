package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/golf-ops/internal/model"
	"github.com/iliyamo/golf-ops/internal/service"
)

// BookingHandler serves /v1/bookings.
type BookingHandler struct {
	Svc *service.Service
}

func NewBookingHandler(svc *service.Service) *BookingHandler {
	return &BookingHandler{Svc: svc}
}

type bookingReq struct {
	UserID      uint64   `json:"user_id"`
	Date        string   `json:"date"`
	TimeSlot    string   `json:"time_slot"`
	CourseType  string   `json:"course_type"`
	Players     int      `json:"players"`
	GroupName   string   `json:"group_name"`
	CaddyIDs    []uint64 `json:"caddy_ids"`
	GolfCartQty int      `json:"golf_cart_qty"`
	GolfBagQty  int      `json:"golf_bag_qty"`
	TotalPrice  int64    `json:"total_price"`
	IsPaid      bool     `json:"is_paid"`
}

type rescheduleReq struct {
	TimeSlot string `json:"time_slot"`
}

type replaceCartReq struct {
	OldCartID uint64 `json:"old_cart_id"`
	NewCartID uint64 `json:"new_cart_id"`
}

// Create handles POST /v1/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	caller, ok := callerOf(c)
	if !ok {
		return unauthorized(c)
	}
	var req bookingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	var date time.Time
	if s := strings.TrimSpace(req.Date); s != "" {
		d, err := time.Parse(dateLayout, s)
		if err != nil {
			return badRequest(c, "date must be YYYY-MM-DD")
		}
		date = d
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := h.Svc.BookSlot(ctx, caller, service.BookingRequest{
		UserID:      req.UserID,
		Date:        date,
		TimeSlot:    req.TimeSlot,
		CourseType:  req.CourseType,
		Players:     req.Players,
		GroupName:   req.GroupName,
		CaddyIDs:    req.CaddyIDs,
		GolfCartQty: req.GolfCartQty,
		GolfBagQty:  req.GolfBagQty,
		TotalPrice:  req.TotalPrice,
		IsPaid:      req.IsPaid,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	return h.do(c, h.Svc.GetBooking, http.StatusOK)
}

// List handles GET /v1/bookings?status=&date=&user_id=.  Non-staff callers
// only ever see their own (or assigned) bookings.
func (h *BookingHandler) List(c echo.Context) error {
	caller, ok := callerOf(c)
	if !ok {
		return unauthorized(c)
	}
	var f service.BookingFilter
	if s := c.QueryParam("status"); s != "" {
		f.Status = model.BookingStatus(s)
		switch f.Status {
		case model.BookingBooked, model.BookingCompleted, model.BookingCancelled:
		default:
			return badRequest(c, "unknown status")
		}
	}
	if s := c.QueryParam("date"); s != "" {
		d, err := time.Parse(dateLayout, s)
		if err != nil {
			return badRequest(c, "date must be YYYY-MM-DD")
		}
		f.Date = d
	}
	if s := c.QueryParam("user_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return badRequest(c, "invalid user_id")
		}
		f.UserID = id
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	list, err := h.Svc.ListBookings(ctx, caller, f)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list, "count": len(list)})
}

// Reschedule handles PATCH /v1/bookings/:id.
func (h *BookingHandler) Reschedule(c echo.Context) error {
	var req rescheduleReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	return h.do(c, func(ctx context.Context, caller model.Caller, id uint64) (*model.Booking, error) {
		return h.Svc.UpdateTimeSlot(ctx, caller, id, req.TimeSlot)
	}, http.StatusOK)
}

// Start handles POST /v1/bookings/:id/start.
func (h *BookingHandler) Start(c echo.Context) error {
	return h.do(c, h.Svc.StartRound, http.StatusOK)
}

// End handles POST /v1/bookings/:id/end.
func (h *BookingHandler) End(c echo.Context) error {
	return h.do(c, h.Svc.EndRound, http.StatusOK)
}

// Cancel handles POST /v1/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	return h.do(c, h.Svc.CancelBeforeStart, http.StatusOK)
}

// CancelRound handles POST /v1/bookings/:id/cancel-round.
func (h *BookingHandler) CancelRound(c echo.Context) error {
	return h.do(c, h.Svc.CancelDuringRound, http.StatusOK)
}

// Release handles POST /v1/bookings/:id/release and returns the caddy.
func (h *BookingHandler) Release(c echo.Context) error {
	caller, ok := callerOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Svc.Release(ctx, caller, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"caddy": u})
}

// Delete handles DELETE /v1/bookings/:id.
func (h *BookingHandler) Delete(c echo.Context) error {
	caller, ok := callerOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Svc.DeleteBooking(ctx, caller, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ReplaceCart handles POST /v1/bookings/:id/replace-cart.
func (h *BookingHandler) ReplaceCart(c echo.Context) error {
	caller, ok := callerOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	var req replaceCartReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Svc.ReplaceGolfCart(ctx, caller, id, req.OldCartID, req.NewCartID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// do runs a booking-returning service call for the :id path parameter.
func (h *BookingHandler) do(c echo.Context, fn func(context.Context, model.Caller, uint64) (*model.Booking, error), status int) error {
	caller, ok := callerOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := fn(ctx, caller, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status, b)
}
