package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/golf-ops/internal/handler"
	"github.com/iliyamo/golf-ops/internal/middleware"
	"github.com/iliyamo/golf-ops/internal/model"
)

// registerBookings mounts the booking lifecycle.  Ownership and caddy
// assignment are checked by the service; the role gates here only reject
// callers that could never succeed.
func registerBookings(g *echo.Group, h *handler.BookingHandler) {
	caddy := middleware.RequireRole(model.RoleCaddy)
	staff := middleware.RequireRole(model.RoleStarter, model.RoleAdmin)

	g.POST("/bookings", h.Create, middleware.RequireRole(model.RoleUser, model.RoleStarter, model.RoleAdmin))
	g.GET("/bookings", h.List)
	g.GET("/bookings/:id", h.Get)
	g.PATCH("/bookings/:id", h.Reschedule)
	g.DELETE("/bookings/:id", h.Delete, middleware.RequireRole(model.RoleAdmin))

	g.POST("/bookings/:id/start", h.Start, caddy)
	g.POST("/bookings/:id/end", h.End, caddy)
	g.POST("/bookings/:id/release", h.Release, caddy)
	g.POST("/bookings/:id/cancel", h.Cancel)
	g.POST("/bookings/:id/cancel-round", h.CancelRound,
		middleware.RequireRole(model.RoleCaddy, model.RoleStarter, model.RoleAdmin))
	g.POST("/bookings/:id/replace-cart", h.ReplaceCart, staff)
}
