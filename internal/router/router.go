// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/golf-ops/internal/handler"
	"github.com/iliyamo/golf-ops/internal/middleware"
)

// Handlers groups every handler the API exposes.
type Handlers struct {
	Auth     *handler.AuthHandler
	Bookings *handler.BookingHandler
	Assets   *handler.AssetHandler
	Caddies  *handler.CaddyHandler
	Admin    *handler.AdminHandler
}

// Options carries the cross-cutting middleware built by main.  Nil
// entries are skipped.
type Options struct {
	JWTSecret string
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// RegisterRoutes registers unauthenticated infrastructure routes.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// Register mounts the whole /v1 API.  Public auth endpoints live under
// /v1/auth; everything else requires a valid access token, and role
// gates are applied per route.
func Register(e *echo.Echo, h Handlers, opts Options) {
	public := e.Group("/v1/auth")
	if opts.RateLimit != nil {
		public.Use(opts.RateLimit)
	}
	public.POST("/register", h.Auth.Register)
	public.POST("/login", h.Auth.Login)
	public.POST("/refresh", h.Auth.Refresh)

	api := e.Group("/v1", middleware.JWTAuth(opts.JWTSecret))
	if opts.RateLimit != nil {
		api.Use(opts.RateLimit)
	}
	api.POST("/auth/logout", h.Auth.Logout)
	api.GET("/users/me", h.Auth.Profile)

	registerBookings(api, h.Bookings)
	registerEquipment(api, h.Assets, h.Caddies, opts.Cache)
	registerAdmin(api, h.Admin)
}
