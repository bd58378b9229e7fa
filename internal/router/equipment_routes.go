package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/golf-ops/internal/handler"
	"github.com/iliyamo/golf-ops/internal/middleware"
	"github.com/iliyamo/golf-ops/internal/model"
)

func registerEquipment(g *echo.Group, assets *handler.AssetHandler, caddies *handler.CaddyHandler, cache echo.MiddlewareFunc) {
	staff := middleware.RequireRole(model.RoleStarter, model.RoleAdmin)
	admin := middleware.RequireRole(model.RoleAdmin)

	summary := []echo.MiddlewareFunc{staff}
	if cache != nil {
		summary = append(summary, cache)
	}
	g.GET("/assets/summary", assets.Summary, summary...)
	g.GET("/assets", assets.List, staff)
	g.POST("/assets", assets.Create, admin)
	g.PUT("/assets/:id/status/:next", assets.Transition, staff)
	g.PUT("/assets/:id/override", assets.Override, admin)

	g.GET("/caddies", caddies.List, staff)
	g.PUT("/caddies/:id/status/:next", caddies.Transition,
		middleware.RequireRole(model.RoleCaddy, model.RoleStarter, model.RoleAdmin))
	g.PUT("/caddies/:id/override", caddies.Override, admin)
}

func registerAdmin(g *echo.Group, h *handler.AdminHandler) {
	admin := middleware.RequireRole(model.RoleAdmin)
	g.POST("/users", h.CreateUser, admin)
	g.GET("/audit", h.AuditLog, admin)
}
