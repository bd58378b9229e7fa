package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/golf-ops/internal/model"
	"github.com/iliyamo/golf-ops/internal/service"
)

// CaddyLister lists caddy accounts for the staff roster.
type CaddyLister interface {
	ListCaddies(ctx context.Context, status model.CaddyStatus) ([]model.User, error)
}

// CaddyHandler serves /v1/caddies.
type CaddyHandler struct {
	Svc     *service.Service
	Caddies CaddyLister
}

func NewCaddyHandler(svc *service.Service, caddies CaddyLister) *CaddyHandler {
	return &CaddyHandler{Svc: svc, Caddies: caddies}
}

// List handles GET /v1/caddies?status=.
func (h *CaddyHandler) List(c echo.Context) error {
	status := model.CaddyStatus(c.QueryParam("status"))
	if status != "" && !status.Valid() {
		return badRequest(c, "unknown caddy status")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	list, err := h.Caddies.ListCaddies(ctx, status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list, "count": len(list)})
}

// Transition handles PUT /v1/caddies/:id/status/:next.
func (h *CaddyHandler) Transition(c echo.Context) error {
	caller, ok := callerOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid caddy id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Svc.TransitionCaddy(ctx, caller, id, model.CaddyStatus(c.Param("next")))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// Override handles PUT /v1/caddies/:id/override.
func (h *CaddyHandler) Override(c echo.Context) error {
	caller, ok := callerOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid caddy id")
	}
	var req overrideReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Svc.OverrideCaddyStatus(ctx, caller, id, model.CaddyStatus(req.Status), req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}
