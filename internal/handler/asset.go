package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/golf-ops/internal/model"
	"github.com/iliyamo/golf-ops/internal/service"
)

// AssetHandler serves /v1/assets.
type AssetHandler struct {
	Svc *service.Service
}

func NewAssetHandler(svc *service.Service) *AssetHandler {
	return &AssetHandler{Svc: svc}
}

type createAssetReq struct {
	Type        model.AssetType `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
}

type overrideReq struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// Create handles POST /v1/assets.
func (h *AssetHandler) Create(c echo.Context) error {
	caller, ok := callerOf(c)
	if !ok {
		return unauthorized(c)
	}
	var req createAssetReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	a, err := h.Svc.CreateAsset(ctx, caller, req.Type, req.Name, req.Description)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

// List handles GET /v1/assets?type=&status=.
func (h *AssetHandler) List(c echo.Context) error {
	caller, ok := callerOf(c)
	if !ok {
		return unauthorized(c)
	}
	f := service.AssetFilter{
		Type:   model.AssetType(c.QueryParam("type")),
		Status: model.AssetStatus(c.QueryParam("status")),
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	list, err := h.Svc.ListAssets(ctx, caller, f)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list, "count": len(list)})
}

// Summary handles GET /v1/assets/summary.
func (h *AssetHandler) Summary(c echo.Context) error {
	caller, ok := callerOf(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	sum, err := h.Svc.AssetSummary(ctx, caller)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}

// Transition handles PUT /v1/assets/:id/status/:next.
func (h *AssetHandler) Transition(c echo.Context) error {
	caller, ok := callerOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid asset id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	a, err := h.Svc.TransitionAsset(ctx, caller, id, model.AssetStatus(c.Param("next")))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// Override handles PUT /v1/assets/:id/override.
func (h *AssetHandler) Override(c echo.Context) error {
	caller, ok := callerOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid asset id")
	}
	var req overrideReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	a, err := h.Svc.OverrideAssetStatus(ctx, caller, id, model.AssetStatus(req.Status), req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}
