package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/golf-ops/internal/config"
	"github.com/iliyamo/golf-ops/internal/model"
	"github.com/iliyamo/golf-ops/internal/repository"
)

// AuditLister reads the audit log.
type AuditLister interface {
	List(ctx context.Context, entity string, entityID uint64, limit int) ([]model.AuditEntry, error)
}

// AdminHandler serves the admin-only account and audit endpoints.
type AdminHandler struct {
	Cfg   config.Config
	Users UserStore
	Audit AuditLister
}

func NewAdminHandler(cfg config.Config, users UserStore, audit AuditLister) *AdminHandler {
	return &AdminHandler{Cfg: cfg, Users: users, Audit: audit}
}

type createUserReq struct {
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     model.Role `json:"role"`
}

// CreateUser handles POST /v1/users.  Any role may be assigned; caddies
// start in status available.
func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if msg := validateCredentials(req.Name, req.Email, req.Password); msg != "" {
		return badRequest(c, msg)
	}
	if req.Role == "" {
		req.Role = model.RoleUser
	}
	if !req.Role.Valid() {
		return badRequest(c, "role must be user, caddy, starter or admin")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u := model.User{Name: req.Name, Email: req.Email, Role: req.Role, CaddyStatus: model.CaddyAvailable}
	if err := h.Users.Create(ctx, &u, req.Password, h.Cfg.BcryptCost); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

// AuditLog handles GET /v1/audit?entity=&entity_id=&limit=.
func (h *AdminHandler) AuditLog(c echo.Context) error {
	var (
		entityID uint64
		limit    int
		err      error
	)
	if s := c.QueryParam("entity_id"); s != "" {
		if entityID, err = strconv.ParseUint(s, 10, 64); err != nil {
			return badRequest(c, "invalid entity_id")
		}
	}
	if s := c.QueryParam("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil {
			return badRequest(c, "invalid limit")
		}
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	list, err := h.Audit.List(ctx, c.QueryParam("entity"), entityID, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list, "count": len(list)})
}
