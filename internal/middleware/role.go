package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/golf-ops/internal/model"
)

// RequireRole aborts with 403 unless the caller holds one of roles.  It
// must run after JWTAuth.  Finer checks (ownership, assignment) stay in
// the service layer.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, ok := CallerFrom(c)
			if !ok || !caller.Is(roles...) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
