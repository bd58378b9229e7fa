package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/golf-ops/internal/model"
)

const callerKey = "caller"

// SetCaller stores the authenticated caller on the request context.
func SetCaller(c echo.Context, caller model.Caller) {
	c.Set(callerKey, caller)
}

// CallerFrom returns the caller stored by JWTAuth.
func CallerFrom(c echo.Context) (model.Caller, bool) {
	caller, ok := c.Get(callerKey).(model.Caller)
	return caller, ok && caller.UserID != 0
}

// userID returns the caller id as a string, or "anon" for unauthenticated
// requests.  Used in rate-limit and cache keys.
func userID(c echo.Context) string {
	if caller, ok := CallerFrom(c); ok {
		return strconv.FormatUint(caller.UserID, 10)
	}
	return "anon"
}
