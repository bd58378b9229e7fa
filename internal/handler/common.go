// Package handler contains the Echo handlers for the /v1 API.  Handlers
// bind and validate the request, resolve the caller from the JWT
// middleware and delegate to the service layer; errors are translated to
// JSON by respondError.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/golf-ops/internal/apperr"
	"github.com/iliyamo/golf-ops/internal/logger"
	"github.com/iliyamo/golf-ops/internal/middleware"
	"github.com/iliyamo/golf-ops/internal/model"
)

const (
	requestTimeout = 5 * time.Second
	dateLayout     = "2006-01-02"
)

// callerOf returns the caller stored by the JWT middleware.
func callerOf(c echo.Context) (model.Caller, bool) {
	return middleware.CallerFrom(c)
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_error", "message": msg})
}

// respondError maps the apperr taxonomy onto HTTP statuses.  Typed errors
// add their details so clients can explain the rejection.
func respondError(c echo.Context, err error) error {
	body := echo.Map{"message": err.Error()}

	var (
		te *apperr.TransitionError
		se *apperr.StateError
		ie *apperr.InventoryError
		ue *apperr.UnavailableError
		ce *apperr.ConflictError
	)
	switch {
	case errors.As(err, &te):
		body["error"] = "invalid_transition"
		body["entity"], body["from"], body["to"] = te.Entity, te.From, te.To
	case errors.As(err, &se):
		body["error"] = "invalid_state"
		body["entity"], body["status"], body["expected"] = se.Entity, se.Status, se.Want
	case errors.As(err, &ie):
		body["error"] = "insufficient_inventory"
		body["type"], body["requested"], body["available"] = ie.Type, ie.Requested, ie.Available
	case errors.As(err, &ue):
		body["error"] = "unavailable_resources"
		body["unavailable"] = ue.IDs
	case errors.As(err, &ce):
		body["error"] = "concurrent_modification"
		body["expected"], body["modified"] = ce.Expected, ce.Modified
	}

	switch {
	case errors.Is(err, apperr.ErrNotFound):
		body["error"] = "not_found"
		return c.JSON(http.StatusNotFound, body)
	case errors.Is(err, apperr.ErrForbidden):
		body["error"] = "forbidden"
		return c.JSON(http.StatusForbidden, body)
	case errors.Is(err, apperr.ErrValidation):
		body["error"] = "validation_error"
		return c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, apperr.ErrInvalidTransition),
		errors.Is(err, apperr.ErrInsufficientInventory),
		errors.Is(err, apperr.ErrUnavailableResources),
		errors.Is(err, apperr.ErrConcurrentModification):
		return c.JSON(http.StatusConflict, body)
	}

	logger.ErrorLogger.WithError(err).WithField("path", c.Path()).Error("unhandled error")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error"})
}
