package handler

import (
	"errors"
	"net/http"

	"listing-service/internal/listing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// writeError maps service errors to status codes. Unknown errors are logged
// and reported as 500 without detail.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	if qe, ok := listing.AsQuotaError(err); ok {
		return c.JSON(http.StatusConflict, echo.Map{
			"error": qe.Error(),
			"code":  string(qe.Kind),
			"max":   qe.Max,
		})
	}

	switch {
	case errors.Is(err, listing.ErrUnauthenticated):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	case errors.Is(err, listing.ErrNotFoundOrDenied):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
	case errors.Is(err, listing.ErrInvalidInput), errors.Is(err, listing.ErrVerticalMismatch):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	log.Error("Request failed", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}

func badRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
}
