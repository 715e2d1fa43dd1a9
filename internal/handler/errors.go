package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/flightscout/internal/models"
)

// respondError maps the error taxonomy onto a status and an ErrorResponse.
// Only validation messages are echoed back verbatim.
func respondError(c echo.Context, err error) error {
	status, code, message := classify(err)
	return c.JSON(status, models.ErrorResponse{
		Error:   code,
		Message: message,
		Code:    status,
	})
}

func classify(err error) (status int, code, message string) {
	switch {
	case models.IsValidation(err):
		return http.StatusBadRequest, "validation_error", err.Error()
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthorized", models.ErrUnauthenticated.Error()
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "not_found", models.ErrNotFound.Error()
	case errors.Is(err, models.ErrSearchFailed):
		return http.StatusBadGateway, "search_error", "Flight search is unavailable right now. Please try again."
	case errors.Is(err, models.ErrLookupFailed):
		return http.StatusBadGateway, "lookup_error", "Airport lookup is unavailable right now. Please try again."
	case errors.Is(err, models.ErrPersistenceFailed):
		return http.StatusServiceUnavailable, "persistence_error", "Your saved data is temporarily unavailable."
	default:
		return http.StatusInternalServerError, "internal_error", "Unexpected error."
	}
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "invalid_request",
		Message: message,
		Code:    http.StatusBadRequest,
	})
}
