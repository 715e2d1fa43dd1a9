package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/flightscout/internal/auth"
	"github.com/dharmasatrya/flightscout/internal/lookup"
	"github.com/dharmasatrya/flightscout/internal/models"
)

const (
	FieldOrigin      = "origin"
	FieldDestination = "destination"
)

type lookupInput struct {
	Query string `json:"query"`
}

// LookupHandler exposes one debounced lookup per session and field.
type LookupHandler struct {
	registry *lookup.Registry
}

func NewLookupHandler(registry *lookup.Registry) *LookupHandler {
	return &LookupHandler{registry: registry}
}

// debouncer resolves the session's debouncer, writing the error response
// itself when it cannot.
func (h *LookupHandler) debouncer(c echo.Context) (*lookup.Debouncer, bool, error) {
	field := c.Param("field")
	if field != FieldOrigin && field != FieldDestination {
		return nil, false, badRequest(c, "field must be origin or destination")
	}
	session := auth.SessionID(c)
	if session == "" {
		return nil, false, badRequest(c, "an identity or X-Session-ID header is required")
	}
	d := h.registry.Get(session, field)
	if d == nil {
		return nil, false, c.NoContent(http.StatusServiceUnavailable)
	}
	return d, true, nil
}

func (h *LookupHandler) Input(c echo.Context) error {
	var in lookupInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "Failed to parse request body: "+err.Error())
	}
	d, ok, err := h.debouncer(c)
	if !ok {
		return err
	}
	d.Input(in.Query)
	return c.JSON(http.StatusOK, d.Snapshot())
}

// Get reads the current snapshot. A field that was never used reads as
// idle without allocating a debouncer.
func (h *LookupHandler) Get(c echo.Context) error {
	field := c.Param("field")
	if field != FieldOrigin && field != FieldDestination {
		return badRequest(c, "field must be origin or destination")
	}
	d, ok := h.registry.Peek(auth.SessionID(c), field)
	if !ok {
		return c.JSON(http.StatusOK, lookup.Snapshot{Results: []models.Airport{}})
	}
	return c.JSON(http.StatusOK, d.Snapshot())
}

func (h *LookupHandler) Focus(c echo.Context) error {
	d, ok, err := h.debouncer(c)
	if !ok {
		return err
	}
	d.Focus()
	return c.JSON(http.StatusOK, d.Snapshot())
}

func (h *LookupHandler) Blur(c echo.Context) error {
	d, ok, err := h.debouncer(c)
	if !ok {
		return err
	}
	d.Blur()
	return c.JSON(http.StatusOK, d.Snapshot())
}

// Dismiss closes the list after a selection or an outside click.
func (h *LookupHandler) Dismiss(c echo.Context) error {
	d, ok, err := h.debouncer(c)
	if !ok {
		return err
	}
	d.Dismiss()
	return c.JSON(http.StatusOK, d.Snapshot())
}

func (h *LookupHandler) Drop(c echo.Context) error {
	field := c.Param("field")
	if field != FieldOrigin && field != FieldDestination {
		return badRequest(c, "field must be origin or destination")
	}
	h.registry.Drop(auth.SessionID(c), field)
	return c.NoContent(http.StatusNoContent)
}
