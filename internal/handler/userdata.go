package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/flightscout/internal/auth"
	"github.com/dharmasatrya/flightscout/internal/models"
	"github.com/dharmasatrya/flightscout/internal/userdata"
)

type HistoryReader interface {
	Recent(ctx context.Context, userID string) ([]models.SearchHistoryEntry, error)
}

// UserDataHandler serves history, favorites and alerts. Every route sits
// behind auth.RequireUser.
type UserDataHandler struct {
	history HistoryReader
	service *userdata.Service
}

func NewUserDataHandler(history HistoryReader, service *userdata.Service) *UserDataHandler {
	return &UserDataHandler{history: history, service: service}
}

type historyResponse struct {
	History []models.SearchHistoryEntry `json:"history"`
}

type favoritesResponse struct {
	Favorites []models.FavoriteRoute `json:"favorites"`
}

type alertsResponse struct {
	Alerts []models.PriceAlert `json:"alerts"`
}

type alertToggle struct {
	IsActive *bool `json:"is_active"`
}

func (h *UserDataHandler) History(c echo.Context) error {
	entries, err := h.history.Recent(c.Request().Context(), auth.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, historyResponse{History: entries})
}

func (h *UserDataHandler) ListFavorites(c echo.Context) error {
	favs, err := h.service.ListFavorites(c.Request().Context(), auth.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, favoritesResponse{Favorites: favs})
}

func (h *UserDataHandler) AddFavorite(c echo.Context) error {
	var in userdata.NewFavorite
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "Failed to parse request body: "+err.Error())
	}
	favs, err := h.service.AddFavorite(c.Request().Context(), auth.UserID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, favoritesResponse{Favorites: favs})
}

func (h *UserDataHandler) RemoveFavorite(c echo.Context) error {
	favs, err := h.service.RemoveFavorite(c.Request().Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, favoritesResponse{Favorites: favs})
}

// ListAlerts returns active alerts, or every alert with ?all=true.
func (h *UserDataHandler) ListAlerts(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		alerts []models.PriceAlert
		err    error
	)
	if c.QueryParam("all") == "true" {
		alerts, err = h.service.ListAllAlerts(ctx, auth.UserID(c))
	} else {
		alerts, err = h.service.ListAlerts(ctx, auth.UserID(c))
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, alertsResponse{Alerts: alerts})
}

func (h *UserDataHandler) CreateAlert(c echo.Context) error {
	var in userdata.NewAlert
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "Failed to parse request body: "+err.Error())
	}
	alerts, err := h.service.CreateAlert(c.Request().Context(), auth.UserID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, alertsResponse{Alerts: alerts})
}

func (h *UserDataHandler) ToggleAlert(c echo.Context) error {
	var in alertToggle
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "Failed to parse request body: "+err.Error())
	}
	if in.IsActive == nil {
		return badRequest(c, "is_active is required")
	}
	alerts, err := h.service.ToggleAlert(c.Request().Context(), auth.UserID(c), c.Param("id"), *in.IsActive)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, alertsResponse{Alerts: alerts})
}
