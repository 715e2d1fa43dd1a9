package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/flightscout/internal/auth"
	"github.com/dharmasatrya/flightscout/pkg/metrics"
)

type Handlers struct {
	Search    *SearchHandler
	Locations *LocationHandler
	Lookup    *LookupHandler
	UserData  *UserDataHandler
	Health    *HealthHandler
}

// Register mounts every route on e. authn runs on the API group only.
func (h Handlers) Register(e *echo.Echo, authn *auth.Authenticator) {
	e.GET("/health", h.Health.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api := e.Group("/api/v1", authn.Middleware())
	api.POST("/flights/search", h.Search.Search)
	api.GET("/locations", h.Locations.Search)

	api.PUT("/lookup/:field", h.Lookup.Input)
	api.GET("/lookup/:field", h.Lookup.Get)
	api.DELETE("/lookup/:field", h.Lookup.Drop)
	api.POST("/lookup/:field/focus", h.Lookup.Focus)
	api.POST("/lookup/:field/blur", h.Lookup.Blur)
	api.POST("/lookup/:field/dismiss", h.Lookup.Dismiss)

	api.GET("/history", h.UserData.History, auth.RequireUser)
	api.GET("/favorites", h.UserData.ListFavorites, auth.RequireUser)
	api.POST("/favorites", h.UserData.AddFavorite, auth.RequireUser)
	api.DELETE("/favorites/:id", h.UserData.RemoveFavorite, auth.RequireUser)
	api.GET("/alerts", h.UserData.ListAlerts, auth.RequireUser)
	api.POST("/alerts", h.UserData.CreateAlert, auth.RequireUser)
	api.PATCH("/alerts/:id", h.UserData.ToggleAlert, auth.RequireUser)
}
