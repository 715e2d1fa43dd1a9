package handler

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/flightscout/internal/aggregator"
	"github.com/dharmasatrya/flightscout/internal/cache"
	"github.com/dharmasatrya/flightscout/internal/models"
	"github.com/dharmasatrya/flightscout/pkg/logger"
)

// LocationService answers airport lookups through the cache and the
// aggregator. Its Search method is the debouncer's lookup function.
type LocationService struct {
	aggregator *aggregator.Aggregator
	cache      cache.Cache
	minLength  int
	log        logger.Logger
}

func NewLocationService(agg *aggregator.Aggregator, c cache.Cache, minLength int) *LocationService {
	return &LocationService{
		aggregator: agg,
		cache:      c,
		minLength:  minLength,
		log:        logger.Named("locations"),
	}
}

// Search returns an empty list without calling out when query is shorter
// than the minimum length.
func (s *LocationService) Search(ctx context.Context, query string) ([]models.Airport, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < s.minLength {
		return []models.Airport{}, nil
	}

	if cached, ok := s.cache.GetAirports(ctx, query); ok {
		return cached, nil
	}

	result, err := s.aggregator.SearchAirports(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(result.FailedProviders) == 0 {
		if err := s.cache.SetAirports(ctx, query, result.Airports); err != nil {
			s.log.Warn(ctx, "cache write failed", logger.Error(err))
		}
	}
	return result.Airports, nil
}

type LocationHandler struct {
	service *LocationService
	log     logger.Logger
}

func NewLocationHandler(service *LocationService) *LocationHandler {
	return &LocationHandler{service: service, log: logger.Named("locations")}
}

func (h *LocationHandler) Search(c echo.Context) error {
	ctx := c.Request().Context()
	query := c.QueryParam("query")

	locations, err := h.service.Search(ctx, query)
	if err != nil {
		h.log.Warn(ctx, "LookupFailed", logger.String("query", query), logger.Error(err))
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, models.LocationsResponse{
		Query:     query,
		Locations: locations,
	})
}
