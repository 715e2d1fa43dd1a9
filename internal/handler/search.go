package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/flightscout/internal/aggregator"
	"github.com/dharmasatrya/flightscout/internal/auth"
	"github.com/dharmasatrya/flightscout/internal/cache"
	"github.com/dharmasatrya/flightscout/internal/criteria"
	"github.com/dharmasatrya/flightscout/internal/filter"
	"github.com/dharmasatrya/flightscout/internal/models"
	"github.com/dharmasatrya/flightscout/pkg/logger"
	"github.com/dharmasatrya/flightscout/pkg/metrics"
)

const noticeHistoryUnsaved = "This search could not be saved to your history."

// HistoryRecorder is the slice of the history engine the search path needs.
type HistoryRecorder interface {
	Record(ctx context.Context, userID string, s models.HistorySearch) (models.HistoryResult, error)
}

type SearchHandler struct {
	aggregator *aggregator.Aggregator
	cache      cache.Cache
	history    HistoryRecorder
	defaults   criteria.Defaults
	log        logger.Logger
}

// NewSearchHandler wires the search path. history may be nil, in which case
// searches are never recorded.
func NewSearchHandler(agg *aggregator.Aggregator, c cache.Cache, history HistoryRecorder, defaults criteria.Defaults) *SearchHandler {
	return &SearchHandler{
		aggregator: agg,
		cache:      c,
		history:    history,
		defaults:   defaults,
		log:        logger.Named("search"),
	}
}

func (h *SearchHandler) Search(c echo.Context) error {
	startTime := time.Now()
	ctx := c.Request().Context()

	var req models.SearchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Failed to parse request body: "+err.Error())
	}

	params, err := criteria.Normalize(req.SearchCriteria, h.defaults)
	if err != nil {
		return respondError(c, err)
	}
	var filters models.FilterState
	if req.Filters != nil {
		filters = *req.Filters
	}
	if err := filters.Validate(); err != nil {
		return respondError(c, err)
	}
	sortKey, err := models.ParseSortKey(req.Sort)
	if err != nil {
		return respondError(c, err)
	}

	meta := models.SearchMetadata{ProvidersQueried: len(h.aggregator.Providers())}
	flights, cacheHit := h.cache.GetFlights(ctx, params)
	if cacheHit {
		meta.ProvidersSucceeded = meta.ProvidersQueried
	} else {
		result, err := h.aggregator.SearchFlights(ctx, params)
		if err != nil {
			h.log.Error(ctx, "SearchFailed",
				logger.String("origin", params.OriginSkyID),
				logger.String("destination", params.DestinationSkyID),
				logger.String("date", params.Date),
				logger.Error(err),
			)
			metrics.RecordSearch("error", 0)
			return respondError(c, err)
		}
		flights = result.Flights
		meta.ProvidersQueried = result.ProvidersQueried
		meta.ProvidersSucceeded = result.ProvidersSucceeded
		meta.ProvidersFailed = result.ProvidersFailed
		meta.FailedProviders = result.FailedProviders

		// Partial results are not cached so a recovered provider is seen on
		// the next search.
		if result.ProvidersFailed == 0 {
			if err := h.cache.SetFlights(ctx, params, flights); err != nil {
				h.log.Warn(ctx, "cache write failed", logger.Error(err))
			}
		}
	}

	processed := filter.Process(flights, filters, sortKey)
	meta.TotalResults = len(processed)
	meta.UnfilteredResults = len(flights)
	meta.CacheHit = cacheHit

	resp := models.SearchResponse{
		Request:  params.Pairs(),
		Metadata: meta,
		Options:  filter.Options(flights),
		Flights:  processed,
	}

	if userID := auth.UserID(c); userID != "" && h.history != nil {
		recorded, err := h.history.Record(ctx, userID, criteria.ToHistory(req.SearchCriteria, params))
		if err != nil {
			h.log.Warn(ctx, "history not recorded", logger.String("user_id", userID), logger.Error(err))
			resp.Notices = append(resp.Notices, noticeHistoryUnsaved)
		} else {
			resp.History = &recorded
		}
	}

	resp.Metadata.SearchTimeMs = time.Since(startTime).Milliseconds()
	metrics.RecordSearch("ok", len(processed))
	return c.JSON(http.StatusOK, resp)
}
