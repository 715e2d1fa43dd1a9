// Package aggregator fans a request out to every configured provider and
// merges the answers in provider order.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dharmasatrya/flightscout/internal/criteria"
	"github.com/dharmasatrya/flightscout/internal/models"
	"github.com/dharmasatrya/flightscout/internal/providers"
	"github.com/dharmasatrya/flightscout/internal/ratelimit"
	"github.com/dharmasatrya/flightscout/pkg/logger"
	"github.com/dharmasatrya/flightscout/pkg/metrics"
)

type Config struct {
	Timeout     time.Duration
	MaxRetries  int
	RetryDelays []time.Duration
	RateLimiter *ratelimit.ProviderLimiter
}

type Aggregator struct {
	providers []providers.Provider
	config    Config
	log       logger.Logger
}

type Result struct {
	Flights            []models.Flight
	ProvidersQueried   int
	ProvidersSucceeded int
	ProvidersFailed    int
	FailedProviders    []string
}

type AirportResult struct {
	Airports        []models.Airport
	FailedProviders []string
}

func NewAggregator(providerList []providers.Provider, config Config) *Aggregator {
	return &Aggregator{
		providers: providerList,
		config:    config,
		log:       logger.Named("aggregator"),
	}
}

// Providers returns the provider names in merge order.
func (a *Aggregator) Providers() []string {
	names := make([]string, len(a.providers))
	for i, p := range a.providers {
		names[i] = p.Name()
	}
	return names
}

type outcome[T any] struct {
	provider  string
	items     []T
	err       error
	cancelled bool
}

// cancelledByCaller reports whether err only reflects the caller giving up,
// as when a newer lookup supersedes this one.
func cancelledByCaller(ctx context.Context, err error) bool {
	return ctx.Err() != nil && errors.Is(err, context.Canceled)
}

// fanOut calls every provider concurrently. Outcomes are indexed by provider
// position, so merging them is deterministic.
func fanOut[T any](ctx context.Context, a *Aggregator, op string, call func(context.Context, providers.Provider) ([]T, error)) []outcome[T] {
	callCtx := ctx
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	outcomes := make([]outcome[T], len(a.providers))
	var wg sync.WaitGroup
	for i, p := range a.providers {
		wg.Add(1)
		go func(i int, provider providers.Provider) {
			defer wg.Done()
			start := time.Now()
			items, err := callWithRetry(callCtx, a, provider, op, call)
			cancelled := err != nil && cancelledByCaller(ctx, err)
			status := "ok"
			switch {
			case cancelled:
				status = "cancelled"
			case err != nil:
				status = "error"
			}
			metrics.RecordProviderRequest(provider.Name(), op, status, float64(time.Since(start).Milliseconds()))
			outcomes[i] = outcome[T]{provider: provider.Name(), items: items, err: err, cancelled: cancelled}
		}(i, p)
	}
	wg.Wait()
	return outcomes
}

func callWithRetry[T any](ctx context.Context, a *Aggregator, provider providers.Provider, op string, call func(context.Context, providers.Provider) ([]T, error)) ([]T, error) {
	var lastErr error

	for attempt := 0; attempt <= a.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, err
		}

		if attempt > 0 && len(a.config.RetryDelays) > 0 {
			delayIdx := attempt - 1
			if delayIdx >= len(a.config.RetryDelays) {
				delayIdx = len(a.config.RetryDelays) - 1
			}
			t := time.NewTimer(a.config.RetryDelays[delayIdx])
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return nil, lastErr
			}
		}

		if a.config.RateLimiter != nil {
			if err := a.config.RateLimiter.Wait(ctx, provider.Name()); err != nil {
				if lastErr != nil {
					return nil, lastErr
				}
				return nil, providers.NewProviderError(provider.Name(), op, err)
			}
		}

		items, err := call(ctx, provider)
		if err == nil {
			return items, nil
		}

		lastErr = err
		if cancelledByCaller(ctx, err) {
			return nil, err
		}
		a.log.Debug(ctx, "provider attempt failed",
			logger.String("provider", provider.Name()),
			logger.String("operation", op),
			logger.Int("attempt", attempt+1),
			logger.Error(err),
		)
	}

	return nil, lastErr
}

// SearchFlights queries every provider. Flights keep provider order and the
// first occurrence of an id wins. The error is non-nil only when every
// provider failed, and then wraps models.ErrSearchFailed.
func (a *Aggregator) SearchFlights(ctx context.Context, params criteria.RequestParams) (*Result, error) {
	outcomes := fanOut(ctx, a, "flights", func(ctx context.Context, p providers.Provider) ([]models.Flight, error) {
		return p.SearchFlights(ctx, params)
	})

	result := &Result{
		Flights:          make([]models.Flight, 0),
		ProvidersQueried: len(a.providers),
	}
	seen := make(map[string]bool)
	var errs []error
	for _, o := range outcomes {
		if o.err != nil {
			if !o.cancelled {
				a.log.Warn(ctx, "provider failed",
					logger.String("provider", o.provider),
					logger.String("operation", "flights"),
					logger.Error(o.err),
				)
			}
			result.ProvidersFailed++
			result.FailedProviders = append(result.FailedProviders, o.provider)
			errs = append(errs, o.err)
			continue
		}
		result.ProvidersSucceeded++
		for _, f := range o.items {
			if f.ID != "" && seen[f.ID] {
				continue
			}
			seen[f.ID] = true
			result.Flights = append(result.Flights, f)
		}
	}

	if len(a.providers) > 0 && result.ProvidersSucceeded == 0 {
		return result, fmt.Errorf("%w: %w", models.ErrSearchFailed, errors.Join(errs...))
	}
	return result, nil
}

// SearchAirports queries every provider and de-duplicates on SkyID and
// EntityID. Total failure wraps models.ErrLookupFailed.
func (a *Aggregator) SearchAirports(ctx context.Context, query string) (*AirportResult, error) {
	outcomes := fanOut(ctx, a, "airports", func(ctx context.Context, p providers.Provider) ([]models.Airport, error) {
		return p.SearchAirports(ctx, query)
	})

	result := &AirportResult{Airports: make([]models.Airport, 0)}
	seen := make(map[models.LocationRef]bool)
	var errs []error
	for _, o := range outcomes {
		if o.err != nil {
			if !o.cancelled {
				a.log.Warn(ctx, "provider failed",
					logger.String("provider", o.provider),
					logger.String("operation", "airports"),
					logger.Error(o.err),
				)
			}
			result.FailedProviders = append(result.FailedProviders, o.provider)
			errs = append(errs, o.err)
			continue
		}
		for _, ap := range o.items {
			key := models.LocationRef{SkyID: ap.SkyID, EntityID: ap.EntityID}
			if seen[key] {
				continue
			}
			seen[key] = true
			result.Airports = append(result.Airports, ap)
		}
	}

	if len(a.providers) > 0 && len(result.FailedProviders) == len(a.providers) {
		return result, fmt.Errorf("%w: %w", models.ErrLookupFailed, errors.Join(errs...))
	}
	return result, nil
}
