// Package providers adapts remote flight data sources to the domain model.
package providers

import (
	"context"

	"github.com/dharmasatrya/flightscout/internal/criteria"
	"github.com/dharmasatrya/flightscout/internal/models"
)

// Provider answers location lookups and itinerary searches.
type Provider interface {
	Name() string
	SearchAirports(ctx context.Context, query string) ([]models.Airport, error)
	SearchFlights(ctx context.Context, params criteria.RequestParams) ([]models.Flight, error)
}

type ProviderError struct {
	Provider  string
	Operation string
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Operation == "" {
		return e.Provider + ": " + e.Err.Error()
	}
	return e.Provider + " " + e.Operation + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProviderError(provider, operation string, err error) *ProviderError {
	return &ProviderError{
		Provider:  provider,
		Operation: operation,
		Err:       err,
	}
}
