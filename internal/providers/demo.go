package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dharmasatrya/flightscout/internal/criteria"
	"github.com/dharmasatrya/flightscout/internal/models"
	"github.com/dharmasatrya/flightscout/internal/providers/data"
)

const DemoName = "demo"

// DemoProvider serves the embedded sample itineraries and airports.
type DemoProvider struct {
	airports    []wireAirport
	itineraries []wireItinerary
	latency     time.Duration
}

func NewDemoProvider(latency time.Duration) (*DemoProvider, error) {
	p := &DemoProvider{latency: latency}
	if err := json.Unmarshal(data.Airports, &p.airports); err != nil {
		return nil, fmt.Errorf("demo airports: %w", err)
	}
	if err := json.Unmarshal(data.Flights, &p.itineraries); err != nil {
		return nil, fmt.Errorf("demo flights: %w", err)
	}
	return p, nil
}

func (p *DemoProvider) Name() string {
	return DemoName
}

func (p *DemoProvider) wait(ctx context.Context) error {
	if p.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(p.latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SearchAirports matches the query against code, title and localized name.
func (p *DemoProvider) SearchAirports(ctx context.Context, query string) ([]models.Airport, error) {
	if err := p.wait(ctx); err != nil {
		return nil, NewProviderError(p.Name(), "airports", err)
	}

	q := strings.ToLower(strings.TrimSpace(query))
	results := make([]models.Airport, 0)
	for _, a := range p.airports {
		if strings.HasPrefix(strings.ToLower(a.SkyID), q) ||
			strings.Contains(strings.ToLower(a.Presentation.Title), q) ||
			strings.Contains(strings.ToLower(a.Navigation.LocalizedName), q) {
			results = append(results, a.toModel())
		}
	}
	return results, nil
}

// SearchFlights returns the sample itineraries whose first leg matches the
// requested route, re-dated onto the requested departure date.
func (p *DemoProvider) SearchFlights(ctx context.Context, params criteria.RequestParams) ([]models.Flight, error) {
	if err := p.wait(ctx); err != nil {
		return nil, NewProviderError(p.Name(), "flights", err)
	}

	var requested time.Time
	if params.Date != "" {
		d, err := time.Parse("2006-01-02", params.Date)
		if err != nil {
			return nil, NewProviderError(p.Name(), "flights", err)
		}
		requested = d
	}

	var matched []wireItinerary
	for _, it := range p.itineraries {
		if len(it.Legs) == 0 {
			continue
		}
		first := it.Legs[0]
		if !strings.EqualFold(first.Origin.DisplayCode, params.OriginSkyID) ||
			!strings.EqualFold(first.Destination.DisplayCode, params.DestinationSkyID) {
			continue
		}
		matched = append(matched, it)
	}

	flights, _ := convertItineraries(matched, p.Name(), params.Currency)
	if !requested.IsZero() {
		for i := range flights {
			flights[i] = redate(flights[i], requested)
		}
	}
	return flights, nil
}

// redate shifts every leg by whole days so the first departure falls on day.
func redate(f models.Flight, day time.Time) models.Flight {
	first, ok := f.Outbound()
	if !ok {
		return f
	}
	y, m, d := first.Departure.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	to := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	shift := to.Sub(from)

	legs := make([]models.Leg, len(f.Legs))
	for i, l := range f.Legs {
		l.Departure = l.Departure.Add(shift)
		l.Arrival = l.Arrival.Add(shift)
		legs[i] = l
	}
	f.Legs = legs
	return f
}
