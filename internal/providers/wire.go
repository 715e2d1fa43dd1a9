package providers

import (
	"fmt"

	"github.com/dharmasatrya/flightscout/internal/models"
	"github.com/dharmasatrya/flightscout/internal/timezone"
	"github.com/dharmasatrya/flightscout/pkg/currency"
)

// Sky-Scrapper wire shapes. The embedded demo data uses the same layout.

type wireAirport struct {
	SkyID        string `json:"skyId"`
	EntityID     string `json:"entityId"`
	Presentation struct {
		Title    string `json:"title"`
		Subtitle string `json:"subtitle"`
	} `json:"presentation"`
	Navigation struct {
		EntityID      string `json:"entityId"`
		EntityType    string `json:"entityType"`
		LocalizedName string `json:"localizedName"`
	} `json:"navigation"`
}

type wireEndpoint struct {
	ID          string `json:"id"`
	EntityID    string `json:"entityId"`
	Name        string `json:"name"`
	DisplayCode string `json:"displayCode"`
}

type wireCarrier struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	LogoURL string `json:"logoUrl"`
}

type wireLeg struct {
	ID                string       `json:"id"`
	Origin            wireEndpoint `json:"origin"`
	Destination       wireEndpoint `json:"destination"`
	DurationInMinutes int          `json:"durationInMinutes"`
	StopCount         int          `json:"stopCount"`
	Departure         string       `json:"departure"`
	Arrival           string       `json:"arrival"`
	Carriers          struct {
		Marketing []wireCarrier `json:"marketing"`
	} `json:"carriers"`
}

type wireItinerary struct {
	ID    string `json:"id"`
	Price struct {
		Raw       float64 `json:"raw"`
		Formatted string  `json:"formatted"`
	} `json:"price"`
	Legs []wireLeg `json:"legs"`
}

func (a wireAirport) toModel() models.Airport {
	entityID := a.EntityID
	if entityID == "" {
		entityID = a.Navigation.EntityID
	}
	return models.Airport{
		SkyID:         a.SkyID,
		EntityID:      entityID,
		Title:         a.Presentation.Title,
		Subtitle:      a.Presentation.Subtitle,
		EntityType:    a.Navigation.EntityType,
		LocalizedName: a.Navigation.LocalizedName,
	}
}

func (e wireEndpoint) toModel() models.Endpoint {
	return models.Endpoint{
		ID:          e.ID,
		EntityID:    e.EntityID,
		Name:        e.Name,
		DisplayCode: e.DisplayCode,
	}
}

// toModel converts an itinerary. Times are parsed as the airport-local
// wall clock the provider reports.
func (it wireItinerary) toModel(provider, currencyCode string) (models.Flight, error) {
	legs := make([]models.Leg, 0, len(it.Legs))
	for _, l := range it.Legs {
		dep, err := timezone.Parse(l.Departure, nil)
		if err != nil {
			return models.Flight{}, fmt.Errorf("itinerary %s leg %s departure: %w", it.ID, l.ID, err)
		}
		arr, err := timezone.Parse(l.Arrival, nil)
		if err != nil {
			return models.Flight{}, fmt.Errorf("itinerary %s leg %s arrival: %w", it.ID, l.ID, err)
		}

		carriers := make([]models.Carrier, len(l.Carriers.Marketing))
		for i, c := range l.Carriers.Marketing {
			carriers[i] = models.Carrier{ID: c.ID, Name: c.Name, LogoURL: c.LogoURL}
		}

		legs = append(legs, models.Leg{
			ID:              l.ID,
			Origin:          l.Origin.toModel(),
			Destination:     l.Destination.toModel(),
			Departure:       dep,
			Arrival:         arr,
			DurationMinutes: l.DurationInMinutes,
			StopCount:       l.StopCount,
			Carriers:        carriers,
		})
	}

	formatted := it.Price.Formatted
	if formatted == "" {
		formatted = currency.Format(it.Price.Raw, currencyCode)
	}
	return models.Flight{
		ID:       it.ID,
		Provider: provider,
		Price:    models.Money{Raw: it.Price.Raw, Formatted: formatted},
		Legs:     legs,
	}, nil
}

// convertItineraries skips itineraries that cannot be decoded; dropped
// reports how many.
func convertItineraries(items []wireItinerary, provider, currencyCode string) (flights []models.Flight, dropped int) {
	flights = make([]models.Flight, 0, len(items))
	for _, it := range items {
		f, err := it.toModel(provider, currencyCode)
		if err != nil {
			dropped++
			continue
		}
		flights = append(flights, f)
	}
	return flights, dropped
}
