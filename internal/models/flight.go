package models

import "time"

// Carrier is a marketing carrier operating a leg.
type Carrier struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	LogoURL string `json:"logo_url,omitempty"`
}

// Endpoint is a location as it appears inside a leg.
type Endpoint struct {
	ID          string `json:"id"`
	EntityID    string `json:"entity_id"`
	Name        string `json:"name"`
	DisplayCode string `json:"display_code"`
}

type Money struct {
	Raw       float64 `json:"raw"`
	Formatted string  `json:"formatted"`
}

type Leg struct {
	ID              string    `json:"id"`
	Origin          Endpoint  `json:"origin"`
	Destination     Endpoint  `json:"destination"`
	Departure       time.Time `json:"departure"`
	Arrival         time.Time `json:"arrival"`
	DurationMinutes int       `json:"duration_minutes"`
	StopCount       int       `json:"stop_count"`
	Carriers        []Carrier `json:"carriers"`
}

type Flight struct {
	ID             string  `json:"id"`
	Provider       string  `json:"provider,omitempty"`
	Price          Money   `json:"price"`
	Legs           []Leg   `json:"legs"`
	BestValueScore float64 `json:"best_value_score,omitempty"`
}

// Outbound returns legs[0] and whether the flight has one.
func (f Flight) Outbound() (Leg, bool) {
	if len(f.Legs) == 0 {
		return Leg{}, false
	}
	return f.Legs[0], true
}

// CarrierNames lists carrier names across every leg in order of appearance.
func (f Flight) CarrierNames() []string {
	var names []string
	for _, leg := range f.Legs {
		for _, c := range leg.Carriers {
			names = append(names, c.Name)
		}
	}
	return names
}
