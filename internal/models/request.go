package models

import (
	"fmt"
	"strings"
)

type CabinClass string

const (
	CabinEconomy        CabinClass = "economy"
	CabinPremiumEconomy CabinClass = "premium_economy"
	CabinBusiness       CabinClass = "business"
	CabinFirst          CabinClass = "first"
)

func (c CabinClass) Valid() bool {
	switch c {
	case CabinEconomy, CabinPremiumEconomy, CabinBusiness, CabinFirst:
		return true
	}
	return false
}

type TripType string

const (
	TripOneWay    TripType = "oneway"
	TripRoundTrip TripType = "roundtrip"
	TripMultiCity TripType = "multicity"
)

func (t TripType) Valid() bool {
	switch t {
	case TripOneWay, TripRoundTrip, TripMultiCity:
		return true
	}
	return false
}

type Passengers struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
}

// SearchCriteria is the trip state a user submits. Optional fields stay nil
// or empty; defaults are applied by the criteria normalizer.
type SearchCriteria struct {
	Origin        *LocationRef `json:"origin,omitempty"`
	Destination   *LocationRef `json:"destination,omitempty"`
	DepartureDate string       `json:"departure_date"`
	ReturnDate    *string      `json:"return_date,omitempty"`
	Passengers    Passengers   `json:"passengers"`
	CabinClass    CabinClass   `json:"cabin_class,omitempty"`
	TripType      TripType     `json:"trip_type,omitempty"`
	SortBy        string       `json:"sort_by,omitempty"`
}

// Stop buckets.
const (
	StopsNonstop = "nonstop"
	StopsOne     = "1-stop"
	StopsTwoPlus = "2plus-stops"
)

// Departure time buckets.
const (
	BucketEarlyMorning = "early-morning"
	BucketAfternoon    = "afternoon"
	BucketEvening      = "evening"
	BucketOvernight    = "overnight"
)

// FilterState narrows a result set. Empty sets and nil bounds mean
// "no constraint".
type FilterState struct {
	PriceMin           *float64 `json:"price_min,omitempty"`
	PriceMax           *float64 `json:"price_max,omitempty"`
	Stops              []string `json:"stops,omitempty"`
	Airlines           []string `json:"airlines,omitempty"`
	DepartureTimes     []string `json:"departure_times,omitempty"`
	MinDurationMinutes *int     `json:"min_duration_minutes,omitempty"`
	MaxDurationMinutes *int     `json:"max_duration_minutes,omitempty"`
}

func (f FilterState) Validate() error {
	for _, s := range f.Stops {
		switch s {
		case StopsNonstop, StopsOne, StopsTwoPlus:
		default:
			return ValidationError(fmt.Sprintf("unknown stop filter %q", s))
		}
	}
	for _, b := range f.DepartureTimes {
		switch b {
		case BucketEarlyMorning, BucketAfternoon, BucketEvening, BucketOvernight:
		default:
			return ValidationError(fmt.Sprintf("unknown departure time filter %q", b))
		}
	}
	if f.PriceMin != nil && f.PriceMax != nil && *f.PriceMin > *f.PriceMax {
		return ErrInvalidPriceRange
	}
	if f.MinDurationMinutes != nil && f.MaxDurationMinutes != nil && *f.MinDurationMinutes > *f.MaxDurationMinutes {
		return ErrInvalidDurationRange
	}
	return nil
}

type SortKey string

const (
	SortPrice     SortKey = "price"
	SortDuration  SortKey = "duration"
	SortDeparture SortKey = "departure"
	SortArrival   SortKey = "arrival"
	SortBest      SortKey = "best"
)

// ParseSortKey accepts the known keys case-insensitively and defaults to
// price, matching the results view's initial ordering.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortPrice, nil
	case SortPrice, SortDuration, SortDeparture, SortArrival, SortBest:
		return k, nil
	}
	return "", ValidationError(fmt.Sprintf("unknown sort key %q", s))
}

// Param is one key/value pair of a provider request, kept in send order.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SearchRequest is the body of POST /flights/search.
type SearchRequest struct {
	SearchCriteria
	Filters *FilterState `json:"filters,omitempty"`
	Sort    string       `json:"sort,omitempty"`
}
