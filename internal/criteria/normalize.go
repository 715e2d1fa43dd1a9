// Package criteria turns user-entered trip state into the canonical request
// sent to the flight search provider.
package criteria

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dharmasatrya/flightscout/internal/models"
)

const dateLayout = "2006-01-02"

const (
	maxAdults   = 9
	maxChildren = 8
)

// Provider sort options accepted by the itinerary search.
var providerSorts = map[string]bool{
	"best":                   true,
	"price_high":             true,
	"price_low":              true,
	"duration":               true,
	"outbound_take_off_time": true,
	"outbound_landing_time":  true,
}

// Defaults are the provider-level values filled in when the user gave none.
type Defaults struct {
	SortBy      string
	Currency    string
	Market      string
	CountryCode string
}

func DefaultDefaults() Defaults {
	return Defaults{
		SortBy:      "best",
		Currency:    "USD",
		Market:      "en-US",
		CountryCode: "US",
	}
}

// RequestParams is the canonical itinerary search request. Empty Date and
// ReturnDate are omitted from the wire form.
type RequestParams struct {
	OriginSkyID         string
	DestinationSkyID    string
	OriginEntityID      string
	DestinationEntityID string
	CabinClass          models.CabinClass
	Adults              int
	SortBy              string
	Currency            string
	Market              string
	CountryCode         string
	Date                string
	ReturnDate          string
}

// Pairs returns the parameters in their fixed send order.
func (p RequestParams) Pairs() []models.Param {
	pairs := []models.Param{
		{Key: "originSkyId", Value: p.OriginSkyID},
		{Key: "destinationSkyId", Value: p.DestinationSkyID},
		{Key: "originEntityId", Value: p.OriginEntityID},
		{Key: "destinationEntityId", Value: p.DestinationEntityID},
		{Key: "cabinClass", Value: string(p.CabinClass)},
		{Key: "adults", Value: strconv.Itoa(p.Adults)},
		{Key: "sortBy", Value: p.SortBy},
		{Key: "currency", Value: p.Currency},
		{Key: "market", Value: p.Market},
		{Key: "countryCode", Value: p.CountryCode},
	}
	if p.Date != "" {
		pairs = append(pairs, models.Param{Key: "date", Value: p.Date})
	}
	if p.ReturnDate != "" {
		pairs = append(pairs, models.Param{Key: "returnDate", Value: p.ReturnDate})
	}
	return pairs
}

// Encode renders the canonical query string. Identical criteria always
// encode to identical strings, so the result doubles as a cache key.
func (p RequestParams) Encode() string {
	var b strings.Builder
	for i, kv := range p.Pairs() {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.Value))
	}
	return b.String()
}

// Normalize validates c and applies defaults. The returned error is always a
// models.ValidationError.
func Normalize(c models.SearchCriteria, d Defaults) (RequestParams, error) {
	if c.Origin == nil || c.Origin.SkyID == "" || c.Origin.EntityID == "" {
		return RequestParams{}, models.ErrMissingOrigin
	}
	if c.Destination == nil || c.Destination.SkyID == "" || c.Destination.EntityID == "" {
		return RequestParams{}, models.ErrMissingDestination
	}
	if strings.TrimSpace(c.DepartureDate) == "" {
		return RequestParams{}, models.ErrMissingDepartureDate
	}
	departure, err := time.Parse(dateLayout, strings.TrimSpace(c.DepartureDate))
	if err != nil {
		return RequestParams{}, models.ErrInvalidDate
	}

	tripType := c.TripType
	if tripType == "" {
		tripType = models.TripOneWay
		if c.ReturnDate != nil && *c.ReturnDate != "" {
			tripType = models.TripRoundTrip
		}
	}
	if !tripType.Valid() {
		return RequestParams{}, models.ErrInvalidTripType
	}

	var returnDate string
	if tripType == models.TripRoundTrip && c.ReturnDate != nil && strings.TrimSpace(*c.ReturnDate) != "" {
		ret, err := time.Parse(dateLayout, strings.TrimSpace(*c.ReturnDate))
		if err != nil {
			return RequestParams{}, models.ErrInvalidDate
		}
		if ret.Before(departure) {
			return RequestParams{}, models.ErrReturnBeforeDepart
		}
		returnDate = ret.Format(dateLayout)
	}

	adults := c.Passengers.Adults
	if adults == 0 {
		adults = 1
	}
	if adults < 1 || adults > maxAdults {
		return RequestParams{}, models.ErrInvalidAdults
	}
	if c.Passengers.Children < 0 || c.Passengers.Children > maxChildren {
		return RequestParams{}, models.ErrInvalidChildren
	}
	if c.Passengers.Infants < 0 || c.Passengers.Infants > adults {
		return RequestParams{}, models.ErrInvalidInfants
	}

	cabin := c.CabinClass
	if cabin == "" {
		cabin = models.CabinEconomy
	}
	if !cabin.Valid() {
		return RequestParams{}, models.ErrInvalidCabinClass
	}

	sortBy := strings.TrimSpace(c.SortBy)
	if sortBy == "" {
		sortBy = d.SortBy
	}
	if !providerSorts[sortBy] {
		return RequestParams{}, models.ValidationError("unknown sort_by " + strconv.Quote(sortBy))
	}

	return RequestParams{
		OriginSkyID:         c.Origin.SkyID,
		DestinationSkyID:    c.Destination.SkyID,
		OriginEntityID:      c.Origin.EntityID,
		DestinationEntityID: c.Destination.EntityID,
		CabinClass:          cabin,
		Adults:              adults,
		SortBy:              sortBy,
		Currency:            orDefault(d.Currency, "USD"),
		Market:              orDefault(d.Market, "en-US"),
		CountryCode:         orDefault(d.CountryCode, "US"),
		Date:                departure.Format(dateLayout),
		ReturnDate:          returnDate,
	}, nil
}

// ToHistory projects a normalized search into a history observation. c must
// be the criteria p was normalized from.
func ToHistory(c models.SearchCriteria, p RequestParams) models.HistorySearch {
	h := models.HistorySearch{
		DepartureDate: p.Date,
		Adults:        p.Adults,
		CabinClass:    p.CabinClass,
	}
	if c.Origin != nil {
		h.Origin = *c.Origin
	}
	if c.Destination != nil {
		h.Destination = *c.Destination
	}
	if p.ReturnDate != "" {
		r := p.ReturnDate
		h.ReturnDate = &r
	}
	return h
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
