// Package filter narrows and orders a flight result set. Everything here is
// pure: inputs are never mutated and the same inputs give the same output.
package filter

import (
	"math"
	"sort"

	"github.com/dharmasatrya/flightscout/internal/models"
	"github.com/dharmasatrya/flightscout/internal/ranking"
)

// minPriceCeiling keeps the price slider usable for small result sets.
const minPriceCeiling = 2000

// Process filters flights by filters and stable-sorts the survivors by key.
// Only legs[0] drives stops, departure time, duration and the sort
// projections; airlines are matched across all legs.
func Process(flights []models.Flight, filters models.FilterState, key models.SortKey) []models.Flight {
	m := newMatcher(filters)

	result := make([]models.Flight, 0, len(flights))
	for _, f := range flights {
		if m.matches(f) {
			result = append(result, f)
		}
	}

	return applySort(result, key)
}

// StopBucket classifies the outbound leg's stop count. A flight without
// legs counts as nonstop.
func StopBucket(f models.Flight) string {
	leg, _ := f.Outbound()
	switch {
	case leg.StopCount <= 0:
		return models.StopsNonstop
	case leg.StopCount == 1:
		return models.StopsOne
	default:
		return models.StopsTwoPlus
	}
}

// DepartureBucket classifies the outbound departure by its wall-clock hour.
func DepartureBucket(f models.Flight) (string, bool) {
	leg, ok := f.Outbound()
	if !ok {
		return "", false
	}
	switch h := leg.Departure.Hour(); {
	case h < 5:
		return models.BucketOvernight, true
	case h < 12:
		return models.BucketEarlyMorning, true
	case h < 18:
		return models.BucketAfternoon, true
	default:
		return models.BucketEvening, true
	}
}

// Options derives the filter affordances from the unfiltered list, so the
// counts do not shift as the user toggles filters.
func Options(flights []models.Flight) models.FilterOptions {
	opts := models.FilterOptions{
		Airlines: []string{},
		StopCounts: map[string]int{
			models.StopsNonstop: 0,
			models.StopsOne:     0,
			models.StopsTwoPlus: 0,
		},
		MaxPrice: minPriceCeiling,
	}

	seen := make(map[string]bool)
	for _, f := range flights {
		for _, name := range f.CarrierNames() {
			if !seen[name] {
				seen[name] = true
				opts.Airlines = append(opts.Airlines, name)
			}
		}
		opts.StopCounts[StopBucket(f)]++
		opts.MaxPrice = math.Max(opts.MaxPrice, f.Price.Raw)
	}
	sort.Strings(opts.Airlines)

	return opts
}

type matcher struct {
	filters  models.FilterState
	stops    map[string]bool
	airlines map[string]bool
	buckets  map[string]bool
}

func newMatcher(filters models.FilterState) matcher {
	return matcher{
		filters:  filters,
		stops:    toSet(filters.Stops),
		airlines: toSet(filters.Airlines),
		buckets:  toSet(filters.DepartureTimes),
	}
}

func (m matcher) matches(f models.Flight) bool {
	if m.filters.PriceMin != nil && f.Price.Raw < *m.filters.PriceMin {
		return false
	}
	if m.filters.PriceMax != nil && f.Price.Raw > *m.filters.PriceMax {
		return false
	}

	if len(m.stops) > 0 && !m.stops[StopBucket(f)] {
		return false
	}

	if len(m.airlines) > 0 {
		found := false
		for _, name := range f.CarrierNames() {
			if m.airlines[name] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(m.buckets) > 0 {
		bucket, ok := DepartureBucket(f)
		if !ok || !m.buckets[bucket] {
			return false
		}
	}

	leg, _ := f.Outbound()
	if m.filters.MinDurationMinutes != nil && leg.DurationMinutes < *m.filters.MinDurationMinutes {
		return false
	}
	if m.filters.MaxDurationMinutes != nil && leg.DurationMinutes > *m.filters.MaxDurationMinutes {
		return false
	}

	return true
}

func applySort(flights []models.Flight, key models.SortKey) []models.Flight {
	if len(flights) == 0 {
		return flights
	}

	var project func(models.Flight) float64
	switch key {
	case models.SortPrice:
		project = func(f models.Flight) float64 { return f.Price.Raw }
	case models.SortDuration:
		project = func(f models.Flight) float64 {
			leg, _ := f.Outbound()
			return float64(leg.DurationMinutes)
		}
	case models.SortDeparture:
		project = func(f models.Flight) float64 {
			leg, ok := f.Outbound()
			if !ok {
				return 0
			}
			return float64(leg.Departure.UnixMilli())
		}
	case models.SortArrival:
		project = func(f models.Flight) float64 {
			leg, ok := f.Outbound()
			if !ok {
				return 0
			}
			return float64(leg.Arrival.UnixMilli())
		}
	case models.SortBest:
		flights = ranking.Score(flights)
		project = func(f models.Flight) float64 { return f.BestValueScore }
	default:
		// Unknown keys keep the input order.
		return flights
	}

	sort.SliceStable(flights, func(i, j int) bool {
		return project(flights[i]) < project(flights[j])
	})

	return flights
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
