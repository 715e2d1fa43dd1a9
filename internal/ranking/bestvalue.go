// Package ranking scores flights for the "best" sort order. Lower scores
// are better value.
package ranking

import (
	"math"

	"github.com/dharmasatrya/flightscout/internal/models"
)

// Weights blends the relative price, outbound duration and stop count into
// one score. StopPenalty is the points charged per stop before weighting.
type Weights struct {
	Price       float64
	Duration    float64
	Stops       float64
	StopPenalty float64
}

func DefaultWeights() Weights {
	return Weights{Price: 0.5, Duration: 0.3, Stops: 0.2, StopPenalty: 15}
}

// Score applies DefaultWeights.
func Score(flights []models.Flight) []models.Flight {
	return DefaultWeights().Score(flights)
}

// Score returns a copy of flights with BestValueScore set. Price and
// duration are scaled against the largest value in the set.
func (w Weights) Score(flights []models.Flight) []models.Flight {
	if len(flights) == 0 {
		return flights
	}

	b := boundsOf(flights)
	result := make([]models.Flight, len(flights))
	for i, f := range flights {
		result[i] = f
		result[i].BestValueScore = w.value(f, b)
	}
	return result
}

func (w Weights) value(f models.Flight, b bounds) float64 {
	leg, _ := f.Outbound()

	score := w.Price*percentOf(f.Price.Raw, b.price) +
		w.Duration*percentOf(float64(leg.DurationMinutes), b.duration) +
		w.Stops*float64(leg.StopCount)*w.StopPenalty

	return math.Round(score*100) / 100
}

type bounds struct {
	price    float64
	duration float64
}

func boundsOf(flights []models.Flight) bounds {
	var b bounds
	for _, f := range flights {
		leg, _ := f.Outbound()
		b.price = math.Max(b.price, f.Price.Raw)
		b.duration = math.Max(b.duration, float64(leg.DurationMinutes))
	}
	return b
}

func percentOf(v, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return v / limit * 100
}
