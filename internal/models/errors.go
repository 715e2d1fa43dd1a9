package models

import "errors"

// ValidationError marks missing or malformed user input. It is resolved by
// prompting the user and is never retried automatically.
type ValidationError string

func (e ValidationError) Error() string {
	return string(e)
}

const (
	ErrMissingOrigin        ValidationError = "origin is required"
	ErrMissingDestination   ValidationError = "destination is required"
	ErrMissingDepartureDate ValidationError = "departure_date is required"
	ErrInvalidDate          ValidationError = "dates must be formatted as YYYY-MM-DD"
	ErrReturnBeforeDepart   ValidationError = "return_date must not be before departure_date"
	ErrInvalidAdults        ValidationError = "adults must be between 1 and 9"
	ErrInvalidChildren      ValidationError = "children must be between 0 and 8"
	ErrInvalidInfants       ValidationError = "infants must be between 0 and the number of adults"
	ErrInvalidCabinClass    ValidationError = "cabin_class must be one of economy, premium_economy, business, first"
	ErrInvalidTripType      ValidationError = "trip_type must be one of oneway, roundtrip, multicity"
	ErrInvalidPriceRange    ValidationError = "price_min must not exceed price_max"
	ErrInvalidDurationRange ValidationError = "min_duration_minutes must not exceed max_duration_minutes"
	ErrInvalidTargetPrice   ValidationError = "target_price must be greater than zero"
)

// Recoverable failures of external collaborators. Callers wrap the cause
// with %w so both the kind and the cause stay inspectable.
var (
	ErrLookupFailed      = errors.New("location lookup failed")
	ErrSearchFailed      = errors.New("flight search failed")
	ErrPersistenceFailed = errors.New("persistence failed")
	ErrNotFound          = errors.New("record not found")
	ErrUnauthenticated   = errors.New("user identity required")
)

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}
