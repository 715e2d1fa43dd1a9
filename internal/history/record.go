// Package history merges observed searches into a user's search history.
package history

import (
	"time"

	"github.com/dharmasatrya/flightscout/internal/models"
)

// RecordSearch folds s into existing. When an entry with the same identity
// key exists its count is incremented and its timestamp set to now; every
// other field is left as stored. Otherwise a new entry with count 1 is
// appended. New entries have no ID; the store assigns one. existing is not
// modified.
func RecordSearch(existing []models.SearchHistoryEntry, userID string, s models.HistorySearch, now time.Time) ([]models.SearchHistoryEntry, models.Operation) {
	key := s.Key(userID)
	out := make([]models.SearchHistoryEntry, len(existing), len(existing)+1)
	copy(out, existing)

	for i := range out {
		if out[i].Key() == key {
			out[i].SearchCount++
			out[i].LastSearchedAt = now
			return out, models.OperationIncrement
		}
	}

	return append(out, newEntry(userID, s, now)), models.OperationInsert
}

func newEntry(userID string, s models.HistorySearch, now time.Time) models.SearchHistoryEntry {
	var returnDate *string
	if s.ReturnDate != nil && *s.ReturnDate != "" {
		r := *s.ReturnDate
		returnDate = &r
	}
	return models.SearchHistoryEntry{
		UserID:         userID,
		Origin:         s.Origin,
		Destination:    s.Destination,
		DepartureDate:  s.DepartureDate,
		ReturnDate:     returnDate,
		Adults:         s.Adults,
		CabinClass:     s.CabinClass,
		SearchCount:    1,
		LastSearchedAt: now,
	}
}
