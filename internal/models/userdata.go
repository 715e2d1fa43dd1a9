package models

import "time"

type Operation string

const (
	OperationInsert    Operation = "insert"
	OperationIncrement Operation = "increment"
)

// HistoryKey is the identity of a search history entry. Two searches with the
// same key are the same search.
type HistoryKey struct {
	UserID           string
	OriginSkyID      string
	DestinationSkyID string
	DepartureDate    string
	ReturnDate       string
	Adults           int
	CabinClass       CabinClass
}

// HistorySearch is a newly observed search, before it is merged into history.
type HistorySearch struct {
	Origin        LocationRef `json:"origin"`
	Destination   LocationRef `json:"destination"`
	DepartureDate string      `json:"departure_date"`
	ReturnDate    *string     `json:"return_date,omitempty"`
	Adults        int         `json:"adults"`
	CabinClass    CabinClass  `json:"cabin_class"`
}

func (s HistorySearch) Key(userID string) HistoryKey {
	return HistoryKey{
		UserID:           userID,
		OriginSkyID:      s.Origin.SkyID,
		DestinationSkyID: s.Destination.SkyID,
		DepartureDate:    s.DepartureDate,
		ReturnDate:       derefString(s.ReturnDate),
		Adults:           s.Adults,
		CabinClass:       s.CabinClass,
	}
}

type SearchHistoryEntry struct {
	ID             string      `json:"id"`
	UserID         string      `json:"user_id"`
	Origin         LocationRef `json:"origin"`
	Destination    LocationRef `json:"destination"`
	DepartureDate  string      `json:"departure_date"`
	ReturnDate     *string     `json:"return_date,omitempty"`
	Adults         int         `json:"adults"`
	CabinClass     CabinClass  `json:"cabin_class"`
	SearchCount    int         `json:"search_count"`
	LastSearchedAt time.Time   `json:"last_searched_at"`
}

func (e SearchHistoryEntry) Key() HistoryKey {
	return HistoryKey{
		UserID:           e.UserID,
		OriginSkyID:      e.Origin.SkyID,
		DestinationSkyID: e.Destination.SkyID,
		DepartureDate:    e.DepartureDate,
		ReturnDate:       derefString(e.ReturnDate),
		Adults:           e.Adults,
		CabinClass:       e.CabinClass,
	}
}

type FavoriteRoute struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Origin      LocationRef `json:"origin"`
	Destination LocationRef `json:"destination"`
	RouteName   *string     `json:"route_name,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

type PriceAlert struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	Origin        LocationRef `json:"origin"`
	Destination   LocationRef `json:"destination"`
	DepartureDate string      `json:"departure_date"`
	ReturnDate    *string     `json:"return_date,omitempty"`
	Adults        int         `json:"adults"`
	CabinClass    CabinClass  `json:"cabin_class"`
	TargetPrice   float64     `json:"target_price"`
	Currency      string      `json:"currency"`
	IsActive      bool        `json:"is_active"`
	CreatedAt     time.Time   `json:"created_at"`
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
