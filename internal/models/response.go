package models

type SearchMetadata struct {
	TotalResults       int      `json:"total_results"`
	UnfilteredResults  int      `json:"unfiltered_results"`
	ProvidersQueried   int      `json:"providers_queried"`
	ProvidersSucceeded int      `json:"providers_succeeded"`
	ProvidersFailed    int      `json:"providers_failed"`
	FailedProviders    []string `json:"failed_providers,omitempty"`
	SearchTimeMs       int64    `json:"search_time_ms"`
	CacheHit           bool     `json:"cache_hit"`
}

// FilterOptions feeds the filter affordances. It is always derived from the
// unfiltered result list.
type FilterOptions struct {
	Airlines   []string       `json:"airlines"`
	StopCounts map[string]int `json:"stop_counts"`
	MaxPrice   float64        `json:"max_price"`
}

type HistoryResult struct {
	Operation Operation            `json:"operation"`
	Recent    []SearchHistoryEntry `json:"recent"`
}

type SearchResponse struct {
	Request  []Param        `json:"request"`
	Metadata SearchMetadata `json:"metadata"`
	Options  FilterOptions  `json:"filter_options"`
	Flights  []Flight       `json:"flights"`
	History  *HistoryResult `json:"history,omitempty"`
	// Notices are non-blocking messages for the user, e.g. history could
	// not be saved.
	Notices  []string       `json:"notices,omitempty"`
}

type LocationsResponse struct {
	Query     string    `json:"query"`
	Locations []Airport `json:"locations"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
