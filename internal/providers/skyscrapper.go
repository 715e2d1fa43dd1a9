package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dharmasatrya/flightscout/internal/criteria"
	"github.com/dharmasatrya/flightscout/internal/models"
	"github.com/dharmasatrya/flightscout/pkg/logger"
)

const (
	SkyScrapperName        = "skyscrapper"
	DefaultSkyScrapperBase = "https://sky-scrapper.p.rapidapi.com/api"
	DefaultSkyScrapperHost = "sky-scrapper.p.rapidapi.com"
)

var errUpstreamStatus = errors.New("upstream reported failure")

type SkyScrapperConfig struct {
	BaseURL string
	APIKey  string
	Host    string
	Locale  string
	Client  *http.Client
}

// SkyScrapperProvider calls the Sky-Scrapper RapidAPI endpoints.
type SkyScrapperProvider struct {
	baseURL string
	apiKey  string
	host    string
	locale  string
	client  *http.Client
	log     logger.Logger
}

func NewSkyScrapperProvider(cfg SkyScrapperConfig) *SkyScrapperProvider {
	p := &SkyScrapperProvider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		host:    cfg.Host,
		locale:  cfg.Locale,
		client:  cfg.Client,
		log:     logger.Named("provider.skyscrapper"),
	}
	if p.baseURL == "" {
		p.baseURL = DefaultSkyScrapperBase
	}
	if p.host == "" {
		p.host = DefaultSkyScrapperHost
	}
	if p.locale == "" {
		p.locale = "en-US"
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: 10 * time.Second}
	}
	return p
}

func (p *SkyScrapperProvider) Name() string {
	return SkyScrapperName
}

type airportEnvelope struct {
	Status  *bool         `json:"status"`
	Message any           `json:"message"`
	Data    []wireAirport `json:"data"`
}

type flightEnvelope struct {
	Status  *bool `json:"status"`
	Message any   `json:"message"`
	Data    struct {
		Itineraries []wireItinerary `json:"itineraries"`
	} `json:"data"`
}

func (p *SkyScrapperProvider) SearchAirports(ctx context.Context, query string) ([]models.Airport, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("locale", p.locale)

	var env airportEnvelope
	if err := p.get(ctx, "/v1/flights/searchAirport?"+q.Encode(), &env); err != nil {
		return nil, NewProviderError(p.Name(), "airports", err)
	}
	if env.Status != nil && !*env.Status {
		return nil, NewProviderError(p.Name(), "airports", fmt.Errorf("%w: %v", errUpstreamStatus, env.Message))
	}

	airports := make([]models.Airport, 0, len(env.Data))
	for _, a := range env.Data {
		airports = append(airports, a.toModel())
	}
	return airports, nil
}

func (p *SkyScrapperProvider) SearchFlights(ctx context.Context, params criteria.RequestParams) ([]models.Flight, error) {
	var env flightEnvelope
	if err := p.get(ctx, "/v2/flights/searchFlights?"+params.Encode(), &env); err != nil {
		return nil, NewProviderError(p.Name(), "flights", err)
	}
	if env.Status != nil && !*env.Status {
		return nil, NewProviderError(p.Name(), "flights", fmt.Errorf("%w: %v", errUpstreamStatus, env.Message))
	}

	flights, dropped := convertItineraries(env.Data.Itineraries, p.Name(), params.Currency)
	if dropped > 0 {
		p.log.Warn(ctx, "dropped undecodable itineraries", logger.Int("dropped", dropped))
	}
	return flights, nil
}

func (p *SkyScrapperProvider) get(ctx context.Context, pathAndQuery string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+pathAndQuery, nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-rapidapi-key", p.apiKey)
	req.Header.Set("x-rapidapi-host", p.host)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
