package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/dharmasatrya/flightscout/internal/aggregator"
	"github.com/dharmasatrya/flightscout/internal/auth"
	"github.com/dharmasatrya/flightscout/internal/cache"
	"github.com/dharmasatrya/flightscout/internal/criteria"
	"github.com/dharmasatrya/flightscout/internal/history"
	"github.com/dharmasatrya/flightscout/internal/lookup"
	"github.com/dharmasatrya/flightscout/internal/models"
	"github.com/dharmasatrya/flightscout/internal/providers"
	"github.com/dharmasatrya/flightscout/internal/store/memory"
	"github.com/dharmasatrya/flightscout/internal/userdata"
	"github.com/dharmasatrya/flightscout/pkg/logger"
)

type downProvider struct{}

func (downProvider) Name() string { return "down" }

func (downProvider) SearchAirports(context.Context, string) ([]models.Airport, error) {
	return nil, providers.NewProviderError("down", "airports", errors.New("unreachable"))
}

func (downProvider) SearchFlights(context.Context, criteria.RequestParams) ([]models.Flight, error) {
	return nil, providers.NewProviderError("down", "flights", errors.New("unreachable"))
}

// stallingProvider blocks airport lookups for query until the caller gives
// up, and answers every other query at once.
type stallingProvider struct {
	stall   string
	started chan struct{}
}

func (p *stallingProvider) Name() string { return "stalling" }

func (p *stallingProvider) SearchAirports(ctx context.Context, query string) ([]models.Airport, error) {
	if query != p.stall {
		return []models.Airport{{SkyID: "DEL", EntityID: "95673498", Title: "Indira Gandhi International"}}, nil
	}
	close(p.started)
	<-ctx.Done()
	return nil, providers.NewProviderError(p.Name(), "airports", ctx.Err())
}

func (p *stallingProvider) SearchFlights(context.Context, criteria.RequestParams) ([]models.Flight, error) {
	return nil, nil
}

type brokenHistory struct{}

func (brokenHistory) Record(context.Context, string, models.HistorySearch) (models.HistoryResult, error) {
	return models.HistoryResult{}, models.ErrPersistenceFailed
}

type testServer struct {
	echo     *echo.Echo
	registry *lookup.Registry
}

func newTestServer(provider providers.Provider, recorder HistoryRecorder) *testServer {
	agg := aggregator.NewAggregator([]providers.Provider{provider}, aggregator.Config{Timeout: time.Second})
	noCache := cache.NewNoOpCache()
	st := memory.New()
	engine := history.NewEngine(st)
	if recorder == nil {
		recorder = engine
	}

	locations := NewLocationService(agg, noCache, lookup.DefaultMinLength)
	registry := lookup.NewRegistry(locations.Search, lookup.WithWait(20*time.Millisecond))

	e := echo.New()
	Handlers{
		Search:    NewSearchHandler(agg, noCache, recorder, criteria.DefaultDefaults()),
		Locations: NewLocationHandler(locations),
		Lookup:    NewLookupHandler(registry),
		UserData:  NewUserDataHandler(engine, userdata.NewService(st, st)),
		Health:    NewHealthHandler(st),
	}.Register(e, auth.New(""))

	return &testServer{echo: e, registry: registry}
}

func demoProvider() providers.Provider {
	p, err := providers.NewDemoProvider(0)
	if err != nil {
		panic(err)
	}
	return p
}

func (s *testServer) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](rec *httptest.ResponseRecorder) T {
	var v T
	_ = json.Unmarshal(rec.Body.Bytes(), &v)
	return v
}

const delToBlr = `{
	"origin": {"sky_id": "DEL", "entity_id": "95673498"},
	"destination": {"sky_id": "BLR", "entity_id": "95673351"},
	"departure_date": "2025-08-10",
	"passengers": {"adults": 1},
	"sort": "price"
}`

var asUser = map[string]string{auth.HeaderUserID: "user-1"}

func TestSearch(t *testing.T) {
	Convey("Given a server backed by the demo provider", t, func() {
		s := newTestServer(demoProvider(), nil)
		Reset(s.registry.Close)

		Convey("When an anonymous user searches DEL to BLR by price", func() {
			rec := s.do(http.MethodPost, "/api/v1/flights/search", delToBlr, nil)
			resp := decode[models.SearchResponse](rec)

			Convey("Then all three flights come back cheapest first", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(len(resp.Flights), ShouldEqual, 3)
				So(resp.Flights[0].Price.Raw, ShouldEqual, 129.49)
				So(resp.Flights[2].Price.Raw, ShouldEqual, 349.0)
				So(resp.Metadata.ProvidersSucceeded, ShouldEqual, 1)
				So(resp.Metadata.CacheHit, ShouldBeFalse)
			})

			Convey("Then the filter options describe the unfiltered set", func() {
				So(resp.Options.Airlines, ShouldResemble, []string{"Air India", "IndiGo", "Vistara"})
				So(resp.Options.StopCounts[models.StopsNonstop], ShouldEqual, 1)
				So(resp.Options.StopCounts[models.StopsOne], ShouldEqual, 1)
				So(resp.Options.StopCounts[models.StopsTwoPlus], ShouldEqual, 1)
				So(resp.Options.MaxPrice, ShouldEqual, 2000.0)
			})

			Convey("Then the canonical request is echoed in send order", func() {
				So(resp.Request[0], ShouldResemble, models.Param{Key: "originSkyId", Value: "DEL"})
				So(resp.Request[len(resp.Request)-1], ShouldResemble, models.Param{Key: "date", Value: "2025-08-10"})
			})

			Convey("Then no history is recorded", func() {
				So(resp.History, ShouldBeNil)
			})
		})

		Convey("When the search carries a nonstop filter", func() {
			body := strings.Replace(delToBlr, `"sort": "price"`, `"sort": "price", "filters": {"stops": ["nonstop"]}`, 1)
			rec := s.do(http.MethodPost, "/api/v1/flights/search", body, nil)
			resp := decode[models.SearchResponse](rec)

			Convey("Then only the nonstop flight survives", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(len(resp.Flights), ShouldEqual, 1)
				So(resp.Flights[0].Legs[0].StopCount, ShouldEqual, 0)
				So(resp.Metadata.UnfilteredResults, ShouldEqual, 3)
				So(resp.Metadata.TotalResults, ShouldEqual, 1)
			})
		})

		Convey("When a known user searches the same trip twice", func() {
			s.do(http.MethodPost, "/api/v1/flights/search", delToBlr, asUser)
			rec := s.do(http.MethodPost, "/api/v1/flights/search", delToBlr, asUser)
			resp := decode[models.SearchResponse](rec)

			Convey("Then the history entry is incremented", func() {
				So(resp.History, ShouldNotBeNil)
				So(resp.History.Operation, ShouldEqual, models.OperationIncrement)
				So(len(resp.History.Recent), ShouldEqual, 1)
				So(resp.History.Recent[0].SearchCount, ShouldEqual, 2)
			})

			Convey("Then the history route lists it", func() {
				rec := s.do(http.MethodGet, "/api/v1/history", "", asUser)
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"search_count":2`)
			})
		})

		Convey("When the origin is missing", func() {
			rec := s.do(http.MethodPost, "/api/v1/flights/search", `{"departure_date": "2025-08-10"}`, nil)

			Convey("Then a validation error is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[models.ErrorResponse](rec).Error, ShouldEqual, "validation_error")
			})
		})

		Convey("When the sort key is unknown", func() {
			body := strings.Replace(delToBlr, `"sort": "price"`, `"sort": "cheapest"`, 1)

			Convey("Then a validation error is returned", func() {
				So(s.do(http.MethodPost, "/api/v1/flights/search", body, nil).Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})

	Convey("Given every provider failing", t, func() {
		s := newTestServer(downProvider{}, nil)
		Reset(s.registry.Close)
		rec := s.do(http.MethodPost, "/api/v1/flights/search", delToBlr, nil)

		Convey("Then the search fails with a gateway error", func() {
			So(rec.Code, ShouldEqual, http.StatusBadGateway)
			So(decode[models.ErrorResponse](rec).Error, ShouldEqual, "search_error")
		})
	})

	Convey("Given a history store that fails", t, func() {
		s := newTestServer(demoProvider(), brokenHistory{})
		Reset(s.registry.Close)
		rec := s.do(http.MethodPost, "/api/v1/flights/search", delToBlr, asUser)
		resp := decode[models.SearchResponse](rec)

		Convey("Then results are still returned with a notice", func() {
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(len(resp.Flights), ShouldEqual, 3)
			So(resp.Notices, ShouldResemble, []string{noticeHistoryUnsaved})
		})
	})
}

func TestLocations(t *testing.T) {
	Convey("Given a server backed by the demo provider", t, func() {
		s := newTestServer(demoProvider(), nil)
		Reset(s.registry.Close)

		Convey("When the query is a single character", func() {
			rec := s.do(http.MethodGet, "/api/v1/locations?query=d", "", nil)

			Convey("Then the list is empty", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(len(decode[models.LocationsResponse](rec).Locations), ShouldEqual, 0)
			})
		})

		Convey("When the query names an airport code", func() {
			rec := s.do(http.MethodGet, "/api/v1/locations?query=DEL", "", nil)
			resp := decode[models.LocationsResponse](rec)

			Convey("Then that airport is returned", func() {
				So(len(resp.Locations), ShouldEqual, 1)
				So(resp.Locations[0].SkyID, ShouldEqual, "DEL")
			})
		})
	})

	Convey("Given the lookup provider down", t, func() {
		s := newTestServer(downProvider{}, nil)
		Reset(s.registry.Close)
		rec := s.do(http.MethodGet, "/api/v1/locations?query=del", "", nil)

		So(rec.Code, ShouldEqual, http.StatusBadGateway)
		So(decode[models.ErrorResponse](rec).Error, ShouldEqual, "lookup_error")
	})
}

type snapshotBody struct {
	State   string           `json:"state"`
	Query   string           `json:"query"`
	Results []models.Airport `json:"results"`
	Open    bool             `json:"open"`
}

func TestLookup(t *testing.T) {
	Convey("Given a server with debounced lookups", t, func() {
		s := newTestServer(demoProvider(), nil)
		Reset(s.registry.Close)
		session := map[string]string{auth.HeaderSessionID: "tab-1"}

		Convey("When no session is identified", func() {
			rec := s.do(http.MethodPut, "/api/v1/lookup/origin", `{"query":"del"}`, nil)

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the field is unknown", func() {
			rec := s.do(http.MethodPut, "/api/v1/lookup/layover", `{"query":"del"}`, session)

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a query is typed", func() {
			rec := s.do(http.MethodPut, "/api/v1/lookup/origin", `{"query":"del"}`, session)

			Convey("Then the lookup is pending", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(decode[snapshotBody](rec).State, ShouldEqual, "pending")
			})

			Convey("Then it settles with the matching airport", func() {
				var snap snapshotBody
				deadline := time.Now().Add(2 * time.Second)
				for time.Now().Before(deadline) {
					snap = decode[snapshotBody](s.do(http.MethodGet, "/api/v1/lookup/origin", "", session))
					if snap.State == "settled" {
						break
					}
					time.Sleep(5 * time.Millisecond)
				}
				So(snap.State, ShouldEqual, "settled")
				So(len(snap.Results), ShouldEqual, 1)
				So(snap.Results[0].SkyID, ShouldEqual, "DEL")
			})

			Convey("Then the destination field is independent", func() {
				snap := decode[snapshotBody](s.do(http.MethodGet, "/api/v1/lookup/destination", "", session))
				So(snap.Query, ShouldEqual, "")
				So(snap.State, ShouldEqual, "idle")
				So(s.registry.Len(), ShouldEqual, 1)
			})
		})

		Convey("When the field is focused and blurred", func() {
			focused := decode[snapshotBody](s.do(http.MethodPost, "/api/v1/lookup/origin/focus", "", session))
			blurred := decode[snapshotBody](s.do(http.MethodPost, "/api/v1/lookup/origin/blur", "", session))

			So(focused.Open, ShouldBeTrue)
			So(blurred.Open, ShouldBeFalse)
		})

		Convey("When the session field is dropped", func() {
			s.do(http.MethodPost, "/api/v1/lookup/origin/focus", "", session)
			rec := s.do(http.MethodDelete, "/api/v1/lookup/origin", "", session)

			So(rec.Code, ShouldEqual, http.StatusNoContent)
			So(s.registry.Len(), ShouldEqual, 0)
		})
	})
}

func TestSupersededLookup(t *testing.T) {
	Convey("Given a lookup stuck on an older query", t, func() {
		var buf bytes.Buffer
		So(logger.Init(logger.Options{Level: "warn", Output: &buf}), ShouldBeNil)
		Reset(func() { _ = logger.Init(logger.Options{Output: io.Discard}) })

		provider := &stallingProvider{stall: "del", started: make(chan struct{})}
		agg := aggregator.NewAggregator([]providers.Provider{provider}, aggregator.Config{Timeout: time.Minute})
		svc := NewLocationService(agg, cache.NewNoOpCache(), lookup.DefaultMinLength)
		d := lookup.New(svc.Search, lookup.WithWait(5*time.Millisecond))

		d.Input("del")
		<-provider.started
		d.Input("delh")

		deadline := time.Now().Add(2 * time.Second)
		for d.Snapshot().State != lookup.Settled && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		snap := d.Snapshot()
		d.Close()
		logged := buf.String()

		Convey("Then the newer query wins", func() {
			So(snap.State, ShouldEqual, lookup.Settled)
			So(snap.Query, ShouldEqual, "delh")
			So(len(snap.Results), ShouldEqual, 1)
			So(snap.Error, ShouldEqual, "")
		})

		Convey("Then the abandoned call is not logged as a failure", func() {
			So(logged, ShouldNotContainSubstring, "level=WARN")
			So(logged, ShouldNotContainSubstring, "level=ERROR")
		})
	})
}

func TestUserData(t *testing.T) {
	Convey("Given a server with an in-memory store", t, func() {
		s := newTestServer(demoProvider(), nil)
		Reset(s.registry.Close)

		Convey("When user routes are called anonymously", func() {
			for _, path := range []string{"/api/v1/history", "/api/v1/favorites", "/api/v1/alerts"} {
				So(s.do(http.MethodGet, path, "", nil).Code, ShouldEqual, http.StatusUnauthorized)
			}
		})

		Convey("When a favorite is added", func() {
			rec := s.do(http.MethodPost, "/api/v1/favorites", `{
				"origin": {"sky_id": "DEL", "entity_id": "95673498"},
				"destination": {"sky_id": "BLR", "entity_id": "95673351"},
				"route_name": "Work trips"
			}`, asUser)
			favs := decode[favoritesResponse](rec).Favorites

			Convey("Then it is listed for that user only", func() {
				So(rec.Code, ShouldEqual, http.StatusCreated)
				So(len(favs), ShouldEqual, 1)
				So(*favs[0].RouteName, ShouldEqual, "Work trips")

				other := s.do(http.MethodGet, "/api/v1/favorites", "", map[string]string{auth.HeaderUserID: "user-2"})
				So(len(decode[favoritesResponse](other).Favorites), ShouldEqual, 0)
			})

			Convey("Then it can be removed", func() {
				rec := s.do(http.MethodDelete, "/api/v1/favorites/"+favs[0].ID, "", asUser)
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(len(decode[favoritesResponse](rec).Favorites), ShouldEqual, 0)
			})
		})

		Convey("When an unknown favorite is removed", func() {
			rec := s.do(http.MethodDelete, "/api/v1/favorites/missing", "", asUser)

			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When an alert is created and deactivated", func() {
			created := s.do(http.MethodPost, "/api/v1/alerts", `{
				"origin": {"sky_id": "DEL", "entity_id": "95673498"},
				"destination": {"sky_id": "BLR", "entity_id": "95673351"},
				"departure_date": "2025-08-10",
				"target_price": 150
			}`, asUser)
			alerts := decode[alertsResponse](created).Alerts
			So(created.Code, ShouldEqual, http.StatusCreated)
			So(len(alerts), ShouldEqual, 1)
			So(alerts[0].Currency, ShouldEqual, "USD")

			toggled := s.do(http.MethodPatch, "/api/v1/alerts/"+alerts[0].ID, `{"is_active": false}`, asUser)

			Convey("Then it leaves the active list but stays in the full list", func() {
				So(toggled.Code, ShouldEqual, http.StatusOK)
				active := s.do(http.MethodGet, "/api/v1/alerts", "", asUser)
				So(len(decode[alertsResponse](active).Alerts), ShouldEqual, 0)
				all := s.do(http.MethodGet, "/api/v1/alerts?all=true", "", asUser)
				So(len(decode[alertsResponse](all).Alerts), ShouldEqual, 1)
			})
		})

		Convey("When an alert has no target price", func() {
			rec := s.do(http.MethodPost, "/api/v1/alerts", `{
				"origin": {"sky_id": "DEL", "entity_id": "95673498"},
				"destination": {"sky_id": "BLR", "entity_id": "95673351"},
				"departure_date": "2025-08-10"
			}`, asUser)

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a toggle omits is_active", func() {
			So(s.do(http.MethodPatch, "/api/v1/alerts/x", `{}`, asUser).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestHealth(t *testing.T) {
	Convey("Given a healthy store", t, func() {
		s := newTestServer(demoProvider(), nil)
		Reset(s.registry.Close)
		rec := s.do(http.MethodGet, "/health", "", nil)

		So(rec.Code, ShouldEqual, http.StatusOK)
		So(rec.Body.String(), ShouldContainSubstring, `"ok"`)
	})
}
