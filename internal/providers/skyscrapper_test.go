package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const itinerariesBody = `{
  "status": true,
  "data": {
    "itineraries": [
      {
        "id": "13554-2508100600--32213-0-12071-2508100830",
        "price": {"raw": 88.5, "formatted": ""},
        "legs": [{
          "id": "13554-2508100600--32213-0-12071-2508100830",
          "origin": {"id": "DEL", "entityId": "95673498", "name": "New Delhi", "displayCode": "DEL"},
          "destination": {"id": "BLR", "entityId": "95673351", "name": "Bengaluru", "displayCode": "BLR"},
          "durationInMinutes": 150,
          "stopCount": 0,
          "departure": "2025-08-10T06:00:00",
          "arrival": "2025-08-10T08:30:00",
          "carriers": {"marketing": [{"id": -32213, "name": "IndiGo", "logoUrl": "https://logos/6E.png"}]}
        }]
      },
      {
        "id": "broken",
        "price": {"raw": 10, "formatted": "$10"},
        "legs": [{"id": "x", "departure": "soon", "arrival": "later"}]
      }
    ]
  }
}`

func TestSkyScrapperProvider(t *testing.T) {
	Convey("Given a Sky-Scrapper server", t, func() {
		var gotPath, gotQuery, gotKey, gotHost string
		status := http.StatusOK
		body := itinerariesBody
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotQuery = r.URL.RawQuery
			gotKey = r.Header.Get("x-rapidapi-key")
			gotHost = r.Header.Get("x-rapidapi-host")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		}))
		Reset(srv.Close)

		p := NewSkyScrapperProvider(SkyScrapperConfig{BaseURL: srv.URL + "/api", APIKey: "secret", Host: "example.test"})
		ctx := context.Background()

		Convey("When searching flights", func() {
			params := delBlr("2025-08-10")
			params.OriginEntityID = "95673498"
			params.DestinationEntityID = "95673351"
			flights, err := p.SearchFlights(ctx, params)

			Convey("Then the canonical query and headers are sent", func() {
				So(err, ShouldBeNil)
				So(gotPath, ShouldEqual, "/api/v2/flights/searchFlights")
				So(gotQuery, ShouldEqual, params.Encode())
				So(gotKey, ShouldEqual, "secret")
				So(gotHost, ShouldEqual, "example.test")
			})

			Convey("Then decodable itineraries are mapped and the rest dropped", func() {
				So(flights, ShouldHaveLength, 1)
				f := flights[0]
				So(f.Provider, ShouldEqual, SkyScrapperName)
				So(f.Price.Formatted, ShouldEqual, "$88.50")
				So(f.Legs[0].Departure.Hour(), ShouldEqual, 6)
				So(f.Legs[0].Carriers[0].Name, ShouldEqual, "IndiGo")
				So(f.Legs[0].Origin.DisplayCode, ShouldEqual, "DEL")
			})
		})

		Convey("When searching airports", func() {
			body = `{"status": true, "data": [{"skyId": "DEL", "entityId": "95673498",
				"presentation": {"title": "Indira Gandhi International", "subtitle": "India"},
				"navigation": {"entityId": "95673498", "entityType": "AIRPORT", "localizedName": "Indira Gandhi International"}}]}`
			airports, err := p.SearchAirports(ctx, "del")

			Convey("Then query and locale are sent and results mapped", func() {
				So(err, ShouldBeNil)
				So(gotPath, ShouldEqual, "/api/v1/flights/searchAirport")
				So(gotQuery, ShouldEqual, "locale=en-US&query=del")
				So(airports, ShouldHaveLength, 1)
				So(airports[0].EntityType, ShouldEqual, "AIRPORT")
			})
		})

		Convey("When the upstream reports status false", func() {
			body = `{"status": false, "message": "rate limited"}`
			_, err := p.SearchAirports(ctx, "del")

			Convey("Then a provider error is returned", func() {
				var pe *ProviderError
				So(errors.As(err, &pe), ShouldBeTrue)
				So(errors.Is(err, errUpstreamStatus), ShouldBeTrue)
			})
		})

		Convey("When the upstream returns a non-2xx status", func() {
			status = http.StatusTooManyRequests
			body = `{"message": "slow down"}`
			_, err := p.SearchFlights(ctx, delBlr("2025-08-10"))

			Convey("Then the status is part of the error", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "429")
			})
		})
	})
}
