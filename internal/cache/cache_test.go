package cache

import (
	"context"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/dharmasatrya/flightscout/internal/criteria"
	"github.com/dharmasatrya/flightscout/internal/models"
)

func sampleParams() criteria.RequestParams {
	return criteria.RequestParams{
		OriginSkyID:         "DEL",
		DestinationSkyID:    "BLR",
		OriginEntityID:      "95673498",
		DestinationEntityID: "95673351",
		CabinClass:          "economy",
		Adults:              1,
		SortBy:              "best",
		Currency:            "USD",
		Market:              "en-US",
		CountryCode:         "US",
		Date:                "2025-08-10",
	}
}

func TestKeys(t *testing.T) {
	Convey("Given request params", t, func() {
		p := sampleParams()

		Convey("Then equal params share a flight key", func() {
			So(FlightKey(p), ShouldEqual, FlightKey(sampleParams()))
			So(FlightKey(p), ShouldStartWith, "flight:")
		})

		Convey("Then a different date yields a different key", func() {
			q := sampleParams()
			q.Date = "2025-08-11"
			So(FlightKey(q), ShouldNotEqual, FlightKey(p))
		})

		Convey("Then airport keys ignore case and padding", func() {
			So(AirportKey(" Del "), ShouldEqual, AirportKey("del"))
			So(AirportKey("del"), ShouldNotEqual, AirportKey("blr"))
		})
	})
}

func TestNoOpCache(t *testing.T) {
	Convey("Given a no-op cache", t, func() {
		c := NewNoOpCache()
		ctx := context.Background()
		So(c.SetFlights(ctx, sampleParams(), []models.Flight{{ID: "1"}}), ShouldBeNil)

		_, ok := c.GetFlights(ctx, sampleParams())
		So(ok, ShouldBeFalse)
		_, ok = c.GetAirports(ctx, "del")
		So(ok, ShouldBeFalse)
		So(c.Close(), ShouldBeNil)
	})
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("FLIGHTSCOUT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("FLIGHTSCOUT_TEST_REDIS_ADDR not set")
	}

	Convey("Given a redis cache", t, func() {
		ctx := context.Background()
		c, err := NewRedisCache(ctx, RedisConfig{Addr: addr, TTL: time.Minute})
		So(err, ShouldBeNil)
		Reset(func() { _ = c.Close() })

		Convey("When flights are stored", func() {
			p := sampleParams()
			p.Date = time.Now().Format("2006-01-02")
			flights := []models.Flight{{ID: "1", Provider: "demo", Price: models.Money{Raw: 199.99, Formatted: "$199.99"}}}
			So(c.SetFlights(ctx, p, flights), ShouldBeNil)

			Convey("Then they are read back", func() {
				got, ok := c.GetFlights(ctx, p)
				So(ok, ShouldBeTrue)
				So(got, ShouldHaveLength, 1)
				So(got[0].Price.Raw, ShouldEqual, 199.99)
			})
		})

		Convey("When airports are stored", func() {
			So(c.SetAirports(ctx, "del", []models.Airport{{SkyID: "DEL", EntityID: "95673498"}}), ShouldBeNil)

			Convey("Then a differently cased query hits", func() {
				got, ok := c.GetAirports(ctx, "DEL")
				So(ok, ShouldBeTrue)
				So(got[0].SkyID, ShouldEqual, "DEL")
			})
		})
	})
}
