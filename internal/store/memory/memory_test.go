package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/dharmasatrya/flightscout/internal/models"
	"github.com/dharmasatrya/flightscout/internal/store/memory"
	"github.com/dharmasatrya/flightscout/internal/store/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func() storetest.Store { return memory.New() })
}

func TestMemoryUniqueKey(t *testing.T) {
	Convey("Given a stored history entry", t, func() {
		s := memory.New()
		ctx := context.Background()
		e := models.SearchHistoryEntry{
			ID:             "a",
			UserID:         "u1",
			Origin:         models.LocationRef{SkyID: "DEL"},
			Destination:    models.LocationRef{SkyID: "BLR"},
			DepartureDate:  "2025-08-10",
			Adults:         1,
			CabinClass:     models.CabinEconomy,
			SearchCount:    1,
			LastSearchedAt: time.Now(),
		}
		So(s.InsertHistory(ctx, e), ShouldBeNil)

		Convey("When a second entry with the same key is inserted", func() {
			dup := e
			dup.ID = "b"
			err := s.InsertHistory(ctx, dup)

			Convey("Then the unique key rejects it", func() {
				So(errors.Is(err, memory.ErrDuplicateKey), ShouldBeTrue)
			})
		})

		Convey("When the entry is looked up by key", func() {
			found, ok, err := s.FindHistory(ctx, e.Key())

			Convey("Then it is returned", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(found.ID, ShouldEqual, "a")
			})
		})
	})
}
