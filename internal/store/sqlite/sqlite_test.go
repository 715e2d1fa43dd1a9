package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/dharmasatrya/flightscout/internal/models"
	"github.com/dharmasatrya/flightscout/internal/store/storetest"
)

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func() storetest.Store {
		s, err := Open(context.Background(), ":memory:")
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestSQLiteUpsert(t *testing.T) {
	Convey("Given a file backed store", t, func() {
		ctx := context.Background()
		s, err := Open(ctx, filepath.Join(t.TempDir(), "flightscout.db"))
		So(err, ShouldBeNil)
		Reset(func() { _ = s.Close() })

		entry := models.SearchHistoryEntry{
			ID:             "h1",
			UserID:         "u1",
			Origin:         models.LocationRef{SkyID: "DEL", EntityID: "95673498"},
			Destination:    models.LocationRef{SkyID: "BLR", EntityID: "95673351"},
			DepartureDate:  "2025-08-10",
			Adults:         1,
			CabinClass:     models.CabinEconomy,
			SearchCount:    1,
			LastSearchedAt: time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC),
		}

		Convey("When the same key is upserted twice", func() {
			op1, err := s.UpsertHistory(ctx, entry)
			So(err, ShouldBeNil)
			again := entry
			again.ID = "h2"
			again.LastSearchedAt = entry.LastSearchedAt.Add(time.Minute)
			op2, err := s.UpsertHistory(ctx, again)
			So(err, ShouldBeNil)

			Convey("Then the first inserts and the second increments in place", func() {
				So(op1, ShouldEqual, models.OperationInsert)
				So(op2, ShouldEqual, models.OperationIncrement)

				found, ok, err := s.FindHistory(ctx, entry.Key())
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(found.ID, ShouldEqual, "h1")
				So(found.SearchCount, ShouldEqual, 2)
				So(found.LastSearchedAt.Equal(again.LastSearchedAt), ShouldBeTrue)
			})
		})

		Convey("When an unknown entry is updated", func() {
			err := s.UpdateHistory(ctx, entry)

			Convey("Then it is not found", func() {
				So(err, ShouldEqual, models.ErrNotFound)
			})
		})
	})
}
