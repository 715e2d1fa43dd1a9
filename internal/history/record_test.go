package history

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/dharmasatrya/flightscout/internal/models"
)

func delBlr(date string) models.HistorySearch {
	return models.HistorySearch{
		Origin:        models.LocationRef{SkyID: "DEL", EntityID: "95673498"},
		Destination:   models.LocationRef{SkyID: "BLR", EntityID: "95673351"},
		DepartureDate: date,
		Adults:        1,
		CabinClass:    models.CabinEconomy,
	}
}

func TestRecordSearch(t *testing.T) {
	t0 := time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	Convey("Given an empty history", t, func() {
		Convey("When a search is recorded", func() {
			entries, op := RecordSearch(nil, "u1", delBlr("2025-08-10"), t0)

			Convey("Then one entry with count 1 is appended", func() {
				So(op, ShouldEqual, models.OperationInsert)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].SearchCount, ShouldEqual, 1)
				So(entries[0].UserID, ShouldEqual, "u1")
				So(entries[0].LastSearchedAt, ShouldEqual, t0)
			})

			Convey("And the same search is recorded again", func() {
				again, op := RecordSearch(entries, "u1", delBlr("2025-08-10"), t1)

				Convey("Then the entry is incremented in place", func() {
					So(op, ShouldEqual, models.OperationIncrement)
					So(again, ShouldHaveLength, 1)
					So(again[0].SearchCount, ShouldEqual, 2)
					So(again[0].LastSearchedAt, ShouldEqual, t1)
				})

				Convey("Then the input slice is untouched", func() {
					So(entries[0].SearchCount, ShouldEqual, 1)
					So(entries[0].LastSearchedAt, ShouldEqual, t0)
				})
			})
		})
	})

	Convey("Given a stored search", t, func() {
		stored := models.SearchHistoryEntry{
			ID:             "h1",
			UserID:         "u1",
			Origin:         models.LocationRef{SkyID: "DEL", EntityID: "95673498", DisplayName: "Delhi, stored"},
			Destination:    models.LocationRef{SkyID: "BLR", EntityID: "95673351"},
			DepartureDate:  "2025-08-10",
			Adults:         1,
			CabinClass:     models.CabinEconomy,
			SearchCount:    4,
			LastSearchedAt: t0,
		}
		existing := []models.SearchHistoryEntry{stored}

		Convey("When the match differs only in presentation", func() {
			s := delBlr("2025-08-10")
			s.Origin.DisplayName = "Delhi, new"
			out, op := RecordSearch(existing, "u1", s, t1)

			Convey("Then only count and timestamp change", func() {
				So(op, ShouldEqual, models.OperationIncrement)
				So(out[0].ID, ShouldEqual, "h1")
				So(out[0].Origin.DisplayName, ShouldEqual, "Delhi, stored")
				So(out[0].SearchCount, ShouldEqual, 5)
			})
		})

		Convey("When any identity field differs", func() {
			variants := map[string]models.HistorySearch{}
			d := delBlr("2025-08-11")
			variants["date"] = d
			a := delBlr("2025-08-10")
			a.Adults = 2
			variants["adults"] = a
			c := delBlr("2025-08-10")
			c.CabinClass = models.CabinBusiness
			variants["cabin"] = c
			r := delBlr("2025-08-10")
			ret := "2025-08-20"
			r.ReturnDate = &ret
			variants["return"] = r

			Convey("Then a new entry is inserted", func() {
				for _, v := range variants {
					out, op := RecordSearch(existing, "u1", v, t1)
					So(op, ShouldEqual, models.OperationInsert)
					So(out, ShouldHaveLength, 2)
				}
				_, op := RecordSearch(existing, "u2", delBlr("2025-08-10"), t1)
				So(op, ShouldEqual, models.OperationInsert)
			})
		})

		Convey("When the return date is an empty string", func() {
			s := delBlr("2025-08-10")
			empty := ""
			s.ReturnDate = &empty
			_, op := RecordSearch(existing, "u1", s, t1)

			Convey("Then it matches the one-way entry", func() {
				So(op, ShouldEqual, models.OperationIncrement)
			})
		})
	})
}
