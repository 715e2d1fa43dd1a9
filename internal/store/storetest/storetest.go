// Package storetest is a behavioural suite shared by every store backend.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/dharmasatrya/flightscout/internal/history"
	"github.com/dharmasatrya/flightscout/internal/models"
	"github.com/dharmasatrya/flightscout/internal/userdata"
)

type Store interface {
	history.Store
	userdata.FavoriteStore
	userdata.AlertStore
}

// Clock returns strictly increasing instants one second apart.
func Clock(start time.Time) func() time.Time {
	var mu sync.Mutex
	n := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return start.Add(time.Duration(n) * time.Second)
	}
}

func Search(date string) models.HistorySearch {
	return models.HistorySearch{
		Origin:        models.LocationRef{SkyID: "DEL", EntityID: "95673498", DisplayName: "Delhi", Code: "DEL"},
		Destination:   models.LocationRef{SkyID: "BLR", EntityID: "95673351", DisplayName: "Bengaluru", Code: "BLR"},
		DepartureDate: date,
		Adults:        1,
		CabinClass:    models.CabinEconomy,
	}
}

// Run exercises open's store. open is called once per leaf, so every leaf
// starts from an empty store.
func Run(t *testing.T, open func() Store) {
	start := time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)

	Convey("Given an empty store behind the history engine", t, func() {
		s := open()
		engine := history.NewEngine(s, history.WithClock(Clock(start)))
		ctx := context.Background()

		Convey("When the same search is recorded twice", func() {
			first, err := engine.Record(ctx, "u1", Search("2025-08-10"))
			So(err, ShouldBeNil)
			second, err := engine.Record(ctx, "u1", Search("2025-08-10"))
			So(err, ShouldBeNil)

			Convey("Then it is inserted once and then incremented", func() {
				So(first.Operation, ShouldEqual, models.OperationInsert)
				So(second.Operation, ShouldEqual, models.OperationIncrement)
				So(second.Recent, ShouldHaveLength, 1)
				e := second.Recent[0]
				So(e.SearchCount, ShouldEqual, 2)
				So(e.LastSearchedAt.Equal(start.Add(2*time.Second)), ShouldBeTrue)
				So(e.Origin.DisplayName, ShouldEqual, "Delhi")
				So(e.ReturnDate, ShouldBeNil)
			})
		})

		Convey("When searches differ only by departure date", func() {
			_, err := engine.Record(ctx, "u1", Search("2025-08-10"))
			So(err, ShouldBeNil)
			res, err := engine.Record(ctx, "u1", Search("2025-08-11"))
			So(err, ShouldBeNil)

			Convey("Then two entries exist, newest first", func() {
				So(res.Recent, ShouldHaveLength, 2)
				So(res.Recent[0].DepartureDate, ShouldEqual, "2025-08-11")
				So(res.Recent[1].DepartureDate, ShouldEqual, "2025-08-10")
			})
		})

		Convey("When a round trip and a one-way share the outbound date", func() {
			rt := Search("2025-08-10")
			ret := "2025-08-15"
			rt.ReturnDate = &ret
			_, err := engine.Record(ctx, "u1", Search("2025-08-10"))
			So(err, ShouldBeNil)
			res, err := engine.Record(ctx, "u1", rt)
			So(err, ShouldBeNil)

			Convey("Then they are different entries", func() {
				So(res.Operation, ShouldEqual, models.OperationInsert)
				So(res.Recent, ShouldHaveLength, 2)
				So(*res.Recent[0].ReturnDate, ShouldEqual, ret)
			})
		})

		Convey("When many identical searches race", func() {
			const n = 20
			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := engine.Record(ctx, "u1", Search("2025-08-10")); err != nil {
						errs <- err
					}
				}()
			}
			wg.Wait()
			close(errs)

			Convey("Then exactly one entry holds every count", func() {
				for err := range errs {
					So(err, ShouldBeNil)
				}
				recent, err := engine.Recent(ctx, "u1")
				So(err, ShouldBeNil)
				So(recent, ShouldHaveLength, 1)
				So(recent[0].SearchCount, ShouldEqual, n)
			})
		})

		Convey("When more searches exist than the display limit", func() {
			for day := 1; day <= 12; day++ {
				_, err := engine.Record(ctx, "u1", Search(fmt.Sprintf("2025-09-%02d", day)))
				So(err, ShouldBeNil)
			}

			Convey("Then only the newest ten are returned", func() {
				recent, err := engine.Recent(ctx, "u1")
				So(err, ShouldBeNil)
				So(recent, ShouldHaveLength, history.DefaultLimit)
				So(recent[0].DepartureDate, ShouldEqual, "2025-09-12")
				So(recent[9].DepartureDate, ShouldEqual, "2025-09-03")
			})
		})

		Convey("When another user searches the same route", func() {
			_, err := engine.Record(ctx, "u1", Search("2025-08-10"))
			So(err, ShouldBeNil)
			res, err := engine.Record(ctx, "u2", Search("2025-08-10"))
			So(err, ShouldBeNil)

			Convey("Then histories stay separate", func() {
				So(res.Operation, ShouldEqual, models.OperationInsert)
				So(res.Recent, ShouldHaveLength, 1)
				So(res.Recent[0].UserID, ShouldEqual, "u2")
			})
		})
	})

	Convey("Given an empty store behind the user data service", t, func() {
		s := open()
		svc := userdata.NewService(s, s)
		ctx := context.Background()
		del := models.LocationRef{SkyID: "DEL", EntityID: "95673498"}
		blr := models.LocationRef{SkyID: "BLR", EntityID: "95673351"}
		bom := models.LocationRef{SkyID: "BOM", EntityID: "95673320"}

		Convey("When favorites are added", func() {
			name := "Weekend trip"
			_, err := svc.AddFavorite(ctx, "u1", userdata.NewFavorite{Origin: del, Destination: blr, RouteName: &name})
			So(err, ShouldBeNil)
			favs, err := svc.AddFavorite(ctx, "u1", userdata.NewFavorite{Origin: del, Destination: bom})
			So(err, ShouldBeNil)

			Convey("Then the re-read list is newest first", func() {
				So(favs, ShouldHaveLength, 2)
				So(favs[0].Destination.SkyID, ShouldEqual, "BOM")
				So(favs[0].RouteName, ShouldBeNil)
				So(*favs[1].RouteName, ShouldEqual, name)
			})

			Convey("Then another user cannot remove them", func() {
				_, err := svc.RemoveFavorite(ctx, "u2", favs[0].ID)
				So(errors.Is(err, models.ErrNotFound), ShouldBeTrue)
			})

			Convey("Then the owner can remove one", func() {
				left, err := svc.RemoveFavorite(ctx, "u1", favs[0].ID)
				So(err, ShouldBeNil)
				So(left, ShouldHaveLength, 1)
				So(left[0].Destination.SkyID, ShouldEqual, "BLR")
			})
		})

		Convey("When alerts are created and one is switched off", func() {
			_, err := svc.CreateAlert(ctx, "u1", userdata.NewAlert{Origin: del, Destination: blr, DepartureDate: "2025-08-10", TargetPrice: 150})
			So(err, ShouldBeNil)
			active, err := svc.CreateAlert(ctx, "u1", userdata.NewAlert{Origin: del, Destination: bom, TargetPrice: 99.5, Currency: "inr"})
			So(err, ShouldBeNil)
			So(active, ShouldHaveLength, 2)
			So(active[0].IsActive, ShouldBeTrue)
			So(active[0].Currency, ShouldEqual, "INR")
			So(active[1].Currency, ShouldEqual, userdata.DefaultCurrency)

			all, err := svc.ToggleAlert(ctx, "u1", active[1].ID, false)
			So(err, ShouldBeNil)

			Convey("Then listing hides the inactive alert but the full list keeps it", func() {
				So(all, ShouldHaveLength, 2)
				listed, err := svc.ListAlerts(ctx, "u1")
				So(err, ShouldBeNil)
				So(listed, ShouldHaveLength, 1)
				So(listed[0].Destination.SkyID, ShouldEqual, "BOM")
			})

			Convey("Then toggling an unknown alert is not found", func() {
				_, err := svc.ToggleAlert(ctx, "u1", "missing", true)
				So(errors.Is(err, models.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}
