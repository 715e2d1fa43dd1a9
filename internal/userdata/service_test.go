package userdata_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/dharmasatrya/flightscout/internal/models"
	"github.com/dharmasatrya/flightscout/internal/store/memory"
	"github.com/dharmasatrya/flightscout/internal/userdata"
)

var errDown = errors.New("database unavailable")

type brokenStore struct{ *memory.Store }

func (brokenStore) ListFavorites(context.Context, string) ([]models.FavoriteRoute, error) {
	return nil, errDown
}

func (brokenStore) InsertAlert(context.Context, models.PriceAlert) error {
	return errDown
}

func TestService(t *testing.T) {
	ctx := context.Background()
	del := models.LocationRef{SkyID: "DEL", EntityID: "95673498"}
	blr := models.LocationRef{SkyID: "BLR", EntityID: "95673351"}

	Convey("Given a service over the memory store", t, func() {
		s := memory.New()
		svc := userdata.NewService(s, s)

		Convey("When required fields are missing", func() {
			_, errNoOrigin := svc.AddFavorite(ctx, "u1", userdata.NewFavorite{Destination: blr})
			_, errNoDest := svc.CreateAlert(ctx, "u1", userdata.NewAlert{Origin: del, TargetPrice: 10})
			_, errPrice := svc.CreateAlert(ctx, "u1", userdata.NewAlert{Origin: del, Destination: blr})
			_, errCabin := svc.CreateAlert(ctx, "u1", userdata.NewAlert{Origin: del, Destination: blr, TargetPrice: 10, CabinClass: "sleeper"})

			Convey("Then validation errors are returned", func() {
				So(errNoOrigin, ShouldEqual, models.ErrMissingOrigin)
				So(errNoDest, ShouldEqual, models.ErrMissingDestination)
				So(errPrice, ShouldEqual, models.ErrInvalidTargetPrice)
				So(errCabin, ShouldEqual, models.ErrInvalidCabinClass)
			})
		})

		Convey("When no user is given", func() {
			_, err := svc.ListFavorites(ctx, "")

			Convey("Then the call is unauthenticated", func() {
				So(errors.Is(err, models.ErrUnauthenticated), ShouldBeTrue)
			})
		})

		Convey("When an alert is created with defaults", func() {
			alerts, err := svc.CreateAlert(ctx, "u1", userdata.NewAlert{Origin: del, Destination: blr, TargetPrice: 120})

			Convey("Then it is active with economy, one adult and USD", func() {
				So(err, ShouldBeNil)
				So(alerts, ShouldHaveLength, 1)
				a := alerts[0]
				So(a.IsActive, ShouldBeTrue)
				So(a.CabinClass, ShouldEqual, models.CabinEconomy)
				So(a.Adults, ShouldEqual, 1)
				So(a.Currency, ShouldEqual, "USD")
				So(a.ID, ShouldNotBeBlank)
			})
		})

		Convey("When a blank route name is given", func() {
			blank := "   "
			favs, err := svc.AddFavorite(ctx, "u1", userdata.NewFavorite{Origin: del, Destination: blr, RouteName: &blank})

			Convey("Then it is stored as absent", func() {
				So(err, ShouldBeNil)
				So(favs[0].RouteName, ShouldBeNil)
			})
		})
	})

	Convey("Given a failing store", t, func() {
		s := brokenStore{memory.New()}
		svc := userdata.NewService(s, s)

		_, favErr := svc.AddFavorite(ctx, "u1", userdata.NewFavorite{Origin: del, Destination: blr})
		_, alertErr := svc.CreateAlert(ctx, "u1", userdata.NewAlert{Origin: del, Destination: blr, TargetPrice: 10})

		Convey("Then failures surface as persistence errors", func() {
			So(errors.Is(favErr, models.ErrPersistenceFailed), ShouldBeTrue)
			So(errors.Is(favErr, errDown), ShouldBeTrue)
			So(errors.Is(alertErr, models.ErrPersistenceFailed), ShouldBeTrue)
		})
	})
}
