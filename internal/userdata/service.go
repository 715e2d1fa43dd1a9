// Package userdata manages a user's favorite routes and price alerts. Every
// mutation is followed by a re-read, so callers always receive the stored
// collection rather than a locally patched copy.
package userdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dharmasatrya/flightscout/internal/models"
	"github.com/dharmasatrya/flightscout/pkg/logger"
	"github.com/dharmasatrya/flightscout/pkg/metrics"
)

type FavoriteStore interface {
	InsertFavorite(ctx context.Context, fav models.FavoriteRoute) error
	// ListFavorites returns newest first.
	ListFavorites(ctx context.Context, userID string) ([]models.FavoriteRoute, error)
	DeleteFavorite(ctx context.Context, userID, id string) (bool, error)
}

type AlertStore interface {
	InsertAlert(ctx context.Context, alert models.PriceAlert) error
	// ListAlerts returns newest first.
	ListAlerts(ctx context.Context, userID string, activeOnly bool) ([]models.PriceAlert, error)
	SetAlertActive(ctx context.Context, userID, id string, active bool) (bool, error)
}

const DefaultCurrency = "USD"

type NewFavorite struct {
	Origin      models.LocationRef `json:"origin"`
	Destination models.LocationRef `json:"destination"`
	RouteName   *string            `json:"route_name,omitempty"`
}

type NewAlert struct {
	Origin        models.LocationRef `json:"origin"`
	Destination   models.LocationRef `json:"destination"`
	DepartureDate string             `json:"departure_date"`
	ReturnDate    *string            `json:"return_date,omitempty"`
	Adults        int                `json:"adults"`
	CabinClass    models.CabinClass  `json:"cabin_class"`
	TargetPrice   float64            `json:"target_price"`
	Currency      string             `json:"currency"`
}

type Service struct {
	favorites FavoriteStore
	alerts    AlertStore
	now       func() time.Time
	log       logger.Logger
}

func NewService(favorites FavoriteStore, alerts AlertStore) *Service {
	return &Service{
		favorites: favorites,
		alerts:    alerts,
		now:       func() time.Time { return time.Now().UTC() },
		log:       logger.Named("userdata"),
	}
}

func (s *Service) AddFavorite(ctx context.Context, userID string, in NewFavorite) ([]models.FavoriteRoute, error) {
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	if in.Origin.SkyID == "" {
		return nil, models.ErrMissingOrigin
	}
	if in.Destination.SkyID == "" {
		return nil, models.ErrMissingDestination
	}

	fav := models.FavoriteRoute{
		ID:          uuid.NewString(),
		UserID:      userID,
		Origin:      in.Origin,
		Destination: in.Destination,
		RouteName:   trimmedOrNil(in.RouteName),
		CreatedAt:   s.now(),
	}
	if err := s.favorites.InsertFavorite(ctx, fav); err != nil {
		return nil, s.persistenceError(ctx, "favorite_routes", "insert", err)
	}
	return s.ListFavorites(ctx, userID)
}

func (s *Service) ListFavorites(ctx context.Context, userID string) ([]models.FavoriteRoute, error) {
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	favs, err := s.favorites.ListFavorites(ctx, userID)
	if err != nil {
		return nil, s.persistenceError(ctx, "favorite_routes", "list", err)
	}
	return favs, nil
}

func (s *Service) RemoveFavorite(ctx context.Context, userID, id string) ([]models.FavoriteRoute, error) {
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	removed, err := s.favorites.DeleteFavorite(ctx, userID, id)
	if err != nil {
		return nil, s.persistenceError(ctx, "favorite_routes", "delete", err)
	}
	if !removed {
		return nil, fmt.Errorf("favorite %s: %w", id, models.ErrNotFound)
	}
	return s.ListFavorites(ctx, userID)
}

// CreateAlert stores an active alert and returns the active alerts.
func (s *Service) CreateAlert(ctx context.Context, userID string, in NewAlert) ([]models.PriceAlert, error) {
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	if in.Origin.SkyID == "" {
		return nil, models.ErrMissingOrigin
	}
	if in.Destination.SkyID == "" {
		return nil, models.ErrMissingDestination
	}
	if in.TargetPrice <= 0 {
		return nil, models.ErrInvalidTargetPrice
	}
	if in.CabinClass == "" {
		in.CabinClass = models.CabinEconomy
	}
	if !in.CabinClass.Valid() {
		return nil, models.ErrInvalidCabinClass
	}
	if in.Adults == 0 {
		in.Adults = 1
	}
	if in.Adults < 1 || in.Adults > 9 {
		return nil, models.ErrInvalidAdults
	}

	cur := strings.ToUpper(strings.TrimSpace(in.Currency))
	if cur == "" {
		cur = DefaultCurrency
	}

	alert := models.PriceAlert{
		ID:            uuid.NewString(),
		UserID:        userID,
		Origin:        in.Origin,
		Destination:   in.Destination,
		DepartureDate: in.DepartureDate,
		ReturnDate:    trimmedOrNil(in.ReturnDate),
		Adults:        in.Adults,
		CabinClass:    in.CabinClass,
		TargetPrice:   in.TargetPrice,
		Currency:      cur,
		IsActive:      true,
		CreatedAt:     s.now(),
	}
	if err := s.alerts.InsertAlert(ctx, alert); err != nil {
		return nil, s.persistenceError(ctx, "price_alerts", "insert", err)
	}
	return s.ListAlerts(ctx, userID)
}

// ListAlerts returns active alerts only.
func (s *Service) ListAlerts(ctx context.Context, userID string) ([]models.PriceAlert, error) {
	return s.listAlerts(ctx, userID, true)
}

// ListAllAlerts includes inactive alerts.
func (s *Service) ListAllAlerts(ctx context.Context, userID string) ([]models.PriceAlert, error) {
	return s.listAlerts(ctx, userID, false)
}

func (s *Service) listAlerts(ctx context.Context, userID string, activeOnly bool) ([]models.PriceAlert, error) {
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	alerts, err := s.alerts.ListAlerts(ctx, userID, activeOnly)
	if err != nil {
		return nil, s.persistenceError(ctx, "price_alerts", "list", err)
	}
	return alerts, nil
}

// ToggleAlert sets an alert's active flag and returns every alert, inactive
// included, so the toggled one stays visible.
func (s *Service) ToggleAlert(ctx context.Context, userID, id string, active bool) ([]models.PriceAlert, error) {
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	ok, err := s.alerts.SetAlertActive(ctx, userID, id, active)
	if err != nil {
		return nil, s.persistenceError(ctx, "price_alerts", "update", err)
	}
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", id, models.ErrNotFound)
	}
	return s.ListAllAlerts(ctx, userID)
}

func (s *Service) persistenceError(ctx context.Context, collection, op string, err error) error {
	metrics.RecordPersistenceError(collection)
	s.log.Error(ctx, collection+" "+op+" failed", logger.Error(err))
	return fmt.Errorf("%w: %s %s: %w", models.ErrPersistenceFailed, collection, op, err)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
