// README: Pricing service validates inputs and produces ride/delivery quotes.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"village/internal/modules/geo"
	"village/internal/types"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrRateNotFound = errors.New("rate not found")
)

// RateSource supplies tariff overrides. A nil RateSource means the built-in
// tariff is always used.
type RateSource interface {
	GetRate(ctx context.Context, v Vehicle) (Rate, error)
}

type Service struct {
	rates RateSource
}

func NewService(rates RateSource) *Service {
	return &Service{rates: rates}
}

// Rate resolves the tariff for v, preferring a stored override. An override
// that fails Rate.Validate is ignored like a missing one.
func (s *Service) Rate(ctx context.Context, v Vehicle) (Rate, error) {
	def, ok := DefaultRates[v]
	if !ok {
		return Rate{}, fmt.Errorf("%w: unknown vehicle %q", ErrBadRequest, v)
	}
	if s.rates == nil {
		return def, nil
	}
	r, err := s.rates.GetRate(ctx, v)
	if errors.Is(err, ErrRateNotFound) {
		return def, nil
	}
	if err != nil {
		return Rate{}, fmt.Errorf("load rate for %s: %w", v, err)
	}
	if err := r.Validate(); err != nil {
		log.Printf("pricing: ignoring stored rate for %s: %v", v, err)
		return def, nil
	}
	return r, nil
}

// RideFare validates its inputs before delegating to the tariff.
func (s *Service) RideFare(ctx context.Context, distanceKm float64, v Vehicle) (int64, error) {
	if err := validateDistance(distanceKm); err != nil {
		return 0, err
	}
	r, err := s.Rate(ctx, v)
	if err != nil {
		return 0, err
	}
	return r.Fare(distanceKm), nil
}

func (s *Service) DeliveryCharge(distanceKm float64) (int64, error) {
	if err := validateDistance(distanceKm); err != nil {
		return 0, err
	}
	return DeliveryCharge(distanceKm), nil
}

func (s *Service) QuoteRide(ctx context.Context, from, to types.GeoPoint, v Vehicle) (Quote, error) {
	if err := validatePoints(from, to); err != nil {
		return Quote{}, err
	}
	r, err := s.Rate(ctx, v)
	if err != nil {
		return Quote{}, err
	}
	dist := geo.Distance(from, to)
	total := r.Fare(dist)
	return Quote{
		Kind:       QuoteRide,
		Vehicle:    v,
		From:       from,
		To:         to,
		DistanceKm: dist,
		Amount:     types.Rupees(total),
		Breakdown: map[string]int64{
			"base_fare":     r.BaseFare,
			"distance_fare": total - r.BaseFare,
		},
	}, nil
}

func (s *Service) QuoteDelivery(ctx context.Context, from, to types.GeoPoint) (Quote, error) {
	if err := validatePoints(from, to); err != nil {
		return Quote{}, err
	}
	dist := geo.Distance(from, to)
	charge := DeliveryCharge(dist)
	return Quote{
		Kind:       QuoteDelivery,
		From:       from,
		To:         to,
		DistanceKm: dist,
		Amount:     types.Rupees(charge),
		Breakdown:  map[string]int64{"delivery_charge": charge},
	}, nil
}

func validateDistance(km float64) error {
	if math.IsNaN(km) || math.IsInf(km, 0) || km < 0 {
		return fmt.Errorf("%w: distance must be a non-negative number", ErrBadRequest)
	}
	return nil
}

func validatePoints(points ...types.GeoPoint) error {
	for _, p := range points {
		if !p.Valid() {
			return fmt.Errorf("%w: coordinate out of range (%v, %v)", ErrBadRequest, p.Lat, p.Lng)
		}
	}
	return nil
}
