// README: Tariff definitions for rides and shopping deliveries.
package pricing

import (
	"fmt"
	"math"
	"strings"

	"village/internal/types"
)

type Vehicle string

const (
	VehicleBike Vehicle = "bike"
	VehicleAuto Vehicle = "auto"
)

// ParseVehicle normalises a vehicle class supplied by a client.
func ParseVehicle(v string) (Vehicle, error) {
	switch Vehicle(strings.ToLower(strings.TrimSpace(v))) {
	case VehicleBike:
		return VehicleBike, nil
	case VehicleAuto:
		return VehicleAuto, nil
	}
	return "", fmt.Errorf("%w: unknown vehicle %q", ErrBadRequest, v)
}

// Rate is the ride tariff for one vehicle class, in whole rupees.
type Rate struct {
	Vehicle  Vehicle
	BaseFare int64
	PerKm    int64
}

// Fare charges the base fare plus the distance component rounded up to the
// next rupee, so partial kilometres are never undercharged.
func (r Rate) Fare(distanceKm float64) int64 {
	return r.BaseFare + int64(math.Ceil(distanceKm*float64(r.PerKm)))
}

const baseFare = 20

// Validate rejects tariffs that could price a ride below the base fare or
// make a longer ride cheaper.
func (r Rate) Validate() error {
	if _, ok := DefaultRates[r.Vehicle]; !ok {
		return fmt.Errorf("%w: unknown vehicle %q", ErrBadRequest, r.Vehicle)
	}
	if r.BaseFare < baseFare {
		return fmt.Errorf("%w: base fare %d below %d", ErrBadRequest, r.BaseFare, baseFare)
	}
	if r.PerKm < 0 {
		return fmt.Errorf("%w: negative per-km rate %d", ErrBadRequest, r.PerKm)
	}
	return nil
}

// DefaultRates is the built-in ride tariff.
var DefaultRates = map[Vehicle]Rate{
	VehicleBike: {Vehicle: VehicleBike, BaseFare: baseFare, PerKm: 7},
	VehicleAuto: {Vehicle: VehicleAuto, BaseFare: baseFare, PerKm: 12},
}

// DeliveryTier is a distance bracket with a flat fee; UpToKm is inclusive.
type DeliveryTier struct {
	UpToKm float64
	Charge int64
}

// DeliveryTiers must stay sorted by UpToKm.
var DeliveryTiers = []DeliveryTier{
	{UpToKm: 3, Charge: 30},
	{UpToKm: 6, Charge: 50},
	{UpToKm: 10, Charge: 70},
}

// DeliveryChargeBeyond applies past the last tier.
const DeliveryChargeBeyond = 100

// RideFare prices a ride with the built-in tariff. The caller guarantees a
// non-negative distance and a known vehicle.
func RideFare(distanceKm float64, v Vehicle) int64 {
	return DefaultRates[v].Fare(distanceKm)
}

// DeliveryCharge is a flat-rate lookup over DeliveryTiers, not an
// interpolation. The caller guarantees a non-negative distance.
func DeliveryCharge(distanceKm float64) int64 {
	for _, tier := range DeliveryTiers {
		if distanceKm <= tier.UpToKm {
			return tier.Charge
		}
	}
	return DeliveryChargeBeyond
}

type QuoteKind string

const (
	QuoteRide     QuoteKind = "ride"
	QuoteDelivery QuoteKind = "delivery"
)

// Quote is a priced distance between two points.
type Quote struct {
	Kind       QuoteKind        `json:"kind"`
	Vehicle    Vehicle          `json:"vehicle,omitempty"`
	From       types.GeoPoint   `json:"from"`
	To         types.GeoPoint   `json:"to"`
	DistanceKm float64          `json:"distance_km"`
	Amount     types.Money      `json:"amount"`
	Breakdown  map[string]int64 `json:"breakdown"`
}
