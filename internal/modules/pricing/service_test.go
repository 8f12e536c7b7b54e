package pricing

import (
	"context"
	"errors"
	"math"
	"testing"

	"village/internal/types"
)

func TestRideFare(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		vehicle  Vehicle
		wantFare int64
	}{
		{name: "Base Fare Only (bike, 0km)", distance: 0, vehicle: VehicleBike, wantFare: 20},
		{name: "Base Fare Only (auto, 0km)", distance: 0, vehicle: VehicleAuto, wantFare: 20},
		// 5.2 * 7 = 36.4 -> ceil 37
		{name: "Bike 5.2km", distance: 5.2, vehicle: VehicleBike, wantFare: 57},
		// 5.2 * 12 = 62.4 -> ceil 63
		{name: "Auto 5.2km", distance: 5.2, vehicle: VehicleAuto, wantFare: 83},
		{name: "Bike whole kilometres", distance: 3, vehicle: VehicleBike, wantFare: 41},
		// 0.1 * 12 = 1.2 -> ceil 2, never rounded down
		{name: "Auto partial kilometre rounds up", distance: 0.1, vehicle: VehicleAuto, wantFare: 22},
		{name: "Long ride is not capped", distance: 250, vehicle: VehicleAuto, wantFare: 3020},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RideFare(tt.distance, tt.vehicle); got != tt.wantFare {
				t.Errorf("RideFare(%v, %s) = %d, want %d", tt.distance, tt.vehicle, got, tt.wantFare)
			}
		})
	}
}

func TestRideFare_MonotonicAndFloor(t *testing.T) {
	for _, v := range []Vehicle{VehicleBike, VehicleAuto} {
		prev := int64(math.MinInt64)
		for tenths := 0; tenths <= 300; tenths++ {
			d := float64(tenths) / 10
			fare := RideFare(d, v)
			if fare < 20 {
				t.Fatalf("RideFare(%v, %s) = %d, below base fare", d, v, fare)
			}
			if fare < prev {
				t.Fatalf("RideFare not monotonic for %s at %v: %d < %d", v, d, fare, prev)
			}
			prev = fare
		}
	}
}

func TestDeliveryCharge(t *testing.T) {
	tests := []struct {
		distance float64
		want     int64
	}{
		{0, 30},
		{2.9, 30},
		{3.0, 30},
		{3.01, 50},
		{6.0, 50},
		{6.1, 70},
		{10.0, 70},
		{10.01, 100},
		{42, 100},
	}
	for _, tt := range tests {
		if got := DeliveryCharge(tt.distance); got != tt.want {
			t.Errorf("DeliveryCharge(%v) = %d, want %d", tt.distance, got, tt.want)
		}
	}
}

func TestParseVehicle(t *testing.T) {
	if v, err := ParseVehicle(" Auto "); err != nil || v != VehicleAuto {
		t.Errorf("ParseVehicle(Auto) = %q, %v", v, err)
	}
	if _, err := ParseVehicle("bus"); !errors.Is(err, ErrBadRequest) {
		t.Errorf("ParseVehicle(bus) error = %v, want ErrBadRequest", err)
	}
}

type stubRates struct {
	rate Rate
	err  error
}

func (s stubRates) GetRate(_ context.Context, _ Vehicle) (Rate, error) {
	return s.rate, s.err
}

func TestService_RideFare(t *testing.T) {
	ctx := context.Background()

	s := NewService(nil) // Store not needed for the built-in tariff
	if got, err := s.RideFare(ctx, 5.2, VehicleBike); err != nil || got != 57 {
		t.Errorf("RideFare() = %d, %v, want 57", got, err)
	}
	if _, err := s.RideFare(ctx, -1, VehicleBike); !errors.Is(err, ErrBadRequest) {
		t.Errorf("negative distance error = %v, want ErrBadRequest", err)
	}
	if _, err := s.RideFare(ctx, math.NaN(), VehicleBike); !errors.Is(err, ErrBadRequest) {
		t.Errorf("NaN distance error = %v, want ErrBadRequest", err)
	}
	if _, err := s.RideFare(ctx, 1, Vehicle("tractor")); !errors.Is(err, ErrBadRequest) {
		t.Errorf("unknown vehicle error = %v, want ErrBadRequest", err)
	}
}

func TestService_RateOverride(t *testing.T) {
	ctx := context.Background()

	override := NewService(stubRates{rate: Rate{Vehicle: VehicleBike, BaseFare: 25, PerKm: 8}})
	if got, err := override.RideFare(ctx, 2, VehicleBike); err != nil || got != 41 {
		t.Errorf("override RideFare() = %d, %v, want 41", got, err)
	}

	missing := NewService(stubRates{err: ErrRateNotFound})
	if got, err := missing.RideFare(ctx, 2, VehicleBike); err != nil || got != 34 {
		t.Errorf("fallback RideFare() = %d, %v, want 34", got, err)
	}

	for _, bad := range []Rate{
		{Vehicle: VehicleBike, BaseFare: 5, PerKm: 7},
		{Vehicle: VehicleBike, BaseFare: 20, PerKm: -3},
	} {
		corrupt := NewService(stubRates{rate: bad})
		if got, err := corrupt.RideFare(ctx, 2, VehicleBike); err != nil || got != 34 {
			t.Errorf("invalid override %+v: RideFare() = %d, %v, want built-in 34", bad, got, err)
		}
	}

	storeDown := errors.New("connection refused")
	broken := NewService(stubRates{err: storeDown})
	if _, err := broken.RideFare(ctx, 2, VehicleBike); !errors.Is(err, storeDown) {
		t.Errorf("store failure error = %v, want wrapped store error", err)
	}
}

func TestService_Quotes(t *testing.T) {
	ctx := context.Background()
	s := NewService(nil)

	from := types.NewGeoPoint("Bus stand", 0, 0)
	to := types.NewGeoPoint("Temple", 0.05, 0) // ~5.6km

	ride, err := s.QuoteRide(ctx, from, to, VehicleAuto)
	if err != nil {
		t.Fatalf("QuoteRide() error = %v", err)
	}
	if ride.DistanceKm != 5.6 {
		t.Errorf("ride distance = %v, want 5.6", ride.DistanceKm)
	}
	if ride.Amount != types.Rupees(RideFare(5.6, VehicleAuto)) {
		t.Errorf("ride amount = %+v", ride.Amount)
	}
	if ride.Breakdown["base_fare"]+ride.Breakdown["distance_fare"] != ride.Amount.Amount {
		t.Errorf("breakdown %v does not add up to %d", ride.Breakdown, ride.Amount.Amount)
	}

	delivery, err := s.QuoteDelivery(ctx, from, to)
	if err != nil {
		t.Fatalf("QuoteDelivery() error = %v", err)
	}
	if delivery.Amount.Amount != 50 || delivery.Amount.Currency != types.CurrencyINR {
		t.Errorf("delivery amount = %+v, want 50 INR", delivery.Amount)
	}

	if _, err := s.QuoteDelivery(ctx, from, types.NewGeoPoint("", 91, 0)); !errors.Is(err, ErrBadRequest) {
		t.Errorf("out-of-range point error = %v, want ErrBadRequest", err)
	}
}

func TestRate_Validate(t *testing.T) {
	tests := []struct {
		name string
		rate Rate
		ok   bool
	}{
		{"built-in bike", DefaultRates[VehicleBike], true},
		{"free distance", Rate{Vehicle: VehicleAuto, BaseFare: 30, PerKm: 0}, true},
		{"base below floor", Rate{Vehicle: VehicleAuto, BaseFare: 19, PerKm: 12}, false},
		{"negative base", Rate{Vehicle: VehicleAuto, BaseFare: -1, PerKm: 12}, false},
		{"negative per km", Rate{Vehicle: VehicleBike, BaseFare: 20, PerKm: -1}, false},
		{"unknown vehicle", Rate{Vehicle: "tractor", BaseFare: 20, PerKm: 7}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rate.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrBadRequest) {
				t.Errorf("Validate() = %v, want ErrBadRequest", err)
			}
		})
	}
}

func TestStore_PutRateRejectsInvalid(t *testing.T) {
	// validation runs before the pool is used, so no database is needed
	s := NewStore(nil)
	err := s.PutRate(context.Background(), Rate{Vehicle: VehicleBike, BaseFare: 20, PerKm: -7})
	if !errors.Is(err, ErrBadRequest) {
		t.Errorf("PutRate() = %v, want ErrBadRequest", err)
	}
}
