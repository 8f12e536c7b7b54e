// README: Pricing store backed by PostgreSQL.
package pricing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// GetRate returns the tariff override for a vehicle, or ErrRateNotFound.
func (s *Store) GetRate(ctx context.Context, v Vehicle) (Rate, error) {
	r := Rate{Vehicle: v}
	err := s.db.QueryRow(ctx, `
		SELECT base_fare, per_km
		FROM pricing_rates
		WHERE vehicle = $1`, string(v),
	).Scan(&r.BaseFare, &r.PerKm)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rate{}, ErrRateNotFound
	}
	if err != nil {
		return Rate{}, err
	}
	return r, nil
}

// PutRate inserts or replaces the tariff override for a vehicle. Invalid
// tariffs are rejected with ErrBadRequest before touching the database.
func (s *Store) PutRate(ctx context.Context, r Rate) error {
	if err := r.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO pricing_rates (vehicle, base_fare, per_km, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (vehicle) DO UPDATE
		SET base_fare = EXCLUDED.base_fare,
		    per_km = EXCLUDED.per_km,
		    updated_at = NOW()`,
		string(r.Vehicle), r.BaseFare, r.PerKm,
	)
	return err
}
