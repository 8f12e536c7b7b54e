package main

import (
	"errors"

	"github.com/spf13/cobra"

	"village/internal/config"
	"village/internal/infra"
	"village/internal/modules/catalog"
	"village/internal/modules/pricing"
)

type quoteFlags struct {
	from, to string
	vehicle  string
	shop     string
	useDB    bool
}

func newQuoteCmd() *cobra.Command {
	var flags quoteFlags
	quote := &cobra.Command{
		Use:   "quote",
		Short: "Price a ride or a delivery",
	}
	quote.PersistentFlags().StringVar(&flags.to, "to", "", "Drop location as lat,lng")
	quote.PersistentFlags().BoolVar(&flags.useDB, "db", false, "Apply rate overrides stored in Postgres")

	ride := &cobra.Command{
		Use:   "ride",
		Short: "Quote a bike or auto ride",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, err := parsePoint("from", flags.from)
			if err != nil {
				return codeError(3, "%v", err)
			}
			to, err := parsePoint("to", flags.to)
			if err != nil {
				return codeError(3, "%v", err)
			}
			v, err := pricing.ParseVehicle(flags.vehicle)
			if err != nil {
				return codeError(3, "%v", err)
			}
			svc, closeFn, err := pricingService(cmd, flags.useDB)
			if err != nil {
				return err
			}
			defer closeFn()
			q, err := svc.QuoteRide(cmd.Context(), from, to, v)
			if err != nil {
				return err
			}
			return printJSON(cmd, q)
		},
	}
	ride.Flags().StringVar(&flags.from, "from", "", "Pickup location as lat,lng")
	ride.Flags().StringVar(&flags.vehicle, "vehicle", "bike", "Vehicle class: bike or auto")

	delivery := &cobra.Command{
		Use:   "delivery",
		Short: "Quote the delivery charge from a catalog shop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			to, err := parsePoint("to", flags.to)
			if err != nil {
				return codeError(3, "%v", err)
			}
			cat, err := catalog.Default()
			if err != nil {
				return err
			}
			shop, ok := cat.Shop(flags.shop)
			if !ok {
				return codeError(3, "unknown shop %q", flags.shop)
			}
			q, err := pricing.NewService(nil).QuoteDelivery(cmd.Context(), shop.Location, to)
			if err != nil {
				return err
			}
			return printJSON(cmd, q)
		},
	}
	delivery.Flags().StringVar(&flags.shop, "shop", "", "Shop id from the catalog")

	quote.AddCommand(ride, delivery)
	return quote
}

// pricingService uses the built-in tariff unless useDB is set.
func pricingService(cmd *cobra.Command, useDB bool) (*pricing.Service, func(), error) {
	if !useDB {
		return pricing.NewService(nil), func() {}, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := infra.NewDB(cmd.Context(), cfg.DB.DSN)
	if err != nil {
		return nil, nil, codeError(2, "%v", err)
	}
	return pricing.NewService(pricing.NewStore(db)), db.Close, nil
}

func newRateCmd() *cobra.Command {
	var base, perKm int64
	rate := &cobra.Command{
		Use:   "rate",
		Short: "Manage ride tariff overrides",
	}
	set := &cobra.Command{
		Use:   "set <vehicle>",
		Short: "Store a base fare and per-km rate for a vehicle class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := pricing.ParseVehicle(args[0])
			if err != nil {
				return codeError(3, "%v", err)
			}
			r := pricing.Rate{Vehicle: v, BaseFare: base, PerKm: perKm}
			if err := r.Validate(); err != nil {
				return codeError(3, "%v", err)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := infra.NewDB(cmd.Context(), cfg.DB.DSN)
			if err != nil {
				return codeError(2, "%v", err)
			}
			defer db.Close()
			if err := pricing.NewStore(db).PutRate(cmd.Context(), r); err != nil {
				if errors.Is(err, pricing.ErrBadRequest) {
					return codeError(3, "%v", err)
				}
				return codeError(2, "%v", err)
			}
			return printJSON(cmd, r)
		},
	}
	set.Flags().Int64Var(&base, "base", 20, "Base fare in rupees")
	set.Flags().Int64Var(&perKm, "per-km", 0, "Rupees per kilometre")
	_ = set.MarkFlagRequired("per-km")

	rate.AddCommand(set)
	return rate
}
