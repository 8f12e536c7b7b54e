// README: villagectl; operator CLI for migrations, price quotes, order timelines and environment checks.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"village/internal/config"
	"village/internal/infra"
	"village/internal/types"
)

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			os.Exit(ee.code)
		}
		// cobra already printed the error
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "villagectl",
		Short:        "Operate the village super-app backend",
		SilenceUsage: true,
	}
	root.AddCommand(
		newMigrateCmd(),
		newQuoteCmd(),
		newRateCmd(),
		newOrderCmd(),
		newAssistCmd(),
		newCheckCmd(),
	)
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := infra.Migrate(cfg.DB.DSN); err != nil {
				return codeError(2, "%v", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

// parsePoint reads "lat,lng".
func parsePoint(name, v string) (types.GeoPoint, error) {
	lat, lng, ok := strings.Cut(v, ",")
	if !ok {
		return types.GeoPoint{}, fmt.Errorf("%s: want lat,lng, got %q", name, v)
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return types.GeoPoint{}, fmt.Errorf("%s: bad latitude: %w", name, err)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return types.GeoPoint{}, fmt.Errorf("%s: bad longitude: %w", name, err)
	}
	p := types.NewGeoPoint(name, la, lo)
	if !p.Valid() {
		return types.GeoPoint{}, fmt.Errorf("%s: coordinate out of range", name)
	}
	return p, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
