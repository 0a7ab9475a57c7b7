package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/history"
)

type seriesReader interface {
	Series(ctx context.Context, vendor string) ([]domain.SeriesPoint, error)
	ComponentSeries(ctx context.Context, vendor string) ([]domain.ComponentPoint, error)
}

func newSeriesCommand(s *state) *cobra.Command {
	var (
		vendor     string
		components bool
		asJSON     bool
		exportPath string
	)

	cmd := &cobra.Command{
		Use:   "series",
		Short: "Show the recorded daily totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := s.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if vendor != "" && !contains(a.Tracker.Vendors(), vendor) {
				return eris.Wrapf(domain.ErrUnknownVendor, "vendor %q", vendor)
			}

			if exportPath != "" {
				if err := exportSeries(cmd, a.Tracker, vendor, components, exportPath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", exportPath)
				return nil
			}

			series, err := a.Tracker.Series(ctx, vendor)
			if err != nil {
				return eris.Wrap(err, "read series")
			}

			var points []domain.ComponentPoint
			if components {
				points, err = a.Tracker.ComponentSeries(ctx, vendor)
				if err != nil {
					return eris.Wrap(err, "read components")
				}
			}

			if asJSON {
				return history.ExportSeriesJSON(cmd.OutOrStdout(), history.NewSeriesExport(time.Now(), series, points))
			}

			renderSeries(cmd.OutOrStdout(), series)
			if components {
				renderComponents(cmd.OutOrStdout(), points)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&vendor, "vendor", "", "only show this vendor")
	cmd.Flags().BoolVar(&components, "components", false, "include per-component prices")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	cmd.Flags().StringVar(&exportPath, "export", "", "write the series as JSON to this file")
	return cmd
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
