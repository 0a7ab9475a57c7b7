package cli

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/history"
)

func newRunCommand(s *state) *cobra.Command {
	var (
		date   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Price every vendor once and record the totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			runDate := time.Now()
			if date != "" {
				d, err := domain.ParseDate(date)
				if err != nil {
					return eris.Wrapf(domain.ErrInvalidRequest, "--date %q must be YYYY-MM-DD", date)
				}
				runDate = d
			}

			a, err := s.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Tracker.Run(ctx, runDate)
			if err != nil {
				return eris.Wrap(err, "run")
			}

			if path := s.cfg.History.ExportPath; path != "" {
				if err := exportSeries(cmd, a.Tracker, "", true, path); err != nil {
					return err
				}
				zap.L().Info("run: series exported", zap.String("path", path))
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			renderRun(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "run date as YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run result as JSON")
	return cmd
}

// exportSeries writes the stored series, and optionally the component series, to path
func exportSeries(cmd *cobra.Command, tracker seriesReader, vendor string, components bool, path string) error {
	ctx := cmd.Context()

	series, err := tracker.Series(ctx, vendor)
	if err != nil {
		return eris.Wrap(err, "export: read series")
	}

	var points []domain.ComponentPoint
	if components {
		points, err = tracker.ComponentSeries(ctx, vendor)
		if err != nil {
			return eris.Wrap(err, "export: read components")
		}
	}

	return history.WriteSeriesFile(path, history.NewSeriesExport(time.Now(), series, points))
}
