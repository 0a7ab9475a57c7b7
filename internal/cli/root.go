// Package cli implements the pricelens command line.
package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/app"
)

// state is shared by the commands of one root command tree
type state struct {
	cfgFile string
	cfg     *config.Config

	// loadConfig is replaced in tests
	loadConfig func(path string) (*config.Config, error)
}

// openApp wires the tracker from the loaded configuration
func (s *state) openApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, s.cfg)
}

// NewRootCommand builds the pricelens command tree
func NewRootCommand() *cobra.Command {
	return newRootCommand(&state{loadConfig: config.LoadFile})
}

func newRootCommand(s *state) *cobra.Command {
	root := &cobra.Command{
		Use:   "pricelens",
		Short: "Daily PC build price tracker",
		Long: "Prices a fixed list of PC components against each vendor's catalog, records daily totals " +
			"and reports the change since the previous day.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := s.loadConfig(s.cfgFile)
			if err != nil {
				return eris.Wrap(err, "load config")
			}
			s.cfg = c

			if err := config.InitLogger(c.Log); err != nil {
				return eris.Wrap(err, "init logger")
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = zap.L().Sync()
		},
	}
	root.PersistentFlags().StringVar(&s.cfgFile, "config", "", "config file (default ./config.yaml)")

	root.AddCommand(newRunCommand(s), newSeriesCommand(s), newServeCommand(s))
	return root
}

// Execute runs the command line until completion or SIGINT/SIGTERM
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return NewRootCommand().ExecuteContext(ctx)
}
