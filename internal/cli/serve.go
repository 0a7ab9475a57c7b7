package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	httpDelivery "github.com/pricelens/backend/internal/delivery/http"
)

func newServeCommand(s *state) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tracker over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := s.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if port == "" {
				port = s.cfg.Server.Port
			}

			router := httpDelivery.SetupRouter(s.cfg, httpDelivery.NewHandler(a.Tracker))
			return httpDelivery.Serve(ctx, fmt.Sprintf(":%s", port), router)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "server port (default from config)")
	return cmd
}
