package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the agent HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := NewAgent(ctx, o.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			srv, err := a.NewServer()
			if err != nil {
				return err
			}
			return srv.Start(ctx)
		},
	}
}
