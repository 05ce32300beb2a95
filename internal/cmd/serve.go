package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kyri56xcaesar/teamup/internal/mteam"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return mteam.Serve(ctx, cfg, logger)
	},
}
