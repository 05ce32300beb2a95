package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"kyri56xcaesar/teamup/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Apply or inspect database migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status"},
	RunE: func(cmd *cobra.Command, args []string) error {
		direction := "up"
		if len(args) == 1 {
			direction = args[0]
		}

		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		m, err := store.NewMigrator(cfg.DSN(), logger)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		switch direction {
		case "up":
			return m.Up(ctx)
		case "down":
			return m.Down(ctx)
		case "status":
			return m.Status(ctx)
		}
		return fmt.Errorf("unknown direction %q", direction)
	},
}
