package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kyri56xcaesar/teamup/internal/logging"
	"kyri56xcaesar/teamup/internal/mteam"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "teamup",
	Short: "Team formation and slot booking service",
	Long: `teamup lets players create sports teams with a fixed number of paid
slots, join and leave them, and settle slot payments.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".env", "env file with configuration overrides")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

// setup loads configuration and builds the logger shared by subcommands.
func setup() (mteam.Config, *zap.SugaredLogger, error) {
	cfg := mteam.LoadConfig(configPath)
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}
