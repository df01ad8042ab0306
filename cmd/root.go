package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ellavondegurechaff/auction-house/auctionhouse"
	"github.com/ellavondegurechaff/auction-house/auctionhouse/logger"
)

var (
	version = "dev"
	commit  = "unknown"

	configPath string
	cfg        *auctionhouse.Config
)

var rootCmd = &cobra.Command{
	Use:           "auction-house",
	Short:         "Real-time auction engine",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := auctionhouse.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		level := cfg.Log.Level
		if env := os.Getenv("AUCTION_LOG_LEVEL"); env != "" {
			level = logger.ParseLevel(env)
		}
		slog.SetDefault(slog.New(logger.NewHandler(os.Stdout, logger.Options{
			Level: level,
			Color: cfg.Log.Color,
		})))
		slog.Debug("Configuration loaded", slog.String("type", "sys"), slog.String("path", configPath))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "path to config")
}

// Execute runs the command line with build information stamped in by main.
func Execute(buildVersion, buildCommit string) {
	version, commit = buildVersion, buildCommit
	rootCmd.Version = fmt.Sprintf("%s (%s)", version, commit)

	if err := rootCmd.Execute(); err != nil {
		logger.LogError("Command failed", err)
		os.Exit(1)
	}
}
