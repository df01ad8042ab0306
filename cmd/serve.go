package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ellavondegurechaff/auction-house/auctionhouse"
	"github.com/ellavondegurechaff/auction-house/auctionhouse/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the auction engine and its HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		house := auctionhouse.New(*cfg, version, commit)
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := house.Close(closeCtx); err != nil {
				logger.LogError("Shutdown was not clean", err)
			}
		}()

		setupCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		if err := house.Setup(setupCtx); err != nil {
			return err
		}

		if err := house.Run(ctx); err != nil {
			return err
		}
		logger.LogSystem("Shutting down...")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
