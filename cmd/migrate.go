package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ellavondegurechaff/auction-house/auctionhouse/database"
)

var resetAuctions bool

var migrateCMD = &cobra.Command{
	Use:   "migrate",
	Short: "create the auction house tables and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := database.New(ctx, cfg.DB)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			return err
		}
		defer db.Close()

		if err := db.InitializeSchema(ctx); err != nil {
			slog.Error("Migration failed", "error", err)
			return err
		}

		if resetAuctions {
			if err := db.ResetAuctionTables(ctx); err != nil {
				return err
			}
		}

		slog.Info("Migration completed successfully!")
		return nil
	},
}

func init() {
	migrateCMD.Flags().BoolVar(&resetAuctions, "reset-auctions", false, "truncate the auction journal after migrating")
	rootCmd.AddCommand(migrateCMD)
}
