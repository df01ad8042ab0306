package main

import (
	"log/slog"
	"os"

	"github.com/ellavondegurechaff/auction-house/auctionhouse/logger"
	"github.com/ellavondegurechaff/auction-house/cmd"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	slog.SetDefault(slog.New(logger.NewHandler(os.Stdout, logger.Options{Level: slog.LevelInfo, Color: true})))
	cmd.Execute(version, commit)
}
