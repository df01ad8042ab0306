package auctionhouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/ellavondegurechaff/auction-house/auctionhouse/database"
	"github.com/ellavondegurechaff/auction-house/auctionhouse/database/repositories"
	"github.com/ellavondegurechaff/auction-house/auctionhouse/economy/auction"
	"github.com/ellavondegurechaff/auction-house/auctionhouse/economy/ledger"
	"github.com/ellavondegurechaff/auction-house/auctionhouse/logger"
	"github.com/ellavondegurechaff/auction-house/auctionhouse/notify"
	"github.com/ellavondegurechaff/auction-house/auctionhouse/transport"
)

// House holds every long-lived component of a running auction house.
type House struct {
	Cfg     Config
	Version string
	Commit  string

	DB       *database.DB
	Auctions repositories.AuctionRepository
	Ledger   *ledger.Ledger
	Registry *auction.Registry
	Server   *transport.Server
	Redis    *redis.Client
}

func New(cfg Config, version, commit string) *House {
	return &House{
		Cfg:     cfg,
		Version: version,
		Commit:  commit,
	}
}

// Setup connects the database, builds the engine and restores the auctions
// that were running when the process last stopped.
func (h *House) Setup(ctx context.Context) error {
	dbStart := time.Now()
	db, err := database.New(ctx, h.Cfg.DB)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	h.DB = db
	logger.LogSystem("Database connected",
		slog.String("database", h.Cfg.DB.Database),
		slog.Duration("took", time.Since(dbStart)))

	if err := db.InitializeSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	h.Auctions = repositories.NewAuctionRepository(db.BunDB())
	h.Ledger = ledger.New(db.BunDB())

	h.Registry, err = auction.NewRegistry(h.Cfg.AuctionConfig(), h.Ledger, h.Ledger)
	if err != nil {
		return fmt.Errorf("failed to create auction registry: %w", err)
	}

	recovered, err := h.Registry.Recover(ctx, h.Auctions)
	if err != nil {
		return fmt.Errorf("failed to recover auctions: %w", err)
	}
	logger.LogSystem("Auction engine ready", slog.Int("recovered", recovered))

	if h.Cfg.Redis.Enabled() {
		h.Redis, err = notify.NewRedisClient(ctx, h.Cfg.Redis.Addr, h.Cfg.Redis.Password, h.Cfg.Redis.DB)
		if err != nil {
			slog.Warn("Redis unavailable, continuing without relay",
				slog.String("type", "sys"),
				slog.Any("error", err))
			h.Redis = nil
		}
	}

	h.Server = transport.NewServer(h.Registry)
	return nil
}

// Run serves until ctx is done, then stops the engine. The journal and
// notifiers each follow their own global subscription until the engine
// closes the broadcaster and the subscription's backlog is delivered.
// Events carry the record they describe, so the journal does not depend on
// controllers that have already stopped.
func (h *House) Run(ctx context.Context) error {
	bus := h.Registry.Broadcaster()
	g, gctx := errgroup.WithContext(ctx)

	journal := repositories.NewJournal(h.Auctions)
	journalSub := bus.SubscribeAll()
	g.Go(func() error {
		return journal.Run(context.Background(), journalSub)
	})

	if h.Redis != nil {
		relay := notify.NewRedisRelay(h.Redis)
		relaySub := bus.SubscribeAll()
		g.Go(func() error {
			return relay.Run(context.Background(), relaySub)
		})
	}

	if h.Cfg.Discord.Enabled() {
		discord := notify.NewDiscordNotifier(h.Cfg.Discord.Token, h.Cfg.Discord.ChannelID, h.Registry)
		discordSub := bus.SubscribeAll()
		g.Go(func() error {
			return discord.Run(context.Background(), discordSub)
		})
	}

	g.Go(func() error {
		return h.Server.ListenAndServe(gctx, h.Cfg.HTTP.Addr, h.Cfg.HTTP.ShutdownTimeout.Duration)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.Cfg.HTTP.ShutdownTimeout.Duration)
		defer cancel()
		if err := h.Registry.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("registry shutdown: %w", err)
		}
		return nil
	})

	logger.LogSystem("Auction house started",
		slog.String("version", h.Version),
		slog.String("commit", h.Commit),
		slog.String("addr", h.Cfg.HTTP.Addr))
	return g.Wait()
}

// Close releases whatever Setup acquired. The registry is stopped again in
// case Run was never reached.
func (h *House) Close(ctx context.Context) error {
	var errs []error
	if h.Registry != nil {
		if err := h.Registry.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("registry shutdown: %w", err))
		}
	}
	if h.Redis != nil {
		if err := h.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if h.DB != nil {
		h.DB.Close()
	}
	return errors.Join(errs...)
}
