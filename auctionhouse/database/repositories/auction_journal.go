package repositories

import (
	"context"
	"log/slog"

	"github.com/ellavondegurechaff/auction-house/auctionhouse/economy/auction"
	"github.com/ellavondegurechaff/auction-house/auctionhouse/logger"
)

// Journal persists every auction that changes. It consumes a global
// subscription and writes the record each event carries, so it keeps
// working after the auction's controller has stopped.
type Journal struct {
	repo  AuctionRepository
	saved map[string]uint64
}

func NewJournal(repo AuctionRepository) *Journal {
	return &Journal{
		repo:  repo,
		saved: make(map[string]uint64),
	}
}

// Run blocks until ctx is done or the subscription is closed and drained.
func (j *Journal) Run(ctx context.Context, sub *auction.Subscription) error {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sub.C():
			if !ok {
				return nil
			}
			j.handle(ctx, ev)
		}
	}
}

func (j *Journal) handle(ctx context.Context, ev auction.Event) {
	rec := ev.Record
	if rec == nil || ev.Seq <= j.saved[ev.AuctionID] {
		return
	}

	if err := j.repo.Save(ctx, *rec); err != nil {
		logger.LogError("Failed to journal auction", err,
			slog.String("auction_id", rec.ID),
			slog.Uint64("seq", rec.Seq))
		return
	}

	if rec.Status.Terminal() {
		delete(j.saved, rec.ID)
		return
	}
	j.saved[rec.ID] = rec.Seq
}
