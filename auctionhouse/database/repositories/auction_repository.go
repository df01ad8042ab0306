package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/ellavondegurechaff/auction-house/auctionhouse/database/models"
	"github.com/ellavondegurechaff/auction-house/auctionhouse/economy/auction"
)

type AuctionRepository interface {
	DB() *bun.DB
	Save(ctx context.Context, rec auction.Record) error
	GetByAuctionID(ctx context.Context, auctionID string) (*models.Auction, error)
	GetAuctionBids(ctx context.Context, auctionID string) ([]*models.AuctionBid, error)
	GetUserBids(ctx context.Context, userID string) ([]*models.AuctionBid, error)
	ListLive(ctx context.Context) ([]auction.Record, error)
}

type auctionRepository struct {
	db *bun.DB
}

func NewAuctionRepository(db *bun.DB) AuctionRepository {
	return &auctionRepository{db: db}
}

func (r *auctionRepository) DB() *bun.DB {
	return r.db
}

// upsertColumns are overwritten when a newer version of an auction arrives.
var upsertColumns = []string{
	"current_price",
	"end_time",
	"last_decrement_at",
	"extensions",
	"status",
	"seq",
	"bid_count",
	"top_bidder_id",
	"settlement_stalled",
	"settlement_error",
	"closed_at",
	"updated_at",
}

// Save writes the auction row and any ledger entries not stored yet. A row
// is only replaced by a record with a higher Seq, so journal writes that
// arrive out of order cannot roll an auction back.
func (r *auctionRepository) Save(ctx context.Context, rec auction.Record) error {
	row := toAuctionModel(rec)
	row.UpdatedAt = time.Now()

	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewInsert().
			Model(row).
			On("CONFLICT (auction_id) DO UPDATE")
		for _, col := range upsertColumns {
			q = q.Set(fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
		if _, err := q.Where("a.seq < EXCLUDED.seq").Exec(ctx); err != nil {
			return fmt.Errorf("failed to upsert auction %s: %w", rec.ID, err)
		}

		if len(rec.Ledger) == 0 {
			return nil
		}
		bids := toBidModels(rec.ID, rec.Ledger)
		if _, err := tx.NewInsert().
			Model(&bids).
			On("CONFLICT (auction_id, seq) DO NOTHING").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert bids for %s: %w", rec.ID, err)
		}
		return nil
	})
}

func (r *auctionRepository) GetByAuctionID(ctx context.Context, auctionID string) (*models.Auction, error) {
	row := new(models.Auction)
	err := r.db.NewSelect().
		Model(row).
		Where("auction_id = ?", auctionID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return row, nil
}

func (r *auctionRepository) GetAuctionBids(ctx context.Context, auctionID string) ([]*models.AuctionBid, error) {
	var bids []*models.AuctionBid
	err := r.db.NewSelect().
		Model(&bids).
		Where("auction_id = ?", auctionID).
		Order("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get auction bids: %w", err)
	}
	return bids, nil
}

func (r *auctionRepository) GetUserBids(ctx context.Context, userID string) ([]*models.AuctionBid, error) {
	var bids []*models.AuctionBid
	err := r.db.NewSelect().
		Model(&bids).
		Where("bidder_id = ?", userID).
		Order("timestamp DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get user bids: %w", err)
	}
	return bids, nil
}

// ListLive loads every auction that had not reached a terminal status,
// ledger included, for recovery after a restart.
func (r *auctionRepository) ListLive(ctx context.Context) ([]auction.Record, error) {
	var rows []*models.Auction
	err := r.db.NewSelect().
		Model(&rows).
		Where("status IN (?)", bun.In([]string{
			string(auction.StatusPending),
			string(auction.StatusActive),
			string(auction.StatusClosing),
		})).
		Order("end_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list live auctions: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.AuctionID
	}
	var bids []*models.AuctionBid
	err = r.db.NewSelect().
		Model(&bids).
		Where("auction_id IN (?)", bun.In(ids)).
		Order("auction_id ASC", "seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load live auction bids: %w", err)
	}

	byAuction := make(map[string][]*models.AuctionBid, len(rows))
	for _, b := range bids {
		byAuction[b.AuctionID] = append(byAuction[b.AuctionID], b)
	}

	records := make([]auction.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := fromAuctionModel(row, byAuction[row.AuctionID])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
