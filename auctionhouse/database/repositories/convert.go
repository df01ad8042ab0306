package repositories

import (
	"fmt"

	"github.com/ellavondegurechaff/auction-house/auctionhouse/database/models"
	"github.com/ellavondegurechaff/auction-house/auctionhouse/economy/auction"
)

func toAuctionModel(rec auction.Record) *models.Auction {
	row := &models.Auction{
		AuctionID:         rec.ID,
		ItemID:            rec.Item.ID,
		ItemName:          rec.Item.Name,
		ItemCategory:      rec.Item.Category,
		ItemGrade:         rec.Item.Grade,
		ItemBaseValue:     rec.Item.BaseValue,
		SellerID:          rec.Seller.ID,
		SellerName:        rec.Seller.Name,
		Protocol:          string(rec.Protocol),
		IncrementPercent:  rec.Increment.Percent,
		IncrementFlat:     rec.Increment.Flat,
		StartingPrice:     rec.StartingPrice,
		CurrentPrice:      rec.CurrentPrice,
		ReservePrice:      rec.ReservePrice,
		DecrementAmount:   rec.DecrementAmount,
		DecrementInterval: rec.DecrementInterval,
		FloorPrice:        rec.FloorPrice,
		StartTime:         rec.StartTime,
		EndTime:           rec.EndTime,
		LastDecrementAt:   rec.LastDecrementAt,
		Extensions:        rec.Extensions,
		Status:            string(rec.Status),
		Seq:               int64(rec.Seq),
		BidCount:          len(rec.Ledger),
		SettlementStalled: rec.SettlementStalled,
		SettlementError:   rec.SettlementError,
		ClosedAt:          rec.ClosedAt,
		CreatedAt:         rec.CreatedAt,
	}
	if n := len(rec.Ledger); n > 0 {
		row.TopBidderID = rec.Ledger[n-1].BidderID
	}
	return row
}

func toBidModels(auctionID string, ledger []auction.Bid) []*models.AuctionBid {
	bids := make([]*models.AuctionBid, len(ledger))
	for i, b := range ledger {
		bids[i] = &models.AuctionBid{
			AuctionID:  auctionID,
			Seq:        b.Seq,
			BidderID:   b.BidderID,
			BidderName: b.BidderName,
			Amount:     b.Amount,
			Timestamp:  b.At,
		}
	}
	return bids
}

func fromAuctionModel(row *models.Auction, bids []*models.AuctionBid) (auction.Record, error) {
	protocol, err := auction.ParseProtocol(row.Protocol)
	if err != nil {
		return auction.Record{}, fmt.Errorf("auction %s: %w", row.AuctionID, err)
	}

	rec := auction.Record{
		ID: row.AuctionID,
		Item: auction.Item{
			ID:        row.ItemID,
			Name:      row.ItemName,
			Category:  row.ItemCategory,
			Grade:     row.ItemGrade,
			BaseValue: row.ItemBaseValue,
		},
		Seller:            auction.Party{ID: row.SellerID, Name: row.SellerName},
		Protocol:          protocol,
		Increment:         auction.IncrementRule{Percent: row.IncrementPercent, Flat: row.IncrementFlat},
		StartingPrice:     row.StartingPrice,
		CurrentPrice:      row.CurrentPrice,
		ReservePrice:      row.ReservePrice,
		DecrementAmount:   row.DecrementAmount,
		DecrementInterval: row.DecrementInterval,
		FloorPrice:        row.FloorPrice,
		StartTime:         row.StartTime.UTC(),
		EndTime:           row.EndTime.UTC(),
		LastDecrementAt:   row.LastDecrementAt.UTC(),
		Extensions:        row.Extensions,
		Status:            auction.Status(row.Status),
		Seq:               uint64(row.Seq),
		CreatedAt:         row.CreatedAt.UTC(),
		ClosedAt:          row.ClosedAt.UTC(),
		SettlementStalled: row.SettlementStalled,
		SettlementError:   row.SettlementError,
	}

	rec.Ledger = make([]auction.Bid, 0, len(bids))
	for _, b := range bids {
		rec.Ledger = append(rec.Ledger, auction.Bid{
			Seq:        b.Seq,
			BidderID:   b.BidderID,
			BidderName: b.BidderName,
			Amount:     b.Amount,
			At:         b.Timestamp.UTC(),
		})
	}
	return rec, nil
}
