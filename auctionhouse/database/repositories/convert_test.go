package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ellavondegurechaff/auction-house/auctionhouse/economy/auction"
)

func TestRecordSurvivesRoundTrip(t *testing.T) {
	rec := auction.Record{
		ID:                "K7QX2M",
		Item:              auction.Item{ID: "item-9", Name: "Phoenix Card", Category: "Cards", Grade: "A", BaseValue: 500},
		Seller:            auction.Party{ID: "seller", Name: "Seller"},
		Protocol:          auction.ProtocolDutch,
		Increment:         auction.PercentIncrement(5),
		StartingPrice:     1000,
		CurrentPrice:      800,
		DecrementAmount:   100,
		DecrementInterval: 30 * time.Second,
		FloorPrice:        200,
		StartTime:         t0,
		EndTime:           t0.Add(time.Hour),
		LastDecrementAt:   t0.Add(time.Minute),
		Status:            auction.StatusClosing,
		Seq:               7,
		CreatedAt:         t0,
		SettlementStalled: true,
		SettlementError:   "inventory unavailable",
		Ledger: []auction.Bid{
			{Seq: 1, BidderID: "alice", BidderName: "Alice", Amount: 800, At: t0.Add(90 * time.Second)},
		},
	}

	row := toAuctionModel(rec)
	require.Equal(t, "alice", row.TopBidderID)
	require.Equal(t, 1, row.BidCount)
	require.Equal(t, "dutch", row.Protocol)

	got, err := fromAuctionModel(row, toBidModels(rec.ID, rec.Ledger))
	require.NoError(t, err)
	require.True(t, rec.Increment.Percent.Equal(got.Increment.Percent))
	got.Increment = rec.Increment
	require.Equal(t, rec, got)
}

func TestUnknownProtocolIsRejected(t *testing.T) {
	row := toAuctionModel(auction.Record{ID: "BADROW", Protocol: auction.ProtocolStandard})
	row.Protocol = "vickrey"
	_, err := fromAuctionModel(row, nil)
	require.Error(t, err)
}
