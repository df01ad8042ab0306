package auction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ellavondegurechaff/auction-house/auctionhouse/economy/auction/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestStandardAscendingBids(t *testing.T) {
	r, _ := newTestRegistry(t, testConfig(), nil, nil)
	defer shutdown(t, r)
	ctx := context.Background()

	req := standardRequest(1000, time.Hour)
	req.Increment = PercentIncrement(10)
	snap, err := r.Create(ctx, req)
	require.NoError(t, err)
	require.Equal(t, StatusActive, snap.Status)
	require.Equal(t, int64(1100), snap.NextMinimumBid)

	res, err := r.SubmitBid(ctx, snap.ID, bid("x", 1100))
	require.NoError(t, err)
	require.True(t, res.Accepted)
	require.Equal(t, int64(1100), res.NewPrice)

	res, err = r.SubmitBid(ctx, snap.ID, bid("y", 1050))
	require.NoError(t, err)
	require.False(t, res.Accepted)
	require.Equal(t, RejectTooLow, res.Rejection)
	require.Equal(t, int64(1210), res.NextMinimumBid)

	res, err = r.SubmitBid(ctx, snap.ID, bid("y", 1210))
	require.NoError(t, err)
	require.True(t, res.Accepted)

	got, err := r.Get(snap.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1210), got.CurrentPrice)
	require.Equal(t, 2, got.BidCount)
	require.Equal(t, "y", got.HighestBidderID)
	require.Equal(t, []int64{1100, 1210}, []int64{got.Ledger[0].Amount, got.Ledger[1].Amount})
}

func TestReserveNotMetIsUnsold(t *testing.T) {
	ledger := newFakeLedger()
	r, clock := newTestRegistry(t, testConfig(), ledger, ledger)
	defer shutdown(t, r)
	ctx := context.Background()

	req := standardRequest(1000, time.Hour)
	req.Protocol = ProtocolReserve
	req.ReservePrice = 5000
	snap, err := r.Create(ctx, req)
	require.NoError(t, err)
	require.True(t, snap.HasReserve)
	require.Zero(t, snap.ReservePrice)

	res, err := r.SubmitBid(ctx, snap.ID, bid("x", 4000))
	require.NoError(t, err)
	require.True(t, res.Accepted)
	require.Equal(t, int64(4000), ledger.heldBy("x"))

	clock.Advance(time.Hour)

	got := waitStatus(t, r, snap.ID, StatusUnsold)
	require.Equal(t, int64(5000), got.ReservePrice)
	require.Empty(t, got.WinnerID)

	require.Eventually(t, func() bool {
		_, _, itemReleases, _ := ledger.counts()
		return itemReleases == 1 && ledger.heldBy("x") == 0
	}, 2*time.Second, 2*time.Millisecond)

	fundTransfers, itemTransfers, _, _ := ledger.counts()
	require.Zero(t, fundTransfers)
	require.Zero(t, itemTransfers)
}

func TestReserveMetSettles(t *testing.T) {
	ledger := newFakeLedger()
	r, clock := newTestRegistry(t, testConfig(), ledger, ledger)
	defer shutdown(t, r)
	ctx := context.Background()

	req := standardRequest(1000, time.Hour)
	req.Protocol = ProtocolReserve
	req.ReservePrice = 5000
	snap, err := r.Create(ctx, req)
	require.NoError(t, err)

	_, err = r.SubmitBid(ctx, snap.ID, bid("x", 5000))
	require.NoError(t, err)

	clock.Advance(time.Hour)

	got := waitStatus(t, r, snap.ID, StatusSettled)
	require.Equal(t, "x", got.WinnerID)
	require.Equal(t, int64(5000), got.FinalPrice)
}

func TestDutchDecayAndFirstBidWins(t *testing.T) {
	ledger := newFakeLedger()
	r, clock := newTestRegistry(t, testConfig(), ledger, ledger)
	defer shutdown(t, r)
	ctx := context.Background()

	events := r.Broadcaster().SubscribeAll()

	snap, err := r.Create(ctx, CreateRequest{
		Item:              Item{ID: "item-1", Name: "Phoenix", Category: "Cards"},
		Seller:            Party{ID: "seller", Name: "Seller"},
		Protocol:          ProtocolDutch,
		StartingPrice:     2000,
		DecrementAmount:   100,
		DecrementInterval: time.Minute,
		Duration:          time.Hour,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), snap.FloorPrice)

	clock.Advance(3 * time.Minute)

	got, err := r.Get(snap.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1700), got.CurrentPrice)
	require.Equal(t, t0.Add(3*time.Minute), got.LastDecrementAt)

	res, err := r.SubmitBid(ctx, snap.ID, bid("buyer", 1700))
	require.NoError(t, err)
	require.True(t, res.Accepted)

	late, err := r.SubmitBid(ctx, snap.ID, bid("other", 1900))
	require.NoError(t, err)
	require.Equal(t, RejectNotActive, late.Rejection)

	got = waitStatus(t, r, snap.ID, StatusSettled)
	require.Equal(t, "buyer", got.WinnerID)
	require.Equal(t, int64(1700), got.FinalPrice)
	require.Len(t, got.Ledger, 1)

	var types []EventType
	for len(types) == 0 || types[len(types)-1] != EventAuctionClosed {
		types = append(types, receive(t, events).Type)
	}
	require.Equal(t, []EventType{
		EventAuctionCreated,
		EventAuctionStarted,
		EventPriceDecayed,
		EventPriceDecayed,
		EventPriceDecayed,
		EventBidAccepted,
		EventAuctionClosing,
		EventAuctionClosed,
	}, types)

	fundTransfers, itemTransfers, _, _ := ledger.counts()
	require.Equal(t, 1, fundTransfers)
	require.Equal(t, 1, itemTransfers)
}

func TestDutchLateTickCatchesUp(t *testing.T) {
	r, clock := newTestRegistry(t, testConfig(), nil, nil)
	defer shutdown(t, r)
	ctx := context.Background()

	snap, err := r.Create(ctx, CreateRequest{
		Item:              Item{ID: "item-1", Name: "Phoenix"},
		Seller:            Party{ID: "seller"},
		Protocol:          ProtocolDutch,
		StartingPrice:     2000,
		DecrementAmount:   100,
		DecrementInterval: time.Minute,
		FloorPrice:        1500,
		Duration:          time.Hour,
	})
	require.NoError(t, err)

	// process paused: no timer fired for ten intervals
	clock.Set(t0.Add(10*time.Minute + 30*time.Second))
	require.NoError(t, mustController(t, r, snap.ID).Tick(ctx, clock.Now()))

	got, err := r.Get(snap.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1500), got.CurrentPrice)
	require.Equal(t, t0.Add(10*time.Minute), got.LastDecrementAt)
	require.Equal(t, StatusActive, got.Status)
}

func TestLateTickClosesExpiredAuction(t *testing.T) {
	r, clock := newTestRegistry(t, testConfig(), nil, nil)
	defer shutdown(t, r)
	ctx := context.Background()

	snap, err := r.Create(ctx, standardRequest(1000, time.Minute))
	require.NoError(t, err)
	_, err = r.SubmitBid(ctx, snap.ID, bid("x", 1500))
	require.NoError(t, err)

	clock.Set(t0.Add(2 * time.Hour))
	res, err := r.SubmitBid(ctx, snap.ID, bid("y", 9000))
	require.NoError(t, err)
	require.Equal(t, RejectNotActive, res.Rejection)

	got := waitStatus(t, r, snap.ID, StatusSettled)
	require.Equal(t, "x", got.WinnerID)
}

func TestAntiSnipeExtendsOnce(t *testing.T) {
	cfg := testConfig()
	cfg.AntiSnipeWindow = 30 * time.Second
	cfg.AntiSnipeExtension = 30 * time.Second
	cfg.MaxExtensions = 1

	r, clock := newTestRegistry(t, cfg, nil, nil)
	defer shutdown(t, r)
	ctx := context.Background()

	snap, err := r.Create(ctx, standardRequest(1000, time.Minute))
	require.NoError(t, err)
	end := snap.EndTime

	clock.Advance(55 * time.Second)
	res, err := r.SubmitBid(ctx, snap.ID, bid("x", 1100))
	require.NoError(t, err)
	require.True(t, res.Accepted)
	require.Equal(t, end.Add(30*time.Second), res.EndTime)

	clock.Advance(30 * time.Second)
	res, err = r.SubmitBid(ctx, snap.ID, bid("y", 1200))
	require.NoError(t, err)
	require.True(t, res.Accepted)
	require.Equal(t, end.Add(30*time.Second), res.EndTime, "extension limit reached")

	got, err := r.Get(snap.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.Extensions)

	clock.Advance(5 * time.Second)
	got = waitStatus(t, r, snap.ID, StatusSettled)
	require.Equal(t, "y", got.WinnerID)
}

func TestBidOutsideSnipeWindowDoesNotExtend(t *testing.T) {
	cfg := testConfig()
	cfg.AntiSnipeWindow = 30 * time.Second
	cfg.AntiSnipeExtension = 30 * time.Second

	r, clock := newTestRegistry(t, cfg, nil, nil)
	defer shutdown(t, r)
	ctx := context.Background()

	snap, err := r.Create(ctx, standardRequest(1000, time.Hour))
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	res, err := r.SubmitBid(ctx, snap.ID, bid("x", 1100))
	require.NoError(t, err)
	require.Equal(t, snap.EndTime, res.EndTime)
}

func TestPendingAuctionStartsOnTime(t *testing.T) {
	r, clock := newTestRegistry(t, testConfig(), nil, nil)
	defer shutdown(t, r)
	ctx := context.Background()

	req := standardRequest(1000, time.Hour)
	req.StartTime = t0.Add(10 * time.Minute)
	snap, err := r.Create(ctx, req)
	require.NoError(t, err)
	require.Equal(t, StatusPending, snap.Status)

	res, err := r.SubmitBid(ctx, snap.ID, bid("x", 1100))
	require.NoError(t, err)
	require.Equal(t, RejectNotActive, res.Rejection)

	clock.Advance(10 * time.Minute)
	got, err := r.Get(snap.ID)
	require.NoError(t, err)
	require.Equal(t, StatusActive, got.Status)

	res, err = r.SubmitBid(ctx, snap.ID, bid("x", 1100))
	require.NoError(t, err)
	require.True(t, res.Accepted)
}

func TestSellerCannotBidAndSelfOutbid(t *testing.T) {
	r, _ := newTestRegistry(t, testConfig(), nil, nil)
	defer shutdown(t, r)
	ctx := context.Background()

	snap, err := r.Create(ctx, standardRequest(1000, time.Hour))
	require.NoError(t, err)

	res, err := r.SubmitBid(ctx, snap.ID, bid("seller", 5000))
	require.NoError(t, err)
	require.Equal(t, RejectSellerCannotBid, res.Rejection)

	_, err = r.SubmitBid(ctx, snap.ID, bid("x", 1100))
	require.NoError(t, err)

	res, err = r.SubmitBid(ctx, snap.ID, bid("x", 1100))
	require.NoError(t, err)
	require.Equal(t, RejectSelfOutbid, res.Rejection)

	res, err = r.SubmitBid(ctx, snap.ID, bid("x", 1200))
	require.NoError(t, err)
	require.True(t, res.Accepted)
}

func TestFundsReservedAndReleased(t *testing.T) {
	ledger := newFakeLedger()
	ledger.setBalance("poor", 500)
	r, _ := newTestRegistry(t, testConfig(), ledger, ledger)
	defer shutdown(t, r)
	ctx := context.Background()

	snap, err := r.Create(ctx, standardRequest(1000, time.Hour))
	require.NoError(t, err)

	res, err := r.SubmitBid(ctx, snap.ID, bid("poor", 1100))
	require.NoError(t, err)
	require.Equal(t, RejectInsufficientFunds, res.Rejection)
	require.Zero(t, ledger.heldBy("poor"))

	_, err = r.SubmitBid(ctx, snap.ID, bid("x", 1100))
	require.NoError(t, err)
	require.Equal(t, int64(1100), ledger.heldBy("x"))

	// too low after the funds check: the reservation is handed back
	res, err = r.SubmitBid(ctx, snap.ID, bid("y", 1150))
	require.NoError(t, err)
	require.Equal(t, RejectTooLow, res.Rejection)

	_, err = r.SubmitBid(ctx, snap.ID, bid("y", 1300))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return ledger.heldBy("x") == 0 && ledger.heldBy("y") == 1300
	}, 2*time.Second, 2*time.Millisecond)
}

func TestCancelRules(t *testing.T) {
	cfg := testConfig()
	cfg.AdminIDs = []string{"admin"}
	ledger := newFakeLedger()
	r, _ := newTestRegistry(t, cfg, ledger, ledger)
	defer shutdown(t, r)
	ctx := context.Background()

	first, err := r.Create(ctx, standardRequest(1000, time.Hour))
	require.NoError(t, err)

	require.ErrorIs(t, r.Cancel(ctx, first.ID, "stranger"), ErrNotAuthorized)
	require.NoError(t, r.Cancel(ctx, first.ID, "seller"))
	require.NoError(t, r.Cancel(ctx, first.ID, "seller"), "cancelling twice is a no-op")

	got, err := r.Get(first.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, got.Status)

	res, err := r.SubmitBid(ctx, first.ID, bid("x", 1100))
	require.NoError(t, err)
	require.Equal(t, RejectNotActive, res.Rejection)

	req := standardRequest(1000, time.Hour)
	req.Item.ID = "item-2"
	second, err := r.Create(ctx, req)
	require.NoError(t, err)
	_, err = r.SubmitBid(ctx, second.ID, bid("x", 1100))
	require.NoError(t, err)
	require.ErrorIs(t, r.Cancel(ctx, second.ID, "admin"), ErrCannotCancelWithBids)

	req.Item.ID = "item-3"
	third, err := r.Create(ctx, req)
	require.NoError(t, err)
	require.NoError(t, r.Cancel(ctx, third.ID, "admin"))

	require.ErrorIs(t, r.Cancel(ctx, "NOPE00", "admin"), ErrAuctionNotFound)

	require.Eventually(t, func() bool {
		_, _, itemReleases, _ := ledger.counts()
		return itemReleases == 2
	}, 2*time.Second, 2*time.Millisecond)
}

func TestCancelAfterCloseFails(t *testing.T) {
	r, clock := newTestRegistry(t, testConfig(), nil, nil)
	defer shutdown(t, r)
	ctx := context.Background()

	snap, err := r.Create(ctx, standardRequest(1000, time.Minute))
	require.NoError(t, err)
	clock.Advance(time.Minute)
	waitStatus(t, r, snap.ID, StatusUnsold)

	require.ErrorIs(t, r.Cancel(ctx, snap.ID, "seller"), ErrNotCancellable)
}

func TestSettlementStallsAndRetries(t *testing.T) {
	ledger := newFakeLedger()
	ledger.setFailItemTransfers(true)
	r, clock := newTestRegistry(t, testConfig(), ledger, ledger)
	defer shutdown(t, r)
	ctx := context.Background()

	snap, err := r.Create(ctx, standardRequest(1000, time.Minute))
	require.NoError(t, err)
	require.ErrorIs(t, r.RetrySettlement(ctx, snap.ID), ErrNotStalled)

	_, err = r.SubmitBid(ctx, snap.ID, bid("x", 2000))
	require.NoError(t, err)

	stalled := r.Broadcaster().Subscribe(snap.ID)
	clock.Advance(time.Minute)

	require.Eventually(t, func() bool {
		s, _ := r.Get(snap.ID)
		return s.SettlementStalled
	}, 2*time.Second, 2*time.Millisecond)

	got, err := r.Get(snap.ID)
	require.NoError(t, err)
	require.Equal(t, StatusClosing, got.Status)
	require.Contains(t, got.SettlementError, errInventoryDown.Error())

	var ev Event
	for ev.Type != EventSettlementStalled {
		ev = receive(t, stalled)
	}
	require.Equal(t, "x", ev.WinnerID)

	fundTransfers, itemTransfers, _, _ := ledger.counts()
	require.Equal(t, 1, fundTransfers)
	require.Zero(t, itemTransfers)

	ledger.setFailItemTransfers(false)
	require.NoError(t, r.RetrySettlement(ctx, snap.ID))

	got = waitStatus(t, r, snap.ID, StatusSettled)
	require.False(t, got.SettlementStalled)
	require.Equal(t, "x", got.WinnerID)

	fundTransfers, itemTransfers, _, _ = ledger.counts()
	require.Equal(t, 1, fundTransfers, "funds must not move twice")
	require.Equal(t, 1, itemTransfers)
}

func TestTerminalTransitionsAreIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	inventory := mock.NewMockInventory(ctrl)
	funds := mock.NewMockFunds(ctrl)

	settled := make(chan struct{})
	inventory.EXPECT().LockItemForAuction(gomock.Any(), "item-1", "seller").Return(nil).Times(1)
	funds.EXPECT().ReserveFunds(gomock.Any(), "x", int64(1500)).Return(nil).Times(1)
	funds.EXPECT().TransferFunds(gomock.Any(), gomock.Any(), "x", "seller", int64(1500)).Return(nil).Times(1)
	inventory.EXPECT().TransferItem(gomock.Any(), gomock.Any(), "item-1", "seller", "x").
		DoAndReturn(func(context.Context, string, string, string, string) error {
			close(settled)
			return nil
		}).Times(1)

	r, clock := newTestRegistry(t, testConfig(), inventory, funds)
	defer shutdown(t, r)
	ctx := context.Background()

	snap, err := r.Create(ctx, standardRequest(1000, time.Minute))
	require.NoError(t, err)
	_, err = r.SubmitBid(ctx, snap.ID, bid("x", 1500))
	require.NoError(t, err)

	clock.Advance(time.Minute)
	<-settled
	waitStatus(t, r, snap.ID, StatusSettled)

	c := mustController(t, r, snap.ID)
	for i := 0; i < 3; i++ {
		require.NoError(t, c.exec(ctx, func() {
			now := clock.Now()
			c.beginClosing(now)
			c.settle(now)
		}))
		require.NoError(t, c.Tick(ctx, clock.Now().Add(time.Hour)))
	}
	require.ErrorIs(t, r.RetrySettlement(ctx, snap.ID), ErrNotStalled)
	require.ErrorIs(t, r.Cancel(ctx, snap.ID, "seller"), ErrNotCancellable)

	got, err := r.Get(snap.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSettled, got.Status)
}

func TestEventsSinceReplaysInOrder(t *testing.T) {
	r, _ := newTestRegistry(t, testConfig(), nil, nil)
	defer shutdown(t, r)
	ctx := context.Background()

	snap, err := r.Create(ctx, standardRequest(1000, time.Hour))
	require.NoError(t, err)
	_, err = r.SubmitBid(ctx, snap.ID, bid("x", 1100))
	require.NoError(t, err)
	_, err = r.SubmitBid(ctx, snap.ID, bid("y", 1200))
	require.NoError(t, err)

	events, err := r.EventsSince(ctx, snap.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 4)
	for i, ev := range events {
		require.Equal(t, uint64(i+1), ev.Seq)
	}

	events, err = r.EventsSince(ctx, snap.ID, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, EventBidAccepted, events[0].Type)
	require.Equal(t, int64(1100), events[0].Amount)
	require.Equal(t, "y", events[1].BidderID)
}

func TestDutchBidAboveLivePriceKeepsPrice(t *testing.T) {
	ledger := newFakeLedger()
	r, clock := newTestRegistry(t, testConfig(), ledger, ledger)
	defer shutdown(t, r)
	ctx := context.Background()

	snap, err := r.Create(ctx, CreateRequest{
		Item:              Item{ID: "item-1", Name: "Phoenix"},
		Seller:            Party{ID: "seller"},
		Protocol:          ProtocolDutch,
		StartingPrice:     2000,
		DecrementAmount:   100,
		DecrementInterval: time.Minute,
		Duration:          time.Hour,
	})
	require.NoError(t, err)
	clock.Advance(3 * time.Minute)

	res, err := r.SubmitBid(ctx, snap.ID, bid("buyer", 1900))
	require.NoError(t, err)
	require.True(t, res.Accepted)
	require.Equal(t, int64(1700), res.NewPrice)
	require.Equal(t, int64(1700), res.CurrentPrice)

	got := waitStatus(t, r, snap.ID, StatusSettled)
	require.Equal(t, int64(1700), got.FinalPrice)
	require.Equal(t, int64(1700), got.Ledger[0].Amount)

	require.Eventually(t, func() bool {
		return ledger.heldBy("buyer") == 0
	}, 2*time.Second, 2*time.Millisecond, "excess reservation was not released")
}

func TestShutdownAppliesInFlightSettlement(t *testing.T) {
	ledger := newFakeLedger()
	r, clock := newTestRegistry(t, testConfig(), ledger, ledger)
	ctx := context.Background()
	events := r.Broadcaster().SubscribeAll()

	snap, err := r.Create(ctx, standardRequest(1000, time.Minute))
	require.NoError(t, err)
	other := standardRequest(1000, time.Hour)
	other.Item.ID = "item-2"
	open, err := r.Create(ctx, other)
	require.NoError(t, err)

	_, err = r.SubmitBid(ctx, snap.ID, bid("x", 1500))
	require.NoError(t, err)

	started, release := ledger.holdItemTransfers()
	clock.Advance(time.Minute)
	<-started

	stopped := make(chan error, 1)
	go func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		stopped <- r.Shutdown(shutdownCtx)
	}()

	require.Eventually(t, func() bool {
		return errors.Is(r.RetrySettlement(ctx, open.ID), ErrEngineClosed)
	}, 2*time.Second, 2*time.Millisecond, "engine kept accepting commands")
	_, err = r.SubmitBid(ctx, open.ID, bid("y", 2000))
	require.ErrorIs(t, err, ErrEngineClosed)
	require.Zero(t, ledger.heldBy("y"))

	release()
	require.NoError(t, <-stopped)

	got, err := r.Get(snap.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSettled, got.Status)
	require.False(t, got.SettlementStalled)

	fundTransfers, itemTransfers, _, _ := ledger.counts()
	require.Equal(t, 1, fundTransfers)
	require.Equal(t, 1, itemTransfers)

	var last Event
	for ev := range events.C() {
		if ev.AuctionID == snap.ID {
			last = ev
		}
	}
	require.Equal(t, EventAuctionClosed, last.Type)
	require.NotNil(t, last.Record)
	require.Equal(t, StatusSettled, last.Record.Status)
}

func TestBidAfterShutdownKeepsNoHold(t *testing.T) {
	ledger := newFakeLedger()
	r, _ := newTestRegistry(t, testConfig(), ledger, ledger)
	ctx := context.Background()

	snap, err := r.Create(ctx, standardRequest(1000, time.Hour))
	require.NoError(t, err)
	shutdown(t, r)

	_, err = r.SubmitBid(ctx, snap.ID, bid("x", 1100))
	require.ErrorIs(t, err, ErrEngineClosed)
	require.Zero(t, ledger.heldBy("x"))
}

func TestSettlementRetryAfterLostReplyPaysOnce(t *testing.T) {
	ledger := newFakeLedger()
	ledger.loseFundsReply()
	r, clock := newTestRegistry(t, testConfig(), ledger, ledger)
	defer shutdown(t, r)
	ctx := context.Background()

	snap, err := r.Create(ctx, standardRequest(1000, time.Minute))
	require.NoError(t, err)
	_, err = r.SubmitBid(ctx, snap.ID, bid("x", 1500))
	require.NoError(t, err)

	clock.Advance(time.Minute)
	waitStatus(t, r, snap.ID, StatusSettled)

	fundTransfers, itemTransfers, _, _ := ledger.counts()
	require.Equal(t, 1, fundTransfers)
	require.Equal(t, 1, itemTransfers)
	require.Equal(t, int64(1500), ledger.balanceOf("seller"))
	require.Equal(t, int64(1_000_000-1500), ledger.balanceOf("x"))
}
