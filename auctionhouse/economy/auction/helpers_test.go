package auction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)

var errInventoryDown = errors.New("inventory unavailable")

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SweepInterval = 0
	cfg.Settlement = SettlerConfig{
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
		CallTimeout: time.Second,
		Workers:     4,
	}
	return cfg
}

func newTestRegistry(t require.TestingT, cfg Config, inventory Inventory, funds Funds) (*Registry, *FakeClock) {
	clock := NewFakeClock(t0)
	r, err := NewRegistry(cfg, inventory, funds, WithClock(clock))
	require.NoError(t, err)
	return r, clock
}

func shutdown(t require.TestingT, r *Registry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))
}

func standardRequest(startingPrice int64, d time.Duration) CreateRequest {
	return CreateRequest{
		Item:          Item{ID: "item-1", Name: "Dragon Card", Category: "Cards", Grade: "S", BaseValue: 900},
		Seller:        Party{ID: "seller", Name: "Seller"},
		Protocol:      ProtocolStandard,
		StartingPrice: startingPrice,
		Duration:      d,
	}
}

func waitStatus(t *testing.T, r *Registry, id string, want Status) Snapshot {
	t.Helper()
	var snap Snapshot
	require.Eventually(t, func() bool {
		s, err := r.Get(id)
		if err != nil {
			return false
		}
		snap = s
		return s.Status == want
	}, 2*time.Second, 2*time.Millisecond, "auction %s never reached %s", id, want)
	return snap
}

func bid(bidder string, amount int64) BidRequest {
	return BidRequest{BidderID: bidder, BidderName: bidder, Amount: amount}
}

// fakeLedger is an in-memory Inventory and Funds with failure injection.
type fakeLedger struct {
	mu sync.Mutex

	balance map[string]int64
	held    map[string]int64
	locked  map[string]string
	owner   map[string]string

	fundTransfers int
	itemTransfers int
	itemReleases  int
	fundReleases  int

	failItemTransfers bool
	loseFundsReplies  int
	itemStarted       chan struct{}
	itemGate          chan struct{}
	applied           map[string]bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balance: make(map[string]int64),
		held:    make(map[string]int64),
		locked:  make(map[string]string),
		owner:   make(map[string]string),
		applied: make(map[string]bool),
	}
}

func (f *fakeLedger) setBalance(userID string, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balance[userID] = amount
}

// loseFundsReply makes the next TransferFunds commit but report a timeout.
func (f *fakeLedger) loseFundsReply() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loseFundsReplies++
}

func (f *fakeLedger) balanceOf(userID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance[userID]
}

func (f *fakeLedger) setFailItemTransfers(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failItemTransfers = fail
}

// holdItemTransfers makes the next TransferItem block until the returned
// release func is called. started is closed once the transfer is underway.
func (f *fakeLedger) holdItemTransfers() (started <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.itemStarted = make(chan struct{})
	f.itemGate = make(chan struct{})
	gate := f.itemGate
	return f.itemStarted, func() { close(gate) }
}

func (f *fakeLedger) heldBy(userID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.held[userID]
}

func (f *fakeLedger) counts() (fundTransfers, itemTransfers, itemReleases, fundReleases int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fundTransfers, f.itemTransfers, f.itemReleases, f.fundReleases
}

func (f *fakeLedger) LockItemForAuction(_ context.Context, itemID, sellerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.locked[itemID]; ok {
		return fmt.Errorf("item %s is already locked", itemID)
	}
	f.locked[itemID] = sellerID
	return nil
}

func (f *fakeLedger) TransferItem(_ context.Context, ref, itemID, _, toID string) error {
	f.mu.Lock()
	started, gate := f.itemStarted, f.itemGate
	f.itemStarted, f.itemGate = nil, nil
	f.mu.Unlock()
	if gate != nil {
		close(started)
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failItemTransfers {
		return errInventoryDown
	}
	if f.applied["item:"+ref] {
		return nil
	}
	f.applied["item:"+ref] = true
	delete(f.locked, itemID)
	f.owner[itemID] = toID
	f.itemTransfers++
	return nil
}

func (f *fakeLedger) ReleaseItem(_ context.Context, itemID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.locked, itemID)
	f.itemReleases++
	return nil
}

func (f *fakeLedger) ReserveFunds(_ context.Context, bidderID string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	balance, ok := f.balance[bidderID]
	if !ok {
		balance = 1_000_000
		f.balance[bidderID] = balance
	}
	if balance-f.held[bidderID] < amount {
		return ErrInsufficientFunds
	}
	f.held[bidderID] += amount
	return nil
}

func (f *fakeLedger) ReleaseFunds(_ context.Context, bidderID string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.held[bidderID] -= amount
	f.fundReleases++
	return nil
}

func (f *fakeLedger) TransferFunds(_ context.Context, ref, payerID, payeeID string, amount int64) (err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applied["funds:"+ref] {
		return nil
	}
	f.applied["funds:"+ref] = true
	defer func() {
		if f.loseFundsReplies > 0 {
			f.loseFundsReplies--
			err = context.DeadlineExceeded
		}
	}()
	f.held[payerID] -= amount
	f.balance[payerID] -= amount
	f.balance[payeeID] += amount
	f.fundTransfers++
	return nil
}

func mustController(t *testing.T, r *Registry, id string) *Controller {
	t.Helper()
	c, ok := r.controller(id)
	require.True(t, ok, "auction %s is not live", id)
	return c
}
