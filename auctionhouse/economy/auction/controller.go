package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ellavondegurechaff/auction-house/auctionhouse/logger"
	"github.com/google/uuid"
)

// BidResult is the outcome of SubmitBid. Rejected bids carry the price a
// retry would need to reach.
type BidResult struct {
	Accepted       bool      `json:"accepted"`
	Rejection      Rejection `json:"rejection,omitempty"`
	NewPrice       int64     `json:"new_price,omitempty"`
	CurrentPrice   int64     `json:"current_price"`
	NextMinimumBid int64     `json:"next_minimum_bid"`
	Status         Status    `json:"status"`
	EndTime        time.Time `json:"end_time"`
	Seq            uint64    `json:"seq"`
}

type controllerConfig struct {
	clock          Clock
	bus            *Broadcaster
	settler        *Settler
	funds          Funds
	snipeWindow    time.Duration
	snipeExtension time.Duration
	maxExtensions  int
	historySize    int
	isAdmin        func(string) bool
}

// Controller is the single writer of one auction. Every mutation, whether
// a bid, a timer tick, a cancel or a settlement outcome, runs as a command
// on the controller goroutine, one at a time, in arrival order.
type Controller struct {
	cfg controllerConfig

	// owned by the loop goroutine
	st               Record
	settleDispatched bool
	pendingJob       *SettlementJob
	history          []Event
	timer            Timer
	timerAt          time.Time
	timerGen         uint64
	draining         bool

	snap    atomic.Pointer[Snapshot]
	closing atomic.Bool

	inbox    chan func()
	quit     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

func newController(rec Record, cfg controllerConfig) *Controller {
	if cfg.historySize <= 0 {
		cfg.historySize = 256
	}
	if cfg.isAdmin == nil {
		cfg.isAdmin = func(string) bool { return false }
	}

	c := &Controller{
		cfg:     cfg,
		st:      rec,
		inbox:   make(chan func()),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	c.refresh()
	return c
}

func (c *Controller) loop() {
	defer close(c.stopped)
	for {
		select {
		case cmd := <-c.inbox:
			cmd()
		case <-c.quit:
			c.stopTimer()
			return
		}
	}
}

// exec runs fn on the controller goroutine and waits for it. Once fn has
// been handed over it always runs to completion.
func (c *Controller) exec(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	cmd := func() {
		defer close(done)
		fn()
	}

	select {
	case c.inbox <- cmd:
	case <-c.quit:
		return ErrEngineClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// command is exec for work that may change the auction. Once the
// controller drains it refuses new commands but keeps applying settlement
// outcomes.
func (c *Controller) command(ctx context.Context, fn func()) error {
	refused := false
	err := c.exec(ctx, func() {
		if c.draining {
			refused = true
			return
		}
		fn()
	})
	if err == nil && refused {
		return ErrEngineClosed
	}
	return err
}

// drain stops bids, ticks and cancels. Commands queued after it are refused.
func (c *Controller) drain(ctx context.Context) error {
	c.closing.Store(true)
	return c.exec(ctx, func() {
		c.draining = true
		c.stopTimer()
	})
}

func (c *Controller) stop() {
	c.closing.Store(true)
	c.stopOnce.Do(func() {
		close(c.quit)
	})
	<-c.stopped
}

func (c *Controller) ID() string {
	return c.snap.Load().ID
}

// Snapshot returns a copy of the most recently committed state.
func (c *Controller) Snapshot() Snapshot {
	s := *c.snap.Load()
	s.Ledger = slices.Clone(s.Ledger)
	return s
}

func (c *Controller) SubmitBid(ctx context.Context, req BidRequest) (BidResult, error) {
	snap := c.snap.Load()
	if snap.Status.Terminal() || snap.Status == StatusClosing {
		return rejectFrom(snap, RejectNotActive), nil
	}
	if rej := Validate(Quote{Status: StatusActive, SellerID: snap.Seller.ID}, req); rej == RejectInvalidAmount || rej == RejectSellerCannotBid {
		return rejectFrom(snap, rej), nil
	}
	if c.closing.Load() {
		return BidResult{}, ErrEngineClosed
	}

	if c.cfg.funds != nil {
		if err := c.cfg.funds.ReserveFunds(ctx, req.BidderID, req.Amount); err != nil {
			if errors.Is(err, ErrInsufficientFunds) {
				return rejectFrom(snap, RejectInsufficientFunds), nil
			}
			return BidResult{}, fmt.Errorf("failed to reserve funds: %w", err)
		}
	}

	var res BidResult
	err := c.command(ctx, func() {
		res = c.applyBid(req)
	})
	if c.cfg.funds != nil && (err != nil || !res.Accepted) {
		c.releaseReservation(ctx, snap.ID, req.BidderID, req.Amount)
	}
	if err != nil {
		return BidResult{}, err
	}
	return res, nil
}

// releaseReservation frees a hold the controller never took over. When the
// settler no longer accepts jobs the release runs inline.
func (c *Controller) releaseReservation(ctx context.Context, auctionID, bidderID string, amount int64) {
	job := SettlementJob{
		Kind:      ReleaseFunds,
		AuctionID: auctionID,
		PartyID:   bidderID,
		Amount:    amount,
	}
	if c.cfg.settler.Dispatch(job, logOutcome) {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.settler.cfg.CallTimeout)
	defer cancel()
	if err := c.cfg.funds.ReleaseFunds(ctx, bidderID, amount); err != nil {
		logger.LogError("Failed to release refused bid reservation", err,
			slog.String("auction_id", auctionID),
			slog.String("bidder_id", bidderID),
			slog.Int64("amount", amount))
	}
}

func rejectFrom(snap *Snapshot, rej Rejection) BidResult {
	return BidResult{
		Rejection:      rej,
		CurrentPrice:   snap.CurrentPrice,
		NextMinimumBid: snap.NextMinimumBid,
		Status:         snap.Status,
		EndTime:        snap.EndTime,
		Seq:            snap.Seq,
	}
}

// Tick applies every time-driven transition due at now.
func (c *Controller) Tick(ctx context.Context, now time.Time) error {
	return c.command(ctx, func() {
		c.advance(now)
		c.reschedule(now)
	})
}

func (c *Controller) Cancel(ctx context.Context, requestorID string) error {
	var err error
	if execErr := c.command(ctx, func() {
		err = c.cancel(requestorID)
	}); execErr != nil {
		return execErr
	}
	return err
}

// RetrySettlement re-dispatches a stalled settlement.
func (c *Controller) RetrySettlement(ctx context.Context) error {
	var err error
	if execErr := c.command(ctx, func() {
		err = c.retrySettlement()
	}); execErr != nil {
		return execErr
	}
	return err
}

// EventsSince replays retained events with a sequence number above seq.
func (c *Controller) EventsSince(ctx context.Context, seq uint64) ([]Event, error) {
	var out []Event
	err := c.exec(ctx, func() {
		for _, ev := range c.history {
			if ev.Seq > seq {
				out = append(out, ev)
			}
		}
	})
	return out, err
}

func (c *Controller) applyBid(req BidRequest) BidResult {
	now := c.cfg.clock.Now()
	c.advance(now)
	defer c.reschedule(now)

	r := &c.st
	if rej := Validate(r.quote(), req); rej != RejectNone {
		return c.result(rej)
	}

	prev, hadPrev := r.highestBid()
	bid := Bid{
		Seq:        len(r.Ledger) + 1,
		BidderID:   req.BidderID,
		BidderName: req.BidderName,
		Amount:     req.Amount,
		At:         now,
	}
	// A dutch bid takes the live price; only the clock moves it.
	if r.Protocol == ProtocolDutch {
		bid.Amount = r.CurrentPrice
	}
	r.Ledger = append(r.Ledger, bid)
	r.CurrentPrice = bid.Amount

	if r.Protocol.Ascending() && c.inSnipeWindow(now) {
		r.EndTime = r.EndTime.Add(c.cfg.snipeExtension)
		r.Extensions++
		slog.Debug("Auction end extended by late bid",
			slog.String("auction_id", r.ID),
			slog.Time("end_time", r.EndTime),
			slog.Int("extensions", r.Extensions))
	}

	c.emit(now, EventBidAccepted, func(ev *Event) {
		ev.BidderID = bid.BidderID
		ev.Amount = bid.Amount
	})
	res := c.result(RejectNone)

	if hadPrev {
		c.releaseHold(prev)
	}
	if excess := req.Amount - bid.Amount; excess > 0 {
		c.releaseHold(Bid{BidderID: bid.BidderID, Amount: excess})
	}
	if r.Protocol == ProtocolDutch {
		c.beginClosing(now)
	}

	res.Accepted = true
	res.NewPrice = bid.Amount
	return res
}

func (c *Controller) inSnipeWindow(now time.Time) bool {
	r := &c.st
	if c.cfg.snipeWindow <= 0 || c.cfg.snipeExtension <= 0 {
		return false
	}
	if r.Extensions >= c.cfg.maxExtensions {
		return false
	}
	return r.EndTime.Sub(now) <= c.cfg.snipeWindow
}

func (c *Controller) result(rej Rejection) BidResult {
	r := &c.st
	return BidResult{
		Rejection:      rej,
		CurrentPrice:   r.CurrentPrice,
		NextMinimumBid: NextMinimumBid(r.Protocol, r.CurrentPrice, r.Increment),
		Status:         r.Status,
		EndTime:        r.EndTime,
		Seq:            r.Seq,
	}
}

// advance compares against wall-clock instants only, so a late or missed
// tick still lands in the right state.
func (c *Controller) advance(now time.Time) {
	r := &c.st

	if r.Status == StatusPending && !now.Before(r.StartTime) {
		r.Status = StatusActive
		if r.Protocol == ProtocolDutch {
			r.LastDecrementAt = r.StartTime
		}
		c.emit(now, EventAuctionStarted, nil)
	}

	if r.Status == StatusActive && r.Protocol == ProtocolDutch {
		at := now
		if at.After(r.EndTime) {
			at = r.EndTime
		}
		c.decay(now, at)
	}

	if r.Status == StatusActive && !now.Before(r.EndTime) {
		c.beginClosing(now)
	}
}

func (c *Controller) decay(now, at time.Time) {
	r := &c.st
	if r.DecrementInterval <= 0 || r.DecrementAmount <= 0 {
		return
	}

	steps := int64(at.Sub(r.LastDecrementAt) / r.DecrementInterval)
	if steps <= 0 {
		return
	}
	r.LastDecrementAt = r.LastDecrementAt.Add(time.Duration(steps) * r.DecrementInterval)

	if r.CurrentPrice <= r.FloorPrice {
		c.refresh()
		return
	}

	prev := r.CurrentPrice
	r.CurrentPrice = max(r.CurrentPrice-steps*r.DecrementAmount, r.FloorPrice)
	c.emit(now, EventPriceDecayed, func(ev *Event) {
		ev.Amount = prev - r.CurrentPrice
	})
}

func (c *Controller) beginClosing(now time.Time) {
	r := &c.st
	if r.Status != StatusActive {
		return
	}
	r.Status = StatusClosing
	c.emit(now, EventAuctionClosing, nil)
	c.settle(now)
}

// settle determines the outcome of a closing auction. It is a no-op once
// settlement has been dispatched or the auction is terminal.
func (c *Controller) settle(now time.Time) {
	r := &c.st
	if r.Status != StatusClosing || c.settleDispatched {
		return
	}

	top, hasBids := r.highestBid()
	if !hasBids || !r.reserveMet() {
		reason := "no bids"
		if hasBids {
			reason = "reserve not met"
			c.releaseHold(top)
		}
		r.Status = StatusUnsold
		r.ClosedAt = now
		c.cfg.settler.Dispatch(SettlementJob{
			Kind:      ReleaseItem,
			AuctionID: r.ID,
			ItemID:    r.Item.ID,
			SellerID:  r.Seller.ID,
		}, logOutcome)
		c.emit(now, EventAuctionClosed, func(ev *Event) {
			ev.Reason = reason
		})
		slog.Info("Auction closed unsold",
			slog.String("type", "sys"),
			slog.String("auction_id", r.ID),
			slog.String("reason", reason))
		return
	}

	c.settleDispatched = true
	job := SettlementJob{
		ID:        uuid.New(),
		Kind:      SettleWinner,
		AuctionID: r.ID,
		ItemID:    r.Item.ID,
		SellerID:  r.Seller.ID,
		PartyID:   top.BidderID,
		Amount:    top.Amount,
	}
	c.pendingJob = &job
	c.cfg.settler.Dispatch(job, c.onSettled)
}

func (c *Controller) onSettled(job SettlementJob, err error) {
	if execErr := c.exec(context.Background(), func() {
		c.settlementFinished(job, err)
	}); execErr != nil {
		slog.Warn("Settlement outcome not applied",
			slog.String("auction_id", job.AuctionID),
			slog.Any("error", execErr))
	}
}

func (c *Controller) settlementFinished(job SettlementJob, err error) {
	r := &c.st
	if r.Status != StatusClosing {
		return
	}
	now := c.cfg.clock.Now()

	if err == nil {
		r.Status = StatusSettled
		r.ClosedAt = now
		r.SettlementStalled = false
		r.SettlementError = ""
		c.pendingJob = nil
		c.emit(now, EventAuctionClosed, func(ev *Event) {
			ev.WinnerID = job.PartyID
			ev.Price = job.Amount
		})
		slog.Info("Auction settled",
			slog.String("type", "sys"),
			slog.String("auction_id", r.ID),
			slog.String("winner_id", job.PartyID),
			slog.Int64("final_price", job.Amount))
		return
	}

	c.pendingJob = &job
	r.SettlementStalled = true
	r.SettlementError = err.Error()
	logger.LogAlert("Auction settlement stalled, manual reconciliation required", err,
		slog.String("auction_id", r.ID),
		slog.String("winner_id", job.PartyID),
		slog.Int64("final_price", job.Amount),
		slog.Int("attempts", job.Attempts))
	c.emit(now, EventSettlementStalled, func(ev *Event) {
		ev.WinnerID = job.PartyID
		ev.Reason = err.Error()
	})
}

func (c *Controller) retrySettlement() error {
	r := &c.st
	if r.Status != StatusClosing || !r.SettlementStalled {
		return ErrNotStalled
	}

	var job SettlementJob
	if c.pendingJob != nil {
		job = *c.pendingJob
	} else {
		top, ok := r.highestBid()
		if !ok {
			return ErrNotStalled
		}
		job = SettlementJob{
			ID:        uuid.New(),
			Kind:      SettleWinner,
			AuctionID: r.ID,
			ItemID:    r.Item.ID,
			SellerID:  r.Seller.ID,
			PartyID:   top.BidderID,
			Amount:    top.Amount,
		}
	}
	job.Attempts = 0

	r.SettlementStalled = false
	r.SettlementError = ""
	c.settleDispatched = true
	c.pendingJob = &job
	c.refresh()
	c.cfg.settler.Dispatch(job, c.onSettled)
	return nil
}

func (c *Controller) cancel(requestorID string) error {
	now := c.cfg.clock.Now()
	c.advance(now)
	defer c.reschedule(now)

	r := &c.st
	if requestorID != r.Seller.ID && !c.cfg.isAdmin(requestorID) {
		return ErrNotAuthorized
	}
	if r.Status == StatusCancelled {
		return nil
	}
	if !r.Status.Live() {
		return ErrNotCancellable
	}
	if len(r.Ledger) > 0 {
		return ErrCannotCancelWithBids
	}

	r.Status = StatusCancelled
	r.ClosedAt = now
	c.cfg.settler.Dispatch(SettlementJob{
		Kind:      ReleaseItem,
		AuctionID: r.ID,
		ItemID:    r.Item.ID,
		SellerID:  r.Seller.ID,
	}, logOutcome)
	c.emit(now, EventAuctionClosed, func(ev *Event) {
		ev.Reason = "cancelled by " + requestorID
	})
	return nil
}

func (c *Controller) releaseHold(bid Bid) {
	if c.cfg.funds == nil {
		return
	}
	c.cfg.settler.Dispatch(SettlementJob{
		Kind:      ReleaseFunds,
		AuctionID: c.st.ID,
		PartyID:   bid.BidderID,
		Amount:    bid.Amount,
	}, logOutcome)
}

// emit bumps the sequence, commits the snapshot, then publishes.
func (c *Controller) emit(now time.Time, typ EventType, decorate func(*Event)) {
	r := &c.st
	r.Seq++
	ev := Event{
		ID:        uuid.NewString(),
		AuctionID: r.ID,
		Seq:       r.Seq,
		Type:      typ,
		At:        now,
		Status:    r.Status,
		Price:     r.CurrentPrice,
		EndTime:   r.EndTime,
	}
	if decorate != nil {
		decorate(&ev)
	}
	rec := r.clone()
	ev.Record = &rec
	c.refresh()

	c.history = append(c.history, ev)
	if over := len(c.history) - c.cfg.historySize; over > 0 {
		c.history = slices.Delete(c.history, 0, over)
	}
	c.cfg.bus.Publish(ev)
}

func (c *Controller) refresh() {
	s := c.st.snapshot()
	c.snap.Store(&s)
}

// reschedule keeps exactly one timer armed for the next instant at which
// time alone changes the auction.
func (c *Controller) reschedule(now time.Time) {
	r := &c.st

	var due time.Time
	switch r.Status {
	case StatusPending:
		due = r.StartTime
	case StatusActive:
		due = r.EndTime
		if r.Protocol == ProtocolDutch && r.DecrementInterval > 0 && r.CurrentPrice > r.FloorPrice {
			if next := r.LastDecrementAt.Add(r.DecrementInterval); next.Before(due) {
				due = next
			}
		}
	}

	if due.IsZero() {
		c.stopTimer()
		return
	}
	if c.timer != nil && c.timerAt.Equal(due) {
		return
	}

	c.stopTimer()
	c.timerGen++
	gen := c.timerGen
	c.timerAt = due
	c.timer = c.cfg.clock.AfterFunc(due.Sub(now), func() {
		c.onTimer(gen)
	})
}

func (c *Controller) onTimer(gen uint64) {
	err := c.command(context.Background(), func() {
		if gen == c.timerGen {
			c.timer = nil
			c.timerAt = time.Time{}
		}
		now := c.cfg.clock.Now()
		c.advance(now)
		c.reschedule(now)
	})
	if errors.Is(err, ErrEngineClosed) {
		slog.Debug("Timer fired after shutdown", slog.String("auction_id", c.ID()))
	} else if err != nil {
		logger.LogError("Timer tick not applied", err, slog.String("auction_id", c.ID()))
	}
}

func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
		c.timerAt = time.Time{}
	}
}
