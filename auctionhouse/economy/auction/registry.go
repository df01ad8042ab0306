package auction

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ellavondegurechaff/auction-house/auctionhouse/config"
	"github.com/ellavondegurechaff/auction-house/auctionhouse/logger"
	lru "github.com/hashicorp/golang-lru"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sahilm/fuzzy"
)

type Config struct {
	AntiSnipeWindow    time.Duration
	AntiSnipeExtension time.Duration
	MaxExtensions      int
	Retention          time.Duration
	SweepInterval      time.Duration
	DefaultIncrement   IncrementRule
	MinDuration        time.Duration
	MaxDuration        time.Duration
	HistorySize        int
	RecentCacheSize    int
	AdminIDs           []string
	Settlement         SettlerConfig
}

func DefaultConfig() Config {
	return Config{
		AntiSnipeWindow:    config.AntiSnipeTime,
		AntiSnipeExtension: config.AntiSnipeExtension,
		MaxExtensions:      config.MaxExtensions,
		Retention:          config.RetentionPeriod,
		SweepInterval:      config.CleanupInterval,
		DefaultIncrement:   FlatIncrement(config.MinBidIncrement),
		MinDuration:        config.MinAuctionTime,
		MaxDuration:        config.MaxAuctionTime,
		HistorySize:        config.EventHistorySize,
		RecentCacheSize:    config.RecentCacheSize,
		Settlement: SettlerConfig{
			MaxAttempts: config.MaxRetries,
			BaseBackoff: config.SettlementBaseBackoff,
			MaxBackoff:  config.SettlementMaxBackoff,
			CallTimeout: config.SettlementCallTimeout,
			Workers:     config.SettlementWorkers,
		},
	}
}

// CreateRequest describes a new auction. A zero StartTime starts it
// immediately; a zero Increment uses the configured default.
type CreateRequest struct {
	Item              Item
	Seller            Party
	Protocol          Protocol
	StartingPrice     int64
	ReservePrice      int64
	Increment         IncrementRule
	DecrementAmount   int64
	DecrementInterval time.Duration
	FloorPrice        int64
	StartTime         time.Time
	Duration          time.Duration
}

// RecordStore lists persisted auctions that had not finished when the
// process stopped.
type RecordStore interface {
	ListLive(ctx context.Context) ([]Record, error)
}

type Option func(*Registry)

func WithClock(clock Clock) Option {
	return func(r *Registry) {
		r.clock = clock
	}
}

// Registry maps auction ids to their controllers and serves listings from
// published snapshots.
type Registry struct {
	cfg       Config
	clock     Clock
	bus       *Broadcaster
	inventory Inventory
	funds     Funds
	settler   *Settler
	admins    map[string]struct{}

	live    *xsync.MapOf[string, *Controller]
	recent  *lru.Cache
	usedIDs sync.Map

	mu          sync.RWMutex
	closed      bool
	janitorStop chan struct{}
	janitorDone chan struct{}
}

func NewRegistry(cfg Config, inventory Inventory, funds Funds, opts ...Option) (*Registry, error) {
	if cfg.MinDuration <= 0 {
		cfg.MinDuration = config.MinAuctionTime
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = config.MaxAuctionTime
	}
	if cfg.RecentCacheSize <= 0 {
		cfg.RecentCacheSize = config.RecentCacheSize
	}
	if cfg.DefaultIncrement.IsZero() {
		cfg.DefaultIncrement = FlatIncrement(config.MinBidIncrement)
	}

	recent, err := lru.New(cfg.RecentCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create recent auction cache: %w", err)
	}

	r := &Registry{
		cfg:       cfg,
		clock:     SystemClock{},
		inventory: inventory,
		funds:     funds,
		admins:    make(map[string]struct{}, len(cfg.AdminIDs)),
		live:      xsync.NewMapOf[string, *Controller](),
		recent:    recent,
		bus:       NewBroadcaster(),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, id := range cfg.AdminIDs {
		r.admins[id] = struct{}{}
	}
	r.settler = NewSettler(inventory, funds, cfg.Settlement)

	if cfg.SweepInterval > 0 {
		r.janitorStop = make(chan struct{})
		r.janitorDone = make(chan struct{})
		go r.janitor(cfg.SweepInterval)
	}
	return r, nil
}

func (r *Registry) Broadcaster() *Broadcaster {
	return r.bus
}

func (r *Registry) IsAdmin(userID string) bool {
	_, ok := r.admins[userID]
	return ok
}

// Create validates req, locks the item with the inventory collaborator and
// starts the auction's controller.
func (r *Registry) Create(ctx context.Context, req CreateRequest) (Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return Snapshot{}, ErrEngineClosed
	}

	now := r.clock.Now()
	rec, err := r.buildRecord(req, now)
	if err != nil {
		return Snapshot{}, err
	}

	id, err := r.generateAuctionID()
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to generate auction ID: %w", err)
	}
	rec.ID = id

	if r.inventory != nil {
		if err := r.inventory.LockItemForAuction(ctx, rec.Item.ID, rec.Seller.ID); err != nil {
			r.usedIDs.Delete(id)
			return Snapshot{}, fmt.Errorf("failed to lock item for auction: %w", err)
		}
	}

	c := r.spawn(rec)
	if err := c.exec(context.Background(), func() {
		c.emit(now, EventAuctionCreated, nil)
		c.advance(now)
		c.reschedule(now)
	}); err != nil {
		return Snapshot{}, err
	}

	slog.Info("Auction created",
		slog.String("type", "sys"),
		slog.String("auction_id", id),
		slog.String("seller_id", rec.Seller.ID),
		slog.String("item_id", rec.Item.ID),
		slog.String("protocol", string(rec.Protocol)),
		slog.Int64("starting_price", rec.StartingPrice),
		slog.Time("end_time", rec.EndTime))

	return c.Snapshot(), nil
}

func (r *Registry) buildRecord(req CreateRequest, now time.Time) (Record, error) {
	if !req.Protocol.Valid() {
		return Record{}, fieldErr("protocol", "must be one of standard, reserve or dutch")
	}
	if strings.TrimSpace(req.Item.ID) == "" {
		return Record{}, fieldErr("item_id", "is required")
	}
	if strings.TrimSpace(req.Seller.ID) == "" {
		return Record{}, fieldErr("seller_id", "is required")
	}
	if req.StartingPrice <= 0 {
		return Record{}, fieldErr("starting_price", "must be positive")
	}
	if req.Duration < r.cfg.MinDuration || req.Duration > r.cfg.MaxDuration {
		return Record{}, fieldErr("duration", "must be between %v and %v", r.cfg.MinDuration, r.cfg.MaxDuration)
	}

	start := req.StartTime
	if start.IsZero() || start.Before(now) {
		start = now
	}

	rec := Record{
		Item:          req.Item,
		Seller:        req.Seller,
		Protocol:      req.Protocol,
		Increment:     req.Increment,
		StartingPrice: req.StartingPrice,
		CurrentPrice:  req.StartingPrice,
		StartTime:     start,
		EndTime:       start.Add(req.Duration),
		Status:        StatusPending,
		CreatedAt:     now,
	}
	if rec.Increment.IsZero() {
		rec.Increment = r.cfg.DefaultIncrement
	}
	if rec.Increment.Flat < 0 || rec.Increment.Percent.IsNegative() {
		return Record{}, fieldErr("increment", "must not be negative")
	}

	switch req.Protocol {
	case ProtocolReserve:
		if req.ReservePrice <= req.StartingPrice {
			return Record{}, fieldErr("reserve_price", "must be greater than the starting price")
		}
		rec.ReservePrice = req.ReservePrice

	case ProtocolDutch:
		if req.DecrementAmount <= 0 || req.DecrementAmount >= req.StartingPrice {
			return Record{}, fieldErr("decrement_amount", "must be positive and below the starting price")
		}
		if req.DecrementInterval <= 0 {
			return Record{}, fieldErr("decrement_interval", "must be positive")
		}
		floor := req.FloorPrice
		if floor == 0 {
			floor = config.DutchFloorPrice
		}
		if floor < 0 || floor >= req.StartingPrice {
			return Record{}, fieldErr("floor_price", "must be below the starting price")
		}
		rec.DecrementAmount = req.DecrementAmount
		rec.DecrementInterval = req.DecrementInterval
		rec.FloorPrice = floor
		rec.LastDecrementAt = start
	}
	return rec, nil
}

func (r *Registry) spawn(rec Record) *Controller {
	c := newController(rec, controllerConfig{
		clock:          r.clock,
		bus:            r.bus,
		settler:        r.settler,
		funds:          r.funds,
		snipeWindow:    r.cfg.AntiSnipeWindow,
		snipeExtension: r.cfg.AntiSnipeExtension,
		maxExtensions:  r.cfg.MaxExtensions,
		historySize:    r.cfg.HistorySize,
		isAdmin:        r.IsAdmin,
	})
	r.live.Store(rec.ID, c)
	go c.loop()
	return c
}

// generateAuctionID returns a short uppercase code that is unique for the
// lifetime of the registry.
func (r *Registry) generateAuctionID() (string, error) {
	for i := 0; i < config.MaxRetries; i++ {
		bytes := make([]byte, 5)
		if _, err := rand.Read(bytes); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}

		encoded := base32.StdEncoding.EncodeToString(bytes)
		id := strings.ToUpper(encoded[:config.AuctionIDLength])

		if _, exists := r.usedIDs.LoadOrStore(id, true); !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique auction ID after %d attempts", config.MaxRetries)
}

func normalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func (r *Registry) controller(id string) (*Controller, bool) {
	return r.live.Load(normalizeID(id))
}

func (r *Registry) evicted(id string) (Snapshot, bool) {
	v, ok := r.recent.Get(normalizeID(id))
	if !ok {
		return Snapshot{}, false
	}
	return v.(Snapshot), true
}

// Get returns the latest snapshot of a live or recently evicted auction.
func (r *Registry) Get(id string) (Snapshot, error) {
	if c, ok := r.controller(id); ok {
		return c.Snapshot(), nil
	}
	if snap, ok := r.evicted(id); ok {
		snap.Ledger = append([]Bid{}, snap.Ledger...)
		return snap, nil
	}
	return Snapshot{}, ErrAuctionNotFound
}

func (r *Registry) snapshots(keep func(Snapshot) bool) []Snapshot {
	out := make([]Snapshot, 0, r.live.Size())
	r.live.Range(func(_ string, c *Controller) bool {
		if snap := c.Snapshot(); keep(snap) {
			out = append(out, snap)
		}
		return true
	})
	return out
}

func sortByEndTime(list []Snapshot) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].EndTime.Equal(list[j].EndTime) {
			return list[i].EndTime.Before(list[j].EndTime)
		}
		return list[i].ID < list[j].ID
	})
}

// ListByCategory returns pending and active auctions of a category, soonest
// ending first. An empty category matches every auction.
func (r *Registry) ListByCategory(category string) []Snapshot {
	category = strings.TrimSpace(category)
	list := r.snapshots(func(s Snapshot) bool {
		if !s.Status.Live() {
			return false
		}
		return category == "" || strings.EqualFold(s.Item.Category, category)
	})
	sortByEndTime(list)
	return list
}

// ListEndingSoon returns active auctions whose end falls within the window.
func (r *Registry) ListEndingSoon(within time.Duration) []Snapshot {
	now := r.clock.Now()
	deadline := now.Add(within)
	list := r.snapshots(func(s Snapshot) bool {
		return s.Status == StatusActive && s.EndTime.After(now) && !s.EndTime.After(deadline)
	})
	sortByEndTime(list)
	return list
}

func (r *Registry) ListActive() []Snapshot {
	list := r.snapshots(func(s Snapshot) bool {
		return s.Status == StatusActive
	})
	sortByEndTime(list)
	return list
}

type snapshotSource []Snapshot

func (s snapshotSource) String(i int) string {
	return strings.ToLower(strings.Join([]string{
		s[i].ID, s[i].Item.Name, s[i].Item.Category, s[i].Item.Grade, s[i].Seller.Name,
	}, " "))
}

func (s snapshotSource) Len() int {
	return len(s)
}

// Search fuzzy-matches live auctions by id, item, category, grade or seller
// name, best match first.
func (r *Registry) Search(query string, limit int) []Snapshot {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	source := snapshotSource(r.snapshots(func(s Snapshot) bool {
		return s.Status.Live()
	}))
	matches := fuzzy.FindFrom(query, source)

	out := make([]Snapshot, 0, len(matches))
	for _, m := range matches {
		out = append(out, source[m.Index])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (r *Registry) SubmitBid(ctx context.Context, auctionID string, req BidRequest) (BidResult, error) {
	c, ok := r.controller(auctionID)
	if !ok {
		if snap, ok := r.evicted(auctionID); ok {
			return rejectFrom(&snap, RejectNotActive), nil
		}
		return BidResult{}, ErrAuctionNotFound
	}

	res, err := c.SubmitBid(ctx, req)
	if err != nil {
		return BidResult{}, err
	}
	if res.Accepted {
		slog.Info("Bid accepted",
			slog.String("type", "sys"),
			slog.String("auction_id", c.ID()),
			slog.String("bidder_id", req.BidderID),
			slog.Int64("amount", req.Amount))
	} else {
		slog.Debug("Bid rejected",
			slog.String("auction_id", c.ID()),
			slog.String("bidder_id", req.BidderID),
			slog.Int64("amount", req.Amount),
			slog.String("reason", string(res.Rejection)))
	}
	return res, nil
}

func (r *Registry) Cancel(ctx context.Context, auctionID, requestorID string) error {
	c, ok := r.controller(auctionID)
	if !ok {
		if _, ok := r.evicted(auctionID); ok {
			return ErrNotCancellable
		}
		return ErrAuctionNotFound
	}
	if err := c.Cancel(ctx, requestorID); err != nil {
		return err
	}

	slog.Info("Auction cancelled",
		slog.String("type", "sys"),
		slog.String("auction_id", c.ID()),
		slog.String("requestor_id", requestorID))
	return nil
}

func (r *Registry) RetrySettlement(ctx context.Context, auctionID string) error {
	c, ok := r.controller(auctionID)
	if !ok {
		if _, ok := r.evicted(auctionID); ok {
			return ErrNotStalled
		}
		return ErrAuctionNotFound
	}
	return c.RetrySettlement(ctx)
}

func (r *Registry) EventsSince(ctx context.Context, auctionID string, seq uint64) ([]Event, error) {
	c, ok := r.controller(auctionID)
	if !ok {
		return nil, ErrAuctionNotFound
	}
	return c.EventsSince(ctx, seq)
}

// Evict drops a finished auction from the live map once its retention
// window has passed. Its last snapshot stays readable through Get.
func (r *Registry) Evict(auctionID string) error {
	c, ok := r.controller(auctionID)
	if !ok {
		return ErrAuctionNotFound
	}
	snap := c.Snapshot()
	if !snap.Status.Terminal() {
		return ErrNotTerminal
	}
	if r.clock.Now().Sub(snap.ClosedAt) < r.cfg.Retention {
		return ErrRetentionNotElapsed
	}
	r.evict(c)
	return nil
}

func (r *Registry) evict(c *Controller) {
	id := c.ID()
	if _, loaded := r.live.LoadAndDelete(id); !loaded {
		return
	}
	c.stop()
	r.recent.Add(id, c.Snapshot())

	slog.Debug("Auction evicted", slog.String("auction_id", id))
}

// Sweep ticks every live auction and evicts the finished ones whose
// retention has elapsed. It returns the number evicted.
func (r *Registry) Sweep(ctx context.Context, now time.Time) int {
	var all []*Controller
	r.live.Range(func(_ string, c *Controller) bool {
		all = append(all, c)
		return true
	})

	evicted := 0
	for _, c := range all {
		if err := c.Tick(ctx, now); err != nil {
			continue
		}
		snap := c.Snapshot()
		if snap.Status.Terminal() && now.Sub(snap.ClosedAt) >= r.cfg.Retention {
			r.evict(c)
			evicted++
		}
	}
	return evicted
}

func (r *Registry) janitor(interval time.Duration) {
	defer close(r.janitorDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			if n := r.Sweep(ctx, r.clock.Now()); n > 0 {
				slog.Info("Evicted finished auctions",
					slog.String("type", "sys"),
					slog.Int("count", n))
			}
			cancel()
		case <-r.janitorStop:
			return
		}
	}
}

// Recover restarts the controllers of auctions persisted before a restart.
// Auctions caught mid-settlement are flagged stalled so an operator can
// reconcile them before retrying.
func (r *Registry) Recover(ctx context.Context, store RecordStore) (int, error) {
	records, err := store.ListLive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list live auctions: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return 0, ErrEngineClosed
	}

	now := r.clock.Now()
	recovered := 0
	for _, rec := range records {
		rec.ID = normalizeID(rec.ID)
		if rec.Status.Terminal() {
			continue
		}
		if _, exists := r.usedIDs.LoadOrStore(rec.ID, true); exists {
			continue
		}
		if rec.Status == StatusClosing {
			rec.SettlementStalled = true
			rec.SettlementError = errSettlementInterrupted.Error()
			logger.LogAlert("Recovered auction awaiting settlement", errSettlementInterrupted,
				slog.String("auction_id", rec.ID))
		}

		c := r.spawn(rec)
		if err := c.exec(ctx, func() {
			c.advance(now)
			c.reschedule(now)
		}); err != nil {
			logger.LogError("Recovered auction not advanced", err, slog.String("auction_id", rec.ID))
			continue
		}
		recovered++
	}

	slog.Info("Recovered auctions",
		slog.String("type", "sys"),
		slog.Int("count", recovered))
	return recovered, nil
}

// Shutdown stops the janitor and refuses new commands, then waits for
// in-flight settlements so their outcomes still reach the controllers, then
// stops the controllers and closes the broadcaster. Subscribers receive
// every event published before that. In-flight settlement calls get until
// ctx is done.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if r.janitorStop != nil {
			close(r.janitorStop)
			<-r.janitorDone
		}
		var all []*Controller
		r.live.Range(func(_ string, c *Controller) bool {
			all = append(all, c)
			return true
		})
		for _, c := range all {
			if err := c.drain(context.Background()); err != nil {
				logger.LogError("Failed to drain auction", err, slog.String("auction_id", c.ID()))
			}
		}
		r.settler.Close()
		for _, c := range all {
			c.stop()
		}
		r.bus.Close()
	}()

	select {
	case <-done:
		slog.Info("Auction registry stopped", slog.String("type", "sys"))
		return nil
	case <-ctx.Done():
		r.settler.Abort()
		return ctx.Err()
	}
}
