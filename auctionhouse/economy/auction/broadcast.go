package auction

import (
	"sync"
	"time"
)

type EventType string

const (
	EventAuctionCreated    EventType = "auction_created"
	EventAuctionStarted    EventType = "auction_started"
	EventBidAccepted       EventType = "bid_accepted"
	EventPriceDecayed      EventType = "price_decayed"
	EventAuctionClosing    EventType = "auction_closing"
	EventAuctionClosed     EventType = "auction_closed"
	EventSettlementStalled EventType = "settlement_stalled"
)

// Event is an immutable state-change notification. Seq increases by one per
// event within an auction, so consumers can drop duplicates.
type Event struct {
	ID        string    `json:"id"`
	AuctionID string    `json:"auction_id"`
	Seq       uint64    `json:"seq"`
	Type      EventType `json:"type"`
	At        time.Time `json:"at"`
	Status    Status    `json:"status"`
	Price     int64     `json:"price"`
	EndTime   time.Time `json:"end_time"`
	BidderID  string    `json:"bidder_id,omitempty"`
	Amount    int64     `json:"amount,omitempty"`
	WinnerID  string    `json:"winner_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`

	// Record is the full state right after the change, reserve price
	// included. It is shared between subscribers and must not be modified.
	Record *Record `json:"-"`
}

// Broadcaster fans events out to per-auction and global subscribers.
// Publish never blocks on a subscriber: every subscription buffers its own
// backlog and drains it from a dedicated goroutine.
type Broadcaster struct {
	mu        sync.RWMutex
	byAuction map[string]map[*Subscription]struct{}
	global    map[*Subscription]struct{}
	closed    bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		byAuction: make(map[string]map[*Subscription]struct{}),
		global:    make(map[*Subscription]struct{}),
	}
}

// Subscribe delivers the events of one auction.
func (b *Broadcaster) Subscribe(auctionID string) *Subscription {
	return b.subscribe(auctionID)
}

// SubscribeAll delivers the events of every auction.
func (b *Broadcaster) SubscribeAll() *Subscription {
	return b.subscribe("")
}

func (b *Broadcaster) subscribe(auctionID string) *Subscription {
	s := newSubscription(b, auctionID)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		s.finish()
		return s
	}
	if auctionID == "" {
		b.global[s] = struct{}{}
	} else {
		subs, ok := b.byAuction[auctionID]
		if !ok {
			subs = make(map[*Subscription]struct{})
			b.byAuction[auctionID] = subs
		}
		subs[s] = struct{}{}
	}
	return s
}

func (b *Broadcaster) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for s := range b.byAuction[ev.AuctionID] {
		s.push(ev)
	}
	for s := range b.global {
		s.push(ev)
	}
}

// Subscribers returns the number of subscriptions attached to an auction.
func (b *Broadcaster) Subscribers(auctionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byAuction[auctionID])
}

func (b *Broadcaster) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s.auctionID == "" {
		delete(b.global, s)
		return
	}
	if subs, ok := b.byAuction[s.auctionID]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(b.byAuction, s.auctionID)
		}
	}
}

// Close ends every subscription.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	var all []*Subscription
	for s := range b.global {
		all = append(all, s)
	}
	for _, subs := range b.byAuction {
		for s := range subs {
			all = append(all, s)
		}
	}
	b.global = make(map[*Subscription]struct{})
	b.byAuction = make(map[string]map[*Subscription]struct{})
	b.mu.Unlock()

	for _, s := range all {
		s.finish()
	}
}

type Subscription struct {
	b         *Broadcaster
	auctionID string
	ch        chan Event

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Event
	closed bool
	done   chan struct{}
	once   sync.Once
}

func newSubscription(b *Broadcaster, auctionID string) *Subscription {
	s := &Subscription{
		b:         b,
		auctionID: auctionID,
		ch:        make(chan Event),
		done:      make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.pump()
	return s
}

// C yields events in publish order. After the broadcaster closes it still
// delivers the backlog, then closes. After Close the backlog is dropped.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

func (s *Subscription) AuctionID() string {
	return s.auctionID
}

func (s *Subscription) Close() {
	s.b.remove(s)
	s.discard()
}

// finish stops new events and lets the pump flush what is queued.
func (s *Subscription) finish() {
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

func (s *Subscription) discard() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.queue = nil
		s.cond.Broadcast()
		s.mu.Unlock()
		close(s.done)
	})
}

func (s *Subscription) push(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, ev)
	s.cond.Signal()
}

func (s *Subscription) pump() {
	defer close(s.ch)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		ev := s.queue[0]
		s.queue[0] = Event{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.ch <- ev:
		case <-s.done:
			return
		}
	}
}
