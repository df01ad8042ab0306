package auction

import (
	"slices"
	"time"
)

// Item is the tradable thing being auctioned. Only BaseValue takes part in
// pricing defaults; the rest is carried for listings.
type Item struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Grade     string `json:"grade"`
	BaseValue int64  `json:"base_value"`
}

type Party struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Bid is one accepted ledger entry. Seq is its 1-based ledger position.
type Bid struct {
	Seq        int       `json:"seq"`
	BidderID   string    `json:"bidder_id"`
	BidderName string    `json:"bidder_name,omitempty"`
	Amount     int64     `json:"amount"`
	At         time.Time `json:"at"`
}

// Record is the complete state of one auction, reserve price included.
// The controller owns the live Record; everything handed out is a copy.
type Record struct {
	ID                string
	Item              Item
	Seller            Party
	Protocol          Protocol
	Increment         IncrementRule
	StartingPrice     int64
	CurrentPrice      int64
	ReservePrice      int64
	DecrementAmount   int64
	DecrementInterval time.Duration
	FloorPrice        int64
	StartTime         time.Time
	EndTime           time.Time
	LastDecrementAt   time.Time
	Extensions        int
	Status            Status
	Ledger            []Bid
	Seq               uint64
	CreatedAt         time.Time
	ClosedAt          time.Time
	SettlementStalled bool
	SettlementError   string
}

func (r *Record) highestBid() (Bid, bool) {
	if len(r.Ledger) == 0 {
		return Bid{}, false
	}
	return r.Ledger[len(r.Ledger)-1], true
}

func (r *Record) quote() Quote {
	q := Quote{
		Protocol:     r.Protocol,
		Status:       r.Status,
		CurrentPrice: r.CurrentPrice,
		Increment:    r.Increment,
		SellerID:     r.Seller.ID,
	}
	if top, ok := r.highestBid(); ok {
		q.HighestBidderID = top.BidderID
	}
	return q
}

// reserveMet reports whether a closing auction may sell.
func (r *Record) reserveMet() bool {
	if r.Protocol != ProtocolReserve {
		return true
	}
	return r.CurrentPrice >= r.ReservePrice
}

func (r *Record) clone() Record {
	out := *r
	out.Ledger = slices.Clone(r.Ledger)
	return out
}

// Snapshot is the read-side view of an auction. The reserve price stays
// hidden until the auction reaches a terminal status.
type Snapshot struct {
	ID                string        `json:"id"`
	Item              Item          `json:"item"`
	Seller            Party         `json:"seller"`
	Protocol          Protocol      `json:"protocol"`
	Status            Status        `json:"status"`
	StartingPrice     int64         `json:"starting_price"`
	CurrentPrice      int64         `json:"current_price"`
	NextMinimumBid    int64         `json:"next_minimum_bid"`
	HasReserve        bool          `json:"has_reserve"`
	ReservePrice      int64         `json:"reserve_price,omitempty"`
	Increment         IncrementRule `json:"increment"`
	DecrementAmount   int64         `json:"decrement_amount,omitempty"`
	DecrementInterval time.Duration `json:"decrement_interval,omitempty"`
	FloorPrice        int64         `json:"floor_price,omitempty"`
	StartTime         time.Time     `json:"start_time"`
	EndTime           time.Time     `json:"end_time"`
	LastDecrementAt   time.Time     `json:"last_decrement_at,omitempty"`
	Extensions        int           `json:"extensions"`
	BidCount          int           `json:"bid_count"`
	HighestBidderID   string        `json:"highest_bidder_id,omitempty"`
	HighestBidderName string        `json:"highest_bidder_name,omitempty"`
	WinnerID          string        `json:"winner_id,omitempty"`
	FinalPrice        int64         `json:"final_price,omitempty"`
	Ledger            []Bid         `json:"ledger"`
	Seq               uint64        `json:"seq"`
	ClosedAt          time.Time     `json:"closed_at,omitempty"`
	SettlementStalled bool          `json:"settlement_stalled,omitempty"`
	SettlementError   string        `json:"settlement_error,omitempty"`
}

func (r *Record) snapshot() Snapshot {
	s := Snapshot{
		ID:                r.ID,
		Item:              r.Item,
		Seller:            r.Seller,
		Protocol:          r.Protocol,
		Status:            r.Status,
		StartingPrice:     r.StartingPrice,
		CurrentPrice:      r.CurrentPrice,
		NextMinimumBid:    NextMinimumBid(r.Protocol, r.CurrentPrice, r.Increment),
		HasReserve:        r.Protocol == ProtocolReserve,
		Increment:         r.Increment,
		DecrementAmount:   r.DecrementAmount,
		DecrementInterval: r.DecrementInterval,
		FloorPrice:        r.FloorPrice,
		StartTime:         r.StartTime,
		EndTime:           r.EndTime,
		LastDecrementAt:   r.LastDecrementAt,
		Extensions:        r.Extensions,
		BidCount:          len(r.Ledger),
		Ledger:            slices.Clone(r.Ledger),
		Seq:               r.Seq,
		ClosedAt:          r.ClosedAt,
		SettlementStalled: r.SettlementStalled,
		SettlementError:   r.SettlementError,
	}
	if s.Ledger == nil {
		s.Ledger = []Bid{}
	}
	if r.Status.Terminal() {
		s.ReservePrice = r.ReservePrice
	}
	if top, ok := r.highestBid(); ok {
		s.HighestBidderID = top.BidderID
		s.HighestBidderName = top.BidderName
		if r.Status == StatusSettled {
			s.WinnerID = top.BidderID
			s.FinalPrice = top.Amount
		}
	}
	return s
}

// Quote returns the pricing view used by the bid validator.
func (s Snapshot) Quote() Quote {
	q := Quote{
		Protocol:        s.Protocol,
		Status:          s.Status,
		CurrentPrice:    s.CurrentPrice,
		Increment:       s.Increment,
		SellerID:        s.Seller.ID,
		HighestBidderID: s.HighestBidderID,
	}
	return q
}
