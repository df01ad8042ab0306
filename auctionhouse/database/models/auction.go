package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Auction is the journaled copy of one auction. Rows are written by the
// journal and only ever move forward in Seq.
type Auction struct {
	bun.BaseModel `bun:"table:auctions,alias:a"`

	AuctionID         string          `bun:"auction_id,pk"`
	ItemID            string          `bun:"item_id,notnull"`
	ItemName          string          `bun:"item_name,notnull,default:''"`
	ItemCategory      string          `bun:"item_category,notnull,default:''"`
	ItemGrade         string          `bun:"item_grade,notnull,default:''"`
	ItemBaseValue     int64           `bun:"item_base_value,notnull,default:0"`
	SellerID          string          `bun:"seller_id,notnull"`
	SellerName        string          `bun:"seller_name,notnull,default:''"`
	Protocol          string          `bun:"protocol,notnull"`
	IncrementPercent  decimal.Decimal `bun:"increment_percent,type:numeric,notnull,default:0"`
	IncrementFlat     int64           `bun:"increment_flat,notnull,default:0"`
	StartingPrice     int64           `bun:"starting_price,notnull"`
	CurrentPrice      int64           `bun:"current_price,notnull"`
	ReservePrice      int64           `bun:"reserve_price,notnull,default:0"`
	DecrementAmount   int64           `bun:"decrement_amount,notnull,default:0"`
	DecrementInterval time.Duration   `bun:"decrement_interval,type:bigint,notnull,default:0"`
	FloorPrice        int64           `bun:"floor_price,notnull,default:0"`
	StartTime         time.Time       `bun:"start_time,notnull"`
	EndTime           time.Time       `bun:"end_time,notnull"`
	LastDecrementAt   time.Time       `bun:"last_decrement_at,nullzero"`
	Extensions        int             `bun:"extensions,notnull,default:0"`
	Status            string          `bun:"status,notnull"`
	Seq               int64           `bun:"seq,notnull"`
	BidCount          int             `bun:"bid_count,notnull,default:0"`
	TopBidderID       string          `bun:"top_bidder_id,nullzero"`
	SettlementStalled bool            `bun:"settlement_stalled,notnull,default:false"`
	SettlementError   string          `bun:"settlement_error,nullzero"`
	ClosedAt          time.Time       `bun:"closed_at,nullzero"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

type AuctionBid struct {
	bun.BaseModel `bun:"table:auction_bids,alias:ab"`

	ID         int64     `bun:"id,pk,autoincrement"`
	AuctionID  string    `bun:"auction_id,notnull,unique:auction_bid_seq"`
	Seq        int       `bun:"seq,notnull,unique:auction_bid_seq"`
	BidderID   string    `bun:"bidder_id,notnull"`
	BidderName string    `bun:"bidder_name,notnull,default:''"`
	Amount     int64     `bun:"amount,notnull"`
	Timestamp  time.Time `bun:"timestamp,notnull"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
