package config

import "time"

// Auction Constants
const (
	MinBidIncrement    = 100              // Default flat increment for ascending auctions
	MaxAuctionTime     = 24 * time.Hour   // Maximum auction duration
	MinAuctionTime     = 10 * time.Second // Minimum auction duration
	AntiSnipeTime      = 10 * time.Second // Late-bid window that triggers an extension
	AntiSnipeExtension = 10 * time.Second // Extension applied per late bid
	MaxExtensions      = 30               // Extensions allowed per auction
	AuctionIDLength    = 6                // Length of auction ID
	MaxRetries         = 5                // Maximum retries for operations
	DutchFloorPrice    = 1                // Floor used when a dutch auction names none
)

// Engine Constants
const (
	CleanupInterval   = 15 * time.Second // Janitor sweep interval
	RetentionPeriod   = 10 * time.Minute // How long finished auctions stay queryable
	EventHistorySize  = 256              // Events kept per auction for replay
	RecentCacheSize   = 1024             // Evicted auctions kept for lookups
	EndingSoonDefault = 5 * time.Minute  // Default window for ending-soon listings
)

// Settlement Constants
const (
	SettlementBaseBackoff = 1 * time.Second
	SettlementMaxBackoff  = 1 * time.Minute
	SettlementCallTimeout = 10 * time.Second
	SettlementWorkers     = 8
)

// Transaction Constants
const (
	DefaultTxTimeout = 30 * time.Second // Default transaction timeout
)
