package models

import (
	"time"

	"github.com/uptrace/bun"
)

// SettlementReceipt marks one applied settlement transfer. Ref is the
// auction id, Kind is "funds" or "item".
type SettlementReceipt struct {
	bun.BaseModel `bun:"table:settlement_receipts,alias:sr"`

	Ref       string    `bun:"ref,pk"`
	Kind      string    `bun:"kind,pk"`
	PartyID   string    `bun:"party_id,notnull"`
	Amount    int64     `bun:"amount,notnull,default:0"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
