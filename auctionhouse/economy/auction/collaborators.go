package auction

//go:generate go run go.uber.org/mock/mockgen -destination=mock/collaborators.go -package=mock . Inventory,Funds

import "context"

// Inventory owns item custody outside the engine.
type Inventory interface {
	// LockItemForAuction takes the item out of the seller's tradable stock.
	LockItemForAuction(ctx context.Context, itemID, sellerID string) error
	// TransferItem hands a locked item from the seller to the winner. A
	// repeated call with the same ref is a no-op.
	TransferItem(ctx context.Context, ref, itemID, fromID, toID string) error
	// ReleaseItem returns a locked item to the seller.
	ReleaseItem(ctx context.Context, itemID, sellerID string) error
}

// Funds owns player balances. Reservations are held per accepted bid and
// either released when outbid or consumed by TransferFunds at settlement.
// TransferFunds with an already applied ref is a no-op, so a settlement
// retried after a lost response never pays twice.
type Funds interface {
	ReserveFunds(ctx context.Context, bidderID string, amount int64) error
	ReleaseFunds(ctx context.Context, bidderID string, amount int64) error
	TransferFunds(ctx context.Context, ref, payerID, payeeID string, amount int64) error
}
