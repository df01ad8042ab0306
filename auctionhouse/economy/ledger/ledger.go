package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/ellavondegurechaff/auction-house/auctionhouse/database/models"
	"github.com/ellavondegurechaff/auction-house/auctionhouse/economy/auction"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrItemNotOwned    = errors.New("item not owned by user")
	ErrItemUnavailable = errors.New("no unlocked copy of item")
	ErrItemNotLocked   = errors.New("item is not locked for auction")
	ErrInvalidAmount   = errors.New("amount must be positive")
)

// Ledger implements the auction Inventory and Funds collaborators on top of
// the users and user_items tables.
type Ledger struct {
	db *bun.DB
	tx *TransactionManager
}

var (
	_ auction.Inventory = (*Ledger)(nil)
	_ auction.Funds     = (*Ledger)(nil)
)

const (
	receiptFunds = "funds"
	receiptItem  = "item"
)

func New(db *bun.DB) *Ledger {
	return &Ledger{db: db, tx: NewTransactionManager(db)}
}

func (l *Ledger) LockItemForAuction(ctx context.Context, itemID, sellerID string) error {
	return l.tx.WithTransaction(ctx, SerializableTransactionOptions(), func(ctx context.Context, tx bun.Tx) error {
		ui, err := selectUserItem(ctx, tx, sellerID, itemID)
		if err != nil {
			return err
		}
		if err := checkLockable(ui); err != nil {
			return fmt.Errorf("cannot list %s for %s: %w", itemID, sellerID, err)
		}

		_, err = tx.NewUpdate().
			Model((*models.UserItem)(nil)).
			Set("locked = locked + 1").
			Set("updated_at = ?", time.Now()).
			Where("user_id = ? AND item_id = ?", sellerID, itemID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to lock item: %w", err)
		}
		return nil
	})
}

func (l *Ledger) ReleaseItem(ctx context.Context, itemID, sellerID string) error {
	res, err := l.db.NewUpdate().
		Model((*models.UserItem)(nil)).
		Set("locked = locked - 1").
		Set("updated_at = ?", time.Now()).
		Where("user_id = ? AND item_id = ? AND locked > 0", sellerID, itemID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to release item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Already released by an earlier attempt.
		slog.Warn("Item release found no lock",
			slog.String("type", "db"),
			slog.String("item_id", itemID),
			slog.String("seller_id", sellerID))
	}
	return nil
}

// TransferItem moves one locked copy from the seller to the winner. The
// receipt for ref commits with the move, so a replay changes nothing.
func (l *Ledger) TransferItem(ctx context.Context, ref, itemID, fromID, toID string) error {
	return l.tx.WithTransaction(ctx, SerializableTransactionOptions(), func(ctx context.Context, tx bun.Tx) error {
		fresh, err := claimReceipt(ctx, tx, ref, receiptItem, toID, 1)
		if err != nil || !fresh {
			return err
		}

		from, err := selectUserItem(ctx, tx, fromID, itemID)
		if err != nil {
			return err
		}
		if from.Locked < 1 {
			return fmt.Errorf("transfer %s from %s: %w", itemID, fromID, ErrItemNotLocked)
		}

		now := time.Now()
		if from.Quantity <= 1 {
			_, err = tx.NewDelete().
				Model((*models.UserItem)(nil)).
				Where("user_id = ? AND item_id = ?", fromID, itemID).
				Exec(ctx)
		} else {
			_, err = tx.NewUpdate().
				Model((*models.UserItem)(nil)).
				Set("quantity = quantity - 1").
				Set("locked = locked - 1").
				Set("updated_at = ?", now).
				Where("user_id = ? AND item_id = ?", fromID, itemID).
				Exec(ctx)
		}
		if err != nil {
			return fmt.Errorf("failed to remove item from seller: %w", err)
		}

		to := &models.UserItem{UserID: toID, ItemID: itemID, Quantity: 1, UpdatedAt: now}
		_, err = tx.NewInsert().
			Model(to).
			On("CONFLICT (user_id, item_id) DO UPDATE").
			Set("quantity = ui.quantity + 1").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to give item to winner: %w", err)
		}
		return nil
	})
}

// ReserveFunds places a hold on part of the bidder's balance. A bidder who
// cannot cover the amount gets auction.ErrInsufficientFunds.
func (l *Ledger) ReserveFunds(ctx context.Context, bidderID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return l.tx.WithTransaction(ctx, SerializableTransactionOptions(), func(ctx context.Context, tx bun.Tx) error {
		user, err := selectUser(ctx, tx, bidderID)
		if err != nil {
			return err
		}
		if err := checkAvailable(user, amount); err != nil {
			return err
		}

		_, err = tx.NewUpdate().
			Model((*models.User)(nil)).
			Set("held = held + ?", amount).
			Set("updated_at = ?", time.Now()).
			Where("id = ?", bidderID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to reserve funds: %w", err)
		}
		return nil
	})
}

func (l *Ledger) ReleaseFunds(ctx context.Context, bidderID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	_, err := l.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("held = GREATEST(held - ?, 0)", amount).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", bidderID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to release funds: %w", err)
	}
	return nil
}

// TransferFunds pays the seller out of the winner's hold, once per ref.
func (l *Ledger) TransferFunds(ctx context.Context, ref, payerID, payeeID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return l.tx.WithTransaction(ctx, SerializableTransactionOptions(), func(ctx context.Context, tx bun.Tx) error {
		fresh, err := claimReceipt(ctx, tx, ref, receiptFunds, payerID, amount)
		if err != nil || !fresh {
			return err
		}

		payer, err := selectUser(ctx, tx, payerID)
		if err != nil {
			return err
		}
		if payer.Balance < amount {
			return fmt.Errorf("payer %s: %w", payerID, auction.ErrInsufficientFunds)
		}

		now := time.Now()
		_, err = tx.NewUpdate().
			Model((*models.User)(nil)).
			Set("balance = balance - ?", amount).
			Set("held = GREATEST(held - ?, 0)", amount).
			Set("updated_at = ?", now).
			Where("id = ?", payerID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to debit payer: %w", err)
		}

		payee := &models.User{ID: payeeID, Balance: amount, CreatedAt: now, UpdatedAt: now}
		_, err = tx.NewInsert().
			Model(payee).
			On("CONFLICT (id) DO UPDATE").
			Set("balance = u.balance + EXCLUDED.balance").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to credit payee: %w", err)
		}
		return nil
	})
}

// Balance returns the user's balance and the part of it on hold.
func (l *Ledger) Balance(ctx context.Context, userID string) (balance, held int64, err error) {
	user, err := selectUser(ctx, l.db, userID)
	if err != nil {
		return 0, 0, err
	}
	return user.Balance, user.Held, nil
}

func selectUser(ctx context.Context, db bun.IDB, userID string) (*models.User, error) {
	user := new(models.User)
	q := db.NewSelect().Model(user).Where("id = ?", userID)
	if _, ok := db.(bun.Tx); ok {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", userID, ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func selectUserItem(ctx context.Context, tx bun.Tx, userID, itemID string) (*models.UserItem, error) {
	ui := new(models.UserItem)
	err := tx.NewSelect().
		Model(ui).
		Where("user_id = ? AND item_id = ?", userID, itemID).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s/%s: %w", userID, itemID, ErrItemNotOwned)
		}
		return nil, fmt.Errorf("failed to load user item: %w", err)
	}
	return ui, nil
}

func checkLockable(ui *models.UserItem) error {
	if ui.Free() < 1 {
		return ErrItemUnavailable
	}
	return nil
}

func checkAvailable(user *models.User, amount int64) error {
	if user.Available() < amount {
		return fmt.Errorf("%s has %d available, needs %d: %w",
			user.ID, user.Available(), amount, auction.ErrInsufficientFunds)
	}
	return nil
}

// claimReceipt records that the transfer for (ref, kind) is being applied in
// tx. It reports false when an earlier transaction already committed it.
func claimReceipt(ctx context.Context, tx bun.Tx, ref, kind, partyID string, amount int64) (bool, error) {
	if ref == "" {
		return true, nil
	}
	res, err := tx.NewInsert().
		Model(&models.SettlementReceipt{
			Ref:       ref,
			Kind:      kind,
			PartyID:   partyID,
			Amount:    amount,
			CreatedAt: time.Now(),
		}).
		On("CONFLICT (ref, kind) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to record settlement receipt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read settlement receipt result: %w", err)
	}
	if n == 0 {
		slog.Info("Settlement transfer already applied",
			slog.String("type", "db"),
			slog.String("ref", ref),
			slog.String("kind", kind))
		return false, nil
	}
	return true, nil
}
