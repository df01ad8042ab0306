package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User carries the spendable balance. Held is the part of Balance promised
// to open bids; only Balance - Held can back a new bid.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        string    `bun:"id,pk"`
	Username  string    `bun:"username,notnull,default:''"`
	Balance   int64     `bun:"balance,notnull,default:0"`
	Held      int64     `bun:"held,notnull,default:0"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

func (u *User) Available() int64 {
	return u.Balance - u.Held
}

// UserItem is a stack of one item owned by a user. Locked copies are listed
// in a running auction and cannot be traded or listed again.
type UserItem struct {
	bun.BaseModel `bun:"table:user_items,alias:ui"`

	UserID    string    `bun:"user_id,pk"`
	ItemID    string    `bun:"item_id,pk"`
	Quantity  int       `bun:"quantity,notnull"`
	Locked    int       `bun:"locked,notnull,default:0"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

func (ui *UserItem) Free() int {
	return ui.Quantity - ui.Locked
}
