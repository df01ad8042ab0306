package auction

import (
	"errors"
	"fmt"
)

var (
	ErrAuctionNotFound      = errors.New("auction not found")
	ErrCannotCancelWithBids = errors.New("cannot cancel an auction that already has bids")
	ErrNotAuthorized        = errors.New("only the seller or an administrator can cancel this auction")
	ErrNotCancellable       = errors.New("auction can no longer be cancelled")
	ErrInvalidAuction       = errors.New("invalid auction")
	ErrNotTerminal          = errors.New("auction has not reached a terminal status")
	ErrRetentionNotElapsed  = errors.New("auction retention window has not elapsed")
	ErrNotStalled           = errors.New("auction settlement is not stalled")
	ErrEngineClosed         = errors.New("auction engine is shut down")

	// ErrInsufficientFunds is returned by Funds implementations when a
	// reservation cannot be covered. It surfaces as a bid rejection.
	ErrInsufficientFunds = errors.New("insufficient funds")

	errSettlementInterrupted = errors.New("settlement interrupted by restart")
)

// FieldError describes why a CreateRequest was refused.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid auction: %s %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidAuction
}

func fieldErr(field, format string, args ...any) error {
	return &FieldError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
