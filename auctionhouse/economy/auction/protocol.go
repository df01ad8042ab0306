package auction

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Protocol string

const (
	ProtocolStandard Protocol = "standard"
	ProtocolReserve  Protocol = "reserve"
	ProtocolDutch    Protocol = "dutch"
)

func ParseProtocol(s string) (Protocol, error) {
	p := Protocol(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown auction protocol %q", s)
	}
	return p, nil
}

func (p Protocol) Valid() bool {
	switch p {
	case ProtocolStandard, ProtocolReserve, ProtocolDutch:
		return true
	}
	return false
}

// Ascending reports whether bids raise the price (Standard and Reserve).
func (p Protocol) Ascending() bool {
	return p == ProtocolStandard || p == ProtocolReserve
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusClosing   Status = "closing"
	StatusSettled   Status = "settled"
	StatusUnsold    Status = "unsold"
	StatusCancelled Status = "cancelled"
)

func (s Status) Terminal() bool {
	return s == StatusSettled || s == StatusUnsold || s == StatusCancelled
}

// Live reports whether the auction still appears in listings.
func (s Status) Live() bool {
	return s == StatusPending || s == StatusActive
}

var hundred = decimal.NewFromInt(100)

// IncrementRule is the step an ascending bid must clear over the current price.
// Percent is applied to the current price and rounded up; Flat is added on top.
type IncrementRule struct {
	Percent decimal.Decimal `json:"percent"`
	Flat    int64           `json:"flat"`
}

func PercentIncrement(percent int64) IncrementRule {
	return IncrementRule{Percent: decimal.NewFromInt(percent)}
}

func FlatIncrement(amount int64) IncrementRule {
	return IncrementRule{Flat: amount}
}

func (r IncrementRule) IsZero() bool {
	return r.Flat == 0 && r.Percent.IsZero()
}

// Step returns the increment for the given price. It is never below 1.
func (r IncrementRule) Step(currentPrice int64) int64 {
	var step int64
	if r.Percent.IsPositive() {
		step = decimal.NewFromInt(currentPrice).
			Mul(r.Percent).
			Div(hundred).
			Ceil().
			IntPart()
	}
	if r.Flat > 0 {
		step += r.Flat
	}
	return max(step, 1)
}

// NextMinimumBid is the lowest amount a bid must reach to be admissible.
// It depends only on the protocol, the current price and the rule so that
// previews and server-side validation always agree.
func NextMinimumBid(protocol Protocol, currentPrice int64, rule IncrementRule) int64 {
	if !protocol.Ascending() {
		return currentPrice
	}
	return currentPrice + rule.Step(currentPrice)
}
