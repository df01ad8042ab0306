package auction

// Rejection is the reason a bid was refused. The zero value means admissible.
type Rejection string

const (
	RejectNone              Rejection = ""
	RejectTooLow            Rejection = "too_low"
	RejectNotActive         Rejection = "auction_not_active"
	RejectSelfOutbid        Rejection = "self_outbid"
	RejectInsufficientFunds Rejection = "insufficient_funds"
	RejectSellerCannotBid   Rejection = "seller_cannot_bid"
	RejectInvalidAmount     Rejection = "invalid_amount"
)

// Quote is the slice of auction state a bid is judged against.
type Quote struct {
	Protocol        Protocol
	Status          Status
	CurrentPrice    int64
	Increment       IncrementRule
	SellerID        string
	HighestBidderID string
}

type BidRequest struct {
	BidderID   string
	BidderName string
	Amount     int64
}

// Validate decides whether req is admissible against q. It has no side
// effects; time-driven state must already be applied to q.
func Validate(q Quote, req BidRequest) Rejection {
	if req.Amount <= 0 {
		return RejectInvalidAmount
	}
	if q.Status != StatusActive {
		return RejectNotActive
	}
	if req.BidderID == q.SellerID {
		return RejectSellerCannotBid
	}

	if q.Protocol == ProtocolDutch {
		if req.Amount < q.CurrentPrice {
			return RejectTooLow
		}
		return RejectNone
	}

	if req.Amount < NextMinimumBid(q.Protocol, q.CurrentPrice, q.Increment) {
		if q.HighestBidderID != "" && q.HighestBidderID == req.BidderID {
			return RejectSelfOutbid
		}
		return RejectTooLow
	}
	return RejectNone
}
