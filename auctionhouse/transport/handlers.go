package transport

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ellavondegurechaff/auction-house/auctionhouse/config"
	"github.com/ellavondegurechaff/auction-house/auctionhouse/economy/auction"
)

type itemBody struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Grade     string `json:"grade"`
	BaseValue int64  `json:"base_value"`
}

type createAuctionBody struct {
	Item              itemBody   `json:"item"`
	Protocol          string     `json:"protocol"`
	StartingPrice     int64      `json:"starting_price"`
	ReservePrice      int64      `json:"reserve_price"`
	IncrementPercent  int64      `json:"increment_percent"`
	IncrementFlat     int64      `json:"increment_flat"`
	DecrementAmount   int64      `json:"decrement_amount"`
	DecrementInterval string     `json:"decrement_interval"`
	FloorPrice        int64      `json:"floor_price"`
	StartTime         *time.Time `json:"start_time"`
	Duration          string     `json:"duration"`
}

func (b createAuctionBody) toRequest(seller Identity) (auction.CreateRequest, error) {
	protocol, err := auction.ParseProtocol(b.Protocol)
	if err != nil {
		return auction.CreateRequest{}, &auction.FieldError{Field: "protocol", Reason: "must be standard, reserve or dutch"}
	}
	duration, err := parseDuration("duration", b.Duration)
	if err != nil {
		return auction.CreateRequest{}, err
	}
	interval, err := parseDuration("decrement_interval", b.DecrementInterval)
	if err != nil {
		return auction.CreateRequest{}, err
	}

	req := auction.CreateRequest{
		Item: auction.Item{
			ID:        b.Item.ID,
			Name:      b.Item.Name,
			Category:  b.Item.Category,
			Grade:     b.Item.Grade,
			BaseValue: b.Item.BaseValue,
		},
		Seller:            auction.Party{ID: seller.ID, Name: seller.Name},
		Protocol:          protocol,
		StartingPrice:     b.StartingPrice,
		ReservePrice:      b.ReservePrice,
		DecrementAmount:   b.DecrementAmount,
		DecrementInterval: interval,
		FloorPrice:        b.FloorPrice,
		Duration:          duration,
	}
	if b.IncrementPercent > 0 {
		req.Increment = auction.PercentIncrement(b.IncrementPercent)
	}
	if b.IncrementFlat > 0 {
		req.Increment.Flat = b.IncrementFlat
	}
	if b.StartTime != nil {
		req.StartTime = *b.StartTime
	}
	return req, nil
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, &auction.FieldError{Field: field, Reason: "must be a duration such as 90s or 1h"}
	}
	return d, nil
}

type bidBody struct {
	Amount int64 `json:"amount"`
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, auction.ErrAuctionNotFound):
		return http.StatusNotFound
	case errors.Is(err, auction.ErrInvalidAuction):
		return http.StatusBadRequest
	case errors.Is(err, auction.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, auction.ErrCannotCancelWithBids),
		errors.Is(err, auction.ErrNotCancellable),
		errors.Is(err, auction.ErrNotStalled):
		return http.StatusConflict
	case errors.Is(err, auction.ErrEngineClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}

func (s *Server) createAuction(c *gin.Context) {
	var body createAuctionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := body.toRequest(currentIdentity(c))
	if err != nil {
		createFailed(c, err)
		return
	}
	snap, err := s.registry.Create(c.Request.Context(), req)
	if err != nil {
		createFailed(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

func createFailed(c *gin.Context, err error) {
	_ = c.Error(err)
	var fieldErr *auction.FieldError
	switch {
	case errors.As(err, &fieldErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": fieldErr.Field})
	case errors.Is(err, auction.ErrEngineClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		// The inventory refused to lock the item.
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	}
}

func (s *Server) getAuction(c *gin.Context) {
	snap, err := s.registry.Get(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) listByCategory(c *gin.Context) {
	c.JSON(http.StatusOK, s.registry.ListByCategory(c.Query("category")))
}

func (s *Server) listEndingSoon(c *gin.Context) {
	within := config.EndingSoonDefault
	if raw := c.Query("within"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "within must be a positive duration"})
			return
		}
		within = d
	}
	c.JSON(http.StatusOK, s.registry.ListEndingSoon(within))
}

func (s *Server) search(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, s.registry.Search(c.Query("q"), limit))
}

func (s *Server) events(c *gin.Context) {
	var after uint64
	if raw := c.Query("after_seq"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "after_seq must be a non-negative integer"})
			return
		}
		after = n
	}
	events, err := s.registry.EventsSince(c.Request.Context(), c.Param("id"), after)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (s *Server) submitBid(c *gin.Context) {
	var body bidBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity := currentIdentity(c)
	res, err := s.registry.SubmitBid(c.Request.Context(), c.Param("id"), auction.BidRequest{
		BidderID:   identity.ID,
		BidderName: identity.Name,
		Amount:     body.Amount,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !res.Accepted {
		c.JSON(http.StatusConflict, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) cancelAuction(c *gin.Context) {
	if err := s.registry.Cancel(c.Request.Context(), c.Param("id"), currentIdentity(c).ID); err != nil {
		abortWithError(c, err)
		return
	}
	snap, err := s.registry.Get(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) retrySettlement(c *gin.Context) {
	if !s.registry.IsAdmin(currentIdentity(c).ID) {
		abortWithError(c, auction.ErrNotAuthorized)
		return
	}
	if err := s.registry.RetrySettlement(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "retrying"})
}
