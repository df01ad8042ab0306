package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ellavondegurechaff/auction-house/auctionhouse/economy/auction"
)

var t0 = time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *auction.Registry, *auction.FakeClock) {
	t.Helper()
	clock := auction.NewFakeClock(t0)
	cfg := auction.DefaultConfig()
	cfg.SweepInterval = 0
	cfg.AdminIDs = []string{"admin"}
	reg, err := auction.NewRegistry(cfg, nil, nil, auction.WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, reg.Shutdown(ctx))
	})
	return NewServer(reg), reg, clock
}

func do(t *testing.T, s *Server, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(headerUserID, user)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createStandard(t *testing.T, s *Server, seller, name, category string) auction.Snapshot {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/auctions", seller, map[string]any{
		"item":           map[string]any{"id": name + "-item", "name": name, "category": category},
		"protocol":       "standard",
		"starting_price": 100,
		"increment_flat": 10,
		"duration":       "1h",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[auction.Snapshot](t, rec)
}

func TestCreateBidAndGet(t *testing.T) {
	s, _, _ := newTestServer(t)
	snap := createStandard(t, s, "seller", "Dragon Card", "Cards")
	require.Equal(t, auction.StatusActive, snap.Status)
	require.Equal(t, int64(110), snap.NextMinimumBid)

	rec := do(t, s, http.MethodPost, "/auctions/"+snap.ID+"/bids", "alice", map[string]any{"amount": 110})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[auction.BidResult](t, rec)
	require.True(t, res.Accepted)
	require.Equal(t, int64(110), res.NewPrice)

	rec = do(t, s, http.MethodPost, "/auctions/"+snap.ID+"/bids", "bob", map[string]any{"amount": 115})
	require.Equal(t, http.StatusConflict, rec.Code)
	res = decode[auction.BidResult](t, rec)
	require.Equal(t, auction.RejectTooLow, res.Rejection)
	require.Equal(t, int64(120), res.NextMinimumBid)

	rec = do(t, s, http.MethodGet, "/auctions/"+snap.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[auction.Snapshot](t, rec)
	require.Equal(t, 1, got.BidCount)
	require.Equal(t, "alice", got.HighestBidderID)
}

func TestCreateValidation(t *testing.T) {
	s, _, _ := newTestServer(t)

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{
			name:  "unknown protocol",
			body:  map[string]any{"item": map[string]any{"id": "x"}, "protocol": "vickrey", "starting_price": 100, "duration": "1h"},
			field: "protocol",
		},
		{
			name:  "bad duration",
			body:  map[string]any{"item": map[string]any{"id": "x"}, "protocol": "standard", "starting_price": 100, "duration": "soon"},
			field: "duration",
		},
		{
			name:  "non-positive price",
			body:  map[string]any{"item": map[string]any{"id": "x"}, "protocol": "standard", "starting_price": 0, "duration": "1h"},
			field: "starting_price",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/auctions", "seller", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			body := decode[map[string]string](t, rec)
			require.Equal(t, tt.field, body["field"])
		})
	}
}

func TestMutationsRequireIdentity(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/auctions/ABCDEF/bids", "", map[string]any{"amount": 10})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnknownAuction(t *testing.T) {
	s, _, _ := newTestServer(t)
	require.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/auctions/ZZZZZZ", "", nil).Code)
	require.Equal(t, http.StatusNotFound, do(t, s, http.MethodPost, "/auctions/ZZZZZZ/bids", "alice", map[string]any{"amount": 10}).Code)
	require.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/auctions/ZZZZZZ/events", "", nil).Code)
}

func TestCancel(t *testing.T) {
	s, _, _ := newTestServer(t)
	snap := createStandard(t, s, "seller", "Dragon Card", "Cards")

	rec := do(t, s, http.MethodPost, "/auctions/"+snap.ID+"/cancel", "mallory", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, s, http.MethodPost, "/auctions/"+snap.ID+"/cancel", "seller", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, auction.StatusCancelled, decode[auction.Snapshot](t, rec).Status)

	other := createStandard(t, s, "seller", "Phoenix Card", "Cards")
	do(t, s, http.MethodPost, "/auctions/"+other.ID+"/bids", "alice", map[string]any{"amount": 110})
	rec = do(t, s, http.MethodPost, "/auctions/"+other.ID+"/cancel", "seller", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestRetrySettlementIsAdminOnly(t *testing.T) {
	s, _, _ := newTestServer(t)
	snap := createStandard(t, s, "seller", "Dragon Card", "Cards")

	require.Equal(t, http.StatusForbidden,
		do(t, s, http.MethodPost, "/auctions/"+snap.ID+"/settlement/retry", "seller", nil).Code)
	require.Equal(t, http.StatusConflict,
		do(t, s, http.MethodPost, "/auctions/"+snap.ID+"/settlement/retry", "admin", nil).Code)
}

func TestListings(t *testing.T) {
	s, reg, _ := newTestServer(t)
	dragon := createStandard(t, s, "seller", "Dragon Card", "Cards")
	createStandard(t, s, "seller", "Healing Potion", "Potions")

	rec := do(t, s, http.MethodGet, "/auctions?category=cards", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cards := decode[[]auction.Snapshot](t, rec)
	require.Len(t, cards, 1)
	require.Equal(t, dragon.ID, cards[0].ID)

	rec = do(t, s, http.MethodGet, "/auctions", "", nil)
	require.Len(t, decode[[]auction.Snapshot](t, rec), 2)

	rec = do(t, s, http.MethodGet, "/auctions/ending-soon?within=2h", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]auction.Snapshot](t, rec), 2)

	rec = do(t, s, http.MethodGet, "/auctions/ending-soon?within=10m", "", nil)
	require.Empty(t, decode[[]auction.Snapshot](t, rec))

	require.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/auctions/ending-soon?within=-1s", "", nil).Code)

	rec = do(t, s, http.MethodGet, "/auctions/search?q=dragon", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[[]auction.Snapshot](t, rec)
	require.NotEmpty(t, found)
	require.Equal(t, dragon.ID, found[0].ID)

	events, err := reg.EventsSince(context.Background(), dragon.ID, 0)
	require.NoError(t, err)
	rec = do(t, s, http.MethodGet, "/auctions/"+dragon.ID+"/events?after_seq=0", "", nil)
	require.Len(t, decode[[]auction.Event](t, rec), len(events))
}
