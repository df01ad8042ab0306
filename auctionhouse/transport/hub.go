package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ellavondegurechaff/auction-house/auctionhouse/economy/auction"
	"github.com/ellavondegurechaff/auction-house/auctionhouse/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 256
	bidTimeout     = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Message types exchanged over the socket.
const (
	msgSubscribe   = "subscribe"
	msgUnsubscribe = "unsubscribe"
	msgBid         = "bid"

	msgSnapshot   = "snapshot"
	msgEvent      = "event"
	msgBidResult  = "bid_result"
	msgError      = "error"
	msgSubscribed = "subscribed"
)

// ClientMessage is a request from a websocket client. AfterSeq asks for a
// replay of the events the client missed.
type ClientMessage struct {
	Type      string  `json:"type"`
	AuctionID string  `json:"auction_id"`
	AfterSeq  *uint64 `json:"after_seq,omitempty"`
	Amount    int64   `json:"amount,omitempty"`
}

type ServerMessage struct {
	Type      string             `json:"type"`
	AuctionID string             `json:"auction_id,omitempty"`
	Event     *auction.Event     `json:"event,omitempty"`
	Snapshot  *auction.Snapshot  `json:"snapshot,omitempty"`
	Result    *auction.BidResult `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// Hub tracks websocket clients and bridges them to auction subscriptions.
type Hub struct {
	registry *auction.Registry

	mu      sync.Mutex
	clients map[*Client]struct{}
	closed  bool
}

func NewHub(registry *auction.Registry) *Hub {
	return &Hub{
		registry: registry,
		clients:  make(map[*Client]struct{}),
	}
}

func (h *Hub) HandleWebSocket(c *gin.Context) {
	identity, _ := identityFromRequest(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("Failed to upgrade connection",
			slog.String("type", "ws"),
			slog.Any("error", err))
		return
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		identity: identity,
		send:     make(chan []byte, sendBuffer),
		subs:     make(map[string]*auction.Subscription),
		done:     make(chan struct{}),
	}
	if !h.register(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	slog.Debug("Client connected",
		slog.String("type", "ws"),
		slog.String("user_id", c.identity.ID),
		slog.Int("clients", len(h.clients)))
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	identity Identity
	send     chan []byte

	mu   sync.Mutex
	subs map[string]*auction.Subscription

	done      chan struct{}
	closeOnce sync.Once
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()

		c.mu.Lock()
		subs := c.subs
		c.subs = make(map[string]*auction.Subscription)
		c.mu.Unlock()
		for _, sub := range subs {
			sub.Close()
		}
		c.hub.unregister(c)
	})
}

// enqueue hands a message to the write pump. A client whose buffer is full
// is too slow to follow the auction and gets disconnected.
func (c *Client) enqueue(msg ServerMessage) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.LogError("Failed to encode websocket message", err)
		return false
	}
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		slog.Warn("Dropping slow websocket client",
			slog.String("type", "ws"),
			slog.String("user_id", c.identity.ID))
		c.close()
		return false
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *Client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("WebSocket error",
					slog.String("type", "ws"),
					slog.Any("error", err))
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.enqueue(ServerMessage{Type: msgError, Error: "malformed message"})
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) handleMessage(msg ClientMessage) {
	auctionID := strings.ToUpper(strings.TrimSpace(msg.AuctionID))
	switch msg.Type {
	case msgSubscribe:
		c.subscribe(auctionID, msg.AfterSeq)
	case msgUnsubscribe:
		c.unsubscribe(auctionID)
	case msgBid:
		c.bid(auctionID, msg.Amount)
	default:
		c.enqueue(ServerMessage{Type: msgError, Error: "unknown message type " + msg.Type})
	}
}

// subscribe attaches to the broadcaster before reading the snapshot, so
// every event after the snapshot reaches the subscription.
func (c *Client) subscribe(auctionID string, afterSeq *uint64) {
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return
	default:
	}
	if _, ok := c.subs[auctionID]; ok {
		c.mu.Unlock()
		return
	}
	sub := c.hub.registry.Broadcaster().Subscribe(auctionID)
	c.subs[auctionID] = sub
	c.mu.Unlock()

	snap, err := c.hub.registry.Get(auctionID)
	if err != nil {
		c.unsubscribe(auctionID)
		c.enqueue(ServerMessage{Type: msgError, AuctionID: auctionID, Error: err.Error()})
		return
	}

	c.enqueue(ServerMessage{Type: msgSubscribed, AuctionID: snap.ID})
	go c.forward(sub, snap, afterSeq)
}

// forward sends the catch-up (a replay after afterSeq, or the current
// snapshot) and then the live events of one subscription, never sending
// a sequence number twice.
func (c *Client) forward(sub *auction.Subscription, snap auction.Snapshot, afterSeq *uint64) {
	last := snap.Seq
	if afterSeq != nil {
		last = *afterSeq
		ctx, cancel := context.WithTimeout(context.Background(), bidTimeout)
		history, err := c.hub.registry.EventsSince(ctx, snap.ID, *afterSeq)
		cancel()
		if err != nil {
			c.enqueue(ServerMessage{Type: msgError, AuctionID: snap.ID, Error: err.Error()})
		}
		for i := range history {
			if !c.enqueue(ServerMessage{Type: msgEvent, AuctionID: snap.ID, Event: &history[i]}) {
				return
			}
			last = history[i].Seq
		}
	} else if !c.enqueue(ServerMessage{Type: msgSnapshot, AuctionID: snap.ID, Snapshot: &snap}) {
		return
	}

	for {
		select {
		case <-c.done:
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			if ev.Seq <= last {
				continue
			}
			last = ev.Seq
			if !c.enqueue(ServerMessage{Type: msgEvent, AuctionID: ev.AuctionID, Event: &ev}) {
				return
			}
		}
	}
}

func (c *Client) unsubscribe(auctionID string) {
	c.mu.Lock()
	sub, ok := c.subs[auctionID]
	delete(c.subs, auctionID)
	c.mu.Unlock()
	if ok {
		sub.Close()
	}
}

func (c *Client) bid(auctionID string, amount int64) {
	if c.identity.ID == "" {
		c.enqueue(ServerMessage{Type: msgError, AuctionID: auctionID, Error: "bidding requires a user id"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), bidTimeout)
	defer cancel()
	res, err := c.hub.registry.SubmitBid(ctx, auctionID, auction.BidRequest{
		BidderID:   c.identity.ID,
		BidderName: c.identity.Name,
		Amount:     amount,
	})
	if err != nil {
		c.enqueue(ServerMessage{Type: msgError, AuctionID: auctionID, Error: err.Error()})
		return
	}
	c.enqueue(ServerMessage{Type: msgBidResult, AuctionID: auctionID, Result: &res})
}
