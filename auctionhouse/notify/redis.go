package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ellavondegurechaff/auction-house/auctionhouse/economy/auction"
	"github.com/ellavondegurechaff/auction-house/auctionhouse/logger"
)

const (
	GlobalChannel  = "auction:events"
	publishTimeout = 3 * time.Second
)

func AuctionChannel(auctionID string) string {
	return fmt.Sprintf("auction:events:%s", auctionID)
}

// Publisher is the part of the go-redis client the relay uses.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		PoolTimeout:  4 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	logger.LogSystem("Redis connected", slog.String("addr", addr), slog.Int("db", db))
	return client, nil
}

// RedisRelay republishes every engine event as JSON so other processes can
// follow auctions without talking to this one.
type RedisRelay struct {
	client Publisher
}

func NewRedisRelay(client Publisher) *RedisRelay {
	return &RedisRelay{client: client}
}

// Run blocks until ctx is done or the subscription is closed.
func (r *RedisRelay) Run(ctx context.Context, sub *auction.Subscription) error {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sub.C():
			if !ok {
				return nil
			}
			if err := r.relay(ctx, ev); err != nil {
				logger.LogError("Failed to relay event", err,
					slog.String("auction_id", ev.AuctionID),
					slog.Uint64("seq", ev.Seq))
			}
		}
	}
}

func (r *RedisRelay) relay(ctx context.Context, ev auction.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := r.client.Publish(ctx, AuctionChannel(ev.AuctionID), payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", AuctionChannel(ev.AuctionID), err)
	}
	if err := r.client.Publish(ctx, GlobalChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", GlobalChannel, err)
	}
	return nil
}
