package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ellavondegurechaff/auction-house/auctionhouse/logger"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

type SettlementKind string

const (
	// SettleWinner moves funds to the seller and the item to the winner.
	SettleWinner SettlementKind = "settle"
	// ReleaseItem returns the item lock to the seller.
	ReleaseItem SettlementKind = "release_item"
	// ReleaseFunds frees a superseded or refused bid reservation.
	ReleaseFunds SettlementKind = "release_funds"
)

// SettlementJob is one outbox entry. Settle jobs remember which transfers
// already succeeded so a retry never repeats them.
type SettlementJob struct {
	ID        uuid.UUID
	Kind      SettlementKind
	AuctionID string
	ItemID    string
	SellerID  string
	PartyID   string // winner for SettleWinner, bidder for ReleaseFunds
	Amount    int64

	FundsTransferred bool
	ItemTransferred  bool
	Attempts         int
}

type SettlerConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	CallTimeout time.Duration
	Workers     int64
}

// Settler executes outbox jobs against the external collaborators, off the
// bidding path, with bounded exponential backoff.
type Settler struct {
	inventory Inventory
	funds     Funds
	cfg       SettlerConfig
	sem       *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

func NewSettler(inventory Inventory, funds Funds, cfg SettlerConfig) *Settler {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = time.Minute
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Settler{
		inventory: inventory,
		funds:     funds,
		cfg:       cfg,
		sem:       semaphore.NewWeighted(cfg.Workers),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Dispatch queues job and returns immediately. done, if set, runs on a
// settler goroutine once the job succeeded or exhausted its attempts.
// It reports false, without running done, when the settler is closed.
func (s *Settler) Dispatch(job SettlementJob, done func(SettlementJob, error)) bool {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		logger.LogError("Settlement job dropped after shutdown", ErrEngineClosed,
			slog.String("auction_id", job.AuctionID),
			slog.String("kind", string(job.Kind)))
		return false
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		if err := s.sem.Acquire(s.ctx, 1); err != nil {
			if done != nil {
				done(job, err)
			}
			return
		}
		defer s.sem.Release(1)

		err := s.run(&job)
		if done != nil {
			done(job, err)
		}
	}()
	return true
}

func (s *Settler) run(job *SettlementJob) error {
	var lastErr error
	for job.Attempts < s.cfg.MaxAttempts {
		job.Attempts++

		lastErr = s.attempt(job)
		if lastErr == nil {
			slog.Info("Settlement job completed",
				slog.String("type", "sys"),
				slog.String("auction_id", job.AuctionID),
				slog.String("kind", string(job.Kind)),
				slog.Int("attempts", job.Attempts))
			return nil
		}

		slog.Warn("Settlement attempt failed",
			slog.String("auction_id", job.AuctionID),
			slog.String("kind", string(job.Kind)),
			slog.Int("attempt", job.Attempts),
			slog.Any("error", lastErr))

		if job.Attempts >= s.cfg.MaxAttempts {
			break
		}

		select {
		case <-time.After(s.backoff(job.Attempts)):
		case <-s.ctx.Done():
			return errors.Join(lastErr, s.ctx.Err())
		}
	}
	return fmt.Errorf("settlement %s for auction %s failed after %d attempts: %w",
		job.Kind, job.AuctionID, job.Attempts, lastErr)
}

func (s *Settler) backoff(attempt int) time.Duration {
	d := s.cfg.BaseBackoff << (attempt - 1)
	if d <= 0 || d > s.cfg.MaxBackoff {
		return s.cfg.MaxBackoff
	}
	return d
}

func (s *Settler) attempt(job *SettlementJob) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.CallTimeout)
	defer cancel()

	switch job.Kind {
	case SettleWinner:
		if !job.FundsTransferred {
			if s.funds != nil {
				if err := s.funds.TransferFunds(ctx, job.AuctionID, job.PartyID, job.SellerID, job.Amount); err != nil {
					return fmt.Errorf("failed to transfer funds to seller: %w", err)
				}
			}
			job.FundsTransferred = true
		}
		if !job.ItemTransferred {
			if s.inventory != nil {
				if err := s.inventory.TransferItem(ctx, job.AuctionID, job.ItemID, job.SellerID, job.PartyID); err != nil {
					return fmt.Errorf("failed to transfer item to winner: %w", err)
				}
			}
			job.ItemTransferred = true
		}
		return nil

	case ReleaseItem:
		if s.inventory == nil {
			return nil
		}
		if err := s.inventory.ReleaseItem(ctx, job.ItemID, job.SellerID); err != nil {
			return fmt.Errorf("failed to return item to seller: %w", err)
		}
		return nil

	case ReleaseFunds:
		if s.funds == nil {
			return nil
		}
		if err := s.funds.ReleaseFunds(ctx, job.PartyID, job.Amount); err != nil {
			return fmt.Errorf("failed to release reserved funds: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unknown settlement kind %q", job.Kind)
}

// Close refuses new jobs and waits for in-flight ones to finish. Abort
// interrupts them instead.
func (s *Settler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.wg.Wait()
	s.cancel()
}

// Abort cancels backoffs and outstanding collaborator calls.
func (s *Settler) Abort() {
	s.cancel()
}

// logOutcome is the completion callback for jobs nobody waits on.
func logOutcome(job SettlementJob, err error) {
	if err == nil {
		return
	}
	logger.LogError("Settlement job abandoned", err,
		slog.String("auction_id", job.AuctionID),
		slog.String("kind", string(job.Kind)),
		slog.String("party_id", job.PartyID),
		slog.Int64("amount", job.Amount))
}
