// Package service implements the economy engine's business operations on top
// of the storage, cache, and gateway layers.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/cache/redis"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
)

// TradeService manages the two-party trade escrow lifecycle: propose,
// finalize, cancel, and expiry sweeping.
type TradeService struct {
	events

	trades  domain.TradeStore
	cards   domain.CardStore
	economy domain.EconomyStore
	locks   domain.LockManager
	window  time.Duration
	now     func() time.Time
}

// NewTradeService constructs a TradeService. A zero window falls back to
// domain.DefaultTradeWindow.
func NewTradeService(
	trades domain.TradeStore,
	cards domain.CardStore,
	economy domain.EconomyStore,
	locks domain.LockManager,
	audit domain.AuditStore,
	bus domain.SignalBus,
	window time.Duration,
	logger *slog.Logger,
) *TradeService {
	if window <= 0 {
		window = domain.DefaultTradeWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TradeService{
		events: events{
			audit:  audit,
			bus:    bus,
			logger: logger.With("component", "trade_service"),
		},
		trades:  trades,
		cards:   cards,
		economy: economy,
		locks:   locks,
		window:  window,
		now:     time.Now,
	}
}

// ProposeInput describes a new trade offer between two participants.
type ProposeInput struct {
	ParticipantA string
	ParticipantB string
	CardsA       []string
	CardsB       []string
	GoldA        int64
	GoldB        int64
}

// Propose validates the offer and records a pending trade with an expiry
// window. Cards are not escrowed; ownership is re-verified at finalize time.
func (s *TradeService) Propose(ctx context.Context, in ProposeInput) (domain.Trade, error) {
	if in.ParticipantA == "" || in.ParticipantB == "" {
		return domain.Trade{}, fmt.Errorf("service: propose trade: %w", domain.ErrNotParticipant)
	}
	if in.ParticipantA == in.ParticipantB {
		return domain.Trade{}, fmt.Errorf("service: propose trade: %w", domain.ErrSelfTrade)
	}
	if len(in.CardsA) == 0 && len(in.CardsB) == 0 && in.GoldA == 0 && in.GoldB == 0 {
		return domain.Trade{}, fmt.Errorf("service: propose trade: %w", domain.ErrEmptyTrade)
	}
	if in.GoldA < 0 || in.GoldB < 0 {
		return domain.Trade{}, fmt.Errorf("service: propose trade: negative gold amount")
	}

	if err := s.verifyOwnership(ctx, in.ParticipantA, in.CardsA); err != nil {
		return domain.Trade{}, fmt.Errorf("service: propose trade: side a: %w", err)
	}
	if err := s.verifyOwnership(ctx, in.ParticipantB, in.CardsB); err != nil {
		return domain.Trade{}, fmt.Errorf("service: propose trade: side b: %w", err)
	}

	now := s.now().UTC()
	trade := domain.Trade{
		ID:           uuid.NewString(),
		ParticipantA: in.ParticipantA,
		ParticipantB: in.ParticipantB,
		CardsA:       append([]string(nil), in.CardsA...),
		CardsB:       append([]string(nil), in.CardsB...),
		GoldA:        in.GoldA,
		GoldB:        in.GoldB,
		Status:       domain.TradeStatusPending,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.window),
	}

	if err := s.trades.Create(ctx, trade); err != nil {
		return domain.Trade{}, fmt.Errorf("service: propose trade: %w", err)
	}

	s.record(ctx, "trade.proposed", in.ParticipantA, trade.ID, map[string]any{
		"counterpart": in.ParticipantB,
		"cards_a":     len(in.CardsA),
		"cards_b":     len(in.CardsB),
		"gold_a":      in.GoldA,
		"gold_b":      in.GoldB,
	})
	s.publish(ctx, "trade.proposed", trade.ID)

	return trade, nil
}

func (s *TradeService) verifyOwnership(ctx context.Context, ownerID string, cardIDs []string) error {
	for _, cardID := range cardIDs {
		card, err := s.cards.GetByID(ctx, cardID)
		if err != nil {
			return fmt.Errorf("card %s: %w", cardID, err)
		}
		if card.OwnerID != ownerID {
			return fmt.Errorf("card %s: %w", cardID, domain.ErrCardNotOwned)
		}
	}
	return nil
}

// Finalize settles a pending trade atomically: both card sets change owner
// and gold balances adjust in a single transaction, under a participant-pair
// lock so concurrent finalize attempts for the same pair serialize.
// An expired trade is cancelled as a side effect and ErrTradeExpired is
// returned; the cancellation persists even though the finalize failed.
func (s *TradeService) Finalize(ctx context.Context, tradeID, actorID string) (domain.Trade, error) {
	trade, err := s.trades.GetByID(ctx, tradeID)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("service: finalize trade: %w", err)
	}
	if !trade.HasParticipant(actorID) {
		return domain.Trade{}, fmt.Errorf("service: finalize trade %s: %w", tradeID, domain.ErrNotParticipant)
	}

	var settled domain.Trade
	var settleErr error

	lockKey := redis.TradeLockKey(trade.ParticipantA, trade.ParticipantB)
	err = s.locks.WithLock(ctx, lockKey, func(ctx context.Context) error {
		return s.economy.InTx(ctx, func(tx domain.EconomyTx) error {
			cur, err := tx.GetTradeForUpdate(ctx, tradeID)
			if err != nil {
				return err
			}
			if cur.Status != domain.TradeStatusPending {
				return domain.ErrTradeNotPending
			}
			if cur.Expired(s.now()) {
				// Commit the cancellation; report expiry to the caller.
				if err := tx.CloseTrade(ctx, tradeID, domain.TradeStatusCancelled, "expired"); err != nil {
					return err
				}
				settleErr = domain.ErrTradeExpired
				return nil
			}

			if err := s.swap(ctx, tx, cur); err != nil {
				return err
			}
			if err := tx.CloseTrade(ctx, tradeID, domain.TradeStatusComplete, ""); err != nil {
				return err
			}
			settled = cur
			return nil
		})
	})
	if err != nil {
		return domain.Trade{}, fmt.Errorf("service: finalize trade %s: %w", tradeID, err)
	}
	if settleErr != nil {
		s.record(ctx, "trade.expired", actorID, tradeID, map[string]any{"when": "finalize"})
		s.publish(ctx, "trade.expired", tradeID)
		return domain.Trade{}, fmt.Errorf("service: finalize trade %s: %w", tradeID, settleErr)
	}

	settled.Status = domain.TradeStatusComplete
	now := s.now().UTC()
	settled.ClosedAt = &now

	s.record(ctx, "trade.completed", actorID, tradeID, map[string]any{
		"cards":  len(settled.CardsA) + len(settled.CardsB),
		"gold_a": settled.GoldA,
		"gold_b": settled.GoldB,
	})
	s.publish(ctx, "trade.completed", tradeID)

	return settled, nil
}

// swap applies the trade's transfers inside tx in deterministic order so
// concurrent settlements touching overlapping rows cannot deadlock.
func (s *TradeService) swap(ctx context.Context, tx domain.EconomyTx, trade domain.Trade) error {
	cardsA := append([]string(nil), trade.CardsA...)
	cardsB := append([]string(nil), trade.CardsB...)
	sort.Strings(cardsA)
	sort.Strings(cardsB)

	for _, cardID := range cardsA {
		if err := tx.TransferCard(ctx, cardID, trade.ParticipantA, trade.ParticipantB); err != nil {
			return fmt.Errorf("transfer card %s: %w", cardID, err)
		}
	}
	for _, cardID := range cardsB {
		if err := tx.TransferCard(ctx, cardID, trade.ParticipantB, trade.ParticipantA); err != nil {
			return fmt.Errorf("transfer card %s: %w", cardID, err)
		}
	}

	// Net deltas, applied in user-id order.
	deltaA := trade.GoldB - trade.GoldA
	deltaB := trade.GoldA - trade.GoldB
	first, firstDelta := trade.ParticipantA, deltaA
	second, secondDelta := trade.ParticipantB, deltaB
	if first > second {
		first, second = second, first
		firstDelta, secondDelta = secondDelta, firstDelta
	}
	if firstDelta != 0 {
		if err := tx.AdjustGold(ctx, first, firstDelta); err != nil {
			return fmt.Errorf("adjust gold %s: %w", first, err)
		}
	}
	if secondDelta != 0 {
		if err := tx.AdjustGold(ctx, second, secondDelta); err != nil {
			return fmt.Errorf("adjust gold %s: %w", second, err)
		}
	}
	return nil
}

// Cancel closes a pending trade without settlement. Either participant may
// cancel. Only the row lock is needed; a racing finalize wins or loses by
// whichever transaction commits first.
func (s *TradeService) Cancel(ctx context.Context, tradeID, actorID, reason string) error {
	trade, err := s.trades.GetByID(ctx, tradeID)
	if err != nil {
		return fmt.Errorf("service: cancel trade: %w", err)
	}
	if !trade.HasParticipant(actorID) {
		return fmt.Errorf("service: cancel trade %s: %w", tradeID, domain.ErrNotParticipant)
	}
	if reason == "" {
		reason = "cancelled by participant"
	}

	err = s.economy.InTx(ctx, func(tx domain.EconomyTx) error {
		cur, err := tx.GetTradeForUpdate(ctx, tradeID)
		if err != nil {
			return err
		}
		if cur.Status != domain.TradeStatusPending {
			return domain.ErrTradeNotPending
		}
		return tx.CloseTrade(ctx, tradeID, domain.TradeStatusCancelled, reason)
	})
	if err != nil {
		return fmt.Errorf("service: cancel trade %s: %w", tradeID, err)
	}

	s.record(ctx, "trade.cancelled", actorID, tradeID, map[string]any{"reason": reason})
	s.publish(ctx, "trade.cancelled", tradeID)
	return nil
}

// Get returns a trade visible to the given participant.
func (s *TradeService) Get(ctx context.Context, tradeID, actorID string) (domain.Trade, error) {
	trade, err := s.trades.GetByID(ctx, tradeID)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("service: get trade: %w", err)
	}
	if !trade.HasParticipant(actorID) {
		return domain.Trade{}, fmt.Errorf("service: get trade %s: %w", tradeID, domain.ErrNotParticipant)
	}
	return trade, nil
}

// ListForParticipant returns trades involving the given user.
func (s *TradeService) ListForParticipant(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Trade, error) {
	trades, err := s.trades.ListByParticipant(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("service: list trades: %w", err)
	}
	return trades, nil
}

// SweepExpired cancels pending trades whose window has lapsed. Trades that
// lose the race to a concurrent finalize or cancel are skipped. Returns the
// number of trades swept.
func (s *TradeService) SweepExpired(ctx context.Context, batch int) (int, error) {
	if batch <= 0 {
		batch = 100
	}
	expired, err := s.trades.ListExpiredPending(ctx, s.now(), batch)
	if err != nil {
		return 0, fmt.Errorf("service: sweep expired: %w", err)
	}

	swept := 0
	for _, trade := range expired {
		err := s.economy.InTx(ctx, func(tx domain.EconomyTx) error {
			cur, err := tx.GetTradeForUpdate(ctx, trade.ID)
			if err != nil {
				return err
			}
			if cur.Status != domain.TradeStatusPending {
				return domain.ErrTradeNotPending
			}
			return tx.CloseTrade(ctx, trade.ID, domain.TradeStatusCancelled, "expired")
		})
		switch {
		case err == nil:
			swept++
			s.record(ctx, "trade.expired", "sweeper", trade.ID, map[string]any{"when": "sweep"})
			s.publish(ctx, "trade.expired", trade.ID)
		case errors.Is(err, domain.ErrTradeNotPending), errors.Is(err, domain.ErrNotFound):
			// Lost the race; already closed.
		default:
			s.logger.WarnContext(ctx, "sweep close failed", "trade_id", trade.ID, "error", err)
		}
	}
	return swept, nil
}

