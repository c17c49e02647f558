package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
)

// EconomyStore implements domain.EconomyStore: it scopes trade closure, card
// transfers, and gold deltas to a single PostgreSQL transaction so a failed
// settlement leaves no partial swap behind.
type EconomyStore struct {
	pool *pgxpool.Pool
}

// NewEconomyStore creates a new EconomyStore backed by the given pool.
func NewEconomyStore(pool *pgxpool.Pool) *EconomyStore {
	return &EconomyStore{pool: pool}
}

// InTx begins a transaction, runs fn against it, and commits only if fn
// returns nil. Any error (including a panic re-raised after rollback) leaves
// the database untouched.
func (s *EconomyStore) InTx(ctx context.Context, fn func(tx domain.EconomyTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin economy tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(&economyTx{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit economy tx: %w", err)
	}
	return nil
}

// economyTx implements domain.EconomyTx on top of one pgx.Tx.
type economyTx struct {
	tx pgx.Tx
}

// GetTradeForUpdate re-reads the trade with FOR UPDATE so concurrent
// finalize/cancel callers serialize on the row.
func (e *economyTx) GetTradeForUpdate(ctx context.Context, id string) (domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE id = $1 FOR UPDATE`
	t, err := scanTrade(e.tx.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Trade{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Trade{}, fmt.Errorf("postgres: get trade %s for update: %w", id, err)
	}
	return t, nil
}

// CloseTrade transitions pending to the given terminal status. A zero row
// count means another caller already closed the trade.
func (e *economyTx) CloseTrade(ctx context.Context, id string, to domain.TradeStatus, reason string) error {
	const query = `
		UPDATE trades
		SET status = $2, cancel_reason = $3, closed_at = NOW()
		WHERE id = $1 AND status = 'pending'`

	tag, err := e.tx.Exec(ctx, query, id, to, reason)
	if err != nil {
		return fmt.Errorf("postgres: close trade %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTradeNotPending
	}
	return nil
}

// TransferCard moves one card between owners. The current-owner guard
// detects cards that were traded away or destroyed since proposal.
func (e *economyTx) TransferCard(ctx context.Context, cardID, fromOwner, toOwner string) error {
	const query = `UPDATE cards SET owner_id = $3 WHERE id = $1 AND owner_id = $2`

	tag, err := e.tx.Exec(ctx, query, cardID, fromOwner, toOwner)
	if err != nil {
		return fmt.Errorf("postgres: transfer card %s: %w", cardID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: transfer card %s from %s: %w",
			cardID, fromOwner, domain.ErrCardNotOwned)
	}
	return nil
}

// AdjustGold applies a signed delta. Credits create the balance row on first
// use; debits require an existing row that can cover the amount. The
// balances CHECK constraint backs the non-negative guard.
func (e *economyTx) AdjustGold(ctx context.Context, userID string, delta int64) error {
	if delta >= 0 {
		const credit = `
			INSERT INTO balances (user_id, gold) VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE SET gold = balances.gold + $2`
		if _, err := e.tx.Exec(ctx, credit, userID, delta); err != nil {
			return fmt.Errorf("postgres: credit gold for %s: %w", userID, err)
		}
		return nil
	}

	const debit = `UPDATE balances SET gold = gold + $2 WHERE user_id = $1 AND gold + $2 >= 0`
	tag, err := e.tx.Exec(ctx, debit, userID, delta)
	if err != nil {
		return fmt.Errorf("postgres: debit gold for %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: debit gold for %s by %d: %w",
			userID, delta, domain.ErrInsufficientGold)
	}
	return nil
}

// Compile-time interface checks.
var (
	_ domain.EconomyStore = (*EconomyStore)(nil)
	_ domain.EconomyTx    = (*economyTx)(nil)
)
