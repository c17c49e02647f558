package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
)

// BalanceStore implements domain.BalanceStore using PostgreSQL. A user with
// no balance row reads as zero gold.
type BalanceStore struct {
	pool *pgxpool.Pool
}

// NewBalanceStore creates a new BalanceStore backed by the given pool.
func NewBalanceStore(pool *pgxpool.Pool) *BalanceStore {
	return &BalanceStore{pool: pool}
}

// Get returns the user's gold balance.
func (s *BalanceStore) Get(ctx context.Context, userID string) (int64, error) {
	var gold int64
	err := s.pool.QueryRow(ctx,
		`SELECT gold FROM balances WHERE user_id = $1`, userID).Scan(&gold)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: get balance for %s: %w", userID, err)
	}
	return gold, nil
}

// Deposit credits gold outside of settlement (rewards, top-ups).
func (s *BalanceStore) Deposit(ctx context.Context, userID string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("postgres: deposit for %s: negative amount %d", userID, amount)
	}
	const query = `
		INSERT INTO balances (user_id, gold) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET gold = balances.gold + $2`
	if _, err := s.pool.Exec(ctx, query, userID, amount); err != nil {
		return fmt.Errorf("postgres: deposit for %s: %w", userID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.BalanceStore = (*BalanceStore)(nil)
