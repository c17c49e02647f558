package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
)

// PaymentLogStore implements domain.PaymentLogStore using PostgreSQL. The log
// is append-only: every gateway call lands here before the caller commits its
// own state, so a crash in between is reconcilable.
type PaymentLogStore struct {
	pool *pgxpool.Pool
}

// NewPaymentLogStore creates a new PaymentLogStore backed by the given pool.
func NewPaymentLogStore(pool *pgxpool.Pool) *PaymentLogStore {
	return &PaymentLogStore{pool: pool}
}

// Record appends one gateway call outcome.
func (s *PaymentLogStore) Record(ctx context.Context, a domain.PaymentAttempt) error {
	const query = `
		INSERT INTO payment_log (
			operation, reference, charge_id, amount_cents, currency, state, err_detail
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		a.Operation, a.Reference, a.ChargeID, a.AmountCents, a.Currency, a.State, a.ErrDetail,
	)
	if err != nil {
		return fmt.Errorf("postgres: record payment attempt %s: %w", a.Operation, err)
	}
	return nil
}

// ListByReference returns all recorded attempts for a processor reference,
// oldest first, for reconciliation.
func (s *PaymentLogStore) ListByReference(ctx context.Context, reference string) ([]domain.PaymentAttempt, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, operation, reference, charge_id, amount_cents, currency, state, err_detail, created_at
		 FROM payment_log WHERE reference = $1 ORDER BY created_at ASC`,
		reference,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list payment attempts for %s: %w", reference, err)
	}
	defer rows.Close()

	var attempts []domain.PaymentAttempt
	for rows.Next() {
		var a domain.PaymentAttempt
		if err := rows.Scan(
			&a.ID, &a.Operation, &a.Reference, &a.ChargeID,
			&a.AmountCents, &a.Currency, &a.State, &a.ErrDetail, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan payment attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// Compile-time interface check.
var _ domain.PaymentLogStore = (*PaymentLogStore)(nil)
