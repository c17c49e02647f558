package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
)

// ListingStore implements domain.ListingStore using PostgreSQL. All status
// transitions are guarded UPDATEs whose WHERE clause encodes the required
// precondition; a zero row count distinguishes a missing row from a
// concurrent status change.
type ListingStore struct {
	pool *pgxpool.Pool
}

// NewListingStore creates a new ListingStore backed by the given pool.
func NewListingStore(pool *pgxpool.Pool) *ListingStore {
	return &ListingStore{pool: pool}
}

const listingSelectCols = `id, owner_id, title, price_cents, currency, gold_price,
	template_ids, card_ids, review_status, payment_status, payment_ref, charge_id,
	reviewer_id, reviewed_at, reject_reason, created_at, updated_at`

func scanListing(row pgx.Row) (domain.Listing, error) {
	var l domain.Listing
	err := row.Scan(
		&l.ID, &l.OwnerID, &l.Title, &l.PriceCents, &l.Currency, &l.GoldPrice,
		&l.TemplateIDs, &l.CardIDs, &l.ReviewStatus, &l.PaymentStatus,
		&l.PaymentRef, &l.ChargeID,
		&l.ReviewerID, &l.ReviewedAt, &l.RejectReason, &l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

// Create inserts a new listing. Listings are always born pending/authorized.
func (s *ListingStore) Create(ctx context.Context, l domain.Listing) error {
	const query = `
		INSERT INTO listings (
			id, owner_id, title, price_cents, currency, gold_price,
			template_ids, card_ids,
			review_status, payment_status, payment_ref, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`

	_, err := s.pool.Exec(ctx, query,
		l.ID, l.OwnerID, l.Title, l.PriceCents, l.Currency, l.GoldPrice,
		l.TemplateIDs, l.CardIDs,
		domain.ReviewStatusPending, domain.PaymentStatusAuthorized,
		l.PaymentRef, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create listing: %w", err)
	}
	return nil
}

// GetByID returns a single listing or domain.ErrNotFound.
func (s *ListingStore) GetByID(ctx context.Context, id string) (domain.Listing, error) {
	query := `SELECT ` + listingSelectCols + ` FROM listings WHERE id = $1`
	l, err := scanListing(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Listing{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Listing{}, fmt.Errorf("postgres: get listing %s: %w", id, err)
	}
	return l, nil
}

// ListByReviewStatus returns listings in the given review state, oldest
// first, so the review queue is always derived from the table.
func (s *ListingStore) ListByReviewStatus(ctx context.Context, status domain.ReviewStatus, opts domain.ListOpts) ([]domain.Listing, error) {
	query := `SELECT ` + listingSelectCols + ` FROM listings WHERE review_status = $1 ORDER BY created_at ASC`
	args := []any{status}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list listings by status: %w", err)
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// guardedUpdate runs a transition UPDATE and maps a zero row count to either
// ErrNotFound (no such listing) or ErrStatusConflict (precondition failed).
func (s *ListingStore) guardedUpdate(ctx context.Context, op, id, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: %s listing %s: %w", op, id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM listings WHERE id = $1)", id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("postgres: %s listing %s recheck: %w", op, id, err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrStatusConflict
}

// SetApprovedCaptured moves pending/authorized to approved/captured in one
// statement, recording the reviewer and charge id.
func (s *ListingStore) SetApprovedCaptured(ctx context.Context, id, reviewerID, chargeID string) error {
	const query = `
		UPDATE listings
		SET review_status = 'approved', payment_status = 'captured',
		    reviewer_id = $2, charge_id = $3, reviewed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND review_status = 'pending' AND payment_status = 'authorized'`
	return s.guardedUpdate(ctx, "approve", id, query, id, reviewerID, chargeID)
}

// SetPaymentFailed records a failed capture. Review status stays pending so
// the decision can be retried after the processor recovers.
func (s *ListingStore) SetPaymentFailed(ctx context.Context, id string) error {
	const query = `
		UPDATE listings
		SET payment_status = 'failed', updated_at = NOW()
		WHERE id = $1 AND payment_status = 'authorized'`
	return s.guardedUpdate(ctx, "fail payment", id, query, id)
}

// SetRejected closes the review as rejected with the given payment outcome.
// The payment outcome must keep the rejected invariant: voided, failed, or
// refunded.
func (s *ListingStore) SetRejected(ctx context.Context, id, reviewerID, reason string, payment domain.PaymentStatus) error {
	switch payment {
	case domain.PaymentStatusVoided, domain.PaymentStatusFailed, domain.PaymentStatusRefunded:
	default:
		return fmt.Errorf("postgres: reject listing %s: payment status %q not allowed: %w",
			id, payment, domain.ErrStatusConflict)
	}

	const query = `
		UPDATE listings
		SET review_status = 'rejected', payment_status = $2,
		    reviewer_id = $3, reviewed_at = NOW(), reject_reason = $4, updated_at = NOW()
		WHERE id = $1 AND review_status IN ('pending')`
	return s.guardedUpdate(ctx, "reject", id, query, id, payment, reviewerID, reason)
}

// SetDisabled takes an approved listing off sale. The captured payment is
// untouched; disabling is a sales switch, not a payment event.
func (s *ListingStore) SetDisabled(ctx context.Context, id string) error {
	const query = `
		UPDATE listings
		SET review_status = 'disabled', updated_at = NOW()
		WHERE id = $1 AND review_status = 'approved'`
	return s.guardedUpdate(ctx, "disable", id, query, id)
}

// SetDisabledRefunded takes a live listing off sale and records the refunded
// listing fee in one statement.
func (s *ListingStore) SetDisabledRefunded(ctx context.Context, id, reviewerID string) error {
	const query = `
		UPDATE listings
		SET review_status = 'disabled', payment_status = 'refunded',
		    reviewer_id = $2, updated_at = NOW()
		WHERE id = $1 AND review_status = 'approved' AND payment_status = 'captured'`
	return s.guardedUpdate(ctx, "disable and refund", id, query, id, reviewerID)
}

// SetCardIDs records the cards minted for the pack.
func (s *ListingStore) SetCardIDs(ctx context.Context, id string, cardIDs []string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE listings SET card_ids = $2, updated_at = NOW() WHERE id = $1`,
		id, cardIDs)
	if err != nil {
		return fmt.Errorf("postgres: set card ids for listing %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Compile-time interface check.
var _ domain.ListingStore = (*ListingStore)(nil)
