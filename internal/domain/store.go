package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// ListingStore persists pack listings. Transition methods are guarded
// compare-and-sets: they only apply when the current status pair matches the
// stated precondition and return ErrStatusConflict otherwise, so the joint
// review/payment invariants hold under concurrent reviewers.
type ListingStore interface {
	Create(ctx context.Context, l Listing) error
	GetByID(ctx context.Context, id string) (Listing, error)
	// ListByReviewStatus is the source of truth for the review queue; no
	// in-memory pending list survives a restart.
	ListByReviewStatus(ctx context.Context, status ReviewStatus, opts ListOpts) ([]Listing, error)

	// SetApprovedCaptured atomically moves pending/authorized to
	// approved/captured, recording reviewer, time, and charge id.
	SetApprovedCaptured(ctx context.Context, id, reviewerID, chargeID string) error
	// SetPaymentFailed marks a failed capture, leaving review status pending.
	SetPaymentFailed(ctx context.Context, id string) error
	// SetRejected closes the review with the given payment outcome, which
	// must be one of voided, failed, or refunded.
	SetRejected(ctx context.Context, id, reviewerID, reason string, payment PaymentStatus) error
	// SetDisabled takes an approved listing off sale.
	SetDisabled(ctx context.Context, id string) error
	// SetDisabledRefunded atomically takes an approved+captured listing off
	// sale and records the refunded listing fee.
	SetDisabledRefunded(ctx context.Context, id, reviewerID string) error
	// SetCardIDs records the cards minted for the pack at creation time.
	SetCardIDs(ctx context.Context, id string, cardIDs []string) error
}

// TradeStore persists trade proposals. Settlement mutations happen through
// EconomyStore, never here.
type TradeStore interface {
	Create(ctx context.Context, t Trade) error
	GetByID(ctx context.Context, id string) (Trade, error)
	ListByParticipant(ctx context.Context, userID string, opts ListOpts) ([]Trade, error)
	// ListExpiredPending returns pending trades whose window has passed,
	// oldest first, for the sweeper.
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]Trade, error)
}

// EconomyTx groups the mutations that must commit or roll back as one unit:
// trade status transitions, card ownership transfers, and gold deltas. It is
// only ever obtained through EconomyStore.InTx.
type EconomyTx interface {
	// GetTradeForUpdate re-reads the trade with a row lock inside the
	// transaction. Callers must never trust a pre-transaction read.
	GetTradeForUpdate(ctx context.Context, id string) (Trade, error)
	// CloseTrade transitions the trade from pending to the given terminal
	// status. Returns ErrTradeNotPending if the trade already left pending.
	CloseTrade(ctx context.Context, id string, to TradeStatus, reason string) error
	// TransferCard moves a card between owners. Returns ErrCardNotOwned if
	// fromOwner no longer holds the card.
	TransferCard(ctx context.Context, cardID, fromOwner, toOwner string) error
	// AdjustGold applies a signed delta to a balance. Returns
	// ErrInsufficientGold if the result would be negative.
	AdjustGold(ctx context.Context, userID string, delta int64) error
}

// EconomyStore runs fn inside one storage transaction. If fn returns an
// error the transaction rolls back and no mutation is observable.
type EconomyStore interface {
	InTx(ctx context.Context, fn func(tx EconomyTx) error) error
}

// SupplyStore is the supply ledger: a single atomic check-and-increment per
// mint across the global and (where applicable) per-template rows.
type SupplyStore interface {
	TryMint(ctx context.Context, req MintRequest) (MintDecision, error)
	Counts(ctx context.Context, epoch string) ([]SupplyCount, error)
}

// CardStore persists minted cards outside of settlement transactions.
type CardStore interface {
	Create(ctx context.Context, c Card) error
	GetByID(ctx context.Context, id string) (Card, error)
	ListByOwner(ctx context.Context, ownerID string, opts ListOpts) ([]Card, error)
	// Destroy removes a card at its owner's explicit request. Returns
	// ErrCardNotOwned if ownerID does not hold the card.
	Destroy(ctx context.Context, id, ownerID string) error
}

// BalanceStore reads and seeds gold balances. Settlement-time deltas go
// through EconomyTx instead.
type BalanceStore interface {
	Get(ctx context.Context, userID string) (int64, error)
	Deposit(ctx context.Context, userID string, amount int64) error
}

// TemplateStore is the read-only catalog registry: which templates exist,
// their tier, and their per-template cap.
type TemplateStore interface {
	GetByID(ctx context.Context, id string) (CardTemplate, error)
}

// PaymentLogStore is the gateway's reconciliation log.
type PaymentLogStore interface {
	Record(ctx context.Context, attempt PaymentAttempt) error
	ListByReference(ctx context.Context, reference string) ([]PaymentAttempt, error)
}

// AuditEntry is one immutable audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	ActorID   string
	TargetID  string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists the append-only audit trail. Callers treat Log as
// fire-and-forget: a logging failure never fails the primary operation.
type AuditStore interface {
	Log(ctx context.Context, event, actorID, targetID string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

// LockManager provides process-spanning mutual exclusion keyed by a
// canonical resource id.
type LockManager interface {
	// Acquire takes the lock or returns ErrLockHeld immediately. The
	// returned unlock function is safe to call more than once.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
	// WithLock blocks (bounded) for the lock, runs fn holding it, and
	// releases on every exit path. Acquisition timeout returns ErrLockBusy,
	// a retryable condition.
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// MintLimiter enforces the per-user daily scarce-mint allowance with a
// dedicated counter rather than scanning audit payloads.
type MintLimiter interface {
	// AllowDaily counts one mint attempt for userID today and reports
	// whether it stays within limit.
	AllowDaily(ctx context.Context, userID string, limit int64) (bool, error)
}

// SignalBus broadcasts engine events for dashboards and monitors. Delivery
// is best-effort; the economy never depends on it.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
