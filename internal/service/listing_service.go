package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/gateway"
)

// ListingService manages pack listings: creation with fee authorization and
// card minting, the review queue, and gold purchases of approved packs.
type ListingService struct {
	events

	listings  domain.ListingStore
	economy   domain.EconomyStore
	locks     domain.LockManager
	processor gateway.Processor
	minter    *MintService
	paylog    domain.PaymentLogStore
	currency  string
	now       func() time.Time
}

// NewListingService constructs a ListingService.
func NewListingService(
	listings domain.ListingStore,
	economy domain.EconomyStore,
	locks domain.LockManager,
	processor gateway.Processor,
	minter *MintService,
	paylog domain.PaymentLogStore,
	currency string,
	audit domain.AuditStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *ListingService {
	if currency == "" {
		currency = "USD"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ListingService{
		events: events{
			audit:  audit,
			bus:    bus,
			logger: logger.With("component", "listing_service"),
		},
		listings:  listings,
		economy:   economy,
		locks:     locks,
		processor: processor,
		minter:    minter,
		paylog:    paylog,
		currency:  currency,
		now:       time.Now,
	}
}

// CreateInput describes a new pack listing.
type CreateInput struct {
	OwnerID     string
	Title       string
	FeeCents    int64
	GoldPrice   int64
	TemplateIDs []string
}

// Create authorizes the listing fee, records the listing pending review, and
// mints the pack's cards to the seller. If any mint is denied the
// authorization is voided, partially minted cards are destroyed, and the
// denial reason is returned to the caller.
func (s *ListingService) Create(ctx context.Context, in CreateInput) (domain.Listing, error) {
	if in.OwnerID == "" {
		return domain.Listing{}, fmt.Errorf("service: create listing: owner is required")
	}
	if in.FeeCents <= 0 {
		return domain.Listing{}, fmt.Errorf("service: create listing: fee must be positive")
	}
	if in.GoldPrice <= 0 {
		return domain.Listing{}, fmt.Errorf("service: create listing: gold price must be positive")
	}
	if len(in.TemplateIDs) == 0 {
		return domain.Listing{}, fmt.Errorf("service: create listing: at least one template is required")
	}

	id := uuid.NewString()
	auth, err := s.processor.Authorize(ctx, in.FeeCents, s.currency, map[string]string{
		"listing_id": id,
		"owner_id":   in.OwnerID,
	})
	if err != nil {
		return domain.Listing{}, fmt.Errorf("service: create listing: authorize fee: %w", err)
	}

	now := s.now().UTC()
	listing := domain.Listing{
		ID:            id,
		OwnerID:       in.OwnerID,
		Title:         in.Title,
		PriceCents:    in.FeeCents,
		Currency:      s.currency,
		GoldPrice:     in.GoldPrice,
		TemplateIDs:   append([]string(nil), in.TemplateIDs...),
		ReviewStatus:  domain.ReviewStatusPending,
		PaymentStatus: domain.PaymentStatusAuthorized,
		PaymentRef:    auth.Reference,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.listings.Create(ctx, listing); err != nil {
		s.voidBestEffort(ctx, auth.Reference, "listing create failed")
		return domain.Listing{}, fmt.Errorf("service: create listing: %w", err)
	}

	cardIDs, denied, err := s.mintPack(ctx, listing)
	if err != nil || denied != "" {
		s.unwind(ctx, listing, cardIDs)
		if err != nil {
			return domain.Listing{}, fmt.Errorf("service: create listing: mint pack: %w", err)
		}
		s.record(ctx, "listing.mint_denied", in.OwnerID, id, map[string]any{"reason": string(denied)})
		return domain.Listing{}, fmt.Errorf("service: create listing: mint denied: %s", denied)
	}

	if err := s.listings.SetCardIDs(ctx, id, cardIDs); err != nil {
		s.unwind(ctx, listing, cardIDs)
		return domain.Listing{}, fmt.Errorf("service: create listing: record cards: %w", err)
	}
	listing.CardIDs = cardIDs

	s.record(ctx, "listing.created", in.OwnerID, id, map[string]any{
		"fee_cents":  in.FeeCents,
		"gold_price": in.GoldPrice,
		"cards":      len(cardIDs),
	})
	s.publish(ctx, "listing.created", id)

	return listing, nil
}

// mintPack mints one card per template to the seller. Returns the ids minted
// so far together with the first denial reason, if any.
func (s *ListingService) mintPack(ctx context.Context, l domain.Listing) ([]string, domain.DenyReason, error) {
	cardIDs := make([]string, 0, len(l.TemplateIDs))
	for _, tplID := range l.TemplateIDs {
		res, err := s.minter.Mint(ctx, MintInput{
			OwnerID:      l.OwnerID,
			TemplateID:   tplID,
			Provenance:   domain.ProvenanceListing,
			ProvenanceID: l.ID,
		})
		if err != nil {
			return cardIDs, "", err
		}
		if !res.Allowed() {
			return cardIDs, res.Denied, nil
		}
		cardIDs = append(cardIDs, res.Card.ID)
	}
	return cardIDs, "", nil
}

// unwind rolls back a half-created listing: void the fee hold, destroy any
// cards already minted, and mark the listing rejected so it never reaches
// the review queue. All steps are best-effort and logged on failure.
func (s *ListingService) unwind(ctx context.Context, l domain.Listing, cardIDs []string) {
	s.voidBestEffort(ctx, l.PaymentRef, "listing unwound")
	for _, cardID := range cardIDs {
		if err := s.minter.Destroy(ctx, cardID, l.OwnerID); err != nil {
			s.logger.ErrorContext(ctx, "unwind card destroy failed",
				"listing_id", l.ID, "card_id", cardID, "error", err)
		}
	}
	if err := s.listings.SetRejected(ctx, l.ID, "system", "creation unwound", domain.PaymentStatusVoided); err != nil {
		s.logger.ErrorContext(ctx, "unwind listing reject failed", "listing_id", l.ID, "error", err)
	}
}

func (s *ListingService) voidBestEffort(ctx context.Context, reference, why string) {
	if err := s.processor.Void(ctx, reference); err != nil {
		s.logger.ErrorContext(ctx, "void failed, reconcile manually",
			"reference", reference, "why", why, "error", err)
	}
}

// Get returns a listing by id.
func (s *ListingService) Get(ctx context.Context, id string) (domain.Listing, error) {
	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("service: get listing: %w", err)
	}
	return l, nil
}

// PendingQueue returns listings awaiting review, oldest first. The queue is
// read straight from storage so it survives restarts.
func (s *ListingService) PendingQueue(ctx context.Context, opts domain.ListOpts) ([]domain.Listing, error) {
	listings, err := s.listings.ListByReviewStatus(ctx, domain.ReviewStatusPending, opts)
	if err != nil {
		return nil, fmt.Errorf("service: pending queue: %w", err)
	}
	return listings, nil
}

// Purchase sells an approved pack to the buyer: the pack's cards change
// owner and the gold price moves buyer to seller in one transaction, after
// which the listing leaves sale. A per-listing lock serializes concurrent
// buyers; losers see ErrListingNotLive.
func (s *ListingService) Purchase(ctx context.Context, listingID, buyerID string) (domain.Listing, error) {
	var bought domain.Listing
	err := s.locks.WithLock(ctx, "listing:"+listingID, func(ctx context.Context) error {
		l, err := s.listings.GetByID(ctx, listingID)
		if err != nil {
			return err
		}
		if !l.Live() {
			return domain.ErrListingNotLive
		}
		if l.OwnerID == buyerID {
			return fmt.Errorf("buyer owns the listing: %w", domain.ErrUnauthorized)
		}

		err = s.economy.InTx(ctx, func(tx domain.EconomyTx) error {
			if err := tx.AdjustGold(ctx, buyerID, -l.GoldPrice); err != nil {
				return err
			}
			if err := tx.AdjustGold(ctx, l.OwnerID, l.GoldPrice); err != nil {
				return err
			}
			for _, cardID := range l.CardIDs {
				if err := tx.TransferCard(ctx, cardID, l.OwnerID, buyerID); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		if err := s.listings.SetDisabled(ctx, listingID); err != nil {
			// Cards and gold already moved; the listing must leave sale.
			s.logger.ErrorContext(ctx, "disable after purchase failed, reconcile manually",
				"listing_id", listingID, "error", err)
		}
		bought = l
		return nil
	})
	if err != nil {
		return domain.Listing{}, fmt.Errorf("service: purchase listing %s: %w", listingID, err)
	}

	s.record(ctx, "listing.purchased", buyerID, listingID, map[string]any{
		"seller":     bought.OwnerID,
		"gold_price": bought.GoldPrice,
		"cards":      len(bought.CardIDs),
	})
	s.publish(ctx, "listing.purchased", listingID)

	bought.ReviewStatus = domain.ReviewStatusDisabled
	return bought, nil
}

// PaymentHistory returns the reconciliation log rows for the listing's fee.
func (s *ListingService) PaymentHistory(ctx context.Context, listingID string) ([]domain.PaymentAttempt, error) {
	l, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("service: payment history: %w", err)
	}
	attempts, err := s.paylog.ListByReference(ctx, l.PaymentRef)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("service: payment history: %w", err)
	}
	return attempts, nil
}
