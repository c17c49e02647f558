package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/gateway"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/notify"
)

// Alerter is the slice of notify.Notifier the review service needs.
type Alerter interface {
	Alert(ctx context.Context, event, title, body string) error
}

// ReviewService executes admin decisions on listings. Every decision couples
// a review transition with its payment consequence: approve captures the fee,
// reject releases the hold, disable-with-refund returns a captured fee.
type ReviewService struct {
	events

	listings  domain.ListingStore
	processor gateway.Processor
	alerts    Alerter
	now       func() time.Time
}

// NewReviewService constructs a ReviewService.
func NewReviewService(
	listings domain.ListingStore,
	processor gateway.Processor,
	alerts Alerter,
	audit domain.AuditStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *ReviewService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewService{
		events: events{
			audit:  audit,
			bus:    bus,
			logger: logger.With("component", "review_service"),
		},
		listings:  listings,
		processor: processor,
		alerts:    alerts,
		now:       time.Now,
	}
}

// Approve captures the listing fee and marks the listing approved. The two
// effects commit together: a failed capture leaves the listing pending with
// payment failed, never approved-but-uncaptured. A decision that raced an
// identical one is reported as already applied, not as an error.
func (s *ReviewService) Approve(ctx context.Context, listingID, reviewerID string) (domain.Listing, error) {
	l, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("service: approve listing: %w", err)
	}
	if l.ReviewStatus != domain.ReviewStatusPending {
		// A repeated approval of an already-settled listing is reported as
		// such, not folded into the generic closed-review conflict.
		if l.ReviewStatus == domain.ReviewStatusApproved && l.PaymentStatus == domain.PaymentStatusCaptured {
			return l, fmt.Errorf("service: approve listing %s: %w", listingID, domain.ErrAlreadyCaptured)
		}
		return domain.Listing{}, fmt.Errorf("service: approve listing %s: %w", listingID, domain.ErrReviewClosed)
	}
	if l.PaymentStatus != domain.PaymentStatusAuthorized {
		return domain.Listing{}, fmt.Errorf("service: approve listing %s: payment %s: %w",
			listingID, l.PaymentStatus, domain.ErrStatusConflict)
	}

	capture, err := s.processor.Capture(ctx, l.PaymentRef)
	if err != nil {
		if errors.Is(err, domain.ErrNotCapturable) {
			// The hold may have been captured by a racing approval. Re-read
			// before treating this as a payment failure.
			cur, rerr := s.listings.GetByID(ctx, listingID)
			if rerr == nil && cur.PaymentStatus == domain.PaymentStatusCaptured {
				return cur, nil
			}
		}
		if ferr := s.listings.SetPaymentFailed(ctx, listingID); ferr != nil && !errors.Is(ferr, domain.ErrStatusConflict) {
			s.logger.ErrorContext(ctx, "mark payment failed errored",
				"listing_id", listingID, "error", ferr)
		}
		s.record(ctx, "listing.capture_failed", reviewerID, listingID, map[string]any{"error": err.Error()})
		return domain.Listing{}, fmt.Errorf("service: approve listing %s: capture: %w", listingID, err)
	}

	if err := s.listings.SetApprovedCaptured(ctx, listingID, reviewerID, capture.ChargeID); err != nil {
		// The fee is captured but the listing could not move. This is the
		// one seam the guarded update cannot close; leave a reconciliation
		// trail and surface the error.
		s.alert(ctx, notify.EventConsistencyViolation, "captured fee on unapproved listing",
			fmt.Sprintf("listing %s charge %s: %v", listingID, capture.ChargeID, err))
		return domain.Listing{}, fmt.Errorf("service: approve listing %s: %w", listingID, err)
	}

	s.record(ctx, "listing.approved", reviewerID, listingID, map[string]any{
		"from":      string(domain.ReviewStatusPending),
		"to":        string(domain.ReviewStatusApproved),
		"charge_id": capture.ChargeID,
	})
	s.publish(ctx, "listing.approved", listingID)

	return s.listings.GetByID(ctx, listingID)
}

// Reject closes the review and releases the fee hold. The void is attempted
// first; if the processor refuses, the listing is still rejected with the
// payment marked failed and operators are alerted to reconcile the hold.
func (s *ReviewService) Reject(ctx context.Context, listingID, reviewerID, reason string) error {
	l, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return fmt.Errorf("service: reject listing: %w", err)
	}
	if l.ReviewStatus != domain.ReviewStatusPending {
		return fmt.Errorf("service: reject listing %s: %w", listingID, domain.ErrReviewClosed)
	}
	if reason == "" {
		reason = "rejected by reviewer"
	}

	payment := domain.PaymentStatusVoided
	switch l.PaymentStatus {
	case domain.PaymentStatusAuthorized:
		if err := s.processor.Void(ctx, l.PaymentRef); err != nil {
			payment = domain.PaymentStatusFailed
			s.logger.ErrorContext(ctx, "void failed, reconcile manually",
				"listing_id", listingID, "reference", l.PaymentRef, "error", err)
			s.alert(ctx, notify.EventVoidFailed, "fee void failed",
				fmt.Sprintf("listing %s reference %s: %v", listingID, l.PaymentRef, err))
		}
	case domain.PaymentStatusFailed:
		payment = domain.PaymentStatusFailed
	default:
		return fmt.Errorf("service: reject listing %s: payment %s: %w",
			listingID, l.PaymentStatus, domain.ErrStatusConflict)
	}

	if err := s.listings.SetRejected(ctx, listingID, reviewerID, reason, payment); err != nil {
		return fmt.Errorf("service: reject listing %s: %w", listingID, err)
	}

	s.record(ctx, "listing.rejected", reviewerID, listingID, map[string]any{
		"from":    string(domain.ReviewStatusPending),
		"to":      string(domain.ReviewStatusRejected),
		"reason":  reason,
		"payment": string(payment),
	})
	s.publish(ctx, "listing.rejected", listingID)
	return nil
}

// DisableWithRefund takes an approved listing off sale and returns its
// captured fee. Used when a pack is pulled after approval for policy
// reasons.
func (s *ReviewService) DisableWithRefund(ctx context.Context, listingID, reviewerID string) error {
	l, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return fmt.Errorf("service: disable listing: %w", err)
	}
	if l.ReviewStatus != domain.ReviewStatusApproved || l.PaymentStatus != domain.PaymentStatusCaptured {
		return fmt.Errorf("service: disable listing %s: %w", listingID, domain.ErrStatusConflict)
	}

	if _, err := s.processor.Refund(ctx, l.ChargeID, l.PriceCents); err != nil {
		s.alert(ctx, notify.EventRefundFailed, "fee refund failed",
			fmt.Sprintf("listing %s charge %s: %v", listingID, l.ChargeID, err))
		return fmt.Errorf("service: disable listing %s: refund: %w", listingID, err)
	}

	if err := s.listings.SetDisabledRefunded(ctx, listingID, reviewerID); err != nil {
		s.alert(ctx, notify.EventConsistencyViolation, "refunded fee on live listing",
			fmt.Sprintf("listing %s charge %s: %v", listingID, l.ChargeID, err))
		return fmt.Errorf("service: disable listing %s: %w", listingID, err)
	}

	s.record(ctx, "listing.disabled_refunded", reviewerID, listingID, map[string]any{
		"from":      string(domain.ReviewStatusApproved),
		"to":        string(domain.ReviewStatusDisabled),
		"charge_id": l.ChargeID,
	})
	s.publish(ctx, "listing.disabled", listingID)
	return nil
}

// ConsistencyIssue is one joint-state violation found by CheckConsistency.
type ConsistencyIssue struct {
	ListingID  string
	Violations []string
}

// CheckConsistency scans listings for review/payment pairs that violate the
// joint invariants and alerts operators for each finding. Invoked by the
// reconciliation worker and the admin API.
func (s *ReviewService) CheckConsistency(ctx context.Context, opts domain.ListOpts) ([]ConsistencyIssue, error) {
	var issues []ConsistencyIssue
	for _, status := range []domain.ReviewStatus{
		domain.ReviewStatusPending,
		domain.ReviewStatusApproved,
		domain.ReviewStatusRejected,
		domain.ReviewStatusDisabled,
	} {
		listings, err := s.listings.ListByReviewStatus(ctx, status, opts)
		if err != nil {
			return nil, fmt.Errorf("service: check consistency: %w", err)
		}
		for _, l := range listings {
			if violations := l.ConsistencyViolations(); len(violations) > 0 {
				issues = append(issues, ConsistencyIssue{ListingID: l.ID, Violations: violations})
				s.alert(ctx, notify.EventConsistencyViolation, "listing state violation",
					fmt.Sprintf("listing %s: %s", l.ID, strings.Join(violations, "; ")))
			}
		}
	}
	if len(issues) > 0 {
		s.record(ctx, "consistency.violations", "system", "", map[string]any{"count": len(issues)})
	}
	return issues, nil
}

// alert notifies operators. Alert delivery failures are logged only.
func (s *ReviewService) alert(ctx context.Context, event, title, body string) {
	if s.alerts == nil {
		return
	}
	if err := s.alerts.Alert(ctx, event, title, body); err != nil {
		s.logger.WarnContext(ctx, "operator alert failed", "event", event, "error", err)
	}
}
