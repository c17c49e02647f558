package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/gateway"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/notify"
)

type reviewFixture struct {
	svc      *ReviewService
	listings *fakeListings
	proc     *fakeProcessor
	alerts   *fakeAlerter
	audit    *fakeAudit
}

func newReviewFixture(t *testing.T) *reviewFixture {
	t.Helper()
	listings := newFakeListings()
	proc := &fakeProcessor{}
	alerts := &fakeAlerter{}
	audit := &fakeAudit{}
	svc := NewReviewService(listings, proc, alerts, audit, &fakeBus{}, slog.Default())
	return &reviewFixture{svc: svc, listings: listings, proc: proc, alerts: alerts, audit: audit}
}

func pendingListing(fx *reviewFixture, id string) domain.Listing {
	l := domain.Listing{
		ID: id, OwnerID: "seller", Title: "Tour Bundle",
		PriceCents: 500, Currency: "USD", GoldPrice: 100,
		ReviewStatus:  domain.ReviewStatusPending,
		PaymentStatus: domain.PaymentStatusAuthorized,
		PaymentRef:    "auth-" + id,
	}
	fx.listings.put(l)
	return l
}

func TestApproveCapturesFee(t *testing.T) {
	ctx := context.Background()
	fx := newReviewFixture(t)
	pendingListing(fx, "l1")

	approved, err := fx.svc.Approve(ctx, "l1", "admin")
	require.NoError(t, err)
	require.Equal(t, domain.ReviewStatusApproved, approved.ReviewStatus)
	require.Equal(t, domain.PaymentStatusCaptured, approved.PaymentStatus)
	require.Equal(t, "admin", approved.ReviewerID)
	require.NotEmpty(t, approved.ChargeID)
	require.True(t, approved.Live())
	require.Equal(t, 1, fx.proc.captures)
	require.Equal(t, 1, fx.audit.count("listing.approved"))

	detail := fx.audit.last("listing.approved").Detail
	require.Equal(t, "pending", detail["from"])
	require.Equal(t, "approved", detail["to"])
}

func TestApproveTwiceReportsAlreadyCaptured(t *testing.T) {
	ctx := context.Background()
	fx := newReviewFixture(t)
	pendingListing(fx, "l1")

	first, err := fx.svc.Approve(ctx, "l1", "admin")
	require.NoError(t, err)

	// The repeat is a no-op: the fee is captured once and the caller is
	// told the listing is already captured, not that the review is closed.
	again, err := fx.svc.Approve(ctx, "l1", "admin")
	require.ErrorIs(t, err, domain.ErrAlreadyCaptured)
	require.NotErrorIs(t, err, domain.ErrReviewClosed)
	require.Equal(t, 1, fx.proc.captures)
	require.Equal(t, first.ChargeID, again.ChargeID)
	require.Equal(t, domain.ReviewStatusApproved, again.ReviewStatus)
	require.Equal(t, 1, fx.audit.count("listing.approved"))
}

func TestApproveClosedReview(t *testing.T) {
	ctx := context.Background()
	fx := newReviewFixture(t)
	l := pendingListing(fx, "l1")
	l.ReviewStatus = domain.ReviewStatusRejected
	l.PaymentStatus = domain.PaymentStatusVoided
	fx.listings.put(l)

	_, err := fx.svc.Approve(ctx, "l1", "admin")
	require.ErrorIs(t, err, domain.ErrReviewClosed)
	require.Zero(t, fx.proc.captures)
}

func TestApproveCaptureFailureLeavesPending(t *testing.T) {
	ctx := context.Background()
	fx := newReviewFixture(t)
	pendingListing(fx, "l1")
	fx.proc.captureErr = &gateway.APIError{Status: 402, Code: "declined", Message: "card declined"}

	_, err := fx.svc.Approve(ctx, "l1", "admin")
	require.Error(t, err)

	// Never approved-but-uncaptured: review stays pending, payment failed.
	cur := fx.listings.get("l1")
	require.Equal(t, domain.ReviewStatusPending, cur.ReviewStatus)
	require.Equal(t, domain.PaymentStatusFailed, cur.PaymentStatus)
	require.Equal(t, 1, fx.audit.count("listing.capture_failed"))
}

func TestApproveRacedCaptureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	fx := newReviewFixture(t)
	pendingListing(fx, "l1")

	// A concurrent approval captured the hold between our read and our
	// capture call: the processor refuses, and the listing is already
	// approved when we re-read.
	fx.proc.captureErr = &gateway.APIError{Status: 409, Code: "not_capturable", Message: "already captured"}
	fx.proc.onCapture = func() {
		_ = fx.listings.SetApprovedCaptured(ctx, "l1", "other-admin", "ch-race")
	}

	approved, err := fx.svc.Approve(ctx, "l1", "admin")
	require.NoError(t, err)
	require.Equal(t, domain.ReviewStatusApproved, approved.ReviewStatus)
	require.Equal(t, "other-admin", approved.ReviewerID)
	require.Equal(t, "ch-race", approved.ChargeID)
}

func TestRejectVoidsHold(t *testing.T) {
	ctx := context.Background()
	fx := newReviewFixture(t)
	pendingListing(fx, "l1")

	require.NoError(t, fx.svc.Reject(ctx, "l1", "admin", "low quality"))

	cur := fx.listings.get("l1")
	require.Equal(t, domain.ReviewStatusRejected, cur.ReviewStatus)
	require.Equal(t, domain.PaymentStatusVoided, cur.PaymentStatus)

	detail := fx.audit.last("listing.rejected").Detail
	require.Equal(t, "pending", detail["from"])
	require.Equal(t, "rejected", detail["to"])
	require.Equal(t, "low quality", cur.RejectReason)
	require.Equal(t, 1, fx.proc.voids)
	require.Empty(t, cur.ConsistencyViolations())
}

func TestRejectVoidFailureStillRejects(t *testing.T) {
	ctx := context.Background()
	fx := newReviewFixture(t)
	pendingListing(fx, "l1")
	fx.proc.voidErr = errors.New("processor down")

	require.NoError(t, fx.svc.Reject(ctx, "l1", "admin", ""))

	// The review closes anyway; the dangling hold is flagged for operators.
	cur := fx.listings.get("l1")
	require.Equal(t, domain.ReviewStatusRejected, cur.ReviewStatus)
	require.Equal(t, domain.PaymentStatusFailed, cur.PaymentStatus)
	require.Equal(t, 1, fx.alerts.count(notify.EventVoidFailed))
}

func TestRejectClosedReview(t *testing.T) {
	ctx := context.Background()
	fx := newReviewFixture(t)
	l := pendingListing(fx, "l1")
	l.ReviewStatus = domain.ReviewStatusApproved
	l.PaymentStatus = domain.PaymentStatusCaptured
	fx.listings.put(l)

	err := fx.svc.Reject(ctx, "l1", "admin", "")
	require.ErrorIs(t, err, domain.ErrReviewClosed)
	require.Zero(t, fx.proc.voids)
}

func TestDisableWithRefund(t *testing.T) {
	ctx := context.Background()
	fx := newReviewFixture(t)
	pendingListing(fx, "l1")
	_, err := fx.svc.Approve(ctx, "l1", "admin")
	require.NoError(t, err)

	require.NoError(t, fx.svc.DisableWithRefund(ctx, "l1", "admin"))

	cur := fx.listings.get("l1")
	require.Equal(t, domain.ReviewStatusDisabled, cur.ReviewStatus)
	require.Equal(t, domain.PaymentStatusRefunded, cur.PaymentStatus)
	require.Equal(t, 1, fx.proc.refunds)
}

func TestDisableWithRefundRequiresCaptured(t *testing.T) {
	ctx := context.Background()
	fx := newReviewFixture(t)
	pendingListing(fx, "l1")

	err := fx.svc.DisableWithRefund(ctx, "l1", "admin")
	require.ErrorIs(t, err, domain.ErrStatusConflict)
	require.Zero(t, fx.proc.refunds)
}

func TestDisableWithRefundFailureAlerts(t *testing.T) {
	ctx := context.Background()
	fx := newReviewFixture(t)
	pendingListing(fx, "l1")
	_, err := fx.svc.Approve(ctx, "l1", "admin")
	require.NoError(t, err)

	fx.proc.refundErr = &gateway.APIError{Status: 409, Code: "not_refundable", Message: "already refunded"}

	err = fx.svc.DisableWithRefund(ctx, "l1", "admin")
	require.ErrorIs(t, err, domain.ErrNotRefundable)
	require.Equal(t, 1, fx.alerts.count(notify.EventRefundFailed))

	// Listing untouched.
	cur := fx.listings.get("l1")
	require.Equal(t, domain.ReviewStatusApproved, cur.ReviewStatus)
	require.Equal(t, domain.PaymentStatusCaptured, cur.PaymentStatus)
}

func TestCheckConsistency(t *testing.T) {
	ctx := context.Background()
	fx := newReviewFixture(t)

	pendingListing(fx, "ok")

	// Seed a violating pair directly, the way a crash between capture and
	// approval would leave it.
	broken := pendingListing(fx, "broken")
	broken.PaymentStatus = domain.PaymentStatusCaptured
	fx.listings.put(broken)

	issues, err := fx.svc.CheckConsistency(ctx, domain.ListOpts{Limit: 100})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, "broken", issues[0].ListingID)
	require.NotEmpty(t, issues[0].Violations)
	require.Equal(t, 1, fx.alerts.count(notify.EventConsistencyViolation))

	// A clean scan reports nothing.
	fixed := fx.listings.get("broken")
	fixed.ReviewStatus = domain.ReviewStatusApproved
	fx.listings.put(fixed)

	issues, err = fx.svc.CheckConsistency(ctx, domain.ListOpts{Limit: 100})
	require.NoError(t, err)
	require.Empty(t, issues)
}
