package domain

import "time"

// ReviewStatus tracks where a pack listing sits in the admin review flow.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusRejected ReviewStatus = "rejected"
	ReviewStatusDisabled ReviewStatus = "disabled"
)

// PaymentStatus tracks the listing fee's position in the payment lifecycle.
type PaymentStatus string

const (
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusCaptured   PaymentStatus = "captured"
	PaymentStatusVoided     PaymentStatus = "voided"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// Listing is a sellable card pack awaiting (or past) admin review. A listing
// is created pending/authorized and only becomes purchasable once the review
// is approved and the listing fee captured, as one atomic transition.
type Listing struct {
	ID            string
	OwnerID       string
	Title         string
	PriceCents    int64  // listing fee authorized against the owner
	Currency      string
	GoldPrice     int64    // in-game price buyers pay once the listing is live
	TemplateIDs   []string // card templates the pack mints at creation
	CardIDs       []string // cards minted for this pack, transferred on purchase
	ReviewStatus  ReviewStatus
	PaymentStatus PaymentStatus
	PaymentRef    string // processor authorization reference
	ChargeID      string // processor charge id, set on capture
	ReviewerID    string
	ReviewedAt    *time.Time
	RejectReason  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Live reports whether the listing may be purchased.
func (l Listing) Live() bool {
	return l.ReviewStatus == ReviewStatusApproved && l.PaymentStatus == PaymentStatusCaptured
}

// ConsistencyViolations re-derives the review/payment joint invariants and
// returns a human-readable description of each violated rule. An empty slice
// means the pair is consistent. Violations are reported, never auto-repaired.
func (l Listing) ConsistencyViolations() []string {
	var violations []string

	if l.PaymentStatus == PaymentStatusCaptured && l.ReviewStatus != ReviewStatusApproved {
		violations = append(violations,
			"payment captured but review status is "+string(l.ReviewStatus))
	}
	if l.ReviewStatus == ReviewStatusApproved && l.PaymentStatus != PaymentStatusCaptured {
		violations = append(violations,
			"review approved but payment status is "+string(l.PaymentStatus))
	}
	if l.ReviewStatus == ReviewStatusRejected {
		switch l.PaymentStatus {
		case PaymentStatusVoided, PaymentStatusFailed, PaymentStatusRefunded:
		default:
			violations = append(violations,
				"review rejected but payment status is "+string(l.PaymentStatus))
		}
	}

	return violations
}
