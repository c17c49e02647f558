package domain

import "time"

// ProcessorState is the payment processor's view of a reference, as reported
// by the processor itself. It is recorded verbatim for reconciliation and is
// deliberately distinct from the listing's local PaymentStatus.
type ProcessorState string

const (
	ProcessorStateAuthorized ProcessorState = "authorized"
	ProcessorStateCaptured   ProcessorState = "captured"
	ProcessorStateVoided     ProcessorState = "voided"
	ProcessorStateRefunded   ProcessorState = "refunded"
	ProcessorStateFailed     ProcessorState = "failed"
	ProcessorStateUnknown    ProcessorState = "unknown"
)

// PaymentAttempt is one recorded gateway call. Every authorize/capture/void/
// refund records an attempt regardless of whether the caller's own state
// update then succeeds, so a crash between the external call and the local
// commit can be reconciled from this log.
type PaymentAttempt struct {
	ID          int64
	Operation   string // authorize, capture, void, refund
	Reference   string
	ChargeID    string
	AmountCents int64
	Currency    string
	State       ProcessorState
	ErrDetail   string // processor error text, empty on success
	CreatedAt   time.Time
}

// Authorization is the successful result of an authorize call.
type Authorization struct {
	Reference string
	State     ProcessorState
}

// Capture is the successful result of a capture call.
type Capture struct {
	Reference string
	ChargeID  string
	State     ProcessorState
}

// Refund is the successful result of a refund call.
type Refund struct {
	ChargeID    string
	AmountCents int64
	State       ProcessorState
}
