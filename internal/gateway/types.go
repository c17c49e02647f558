// Package gateway wraps the external payment processor behind a stable
// interface. It handles money movement and status translation only; no
// business rules live here.
package gateway

import (
	"fmt"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
)

// Processor error codes, as reported in the API error body.
const (
	codeNotCapturable = "not_capturable"
	codeNotVoidable   = "not_voidable"
	codeNotRefundable = "not_refundable"
	codeNotFound      = "not_found"
	codeDeclined      = "declined"
)

// APIError is a structured error returned by the processor.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("processor: %s (%s, http %d)", e.Message, e.Code, e.Status)
}

// Unwrap maps well-known processor codes onto domain sentinels so callers
// can distinguish a non-fatal state mismatch from a real failure without
// parsing strings.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case codeNotCapturable:
		return domain.ErrNotCapturable
	case codeNotVoidable:
		return domain.ErrNotVoidable
	case codeNotRefundable:
		return domain.ErrNotRefundable
	case codeNotFound:
		return domain.ErrNotFound
	}
	return nil
}

// authorizationResponse is the processor's wire format for an authorization.
type authorizationResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// chargeResponse is the processor's wire format for a capture or refund.
type chargeResponse struct {
	Reference string `json:"reference"`
	ChargeID  string `json:"charge_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// translateState maps a processor status string to a domain.ProcessorState.
func translateState(status string) domain.ProcessorState {
	switch status {
	case "authorized":
		return domain.ProcessorStateAuthorized
	case "captured", "succeeded":
		return domain.ProcessorStateCaptured
	case "voided", "canceled":
		return domain.ProcessorStateVoided
	case "refunded":
		return domain.ProcessorStateRefunded
	case "failed", "declined":
		return domain.ProcessorStateFailed
	}
	return domain.ProcessorStateUnknown
}
