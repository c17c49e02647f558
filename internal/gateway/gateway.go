package gateway

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
)

// Processor is the capability surface the rest of the engine sees. The only
// path to the external processor is through these five verbs.
type Processor interface {
	Authorize(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (domain.Authorization, error)
	Capture(ctx context.Context, reference string) (domain.Capture, error)
	Void(ctx context.Context, reference string) error
	Refund(ctx context.Context, chargeID string, amountCents int64) (domain.Refund, error)
	Status(ctx context.Context, reference string) (domain.ProcessorState, error)
}

// Gateway implements Processor on top of the REST client, recording every
// call's outcome to the payment log before the caller commits its own state.
// A crash between the external call and the local commit is then
// reconcilable from the log plus a Status query.
type Gateway struct {
	client *Client
	log    domain.PaymentLogStore
	logger *slog.Logger
}

// New creates a Gateway around the given client and reconciliation log.
func New(client *Client, log domain.PaymentLogStore, logger *slog.Logger) *Gateway {
	return &Gateway{
		client: client,
		log:    log,
		logger: logger.With(slog.String("component", "gateway")),
	}
}

// record appends the attempt to the payment log. The attempt record must
// survive independent of the caller's transaction, so failures here are
// surfaced loudly in logs but never override the processor outcome.
func (g *Gateway) record(ctx context.Context, a domain.PaymentAttempt) {
	if err := g.log.Record(ctx, a); err != nil {
		g.logger.ErrorContext(ctx, "payment log write failed, reconcile manually",
			slog.String("operation", a.Operation),
			slog.String("reference", a.Reference),
			slog.String("state", string(a.State)),
			slog.String("error", err.Error()),
		)
	}
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Authorize places a hold for the given amount.
func (g *Gateway) Authorize(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (domain.Authorization, error) {
	resp, err := g.client.Authorize(ctx, amountCents, currency, metadata)

	state := translateState(resp.Status)
	if err != nil {
		state = domain.ProcessorStateFailed
	}
	g.record(ctx, domain.PaymentAttempt{
		Operation:   "authorize",
		Reference:   resp.Reference,
		AmountCents: amountCents,
		Currency:    currency,
		State:       state,
		ErrDetail:   errDetail(err),
	})

	if err != nil {
		return domain.Authorization{}, err
	}
	return domain.Authorization{Reference: resp.Reference, State: state}, nil
}

// Capture finalizes the charge on an authorized reference. A reference the
// processor reports as not capturable maps to domain.ErrNotCapturable: a
// non-fatal mismatch, not corrupted money movement.
func (g *Gateway) Capture(ctx context.Context, reference string) (domain.Capture, error) {
	resp, err := g.client.Capture(ctx, reference)

	state := translateState(resp.Status)
	if err != nil {
		state = capturedStateOnError(err)
	}
	g.record(ctx, domain.PaymentAttempt{
		Operation:   "capture",
		Reference:   reference,
		ChargeID:    resp.ChargeID,
		AmountCents: resp.Amount,
		State:       state,
		ErrDetail:   errDetail(err),
	})

	if err != nil {
		return domain.Capture{}, err
	}
	return domain.Capture{Reference: reference, ChargeID: resp.ChargeID, State: state}, nil
}

// Void releases a hold. A reference the processor reports as not voidable
// maps to domain.ErrNotVoidable.
func (g *Gateway) Void(ctx context.Context, reference string) error {
	resp, err := g.client.Void(ctx, reference)

	state := translateState(resp.Status)
	if err != nil {
		state = domain.ProcessorStateUnknown
	}
	g.record(ctx, domain.PaymentAttempt{
		Operation: "void",
		Reference: reference,
		State:     state,
		ErrDetail: errDetail(err),
	})

	return err
}

// Refund returns captured funds, fully when amountCents is zero.
func (g *Gateway) Refund(ctx context.Context, chargeID string, amountCents int64) (domain.Refund, error) {
	resp, err := g.client.Refund(ctx, chargeID, amountCents)

	state := translateState(resp.Status)
	if err != nil {
		state = domain.ProcessorStateUnknown
	}
	g.record(ctx, domain.PaymentAttempt{
		Operation:   "refund",
		ChargeID:    chargeID,
		AmountCents: resp.Amount,
		State:       state,
		ErrDetail:   errDetail(err),
	})

	if err != nil {
		return domain.Refund{}, err
	}
	return domain.Refund{ChargeID: chargeID, AmountCents: resp.Amount, State: state}, nil
}

// Status queries the processor's view of a reference without recording an
// attempt; it moves no money.
func (g *Gateway) Status(ctx context.Context, reference string) (domain.ProcessorState, error) {
	return g.client.Status(ctx, reference)
}

// capturedStateOnError picks the recorded state for a failed capture. A
// state-mismatch rejection means the processor's terminal state is simply
// not "capturable"; anything else is unknown until reconciled.
func capturedStateOnError(err error) domain.ProcessorState {
	if errors.Is(err, domain.ErrNotCapturable) {
		return domain.ProcessorStateUnknown
	}
	return domain.ProcessorStateFailed
}

// Compile-time interface check.
var _ Processor = (*Gateway)(nil)
