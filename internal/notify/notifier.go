// Package notify delivers operator alerts for conditions the engine cannot
// resolve on its own: failed voids and refunds awaiting manual
// reconciliation, joint-state violations, and exhausted supply. Alerts fan
// out to every configured channel and can be filtered by event type.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Event types the engine raises.
const (
	EventVoidFailed           = "payment.void_failed"
	EventRefundFailed         = "payment.refund_failed"
	EventConsistencyViolation = "consistency.violation"
	EventSupplyExhausted      = "supply.exhausted"
)

// Channel is one delivery target for operator alerts.
type Channel interface {
	// Deliver sends the alert with the given title and body.
	Deliver(ctx context.Context, title, body string) error
	// Name identifies the channel in logs (e.g. "discord").
	Name() string
}

// Notifier fans alerts out to all configured channels. When an event filter
// is configured, Alert drops events outside the set; Page bypasses the
// filter for conditions that always need eyes.
type Notifier struct {
	channels []Channel
	allowed  map[string]bool
	logger   *slog.Logger
}

// New creates a Notifier. An empty events slice allows every event type.
func New(channels []Channel, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		channels: channels,
		allowed:  allowed,
		logger:   logger.With(slog.String("component", "notifier")),
	}
}

// Alert delivers the event to all channels if it passes the configured
// filter.
func (n *Notifier) Alert(ctx context.Context, event, title, body string) error {
	if len(n.allowed) > 0 && !n.allowed[event] {
		n.logger.DebugContext(ctx, "alert filtered", slog.String("event", event))
		return nil
	}
	return n.deliver(ctx, title, body)
}

// Page delivers to all channels regardless of the filter.
func (n *Notifier) Page(ctx context.Context, title, body string) error {
	return n.deliver(ctx, title, body)
}

// deliver attempts every channel; one channel failing does not stop the
// rest.
func (n *Notifier) deliver(ctx context.Context, title, body string) error {
	if len(n.channels) == 0 {
		return nil
	}

	var errs []error
	for _, ch := range n.channels {
		if err := ch.Deliver(ctx, title, body); err != nil {
			n.logger.ErrorContext(ctx, "alert delivery failed",
				slog.String("channel", ch.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "alert delivered",
			slog.String("channel", ch.Name()),
			slog.String("title", title),
		)
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: deliver: %w", errors.Join(errs...))
	}
	return nil
}
