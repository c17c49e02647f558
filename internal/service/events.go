package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
)

// events bundles the fire-and-forget side channels every service carries:
// the audit trail and the realtime signal bus. Failures on either are logged
// and never propagate into the primary operation's result.
type events struct {
	audit  domain.AuditStore
	bus    domain.SignalBus
	logger *slog.Logger
}

func (e events) record(ctx context.Context, event, actorID, targetID string, detail map[string]any) {
	if e.audit == nil {
		return
	}
	if err := e.audit.Log(ctx, event, actorID, targetID, detail); err != nil {
		e.logger.WarnContext(ctx, "audit write failed", "event", event, "target", targetID, "error", err)
	}
}

func (e events) publish(ctx context.Context, event, targetID string) {
	if e.bus == nil {
		return
	}
	payload, err := json.Marshal(map[string]string{
		"type": event,
		"id":   targetID,
		"at":   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	if err := e.bus.Publish(ctx, event, payload); err != nil {
		e.logger.WarnContext(ctx, "signal publish failed", "event", event, "target", targetID, "error", err)
	}
}
