package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
)

// SupplyPolicy carries the issuance parameters resolved from configuration:
// the active epoch, per-tier global caps, which tiers are per-template
// capped, and the per-user daily allowance for those scarce tiers.
type SupplyPolicy struct {
	Epoch          string
	TierCaps       map[domain.Tier]int64
	ScarceTiers    map[domain.Tier]bool
	DailyScarceCap int64
}

// GlobalCap returns the configured cap for the tier, or 0 if the tier is
// unknown.
func (p SupplyPolicy) GlobalCap(tier domain.Tier) int64 {
	return p.TierCaps[domain.Tier(strings.ToLower(string(tier)))]
}

// Scarce reports whether the tier is per-template capped and subject to the
// daily per-user allowance.
func (p SupplyPolicy) Scarce(tier domain.Tier) bool {
	return p.ScarceTiers[domain.Tier(strings.ToLower(string(tier)))]
}

// MintService admits card creation against the supply ledger. Every card in
// circulation enters through Mint; there is no other creation path.
type MintService struct {
	events

	supply    domain.SupplyStore
	cards     domain.CardStore
	templates domain.TemplateStore
	limiter   domain.MintLimiter
	policy    SupplyPolicy
	now       func() time.Time
}

// NewMintService constructs a MintService.
func NewMintService(
	supply domain.SupplyStore,
	cards domain.CardStore,
	templates domain.TemplateStore,
	limiter domain.MintLimiter,
	policy SupplyPolicy,
	audit domain.AuditStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *MintService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MintService{
		events: events{
			audit:  audit,
			bus:    bus,
			logger: logger.With("component", "mint_service"),
		},
		supply:    supply,
		cards:     cards,
		templates: templates,
		limiter:   limiter,
		policy:    policy,
		now:       time.Now,
	}
}

// MintInput identifies who receives the card and from which template.
type MintInput struct {
	OwnerID      string
	TemplateID   string
	Provenance   domain.ProvenanceKind
	ProvenanceID string
}

// MintResult is the discriminated outcome of a mint attempt. A denial is a
// normal outcome, not an error: Card is nil and Denied carries the reason.
type MintResult struct {
	Card   *domain.Card
	Denied domain.DenyReason
}

// Allowed reports whether a card was created.
func (r MintResult) Allowed() bool { return r.Card != nil }

// Mint resolves the template, applies the per-user daily allowance for
// scarce tiers, and asks the supply ledger for admission. The ledger check
// and increment are atomic, so under concurrent mints for the last unit
// exactly one caller receives a card.
func (s *MintService) Mint(ctx context.Context, in MintInput) (MintResult, error) {
	if in.OwnerID == "" || in.TemplateID == "" {
		return MintResult{}, fmt.Errorf("service: mint: owner and template are required")
	}
	if in.Provenance == "" {
		in.Provenance = domain.ProvenanceGrant
	}

	tpl, err := s.templates.GetByID(ctx, in.TemplateID)
	if err != nil {
		return MintResult{}, fmt.Errorf("service: mint: template %s: %w", in.TemplateID, err)
	}

	globalCap := s.policy.GlobalCap(tpl.Tier)
	if globalCap <= 0 {
		s.record(ctx, "mint.denied", in.OwnerID, in.TemplateID, map[string]any{
			"reason": string(domain.DenyUnknownTier),
			"tier":   string(tpl.Tier),
		})
		return MintResult{Denied: domain.DenyUnknownTier}, nil
	}

	scarce := s.policy.Scarce(tpl.Tier)
	if scarce && s.limiter != nil {
		ok, err := s.limiter.AllowDaily(ctx, in.OwnerID, s.policy.DailyScarceCap)
		if err != nil {
			return MintResult{}, fmt.Errorf("service: mint: daily limit check: %w", err)
		}
		if !ok {
			s.record(ctx, "mint.denied", in.OwnerID, in.TemplateID, map[string]any{
				"reason": string(domain.DenyDailyLimitReached),
				"tier":   string(tpl.Tier),
			})
			return MintResult{Denied: domain.DenyDailyLimitReached}, nil
		}
	}

	req := domain.MintRequest{
		Epoch:      s.policy.Epoch,
		Tier:       tpl.Tier,
		TemplateID: in.TemplateID,
		GlobalCap:  globalCap,
	}
	if scarce {
		req.TemplateCap = tpl.TemplateCap
	}

	decision, err := s.supply.TryMint(ctx, req)
	if err != nil {
		return MintResult{}, fmt.Errorf("service: mint: supply ledger: %w", err)
	}
	if !decision.Allowed {
		s.record(ctx, "mint.denied", in.OwnerID, in.TemplateID, map[string]any{
			"reason": string(decision.Reason),
			"tier":   string(tpl.Tier),
			"minted": decision.GlobalMinted,
			"cap":    decision.GlobalCap,
		})
		return MintResult{Denied: decision.Reason}, nil
	}

	card := domain.Card{
		ID:           uuid.NewString(),
		OwnerID:      in.OwnerID,
		TemplateID:   in.TemplateID,
		Tier:         tpl.Tier,
		Serial:       decision.Serial,
		Epoch:        s.policy.Epoch,
		Provenance:   in.Provenance,
		ProvenanceID: in.ProvenanceID,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.cards.Create(ctx, card); err != nil {
		// The ledger slot is consumed but no card exists: surface loudly so
		// an operator can reconcile the count.
		s.logger.ErrorContext(ctx, "card create failed after ledger admit",
			"template_id", in.TemplateID, "serial", decision.Serial, "error", err)
		return MintResult{}, fmt.Errorf("service: mint: create card: %w", err)
	}

	s.record(ctx, "mint.allowed", in.OwnerID, card.ID, map[string]any{
		"template_id": in.TemplateID,
		"tier":        string(tpl.Tier),
		"serial":      decision.Serial,
		"minted":      decision.GlobalMinted,
		"cap":         decision.GlobalCap,
	})
	s.publish(ctx, "mint.allowed", card.ID)

	return MintResult{Card: &card}, nil
}

// Counts returns the supply ledger rows for the active epoch.
func (s *MintService) Counts(ctx context.Context) ([]domain.SupplyCount, error) {
	counts, err := s.supply.Counts(ctx, s.policy.Epoch)
	if err != nil {
		return nil, fmt.Errorf("service: supply counts: %w", err)
	}
	return counts, nil
}

// Destroy removes a card at its owner's request.
func (s *MintService) Destroy(ctx context.Context, cardID, ownerID string) error {
	if err := s.cards.Destroy(ctx, cardID, ownerID); err != nil {
		return fmt.Errorf("service: destroy card %s: %w", cardID, err)
	}
	s.record(ctx, "card.destroyed", ownerID, cardID, nil)
	return nil
}

// Collection lists the cards a user holds.
func (s *MintService) Collection(ctx context.Context, ownerID string, opts domain.ListOpts) ([]domain.Card, error) {
	cards, err := s.cards.ListByOwner(ctx, ownerID, opts)
	if err != nil {
		return nil, fmt.Errorf("service: list cards: %w", err)
	}
	return cards, nil
}
