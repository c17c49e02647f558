package domain

import "time"

// Tier is a card rarity. Supply caps are tracked per (epoch, tier), and for
// scarce tiers additionally per (epoch, template, tier).
type Tier string

const (
	TierCommon    Tier = "common"
	TierRare      Tier = "rare"
	TierEpic      Tier = "epic"
	TierLegendary Tier = "legendary"
)

// ProvenanceKind records how a card entered circulation.
type ProvenanceKind string

const (
	ProvenanceListing ProvenanceKind = "listing"
	ProvenanceTrade   ProvenanceKind = "trade"
	ProvenanceGrant   ProvenanceKind = "grant"
)

// Card is a minted collectible. Template and tier are immutable after
// creation; ownership changes only through atomic trade settlement or
// purchase, and cards are destroyed only by explicit player action.
type Card struct {
	ID           string
	OwnerID      string
	TemplateID   string
	Tier         Tier
	Serial       int64 // position within the template's epoch issuance
	Epoch        string
	Provenance   ProvenanceKind
	ProvenanceID string // listing or trade id
	CreatedAt    time.Time
}

// CardTemplate is a catalog entry describing a printable card. Templates are
// managed by the catalog import pipeline; this engine only reads them.
type CardTemplate struct {
	ID          string
	Name        string
	Artist      string
	Tier        Tier
	TemplateCap int64 // per-template cap for scarce tiers, 0 = uncapped
}
