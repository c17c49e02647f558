package domain

// DenyReason explains why a mint was refused. A denial is a routine capacity
// outcome, not an error.
type DenyReason string

const (
	DenyCapReached         DenyReason = "cap reached"
	DenyTemplateCapReached DenyReason = "template cap reached"
	DenyDailyLimitReached  DenyReason = "daily limit reached"
	DenyUnknownTier        DenyReason = "unknown tier"
)

// MintRequest carries everything the supply ledger needs to admit or refuse
// one unit. Caps are resolved by the caller (config for global tiers, catalog
// registry for per-template) so the ledger stays pure check-and-increment.
type MintRequest struct {
	Epoch       string
	Tier        Tier
	TemplateID  string
	GlobalCap   int64
	TemplateCap int64 // 0 = tier is not per-template capped
}

// MintDecision is the discriminated outcome of TryMint.
type MintDecision struct {
	Allowed      bool
	Reason       DenyReason // set when !Allowed
	Serial       int64      // per-template serial when Allowed (global when uncapped)
	GlobalMinted int64      // global minted count after the decision
	GlobalCap    int64
}

// SupplyCount is one row of the supply ledger, for monitoring.
type SupplyCount struct {
	Epoch      string
	Tier       Tier
	TemplateID string // empty for the global row
	Minted     int64
	Cap        int64
}
