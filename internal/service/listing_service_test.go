package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
)

type listingFixture struct {
	svc      *ListingService
	listings *fakeListings
	mem      *memEconomy
	supply   *fakeSupply
	proc     *fakeProcessor
	paylog   *fakePaylog
	audit    *fakeAudit
}

func newListingFixture(t *testing.T, policy SupplyPolicy) *listingFixture {
	t.Helper()
	mem := newMemEconomy()
	supply := newFakeSupply()
	audit := &fakeAudit{}
	bus := &fakeBus{}
	proc := &fakeProcessor{}
	paylog := newFakePaylog()
	listings := newFakeListings()

	templates := &fakeTemplates{templates: map[string]domain.CardTemplate{
		"tpl-1": {ID: "tpl-1", Name: "Backstage Pass", Tier: domain.TierCommon},
		"tpl-2": {ID: "tpl-2", Name: "Gold Record", Tier: domain.TierCommon},
	}}
	minter := NewMintService(supply, cardStoreView{mem}, templates, newFakeLimiter(),
		policy, audit, bus, slog.Default())
	svc := NewListingService(listings, mem, &fakeLocks{}, proc, minter, paylog,
		"USD", audit, bus, slog.Default())

	return &listingFixture{
		svc: svc, listings: listings, mem: mem, supply: supply,
		proc: proc, paylog: paylog, audit: audit,
	}
}

func TestCreateListingMintsPack(t *testing.T) {
	ctx := context.Background()
	fx := newListingFixture(t, testPolicy())

	listing, err := fx.svc.Create(ctx, CreateInput{
		OwnerID: "seller", Title: "Tour Bundle",
		FeeCents: 500, GoldPrice: 200,
		TemplateIDs: []string{"tpl-1", "tpl-2"},
	})
	require.NoError(t, err)
	require.Equal(t, domain.ReviewStatusPending, listing.ReviewStatus)
	require.Equal(t, domain.PaymentStatusAuthorized, listing.PaymentStatus)
	require.NotEmpty(t, listing.PaymentRef)
	require.Len(t, listing.CardIDs, 2)

	require.Equal(t, 1, fx.proc.authorizes)
	require.Zero(t, fx.proc.voids)

	// The pack's cards exist and belong to the seller.
	for _, cardID := range listing.CardIDs {
		card := fx.mem.card(cardID)
		require.Equal(t, "seller", card.OwnerID)
		require.Equal(t, domain.ProvenanceListing, card.Provenance)
		require.Equal(t, listing.ID, card.ProvenanceID)
	}

	stored := fx.listings.get(listing.ID)
	require.Equal(t, listing.CardIDs, stored.CardIDs)
	require.Equal(t, 1, fx.audit.count("listing.created"))
}

func TestCreateListingValidation(t *testing.T) {
	ctx := context.Background()
	fx := newListingFixture(t, testPolicy())

	cases := []struct {
		name string
		in   CreateInput
	}{
		{"no owner", CreateInput{FeeCents: 500, GoldPrice: 100, TemplateIDs: []string{"tpl-1"}}},
		{"zero fee", CreateInput{OwnerID: "s", GoldPrice: 100, TemplateIDs: []string{"tpl-1"}}},
		{"zero gold price", CreateInput{OwnerID: "s", FeeCents: 500, TemplateIDs: []string{"tpl-1"}}},
		{"empty pack", CreateInput{OwnerID: "s", FeeCents: 500, GoldPrice: 100}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fx.svc.Create(ctx, tc.in)
			require.Error(t, err)
		})
	}
	// No processor call happens before validation passes.
	require.Zero(t, fx.proc.authorizes)
}

func TestCreateListingUnwindsOnMintDenial(t *testing.T) {
	ctx := context.Background()
	policy := testPolicy()
	policy.TierCaps[domain.TierCommon] = 1 // second mint in the pack is refused
	fx := newListingFixture(t, policy)

	_, err := fx.svc.Create(ctx, CreateInput{
		OwnerID: "seller", Title: "Tour Bundle",
		FeeCents: 500, GoldPrice: 200,
		TemplateIDs: []string{"tpl-1", "tpl-2"},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), string(domain.DenyCapReached))

	// The fee hold was released and the partial card destroyed.
	require.Equal(t, 1, fx.proc.voids)
	cards, lerr := fx.mem.ListByOwner(ctx, "seller", domain.ListOpts{})
	require.NoError(t, lerr)
	require.Empty(t, cards)

	// The listing never reaches the review queue.
	pending, perr := fx.svc.PendingQueue(ctx, domain.ListOpts{})
	require.NoError(t, perr)
	require.Empty(t, pending)
}

func approvedListing(t *testing.T, fx *listingFixture, goldPrice int64) domain.Listing {
	t.Helper()
	ctx := context.Background()
	listing, err := fx.svc.Create(ctx, CreateInput{
		OwnerID: "seller", Title: "Tour Bundle",
		FeeCents: 500, GoldPrice: goldPrice,
		TemplateIDs: []string{"tpl-1", "tpl-2"},
	})
	require.NoError(t, err)
	require.NoError(t, fx.listings.SetApprovedCaptured(ctx, listing.ID, "admin", "ch-test"))
	return fx.listings.get(listing.ID)
}

func TestPurchaseSettlesPack(t *testing.T) {
	ctx := context.Background()
	fx := newListingFixture(t, testPolicy())
	listing := approvedListing(t, fx, 200)
	fx.mem.putBalance("buyer", 250)

	bought, err := fx.svc.Purchase(ctx, listing.ID, "buyer")
	require.NoError(t, err)
	require.Equal(t, domain.ReviewStatusDisabled, bought.ReviewStatus)

	// Gold moved and cards changed hands atomically.
	require.Equal(t, int64(50), fx.mem.balance("buyer"))
	require.Equal(t, int64(200), fx.mem.balance("seller"))
	for _, cardID := range listing.CardIDs {
		require.Equal(t, "buyer", fx.mem.card(cardID).OwnerID)
	}

	// The listing left sale; a second buyer sees it dead.
	fx.mem.putBalance("late", 1000)
	_, err = fx.svc.Purchase(ctx, listing.ID, "late")
	require.ErrorIs(t, err, domain.ErrListingNotLive)
	require.Equal(t, int64(1000), fx.mem.balance("late"))
}

func TestPurchaseInsufficientGold(t *testing.T) {
	ctx := context.Background()
	fx := newListingFixture(t, testPolicy())
	listing := approvedListing(t, fx, 200)
	fx.mem.putBalance("buyer", 50)

	_, err := fx.svc.Purchase(ctx, listing.ID, "buyer")
	require.ErrorIs(t, err, domain.ErrInsufficientGold)

	// Listing stays live, cards stay with the seller.
	require.True(t, fx.listings.get(listing.ID).Live())
	for _, cardID := range listing.CardIDs {
		require.Equal(t, "seller", fx.mem.card(cardID).OwnerID)
	}
	require.Equal(t, int64(50), fx.mem.balance("buyer"))
}

func TestPurchaseRejectsOwnerAndPending(t *testing.T) {
	ctx := context.Background()
	fx := newListingFixture(t, testPolicy())

	pending, err := fx.svc.Create(ctx, CreateInput{
		OwnerID: "seller", FeeCents: 500, GoldPrice: 100, TemplateIDs: []string{"tpl-1"},
	})
	require.NoError(t, err)

	_, err = fx.svc.Purchase(ctx, pending.ID, "buyer")
	require.ErrorIs(t, err, domain.ErrListingNotLive)

	listing := approvedListing(t, fx, 100)
	_, err = fx.svc.Purchase(ctx, listing.ID, "seller")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestPaymentHistory(t *testing.T) {
	ctx := context.Background()
	fx := newListingFixture(t, testPolicy())
	listing := approvedListing(t, fx, 100)

	require.NoError(t, fx.paylog.Record(ctx, domain.PaymentAttempt{
		Operation: "authorize", Reference: listing.PaymentRef,
		AmountCents: 500, State: domain.ProcessorStateAuthorized,
	}))
	require.NoError(t, fx.paylog.Record(ctx, domain.PaymentAttempt{
		Operation: "capture", Reference: listing.PaymentRef,
		ChargeID: "ch-test", AmountCents: 500, State: domain.ProcessorStateCaptured,
	}))

	attempts, err := fx.svc.PaymentHistory(ctx, listing.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	require.Equal(t, "authorize", attempts[0].Operation)
	require.Equal(t, "capture", attempts[1].Operation)
}
