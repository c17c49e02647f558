package handler

import (
	"time"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
)

// Wire representations of the domain types. Domain structs carry no JSON
// tags; the API shape is owned here.

type tradeDTO struct {
	ID           string     `json:"id"`
	ParticipantA string     `json:"participant_a"`
	ParticipantB string     `json:"participant_b"`
	CardsA       []string   `json:"cards_a"`
	CardsB       []string   `json:"cards_b"`
	GoldA        int64      `json:"gold_a"`
	GoldB        int64      `json:"gold_b"`
	Status       string     `json:"status"`
	CancelReason string     `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
}

func toTradeDTO(t domain.Trade) tradeDTO {
	return tradeDTO{
		ID:           t.ID,
		ParticipantA: t.ParticipantA,
		ParticipantB: t.ParticipantB,
		CardsA:       emptyIfNil(t.CardsA),
		CardsB:       emptyIfNil(t.CardsB),
		GoldA:        t.GoldA,
		GoldB:        t.GoldB,
		Status:       string(t.Status),
		CancelReason: t.CancelReason,
		CreatedAt:    t.CreatedAt,
		ExpiresAt:    t.ExpiresAt,
		ClosedAt:     t.ClosedAt,
	}
}

func toTradeDTOs(trades []domain.Trade) []tradeDTO {
	out := make([]tradeDTO, 0, len(trades))
	for _, t := range trades {
		out = append(out, toTradeDTO(t))
	}
	return out
}

type listingDTO struct {
	ID            string     `json:"id"`
	OwnerID       string     `json:"owner_id"`
	Title         string     `json:"title"`
	PriceCents    int64      `json:"price_cents"`
	Currency      string     `json:"currency"`
	GoldPrice     int64      `json:"gold_price"`
	TemplateIDs   []string   `json:"template_ids"`
	CardIDs       []string   `json:"card_ids"`
	ReviewStatus  string     `json:"review_status"`
	PaymentStatus string     `json:"payment_status"`
	ReviewerID    string     `json:"reviewer_id,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	RejectReason  string     `json:"reject_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toListingDTO(l domain.Listing) listingDTO {
	return listingDTO{
		ID:            l.ID,
		OwnerID:       l.OwnerID,
		Title:         l.Title,
		PriceCents:    l.PriceCents,
		Currency:      l.Currency,
		GoldPrice:     l.GoldPrice,
		TemplateIDs:   emptyIfNil(l.TemplateIDs),
		CardIDs:       emptyIfNil(l.CardIDs),
		ReviewStatus:  string(l.ReviewStatus),
		PaymentStatus: string(l.PaymentStatus),
		ReviewerID:    l.ReviewerID,
		ReviewedAt:    l.ReviewedAt,
		RejectReason:  l.RejectReason,
		CreatedAt:     l.CreatedAt,
	}
}

func toListingDTOs(listings []domain.Listing) []listingDTO {
	out := make([]listingDTO, 0, len(listings))
	for _, l := range listings {
		out = append(out, toListingDTO(l))
	}
	return out
}

type cardDTO struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	TemplateID   string    `json:"template_id"`
	Tier         string    `json:"tier"`
	Serial       int64     `json:"serial"`
	Epoch        string    `json:"epoch"`
	Provenance   string    `json:"provenance"`
	ProvenanceID string    `json:"provenance_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func toCardDTO(c domain.Card) cardDTO {
	return cardDTO{
		ID:           c.ID,
		OwnerID:      c.OwnerID,
		TemplateID:   c.TemplateID,
		Tier:         string(c.Tier),
		Serial:       c.Serial,
		Epoch:        c.Epoch,
		Provenance:   string(c.Provenance),
		ProvenanceID: c.ProvenanceID,
		CreatedAt:    c.CreatedAt,
	}
}

func toCardDTOs(cards []domain.Card) []cardDTO {
	out := make([]cardDTO, 0, len(cards))
	for _, c := range cards {
		out = append(out, toCardDTO(c))
	}
	return out
}

type supplyCountDTO struct {
	Epoch      string `json:"epoch"`
	Tier       string `json:"tier"`
	TemplateID string `json:"template_id,omitempty"`
	Minted     int64  `json:"minted"`
	Cap        int64  `json:"cap"`
}

func toSupplyCountDTOs(counts []domain.SupplyCount) []supplyCountDTO {
	out := make([]supplyCountDTO, 0, len(counts))
	for _, c := range counts {
		out = append(out, supplyCountDTO{
			Epoch:      c.Epoch,
			Tier:       string(c.Tier),
			TemplateID: c.TemplateID,
			Minted:     c.Minted,
			Cap:        c.Cap,
		})
	}
	return out
}

type paymentAttemptDTO struct {
	ID          int64     `json:"id"`
	Operation   string    `json:"operation"`
	Reference   string    `json:"reference,omitempty"`
	ChargeID    string    `json:"charge_id,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency,omitempty"`
	State       string    `json:"state"`
	ErrDetail   string    `json:"err_detail,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toPaymentAttemptDTOs(attempts []domain.PaymentAttempt) []paymentAttemptDTO {
	out := make([]paymentAttemptDTO, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, paymentAttemptDTO{
			ID:          a.ID,
			Operation:   a.Operation,
			Reference:   a.Reference,
			ChargeID:    a.ChargeID,
			AmountCents: a.AmountCents,
			Currency:    a.Currency,
			State:       string(a.State),
			ErrDetail:   a.ErrDetail,
			CreatedAt:   a.CreatedAt,
		})
	}
	return out
}

type auditEntryDTO struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	ActorID   string         `json:"actor_id,omitempty"`
	TargetID  string         `json:"target_id,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func toAuditEntryDTOs(entries []domain.AuditEntry) []auditEntryDTO {
	out := make([]auditEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryDTO{
			ID:        e.ID,
			Event:     e.Event,
			ActorID:   e.ActorID,
			TargetID:  e.TargetID,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
