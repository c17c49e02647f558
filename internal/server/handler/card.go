package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/service"
)

// CardService defines what the card handler needs from the mint service.
type CardService interface {
	Mint(ctx context.Context, in service.MintInput) (service.MintResult, error)
	Destroy(ctx context.Context, cardID, ownerID string) error
	Collection(ctx context.Context, ownerID string, opts domain.ListOpts) ([]domain.Card, error)
}

// CardHandler serves card mint, destroy, and collection endpoints.
type CardHandler struct {
	cards  CardService
	logger *slog.Logger
}

// NewCardHandler creates a CardHandler.
func NewCardHandler(cards CardService, logger *slog.Logger) *CardHandler {
	return &CardHandler{
		cards:  cards,
		logger: logHandler(logger, "card"),
	}
}

type mintRequest struct {
	TemplateID string `json:"template_id"`
}

type mintDeniedResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// Mint requests one card from a template. A supply denial is a 200 with
// allowed=false, not an error.
// POST /api/cards/mint
func (h *CardHandler) Mint(w http.ResponseWriter, r *http.Request) {
	actor := actorID(r)
	if actor == "" {
		writeError(w, http.StatusBadRequest, "missing X-Actor-ID header")
		return
	}

	var req mintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.TemplateID == "" {
		writeError(w, http.StatusBadRequest, "template_id is required")
		return
	}

	result, err := h.cards.Mint(r.Context(), service.MintInput{
		OwnerID:    actor,
		TemplateID: req.TemplateID,
		Provenance: domain.ProvenanceGrant,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "mint failed",
			slog.String("template_id", req.TemplateID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to mint card")
		return
	}
	if !result.Allowed() {
		writeJSON(w, http.StatusOK, mintDeniedResponse{Allowed: false, Reason: string(result.Denied)})
		return
	}

	writeJSON(w, http.StatusCreated, toCardDTO(*result.Card))
}

// Destroy removes a card from the caller's collection.
// DELETE /api/cards/{id}
func (h *CardHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	actor := actorID(r)
	id := pathParam(r, "id")
	if actor == "" || id == "" {
		writeError(w, http.StatusBadRequest, "missing actor or card id")
		return
	}

	if err := h.cards.Destroy(r.Context(), id, actor); err != nil {
		writeDomainError(w, err, "failed to destroy card")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "destroyed"})
}

type listCardsResponse struct {
	Cards []cardDTO `json:"cards"`
}

// Collection lists the caller's cards.
// GET /api/cards
func (h *CardHandler) Collection(w http.ResponseWriter, r *http.Request) {
	actor := actorID(r)
	if actor == "" {
		writeError(w, http.StatusBadRequest, "missing X-Actor-ID header")
		return
	}

	cards, err := h.cards.Collection(r.Context(), actor, parseListOpts(r))
	if err != nil {
		writeDomainError(w, err, "failed to list cards")
		return
	}

	writeJSON(w, http.StatusOK, listCardsResponse{Cards: toCardDTOs(cards)})
}
