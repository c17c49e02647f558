package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/service"
)

// ListingService defines what the listing handler needs from the service
// layer.
type ListingService interface {
	Create(ctx context.Context, in service.CreateInput) (domain.Listing, error)
	Get(ctx context.Context, id string) (domain.Listing, error)
	Purchase(ctx context.Context, listingID, buyerID string) (domain.Listing, error)
	PaymentHistory(ctx context.Context, listingID string) ([]domain.PaymentAttempt, error)
}

// ListingHandler serves the pack listing endpoints.
type ListingHandler struct {
	listings ListingService
	logger   *slog.Logger
}

// NewListingHandler creates a ListingHandler.
func NewListingHandler(listings ListingService, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{
		listings: listings,
		logger:   logHandler(logger, "listing"),
	}
}

type createListingRequest struct {
	Title       string   `json:"title"`
	FeeCents    int64    `json:"fee_cents"`
	GoldPrice   int64    `json:"gold_price"`
	TemplateIDs []string `json:"template_ids"`
}

// Create submits a new pack listing: the fee is authorized and the pack's
// cards are minted before the listing enters the review queue.
// POST /api/listings
func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := actorID(r)
	if actor == "" {
		writeError(w, http.StatusBadRequest, "missing X-Actor-ID header")
		return
	}

	var req createListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	listing, err := h.listings.Create(r.Context(), service.CreateInput{
		OwnerID:     actor,
		Title:       req.Title,
		FeeCents:    req.FeeCents,
		GoldPrice:   req.GoldPrice,
		TemplateIDs: req.TemplateIDs,
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "create listing failed",
			slog.String("actor", actor),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to create listing")
		return
	}

	writeJSON(w, http.StatusCreated, toListingDTO(listing))
}

// Get returns one listing.
// GET /api/listings/{id}
func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing listing id")
		return
	}

	listing, err := h.listings.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "failed to get listing")
		return
	}

	writeJSON(w, http.StatusOK, toListingDTO(listing))
}

// Purchase buys an approved pack with gold.
// POST /api/listings/{id}/purchase
func (h *ListingHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	actor := actorID(r)
	id := pathParam(r, "id")
	if actor == "" || id == "" {
		writeError(w, http.StatusBadRequest, "missing actor or listing id")
		return
	}

	listing, err := h.listings.Purchase(r.Context(), id, actor)
	if err != nil {
		h.logger.WarnContext(r.Context(), "purchase failed",
			slog.String("listing_id", id),
			slog.String("buyer", actor),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to purchase listing")
		return
	}

	writeJSON(w, http.StatusOK, toListingDTO(listing))
}

type paymentHistoryResponse struct {
	Attempts []paymentAttemptDTO `json:"attempts"`
}

// Payments returns the reconciliation log for the listing's fee.
// GET /api/listings/{id}/payments
func (h *ListingHandler) Payments(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing listing id")
		return
	}

	attempts, err := h.listings.PaymentHistory(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "failed to load payment history")
		return
	}

	writeJSON(w, http.StatusOK, paymentHistoryResponse{Attempts: toPaymentAttemptDTOs(attempts)})
}
