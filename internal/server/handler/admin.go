package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/service"
)

// ReviewService defines what the admin handler needs from the review
// service.
type ReviewService interface {
	Approve(ctx context.Context, listingID, reviewerID string) (domain.Listing, error)
	Reject(ctx context.Context, listingID, reviewerID, reason string) error
	DisableWithRefund(ctx context.Context, listingID, reviewerID string) error
	CheckConsistency(ctx context.Context, opts domain.ListOpts) ([]service.ConsistencyIssue, error)
}

// ReviewQueue is the pending-listings view the admin handler reads.
type ReviewQueue interface {
	PendingQueue(ctx context.Context, opts domain.ListOpts) ([]domain.Listing, error)
}

// AdminHandler serves the review and reconciliation endpoints.
type AdminHandler struct {
	reviews ReviewService
	queue   ReviewQueue
	logger  *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(reviews ReviewService, queue ReviewQueue, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		reviews: reviews,
		queue:   queue,
		logger:  logHandler(logger, "admin"),
	}
}

type pendingQueueResponse struct {
	Listings []listingDTO `json:"listings"`
}

// Pending returns the review queue, oldest first.
// GET /api/admin/listings/pending
func (h *AdminHandler) Pending(w http.ResponseWriter, r *http.Request) {
	listings, err := h.queue.PendingQueue(r.Context(), parseListOpts(r))
	if err != nil {
		writeDomainError(w, err, "failed to load review queue")
		return
	}
	writeJSON(w, http.StatusOK, pendingQueueResponse{Listings: toListingDTOs(listings)})
}

// Approve approves a pending listing and captures its fee.
// POST /api/admin/listings/{id}/approve
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	reviewer := actorID(r)
	id := pathParam(r, "id")
	if reviewer == "" || id == "" {
		writeError(w, http.StatusBadRequest, "missing reviewer or listing id")
		return
	}

	listing, err := h.reviews.Approve(r.Context(), id, reviewer)
	if err != nil {
		h.logger.WarnContext(r.Context(), "approve failed",
			slog.String("listing_id", id),
			slog.String("reviewer", reviewer),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to approve listing")
		return
	}

	writeJSON(w, http.StatusOK, toListingDTO(listing))
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject rejects a pending listing and releases its fee hold.
// POST /api/admin/listings/{id}/reject
func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	reviewer := actorID(r)
	id := pathParam(r, "id")
	if reviewer == "" || id == "" {
		writeError(w, http.StatusBadRequest, "missing reviewer or listing id")
		return
	}

	var req rejectRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := h.reviews.Reject(r.Context(), id, reviewer, req.Reason); err != nil {
		h.logger.WarnContext(r.Context(), "reject failed",
			slog.String("listing_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to reject listing")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// DisableRefund pulls an approved listing off sale and refunds its fee.
// POST /api/admin/listings/{id}/disable-refund
func (h *AdminHandler) DisableRefund(w http.ResponseWriter, r *http.Request) {
	reviewer := actorID(r)
	id := pathParam(r, "id")
	if reviewer == "" || id == "" {
		writeError(w, http.StatusBadRequest, "missing reviewer or listing id")
		return
	}

	if err := h.reviews.DisableWithRefund(r.Context(), id, reviewer); err != nil {
		writeDomainError(w, err, "failed to disable listing")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
}

type consistencyIssueDTO struct {
	ListingID  string   `json:"listing_id"`
	Violations []string `json:"violations"`
}

type consistencyResponse struct {
	Issues []consistencyIssueDTO `json:"issues"`
}

// Consistency scans listings for joint-state violations.
// POST /api/admin/consistency-check
func (h *AdminHandler) Consistency(w http.ResponseWriter, r *http.Request) {
	issues, err := h.reviews.CheckConsistency(r.Context(), parseListOpts(r))
	if err != nil {
		writeDomainError(w, err, "consistency check failed")
		return
	}

	out := make([]consistencyIssueDTO, 0, len(issues))
	for _, issue := range issues {
		out = append(out, consistencyIssueDTO{
			ListingID:  issue.ListingID,
			Violations: issue.Violations,
		})
	}
	writeJSON(w, http.StatusOK, consistencyResponse{Issues: out})
}
