package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
)

// BalanceHandler serves gold balance reads and admin grants.
type BalanceHandler struct {
	balances domain.BalanceStore
	logger   *slog.Logger
}

// NewBalanceHandler creates a BalanceHandler.
func NewBalanceHandler(balances domain.BalanceStore, logger *slog.Logger) *BalanceHandler {
	return &BalanceHandler{
		balances: balances,
		logger:   logHandler(logger, "balance"),
	}
}

type balanceResponse struct {
	UserID string `json:"user_id"`
	Gold   int64  `json:"gold"`
}

// Get returns the caller's gold balance. A user with no balance row reads
// as zero.
// GET /api/balance
func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor := actorID(r)
	if actor == "" {
		writeError(w, http.StatusBadRequest, "missing X-Actor-ID header")
		return
	}

	gold, err := h.balances.Get(r.Context(), actor)
	if err != nil {
		writeDomainError(w, err, "failed to read balance")
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{UserID: actor, Gold: gold})
}

type depositRequest struct {
	Amount int64 `json:"amount"`
}

// Deposit grants gold to a user. Admin-only seam for seeding and support
// credits; player-to-player gold only moves through settlements.
// POST /api/admin/users/{id}/deposit
func (h *BalanceHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	userID := pathParam(r, "id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	if err := h.balances.Deposit(r.Context(), userID, req.Amount); err != nil {
		h.logger.ErrorContext(r.Context(), "deposit failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to deposit gold")
		return
	}

	gold, err := h.balances.Get(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err, "failed to read balance")
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{UserID: userID, Gold: gold})
}
