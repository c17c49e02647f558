package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
)

// SupplyService exposes the supply ledger counts.
type SupplyService interface {
	Counts(ctx context.Context) ([]domain.SupplyCount, error)
}

// SupplyHandler serves the supply monitoring endpoint.
type SupplyHandler struct {
	supply SupplyService
	logger *slog.Logger
}

// NewSupplyHandler creates a SupplyHandler.
func NewSupplyHandler(supply SupplyService, logger *slog.Logger) *SupplyHandler {
	return &SupplyHandler{
		supply: supply,
		logger: logHandler(logger, "supply"),
	}
}

type supplyCountsResponse struct {
	Counts []supplyCountDTO `json:"counts"`
}

// Counts returns the ledger rows for the active epoch.
// GET /api/supply
func (h *SupplyHandler) Counts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.supply.Counts(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "supply counts failed",
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to load supply counts")
		return
	}

	writeJSON(w, http.StatusOK, supplyCountsResponse{Counts: toSupplyCountDTOs(counts)})
}
