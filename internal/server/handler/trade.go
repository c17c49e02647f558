package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/service"
)

// TradeService defines what the trade handler needs from the service layer.
type TradeService interface {
	Propose(ctx context.Context, in service.ProposeInput) (domain.Trade, error)
	Finalize(ctx context.Context, tradeID, actorID string) (domain.Trade, error)
	Cancel(ctx context.Context, tradeID, actorID, reason string) error
	Get(ctx context.Context, tradeID, actorID string) (domain.Trade, error)
	ListForParticipant(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Trade, error)
}

// TradeHandler serves the trade escrow endpoints.
type TradeHandler struct {
	trades TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(trades TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		trades: trades,
		logger: logHandler(logger, "trade"),
	}
}

type proposeTradeRequest struct {
	Counterpart string   `json:"counterpart"`
	CardsOffer  []string `json:"cards_offer"`
	CardsAsk    []string `json:"cards_ask"`
	GoldOffer   int64    `json:"gold_offer"`
	GoldAsk     int64    `json:"gold_ask"`
}

// Propose creates a trade offer from the caller to the counterpart.
// POST /api/trades
func (h *TradeHandler) Propose(w http.ResponseWriter, r *http.Request) {
	actor := actorID(r)
	if actor == "" {
		writeError(w, http.StatusBadRequest, "missing X-Actor-ID header")
		return
	}

	var req proposeTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	trade, err := h.trades.Propose(r.Context(), service.ProposeInput{
		ParticipantA: actor,
		ParticipantB: req.Counterpart,
		CardsA:       req.CardsOffer,
		CardsB:       req.CardsAsk,
		GoldA:        req.GoldOffer,
		GoldB:        req.GoldAsk,
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "propose trade failed",
			slog.String("actor", actor),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to propose trade")
		return
	}

	writeJSON(w, http.StatusCreated, toTradeDTO(trade))
}

// Finalize settles a pending trade.
// POST /api/trades/{id}/finalize
func (h *TradeHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	actor := actorID(r)
	id := pathParam(r, "id")
	if actor == "" || id == "" {
		writeError(w, http.StatusBadRequest, "missing actor or trade id")
		return
	}

	trade, err := h.trades.Finalize(r.Context(), id, actor)
	if err != nil {
		h.logger.WarnContext(r.Context(), "finalize trade failed",
			slog.String("trade_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to finalize trade")
		return
	}

	writeJSON(w, http.StatusOK, toTradeDTO(trade))
}

type cancelTradeRequest struct {
	Reason string `json:"reason"`
}

// Cancel withdraws a pending trade.
// DELETE /api/trades/{id}
func (h *TradeHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor := actorID(r)
	id := pathParam(r, "id")
	if actor == "" || id == "" {
		writeError(w, http.StatusBadRequest, "missing actor or trade id")
		return
	}

	var req cancelTradeRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := h.trades.Cancel(r.Context(), id, actor, req.Reason); err != nil {
		writeDomainError(w, err, "failed to cancel trade")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// Get returns a single trade visible to the caller.
// GET /api/trades/{id}
func (h *TradeHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor := actorID(r)
	id := pathParam(r, "id")
	if actor == "" || id == "" {
		writeError(w, http.StatusBadRequest, "missing actor or trade id")
		return
	}

	trade, err := h.trades.Get(r.Context(), id, actor)
	if err != nil {
		writeDomainError(w, err, "failed to get trade")
		return
	}

	writeJSON(w, http.StatusOK, toTradeDTO(trade))
}

type listTradesResponse struct {
	Trades []tradeDTO `json:"trades"`
}

// List returns the caller's trades.
// GET /api/trades
func (h *TradeHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := actorID(r)
	if actor == "" {
		writeError(w, http.StatusBadRequest, "missing X-Actor-ID header")
		return
	}

	trades, err := h.trades.ListForParticipant(r.Context(), actor, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list trades failed",
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to list trades")
		return
	}

	writeJSON(w, http.StatusOK, listTradesResponse{Trades: toTradeDTOs(trades)})
}
