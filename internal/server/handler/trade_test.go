package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/service"
)

// stubTrades scripts the trade service behind the handler.
type stubTrades struct {
	proposeIn  service.ProposeInput
	trade      domain.Trade
	err        error
	cancelled  bool
	lastActor  string
	lastTrade  string
	lastReason string
}

func (s *stubTrades) Propose(ctx context.Context, in service.ProposeInput) (domain.Trade, error) {
	s.proposeIn = in
	return s.trade, s.err
}

func (s *stubTrades) Finalize(ctx context.Context, tradeID, actorID string) (domain.Trade, error) {
	s.lastTrade, s.lastActor = tradeID, actorID
	return s.trade, s.err
}

func (s *stubTrades) Cancel(ctx context.Context, tradeID, actorID, reason string) error {
	s.cancelled = true
	s.lastTrade, s.lastActor, s.lastReason = tradeID, actorID, reason
	return s.err
}

func (s *stubTrades) Get(ctx context.Context, tradeID, actorID string) (domain.Trade, error) {
	return s.trade, s.err
}

func (s *stubTrades) ListForParticipant(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Trade, error) {
	return []domain.Trade{s.trade}, s.err
}

func newTradeMux(stub *stubTrades) *http.ServeMux {
	h := NewTradeHandler(stub, slog.Default())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/trades", h.Propose)
	mux.HandleFunc("GET /api/trades", h.List)
	mux.HandleFunc("GET /api/trades/{id}", h.Get)
	mux.HandleFunc("POST /api/trades/{id}/finalize", h.Finalize)
	mux.HandleFunc("DELETE /api/trades/{id}", h.Cancel)
	return mux
}

func TestProposeEndpoint(t *testing.T) {
	stub := &stubTrades{trade: domain.Trade{
		ID: "t1", ParticipantA: "alice", ParticipantB: "bob",
		Status: domain.TradeStatusPending,
	}}
	mux := newTradeMux(stub)

	body, _ := json.Marshal(map[string]any{
		"counterpart": "bob",
		"cards_offer": []string{"c1"},
		"gold_ask":    25,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/trades", bytes.NewReader(body))
	req.Header.Set("X-Actor-ID", "alice")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "alice", stub.proposeIn.ParticipantA)
	require.Equal(t, "bob", stub.proposeIn.ParticipantB)
	require.Equal(t, []string{"c1"}, stub.proposeIn.CardsA)
	require.Equal(t, int64(25), stub.proposeIn.GoldB)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "t1", resp["id"])
	require.Equal(t, "pending", resp["status"])
}

func TestProposeRequiresActor(t *testing.T) {
	mux := newTradeMux(&stubTrades{})

	req := httptest.NewRequest(http.MethodPost, "/api/trades", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFinalizeEndpoint(t *testing.T) {
	stub := &stubTrades{trade: domain.Trade{ID: "t1", Status: domain.TradeStatusComplete}}
	mux := newTradeMux(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/trades/t1/finalize", nil)
	req.Header.Set("X-Actor-ID", "bob")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "t1", stub.lastTrade)
	require.Equal(t, "bob", stub.lastActor)
}

func TestCancelEndpoint(t *testing.T) {
	stub := &stubTrades{}
	mux := newTradeMux(stub)

	req := httptest.NewRequest(http.MethodDelete, "/api/trades/t1",
		bytes.NewReader([]byte(`{"reason":"changed my mind"}`)))
	req.Header.Set("X-Actor-ID", "alice")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, stub.cancelled)
	require.Equal(t, "changed my mind", stub.lastReason)
}

func TestDomainErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrNotParticipant, http.StatusForbidden},
		{domain.ErrUnauthorized, http.StatusForbidden},
		{domain.ErrSelfTrade, http.StatusBadRequest},
		{domain.ErrEmptyTrade, http.StatusBadRequest},
		{domain.ErrCardNotOwned, http.StatusBadRequest},
		{domain.ErrInsufficientGold, http.StatusPaymentRequired},
		{domain.ErrTradeNotPending, http.StatusConflict},
		{domain.ErrTradeExpired, http.StatusConflict},
		{domain.ErrReviewClosed, http.StatusConflict},
		{domain.ErrListingNotLive, http.StatusConflict},
		{domain.ErrAlreadyCaptured, http.StatusConflict},
		{domain.ErrStatusConflict, http.StatusConflict},
		{domain.ErrLockBusy, http.StatusServiceUnavailable},
		{errors.New("database on fire"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			stub := &stubTrades{err: fmt.Errorf("service: finalize trade t1: %w", tc.err)}
			mux := newTradeMux(stub)

			req := httptest.NewRequest(http.MethodPost, "/api/trades/t1/finalize", nil)
			req.Header.Set("X-Actor-ID", "alice")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			require.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestParseListOpts(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/api/trades?limit=9999&offset=20&since=2026-01-01T00:00:00Z", nil)
	opts := parseListOpts(req)

	require.Equal(t, 500, opts.Limit) // clamped
	require.Equal(t, 20, opts.Offset)
	require.NotNil(t, opts.Since)
	require.Nil(t, opts.Until)

	req = httptest.NewRequest(http.MethodGet, "/api/trades", nil)
	opts = parseListOpts(req)
	require.Equal(t, 50, opts.Limit)
	require.Zero(t, opts.Offset)
}
