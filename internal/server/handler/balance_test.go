package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubBalances struct {
	gold     map[string]int64
	deposits map[string]int64
}

func (s *stubBalances) Get(ctx context.Context, userID string) (int64, error) {
	return s.gold[userID], nil
}

func (s *stubBalances) Deposit(ctx context.Context, userID string, amount int64) error {
	if s.deposits == nil {
		s.deposits = make(map[string]int64)
	}
	s.deposits[userID] += amount
	if s.gold == nil {
		s.gold = make(map[string]int64)
	}
	s.gold[userID] += amount
	return nil
}

func TestBalanceGet(t *testing.T) {
	h := NewBalanceHandler(&stubBalances{gold: map[string]int64{"alice": 120}}, slog.Default())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/balance", h.Get)

	req := httptest.NewRequest(http.MethodGet, "/api/balance", nil)
	req.Header.Set("X-Actor-ID", "alice")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.EqualValues(t, 120, resp["gold"])

	// Unknown users read as zero, missing actor is a 400.
	req = httptest.NewRequest(http.MethodGet, "/api/balance", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBalanceDeposit(t *testing.T) {
	stub := &stubBalances{}
	h := NewBalanceHandler(stub, slog.Default())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/admin/users/{id}/deposit", h.Deposit)

	body := bytes.NewReader([]byte(`{"amount":500}`))
	req := httptest.NewRequest(http.MethodPost, "/api/admin/users/bob/deposit", body)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 500, stub.deposits["bob"])

	// Non-positive grants are rejected.
	req = httptest.NewRequest(http.MethodPost, "/api/admin/users/bob/deposit",
		bytes.NewReader([]byte(`{"amount":0}`)))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.EqualValues(t, 500, stub.deposits["bob"])
}
