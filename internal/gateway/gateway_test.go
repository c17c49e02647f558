package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/crypto"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
)

type memPaylog struct {
	mu       sync.Mutex
	attempts []domain.PaymentAttempt
}

func (m *memPaylog) Record(ctx context.Context, a domain.PaymentAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, a)
	return nil
}

func (m *memPaylog) ListByReference(ctx context.Context, reference string) ([]domain.PaymentAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PaymentAttempt
	for _, a := range m.attempts {
		if a.Reference == reference {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memPaylog) last() domain.PaymentAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts[len(m.attempts)-1]
}

func newTestGateway(t *testing.T, handler http.Handler) (*Gateway, *memPaylog) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	auth := &crypto.HMACAuth{Key: "test-key", Secret: "test-secret"}
	paylog := &memPaylog{}
	return New(NewClient(srv.URL, auth), paylog, slog.Default()), paylog
}

func TestAuthorizeRecordsAttempt(t *testing.T) {
	ctx := context.Background()
	var gotBody map[string]any

	gw, paylog := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/authorizations", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("X-Api-Key"))
		require.NotEmpty(t, r.Header.Get("X-Signature"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"reference": "auth-123", "status": "authorized",
		})
	}))

	auth, err := gw.Authorize(ctx, 500, "USD", map[string]string{"listing_id": "l1"})
	require.NoError(t, err)
	require.Equal(t, "auth-123", auth.Reference)
	require.Equal(t, domain.ProcessorStateAuthorized, auth.State)
	require.EqualValues(t, 500, gotBody["amount"])

	attempt := paylog.last()
	require.Equal(t, "authorize", attempt.Operation)
	require.Equal(t, "auth-123", attempt.Reference)
	require.Equal(t, domain.ProcessorStateAuthorized, attempt.State)
	require.Empty(t, attempt.ErrDetail)
}

func TestCaptureSuccess(t *testing.T) {
	ctx := context.Background()
	gw, paylog := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/authorizations/auth-123/capture", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"reference": "auth-123", "charge_id": "ch-9", "amount": 500, "status": "captured",
		})
	}))

	capture, err := gw.Capture(ctx, "auth-123")
	require.NoError(t, err)
	require.Equal(t, "ch-9", capture.ChargeID)
	require.Equal(t, domain.ProcessorStateCaptured, capture.State)

	attempt := paylog.last()
	require.Equal(t, "capture", attempt.Operation)
	require.Equal(t, "ch-9", attempt.ChargeID)
}

func TestCaptureNotCapturableMapsSentinel(t *testing.T) {
	ctx := context.Background()
	gw, paylog := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "not_capturable", "message": "hold already settled"},
		})
	}))

	_, err := gw.Capture(ctx, "auth-123")
	require.ErrorIs(t, err, domain.ErrNotCapturable)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusConflict, apiErr.Status)

	// The refused attempt still lands in the reconciliation log; its real
	// terminal state is unknown until reconciled.
	attempt := paylog.last()
	require.Equal(t, "capture", attempt.Operation)
	require.Equal(t, domain.ProcessorStateUnknown, attempt.State)
	require.NotEmpty(t, attempt.ErrDetail)
}

func TestVoidNotVoidableMapsSentinel(t *testing.T) {
	ctx := context.Background()
	gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "not_voidable", "message": "already captured"},
		})
	}))

	err := gw.Void(ctx, "auth-123")
	require.ErrorIs(t, err, domain.ErrNotVoidable)
}

func TestRefund(t *testing.T) {
	ctx := context.Background()
	gw, paylog := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/charges/ch-9/refunds", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"reference": "auth-123", "charge_id": "ch-9", "amount": 500, "status": "refunded",
		})
	}))

	refund, err := gw.Refund(ctx, "ch-9", 500)
	require.NoError(t, err)
	require.Equal(t, domain.ProcessorStateRefunded, refund.State)
	require.EqualValues(t, 500, refund.AmountCents)
	require.Equal(t, "refund", paylog.last().Operation)
}

func TestStatusTranslation(t *testing.T) {
	ctx := context.Background()
	status := "succeeded"
	gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"reference": "auth-123", "status": status})
	}))

	state, err := gw.Status(ctx, "auth-123")
	require.NoError(t, err)
	require.Equal(t, domain.ProcessorStateCaptured, state)

	status = "canceled"
	state, err = gw.Status(ctx, "auth-123")
	require.NoError(t, err)
	require.Equal(t, domain.ProcessorStateVoided, state)
}

func TestNonJSONErrorBody(t *testing.T) {
	ctx := context.Background()
	gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream timeout"))
	}))

	_, err := gw.Capture(ctx, "auth-123")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadGateway, apiErr.Status)
	require.Equal(t, "http_error", apiErr.Code)
}
