// Package server assembles the HTTP and WebSocket API for the economy
// engine.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/server/handler"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/server/middleware"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // empty disables authentication
}

// Handlers aggregates the handlers the server registers.
type Handlers struct {
	Health   *handler.HealthHandler
	Trades   *handler.TradeHandler
	Listings *handler.ListingHandler
	Cards    *handler.CardHandler
	Admin    *handler.AdminHandler
	Supply   *handler.SupplyHandler
	Audit    *handler.AuditHandler
	Balances *handler.BalanceHandler
}

// Server is the economy engine's API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes and wires the middleware chain.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health (no auth above it in the chain, key still applies).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Trade escrow.
	mux.HandleFunc("POST /api/trades", handlers.Trades.Propose)
	mux.HandleFunc("GET /api/trades", handlers.Trades.List)
	mux.HandleFunc("GET /api/trades/{id}", handlers.Trades.Get)
	mux.HandleFunc("POST /api/trades/{id}/finalize", handlers.Trades.Finalize)
	mux.HandleFunc("DELETE /api/trades/{id}", handlers.Trades.Cancel)

	// Pack listings.
	mux.HandleFunc("POST /api/listings", handlers.Listings.Create)
	mux.HandleFunc("GET /api/listings/{id}", handlers.Listings.Get)
	mux.HandleFunc("POST /api/listings/{id}/purchase", handlers.Listings.Purchase)
	mux.HandleFunc("GET /api/listings/{id}/payments", handlers.Listings.Payments)

	// Cards.
	mux.HandleFunc("POST /api/cards/mint", handlers.Cards.Mint)
	mux.HandleFunc("GET /api/cards", handlers.Cards.Collection)
	mux.HandleFunc("DELETE /api/cards/{id}", handlers.Cards.Destroy)

	// Supply monitoring.
	mux.HandleFunc("GET /api/supply", handlers.Supply.Counts)

	// Gold balances.
	mux.HandleFunc("GET /api/balance", handlers.Balances.Get)
	mux.HandleFunc("POST /api/admin/users/{id}/deposit", handlers.Balances.Deposit)

	// Admin review and reconciliation.
	mux.HandleFunc("GET /api/admin/listings/pending", handlers.Admin.Pending)
	mux.HandleFunc("POST /api/admin/listings/{id}/approve", handlers.Admin.Approve)
	mux.HandleFunc("POST /api/admin/listings/{id}/reject", handlers.Admin.Reject)
	mux.HandleFunc("POST /api/admin/listings/{id}/disable-refund", handlers.Admin.DisableRefund)
	mux.HandleFunc("POST /api/admin/consistency-check", handlers.Admin.Consistency)
	mux.HandleFunc("GET /api/admin/audit", handlers.Audit.List)

	// WebSocket feed.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start listens for requests and blocks until shutdown or failure.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware sets CORS headers for the allowed origins. No configured
// origins allows all.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				allowed := len(allowedOrigins) == 0
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}
				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Actor-ID")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
