// Package server serves a read-only HTTP API over the transactions the sink
// has stored.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/phoenix/service/db"
	"github.com/brojonat/phoenix/service/metrics"
	"github.com/brojonat/phoenix/service/solana"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TransactionStore is the read side of db.Store.
type TransactionStore interface {
	GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error)
	ListTransactions(ctx context.Context, params db.ListTransactionsParams) ([]*solana.Transaction, error)
	CountTransactions(ctx context.Context) (int64, error)
}

// Server represents the HTTP server for the transaction query API.
type Server struct {
	addr    string
	store   TransactionStore
	metrics *metrics.Metrics
	logger  *slog.Logger
	server  *http.Server
}

// New creates a new HTTP server. If metrics is nil, /metrics is not served.
func New(addr string, store TransactionStore, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		addr:    addr,
		store:   store,
		metrics: m,
		logger:  logger.With("component", "http_server"),
	}
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the server's routes wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /api/v1/transactions",
		metrics.HTTPMetricsMiddleware(s.metrics, "/api/v1/transactions")(handleListTransactions(s.store, s.logger)))
	mux.Handle("GET /api/v1/transactions/{signature}",
		metrics.HTTPMetricsMiddleware(s.metrics, "/api/v1/transactions/{signature}")(handleGetTransaction(s.store, s.logger)))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	return corsMiddleware(mux)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
