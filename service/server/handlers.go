package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/brojonat/phoenix/service/db"
	solanago "github.com/gagliardetto/solana-go"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// handleListTransactions lists stored transactions, highest slot first.
// GET /api/v1/transactions?limit=N&offset=N
func handleListTransactions(store TransactionStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		limit, err := parseIntParam(query.Get("limit"), defaultListLimit)
		if err != nil {
			writeError(w, "invalid limit parameter: must be an integer", http.StatusBadRequest)
			return
		}
		if limit < 1 {
			writeError(w, "limit must be at least 1", http.StatusBadRequest)
			return
		}
		if limit > maxListLimit {
			writeError(w, "limit cannot exceed 1000", http.StatusBadRequest)
			return
		}

		offset, err := parseIntParam(query.Get("offset"), 0)
		if err != nil {
			writeError(w, "invalid offset parameter: must be an integer", http.StatusBadRequest)
			return
		}
		if offset < 0 {
			writeError(w, "offset cannot be negative", http.StatusBadRequest)
			return
		}
		if offset > math.MaxInt32 {
			writeError(w, "offset is too large", http.StatusBadRequest)
			return
		}

		txs, err := store.ListTransactions(r.Context(), db.ListTransactionsParams{
			Limit:  int32(limit),
			Offset: int32(offset),
		})
		if err != nil {
			logger.ErrorContext(r.Context(), "failed to list transactions", "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		total, err := store.CountTransactions(r.Context())
		if err != nil {
			logger.ErrorContext(r.Context(), "failed to count transactions", "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		logger.DebugContext(r.Context(), "transactions listed", "count", len(txs))

		writeJSON(w, map[string]interface{}{
			"transactions": txs,
			"count":        len(txs),
			"total":        total,
			"limit":        limit,
			"offset":       offset,
		}, http.StatusOK)
	})
}

// handleGetTransaction returns one stored transaction.
// GET /api/v1/transactions/{signature}
func handleGetTransaction(store TransactionStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signature := r.PathValue("signature")
		if _, err := solanago.SignatureFromBase58(signature); err != nil {
			writeError(w, "invalid signature", http.StatusBadRequest)
			return
		}

		tx, err := store.GetTransaction(r.Context(), signature)
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, "transaction not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.ErrorContext(r.Context(), "failed to get transaction", "signature", signature, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, tx, http.StatusOK)
	})
}

func parseIntParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, map[string]string{"error": message}, statusCode)
}
