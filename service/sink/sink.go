// Package sink writes canonical transactions taken off the stream into
// Postgres. Writes are idempotent on signature, so redelivery is harmless.
package sink

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brojonat/phoenix/service/db"
	"github.com/brojonat/phoenix/service/metrics"
	"github.com/brojonat/phoenix/service/solana"
)

// Store is the persistence the sink needs.
type Store interface {
	UpsertTransaction(ctx context.Context, tx *solana.Transaction) (db.UpsertResult, error)
}

// Sink persists transactions delivered by a nats.Consumer.
type Sink struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a sink. If metrics is nil, no metrics will be recorded.
func New(store Store, m *metrics.Metrics, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		store:   store,
		logger:  logger.With("component", "sink"),
		metrics: m,
	}
}

// Handle stores one transaction. It matches nats.Handler; a returned error
// causes redelivery.
func (s *Sink) Handle(ctx context.Context, tx *solana.Transaction) error {
	res, err := s.store.UpsertTransaction(ctx, tx)
	if s.metrics != nil {
		s.metrics.RecordSinkWrite(err)
	}
	if err != nil {
		return fmt.Errorf("store transaction %s: %w", tx.Signature, err)
	}

	s.logger.DebugContext(ctx, "stored transaction",
		"signature", tx.Signature,
		"slot", tx.Slot,
		"confirmation_status", tx.ConfirmationStatus,
		"result", res,
	)
	return nil
}
