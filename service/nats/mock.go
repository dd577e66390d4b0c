package nats

import (
	"context"
	"fmt"
	"sync"

	"github.com/brojonat/phoenix/service/solana"
)

// MockPublisher is an in-memory Publisher for testing. Like the real stream
// it appends every publish, including repeats of a signature.
type MockPublisher struct {
	mu              sync.RWMutex
	published       []*solana.Transaction
	publishError    error
	signatureErrors map[string]error
	closed          bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		published:       make([]*solana.Transaction, 0),
		signatureErrors: make(map[string]error),
	}
}

// PublishTransaction records the transaction and returns any configured error.
func (m *MockPublisher) PublishTransaction(ctx context.Context, tx *solana.Transaction) (*Ack, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPublish, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return nil, m.publishError
	}
	if err, ok := m.signatureErrors[tx.Signature]; ok {
		return nil, err
	}

	m.published = append(m.published, tx)
	return &Ack{Stream: StreamName, Sequence: uint64(len(m.published))}, nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// GetPublished returns all published transactions in publish order.
func (m *MockPublisher) GetPublished() []*solana.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy to avoid race conditions
	txs := make([]*solana.Transaction, len(m.published))
	copy(txs, m.published)
	return txs
}

// GetPublishedCount returns the number of published transactions.
func (m *MockPublisher) GetPublishedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.published)
}

// SetPublishError configures the mock to fail every publish.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// SetSignatureError configures the mock to fail publishes of one signature.
func (m *MockPublisher) SetSignatureError(signature string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signatureErrors[signature] = err
}

// IsClosed returns whether the publisher has been closed.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
