package nats

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/brojonat/phoenix/service/solana"
)

const (
	// StreamName is the name of the JetStream stream for transactions.
	StreamName = "TRANSACTIONS"

	// Subject is the subject canonical transactions are published on.
	Subject = "transaction"

	// StreamRetention is how long messages are retained (30 days by default).
	StreamRetention = 30 * 24 * time.Hour
)

// ErrPublish means a record was not acknowledged by the stream.
var ErrPublish = errors.New("publish failed")

// Ack is the stream's acknowledgement of a published record.
type Ack struct {
	Stream   string
	Sequence uint64
}

// EncodeTransaction returns the wire payload for tx.
func EncodeTransaction(tx *solana.Transaction) ([]byte, error) {
	if tx == nil {
		return nil, fmt.Errorf("%w: nil transaction", ErrPublish)
	}
	data, err := json.Marshal(tx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal transaction: %w", ErrPublish, err)
	}
	return data, nil
}

// DecodeTransaction parses a wire payload back into the canonical record.
func DecodeTransaction(data []byte) (*solana.Transaction, error) {
	var tx solana.Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
	}
	if tx.Signature == "" {
		return nil, fmt.Errorf("transaction payload has no signature")
	}
	if !tx.ConfirmationStatus.Valid() {
		return nil, fmt.Errorf("transaction %s has invalid confirmation status %q", tx.Signature, tx.ConfirmationStatus)
	}
	return &tx, nil
}
