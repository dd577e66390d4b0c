package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/phoenix/service/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// maxSignaturesPerRequest is the node's cap on getSignaturesForAddress.
const maxSignaturesPerRequest = 1000

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real Solana nodes.
type RPCClient interface {
	GetSignaturesForAddress(
		ctx context.Context,
		address solana.PublicKey,
		opts *rpc.GetSignaturesForAddressOpts,
	) ([]*rpc.TransactionSignature, error)

	// GetTransaction returns the raw getTransaction result so the caller can
	// tell omitted fields from null ones. A null result is rpc.ErrNotFound.
	GetTransaction(
		ctx context.Context,
		signature solana.Signature,
		opts *rpc.GetTransactionOpts,
	) (json.RawMessage, error)

	Close() error
}

// Client resolves signatures for an address and fetches their transactions.
// It does not retry; callers decide what to do with failures.
type Client struct {
	rpc      RPCClient
	logger   *slog.Logger
	metrics  *metrics.Metrics
	endpoint string // label for metrics, e.g. "devnet" or an RPC provider
}

// NewClient creates a new Solana client.
// If metrics is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, endpoint string, m *metrics.Metrics, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		rpc:      rpcClient,
		logger:   logger.With("component", "solana_client"),
		metrics:  m,
		endpoint: endpoint,
	}
}

// Close releases the underlying RPC connection.
func (c *Client) Close() error {
	return c.rpc.Close()
}

// Resolve returns the signatures for address, most recent first, as ordered
// by the node. A zero limit leaves the page size to the node, so the result
// is never guaranteed to be complete.
func (c *Client) Resolve(ctx context.Context, address string, limit int) ([]SignatureInfo, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid address %q: %w", ErrResolution, address, err)
	}
	if limit < 0 || limit > maxSignaturesPerRequest {
		return nil, fmt.Errorf("%w: limit %d out of range [0, %d]", ErrResolution, limit, maxSignaturesPerRequest)
	}

	opts := &rpc.GetSignaturesForAddressOpts{}
	if limit > 0 {
		opts.Limit = &limit
	}

	c.logger.DebugContext(ctx, "calling GetSignaturesForAddress",
		"address", address,
		"limit", limit,
	)

	start := time.Now()
	sigs, err := c.rpc.GetSignaturesForAddress(ctx, pubkey, opts)
	c.recordCall("GetSignaturesForAddress", err, time.Since(start))

	if err != nil {
		c.logger.ErrorContext(ctx, "failed to get signatures",
			"address", address,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrResolution, err)
	}

	if c.metrics != nil {
		c.metrics.RecordRPCSignaturesPerCall(c.endpoint, float64(len(sigs)))
	}

	infos := make([]SignatureInfo, 0, len(sigs))
	for _, sig := range sigs {
		if sig == nil {
			continue
		}
		infos = append(infos, signatureInfoFromRPC(sig))
	}

	c.logger.DebugContext(ctx, "resolved signatures",
		"address", address,
		"count", len(infos),
	)

	return infos, nil
}

// Fetch retrieves the JSON-encoded transaction for info.Signature.
func (c *Client) Fetch(ctx context.Context, info SignatureInfo) (*RawTransaction, error) {
	sig, err := solana.SignatureFromBase58(info.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid signature %q: %w", ErrDecode, info.Signature, err)
	}

	maxVersion := uint64(0)
	opts := &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingJSON,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	}

	start := time.Now()
	data, err := c.rpc.GetTransaction(ctx, sig, opts)
	c.recordCall("GetTransaction", err, time.Since(start))

	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, info.Signature)
		}
		c.logger.WarnContext(ctx, "failed to get transaction",
			"signature", info.Signature,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	body, err := DecodeBody(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", info.Signature, err)
	}

	return &RawTransaction{Confirmation: info, Body: *body}, nil
}

func (c *Client) recordCall(method string, err error, d time.Duration) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, c.endpoint, d.Seconds())
}

func signatureInfoFromRPC(sig *rpc.TransactionSignature) SignatureInfo {
	return SignatureInfo{
		Signature: sig.Signature.String(),
		Slot:      sig.Slot,
		BlockTime: sig.BlockTime,
		Status:    sig.ConfirmationStatus,
	}
}
