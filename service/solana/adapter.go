package solana

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// realRPCClient adapts the solana-go RPC client to our RPCClient interface.
type realRPCClient struct {
	client *rpc.Client
}

// NewRPCClient creates a new RPCClient that wraps the solana-go RPC client.
// For premium RPC endpoints that require API keys, include the key in the URL:
// - Helius: https://mainnet.helius-rpc.com/?api-key=YOUR-KEY
// - QuickNode: https://YOUR-ENDPOINT.quiknode.pro/YOUR-KEY/
func NewRPCClient(rpcURL string) RPCClient {
	return &realRPCClient{
		client: rpc.New(rpcURL),
	}
}

func (r *realRPCClient) GetSignaturesForAddress(
	ctx context.Context,
	address solana.PublicKey,
	opts *rpc.GetSignaturesForAddressOpts,
) ([]*rpc.TransactionSignature, error) {
	return r.client.GetSignaturesForAddressWithOpts(ctx, address, opts)
}

// GetTransaction issues getTransaction directly so the result stays raw;
// the typed solana-go result collapses omitted and null meta fields.
func (r *realRPCClient) GetTransaction(
	ctx context.Context,
	signature solana.Signature,
	opts *rpc.GetTransactionOpts,
) (json.RawMessage, error) {
	config := map[string]interface{}{}
	if opts != nil {
		if opts.Encoding != "" {
			config["encoding"] = opts.Encoding
		}
		if opts.Commitment != "" {
			config["commitment"] = opts.Commitment
		}
		if opts.MaxSupportedTransactionVersion != nil {
			config["maxSupportedTransactionVersion"] = *opts.MaxSupportedTransactionVersion
		}
	}

	var raw json.RawMessage
	err := r.client.RPCCallForInto(ctx, &raw, "getTransaction", []interface{}{signature.String(), config})
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || isNull(raw) {
		return nil, rpc.ErrNotFound
	}
	return raw, nil
}

func (r *realRPCClient) Close() error {
	return r.client.Close()
}

// EndpointLabel extracts a short identifier from an RPC URL for metrics labeling.
//   - "https://api.mainnet-beta.solana.com" -> "mainnet"
//   - "https://api.devnet.solana.com" -> "devnet"
//   - "https://mainnet.helius-rpc.com/?api-key=..." -> "helius"
func EndpointLabel(rpcURL string) string {
	parsed, err := url.Parse(rpcURL)
	if err != nil || parsed.Hostname() == "" {
		return "unknown"
	}
	host := parsed.Hostname()

	for _, provider := range []string{"helius", "quiknode", "alchemy", "triton", "rpcpool"} {
		if strings.Contains(host, provider) {
			return provider
		}
	}
	for _, cluster := range []string{"mainnet", "devnet", "testnet"} {
		if strings.Contains(host, cluster) {
			return cluster
		}
	}
	return host
}
