package solana

import "errors"

// Errors returned by the resolver, fetcher and mapper. Callers classify
// them with errors.Is; the wrapped message carries the detail.
var (
	// ErrResolution means the signature list could not be obtained.
	ErrResolution = errors.New("signature resolution failed")

	// ErrNotFound means the node does not know the signature.
	ErrNotFound = errors.New("transaction not found")

	// ErrDecode means the node's response could not be parsed.
	ErrDecode = errors.New("transaction decode failed")

	// ErrTransport covers connectivity problems and timeouts.
	ErrTransport = errors.New("rpc transport error")

	// ErrMalformedTransaction means the body is not a JSON-encoded
	// transaction with signatures and status meta.
	ErrMalformedTransaction = errors.New("malformed transaction")

	// ErrMissingTimestamp means the block has not been timed yet. Retryable.
	ErrMissingTimestamp = errors.New("transaction has no block time")

	// ErrEncodingMismatch means the response encoding omitted compute units
	// entirely, which the requested encoding version should never do.
	ErrEncodingMismatch = errors.New("compute units not provided by response encoding")
)
