package ingest

import (
	"context"
	"errors"

	"github.com/brojonat/phoenix/service/nats"
	"github.com/brojonat/phoenix/service/solana"
)

// ErrCanceled marks a unit that stopped because its run was cancelled.
var ErrCanceled = errors.New("run canceled")

// Stage is the step of a unit of work where a failure happened.
type Stage string

const (
	StageResolve Stage = "resolve"
	StageFetch   Stage = "fetch"
	StageMap     Stage = "map"
	StagePublish Stage = "publish"
)

// Kind classifies a failure for metrics and reprocessing decisions.
type Kind string

const (
	KindResolution           Kind = "resolution"
	KindNotFound             Kind = "not_found"
	KindDecode               Kind = "decode"
	KindTransport            Kind = "transport"
	KindMalformedTransaction Kind = "malformed_transaction"
	KindMissingTimestamp     Kind = "missing_timestamp"
	KindEncodingMismatch     Kind = "encoding_mismatch"
	KindPublish              Kind = "publish"
	KindCanceled             Kind = "canceled"
)

// Retryable reports whether re-running later may succeed for this kind.
// Malformed bodies and encoding mismatches will fail the same way again.
func (k Kind) Retryable() bool {
	switch k {
	case KindMalformedTransaction, KindEncodingMismatch, KindDecode:
		return false
	}
	return true
}

// Classify maps an error from the resolver, fetcher, mapper or publisher
// onto a Kind. Unrecognised errors are treated as transport failures.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, ErrCanceled):
		return KindCanceled
	case errors.Is(err, solana.ErrResolution):
		return KindResolution
	case errors.Is(err, solana.ErrNotFound):
		return KindNotFound
	case errors.Is(err, solana.ErrDecode):
		return KindDecode
	case errors.Is(err, solana.ErrMalformedTransaction):
		return KindMalformedTransaction
	case errors.Is(err, solana.ErrMissingTimestamp):
		return KindMissingTimestamp
	case errors.Is(err, solana.ErrEncodingMismatch):
		return KindEncodingMismatch
	case errors.Is(err, nats.ErrPublish):
		return KindPublish
	case errors.Is(err, solana.ErrTransport):
		return KindTransport
	case errors.Is(err, context.Canceled):
		return KindCanceled
	default:
		return KindTransport
	}
}
