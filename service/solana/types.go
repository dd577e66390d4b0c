package solana

import (
	"encoding/json"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// SignatureInfo is one entry of getSignaturesForAddress: a signature plus
// the confirmation metadata the node reported alongside it.
type SignatureInfo struct {
	Signature string
	Slot      uint64
	BlockTime *solana.UnixTimeSeconds      // nil until the block has been timed
	Status    rpc.ConfirmationStatusType // empty when the node reported none
}

// BodyEncoding is the encoding the node used for the transaction body.
type BodyEncoding int

const (
	BodyEncodingUnknown BodyEncoding = iota
	BodyEncodingJSON
	BodyEncodingBinary
)

func (e BodyEncoding) String() string {
	switch e {
	case BodyEncodingJSON:
		return "json"
	case BodyEncodingBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// ComputeUnitsState distinguishes the three ways the node can report
// computeUnitsConsumed.
type ComputeUnitsState int

const (
	// ComputeUnitsSkipped means the key was omitted entirely by the encoding.
	ComputeUnitsSkipped ComputeUnitsState = iota
	// ComputeUnitsAbsent means the key was present with a null value.
	ComputeUnitsAbsent
	// ComputeUnitsPresent means the key carried a value.
	ComputeUnitsPresent
)

// ComputeUnits is the tri-state computeUnitsConsumed field.
type ComputeUnits struct {
	State ComputeUnitsState
	Value uint64
}

// StatusMeta holds the parts of the transaction status meta we index.
type StatusMeta struct {
	// Err is the raw execution error; nil when the transaction succeeded.
	Err          json.RawMessage
	Fee          uint64
	ComputeUnits ComputeUnits
}

// EncodedBody is the decoded getTransaction response.
type EncodedBody struct {
	Encoding   BodyEncoding
	Signatures []string // empty unless Encoding is BodyEncodingJSON
	Meta       *StatusMeta
}

// RawTransaction pairs the signature listing entry with the fetched body.
// It only lives between Fetch and MapTransaction.
type RawTransaction struct {
	Confirmation SignatureInfo
	Body         EncodedBody
}

// ConfirmationStatus is the canonical confirmation level of a transaction.
type ConfirmationStatus string

const (
	Unconfirmed ConfirmationStatus = "Unconfirmed"
	Confirmed   ConfirmationStatus = "Confirmed"
	Finalized   ConfirmationStatus = "Finalized"
)

// Valid reports whether s is one of the canonical statuses.
func (s ConfirmationStatus) Valid() bool {
	switch s {
	case Unconfirmed, Confirmed, Finalized:
		return true
	}
	return false
}

// Transaction is the canonical record published downstream.
// Field order and JSON names are the wire format; do not reorder.
type Transaction struct {
	Signature          string             `json:"signature"`
	Timestamp          int64              `json:"timestamp"` // milliseconds since epoch
	Successful         bool               `json:"successful"`
	ConfirmationStatus ConfirmationStatus `json:"confirmation_status"`
	Slot               uint64             `json:"slot"`
	Fee                uint64             `json:"fee"`
	ComputeUnits       uint64             `json:"compute_units"`
}
