package solana

import (
	"fmt"

	"github.com/gagliardetto/solana-go/rpc"
)

// MapTransaction converts a fetched transaction into the canonical record.
// It is pure: the same input always yields the same record.
//
// This is where upstream schema drift gets absorbed. Everything downstream
// depends only on Transaction.
func MapTransaction(raw *RawTransaction) (*Transaction, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: nil transaction", ErrMalformedTransaction)
	}

	body := raw.Body
	if body.Encoding != BodyEncodingJSON {
		return nil, fmt.Errorf("%w: body encoding is %s, want json", ErrMalformedTransaction, body.Encoding)
	}
	if len(body.Signatures) == 0 {
		return nil, fmt.Errorf("%w: empty signature list", ErrMalformedTransaction)
	}
	if body.Meta == nil {
		return nil, fmt.Errorf("%w: missing status meta for %s", ErrMalformedTransaction, body.Signatures[0])
	}

	signature := body.Signatures[0]
	info := raw.Confirmation

	if info.BlockTime == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingTimestamp, signature)
	}

	computeUnits, err := computeUnitsValue(body.Meta.ComputeUnits)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", signature, err)
	}

	return &Transaction{
		Signature:          signature,
		Timestamp:          int64(*info.BlockTime) * 1000,
		Successful:         len(body.Meta.Err) == 0,
		ConfirmationStatus: MapConfirmationStatus(info.Status),
		Slot:               info.Slot,
		Fee:                body.Meta.Fee,
		ComputeUnits:       computeUnits,
	}, nil
}

// MapConfirmationStatus maps the node's status to the canonical one.
// processed is reported as Confirmed.
func MapConfirmationStatus(status rpc.ConfirmationStatusType) ConfirmationStatus {
	switch status {
	case rpc.ConfirmationStatusProcessed, rpc.ConfirmationStatusConfirmed:
		return Confirmed
	case rpc.ConfirmationStatusFinalized:
		return Finalized
	default:
		return Unconfirmed
	}
}

func computeUnitsValue(cu ComputeUnits) (uint64, error) {
	switch cu.State {
	case ComputeUnitsPresent:
		return cu.Value, nil
	case ComputeUnitsAbsent:
		return 0, nil
	default:
		return 0, ErrEncodingMismatch
	}
}
