package solana

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// transactionResult is the subset of the getTransaction result we read.
type transactionResult struct {
	Slot        uint64          `json:"slot"`
	Transaction json.RawMessage `json:"transaction"`
	Meta        *StatusMeta     `json:"meta"`
}

// uiTransaction is the JSON-encoded transaction. Only the signatures are
// needed; the message is left undecoded.
type uiTransaction struct {
	Signatures []string `json:"signatures"`
}

// DecodeBody parses a raw getTransaction result.
//
// A JSON-encoded transaction is an object; binary encodings arrive as a
// ["<data>", "<encoding>"] array or a bare string. Binary bodies decode
// successfully here and are rejected by MapTransaction.
func DecodeBody(data []byte) (*EncodedBody, error) {
	var result transactionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	tx := bytes.TrimSpace(result.Transaction)
	if len(tx) == 0 || isNull(tx) {
		return nil, fmt.Errorf("%w: response has no transaction", ErrDecode)
	}

	body := &EncodedBody{Meta: result.Meta}
	switch tx[0] {
	case '{':
		var ui uiTransaction
		if err := json.Unmarshal(tx, &ui); err != nil {
			return nil, fmt.Errorf("%w: transaction: %w", ErrDecode, err)
		}
		body.Encoding = BodyEncodingJSON
		body.Signatures = ui.Signatures
	case '[', '"':
		body.Encoding = BodyEncodingBinary
	default:
		return nil, fmt.Errorf("%w: unexpected transaction payload", ErrDecode)
	}

	return body, nil
}

// UnmarshalJSON decodes the status meta, keeping track of whether
// computeUnitsConsumed was omitted, null, or set.
func (m *StatusMeta) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*m = StatusMeta{}

	if v, ok := fields["err"]; ok && !isNull(v) {
		m.Err = append(json.RawMessage(nil), v...)
	}

	if v, ok := fields["fee"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &m.Fee); err != nil {
			return fmt.Errorf("fee: %w", err)
		}
	}

	v, ok := fields["computeUnitsConsumed"]
	switch {
	case !ok:
		m.ComputeUnits.State = ComputeUnitsSkipped
	case isNull(v):
		m.ComputeUnits.State = ComputeUnitsAbsent
	default:
		if err := json.Unmarshal(v, &m.ComputeUnits.Value); err != nil {
			return fmt.Errorf("computeUnitsConsumed: %w", err)
		}
		m.ComputeUnits.State = ComputeUnitsPresent
	}

	return nil
}

func isNull(v []byte) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
