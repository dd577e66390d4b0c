package solana

import (
	"encoding/json"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRawTransaction(sig string, status rpc.ConfirmationStatusType, meta *StatusMeta) *RawTransaction {
	bt := solana.UnixTimeSeconds(1700000000)
	return &RawTransaction{
		Confirmation: SignatureInfo{
			Signature: sig,
			Slot:      250000000,
			BlockTime: &bt,
			Status:    status,
		},
		Body: EncodedBody{
			Encoding:   BodyEncodingJSON,
			Signatures: []string{sig},
			Meta:       meta,
		},
	}
}

func TestMapTransaction_SuccessfulFinalized(t *testing.T) {
	sig := testSignature(1).String()
	raw := newRawTransaction(sig, rpc.ConfirmationStatusFinalized, &StatusMeta{
		Fee:          5000,
		ComputeUnits: ComputeUnits{State: ComputeUnitsPresent, Value: 1200},
	})

	tx, err := MapTransaction(raw)
	require.NoError(t, err)

	assert.Equal(t, &Transaction{
		Signature:          sig,
		Timestamp:          1700000000000,
		Successful:         true,
		ConfirmationStatus: Finalized,
		Slot:               250000000,
		Fee:                5000,
		ComputeUnits:       1200,
	}, tx)
}

func TestMapTransaction_FailedExecution(t *testing.T) {
	raw := newRawTransaction(testSignature(1).String(), rpc.ConfirmationStatusConfirmed, &StatusMeta{
		Err:          json.RawMessage(`{"InstructionError":[0,{"Custom":1}]}`),
		Fee:          5000,
		ComputeUnits: ComputeUnits{State: ComputeUnitsPresent, Value: 300},
	})

	tx, err := MapTransaction(raw)
	require.NoError(t, err)
	assert.False(t, tx.Successful)
	assert.Equal(t, Confirmed, tx.ConfirmationStatus)
	assert.Equal(t, uint64(5000), tx.Fee)
}

func TestMapTransaction_ComputeUnitsNullIsZero(t *testing.T) {
	raw := newRawTransaction(testSignature(1).String(), rpc.ConfirmationStatusFinalized, &StatusMeta{
		Fee:          5000,
		ComputeUnits: ComputeUnits{State: ComputeUnitsAbsent},
	})

	tx, err := MapTransaction(raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), tx.ComputeUnits)
}

func TestMapTransaction_UsesFirstSignature(t *testing.T) {
	first := testSignature(1).String()
	raw := newRawTransaction(first, rpc.ConfirmationStatusFinalized, &StatusMeta{
		ComputeUnits: ComputeUnits{State: ComputeUnitsPresent, Value: 1},
	})
	raw.Body.Signatures = []string{first, testSignature(2).String()}

	tx, err := MapTransaction(raw)
	require.NoError(t, err)
	assert.Equal(t, first, tx.Signature)
}

func TestMapConfirmationStatus(t *testing.T) {
	tests := []struct {
		in   rpc.ConfirmationStatusType
		want ConfirmationStatus
	}{
		{rpc.ConfirmationStatusProcessed, Confirmed},
		{rpc.ConfirmationStatusConfirmed, Confirmed},
		{rpc.ConfirmationStatusFinalized, Finalized},
		{"", Unconfirmed},
		{"rooted", Unconfirmed},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			got := MapConfirmationStatus(tt.in)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}
}

func TestMapTransaction_Errors(t *testing.T) {
	sig := testSignature(1).String()
	okMeta := func() *StatusMeta {
		return &StatusMeta{ComputeUnits: ComputeUnits{State: ComputeUnitsPresent, Value: 1}}
	}

	tests := []struct {
		name    string
		raw     func() *RawTransaction
		wantErr error
	}{
		{
			name:    "nil input",
			raw:     func() *RawTransaction { return nil },
			wantErr: ErrMalformedTransaction,
		},
		{
			name: "binary body",
			raw: func() *RawTransaction {
				r := newRawTransaction(sig, rpc.ConfirmationStatusFinalized, okMeta())
				r.Body.Encoding = BodyEncodingBinary
				r.Body.Signatures = nil
				return r
			},
			wantErr: ErrMalformedTransaction,
		},
		{
			name: "no signatures",
			raw: func() *RawTransaction {
				r := newRawTransaction(sig, rpc.ConfirmationStatusFinalized, okMeta())
				r.Body.Signatures = []string{}
				return r
			},
			wantErr: ErrMalformedTransaction,
		},
		{
			name: "no status meta",
			raw: func() *RawTransaction {
				return newRawTransaction(sig, rpc.ConfirmationStatusFinalized, nil)
			},
			wantErr: ErrMalformedTransaction,
		},
		{
			name: "no block time",
			raw: func() *RawTransaction {
				r := newRawTransaction(sig, rpc.ConfirmationStatusFinalized, okMeta())
				r.Confirmation.BlockTime = nil
				return r
			},
			wantErr: ErrMissingTimestamp,
		},
		{
			name: "compute units omitted by encoding",
			raw: func() *RawTransaction {
				return newRawTransaction(sig, rpc.ConfirmationStatusFinalized, &StatusMeta{
					ComputeUnits: ComputeUnits{State: ComputeUnitsSkipped},
				})
			},
			wantErr: ErrEncodingMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := MapTransaction(tt.raw())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, tx)
		})
	}
}

func TestMapTransaction_Deterministic(t *testing.T) {
	raw := newRawTransaction(testSignature(4).String(), rpc.ConfirmationStatusProcessed, &StatusMeta{
		Fee:          10000,
		ComputeUnits: ComputeUnits{State: ComputeUnitsPresent, Value: 99},
	})

	first, err := MapTransaction(raw)
	require.NoError(t, err)
	second, err := MapTransaction(raw)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTransaction_WireFormat(t *testing.T) {
	tx := Transaction{
		Signature:          "sig",
		Timestamp:          1700000000000,
		Successful:         true,
		ConfirmationStatus: Finalized,
		Slot:               7,
		Fee:                5000,
		ComputeUnits:       0,
	}

	data, err := json.Marshal(tx)
	require.NoError(t, err)
	assert.Equal(t,
		`{"signature":"sig","timestamp":1700000000000,"successful":true,"confirmation_status":"Finalized","slot":7,"fee":5000,"compute_units":0}`,
		string(data))
}

func TestDecodeThenMap_EndToEnd(t *testing.T) {
	sig := testSignature(5).String()
	body, err := DecodeBody([]byte(txJSON(sig, `{"err":null,"fee":5000,"computeUnitsConsumed":null}`)))
	require.NoError(t, err)

	bt := solana.UnixTimeSeconds(1)
	tx, err := MapTransaction(&RawTransaction{
		Confirmation: SignatureInfo{Signature: sig, Slot: 3, BlockTime: &bt},
		Body:         *body,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), tx.Timestamp)
	assert.Equal(t, Unconfirmed, tx.ConfirmationStatus)
	assert.Equal(t, uint64(0), tx.ComputeUnits)
	assert.True(t, tx.Successful)
}
