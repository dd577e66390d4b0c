package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/brojonat/phoenix/service/solana"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTransaction(sig string, slot uint64, status solana.ConfirmationStatus) *solana.Transaction {
	return &solana.Transaction{
		Signature:          sig,
		Timestamp:          1700000000000,
		Successful:         true,
		ConfirmationStatus: status,
		Slot:               slot,
		Fee:                5000,
		ComputeUnits:       1200,
	}
}

func TestStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("insert then get", func(t *testing.T) {
		tx := testTransaction("sig-get", 10, solana.Confirmed)

		res, err := store.UpsertTransaction(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, UpsertInserted, res)

		got, err := store.GetTransaction(ctx, "sig-get")
		require.NoError(t, err)
		assert.Equal(t, tx, got)
	})

	t.Run("redelivery updates until finalized", func(t *testing.T) {
		tx := testTransaction("sig-upsert", 11, solana.Confirmed)

		res, err := store.UpsertTransaction(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, UpsertInserted, res)

		res, err = store.UpsertTransaction(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, UpsertUpdated, res)

		finalized := *tx
		finalized.ConfirmationStatus = solana.Finalized
		res, err = store.UpsertTransaction(ctx, &finalized)
		require.NoError(t, err)
		assert.Equal(t, UpsertUpdated, res)

		stale := *tx
		stale.Fee = 1
		res, err = store.UpsertTransaction(ctx, &stale)
		require.NoError(t, err)
		assert.Equal(t, UpsertUnchanged, res)

		got, err := store.GetTransaction(ctx, "sig-upsert")
		require.NoError(t, err)
		assert.Equal(t, solana.Finalized, got.ConfirmationStatus)
		assert.Equal(t, uint64(5000), got.Fee)
	})

	t.Run("status never moves backwards", func(t *testing.T) {
		tx := testTransaction("sig-rank", 12, solana.Confirmed)

		res, err := store.UpsertTransaction(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, UpsertInserted, res)

		older := *tx
		older.ConfirmationStatus = solana.Unconfirmed
		older.Fee = 1
		res, err = store.UpsertTransaction(ctx, &older)
		require.NoError(t, err)
		assert.Equal(t, UpsertUnchanged, res)

		got, err := store.GetTransaction(ctx, "sig-rank")
		require.NoError(t, err)
		assert.Equal(t, solana.Confirmed, got.ConfirmationStatus)
		assert.Equal(t, uint64(5000), got.Fee)
	})

	t.Run("missing signature", func(t *testing.T) {
		_, err := store.GetTransaction(ctx, "does-not-exist")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rejects invalid status", func(t *testing.T) {
		_, err := store.UpsertTransaction(ctx, testTransaction("sig-bad", 1, "processed"))
		assert.Error(t, err)
	})
}

func TestListTransactions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.UpsertTransaction(ctx, testTransaction(fmt.Sprintf("sig-%d", i), uint64(100+i), solana.Finalized))
		require.NoError(t, err)
	}

	count, err := store.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	page, err := store.ListTransactions(ctx, ListTransactionsParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "sig-4", page[0].Signature)
	assert.Equal(t, "sig-3", page[1].Signature)

	page, err = store.ListTransactions(ctx, ListTransactionsParams{Limit: 2, Offset: 4})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "sig-0", page[0].Signature)
}
