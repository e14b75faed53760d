package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/aid-ledger/ledger"
	"github.com/warp/aid-ledger/ledger/store"
)

func raws(items ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(items))
	for i, s := range items {
		out[i] = json.RawMessage(s)
	}
	return out
}

func TestMemory_GetReturnsCopies(t *testing.T) {
	// GIVEN: A stored collection
	m := store.NewMemory()
	ctx := context.Background()
	in := raws(`{"id":"a"}`, `{"id":"b"}`)
	require.NoError(t, m.Put(ctx, ledger.CollectionCases, in))

	// WHEN: The caller mutates both its input and the returned slice
	in[0][7] = 'z'
	got, err := m.Get(ctx, ledger.CollectionCases)
	require.NoError(t, err)
	got[1] = json.RawMessage(`{}`)

	// THEN: The store is unaffected
	again, err := m.Get(ctx, ledger.CollectionCases)
	require.NoError(t, err)
	assert.Equal(t, raws(`{"id":"a"}`, `{"id":"b"}`), again)
}

func TestMemory_EmptyPutClears(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Put(ctx, ledger.CollectionSession, raws(`{"id":"u"}`)))

	require.NoError(t, m.Put(ctx, ledger.CollectionSession, nil))

	got, err := m.Get(ctx, ledger.CollectionSession)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTxMemory_WithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		tm := store.NewTxMemory()
		err := tm.WithTx(ctx, func(s ledger.Store) error {
			return s.Put(ctx, ledger.CollectionCases, raws(`{"id":"a"}`))
		})
		require.NoError(t, err)

		got, err := tm.Get(ctx, ledger.CollectionCases)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("rollback restores every collection", func(t *testing.T) {
		// GIVEN: Existing cases and no vouchers
		tm := store.NewTxMemory()
		require.NoError(t, tm.Put(ctx, ledger.CollectionCases, raws(`{"id":"a"}`)))
		boom := errors.New("boom")

		// WHEN: A transaction writes two collections then fails
		err := tm.WithTx(ctx, func(s ledger.Store) error {
			if err := s.Put(ctx, ledger.CollectionCases, raws(`{"id":"a2"}`)); err != nil {
				return err
			}
			if err := s.Put(ctx, ledger.CollectionVouchers, raws(`{"id":"v"}`)); err != nil {
				return err
			}
			return boom
		})

		// THEN: The error surfaces and nothing was written
		assert.ErrorIs(t, err, boom)
		cases, _ := tm.Get(ctx, ledger.CollectionCases)
		assert.Equal(t, raws(`{"id":"a"}`), cases)
		vouchers, _ := tm.Get(ctx, ledger.CollectionVouchers)
		assert.Empty(t, vouchers)
	})

	t.Run("reads inside see earlier writes", func(t *testing.T) {
		tm := store.NewTxMemory()
		err := tm.WithTx(ctx, func(s ledger.Store) error {
			require.NoError(t, s.Put(ctx, ledger.CollectionSchemes, raws(`{"id":"s"}`)))
			got, err := s.Get(ctx, ledger.CollectionSchemes)
			require.NoError(t, err)
			assert.Len(t, got, 1)
			return nil
		})
		require.NoError(t, err)
	})
}
