package sqlite_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/aid-ledger/ledger"
	"github.com/warp/aid-ledger/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func raws(items ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(items))
	for i, s := range items {
		out[i] = json.RawMessage(s)
	}
	return out
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	// GIVEN: An unknown collection
	got, err := s.Get(ctx, ledger.CollectionCases)
	require.NoError(t, err)
	assert.Empty(t, got)

	// WHEN: Writing three records, then replacing with two
	require.NoError(t, s.Put(ctx, ledger.CollectionCases, raws(`{"id":"a"}`, `{"id":"b"}`, `{"id":"c"}`)))
	require.NoError(t, s.Put(ctx, ledger.CollectionCases, raws(`{"id":"c"}`, `{"id":"a"}`)))

	// THEN: Only the latest list remains, in order
	got, err = s.Get(ctx, ledger.CollectionCases)
	require.NoError(t, err)
	assert.Equal(t, raws(`{"id":"c"}`, `{"id":"a"}`), got)

	// AND: Other collections are untouched
	other, err := s.Get(ctx, ledger.CollectionVouchers)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestStore_EmptyPutDeletes(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, ledger.CollectionSession, raws(`{"id":"u","role":"admin"}`)))

	require.NoError(t, s.Put(ctx, ledger.CollectionSession, nil))

	got, err := s.Get(ctx, ledger.CollectionSession)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_LargeCollection(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	records := make([]json.RawMessage, 450)
	for i := range records {
		records[i] = json.RawMessage(`{"n":` + string(rune('0'+i%10)) + `}`)
	}
	require.NoError(t, s.Put(ctx, ledger.CollectionDonations, records))

	got, err := s.Get(ctx, ledger.CollectionDonations)
	require.NoError(t, err)
	require.Len(t, got, 450)
	assert.Equal(t, records[449], got[449])
}

func TestStore_WithTxRollback(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, ledger.CollectionCases, raws(`{"id":"a"}`)))
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx ledger.Store) error {
		require.NoError(t, tx.Put(ctx, ledger.CollectionCases, raws(`{"id":"b"}`)))
		seen, err := tx.Get(ctx, ledger.CollectionCases)
		require.NoError(t, err)
		assert.Equal(t, raws(`{"id":"b"}`), seen, "a transaction reads its own writes")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Get(ctx, ledger.CollectionCases)
	require.NoError(t, err)
	assert.Equal(t, raws(`{"id":"a"}`), got)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	first, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, ledger.CollectionSchemes, raws(`{"id":"SCH-1"}`)))
	require.NoError(t, first.Close())

	second, err := sqlite.New(path)
	require.NoError(t, err)
	defer second.Close()
	got, err := second.Get(ctx, ledger.CollectionSchemes)
	require.NoError(t, err)
	assert.Equal(t, raws(`{"id":"SCH-1"}`), got)
}

func TestStore_LedgerFlow(t *testing.T) {
	// GIVEN: A ledger on SQLite
	l := ledger.New(newStore(t), ledger.WithIDGenerator(ledger.NewSequenceIDs()))
	ctx := context.Background()

	// WHEN: A case goes from report to funded
	c, err := l.CreateCase(ctx, "vol-1", ledger.CaseInput{
		BeneficiaryName: "Meera",
		Address:         "4 Lake Road",
		EstimatedCost:   decimal.NewFromInt(800),
	})
	require.NoError(t, err)
	_, err = l.TransitionCase(ctx, c.ID, ledger.StatusVerified, "ngo-1", nil)
	require.NoError(t, err)
	_, err = l.RecordDonation(ctx, c.ID, decimal.NewFromInt(800), "donor-1")
	require.NoError(t, err)

	// THEN: The stored case reflects every step
	got, err := l.Case(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusFunded, got.Status)
	assert.Equal(t, "ngo-1", got.VerifiedBy)

	donations, err := l.Donations(ctx, ledger.DonationFilter{CaseID: c.ID})
	require.NoError(t, err)
	require.Len(t, donations, 1)
	assert.True(t, decimal.NewFromInt(72).Equal(donations[0].ServiceFee), "fee %s", donations[0].ServiceFee)
}

// =============================================================================
// SQLMOCK - driver failures
// =============================================================================

func TestStore_GetQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := sqlite.NewWithDB(db)

	mock.ExpectQuery("SELECT record FROM collection_records").
		WithArgs(string(ledger.CollectionCases)).
		WillReturnError(errors.New("disk I/O error"))

	_, err = s.Get(context.Background(), ledger.CollectionCases)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query volunteerCases")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_PutRollsBackOnExecError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := sqlite.NewWithDB(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM collection_records").
		WithArgs(string(ledger.CollectionVouchers)).
		WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	err = s.Put(context.Background(), ledger.CollectionVouchers, raws(`{"id":"v"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to clear issuedVouchers")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_PutCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := sqlite.NewWithDB(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM collection_records").
		WithArgs(string(ledger.CollectionSchemes)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO collection_records").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err = s.Put(context.Background(), ledger.CollectionSchemes, raws(`{"id":"a"}`, `{"id":"b"}`))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithTxBeginError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := sqlite.NewWithDB(db)

	mock.ExpectBegin().WillReturnError(errors.New("no connection"))

	called := false
	err = s.WithTx(context.Background(), func(ledger.Store) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}
