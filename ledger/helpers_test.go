package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/aid-ledger/ledger"
	"github.com/warp/aid-ledger/ledger/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var t0 = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type testEnv struct {
	ledger *ledger.Ledger
	clock  *testClock
	store  *store.TxMemory
}

func newTestLedger(t *testing.T) *testEnv {
	t.Helper()
	clock := &testClock{now: t0}
	mem := store.NewTxMemory()
	l := ledger.New(mem,
		ledger.WithClock(clock.Now),
		ledger.WithIDGenerator(ledger.NewSequenceIDs()),
	)
	return &testEnv{ledger: l, clock: clock, store: mem}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

func caseInput(name, address, cost string) ledger.CaseInput {
	return ledger.CaseInput{
		BeneficiaryName: name,
		Address:         address,
		UrgencyLevel:    ledger.UrgencyHigh,
		AssistanceType:  []ledger.AssistanceType{ledger.AssistanceMedical},
		EstimatedCost:   dec(cost),
	}
}

func (e *testEnv) newCase(t *testing.T, name, address, cost string) ledger.Case {
	t.Helper()
	c, err := e.ledger.CreateCase(context.Background(), "vol-1", caseInput(name, address, cost))
	require.NoError(t, err)
	return c
}

func (e *testEnv) verifiedCase(t *testing.T, name, cost string) ledger.Case {
	t.Helper()
	c := e.newCase(t, name, name+" street", cost)
	c, err := e.ledger.TransitionCase(context.Background(), c.ID, ledger.StatusVerified, "ngo-1", nil)
	require.NoError(t, err)
	return c
}

// fundedCase verifies a case and donates its full cost in one go.
func (e *testEnv) fundedCase(t *testing.T, name, cost string) ledger.Case {
	t.Helper()
	c := e.verifiedCase(t, name, cost)
	_, err := e.ledger.RecordDonation(context.Background(), c.ID, dec(cost), "donor-1")
	require.NoError(t, err)
	c, err = e.ledger.Case(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.StatusFunded, c.Status)
	return c
}

func fullProof() ledger.Proof {
	return ledger.Proof{
		ServicePhoto: "photo://delivery.jpg",
		ServiceNotes: "Medicines handed over at the clinic",
		Location:     &ledger.Location{Lat: 18.52, Lng: 73.85},
	}
}
