package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/aid-ledger/ledger"
)

func TestDuplicatePairs_SimilarName(t *testing.T) {
	// GIVEN: "John Doe" and "John Doe Jr." at different addresses
	cases := []ledger.Case{
		{ID: "AID-1", BeneficiaryName: "John Doe", Address: "12 Hill Road"},
		{ID: "AID-2", BeneficiaryName: "Priya Shah", Address: "5 Station Lane"},
		{ID: "AID-3", BeneficiaryName: "john doe jr.", Address: "88 River View"},
	}

	// WHEN: Running the heuristic
	pairs := ledger.DuplicatePairs(cases)

	// THEN: Exactly the John Doe pair, flagged on name
	require.Len(t, pairs, 1)
	assert.Equal(t, "AID-1", pairs[0].First.ID)
	assert.Equal(t, "AID-3", pairs[0].Second.ID)
	assert.Equal(t, ledger.ReasonSimilarName, pairs[0].Reason)
	assert.Equal(t, []string{"AID-1", "AID-3"}, ledger.DetectDuplicates(cases))
}

func TestDuplicatePairs_SimilarAddress(t *testing.T) {
	cases := []ledger.Case{
		{ID: "AID-1", BeneficiaryName: "Anil", Address: "Flat 3, 12 MG Road, Pune"},
		{ID: "AID-2", BeneficiaryName: "Sunita", Address: "12 mg road"},
	}

	pairs := ledger.DuplicatePairs(cases)

	require.Len(t, pairs, 1)
	assert.Equal(t, ledger.ReasonSimilarAddress, pairs[0].Reason)
}

func TestDetectDuplicates_IDsOnceInFirstAppearanceOrder(t *testing.T) {
	cases := []ledger.Case{
		{ID: "AID-1", BeneficiaryName: "Ravi", Address: "A"},
		{ID: "AID-2", BeneficiaryName: "Ravi Kumar", Address: "B"},
		{ID: "AID-3", BeneficiaryName: "Ravi K", Address: "C"},
		{ID: "AID-4", BeneficiaryName: "Deepa", Address: "D"},
	}

	assert.Equal(t, []string{"AID-1", "AID-2", "AID-3"}, ledger.DetectDuplicates(cases))
	assert.Empty(t, ledger.DetectDuplicates(cases[3:]))
}

func TestPendingDuplicates_IgnoresReviewedCases(t *testing.T) {
	// GIVEN: A John Doe pair, one of which is already verified
	env := newTestLedger(t)
	ctx := context.Background()
	a := env.newCase(t, "John Doe", "12 Hill Road", "100")
	env.newCase(t, "John Doe Jr.", "88 River View", "100")
	env.newCase(t, "Meera", "3 Temple Street", "100")
	_, err := env.ledger.TransitionCase(ctx, a.ID, ledger.StatusVerified, "ngo-1", nil)
	require.NoError(t, err)

	// WHEN: Checking pending duplicates
	report, err := env.ledger.PendingDuplicates(ctx)

	// THEN: Nothing is flagged
	require.NoError(t, err)
	assert.Empty(t, report.Pairs)
	assert.Empty(t, report.CaseIDs)
}

func TestPendingDuplicates_ReportMatchesDetectDuplicates(t *testing.T) {
	// GIVEN: Two pending cases sharing an address and an unrelated one
	env := newTestLedger(t)
	ctx := context.Background()
	a := env.newCase(t, "Ravi Kumar", "9 Market Lane", "100")
	b := env.newCase(t, "Sita Kumar", "9 market lane", "100")
	env.newCase(t, "Meera", "3 Temple Street", "100")

	// WHEN: Building the report
	report, err := env.ledger.PendingDuplicates(ctx)
	require.NoError(t, err)

	// THEN: Ids come from the same first-appearance walk as DetectDuplicates
	cases, err := env.ledger.Cases(ctx, ledger.CaseFilter{Status: ledger.StatusPending})
	require.NoError(t, err)
	assert.Equal(t, ledger.DetectDuplicates(cases), report.CaseIDs)
	assert.Equal(t, []string{a.ID, b.ID}, report.CaseIDs)
	require.Len(t, report.Pairs, 1)
	assert.Equal(t, ledger.ReasonSimilarAddress, report.Pairs[0].Reason)
}
