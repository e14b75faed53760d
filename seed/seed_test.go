package seed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/aid-ledger/ledger"
	"github.com/warp/aid-ledger/ledger/store"
	"github.com/warp/aid-ledger/seed"
)

func newLedger() *ledger.Ledger {
	return ledger.New(store.NewTxMemory(), ledger.WithIDGenerator(ledger.NewSequenceIDs()))
}

func apply(t *testing.T, id string) (*ledger.Ledger, seed.Result) {
	t.Helper()
	sc, err := seed.Get(id)
	require.NoError(t, err)
	l := newLedger()
	res, err := seed.Apply(context.Background(), l, sc)
	require.NoError(t, err)
	return l, res
}

func statuses(t *testing.T, l *ledger.Ledger) map[string]ledger.CaseStatus {
	t.Helper()
	cases, err := l.Cases(context.Background(), ledger.CaseFilter{})
	require.NoError(t, err)
	out := make(map[string]ledger.CaseStatus, len(cases))
	for _, c := range cases {
		out[c.BeneficiaryName] = c.Status
	}
	return out
}

func TestList(t *testing.T) {
	all, err := seed.List()
	require.NoError(t, err)

	ids := make([]string, len(all))
	for i, sc := range all {
		ids[i] = sc.ID
		assert.NotEmpty(t, sc.Name, sc.ID)
	}
	assert.Equal(t, []string{"funding-drive", "ngo-schemes", "verification-queue", "voucher-redemption"}, ids)
}

func TestGet_Unknown(t *testing.T) {
	_, err := seed.Get("black-friday")
	assert.ErrorIs(t, err, seed.ErrUnknownScenario)
}

func TestApply_VerificationQueue(t *testing.T) {
	l, res := apply(t, "verification-queue")
	ctx := context.Background()

	assert.Equal(t, seed.Result{Scenario: "verification-queue", Cases: 4}, res)

	queue, err := l.PendingQueue(ctx)
	require.NoError(t, err)
	assert.Len(t, queue, 4)

	report, err := l.PendingDuplicates(ctx)
	require.NoError(t, err)
	require.Len(t, report.Pairs, 1)
	assert.Equal(t, "John Doe", report.Pairs[0].First.BeneficiaryName)
	assert.Equal(t, "John Doe Jr.", report.Pairs[0].Second.BeneficiaryName)
	assert.Len(t, report.CaseIDs, 2)

	sess, ok, err := l.Session(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ledger.RoleNGO, sess.Role)
}

func TestApply_FundingDrive(t *testing.T) {
	l, res := apply(t, "funding-drive")

	assert.Equal(t, 4, res.Cases)
	assert.Equal(t, 4, res.Donations)
	assert.Zero(t, res.Vouchers)

	assert.Equal(t, map[string]ledger.CaseStatus{
		"Asha Devi":     ledger.StatusVerified,
		"Sunil Yadav":   ledger.StatusFunded,
		"Fatima Sheikh": ledger.StatusVerified,
		"Karan Singh":   ledger.StatusRejected,
	}, statuses(t, l))

	donations, err := l.Donations(context.Background(), ledger.DonationFilter{DonorID: "donor-rajesh"})
	require.NoError(t, err)
	assert.Len(t, donations, 2)
}

func TestApply_VoucherRedemption(t *testing.T) {
	l, res := apply(t, "voucher-redemption")

	assert.Equal(t, seed.Result{
		Scenario:    "voucher-redemption",
		Cases:       2,
		Donations:   3,
		Vouchers:    3,
		Redemptions: 2,
	}, res)
	assert.Equal(t, map[string]ledger.CaseStatus{
		"Lakshmi Nair": ledger.StatusInProgress,
		"Arjun Mehta":  ledger.StatusCompleted,
	}, statuses(t, l))

	active, err := l.Vouchers(context.Background(), ledger.VoucherFilter{Status: ledger.VoucherActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Food", active[0].ServiceType)
}

func TestApply_NGOSchemes(t *testing.T) {
	l, res := apply(t, "ngo-schemes")
	ctx := context.Background()

	assert.Equal(t, 3, res.Schemes)

	schemes, err := l.Schemes(ctx, ledger.SchemeFilter{})
	require.NoError(t, err)
	require.Len(t, schemes, 3)

	byName := make(map[string]ledger.Scheme)
	for _, sc := range schemes {
		byName[sc.Name] = sc
	}
	assert.Equal(t, ledger.SchemeActive, byName["Monsoon Relief 2024"].Status)
	assert.Len(t, byName["Monsoon Relief 2024"].Beneficiaries, 2)
	assert.Equal(t, ledger.SchemePaused, byName["Back to School"].Status)
	assert.Equal(t, ledger.SchemeCompleted, byName["Winter Blankets"].Status)
}

func TestApply_ReplacesPreviousState(t *testing.T) {
	// GIVEN: A ledger holding one scenario
	l, _ := apply(t, "voucher-redemption")
	sc, err := seed.Get("verification-queue")
	require.NoError(t, err)

	// WHEN: Applying another on top
	_, err = seed.Apply(context.Background(), l, sc)
	require.NoError(t, err)

	// THEN: Nothing from the first survives
	vouchers, err := l.Vouchers(context.Background(), ledger.VoucherFilter{})
	require.NoError(t, err)
	assert.Empty(t, vouchers)
	assert.Len(t, statuses(t, l), 4)
}

func TestApply_BrokenFixtureLeavesLedgerUntouched(t *testing.T) {
	valid := func() seed.Scenario {
		return seed.Scenario{
			ID: "broken",
			Cases: []seed.CaseFixture{{
				Ref:             "a",
				Volunteer:       "vol-1",
				BeneficiaryName: "Asha",
				Address:         "1 Road",
				EstimatedCost:   "100",
				Review:          &seed.ReviewFixture{Status: ledger.StatusVerified, By: "ngo-1"},
				Donations:       []seed.DonationFixture{{Donor: "donor-1", Amount: "100"}},
				Vouchers:        []seed.AllocationFixture{{ServiceType: "Food", Amount: "50"}},
				Redemptions:     []seed.RedemptionFixture{{Voucher: 0, Provider: "p", Notes: "n", Photo: "p.jpg", Location: &ledger.Location{Lat: 1, Lng: 2}}},
			}},
			Schemes: []seed.SchemeFixture{{Name: "S", FundingGoal: "10", Beneficiaries: []string{"a"}}},
		}
	}

	tests := []struct {
		name   string
		mutate func(sc *seed.Scenario)
		want   string
	}{
		{"bad cost", func(sc *seed.Scenario) { sc.Cases[0].EstimatedCost = "lots" }, "estimatedCost"},
		{"bad donation", func(sc *seed.Scenario) { sc.Cases[0].Donations[0].Amount = "" }, "donation amount"},
		{"bad review status", func(sc *seed.Scenario) { sc.Cases[0].Review.Status = "approved" }, "review"},
		{"redemption past vouchers", func(sc *seed.Scenario) { sc.Cases[0].Redemptions[0].Voucher = 1 }, "references voucher 1 of 1"},
		{"unknown beneficiary ref", func(sc *seed.Scenario) { sc.Schemes[0].Beneficiaries = []string{"zz"} }, `unknown case ref "zz"`},
		{"duplicate ref", func(sc *seed.Scenario) { sc.Cases = append(sc.Cases, sc.Cases[0]) }, "duplicate case ref"},
		{"bad session role", func(sc *seed.Scenario) { sc.Session = &ledger.Session{ID: "x", Role: "root"} }, "session"},
	}

	require.NoError(t, valid().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN: A seeded ledger and a broken scenario
			l, _ := apply(t, "funding-drive")
			sc := valid()
			tt.mutate(&sc)

			// WHEN: Applying it
			_, err := seed.Apply(context.Background(), l, sc)

			// THEN: It fails before the reset
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Len(t, statuses(t, l), 4)
		})
	}
}
