package ledger_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/aid-ledger/ledger"
)

func TestCanTransition_Lifecycle(t *testing.T) {
	allowed := map[[2]ledger.CaseStatus]bool{
		{ledger.StatusPending, ledger.StatusVerified}:      true,
		{ledger.StatusPending, ledger.StatusRejected}:      true,
		{ledger.StatusVerified, ledger.StatusFunded}:       true,
		{ledger.StatusFunded, ledger.StatusInProgress}:     true,
		{ledger.StatusInProgress, ledger.StatusCompleted}: true,
	}

	for _, from := range ledger.CaseStatuses {
		for _, to := range ledger.CaseStatuses {
			t.Run(fmt.Sprintf("%s->%s", from, to), func(t *testing.T) {
				assert.Equal(t, allowed[[2]ledger.CaseStatus{from, to}], ledger.CanTransition(from, to))
			})
		}
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, ledger.IsTerminal(ledger.StatusRejected))
	assert.True(t, ledger.IsTerminal(ledger.StatusCompleted))
	assert.False(t, ledger.IsTerminal(ledger.StatusPending))
	assert.False(t, ledger.IsTerminal(ledger.StatusFunded))

	assert.Equal(t, []ledger.CaseStatus{ledger.StatusVerified, ledger.StatusRejected}, ledger.NextStatuses(ledger.StatusPending))
	assert.Empty(t, ledger.NextStatuses(ledger.StatusCompleted))
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 20, ledger.StatusPending.Progress())
	assert.Equal(t, 40, ledger.StatusVerified.Progress())
	assert.Equal(t, 60, ledger.StatusFunded.Progress())
	assert.Equal(t, 80, ledger.StatusInProgress.Progress())
	assert.Equal(t, 100, ledger.StatusCompleted.Progress())
	assert.Equal(t, 0, ledger.StatusRejected.Progress())
}

func TestTransitionCase_VerifyStampsReviewer(t *testing.T) {
	// GIVEN: A pending case
	env := newTestLedger(t)
	ctx := context.Background()
	c := env.newCase(t, "Gita", "Ward 7", "1200")
	notes := "Visited, documents check out"

	// WHEN: An NGO verifies it
	got, err := env.ledger.TransitionCase(ctx, c.ID, ledger.StatusVerified, "ngo-1", &notes)

	// THEN: Status and review stamp are stored
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusVerified, got.Status)
	assert.Equal(t, "ngo-1", got.VerifiedBy)
	require.NotNil(t, got.VerifiedAt)
	assert.Equal(t, t0, *got.VerifiedAt)
	require.NotNil(t, got.VerificationNotes)
	assert.Equal(t, notes, *got.VerificationNotes)

	stored, err := env.ledger.Case(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusVerified, stored.Status)
	assert.Equal(t, "ngo-1", stored.VerifiedBy)
	require.NotNil(t, stored.VerifiedAt)
	assert.True(t, t0.Equal(*stored.VerifiedAt))
}

func TestTransitionCase_RejectIsTerminal(t *testing.T) {
	env := newTestLedger(t)
	ctx := context.Background()
	c := env.newCase(t, "Imran", "Ward 9", "500")

	_, err := env.ledger.TransitionCase(ctx, c.ID, ledger.StatusRejected, "ngo-1", nil)
	require.NoError(t, err)

	_, err = env.ledger.TransitionCase(ctx, c.ID, ledger.StatusVerified, "ngo-1", nil)
	var te *ledger.InvalidTransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ledger.StatusRejected, te.From)
	assert.Equal(t, ledger.StatusVerified, te.To)
}

func TestTransitionCase_RejectsSkip(t *testing.T) {
	// GIVEN: A pending case
	env := newTestLedger(t)
	c := env.newCase(t, "Arjun", "Sector 3", "500")

	// WHEN: Jumping straight to funded
	_, err := env.ledger.TransitionCase(context.Background(), c.ID, ledger.StatusFunded, "ngo-1", nil)

	// THEN: Invalid transition, case unchanged
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
	stored, err := env.ledger.Case(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPending, stored.Status)
}

func TestTransitionCase_Guards(t *testing.T) {
	env := newTestLedger(t)
	ctx := context.Background()

	t.Run("funded needs the goal reached", func(t *testing.T) {
		c := env.verifiedCase(t, "Guard One", "1000")
		_, err := env.ledger.RecordDonation(ctx, c.ID, dec("999"), "donor-1")
		require.NoError(t, err)

		_, err = env.ledger.TransitionCase(ctx, c.ID, ledger.StatusFunded, "ngo-1", nil)

		var te *ledger.InvalidTransitionError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "funding goal not reached", te.Reason)
	})

	t.Run("in-progress needs vouchers", func(t *testing.T) {
		c := env.fundedCase(t, "Guard Two", "400")

		_, err := env.ledger.TransitionCase(ctx, c.ID, ledger.StatusInProgress, "ngo-1", nil)

		var te *ledger.InvalidTransitionError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "no vouchers issued", te.Reason)
	})

	t.Run("completed needs every voucher redeemed", func(t *testing.T) {
		c := env.fundedCase(t, "Guard Three", "1000")
		_, err := env.ledger.IssueVouchers(ctx, c.ID, []ledger.Allocation{
			{ServiceType: "Medical", Amount: dec("500")},
		})
		require.NoError(t, err)

		_, err = env.ledger.TransitionCase(ctx, c.ID, ledger.StatusCompleted, "ngo-1", nil)

		var te *ledger.InvalidTransitionError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "vouchers still outstanding", te.Reason)
	})
}

func TestTransitionCase_UnknownStatusOrCase(t *testing.T) {
	env := newTestLedger(t)
	ctx := context.Background()
	c := env.newCase(t, "Nobody", "Nowhere", "100")

	_, err := env.ledger.TransitionCase(ctx, c.ID, ledger.CaseStatus("archived"), "ngo-1", nil)
	var te *ledger.InvalidTransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ledger.StatusPending, te.From)
	assert.Equal(t, ledger.CaseStatus("archived"), te.To)
	assert.Equal(t, "unknown status", te.Reason)
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)

	_, err = env.ledger.TransitionCase(ctx, "AID-MISSING", ledger.StatusVerified, "ngo-1", nil)
	assert.ErrorIs(t, err, ledger.ErrCaseNotFound)
}
