package ledger_test

import (
	"context"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/aid-ledger/ledger"
	"github.com/warp/aid-ledger/ledger/store"
)

func TestSession_Lifecycle(t *testing.T) {
	env := newTestLedger(t)
	ctx := context.Background()

	// GIVEN: Nobody signed in
	_, ok, err := env.ledger.Session(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// WHEN: A donor signs in
	_, err = env.ledger.SetSession(ctx, ledger.Session{ID: " donor-rajesh ", Name: "Rajesh", Role: ledger.RoleDonor})
	require.NoError(t, err)

	// THEN: The session reads back
	sess, ok, err := env.ledger.Session(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "donor-rajesh", sess.ID)
	assert.Equal(t, ledger.RoleDonor, sess.Role)

	// WHEN: Signing in as someone else replaces it
	_, err = env.ledger.SetSession(ctx, ledger.Session{ID: "ngo-1", Name: "Care India", Role: ledger.RoleNGO})
	require.NoError(t, err)
	sess, _, err = env.ledger.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ngo-1", sess.ID)

	// WHEN: Signing out
	require.NoError(t, env.ledger.ClearSession(ctx))
	_, ok, err = env.ledger.Session(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetSession_Validation(t *testing.T) {
	env := newTestLedger(t)
	ctx := context.Background()

	_, err := env.ledger.SetSession(ctx, ledger.Session{ID: "x", Role: "superuser"})
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	_, err = env.ledger.SetSession(ctx, ledger.Session{ID: "  ", Role: ledger.RoleAdmin})
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
}

func TestReset_ClearsEverything(t *testing.T) {
	env := newTestLedger(t)
	ctx := context.Background()
	env.issued(t, "Reset Me", "100")
	_, err := env.ledger.SetSession(ctx, ledger.Session{ID: "admin", Role: ledger.RoleAdmin})
	require.NoError(t, err)

	require.NoError(t, env.ledger.Reset(ctx))

	cases, err := env.ledger.Cases(ctx, ledger.CaseFilter{})
	require.NoError(t, err)
	assert.Empty(t, cases)
	vouchers, err := env.ledger.Vouchers(ctx, ledger.VoucherFilter{})
	require.NoError(t, err)
	assert.Empty(t, vouchers)
	_, ok, err := env.ledger.Session(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionChanges_AreLogged(t *testing.T) {
	// GIVEN: A ledger with a captured logger
	logger, hook := logtest.NewNullLogger()
	l := ledger.New(store.NewTxMemory(), ledger.WithLogger(logger))
	ctx := context.Background()

	// WHEN: Signing in
	_, err := l.SetSession(ctx, ledger.Session{ID: "ngo-1", Role: ledger.RoleNGO})
	require.NoError(t, err)

	// THEN: The sign-in is logged with the user
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "session started", hook.LastEntry().Message)
	assert.Equal(t, "ngo-1", hook.LastEntry().Data["user"])

	// WHEN: Signing out
	hook.Reset()
	require.NoError(t, l.ClearSession(ctx))

	// THEN: The sign-out is logged too
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "session cleared", hook.LastEntry().Message)
}
