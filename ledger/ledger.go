/*
ledger.go - The Ledger service

PURPOSE:
  Ledger is the single entry point for every operation on aid records.
  Each mutation loads the collections it needs, applies the domain rules,
  and writes the result back inside one TxStore.WithTx call, so concurrent
  requests never lose each other's updates.

RULES ENFORCED HERE (and in the files it delegates to):
  1. Case lifecycle: pending -> verified|rejected, verified -> funded,
     funded -> in-progress, in-progress -> completed. Nothing else.
  2. Money: a donation is split into a 9% service fee and a net amount.
     Cumulative donations never exceed a case's estimated cost.
  3. Vouchers: issued only against funded cases, redeemed once, only while
     active and unexpired, and only with full proof of service.

EXAMPLE:
  l := ledger.New(store.NewTxMemory(), ledger.WithLogger(log))

  c, _ := l.CreateCase(ctx, "vol-1", input)
  _, _ = l.TransitionCase(ctx, c.ID, ledger.StatusVerified, "ngo-1", nil)
  _, _ = l.RecordDonation(ctx, c.ID, decimal.NewFromInt(500), "donor-1")

SEE ALSO:
  - transition.go: State machine and guards
  - funding.go: Fee arithmetic and donations
  - voucher.go: Issuance and redemption
*/
package ledger

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultVoucherValidity is how long an issued voucher stays redeemable.
const DefaultVoucherValidity = 90 * 24 * time.Hour

// Clock returns the current time.
type Clock func() time.Time

type Ledger struct {
	store           TxStore
	ids             IDGenerator
	now             Clock
	logger          logrus.FieldLogger
	voucherValidity time.Duration
}

type Option func(*Ledger)

func WithIDGenerator(ids IDGenerator) Option {
	return func(l *Ledger) { l.ids = ids }
}

func WithClock(now Clock) Option {
	return func(l *Ledger) { l.now = now }
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithVoucherValidity overrides DefaultVoucherValidity. Non-positive values
// are ignored.
func WithVoucherValidity(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.voucherValidity = d
		}
	}
}

func New(store TxStore, opts ...Option) *Ledger {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	l := &Ledger{
		store:           store,
		ids:             RandomIDs{},
		now:             time.Now,
		logger:          discard,
		voucherValidity: DefaultVoucherValidity,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now exposes the ledger clock to callers that build records around it.
func (l *Ledger) Now() time.Time { return l.now().UTC() }

// Reset empties every collection.
func (l *Ledger) Reset(ctx context.Context) error {
	err := l.store.WithTx(ctx, func(s Store) error {
		for _, c := range Collections {
			if err := s.Put(ctx, c, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	l.logger.Info("ledger reset")
	return nil
}
