/*
transition.go - Case state machine

LIFECYCLE:

  pending ──▶ verified ──▶ funded ──▶ in-progress ──▶ completed
     │
     └──────▶ rejected

  rejected and completed are terminal. No status is ever skipped or reversed.

GUARDS:
  verified -> funded         funding has reached the estimated cost
  funded -> in-progress      at least one voucher has been issued
  in-progress -> completed   every voucher for the case is completed

  verified and rejected are set by a reviewer; they stamp verifiedAt,
  verifiedBy and the optional notes onto the case.
*/
package ledger

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

var transitions = map[CaseStatus][]CaseStatus{
	StatusPending:    {StatusVerified, StatusRejected},
	StatusVerified:   {StatusFunded},
	StatusFunded:     {StatusInProgress},
	StatusInProgress: {StatusCompleted},
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to CaseStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func IsTerminal(s CaseStatus) bool {
	return len(transitions[s]) == 0
}

// NextStatuses lists the statuses reachable from s in one step.
func NextStatuses(s CaseStatus) []CaseStatus {
	next := make([]CaseStatus, len(transitions[s]))
	copy(next, transitions[s])
	return next
}

// Progress is the completion percentage shown against a status.
func (s CaseStatus) Progress() int {
	switch s {
	case StatusPending:
		return 20
	case StatusVerified:
		return 40
	case StatusFunded:
		return 60
	case StatusInProgress:
		return 80
	case StatusCompleted:
		return 100
	default:
		return 0
	}
}

// TransitionCase moves a case along its lifecycle after checking the guard
// for the target status. actorID and notes are recorded for reviews.
func (l *Ledger) TransitionCase(ctx context.Context, caseID string, to CaseStatus, actorID string, notes *string) (Case, error) {
	var updated Case
	err := l.store.WithTx(ctx, func(s Store) error {
		cases, err := loadCases(ctx, s)
		if err != nil {
			return err
		}
		i := findCase(cases, caseID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrCaseNotFound, caseID)
		}

		if err := l.checkTransition(ctx, s, cases[i], to); err != nil {
			return err
		}

		l.applyTransition(&cases[i], to, actorID, notes)
		updated = cases[i]
		return save(ctx, s, CollectionCases, cases)
	})
	if err != nil {
		return Case{}, err
	}

	l.logger.WithFields(logrus.Fields{
		"case_id": caseID,
		"status":  to,
		"actor":   actorID,
	}).Info("case transitioned")
	return updated, nil
}

func (l *Ledger) checkTransition(ctx context.Context, s Store, c Case, to CaseStatus) error {
	if !to.Valid() {
		return &InvalidTransitionError{CaseID: c.ID, From: c.Status, To: to, Reason: "unknown status"}
	}
	if !CanTransition(c.Status, to) {
		return &InvalidTransitionError{CaseID: c.ID, From: c.Status, To: to}
	}

	switch to {
	case StatusFunded:
		donations, err := loadDonations(ctx, s)
		if err != nil {
			return err
		}
		if FundedAmount(c.ID, donations).LessThan(c.EstimatedCost) {
			return &InvalidTransitionError{CaseID: c.ID, From: c.Status, To: to, Reason: "funding goal not reached"}
		}
	case StatusInProgress:
		vouchers, err := loadVouchers(ctx, s)
		if err != nil {
			return err
		}
		if len(vouchersFor(vouchers, c.ID)) == 0 {
			return &InvalidTransitionError{CaseID: c.ID, From: c.Status, To: to, Reason: "no vouchers issued"}
		}
	case StatusCompleted:
		vouchers, err := loadVouchers(ctx, s)
		if err != nil {
			return err
		}
		if !allCompleted(vouchersFor(vouchers, c.ID)) {
			return &InvalidTransitionError{CaseID: c.ID, From: c.Status, To: to, Reason: "vouchers still outstanding"}
		}
	}
	return nil
}

func (l *Ledger) applyTransition(c *Case, to CaseStatus, actorID string, notes *string) {
	c.Status = to
	if to == StatusVerified || to == StatusRejected {
		at := l.Now()
		c.VerifiedAt = &at
		c.VerifiedBy = actorID
		c.VerificationNotes = notes
	}
}

func allCompleted(vouchers []Voucher) bool {
	if len(vouchers) == 0 {
		return false
	}
	for _, v := range vouchers {
		if v.Status != VoucherCompleted {
			return false
		}
	}
	return true
}
