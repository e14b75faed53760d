/*
voucher.go - Voucher issuance and redemption

ISSUANCE:
  A funded case is split into vouchers, one per allocation {serviceType,
  amount}. The allocations together may not exceed the case's net funded
  amount (gross donations minus the 9% fee). Issuing moves the case to
  in-progress.

REDEMPTION:
  A provider presents a voucher id and a proof bundle. The voucher must be
  active and not past validUntil; the proof must carry a photo, notes and a
  location. A successful redemption completes the voucher and, once every
  voucher for the case is completed, completes the case.

EXPIRY:
  SweepExpiredVouchers marks active vouchers past validUntil as expired. A
  voucher past its date is unredeemable whether or not the sweep has run.
*/
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Allocation is one line of a voucher plan.
type Allocation struct {
	ServiceType string          `json:"serviceType"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

// Redeemable reports whether v can be redeemed at the given time, and if not,
// why not.
func (v Voucher) Redeemable(at time.Time) (bool, string) {
	switch {
	case v.Status == VoucherCompleted:
		return false, "already redeemed"
	case v.Status != VoucherActive:
		return false, "voucher is " + string(v.Status)
	case at.After(v.ValidUntil):
		return false, "expired"
	}
	return true, ""
}

func vouchersFor(vouchers []Voucher, caseID string) []Voucher {
	var out []Voucher
	for _, v := range vouchers {
		if v.CaseID == caseID {
			out = append(out, v)
		}
	}
	return out
}

func findVoucher(vouchers []Voucher, id string) int {
	for i := range vouchers {
		if vouchers[i].ID == id {
			return i
		}
	}
	return -1
}

// =============================================================================
// ISSUANCE
// =============================================================================

// IssueVouchers creates one active voucher per allocation and moves the case
// to in-progress.
func (l *Ledger) IssueVouchers(ctx context.Context, caseID string, allocs []Allocation) ([]Voucher, error) {
	if len(allocs) == 0 {
		return nil, &ValidationError{Field: "allocations", Message: "must not be empty"}
	}
	total := decimal.Zero
	for i, a := range allocs {
		if strings.TrimSpace(a.ServiceType) == "" {
			return nil, &ValidationError{Field: fmt.Sprintf("allocations[%d].serviceType", i), Message: "is required"}
		}
		if !a.Amount.IsPositive() {
			return nil, &InvalidAmountError{Amount: a.Amount, Reason: "allocation must be positive"}
		}
		total = total.Add(a.Amount)
	}

	var issued []Voucher
	err := l.store.WithTx(ctx, func(s Store) error {
		cases, err := loadCases(ctx, s)
		if err != nil {
			return err
		}
		i := findCase(cases, caseID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrCaseNotFound, caseID)
		}
		c := cases[i]
		if c.Status != StatusFunded {
			return &InvalidTransitionError{CaseID: c.ID, From: c.Status, To: StatusInProgress, Reason: "vouchers require a funded case"}
		}

		donations, err := loadDonations(ctx, s)
		if err != nil {
			return err
		}
		vouchers, err := loadVouchers(ctx, s)
		if err != nil {
			return err
		}

		available := NetFunded(caseID, donations)
		for _, v := range vouchersFor(vouchers, caseID) {
			available = available.Sub(v.Amount)
		}
		if total.GreaterThan(available) {
			return &InvalidAmountError{Amount: total, Remaining: available, Reason: "allocations exceed net funded amount"}
		}

		now := l.Now()
		for _, a := range allocs {
			issued = append(issued, Voucher{
				ID:              l.ids.NewID(KindVoucher),
				CaseID:          caseID,
				BeneficiaryName: c.BeneficiaryName,
				ServiceType:     strings.TrimSpace(a.ServiceType),
				Amount:          a.Amount,
				ValidUntil:      now.Add(l.voucherValidity),
				Status:          VoucherActive,
				Description:     a.Description,
				IssuedAt:        now,
			})
		}
		if err := save(ctx, s, CollectionVouchers, append(vouchers, issued...)); err != nil {
			return err
		}

		cases[i].Status = StatusInProgress
		return save(ctx, s, CollectionCases, cases)
	})
	if err != nil {
		l.logger.WithError(err).WithField("case_id", caseID).Debug("voucher issuance rejected")
		return nil, err
	}

	l.logger.WithFields(logrus.Fields{
		"case_id":  caseID,
		"vouchers": len(issued),
		"total":    total.StringFixed(2),
	}).Info("vouchers issued")
	return issued, nil
}

// =============================================================================
// REDEMPTION
// =============================================================================

// RedeemVoucher records proof of service against an active voucher.
// Redeemability is checked before the proof, so a spent voucher always
// reports ErrVoucherNotRedeemable.
func (l *Ledger) RedeemVoucher(ctx context.Context, voucherID, providerID string, proof Proof) (VoucherRedemption, error) {
	var (
		r             VoucherRedemption
		caseCompleted bool
	)
	err := l.store.WithTx(ctx, func(s Store) error {
		vouchers, err := loadVouchers(ctx, s)
		if err != nil {
			return err
		}
		vi := findVoucher(vouchers, voucherID)
		if vi < 0 {
			return fmt.Errorf("%w: %s", ErrVoucherNotFound, voucherID)
		}
		v := vouchers[vi]

		now := l.Now()
		if ok, reason := v.Redeemable(now); !ok {
			return &VoucherNotRedeemableError{VoucherID: v.ID, Status: v.Status, Reason: reason}
		}
		if missing := proof.Missing(); len(missing) > 0 {
			return &MissingProofError{Missing: missing}
		}
		if proof.Timestamp.IsZero() {
			proof.Timestamp = now
		}

		redemptions, err := loadRedemptions(ctx, s)
		if err != nil {
			return err
		}
		r = VoucherRedemption{
			ID:          l.ids.NewID(KindRedemption),
			VoucherID:   v.ID,
			CaseID:      v.CaseID,
			ProviderID:  providerID,
			ServiceType: v.ServiceType,
			Amount:      v.Amount,
			ProofData:   proof,
			Status:      RedemptionCompleted,
			RedeemedAt:  now,
		}
		if err := save(ctx, s, CollectionRedemptions, append(redemptions, r)); err != nil {
			return err
		}

		vouchers[vi].Status = VoucherCompleted
		if err := save(ctx, s, CollectionVouchers, vouchers); err != nil {
			return err
		}

		if !allCompleted(vouchersFor(vouchers, v.CaseID)) {
			return nil
		}
		cases, err := loadCases(ctx, s)
		if err != nil {
			return err
		}
		ci := findCase(cases, v.CaseID)
		if ci < 0 || cases[ci].Status != StatusInProgress {
			return nil
		}
		cases[ci].Status = StatusCompleted
		caseCompleted = true
		return save(ctx, s, CollectionCases, cases)
	})
	if err != nil {
		l.logger.WithError(err).WithField("voucher_id", voucherID).Debug("redemption rejected")
		return VoucherRedemption{}, err
	}

	log := l.logger.WithFields(logrus.Fields{
		"voucher_id": voucherID,
		"case_id":    r.CaseID,
		"provider":   providerID,
	})
	log.Info("voucher redeemed")
	if caseCompleted {
		log.Info("case completed")
	}
	return r, nil
}

// =============================================================================
// QUERIES & MAINTENANCE
// =============================================================================

func (l *Ledger) Voucher(ctx context.Context, id string) (Voucher, error) {
	vouchers, err := loadVouchers(ctx, l.store)
	if err != nil {
		return Voucher{}, err
	}
	i := findVoucher(vouchers, id)
	if i < 0 {
		return Voucher{}, fmt.Errorf("%w: %s", ErrVoucherNotFound, id)
	}
	return vouchers[i], nil
}

// VoucherFilter narrows Vouchers. Zero fields match everything.
type VoucherFilter struct {
	CaseID string
	Status VoucherStatus
}

func (l *Ledger) Vouchers(ctx context.Context, f VoucherFilter) ([]Voucher, error) {
	vouchers, err := loadVouchers(ctx, l.store)
	if err != nil {
		return nil, err
	}
	out := make([]Voucher, 0, len(vouchers))
	for _, v := range vouchers {
		if f.CaseID != "" && v.CaseID != f.CaseID {
			continue
		}
		if f.Status != "" && v.Status != f.Status {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// RedemptionFilter narrows Redemptions. Zero fields match everything.
type RedemptionFilter struct {
	CaseID     string
	ProviderID string
}

func (l *Ledger) Redemptions(ctx context.Context, f RedemptionFilter) ([]VoucherRedemption, error) {
	redemptions, err := loadRedemptions(ctx, l.store)
	if err != nil {
		return nil, err
	}
	out := make([]VoucherRedemption, 0, len(redemptions))
	for _, r := range redemptions {
		if f.CaseID != "" && r.CaseID != f.CaseID {
			continue
		}
		if f.ProviderID != "" && r.ProviderID != f.ProviderID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// SweepExpiredVouchers marks every active voucher past validUntil as expired
// and returns how many changed.
func (l *Ledger) SweepExpiredVouchers(ctx context.Context) (int, error) {
	var expired int
	err := l.store.WithTx(ctx, func(s Store) error {
		vouchers, err := loadVouchers(ctx, s)
		if err != nil {
			return err
		}
		now := l.Now()
		for i := range vouchers {
			if vouchers[i].Status == VoucherActive && now.After(vouchers[i].ValidUntil) {
				vouchers[i].Status = VoucherExpired
				expired++
			}
		}
		if expired == 0 {
			return nil
		}
		return save(ctx, s, CollectionVouchers, vouchers)
	})
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		l.logger.WithField("expired", expired).Info("vouchers expired")
	}
	return expired, nil
}
