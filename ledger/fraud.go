package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FRAUD ALERTS - derived on demand, never stored
// =============================================================================

type AlertKind string

const (
	AlertDuplicateCase      AlertKind = "duplicate_case"
	AlertSuspiciousDonation AlertKind = "suspicious_donation"
	AlertVoucherFraud       AlertKind = "voucher_fraud"
)

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// DefaultFraudThreshold is the donation size that raises a suspicious_donation
// alert.
var DefaultFraudThreshold = decimal.NewFromInt(10000)

// FraudAlert points at the records that tripped a rule. ID is stable for the
// same records, so a client can track an alert across scans.
type FraudAlert struct {
	ID          string    `json:"id"`
	Kind        AlertKind `json:"type"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description"`
	Subjects    []string  `json:"subjects"`
}

// ScanFraud runs every rule over the collections:
//   - duplicate_case per flagged pair of pending cases
//   - suspicious_donation per completed donation at or above threshold
//   - voucher_fraud per voucher with more than one redemption record
func ScanFraud(cases []Case, donations []Donation, redemptions []VoucherRedemption, threshold decimal.Decimal) []FraudAlert {
	var alerts []FraudAlert

	var pending []Case
	for _, c := range cases {
		if c.Status == StatusPending {
			pending = append(pending, c)
		}
	}
	for _, p := range DuplicatePairs(pending) {
		alerts = append(alerts, newAlert(AlertDuplicateCase, SeverityHigh,
			fmt.Sprintf("Potential duplicate case: %s", p.Reason),
			p.First.ID, p.Second.ID))
	}

	for _, d := range completed(donations) {
		if d.Amount.GreaterThanOrEqual(threshold) {
			alerts = append(alerts, newAlert(AlertSuspiciousDonation, SeverityMedium,
				fmt.Sprintf("Large donation of %s from %s", d.Amount.StringFixed(2), d.DonorID),
				d.ID, d.DonorID, d.CaseID))
		}
	}

	byVoucher := make(map[string][]string)
	for _, r := range redemptions {
		byVoucher[r.VoucherID] = append(byVoucher[r.VoucherID], r.ProviderID)
	}
	voucherIDs := make([]string, 0, len(byVoucher))
	for id, providers := range byVoucher {
		if len(providers) > 1 {
			voucherIDs = append(voucherIDs, id)
		}
	}
	sort.Strings(voucherIDs)
	for _, id := range voucherIDs {
		providers := byVoucher[id]
		alerts = append(alerts, newAlert(AlertVoucherFraud, SeverityHigh,
			fmt.Sprintf("Voucher redeemed %d times", len(providers)),
			append([]string{id}, providers...)...))
	}
	return alerts
}

func newAlert(kind AlertKind, sev Severity, desc string, subjects ...string) FraudAlert {
	return FraudAlert{
		ID:          string(kind) + ":" + strings.Join(subjects, ":"),
		Kind:        kind,
		Severity:    sev,
		Description: desc,
		Subjects:    subjects,
	}
}

// FraudAlerts scans the stored collections. A non-positive threshold falls
// back to DefaultFraudThreshold.
func (l *Ledger) FraudAlerts(ctx context.Context, threshold decimal.Decimal) ([]FraudAlert, error) {
	if !threshold.IsPositive() {
		threshold = DefaultFraudThreshold
	}
	cases, err := loadCases(ctx, l.store)
	if err != nil {
		return nil, err
	}
	donations, err := loadDonations(ctx, l.store)
	if err != nil {
		return nil, err
	}
	redemptions, err := loadRedemptions(ctx, l.store)
	if err != nil {
		return nil, err
	}
	return ScanFraud(cases, donations, redemptions, threshold), nil
}
