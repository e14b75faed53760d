/*
funding.go - Fee split, funding progress and donations

FEE MODEL:
  Every donation carries a fixed 9% platform fee.

    serviceFee(amount) = round(amount * 0.09, 2)
    netAmount(amount)  = amount - serviceFee(amount)

  so fee + net always equals the gross amount to the cent. Gross amounts
  count toward a case's goal; net amounts are what vouchers can spend.

FUNDING:
  current = sum of completed donations for the case (gross)
  goal    = case.estimatedCost
  percentage = min(current / goal * 100, 100), goal 0 is ErrDivisionByZero

  Donations are accepted up to the goal and never beyond it. The donation
  that reaches the goal moves a verified case to funded.
*/
package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	// FeeRate is the platform's share of every donation.
	FeeRate = decimal.RequireFromString("0.09")

	hundred = decimal.NewFromInt(100)
)

// SuggestedAmounts are the preset donation buttons, in display order.
var SuggestedAmounts = []decimal.Decimal{
	decimal.NewFromInt(25),
	decimal.NewFromInt(50),
	decimal.NewFromInt(100),
	decimal.NewFromInt(250),
	decimal.NewFromInt(500),
}

// =============================================================================
// PURE ARITHMETIC
// =============================================================================

func ServiceFee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(FeeRate).Round(2)
}

func NetAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Sub(ServiceFee(amount))
}

// FundingPercentage is clamped to 100.
func FundingPercentage(current, goal decimal.Decimal) (decimal.Decimal, error) {
	if goal.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}
	pct := current.Div(goal).Mul(hundred)
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	return pct.Round(2), nil
}

// FundingStatus is a derived view of one case's funding.
type FundingStatus struct {
	Current      decimal.Decimal `json:"current"`
	Goal         decimal.Decimal `json:"goal"`
	Percentage   decimal.Decimal `json:"percentage"`
	Remaining    decimal.Decimal `json:"remaining"`
	NetAvailable decimal.Decimal `json:"netAvailable"`
}

// FundedAmount sums the gross amount of completed donations for a case.
func FundedAmount(caseID string, donations []Donation) decimal.Decimal {
	total := decimal.Zero
	for _, d := range donations {
		if d.CaseID == caseID && d.Status == DonationCompleted {
			total = total.Add(d.Amount)
		}
	}
	return total
}

// NetFunded sums what completed donations leave for vouchers after fees.
func NetFunded(caseID string, donations []Donation) decimal.Decimal {
	total := decimal.Zero
	for _, d := range donations {
		if d.CaseID == caseID && d.Status == DonationCompleted {
			total = total.Add(NetAmount(d.Amount))
		}
	}
	return total
}

// FundingFor computes the funding status of c from the donation collection.
// A zero goal still fills Current and Goal but returns ErrDivisionByZero.
func FundingFor(c Case, donations []Donation) (FundingStatus, error) {
	current := FundedAmount(c.ID, donations)
	remaining := c.EstimatedCost.Sub(current)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	fs := FundingStatus{
		Current:      current,
		Goal:         c.EstimatedCost,
		Remaining:    remaining,
		NetAvailable: NetFunded(c.ID, donations),
	}
	pct, err := FundingPercentage(current, c.EstimatedCost)
	if err != nil {
		return fs, err
	}
	fs.Percentage = pct
	return fs, nil
}

// SuggestAmounts drops every preset above what is left to fund.
func SuggestAmounts(current, goal decimal.Decimal) []decimal.Decimal {
	remaining := goal.Sub(current)
	out := make([]decimal.Decimal, 0, len(SuggestedAmounts))
	for _, a := range SuggestedAmounts {
		if a.LessThanOrEqual(remaining) {
			out = append(out, a)
		}
	}
	return out
}

// =============================================================================
// LEDGER OPERATIONS
// =============================================================================

func (l *Ledger) FundingStatus(ctx context.Context, caseID string) (FundingStatus, error) {
	c, err := l.Case(ctx, caseID)
	if err != nil {
		return FundingStatus{}, err
	}
	donations, err := loadDonations(ctx, l.store)
	if err != nil {
		return FundingStatus{}, err
	}
	return FundingFor(c, donations)
}

// RecordDonation accepts a completed donation against a verified case.
// Overfunding is refused: amount must be positive and at most the remainder.
func (l *Ledger) RecordDonation(ctx context.Context, caseID string, amount decimal.Decimal, donorID string) (Donation, error) {
	if !amount.IsPositive() {
		return Donation{}, &InvalidAmountError{Amount: amount, Reason: "must be positive"}
	}

	var (
		d      Donation
		funded bool
	)
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

		switch c.Status {
		case StatusVerified:
		case StatusFunded, StatusInProgress, StatusCompleted:
			return &InvalidAmountError{Amount: amount, Remaining: decimal.Zero, Reason: "case is fully funded"}
		default:
			return fmt.Errorf("%w: case %s is %s", ErrNotAcceptingDonations, caseID, c.Status)
		}

		donations, err := loadDonations(ctx, s)
		if err != nil {
			return err
		}
		remaining := c.EstimatedCost.Sub(FundedAmount(caseID, donations))
		if amount.GreaterThan(remaining) {
			return &InvalidAmountError{Amount: amount, Remaining: remaining, Reason: "exceeds remaining goal"}
		}

		d = Donation{
			ID:         l.ids.NewID(KindDonation),
			CaseID:     caseID,
			CaseName:   c.BeneficiaryName,
			Category:   c.PrimaryCategory(),
			Amount:     amount,
			ServiceFee: ServiceFee(amount),
			NetAmount:  NetAmount(amount),
			DonorID:    donorID,
			CreatedAt:  l.Now(),
			Status:     DonationCompleted,
		}
		if err := save(ctx, s, CollectionDonations, append(donations, d)); err != nil {
			return err
		}

		if amount.Equal(remaining) {
			cases[i].Status = StatusFunded
			funded = true
			return save(ctx, s, CollectionCases, cases)
		}
		return nil
	})
	if err != nil {
		l.logger.WithError(err).WithField("case_id", caseID).Debug("donation rejected")
		return Donation{}, err
	}

	log := l.logger.WithFields(logrus.Fields{
		"case_id":     caseID,
		"donation_id": d.ID,
		"donor":       donorID,
		"amount":      d.Amount.StringFixed(2),
	})
	log.Info("donation recorded")
	if funded {
		log.Info("case fully funded")
	}
	return d, nil
}

// DonationFilter narrows Donations. Zero fields match everything.
type DonationFilter struct {
	CaseID  string
	DonorID string
}

// Donations returns matching donations, newest first.
func (l *Ledger) Donations(ctx context.Context, f DonationFilter) ([]Donation, error) {
	donations, err := loadDonations(ctx, l.store)
	if err != nil {
		return nil, err
	}
	out := make([]Donation, 0, len(donations))
	for _, d := range donations {
		if f.CaseID != "" && d.CaseID != f.CaseID {
			continue
		}
		if f.DonorID != "" && d.DonorID != f.DonorID {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
