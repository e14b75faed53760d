/*
stats.go - Read-only aggregates for the role dashboards

REDUCERS:
  Pure functions over collections. They hold no state and never write.

    CountByStatus(cases)              cases per status, every status present
    SumDonations(donations)           gross total of completed donations
    TopDonors(donations, n)           donors ranked by gross total
    CategoryBreakdown(donations, n)   gross total and share per category

  Only completed donations count toward any total.

SUMMARIES:
  Each role gets one summary built from the reducers: volunteer, NGO,
  donor, service provider, and the admin's financial overview.
*/
package ledger

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REDUCERS
// =============================================================================

func CountByStatus(cases []Case) map[CaseStatus]int {
	counts := make(map[CaseStatus]int, len(CaseStatuses))
	for _, s := range CaseStatuses {
		counts[s] = 0
	}
	for _, c := range cases {
		counts[c.Status]++
	}
	return counts
}

func completed(donations []Donation) []Donation {
	out := make([]Donation, 0, len(donations))
	for _, d := range donations {
		if d.Status == DonationCompleted {
			out = append(out, d)
		}
	}
	return out
}

func SumDonations(donations []Donation) decimal.Decimal {
	total := decimal.Zero
	for _, d := range completed(donations) {
		total = total.Add(d.Amount)
	}
	return total
}

type DonorRank struct {
	DonorID   string          `json:"donorId"`
	Amount    decimal.Decimal `json:"amount"`
	Donations int             `json:"donations"`
}

// TopDonors ranks donors by gross amount, ties broken by donor id.
// n <= 0 returns every donor.
func TopDonors(donations []Donation, n int) []DonorRank {
	byDonor := make(map[string]*DonorRank)
	for _, d := range completed(donations) {
		r, ok := byDonor[d.DonorID]
		if !ok {
			r = &DonorRank{DonorID: d.DonorID, Amount: decimal.Zero}
			byDonor[d.DonorID] = r
		}
		r.Amount = r.Amount.Add(d.Amount)
		r.Donations++
	}

	ranks := make([]DonorRank, 0, len(byDonor))
	for _, r := range byDonor {
		ranks = append(ranks, *r)
	}
	sort.Slice(ranks, func(i, j int) bool {
		if c := ranks[i].Amount.Cmp(ranks[j].Amount); c != 0 {
			return c > 0
		}
		return ranks[i].DonorID < ranks[j].DonorID
	})
	if n > 0 && len(ranks) > n {
		ranks = ranks[:n]
	}
	return ranks
}

type CategoryShare struct {
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
}

// CategoryBreakdown totals donations per category, largest first. The
// percentage is of the grand total, to one decimal place. n <= 0 returns
// every category.
func CategoryBreakdown(donations []Donation, n int) []CategoryShare {
	totals := make(map[string]decimal.Decimal)
	grand := decimal.Zero
	for _, d := range completed(donations) {
		cat := d.Category
		if cat == "" {
			cat = "Other"
		}
		totals[cat] = totals[cat].Add(d.Amount)
		grand = grand.Add(d.Amount)
	}

	shares := make([]CategoryShare, 0, len(totals))
	for cat, amount := range totals {
		pct := decimal.Zero
		if !grand.IsZero() {
			pct = amount.Div(grand).Mul(hundred).Round(1)
		}
		shares = append(shares, CategoryShare{Category: cat, Amount: amount, Percentage: pct})
	}
	sort.Slice(shares, func(i, j int) bool {
		if c := shares[i].Amount.Cmp(shares[j].Amount); c != 0 {
			return c > 0
		}
		return shares[i].Category < shares[j].Category
	})
	if n > 0 && len(shares) > n {
		shares = shares[:n]
	}
	return shares
}

// =============================================================================
// ROLE SUMMARIES
// =============================================================================

type VolunteerSummary struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Verified  int `json:"verified"`
	Completed int `json:"completed"`
}

// SummarizeVolunteer counts funded cases as verified.
func SummarizeVolunteer(cases []Case, volunteerID string) VolunteerSummary {
	var s VolunteerSummary
	for _, c := range cases {
		if c.VolunteerID != volunteerID {
			continue
		}
		s.Total++
		switch c.Status {
		case StatusPending:
			s.Pending++
		case StatusVerified, StatusFunded:
			s.Verified++
		case StatusCompleted:
			s.Completed++
		}
	}
	return s
}

type NGOSummary struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Verified int `json:"verified"`
	Rejected int `json:"rejected"`
}

func SummarizeNGO(cases []Case) NGOSummary {
	counts := CountByStatus(cases)
	return NGOSummary{
		Total:    len(cases),
		Pending:  counts[StatusPending],
		Verified: counts[StatusVerified],
		Rejected: counts[StatusRejected],
	}
}

type DonorSummary struct {
	TotalDonated   decimal.Decimal `json:"totalDonated"`
	CasesSupported int             `json:"casesSupported"`
	PeopleHelped   int             `json:"peopleHelped"`
	ImpactScore    int             `json:"impactScore"`
}

// SummarizeDonor estimates reach from the donation count: each donation helps
// its beneficiary plus 0.3 dependants, and the impact score is capped at 100.
func SummarizeDonor(donations []Donation, donorID string) DonorSummary {
	var mine []Donation
	for _, d := range completed(donations) {
		if d.DonorID == donorID {
			mine = append(mine, d)
		}
	}

	cases := make(map[string]bool)
	for _, d := range mine {
		cases[d.CaseID] = true
	}

	n := len(mine)
	total := SumDonations(mine)
	score := n*10 + int(total.Div(hundred).Floor().IntPart())
	if score > 100 {
		score = 100
	}
	return DonorSummary{
		TotalDonated:   total,
		CasesSupported: len(cases),
		PeopleHelped:   n + n*3/10,
		ImpactScore:    score,
	}
}

type ProviderSummary struct {
	TotalServices     int             `json:"totalServices"`
	CompletedServices int             `json:"completedServices"`
	PendingVouchers   int             `json:"pendingVouchers"`
	TotalEarnings     decimal.Decimal `json:"totalEarnings"`
}

// SummarizeProvider counts the provider's redemptions. Vouchers are not
// assigned to a provider, so PendingVouchers is every active voucher.
func SummarizeProvider(redemptions []VoucherRedemption, vouchers []Voucher, providerID string) ProviderSummary {
	s := ProviderSummary{TotalEarnings: decimal.Zero}
	for _, r := range redemptions {
		if r.ProviderID != providerID {
			continue
		}
		s.TotalServices++
		if r.Status == RedemptionCompleted {
			s.CompletedServices++
			s.TotalEarnings = s.TotalEarnings.Add(r.Amount)
		}
	}
	for _, v := range vouchers {
		if v.Status == VoucherActive {
			s.PendingVouchers++
		}
	}
	return s
}

type Financials struct {
	TotalDonations    decimal.Decimal `json:"totalDonations"`
	ServiceFees       decimal.Decimal `json:"serviceFees"`
	Disbursed         decimal.Decimal `json:"disbursed"`
	AverageDonation   decimal.Decimal `json:"averageDonation"`
	TransactionVolume int             `json:"transactionVolume"`
	TopDonors         []DonorRank     `json:"topDonors"`
	CategoryBreakdown []CategoryShare `json:"categoryBreakdown"`
}

// TopN bounds the ranked lists in Financials.
const TopN = 5

func SummarizeFinancials(donations []Donation) Financials {
	done := completed(donations)
	f := Financials{
		TotalDonations:    SumDonations(done),
		ServiceFees:       decimal.Zero,
		Disbursed:         decimal.Zero,
		AverageDonation:   decimal.Zero,
		TransactionVolume: len(done),
		TopDonors:         TopDonors(done, TopN),
		CategoryBreakdown: CategoryBreakdown(done, TopN),
	}
	for _, d := range done {
		f.ServiceFees = f.ServiceFees.Add(ServiceFee(d.Amount))
		f.Disbursed = f.Disbursed.Add(NetAmount(d.Amount))
	}
	if f.TransactionVolume > 0 {
		f.AverageDonation = f.TotalDonations.Div(decimal.NewFromInt(int64(f.TransactionVolume))).Round(2)
	}
	return f
}

// Overview is the admin dashboard.
type Overview struct {
	Cases         map[CaseStatus]int    `json:"cases"`
	ActiveSchemes int                   `json:"activeSchemes"`
	Vouchers      map[VoucherStatus]int `json:"vouchers"`
	Financials    Financials            `json:"financials"`
}

// =============================================================================
// LEDGER VIEWS
// =============================================================================

func (l *Ledger) Overview(ctx context.Context) (Overview, error) {
	cases, err := loadCases(ctx, l.store)
	if err != nil {
		return Overview{}, err
	}
	donations, err := loadDonations(ctx, l.store)
	if err != nil {
		return Overview{}, err
	}
	schemes, err := loadSchemes(ctx, l.store)
	if err != nil {
		return Overview{}, err
	}
	vouchers, err := loadVouchers(ctx, l.store)
	if err != nil {
		return Overview{}, err
	}

	o := Overview{
		Cases:      CountByStatus(cases),
		Vouchers:   make(map[VoucherStatus]int),
		Financials: SummarizeFinancials(donations),
	}
	for _, sc := range schemes {
		if sc.Status == SchemeActive {
			o.ActiveSchemes++
		}
	}
	for _, v := range vouchers {
		o.Vouchers[v.Status]++
	}
	return o, nil
}

func (l *Ledger) VolunteerStats(ctx context.Context, volunteerID string) (VolunteerSummary, error) {
	cases, err := loadCases(ctx, l.store)
	if err != nil {
		return VolunteerSummary{}, err
	}
	return SummarizeVolunteer(cases, volunteerID), nil
}

func (l *Ledger) NGOStats(ctx context.Context) (NGOSummary, error) {
	cases, err := loadCases(ctx, l.store)
	if err != nil {
		return NGOSummary{}, err
	}
	return SummarizeNGO(cases), nil
}

func (l *Ledger) DonorStats(ctx context.Context, donorID string) (DonorSummary, error) {
	donations, err := loadDonations(ctx, l.store)
	if err != nil {
		return DonorSummary{}, err
	}
	return SummarizeDonor(donations, donorID), nil
}

func (l *Ledger) ProviderStats(ctx context.Context, providerID string) (ProviderSummary, error) {
	redemptions, err := loadRedemptions(ctx, l.store)
	if err != nil {
		return ProviderSummary{}, err
	}
	vouchers, err := loadVouchers(ctx, l.store)
	if err != nil {
		return ProviderSummary{}, err
	}
	return SummarizeProvider(redemptions, vouchers, providerID), nil
}
