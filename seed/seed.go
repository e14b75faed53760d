/*
Package seed loads demo scenarios into a ledger.

PURPOSE:
  Scenarios are YAML fixtures embedded in the binary. Each one describes
  cases, reviews, donations, vouchers, redemptions and schemes. Apply replays
  them through the ledger's own operations, so seeded data obeys the same
  lifecycle and money rules as live data.

AVAILABLE SCENARIOS:
  verification-queue:  Pending cases for review, with a duplicate pair
  funding-drive:       Verified cases at different funding levels
  voucher-redemption:  Vouchers issued and partly redeemed
  ngo-schemes:         Schemes in every status

HOW SCENARIOS WORK:
  1. Reset the ledger (clear every collection)
  2. Register each case, then review it
  3. Record donations in order (the last one may fund the case)
  4. Issue vouchers, then redeem the listed ones
  5. Create schemes and link beneficiaries by case ref
  6. Store the scenario's session

ADDING NEW SCENARIOS:
  Drop a new file into scenarios/. The id inside the file is what callers
  pass to Get and Apply.

NOTE:
  Scenarios reset the ledger. Only use in development/demo environments.
  Apply checks every fixture (amounts, statuses, refs, voucher indexes)
  before it resets, so a broken file leaves the ledger untouched. A fixture
  the ledger itself rejects during replay (overfunding, say) still leaves
  it partly seeded; Apply again or reset.
*/
package seed

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/aid-ledger/ledger"
)

//go:embed scenarios/*.yaml
var files embed.FS

var ErrUnknownScenario = errors.New("unknown scenario")

// =============================================================================
// FIXTURE SHAPES
// =============================================================================

type Scenario struct {
	ID          string          `yaml:"id" json:"id"`
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description" json:"description"`
	Session     *ledger.Session `yaml:"session" json:"-"`
	Cases       []CaseFixture   `yaml:"cases" json:"-"`
	Schemes     []SchemeFixture `yaml:"schemes" json:"-"`
}

type CaseFixture struct {
	Ref              string                  `yaml:"ref"`
	Volunteer        string                  `yaml:"volunteer"`
	BeneficiaryName  string                  `yaml:"beneficiaryName"`
	Age              string                  `yaml:"age"`
	Gender           string                  `yaml:"gender"`
	ContactNumber    string                  `yaml:"contactNumber"`
	Address          string                  `yaml:"address"`
	Urgency          ledger.UrgencyLevel     `yaml:"urgency"`
	Assistance       []ledger.AssistanceType `yaml:"assistance"`
	Description      string                  `yaml:"description"`
	MedicalCondition string                  `yaml:"medicalCondition"`
	EstimatedCost    string                  `yaml:"estimatedCost"`
	Location         *ledger.Location        `yaml:"location"`

	Review      *ReviewFixture      `yaml:"review"`
	Donations   []DonationFixture   `yaml:"donations"`
	Vouchers    []AllocationFixture `yaml:"vouchers"`
	Redemptions []RedemptionFixture `yaml:"redemptions"`
}

type ReviewFixture struct {
	Status ledger.CaseStatus `yaml:"status"`
	By     string            `yaml:"by"`
	Notes  string            `yaml:"notes"`
}

type DonationFixture struct {
	Donor  string `yaml:"donor"`
	Amount string `yaml:"amount"`
}

type AllocationFixture struct {
	ServiceType string `yaml:"serviceType"`
	Amount      string `yaml:"amount"`
	Description string `yaml:"description"`
}

// RedemptionFixture redeems the voucher at index Voucher of its case's
// allocation list.
type RedemptionFixture struct {
	Voucher  int              `yaml:"voucher"`
	Provider string           `yaml:"provider"`
	Notes    string           `yaml:"notes"`
	Photo    string           `yaml:"photo"`
	Location *ledger.Location `yaml:"location"`
}

type SchemeFixture struct {
	CreatedBy           string              `yaml:"createdBy"`
	Name                string              `yaml:"name"`
	Description         string              `yaml:"description"`
	TargetBeneficiaries int                 `yaml:"targetBeneficiaries"`
	FundingGoal         string              `yaml:"fundingGoal"`
	Category            string              `yaml:"category"`
	Status              ledger.SchemeStatus `yaml:"status"`
	Beneficiaries       []string            `yaml:"beneficiaries"`
}

// =============================================================================
// LOOKUP
// =============================================================================

// List parses every embedded scenario, ordered by id.
func List() ([]Scenario, error) {
	paths, err := fs.Glob(files, "scenarios/*.yaml")
	if err != nil {
		return nil, err
	}
	out := make([]Scenario, 0, len(paths))
	for _, p := range paths {
		sc, err := parse(p)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func Get(id string) (Scenario, error) {
	all, err := List()
	if err != nil {
		return Scenario{}, err
	}
	for _, sc := range all {
		if sc.ID == id {
			return sc, nil
		}
	}
	return Scenario{}, fmt.Errorf("%w: %s", ErrUnknownScenario, id)
}

func parse(p string) (Scenario, error) {
	data, err := files.ReadFile(p)
	if err != nil {
		return Scenario{}, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("parse %s: %w", path.Base(p), err)
	}
	if sc.ID == "" {
		return Scenario{}, fmt.Errorf("parse %s: missing id", path.Base(p))
	}
	return sc, nil
}

// =============================================================================
// APPLY
// =============================================================================

// Validate checks the fixture shapes Apply depends on without touching a
// ledger.
func (sc Scenario) Validate() error {
	if sc.Session != nil {
		if err := sc.Session.Validate(); err != nil {
			return fmt.Errorf("scenario %s: session: %w", sc.ID, err)
		}
	}

	refs := make(map[string]bool)
	for i, cf := range sc.Cases {
		name := cf.Ref
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}
		if err := cf.validate(); err != nil {
			return fmt.Errorf("scenario %s: case %s: %w", sc.ID, name, err)
		}
		if cf.Ref == "" {
			continue
		}
		if refs[cf.Ref] {
			return fmt.Errorf("scenario %s: duplicate case ref %q", sc.ID, cf.Ref)
		}
		refs[cf.Ref] = true
	}

	for _, sf := range sc.Schemes {
		if _, err := decimal.NewFromString(sf.FundingGoal); err != nil {
			return fmt.Errorf("scenario %s: scheme %q: fundingGoal: %w", sc.ID, sf.Name, err)
		}
		if sf.Status != "" && !sf.Status.Valid() {
			return fmt.Errorf("scenario %s: scheme %q: unknown status %q", sc.ID, sf.Name, sf.Status)
		}
		for _, ref := range sf.Beneficiaries {
			if !refs[ref] {
				return fmt.Errorf("scenario %s: scheme %q: unknown case ref %q", sc.ID, sf.Name, ref)
			}
		}
	}
	return nil
}

func (cf CaseFixture) validate() error {
	if _, err := decimal.NewFromString(cf.EstimatedCost); err != nil {
		return fmt.Errorf("estimatedCost: %w", err)
	}
	if cf.Review != nil && !cf.Review.Status.Valid() {
		return fmt.Errorf("review: unknown status %q", cf.Review.Status)
	}
	for _, df := range cf.Donations {
		if _, err := decimal.NewFromString(df.Amount); err != nil {
			return fmt.Errorf("donation amount: %w", err)
		}
	}
	for _, af := range cf.Vouchers {
		if _, err := decimal.NewFromString(af.Amount); err != nil {
			return fmt.Errorf("voucher amount: %w", err)
		}
	}
	for _, rf := range cf.Redemptions {
		if rf.Voucher < 0 || rf.Voucher >= len(cf.Vouchers) {
			return fmt.Errorf("redemption references voucher %d of %d", rf.Voucher, len(cf.Vouchers))
		}
	}
	return nil
}

// Result counts what Apply created.
type Result struct {
	Scenario    string `json:"scenario"`
	Cases       int    `json:"cases"`
	Donations   int    `json:"donations"`
	Vouchers    int    `json:"vouchers"`
	Redemptions int    `json:"redemptions"`
	Schemes     int    `json:"schemes"`
}

// Apply resets the ledger and replays sc through it.
func Apply(ctx context.Context, l *ledger.Ledger, sc Scenario) (Result, error) {
	res := Result{Scenario: sc.ID}
	if err := sc.Validate(); err != nil {
		return res, err
	}
	if err := l.Reset(ctx); err != nil {
		return res, err
	}

	refs := make(map[string]string)
	for _, cf := range sc.Cases {
		id, err := applyCase(ctx, l, cf, &res)
		if err != nil {
			return res, fmt.Errorf("case %q: %w", cf.Ref, err)
		}
		if cf.Ref != "" {
			refs[cf.Ref] = id
		}
	}

	for _, sf := range sc.Schemes {
		if err := applyScheme(ctx, l, sf, refs); err != nil {
			return res, fmt.Errorf("scheme %q: %w", sf.Name, err)
		}
		res.Schemes++
	}

	if sc.Session != nil {
		if _, err := l.SetSession(ctx, *sc.Session); err != nil {
			return res, fmt.Errorf("session: %w", err)
		}
	}
	return res, nil
}

func applyCase(ctx context.Context, l *ledger.Ledger, cf CaseFixture, res *Result) (string, error) {
	cost, err := decimal.NewFromString(cf.EstimatedCost)
	if err != nil {
		return "", fmt.Errorf("estimatedCost: %w", err)
	}
	c, err := l.CreateCase(ctx, cf.Volunteer, ledger.CaseInput{
		BeneficiaryName:  cf.BeneficiaryName,
		Age:              cf.Age,
		Gender:           cf.Gender,
		ContactNumber:    cf.ContactNumber,
		Address:          cf.Address,
		UrgencyLevel:     cf.Urgency,
		AssistanceType:   cf.Assistance,
		Description:      cf.Description,
		MedicalCondition: cf.MedicalCondition,
		EstimatedCost:    cost,
		Location:         cf.Location,
	})
	if err != nil {
		return "", err
	}
	res.Cases++

	if cf.Review != nil {
		notes := cf.Review.Notes
		if _, err := l.TransitionCase(ctx, c.ID, cf.Review.Status, cf.Review.By, &notes); err != nil {
			return "", err
		}
	}

	for _, df := range cf.Donations {
		amount, err := decimal.NewFromString(df.Amount)
		if err != nil {
			return "", fmt.Errorf("donation amount: %w", err)
		}
		if _, err := l.RecordDonation(ctx, c.ID, amount, df.Donor); err != nil {
			return "", err
		}
		res.Donations++
	}

	if len(cf.Vouchers) == 0 {
		return c.ID, nil
	}
	allocs := make([]ledger.Allocation, 0, len(cf.Vouchers))
	for _, af := range cf.Vouchers {
		amount, err := decimal.NewFromString(af.Amount)
		if err != nil {
			return "", fmt.Errorf("voucher amount: %w", err)
		}
		allocs = append(allocs, ledger.Allocation{ServiceType: af.ServiceType, Amount: amount, Description: af.Description})
	}
	vouchers, err := l.IssueVouchers(ctx, c.ID, allocs)
	if err != nil {
		return "", err
	}
	res.Vouchers += len(vouchers)

	for _, rf := range cf.Redemptions {
		if rf.Voucher < 0 || rf.Voucher >= len(vouchers) {
			return "", fmt.Errorf("redemption references voucher %d of %d", rf.Voucher, len(vouchers))
		}
		proof := ledger.Proof{
			ServicePhoto: rf.Photo,
			ServiceNotes: rf.Notes,
			Location:     rf.Location,
		}
		if _, err := l.RedeemVoucher(ctx, vouchers[rf.Voucher].ID, rf.Provider, proof); err != nil {
			return "", err
		}
		res.Redemptions++
	}
	return c.ID, nil
}

func applyScheme(ctx context.Context, l *ledger.Ledger, sf SchemeFixture, refs map[string]string) error {
	goal, err := decimal.NewFromString(sf.FundingGoal)
	if err != nil {
		return fmt.Errorf("fundingGoal: %w", err)
	}
	sc, err := l.CreateScheme(ctx, sf.CreatedBy, ledger.SchemeInput{
		Name:                sf.Name,
		Description:         sf.Description,
		TargetBeneficiaries: sf.TargetBeneficiaries,
		FundingGoal:         goal,
		Category:            sf.Category,
	})
	if err != nil {
		return err
	}
	if sf.Status != "" && sf.Status != ledger.SchemeActive {
		if _, err := l.SetSchemeStatus(ctx, sc.ID, sf.Status); err != nil {
			return err
		}
	}
	for _, ref := range sf.Beneficiaries {
		id, ok := refs[ref]
		if !ok {
			return fmt.Errorf("unknown case ref %q", ref)
		}
		if _, err := l.AddBeneficiary(ctx, sc.ID, id); err != nil {
			return err
		}
	}
	return nil
}
