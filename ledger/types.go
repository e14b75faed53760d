/*
Package ledger implements the aid case ledger.

PURPOSE:
  The ledger owns every record the aid platform works with: cases raised by
  volunteers, donations pledged by donors, vouchers issued against funded
  cases, proof-of-service redemptions filed by providers, and NGO schemes.
  It enforces the case lifecycle, the 9% platform fee, funding limits and
  voucher redemption rules. Dashboards are read-only views over its data.

KEY CONCEPTS IN THIS FILE (types.go):
  - Case: a request for aid tied to one beneficiary
  - Donation: funds pledged against a case (fee split applied)
  - Voucher: an entitlement a service provider redeems against a case
  - VoucherRedemption: proof that the service was delivered
  - Scheme: an NGO campaign grouping beneficiaries under one goal
  - Session: the acting user (role, id, name)

DESIGN PRINCIPLES:
  1. Typed statuses: every status is a typed string with a Valid() check
  2. Precision: all money is decimal.Decimal, never float64
  3. Boundary validation: records are Validate()d when loaded from a Store
  4. Weak references: records point at each other by id only

SEE ALSO:
  - transition.go: Case state machine
  - funding.go: Fee and funding arithmetic
  - voucher.go: Voucher issuance and redemption
  - store.go: Persistence port
*/
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CASE
// =============================================================================

type CaseStatus string

const (
	StatusPending    CaseStatus = "pending"
	StatusVerified   CaseStatus = "verified"
	StatusRejected   CaseStatus = "rejected"
	StatusFunded     CaseStatus = "funded"
	StatusInProgress CaseStatus = "in-progress"
	StatusCompleted  CaseStatus = "completed"
)

// CaseStatuses lists every case status in lifecycle order.
var CaseStatuses = []CaseStatus{
	StatusPending,
	StatusVerified,
	StatusRejected,
	StatusFunded,
	StatusInProgress,
	StatusCompleted,
}

func (s CaseStatus) Valid() bool {
	for _, known := range CaseStatuses {
		if s == known {
			return true
		}
	}
	return false
}

type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "low"
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyCritical UrgencyLevel = "critical"
)

// Rank orders urgency for queues: critical sorts first.
func (u UrgencyLevel) Rank() int {
	switch u {
	case UrgencyCritical:
		return 0
	case UrgencyHigh:
		return 1
	case UrgencyMedium:
		return 2
	case UrgencyLow:
		return 3
	default:
		return 4
	}
}

func (u UrgencyLevel) Valid() bool { return u.Rank() < 4 }

type AssistanceType string

const (
	AssistanceFood           AssistanceType = "Food"
	AssistanceMedical        AssistanceType = "Medical"
	AssistanceShelter        AssistanceType = "Shelter"
	AssistanceEducation      AssistanceType = "Education"
	AssistanceTransportation AssistanceType = "Transportation"
	AssistanceClothing       AssistanceType = "Clothing"
	AssistanceEmergency      AssistanceType = "Emergency"
)

var AssistanceTypes = []AssistanceType{
	AssistanceFood,
	AssistanceMedical,
	AssistanceShelter,
	AssistanceEducation,
	AssistanceTransportation,
	AssistanceClothing,
	AssistanceEmergency,
}

func (a AssistanceType) Valid() bool {
	for _, known := range AssistanceTypes {
		if a == known {
			return true
		}
	}
	return false
}

// Location is a GPS fix attached to a case or a redemption.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Case is a registered request for aid.
// Photo and VoiceRecording are opaque to the ledger.
type Case struct {
	ID               string           `json:"id"`
	BeneficiaryName  string           `json:"beneficiaryName"`
	Age              string           `json:"age"`
	Gender           string           `json:"gender"`
	ContactNumber    string           `json:"contactNumber"`
	Address          string           `json:"address"`
	UrgencyLevel     UrgencyLevel     `json:"urgencyLevel"`
	AssistanceType   []AssistanceType `json:"assistanceType"`
	Description      string           `json:"description"`
	MedicalCondition string           `json:"medicalCondition"`
	EstimatedCost    decimal.Decimal  `json:"estimatedCost"`
	Status           CaseStatus       `json:"status"`
	CreatedAt        time.Time        `json:"createdAt"`

	VerifiedAt        *time.Time `json:"verifiedAt,omitempty"`
	VerifiedBy        string     `json:"verifiedBy,omitempty"`
	VerificationNotes *string    `json:"verificationNotes,omitempty"`

	VolunteerID    string    `json:"volunteerId"`
	Location       *Location `json:"location,omitempty"`
	Photo          string    `json:"photo,omitempty"`
	VoiceRecording string    `json:"voiceRecording,omitempty"`
}

// Validate checks a stored case record.
func (c Case) Validate() error {
	switch {
	case c.ID == "":
		return &ValidationError{Field: "id", Message: "is required"}
	case strings.TrimSpace(c.BeneficiaryName) == "":
		return &ValidationError{Field: "beneficiaryName", Message: "is required"}
	case !c.Status.Valid():
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", c.Status)}
	case !c.UrgencyLevel.Valid():
		return &ValidationError{Field: "urgencyLevel", Message: fmt.Sprintf("unknown urgency %q", c.UrgencyLevel)}
	case c.EstimatedCost.IsNegative():
		return &ValidationError{Field: "estimatedCost", Message: "must not be negative"}
	}
	for _, t := range c.AssistanceType {
		if !t.Valid() {
			return &ValidationError{Field: "assistanceType", Message: fmt.Sprintf("unknown assistance type %q", t)}
		}
	}
	return nil
}

// PrimaryCategory is the first assistance tag, used to bucket donations.
func (c Case) PrimaryCategory() string {
	if len(c.AssistanceType) == 0 {
		return "Other"
	}
	return string(c.AssistanceType[0])
}

// =============================================================================
// DONATION
// =============================================================================

type DonationStatus string

const (
	DonationPending    DonationStatus = "pending"
	DonationProcessing DonationStatus = "processing"
	DonationCompleted  DonationStatus = "completed"
)

func (s DonationStatus) Valid() bool {
	return s == DonationPending || s == DonationProcessing || s == DonationCompleted
}

// Donation is a pledge of funds against a case.
// ServiceFee and NetAmount are stored for display; arithmetic always
// recomputes them from Amount.
type Donation struct {
	ID         string          `json:"id"`
	CaseID     string          `json:"caseId"`
	CaseName   string          `json:"caseName"`
	Category   string          `json:"category,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	ServiceFee decimal.Decimal `json:"serviceFee"`
	NetAmount  decimal.Decimal `json:"netAmount"`
	DonorID    string          `json:"donorId"`
	CreatedAt  time.Time       `json:"createdAt"`
	Status     DonationStatus  `json:"status"`
}

func (d Donation) Validate() error {
	switch {
	case d.ID == "":
		return &ValidationError{Field: "id", Message: "is required"}
	case d.CaseID == "":
		return &ValidationError{Field: "caseId", Message: "is required"}
	case !d.Amount.IsPositive():
		return &ValidationError{Field: "amount", Message: "must be positive"}
	case !d.Status.Valid():
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", d.Status)}
	}
	return nil
}

// =============================================================================
// SCHEME
// =============================================================================

type SchemeStatus string

const (
	SchemeActive    SchemeStatus = "active"
	SchemeCompleted SchemeStatus = "completed"
	SchemePaused    SchemeStatus = "paused"
)

func (s SchemeStatus) Valid() bool {
	return s == SchemeActive || s == SchemeCompleted || s == SchemePaused
}

// Scheme is an NGO campaign. Its status only changes by hand.
type Scheme struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	TargetBeneficiaries int             `json:"targetBeneficiaries"`
	FundingGoal         decimal.Decimal `json:"fundingGoal"`
	CurrentFunding      decimal.Decimal `json:"currentFunding"`
	Category            string          `json:"category"`
	Status              SchemeStatus    `json:"status"`
	CreatedBy           string          `json:"createdBy,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
	Beneficiaries       []string        `json:"beneficiaries"`
}

func (s Scheme) Validate() error {
	switch {
	case s.ID == "":
		return &ValidationError{Field: "id", Message: "is required"}
	case strings.TrimSpace(s.Name) == "":
		return &ValidationError{Field: "name", Message: "is required"}
	case !s.Status.Valid():
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", s.Status)}
	case s.TargetBeneficiaries < 0:
		return &ValidationError{Field: "targetBeneficiaries", Message: "must not be negative"}
	case s.FundingGoal.IsNegative():
		return &ValidationError{Field: "fundingGoal", Message: "must not be negative"}
	}
	return nil
}

// =============================================================================
// VOUCHER
// =============================================================================

type VoucherStatus string

const (
	VoucherActive    VoucherStatus = "active"
	VoucherCompleted VoucherStatus = "completed"
	VoucherPending   VoucherStatus = "pending"
	VoucherExpired   VoucherStatus = "expired"
)

func (s VoucherStatus) Valid() bool {
	return s == VoucherActive || s == VoucherCompleted || s == VoucherPending || s == VoucherExpired
}

type Voucher struct {
	ID              string          `json:"id"`
	CaseID          string          `json:"caseId"`
	BeneficiaryName string          `json:"beneficiaryName"`
	ServiceType     string          `json:"serviceType"`
	Amount          decimal.Decimal `json:"amount"`
	ValidUntil      time.Time       `json:"validUntil"`
	Status          VoucherStatus   `json:"status"`
	Description     string          `json:"description"`
	IssuedAt        time.Time       `json:"issuedAt"`
}

func (v Voucher) Validate() error {
	switch {
	case v.ID == "":
		return &ValidationError{Field: "id", Message: "is required"}
	case v.CaseID == "":
		return &ValidationError{Field: "caseId", Message: "is required"}
	case !v.Amount.IsPositive():
		return &ValidationError{Field: "amount", Message: "must be positive"}
	case !v.Status.Valid():
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", v.Status)}
	}
	return nil
}

// =============================================================================
// REDEMPTION
// =============================================================================

// Proof is the evidence bundle a provider files when redeeming a voucher.
type Proof struct {
	ServicePhoto            string    `json:"servicePhoto"`
	VoiceRecording          string    `json:"voiceRecording,omitempty"`
	ServiceDocument         string    `json:"serviceDocument,omitempty"`
	ServiceNotes            string    `json:"serviceNotes"`
	BeneficiaryConfirmation string    `json:"beneficiaryConfirmation,omitempty"`
	Location                *Location `json:"location"`
	Timestamp               time.Time `json:"timestamp"`
}

// Missing names the required proof fields that are empty.
func (p Proof) Missing() []string {
	var missing []string
	if strings.TrimSpace(p.ServicePhoto) == "" {
		missing = append(missing, "servicePhoto")
	}
	if strings.TrimSpace(p.ServiceNotes) == "" {
		missing = append(missing, "serviceNotes")
	}
	if p.Location == nil {
		missing = append(missing, "location")
	}
	return missing
}

type RedemptionStatus string

const RedemptionCompleted RedemptionStatus = "completed"

type VoucherRedemption struct {
	ID          string           `json:"id"`
	VoucherID   string           `json:"voucherId"`
	CaseID      string           `json:"caseId"`
	ProviderID  string           `json:"providerId"`
	ServiceType string           `json:"serviceType"`
	Amount      decimal.Decimal  `json:"amount"`
	ProofData   Proof            `json:"proofData"`
	Status      RedemptionStatus `json:"status"`
	RedeemedAt  time.Time        `json:"redeemedAt"`
}

// Validate re-checks the proof bundle on load.
func (r VoucherRedemption) Validate() error {
	switch {
	case r.VoucherID == "":
		return &ValidationError{Field: "voucherId", Message: "is required"}
	case r.Status != RedemptionCompleted:
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", r.Status)}
	}
	if missing := r.ProofData.Missing(); len(missing) > 0 {
		return &MissingProofError{Missing: missing}
	}
	return nil
}

// =============================================================================
// SESSION
// =============================================================================

type Role string

const (
	RoleVolunteer       Role = "volunteer"
	RoleNGO             Role = "ngo"
	RoleDonor           Role = "donor"
	RoleServiceProvider Role = "service-provider"
	RoleAdmin           Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleVolunteer, RoleNGO, RoleDonor, RoleServiceProvider, RoleAdmin:
		return true
	}
	return false
}

// Session is the single active user record.
type Session struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role"`
}

func (s Session) Validate() error {
	if s.ID == "" {
		return &ValidationError{Field: "id", Message: "is required"}
	}
	if !s.Role.Valid() {
		return &ValidationError{Field: "role", Message: fmt.Sprintf("unknown role %q", s.Role)}
	}
	return nil
}
