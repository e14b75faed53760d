/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Ledger records are
  returned as-is (their JSON is the stored shape); requests get their own
  types so clients cannot set ids, statuses or derived amounts.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *Response: Composite response wrappers

VALIDATION:
  Request structs carry go-playground/validator tags, checked in decode()
  before the ledger sees them. Money and lifecycle rules are the ledger's
  job and are not duplicated here.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: Record shapes
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/aid-ledger/ledger"
	"github.com/warp/aid-ledger/seed"
)

// =============================================================================
// REQUESTS
// =============================================================================

type SessionRequest struct {
	ID    string      `json:"id" validate:"required,max=100"`
	Name  string      `json:"name" validate:"required,max=200"`
	Email string      `json:"email" validate:"omitempty,email"`
	Role  ledger.Role `json:"role" validate:"required,oneof=volunteer ngo donor service-provider admin"`
}

type CreateCaseRequest struct {
	BeneficiaryName  string                  `json:"beneficiaryName" validate:"required,max=200"`
	Age              string                  `json:"age" validate:"max=10"`
	Gender           string                  `json:"gender" validate:"max=50"`
	ContactNumber    string                  `json:"contactNumber" validate:"max=50"`
	Address          string                  `json:"address" validate:"required,max=500"`
	UrgencyLevel     ledger.UrgencyLevel     `json:"urgencyLevel" validate:"omitempty,oneof=low medium high critical"`
	AssistanceType   []ledger.AssistanceType `json:"assistanceType" validate:"dive,oneof=Food Medical Shelter Education Transportation Clothing Emergency"`
	Description      string                  `json:"description"`
	MedicalCondition string                  `json:"medicalCondition"`
	EstimatedCost    decimal.Decimal         `json:"estimatedCost"`
	Location         *ledger.Location        `json:"location"`
	Photo            string                  `json:"photo"`
	VoiceRecording   string                  `json:"voiceRecording"`
}

func (r CreateCaseRequest) input() ledger.CaseInput {
	return ledger.CaseInput{
		BeneficiaryName:  r.BeneficiaryName,
		Age:              r.Age,
		Gender:           r.Gender,
		ContactNumber:    r.ContactNumber,
		Address:          r.Address,
		UrgencyLevel:     r.UrgencyLevel,
		AssistanceType:   r.AssistanceType,
		Description:      r.Description,
		MedicalCondition: r.MedicalCondition,
		EstimatedCost:    r.EstimatedCost,
		Location:         r.Location,
		Photo:            r.Photo,
		VoiceRecording:   r.VoiceRecording,
	}
}

type TransitionRequest struct {
	Status ledger.CaseStatus `json:"status" validate:"required"`
	Notes  *string           `json:"notes"`
}

// DonationRequest defaults DonorID to the acting user.
type DonationRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	DonorID string          `json:"donorId"`
}

type IssueVouchersRequest struct {
	Allocations []ledger.Allocation `json:"allocations" validate:"required,min=1"`
}

// RedeemRequest leaves proof completeness to the ledger so the client gets
// the full list of missing fields.
type RedeemRequest struct {
	ProofData ledger.Proof `json:"proofData"`
}

type SchemeRequest struct {
	Name                string          `json:"name" validate:"required,max=200"`
	Description         string          `json:"description"`
	TargetBeneficiaries int             `json:"targetBeneficiaries" validate:"gte=0"`
	FundingGoal         decimal.Decimal `json:"fundingGoal"`
	Category            string          `json:"category" validate:"max=100"`
}

func (r SchemeRequest) input() ledger.SchemeInput {
	return ledger.SchemeInput{
		Name:                r.Name,
		Description:         r.Description,
		TargetBeneficiaries: r.TargetBeneficiaries,
		FundingGoal:         r.FundingGoal,
		Category:            r.Category,
	}
}

type SchemeStatusRequest struct {
	Status ledger.SchemeStatus `json:"status" validate:"required,oneof=active completed paused"`
}

type BeneficiaryRequest struct {
	BeneficiaryID string `json:"beneficiaryId" validate:"required"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// RESPONSES
// =============================================================================

// CaseDetailResponse adds derived views to a case. Funding is omitted for a
// case with no estimated cost.
type CaseDetailResponse struct {
	Case         ledger.Case           `json:"case"`
	Funding      *ledger.FundingStatus `json:"funding,omitempty"`
	Progress     int                   `json:"progress"`
	NextStatuses []ledger.CaseStatus   `json:"nextStatuses"`
}

type FundingResponse struct {
	ledger.FundingStatus
	SuggestedAmounts []decimal.Decimal `json:"suggestedAmounts"`
}

type SweepResponse struct {
	Expired int `json:"expired"`
}

type ScenarioListResponse struct {
	Scenarios []seed.Scenario `json:"scenarios"`
	Current   string          `json:"current,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
