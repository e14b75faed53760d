package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// CASE REGISTRATION
// =============================================================================

// CaseInput is what a volunteer submits. Status and identity are assigned by
// the ledger.
type CaseInput struct {
	BeneficiaryName  string
	Age              string
	Gender           string
	ContactNumber    string
	Address          string
	UrgencyLevel     UrgencyLevel
	AssistanceType   []AssistanceType
	Description      string
	MedicalCondition string
	EstimatedCost    decimal.Decimal
	Location         *Location
	Photo            string
	VoiceRecording   string
}

func (in CaseInput) validate() error {
	switch {
	case strings.TrimSpace(in.BeneficiaryName) == "":
		return &ValidationError{Field: "beneficiaryName", Message: "is required"}
	case strings.TrimSpace(in.Address) == "":
		return &ValidationError{Field: "address", Message: "is required"}
	case in.EstimatedCost.IsNegative():
		return &ValidationError{Field: "estimatedCost", Message: "must not be negative"}
	}
	return nil
}

// CreateCase registers a new case. The status is always pending, whatever
// the input says.
func (l *Ledger) CreateCase(ctx context.Context, volunteerID string, in CaseInput) (Case, error) {
	if err := in.validate(); err != nil {
		return Case{}, err
	}

	urgency := in.UrgencyLevel
	if urgency == "" {
		urgency = UrgencyMedium
	}

	c := Case{
		ID:               l.ids.NewID(KindCase),
		BeneficiaryName:  strings.TrimSpace(in.BeneficiaryName),
		Age:              in.Age,
		Gender:           in.Gender,
		ContactNumber:    in.ContactNumber,
		Address:          strings.TrimSpace(in.Address),
		UrgencyLevel:     urgency,
		AssistanceType:   in.AssistanceType,
		Description:      in.Description,
		MedicalCondition: in.MedicalCondition,
		EstimatedCost:    in.EstimatedCost,
		Status:           StatusPending,
		CreatedAt:        l.Now(),
		VolunteerID:      volunteerID,
		Location:         in.Location,
		Photo:            in.Photo,
		VoiceRecording:   in.VoiceRecording,
	}
	if err := c.Validate(); err != nil {
		return Case{}, err
	}

	err := l.store.WithTx(ctx, func(s Store) error {
		cases, err := loadCases(ctx, s)
		if err != nil {
			return err
		}
		return save(ctx, s, CollectionCases, append(cases, c))
	})
	if err != nil {
		return Case{}, err
	}

	l.logger.WithFields(logrus.Fields{
		"case_id":   c.ID,
		"volunteer": volunteerID,
		"urgency":   c.UrgencyLevel,
	}).Info("case registered")
	return c, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// CaseFilter narrows Cases. Zero fields match everything.
type CaseFilter struct {
	Status      CaseStatus
	VolunteerID string
}

func (f CaseFilter) match(c Case) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.VolunteerID != "" && c.VolunteerID != f.VolunteerID {
		return false
	}
	return true
}

func (l *Ledger) Case(ctx context.Context, id string) (Case, error) {
	cases, err := loadCases(ctx, l.store)
	if err != nil {
		return Case{}, err
	}
	i := findCase(cases, id)
	if i < 0 {
		return Case{}, fmt.Errorf("%w: %s", ErrCaseNotFound, id)
	}
	return cases[i], nil
}

// Cases returns matching cases in insertion order.
func (l *Ledger) Cases(ctx context.Context, f CaseFilter) ([]Case, error) {
	cases, err := loadCases(ctx, l.store)
	if err != nil {
		return nil, err
	}
	out := make([]Case, 0, len(cases))
	for _, c := range cases {
		if f.match(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

// PendingQueue returns pending cases, most urgent first, oldest first within
// an urgency level.
func (l *Ledger) PendingQueue(ctx context.Context) ([]Case, error) {
	pending, err := l.Cases(ctx, CaseFilter{Status: StatusPending})
	if err != nil {
		return nil, err
	}
	SortByUrgency(pending)
	return pending, nil
}

// SortByUrgency orders cases critical to low, then by creation time.
func SortByUrgency(cases []Case) {
	sort.SliceStable(cases, func(i, j int) bool {
		ri, rj := cases[i].UrgencyLevel.Rank(), cases[j].UrgencyLevel.Rank()
		if ri != rj {
			return ri < rj
		}
		return cases[i].CreatedAt.Before(cases[j].CreatedAt)
	})
}
