package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// SCHEMES - NGO campaigns, managed by hand
// =============================================================================

// SchemeInput is the editable part of a scheme.
type SchemeInput struct {
	Name                string
	Description         string
	TargetBeneficiaries int
	FundingGoal         decimal.Decimal
	Category            string
}

func (in SchemeInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return &ValidationError{Field: "name", Message: "is required"}
	case in.TargetBeneficiaries < 0:
		return &ValidationError{Field: "targetBeneficiaries", Message: "must not be negative"}
	case in.FundingGoal.IsNegative():
		return &ValidationError{Field: "fundingGoal", Message: "must not be negative"}
	}
	return nil
}

func findScheme(schemes []Scheme, id string) int {
	for i := range schemes {
		if schemes[i].ID == id {
			return i
		}
	}
	return -1
}

// mutateScheme runs fn against the stored scheme with the given id.
func (l *Ledger) mutateScheme(ctx context.Context, id string, fn func(*Scheme) error) (Scheme, error) {
	var updated Scheme
	err := l.store.WithTx(ctx, func(s Store) error {
		schemes, err := loadSchemes(ctx, s)
		if err != nil {
			return err
		}
		i := findScheme(schemes, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrSchemeNotFound, id)
		}
		if err := fn(&schemes[i]); err != nil {
			return err
		}
		updated = schemes[i]
		return save(ctx, s, CollectionSchemes, schemes)
	})
	return updated, err
}

// CreateScheme starts an active scheme with no funding and no beneficiaries.
func (l *Ledger) CreateScheme(ctx context.Context, createdBy string, in SchemeInput) (Scheme, error) {
	if err := in.validate(); err != nil {
		return Scheme{}, err
	}
	sc := Scheme{
		ID:                  l.ids.NewID(KindScheme),
		Name:                strings.TrimSpace(in.Name),
		Description:         in.Description,
		TargetBeneficiaries: in.TargetBeneficiaries,
		FundingGoal:         in.FundingGoal,
		CurrentFunding:      decimal.Zero,
		Category:            in.Category,
		Status:              SchemeActive,
		CreatedBy:           createdBy,
		CreatedAt:           l.Now(),
		Beneficiaries:       []string{},
	}

	err := l.store.WithTx(ctx, func(s Store) error {
		schemes, err := loadSchemes(ctx, s)
		if err != nil {
			return err
		}
		return save(ctx, s, CollectionSchemes, append(schemes, sc))
	})
	if err != nil {
		return Scheme{}, err
	}
	l.logger.WithFields(logrus.Fields{"scheme_id": sc.ID, "ngo": createdBy}).Info("scheme created")
	return sc, nil
}

// UpdateScheme replaces the editable fields. Identity, status, funding,
// creation time and linked beneficiaries are kept.
func (l *Ledger) UpdateScheme(ctx context.Context, id string, in SchemeInput) (Scheme, error) {
	if err := in.validate(); err != nil {
		return Scheme{}, err
	}
	sc, err := l.mutateScheme(ctx, id, func(sc *Scheme) error {
		sc.Name = strings.TrimSpace(in.Name)
		sc.Description = in.Description
		sc.TargetBeneficiaries = in.TargetBeneficiaries
		sc.FundingGoal = in.FundingGoal
		sc.Category = in.Category
		return nil
	})
	if err != nil {
		return Scheme{}, err
	}
	l.logger.WithField("scheme_id", id).Info("scheme updated")
	return sc, nil
}

// DeleteScheme removes a scheme. Nothing else references schemes.
func (l *Ledger) DeleteScheme(ctx context.Context, id string) error {
	err := l.store.WithTx(ctx, func(s Store) error {
		schemes, err := loadSchemes(ctx, s)
		if err != nil {
			return err
		}
		i := findScheme(schemes, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrSchemeNotFound, id)
		}
		return save(ctx, s, CollectionSchemes, append(schemes[:i], schemes[i+1:]...))
	})
	if err != nil {
		return err
	}
	l.logger.WithField("scheme_id", id).Info("scheme deleted")
	return nil
}

// SetSchemeStatus switches freely between active, paused and completed.
func (l *Ledger) SetSchemeStatus(ctx context.Context, id string, status SchemeStatus) (Scheme, error) {
	if !status.Valid() {
		return Scheme{}, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}
	sc, err := l.mutateScheme(ctx, id, func(sc *Scheme) error {
		sc.Status = status
		return nil
	})
	if err != nil {
		return Scheme{}, err
	}
	l.logger.WithFields(logrus.Fields{"scheme_id": id, "status": status}).Info("scheme status changed")
	return sc, nil
}

// AddBeneficiary links a beneficiary id to a scheme. Linking twice is a no-op.
func (l *Ledger) AddBeneficiary(ctx context.Context, id, beneficiaryID string) (Scheme, error) {
	if strings.TrimSpace(beneficiaryID) == "" {
		return Scheme{}, &ValidationError{Field: "beneficiaryId", Message: "is required"}
	}
	return l.mutateScheme(ctx, id, func(sc *Scheme) error {
		for _, b := range sc.Beneficiaries {
			if b == beneficiaryID {
				return nil
			}
		}
		sc.Beneficiaries = append(sc.Beneficiaries, beneficiaryID)
		return nil
	})
}

// SchemeFilter narrows Schemes. Zero fields match everything.
type SchemeFilter struct {
	Status    SchemeStatus
	CreatedBy string
}

func (l *Ledger) Schemes(ctx context.Context, f SchemeFilter) ([]Scheme, error) {
	schemes, err := loadSchemes(ctx, l.store)
	if err != nil {
		return nil, err
	}
	out := make([]Scheme, 0, len(schemes))
	for _, sc := range schemes {
		if f.Status != "" && sc.Status != f.Status {
			continue
		}
		if f.CreatedBy != "" && sc.CreatedBy != f.CreatedBy {
			continue
		}
		out = append(out, sc)
	}
	return out, nil
}

func (l *Ledger) Scheme(ctx context.Context, id string) (Scheme, error) {
	schemes, err := loadSchemes(ctx, l.store)
	if err != nil {
		return Scheme{}, err
	}
	i := findScheme(schemes, id)
	if i < 0 {
		return Scheme{}, fmt.Errorf("%w: %s", ErrSchemeNotFound, id)
	}
	return schemes[i], nil
}
