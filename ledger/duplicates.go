package ledger

import (
	"context"
	"strings"
)

// =============================================================================
// DUPLICATE HEURISTIC
// =============================================================================

// DuplicatePair is two cases that look like the same beneficiary.
// First always precedes Second in the input order.
type DuplicatePair struct {
	First  Case   `json:"first"`
	Second Case   `json:"second"`
	Reason string `json:"reason"`
}

const (
	ReasonSimilarName    = "similar beneficiary name"
	ReasonSimilarAddress = "similar address"
)

// DuplicatePairs compares every pair i < j. A pair is flagged when either
// lowercase beneficiary name contains the other, or either lowercase address
// contains the other. Name matches are reported in preference to address
// matches.
func DuplicatePairs(cases []Case) []DuplicatePair {
	var pairs []DuplicatePair
	for i := 0; i < len(cases); i++ {
		for j := i + 1; j < len(cases); j++ {
			if reason, ok := similar(cases[i], cases[j]); ok {
				pairs = append(pairs, DuplicatePair{First: cases[i], Second: cases[j], Reason: reason})
			}
		}
	}
	return pairs
}

func similar(a, b Case) (string, bool) {
	if containsEither(a.BeneficiaryName, b.BeneficiaryName) {
		return ReasonSimilarName, true
	}
	if containsEither(a.Address, b.Address) {
		return ReasonSimilarAddress, true
	}
	return "", false
}

// containsEither matches empty strings too: a blank field is a substring of
// anything.
func containsEither(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// DetectDuplicates returns every case id that appears in a flagged pair, once
// each, in order of first appearance.
func DetectDuplicates(cases []Case) []string {
	return pairIDs(DuplicatePairs(cases))
}

func pairIDs(pairs []DuplicatePair) []string {
	seen := make(map[string]bool)
	ids := []string{}
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, p := range pairs {
		add(p.First.ID)
		add(p.Second.ID)
	}
	return ids
}

// DuplicateReport is the duplicate heuristic's output over pending cases:
// the flagged ids as DetectDuplicates returns them, and the pairs behind them.
type DuplicateReport struct {
	CaseIDs []string        `json:"caseIds"`
	Pairs   []DuplicatePair `json:"pairs"`
}

// PendingDuplicates runs the heuristic over the pending cases in storage.
func (l *Ledger) PendingDuplicates(ctx context.Context) (DuplicateReport, error) {
	pending, err := l.Cases(ctx, CaseFilter{Status: StatusPending})
	if err != nil {
		return DuplicateReport{}, err
	}
	pairs := DuplicatePairs(pending)
	if pairs == nil {
		pairs = []DuplicatePair{}
	}
	return DuplicateReport{CaseIDs: pairIDs(pairs), Pairs: pairs}, nil
}
