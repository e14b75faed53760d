/*
errors.go - Centralized error types for the aid ledger

PURPOSE:
  All error types in one place. Every failure the ledger reports is a local
  validation failure: nothing is retried and nothing is fatal. Callers
  present the error and let the user correct the input.

ERROR CATEGORIES:
  1. Lifecycle errors - illegal status changes
  2. Money errors - invalid amounts, zero funding goals
  3. Voucher errors - unredeemable vouchers, incomplete proof
  4. Store errors - malformed records at the persistence boundary

USAGE:
  Structured errors unwrap to a sentinel, so callers can branch either way:

    if errors.Is(err, ledger.ErrInvalidTransition) { ... }

    var te *ledger.InvalidTransitionError
    if errors.As(err, &te) { log(te.From, te.To) }
*/
package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTransition is returned when a case status change skips or
	// reverses the lifecycle.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrInvalidAmount is returned for non-positive donations, donations over
	// the remaining goal, and allocations over the net funded amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrDivisionByZero is returned when a funding percentage is requested
	// against a zero goal.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrVoucherNotRedeemable is returned for expired, completed or inactive vouchers.
	ErrVoucherNotRedeemable = errors.New("voucher not redeemable")

	// ErrMissingProof is returned when a redemption lacks photo, notes or location.
	ErrMissingProof = errors.New("missing proof")

	// ErrNotAcceptingDonations is returned when donating to a case that is not verified.
	ErrNotAcceptingDonations = errors.New("case is not accepting donations")

	ErrCaseNotFound    = errors.New("case not found")
	ErrVoucherNotFound = errors.New("voucher not found")
	ErrSchemeNotFound  = errors.New("scheme not found")

	// ErrMalformedRecord is returned when a stored record fails to decode or validate.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrInvalidInput is returned when caller input fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden is returned when the acting role may not perform an operation.
	ErrForbidden = errors.New("forbidden")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidTransitionError names the current and requested status.
type InvalidTransitionError struct {
	CaseID string
	From   CaseStatus
	To     CaseStatus
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("invalid transition for case %s: %s -> %s", e.CaseID, e.From, e.To)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// InvalidAmountError carries the rejected amount and what was left to fund.
type InvalidAmountError struct {
	Amount    decimal.Decimal
	Remaining decimal.Decimal
	Reason    string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount %s: %s (remaining %s)", e.Amount, e.Reason, e.Remaining)
}

func (e *InvalidAmountError) Unwrap() error { return ErrInvalidAmount }

// VoucherNotRedeemableError says why a voucher cannot be redeemed.
type VoucherNotRedeemableError struct {
	VoucherID string
	Status    VoucherStatus
	Reason    string
}

func (e *VoucherNotRedeemableError) Error() string {
	return fmt.Sprintf("voucher %s not redeemable: %s (status %s)", e.VoucherID, e.Reason, e.Status)
}

func (e *VoucherNotRedeemableError) Unwrap() error { return ErrVoucherNotRedeemable }

// MissingProofError lists the empty proof fields.
type MissingProofError struct {
	Missing []string
}

func (e *MissingProofError) Error() string {
	return "missing proof: " + strings.Join(e.Missing, ", ")
}

func (e *MissingProofError) Unwrap() error { return ErrMissingProof }

// MalformedRecordError points at the offending record in a collection.
type MalformedRecordError struct {
	Collection Collection
	Index      int
	Err        error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record %s[%d]: %v", e.Collection, e.Index, e.Err)
}

func (e *MalformedRecordError) Unwrap() []error { return []error{ErrMalformedRecord, e.Err} }

// ValidationError reports a single bad field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
// A malformed stored record is never the caller's fault.
func IsClientError(err error) bool {
	if errors.Is(err, ErrMalformedRecord) {
		return false
	}
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrDivisionByZero) ||
		errors.Is(err, ErrVoucherNotRedeemable) ||
		errors.Is(err, ErrMissingProof) ||
		errors.Is(err, ErrNotAcceptingDonations) ||
		errors.Is(err, ErrInvalidInput)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCaseNotFound) ||
		errors.Is(err, ErrVoucherNotFound) ||
		errors.Is(err, ErrSchemeNotFound)
}
