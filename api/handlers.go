/*
handlers.go - HTTP API handlers for the aid ledger

PURPOSE:
  Exposes the ledger via REST API. Handles HTTP request/response, JSON
  serialization, role checks, and delegates every rule to the ledger.

ENDPOINTS:
  Session:
    GET    /api/session                   Active user
    PUT    /api/session                   Sign in as a user
    DELETE /api/session                   Sign out

  Cases:
    GET    /api/cases                     List (status, volunteer_id filters)
    POST   /api/cases                     Register case (volunteer)
    GET    /api/cases/queue               Pending cases, most urgent first
    GET    /api/cases/duplicates          Duplicate heuristic over pending cases
    GET    /api/cases/{id}                Case with funding and progress
    POST   /api/cases/{id}/transition     Review or advance (ngo)
    GET    /api/cases/{id}/funding        Funding status and suggested amounts
    GET    /api/cases/{id}/donations      Donations for the case
    POST   /api/cases/{id}/donations      Donate (donor)
    GET    /api/cases/{id}/vouchers       Vouchers for the case
    POST   /api/cases/{id}/vouchers       Issue vouchers (ngo)

  Vouchers:
    GET    /api/vouchers/{id}             Scanner lookup
    POST   /api/vouchers/{id}/redeem      Redeem with proof (service-provider)
    POST   /api/vouchers/sweep            Expire overdue vouchers now (admin)

  Schemes:
    GET/POST          /api/schemes
    GET/PUT/DELETE    /api/schemes/{id}
    POST              /api/schemes/{id}/status
    POST              /api/schemes/{id}/beneficiaries

  Stats & fraud:
    GET    /api/stats/overview | /ngo | /volunteers/{id} | /donors/{id} | /providers/{id}
    GET    /api/fraud/alerts              (admin)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed body, validation errors
  - 403: Role may not perform the action
  - 404: Case, voucher or scheme not found
  - 409: Lifecycle conflict (invalid transition, voucher not redeemable,
         case not accepting donations)
  - 422: Money or proof rules (invalid amount, zero goal, missing proof)
  - 500: Storage failures, malformed stored records

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/aid-ledger/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger         *ledger.Ledger
	Logger         logrus.FieldLogger
	FraudThreshold decimal.Decimal

	validate *validator.Validate

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler over the given ledger.
func NewHandler(l *ledger.Ledger, logger logrus.FieldLogger) *Handler {
	return &Handler{
		Ledger:         l,
		Logger:         logger,
		FraudThreshold: ledger.DefaultFraudThreshold,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
	}
}

// =============================================================================
// SESSION
// =============================================================================

// GetSession returns the active user.
// GET /api/session
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok, err := h.Ledger.Session(r.Context())
	if err != nil {
		h.writeLedgerError(w, "Failed to read session", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "No active session", nil)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// PutSession replaces the active user.
// PUT /api/session
func (h *Handler) PutSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	sess, err := h.Ledger.SetSession(r.Context(), ledger.Session{
		ID:    req.ID,
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		h.writeLedgerError(w, "Failed to store session", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// DeleteSession signs out.
// DELETE /api/session
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Ledger.ClearSession(r.Context()); err != nil {
		h.writeLedgerError(w, "Failed to clear session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CASES
// =============================================================================

// ListCases returns cases in registration order.
// GET /api/cases?status=pending&volunteer_id=vol-1
func (h *Handler) ListCases(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := ledger.CaseStatus(q.Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid status filter", fmt.Errorf("unknown status %q", status))
		return
	}
	cases, err := h.Ledger.Cases(r.Context(), ledger.CaseFilter{
		Status:      status,
		VolunteerID: q.Get("volunteer_id"),
	})
	if err != nil {
		h.writeLedgerError(w, "Failed to list cases", err)
		return
	}
	writeJSON(w, http.StatusOK, cases)
}

// CreateCase registers a case for the acting volunteer.
// POST /api/cases
func (h *Handler) CreateCase(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireRole(w, r, ledger.RoleVolunteer)
	if !ok {
		return
	}
	var req CreateCaseRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.Ledger.CreateCase(r.Context(), actor.ID, req.input())
	if err != nil {
		h.writeLedgerError(w, "Failed to register case", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// PendingQueue returns pending cases for review.
// GET /api/cases/queue
func (h *Handler) PendingQueue(w http.ResponseWriter, r *http.Request) {
	cases, err := h.Ledger.PendingQueue(r.Context())
	if err != nil {
		h.writeLedgerError(w, "Failed to load queue", err)
		return
	}
	writeJSON(w, http.StatusOK, cases)
}

// Duplicates runs the duplicate heuristic over pending cases.
// GET /api/cases/duplicates
func (h *Handler) Duplicates(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireRole(w, r, ledger.RoleNGO); !ok {
		return
	}
	report, err := h.Ledger.PendingDuplicates(r.Context())
	if err != nil {
		h.writeLedgerError(w, "Failed to detect duplicates", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetCase returns a case with its derived views.
// GET /api/cases/{id}
func (h *Handler) GetCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	c, err := h.Ledger.Case(ctx, id)
	if err != nil {
		h.writeLedgerError(w, "Failed to get case", err)
		return
	}

	resp := CaseDetailResponse{
		Case:         c,
		Progress:     c.Status.Progress(),
		NextStatuses: ledger.NextStatuses(c.Status),
	}
	fs, err := h.Ledger.FundingStatus(ctx, id)
	switch {
	case err == nil:
		resp.Funding = &fs
	case !errors.Is(err, ledger.ErrDivisionByZero):
		h.writeLedgerError(w, "Failed to compute funding", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// TransitionCase reviews or advances a case.
// POST /api/cases/{id}/transition
func (h *Handler) TransitionCase(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireRole(w, r, ledger.RoleNGO)
	if !ok {
		return
	}
	var req TransitionRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.Ledger.TransitionCase(r.Context(), chi.URLParam(r, "id"), req.Status, actor.ID, req.Notes)
	if err != nil {
		h.writeLedgerError(w, "Failed to transition case", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// GetFunding returns funding progress and the donation presets that still fit.
// GET /api/cases/{id}/funding
func (h *Handler) GetFunding(w http.ResponseWriter, r *http.Request) {
	fs, err := h.Ledger.FundingStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLedgerError(w, "Failed to compute funding", err)
		return
	}
	writeJSON(w, http.StatusOK, FundingResponse{
		FundingStatus:    fs,
		SuggestedAmounts: ledger.SuggestAmounts(fs.Current, fs.Goal),
	})
}

// ListCaseDonations returns donations against a case, newest first.
// GET /api/cases/{id}/donations
func (h *Handler) ListCaseDonations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if _, err := h.Ledger.Case(ctx, id); err != nil {
		h.writeLedgerError(w, "Failed to get case", err)
		return
	}
	donations, err := h.Ledger.Donations(ctx, ledger.DonationFilter{CaseID: id})
	if err != nil {
		h.writeLedgerError(w, "Failed to list donations", err)
		return
	}
	writeJSON(w, http.StatusOK, donations)
}

// CreateDonation records a donation from the acting donor.
// POST /api/cases/{id}/donations
func (h *Handler) CreateDonation(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireRole(w, r, ledger.RoleDonor)
	if !ok {
		return
	}
	var req DonationRequest
	if !h.decode(w, r, &req) {
		return
	}
	donor := strings.TrimSpace(req.DonorID)
	if donor == "" || actor.Role != ledger.RoleAdmin {
		donor = actor.ID
	}
	d, err := h.Ledger.RecordDonation(r.Context(), chi.URLParam(r, "id"), req.Amount, donor)
	if err != nil {
		h.writeLedgerError(w, "Failed to record donation", err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// ListCaseVouchers returns vouchers issued against a case.
// GET /api/cases/{id}/vouchers
func (h *Handler) ListCaseVouchers(w http.ResponseWriter, r *http.Request) {
	vouchers, err := h.Ledger.Vouchers(r.Context(), ledger.VoucherFilter{CaseID: chi.URLParam(r, "id")})
	if err != nil {
		h.writeLedgerError(w, "Failed to list vouchers", err)
		return
	}
	writeJSON(w, http.StatusOK, vouchers)
}

// IssueVouchers splits a funded case into vouchers.
// POST /api/cases/{id}/vouchers
func (h *Handler) IssueVouchers(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireRole(w, r, ledger.RoleNGO); !ok {
		return
	}
	var req IssueVouchersRequest
	if !h.decode(w, r, &req) {
		return
	}
	vouchers, err := h.Ledger.IssueVouchers(r.Context(), chi.URLParam(r, "id"), req.Allocations)
	if err != nil {
		h.writeLedgerError(w, "Failed to issue vouchers", err)
		return
	}
	writeJSON(w, http.StatusCreated, vouchers)
}

// =============================================================================
// DONATIONS & REDEMPTIONS
// =============================================================================

// ListDonations returns donation history.
// GET /api/donations?donor_id=donor-1&case_id=AID-1
func (h *Handler) ListDonations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	donations, err := h.Ledger.Donations(r.Context(), ledger.DonationFilter{
		CaseID:  q.Get("case_id"),
		DonorID: q.Get("donor_id"),
	})
	if err != nil {
		h.writeLedgerError(w, "Failed to list donations", err)
		return
	}
	writeJSON(w, http.StatusOK, donations)
}

// ListRedemptions returns proof-of-service records.
// GET /api/redemptions?provider_id=prov-1&case_id=AID-1
func (h *Handler) ListRedemptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	redemptions, err := h.Ledger.Redemptions(r.Context(), ledger.RedemptionFilter{
		CaseID:     q.Get("case_id"),
		ProviderID: q.Get("provider_id"),
	})
	if err != nil {
		h.writeLedgerError(w, "Failed to list redemptions", err)
		return
	}
	writeJSON(w, http.StatusOK, redemptions)
}

// =============================================================================
// VOUCHERS
// =============================================================================

// GetVoucher looks up a scanned voucher.
// GET /api/vouchers/{id}
func (h *Handler) GetVoucher(w http.ResponseWriter, r *http.Request) {
	v, err := h.Ledger.Voucher(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLedgerError(w, "Failed to get voucher", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// RedeemVoucher files proof of service for the acting provider.
// POST /api/vouchers/{id}/redeem
func (h *Handler) RedeemVoucher(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireRole(w, r, ledger.RoleServiceProvider)
	if !ok {
		return
	}
	var req RedeemRequest
	if !h.decode(w, r, &req) {
		return
	}
	red, err := h.Ledger.RedeemVoucher(r.Context(), chi.URLParam(r, "id"), actor.ID, req.ProofData)
	if err != nil {
		h.writeLedgerError(w, "Failed to redeem voucher", err)
		return
	}
	writeJSON(w, http.StatusCreated, red)
}

// SweepVouchers expires overdue vouchers immediately.
// POST /api/vouchers/sweep
func (h *Handler) SweepVouchers(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireRole(w, r); !ok {
		return
	}
	n, err := h.Ledger.SweepExpiredVouchers(r.Context())
	if err != nil {
		h.writeLedgerError(w, "Failed to sweep vouchers", err)
		return
	}
	writeJSON(w, http.StatusOK, SweepResponse{Expired: n})
}

// =============================================================================
// SCHEMES
// =============================================================================

// ListSchemes returns schemes.
// GET /api/schemes?status=active&created_by=ngo-1
func (h *Handler) ListSchemes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := ledger.SchemeStatus(q.Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid status filter", fmt.Errorf("unknown status %q", status))
		return
	}
	schemes, err := h.Ledger.Schemes(r.Context(), ledger.SchemeFilter{
		Status:    status,
		CreatedBy: q.Get("created_by"),
	})
	if err != nil {
		h.writeLedgerError(w, "Failed to list schemes", err)
		return
	}
	writeJSON(w, http.StatusOK, schemes)
}

// CreateScheme starts a scheme owned by the acting NGO.
// POST /api/schemes
func (h *Handler) CreateScheme(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireRole(w, r, ledger.RoleNGO)
	if !ok {
		return
	}
	var req SchemeRequest
	if !h.decode(w, r, &req) {
		return
	}
	sc, err := h.Ledger.CreateScheme(r.Context(), actor.ID, req.input())
	if err != nil {
		h.writeLedgerError(w, "Failed to create scheme", err)
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

// GetScheme returns one scheme.
// GET /api/schemes/{id}
func (h *Handler) GetScheme(w http.ResponseWriter, r *http.Request) {
	sc, err := h.Ledger.Scheme(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLedgerError(w, "Failed to get scheme", err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// UpdateScheme edits a scheme's descriptive fields.
// PUT /api/schemes/{id}
func (h *Handler) UpdateScheme(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireRole(w, r, ledger.RoleNGO); !ok {
		return
	}
	var req SchemeRequest
	if !h.decode(w, r, &req) {
		return
	}
	sc, err := h.Ledger.UpdateScheme(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		h.writeLedgerError(w, "Failed to update scheme", err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// DeleteScheme removes a scheme.
// DELETE /api/schemes/{id}
func (h *Handler) DeleteScheme(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireRole(w, r, ledger.RoleNGO); !ok {
		return
	}
	if err := h.Ledger.DeleteScheme(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeLedgerError(w, "Failed to delete scheme", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetSchemeStatus changes a scheme's status by hand.
// POST /api/schemes/{id}/status
func (h *Handler) SetSchemeStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireRole(w, r, ledger.RoleNGO); !ok {
		return
	}
	var req SchemeStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	sc, err := h.Ledger.SetSchemeStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.writeLedgerError(w, "Failed to change scheme status", err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// AddBeneficiary links a beneficiary to a scheme.
// POST /api/schemes/{id}/beneficiaries
func (h *Handler) AddBeneficiary(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireRole(w, r, ledger.RoleNGO); !ok {
		return
	}
	var req BeneficiaryRequest
	if !h.decode(w, r, &req) {
		return
	}
	sc, err := h.Ledger.AddBeneficiary(r.Context(), chi.URLParam(r, "id"), req.BeneficiaryID)
	if err != nil {
		h.writeLedgerError(w, "Failed to link beneficiary", err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// =============================================================================
// STATS & FRAUD
// =============================================================================

// Overview returns the admin dashboard.
// GET /api/stats/overview
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	o, err := h.Ledger.Overview(r.Context())
	if err != nil {
		h.writeLedgerError(w, "Failed to build overview", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// NGOStats returns review counts.
// GET /api/stats/ngo
func (h *Handler) NGOStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.Ledger.NGOStats(r.Context())
	if err != nil {
		h.writeLedgerError(w, "Failed to build stats", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// VolunteerStats returns a volunteer's case counts.
// GET /api/stats/volunteers/{id}
func (h *Handler) VolunteerStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.Ledger.VolunteerStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLedgerError(w, "Failed to build stats", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// DonorStats returns a donor's impact summary.
// GET /api/stats/donors/{id}
func (h *Handler) DonorStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.Ledger.DonorStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLedgerError(w, "Failed to build stats", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// ProviderStats returns a provider's service summary.
// GET /api/stats/providers/{id}
func (h *Handler) ProviderStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.Ledger.ProviderStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLedgerError(w, "Failed to build stats", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// FraudAlerts scans for suspicious records.
// GET /api/fraud/alerts
func (h *Handler) FraudAlerts(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireRole(w, r); !ok {
		return
	}
	alerts, err := h.Ledger.FraudAlerts(r.Context(), h.FraudThreshold)
	if err != nil {
		h.writeLedgerError(w, "Failed to scan for fraud", err)
		return
	}
	if alerts == nil {
		alerts = []ledger.FraudAlert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads and validates a JSON body. On failure it writes a 400 and
// returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", describeValidation(err))
		return false
	}
	return true
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// statusFor maps ledger errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case ledger.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrMalformedRecord):
		return http.StatusInternalServerError
	case errors.Is(err, ledger.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrInvalidTransition),
		errors.Is(err, ledger.ErrVoucherNotRedeemable),
		errors.Is(err, ledger.ErrNotAcceptingDonations):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrDivisionByZero),
		errors.Is(err, ledger.ErrMissingProof):
		return http.StatusUnprocessableEntity
	case ledger.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeLedgerError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.WithError(err).Error(message)
	}
	writeJSON(w, status, ErrorResponse{Error: message, Details: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
