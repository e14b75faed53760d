/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logging:    One structured log line per request (logrus)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the dashboards

ROUTE GROUPS:
  /api/session          Active user
  /api/cases/*          Case lifecycle, funding, vouchers per case
  /api/donations        Donation history
  /api/vouchers/*       Scanner lookup and redemption
  /api/redemptions      Proof-of-service history
  /api/schemes/*        NGO schemes
  /api/stats/*          Dashboards
  /api/fraud/*          Fraud alerts
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication. X-User-ID / X-User-Role (or the stored session) only
  attribute actions and gate them by role.

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Logging and role checks
  - cmd/aidledger: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(LoggingMiddleware(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", HeaderUserID, HeaderUserRole},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Put("/", h.PutSession)
			r.Delete("/", h.DeleteSession)
		})

		r.Route("/cases", func(r chi.Router) {
			r.Get("/", h.ListCases)
			r.Post("/", h.CreateCase)
			r.Get("/queue", h.PendingQueue)
			r.Get("/duplicates", h.Duplicates)
			r.Get("/{id}", h.GetCase)
			r.Post("/{id}/transition", h.TransitionCase)
			r.Get("/{id}/funding", h.GetFunding)
			r.Get("/{id}/donations", h.ListCaseDonations)
			r.Post("/{id}/donations", h.CreateDonation)
			r.Get("/{id}/vouchers", h.ListCaseVouchers)
			r.Post("/{id}/vouchers", h.IssueVouchers)
		})

		r.Get("/donations", h.ListDonations)
		r.Get("/redemptions", h.ListRedemptions)

		r.Route("/vouchers", func(r chi.Router) {
			r.Post("/sweep", h.SweepVouchers)
			r.Get("/{id}", h.GetVoucher)
			r.Post("/{id}/redeem", h.RedeemVoucher)
		})

		r.Route("/schemes", func(r chi.Router) {
			r.Get("/", h.ListSchemes)
			r.Post("/", h.CreateScheme)
			r.Get("/{id}", h.GetScheme)
			r.Put("/{id}", h.UpdateScheme)
			r.Delete("/{id}", h.DeleteScheme)
			r.Post("/{id}/status", h.SetSchemeStatus)
			r.Post("/{id}/beneficiaries", h.AddBeneficiary)
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/overview", h.Overview)
			r.Get("/ngo", h.NGOStats)
			r.Get("/volunteers/{id}", h.VolunteerStats)
			r.Get("/donors/{id}", h.DonorStats)
			r.Get("/providers/{id}", h.ProviderStats)
		})

		r.Get("/fraud/alerts", h.FraudAlerts)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
