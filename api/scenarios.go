/*
scenarios.go - Demo scenario endpoints

PURPOSE:
  Lets the dashboards swap the whole ledger for a prepared demo state.
  Scenario content lives in the seed package as embedded YAML.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "funding-drive"}

NOTE:
  Loading or resetting wipes every collection, session included. Only use
  in development/demo environments.

SEE ALSO:
  - seed/seed.go: Scenario fixtures and Apply
  - handlers.go: Remaining handlers
*/
package api

import (
	"errors"
	"net/http"

	"github.com/warp/aid-ledger/seed"
)

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	all, err := seed.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read scenarios", err)
		return
	}
	writeJSON(w, http.StatusOK, ScenarioListResponse{Scenarios: all, Current: h.current()})
}

// GetCurrentScenario returns the currently loaded scenario, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	id := h.current()
	if id == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	sc, err := seed.Get(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// LoadScenario resets the ledger and replays a scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}

	sc, err := seed.Get(req.ScenarioID)
	if errors.Is(err, seed.ErrUnknownScenario) {
		writeError(w, http.StatusBadRequest, "Unknown scenario", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read scenario", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentScenario = ""

	res, err := seed.Apply(r.Context(), h.Ledger, sc)
	if err != nil {
		h.Logger.WithError(err).WithField("scenario", sc.ID).Error("scenario load failed")
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}
	h.currentScenario = sc.ID
	h.Logger.WithField("scenario", sc.ID).Info("scenario loaded")

	writeJSON(w, http.StatusOK, res)
}

// ResetDatabase clears every collection.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Ledger.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentScenario
}
