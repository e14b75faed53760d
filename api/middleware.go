/*
middleware.go - Request logging and actor attribution

PURPOSE:
  LoggingMiddleware writes one logrus line per request. actor/requireRole
  resolve who is acting and gate handlers by role.

SEE ALSO:
  - server.go: Middleware order
*/
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/warp/aid-ledger/ledger"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs one line per request. It must run after
// middleware.RequestID to pick up the id.
func LoggingMiddleware(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			entry := logger.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rw.statusCode,
				"duration_ms": time.Since(started).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
			})
			if rw.statusCode >= http.StatusInternalServerError {
				entry.Warn("http request")
				return
			}
			entry.Info("http request")
		})
	}
}

// =============================================================================
// ACTOR
// =============================================================================

// actor identifies who is acting: the X-User-* headers when present, else the
// stored session. This is attribution, not authentication.
func (h *Handler) actor(r *http.Request) (ledger.Session, bool) {
	id := strings.TrimSpace(r.Header.Get(HeaderUserID))
	role := ledger.Role(strings.TrimSpace(r.Header.Get(HeaderUserRole)))
	if id != "" && role.Valid() {
		return ledger.Session{ID: id, Role: role}, true
	}

	sess, ok, err := h.Ledger.Session(r.Context())
	if err != nil {
		h.Logger.WithError(err).Warn("failed to read session")
		return ledger.Session{}, false
	}
	return sess, ok
}

// requireRole writes 403 and returns false unless the actor holds one of
// roles. Admin may do anything.
func (h *Handler) requireRole(w http.ResponseWriter, r *http.Request, roles ...ledger.Role) (ledger.Session, bool) {
	sess, ok := h.actor(r)
	if !ok {
		writeError(w, http.StatusForbidden, "No active user", ledger.ErrForbidden)
		return ledger.Session{}, false
	}
	if sess.Role == ledger.RoleAdmin {
		return sess, true
	}
	for _, role := range roles {
		if sess.Role == role {
			return sess, true
		}
	}
	writeError(w, http.StatusForbidden, "Role "+string(sess.Role)+" may not perform this action", ledger.ErrForbidden)
	return ledger.Session{}, false
}
