// Audit trail handler for the admin console.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/demoplane/demoplane/internal/domain/audit"
)

// AuditHandler lists recorded audit events.
type AuditHandler struct {
	service *audit.Service
}

// NewAuditHandler creates a new AuditHandler over the audit service.
func NewAuditHandler(service *audit.Service) *AuditHandler {
	return &AuditHandler{service: service}
}

// ListEvents handles GET /api/audit. Accepts an optional ?limit= query
// parameter; the service clamps out-of-range values.
//
// Response codes:
//   - 200 OK: events, newest first
//   - 500 Internal Server Error: unexpected failure
func (h *AuditHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := h.service.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list audit events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}
