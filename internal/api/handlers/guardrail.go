// Guardrail inspection handler backing the demo's live moderation badge.
package handlers

import (
	"net/http"

	"github.com/demoplane/demoplane/internal/domain/guardrail"
)

// GuardrailHandler exposes the most recent guardrail verdict.
type GuardrailHandler struct {
	recorder *guardrail.Recorder
}

// NewGuardrailHandler creates a new GuardrailHandler over the shared recorder.
func NewGuardrailHandler(recorder *guardrail.Recorder) *GuardrailHandler {
	return &GuardrailHandler{recorder: recorder}
}

// Last handles GET /api/lakera/last.
//
// Response codes:
//   - 200 OK: the most recent verdict recorded this process
//   - 404 Not Found: no guardrail check has run yet
func (h *GuardrailHandler) Last(w http.ResponseWriter, r *http.Request) {
	verdict := h.recorder.Last()
	if verdict == nil {
		writeError(w, http.StatusNotFound, "no guardrail check recorded yet")
		return
	}
	writeJSON(w, http.StatusOK, verdict)
}
