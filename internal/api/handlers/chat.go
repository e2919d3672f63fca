// Visitor chat handler. Public endpoint, no AuthMiddleware: the demo chat
// widget runs unauthenticated.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/demoplane/demoplane/internal/domain/agent"
)

// TurnRunner is the orchestration contract used by ChatHandler.
// agent.Orchestrator satisfies this interface.
type TurnRunner interface {
	RunTurn(ctx context.Context, in agent.TurnInput) (*agent.TurnResult, error)
}

// ChatHandler translates chat HTTP requests into agent turns.
type ChatHandler struct {
	runner TurnRunner
}

// NewChatHandler creates a new ChatHandler backed by the provided runner.
func NewChatHandler(runner TurnRunner) *ChatHandler {
	return &ChatHandler{runner: runner}
}

// Chat handles POST /api/chat.
//
// Blocked and degraded turns still return 200 with the moderated or
// apologetic response body; the client reads TurnResult.Degraded and the
// lakera verdict to render badges.
//
// Response codes:
//   - 200 OK: turn completed (including blocked and degraded turns)
//   - 400 Bad Request: invalid JSON or empty message
//   - 503 Service Unavailable: no model credential configured
//   - 500 Internal Server Error: unexpected failure
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var in agent.TurnInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.runner.RunTurn(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, agent.ErrEmptyMessage):
			writeError(w, http.StatusBadRequest, "message is required")
		case errors.Is(err, agent.ErrLLMNotConfigured):
			writeError(w, http.StatusServiceUnavailable, "model credential not configured")
		default:
			writeError(w, http.StatusInternalServerError, "failed to run chat turn")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}
