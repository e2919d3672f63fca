// Package agent runs the conversation loop behind every chat turn:
// guardrail pre-check, knowledge retrieval, a bounded tool-calling loop
// against the model, and a guardrail post-check on the exchange.
package agent

import (
	"encoding/json"

	"github.com/demoplane/demoplane/internal/domain/guardrail"
)

// HistoryItem is one prior turn supplied by the client. Only user and
// assistant roles are accepted; anything else is dropped during validation.
type HistoryItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TurnInput is a visitor message plus its conversation context.
type TurnInput struct {
	SessionID string        `json:"session_id"`
	Message   string        `json:"message"`
	History   []HistoryItem `json:"history"`
}

// ToolTrace records one tool execution for the response payload.
type ToolTrace struct {
	Name       string          `json:"name"`
	Arguments  json.RawMessage `json:"arguments,omitempty"`
	Status     string          `json:"status"`
	Content    string          `json:"content"`
	DurationMS int64           `json:"duration_ms"`
}

// TurnResult is the assembled outcome of one chat turn. Degraded lists
// the subsystems that failed soft during the turn (retrieval, guardrail,
// tools); the turn still produces an answer.
type TurnResult struct {
	Response   string             `json:"response"`
	Citations  []string           `json:"citations"`
	ToolTraces []ToolTrace        `json:"tool_traces"`
	Guardrail  *guardrail.Verdict `json:"lakera,omitempty"`
	Degraded   []string           `json:"degraded,omitempty"`
}
