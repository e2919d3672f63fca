package tool

import (
	"context"
	"encoding/json"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the normalized outcome of a tool execution. ContentString is
// what gets fed back to the model as the tool turn; Raw preserves the
// unmodified payload for traces.
type Result struct {
	Status        string          `json:"status"`
	ContentString string          `json:"content_string"`
	Raw           json.RawMessage `json:"raw_result,omitempty"`
}

// Executor defines the runtime contract for executable tools.
type Executor interface {
	Execute(ctx context.Context, params json.RawMessage) (*Result, error)
}

// errorResult builds an error Result from a message. Execution failures
// surface to the model as content, not as Go errors, so the conversation
// can continue.
func errorResult(msg string) *Result {
	return &Result{Status: StatusError, ContentString: msg}
}
