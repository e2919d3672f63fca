package llm

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when the provider has no API credential.
// Callers treat this as a hard failure rather than degrading the turn.
var ErrNotConfigured = errors.New("llm: provider not configured")

// LLMProvider is the model-agnostic interface for LLM operations.
// Adapters (OpenAI today) implement this interface so the application
// is never coupled to a specific LLM vendor.
type LLMProvider interface {
	// ChatCompletion performs a non-streaming chat completion.
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Embed computes dense vector representations for a batch of texts.
	Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error)

	// ModelInfo returns static metadata about the provider/model.
	ModelInfo() ModelMeta

	// HealthCheck returns nil if the provider is reachable and operational.
	HealthCheck(ctx context.Context) error
}
