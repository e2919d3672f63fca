// Package llm defines the model-agnostic LLM provider abstraction.
// All types here are shared between the provider interface and adapters.
package llm

import "encoding/json"

// Message represents a single turn in a conversation.
// Assistant turns may carry ToolCalls; tool turns carry the ToolCallID
// of the assistant call they answer.
type Message struct {
	Role       string // "system" | "user" | "assistant" | "tool"
	Content    string
	ToolCalls  []ToolCall // populated on assistant turns that requested tools
	ToolCallID string     // populated on tool turns
	Name       string     // tool name on tool turns
}

// ToolCall is a single function invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON argument object
}

// ToolDef describes a callable tool advertised to the model.
type ToolDef struct {
	Name        string
	Description string
	// Parameters is a JSON Schema object. Nil means "no arguments".
	Parameters json.RawMessage
}

// ChatRequest is the input for a non-streaming chat completion.
type ChatRequest struct {
	// Model overrides the provider default when non-empty.
	Model       string
	Messages    []Message
	Tools       []ToolDef
	Temperature float32
	MaxTokens   int
}

// ChatResponse is the output from a non-streaming chat completion.
type ChatResponse struct {
	Content    string     // The assistant message text (may be empty on tool calls).
	ToolCalls  []ToolCall // Tool invocations requested by the model.
	StopReason string     // "stop" | "length" | "tool_calls" | "error"
	Tokens     int        // Total tokens consumed (prompt + completion).
}

// EmbedRequest is the input for a batch embedding call.
type EmbedRequest struct {
	// Model overrides the provider default when non-empty.
	Model string
	Texts []string
}

// EmbedResponse is the output from a batch embedding call.
// Embeddings[i] corresponds to Texts[i] in the request.
type EmbedResponse struct {
	Embeddings [][]float32 // float32 matches the rag_chunk BLOB format.
	Tokens     int         // Total tokens consumed.
}

// ModelMeta describes the model / provider identity.
type ModelMeta struct {
	ID        string // e.g. "gpt-4o-mini"
	Provider  string // e.g. "openai"
	Version   string
	MaxTokens int // Maximum context window size.
}
