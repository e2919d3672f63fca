package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	defaultChatModel  = "gpt-4o-mini"
	defaultEmbedModel = "text-embedding-3-small"
)

// OpenAIProvider implements LLMProvider against the official OpenAI API
// using the official Go SDK.
type OpenAIProvider struct {
	client     openai.Client
	chatModel  string
	embedModel string
}

// NewOpenAIProvider creates a provider bound to the given credential and
// chat model. Returns ErrNotConfigured when the API key is empty so callers
// can distinguish "unconfigured" from transport failures.
func NewOpenAIProvider(apiKey, chatModel string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if chatModel == "" {
		chatModel = defaultChatModel
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	return &OpenAIProvider{
		client:     client,
		chatModel:  chatModel,
		embedModel: defaultEmbedModel,
	}, nil
}

// ChatCompletion performs a non-streaming chat completion, converting
// between the internal message/tool types and the SDK's union params.
func (p *OpenAIProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.chatModel
	}

	params := openai.ChatCompletionNewParams{
		Messages: convertMessages(req.Messages),
		Model:    openai.ChatModel(model),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(float64(req.Temperature))
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai chat completion: empty choices")
	}

	choice := resp.Choices[0]
	out := &ChatResponse{
		Content:    choice.Message.Content,
		StopReason: string(choice.FinishReason),
		Tokens:     int(resp.Usage.TotalTokens),
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

// Embed computes embeddings for a batch of texts.
func (p *OpenAIProvider) Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error) {
	if len(req.Texts) == 0 {
		return &EmbedResponse{}, nil
	}
	model := req.Model
	if model == "" {
		model = p.embedModel
	}

	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: req.Texts},
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(req.Texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d texts", len(resp.Data), len(req.Texts))
	}

	out := &EmbedResponse{
		Embeddings: make([][]float32, len(resp.Data)),
		Tokens:     int(resp.Usage.TotalTokens),
	}
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out.Embeddings[i] = vec
	}
	return out, nil
}

// ModelInfo returns static metadata about the configured chat model.
func (p *OpenAIProvider) ModelInfo() ModelMeta {
	return ModelMeta{
		ID:        p.chatModel,
		Provider:  "openai",
		MaxTokens: 128000,
	}
}

// HealthCheck verifies the credential by listing models.
func (p *OpenAIProvider) HealthCheck(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return fmt.Errorf("openai health check: %w", err)
	}
	return nil
}

// convertMessages maps internal messages to the SDK's message param union.
// Assistant turns with tool calls and tool-result turns both need the
// explicit union forms; the helper constructors cover the rest.
func convertMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case "system":
			result[i] = openai.SystemMessage(msg.Content)
		case "assistant":
			if len(msg.ToolCalls) == 0 {
				result[i] = openai.AssistantMessage(msg.Content)
				break
			}
			calls := make([]openai.ChatCompletionMessageToolCallUnionParam, len(msg.ToolCalls))
			for j, tc := range msg.ToolCalls {
				calls[j] = openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: tc.Arguments,
						},
					},
				}
			}
			assistant := &openai.ChatCompletionAssistantMessageParam{ToolCalls: calls}
			if msg.Content != "" {
				assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(msg.Content),
				}
			}
			result[i] = openai.ChatCompletionMessageParamUnion{OfAssistant: assistant}
		case "tool":
			result[i] = openai.ToolMessage(msg.Content, msg.ToolCallID)
		default:
			result[i] = openai.UserMessage(msg.Content)
		}
	}
	return result
}

// convertTools maps tool definitions to the SDK's function-tool params.
// Both sides are JSON Schema; the raw schema just needs decoding into a map.
func convertTools(tools []ToolDef) []openai.ChatCompletionToolUnionParam {
	result := make([]openai.ChatCompletionToolUnionParam, len(tools))
	for i, t := range tools {
		params := openai.FunctionParameters{"type": "object", "properties": map[string]any{}}
		if len(t.Parameters) > 0 {
			var m map[string]any
			if err := json.Unmarshal(t.Parameters, &m); err == nil {
				params = openai.FunctionParameters(m)
			}
		}
		result[i] = openai.ChatCompletionFunctionTool(
			openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  params,
			},
		)
	}
	return result
}
