package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/demoplane/demoplane/internal/domain/audit"
	"github.com/demoplane/demoplane/internal/domain/guardrail"
	"github.com/demoplane/demoplane/internal/domain/rag"
	"github.com/demoplane/demoplane/internal/domain/settings"
	"github.com/demoplane/demoplane/internal/domain/tool"
	"github.com/demoplane/demoplane/internal/infra/llm"
)

// ErrLLMNotConfigured is returned when no model credential exists; unlike
// every other failure it cannot be degraded into an answer.
var ErrLLMNotConfigured = errors.New("agent: llm credential not configured")

// ErrEmptyMessage rejects turns with no visitor message.
var ErrEmptyMessage = errors.New("agent: message is required")

const (
	// maxToolRounds bounds the tool-calling loop. The round after the
	// last one runs without tools so the model must answer.
	maxToolRounds = 4

	retrievalTimeout  = 10 * time.Second
	completionTimeout = 60 * time.Second

	retrievalTopK = 4

	apologyResponse = "I'm sorry, I ran into a problem while working on your request. Please try again in a moment."
)

// Degradation labels reported on soft failures.
const (
	degradedRetrieval = "retrieval"
	degradedGuardrail = "guardrail"
	degradedLLM       = "llm"
)

// SettingsSource supplies a fresh configuration snapshot per turn.
type SettingsSource interface {
	Get(ctx context.Context) (*settings.Settings, error)
}

// Retriever finds relevant knowledge chunks for the visitor message.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]rag.Result, error)
}

// ToolRunner executes one tool call with the turn's moderation policy.
type ToolRunner interface {
	Execute(ctx context.Context, functionName string, params json.RawMessage, mod *tool.Moderation) *tool.Result
}

// ManifestBuilder assembles the function list offered to the model.
type ManifestBuilder interface {
	BuildManifest(ctx context.Context, includeBuiltins bool) ([]tool.ManifestEntry, error)
}

// Screener checks conversation content against the guardrail service.
type Screener interface {
	Enabled() bool
	Screen(ctx context.Context, stage guardrail.Stage, messages []guardrail.Message, metadata map[string]any) (*guardrail.Verdict, error)
}

// AuditLogger records the turn outcome.
type AuditLogger interface {
	Log(ctx context.Context, in audit.LogInput) (*audit.Event, error)
}

// ScreenerFactory builds a guardrail client from the turn's credential.
type ScreenerFactory func(apiKey, projectID string) Screener

// ProviderFactory builds an LLM provider from the turn's credential.
type ProviderFactory func(apiKey, model string) (llm.LLMProvider, error)

// Orchestrator drives one chat turn end to end.
type Orchestrator struct {
	settings  SettingsSource
	retriever Retriever
	runner    ToolRunner
	manifests ManifestBuilder
	recorder  *guardrail.Recorder
	audit     AuditLogger

	newScreener ScreenerFactory
	newProvider ProviderFactory
}

func NewOrchestrator(
	settingsSource SettingsSource,
	retriever Retriever,
	runner ToolRunner,
	manifests ManifestBuilder,
	recorder *guardrail.Recorder,
	auditLogger AuditLogger,
) *Orchestrator {
	return &Orchestrator{
		settings:  settingsSource,
		retriever: retriever,
		runner:    runner,
		manifests: manifests,
		recorder:  recorder,
		audit:     auditLogger,
		newScreener: func(apiKey, projectID string) Screener {
			return guardrail.NewClient(apiKey, projectID)
		},
		newProvider: func(apiKey, model string) (llm.LLMProvider, error) {
			return llm.NewOpenAIProvider(apiKey, model)
		},
	}
}

// RunTurn executes one visitor turn. Soft failures degrade the answer and
// are listed in TurnResult.Degraded; a missing model credential is the one
// hard failure and returns ErrLLMNotConfigured.
func (o *Orchestrator) RunTurn(ctx context.Context, in TurnInput) (*TurnResult, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	cfg, err := o.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("agent: load settings: %w", err)
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, ErrLLMNotConfigured
	}

	provider, err := o.newProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			return nil, ErrLLMNotConfigured
		}
		return nil, fmt.Errorf("agent: build provider: %w", err)
	}

	result := &TurnResult{Citations: []string{}, ToolTraces: []ToolTrace{}}

	var screener Screener
	if cfg.LakeraEnabled && cfg.LakeraAPIKey != "" {
		screener = o.newScreener(cfg.LakeraAPIKey, cfg.LakeraProjectID)
	}

	// Pre-check screens only the visitor's new message. The system prompt
	// and prior assistant turns never leave the process here.
	if screener != nil {
		verdict, screenErr := screener.Screen(ctx, guardrail.StagePre,
			[]guardrail.Message{{Role: "user", Content: message}},
			o.metadata(in.SessionID, guardrail.StagePre))
		switch {
		case screenErr != nil:
			result.Degraded = append(result.Degraded, degradedGuardrail)
		default:
			o.recorder.Record(verdict)
			result.Guardrail = verdict
			if verdict.Flagged && cfg.LakeraBlockingMode {
				result.Response = guardrail.BlockedNotice
				o.logTurn(ctx, in.SessionID, result, audit.OutcomeBlocked)
				return result, nil
			}
		}
	}

	// Retrieval failure degrades to an uninformed answer. Citations are
	// fixed here, at assembly: a later completion failure still reports
	// the context that was gathered for the turn.
	retrieved := o.retrieve(ctx, message, result)
	result.Citations = citationsFrom(retrieved)

	messages := o.assembleMessages(cfg, in.History, message, retrieved)

	var manifest []tool.ManifestEntry
	if o.manifests != nil {
		manifest, err = o.manifests.BuildManifest(ctx, true)
		if err != nil {
			log.Printf("agent: manifest build failed, continuing without tools: %v", err)
			manifest = nil
		}
	}

	mod := o.moderation(screener, cfg)

	response, completionErr := o.toolLoop(ctx, provider, cfg, messages, manifest, mod, result)
	if completionErr != nil {
		if errors.Is(completionErr, llm.ErrNotConfigured) {
			return nil, ErrLLMNotConfigured
		}
		// Transport and model failures degrade to an apology.
		log.Printf("agent: completion failed: %v", completionErr)
		result.Response = apologyResponse
		result.Degraded = append(result.Degraded, degradedLLM)
		o.logTurn(ctx, in.SessionID, result, audit.OutcomeError)
		return result, nil
	}
	result.Response = response

	// Post-check screens the visitor message and the assistant answer.
	if screener != nil {
		verdict, screenErr := screener.Screen(ctx, guardrail.StagePost,
			[]guardrail.Message{
				{Role: "user", Content: message},
				{Role: "assistant", Content: result.Response},
			},
			o.metadata(in.SessionID, guardrail.StagePost))
		switch {
		case screenErr != nil:
			result.Degraded = append(result.Degraded, degradedGuardrail)
		default:
			o.recorder.Record(verdict)
			result.Guardrail = verdict
			if verdict.Flagged && cfg.LakeraBlockingMode {
				result.Response = guardrail.BlockedNotice
				o.logTurn(ctx, in.SessionID, result, audit.OutcomeBlocked)
				return result, nil
			}
		}
	}

	o.logTurn(ctx, in.SessionID, result, audit.OutcomeSuccess)
	return result, nil
}

// retrieve runs the knowledge lookup with its own deadline.
func (o *Orchestrator) retrieve(ctx context.Context, message string, result *TurnResult) []rag.Result {
	if o.retriever == nil {
		return nil
	}
	retrievalCtx, cancel := context.WithTimeout(ctx, retrievalTimeout)
	defer cancel()

	retrieved, err := o.retriever.Retrieve(retrievalCtx, message, retrievalTopK)
	if err != nil {
		log.Printf("agent: retrieval failed, continuing without context: %v", err)
		result.Degraded = append(result.Degraded, degradedRetrieval)
		return nil
	}
	return retrieved
}

// assembleMessages builds the model conversation: system prompt with any
// retrieved context, validated history, then the new visitor message.
func (o *Orchestrator) assembleMessages(cfg *settings.Settings, history []HistoryItem, message string, retrieved []rag.Result) []llm.Message {
	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = "You are a helpful product demo assistant. Answer using the provided context when relevant."
	}
	if len(retrieved) > 0 {
		b := strings.Builder{}
		b.WriteString(systemPrompt)
		b.WriteString("\n\nRelevant knowledge base passages:\n")
		for i, r := range retrieved {
			fmt.Fprintf(&b, "[%d] (%s) %s\n", i+1, r.SourceName, r.Content)
		}
		systemPrompt = b.String()
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	for _, h := range history {
		// Client history is untrusted: keep only well-formed user and
		// assistant turns.
		if h.Content == "" {
			continue
		}
		if h.Role != "user" && h.Role != "assistant" {
			continue
		}
		messages = append(messages, llm.Message{Role: h.Role, Content: h.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: message})
	return messages
}

// toolLoop runs chat completions until the model answers in plain text or
// the round cap forces an answer. Tool calls within one round execute
// concurrently; their results append in request order.
func (o *Orchestrator) toolLoop(
	ctx context.Context,
	provider llm.LLMProvider,
	cfg *settings.Settings,
	messages []llm.Message,
	manifest []tool.ManifestEntry,
	mod *tool.Moderation,
	result *TurnResult,
) (string, error) {
	tools := make([]llm.ToolDef, 0, len(manifest))
	for _, entry := range manifest {
		tools = append(tools, entry.Def)
	}

	for round := 0; ; round++ {
		req := llm.ChatRequest{
			Messages:    messages,
			Temperature: cfg.TemperatureScaled(),
		}
		// The final round withholds the manifest so the model must answer.
		if round < maxToolRounds {
			req.Tools = tools
		}

		completionCtx, cancel := context.WithTimeout(ctx, completionTimeout)
		resp, err := provider.ChatCompletion(completionCtx, req)
		cancel()
		if err != nil {
			return "", err
		}

		if len(resp.ToolCalls) == 0 || round >= maxToolRounds {
			return resp.Content, nil
		}

		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		toolResults := o.executeCalls(ctx, resp.ToolCalls, mod, result)
		for i, call := range resp.ToolCalls {
			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    toolResults[i].ContentString,
				ToolCallID: call.ID,
				Name:       call.Name,
			})
		}
	}
}

// executeCalls runs every tool call of one round concurrently and returns
// results indexed to match calls.
func (o *Orchestrator) executeCalls(ctx context.Context, calls []llm.ToolCall, mod *tool.Moderation, result *TurnResult) []*tool.Result {
	results := make([]*tool.Result, len(calls))
	durations := make([]int64, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call llm.ToolCall) {
			defer wg.Done()
			started := time.Now()
			results[i] = o.runner.Execute(ctx, call.Name, json.RawMessage(call.Arguments), mod)
			durations[i] = time.Since(started).Milliseconds()
		}(i, call)
	}
	wg.Wait()

	for i, call := range calls {
		args := json.RawMessage(call.Arguments)
		if !json.Valid(args) {
			args = nil
		}
		result.ToolTraces = append(result.ToolTraces, ToolTrace{
			Name:       call.Name,
			Arguments:  args,
			Status:     results[i].Status,
			Content:    results[i].ContentString,
			DurationMS: durations[i],
		})
	}
	return results
}

func (o *Orchestrator) moderation(screener Screener, cfg *settings.Settings) *tool.Moderation {
	if screener == nil {
		return nil
	}
	return &tool.Moderation{
		Client:   screener,
		Recorder: o.recorder,
		Blocking: cfg.LakeraBlockingMode,
	}
}

func (o *Orchestrator) metadata(sessionID string, stage guardrail.Stage) map[string]any {
	return map[string]any{
		"session_id": sessionID,
		"stage":      string(stage),
		"product":    "demoplane",
	}
}

// citationsFrom lists one source name per retrieved chunk, in context
// order, so the citation count mirrors the context turns the model saw.
// Chunks with an empty or unknown source are skipped.
func citationsFrom(retrieved []rag.Result) []string {
	out := make([]string, 0, len(retrieved))
	for _, r := range retrieved {
		name := strings.TrimSpace(r.SourceName)
		if name == "" || strings.EqualFold(name, "unknown") {
			continue
		}
		out = append(out, name)
	}
	return out
}

func (o *Orchestrator) logTurn(ctx context.Context, sessionID string, result *TurnResult, outcome audit.Outcome) {
	if o.audit == nil {
		return
	}
	actor := sessionID
	if actor == "" {
		actor = "anonymous"
	}
	_, err := o.audit.Log(ctx, audit.LogInput{
		Actor:     actor,
		ActorType: audit.ActorTypeVisitor,
		Action:    "chat.turn",
		Details: map[string]any{
			"tool_calls": len(result.ToolTraces),
			"citations":  len(result.Citations),
			"degraded":   result.Degraded,
		},
		Outcome: outcome,
	})
	if err != nil {
		log.Printf("agent: audit log failed: %v", err)
	}
}
