package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/demoplane/demoplane/internal/domain/guardrail"
	"github.com/demoplane/demoplane/internal/domain/rag"
)

// executionTimeout bounds a single tool call so one slow server cannot
// stall the whole turn.
const executionTimeout = 30 * time.Second

// Screener checks tool output against the guardrail service.
type Screener interface {
	Enabled() bool
	Screen(ctx context.Context, stage guardrail.Stage, messages []guardrail.Message, metadata map[string]any) (*guardrail.Verdict, error)
}

// Moderation carries the per-turn guardrail policy for tool output.
// A nil *Moderation skips screening entirely.
type Moderation struct {
	Client   Screener
	Recorder *guardrail.Recorder
	Blocking bool
}

// Runner resolves model-facing function names to executors and runs them.
// Execution failures come back as error Results, never as Go errors, so
// the agent loop always has a tool turn to hand the model.
type Runner struct {
	registry  *Registry
	retriever *rag.Retriever
}

func NewRunner(registry *Registry, retriever *rag.Retriever) *Runner {
	return &Runner{registry: registry, retriever: retriever}
}

// Execute runs one tool call and returns its normalized result.
func (r *Runner) Execute(ctx context.Context, functionName string, params json.RawMessage, mod *Moderation) *Result {
	execCtx, cancel := context.WithTimeout(ctx, executionTimeout)
	defer cancel()

	result := r.dispatch(execCtx, functionName, params)
	return r.moderate(ctx, functionName, result, mod)
}

func (r *Runner) dispatch(ctx context.Context, functionName string, params json.RawMessage) *Result {
	if functionName == KBSearchName {
		result, err := NewKBSearchExecutor(r.retriever).Execute(ctx, params)
		if err != nil {
			return errorResult(fmt.Sprintf("knowledge search failed: %v", err))
		}
		return result
	}

	toolName, capability := splitFunctionName(functionName)

	record, err := r.registry.GetByName(ctx, toolName)
	if errors.Is(err, ErrToolNotFound) {
		return errorResult(fmt.Sprintf("unknown tool %q", functionName))
	}
	if err != nil {
		return errorResult(fmt.Sprintf("tool lookup failed: %v", err))
	}
	if !record.Enabled {
		return errorResult(fmt.Sprintf("tool %q is disabled", toolName))
	}

	var executor Executor
	switch record.Type {
	case TypeMCP:
		if record.Endpoint == nil || *record.Endpoint == "" {
			return errorResult(fmt.Sprintf("tool %q has no endpoint", toolName))
		}
		executor = NewMCPExecutor(*record.Endpoint, capability, record.Config)
	case TypeHTTP:
		if record.Endpoint == nil || *record.Endpoint == "" {
			return errorResult(fmt.Sprintf("tool %q has no endpoint", toolName))
		}
		executor = NewHTTPExecutor(*record.Endpoint, record.Config)
	default:
		return errorResult(fmt.Sprintf("tool %q has unsupported type %q", toolName, record.Type))
	}

	result, err := executor.Execute(ctx, params)
	if err != nil {
		return errorResult(fmt.Sprintf("tool execution failed: %v", err))
	}
	return result
}

// moderate screens the tool output before it reaches the model. On a
// flagged verdict with blocking mode on, the content is replaced with the
// standard notice; otherwise the verdict is recorded and content passes.
func (r *Runner) moderate(ctx context.Context, functionName string, result *Result, mod *Moderation) *Result {
	if mod == nil || mod.Client == nil || !mod.Client.Enabled() || result.ContentString == "" {
		return result
	}

	verdict, err := mod.Client.Screen(ctx, guardrail.StagePost,
		[]guardrail.Message{{Role: "user", Content: result.ContentString}},
		map[string]any{"origin": "tool", "tool": functionName})
	if err != nil {
		// Screening failure degrades to unmoderated output.
		return result
	}
	if mod.Recorder != nil {
		mod.Recorder.Record(verdict)
	}

	if verdict.Flagged && mod.Blocking {
		return &Result{
			Status:        StatusError,
			ContentString: guardrail.BlockedNotice,
			Raw:           result.Raw,
		}
	}
	return result
}
