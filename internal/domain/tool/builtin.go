package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/demoplane/demoplane/internal/domain/rag"
)

// KBSearchName is the registered name of the builtin knowledge search tool.
const KBSearchName = "kb_search"

// kbSearchSchema describes the arguments kb_search accepts.
var kbSearchSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"query": {"type": "string", "description": "What to look up in the knowledge base"},
		"top_k": {"type": "integer", "description": "How many passages to return (default 4)"}
	},
	"required": ["query"]
}`)

// KBSearchCapability returns the manifest entry for the builtin search tool.
func KBSearchCapability() Capability {
	return Capability{
		Name:        KBSearchName,
		Description: "Search the demo knowledge base for relevant passages",
		InputSchema: kbSearchSchema,
	}
}

// KBSearchExecutor lets the model search the knowledge base explicitly,
// on top of the automatic retrieval every turn already gets.
type KBSearchExecutor struct {
	retriever *rag.Retriever
}

func NewKBSearchExecutor(retriever *rag.Retriever) *KBSearchExecutor {
	return &KBSearchExecutor{retriever: retriever}
}

func (e *KBSearchExecutor) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	var args struct {
		Query string `json:"query"`
		TopK  int    `json:"top_k"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &args); err != nil {
			return errorResult(fmt.Sprintf("invalid kb_search arguments: %v", err)), nil
		}
	}
	if args.Query == "" {
		return errorResult("kb_search requires a query"), nil
	}

	results, err := e.retriever.Retrieve(ctx, args.Query, args.TopK)
	if err != nil {
		return errorResult(fmt.Sprintf("knowledge search failed: %v", err)), nil
	}

	raw, err := json.Marshal(results)
	if err != nil {
		return errorResult(fmt.Sprintf("could not encode search results: %v", err)), nil
	}
	if len(results) == 0 {
		return &Result{Status: StatusSuccess, ContentString: "no matching passages found", Raw: raw}, nil
	}
	return &Result{Status: StatusSuccess, ContentString: string(raw), Raw: raw}, nil
}
