package tool

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/demoplane/demoplane/internal/infra/llm"
)

// capabilitySeparator joins a tool record name with a discovered capability
// into one model-facing function name, e.g. "crm__lookup_account".
// OpenAI function names cannot contain dots.
const capabilitySeparator = "__"

// ManifestEntry pairs a model-facing function with the tool that serves it.
type ManifestEntry struct {
	Def        llm.ToolDef
	ToolID     string
	ToolType   string
	Capability string
}

// BuildManifest assembles the function list offered to the model for one
// turn: the builtin knowledge search plus every enabled registered tool.
// MCP tools expand into one function per cached capability; a tool whose
// discovery never ran contributes nothing rather than failing the turn.
func (r *Registry) BuildManifest(ctx context.Context, includeBuiltins bool) ([]ManifestEntry, error) {
	entries := make([]ManifestEntry, 0, 8)

	if includeBuiltins {
		kb := KBSearchCapability()
		entries = append(entries, ManifestEntry{
			Def: llm.ToolDef{
				Name:        kb.Name,
				Description: kb.Description,
				Parameters:  kb.InputSchema,
			},
			ToolType:   TypeBuiltin,
			Capability: kb.Name,
		})
	}

	tools, err := r.List(ctx, true)
	if err != nil {
		return nil, err
	}

	for _, t := range tools {
		switch t.Type {
		case TypeMCP:
			_, caps, capErr := r.Capabilities(ctx, t.ID)
			if errors.Is(capErr, ErrNoCapabilityCache) {
				continue
			}
			if capErr != nil {
				return nil, capErr
			}
			for _, c := range caps {
				entries = append(entries, ManifestEntry{
					Def: llm.ToolDef{
						Name:        t.Name + capabilitySeparator + c.Name,
						Description: c.Description,
						Parameters:  c.InputSchema,
					},
					ToolID:     t.ID,
					ToolType:   TypeMCP,
					Capability: c.Name,
				})
			}
		case TypeHTTP:
			var cfg httpToolConfig
			if len(t.Config) > 0 {
				_ = json.Unmarshal(t.Config, &cfg)
			}
			description := cfg.Description
			if description == "" && t.Description != nil {
				description = *t.Description
			}
			schema := cfg.InputSchema
			if len(schema) == 0 {
				schema = json.RawMessage(`{"type":"object","properties":{}}`)
			}
			entries = append(entries, ManifestEntry{
				Def: llm.ToolDef{
					Name:        t.Name,
					Description: description,
					Parameters:  schema,
				},
				ToolID:   t.ID,
				ToolType: TypeHTTP,
			})
		}
	}

	return entries, nil
}

// splitFunctionName separates a model-facing function name back into the
// tool record name and the capability on it.
func splitFunctionName(name string) (toolName, capability string) {
	if idx := strings.Index(name, capabilitySeparator); idx > 0 {
		return name[:idx], name[idx+len(capabilitySeparator):]
	}
	return name, name
}
