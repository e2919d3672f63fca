package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

const mcpProtocolVersion = "2025-06-18"

// mcpConfig is the config payload stored on tool records of type mcp.
type mcpConfig struct {
	Transport string            `json:"transport"` // "http" (default) | "sse"
	Headers   map[string]string `json:"headers"`
}

func parseMCPConfig(raw json.RawMessage) mcpConfig {
	var cfg mcpConfig
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &cfg)
	}
	if cfg.Transport == "" {
		cfg.Transport = "http"
	}
	return cfg
}

// connectMCP dials an MCP server and completes the initialize handshake.
// The caller owns the returned client and must Close it.
func connectMCP(ctx context.Context, endpoint string, cfg mcpConfig) (*client.Client, *mcptypes.InitializeResult, error) {
	var (
		mcpClient *client.Client
		err       error
	)
	switch cfg.Transport {
	case "sse":
		var opts []transport.ClientOption
		if len(cfg.Headers) > 0 {
			opts = append(opts, transport.WithHeaders(cfg.Headers))
		}
		mcpClient, err = client.NewSSEMCPClient(endpoint, opts...)
	default:
		var opts []transport.StreamableHTTPCOption
		if len(cfg.Headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(cfg.Headers))
		}
		mcpClient, err = client.NewStreamableHttpClient(endpoint, opts...)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("mcp connect %s: %w", endpoint, err)
	}

	if err := mcpClient.GetTransport().Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("mcp transport start: %w", err)
	}

	initResult, err := mcpClient.Initialize(ctx, mcptypes.InitializeRequest{
		Params: mcptypes.InitializeParams{
			ProtocolVersion: mcpProtocolVersion,
			Capabilities:    mcptypes.ClientCapabilities{},
			ClientInfo: mcptypes.Implementation{
				Name:    "demoplane",
				Version: "1.0.0",
			},
		},
	})
	if err != nil {
		mcpClient.Close()
		return nil, nil, fmt.Errorf("mcp initialize: %w", err)
	}
	return mcpClient, initResult, nil
}

// DiscoverMCP connects to an MCP server and lists its tools.
// Used by the admin discover endpoint to refresh the capability cache.
func DiscoverMCP(ctx context.Context, endpoint string, config json.RawMessage) (string, []Capability, error) {
	cfg := parseMCPConfig(config)

	mcpClient, initResult, err := connectMCP(ctx, endpoint, cfg)
	if err != nil {
		return "", nil, err
	}
	defer mcpClient.Close()

	toolsResult, err := mcpClient.ListTools(ctx, mcptypes.ListToolsRequest{})
	if err != nil {
		return "", nil, fmt.Errorf("mcp list tools: %w", err)
	}

	caps := make([]Capability, 0, len(toolsResult.Tools))
	for _, t := range toolsResult.Tools {
		schema, marshalErr := json.Marshal(t.InputSchema)
		if marshalErr != nil {
			schema = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		caps = append(caps, Capability{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}
	return initResult.ServerInfo.Name, caps, nil
}

// MCPExecutor executes one capability on a remote MCP server. A fresh
// connection per call keeps the executor stateless at demo scale.
type MCPExecutor struct {
	endpoint   string
	capability string
	config     json.RawMessage
}

func NewMCPExecutor(endpoint, capability string, config json.RawMessage) *MCPExecutor {
	return &MCPExecutor{endpoint: endpoint, capability: capability, config: config}
}

func (e *MCPExecutor) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	args := map[string]any{}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &args); err != nil {
			return errorResult(fmt.Sprintf("invalid arguments for %s: %v", e.capability, err)), nil
		}
	}

	mcpClient, _, err := connectMCP(ctx, e.endpoint, parseMCPConfig(e.config))
	if err != nil {
		return errorResult(fmt.Sprintf("could not reach tool server: %v", err)), nil
	}
	defer mcpClient.Close()

	callResult, err := mcpClient.CallTool(ctx, mcptypes.CallToolRequest{
		Params: mcptypes.CallToolParams{
			Name:      e.capability,
			Arguments: args,
		},
	})
	if err != nil {
		return errorResult(fmt.Sprintf("tool call failed: %v", err)), nil
	}

	content := "tool executed successfully (no output)"
	var raw json.RawMessage
	if len(callResult.Content) > 0 {
		if bytes, marshalErr := json.Marshal(callResult.Content); marshalErr == nil {
			content = string(bytes)
			raw = bytes
		}
	}

	status := StatusSuccess
	if callResult.IsError {
		status = StatusError
	}
	return &Result{Status: status, ContentString: content, Raw: raw}, nil
}
