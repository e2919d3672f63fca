// Tool registry handlers for the admin console: CRUD plus MCP capability
// discovery.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/demoplane/demoplane/internal/domain/tool"
)

// discoverTimeout bounds one MCP discovery round trip.
const discoverTimeout = 15 * time.Second

// ToolsHandler manages registered tools.
type ToolsHandler struct {
	registry *tool.Registry

	// discover is swapped in handler tests to avoid dialing a live MCP server.
	discover func(ctx context.Context, endpoint string, config json.RawMessage) (string, []tool.Capability, error)
}

// NewToolsHandler creates a new ToolsHandler over the registry.
func NewToolsHandler(registry *tool.Registry) *ToolsHandler {
	return &ToolsHandler{registry: registry, discover: tool.DiscoverMCP}
}

// ToolResponse is the JSON shape of one registered tool.
type ToolResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Description *string         `json:"description,omitempty"`
	Endpoint    *string         `json:"endpoint,omitempty"`
	Enabled     bool            `json:"enabled"`
	Config      json.RawMessage `json:"config"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateToolRequest is the request body for POST /api/tools.
type CreateToolRequest struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Description *string         `json:"description"`
	Endpoint    *string         `json:"endpoint"`
	Config      json.RawMessage `json:"config"`
}

// UpdateToolRequest is the request body for PUT /api/tools/{id}.
// All fields are optional; omitted fields keep their stored value.
type UpdateToolRequest struct {
	Description *string         `json:"description"`
	Endpoint    *string         `json:"endpoint"`
	Enabled     *bool           `json:"enabled"`
	Config      json.RawMessage `json:"config"`
}

// DiscoverResponse is the response body for POST /api/tools/{id}/discover.
type DiscoverResponse struct {
	ServerName   string            `json:"server_name"`
	Capabilities []tool.Capability `json:"capabilities"`
}

// ListTools handles GET /api/tools.
//
// Response codes:
//   - 200 OK: all registered tools, enabled or not
//   - 500 Internal Server Error: unexpected failure
func (h *ToolsHandler) ListTools(w http.ResponseWriter, r *http.Request) {
	tools, err := h.registry.List(r.Context(), false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tools")
		return
	}
	out := make([]ToolResponse, 0, len(tools))
	for _, t := range tools {
		out = append(out, toolResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateTool handles POST /api/tools.
//
// Response codes:
//   - 201 Created: tool registered
//   - 400 Bad Request: invalid JSON, missing name, or unknown type
//   - 409 Conflict: name already taken
//   - 500 Internal Server Error: unexpected failure
func (h *ToolsHandler) CreateTool(w http.ResponseWriter, r *http.Request) {
	var req CreateToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	created, err := h.registry.Create(r.Context(), tool.CreateInput{
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Endpoint:    req.Endpoint,
		Config:      req.Config,
	})
	if err != nil {
		switch {
		case errors.Is(err, tool.ErrInvalidToolType):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, tool.ErrToolNameTaken):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to create tool")
		}
		return
	}

	writeJSON(w, http.StatusCreated, toolResponse(created))
}

// GetTool handles GET /api/tools/{id}.
//
// Response codes:
//   - 200 OK: the tool
//   - 404 Not Found: unknown tool ID
//   - 500 Internal Server Error: unexpected failure
func (h *ToolsHandler) GetTool(w http.ResponseWriter, r *http.Request) {
	found, err := h.registry.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, tool.ErrToolNotFound) {
			writeError(w, http.StatusNotFound, "tool not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load tool")
		return
	}
	writeJSON(w, http.StatusOK, toolResponse(found))
}

// UpdateTool handles PUT /api/tools/{id}.
//
// Response codes:
//   - 200 OK: updated tool
//   - 400 Bad Request: invalid JSON
//   - 404 Not Found: unknown tool ID
//   - 500 Internal Server Error: unexpected failure
func (h *ToolsHandler) UpdateTool(w http.ResponseWriter, r *http.Request) {
	var req UpdateToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.registry.Update(r.Context(), chi.URLParam(r, "id"), tool.UpdateInput{
		Description: req.Description,
		Endpoint:    req.Endpoint,
		Enabled:     req.Enabled,
		Config:      req.Config,
	})
	if err != nil {
		if errors.Is(err, tool.ErrToolNotFound) {
			writeError(w, http.StatusNotFound, "tool not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update tool")
		return
	}
	writeJSON(w, http.StatusOK, toolResponse(updated))
}

// DeleteTool handles DELETE /api/tools/{id}.
//
// Response codes:
//   - 204 No Content: tool removed (capability cache cascades)
//   - 404 Not Found: unknown tool ID
//   - 500 Internal Server Error: unexpected failure
func (h *ToolsHandler) DeleteTool(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, tool.ErrToolNotFound) {
			writeError(w, http.StatusNotFound, "tool not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete tool")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DiscoverTool handles POST /api/tools/{id}/discover. It connects to the
// tool's MCP endpoint, lists its capabilities, and caches them for the
// manifest builder.
//
// Response codes:
//   - 200 OK: discovered and cached capabilities
//   - 400 Bad Request: tool is not MCP or has no endpoint
//   - 404 Not Found: unknown tool ID
//   - 502 Bad Gateway: MCP server unreachable or handshake failed
//   - 500 Internal Server Error: unexpected failure
func (h *ToolsHandler) DiscoverTool(w http.ResponseWriter, r *http.Request) {
	found, err := h.registry.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, tool.ErrToolNotFound) {
			writeError(w, http.StatusNotFound, "tool not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load tool")
		return
	}
	if found.Type != tool.TypeMCP || found.Endpoint == nil || *found.Endpoint == "" {
		writeError(w, http.StatusBadRequest, "discovery requires an mcp tool with an endpoint")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), discoverTimeout)
	defer cancel()

	serverName, caps, err := h.discover(ctx, *found.Endpoint, found.Config)
	if err != nil {
		writeError(w, http.StatusBadGateway, "mcp discovery failed: "+err.Error())
		return
	}

	if err := h.registry.SaveCapabilities(r.Context(), found.ID, serverName, caps); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to cache capabilities")
		return
	}

	writeJSON(w, http.StatusOK, DiscoverResponse{ServerName: serverName, Capabilities: caps})
}

func toolResponse(t *tool.Tool) ToolResponse {
	return ToolResponse{
		ID:          t.ID,
		Name:        t.Name,
		Type:        t.Type,
		Description: t.Description,
		Endpoint:    t.Endpoint,
		Enabled:     t.Enabled,
		Config:      t.Config,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
