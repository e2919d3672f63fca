// Package tool manages the registry of demo tools offered to the model and
// their execution at chat time. Tools come in three kinds: remote MCP
// servers, plain HTTP endpoints, and builtins compiled into the binary.
package tool

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/demoplane/demoplane/pkg/uuid"
)

var (
	ErrToolNotFound      = errors.New("tool not found")
	ErrToolNameTaken     = errors.New("tool name already registered")
	ErrInvalidToolType   = errors.New("tool type must be mcp, http or builtin")
	ErrNoCapabilityCache = errors.New("no discovered capabilities for tool")
)

// Tool kinds.
const (
	TypeMCP     = "mcp"
	TypeHTTP    = "http"
	TypeBuiltin = "builtin"
)

// Tool is a registered tool record.
type Tool struct {
	ID          string
	Name        string
	Type        string
	Description *string
	Endpoint    *string
	Enabled     bool
	Config      json.RawMessage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Capability is one callable function discovered on an MCP server,
// or the single function an http/builtin tool exposes.
type Capability struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// CreateInput describes a tool to register.
type CreateInput struct {
	Name        string
	Type        string
	Description *string
	Endpoint    *string
	Config      json.RawMessage
}

// UpdateInput carries a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	Description *string
	Endpoint    *string
	Enabled     *bool
	Config      json.RawMessage
}

// Registry persists tool records and their discovered capabilities.
type Registry struct {
	db *sql.DB
}

func NewRegistry(db *sql.DB) *Registry {
	return &Registry{db: db}
}

// Create registers a new tool.
func (r *Registry) Create(ctx context.Context, in CreateInput) (*Tool, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("tool name is required")
	}
	switch in.Type {
	case TypeMCP, TypeHTTP, TypeBuiltin:
	default:
		return nil, ErrInvalidToolType
	}
	if len(in.Config) == 0 {
		in.Config = json.RawMessage(`{}`)
	}
	if !json.Valid(in.Config) {
		return nil, fmt.Errorf("tool config must be valid json")
	}

	now := time.Now().UTC()
	item := &Tool{
		ID:          uuid.NewV7().String(),
		Name:        name,
		Type:        in.Type,
		Description: in.Description,
		Endpoint:    in.Endpoint,
		Enabled:     true,
		Config:      in.Config,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tool (id, name, type, description, endpoint, enabled, config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.Name, item.Type, item.Description, item.Endpoint, 1, string(item.Config), item.CreatedAt, item.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, ErrToolNameTaken
		}
		return nil, err
	}
	return item, nil
}

// List returns all tools, oldest first. enabledOnly filters disabled tools.
func (r *Registry) List(ctx context.Context, enabledOnly bool) ([]*Tool, error) {
	query := `
		SELECT id, name, type, description, endpoint, enabled, config, created_at, updated_at
		FROM tool
	`
	if enabledOnly {
		query += " WHERE enabled = 1"
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*Tool, 0)
	for rows.Next() {
		item, scanErr := scanTool(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// Get returns one tool by ID.
func (r *Registry) Get(ctx context.Context, id string) (*Tool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, type, description, endpoint, enabled, config, created_at, updated_at
		FROM tool WHERE id = ? LIMIT 1
	`, id)
	item, err := scanTool(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrToolNotFound
	}
	return item, err
}

// GetByName returns one tool by its unique name.
func (r *Registry) GetByName(ctx context.Context, name string) (*Tool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, type, description, endpoint, enabled, config, created_at, updated_at
		FROM tool WHERE name = ? LIMIT 1
	`, name)
	item, err := scanTool(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrToolNotFound
	}
	return item, err
}

// Update applies the non-nil fields of in.
func (r *Registry) Update(ctx context.Context, id string, in UpdateInput) (*Tool, error) {
	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}

	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	if in.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *in.Description)
	}
	if in.Endpoint != nil {
		sets = append(sets, "endpoint = ?")
		args = append(args, *in.Endpoint)
	}
	if in.Enabled != nil {
		v := 0
		if *in.Enabled {
			v = 1
		}
		sets = append(sets, "enabled = ?")
		args = append(args, v)
	}
	if len(in.Config) > 0 {
		if !json.Valid(in.Config) {
			return nil, fmt.Errorf("tool config must be valid json")
		}
		sets = append(sets, "config = ?")
		args = append(args, string(in.Config))
	}

	if len(sets) > 0 {
		sets = append(sets, "updated_at = ?")
		args = append(args, time.Now().UTC(), id)
		query := "UPDATE tool SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return nil, err
		}
	}
	return r.Get(ctx, id)
}

// Delete removes a tool; its capability cache cascades.
func (r *Registry) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tool WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrToolNotFound
	}
	return nil
}

// SaveCapabilities replaces the cached discovery result for a tool.
func (r *Registry) SaveCapabilities(ctx context.Context, toolID, serverName string, caps []Capability) error {
	raw, err := json.Marshal(caps)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO tool_capability (tool_id, server_name, tools_json, discovered_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tool_id) DO UPDATE SET
			server_name = excluded.server_name,
			tools_json = excluded.tools_json,
			discovered_at = excluded.discovered_at
	`, toolID, serverName, string(raw), time.Now().UTC())
	return err
}

// Capabilities returns the cached discovery result for a tool.
func (r *Registry) Capabilities(ctx context.Context, toolID string) (string, []Capability, error) {
	var (
		serverName sql.NullString
		raw        string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT server_name, tools_json FROM tool_capability WHERE tool_id = ? LIMIT 1
	`, toolID).Scan(&serverName, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, ErrNoCapabilityCache
	}
	if err != nil {
		return "", nil, err
	}

	var caps []Capability
	if err := json.Unmarshal([]byte(raw), &caps); err != nil {
		return "", nil, fmt.Errorf("decode capability cache: %w", err)
	}
	return serverName.String, caps, nil
}

type toolScanner interface {
	Scan(dest ...any) error
}

func scanTool(scan toolScanner) (*Tool, error) {
	var (
		item           Tool
		descriptionRaw sql.NullString
		endpointRaw    sql.NullString
		configRaw      string
		enabledRaw     int
	)

	if err := scan.Scan(
		&item.ID,
		&item.Name,
		&item.Type,
		&descriptionRaw,
		&endpointRaw,
		&enabledRaw,
		&configRaw,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, err
	}

	item.Enabled = enabledRaw == 1
	item.Config = json.RawMessage(configRaw)
	if descriptionRaw.Valid {
		v := descriptionRaw.String
		item.Description = &v
	}
	if endpointRaw.Valid {
		v := endpointRaw.String
		item.Endpoint = &v
	}
	return &item, nil
}
