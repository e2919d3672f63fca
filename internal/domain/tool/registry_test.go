package tool

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/demoplane/demoplane/internal/infra/sqlite"
)

// setupTestDB creates an in-memory database with migrations for testing
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sqlite.NewDB(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := sqlite.MigrateUp(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestCreate_AndGetByName(t *testing.T) {
	registry := NewRegistry(setupTestDB(t))
	ctx := context.Background()

	created, err := registry.Create(ctx, CreateInput{
		Name:        "crm",
		Type:        TypeMCP,
		Description: strPtr("Demo CRM over MCP"),
		Endpoint:    strPtr("https://crm.example.com/mcp"),
	})
	if err != nil {
		t.Fatalf("Create error = %v", err)
	}
	if !created.Enabled {
		t.Error("new tools should start enabled")
	}

	got, err := registry.GetByName(ctx, "crm")
	if err != nil {
		t.Fatalf("GetByName error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetByName returned wrong record: %s vs %s", got.ID, created.ID)
	}
	if got.Endpoint == nil || *got.Endpoint != "https://crm.example.com/mcp" {
		t.Errorf("endpoint not persisted: %v", got.Endpoint)
	}
}

func TestCreate_RejectsDuplicateName(t *testing.T) {
	registry := NewRegistry(setupTestDB(t))
	ctx := context.Background()

	if _, err := registry.Create(ctx, CreateInput{Name: "crm", Type: TypeMCP}); err != nil {
		t.Fatalf("first Create error = %v", err)
	}
	if _, err := registry.Create(ctx, CreateInput{Name: "crm", Type: TypeHTTP}); !errors.Is(err, ErrToolNameTaken) {
		t.Errorf("duplicate Create error = %v; want ErrToolNameTaken", err)
	}
}

func TestCreate_RejectsBadType(t *testing.T) {
	registry := NewRegistry(setupTestDB(t))

	if _, err := registry.Create(context.Background(), CreateInput{Name: "x", Type: "grpc"}); !errors.Is(err, ErrInvalidToolType) {
		t.Errorf("Create error = %v; want ErrInvalidToolType", err)
	}
}

func TestUpdate_PartialAndDisable(t *testing.T) {
	registry := NewRegistry(setupTestDB(t))
	ctx := context.Background()

	created, err := registry.Create(ctx, CreateInput{Name: "weather", Type: TypeHTTP, Endpoint: strPtr("https://old")})
	if err != nil {
		t.Fatalf("Create error = %v", err)
	}

	updated, err := registry.Update(ctx, created.ID, UpdateInput{
		Endpoint: strPtr("https://new"),
		Enabled:  boolPtr(false),
	})
	if err != nil {
		t.Fatalf("Update error = %v", err)
	}
	if *updated.Endpoint != "https://new" {
		t.Errorf("endpoint = %q; want https://new", *updated.Endpoint)
	}
	if updated.Enabled {
		t.Error("tool should be disabled")
	}

	enabled, err := registry.List(ctx, true)
	if err != nil {
		t.Fatalf("List error = %v", err)
	}
	if len(enabled) != 0 {
		t.Errorf("enabledOnly list returned %d tools; want 0", len(enabled))
	}
}

func TestDelete_RemovesCapabilityCache(t *testing.T) {
	registry := NewRegistry(setupTestDB(t))
	ctx := context.Background()

	created, err := registry.Create(ctx, CreateInput{Name: "crm", Type: TypeMCP})
	if err != nil {
		t.Fatalf("Create error = %v", err)
	}
	caps := []Capability{{Name: "lookup_account", Description: "Find an account", InputSchema: json.RawMessage(`{"type":"object"}`)}}
	if err := registry.SaveCapabilities(ctx, created.ID, "crm-server", caps); err != nil {
		t.Fatalf("SaveCapabilities error = %v", err)
	}

	if err := registry.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete error = %v", err)
	}

	if _, _, err := registry.Capabilities(ctx, created.ID); !errors.Is(err, ErrNoCapabilityCache) {
		t.Errorf("Capabilities after delete error = %v; want ErrNoCapabilityCache", err)
	}
	if err := registry.Delete(ctx, created.ID); !errors.Is(err, ErrToolNotFound) {
		t.Errorf("second Delete error = %v; want ErrToolNotFound", err)
	}
}

func TestSaveCapabilities_Replaces(t *testing.T) {
	registry := NewRegistry(setupTestDB(t))
	ctx := context.Background()

	created, err := registry.Create(ctx, CreateInput{Name: "crm", Type: TypeMCP})
	if err != nil {
		t.Fatalf("Create error = %v", err)
	}

	first := []Capability{{Name: "a"}}
	second := []Capability{{Name: "b"}, {Name: "c"}}
	if err := registry.SaveCapabilities(ctx, created.ID, "v1", first); err != nil {
		t.Fatalf("SaveCapabilities error = %v", err)
	}
	if err := registry.SaveCapabilities(ctx, created.ID, "v2", second); err != nil {
		t.Fatalf("second SaveCapabilities error = %v", err)
	}

	serverName, caps, err := registry.Capabilities(ctx, created.ID)
	if err != nil {
		t.Fatalf("Capabilities error = %v", err)
	}
	if serverName != "v2" {
		t.Errorf("server name = %q; want v2", serverName)
	}
	if len(caps) != 2 {
		t.Errorf("capabilities = %d; want 2", len(caps))
	}
}
