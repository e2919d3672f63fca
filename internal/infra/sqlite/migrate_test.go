package sqlite_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/demoplane/demoplane/internal/infra/sqlite"
)

// TestMigrateUp_RunsAllMigrations verifies that MigrateUp applies every
// bundled migration against an empty database.
func TestMigrateUp_RunsAllMigrations(t *testing.T) {
	t.Parallel()

	db := mustMigratedDB(t)

	version, err := sqlite.MigrationVersion(db)
	if err != nil {
		t.Fatalf("MigrationVersion error = %v", err)
	}
	if version < 1 {
		t.Errorf("MigrationVersion = %d; want >= 1", version)
	}
}

// TestMigrateUp_Idempotent verifies running MigrateUp twice leaves the
// schema version unchanged and produces no error.
func TestMigrateUp_Idempotent(t *testing.T) {
	t.Parallel()

	db := mustMigratedDB(t)

	before, err := sqlite.MigrationVersion(db)
	if err != nil {
		t.Fatalf("MigrationVersion error = %v", err)
	}

	if err := sqlite.MigrateUp(db); err != nil {
		t.Fatalf("second MigrateUp error = %v; want nil", err)
	}

	after, err := sqlite.MigrationVersion(db)
	if err != nil {
		t.Fatalf("MigrationVersion error = %v", err)
	}
	if before != after {
		t.Errorf("version changed after re-run: %d -> %d", before, after)
	}
}

// TestMigrateUp_CreatesCoreTables verifies the tables every service depends on.
func TestMigrateUp_CreatesCoreTables(t *testing.T) {
	t.Parallel()

	db := mustMigratedDB(t)

	for _, table := range []string{
		"app_config",
		"tool",
		"tool_capability",
		"rag_source",
		"rag_chunk",
		"audit_event",
		"demo_prompt",
	} {
		assertTableExists(t, db, table)
	}
}

// TestMigrateUp_ChunkCascade verifies rag_chunk rows are removed when
// their parent source is deleted.
func TestMigrateUp_ChunkCascade(t *testing.T) {
	t.Parallel()

	db := mustMigratedDB(t)

	if _, err := db.Exec(`INSERT INTO rag_source (id, name, source_type, preview, chunk_count) VALUES ('src-1', 'handbook', 'upload', 'x', 1)`); err != nil {
		t.Fatalf("insert rag_source error = %v", err)
	}
	if _, err := db.Exec(`INSERT INTO rag_chunk (id, source_id, chunk_index, content) VALUES ('chk-1', 'src-1', 0, 'hello')`); err != nil {
		t.Fatalf("insert rag_chunk error = %v", err)
	}

	if _, err := db.Exec(`DELETE FROM rag_source WHERE id = 'src-1'`); err != nil {
		t.Fatalf("delete rag_source error = %v", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM rag_chunk WHERE source_id = 'src-1'`).Scan(&n); err != nil {
		t.Fatalf("count rag_chunk error = %v", err)
	}
	if n != 0 {
		t.Errorf("orphan rag_chunk rows = %d; want 0", n)
	}
}

// mustMigratedDB opens a fresh database and applies all migrations.
func mustMigratedDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := sqlite.MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp error = %v", err)
	}
	return db
}

// assertTableExists fails the test if the named table is absent.
func assertTableExists(t *testing.T, db *sql.DB, table string) {
	t.Helper()

	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
	if err != nil {
		t.Errorf("table %q not found: %v", table, err)
	}
}
