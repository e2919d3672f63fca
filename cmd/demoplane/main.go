// Demoplane - skinnable B2B sales-demo platform.
// Entry point: flag parsing, storage bootstrap, seed ingestion, server lifecycle.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/demoplane/demoplane/internal/domain/rag"
	"github.com/demoplane/demoplane/internal/infra/config"
	"github.com/demoplane/demoplane/internal/infra/sqlite"
	"github.com/demoplane/demoplane/internal/server"
	"github.com/demoplane/demoplane/internal/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("demoplane", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.Bool("help", false, "Show help")
	seedFile := fs.String("seed", "", "YAML seed pack to ingest at startup")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}

	if *showHelp {
		printHelp(out)
		return 0
	}

	if err := serve(out, *seedFile); err != nil {
		fmt.Fprintf(out, "demoplane: %v\n", err) //nolint:errcheck
		return 1
	}
	return 0
}

func serve(out io.Writer, seedFlag string) error {
	cfg := config.Load()

	db, err := sqlite.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if err := sqlite.MigrateUp(db); err != nil {
		db.Close() //nolint:errcheck
		return fmt.Errorf("run migrations: %w", err)
	}

	// CLI flag wins over the environment variable.
	seedFile := seedFlag
	if seedFile == "" {
		seedFile = cfg.SeedFile
	}
	if seedFile != "" {
		if err := ingestSeed(db, seedFile, out); err != nil {
			db.Close() //nolint:errcheck
			return err
		}
	}

	serverCfg := server.DefaultConfig()
	serverCfg.Host = cfg.Host
	if port, err := strconv.Atoi(cfg.Port); err == nil {
		serverCfg.Port = port
	}

	srv := server.NewServer(db, serverCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// ingestSeed loads a YAML seed pack and ingests its documents. Sources that
// already exist are skipped, so restarting with the same pack is harmless.
// Chunks land pending; the embed worker backfills them once the server runs.
func ingestSeed(db *sql.DB, path string, out io.Writer) error {
	pack, err := rag.LoadSeedPack(path)
	if err != nil {
		return err
	}

	store := rag.NewStore(db, nil)
	n, err := store.IngestSeedPack(context.Background(), pack)
	if err != nil {
		return fmt.Errorf("ingest seed pack: %w", err)
	}
	fmt.Fprintf(out, "Seed pack %q: %d document(s) ingested\n", pack.Name, n) //nolint:errcheck
	return nil
}

func printHelp(out io.Writer) {
	helpText := `Demoplane - skinnable B2B sales-demo platform

Usage:
  demoplane [options]

Options:
  --version    Show version information
  --help       Show this help message
  --seed PATH  Ingest a YAML seed pack at startup (also DEMOPLANE_SEED)

Environment:
  DEMOPLANE_HOST  Listen address (default 0.0.0.0)
  DEMOPLANE_PORT  Listen port (default 8080)
  DEMOPLANE_DB    SQLite database path (default ./data/demoplane.db)
  DEMOPLANE_SEED  YAML seed pack ingested at startup
  JWT_SECRET      Secret for admin console tokens (required for /auth)

Examples:
  demoplane --version
  demoplane --seed ./seed/acme.yaml`
	fmt.Fprintln(out, helpText) //nolint:errcheck
}
