// Route registration and go-chi router setup. Public routes serve the
// visitor chat widget; admin routes sit behind Bearer JWT auth.
package api

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/demoplane/demoplane/internal/api/handlers"
	apmiddleware "github.com/demoplane/demoplane/internal/api/middleware"
	"github.com/demoplane/demoplane/internal/domain/agent"
	"github.com/demoplane/demoplane/internal/domain/audit"
	"github.com/demoplane/demoplane/internal/domain/guardrail"
	"github.com/demoplane/demoplane/internal/domain/prompt"
	"github.com/demoplane/demoplane/internal/domain/rag"
	"github.com/demoplane/demoplane/internal/domain/settings"
	tooldomain "github.com/demoplane/demoplane/internal/domain/tool"
	"github.com/demoplane/demoplane/internal/infra/eventbus"
	"github.com/demoplane/demoplane/internal/infra/llm"
)

// NewRouter creates and configures a chi router with all routes, wiring the
// shared services on top of db. It also starts the background embed worker;
// cancel ctx to stop it.
func NewRouter(ctx context.Context, db *sql.DB) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (runs on all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Shared services. The embedding provider reads its credential from
	// settings on every call so admin updates apply without a restart.
	bus := eventbus.New()
	settingsStore := settings.NewStore(db)
	auditService := audit.NewService(db)
	embedProvider := llm.NewDynamic(settingsStore)
	ragStore := rag.NewStore(db, bus)
	retriever := rag.NewRetriever(ragStore, embedProvider)
	registry := tooldomain.NewRegistry(db)
	runner := tooldomain.NewRunner(registry, retriever)
	recorder := guardrail.NewRecorder()
	orchestrator := agent.NewOrchestrator(settingsStore, retriever, runner, registry, recorder, auditService)

	embedWorker := rag.NewEmbedWorker(ragStore, embedProvider, bus)
	go embedWorker.Run(ctx)

	// Health check, unauthenticated, used by load balancers and probes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	// Login is public; it is how the admin obtains a token.
	authHandler := handlers.NewAuthHandler(settingsStore)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login) // POST /auth/login
	})

	chatHandler := handlers.NewChatHandler(orchestrator)
	guardrailHandler := handlers.NewGuardrailHandler(recorder)
	configHandler := handlers.NewConfigHandler(settingsStore, bus)
	promptsHandler := handlers.NewPromptsHandler(prompt.NewLibrary(db))

	r.Route("/api", func(r chi.Router) {
		// ===== PUBLIC ROUTES (the visitor-facing demo surface) =====
		r.Post("/chat", chatHandler.Chat)            // POST /api/chat
		r.Get("/lakera/last", guardrailHandler.Last) // GET /api/lakera/last
		r.Get("/branding", configHandler.Branding)   // GET /api/branding

		// The widget's prompt picker: browse, autocomplete, record picks.
		r.Get("/demo-prompts", promptsHandler.ListPrompts)          // GET /api/demo-prompts
		r.Get("/demo-prompts/search", promptsHandler.SearchPrompts) // GET /api/demo-prompts/search
		r.Post("/demo-prompts/{id}/use", promptsHandler.UsePrompt)  // POST /api/demo-prompts/{id}/use

		// ===== PROTECTED ROUTES (JWT required via AuthMiddleware) =====
		r.Group(func(r chi.Router) {
			r.Use(apmiddleware.AuthMiddleware)
			r.Use(apmiddleware.AuditMiddleware(auditService))

			r.Get("/config", configHandler.GetConfig)    // GET /api/config
			r.Put("/config", configHandler.UpdateConfig) // PUT /api/config

			toolsHandler := handlers.NewToolsHandler(registry)
			r.Route("/tools", func(r chi.Router) {
				r.Post("/", toolsHandler.CreateTool)                // POST /api/tools
				r.Get("/", toolsHandler.ListTools)                  // GET /api/tools
				r.Get("/{id}", toolsHandler.GetTool)                // GET /api/tools/{id}
				r.Put("/{id}", toolsHandler.UpdateTool)             // PUT /api/tools/{id}
				r.Delete("/{id}", toolsHandler.DeleteTool)          // DELETE /api/tools/{id}
				r.Post("/{id}/discover", toolsHandler.DiscoverTool) // POST /api/tools/{id}/discover
			})

			ragHandler := handlers.NewRAGHandler(ragStore, retriever)
			r.Route("/rag", func(r chi.Router) {
				r.Post("/ingest", ragHandler.Ingest)               // POST /api/rag/ingest
				r.Get("/sources", ragHandler.ListSources)          // GET /api/rag/sources
				r.Delete("/sources/{id}", ragHandler.DeleteSource) // DELETE /api/rag/sources/{id}
				r.Post("/search", ragHandler.Search)               // POST /api/rag/search
			})

			// Curating the prompt library is admin work; picks are not.
			r.Post("/demo-prompts", promptsHandler.CreatePrompt)        // POST /api/demo-prompts
			r.Put("/demo-prompts/{id}", promptsHandler.UpdatePrompt)    // PUT /api/demo-prompts/{id}
			r.Delete("/demo-prompts/{id}", promptsHandler.DeletePrompt) // DELETE /api/demo-prompts/{id}

			auditHandler := handlers.NewAuditHandler(auditService)
			r.Get("/audit", auditHandler.ListEvents) // GET /api/audit
		})
	})

	return r
}
