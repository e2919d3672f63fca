// Knowledge base handlers for the admin console: document ingestion,
// source listing and deletion, and retrieval inspection.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/demoplane/demoplane/internal/domain/rag"
)

// RAGHandler manages knowledge sources and exposes a search endpoint so
// admins can inspect what the retriever would feed the agent.
type RAGHandler struct {
	store     *rag.Store
	retriever *rag.Retriever
}

// NewRAGHandler creates a new RAGHandler over the store and retriever.
func NewRAGHandler(store *rag.Store, retriever *rag.Retriever) *RAGHandler {
	return &RAGHandler{store: store, retriever: retriever}
}

// SourceResponse is the JSON shape of one knowledge source.
type SourceResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SourceType string    `json:"source_type"`
	Preview    string    `json:"preview"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// IngestRequest is the request body for POST /api/rag/ingest.
type IngestRequest struct {
	Name       string `json:"name"`
	SourceType string `json:"source_type"`
	Content    string `json:"content"`
}

// SearchRequest is the request body for POST /api/rag/search.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// Ingest handles POST /api/rag/ingest. Chunks are written with pending
// embeddings; the embed worker backfills them asynchronously, so a source
// may briefly return no search hits after ingestion.
//
// Response codes:
//   - 201 Created: source stored, embedding queued
//   - 400 Bad Request: invalid JSON, missing name, or empty content
//   - 500 Internal Server Error: unexpected failure
func (h *RAGHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	sourceType := req.SourceType
	if sourceType == "" {
		sourceType = "upload"
	}

	src, err := h.store.Ingest(r.Context(), rag.IngestInput{
		Name:       req.Name,
		SourceType: sourceType,
		Content:    req.Content,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to ingest document")
		return
	}
	writeJSON(w, http.StatusCreated, sourceResponse(src))
}

// ListSources handles GET /api/rag/sources.
//
// Response codes:
//   - 200 OK: all knowledge sources, newest first
//   - 500 Internal Server Error: unexpected failure
func (h *RAGHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.store.ListSources(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sources")
		return
	}
	out := make([]SourceResponse, 0, len(sources))
	for _, src := range sources {
		out = append(out, sourceResponse(src))
	}
	writeJSON(w, http.StatusOK, out)
}

// DeleteSource handles DELETE /api/rag/sources/{id}. Chunks cascade.
//
// Response codes:
//   - 204 No Content: source and chunks removed
//   - 404 Not Found: unknown source ID
//   - 500 Internal Server Error: unexpected failure
func (h *RAGHandler) DeleteSource(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteSource(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, rag.ErrSourceNotFound) {
			writeError(w, http.StatusNotFound, "source not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete source")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles POST /api/rag/search. It runs the same retrieval the
// agent uses so admins can verify what a visitor question would surface.
//
// Response codes:
//   - 200 OK: ranked results (empty array when nothing is embedded yet)
//   - 400 Bad Request: invalid JSON or missing query
//   - 502 Bad Gateway: embedding provider failure
func (h *RAGHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	results, err := h.retriever.Retrieve(r.Context(), req.Query, req.TopK)
	if err != nil {
		writeError(w, http.StatusBadGateway, "retrieval failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func sourceResponse(src *rag.Source) SourceResponse {
	return SourceResponse{
		ID:         src.ID,
		Name:       src.Name,
		SourceType: src.SourceType,
		Preview:    src.Preview,
		ChunkCount: src.ChunkCount,
		CreatedAt:  src.CreatedAt,
	}
}
