// Demo prompt library handlers. Visitors browse, search, and pick
// prepared prompts from the chat widget; admins curate the library.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/demoplane/demoplane/internal/domain/prompt"
)

// PromptsHandler serves the demo prompt library.
type PromptsHandler struct {
	library *prompt.Library
}

// NewPromptsHandler creates a new PromptsHandler over the library.
func NewPromptsHandler(library *prompt.Library) *PromptsHandler {
	return &PromptsHandler{library: library}
}

// PromptResponse is the JSON shape of one demo prompt.
type PromptResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags"`
	IsMalicious bool      `json:"is_malicious"`
	UsageCount  int       `json:"usage_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreatePromptRequest is the request body for POST /api/demo-prompts.
type CreatePromptRequest struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	IsMalicious bool     `json:"is_malicious"`
}

// UpdatePromptRequest is the request body for PUT /api/demo-prompts/{id}.
// Absent fields leave the stored value untouched.
type UpdatePromptRequest struct {
	Title       *string  `json:"title"`
	Content     *string  `json:"content"`
	Category    *string  `json:"category"`
	Tags        []string `json:"tags"`
	IsMalicious *bool    `json:"is_malicious"`
}

// SearchPromptsResponse is the response body for GET /api/demo-prompts/search.
type SearchPromptsResponse struct {
	Prompts     []PromptResponse    `json:"prompts"`
	Suggestions []prompt.Suggestion `json:"suggestions"`
}

// ListPrompts handles GET /api/demo-prompts. Most used prompts come
// first so the widget surfaces what demos actually lean on.
//
// Query parameters:
//   - category: restrict to one category
//   - limit: maximum number of prompts (default 50)
//
// Response codes:
//   - 200 OK: prompts, most used first
//   - 500 Internal Server Error: unexpected failure
func (h *PromptsHandler) ListPrompts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	prompts, err := h.library.List(r.Context(), r.URL.Query().Get("category"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list prompts")
		return
	}
	writeJSON(w, http.StatusOK, promptResponses(prompts))
}

// SearchPrompts handles GET /api/demo-prompts/search. Queries under two
// characters return empty results rather than an error so the widget can
// call this on every keystroke.
//
// Query parameters:
//   - q: search text matched against title, content, and tags
//   - category: restrict to one category
//   - limit: maximum number of prompts (default 10)
//
// Response codes:
//   - 200 OK: matching prompts plus autocomplete suggestions
//   - 500 Internal Server Error: unexpected failure
func (h *PromptsHandler) SearchPrompts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	prompts, suggestions, err := h.library.Search(r.Context(),
		r.URL.Query().Get("q"), r.URL.Query().Get("category"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if suggestions == nil {
		suggestions = []prompt.Suggestion{}
	}
	writeJSON(w, http.StatusOK, SearchPromptsResponse{
		Prompts:     promptResponses(prompts),
		Suggestions: suggestions,
	})
}

// CreatePrompt handles POST /api/demo-prompts.
//
// Response codes:
//   - 201 Created: prompt stored
//   - 400 Bad Request: invalid JSON or missing title/content
//   - 500 Internal Server Error: unexpected failure
func (h *PromptsHandler) CreatePrompt(w http.ResponseWriter, r *http.Request) {
	var req CreatePromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	created, err := h.library.Create(r.Context(), prompt.CreateInput{
		Title:       req.Title,
		Content:     req.Content,
		Category:    req.Category,
		Tags:        req.Tags,
		IsMalicious: req.IsMalicious,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create prompt")
		return
	}
	writeJSON(w, http.StatusCreated, promptResponse(created))
}

// UpdatePrompt handles PUT /api/demo-prompts/{id}.
//
// Response codes:
//   - 200 OK: updated prompt
//   - 400 Bad Request: invalid JSON
//   - 404 Not Found: unknown prompt ID
//   - 500 Internal Server Error: unexpected failure
func (h *PromptsHandler) UpdatePrompt(w http.ResponseWriter, r *http.Request) {
	var req UpdatePromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.library.Update(r.Context(), chi.URLParam(r, "id"), prompt.UpdateInput{
		Title:       req.Title,
		Content:     req.Content,
		Category:    req.Category,
		Tags:        req.Tags,
		IsMalicious: req.IsMalicious,
	})
	if err != nil {
		if errors.Is(err, prompt.ErrPromptNotFound) {
			writeError(w, http.StatusNotFound, "prompt not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update prompt")
		return
	}
	writeJSON(w, http.StatusOK, promptResponse(updated))
}

// DeletePrompt handles DELETE /api/demo-prompts/{id}.
//
// Response codes:
//   - 204 No Content: prompt removed
//   - 404 Not Found: unknown prompt ID
//   - 500 Internal Server Error: unexpected failure
func (h *PromptsHandler) DeletePrompt(w http.ResponseWriter, r *http.Request) {
	if err := h.library.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, prompt.ErrPromptNotFound) {
			writeError(w, http.StatusNotFound, "prompt not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete prompt")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UsePrompt handles POST /api/demo-prompts/{id}/use. The widget calls
// this when a visitor picks a prompt, so popular ones rise in the list.
//
// Response codes:
//   - 200 OK: new usage count
//   - 404 Not Found: unknown prompt ID
//   - 500 Internal Server Error: unexpected failure
func (h *PromptsHandler) UsePrompt(w http.ResponseWriter, r *http.Request) {
	count, err := h.library.Use(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, prompt.ErrPromptNotFound) {
			writeError(w, http.StatusNotFound, "prompt not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to record use")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"usage_count": count})
}

func promptResponse(p *prompt.Prompt) PromptResponse {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return PromptResponse{
		ID:          p.ID,
		Title:       p.Title,
		Content:     p.Content,
		Category:    p.Category,
		Tags:        tags,
		IsMalicious: p.IsMalicious,
		UsageCount:  p.UsageCount,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func promptResponses(prompts []*prompt.Prompt) []PromptResponse {
	out := make([]PromptResponse, 0, len(prompts))
	for _, p := range prompts {
		out = append(out, promptResponse(p))
	}
	return out
}
