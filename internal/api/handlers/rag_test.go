package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/demoplane/demoplane/internal/domain/rag"
	"github.com/demoplane/demoplane/internal/domain/settings"
	"github.com/demoplane/demoplane/internal/infra/llm"
)

func newRAGFixture(t *testing.T) *RAGHandler {
	t.Helper()
	db := setupTestDB(t)
	store := rag.NewStore(db, nil)
	// No OpenAI key is configured in the test settings row; retrieval over
	// an empty corpus never reaches the provider.
	retriever := rag.NewRetriever(store, llm.NewDynamic(settings.NewStore(db)))
	return NewRAGHandler(store, retriever)
}

func TestRAGHandler_Ingest_Success(t *testing.T) {
	handler := newRAGFixture(t)

	rec := httptest.NewRecorder()
	handler.Ingest(rec, jsonRequest(t, http.MethodPost, "/api/rag/ingest", IngestRequest{
		Name:    "pricing",
		Content: "Plans start at $49 per month with unlimited seats.",
	}))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body.String())
	}

	var src SourceResponse
	decodeBody(t, rec, &src)
	if src.ID == "" {
		t.Error("expected an ID on the ingested source")
	}
	if src.SourceType != "upload" {
		t.Errorf("source type = %q; want default upload", src.SourceType)
	}
	if src.ChunkCount == 0 {
		t.Error("expected at least one chunk")
	}
}

func TestRAGHandler_Ingest_MissingFields(t *testing.T) {
	handler := newRAGFixture(t)

	tests := []struct {
		name string
		req  IngestRequest
	}{
		{"no name", IngestRequest{Content: "text"}},
		{"no content", IngestRequest{Name: "doc"}},
		{"blank content", IngestRequest{Name: "doc", Content: "   "}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.Ingest(rec, jsonRequest(t, http.MethodPost, "/api/rag/ingest", tc.req))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d; want 400", rec.Code)
			}
		})
	}
}

func TestRAGHandler_ListSources(t *testing.T) {
	handler := newRAGFixture(t)

	rec := httptest.NewRecorder()
	handler.Ingest(rec, jsonRequest(t, http.MethodPost, "/api/rag/ingest", IngestRequest{
		Name: "pricing", Content: "Plans start at $49.",
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("ingest status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ListSources(rec, httptest.NewRequest(http.MethodGet, "/api/rag/sources", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	var sources []SourceResponse
	decodeBody(t, rec, &sources)
	if len(sources) != 1 || sources[0].Name != "pricing" {
		t.Errorf("sources = %+v", sources)
	}
}

func TestRAGHandler_DeleteSource(t *testing.T) {
	handler := newRAGFixture(t)

	rec := httptest.NewRecorder()
	handler.Ingest(rec, jsonRequest(t, http.MethodPost, "/api/rag/ingest", IngestRequest{
		Name: "pricing", Content: "Plans start at $49.",
	}))
	var src SourceResponse
	decodeBody(t, rec, &src)

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/rag/sources/"+src.ID, nil), "id", src.ID)
	rec = httptest.NewRecorder()
	handler.DeleteSource(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d; want 204", rec.Code)
	}
}

func TestRAGHandler_DeleteSource_NotFound(t *testing.T) {
	handler := newRAGFixture(t)

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/rag/sources/nope", nil), "id", "missing")
	rec := httptest.NewRecorder()
	handler.DeleteSource(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d; want 404", rec.Code)
	}
}

func TestRAGHandler_Search_EmptyCorpus(t *testing.T) {
	handler := newRAGFixture(t)

	rec := httptest.NewRecorder()
	handler.Search(rec, jsonRequest(t, http.MethodPost, "/api/rag/search", SearchRequest{Query: "pricing"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body.String())
	}
	var results []rag.Result
	decodeBody(t, rec, &results)
	if len(results) != 0 {
		t.Errorf("results = %+v; want empty", results)
	}
}

func TestRAGHandler_Search_MissingQuery(t *testing.T) {
	handler := newRAGFixture(t)

	rec := httptest.NewRecorder()
	handler.Search(rec, jsonRequest(t, http.MethodPost, "/api/rag/search", SearchRequest{}))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", rec.Code)
	}
}
