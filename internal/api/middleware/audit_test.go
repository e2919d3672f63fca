package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/demoplane/demoplane/internal/api/ctxkeys"
	domainaudit "github.com/demoplane/demoplane/internal/domain/audit"
)

// recordingLogger captures the log input instead of writing to sqlite.
type recordingLogger struct {
	inputs []domainaudit.LogInput
}

func (l *recordingLogger) Log(ctx context.Context, in domainaudit.LogInput) (*domainaudit.Event, error) {
	l.inputs = append(l.inputs, in)
	return &domainaudit.Event{}, nil
}

func serveAudited(logger AuditLogger, subject, method, path string, status int) {
	handler := AuditMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	req := httptest.NewRequest(method, path, nil)
	if subject != "" {
		req = req.WithContext(ctxkeys.WithValue(req.Context(), ctxkeys.Subject, subject))
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
}

func TestAuditMiddleware_LogsAdminRequest(t *testing.T) {
	logger := &recordingLogger{}
	serveAudited(logger, "admin", http.MethodPut, "/api/config", http.StatusOK)

	if len(logger.inputs) != 1 {
		t.Fatalf("logged %d events; want 1", len(logger.inputs))
	}
	in := logger.inputs[0]
	if in.Actor != "admin" || in.ActorType != domainaudit.ActorTypeAdmin {
		t.Errorf("actor = %q/%q", in.Actor, in.ActorType)
	}
	if in.Action != "update_config" {
		t.Errorf("action = %q; want update_config", in.Action)
	}
	if in.Outcome != domainaudit.OutcomeSuccess {
		t.Errorf("outcome = %q; want success", in.Outcome)
	}
}

func TestAuditMiddleware_EntityFromPath(t *testing.T) {
	logger := &recordingLogger{}
	serveAudited(logger, "admin", http.MethodDelete, "/api/tools/tool-123", http.StatusNoContent)

	if len(logger.inputs) != 1 {
		t.Fatalf("logged %d events; want 1", len(logger.inputs))
	}
	in := logger.inputs[0]
	if in.Action != "delete_tool" {
		t.Errorf("action = %q; want delete_tool", in.Action)
	}
	if in.EntityType == nil || *in.EntityType != "tool" {
		t.Errorf("entity type = %v; want tool", in.EntityType)
	}
	if in.EntityID == nil || *in.EntityID != "tool-123" {
		t.Errorf("entity id = %v; want tool-123", in.EntityID)
	}
}

func TestAuditMiddleware_ErrorOutcome(t *testing.T) {
	logger := &recordingLogger{}
	serveAudited(logger, "admin", http.MethodGet, "/api/tools", http.StatusInternalServerError)

	if len(logger.inputs) != 1 {
		t.Fatalf("logged %d events; want 1", len(logger.inputs))
	}
	if logger.inputs[0].Outcome != domainaudit.OutcomeError {
		t.Errorf("outcome = %q; want error", logger.inputs[0].Outcome)
	}
}

func TestAuditMiddleware_SkipsWithoutSubject(t *testing.T) {
	logger := &recordingLogger{}
	serveAudited(logger, "", http.MethodGet, "/api/config", http.StatusOK)

	if len(logger.inputs) != 0 {
		t.Errorf("logged %d events for an unauthenticated request; want 0", len(logger.inputs))
	}
}

func TestActionFromRequest(t *testing.T) {
	tests := []struct {
		method string
		path   string
		action string
	}{
		{http.MethodGet, "/api/config", "get_config"},
		{http.MethodPut, "/api/config", "update_config"},
		{http.MethodPost, "/api/tools", "create_tool"},
		{http.MethodGet, "/api/tools", "list_tool"},
		{http.MethodPost, "/api/rag/ingest", "create_knowledge_source"},
		{http.MethodGet, "/api/audit", "list_audit_event"},
		{http.MethodPost, "/api/demo-prompts", "create_demo_prompt"},
		{http.MethodDelete, "/api/demo-prompts/abc", "delete_demo_prompt"},
		{http.MethodGet, "/health", "get_request"},
	}
	for _, tc := range tests {
		action, _, _ := actionFromRequest(tc.method, tc.path)
		if action != tc.action {
			t.Errorf("actionFromRequest(%s %s) = %q; want %q", tc.method, tc.path, action, tc.action)
		}
	}
}
