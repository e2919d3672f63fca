// HTTP audit middleware for the admin routes.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/demoplane/demoplane/internal/api/ctxkeys"
	domainaudit "github.com/demoplane/demoplane/internal/domain/audit"
)

// AuditLogger is the minimal contract used by AuditMiddleware.
// domainaudit.Service satisfies this interface.
type AuditLogger interface {
	Log(ctx context.Context, in domainaudit.LogInput) (*domainaudit.Event, error)
}

// AuditMiddleware logs admin HTTP requests into audit_event.
// Expected order in router: AuthMiddleware -> AuditMiddleware -> handlers.
func AuditMiddleware(logger AuditLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if logger == nil {
				next.ServeHTTP(w, r)
				return
			}

			subject, ok := r.Context().Value(ctxkeys.Subject).(string)
			if !ok || subject == "" {
				next.ServeHTTP(w, r)
				return
			}

			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(recorder, r)

			action, entityType, entityID := actionFromRequest(r.Method, r.URL.Path)
			_, _ = logger.Log(r.Context(), domainaudit.LogInput{
				Actor:      subject,
				ActorType:  domainaudit.ActorTypeAdmin,
				Action:     action,
				EntityType: entityType,
				EntityID:   entityID,
				Details: map[string]any{
					"method":      r.Method,
					"path":        r.URL.Path,
					"status_code": recorder.statusCode,
					"duration_ms": time.Since(start).Milliseconds(),
				},
				Outcome: outcomeFromStatus(recorder.statusCode),
			})
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func outcomeFromStatus(statusCode int) domainaudit.Outcome {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return domainaudit.OutcomeSuccess
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return domainaudit.OutcomeBlocked
	default:
		return domainaudit.OutcomeError
	}
}

// actionFromRequest derives an audit action plus optional entity type and ID
// from the request method and path, e.g. PUT /api/config -> update_config.
func actionFromRequest(method, path string) (string, *string, *string) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 2 || segments[0] != "api" {
		action := strings.ToLower(method) + "_request"
		return action, nil, nil
	}

	entityType := singularEntity(segments[1])
	if entityType == "" {
		action := strings.ToLower(method) + "_request"
		return action, nil, nil
	}

	if len(segments) == 2 {
		action := actionForCollection(method, entityType)
		return action, strPtr(entityType), nil
	}

	entityID := segments[2]
	action := actionForEntity(method, entityType)
	return action, strPtr(entityType), strPtr(entityID)
}

func singularEntity(entity string) string {
	entityMap := map[string]string{
		"config":       "config",
		"tools":        "tool",
		"rag":          "knowledge_source",
		"audit":        "audit_event",
		"demo-prompts": "demo_prompt",
	}
	return entityMap[entity]
}

func actionForCollection(method, entity string) string {
	switch method {
	case http.MethodPost:
		return "create_" + entity
	case http.MethodGet:
		return "list_" + entity
	case http.MethodPut, http.MethodPatch:
		return "update_" + entity
	default:
		return strings.ToLower(method) + "_" + entity
	}
}

func actionForEntity(method, entity string) string {
	switch method {
	case http.MethodGet:
		return "get_" + entity
	case http.MethodPut, http.MethodPatch:
		return "update_" + entity
	case http.MethodDelete:
		return "delete_" + entity
	case http.MethodPost:
		return "create_" + entity
	default:
		return strings.ToLower(method) + "_" + entity
	}
}

func strPtr(s string) *string {
	return &s
}
