// Shared response helpers for the handlers package.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/demoplane/demoplane/internal/api/ctxkeys"
)

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// writeError writes a JSON error body in the shape {"error": "..."}.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// getSubject retrieves the authenticated admin identity from context.
// Only meaningful on routes behind the auth middleware.
func getSubject(ctx context.Context) (string, error) {
	subject, ok := ctx.Value(ctxkeys.Subject).(string)
	if !ok || subject == "" {
		return "", fmt.Errorf("subject not found in context")
	}
	return subject, nil
}
