// Admin login handler. Public endpoint, no AuthMiddleware.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	pkgauth "github.com/demoplane/demoplane/pkg/auth"
)

// adminSubject is the JWT subject for the single admin identity.
const adminSubject = "admin"

// PasswordStore is the credential contract used by AuthHandler.
// settings.Store satisfies this interface.
type PasswordStore interface {
	AdminPasswordHash(ctx context.Context) (string, error)
}

// AuthHandler exchanges the admin password for a Bearer JWT.
type AuthHandler struct {
	passwords PasswordStore
}

// NewAuthHandler creates a new AuthHandler backed by the stored admin hash.
func NewAuthHandler(passwords PasswordStore) *AuthHandler {
	return &AuthHandler{passwords: passwords}
}

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse is the response body returned after a successful login.
type LoginResponse struct {
	Token string `json:"token"`
}

// Login handles POST /auth/login.
//
// Response codes:
//   - 200 OK: password matched, token issued
//   - 400 Bad Request: invalid JSON or missing password
//   - 401 Unauthorized: wrong password or no admin password configured
//   - 500 Internal Server Error: unexpected failure
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	hash, err := h.passwords.AdminPasswordHash(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load credentials")
		return
	}
	if hash == "" || !pkgauth.VerifyPassword(hash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := pkgauth.GenerateJWT(adminSubject)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Token: token})
}
