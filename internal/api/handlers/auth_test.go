package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/demoplane/demoplane/internal/domain/settings"
	pkgauth "github.com/demoplane/demoplane/pkg/auth"
)

func newAuthFixture(t *testing.T, password string) *AuthHandler {
	t.Helper()
	store := settings.NewStore(setupTestDB(t))
	if password != "" {
		hash, err := pkgauth.HashPassword(password)
		if err != nil {
			t.Fatalf("HashPassword error = %v", err)
		}
		if err := store.SetAdminPasswordHash(context.Background(), hash); err != nil {
			t.Fatalf("SetAdminPasswordHash error = %v", err)
		}
	}
	return NewAuthHandler(store)
}

func TestAuthHandler_Login_Success(t *testing.T) {
	handler := newAuthFixture(t, "hunter2hunter2")

	rec := httptest.NewRecorder()
	handler.Login(rec, jsonRequest(t, http.MethodPost, "/auth/login", LoginRequest{Password: "hunter2hunter2"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200; body %s", rec.Code, rec.Body.String())
	}

	var resp LoginResponse
	decodeBody(t, rec, &resp)
	if resp.Token == "" {
		t.Fatal("expected a token in the response")
	}

	claims, err := pkgauth.ParseJWT(resp.Token)
	if err != nil {
		t.Fatalf("ParseJWT error = %v", err)
	}
	if claims.Subject != adminSubject {
		t.Errorf("token subject = %q; want %q", claims.Subject, adminSubject)
	}
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	handler := newAuthFixture(t, "correct-password")

	rec := httptest.NewRecorder()
	handler.Login(rec, jsonRequest(t, http.MethodPost, "/auth/login", LoginRequest{Password: "wrong"}))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d; want 401", rec.Code)
	}
}

func TestAuthHandler_Login_NoPasswordConfigured(t *testing.T) {
	handler := newAuthFixture(t, "")

	rec := httptest.NewRecorder()
	handler.Login(rec, jsonRequest(t, http.MethodPost, "/auth/login", LoginRequest{Password: "anything"}))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d; want 401", rec.Code)
	}
}

func TestAuthHandler_Login_MissingPassword(t *testing.T) {
	handler := newAuthFixture(t, "correct-password")

	rec := httptest.NewRecorder()
	handler.Login(rec, jsonRequest(t, http.MethodPost, "/auth/login", LoginRequest{}))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", rec.Code)
	}
}

func TestAuthHandler_Login_InvalidJSON(t *testing.T) {
	handler := newAuthFixture(t, "correct-password")

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", rec.Code)
	}
}
