// Runtime configuration handlers for the admin console.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/demoplane/demoplane/internal/domain/settings"
	"github.com/demoplane/demoplane/internal/infra/eventbus"
	pkgauth "github.com/demoplane/demoplane/pkg/auth"
)

// SettingsStore is the configuration contract used by ConfigHandler.
// settings.Store satisfies this interface.
type SettingsStore interface {
	Get(ctx context.Context) (*settings.Settings, error)
	Update(ctx context.Context, in settings.UpdateInput) (*settings.Settings, error)
	SetAdminPasswordHash(ctx context.Context, hash string) error
}

// ConfigHandler reads and updates the runtime configuration record.
type ConfigHandler struct {
	store SettingsStore
	bus   eventbus.EventBus
}

// NewConfigHandler creates a new ConfigHandler. The bus may be nil in tests;
// updates then skip the config.updated notification.
func NewConfigHandler(store SettingsStore, bus eventbus.EventBus) *ConfigHandler {
	return &ConfigHandler{store: store, bus: bus}
}

// ConfigResponse is the configuration record with secrets redacted.
// API keys never leave the server; *_set booleans tell the console
// whether a credential is present.
type ConfigResponse struct {
	OpenAIAPIKeySet    bool      `json:"openai_api_key_set"`
	OpenAIModel        string    `json:"openai_model"`
	Temperature        int       `json:"temperature"`
	SystemPrompt       string    `json:"system_prompt"`
	LakeraAPIKeySet    bool      `json:"lakera_api_key_set"`
	LakeraProjectID    string    `json:"lakera_project_id"`
	LakeraEnabled      bool      `json:"lakera_enabled"`
	LakeraBlockingMode bool      `json:"lakera_blocking_mode"`
	BusinessName       string    `json:"business_name"`
	Tagline            string    `json:"tagline"`
	HeroText           string    `json:"hero_text"`
	HeroImageURL       string    `json:"hero_image_url"`
	LogoURL            string    `json:"logo_url"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// UpdateConfigRequest is the request body for PUT /api/config.
// All fields are optional; omitted fields keep their stored value.
type UpdateConfigRequest struct {
	OpenAIAPIKey       *string `json:"openai_api_key"`
	OpenAIModel        *string `json:"openai_model"`
	Temperature        *int    `json:"temperature"`
	SystemPrompt       *string `json:"system_prompt"`
	LakeraAPIKey       *string `json:"lakera_api_key"`
	LakeraProjectID    *string `json:"lakera_project_id"`
	LakeraEnabled      *bool   `json:"lakera_enabled"`
	LakeraBlockingMode *bool   `json:"lakera_blocking_mode"`
	BusinessName       *string `json:"business_name"`
	Tagline            *string `json:"tagline"`
	HeroText           *string `json:"hero_text"`
	HeroImageURL       *string `json:"hero_image_url"`
	LogoURL            *string `json:"logo_url"`
	AdminPassword      *string `json:"admin_password"`
}

// BrandingResponse is the public skin of the demo page. No secrets, no
// model or guardrail settings.
type BrandingResponse struct {
	BusinessName string `json:"business_name"`
	Tagline      string `json:"tagline"`
	HeroText     string `json:"hero_text"`
	HeroImageURL string `json:"hero_image_url"`
	LogoURL      string `json:"logo_url"`
}

// Branding handles GET /api/branding. Public endpoint: the chat page loads
// its skin before any authentication happens.
//
// Response codes:
//   - 200 OK: branding fields (empty strings when unconfigured)
//   - 500 Internal Server Error: unexpected failure
func (h *ConfigHandler) Branding(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.store.Get(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load configuration")
		return
	}
	writeJSON(w, http.StatusOK, BrandingResponse{
		BusinessName: cfg.BusinessName,
		Tagline:      cfg.Tagline,
		HeroText:     cfg.HeroText,
		HeroImageURL: cfg.HeroImageURL,
		LogoURL:      cfg.LogoURL,
	})
}

// GetConfig handles GET /api/config.
//
// Response codes:
//   - 200 OK: redacted configuration record
//   - 500 Internal Server Error: unexpected failure
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.store.Get(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load configuration")
		return
	}
	writeJSON(w, http.StatusOK, redact(cfg))
}

// UpdateConfig handles PUT /api/config.
//
// Response codes:
//   - 200 OK: updated redacted configuration record
//   - 400 Bad Request: invalid JSON or out-of-range temperature
//   - 500 Internal Server Error: unexpected failure
func (h *ConfigHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req UpdateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.AdminPassword != nil {
		if *req.AdminPassword == "" {
			writeError(w, http.StatusBadRequest, "admin password cannot be empty")
			return
		}
		hash, err := pkgauth.HashPassword(*req.AdminPassword)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to hash password")
			return
		}
		if err := h.store.SetAdminPasswordHash(r.Context(), hash); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to store password")
			return
		}
	}

	cfg, err := h.store.Update(r.Context(), settings.UpdateInput{
		OpenAIAPIKey:       req.OpenAIAPIKey,
		OpenAIModel:        req.OpenAIModel,
		Temperature:        req.Temperature,
		SystemPrompt:       req.SystemPrompt,
		LakeraAPIKey:       req.LakeraAPIKey,
		LakeraProjectID:    req.LakeraProjectID,
		LakeraEnabled:      req.LakeraEnabled,
		LakeraBlockingMode: req.LakeraBlockingMode,
		BusinessName:       req.BusinessName,
		Tagline:            req.Tagline,
		HeroText:           req.HeroText,
		HeroImageURL:       req.HeroImageURL,
		LogoURL:            req.LogoURL,
	})
	if err != nil {
		if errors.Is(err, settings.ErrInvalidTemperature) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update configuration")
		return
	}

	if h.bus != nil {
		subject, _ := getSubject(r.Context())
		h.bus.Publish(eventbus.TopicConfigUpdated, subject)
	}

	writeJSON(w, http.StatusOK, redact(cfg))
}

func redact(cfg *settings.Settings) ConfigResponse {
	return ConfigResponse{
		OpenAIAPIKeySet:    cfg.OpenAIAPIKey != "",
		OpenAIModel:        cfg.OpenAIModel,
		Temperature:        cfg.Temperature,
		SystemPrompt:       cfg.SystemPrompt,
		LakeraAPIKeySet:    cfg.LakeraAPIKey != "",
		LakeraProjectID:    cfg.LakeraProjectID,
		LakeraEnabled:      cfg.LakeraEnabled,
		LakeraBlockingMode: cfg.LakeraBlockingMode,
		BusinessName:       cfg.BusinessName,
		Tagline:            cfg.Tagline,
		HeroText:           cfg.HeroText,
		HeroImageURL:       cfg.HeroImageURL,
		LogoURL:            cfg.LogoURL,
		UpdatedAt:          cfg.UpdatedAt,
	}
}
