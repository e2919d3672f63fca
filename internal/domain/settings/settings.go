// Package settings manages the single-row runtime configuration record.
// Every chat turn reads a fresh snapshot so admin edits apply to the next
// turn without a restart.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidTemperature = errors.New("temperature must be between 0 and 10")

// Settings is the typed view of the app_config row.
// Temperature is stored as an integer 0..10 and scaled to 0.0..1.0
// when handed to the LLM provider.
type Settings struct {
	OpenAIAPIKey       string
	OpenAIModel        string
	Temperature        int
	SystemPrompt       string
	LakeraAPIKey       string
	LakeraProjectID    string
	LakeraEnabled      bool
	LakeraBlockingMode bool
	BusinessName       string
	Tagline            string
	HeroText           string
	HeroImageURL       string
	LogoURL            string
	UpdatedAt          time.Time
}

// TemperatureScaled returns the temperature in the 0.0..1.0 range the
// chat completion API expects.
func (s Settings) TemperatureScaled() float32 {
	return float32(s.Temperature) / 10.0
}

// UpdateInput carries a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	OpenAIAPIKey       *string
	OpenAIModel        *string
	Temperature        *int
	SystemPrompt       *string
	LakeraAPIKey       *string
	LakeraProjectID    *string
	LakeraEnabled      *bool
	LakeraBlockingMode *bool
	BusinessName       *string
	Tagline            *string
	HeroText           *string
	HeroImageURL       *string
	LogoURL            *string
}

// Store reads and writes the app_config row.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get returns the current settings, inserting the default row on first use.
func (s *Store) Get(ctx context.Context) (*Settings, error) {
	cfg, err := s.scanRow(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		if _, insErr := s.db.ExecContext(ctx, `INSERT INTO app_config (id) VALUES (1)`); insErr != nil {
			return nil, fmt.Errorf("settings: init default row: %w", insErr)
		}
		return s.scanRow(ctx)
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Update applies the non-nil fields of in and returns the new snapshot.
func (s *Store) Update(ctx context.Context, in UpdateInput) (*Settings, error) {
	if in.Temperature != nil && (*in.Temperature < 0 || *in.Temperature > 10) {
		return nil, ErrInvalidTemperature
	}

	// Ensure the row exists before building the UPDATE.
	if _, err := s.Get(ctx); err != nil {
		return nil, err
	}

	sets := make([]string, 0, 12)
	args := make([]any, 0, 12)
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if in.OpenAIAPIKey != nil {
		add("openai_api_key", strings.TrimSpace(*in.OpenAIAPIKey))
	}
	if in.OpenAIModel != nil {
		add("openai_model", strings.TrimSpace(*in.OpenAIModel))
	}
	if in.Temperature != nil {
		add("temperature", *in.Temperature)
	}
	if in.SystemPrompt != nil {
		add("system_prompt", *in.SystemPrompt)
	}
	if in.LakeraAPIKey != nil {
		add("lakera_api_key", strings.TrimSpace(*in.LakeraAPIKey))
	}
	if in.LakeraProjectID != nil {
		add("lakera_project_id", strings.TrimSpace(*in.LakeraProjectID))
	}
	if in.LakeraEnabled != nil {
		add("lakera_enabled", boolToInt(*in.LakeraEnabled))
	}
	if in.LakeraBlockingMode != nil {
		add("lakera_blocking_mode", boolToInt(*in.LakeraBlockingMode))
	}
	if in.BusinessName != nil {
		add("business_name", *in.BusinessName)
	}
	if in.Tagline != nil {
		add("tagline", *in.Tagline)
	}
	if in.HeroText != nil {
		add("hero_text", *in.HeroText)
	}
	if in.HeroImageURL != nil {
		add("hero_image_url", *in.HeroImageURL)
	}
	if in.LogoURL != nil {
		add("logo_url", *in.LogoURL)
	}

	if len(sets) > 0 {
		add("updated_at", time.Now().UTC())
		query := "UPDATE app_config SET " + strings.Join(sets, ", ") + " WHERE id = 1"
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("settings: update: %w", err)
		}
	}

	return s.Get(ctx)
}

// Credentials returns the current OpenAI credential and model. Implements
// the llm credential source so providers pick up edits immediately.
func (s *Store) Credentials(ctx context.Context) (string, string, error) {
	cfg, err := s.Get(ctx)
	if err != nil {
		return "", "", err
	}
	return cfg.OpenAIAPIKey, cfg.OpenAIModel, nil
}

// SetAdminPasswordHash stores the bcrypt hash for the admin login.
func (s *Store) SetAdminPasswordHash(ctx context.Context, hash string) error {
	if _, err := s.Get(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE app_config SET admin_password_hash = ?, updated_at = ? WHERE id = 1`,
		hash, time.Now().UTC())
	return err
}

// AdminPasswordHash returns the stored hash, empty when no password is set.
func (s *Store) AdminPasswordHash(ctx context.Context) (string, error) {
	if _, err := s.Get(ctx); err != nil {
		return "", err
	}
	var hash sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT admin_password_hash FROM app_config WHERE id = 1`).Scan(&hash)
	if err != nil {
		return "", err
	}
	return hash.String, nil
}

func (s *Store) scanRow(ctx context.Context) (*Settings, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT openai_api_key, openai_model, temperature, system_prompt,
		       lakera_api_key, lakera_project_id, lakera_enabled, lakera_blocking_mode,
		       business_name, tagline, hero_text, hero_image_url, logo_url, updated_at
		FROM app_config
		WHERE id = 1
	`)

	var (
		cfg          Settings
		apiKey       sql.NullString
		systemPrompt sql.NullString
		lakeraKey    sql.NullString
		lakeraProj   sql.NullString
		businessName sql.NullString
		tagline      sql.NullString
		heroText     sql.NullString
		heroImageURL sql.NullString
		logoURL      sql.NullString
		enabledRaw   int
		blockingRaw  int
	)

	if err := row.Scan(
		&apiKey,
		&cfg.OpenAIModel,
		&cfg.Temperature,
		&systemPrompt,
		&lakeraKey,
		&lakeraProj,
		&enabledRaw,
		&blockingRaw,
		&businessName,
		&tagline,
		&heroText,
		&heroImageURL,
		&logoURL,
		&cfg.UpdatedAt,
	); err != nil {
		return nil, err
	}

	cfg.OpenAIAPIKey = apiKey.String
	cfg.SystemPrompt = systemPrompt.String
	cfg.LakeraAPIKey = lakeraKey.String
	cfg.LakeraProjectID = lakeraProj.String
	cfg.LakeraEnabled = enabledRaw == 1
	cfg.LakeraBlockingMode = blockingRaw == 1
	cfg.BusinessName = businessName.String
	cfg.Tagline = tagline.String
	cfg.HeroText = heroText.String
	cfg.HeroImageURL = heroImageURL.String
	cfg.LogoURL = logoURL.String
	return &cfg, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
