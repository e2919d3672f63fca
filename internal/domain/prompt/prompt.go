// Package prompt manages the demo prompt library: canned conversation
// starters the admin curates for live demos. Prompts are ranked by usage
// so the most effective ones surface first in the picker.
package prompt

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/demoplane/demoplane/pkg/uuid"
)

var ErrPromptNotFound = errors.New("demo prompt not found")

const (
	// DefaultCategory groups prompts that declare no category.
	DefaultCategory = "general"

	defaultListLimit   = 50
	defaultSearchLimit = 10
	minQueryLength     = 2
	maxSuggestions     = 5
	snippetContext     = 20
)

// Prompt is one stored demo prompt. IsMalicious marks prompts staged to
// trip the guardrail during security demos.
type Prompt struct {
	ID          string
	Title       string
	Content     string
	Category    string
	Tags        []string
	IsMalicious bool
	UsageCount  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateInput describes a prompt to add to the library.
type CreateInput struct {
	Title       string
	Content     string
	Category    string
	Tags        []string
	IsMalicious bool
}

// UpdateInput carries a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	Title       *string
	Content     *string
	Category    *string
	Tags        []string
	IsMalicious *bool
}

// Suggestion is an autocomplete candidate produced by Search: the matched
// snippet plus enough context for the picker to show the full prompt.
type Suggestion struct {
	Text        string `json:"text"`
	Title       string `json:"title"`
	FullContent string `json:"full_content"`
	Category    string `json:"category"`
	IsMalicious bool   `json:"is_malicious"`
}

// Library persists demo prompts.
type Library struct {
	db *sql.DB
}

func NewLibrary(db *sql.DB) *Library {
	return &Library{db: db}
}

// Create adds a prompt to the library.
func (l *Library) Create(ctx context.Context, in CreateInput) (*Prompt, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("prompt: title is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("prompt: content is required")
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = DefaultCategory
	}
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("prompt: encode tags: %w", err)
	}

	p := &Prompt{
		ID:          uuid.NewV7().String(),
		Title:       strings.TrimSpace(in.Title),
		Content:     in.Content,
		Category:    category,
		Tags:        tags,
		IsMalicious: in.IsMalicious,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO demo_prompt (id, title, content, category, tags, is_malicious, usage_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
	`, p.ID, p.Title, p.Content, p.Category, string(tagsJSON), boolToInt(p.IsMalicious), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("prompt: insert: %w", err)
	}
	return p, nil
}

// Get returns one prompt by ID.
func (l *Library) Get(ctx context.Context, id string) (*Prompt, error) {
	row := l.db.QueryRowContext(ctx, selectPrompt+` WHERE id = ?`, id)
	p, err := scanPrompt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPromptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("prompt: get: %w", err)
	}
	return p, nil
}

// List returns prompts ordered by popularity then recency, optionally
// filtered by category.
func (l *Library) List(ctx context.Context, category string, limit int) ([]*Prompt, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := selectPrompt
	args := []any{}
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY usage_count DESC, created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("prompt: list: %w", err)
	}
	defer rows.Close()
	return collectPrompts(rows)
}

// Search matches prompts by title, content, or tags and builds autocomplete
// suggestions from the matched text. Queries shorter than two characters
// return nothing.
func (l *Library) Search(ctx context.Context, q, category string, limit int) ([]*Prompt, []Suggestion, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	if len(q) < minQueryLength {
		return []*Prompt{}, []Suggestion{}, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	pattern := "%" + q + "%"
	query := selectPrompt + ` WHERE (lower(title) LIKE ? OR lower(content) LIKE ? OR lower(tags) LIKE ?)`
	args := []any{pattern, pattern, pattern}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY usage_count DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("prompt: search: %w", err)
	}
	defer rows.Close()

	prompts, err := collectPrompts(rows)
	if err != nil {
		return nil, nil, err
	}

	suggestions := make([]Suggestion, 0, maxSuggestions)
	for _, p := range prompts {
		if len(suggestions) == maxSuggestions {
			break
		}
		text, ok := snippet(p.Title, q)
		if !ok {
			text, ok = snippet(p.Content, q)
		}
		if !ok {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Text:        text,
			Title:       p.Title,
			FullContent: p.Content,
			Category:    p.Category,
			IsMalicious: p.IsMalicious,
		})
	}
	return prompts, suggestions, nil
}

// Update applies a partial update to a prompt.
func (l *Library) Update(ctx context.Context, id string, in UpdateInput) (*Prompt, error) {
	if _, err := l.Get(ctx, id); err != nil {
		return nil, err
	}

	sets := make([]string, 0, 6)
	args := make([]any, 0, 6)
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if in.Title != nil {
		add("title", strings.TrimSpace(*in.Title))
	}
	if in.Content != nil {
		add("content", *in.Content)
	}
	if in.Category != nil {
		category := strings.TrimSpace(*in.Category)
		if category == "" {
			category = DefaultCategory
		}
		add("category", category)
	}
	if in.Tags != nil {
		tagsJSON, err := json.Marshal(in.Tags)
		if err != nil {
			return nil, fmt.Errorf("prompt: encode tags: %w", err)
		}
		add("tags", string(tagsJSON))
	}
	if in.IsMalicious != nil {
		add("is_malicious", boolToInt(*in.IsMalicious))
	}

	if len(sets) > 0 {
		add("updated_at", time.Now().UTC())
		query := "UPDATE demo_prompt SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		args = append(args, id)
		if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("prompt: update: %w", err)
		}
	}

	return l.Get(ctx, id)
}

// Delete removes a prompt from the library.
func (l *Library) Delete(ctx context.Context, id string) error {
	res, err := l.db.ExecContext(ctx, `DELETE FROM demo_prompt WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("prompt: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("prompt: delete rows affected: %w", err)
	}
	if n == 0 {
		return ErrPromptNotFound
	}
	return nil
}

// Use increments a prompt's usage count and returns the new value.
func (l *Library) Use(ctx context.Context, id string) (int, error) {
	res, err := l.db.ExecContext(ctx, `
		UPDATE demo_prompt SET usage_count = usage_count + 1, updated_at = ? WHERE id = ?
	`, time.Now().UTC(), id)
	if err != nil {
		return 0, fmt.Errorf("prompt: record use: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prompt: use rows affected: %w", err)
	}
	if n == 0 {
		return 0, ErrPromptNotFound
	}

	var count int
	if err := l.db.QueryRowContext(ctx, `SELECT usage_count FROM demo_prompt WHERE id = ?`, id).Scan(&count); err != nil {
		return 0, fmt.Errorf("prompt: read usage count: %w", err)
	}
	return count, nil
}

// snippet returns the matched query plus trailing context from s, mirroring
// what the picker shows while the presenter types.
func snippet(s, q string) (string, bool) {
	lower := strings.ToLower(s)
	idx := strings.Index(lower, q)
	if idx < 0 {
		return "", false
	}
	end := idx + len(q) + snippetContext
	if end > len(s) {
		end = len(s)
	}
	return s[idx:end], true
}

const selectPrompt = `
	SELECT id, title, content, category, tags, is_malicious, usage_count, created_at, updated_at
	FROM demo_prompt`

type promptScanner interface {
	Scan(dest ...any) error
}

func scanPrompt(scan promptScanner) (*Prompt, error) {
	var p Prompt
	var tagsJSON string
	var malicious int
	if err := scan.Scan(&p.ID, &p.Title, &p.Content, &p.Category, &tagsJSON,
		&malicious, &p.UsageCount, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.IsMalicious = malicious != 0
	if err := json.Unmarshal([]byte(tagsJSON), &p.Tags); err != nil {
		p.Tags = []string{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return &p, nil
}

func collectPrompts(rows *sql.Rows) ([]*Prompt, error) {
	out := make([]*Prompt, 0)
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("prompt: scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
