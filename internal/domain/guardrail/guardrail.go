// Package guardrail screens conversation content through the Lakera Guard
// API. The agent runs a pre-check on the visitor's message before calling
// the model and a post-check on the exchange afterwards. System prompts are
// never sent to the screening service.
package guardrail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://api.lakera.ai"
	guardPath      = "/v2/guard"
	requestTimeout = 15 * time.Second
)

// BlockedNotice replaces content the guardrail rejected while blocking
// mode is on. The wording is part of the product surface, keep it stable.
const BlockedNotice = "This content has been moderated by Lakera and found to be in breach of our security policies. Please contact support if you believe this is an error."

// Stage identifies which side of the model call a verdict belongs to.
type Stage string

const (
	StagePre  Stage = "pre"
	StagePost Stage = "post"
)

// Message is a conversation turn submitted for screening.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Detection is one detector result from the breakdown list.
type Detection struct {
	DetectorType string `json:"detector_type"`
	Detected     bool   `json:"detected"`
	MessageIndex int    `json:"message_index"`
}

// Verdict is the screening outcome for one check.
type Verdict struct {
	Stage     Stage           `json:"stage"`
	Flagged   bool            `json:"flagged"`
	Breakdown []Detection     `json:"breakdown"`
	Raw       json.RawMessage `json:"raw,omitempty"`
	CheckedAt time.Time       `json:"checked_at"`
}

// DetectedTypes returns the detector types that fired.
func (v *Verdict) DetectedTypes() []string {
	var out []string
	for _, d := range v.Breakdown {
		if d.Detected {
			out = append(out, d.DetectorType)
		}
	}
	return out
}

// Client calls the Lakera Guard screening endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	projectID  string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the production endpoint, used in tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient builds a screening client. An empty apiKey yields a client
// whose Screen always reports "not configured" via Enabled.
func NewClient(apiKey, projectID string, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		projectID:  projectID,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether the client holds a credential.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type guardRequest struct {
	Messages  []Message      `json:"messages"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	ProjectID string         `json:"project_id,omitempty"`
	Breakdown bool           `json:"breakdown"`
	Payload   bool           `json:"payload"`
	DevInfo   bool           `json:"dev_info"`
}

type guardResponse struct {
	Flagged   bool        `json:"flagged"`
	Breakdown []Detection `json:"breakdown"`
}

// Screen submits messages for screening and returns the verdict.
// Callers must not include system-role turns; Screen drops any it finds.
func (c *Client) Screen(ctx context.Context, stage Stage, messages []Message, metadata map[string]any) (*Verdict, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("guardrail: no api key configured")
	}

	screened := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			continue
		}
		screened = append(screened, m)
	}
	if len(screened) == 0 {
		return nil, fmt.Errorf("guardrail: nothing to screen")
	}

	reqBody := guardRequest{
		Messages:  screened,
		Metadata:  metadata,
		ProjectID: c.projectID,
		Breakdown: true,
		Payload:   true,
		DevInfo:   true,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("guardrail: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+guardPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("guardrail: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("guardrail: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("guardrail: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("guardrail: unexpected status %d", resp.StatusCode)
	}

	var parsed guardResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("guardrail: decode response: %w", err)
	}

	return &Verdict{
		Stage:     stage,
		Flagged:   parsed.Flagged,
		Breakdown: parsed.Breakdown,
		Raw:       raw,
		CheckedAt: time.Now().UTC(),
	}, nil
}
