package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const httpResultLimit = 64 * 1024

// HTTPExecutor posts the argument object as JSON to a fixed endpoint and
// returns the response body as the tool result.
type HTTPExecutor struct {
	endpoint   string
	headers    map[string]string
	httpClient *http.Client
}

// httpToolConfig is the config payload stored on tool records of type http.
type httpToolConfig struct {
	Headers     map[string]string `json:"headers"`
	InputSchema json.RawMessage   `json:"input_schema"`
	Description string            `json:"description"`
}

func NewHTTPExecutor(endpoint string, config json.RawMessage) *HTTPExecutor {
	var cfg httpToolConfig
	if len(config) > 0 {
		_ = json.Unmarshal(config, &cfg)
	}
	return &HTTPExecutor{
		endpoint:   endpoint,
		headers:    cfg.Headers,
		httpClient: http.DefaultClient,
	}
}

func (e *HTTPExecutor) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(params))
	if err != nil {
		return errorResult(fmt.Sprintf("invalid tool endpoint: %v", err)), nil
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range e.headers {
		req.Header.Set(k, v)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return errorResult(fmt.Sprintf("tool request failed: %v", err)), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, httpResultLimit))
	if err != nil {
		return errorResult(fmt.Sprintf("tool response unreadable: %v", err)), nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Result{
			Status:        StatusError,
			ContentString: fmt.Sprintf("tool returned status %d: %s", resp.StatusCode, string(body)),
		}, nil
	}

	result := &Result{Status: StatusSuccess, ContentString: string(body)}
	if json.Valid(body) {
		result.Raw = json.RawMessage(body)
	}
	return result, nil
}
