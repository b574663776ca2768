// internal/common/genai/client.go
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"callcenter-workers/internal/common/config"
	stderrors "callcenter-workers/internal/common/errors"
	"callcenter-workers/internal/common/logger"
	"callcenter-workers/internal/common/metrics"
)

// Completer is the single LLM surface every reasoning stage depends on.
// Stages never talk HTTP themselves.
type Completer interface {
	Complete(ctx context.Context, stage, prompt string, schema json.RawMessage) (json.RawMessage, error)
}

// Client calls the completion API with retry and contract validation. The
// returned payload is guaranteed to parse as JSON and, when a schema is
// supplied, to validate against it.
type Client struct {
	baseURL     string
	apiKey      string
	maxRetries  int
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	logger      logger.Logger
}

func NewClient(cfg config.APIsConfig, log logger.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.GenAI.BaseURL, "/"),
		apiKey:      cfg.GenAI.APIKey,
		maxRetries:  cfg.GenAI.MaxRetries,
		temperature: cfg.GenAI.Temperature,
		maxTokens:   cfg.GenAI.MaxTokens,
		// No client-level timeout - the per-call context carries the deadline
		httpClient: &http.Client{},
		logger:     log.With(map[string]interface{}{"component": "genai"}),
	}
}

type completionRequest struct {
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	// ResponseFormat asks the API for a JSON object response.
	ResponseFormat string `json:"response_format"`
}

type completionResponse struct {
	Text string `json:"text"`
}

// Complete sends one prompt and returns the model's JSON payload. Transport
// errors and contract violations (non-2xx, non-JSON text, schema mismatch)
// are retried with exponential backoff up to the configured attempt cap; a
// context deadline surfaces as LLM_TIMEOUT.
func (c *Client) Complete(ctx context.Context, stage, prompt string, schema json.RawMessage) (json.RawMessage, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			metrics.ContractRetries.WithLabelValues(stage).Inc()
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, stderrors.NewLLMTimeoutError(stage)
			}
		}

		payload, err := c.callOnce(ctx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return nil, stderrors.NewLLMTimeoutError(stage)
			}
			lastErr = err
			c.logger.Warn("completion attempt failed", map[string]interface{}{
				"stage":   stage,
				"attempt": attempt,
				"error":   err.Error(),
			})
			continue
		}

		if err := validateAgainstSchema(payload, schema); err != nil {
			lastErr = err
			c.logger.Warn("completion violated output contract", map[string]interface{}{
				"stage":   stage,
				"attempt": attempt,
				"error":   err.Error(),
			})
			continue
		}

		return payload, nil
	}

	if ctx.Err() == context.DeadlineExceeded {
		return nil, stderrors.NewLLMTimeoutError(stage)
	}
	return nil, stderrors.NewContractViolationError(stage, lastErr.Error())
}

// callOnce performs a single completion request and extracts the JSON body
// of the model's reply.
func (c *Client) callOnce(ctx context.Context, prompt string) (json.RawMessage, error) {
	body, _ := json.Marshal(completionRequest{
		Prompt:         prompt,
		Temperature:    c.temperature,
		MaxTokens:      c.maxTokens,
		ResponseFormat: "json_object",
	})

	// Build a fresh request each attempt so the body is readable again.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ai/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var apiResp completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response envelope: %w", err)
	}

	raw := extractJSON(apiResp.Text)
	if raw == nil {
		return nil, fmt.Errorf("model reply is not a JSON object")
	}
	return raw, nil
}

// extractJSON pulls the outermost JSON object out of a model reply,
// tolerating prose or markdown fences around it.
func extractJSON(text string) json.RawMessage {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil
	}
	candidate := text[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return nil
	}
	return json.RawMessage(candidate)
}

func validateAgainstSchema(payload, schema json.RawMessage) error {
	if len(schema) == 0 {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewBytesLoader(payload),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			issues = append(issues, e.String())
		}
		return fmt.Errorf("schema violations: %s", strings.Join(issues, "; "))
	}
	return nil
}
