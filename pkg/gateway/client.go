// Package gateway calls an OpenAI-compatible chat completion endpoint and
// extracts the JSON payload embedded in the reply.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/storepilot/storepilot/pkg/models"
)

// maxErrorBody bounds how much of a non-200 body is kept on the error.
const maxErrorBody = 2048

// Config fixes the request shape for one call site.
type Config struct {
	Provider     string
	BaseURL      string
	APIKey       string
	Model        string
	MaxTokens    int
	Temperature  float64
	TopP         float64
	SystemPrompt string
	Timeout      time.Duration
}

// Completion is a successful reply from the endpoint.
type Completion struct {
	Content string
	Model   string
	Usage   models.Usage
}

// Client issues analysis calls. It does not retry and does not cache.
type Client struct {
	cfg     Config
	http    *http.Client
	extract Extractor
	log     *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithExtractor replaces ExtractJSON, e.g. with strict schema validation.
func WithExtractor(x Extractor) Option {
	return func(c *Client) { c.extract = x }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a Client for cfg.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		extract: ExtractJSON,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.Named("gateway")
	return c
}

// Provider returns the configured provider name.
func (c *Client) Provider() string { return c.cfg.Provider }

// Model returns the configured model.
func (c *Client) Model() string { return c.cfg.Model }

// Params returns the request settings that shape the reply besides the model
// and the prompt.
func (c *Client) Params() map[string]string {
	return map[string]string{
		"provider":           c.cfg.Provider,
		"temperature":        strconv.FormatFloat(c.cfg.Temperature, 'g', -1, 64),
		"top_p":              strconv.FormatFloat(c.cfg.TopP, 'g', -1, 64),
		"system_prompt":      c.cfg.SystemPrompt,
		"default_max_tokens": strconv.Itoa(c.cfg.MaxTokens),
	}
}

// Call sends prompt and extracts the JSON payload from the reply.
func (c *Client) Call(ctx context.Context, prompt string, maxTokens int) (models.AnalysisResult, error) {
	comp, err := c.Complete(ctx, prompt, maxTokens)
	if err != nil {
		return nil, err
	}
	return c.Extract(comp.Content)
}

// Extract applies the configured extractor to response text.
func (c *Client) Extract(text string) (models.AnalysisResult, error) {
	return c.extract(text)
}

// Complete sends prompt and returns the raw reply text with usage.
// maxTokens <= 0 uses the configured default.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int) (*Completion, error) {
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}

	body, err := json.Marshal(c.buildRequest(prompt, maxTokens))
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	endpoint, err := url.JoinPath(c.cfg.BaseURL, "chat/completions")
	if err != nil {
		return nil, &Error{Kind: Transport, Err: fmt.Errorf("invalid provider URL: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: Transport, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Kind: Transport, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: Transport, Err: fmt.Errorf("read response: %w", err)}
	}

	c.log.Debug("analysis call finished",
		zap.String("provider", c.cfg.Provider),
		zap.String("model", c.cfg.Model),
		zap.Int("status", resp.StatusCode),
		zap.Int("prompt_chars", len([]rune(prompt))),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		raw := string(respBody)
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}
		return nil, &Error{Kind: RemoteStatus, StatusCode: resp.StatusCode, Raw: raw}
	}

	var parsed models.ChatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &Error{Kind: Unparseable, Raw: string(respBody), Err: fmt.Errorf("decode completion: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return nil, &Error{Kind: Unparseable, Raw: string(respBody), Err: fmt.Errorf("completion has no choices")}
	}

	comp := &Completion{
		Content: parsed.Choices[0].Message.Content,
		Model:   parsed.Model,
	}
	if parsed.Usage != nil {
		comp.Usage = *parsed.Usage
	}
	return comp, nil
}

func (c *Client) buildRequest(prompt string, maxTokens int) models.ChatCompletionRequest {
	var messages []models.ChatMessage
	if sp := strings.TrimSpace(c.cfg.SystemPrompt); sp != "" {
		messages = append(messages, models.ChatMessage{Role: "system", Content: sp})
	}
	messages = append(messages, models.ChatMessage{Role: "user", Content: prompt})
	return models.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: c.cfg.Temperature,
		TopP:        c.cfg.TopP,
	}
}
