package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/storepilot/storepilot/pkg/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig(url string) Config {
	return Config{
		Provider:    "deepseek",
		BaseURL:     url,
		APIKey:      "sk-test",
		Model:       "deepseek-chat",
		MaxTokens:   800,
		Temperature: 0.5,
		TopP:        0.9,
		Timeout:     5 * time.Second,
	}
}

func newClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	opts = append(opts, WithHTTPClient(srv.Client()))
	return New(testConfig(srv.URL), opts...)
}

func replyWith(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(models.ChatCompletionResponse{
			Model: "deepseek-chat",
			Choices: []models.Choice{
				{Message: models.ChatMessage{Role: "assistant", Content: content}, FinishReason: "stop"},
			},
			Usage: &models.Usage{PromptTokens: 12, CompletionTokens: 8, TotalTokens: 20},
		})
	}
}

func TestCallSendsConfiguredRequest(t *testing.T) {
	var got models.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		replyWith(`{"summary":"ok"}`)(w, r)
	}))
	defer srv.Close()

	c := newClient(t, srv)
	res, err := c.Call(context.Background(), "analyze this", 1500)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.String("summary"))

	assert.Equal(t, "deepseek-chat", got.Model)
	assert.Equal(t, 1500, got.MaxTokens)
	assert.Equal(t, 0.5, got.Temperature)
	assert.Equal(t, 0.9, got.TopP)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "analyze this", got.Messages[0].Content)
}

func TestCompleteDefaultsAndSystemPrompt(t *testing.T) {
	var got models.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		replyWith("plain text")(w, r)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.SystemPrompt = "You are a delivery operations consultant."
	c := New(cfg, WithHTTPClient(srv.Client()))

	comp, err := c.Complete(context.Background(), "hi", 0)
	require.NoError(t, err)
	assert.Equal(t, "plain text", comp.Content)
	assert.Equal(t, 20, comp.Usage.TotalTokens)
	assert.Equal(t, 800, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
}

func TestRemoteStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newClient(t, srv).Call(context.Background(), "x", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemoteStatus)

	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusTooManyRequests, gwErr.StatusCode)
	assert.Contains(t, gwErr.Raw, "rate limited")
}

func TestUnparseableReply(t *testing.T) {
	srv := httptest.NewServer(replyWith("I cannot help with that."))
	defer srv.Close()

	_, err := newClient(t, srv).Call(context.Background(), "x", 0)
	assert.ErrorIs(t, err, ErrUnparseable)

	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, "I cannot help with that.", gwErr.Raw)
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(replyWith("{}"))
	url := srv.URL
	srv.Close()

	c := New(testConfig(url))
	_, err := c.Call(context.Background(), "x", 0)
	assert.ErrorIs(t, err, ErrTransport)
	assert.NotErrorIs(t, err, ErrRemoteStatus)
}

func TestTimeoutIsTransport(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := testConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	c := New(cfg)

	_, err := c.Call(context.Background(), "x", 0)
	assert.ErrorIs(t, err, ErrTransport)
	c.http.CloseIdleConnections()
}

func TestCustomExtractor(t *testing.T) {
	srv := httptest.NewServer(replyWith(`{"summary":"ok"}`))
	defer srv.Close()

	strict := func(text string) (models.AnalysisResult, error) {
		return models.AnalysisResult{"raw": text}, nil
	}
	res, err := newClient(t, srv, WithExtractor(strict)).Call(context.Background(), "x", 0)
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"ok"}`, res.String("raw"))
}

func TestParamsTrackRequestSettings(t *testing.T) {
	cfg := Config{Provider: "deepseek", Model: "m", MaxTokens: 800, Temperature: 0.3, TopP: 0.9, SystemPrompt: "be terse"}
	assert.Equal(t, map[string]string{
		"provider":           "deepseek",
		"temperature":        "0.3",
		"top_p":              "0.9",
		"system_prompt":      "be terse",
		"default_max_tokens": "800",
	}, New(cfg).Params())

	cfg.SystemPrompt = "be thorough"
	assert.Equal(t, "be thorough", New(cfg).Params()["system_prompt"])
}
