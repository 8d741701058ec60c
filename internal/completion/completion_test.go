package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedutinova/skeo/internal/common"
	"github.com/fedutinova/skeo/internal/config"
)

func TestOllama_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"model":"llama3","response":"# Jean Dupont","done":true}`))
	}))
	defer srv.Close()

	p := NewOllama(OllamaConfig{BaseURL: srv.URL + "/"}, srv.Client(), nil)
	text, err := p.Complete(context.Background(), "PROMPT")
	require.NoError(t, err)

	assert.Equal(t, "# Jean Dupont", text)
	assert.Equal(t, "llama3", got["model"])
	assert.Equal(t, "PROMPT", got["prompt"])
	assert.Equal(t, false, got["stream"])
	assert.Equal(t, map[string]any{"temperature": 0.6, "top_p": 0.9, "num_ctx": float64(4096)}, got["options"])
}

func TestOllama_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"done":true}`))
	}))
	defer srv.Close()

	text, err := NewOllama(OllamaConfig{BaseURL: srv.URL}, srv.Client(), nil).Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, NoResponse, text)
}

func TestOllama_NonSuccessStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllama(OllamaConfig{BaseURL: srv.URL}, srv.Client(), nil).Complete(context.Background(), "p")
	require.Error(t, err)

	var berr *BackendError
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, "Ollama", berr.Backend)
	assert.Equal(t, http.StatusNotFound, berr.StatusCode)
	assert.Contains(t, berr.Body, "model not found")
	assert.True(t, strings.HasPrefix(berr.Error(), "Erreur Ollama (404): "), berr.Error())
	assert.True(t, common.IsBackend(err))
	assert.Equal(t, 1, calls, "no retry")
}

func TestOllama_TransportFailureIsNotBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewOllama(OllamaConfig{BaseURL: url}, &http.Client{Timeout: time.Second}, nil).Complete(context.Background(), "p")
	require.Error(t, err)
	assert.False(t, common.IsBackend(err))
}

func TestOpenRouter_Complete(t *testing.T) {
	var req map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "https://cv.example", r.Header.Get("HTTP-Referer"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"gen-1","model":"mistralai/mistral-7b-instruct",` +
			`"choices":[{"index":0,"message":{"role":"assistant","content":"# CV"}}],` +
			`"usage":{"total_tokens":42}}`))
	}))
	defer srv.Close()

	p := NewOpenRouter(OpenRouterConfig{
		APIKey:  "sk-test",
		BaseURL: srv.URL,
		Referer: "https://cv.example",
	}, srv.Client(), nil)

	text, err := p.Complete(context.Background(), "PROMPT")
	require.NoError(t, err)
	assert.Equal(t, "# CV", text)

	assert.Equal(t, DefaultOpenRouterModel, req["model"])
	assert.InDelta(t, 0.7, req["temperature"], 1e-6)
	msgs, ok := req["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, openRouterSystem, msgs[0].(map[string]any)["content"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
	assert.Equal(t, "PROMPT", msgs[1].(map[string]any)["content"])
}

func TestOpenRouter_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"gen-1","choices":[]}`))
	}))
	defer srv.Close()

	text, err := NewOpenRouter(OpenRouterConfig{APIKey: "k", BaseURL: srv.URL}, srv.Client(), nil).
		Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, NoResponse, text)
}

func TestOpenRouter_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"message":"Insufficient credits","code":402}}`))
	}))
	defer srv.Close()

	_, err := NewOpenRouter(OpenRouterConfig{APIKey: "k", BaseURL: srv.URL}, srv.Client(), nil).
		Complete(context.Background(), "p")

	var berr *BackendError
	require.True(t, errors.As(err, &berr), "got %v", err)
	assert.Equal(t, "OpenRouter", berr.Backend)
	assert.Equal(t, http.StatusPaymentRequired, berr.StatusCode)
	assert.Equal(t, "Insufficient credits", berr.Body)
	assert.Equal(t, "Erreur API OpenRouter (402): Insufficient credits", err.Error())
}

func TestOpenRouter_PlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	_, err := NewOpenRouter(OpenRouterConfig{APIKey: "k", BaseURL: srv.URL}, srv.Client(), nil).
		Complete(context.Background(), "p")

	var berr *BackendError
	require.True(t, errors.As(err, &berr), "got %v", err)
	assert.Equal(t, http.StatusBadGateway, berr.StatusCode)
	assert.Equal(t, "upstream down", berr.Body)
}

func TestNew(t *testing.T) {
	cfg := config.Config{
		OpenRouterAPIKey:  "k",
		OpenRouterBaseURL: DefaultOpenRouterURL,
		OpenRouterModel:   DefaultOpenRouterModel,
		OllamaURL:         "http://localhost:11434",
		OllamaModel:       DefaultOllamaModel,
		BackendTimeout:    time.Second,
	}

	p, err := New(config.BackendOpenRouter, cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "OpenRouter", p.Name())

	p, err = New(config.BackendOllama, cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Ollama", p.Name())

	_, err = New("gemini", cfg, nil, nil)
	assert.ErrorIs(t, err, common.ErrConfig)
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(config.BackendOpenRouter, config.Config{}, nil, nil)
	assert.ErrorIs(t, err, common.ErrConfig)

	_, err = New(config.BackendOllama, config.Config{}, nil, nil)
	assert.ErrorIs(t, err, common.ErrConfig)
}

type stubProvider struct{ text string }

func (s stubProvider) Name() string { return "Stub" }
func (s stubProvider) Complete(ctx context.Context, prompt string) (string, error) {
	return s.text, nil
}

func TestInstrument_PreservesResult(t *testing.T) {
	p := Instrument(stubProvider{text: NoResponse})
	assert.Equal(t, "Stub", p.Name())

	text, err := p.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, NoResponse, text)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", outcome("# CV", nil))
	assert.Equal(t, "empty", outcome(NoResponse, nil))
	assert.Equal(t, "error", outcome("", errors.New("dial tcp: connection refused")))
	assert.Equal(t, "backend_error", outcome("", fmt.Errorf("complete: %w", &BackendError{Backend: "OpenRouter", StatusCode: 402})))
}
