package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

const (
	DefaultOllamaModel = "llama3"

	ollamaName = "Ollama"
)

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumCtx      int     `json:"num_ctx"`
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

// Ollama drives a self-hosted server through its non-streaming generate API.
type Ollama struct {
	url    string
	model  string
	client *http.Client
	logger *slog.Logger
}

func NewOllama(cfg OllamaConfig, httpClient *http.Client, logger *slog.Logger) *Ollama {
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ollama{
		url:    strings.TrimRight(cfg.BaseURL, "/") + "/api/generate",
		model:  cfg.Model,
		client: httpClient,
		logger: logger,
	}
}

func (o *Ollama) Name() string { return ollamaName }

func (o *Ollama) Complete(ctx context.Context, prompt string) (string, error) {
	raw, status, err := sendJSON(ctx, o.client, o.url, ollamaRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: 0.6,
			TopP:        0.9,
			NumCtx:      4096,
		},
	}, o.logger)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	if status/100 != 2 {
		return "", &BackendError{Backend: ollamaName, StatusCode: status, Body: string(raw), Label: "Erreur Ollama"}
	}

	var out ollamaResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	if out.Response == "" {
		o.logger.Warn("Ollama returned no content", "model", o.model)
		return NoResponse, nil
	}
	return out.Response, nil
}
