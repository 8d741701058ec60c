package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	DefaultOpenRouterURL   = "https://openrouter.ai/api/v1"
	DefaultOpenRouterModel = "mistralai/mistral-7b-instruct"

	openRouterName        = "OpenRouter"
	openRouterTemperature = 0.7
	openRouterSystem      = "Tu es un expert RH et rédacteur de CV professionnels."
)

type OpenRouterConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Referer string
}

// OpenRouter talks to the hosted chat-completions API through go-openai.
type OpenRouter struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// refererTransport sets the identifying headers OpenRouter expects on every
// outbound request.
type refererTransport struct {
	referer string
	next    http.RoundTripper
}

func (t *refererTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.referer != "" {
		req = req.Clone(req.Context())
		req.Header.Set("HTTP-Referer", t.referer)
	}
	return t.next.RoundTrip(req)
}

func NewOpenRouter(cfg OpenRouterConfig, httpClient *http.Client, logger *slog.Logger) *OpenRouter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenRouterURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenRouterModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	next := httpClient.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	hc := *httpClient
	hc.Transport = &refererTransport{referer: cfg.Referer, next: next}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = cfg.BaseURL
	oc.HTTPClient = &hc

	return &OpenRouter{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.Model,
		logger: logger,
	}
}

func (o *OpenRouter) Name() string { return openRouterName }

func (o *OpenRouter) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	o.logger.Info("sending request to OpenRouter",
		"model", o.model,
		"prompt_length", len(prompt))

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: openRouterSystem},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: openRouterTemperature,
	})
	if err != nil {
		if berr := o.backendError(err); berr != nil {
			o.logger.Error("OpenRouter API error",
				"status", berr.StatusCode,
				"error", err,
				"elapsed_ms", time.Since(start).Milliseconds())
			return "", berr
		}
		o.logger.Error("OpenRouter request failed", "error", err)
		return "", fmt.Errorf("openrouter request: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		o.logger.Warn("OpenRouter returned no content", "model", resp.Model)
		return NoResponse, nil
	}

	text := resp.Choices[0].Message.Content
	o.logger.Info("received response from OpenRouter",
		"model", resp.Model,
		"tokens_used", resp.Usage.TotalTokens,
		"response_length", len(text),
		"elapsed_ms", time.Since(start).Milliseconds())

	return text, nil
}

// backendError maps go-openai status errors onto BackendError; nil for
// transport failures.
func (o *OpenRouter) backendError(err error) *BackendError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &BackendError{Backend: openRouterName, StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		body := string(reqErr.Body)
		if body == "" && reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &BackendError{Backend: openRouterName, StatusCode: reqErr.HTTPStatusCode, Body: body}
	}
	return nil
}
