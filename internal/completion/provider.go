// Package completion sends an assembled prompt to a text-completion backend
// and returns the generated text.
package completion

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fedutinova/skeo/internal/common"
	"github.com/fedutinova/skeo/internal/config"
)

// NoResponse replaces an empty completion.
const NoResponse = "Aucune réponse générée."

// Provider is one completion backend. Complete issues exactly one request.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// BackendError reports a non-2xx answer from a backend. Body is the raw
// response text (or the decoded API message).
type BackendError struct {
	Backend    string
	StatusCode int
	Body       string

	// Label prefixes the message; empty means "Erreur API <Backend>".
	Label string
}

func (e *BackendError) Error() string {
	label := e.Label
	if label == "" {
		label = "Erreur API " + e.Backend
	}
	return fmt.Sprintf("%s (%d): %s", label, e.StatusCode, e.Body)
}

func (e *BackendError) Is(target error) bool {
	return target == common.ErrBackend
}

// New returns the provider registered under name, configured from cfg.
// A nil httpClient gets one with cfg.BackendTimeout and a traced transport.
func New(name string, cfg config.Config, httpClient *http.Client, logger *slog.Logger) (Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.BackendTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	switch name {
	case config.BackendOpenRouter:
		if cfg.OpenRouterAPIKey == "" {
			return nil, common.WrapConfig(fmt.Errorf("OPENROUTER_API_KEY is required for backend %s", name))
		}
		return NewOpenRouter(OpenRouterConfig{
			APIKey:  cfg.OpenRouterAPIKey,
			BaseURL: cfg.OpenRouterBaseURL,
			Model:   cfg.OpenRouterModel,
			Referer: cfg.OpenRouterReferer,
		}, httpClient, logger), nil
	case config.BackendOllama:
		if cfg.OllamaURL == "" {
			return nil, common.WrapConfig(fmt.Errorf("OLLAMA_URL is required for backend %s", name))
		}
		return NewOllama(OllamaConfig{
			BaseURL: cfg.OllamaURL,
			Model:   cfg.OllamaModel,
		}, httpClient, logger), nil
	default:
		return nil, common.WrapConfig(fmt.Errorf("unknown completion backend %q", name))
	}
}
