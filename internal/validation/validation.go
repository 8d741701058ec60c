package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fedutinova/skeo/internal/common"
	"github.com/fedutinova/skeo/internal/config"
	"github.com/go-playground/validator/v10"
)

type ValidationError = common.ValidationError

// ValidationErrors collects every failed field of one config check.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

func (e ValidationErrors) Is(target error) bool {
	return target == common.ErrValidation
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(backendCredentials, config.Config{})
	return v
}

// backendCredentials requires the credential of every backend a route uses.
// A missing value is an error, never a silent fallback.
func backendCredentials(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(config.Config)
	if cfg.Uses(config.BackendOpenRouter) && cfg.OpenRouterAPIKey == "" {
		sl.ReportError(cfg.OpenRouterAPIKey, "OpenRouterAPIKey", "OpenRouterAPIKey", "required_for_backend", config.BackendOpenRouter)
	}
	if cfg.Uses(config.BackendOllama) && cfg.OllamaURL == "" {
		sl.ReportError(cfg.OllamaURL, "OllamaURL", "OllamaURL", "required_for_backend", config.BackendOllama)
	}
}

var envNames = map[string]string{
	"CVBackend":         "CV_BACKEND",
	"NoteBackend":       "NOTE_BACKEND",
	"OpenRouterAPIKey":  "OPENROUTER_API_KEY",
	"OpenRouterBaseURL": "OPENROUTER_BASE_URL",
	"OpenRouterModel":   "OPENROUTER_MODEL",
	"OllamaURL":         "OLLAMA_URL",
	"OllamaModel":       "OLLAMA_MODEL",
	"BackendTimeout":    "BACKEND_TIMEOUT",
	"MaxContextChars":   "MAX_CONTEXT_CHARS",
	"OCRLanguages":      "OCR_LANGUAGES",
	"RateLimitRequests": "RATE_LIMIT_REQUESTS",
	"RateLimitWindow":   "RATE_LIMIT_WINDOW",
}

// ValidateConfig checks cfg and reports failures by environment variable name.
func ValidateConfig(cfg config.Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return common.WrapConfig(err)
	}

	var out ValidationErrors
	for _, fe := range fieldErrs {
		name := fe.StructField()
		if env, ok := envNames[name]; ok {
			name = env
		}
		out = append(out, ValidationError{Field: name, Message: describe(fe)})
	}
	return common.WrapConfig(out)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_for_backend":
		return fmt.Sprintf("is required when the %s backend is selected", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "url":
		return "must be a valid URL"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "min":
		return fmt.Sprintf("needs at least %s value(s)", fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
