package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendOpenRouter = "openrouter"
	BackendOllama     = "ollama"
)

type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	CVBackend   string `validate:"oneof=openrouter ollama"`
	NoteBackend string `validate:"oneof=openrouter ollama"`

	OpenRouterAPIKey  string
	OpenRouterBaseURL string `validate:"required,url"`
	OpenRouterModel   string `validate:"required"`
	OpenRouterReferer string

	OllamaURL   string `validate:"omitempty,url"`
	OllamaModel string `validate:"required"`

	BackendTimeout  time.Duration `validate:"gt=0"`
	MaxContextChars int           `validate:"gt=0"`

	OCRLanguages  []string `validate:"min=1,dive,required"`
	TessdataDir   string
	OCRPreprocess bool

	RateLimitRequests int           `validate:"gte=0"`
	RateLimitWindow   time.Duration `validate:"gt=0"`
	RedisURL          string

	CORSOrigins []string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func mustInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
		slog.Warn("bad int env, using default", "key", key, "value", v)
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
		slog.Warn("bad duration env, using default", "key", key, "value", v)
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
		slog.Warn("bad bool env, using default", "key", key, "value", v)
	}
	return def
}

// getList splits key on any rune in seps, dropping blank items.
func getList(key string, def []string, seps string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.FieldsFunc(v, func(r rune) bool { return strings.ContainsRune(seps, r) }) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func loadEnvFiles() {
	envFiles := []string{
		".env.local",
		".env",
	}

	currentDir, err := os.Getwd()
	if err != nil {
		slog.Debug("failed to get current directory", "error", err)
		return
	}

	// look in current directory and up to 3 parent directories
	searchDirs := []string{currentDir}
	for i := 0; i < 3; i++ {
		parent := filepath.Dir(currentDir)
		if parent == currentDir {
			break
		}
		searchDirs = append(searchDirs, parent)
		currentDir = parent
	}

	loadedAny := false
	for _, dir := range searchDirs {
		for _, envFile := range envFiles {
			envPath := filepath.Join(dir, envFile)
			if _, err := os.Stat(envPath); err == nil {
				if err := godotenv.Load(envPath); err == nil {
					slog.Debug("loaded environment file", "path", envPath)
					loadedAny = true
				} else {
					slog.Debug("failed to load environment file", "path", envPath, "error", err)
				}
			}
		}
		if loadedAny {
			break
		}
	}

	if !loadedAny {
		slog.Debug("no .env files found, using system environment variables only")
	}
}

// Load reads the environment (after .env files) into a Config. Credentials have
// no fallback values; call Validate before serving.
func Load() Config {
	loadEnvFiles()
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() Config {
	return Config{
		HTTPAddr:  getenv("HTTP_ADDR", ":8080"),
		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "text"),

		CVBackend:   strings.ToLower(getenv("CV_BACKEND", BackendOpenRouter)),
		NoteBackend: strings.ToLower(getenv("NOTE_BACKEND", BackendOllama)),

		OpenRouterAPIKey:  getenv("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL: getenv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenRouterModel:   getenv("OPENROUTER_MODEL", "mistralai/mistral-7b-instruct"),
		OpenRouterReferer: getenv("OPENROUTER_REFERER", ""),

		OllamaURL:   strings.TrimRight(getenv("OLLAMA_URL", ""), "/"),
		OllamaModel: getenv("OLLAMA_MODEL", "llama3"),

		BackendTimeout:  mustDuration("BACKEND_TIMEOUT", 120*time.Second),
		MaxContextChars: mustInt("MAX_CONTEXT_CHARS", 8000),

		OCRLanguages:  getList("OCR_LANGUAGES", []string{"fra", "eng"}, ",+"),
		TessdataDir:   getenv("TESSDATA_PREFIX", ""),
		OCRPreprocess: mustBool("OCR_PREPROCESS", true),

		RateLimitRequests: mustInt("RATE_LIMIT_REQUESTS", 10),
		RateLimitWindow:   mustDuration("RATE_LIMIT_WINDOW", time.Minute),
		RedisURL:          getenv("REDIS_URL", ""),

		CORSOrigins: getList("CORS_ORIGINS", []string{"*"}, ","),
	}
}

// Backends returns the distinct completion backends the routes depend on.
func (c Config) Backends() []string {
	if c.CVBackend == c.NoteBackend {
		return []string{c.CVBackend}
	}
	return []string{c.CVBackend, c.NoteBackend}
}

func (c Config) Uses(backend string) bool {
	return c.CVBackend == backend || c.NoteBackend == backend
}

// SlogLevel maps LogLevel onto slog, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
