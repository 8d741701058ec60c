package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/fedutinova/skeo/internal/config"
	"github.com/fedutinova/skeo/internal/extract"
	httpapi "github.com/fedutinova/skeo/internal/transport/http"
)

type staticProvider struct{}

func (staticProvider) Name() string { return "Static" }
func (staticProvider) Complete(ctx context.Context, prompt string) (string, error) {
	return "# CV", nil
}

func testHandlers(limit int) *httpapi.Handlers {
	return &httpapi.Handlers{
		Extractor: extract.New(nil, nil),
		CV:        staticProvider{},
		Note:      staticProvider{},
		Config: config.Config{
			MaxContextChars:   8000,
			RateLimitRequests: limit,
			RateLimitWindow:   time.Minute,
			CORSOrigins:       []string{"*"},
		},
	}
}

func cvRequest(t *testing.T) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("fullName", "Jean Dupont")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/generate-cv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.RemoteAddr = "10.0.0.1:5555"
	return req
}

func TestRouter_GenerateCV(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	router := NewRouter(testHandlers(10), Options{Gatherer: reg, Metrics: m})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, cvRequest(t))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["cv"] != "# CV" {
		t.Fatalf("unexpected body %v", body)
	}

	count := testutil.ToFloat64(m.requestCount.WithLabelValues("POST", "/api/generate-cv", "200"))
	if count != 1 {
		t.Errorf("expected count 1, got %f", count)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, _ := NewMetrics(reg)
	router := NewRouter(testHandlers(10), Options{Gatherer: reg, Metrics: m})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `http_requests_total{method="GET",path="/healthz",status="200"} 1`) {
		t.Fatalf("expected healthz counter in:\n%s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), `path="/metrics"`) {
		t.Fatal("/metrics must not count itself")
	}
}

func TestRouter_UnmatchedPathsShareOneSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, _ := NewMetrics(reg)
	router := NewRouter(testHandlers(10), Options{Gatherer: reg, Metrics: m})

	for _, p := range []string{"/wp-login.php", "/a/b/c", "/x1"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", p, rec.Code)
		}
	}

	count := testutil.ToFloat64(m.requestCount.WithLabelValues("GET", unmatchedRoute, "404"))
	if count != 3 {
		t.Fatalf("expected 3 unmatched requests, got %f", count)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if strings.Contains(rec.Body.String(), `path="/wp-login.php"`) {
		t.Fatalf("raw path leaked into labels:\n%s", rec.Body.String())
	}
}

func TestRouter_RateLimit(t *testing.T) {
	router := NewRouter(testHandlers(2), Options{})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, cvRequest(t))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, cvRequest(t))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["error"] != msgRateLimited {
		t.Fatalf("unexpected body %v", body)
	}

	// health checks are not limited
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", rec.Code)
	}
}

func TestRouter_RateLimitDisabled(t *testing.T) {
	router := NewRouter(testHandlers(0), Options{})
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, cvRequest(t))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := NewRouter(testHandlers(10), Options{})

	req := httptest.NewRequest(http.MethodOptions, "/api/generate-cv", nil)
	req.Header.Set("Origin", "https://skeo.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
}

func TestRecoverer(t *testing.T) {
	r := chi.NewRouter()
	r.Use(recoverer(slog.Default()))
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["error"] != httpapi.MsgInternal {
		t.Fatalf("unexpected body %v", body)
	}
}
