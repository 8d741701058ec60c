package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	httpapi "github.com/fedutinova/skeo/internal/transport/http"
)

const msgRateLimited = "Trop de requêtes, réessayez plus tard."

type Options struct {
	Logger   *slog.Logger
	Gatherer prometheus.Gatherer
	Metrics  *Metrics

	// LimitCounter shares rate-limit state across instances; nil counts in process.
	LimitCounter httprate.LimitCounter
}

func NewRouter(h *httpapi.Handlers, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.Config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(recoverer(logger))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}

	r.Get("/healthz", h.Health)
	r.Get("/readyz", h.Ready)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if limiter := rateLimiter(h, opts); limiter != nil {
			r.Use(limiter)
		}
		h.Routers(r)
	})

	return otelhttp.NewHandler(r, "skeo")
}

// rateLimiter limits /api calls per client IP; nil when RATE_LIMIT_REQUESTS is 0.
func rateLimiter(h *httpapi.Handlers, opts Options) func(http.Handler) http.Handler {
	if h.Config.RateLimitRequests <= 0 {
		return nil
	}

	limitOpts := []httprate.Option{
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpapi.WriteError(w, http.StatusTooManyRequests, msgRateLimited)
		}),
	}
	if opts.LimitCounter != nil {
		limitOpts = append(limitOpts, httprate.WithLimitCounter(opts.LimitCounter))
	}
	return httprate.Limit(h.Config.RateLimitRequests, h.Config.RateLimitWindow, limitOpts...)
}
