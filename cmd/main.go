package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/fedutinova/skeo/internal/completion"
	"github.com/fedutinova/skeo/internal/config"
	"github.com/fedutinova/skeo/internal/extract"
	"github.com/fedutinova/skeo/internal/ocr"
	"github.com/fedutinova/skeo/internal/redis"
	"github.com/fedutinova/skeo/internal/server"
	"github.com/fedutinova/skeo/internal/tracing"
	httpapi "github.com/fedutinova/skeo/internal/transport/http"
	"github.com/fedutinova/skeo/internal/validation"
)

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func main() {
	cfg := config.Load()
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := validation.ValidateConfig(cfg); err != nil {
		var verrs validation.ValidationErrors
		if errors.As(err, &verrs) {
			for _, ve := range verrs {
				slog.Error("invalid configuration", "field", ve.Field, "reason", ve.Message)
			}
		} else {
			slog.Error("invalid configuration", "err", err)
		}
		os.Exit(1)
	}
	slog.Info("starting skeo",
		"addr", cfg.HTTPAddr,
		"cv_backend", cfg.CVBackend,
		"note_backend", cfg.NoteBackend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, logger)
	if err != nil {
		slog.Error("failed to initialize tracing", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := extract.RegisterMetrics(reg); err != nil {
		slog.Error("failed to register extraction metrics", "err", err)
		os.Exit(1)
	}
	if err := completion.RegisterMetrics(reg); err != nil {
		slog.Error("failed to register completion metrics", "err", err)
		os.Exit(1)
	}
	metrics, err := server.NewMetrics(reg)
	if err != nil {
		slog.Error("failed to register http metrics", "err", err)
		os.Exit(1)
	}

	recognizer := ocr.NewTesseract(ocr.Config{
		Languages:   cfg.OCRLanguages,
		TessdataDir: cfg.TessdataDir,
		Preprocess:  cfg.OCRPreprocess,
	}, logger)
	extractor := extract.New(recognizer, logger)

	providers := make(map[string]completion.Provider)
	for _, name := range cfg.Backends() {
		p, err := completion.New(name, cfg, nil, logger)
		if err != nil {
			slog.Error("failed to configure completion backend", "backend", name, "err", err)
			os.Exit(1)
		}
		providers[name] = completion.Instrument(p)
	}

	var (
		redisService *redis.Service
		opts         = server.Options{Logger: logger, Gatherer: reg, Metrics: metrics}
	)
	if cfg.RedisURL != "" {
		redisService, err = redis.New(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("failed to connect to Redis", "err", err)
			os.Exit(1)
		}
		defer redisService.Close()
		opts.LimitCounter = redis.NewLimitCounter(redisService, "skeo:ratelimit", logger)
	}

	handlers := &httpapi.Handlers{
		Extractor: extractor,
		CV:        providers[cfg.CVBackend],
		Note:      providers[cfg.NoteBackend],
		Redis:     redisService,
		Config:    cfg,
		Logger:    logger,
	}
	r := server.NewRouter(handlers, opts)

	// completion calls can take up to BackendTimeout
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.BackendTimeout + 30*time.Second,
		IdleTimeout:  90 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
	slog.Info("shutting down")

	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	_ = srv.Shutdown(shCtx)
	if err := shutdownTracing(shCtx); err != nil {
		slog.Warn("tracing shutdown failed", "err", err)
	}
	cancel()
}
