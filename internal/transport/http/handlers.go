package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fedutinova/skeo/internal/common"
	"github.com/fedutinova/skeo/internal/completion"
	"github.com/fedutinova/skeo/internal/config"
	"github.com/fedutinova/skeo/internal/extract"
	"github.com/fedutinova/skeo/internal/prompt"
	"github.com/fedutinova/skeo/internal/redis"
)

// MsgInternal is the only message a caller sees for non-backend failures.
const MsgInternal = "Erreur interne du serveur."

// FileExtractor turns the uploaded files into per-file text results.
type FileExtractor interface {
	ExtractAll(ctx context.Context, files []extract.File) []extract.Result
}

type Handlers struct {
	Extractor FileExtractor
	CV        completion.Provider
	Note      completion.Provider
	Redis     *redis.Service // optional
	Config    config.Config
	Logger    *slog.Logger
}

func (h *Handlers) Routers(r chi.Router) {
	r.Post("/api/generate-cv", h.generateCV)
	r.Post("/api/generate-note", h.generateNote)
}

func (h *Handlers) generateCV(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, h.CV, prompt.CVInstructions)
}

func (h *Handlers) generateNote(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, h.Note, prompt.NoteInstructions)
}

func (h *Handlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// generate runs collect, extract, assemble and complete for one submission.
func (h *Handlers) generate(w http.ResponseWriter, r *http.Request, p completion.Provider, instructions []string) {
	ctx := r.Context()
	log := h.logger().With("request_id", middleware.GetReqID(ctx), "path", r.URL.Path)
	start := time.Now()

	sub, err := CollectSubmission(r)
	if err != nil {
		err = common.WrapInternal("collect submission", err)
		log.Error("failed to collect submission", "error", err)
		writeError(w, http.StatusInternalServerError, MsgInternal)
		return
	}

	results := h.Extractor.ExtractAll(ctx, sub.Files)
	fileContext := extract.Render(results)

	preamble := sub.PromptBase
	if strings.TrimSpace(preamble) == "" {
		preamble = prompt.BuildPreamble(sub.Fields)
	}
	finalPrompt := prompt.Assemble(preamble, fileContext, h.Config.MaxContextChars, instructions)

	log.Info("prompt assembled",
		"backend", p.Name(),
		"files", len(sub.Files),
		"context_length", len(fileContext),
		"prompt_length", len(finalPrompt))

	text, err := p.Complete(ctx, finalPrompt)
	if err != nil {
		var berr *completion.BackendError
		if errors.As(err, &berr) {
			log.Error("completion backend rejected request",
				"backend", berr.Backend,
				"status", berr.StatusCode)
			writeError(w, http.StatusInternalServerError, berr.Error())
			return
		}
		log.Error("completion failed", "backend", p.Name(), "error", err)
		writeError(w, http.StatusInternalServerError, MsgInternal)
		return
	}

	log.Info("cv generated",
		"backend", p.Name(),
		"response_length", len(text),
		"elapsed_ms", time.Since(start).Milliseconds())

	writeJSON(w, http.StatusOK, map[string]string{"cv": text})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

// WriteError sends {"error": msg} with status.
func WriteError(w http.ResponseWriter, status int, msg string) {
	writeError(w, status, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
