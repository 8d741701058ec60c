// Package ocr wraps the Tesseract engine for the image extraction path.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/otiai10/gosseract/v2"
)

// Whitelist restricts recognition to Latin letters, digits and the
// punctuation and currency symbols found on CVs.
const Whitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_/.,:;()[]{}+%$€@!?'\" \n"

type Config struct {
	Languages   []string // default fra, eng
	TessdataDir string
	Whitelist   string
	Preprocess  bool // only effective when built with OpenCV
}

type Tesseract struct {
	cfg    Config
	logger *slog.Logger
}

func NewTesseract(cfg Config, logger *slog.Logger) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"fra", "eng"}
	}
	if cfg.Whitelist == "" {
		cfg.Whitelist = Whitelist
	}
	return &Tesseract{cfg: cfg, logger: logger}
}

// Recognize runs OCR on one encoded image. A gosseract client is not safe for
// concurrent use, so each call gets its own.
func (t *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	start := time.Now()

	client := gosseract.NewClient()
	defer client.Close()

	if t.cfg.TessdataDir != "" {
		client.TessdataPrefix = t.cfg.TessdataDir
	}

	image = t.prepare(image)
	if err := client.SetLanguage(t.cfg.Languages...); err != nil {
		return "", fmt.Errorf("tesseract language: %w", err)
	}
	if err := client.SetWhitelist(t.cfg.Whitelist); err != nil {
		return "", fmt.Errorf("tesseract whitelist: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("tesseract image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}

	t.logger.Debug("ocr done",
		"languages", t.cfg.Languages,
		"image_bytes", len(image),
		"text_length", len(text),
		"duration_ms", time.Since(start).Milliseconds())

	return text, nil
}

// prepare runs Preprocess when enabled and falls back to the original bytes on failure.
func (t *Tesseract) prepare(image []byte) []byte {
	if !t.cfg.Preprocess || !PreprocessingEnabled {
		return image
	}
	out, steps, err := Preprocess(image)
	if err != nil {
		t.logger.Warn("ocr preprocessing failed, using original image", "error", err)
		return image
	}
	t.logger.Debug("ocr preprocessing done", "steps", steps)
	return out
}
