// Package extract turns uploaded documents into plain text for the prompt.
//
// Every path is best effort: a document that cannot be parsed yields empty
// text, and a path that fails outright (read error, panic inside a parser
// library) yields a Result carrying the error. Neither ever aborts the
// remaining files of a submission.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"
	"unicode/utf8"
)

// File is one uploaded part of a submission.
type File struct {
	Name        string
	ContentType string
	Data        []byte

	// Err is set when the part could not be read from the request.
	Err error
}

// Kind is the extraction path selected for a file.
type Kind string

const (
	KindPDF   Kind = "pdf"
	KindDOCX  Kind = "docx"
	KindImage Kind = "image"
	KindText  Kind = "text"
	KindOther Kind = "other"
)

// Result is the outcome for one file. Err is set only when the path failed
// outright; unparsable content shows up as empty Text instead.
type Result struct {
	Name string
	Kind Kind
	Text string
	Err  error
}

// Recognizer runs optical character recognition on an encoded image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

type Extractor struct {
	ocr    Recognizer
	logger *slog.Logger
}

// New returns an Extractor. A nil Recognizer disables the image path (images
// then yield empty text).
func New(ocr Recognizer, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{ocr: ocr, logger: logger}
}

// Classify picks the extraction path. The first matching rule wins.
func Classify(f File) Kind {
	ct := strings.ToLower(f.ContentType)
	ext := strings.ToLower(path.Ext(f.Name))

	switch {
	case strings.Contains(ct, "pdf"):
		return KindPDF
	case strings.Contains(ct, "officedocument") || ext == ".docx":
		return KindDOCX
	case strings.HasPrefix(ct, "image/"):
		return KindImage
	case strings.Contains(ct, "text") || ext == ".txt":
		return KindText
	default:
		return KindOther
	}
}

// ExtractAll processes files one after another, in submission order.
func (e *Extractor) ExtractAll(ctx context.Context, files []File) []Result {
	results := make([]Result, 0, len(files))
	for _, f := range files {
		results = append(results, e.Extract(ctx, f))
	}
	return results
}

// Extract runs the path selected by Classify for a single file.
func (e *Extractor) Extract(ctx context.Context, f File) (res Result) {
	start := time.Now()
	kind := Classify(f)
	res = Result{Name: f.Name, Kind: kind}

	defer func() {
		if p := recover(); p != nil {
			res.Text = ""
			res.Err = fmt.Errorf("extract %s: panic: %v", f.Name, p)
		}
		extractions.WithLabelValues(string(kind), outcome(res)).Inc()
		if res.Err != nil {
			e.logger.Error("file extraction failed",
				"file", f.Name,
				"kind", kind,
				"error", res.Err)
			return
		}
		e.logger.Debug("file extracted",
			"file", f.Name,
			"kind", kind,
			"content_type", f.ContentType,
			"size_bytes", len(f.Data),
			"text_length", len(res.Text),
			"duration_ms", time.Since(start).Milliseconds())
	}()

	if f.Err != nil {
		res.Err = fmt.Errorf("read %s: %w", f.Name, f.Err)
		return res
	}

	var (
		text string
		err  error
	)
	switch kind {
	case KindPDF:
		text, err = pdfText(f.Data)
	case KindDOCX:
		text, err = docxText(f.Data)
	case KindImage:
		text, err = e.imageText(ctx, f.Data)
	default:
		text = decodeUTF8(f.Data)
	}
	if err != nil {
		e.logger.Warn("document could not be parsed",
			"file", f.Name,
			"kind", kind,
			"error", err)
		return res
	}

	res.Text = text
	return res
}

func (e *Extractor) imageText(ctx context.Context, data []byte) (string, error) {
	if e.ocr == nil {
		return "", fmt.Errorf("ocr disabled")
	}
	return e.ocr.Recognize(ctx, data)
}

func decodeUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}

func outcome(r Result) string {
	switch {
	case r.Err != nil:
		return "failed"
	case strings.TrimSpace(r.Text) == "":
		return "empty"
	default:
		return "ok"
	}
}
