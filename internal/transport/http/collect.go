package http

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fedutinova/skeo/internal/extract"
	"github.com/fedutinova/skeo/internal/prompt"
)

const (
	maxMemory = 32 << 20

	formPromptBase = "promptBase"
	formFiles      = "files"
)

// Submission is one parsed wizard post.
type Submission struct {
	PromptBase string
	Fields     prompt.Fields
	Files      []extract.File
}

// CollectSubmission reads the multipart body: the preamble, every known
// candidate field ("" when absent) and the uploaded files in order.
func CollectSubmission(r *http.Request) (Submission, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return Submission{}, fmt.Errorf("parse multipart form: %w", err)
	}

	sub := Submission{
		PromptBase: r.FormValue(formPromptBase),
		Fields:     prompt.NewFields(r.FormValue),
	}

	for _, fh := range r.MultipartForm.File[formFiles] {
		sub.Files = append(sub.Files, readFile(fh.Filename, fh.Header.Get("Content-Type"), fh.Open))
	}
	return sub, nil
}

// readFile loads one file part. A part that cannot be opened or read is kept
// with its error so the rest of the submission still goes through.
func readFile(name, declared string, open func() (multipart.File, error)) extract.File {
	src, err := open()
	if err != nil {
		return extract.File{Name: name, ContentType: declared, Err: fmt.Errorf("open: %w", err)}
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return extract.File{Name: name, ContentType: declared, Err: err}
	}

	return extract.File{
		Name:        name,
		ContentType: contentType(declared, data),
		Data:        data,
	}
}

// contentType keeps the declared media type unless the client sent none or
// the generic octet-stream, in which case the bytes are sniffed.
func contentType(declared string, data []byte) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return mimetype.Detect(data).String()
}
