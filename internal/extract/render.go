package extract

import (
	"fmt"
	"strings"
)

// ReadErrorPlaceholder is appended in place of a file whose path failed.
func ReadErrorPlaceholder(name string) string {
	return fmt.Sprintf("[Erreur de lecture du fichier %s]", name)
}

// Header delimits the text of one file inside the rendered context.
func Header(name string) string {
	return fmt.Sprintf("===== CONTENU DU FICHIER: %s =====", name)
}

// Render concatenates results in order. Failed files become a placeholder,
// files with blank text are skipped.
func Render(results []Result) string {
	var b strings.Builder
	for _, r := range results {
		if r.Err != nil {
			b.WriteString("\n\n")
			b.WriteString(ReadErrorPlaceholder(r.Name))
			continue
		}
		text := strings.TrimSpace(r.Text)
		if text == "" {
			continue
		}
		b.WriteString("\n\n")
		b.WriteString(Header(r.Name))
		b.WriteString("\n")
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String()
}
