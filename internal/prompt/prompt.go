// Package prompt assembles the completion prompt from the caller preamble,
// the rendered file context and a closing instruction block.
package prompt

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxContext is the cap, in characters, on the file-derived section.
const DefaultMaxContext = 8000

// TruncationMarker follows the kept prefix when the file context is cut.
const TruncationMarker = "\n\n[...] (contenu tronqué)"

const (
	ContextHeader      = "===== CONTEXTE FICHIERS ====="
	InstructionsHeader = "===== INSTRUCTIONS ====="
)

// CVInstructions closes prompts sent by the CV route.
var CVInstructions = []string{
	"1) Rédige un CV professionnel, clair et en **français**.",
	"2) Format : Markdown, structuré (Résumé, Compétences, Expériences, Formation, Projets).",
	"3) Utilise les données du candidat + fichiers fournis.",
	"4) Ne renvoie QUE le texte final du CV, sans explications.",
}

// NoteInstructions closes prompts sent by the note route.
var NoteInstructions = []string{
	"1) Génère un CV clair et professionnel en Markdown.",
	"2) Structure : Résumé, Compétences, Expériences, Formation, Projets.",
	"3) Utilise les infos du candidat et les fichiers.",
	"4) Ne renvoie QUE le texte final du CV.",
}

// Truncate keeps s when it has at most max characters, otherwise the first max
// characters followed by TruncationMarker. max <= 0 means DefaultMaxContext.
func Truncate(s string, max int) string {
	if max <= 0 {
		max = DefaultMaxContext
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}

	n := 0
	for i := range s {
		if n == max {
			return s[:i] + TruncationMarker
		}
		n++
	}
	return s
}

// Assemble builds the prompt: preamble, file context (capped at max
// characters) and the instruction footer, one block per line.
func Assemble(preamble, fileContext string, max int, instructions []string) string {
	lines := []string{
		preamble,
		"",
		ContextHeader,
		Truncate(fileContext, max),
		"",
		InstructionsHeader,
	}
	lines = append(lines, instructions...)
	return strings.Join(lines, "\n")
}
