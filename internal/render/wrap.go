package render

import (
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const DefaultWidth = 40

// Wrap word-wraps text to width columns.
func Wrap(text string, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	return wordwrap.String(text, width)
}

// DisplayName title-cases a name for display, leaving the rest of each word
// alone.
func DisplayName(name string) string {
	return cases.Title(language.Und, cases.NoLower).String(name)
}
