package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// NewRenderer returns a function that renders markdown using glamour.
// Terminals get the auto-detected light/dark style, anything else the
// "notty" style.
func NewRenderer(w io.Writer) func(string) (string, error) {
	style := glamour.WithStandardStyle("notty")
	if IsTerminal(w) {
		style = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(100))
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// MessagePanel formats a titled message as markdown: the title as a heading
// and the body verbatim in a fenced block, so engine output keeps its layout.
func MessagePanel(title, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", title)
	body = strings.TrimRight(body, "\n")
	if body != "" {
		fmt.Fprintf(&b, "```\n%s\n```\n", strings.ReplaceAll(body, "```", "'''"))
	}
	return b.String()
}
