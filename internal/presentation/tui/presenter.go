package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aretw0/umlpreview/pkg/preview"
	"github.com/muesli/termenv"
)

// Presenter prints preview views as status lines on a terminal.
// Text formats (txt, utxt) are printed in full; image formats are summarized,
// the images themselves being served elsewhere. Errors go to a message panel.
type Presenter struct {
	mu     sync.Mutex
	w      io.Writer
	out    *termenv.Output
	render func(string) (string, error)
	last   preview.Status
}

// NewPresenter creates a Presenter writing to w.
func NewPresenter(w io.Writer) *Presenter {
	return &Presenter{
		w:      w,
		out:    NewOutput(w),
		render: NewRenderer(w),
		last:   -1,
	}
}

// Show implements preview.Presenter.
func (p *Presenter) Show(v preview.View) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case v.Status == preview.StatusProcessing:
		if p.last == preview.StatusProcessing {
			return nil
		}
		p.last = v.Status
		return p.line("#facc15", "…", fmt.Sprintf("rendering %s", v.Diagram))
	case v.HasError():
		p.last = v.Status
		if err := p.line("#f87171", "✗", fmt.Sprintf("%s failed", name(v))); err != nil {
			return err
		}
		return p.Message("Render error", v.Error)
	}

	p.last = v.Status
	if v.Diagram == "" {
		return p.line("#94a3b8", "·", "no diagram selected")
	}
	if isText(v.Format) {
		_, err := fmt.Fprintln(p.w, strings.TrimRight(string(v.Image()), "\n"))
		return err
	}
	summary := fmt.Sprintf("%s rendered (%s, page %d/%d)", v.Diagram, v.Format, v.Page+1, len(v.Images))
	if v.PageStatus != "" {
		summary += " " + v.PageStatus
	}
	return p.line("#4ade80", "✓", summary)
}

// Message renders a titled panel through glamour.
func (p *Presenter) Message(title, body string) error {
	rendered, err := p.render(MessagePanel(title, body))
	if err != nil {
		rendered = MessagePanel(title, body)
	}
	_, err = io.WriteString(p.w, rendered)
	return err
}

func (p *Presenter) line(color, mark, text string) error {
	_, err := fmt.Fprintf(p.w, "%s %s\n", p.out.String(mark).Foreground(p.out.Color(color)).Bold(), text)
	return err
}

func name(v preview.View) string {
	if v.Diagram == "" {
		return "render"
	}
	return v.Diagram
}

func isText(format string) bool {
	return format == "txt" || format == "utxt"
}
