// Package urlmaker builds shareable rendering server links for diagrams.
package urlmaker

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/umlpreview/pkg/domain"
)

// DiagramURL holds the per-page links of one diagram.
type DiagramURL struct {
	Name string   `json:"name"`
	URLs []string `json:"urls"`
}

// Starter warms up a session owned server before links to it are handed out.
type Starter interface {
	Start(ctx context.Context, d *domain.Diagram)
}

// PagePath returns "{server}/{format}/{page}", the endpoint that accepts the
// diagram text as a request body.
func PagePath(server, format string, page int) string {
	return fmt.Sprintf("%s/%s/%d", strings.TrimRight(server, "/"), format, page)
}

// PageURL returns "{server}/{format}/{page}/{encoded}", the self-contained link
// for one page.
func PageURL(server string, d *domain.Diagram, format string, page int) (string, error) {
	encoded, err := Encode(d.Content)
	if err != nil {
		return "", err
	}
	return PagePath(server, format, page) + "/" + encoded, nil
}

// MakeDiagramURL returns the links for every page of d.
func MakeDiagramURL(server string, d *domain.Diagram, format string) (DiagramURL, error) {
	if server == "" {
		return DiagramURL{}, domain.ErrNoServer
	}
	n := d.Pages()
	urls := make([]string, 0, n)
	for i := 0; i < n; i++ {
		u, err := PageURL(server, d, format, i)
		if err != nil {
			return DiagramURL{}, fmt.Errorf("diagram %q page %d: %w", d.Name, i, err)
		}
		urls = append(urls, u)
	}
	return DiagramURL{Name: d.Name, URLs: urls}, nil
}

// Maker resolves the server of each diagram from its settings.
type Maker struct {
	settings func(location string) domain.Settings
	starter  Starter
}

// NewMaker creates a Maker. starter may be nil when no server is ever spawned.
func NewMaker(settings func(location string) domain.Settings, starter Starter) *Maker {
	return &Maker{settings: settings, starter: starter}
}

// MakeDiagramURLs returns links for each diagram. When a diagram renders
// through a session owned server, the server is started without waiting for it,
// so that it is warming up by the time the links are opened.
func (m *Maker) MakeDiagramURLs(ctx context.Context, diagrams []*domain.Diagram, format string) ([]DiagramURL, error) {
	out := make([]DiagramURL, 0, len(diagrams))
	for _, d := range diagrams {
		s := m.settings(d.Location)
		if s.Render == domain.StrategyLocalServer && m.starter != nil {
			m.starter.Start(ctx, d)
		}
		u, err := MakeDiagramURL(s.Server, d, format)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}
