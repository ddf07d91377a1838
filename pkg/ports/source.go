package ports

import "github.com/aretw0/umlpreview/pkg/domain"

// DiagramSource resolves the diagram the user is currently looking at.
type DiagramSource interface {
	// Current returns the diagram at the current position, false when there is none.
	Current() (*domain.Diagram, bool)
}
