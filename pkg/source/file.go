package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/umlpreview/pkg/domain"
	"github.com/aretw0/umlpreview/pkg/ports"
)

// File is a DiagramSource backed by a document on disk. The cursor line and
// the page selection stand in for an editor's caret.
type File struct {
	path string

	mu   sync.Mutex
	line int
	page int
}

var _ ports.DiagramSource = (*File)(nil)

// NewFile creates a source for path, with the cursor on the first diagram.
func NewFile(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", path, err)
	}
	return &File{path: abs, line: -1}, nil
}

// Path returns the absolute document path.
func (f *File) Path() string {
	return f.path
}

// SetLine moves the cursor. A negative line selects the first diagram.
func (f *File) SetLine(line int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.line = line
}

// SetPage selects the page shown for the current diagram.
func (f *File) SetPage(page int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.page = page
}

// Diagrams reads the document and returns all its diagrams.
func (f *File) Diagrams() ([]*domain.Diagram, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	return Parse(f.path, string(data)), nil
}

// Current implements ports.DiagramSource.
func (f *File) Current() (*domain.Diagram, bool) {
	diagrams, err := f.Diagrams()
	if err != nil || len(diagrams) == 0 {
		return nil, false
	}

	f.mu.Lock()
	line, page := f.line, f.page
	f.mu.Unlock()

	d := diagrams[0]
	if line >= 0 {
		var ok bool
		if d, ok = At(diagrams, line); !ok {
			return nil, false
		}
	}
	if page >= 0 && page < d.Pages() {
		d.Page = page
	}
	return d, true
}
