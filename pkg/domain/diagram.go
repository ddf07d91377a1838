package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Diagram is one renderable unit: a @start/@end block of a source document.
// A Diagram is immutable once handed to a renderer.
type Diagram struct {
	// Name identifies the diagram, taken from "@startuml name" or derived from the location.
	Name string `json:"name" yaml:"name"`

	// Location is the owning source location (file path or URI).
	// Settings are resolved per location.
	Location string `json:"location" yaml:"location"`

	// Content holds the raw diagram text, including the @start/@end markers.
	Content string `json:"content" yaml:"content"`

	// PageCount is the number of output pages ("newpage" separated).
	PageCount int `json:"page_count" yaml:"page_count"`

	// Page is the selected page, zero-based.
	Page int `json:"page" yaml:"page"`

	// Start and End are the zero-based line span of the block in its document.
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Pages returns the number of pages to render, never less than one.
func (d *Diagram) Pages() int {
	if d.PageCount < 1 {
		return 1
	}
	return d.PageCount
}

// Equal reports whether two diagrams would render the same preview.
// Identity is the owning location, the content and the selected page.
func (d *Diagram) Equal(other *Diagram) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.Location == other.Location &&
		d.Content == other.Content &&
		d.Page == other.Page
}

// Dir returns the directory of the owning location, used as working directory
// for local engine processes so that !include paths resolve.
func (d *Diagram) Dir() string {
	if d.Location == "" {
		return ""
	}
	return filepath.Dir(d.Location)
}

// AddFileIndex suffixes a destination path with the page index when a diagram
// has more than one page: "out.png" becomes "out-1.png" for page 1.
func AddFileIndex(path string, index, count int) string {
	if count <= 1 || path == "" {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s-%d%s", base, index, ext)
}
