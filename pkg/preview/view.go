package preview

import (
	"encoding/json"
	"fmt"
)

// Status is the state of the preview pane.
type Status int

const (
	StatusDefault Status = iota
	StatusError
	StatusProcessing
)

func (s Status) String() string {
	switch s {
	case StatusDefault:
		return "default"
	case StatusError:
		return "error"
	case StatusProcessing:
		return "processing"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// View is a snapshot of everything a presenter needs to draw the preview.
type View struct {
	// Seq increases with every published view.
	Seq uint64 `json:"seq"`

	Status  Status `json:"status"`
	Diagram string `json:"diagram"`
	Page    int    `json:"page"`
	Format  string `json:"format"`

	// Images holds one rendered buffer per page.
	Images [][]byte `json:"-"`

	Error      string `json:"error"`
	ErrorImage []byte `json:"-"`

	// PageStatus is opaque state reported back by the preview page,
	// such as its zoom and scroll position.
	PageStatus string `json:"page_status"`

	ShowSpinner        bool `json:"show_spinner"`
	ShowSnapIndicators bool `json:"show_snap_indicators"`
}

// HasError reports whether the view shows an error.
func (v View) HasError() bool {
	return v.Error != ""
}

// Image returns the buffer of the selected page, falling back to the last one.
func (v View) Image() []byte {
	if len(v.Images) == 0 {
		return nil
	}
	if v.Page >= 0 && v.Page < len(v.Images) {
		return v.Images[v.Page]
	}
	return v.Images[len(v.Images)-1]
}

// Settings returns the client-side settings blob the preview page consumes.
func (v View) Settings() string {
	b, _ := json.Marshal(struct {
		ShowSpinner        bool `json:"showSpinner"`
		ShowSnapIndicators bool `json:"showSnapIndicators"`
	}{v.ShowSpinner, v.ShowSnapIndicators})
	return string(b)
}

// Presenter draws views.
//
// Show receives views in publication order, one at a time. It may call back
// into the Controller, including Update: views published meanwhile are shown
// after Show returns. Show must not call Close or Wait.
type Presenter interface {
	Show(v View) error
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(v View) error

func (f PresenterFunc) Show(v View) error {
	return f(v)
}
