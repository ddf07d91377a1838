package domain

import (
	"errors"
	"fmt"
)

// ErrNoServer is returned when a server strategy is selected but no server address is configured.
var ErrNoServer = errors.New("no rendering server configured")

// ErrNoEngine is returned when local rendering is selected but no engine jar is configured.
var ErrNoEngine = errors.New("no rendering engine jar configured")

// ErrUnsupportedFormat is returned when a renderer cannot produce the requested format.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ErrUnknownStrategy is returned when the configured render strategy cannot be parsed.
var ErrUnknownStrategy = errors.New("unknown render strategy")

// ErrNoDiagram is returned when the current source position holds no diagram.
var ErrNoDiagram = errors.New("no valid diagram found here")

// ErrServerExited is returned when the spawned server exits before it reports readiness.
var ErrServerExited = errors.New("rendering server exited before becoming ready")

// ExportError carries a human-readable message and the raw output produced
// by the failed attempt, usually an error image or the engine's stdout.
type ExportError struct {
	Message string
	Out     []byte
	Err     error
}

func (e *ExportError) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// HTTPError describes a failed request against a rendering server.
// ResponseError is set when the server answered with a response that refuses
// the request shape, as opposed to network level failures.
type HTTPError struct {
	Method        string
	URL           string
	StatusCode    int
	Body          []byte
	ResponseError bool
	Err           error
}

func (e *HTTPError) Error() string {
	if e.ResponseError {
		return fmt.Sprintf("%s %s: unexpected response %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// IsProtocolRejection reports whether err is a response-level refusal of the request shape.
func IsProtocolRejection(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.ResponseError
}

// AsExportError flattens any render error into a message and optional raw output
// for presentation.
func AsExportError(err error) *ExportError {
	if err == nil {
		return nil
	}
	var exportErr *ExportError
	if errors.As(err, &exportErr) {
		return exportErr
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.ResponseError {
		return &ExportError{Message: httpErr.Error(), Out: httpErr.Body, Err: err}
	}
	return &ExportError{Message: err.Error(), Err: err}
}
