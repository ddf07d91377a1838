package ports

import (
	"context"

	"github.com/aretw0/umlpreview/pkg/domain"
)

// Method is the request style used to submit a diagram to a rendering server.
type Method string

const (
	// MethodPost carries the diagram text in the request body. Preferred.
	MethodPost Method = "POST"
	// MethodGet carries the encoded diagram text in the URL. Fallback.
	MethodGet Method = "GET"
)

// Transport performs one request/response unit of work for one diagram page.
type Transport interface {
	// Fetch renders page of d in format against the server base URL.
	// Response-level refusals are reported as *domain.HTTPError with ResponseError set.
	Fetch(ctx context.Context, method Method, server string, d *domain.Diagram, format string, page int) ([]byte, error)
}
