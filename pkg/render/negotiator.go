package render

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/aretw0/umlpreview/internal/logging"
	"github.com/aretw0/umlpreview/pkg/domain"
	"github.com/aretw0/umlpreview/pkg/observability"
	"github.com/aretw0/umlpreview/pkg/ports"
)

// Negotiator sends page requests with the preferred method and falls back to
// the alternative for servers that refuse it. What each address supports is
// learned once and kept in a FactStore.
type Negotiator struct {
	transport ports.Transport
	facts     ports.FactStore
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewNegotiator creates a Negotiator. metrics and logger may be nil.
func NewNegotiator(transport ports.Transport, facts ports.FactStore, metrics *observability.Metrics, logger *slog.Logger) *Negotiator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Negotiator{
		transport: transport,
		facts:     facts,
		metrics:   metrics,
		logger:    logger,
	}
}

// NormalizeAddress reduces a server base URL to the key facts are stored under.
// Scheme and host are case-insensitive and trailing slashes are dropped.
func NormalizeAddress(server string) string {
	server = strings.TrimSpace(server)
	u, err := url.Parse(server)
	if err != nil || u.Host == "" {
		return strings.TrimRight(server, "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String()
}

// Fetch renders one page against server.
//
// Addresses known to refuse the preferred method go straight to the fallback.
// Otherwise the preferred method is tried. A success confirms support. A
// response-level refusal on an address not yet confirmed marks it as refusing
// and the same page is retried once with the fallback. Any other error fails
// the page as is.
func (n *Negotiator) Fetch(ctx context.Context, server string, d *domain.Diagram, format string, page int) ([]byte, error) {
	addr := NormalizeAddress(server)

	fact, err := n.facts.Load(ctx, addr)
	if err != nil {
		n.logger.Warn("Failed to load server facts", "server", addr, "error", err)
		fact = domain.SupportUnknown
	}

	if fact == domain.SupportRejected {
		return n.fetch(ctx, ports.MethodGet, server, d, format, page)
	}

	buf, err := n.fetch(ctx, ports.MethodPost, server, d, format, page)
	if err == nil {
		if fact == domain.SupportUnknown {
			n.settle(ctx, addr, domain.SupportConfirmed)
		}
		return buf, nil
	}

	if !domain.IsProtocolRejection(err) || fact == domain.SupportConfirmed {
		return nil, err
	}

	if n.settle(ctx, addr, domain.SupportRejected) != domain.SupportRejected {
		// Another request confirmed support first; this failure is genuine.
		return nil, err
	}

	n.logger.Info("Server refused request body, falling back", "server", addr, "status", statusOf(err))
	n.metrics.ProtocolDowngraded()
	return n.fetch(ctx, ports.MethodGet, server, d, format, page)
}

// Support returns what is known about server.
func (n *Negotiator) Support(ctx context.Context, server string) domain.Support {
	fact, err := n.facts.Load(ctx, NormalizeAddress(server))
	if err != nil {
		return domain.SupportUnknown
	}
	return fact
}

func (n *Negotiator) fetch(ctx context.Context, method ports.Method, server string, d *domain.Diagram, format string, page int) ([]byte, error) {
	n.metrics.PageFetched(string(method))
	return n.transport.Fetch(ctx, method, server, d, format, page)
}

func (n *Negotiator) settle(ctx context.Context, addr string, fact domain.Support) domain.Support {
	got, err := n.facts.Settle(ctx, addr, fact)
	if err != nil {
		n.logger.Warn("Failed to store server facts", "server", addr, "error", err)
		return fact
	}
	return got
}

func statusOf(err error) int {
	var httpErr *domain.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
