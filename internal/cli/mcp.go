package cli

import (
	"context"

	"github.com/aretw0/umlpreview/internal/logging"
	"github.com/aretw0/umlpreview/pkg/adapters/mcp"
)

// MCPOptions configures the mcp command.
type MCPOptions struct {
	Options

	// SSE serves over HTTP on Port instead of stdio.
	SSE  bool
	Port int
}

// RunMCP exposes the render session as MCP tools until the client disconnects
// or ctx is done.
func RunMCP(ctx context.Context, opts MCPOptions) error {
	e, err := setup(opts.Options)
	if err != nil {
		return err
	}
	defer func() {
		_ = e.Close(context.WithoutCancel(ctx))
	}()

	srv := mcp.NewServer(e.session, opts.Version, mcp.WithLogger(logging.Component(e.logger, "mcp")))
	if opts.SSE {
		return srv.ServeSSE(ctx, opts.Port)
	}
	return srv.ServeStdio()
}
