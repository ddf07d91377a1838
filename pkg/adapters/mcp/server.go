// Package mcp exposes diagram rendering as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/umlpreview/internal/logging"
	"github.com/aretw0/umlpreview/pkg/domain"
	"github.com/aretw0/umlpreview/pkg/render"
	"github.com/aretw0/umlpreview/pkg/source"
	"github.com/aretw0/umlpreview/pkg/urlmaker"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// defaultTimeout bounds one render_diagram call.
const defaultTimeout = 2 * time.Minute

// Page is one rendered page.
type Page struct {
	Index    int    `json:"index" jsonschema_description:"Zero-based page index"`
	MIMEType string `json:"mime_type" jsonschema_description:"Media type of data"`
	Encoding string `json:"encoding" jsonschema_description:"'text' or 'base64'"`
	Data     string `json:"data" jsonschema_description:"Page content"`
}

// RenderResponse is the structured result of render_diagram.
type RenderResponse struct {
	Name   string `json:"name" jsonschema_description:"Diagram name"`
	Format string `json:"format" jsonschema_description:"Output format"`
	Pages  []Page `json:"pages" jsonschema_description:"Rendered pages in page order"`
}

// URLsResponse is the structured result of diagram_urls.
type URLsResponse struct {
	Diagrams []urlmaker.DiagramURL `json:"diagrams" jsonschema_description:"Links per diagram, one per page"`
}

// Session is what the MCP server needs from a render session.
type Session interface {
	Render(ctx context.Context, d *domain.Diagram, format, savePath string) *render.Task
	Renderer(location string) render.Renderer
	Settings(location string) domain.Settings
	Start(ctx context.Context, d *domain.Diagram)
}

// Server exposes a render session as an MCP Server.
type Server struct {
	session   Session
	maker     *urlmaker.Maker
	timeout   time.Duration
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithTimeout bounds each render.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.timeout = d
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(session Session, version string, opts ...Option) *Server {
	s := &Server{
		session:   session,
		maker:     urlmaker.NewMaker(session.Settings, session),
		timeout:   defaultTimeout,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("umlpreview-mcp", version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: render_diagram
	renderTool := mcp.NewTool("render_diagram",
		mcp.WithDescription("Render a textual diagram (@startuml ... @enduml) into images, one per page."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Diagram source, including the @start/@end markers")),
		mcp.WithString("format", mcp.Description("Output format, e.g. svg, png or txt (default svg)")),
		mcp.WithString("location", mcp.Description("Source path used to resolve settings and includes (optional)")),
		mcp.WithOutputSchema[RenderResponse](),
	)
	s.mcpServer.AddTool(renderTool, mcp.NewStructuredToolHandler(s.handleRenderDiagram))

	// TOOL: diagram_urls
	urlsTool := mcp.NewTool("diagram_urls",
		mcp.WithDescription("Build rendering server links for every diagram in a document."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Document holding one or more diagrams")),
		mcp.WithString("format", mcp.Description("Output format of the links (default svg)")),
		mcp.WithString("location", mcp.Description("Source path used to resolve settings (optional)")),
		mcp.WithOutputSchema[URLsResponse](),
	)
	s.mcpServer.AddTool(urlsTool, mcp.NewStructuredToolHandler(s.handleDiagramURLs))

	// TOOL: list_formats
	s.mcpServer.AddTool(mcp.NewTool("list_formats",
		mcp.WithDescription("List the output formats supported by the configured renderer."),
		mcp.WithString("location", mcp.Description("Source path used to resolve settings (optional)")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		location, _ := request.GetArguments()["location"].(string)
		jsonBytes, _ := json.Marshal(s.session.Renderer(location).Formats())
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleRenderDiagram(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RenderResponse, error) {
	d, format, err := diagramFromArgs(args)
	if err != nil {
		return RenderResponse{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	task := s.session.Render(ctx, d, format, "")
	pages, err := task.Wait(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			task.Cancel()
			if termErr := task.Terminate(context.Background()); termErr != nil {
				s.logger.Warn("MCP Render: Failed to stop engine", "error", termErr)
			}
		}
		s.logger.Warn("MCP Render: Render failed", "diagram", d.Name, "error", err)
		return RenderResponse{}, fmt.Errorf("render failed: %s", domain.AsExportError(err).Message)
	}

	resp := RenderResponse{Name: d.Name, Format: format}
	for i, p := range pages {
		resp.Pages = append(resp.Pages, encodePage(i, format, p))
	}
	return resp, nil
}

func (s *Server) handleDiagramURLs(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (URLsResponse, error) {
	content, _ := args["content"].(string)
	location, _ := args["location"].(string)
	format := stringOr(args["format"], "svg")

	diagrams := source.Parse(location, content)
	if len(diagrams) == 0 {
		return URLsResponse{}, domain.ErrNoDiagram
	}
	urls, err := s.maker.MakeDiagramURLs(ctx, diagrams, format)
	if err != nil {
		return URLsResponse{}, fmt.Errorf("make urls failed: %w", err)
	}
	return URLsResponse{Diagrams: urls}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: umlpreview://settings
	s.mcpServer.AddResource(mcp.NewResource("umlpreview://settings", "Effective Render Settings",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		settings := s.session.Settings("")
		jsonBytes, _ := json.Marshal(struct {
			domain.Settings
			Render string `json:"render"`
		}{settings, settings.Render.String()})

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "umlpreview://settings",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

// diagramFromArgs picks the first diagram of content. Bare diagram bodies
// without markers are wrapped in @startuml/@enduml.
func diagramFromArgs(args map[string]interface{}) (*domain.Diagram, string, error) {
	content, _ := args["content"].(string)
	location, _ := args["location"].(string)
	format := stringOr(args["format"], "svg")

	if content == "" {
		return nil, "", fmt.Errorf("content is required")
	}
	diagrams := source.Parse(location, content)
	if len(diagrams) == 0 {
		diagrams = source.Parse(location, "@startuml\n"+content+"\n@enduml")
	}
	if len(diagrams) == 0 {
		return nil, "", domain.ErrNoDiagram
	}
	return diagrams[0], format, nil
}

func encodePage(index int, format string, data []byte) Page {
	switch format {
	case "svg":
		return Page{Index: index, MIMEType: "image/svg+xml", Encoding: "text", Data: string(data)}
	case "txt", "utxt":
		return Page{Index: index, MIMEType: "text/plain", Encoding: "text", Data: string(data)}
	case "png":
		return Page{Index: index, MIMEType: "image/png", Encoding: "base64", Data: base64.StdEncoding.EncodeToString(data)}
	default:
		return Page{Index: index, MIMEType: "application/octet-stream", Encoding: "base64", Data: base64.StdEncoding.EncodeToString(data)}
	}
}

func stringOr(v interface{}, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}
