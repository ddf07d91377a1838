package mcp

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/aretw0/umlpreview/internal/testutils"
	"github.com/aretw0/umlpreview/pkg/domain"
	"github.com/aretw0/umlpreview/pkg/ports"
	"github.com/aretw0/umlpreview/pkg/render"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, strategy domain.Strategy, transport ports.Transport) *Server {
	t.Helper()
	s := domain.DefaultSettings()
	s.Render = strategy
	s.Server = "http://localhost:8080"
	session := render.NewSession(ports.StaticSettings(s),
		render.WithTransport(transport),
		render.WithSpawner(&testutils.FakeSpawner{}),
	)
	return NewServer(session, "test")
}

func TestHandleRenderDiagram(t *testing.T) {
	transport := &testutils.FakeTransport{}
	s := newTestServer(t, domain.StrategyServer, transport)
	ctx := context.Background()

	t.Run("SVG Pages As Text", func(t *testing.T) {
		resp, err := s.handleRenderDiagram(ctx, mcp.CallToolRequest{}, map[string]interface{}{
			"content": "@startuml seq\nA -> B\nnewpage\nB -> A\n@enduml",
		})
		require.NoError(t, err)
		assert.Equal(t, "seq", resp.Name)
		assert.Equal(t, "svg", resp.Format)
		require.Len(t, resp.Pages, 2)
		assert.Equal(t, "page-1", resp.Pages[1].Data)
		assert.Equal(t, "text", resp.Pages[1].Encoding)
	})

	t.Run("PNG Pages As Base64", func(t *testing.T) {
		resp, err := s.handleRenderDiagram(ctx, mcp.CallToolRequest{}, map[string]interface{}{
			"content": "A -> B",
			"format":  "png",
		})
		require.NoError(t, err)
		require.Len(t, resp.Pages, 1)
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("page-0")), resp.Pages[0].Data)
		assert.Equal(t, "image/png", resp.Pages[0].MIMEType)
	})

	t.Run("Missing Content", func(t *testing.T) {
		_, err := s.handleRenderDiagram(ctx, mcp.CallToolRequest{}, map[string]interface{}{})
		assert.Error(t, err)
	})

	t.Run("Render Error Message", func(t *testing.T) {
		failing := &testutils.FakeTransport{
			Handler: func(ctx context.Context, call testutils.TransportCall) ([]byte, error) {
				return nil, &domain.ExportError{Message: "Syntax Error?"}
			},
		}
		s := newTestServer(t, domain.StrategyServer, failing)
		_, err := s.handleRenderDiagram(ctx, mcp.CallToolRequest{}, map[string]interface{}{"content": "A -> "})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Syntax Error?")
	})
}

func TestHandleDiagramURLs(t *testing.T) {
	spawner := &testutils.FakeSpawner{}
	s := domain.DefaultSettings()
	s.Render = domain.StrategyLocalServer
	s.Server = "http://localhost:8080"
	session := render.NewSession(ports.StaticSettings(s), render.WithSpawner(spawner))
	srv := NewServer(session, "test")

	resp, err := srv.handleDiagramURLs(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"content":  "@startuml a\n@enduml\n@startuml b\nnewpage\n@enduml",
		"location": "/docs/x.puml",
		"format":   "png",
	})
	require.NoError(t, err)
	require.Len(t, resp.Diagrams, 2)
	assert.Len(t, resp.Diagrams[1].URLs, 2)
	assert.Contains(t, resp.Diagrams[0].URLs[0], "http://localhost:8080/png/0/")
	assert.Equal(t, 1, spawner.Count(), "links to an owned server warm it up once")

	_, err = srv.handleDiagramURLs(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{"content": "no diagrams"})
	assert.ErrorIs(t, err, domain.ErrNoDiagram)
}
