/*
Package umlpreview renders textual diagram definitions (PlantUML @startuml ... @enduml
blocks) into images by delegating to an external rendering engine.

The module never renders diagrams itself. It orchestrates the engine in one of three
strategies, selected per source file:

  - Local: one engine process per page, reading the diagram on stdin.
  - PlantUMLServer: HTTP requests against an existing rendering server.
  - LocalServer: a rendering server spawned and owned by the render session.

# Packages

  - pkg/render: the Session, its renderers, the protocol negotiator and the server manager.
  - pkg/preview: the task lifecycle controller behind live previews.
  - pkg/source: finds diagrams in documents.
  - pkg/config: settings per source location.
  - pkg/urlmaker: links to diagrams on a rendering server.
  - pkg/adapters: process, HTTP, fact store, web preview and MCP adapters.

# Usage

	session := render.NewSession(config.Default())
	defer session.Close(context.Background())

	task := session.Render(ctx, diagram, "svg", "")
	pages, err := task.Wait(ctx)

The cmd/umlpreview binary wraps the same API in render, preview, urls and mcp commands.
*/
package umlpreview
