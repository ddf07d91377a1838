/*
Package domain contains the core types of the render core.

It is kept free of I/O so that every adapter and the orchestration packages can
share it.

# Key Entities

  - Diagram: one @start/@end block of a source document, the unit of rendering.
  - Settings and Strategy: how diagrams of a location reach the engine.
  - Support: what a rendering server is known to accept for the preferred request method.
  - ExportError and HTTPError: the failures a render can settle with.
*/
package domain
