/*
Package ports defines the driven ports (interfaces) of the render core.

These interfaces decouple the orchestration logic from the operating system,
the network and the host application, so each can be replaced in tests.

# Key Interfaces

  - Spawner / Process: start engine processes and terminate them, awaiting exit.
  - Transport: one HTTP request/response cycle for one diagram page.
  - FactStore: per server address memory of protocol support.
  - SettingsProvider: configuration per source location.
  - DiagramSource: the diagram currently selected by the user.
*/
package ports
