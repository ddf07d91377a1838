// Package render dispatches diagram renders to the configured engine strategy.
//
// A Session holds everything that must outlive single renders: the negotiated
// capabilities of each server address and the locally spawned server, if any.
// Create one Session per host and Close it when the host shuts down.
package render

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/umlpreview/internal/logging"
	"github.com/aretw0/umlpreview/pkg/adapters/http"
	"github.com/aretw0/umlpreview/pkg/adapters/memory"
	"github.com/aretw0/umlpreview/pkg/adapters/process"
	"github.com/aretw0/umlpreview/pkg/domain"
	"github.com/aretw0/umlpreview/pkg/observability"
	"github.com/aretw0/umlpreview/pkg/ports"
)

// Session is the shared render context of one host.
type Session struct {
	settings  ports.SettingsProvider
	spawner   ports.Spawner
	transport ports.Transport
	facts     ports.FactStore
	metrics   *observability.Metrics
	logger    *slog.Logger

	negotiator *Negotiator
	servers    *ServerManager

	local       *localRenderer
	remote      *serverRenderer
	localServer *serverRenderer
}

// Option configures a Session.
type Option func(*Session)

// WithSpawner sets how engine and server processes are started.
func WithSpawner(spawner ports.Spawner) Option {
	return func(s *Session) {
		s.spawner = spawner
	}
}

// WithTransport sets the HTTP transport used against rendering servers.
func WithTransport(transport ports.Transport) Option {
	return func(s *Session) {
		s.transport = transport
	}
}

// WithFactStore sets where negotiated server capabilities are kept.
func WithFactStore(facts ports.FactStore) Option {
	return func(s *Session) {
		s.facts = facts
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Session) {
		s.metrics = metrics
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a Session. Without options it spawns real processes,
// uses a plain HTTP client and keeps server facts in memory.
func NewSession(settings ports.SettingsProvider, opts ...Option) *Session {
	s := &Session{
		settings: settings,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.spawner == nil {
		s.spawner = process.NewSpawner(process.WithLogger(s.logger))
	}
	if s.transport == nil {
		s.transport = http.NewClient(http.WithLogger(s.logger))
	}
	if s.facts == nil {
		s.facts = memory.NewFactStore()
	}

	s.negotiator = NewNegotiator(s.transport, s.facts, s.metrics, logging.Component(s.logger, "negotiator"))
	s.servers = NewServerManager(s.spawner, s.Settings, s.metrics, logging.Component(s.logger, "server-manager"))

	s.local = &localRenderer{session: s}
	s.remote = &serverRenderer{session: s}
	s.localServer = &serverRenderer{session: s, owned: true}
	return s
}

// Settings resolves the configuration of location.
func (s *Session) Settings(location string) domain.Settings {
	return s.settings.Settings(location)
}

// Renderer returns the renderer configured for location.
func (s *Session) Renderer(location string) Renderer {
	switch s.Settings(location).Render {
	case domain.StrategyServer:
		return s.remote
	case domain.StrategyLocalServer:
		return s.localServer
	default:
		return s.local
	}
}

// Render dispatches d to the renderer configured for its location.
func (s *Session) Render(ctx context.Context, d *domain.Diagram, format, savePath string) *Task {
	if d == nil {
		return Rejected(domain.ErrNoDiagram)
	}
	return s.Renderer(d.Location).Render(ctx, d, format, savePath)
}

// RenderMap exports the map data of d.
func (s *Session) RenderMap(ctx context.Context, d *domain.Diagram, savePath string) *Task {
	if d == nil {
		return Rejected(domain.ErrNoDiagram)
	}
	return s.Renderer(d.Location).RenderMap(ctx, d, savePath)
}

// EnsureStarted starts the session owned server for d if needed and waits
// until it is ready.
func (s *Session) EnsureStarted(ctx context.Context, d *domain.Diagram) error {
	return s.servers.Start(d).Wait(ctx)
}

// Start starts the session owned server for d without waiting for it.
func (s *Session) Start(_ context.Context, d *domain.Diagram) {
	s.servers.Start(d)
}

// Servers exposes the server manager.
func (s *Session) Servers() *ServerManager {
	return s.servers
}

// Negotiator exposes the protocol negotiator.
func (s *Session) Negotiator() *Negotiator {
	return s.negotiator
}

// Close stops the session owned server.
func (s *Session) Close(ctx context.Context) error {
	return s.servers.Stop(ctx)
}

func (s *Session) finished(task *Task, strategy domain.Strategy, started time.Time, err error) {
	result := outcome(task, err)
	s.metrics.TaskFinished(strategy.String(), result, time.Since(started).Seconds())
	if err != nil && result != observability.OutcomeCanceled {
		s.logger.Debug("Render task failed", "task", task.ID, "strategy", strategy, "error", err)
	}
}
