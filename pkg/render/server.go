package render

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/aretw0/umlpreview/internal/logging"
	"github.com/aretw0/umlpreview/pkg/domain"
	"github.com/aretw0/umlpreview/pkg/observability"
	"github.com/aretw0/umlpreview/pkg/ports"
)

// Readiness settles once a spawned server is considered able to serve.
// A settled Readiness never changes again.
type Readiness struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newReadiness() *Readiness {
	return &Readiness{done: make(chan struct{})}
}

// Done is closed once readiness has settled.
func (r *Readiness) Done() <-chan struct{} {
	return r.done
}

// Err returns the settlement error. Only meaningful after Done is closed.
func (r *Readiness) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Wait blocks until readiness settles or ctx expires.
func (r *Readiness) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Readiness) settle(err error) {
	r.once.Do(func() {
		r.err = err
		close(r.done)
	})
}

// readinessWriter settles the readiness on the first byte written to it.
type readinessWriter struct {
	ready  *Readiness
	logger *slog.Logger
	stream string
}

func (w *readinessWriter) Write(p []byte) (int, error) {
	if len(p) > 0 {
		w.ready.settle(nil)
	}
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" {
			w.logger.Debug("Server output", "stream", w.stream, "line", line)
		}
	}
	return len(p), nil
}

// ServerManager owns at most one locally spawned rendering server.
//
// The first caller's configuration decides how the server is launched; later
// callers share the running process and its readiness regardless of their own
// configuration. The server counts as ready once it writes anything to stdout
// or stderr. When the process exits the manager forgets it, so the next call
// starts a new one.
type ServerManager struct {
	spawner  ports.Spawner
	settings func(location string) domain.Settings
	metrics  *observability.Metrics
	logger   *slog.Logger

	mu      sync.Mutex
	current ports.Process
	ready   *Readiness
}

// NewServerManager creates a ServerManager. metrics and logger may be nil.
func NewServerManager(spawner ports.Spawner, settings func(location string) domain.Settings, metrics *observability.Metrics, logger *slog.Logger) *ServerManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ServerManager{
		spawner:  spawner,
		settings: settings,
		metrics:  metrics,
		logger:   logger,
	}
}

// Start ensures a server is running for d and returns its readiness.
// Concurrent callers receive the same Readiness while the process lives.
func (m *ServerManager) Start(d *domain.Diagram) *Readiness {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return m.ready
	}

	ready := newReadiness()
	spec := m.serverSpec(d, ready)

	p, err := m.spawner.Spawn(spec)
	if err != nil {
		m.logger.Error("Failed to start rendering server", "command", spec.Command, "error", err)
		ready.settle(fmt.Errorf("start rendering server: %w", err))
		return ready
	}

	m.logger.Info("Rendering server started", "id", p.ID(), "pid", p.PID(), "args", spec.Args)
	m.metrics.ProcessSpawned("server")
	m.current = p
	m.ready = ready

	go m.watch(p, ready)
	return ready
}

// Running reports whether a server process is currently owned.
func (m *ServerManager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// Stop terminates the owned server, if any, and waits for its exit.
func (m *ServerManager) Stop(ctx context.Context) error {
	m.mu.Lock()
	p := m.current
	m.mu.Unlock()

	if p == nil {
		return nil
	}
	m.logger.Info("Stopping rendering server", "id", p.ID())
	return p.Terminate(ctx)
}

func (m *ServerManager) watch(p ports.Process, ready *Readiness) {
	<-p.Done()

	m.mu.Lock()
	if m.current == p {
		m.current = nil
		m.ready = nil
	}
	m.mu.Unlock()

	if err := p.Err(); err != nil {
		m.logger.Warn("Rendering server exited", "id", p.ID(), "error", err)
	} else {
		m.logger.Info("Rendering server exited", "id", p.ID())
	}
	// No-op when the server already reported readiness.
	ready.settle(domain.ErrServerExited)
}

func (m *ServerManager) serverSpec(d *domain.Diagram, ready *Readiness) ports.ProcessSpec {
	s := m.settings(d.Location)

	java := s.Java
	if java == "" {
		java = "java"
	}
	args := []string{"-jar", s.Jar, picoweb(s.Server)}
	args = append(args, s.JarArgs...)

	logger := logging.Component(m.logger, "server")
	return ports.ProcessSpec{
		Name:    "plantuml-server",
		Command: java,
		Args:    args,
		Dir:     d.Dir(),
		Stdout:  &readinessWriter{ready: ready, logger: logger, stream: "stdout"},
		Stderr:  &readinessWriter{ready: ready, logger: logger, stream: "stderr"},
	}
}

// picoweb builds the flag that makes the engine serve HTTP on the port of server.
func picoweb(server string) string {
	u, err := url.Parse(server)
	if err != nil || u.Port() == "" {
		return "-picoweb"
	}
	return "-picoweb:" + u.Port()
}
