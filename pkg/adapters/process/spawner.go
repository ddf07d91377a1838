package process

import (
	"fmt"
	"io"
	"log/slog"
	"os/exec"

	"github.com/aretw0/umlpreview/internal/logging"
	"github.com/aretw0/umlpreview/pkg/ports"
	"github.com/google/uuid"
)

// Spawner starts engine processes on the local OS. It implements ports.Spawner.
//
// Processes are deliberately not bound to a context: stopping one is always an
// explicit Terminate, which waits for the exit.
type Spawner struct {
	baseDir string
	env     []string
	logger  *slog.Logger
}

// Option configures the Spawner.
type Option func(*Spawner)

// WithBaseDir sets the working directory used when a ProcessSpec has none.
func WithBaseDir(dir string) Option {
	return func(s *Spawner) {
		s.baseDir = dir
	}
}

// WithEnv appends KEY=VALUE entries to the environment of every process.
func WithEnv(env ...string) Option {
	return func(s *Spawner) {
		s.env = append(s.env, env...)
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Spawner) {
		s.logger = logger
	}
}

// NewSpawner creates a new process Spawner.
func NewSpawner(opts ...Option) *Spawner {
	s := &Spawner{
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Spawn starts the process described by spec.
func (s *Spawner) Spawn(spec ports.ProcessSpec) (ports.Process, error) {
	if spec.Command == "" {
		return nil, fmt.Errorf("spawn %q: empty command", spec.Name)
	}

	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	if cmd.Dir == "" {
		cmd.Dir = s.baseDir
	}
	cmd.Env = append(cmd.Environ(), s.env...)
	cmd.Stdin = spec.Stdin
	cmd.Stdout = orDiscard(spec.Stdout)
	cmd.Stderr = orDiscard(spec.Stderr)

	name := spec.Name
	if name == "" {
		name = spec.Command
	}

	p := newProcess(uuid.NewString(), name, cmd, s.logger)
	if err := p.start(); err != nil {
		return nil, fmt.Errorf("failed to spawn %s: %w", spec.Command, err)
	}

	s.logger.Debug("Process spawned", "name", name, "pid", p.PID(), "args", spec.Args)
	return p, nil
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
