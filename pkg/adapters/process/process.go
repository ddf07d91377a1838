package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"
)

// State represents the state of a process.
type State int32

const (
	// StateCreated indicates the process has been created but not started.
	StateCreated State = iota
	// StateRunning indicates the process is currently running.
	StateRunning
	// StateExited indicates the process has exited normally or with an error.
	StateExited
	// StateKilled indicates the process was stopped by a signal.
	StateKilled
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateKilled:
		return "killed"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// ErrNotStarted is returned when an operation requires a started process.
var ErrNotStarted = errors.New("process not started")

// Process wraps an exec.Cmd with exit tracking. It implements ports.Process
// and is safe for concurrent use.
type Process struct {
	id   string
	name string
	cmd  *exec.Cmd

	done  chan struct{}
	state atomic.Int32

	mu      sync.RWMutex
	exitErr error

	logger *slog.Logger
}

func newProcess(id, name string, cmd *exec.Cmd, logger *slog.Logger) *Process {
	p := &Process{
		id:     id,
		name:   name,
		cmd:    cmd,
		done:   make(chan struct{}),
		logger: logger,
	}
	p.state.Store(int32(StateCreated))
	return p
}

// ID returns the identifier assigned at spawn time.
func (p *Process) ID() string {
	return p.id
}

// Name returns the human-readable name given in the spawn spec.
func (p *Process) Name() string {
	return p.name
}

// PID returns the OS process ID, or -1 if not started.
func (p *Process) PID() int {
	if p.cmd.Process == nil {
		return -1
	}
	return p.cmd.Process.Pid
}

// State returns the current process state.
func (p *Process) State() State {
	return State(p.state.Load())
}

// Done returns a channel that is closed when the process exits.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Err returns the error from waiting on the process.
// It is nil while running and after a clean exit.
func (p *Process) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.exitErr
}

func (p *Process) exited() bool {
	s := p.State()
	return s == StateExited || s == StateKilled
}

// Terminate sends an interrupt and waits for the process to exit.
// Platforms without interrupt delivery get a kill instead. When ctx expires
// before the exit, the process is killed and Terminate still waits for it.
func (p *Process) Terminate(ctx context.Context) error {
	if p.cmd.Process == nil {
		return ErrNotStarted
	}
	if p.exited() {
		return nil
	}

	if err := p.interrupt(); err != nil {
		p.logger.Debug("Interrupt failed, killing", "name", p.name, "pid", p.PID(), "err", err)
		_ = p.cmd.Process.Kill()
	}

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		p.logger.Warn("Process ignored interrupt, killing", "name", p.name, "pid", p.PID())
		_ = p.cmd.Process.Kill()
		<-p.done
		return nil
	}
}

func (p *Process) interrupt() error {
	if runtime.GOOS == "windows" {
		return errors.New("interrupt not supported on windows")
	}
	return p.cmd.Process.Signal(os.Interrupt)
}

func (p *Process) start() error {
	if err := p.cmd.Start(); err != nil {
		return err
	}
	p.state.Store(int32(StateRunning))

	go p.wait()
	return nil
}

// wait reaps the process; exec.Cmd.Wait also drains the output copiers.
func (p *Process) wait() {
	err := p.cmd.Wait()

	p.mu.Lock()
	p.exitErr = err
	p.mu.Unlock()

	state := StateExited
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == -1 {
		state = StateKilled
	}
	p.state.Store(int32(state))

	p.logger.Debug("Process exited", "name", p.name, "pid", p.PID(), "state", state, "err", err)
	close(p.done)
}
