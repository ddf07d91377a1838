package ports

import (
	"context"
	"io"
)

// ProcessSpec describes an OS process to spawn.
type ProcessSpec struct {
	Name    string
	Command string
	Args    []string
	Dir     string

	// Stdin is written to the process and closed. May be nil.
	Stdin io.Reader

	// Stdout and Stderr receive the process output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// Process is a handle on a spawned OS process.
type Process interface {
	// ID is a unique identifier assigned at spawn time.
	ID() string

	// PID returns the OS process id, or -1 if unknown.
	PID() int

	// Done is closed once the process has exited and its output is drained.
	Done() <-chan struct{}

	// Err returns the wait error after Done is closed.
	Err() error

	// Terminate sends an interrupt signal and blocks until the process exits.
	// If ctx expires first, the process is killed and Terminate still waits for the exit.
	Terminate(ctx context.Context) error
}

// Spawner starts OS processes. Tests substitute a fake implementation.
type Spawner interface {
	Spawn(spec ProcessSpec) (Process, error)
}
