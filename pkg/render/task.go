package render

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/aretw0/umlpreview/pkg/ports"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Task is one in-flight or completed render operation.
//
// Processes is fixed when the task is dispatched. A Task settles exactly once
// and is never reused. The settlement of a canceled task carries no meaning and
// consumers must ignore it.
type Task struct {
	ID        string
	Processes []ports.Process

	canceled atomic.Bool
	abort    context.CancelFunc

	done  chan struct{}
	once  sync.Once
	pages [][]byte
	err   error
}

func newTask(processes []ports.Process, abort context.CancelFunc) *Task {
	return &Task{
		ID:        uuid.NewString(),
		Processes: processes,
		abort:     abort,
		done:      make(chan struct{}),
	}
}

// Rejected returns a task that has already failed with err, with no processes.
func Rejected(err error) *Task {
	t := newTask(nil, nil)
	t.settle(nil, err)
	return t
}

// Cancel sets the cancellation flag and aborts in-flight requests.
// It reports whether this call was the one that set the flag.
// Processes are not touched; see Terminate.
func (t *Task) Cancel() bool {
	if !t.canceled.CompareAndSwap(false, true) {
		return false
	}
	if t.abort != nil {
		t.abort()
	}
	return true
}

// Canceled reports whether Cancel was called.
func (t *Task) Canceled() bool {
	return t.canceled.Load()
}

// Terminate signals every process of the task and waits until all have exited.
func (t *Task) Terminate(ctx context.Context) error {
	var g errgroup.Group
	for _, p := range t.Processes {
		g.Go(func() error {
			return p.Terminate(ctx)
		})
	}
	return g.Wait()
}

// Done is closed once the task has settled.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task settles or ctx expires.
func (t *Task) Wait(ctx context.Context) ([][]byte, error) {
	select {
	case <-t.done:
		return t.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the settlement: one buffer per page in page order, or an error.
// It must only be called after Done is closed.
func (t *Task) Result() ([][]byte, error) {
	return t.pages, t.err
}

func (t *Task) settle(pages [][]byte, err error) {
	t.once.Do(func() {
		if err != nil {
			pages = nil
		}
		t.pages = pages
		t.err = err
		close(t.done)
	})
}
