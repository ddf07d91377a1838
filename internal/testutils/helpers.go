package testutils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aretw0/umlpreview/pkg/domain"
	"github.com/aretw0/umlpreview/pkg/ports"
)

// ErrInterrupted is the exit error of a FakeProcess stopped through Terminate.
var ErrInterrupted = errors.New("signal: interrupt")

// Recorder collects ordered events from test doubles.
type Recorder struct {
	mu     sync.Mutex
	events []string
}

// Record appends an event.
func (r *Recorder) Record(format string, args ...any) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

// FakeProcess is an in-memory ports.Process.
type FakeProcess struct {
	Spec ports.ProcessSpec

	id       string
	recorder *Recorder
	done     chan struct{}
	once     sync.Once
	mu       sync.Mutex
	err      error

	// HoldTerminate, when set, delays the exit caused by Terminate until it is closed.
	HoldTerminate chan struct{}
}

// NewFakeProcess creates a running fake process.
func NewFakeProcess(id string, spec ports.ProcessSpec, recorder *Recorder) *FakeProcess {
	return &FakeProcess{
		Spec:     spec,
		id:       id,
		recorder: recorder,
		done:     make(chan struct{}),
	}
}

func (p *FakeProcess) ID() string            { return p.id }
func (p *FakeProcess) PID() int              { return -1 }
func (p *FakeProcess) Done() <-chan struct{} { return p.done }

func (p *FakeProcess) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Exited reports whether the process has exited.
func (p *FakeProcess) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Stdout writes s to the process stdout, if any.
func (p *FakeProcess) Stdout(s string) {
	if p.Spec.Stdout != nil {
		_, _ = io.WriteString(p.Spec.Stdout, s)
	}
}

// Stderr writes s to the process stderr, if any.
func (p *FakeProcess) Stderr(s string) {
	if p.Spec.Stderr != nil {
		_, _ = io.WriteString(p.Spec.Stderr, s)
	}
}

// Exit marks the process as exited with err. Later calls are no-ops.
func (p *FakeProcess) Exit(err error) {
	p.once.Do(func() {
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		p.recorder.Record("exit:%s", p.id)
		close(p.done)
	})
}

// Terminate records the signal, then exits the process and waits for it.
func (p *FakeProcess) Terminate(ctx context.Context) error {
	p.recorder.Record("terminate:%s", p.id)
	go func() {
		if p.HoldTerminate != nil {
			<-p.HoldTerminate
		}
		p.Exit(ErrInterrupted)
	}()
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FakeSpawner is an in-memory ports.Spawner.
type FakeSpawner struct {
	Recorder *Recorder

	// OnSpawn runs synchronously for each new process, after it is recorded.
	OnSpawn func(p *FakeProcess)

	// Err makes every Spawn fail.
	Err error

	mu      sync.Mutex
	spawned []*FakeProcess
}

// Spawn implements ports.Spawner.
func (s *FakeSpawner) Spawn(spec ports.ProcessSpec) (ports.Process, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	id := fmt.Sprintf("%s#%d", spec.Name, len(s.spawned))
	p := NewFakeProcess(id, spec, s.Recorder)
	s.spawned = append(s.spawned, p)
	s.mu.Unlock()

	s.Recorder.Record("spawn:%s", id)
	if s.OnSpawn != nil {
		s.OnSpawn(p)
	}
	return p, nil
}

// Spawned returns the processes spawned so far.
func (s *FakeSpawner) Spawned() []*FakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*FakeProcess, len(s.spawned))
	copy(out, s.spawned)
	return out
}

// Count returns the number of spawned processes.
func (s *FakeSpawner) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spawned)
}

// TransportCall is one recorded FakeTransport request.
type TransportCall struct {
	Method ports.Method
	Server string
	Format string
	Page   int
}

// FakeTransport is an in-memory ports.Transport.
type FakeTransport struct {
	// Handler answers each call. A nil Handler returns "page-<n>".
	Handler func(ctx context.Context, call TransportCall) ([]byte, error)

	mu    sync.Mutex
	calls []TransportCall
}

// Fetch implements ports.Transport.
func (t *FakeTransport) Fetch(ctx context.Context, method ports.Method, server string, d *domain.Diagram, format string, page int) ([]byte, error) {
	call := TransportCall{Method: method, Server: server, Format: format, Page: page}
	t.mu.Lock()
	t.calls = append(t.calls, call)
	t.mu.Unlock()

	if t.Handler == nil {
		return []byte(fmt.Sprintf("page-%d", page)), nil
	}
	return t.Handler(ctx, call)
}

// Calls returns the recorded calls.
func (t *FakeTransport) Calls() []TransportCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TransportCall, len(t.calls))
	copy(out, t.calls)
	return out
}

// Count returns how many calls used method.
func (t *FakeTransport) Count(method ports.Method) int {
	n := 0
	for _, c := range t.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Rejection builds the response-level error a server returns for an unsupported method.
func Rejection(method ports.Method, server string) error {
	return &domain.HTTPError{
		Method:        string(method),
		URL:           server,
		StatusCode:    405,
		ResponseError: true,
	}
}
