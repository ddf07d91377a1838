package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/umlpreview/pkg/domain"
	"github.com/aretw0/umlpreview/pkg/observability"
	"github.com/aretw0/umlpreview/pkg/ports"
	"golang.org/x/sync/errgroup"
)

// MapFormat is the pseudo format that exports clickable map data instead of an image.
const MapFormat = "map"

// Renderer turns a diagram into one output buffer per page.
type Renderer interface {
	// Render dispatches the render and returns at once. When savePath is set,
	// page i is also written to domain.AddFileIndex(savePath, i, pages).
	Render(ctx context.Context, d *domain.Diagram, format, savePath string) *Task

	// RenderMap exports the map data of d.
	RenderMap(ctx context.Context, d *domain.Diagram, savePath string) *Task

	// Formats lists the supported output formats.
	Formats() []string

	// LimitConcurrency reports whether callers should avoid rendering many
	// diagrams at once with this renderer.
	LimitConcurrency() bool
}

var (
	localFormats  = []string{"png", "svg", "eps", "pdf", "vdx", "xmi", "scxml", "html", "txt", "utxt", "latex", "latex:nopreamble"}
	serverFormats = []string{"png", "svg", "txt"}
)

// localRenderer runs one engine process per page.
type localRenderer struct {
	session *Session
}

func (r *localRenderer) Formats() []string      { return slices.Clone(localFormats) }
func (r *localRenderer) LimitConcurrency() bool { return true }

func (r *localRenderer) Render(ctx context.Context, d *domain.Diagram, format, savePath string) *Task {
	if !slices.Contains(localFormats, format) {
		return Rejected(fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format))
	}
	return r.render(ctx, d, format, savePath)
}

func (r *localRenderer) RenderMap(ctx context.Context, d *domain.Diagram, savePath string) *Task {
	return r.render(ctx, d, MapFormat, savePath)
}

type pageOutput struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func (r *localRenderer) render(ctx context.Context, d *domain.Diagram, format, savePath string) *Task {
	s := r.session.Settings(d.Location)
	if s.Jar == "" {
		return Rejected(domain.ErrNoEngine)
	}

	java := s.Java
	if java == "" {
		java = "java"
	}

	n := d.Pages()
	processes := make([]ports.Process, 0, n)
	outputs := make([]*pageOutput, n)

	for i := 0; i < n; i++ {
		out := &pageOutput{}
		args := []string{"-Djava.awt.headless=true", "-jar", s.Jar}
		args = append(args, s.JarArgs...)
		args = append(args,
			"-pipe",
			"-t"+format,
			"-charset", "utf-8",
			"-pipeimageindex", strconv.Itoa(i),
		)

		p, err := r.session.spawner.Spawn(ports.ProcessSpec{
			Name:    fmt.Sprintf("plantuml-page-%d", i),
			Command: java,
			Args:    args,
			Dir:     d.Dir(),
			Stdin:   strings.NewReader(d.Content),
			Stdout:  &out.stdout,
			Stderr:  &out.stderr,
		})
		if err != nil {
			// Reap what was already started before reporting.
			partial := newTask(processes, nil)
			if termErr := partial.Terminate(context.Background()); termErr != nil {
				r.session.logger.Warn("Failed to stop engine processes", "error", termErr)
			}
			return Rejected(fmt.Errorf("start engine for page %d: %w", i, err))
		}
		r.session.metrics.ProcessSpawned("engine")
		processes = append(processes, p)
		outputs[i] = out
	}

	task := newTask(processes, nil)
	started := time.Now()

	go func() {
		var g errgroup.Group
		pages := make([][]byte, n)
		for i, p := range processes {
			g.Go(func() error {
				<-p.Done()
				out := outputs[i]
				if err := p.Err(); err != nil || out.stderr.Len() > 0 {
					msg := strings.TrimSpace(out.stderr.String())
					if msg == "" {
						msg = err.Error()
					}
					return &domain.ExportError{Message: msg, Out: out.stdout.Bytes(), Err: err}
				}
				pages[i] = out.stdout.Bytes()
				return writePage(savePath, i, n, pages[i])
			})
		}
		err := g.Wait()
		task.settle(pages, err)
		r.session.finished(task, domain.StrategyLocal, started, err)
	}()

	return task
}

// serverRenderer talks HTTP to a rendering server. When owned is set the
// server is spawned and managed by the session.
type serverRenderer struct {
	session *Session
	owned   bool
}

func (r *serverRenderer) Formats() []string      { return slices.Clone(serverFormats) }
func (r *serverRenderer) LimitConcurrency() bool { return false }

func (r *serverRenderer) strategy() domain.Strategy {
	if r.owned {
		return domain.StrategyLocalServer
	}
	return domain.StrategyServer
}

func (r *serverRenderer) Render(ctx context.Context, d *domain.Diagram, format, savePath string) *Task {
	if !slices.Contains(serverFormats, format) {
		return Rejected(fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format))
	}
	return r.render(ctx, d, format, savePath)
}

func (r *serverRenderer) RenderMap(ctx context.Context, d *domain.Diagram, savePath string) *Task {
	return r.render(ctx, d, MapFormat, savePath)
}

func (r *serverRenderer) render(ctx context.Context, d *domain.Diagram, format, savePath string) *Task {
	server := r.session.Settings(d.Location).Server
	if server == "" {
		return Rejected(domain.ErrNoServer)
	}

	var ready *Readiness
	if r.owned {
		ready = r.session.servers.Start(d)
	}

	taskCtx, abort := context.WithCancel(ctx)
	task := newTask(nil, abort)
	started := time.Now()

	go func() {
		defer abort()

		n := d.Pages()
		pages := make([][]byte, n)
		g, gctx := errgroup.WithContext(taskCtx)
		for i := 0; i < n; i++ {
			g.Go(func() error {
				if ready != nil {
					if err := ready.Wait(gctx); err != nil {
						return err
					}
				}
				buf, err := r.session.negotiator.Fetch(gctx, server, d, format, i)
				if err != nil {
					return err
				}
				pages[i] = buf
				return writePage(savePath, i, n, buf)
			})
		}
		err := g.Wait()
		task.settle(pages, err)
		r.session.finished(task, r.strategy(), started, err)
	}()

	return task
}

func writePage(savePath string, index, count int, buf []byte) error {
	if savePath == "" {
		return nil
	}
	path := domain.AddFileIndex(savePath, index, count)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func outcome(task *Task, err error) string {
	switch {
	case task.Canceled():
		return observability.OutcomeCanceled
	case err != nil:
		return observability.OutcomeError
	default:
		return observability.OutcomeSuccess
	}
}
