// Package preview keeps a live preview in sync with the diagram under the cursor.
//
// The Controller owns at most one render task at a time. Starting a new render
// first cancels the current task and waits until every process it spawned has
// exited, so two renders never race for the same view.
package preview

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/umlpreview/internal/logging"
	"github.com/aretw0/umlpreview/pkg/domain"
	"github.com/aretw0/umlpreview/pkg/ports"
	"github.com/aretw0/umlpreview/pkg/render"
)

// DefaultFormat is the format used for previews.
const DefaultFormat = "svg"

// Dispatcher starts renders. *render.Session implements it.
type Dispatcher interface {
	Render(ctx context.Context, d *domain.Diagram, format, savePath string) *render.Task
	Settings(location string) domain.Settings
}

// Controller coordinates render tasks and the presented view.
type Controller struct {
	dispatcher Dispatcher
	source     ports.DiagramSource
	presenter  Presenter
	format     string
	report     func(error)
	logger     *slog.Logger

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu       sync.Mutex
	task     *render.Task
	killing  bool
	closed   bool
	rendered *domain.Diagram
	current  *domain.Diagram

	status     Status
	images     [][]byte
	errMsg     string
	errImage   []byte
	pageStatus string
	seq        uint64
	pending    []View

	// presentMu is held by the goroutine draining pending. Views reach the
	// presenter in publication order and mu is never held while it runs.
	presentMu sync.Mutex
}

// Option configures a Controller.
type Option func(*Controller)

// WithFormat sets the preview format. Empty keeps DefaultFormat.
func WithFormat(format string) Option {
	return func(c *Controller) {
		if format != "" {
			c.format = format
		}
	}
}

// WithReporter sets where errors of background work are sent.
func WithReporter(report func(error)) Option {
	return func(c *Controller) {
		c.report = report
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController creates a Controller.
func NewController(dispatcher Dispatcher, source ports.DiagramSource, presenter Presenter, opts ...Option) *Controller {
	c := &Controller{
		dispatcher: dispatcher,
		source:     source,
		presenter:  presenter,
		format:     DefaultFormat,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.report == nil {
		c.report = func(err error) {
			c.logger.Error("Preview failed", "error", err)
		}
	}
	c.ctx, c.stop = context.WithCancel(context.Background())
	return c
}

// Open resets the preview and renders the current diagram with a processing tip.
func (c *Controller) Open(ctx context.Context) error {
	c.Reset()
	c.TargetChanged()
	return c.Update(ctx, true)
}

// Update re-renders the current diagram.
//
// The call is dropped while a previous task is still being torn down. Otherwise
// the current task is canceled and its processes are reaped before the next
// render is dispatched. Update returns once the render is dispatched; its
// outcome reaches the presenter, and failures outside the render itself reach
// the reporter.
func (c *Controller) Update(ctx context.Context, processingTip bool) error {
	c.mu.Lock()
	if c.killing || c.closed {
		c.mu.Unlock()
		return nil
	}

	if task := c.task; task != nil {
		task.Cancel()
		c.killing = true
		c.mu.Unlock()

		err := task.Terminate(ctx)

		c.mu.Lock()
		c.killing = false
		if c.task == task {
			c.task = nil
		}
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("failed to stop previous render: %w", err)
		}
		if c.closed {
			c.mu.Unlock()
			return nil
		}
	}

	c.dispatchLocked(processingTip)
	return nil
}

// dispatchLocked must be called with c.mu held and releases it.
func (c *Controller) dispatchLocked(processingTip bool) {
	d, ok := c.source.Current()
	if !ok {
		c.status = StatusError
		c.errMsg = domain.ErrNoDiagram.Error()
		c.errImage = nil
		c.images = nil
		c.publishLocked()
		return
	}

	task := c.dispatcher.Render(c.ctx, d, c.format, "")
	c.task = task
	c.current = d
	c.logger.Debug("Render dispatched", "task", task.ID, "diagram", d.Name, "processes", len(task.Processes))

	c.wg.Add(1)
	go c.await(task)

	if processingTip {
		c.status = StatusProcessing
		c.publishLocked()
		return
	}
	c.mu.Unlock()
}

func (c *Controller) await(task *render.Task) {
	defer c.wg.Done()
	<-task.Done()
	pages, err := task.Result()

	c.mu.Lock()
	if task.Canceled() {
		c.mu.Unlock()
		return
	}
	if c.task == task {
		c.task = nil
	}

	if err != nil {
		exp := domain.AsExportError(err)
		if exp.Message == "" && len(exp.Out) == 0 {
			c.mu.Unlock()
			return
		}
		c.status = StatusError
		c.errMsg = exp.Message
		c.errImage = exp.Out
	} else {
		c.status = StatusDefault
		c.errMsg = ""
		c.errImage = nil
		c.images = pages
	}
	c.publishLocked()
}

// TargetChanged reports whether the diagram under the cursor differs from the
// last one tracked. On a change the new diagram becomes the tracked one and
// the previous image, error and page status are cleared.
func (c *Controller) TargetChanged() bool {
	d, ok := c.source.Current()
	if !ok {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	changed := c.rendered == nil || !c.rendered.Equal(d)
	if changed {
		c.rendered = d
		c.errMsg = ""
		c.errImage = nil
		c.images = nil
		c.pageStatus = ""
	}
	return changed
}

// Reset forgets the tracked diagram and clears the presented state.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rendered = nil
	c.pageStatus = ""
	c.images = nil
	c.errMsg = ""
	c.errImage = nil
}

// SetPageStatus stores state reported by the preview page.
// It is handed back in the next view.
func (c *Controller) SetPageStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pageStatus = status
}

// AutoUpdate reports whether the current diagram's settings enable auto-update.
func (c *Controller) AutoUpdate() bool {
	location := ""
	if d, ok := c.source.Current(); ok {
		location = d.Location
	}
	return c.dispatcher.Settings(location).AutoUpdate
}

// View returns the current view without publishing it.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close cancels the current task, reaps its processes and waits for
// background work to finish. Later updates are ignored.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	task := c.task
	c.task = nil
	if task != nil {
		task.Cancel()
	}
	c.mu.Unlock()

	var err error
	if task != nil {
		err = task.Terminate(ctx)
	}
	c.stop()
	c.wg.Wait()
	return err
}

// Wait blocks until every dispatched task has been handled and every
// published view has been shown.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) snapshotLocked() View {
	v := View{
		Seq:        c.seq,
		Status:     c.status,
		Format:     c.format,
		Images:     c.images,
		PageStatus: c.pageStatus,
	}
	d := c.current
	if d == nil {
		d = c.rendered
	}
	location := ""
	if d != nil {
		v.Diagram = d.Name
		v.Page = d.Page
		location = d.Location
	}
	if c.status != StatusProcessing {
		v.Error = c.errMsg
		v.ErrorImage = c.errImage
	}
	v.ShowSpinner = c.status == StatusProcessing
	v.ShowSnapIndicators = c.dispatcher.Settings(location).SnapIndicators
	return v
}

// publishLocked must be called with c.mu held and releases it.
func (c *Controller) publishLocked() {
	c.seq++
	c.pending = append(c.pending, c.snapshotLocked())
	c.wg.Add(1)
	c.mu.Unlock()
	c.flush()
}

// flush shows pending views unless another goroutine is already doing so.
// A presenter publishing from Show queues its view behind the current one.
func (c *Controller) flush() {
	for c.presentMu.TryLock() {
		for {
			v, ok := c.next()
			if !ok {
				break
			}
			c.present(v)
			c.wg.Done()
		}
		c.presentMu.Unlock()

		// A view queued between the last check and the unlock is ours to show.
		c.mu.Lock()
		more := len(c.pending) > 0
		c.mu.Unlock()
		if !more {
			return
		}
	}
}

func (c *Controller) next() (View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return View{}, false
	}
	v := c.pending[0]
	c.pending = c.pending[1:]
	return v, true
}

func (c *Controller) present(v View) {
	defer func() {
		if r := recover(); r != nil {
			c.report(fmt.Errorf("presenter panic: %v", r))
		}
	}()
	if err := c.presenter.Show(v); err != nil {
		c.report(fmt.Errorf("failed to show preview: %w", err))
	}
}
