package preview

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultDelay is how long after an edit the watcher looks again.
	DefaultDelay = 500 * time.Millisecond
	// DefaultQuiet is how long edits must have stopped before updating.
	DefaultQuiet = 400 * time.Millisecond
)

// Watcher turns bursts of content and selection changes into single updates.
type Watcher struct {
	controller *Controller
	delay      time.Duration
	quiet      time.Duration

	mu        sync.Mutex
	last      time.Time
	timer     *time.Timer
	selection bool
	stopped   bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce overrides the default timings.
func WithDebounce(delay, quiet time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.delay = delay
		w.quiet = quiet
	}
}

// NewWatcher creates a Watcher driving controller.
func NewWatcher(controller *Controller, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		controller: controller,
		delay:      DefaultDelay,
		quiet:      DefaultQuiet,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ContentChanged reports an edit. The preview updates once edits settle and
// a diagram is under the cursor.
func (w *Watcher) ContentChanged() {
	w.schedule(false)
}

// SelectionChanged reports a cursor move. The preview updates once moves
// settle on a different diagram. A move anywhere in a burst of edits makes
// the whole burst update on a new target only.
func (w *Watcher) SelectionChanged() {
	w.schedule(true)
}

// Stop cancels pending updates. Later events are ignored.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) schedule(selection bool) {
	if !w.controller.AutoUpdate() {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.last = time.Now()
	w.selection = w.selection || selection

	// Each event restarts the timer, so a burst yields one check.
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	if w.stopped || time.Since(w.last) < w.quiet {
		w.mu.Unlock()
		return
	}
	selection := w.selection
	w.selection = false
	w.mu.Unlock()

	if !w.ready(selection) {
		return
	}
	if err := w.controller.Update(context.Background(), true); err != nil {
		w.controller.report(err)
	}
}

func (w *Watcher) ready(selection bool) bool {
	if selection {
		return w.controller.TargetChanged()
	}
	_, ok := w.controller.source.Current()
	return ok
}
