// Package cli implements the umlpreview commands on top of the render core.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/umlpreview/internal/logging"
	"github.com/aretw0/umlpreview/pkg/adapters/http"
	"github.com/aretw0/umlpreview/pkg/adapters/process"
	"github.com/aretw0/umlpreview/pkg/adapters/redis"
	"github.com/aretw0/umlpreview/pkg/config"
	"github.com/aretw0/umlpreview/pkg/observability"
	"github.com/aretw0/umlpreview/pkg/render"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
				// Context cancelled elsewhere
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// Options are shared by every command.
type Options struct {
	// ConfigPath is the settings file. Empty means config.DefaultFile.
	ConfigPath string
	// LogLevel overrides the level from the settings file.
	LogLevel string
	// Version is reported by the web preview and the MCP server.
	Version string
}

// env is what every command builds before doing its work.
type env struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	session *render.Session
	closers []io.Closer
}

// setup loads the configuration and builds the render session.
func setup(opts Options) (*env, error) {
	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultFile
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logger, err := createLogger(opts.LogLevel, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	e := &env{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewMetrics(),
	}
	sessionOpts := []render.Option{
		render.WithLogger(logger),
		render.WithMetrics(e.metrics),
		render.WithSpawner(process.NewSpawner(
			process.WithEnv(cfg.Env...),
			process.WithLogger(logger),
		)),
		render.WithTransport(http.NewClient(
			http.WithTimeout(cfg.RequestTimeout),
			http.WithLogger(logger),
		)),
	}
	if cfg.Facts != "" {
		facts, err := redis.NewFromURL(cfg.Facts)
		if err != nil {
			return nil, fmt.Errorf("invalid facts store: %w", err)
		}
		e.closers = append(e.closers, facts)
		sessionOpts = append(sessionOpts, render.WithFactStore(facts))
		logger.Debug("Sharing server facts through redis")
	}
	e.session = render.NewSession(cfg, sessionOpts...)
	return e, nil
}

// Close stops the session owned server and releases the stores.
func (e *env) Close(ctx context.Context) error {
	err := e.session.Close(ctx)
	for _, c := range e.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// createLogger configures the application logger. The flag wins over the
// settings file. Logs go to Stderr, keeping Stdout for rendered output.
func createLogger(flag, file string) (*slog.Logger, error) {
	name := flag
	if name == "" {
		name = file
	}
	if name == "" || name == "off" {
		return logging.NewNop(), nil
	}
	level, err := logging.ParseLevel(name)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}

// printSystemMessage prints a standardized system message to w.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}
