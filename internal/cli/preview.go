package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/umlpreview/internal/presentation/tui"
	"github.com/aretw0/umlpreview/pkg/adapters/web"
	"github.com/aretw0/umlpreview/pkg/preview"
	"github.com/aretw0/umlpreview/pkg/source"
	"github.com/fsnotify/fsnotify"
)

// PreviewOptions configures the preview command.
type PreviewOptions struct {
	Options

	File string
	// Line selects the diagram under this zero-based line. Negative selects the first.
	Line   int
	Page   int
	Format string
	// Addr is where the web preview listens.
	Addr  string
	Quiet bool
	// Commands, when set, is read for cursor commands such as "line 12".
	Commands io.Reader
}

// RunPreview watches a file and keeps its current diagram rendered, serving
// the result on a web page and printing status lines to the terminal.
func RunPreview(ctx context.Context, opts PreviewOptions) error {
	e, err := setup(opts.Options)
	if err != nil {
		return err
	}
	shutdownCtx := context.WithoutCancel(ctx)
	defer func() {
		_ = e.Close(shutdownCtx)
	}()

	src, err := source.NewFile(opts.File)
	if err != nil {
		return err
	}
	if _, err := os.Stat(src.Path()); err != nil {
		return err
	}
	src.SetLine(opts.Line)
	src.SetPage(opts.Page)

	hub := web.NewHub(e.logger)
	presenters := fanout{hub}
	if !opts.Quiet {
		tui.PrintBanner(os.Stdout, opts.Version)
		presenters = append(presenters, tui.NewPresenter(os.Stdout))
	}

	controller := preview.NewController(e.session, src, presenters,
		preview.WithFormat(opts.Format),
		preview.WithLogger(e.logger),
		preview.WithReporter(func(err error) {
			e.logger.Error("Preview failed", "err", err)
		}),
	)
	watcher := preview.NewWatcher(controller)
	defer watcher.Stop()

	listener, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler: web.NewHandler(hub, controller,
			web.WithMetrics(e.metrics),
			web.WithVersion(opts.Version),
			web.WithLogger(e.logger),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Serve(listener)
	}()
	if !opts.Quiet {
		printSystemMessage(os.Stdout, "Previewing %s at http://%s", src.Path(), listener.Addr())
	}

	watchErrors := make(chan error, 1)
	go func() {
		watchErrors <- watchFile(ctx, src.Path(), watcher.ContentChanged, e.logger)
	}()

	if err := controller.Open(ctx); err != nil {
		e.logger.Error("Initial render failed", "err", err)
	}

	if opts.Commands != nil {
		cmds := &commander{
			src:      src,
			selected: watcher.SelectionChanged,
			refresh: func(ctx context.Context) error {
				return controller.Update(ctx, true)
			},
			out: os.Stdout,
		}
		go func() {
			if err := cmds.run(ctx, opts.Commands); err != nil {
				e.logger.Warn("Reading commands failed", "err", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		if sc, ok := ctx.(*SignalContext); ok && sc.Signal() != nil && !opts.Quiet {
			printSystemMessage(os.Stdout, "Received %s, shutting down", sc.Signal())
		}
	case err = <-serverErrors:
	case err = <-watchErrors:
	}

	watcher.Stop()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		e.logger.Warn("Web preview did not shut down cleanly", "err", serr)
	}
	if cerr := controller.Close(shutdownCtx); cerr != nil {
		e.logger.Warn("Terminating the running render failed", "err", cerr)
	}
	if errors.Is(err, http.ErrServerClosed) || errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

// fanout shows each view on several presenters.
type fanout []preview.Presenter

func (f fanout) Show(v preview.View) error {
	var errs []error
	for _, p := range f {
		if err := p.Show(v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// watchFile calls onChange whenever path is written, until ctx is done.
// The parent directory is watched so that editors replacing the file through
// a rename are followed.
func watchFile(ctx context.Context, path string, onChange func(), logger *slog.Logger) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				logger.Debug("Change detected", "file", event.Name, "op", event.Op.String())
				onChange()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error", "err", err)
		}
	}
}
