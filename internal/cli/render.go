package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/aretw0/umlpreview/pkg/domain"
	"github.com/aretw0/umlpreview/pkg/render"
	"github.com/aretw0/umlpreview/pkg/source"
	"golang.org/x/sync/errgroup"
)

// RenderOptions configures the render command.
type RenderOptions struct {
	Options

	Files  []string
	Format string
	// OutDir receives the exported files. Empty means next to each source.
	OutDir string
	// Map exports the image map data instead of images.
	Map bool
}

// RunRender exports every diagram of the given files.
func RunRender(ctx context.Context, opts RenderOptions) error {
	e, err := setup(opts.Options)
	if err != nil {
		return err
	}
	defer func() {
		_ = e.Close(context.WithoutCancel(ctx))
	}()

	var diagrams []*domain.Diagram
	for _, path := range opts.Files {
		f, err := source.NewFile(path)
		if err != nil {
			return err
		}
		ds, err := f.Diagrams()
		if err != nil {
			return err
		}
		if len(ds) == 0 {
			e.logger.Warn("No diagram found", "file", path)
		}
		diagrams = append(diagrams, ds...)
	}

	exporter := &exporter{
		session: e.session,
		format:  opts.Format,
		outDir:  opts.OutDir,
		mapData: opts.Map,
		out:     os.Stdout,
	}
	return exporter.Export(ctx, diagrams)
}

// exporter writes diagrams to files, one task per diagram. Strategies that
// limit concurrency run their tasks one after another.
type exporter struct {
	session *render.Session
	format  string
	outDir  string
	mapData bool
	out     io.Writer
}

// errSameDestination is returned when two diagrams would be written to the
// same file.
var errSameDestination = errors.New("diagrams share an output file")

func (x *exporter) Export(ctx context.Context, diagrams []*domain.Diagram) error {
	var sequential, parallel []*domain.Diagram
	written := make(map[string]*domain.Diagram, len(diagrams))
	for _, d := range diagrams {
		path := x.destination(d)
		if prev, ok := written[path]; ok {
			return fmt.Errorf("%w: %s (%s) and %s (%s) both export to %s",
				errSameDestination, prev.Name, prev.Location, d.Name, d.Location, path)
		}
		written[path] = d

		r := x.session.Renderer(d.Location)
		if !x.mapData && !slices.Contains(r.Formats(), x.format) {
			return fmt.Errorf("%w: %q with %s", domain.ErrUnsupportedFormat, x.format, x.session.Settings(d.Location).Render)
		}
		if r.LimitConcurrency() {
			sequential = append(sequential, d)
		} else {
			parallel = append(parallel, d)
		}
	}

	var errs []error
	for _, d := range sequential {
		if err := x.export(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	results := make([]error, len(parallel))
	for i, d := range parallel {
		g.Go(func() error {
			results[i] = x.export(gctx, d)
			return nil
		})
	}
	_ = g.Wait()
	for _, err := range results {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (x *exporter) export(ctx context.Context, d *domain.Diagram) error {
	path := x.destination(d)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	var task *render.Task
	if x.mapData {
		task = x.session.RenderMap(ctx, d, path)
	} else {
		task = x.session.Render(ctx, d, x.format, path)
	}
	pages, err := task.Wait(ctx)
	if ctx.Err() != nil {
		task.Cancel()
		_ = task.Terminate(context.WithoutCancel(ctx))
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%s: %w", d.Name, err)
	}
	for i := range pages {
		printSystemMessage(x.out, "%s", domain.AddFileIndex(path, i, len(pages)))
	}
	return nil
}

func (x *exporter) destination(d *domain.Diagram) string {
	dir := x.outDir
	if dir == "" {
		dir = d.Dir()
	}
	ext := extension(x.format)
	if x.mapData {
		ext = "cmapx"
	}
	return filepath.Join(dir, d.Name+"."+ext)
}

// extension maps an engine format to a file extension.
func extension(format string) string {
	switch format {
	case "latex", "latex:nopreamble":
		return "tex"
	case "utxt":
		return "txt"
	default:
		return format
	}
}
