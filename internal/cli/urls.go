package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/umlpreview/pkg/domain"
	"github.com/aretw0/umlpreview/pkg/source"
	"github.com/aretw0/umlpreview/pkg/urlmaker"
)

// URLOptions configures the urls command.
type URLOptions struct {
	Options

	Files  []string
	Format string
}

// RunURLs prints a server link per diagram page. When a diagram renders
// through a spawned server, the server is started and kept running until ctx
// is done, so that the links stay reachable.
func RunURLs(ctx context.Context, opts URLOptions) error {
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
		diagrams = append(diagrams, ds...)
	}

	maker := urlmaker.NewMaker(e.session.Settings, e.session)
	urls, err := maker.MakeDiagramURLs(ctx, diagrams, opts.Format)
	if err != nil {
		return err
	}
	printURLs(os.Stdout, urls)

	if e.session.Servers().Running() {
		printSystemMessage(os.Stdout, "Local server running, press Ctrl+C to stop it.")
		<-ctx.Done()
	}
	return nil
}

func printURLs(w io.Writer, urls []urlmaker.DiagramURL) {
	for _, u := range urls {
		if len(u.URLs) == 1 {
			fmt.Fprintf(w, "%s: %s\n", u.Name, u.URLs[0])
			continue
		}
		for i, link := range u.URLs {
			fmt.Fprintf(w, "%s [%d]: %s\n", u.Name, i, link)
		}
	}
}
