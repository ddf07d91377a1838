package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/umlpreview/internal/logging"
	"github.com/aretw0/umlpreview/internal/testutils"
	"github.com/aretw0/umlpreview/pkg/domain"
	"github.com/aretw0/umlpreview/pkg/ports"
	"github.com/aretw0/umlpreview/pkg/preview"
	"github.com/aretw0/umlpreview/pkg/render"
	"github.com/aretw0/umlpreview/pkg/source"
	"github.com/aretw0/umlpreview/pkg/urlmaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const document = `@startuml first
A -> B
@enduml

@startuml second
C -> D
newpage
D -> C
@enduml
`

func writeDocument(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.puml")
	require.NoError(t, os.WriteFile(path, []byte(document), 0o644))
	return path
}

func diagramsOf(t *testing.T, path string) []*domain.Diagram {
	t.Helper()
	f, err := source.NewFile(path)
	require.NoError(t, err)
	ds, err := f.Diagrams()
	require.NoError(t, err)
	require.Len(t, ds, 2)
	return ds
}

func staticSettings(strategy domain.Strategy) ports.StaticSettings {
	s := domain.DefaultSettings()
	s.Render = strategy
	s.Server = "http://render.test"
	s.Jar = "/opt/plantuml.jar"
	return ports.StaticSettings(s)
}

func TestExporter(t *testing.T) {
	t.Run("server strategy writes every page", func(t *testing.T) {
		out := t.TempDir()
		session := render.NewSession(staticSettings(domain.StrategyServer), render.WithTransport(&testutils.FakeTransport{}))
		var log bytes.Buffer
		x := &exporter{session: session, format: "svg", outDir: out, out: &log}

		require.NoError(t, x.Export(context.Background(), diagramsOf(t, writeDocument(t))))

		first, err := os.ReadFile(filepath.Join(out, "first.svg"))
		require.NoError(t, err)
		assert.Equal(t, "page-0", string(first))

		second1, err := os.ReadFile(filepath.Join(out, "second-1.svg"))
		require.NoError(t, err)
		assert.Equal(t, "page-1", string(second1))
		assert.FileExists(t, filepath.Join(out, "second-0.svg"))
		assert.Contains(t, log.String(), filepath.Join(out, "second-1.svg"))
	})

	t.Run("local strategy runs diagrams one at a time", func(t *testing.T) {
		var running, peak atomic.Int32
		spawner := &testutils.FakeSpawner{
			OnSpawn: func(p *testutils.FakeProcess) {
				n := running.Add(1)
				if n > peak.Load() {
					peak.Store(n)
				}
				go func() {
					time.Sleep(5 * time.Millisecond)
					p.Stdout("image")
					running.Add(-1)
					p.Exit(nil)
				}()
			},
		}
		session := render.NewSession(staticSettings(domain.StrategyLocal), render.WithSpawner(spawner))
		out := t.TempDir()
		x := &exporter{session: session, format: "png", outDir: out, out: &bytes.Buffer{}}

		require.NoError(t, x.Export(context.Background(), diagramsOf(t, writeDocument(t))))

		assert.Equal(t, 3, spawner.Count())
		assert.LessOrEqual(t, peak.Load(), int32(2), "pages of one diagram may overlap, diagrams may not")
		assert.FileExists(t, filepath.Join(out, "first.png"))
	})

	t.Run("map data", func(t *testing.T) {
		transport := &testutils.FakeTransport{}
		session := render.NewSession(staticSettings(domain.StrategyServer), render.WithTransport(transport))
		out := t.TempDir()
		x := &exporter{session: session, outDir: out, mapData: true, out: &bytes.Buffer{}}

		require.NoError(t, x.Export(context.Background(), diagramsOf(t, writeDocument(t))[:1]))

		data, err := os.ReadFile(filepath.Join(out, "first.cmapx"))
		require.NoError(t, err)
		assert.Equal(t, "page-0", string(data))
		require.NotEmpty(t, transport.Calls())
		assert.Equal(t, render.MapFormat, transport.Calls()[0].Format)
	})

	t.Run("unsupported format fails before rendering", func(t *testing.T) {
		transport := &testutils.FakeTransport{}
		session := render.NewSession(staticSettings(domain.StrategyServer), render.WithTransport(transport))
		x := &exporter{session: session, format: "pdf", outDir: t.TempDir(), out: &bytes.Buffer{}}

		err := x.Export(context.Background(), diagramsOf(t, writeDocument(t)))

		assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
		assert.Empty(t, transport.Calls())
	})

	t.Run("same name in two files fails before rendering", func(t *testing.T) {
		transport := &testutils.FakeTransport{}
		session := render.NewSession(staticSettings(domain.StrategyServer), render.WithTransport(transport))
		x := &exporter{session: session, format: "svg", outDir: t.TempDir(), out: &bytes.Buffer{}}

		a := diagramsOf(t, writeDocument(t))
		b := diagramsOf(t, writeDocument(t))
		require.NotEqual(t, a[0].Location, b[0].Location)

		err := x.Export(context.Background(), []*domain.Diagram{a[0], b[0]})

		assert.ErrorIs(t, err, errSameDestination)
		assert.Contains(t, err.Error(), a[0].Location)
		assert.Contains(t, err.Error(), b[0].Location)
		assert.Empty(t, transport.Calls())
	})

	t.Run("same name without an output directory", func(t *testing.T) {
		session := render.NewSession(staticSettings(domain.StrategyServer), render.WithTransport(&testutils.FakeTransport{}))
		x := &exporter{session: session, format: "svg", out: &bytes.Buffer{}}

		a := diagramsOf(t, writeDocument(t))
		b := diagramsOf(t, writeDocument(t))

		require.NoError(t, x.Export(context.Background(), []*domain.Diagram{a[0], b[0]}))
		assert.FileExists(t, filepath.Join(a[0].Dir(), "first.svg"))
		assert.FileExists(t, filepath.Join(b[0].Dir(), "first.svg"))
	})

	t.Run("failures are joined", func(t *testing.T) {
		transport := &testutils.FakeTransport{
			Handler: func(ctx context.Context, call testutils.TransportCall) ([]byte, error) {
				return nil, &domain.ExportError{Message: "Syntax Error?"}
			},
		}
		session := render.NewSession(staticSettings(domain.StrategyServer), render.WithTransport(transport))
		x := &exporter{session: session, format: "png", outDir: t.TempDir(), out: &bytes.Buffer{}}

		err := x.Export(context.Background(), diagramsOf(t, writeDocument(t)))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "first: ")
		assert.Contains(t, err.Error(), "second: ")
	})
}

func TestExtension(t *testing.T) {
	cases := map[string]string{
		"png":              "png",
		"svg":              "svg",
		"latex":            "tex",
		"latex:nopreamble": "tex",
		"utxt":             "txt",
	}
	for format, ext := range cases {
		assert.Equal(t, ext, extension(format), format)
	}
}

func TestWatchFile(t *testing.T) {
	path := writeDocument(t)
	ctx, cancel := context.WithCancel(context.Background())

	var changes atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, path, func() { changes.Add(1) }, logging.NewNop())
	}()

	// A sibling file is ignored.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(filepath.Dir(path), "other.txt"), []byte("x"), 0o644)
		_ = os.WriteFile(path, []byte(document+"\n"), 0o644)
		return changes.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestFanout(t *testing.T) {
	var seen []string
	record := func(name string) preview.Presenter {
		return preview.PresenterFunc(func(v preview.View) error {
			seen = append(seen, name+":"+v.Diagram)
			return nil
		})
	}
	failing := preview.PresenterFunc(func(preview.View) error { return errors.New("closed") })

	err := fanout{record("a"), failing, record("b")}.Show(preview.View{Diagram: "seq"})

	assert.EqualError(t, err, "closed")
	assert.Equal(t, []string{"a:seq", "b:seq"}, seen)
}

func TestPrintURLs(t *testing.T) {
	var buf bytes.Buffer
	printURLs(&buf, []urlmaker.DiagramURL{
		{Name: "one", URLs: []string{"http://s/svg/0/x"}},
		{Name: "two", URLs: []string{"http://s/svg/0/y", "http://s/svg/1/y"}},
	})

	assert.Equal(t, "one: http://s/svg/0/x\ntwo [0]: http://s/svg/0/y\ntwo [1]: http://s/svg/1/y\n", buf.String())
}

func TestSetup(t *testing.T) {
	t.Run("missing file uses defaults", func(t *testing.T) {
		e, err := setup(Options{ConfigPath: filepath.Join(t.TempDir(), "none.yaml")})
		require.NoError(t, err)
		defer e.Close(context.Background())

		assert.NotNil(t, e.session)
		assert.Empty(t, e.closers)
	})

	t.Run("invalid facts url", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "umlpreview.yaml")
		require.NoError(t, os.WriteFile(path, []byte("facts: \"ftp://nowhere\"\n"), 0o644))

		_, err := setup(Options{ConfigPath: path})
		assert.ErrorContains(t, err, "invalid facts store")
	})

	t.Run("invalid log level", func(t *testing.T) {
		_, err := setup(Options{ConfigPath: filepath.Join(t.TempDir(), "none.yaml"), LogLevel: "loud"})
		assert.Error(t, err)
	})
}
