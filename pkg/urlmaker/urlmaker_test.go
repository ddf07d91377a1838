package urlmaker_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/umlpreview/pkg/domain"
	"github.com/aretw0/umlpreview/pkg/urlmaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "@startuml\nAlice -> Bob: hello\nnewpage\nBob -> Alice: hi\n@enduml"

func TestEncode_RoundTrip(t *testing.T) {
	for _, text := range []string{"", "@startuml\n@enduml", sample, strings.Repeat("A -> B\n", 500)} {
		encoded, err := urlmaker.Encode(text)
		require.NoError(t, err)
		assert.NotContains(t, encoded, "+")
		assert.NotContains(t, encoded, "/")
		assert.NotContains(t, encoded, "=")

		decoded, err := urlmaker.Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, text, decoded)
	}
}

func TestDecode_Invalid(t *testing.T) {
	_, err := urlmaker.Decode("!!!")
	assert.Error(t, err)
}

func TestMakeDiagramURL(t *testing.T) {
	d := &domain.Diagram{Name: "seq", Content: sample, PageCount: 2}

	t.Run("One Link Per Page", func(t *testing.T) {
		u, err := urlmaker.MakeDiagramURL("http://localhost:8080/", d, "svg")
		require.NoError(t, err)
		assert.Equal(t, "seq", u.Name)
		require.Len(t, u.URLs, 2)
		assert.True(t, strings.HasPrefix(u.URLs[0], "http://localhost:8080/svg/0/"))
		assert.True(t, strings.HasPrefix(u.URLs[1], "http://localhost:8080/svg/1/"))
	})

	t.Run("No Server", func(t *testing.T) {
		_, err := urlmaker.MakeDiagramURL("", d, "svg")
		assert.ErrorIs(t, err, domain.ErrNoServer)
	})
}

type recordingStarter struct {
	mu      sync.Mutex
	started []string
}

func (s *recordingStarter) Start(_ context.Context, d *domain.Diagram) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, d.Name)
}

func TestMaker_StartsOwnedServer(t *testing.T) {
	starter := &recordingStarter{}
	settings := func(location string) domain.Settings {
		s := domain.DefaultSettings()
		s.Server = "http://localhost:8080"
		if strings.HasSuffix(location, ".local") {
			s.Render = domain.StrategyLocalServer
		} else {
			s.Render = domain.StrategyServer
		}
		return s
	}
	maker := urlmaker.NewMaker(settings, starter)

	diagrams := []*domain.Diagram{
		{Name: "a", Location: "a.local", Content: sample},
		{Name: "b", Location: "b.remote", Content: sample},
	}
	urls, err := maker.MakeDiagramURLs(context.Background(), diagrams, "png")
	require.NoError(t, err)
	assert.Len(t, urls, 2)
	assert.Equal(t, []string{"a"}, starter.started)
}
