package domain_test

import (
	"errors"
	"testing"

	"github.com/aretw0/umlpreview/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagram_Equal(t *testing.T) {
	a := &domain.Diagram{Location: "/a.puml", Content: "@startuml\n@enduml", Page: 1, Name: "a", Start: 3}
	b := *a
	b.Name, b.Start = "renamed", 10

	assert.True(t, a.Equal(&b), "name and position do not change the preview")

	b.Page = 0
	assert.False(t, a.Equal(&b))
	assert.False(t, a.Equal(nil))
	assert.True(t, (*domain.Diagram)(nil).Equal(nil))
}

func TestDiagram_Pages(t *testing.T) {
	assert.Equal(t, 1, (&domain.Diagram{}).Pages())
	assert.Equal(t, 3, (&domain.Diagram{PageCount: 3}).Pages())
}

func TestAddFileIndex(t *testing.T) {
	assert.Equal(t, "out.png", domain.AddFileIndex("out.png", 0, 1))
	assert.Equal(t, "out-0.png", domain.AddFileIndex("out.png", 0, 2))
	assert.Equal(t, "dir/out-2.svg", domain.AddFileIndex("dir/out.svg", 2, 3))
	assert.Equal(t, "", domain.AddFileIndex("", 1, 3))
}

func TestParseStrategy(t *testing.T) {
	cases := map[string]domain.Strategy{
		"":               domain.StrategyLocal,
		"Local":          domain.StrategyLocal,
		"PlantUMLServer": domain.StrategyServer,
		"server":         domain.StrategyServer,
		"LocalServer":    domain.StrategyLocalServer,
		"local-server":   domain.StrategyLocalServer,
	}
	for name, want := range cases {
		got, err := domain.ParseStrategy(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := domain.ParseStrategy("cloud")
	assert.ErrorIs(t, err, domain.ErrUnknownStrategy)
}

func TestSupport_RoundTrip(t *testing.T) {
	for _, s := range []domain.Support{domain.SupportUnknown, domain.SupportConfirmed, domain.SupportRejected} {
		assert.Equal(t, s, domain.ParseSupport(s.String()))
	}
}

func TestErrors(t *testing.T) {
	t.Run("protocol rejection", func(t *testing.T) {
		rejected := &domain.HTTPError{Method: "POST", URL: "http://s/png/0", StatusCode: 405, ResponseError: true}
		network := &domain.HTTPError{Method: "POST", URL: "http://s/png/0", Err: errors.New("connection refused")}

		assert.True(t, domain.IsProtocolRejection(rejected))
		assert.False(t, domain.IsProtocolRejection(network))
		assert.Equal(t, "POST http://s/png/0: unexpected response 405", rejected.Error())
	})

	t.Run("as export error", func(t *testing.T) {
		assert.Nil(t, domain.AsExportError(nil))

		exportErr := &domain.ExportError{Message: "Syntax Error?", Out: []byte("img")}
		assert.Same(t, exportErr, domain.AsExportError(exportErr))

		httpErr := &domain.HTTPError{Method: "GET", URL: "u", StatusCode: 500, Body: []byte("body"), ResponseError: true}
		got := domain.AsExportError(httpErr)
		assert.Equal(t, []byte("body"), got.Out)
		assert.ErrorIs(t, got, httpErr)

		plain := errors.New("boom")
		assert.Equal(t, "boom", domain.AsExportError(plain).Message)
	})
}
