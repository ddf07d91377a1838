package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cursor struct {
	line, page int
}

func (c *cursor) SetLine(line int) { c.line = line }
func (c *cursor) SetPage(page int) { c.page = page }

func TestCommander(t *testing.T) {
	var (
		cur       cursor
		selected  int
		refreshed int
		out       bytes.Buffer
	)
	cmds := &commander{
		src:      &cur,
		selected: func() { selected++ },
		refresh: func(context.Context) error {
			refreshed++
			return nil
		},
		out: &out,
	}

	input := strings.Join([]string{
		"line 12",
		"",
		"page 2",
		"refresh",
		"line twelve",
		"jump 3",
		"p",
	}, "\n")
	require.NoError(t, cmds.run(context.Background(), strings.NewReader(input)))

	assert.Equal(t, cursor{line: 12, page: 2}, cur)
	assert.Equal(t, 2, selected, "each cursor move reports a selection change")
	assert.Equal(t, 1, refreshed)
	assert.Contains(t, out.String(), `invalid number "twelve"`)
	assert.Contains(t, out.String(), `unknown command "jump"`)
	assert.Contains(t, out.String(), "p takes one number")
}

func TestCommander_RefreshFailure(t *testing.T) {
	var out bytes.Buffer
	cmds := &commander{
		src:      &cursor{},
		selected: func() {},
		refresh:  func(context.Context) error { return errors.New("engine busy") },
		out:      &out,
	}

	require.NoError(t, cmds.run(context.Background(), strings.NewReader("r\n")))
	assert.Contains(t, out.String(), ">>> engine busy")
}

func TestCommander_StopsWithContext(t *testing.T) {
	var cur cursor
	cmds := &commander{src: &cur, selected: func() {}, out: &bytes.Buffer{}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, cmds.run(ctx, strings.NewReader("line 4\n")))
	assert.Zero(t, cur.line)
}
