package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const commandHelp = "commands: line N, page N, refresh"

// selector moves the preview cursor.
type selector interface {
	SetLine(line int)
	SetPage(page int)
}

// commander drives a running preview from typed commands, standing in for
// the cursor moves of an editor.
type commander struct {
	src      selector
	selected func()
	refresh  func(ctx context.Context) error
	out      io.Writer
}

// run applies one command per line of r until r ends or ctx is done.
func (c *commander) run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		if err := c.apply(ctx, scanner.Text()); err != nil {
			printSystemMessage(c.out, "%v (%s)", err, commandHelp)
		}
	}
	return scanner.Err()
}

func (c *commander) apply(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "refresh", "r":
		return c.refresh(ctx)
	case "line", "l", "page", "p":
		if len(fields) != 2 {
			return fmt.Errorf("%s takes one number", fields[0])
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("invalid number %q", fields[1])
		}
		if strings.HasPrefix(fields[0], "l") {
			c.src.SetLine(n)
		} else {
			c.src.SetPage(n)
		}
		c.selected()
		return nil
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}
