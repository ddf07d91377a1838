package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"  _  _ _ __  ___ _ __ _ _ _____ _(_)_____ __ __", "#2dd4bf"},
	{" | || | '  \\| |_| '_ \\ '_/ -_) V / / -_) V  V /", "#22d3ee"},
	{"  \\_,_|_|_|_|___| .__/_| \\___|\\_/|_\\___|\\_/\\_/ ", "#38bdf8"},
	{"                |_|                             ", "#60a5fa"},
}

// PrintBanner writes the umlpreview banner to w, colored when w is a terminal.
func PrintBanner(w io.Writer, version string) {
	out := NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	if version != "" {
		fmt.Fprintln(w, out.String("  version "+version).Faint())
	}
	fmt.Fprintln(w)
}

// NewOutput returns a termenv output for w. Writers that are not terminals
// get the plain ASCII profile so no escape sequences leak into files or pipes.
func NewOutput(w io.Writer) *termenv.Output {
	if !IsTerminal(w) {
		return termenv.NewOutput(w, termenv.WithProfile(termenv.Ascii))
	}
	return termenv.NewOutput(w)
}
