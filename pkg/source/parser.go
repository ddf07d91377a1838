// Package source finds renderable diagrams in text documents.
package source

import (
	"bufio"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aretw0/umlpreview/pkg/domain"
)

var (
	startRe   = regexp.MustCompile(`^\s*@start(\w+)\b\s*(.*)$`)
	newpageRe = regexp.MustCompile(`^\s*newpage\b`)
	titleRe   = regexp.MustCompile(`^\s*title\s+(.+)$`)
)

// Parse returns every @start/@end block of text, in document order.
// An unterminated block is ignored.
func Parse(location, text string) []*domain.Diagram {
	var (
		diagrams []*domain.Diagram
		lines    []string
	)
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}

	for i := 0; i < len(lines); i++ {
		m := startRe.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		kind, name := m[1], cleanName(m[2])
		endRe := regexp.MustCompile(`^\s*@end` + regexp.QuoteMeta(kind) + `\b`)

		pages := 1
		title := ""
		for j := i + 1; j < len(lines); j++ {
			if endRe.MatchString(lines[j]) {
				d := &domain.Diagram{
					Name:      name,
					Location:  location,
					Content:   strings.Join(lines[i:j+1], "\n"),
					PageCount: pages,
					Start:     i,
					End:       j,
				}
				if d.Name == "" {
					d.Name = title
				}
				diagrams = append(diagrams, d)
				i = j
				break
			}
			if newpageRe.MatchString(lines[j]) {
				pages++
			}
			if t := titleRe.FindStringSubmatch(lines[j]); t != nil && title == "" {
				title = cleanName(t[1])
			}
		}
	}

	fallbackNames(location, diagrams)
	return diagrams
}

// At returns the diagram whose block contains line, zero-based.
func At(diagrams []*domain.Diagram, line int) (*domain.Diagram, bool) {
	for _, d := range diagrams {
		if line >= d.Start && line <= d.End {
			return d, true
		}
	}
	return nil, false
}

func cleanName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	// Names become file names when exporting.
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(`/\:*?<>|`, r) {
			return '_'
		}
		return r
	}, s)
}

func fallbackNames(location string, diagrams []*domain.Diagram) {
	base := strings.TrimSuffix(filepath.Base(location), filepath.Ext(location))
	if base == "" || base == "." {
		base = "diagram"
	}
	for i, d := range diagrams {
		if d.Name != "" {
			continue
		}
		if len(diagrams) == 1 {
			d.Name = base
		} else {
			d.Name = fmt.Sprintf("%s-%d", base, i)
		}
	}
}
