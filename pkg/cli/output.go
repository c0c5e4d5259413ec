package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/psaab/conftree/pkg/conftree"
)

// style selects how a line is coloured.
type style int

const (
	stylePlain style = iota
	styleMatch       // a line that satisfied the query
	styleHeader
	styleWarn
)

// outLine is one line of command output. Output is collected before it is
// written so that pipe filters see plain text.
type outLine struct {
	text  string
	style style
}

// output collects the lines a command produces.
type output struct {
	lines []outLine
}

func (o *output) add(s style, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		o.lines = append(o.lines, outLine{text: line, style: s})
	}
}

func (o *output) printf(format string, args ...any) { o.add(stylePlain, format, args...) }

func (o *output) header(format string, args ...any) { o.add(styleHeader, format, args...) }

func (o *output) warn(format string, args ...any) { o.add(styleWarn, format, args...) }

func (o *output) blank() { o.lines = append(o.lines, outLine{}) }

// node adds a numbered configuration line.
func (o *output) node(n *conftree.Node, matched bool) {
	o.lines = append(o.lines, nodeLine(n, matched))
}

func nodeLine(n *conftree.Node, matched bool) outLine {
	s := stylePlain
	if matched {
		s = styleMatch
	}
	return outLine{text: fmt.Sprintf("%5d  %s", n.LineNumber(), n.Text()), style: s}
}

// palette maps styles to colouring functions. A nil palette writes plain
// text.
type palette map[style]func(string, ...any) string

func newPalette() palette {
	mk := func(attrs ...color.Attribute) func(string, ...any) string {
		c := color.New(attrs...)
		c.EnableColor()
		return c.SprintfFunc()
	}
	return palette{
		styleMatch:  mk(color.FgYellow, color.Bold),
		styleHeader: mk(color.Bold),
		styleWarn:   mk(color.FgRed),
	}
}

// Color settings values.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// colorEnabled decides whether output to w is coloured.
func colorEnabled(setting string, w io.Writer) bool {
	switch setting {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p palette) render(w io.Writer, lines []outLine) error {
	var sb strings.Builder
	for _, l := range lines {
		if fn, ok := p[l.style]; ok && l.text != "" {
			sb.WriteString(fn("%s", l.text))
		} else {
			sb.WriteString(l.text)
		}
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
