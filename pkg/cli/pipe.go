package cli

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// pipeFilter is one "| name arg" stage applied to command output.
type pipeFilter struct {
	name string
	arg  string
	re   *regexp.Regexp
}

// pipeFilters defines the available pipe filter names and descriptions.
var pipeFilters = map[string]string{
	"count":   "Count occurrences",
	"except":  "Show only text that does not match a pattern",
	"find":    "Show output from the first line matching a pattern",
	"grep":    "Show only text that matches a pattern",
	"last":    "Display end of output only",
	"match":   "Show only text that matches a pattern",
	"no-more": "Don't paginate output",
}

// splitPipes separates the command tokens from any trailing pipe filters.
// Filters apply left to right.
func splitPipes(toks []token) ([]token, []pipeFilter, error) {
	idx := -1
	for i, t := range toks {
		if t.typ == tokenPipe {
			idx = i
			break
		}
	}
	if idx < 0 {
		return toks, nil, nil
	}

	cmd := toks[:idx]
	var filters []pipeFilter
	rest := toks[idx:]
	for len(rest) > 0 {
		// rest[0] is a pipe.
		if len(rest) < 2 || rest[1].typ == tokenPipe {
			return nil, nil, fmt.Errorf("column %d: missing filter after '|'", rest[0].col)
		}
		name := rest[1].value
		if _, ok := pipeFilters[name]; !ok {
			return nil, nil, fmt.Errorf("unknown pipe filter: %s", name)
		}
		var args []string
		rest = rest[2:]
		for len(rest) > 0 && rest[0].typ != tokenPipe {
			args = append(args, rest[0].value)
			rest = rest[1:]
		}
		f, err := newPipeFilter(name, strings.Join(args, " "))
		if err != nil {
			return nil, nil, err
		}
		filters = append(filters, f)
	}
	return cmd, filters, nil
}

func newPipeFilter(name, arg string) (pipeFilter, error) {
	f := pipeFilter{name: name, arg: arg}
	switch name {
	case "match", "grep", "except", "find":
		if arg == "" {
			return f, fmt.Errorf("%s: missing pattern", name)
		}
		re, err := regexp.Compile("(?i)" + arg)
		if err != nil {
			return f, fmt.Errorf("%s: %w", name, err)
		}
		f.re = re
	case "last":
		if arg != "" {
			if v, err := strconv.Atoi(arg); err != nil || v <= 0 {
				return f, fmt.Errorf("last: invalid line count %q", arg)
			}
		}
	}
	return f, nil
}

// apply filters lines. count replaces the output with a single summary.
func (f pipeFilter) apply(lines []outLine) []outLine {
	switch f.name {
	case "match", "grep":
		var out []outLine
		for _, l := range lines {
			if f.re.MatchString(l.text) {
				out = append(out, l)
			}
		}
		return out
	case "except":
		var out []outLine
		for _, l := range lines {
			if !f.re.MatchString(l.text) {
				out = append(out, l)
			}
		}
		return out
	case "find":
		for i, l := range lines {
			if f.re.MatchString(l.text) {
				return lines[i:]
			}
		}
		return nil
	case "count":
		return []outLine{{text: fmt.Sprintf("Count: %d lines", len(lines))}}
	case "last":
		n := 10
		if f.arg != "" {
			n, _ = strconv.Atoi(f.arg)
		}
		start := len(lines) - n
		if start < 0 {
			start = 0
		}
		return lines[start:]
	default: // no-more: output is never paginated
		return lines
	}
}
