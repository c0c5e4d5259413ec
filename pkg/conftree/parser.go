package conftree

import (
	"log/slog"
	"regexp"
	"strings"
	"time"
)

var (
	// banner <word> <delimiter>
	bannerRe = regexp.MustCompile(`^banner\s+\S+\s+(\S+)`)

	// route-policy NAME, prefix-set NAME, extcommunity-set rt NAME. The word
	// before -set has no hyphens, so large-community-set is indented normally.
	flatRegionRe = regexp.MustCompile(`^(?:route-policy|\w+-set)\s+\S`)
)

// Observer receives build statistics. metrics.Recorder implements it.
type Observer interface {
	ObserveBuild(mode Mode, lines int, elapsed time.Duration)
	ObserveDiagnostic(kind DiagnosticKind)
}

// Options controls Parse.
type Options struct {
	Mode     Mode
	Logger   *slog.Logger // nil means slog.Default()
	Observer Observer     // optional
}

// Parse builds a Document from lines. Every line, including comments and
// blank lines, becomes exactly one node. Structural anomalies are recorded
// in Document.Diagnostics and logged; they never stop the build.
func Parse(lines []string, opts Options) *Document {
	start := time.Now()

	mode := opts.Mode
	if mode == ModeAuto {
		mode = DetectMode(lines)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	b := &builder{
		log:   logger.With("mode", mode.String()),
		obs:   opts.Observer,
		nodes: make([]*Node, 0, len(lines)),
	}
	if mode == ModeBraced {
		b.braced(lines)
	} else {
		b.indented(lines)
	}

	if b.obs != nil {
		b.obs.ObserveBuild(mode, len(lines), time.Since(start))
	}
	return &Document{Lines: b.nodes, Mode: mode, Diagnostics: b.diags}
}

type builder struct {
	log   *slog.Logger
	obs   Observer
	nodes []*Node
	diags []Diagnostic
}

func (b *builder) add(i int, raw string) *Node {
	n := newNode(i+1, strings.TrimRight(raw, " \t\r\n"))
	b.nodes = append(b.nodes, n)
	return n
}

func (b *builder) report(line int, kind DiagnosticKind, section *Node, msg string) {
	b.diags = append(b.diags, Diagnostic{Line: line, Kind: kind, Message: msg})
	attrs := []any{"line", line, "kind", kind.String()}
	if section != nil {
		attrs = append(attrs, "section", section.text)
	}
	b.log.Warn(msg, attrs...)
	if b.obs != nil {
		b.obs.ObserveDiagnostic(kind)
	}
}

// braced handles Junos-style input: a line ending in '{' opens a block and
// a line ending in '}' closes it. Comment lines never open or close.
func (b *builder) braced(lines []string) {
	var stack []*Node
	for i, raw := range lines {
		n := b.add(i, raw)
		if len(stack) > 0 {
			n.attach(stack[len(stack)-1])
		}
		if strings.HasPrefix(strings.TrimLeft(n.text, " \t"), "#") {
			continue
		}
		switch {
		case strings.HasSuffix(n.text, "{"):
			stack = append(stack, n)
		case strings.HasSuffix(n.text, "}"):
			if len(stack) == 0 {
				b.report(n.line, UnbalancedBrace, nil, "closing brace without open block")
				continue
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		b.report(len(lines), UnbalancedBrace, stack[0], "blocks left open at end of input")
	}
}

// indented infers hierarchy from leading spaces. The first indented line
// fixes the width of one level. Banners and flat policy regions override the
// indentation rules.
func (b *builder) indented(lines []string) {
	var (
		unit   int     // spaces per level, 0 until known
		level  int     // level of the previous line; len(stack) == level
		stack  []*Node // open parents
		prev   *Node
		banner *Node // non-nil while capturing a banner body
		delim  string

		flatten   bool
		flatStart *Node
	)

	for i, raw := range lines {
		n := b.add(i, raw)
		text := n.text

		if banner != nil {
			if !bannerRe.MatchString(text) {
				n.attach(banner)
				prev = n
				if strings.Contains(text, delim) {
					stack = stack[:len(stack)-1]
					banner, delim = nil, ""
				}
				continue
			}
			b.report(n.line, UnterminatedBanner, banner, "banner not terminated before next banner")
			stack = stack[:len(stack)-1]
			banner, delim = nil, ""
		}

		if unit == 0 && strings.HasPrefix(text, " ") {
			unit = leadingSpaces(text)
			b.log.Debug("indentation unit detected", "line", n.line, "unit", unit)
		}
		newLevel := 0
		if unit > 0 {
			newLevel = leadingSpaces(text) / unit
		}

		if flatten {
			if startsWithSpace(text) || strings.HasPrefix(text, "end-") {
				newLevel = 1
			} else {
				b.report(n.line, UnterminatedRegion, flatStart, "no end-set or end-policy encountered")
				flatten, flatStart = false, nil
			}
		}

		switch {
		case newLevel > level && prev == nil:
			newLevel = level
		case newLevel > level:
			if newLevel != level+1 {
				b.report(n.line, LevelJump, prev, "indentation deeper than one level")
				newLevel = level + 1
			}
			stack = append(stack, prev)
			b.log.Debug("level increase", "line", n.line, "from", level, "to", newLevel)
		case newLevel < level:
			stack = stack[:newLevel]
			b.log.Debug("level decrease", "line", n.line, "from", level, "to", newLevel)
		}
		level = newLevel

		if len(stack) > 0 {
			n.attach(stack[len(stack)-1])
		}
		prev = n

		if m := bannerRe.FindStringSubmatchIndex(text); m != nil {
			d := text[m[2]:m[3]]
			if strings.Contains(text[m[3]:], d) {
				continue // whole banner on one line
			}
			banner, delim = n, d
			stack = append(stack, n)
			continue
		}

		switch {
		case flatRegionRe.MatchString(text):
			flatten, flatStart = true, n
		case flatten && strings.HasPrefix(text, "end-"):
			flatten, flatStart = false, nil
		}
	}

	if banner != nil {
		b.report(len(lines), UnterminatedBanner, banner, "banner not terminated at end of input")
	}
}

func startsWithSpace(s string) bool {
	return s != "" && (s[0] == ' ' || s[0] == '\t')
}
