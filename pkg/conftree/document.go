package conftree

import (
	"fmt"
	"strings"
)

// Mode selects the structural strategy used by Parse.
type Mode int

const (
	ModeAuto   Mode = iota // sniff the first lines, see DetectMode
	ModeIndent             // leading spaces (IOS, IOS-XR, EOS, NX-OS)
	ModeBraced             // braces and semicolons (Junos)
)

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeIndent:
		return "indent"
	case ModeBraced:
		return "braced"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name as accepted on the command line.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "indent", "indentation", "spaces":
		return ModeIndent, nil
	case "braced", "braces", "junos":
		return ModeBraced, nil
	}
	return ModeAuto, fmt.Errorf("unknown parse mode %q (want auto, indent or braced)", s)
}

// DiagnosticKind classifies a structural anomaly found while building.
type DiagnosticKind int

const (
	LevelJump          DiagnosticKind = iota // indentation deeper by more than one level
	UnterminatedBanner                       // banner without its closing delimiter
	UnterminatedRegion                       // route-policy or *-set without end-
	UnbalancedBrace                          // '}' without '{', or blocks left open
)

func (k DiagnosticKind) String() string {
	switch k {
	case LevelJump:
		return "level-jump"
	case UnterminatedBanner:
		return "unterminated-banner"
	case UnterminatedRegion:
		return "unterminated-region"
	case UnbalancedBrace:
		return "unbalanced-brace"
	default:
		return "unknown"
	}
}

// Diagnostic is a recoverable anomaly. The build continues with a fallback.
type Diagnostic struct {
	Line    int
	Kind    DiagnosticKind
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s: %s", d.Line, d.Kind, d.Message)
}

// Document is the result of one Parse call.
type Document struct {
	// Lines holds every node in read order; Lines[i] is line i+1.
	Lines []*Node

	// Mode is the strategy actually used; never ModeAuto.
	Mode Mode

	Diagnostics []Diagnostic
}

// Len returns the number of lines.
func (d *Document) Len() int { return len(d.Lines) }

// Line returns the node for 1-based line number n, or nil if out of range.
func (d *Document) Line(n int) *Node {
	if n < 1 || n > len(d.Lines) {
		return nil
	}
	return d.Lines[n-1]
}

// Roots returns the top-level nodes in read order.
func (d *Document) Roots() []*Node {
	var roots []*Node
	for _, n := range d.Lines {
		if n.parent == nil {
			roots = append(roots, n)
		}
	}
	return roots
}

// Format joins the line texts back into a document.
func (d *Document) Format() string {
	var b strings.Builder
	for _, n := range d.Lines {
		b.WriteString(n.text)
		b.WriteByte('\n')
	}
	return b.String()
}
