package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/psaab/conftree/pkg/addr"
	"github.com/psaab/conftree/pkg/cmdtree"
	"github.com/psaab/conftree/pkg/configstore"
	"github.com/psaab/conftree/pkg/conftree"
	"github.com/psaab/conftree/pkg/search"
)

const defaultLogLines = 20

// dispatch runs one command. raw is the unsplit text after the command
// word, used where quoting must survive.
func (s *Shell) dispatch(o *output, args []string, raw string) error {
	cmd, err := cmdtree.Resolve(cmdtree.ShellTree, args[0])
	if err != nil {
		return err
	}
	args = args[1:]

	switch cmd {
	case "quit", "exit":
		return ErrExit
	case "help":
		s.showHelp(o)
		return nil
	case "load":
		return s.handleLoad(o, args)
	case "reload":
		return s.handleReload(o)
	case "rollback":
		return s.handleRollback(o, args)
	case "show":
		return s.handleShow(o, args)
	}

	doc := s.store.Document()
	if doc == nil {
		return configstore.ErrNoDocument
	}
	switch cmd {
	case "find":
		return s.handleFind(o, doc, cmd, args)
	case "family":
		return s.handleFind(o, doc, cmd, args, search.WithAncestors(), search.WithAllDescendants())
	case "grouped":
		return s.handleGrouped(o, doc, args)
	case "cousins":
		return s.handleCousins(o, doc, args)
	case "parents", "orphans", "children":
		return s.handleParentChild(o, doc, cmd, args)
	case "address":
		return s.handleAddress(o, doc, args)
	case "where":
		return s.handleWhere(o, doc, raw)
	}
	return fmt.Errorf("unknown command: %s", cmd)
}

func (s *Shell) showHelp(o *output) {
	o.header("Commands:")
	var sb strings.Builder
	cmdtree.WriteUsage(&sb, cmdtree.ShellTree)
	cmdtree.WriteUsage(&sb, cmdtree.ShellTree, "show")
	o.printf("%s", sb.String())
	o.blank()
	o.header("Pipe filters (command | filter [arg]):")
	names := make([]string, 0, len(pipeFilters))
	for name := range pipeFilters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		o.printf("  %-36s %s", name, pipeFilters[name])
	}
}

func (s *Shell) handleLoad(o *output, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return fmt.Errorf("usage: load <file> [auto|indent|braced]")
	}
	mode := conftree.ModeAuto
	if len(args) == 2 {
		m, err := conftree.ParseMode(args[1])
		if err != nil {
			return err
		}
		mode = m
	}
	snap, err := s.store.Load(args[0], mode)
	if err != nil {
		return err
	}
	s.describeLoad(o, snap)
	return nil
}

func (s *Shell) handleReload(o *output) error {
	snap, err := s.store.Reload()
	if err != nil {
		return err
	}
	s.describeLoad(o, snap)
	return nil
}

func (s *Shell) handleRollback(o *output, args []string) error {
	n := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			return fmt.Errorf("rollback: invalid index %q", args[0])
		}
		n = v
	}
	snap, err := s.store.Rollback(n)
	if err != nil {
		return err
	}
	s.describeLoad(o, snap)
	return nil
}

func (s *Shell) describeLoad(o *output, snap *configstore.Snapshot) {
	doc := snap.Doc
	o.printf("%s: %d lines, %d roots, %s mode", snap.Path, doc.Len(), len(doc.Roots()), doc.Mode)
	if n := len(doc.Diagnostics); n > 0 {
		o.warn("%d structural warnings; see 'show diagnostics'", n)
	}
}

func (s *Shell) handleShow(o *output, args []string) error {
	if len(args) == 0 {
		o.printf("show: specify what to show")
		var sb strings.Builder
		cmdtree.WriteUsage(&sb, cmdtree.ShellTree, "show")
		o.printf("%s", sb.String())
		return nil
	}
	sub, err := cmdtree.Resolve(cmdtree.ShellTree["show"].Children, args[0])
	if err != nil {
		return fmt.Errorf("show: %w", err)
	}
	args = args[1:]

	switch sub {
	case "log":
		return s.showLog(o, args)
	case "history":
		return s.showHistory(o)
	case "compare":
		return s.showCompare(o, args)
	}

	doc := s.store.Document()
	if doc == nil {
		return configstore.ErrNoDocument
	}
	switch sub {
	case "lines":
		from, to, err := lineRange(doc, args)
		if err != nil {
			return err
		}
		for _, n := range doc.Lines[from-1 : to] {
			o.node(n, false)
		}
	case "tree":
		from, to, err := lineRange(doc, args)
		if err != nil {
			return err
		}
		for _, n := range doc.Lines[from-1 : to] {
			indent := strings.Repeat("  ", n.Generation()-1)
			o.printf("%5d  %s%s", n.LineNumber(), indent, n.TrimmedText())
		}
	case "line":
		return s.showLine(o, doc, args)
	case "roots":
		for _, n := range doc.Roots() {
			o.node(n, false)
		}
	case "diagnostics":
		if len(doc.Diagnostics) == 0 {
			o.printf("No structural warnings")
		}
		for _, d := range doc.Diagnostics {
			o.warn("%s", d)
		}
	case "stats":
		s.showStats(o, doc)
	}
	return nil
}

// lineRange parses optional 1-based, inclusive from/to arguments.
func lineRange(doc *conftree.Document, args []string) (int, int, error) {
	from, to := 1, doc.Len()
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 || v > doc.Len() {
			return 0, 0, fmt.Errorf("invalid line %q (document has %d lines)", args[0], doc.Len())
		}
		from = v
	}
	if len(args) > 1 {
		v, err := strconv.Atoi(args[1])
		if err != nil || v < from {
			return 0, 0, fmt.Errorf("invalid line %q", args[1])
		}
		to = min(v, doc.Len())
	}
	return from, to, nil
}

func (s *Shell) showLine(o *output, doc *conftree.Document, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: show line <n>")
	}
	v, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid line %q", args[0])
	}
	n := doc.Line(v)
	if n == nil {
		return fmt.Errorf("line %d out of range (document has %d lines)", v, doc.Len())
	}
	family, err := n.Family(conftree.FamilyOptions{Ancestors: true, Self: true, Children: true})
	if err != nil {
		return err
	}
	for _, m := range family {
		o.node(m, m == n)
	}
	o.blank()
	o.printf("generation %d, %d children, %d descendants", n.Generation(), n.NumChildren(), len(n.Descendants()))
	if rec := n.Addresses(); !rec.Empty() {
		for _, a := range rec.Addrs {
			o.printf("address %s", a)
		}
		for _, p := range rec.Networks {
			o.printf("network %s", p)
		}
	}
	return nil
}

func (s *Shell) showStats(o *output, doc *conftree.Document) {
	var maxGen, comments, withAddrs int
	for _, n := range doc.Lines {
		maxGen = max(maxGen, n.Generation())
		if n.IsComment() {
			comments++
		}
		if !n.Addresses().Empty() {
			withAddrs++
		}
	}
	if snap := s.store.Current(); snap != nil {
		o.printf("File:            %s", snap.Path)
		o.printf("Loaded:          %s", snap.LoadedAt.Format(time.DateTime))
	}
	o.printf("Mode:            %s", doc.Mode)
	o.printf("Lines:           %d", doc.Len())
	o.printf("Roots:           %d", len(doc.Roots()))
	o.printf("Max generation:  %d", maxGen)
	o.printf("Comments:        %d", comments)
	o.printf("With addresses:  %d", withAddrs)
	o.printf("Diagnostics:     %d", len(doc.Diagnostics))
}

func (s *Shell) showLog(o *output, args []string) error {
	if s.diag == nil {
		return fmt.Errorf("show log: no log buffer")
	}
	n := defaultLogLines
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			return fmt.Errorf("show log: invalid count %q", args[0])
		}
		n = v
	}
	entries := s.diag.Latest(n)
	if len(entries) == 0 {
		o.printf("No log entries")
		return nil
	}
	// Latest is newest first; print oldest first like a log file.
	for i := len(entries) - 1; i >= 0; i-- {
		o.warn("%s", entries[i])
	}
	return nil
}

func (s *Shell) showHistory(o *output) error {
	hist := s.store.History()
	if len(hist) == 0 {
		o.printf("No earlier loads")
		return nil
	}
	for i, snap := range hist {
		o.printf("%3d  %s  %s (%d lines, %s)", i+1, snap.LoadedAt.Format(time.DateTime),
			snap.Path, snap.Doc.Len(), snap.Doc.Mode)
	}
	return nil
}

func (s *Shell) showCompare(o *output, args []string) error {
	n := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			return fmt.Errorf("show compare: invalid index %q", args[0])
		}
		n = v
	}
	diff, err := s.store.ShowCompare(n)
	if err != nil {
		return err
	}
	o.printf("%s", diff)
	return nil
}

// terms compiles shell arguments into a predicate chain.
func terms(args []string) ([]search.Predicate, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("missing pattern")
	}
	anys := make([]any, len(args))
	for i, a := range args {
		anys[i] = a
	}
	return search.Terms(anys...)
}

func (s *Shell) handleFind(o *output, doc *conftree.Document, cmd string, args []string, opts ...search.Option) error {
	start := time.Now()
	spec, err := terms(args)
	if err != nil {
		s.observe(cmd, false, err, start)
		return fmt.Errorf("%s: %w", cmd, err)
	}
	matchLine := func(n *conftree.Node) outLine { return nodeLine(n, true) }
	otherLine := func(n *conftree.Node) outLine { return nodeLine(n, false) }
	lines, found, err := search.FindMap(doc.Lines, spec, matchLine, otherLine, opts...)
	s.observe(cmd, found, err, start)
	if err != nil {
		return err
	}
	o.lines = append(o.lines, lines...)
	return nil
}

func (s *Shell) handleGrouped(o *output, doc *conftree.Document, args []string) error {
	start := time.Now()
	spec, err := terms(args)
	if err != nil {
		s.observe("grouped", false, err, start)
		return fmt.Errorf("grouped: %w", err)
	}
	groups, found, err := search.FindGrouped(doc.Lines, spec, search.WithAncestors(), search.WithAllDescendants())
	s.observe("grouped", found, err, start)
	if err != nil {
		return err
	}
	last := spec[len(spec)-1]
	for i, g := range groups {
		if i > 0 {
			o.blank()
		}
		for _, n := range g {
			o.node(n, last(n))
		}
	}
	return nil
}

func (s *Shell) handleCousins(o *output, doc *conftree.Document, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: cousins <depth> <re>...")
	}
	depth, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("cousins: invalid depth %q", args[0])
	}
	return s.handleFind(o, doc, "cousins", args[1:], search.WithCousinDepth(depth))
}

func (s *Shell) handleParentChild(o *output, doc *conftree.Document, cmd string, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: %s <parent-re> <child-re>", cmd)
	}
	start := time.Now()
	var nodes []*conftree.Node
	var err error
	switch cmd {
	case "parents":
		nodes, err = search.FindParents(doc.Lines, args[0], args[1], true, false)
	case "orphans":
		nodes, err = search.FindParentsWithoutChild(doc.Lines, args[0], args[1], true)
	default:
		nodes, err = search.FindChildren(doc.Lines, args[0], args[1], true)
	}
	s.observe(cmd, len(nodes) > 0, err, start)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		o.node(n, true)
	}
	return nil
}

func (s *Shell) handleAddress(o *output, doc *conftree.Document, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: address <ip|prefix|ip/len>")
	}
	q, err := addr.ParseQuery(args[0])
	if err != nil {
		return err
	}
	start := time.Now()
	found := false
	for _, n := range doc.Lines {
		ok, err := n.HasAddress(q)
		if err != nil {
			s.observe("address", false, err, start)
			return err
		}
		if ok {
			found = true
			o.node(n, true)
		}
	}
	s.observe("address", found, nil, start)
	return nil
}

func (s *Shell) handleWhere(o *output, doc *conftree.Document, src string) error {
	if strings.TrimSpace(src) == "" {
		return fmt.Errorf("usage: where <expr>")
	}
	start := time.Now()
	pred, err := search.Expr(src)
	if err != nil {
		s.observe("where", false, err, start)
		return err
	}
	nodes, found, err := search.Find(doc.Lines, []search.Predicate{pred})
	s.observe("where", found, err, start)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		o.node(n, true)
	}
	return nil
}
