package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/psaab/conftree/pkg/addr"
	"github.com/psaab/conftree/pkg/configstore"
	"github.com/psaab/conftree/pkg/conftree"
	"github.com/psaab/conftree/pkg/logging"
	"github.com/psaab/conftree/pkg/search"
)

const defaultLogEntries = 50

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Response{Success: false, Error: msg})
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, map[string]string{
		"status": "ok",
		"uptime": time.Since(s.startTime).Truncate(time.Second).String(),
	})
}

// document returns the loaded document, or writes 503 and returns nil.
func (s *Server) document(w http.ResponseWriter) *conftree.Document {
	doc := s.store.Document()
	if doc == nil {
		writeError(w, http.StatusServiceUnavailable, configstore.ErrNoDocument.Error())
	}
	return doc
}

func (s *Server) observe(command string, found bool, err error, start time.Time) {
	if s.recorder != nil {
		s.recorder.ObserveQuery(command, found, err, time.Since(start))
	}
	s.logger.Debug("query", "command", command, "found", found, "error", err)
}

func (s *Server) documentHandler(w http.ResponseWriter, _ *http.Request) {
	snap := s.store.Current()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, configstore.ErrNoDocument.Error())
		return
	}
	writeOK(w, documentInfo(snap, len(s.store.History())))
}

func (s *Server) reloadHandler(w http.ResponseWriter, _ *http.Request) {
	snap, err := s.store.Reload()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, configstore.ErrNoDocument) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}
	s.logger.Info("document reloaded", "path", snap.Path, "lines", snap.Doc.Len())
	writeOK(w, documentInfo(snap, len(s.store.History())))
}

func documentInfo(snap *configstore.Snapshot, history int) DocumentInfo {
	doc := snap.Doc
	info := DocumentInfo{
		Path:        snap.Path,
		Mode:        doc.Mode.String(),
		LoadedAt:    snap.LoadedAt.Format(time.RFC3339),
		Lines:       doc.Len(),
		Roots:       len(doc.Roots()),
		History:     history,
		Diagnostics: []DiagnosticInfo{},
	}
	for _, n := range doc.Lines {
		info.MaxGeneration = max(info.MaxGeneration, n.Generation())
	}
	for _, d := range doc.Diagnostics {
		info.Diagnostics = append(info.Diagnostics, DiagnosticInfo{
			Line:    d.Line,
			Kind:    d.Kind.String(),
			Message: d.Message,
		})
	}
	return info
}

func lineEntry(n *conftree.Node, match bool) LineEntry {
	e := LineEntry{
		Line:       n.LineNumber(),
		Text:       n.Text(),
		Generation: n.Generation(),
		Children:   n.NumChildren(),
		Match:      match,
	}
	if p := n.Parent(); p != nil {
		e.Parent = p.LineNumber()
	}
	return e
}

func lineEntries(nodes []*conftree.Node, match func(*conftree.Node) bool) []LineEntry {
	entries := make([]LineEntry, 0, len(nodes))
	for _, n := range nodes {
		entries = append(entries, lineEntry(n, match != nil && match(n)))
	}
	return entries
}

// linesHandler returns lines from..to inclusive. Both default to the
// document bounds.
func (s *Server) linesHandler(w http.ResponseWriter, r *http.Request) {
	doc := s.document(w)
	if doc == nil {
		return
	}
	from, err := queryLine(r, "from", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := queryLine(r, "to", doc.Len())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to = min(to, doc.Len())
	if from > to {
		writeOK(w, []LineEntry{})
		return
	}
	writeOK(w, lineEntries(doc.Lines[from-1:to], nil))
}

func (s *Server) lineHandler(w http.ResponseWriter, r *http.Request) {
	doc := s.document(w)
	if doc == nil {
		return
	}
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid line %q", r.PathValue("n")))
		return
	}
	node := doc.Line(n)
	if node == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("line %d out of range (1-%d)", n, doc.Len()))
		return
	}
	family, err := node.Family(conftree.FamilyOptions{Self: true, Children: true})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	detail := LineDetail{
		LineEntry: lineEntry(node, false),
		Ancestors: lineEntries(node.Ancestors(), nil),
		Family:    lineEntries(family, func(f *conftree.Node) bool { return f == node }),
	}
	rec := node.Addresses()
	for _, a := range rec.Addrs {
		detail.Addrs = append(detail.Addrs, a.String())
	}
	for _, p := range rec.Networks {
		detail.Networks = append(detail.Networks, p.String())
	}
	writeOK(w, detail)
}

// findHandler runs a predicate chain given as repeated q parameters.
//
//	family=none|ancestors|children|all|family  lines returned per match
//	cousins=N                                 cousin depth, overrides family
//	grouped=true                              one group per match
//	recurse=false                             later stages see only immediate children
//	keep_common=true                          keep shared ancestors
func (s *Server) findHandler(w http.ResponseWriter, r *http.Request) {
	doc := s.document(w)
	if doc == nil {
		return
	}
	start := time.Now()
	q := r.URL.Query()
	patterns := q["q"]
	if len(patterns) == 0 {
		writeError(w, http.StatusBadRequest, "missing q parameter")
		return
	}
	opts, err := findOptions(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	anys := make([]any, len(patterns))
	for i, p := range patterns {
		anys[i] = p
	}
	spec, err := search.Terms(anys...)
	if err != nil {
		s.observe("find", false, err, start)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	last := spec[len(spec)-1]

	if q.Get("grouped") == "true" {
		groups, found, err := search.FindGrouped(doc.Lines, spec, opts...)
		s.observe("grouped", found, err, start)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		res := QueryResult{Found: found}
		for _, g := range groups {
			res.Groups = append(res.Groups, lineEntries(g, last))
		}
		writeOK(w, res)
		return
	}

	matched := func(n *conftree.Node) LineEntry { return lineEntry(n, true) }
	other := func(n *conftree.Node) LineEntry { return lineEntry(n, false) }
	lines, found, err := search.FindMap(doc.Lines, spec, matched, other, opts...)
	s.observe("find", found, err, start)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeOK(w, QueryResult{Found: found, Lines: lines})
}

func findOptions(q url.Values) ([]search.Option, error) {
	var opts []search.Option
	switch f := q.Get("family"); f {
	case "", "none":
	case "ancestors":
		opts = append(opts, search.WithAncestors())
	case "children":
		opts = append(opts, search.WithChildren())
	case "all":
		opts = append(opts, search.WithAllDescendants())
	case "family":
		opts = append(opts, search.WithAncestors(), search.WithAllDescendants())
	default:
		return nil, fmt.Errorf("invalid family %q", f)
	}
	if c := q.Get("cousins"); c != "" {
		depth, err := strconv.Atoi(c)
		if err != nil {
			return nil, fmt.Errorf("invalid cousins %q", c)
		}
		opts = append(opts, search.WithCousinDepth(depth))
	}
	if q.Get("recurse") == "false" {
		opts = append(opts, search.NoRecurse())
	}
	if q.Get("keep_common") == "true" {
		opts = append(opts, search.KeepCommonAncestors())
	}
	return opts, nil
}

// parentsHandler answers parent/child questions.
//
//	mode=parents   parents with a matching child (default)
//	mode=orphans   parents without one
//	mode=children  the matching children themselves
func (s *Server) parentsHandler(w http.ResponseWriter, r *http.Request) {
	doc := s.document(w)
	if doc == nil {
		return
	}
	q := r.URL.Query()
	parent, child := q.Get("parent"), q.Get("child")
	if parent == "" || child == "" {
		writeError(w, http.StatusBadRequest, "parent and child parameters are required")
		return
	}
	recurse := q.Get("recurse") != "false"
	mode := q.Get("mode")
	if mode == "" {
		mode = "parents"
	}

	start := time.Now()
	var nodes []*conftree.Node
	var err error
	switch mode {
	case "parents":
		nodes, err = search.FindParents(doc.Lines, parent, child, recurse, false)
	case "orphans":
		nodes, err = search.FindParentsWithoutChild(doc.Lines, parent, child, recurse)
	case "children":
		nodes, err = search.FindChildren(doc.Lines, parent, child, recurse)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid mode %q", mode))
		return
	}
	s.observe(mode, len(nodes) > 0, err, start)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeOK(w, QueryResult{Found: len(nodes) > 0, Lines: lineEntries(nodes, func(*conftree.Node) bool { return true })})
}

func (s *Server) addressHandler(w http.ResponseWriter, r *http.Request) {
	doc := s.document(w)
	if doc == nil {
		return
	}
	query, err := addr.ParseQuery(r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	start := time.Now()
	var nodes []*conftree.Node
	for _, n := range doc.Lines {
		ok, err := n.HasAddress(query)
		if err != nil {
			s.observe("address", false, err, start)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if ok {
			nodes = append(nodes, n)
		}
	}
	s.observe("address", len(nodes) > 0, nil, start)
	writeOK(w, QueryResult{Found: len(nodes) > 0, Lines: lineEntries(nodes, func(*conftree.Node) bool { return true })})
}

func (s *Server) whereHandler(w http.ResponseWriter, r *http.Request) {
	doc := s.document(w)
	if doc == nil {
		return
	}
	src := r.URL.Query().Get("expr")
	if src == "" {
		writeError(w, http.StatusBadRequest, "missing expr parameter")
		return
	}
	start := time.Now()
	pred, err := search.Expr(src)
	if err != nil {
		s.observe("where", false, err, start)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	nodes, found, err := search.Find(doc.Lines, []search.Predicate{pred})
	s.observe("where", found, err, start)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeOK(w, QueryResult{Found: found, Lines: lineEntries(nodes, pred)})
}

func (s *Server) historyHandler(w http.ResponseWriter, _ *http.Request) {
	entries := []HistoryEntry{}
	for i, snap := range s.store.History() {
		entries = append(entries, HistoryEntry{
			Index:    i + 1,
			Path:     snap.Path,
			Mode:     snap.Doc.Mode.String(),
			LoadedAt: snap.LoadedAt.Format(time.RFC3339),
			Lines:    snap.Doc.Len(),
		})
	}
	writeOK(w, entries)
}

func (s *Server) compareHandler(w http.ResponseWriter, r *http.Request) {
	n := queryInt(r, "n", 1)
	diff, err := s.store.ShowCompare(n)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeOK(w, map[string]string{"diff": diff})
}

func (s *Server) logsHandler(w http.ResponseWriter, r *http.Request) {
	if s.diag == nil {
		writeError(w, http.StatusServiceUnavailable, "log buffer not available")
		return
	}
	filter, err := logFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entries := []LogEntry{}
	for _, e := range s.diag.LatestFiltered(queryInt(r, "n", defaultLogEntries), filter) {
		entries = append(entries, logEntry(e))
	}
	writeOK(w, entries)
}

func logFilter(r *http.Request) (logging.Filter, error) {
	var f logging.Filter
	if lvl := r.URL.Query().Get("level"); lvl != "" {
		if err := f.MinLevel.UnmarshalText([]byte(lvl)); err != nil {
			return f, fmt.Errorf("invalid level %q", lvl)
		}
	}
	f.Text = r.URL.Query().Get("text")
	return f, nil
}

func logEntry(e logging.Entry) LogEntry {
	return LogEntry{
		Time:    e.Time.Format(time.RFC3339),
		Level:   e.Level.String(),
		Message: e.Message,
		Attrs:   e.Attrs,
	}
}

// queryLine parses a 1-based line number parameter.
func queryLine(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return n, nil
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
