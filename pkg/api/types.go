// Package api implements the read-only HTTP API and Prometheus metrics endpoint.
package api

// Response is the standard JSON response envelope.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// DocumentInfo describes the loaded document.
type DocumentInfo struct {
	Path          string           `json:"path"`
	Mode          string           `json:"mode"`
	LoadedAt      string           `json:"loaded_at"`
	Lines         int              `json:"lines"`
	Roots         int              `json:"roots"`
	MaxGeneration int              `json:"max_generation"`
	History       int              `json:"history"`
	Diagnostics   []DiagnosticInfo `json:"diagnostics"`
}

// DiagnosticInfo is one structural warning from the build.
type DiagnosticInfo struct {
	Line    int    `json:"line"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// LineEntry is one configuration line. Parent is zero for roots.
type LineEntry struct {
	Line       int    `json:"line"`
	Text       string `json:"text"`
	Generation int    `json:"generation"`
	Parent     int    `json:"parent,omitempty"`
	Children   int    `json:"children"`
	Match      bool   `json:"match,omitempty"`
}

// LineDetail is a single line with its family and the addresses on it.
type LineDetail struct {
	LineEntry
	Ancestors []LineEntry `json:"ancestors"`
	Family    []LineEntry `json:"family"`
	Addrs     []string    `json:"addrs,omitempty"`
	Networks  []string    `json:"networks,omitempty"`
}

// QueryResult is the answer to a search. Groups is set instead of Lines
// for grouped queries.
type QueryResult struct {
	Found  bool          `json:"found"`
	Lines  []LineEntry   `json:"lines,omitempty"`
	Groups [][]LineEntry `json:"groups,omitempty"`
}

// HistoryEntry describes one earlier load. Index 1 is the previous one.
type HistoryEntry struct {
	Index    int    `json:"index"`
	Path     string `json:"path"`
	Mode     string `json:"mode"`
	LoadedAt string `json:"loaded_at"`
	Lines    int    `json:"lines"`
}

// LogEntry is a log record kept by the diagnostic buffer.
type LogEntry struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"message"`
	Attrs   string `json:"attrs,omitempty"`
}
