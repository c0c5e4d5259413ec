// Package configstore holds the currently loaded configuration document
// and a short history of earlier loads.
package configstore

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/psaab/conftree/pkg/conftree"
)

// ErrNoDocument is returned when an operation needs a loaded document.
var ErrNoDocument = errors.New("no document loaded")

// DefaultHistorySize is the number of earlier loads kept.
const DefaultHistorySize = 10

// Snapshot is one loaded document. Snapshots are never modified after
// they are stored.
type Snapshot struct {
	Doc      *conftree.Document
	Path     string        // file name, or "-" for standard input
	Mode     conftree.Mode // requested mode, may be ModeAuto
	LoadedAt time.Time
}

// Store manages the current document.
type Store struct {
	mu      sync.RWMutex
	current *Snapshot
	history *History
	opts    conftree.Options
}

// New creates a store that builds documents with opts. opts.Mode is the
// default used when a load asks for ModeAuto.
func New(opts conftree.Options) *Store {
	return &Store{
		history: NewHistory(DefaultHistorySize),
		opts:    opts,
	}
}

// Load parses the file at path and makes it current.
func (s *Store) Load(path string, mode conftree.Mode) (*Snapshot, error) {
	doc, err := conftree.ParseFile(path, s.buildOptions(mode))
	if err != nil {
		return nil, err
	}
	return s.swap(doc, path, mode), nil
}

// LoadReader parses r and makes it current under name.
func (s *Store) LoadReader(name string, r io.Reader, mode conftree.Mode) (*Snapshot, error) {
	doc, err := conftree.ParseReader(r, s.buildOptions(mode))
	if err != nil {
		return nil, err
	}
	return s.swap(doc, name, mode), nil
}

// Reload parses the current file again with its original mode.
func (s *Store) Reload() (*Snapshot, error) {
	cur := s.Current()
	if cur == nil {
		return nil, ErrNoDocument
	}
	if cur.Path == "-" {
		return nil, fmt.Errorf("reload: standard input cannot be re-read")
	}
	return s.Load(cur.Path, cur.Mode)
}

func (s *Store) buildOptions(mode conftree.Mode) conftree.Options {
	opts := s.opts
	if mode != conftree.ModeAuto {
		opts.Mode = mode
	}
	return opts
}

func (s *Store) swap(doc *conftree.Document, path string, mode conftree.Mode) *Snapshot {
	snap := &Snapshot{Doc: doc, Path: path, Mode: mode, LoadedAt: time.Now()}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.history.Push(s.current)
	}
	s.current = snap
	return snap
}

// Current returns the current snapshot, or nil.
func (s *Store) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Document returns the current document, or nil.
func (s *Store) Document() *conftree.Document {
	if cur := s.Current(); cur != nil {
		return cur.Doc
	}
	return nil
}

// History returns earlier loads, most recent first.
func (s *Store) History() []*Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.List()
}

// Rollback makes the nth earlier load (1 = the previous one) current
// again. The replaced snapshot goes to the history.
func (s *Store) Rollback(n int) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil, ErrNoDocument
	}
	entry, err := s.history.Get(n - 1)
	if err != nil {
		return nil, err
	}
	s.history.Push(s.current)
	s.current = entry
	return entry, nil
}

// ShowCompare returns the lines removed ("-") and added ("+") between the
// nth earlier load and the current document.
func (s *Store) ShowCompare(n int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return "", ErrNoDocument
	}
	old, err := s.history.Get(n - 1)
	if err != nil {
		return "", err
	}

	oldLines := textLines(old.Doc)
	curLines := textLines(s.current.Doc)
	oldSet := make(map[string]bool, len(oldLines))
	for _, line := range oldLines {
		oldSet[line] = true
	}
	curSet := make(map[string]bool, len(curLines))
	for _, line := range curLines {
		curSet[line] = true
	}

	var b strings.Builder
	for _, line := range oldLines {
		if !curSet[line] {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}
	for _, line := range curLines {
		if !oldSet[line] {
			fmt.Fprintf(&b, "+ %s\n", line)
		}
	}
	if b.Len() == 0 {
		return "[no changes]\n", nil
	}
	return b.String(), nil
}

// textLines returns the non-blank lines of doc with surrounding whitespace
// removed.
func textLines(doc *conftree.Document) []string {
	var lines []string
	for _, n := range doc.Lines {
		if line := n.TrimmedText(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
