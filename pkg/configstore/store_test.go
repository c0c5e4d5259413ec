package configstore

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/psaab/conftree/pkg/conftree"
)

const (
	configV1 = "hostname r1\ninterface Loopback0\n ip address 192.0.2.1 255.255.255.255\n"
	configV2 = "hostname r1\ninterface Loopback0\n ip address 192.0.2.9 255.255.255.255\n"
)

// newTestStore creates a Store and a config file in a temp dir.
func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "r1.cfg")
	writeConfig(t, path, configV1)
	s := New(conftree.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	return s, path
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoad(t *testing.T) {
	s, path := newTestStore(t)

	if s.Current() != nil || s.Document() != nil {
		t.Fatal("new store should be empty")
	}

	snap, err := s.Load(path, conftree.ModeAuto)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Path != path || snap.Doc.Len() != 3 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if snap.Doc.Mode != conftree.ModeIndent {
		t.Errorf("expected indent mode, got %v", snap.Doc.Mode)
	}
	if s.Current() != snap {
		t.Error("loaded snapshot should be current")
	}
	if len(s.History()) != 0 {
		t.Error("first load should not create history")
	}
}

func TestLoadNonexistent(t *testing.T) {
	s, path := newTestStore(t)
	if _, err := s.Load(path, conftree.ModeAuto); err != nil {
		t.Fatal(err)
	}

	_, err := s.Load(filepath.Join(t.TempDir(), "missing.cfg"), conftree.ModeAuto)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
	if s.Current().Path != path {
		t.Error("failed load must keep the current document")
	}
}

func TestLoadForcedMode(t *testing.T) {
	s, path := newTestStore(t)
	snap, err := s.Load(path, conftree.ModeBraced)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Doc.Mode != conftree.ModeBraced || snap.Mode != conftree.ModeBraced {
		t.Errorf("expected braced, got doc %v snapshot %v", snap.Doc.Mode, snap.Mode)
	}
}

func TestLoadReader(t *testing.T) {
	s, _ := newTestStore(t)
	snap, err := s.LoadReader("-", strings.NewReader(configV2), conftree.ModeAuto)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Path != "-" || snap.Doc.Len() != 3 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if _, err := s.Reload(); err == nil {
		t.Error("reloading standard input should fail")
	}
}

func TestReload(t *testing.T) {
	s, path := newTestStore(t)

	if _, err := s.Reload(); !errors.Is(err, ErrNoDocument) {
		t.Errorf("expected ErrNoDocument, got %v", err)
	}

	if _, err := s.Load(path, conftree.ModeIndent); err != nil {
		t.Fatal(err)
	}
	writeConfig(t, path, configV2)

	snap, err := s.Reload()
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if !strings.Contains(snap.Doc.Line(3).Text(), "192.0.2.9") {
		t.Errorf("reload did not pick up the new file: %q", snap.Doc.Line(3).Text())
	}
	if snap.Mode != conftree.ModeIndent {
		t.Error("reload should keep the requested mode")
	}
	if len(s.History()) != 1 {
		t.Errorf("expected 1 history entry, got %d", len(s.History()))
	}
}

func TestRollback(t *testing.T) {
	s, path := newTestStore(t)

	if _, err := s.Rollback(1); !errors.Is(err, ErrNoDocument) {
		t.Errorf("expected ErrNoDocument, got %v", err)
	}

	first, _ := s.Load(path, conftree.ModeAuto)
	writeConfig(t, path, configV2)
	second, _ := s.Reload()

	if _, err := s.Rollback(2); err == nil {
		t.Error("expected error for missing history entry")
	}

	got, err := s.Rollback(1)
	if err != nil {
		t.Fatalf("Rollback(1): %v", err)
	}
	if got != first || s.Current() != first {
		t.Error("rollback 1 should restore the first load")
	}
	hist := s.History()
	if len(hist) != 2 || hist[0] != second {
		t.Errorf("replaced snapshot should head the history, got %d entries", len(hist))
	}
}

func TestShowCompare(t *testing.T) {
	s, path := newTestStore(t)

	if _, err := s.ShowCompare(1); !errors.Is(err, ErrNoDocument) {
		t.Errorf("expected ErrNoDocument, got %v", err)
	}

	s.Load(path, conftree.ModeAuto)
	s.Load(path, conftree.ModeAuto)
	diff, err := s.ShowCompare(1)
	if err != nil {
		t.Fatal(err)
	}
	if diff != "[no changes]\n" {
		t.Errorf("expected no changes, got %q", diff)
	}

	writeConfig(t, path, configV2)
	s.Reload()
	diff, err = s.ShowCompare(1)
	if err != nil {
		t.Fatal(err)
	}
	want := "- ip address 192.0.2.1 255.255.255.255\n+ ip address 192.0.2.9 255.255.255.255\n"
	if diff != want {
		t.Errorf("diff = %q, want %q", diff, want)
	}
}

func TestHistory(t *testing.T) {
	h := NewHistory(2)
	a, b, c := &Snapshot{Path: "a"}, &Snapshot{Path: "b"}, &Snapshot{Path: "c"}
	h.Push(a)
	h.Push(b)
	h.Push(c)

	if h.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", h.Len())
	}
	if got, _ := h.Get(0); got != c {
		t.Error("Get(0) should be the most recent entry")
	}
	if got, _ := h.Get(1); got != b {
		t.Error("Get(1) should be the oldest kept entry")
	}
	if _, err := h.Get(2); err == nil {
		t.Error("expected error for evicted entry")
	}
	list := h.List()
	if list[0] != c || list[1] != b {
		t.Error("List should be most recent first")
	}

	empty := NewHistory(0)
	empty.Push(a)
	if empty.Len() != 0 {
		t.Error("zero-size history should keep nothing")
	}
}
