package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestDiagBuffer_Latest(t *testing.T) {
	db := NewDiagBuffer(3)
	if got := db.Latest(5); got != nil {
		t.Fatalf("expected nil from empty buffer, got %v", got)
	}

	for _, msg := range []string{"a", "b", "c", "d"} {
		db.Add(Entry{Level: slog.LevelWarn, Message: msg})
	}
	if db.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", db.Len())
	}

	got := db.Latest(10)
	want := []string{"d", "c", "b"}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Message != want[i] {
			t.Errorf("entry %d: expected %q, got %q", i, want[i], got[i].Message)
		}
	}

	if got := db.Latest(1); len(got) != 1 || got[0].Message != "d" {
		t.Errorf("Latest(1) = %v", got)
	}

	db.Clear()
	if db.Len() != 0 || db.Latest(1) != nil {
		t.Error("Clear should empty the buffer")
	}
}

func TestDiagBuffer_LatestFiltered(t *testing.T) {
	db := NewDiagBuffer(10)
	db.Add(Entry{Level: slog.LevelWarn, Message: "level jump", Attrs: "line=3 kind=level-jump"})
	db.Add(Entry{Level: slog.LevelInfo, Message: "loaded", Attrs: "lines=40"})
	db.Add(Entry{Level: slog.LevelError, Message: "watch failed"})
	db.Add(Entry{Level: slog.LevelWarn, Message: "banner", Attrs: "line=12 kind=unterminated-banner"})

	got := db.LatestFiltered(10, Filter{MinLevel: slog.LevelWarn})
	if len(got) != 3 {
		t.Fatalf("expected 3 warnings or worse, got %d", len(got))
	}
	if got[0].Message != "banner" {
		t.Errorf("expected newest first, got %q", got[0].Message)
	}

	got = db.LatestFiltered(10, Filter{Text: "LEVEL-JUMP"})
	if len(got) != 1 || got[0].Message != "level jump" {
		t.Errorf("text filter: %v", got)
	}

	got = db.LatestFiltered(1, Filter{})
	if len(got) != 1 {
		t.Errorf("expected limit of 1, got %d", len(got))
	}
	if db.LatestFiltered(0, Filter{}) != nil {
		t.Error("n=0 should return nil")
	}
}

func TestDiagBuffer_Subscribe(t *testing.T) {
	db := NewDiagBuffer(4)
	sub := db.Subscribe(1)

	db.Add(Entry{Message: "first"})
	db.Add(Entry{Message: "dropped"}) // channel full

	select {
	case e := <-sub.C:
		if e.Message != "first" {
			t.Errorf("expected first, got %q", e.Message)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for entry")
	}

	sub.Close()
	db.Add(Entry{Message: "after close"})
	select {
	case e := <-sub.C:
		t.Errorf("unexpected entry after Close: %q", e.Message)
	default:
	}

	if db.Len() != 3 {
		t.Errorf("expected 3 stored entries, got %d", db.Len())
	}
}

func TestHandler(t *testing.T) {
	var out bytes.Buffer
	base := slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelError})
	db := NewDiagBuffer(16)
	logger := slog.New(NewHandler(base, db, slog.LevelWarn))

	logger.Debug("ignored")
	logger.Info("ignored too")
	logger.With("mode", "indent").Warn("no end-set or end-policy encountered",
		"line", 9, "section", "route-policy FOOBR-IN")
	logger.WithGroup("watch").Error("reload failed", "path", "/tmp/r1.conf")

	if db.Len() != 2 {
		t.Fatalf("expected 2 buffered entries, got %d", db.Len())
	}
	got := db.Latest(2)
	if got[1].Attrs != `mode=indent line=9 section="route-policy FOOBR-IN"` {
		t.Errorf("warn attrs = %q", got[1].Attrs)
	}
	if got[0].Attrs != "watch.path=/tmp/r1.conf" {
		t.Errorf("error attrs = %q", got[0].Attrs)
	}
	if !strings.Contains(got[1].String(), "WARN no end-set") {
		t.Errorf("String() = %q", got[1].String())
	}

	// Only the error reaches the base handler.
	if strings.Contains(out.String(), "end-set") || !strings.Contains(out.String(), "reload failed") {
		t.Errorf("base output = %q", out.String())
	}
}

func TestHandlerEnabled(t *testing.T) {
	base := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError})
	h := NewHandler(base, NewDiagBuffer(1), slog.LevelWarn)
	ctx := context.Background()
	if h.Enabled(ctx, slog.LevelInfo) {
		t.Error("info should be disabled")
	}
	if !h.Enabled(ctx, slog.LevelWarn) {
		t.Error("warn should be enabled for the buffer")
	}
}
