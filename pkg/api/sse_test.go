package api

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/psaab/conftree/pkg/logging"
)

func TestSetSSEHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	setSSEHeaders(w)

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", cc)
	}
	if cn := w.Header().Get("Connection"); cn != "keep-alive" {
		t.Errorf("Connection = %q, want keep-alive", cn)
	}
}

func TestWriteSSEEvent(t *testing.T) {
	w := httptest.NewRecorder()
	writeSSEEvent(w, 42, "log", `{"key":"value"}`)

	body := w.Body.String()
	if !strings.Contains(body, "id: 42\n") {
		t.Errorf("missing id line in %q", body)
	}
	if !strings.Contains(body, "event: log\n") {
		t.Errorf("missing event line in %q", body)
	}
	if !strings.Contains(body, "data: {\"key\":\"value\"}\n") {
		t.Errorf("missing data line in %q", body)
	}
	if !strings.HasSuffix(body, "\n\n") {
		t.Errorf("SSE event should end with double newline")
	}

	w = httptest.NewRecorder()
	writeSSEEvent(w, 1, "", "hello")
	if strings.Contains(w.Body.String(), "event:") {
		t.Errorf("should not have event line when empty, got %q", w.Body.String())
	}
}

// streamLogs runs the log stream handler for query, adds entries once it
// is subscribed and returns the response body.
func streamLogs(t *testing.T, query string, entries ...logging.Entry) string {
	t.Helper()
	buf := logging.NewDiagBuffer(16)
	s := &Server{diag: buf}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest("GET", "/api/v1/logs/stream"+query, nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		s.logStreamHandler(w, req)
		close(done)
	}()

	// Wait for subscription to be set up
	time.Sleep(50 * time.Millisecond)
	for _, e := range entries {
		buf.Add(e)
	}
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	return w.Body.String()
}

func TestLogStreamHandler(t *testing.T) {
	body := streamLogs(t, "", logging.Entry{
		Time:    time.Now(),
		Level:   slog.LevelWarn,
		Message: "structural anomaly",
		Attrs:   "line=9 kind=level-jump",
	})

	if !strings.Contains(body, "event: log") {
		t.Errorf("expected 'event: log' in response, got %q", body)
	}

	scanner := bufio.NewScanner(strings.NewReader(body))
	var seen bool
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var entry LogEntry
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &entry); err != nil {
			t.Fatalf("unmarshal log entry: %v", err)
		}
		if entry.Level != "WARN" {
			t.Errorf("level = %q, want WARN", entry.Level)
		}
		if entry.Attrs != "line=9 kind=level-jump" {
			t.Errorf("attrs = %q", entry.Attrs)
		}
		seen = true
	}
	if !seen {
		t.Errorf("no data line in %q", body)
	}
}

func TestLogStreamFilters(t *testing.T) {
	entries := []logging.Entry{
		{Time: time.Now(), Level: slog.LevelInfo, Message: "reloaded"},
		{Time: time.Now(), Level: slog.LevelError, Message: "reload failed"},
		{Time: time.Now(), Level: slog.LevelWarn, Message: "unbalanced brace"},
	}

	body := streamLogs(t, "?level=error", entries...)
	if strings.Contains(body, `"reloaded"`) || strings.Contains(body, "unbalanced") {
		t.Errorf("entries below error should be filtered, got %q", body)
	}
	if !strings.Contains(body, "reload failed") {
		t.Errorf("error entry should pass, got %q", body)
	}

	body = streamLogs(t, "?text=BRACE", entries...)
	if !strings.Contains(body, "unbalanced brace") || strings.Contains(body, "reload") {
		t.Errorf("text filter: got %q", body)
	}
}

func TestLogStreamErrors(t *testing.T) {
	s := &Server{}
	w := httptest.NewRecorder()
	s.logStreamHandler(w, httptest.NewRequest("GET", "/api/v1/logs/stream", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	s = &Server{diag: logging.NewDiagBuffer(4)}
	w = httptest.NewRecorder()
	s.logStreamHandler(w, httptest.NewRequest("GET", "/api/v1/logs/stream?level=loud", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
