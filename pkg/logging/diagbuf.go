// Package logging keeps recent log records in memory so the shell can show
// build warnings after they scrolled past.
package logging

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Entry is a formatted log record stored in a DiagBuffer.
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   string // "line=9 kind=unterminated-region"
}

func (e Entry) String() string {
	var b strings.Builder
	b.WriteString(e.Time.Format("15:04:05"))
	b.WriteByte(' ')
	b.WriteString(e.Level.String())
	b.WriteByte(' ')
	b.WriteString(e.Message)
	if e.Attrs != "" {
		b.WriteByte(' ')
		b.WriteString(e.Attrs)
	}
	return b.String()
}

// DiagBuffer is a thread-safe circular buffer for recent log entries.
type DiagBuffer struct {
	mu    sync.RWMutex
	buf   []Entry
	size  int
	head  int // next write position
	count int // number of entries stored

	subMu sync.RWMutex
	subs  map[*Subscription]struct{}
}

// Subscription receives new entries from a DiagBuffer.
type Subscription struct {
	C  chan Entry
	db *DiagBuffer
}

// Close unsubscribes. The channel is left open for pending reads.
func (s *Subscription) Close() {
	s.db.unsubscribe(s)
}

// NewDiagBuffer creates a buffer holding at most size entries.
func NewDiagBuffer(size int) *DiagBuffer {
	if size < 1 {
		size = 1
	}
	return &DiagBuffer{
		buf:  make([]Entry, size),
		size: size,
		subs: make(map[*Subscription]struct{}),
	}
}

// Add appends an entry, overwriting the oldest if full.
// Subscribers are notified non-blocking.
func (db *DiagBuffer) Add(e Entry) {
	db.mu.Lock()
	db.buf[db.head] = e
	db.head = (db.head + 1) % db.size
	if db.count < db.size {
		db.count++
	}
	db.mu.Unlock()

	db.subMu.RLock()
	for sub := range db.subs {
		select {
		case sub.C <- e:
		default: // drop if subscriber is slow
		}
	}
	db.subMu.RUnlock()
}

// Subscribe returns a Subscription that receives new entries.
// Call Close() on the subscription when done.
func (db *DiagBuffer) Subscribe(bufSize int) *Subscription {
	if bufSize < 1 {
		bufSize = 64
	}
	sub := &Subscription{
		C:  make(chan Entry, bufSize),
		db: db,
	}
	db.subMu.Lock()
	db.subs[sub] = struct{}{}
	db.subMu.Unlock()
	return sub
}

func (db *DiagBuffer) unsubscribe(sub *Subscription) {
	db.subMu.Lock()
	delete(db.subs, sub)
	db.subMu.Unlock()
}

// Len returns the number of stored entries.
func (db *DiagBuffer) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.count
}

// Clear drops every stored entry.
func (db *DiagBuffer) Clear() {
	db.mu.Lock()
	db.head, db.count = 0, 0
	clear(db.buf)
	db.mu.Unlock()
}

// Filter selects entries for LatestFiltered.
type Filter struct {
	MinLevel slog.Level // entries below this level are skipped
	Text     string     // case-insensitive substring of message or attrs
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Entry) bool { return f.matches(&e) }

func (f Filter) matches(e *Entry) bool {
	if e.Level < f.MinLevel {
		return false
	}
	if f.Text == "" {
		return true
	}
	t := strings.ToLower(f.Text)
	return strings.Contains(strings.ToLower(e.Message), t) ||
		strings.Contains(strings.ToLower(e.Attrs), t)
}

// LatestFiltered returns the most recent n entries matching f, newest first.
func (db *DiagBuffer) LatestFiltered(n int, f Filter) []Entry {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if n <= 0 {
		return nil
	}

	var result []Entry
	for i := 0; i < db.count && len(result) < n; i++ {
		idx := (db.head - 1 - i + db.size) % db.size
		if f.matches(&db.buf[idx]) {
			result = append(result, db.buf[idx])
		}
	}
	return result
}

// Latest returns the most recent n entries, newest first.
func (db *DiagBuffer) Latest(n int) []Entry {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if n > db.count {
		n = db.count
	}
	if n <= 0 {
		return nil
	}

	result := make([]Entry, n)
	for i := 0; i < n; i++ {
		idx := (db.head - 1 - i + db.size) % db.size
		result[i] = db.buf[idx]
	}
	return result
}
