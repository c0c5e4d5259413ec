package logging

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"slices"
	"time"
)

// Syslog severity levels (RFC 3164).
const (
	SyslogError   = 3
	SyslogWarning = 4
	SyslogInfo    = 6
	SyslogDebug   = 7
)

// Syslog facility: local0 (16).
const syslogFacility = 16

// SyslogClient sends UDP syslog messages (RFC 3164).
type SyslogClient struct {
	conn     net.Conn
	hostname string
	tag      string
}

// NewSyslogClient creates a UDP syslog client connected to addr (host:port).
// Messages carry tag as their program name.
func NewSyslogClient(addr, tag string) (*SyslogClient, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial syslog %s: %w", addr, err)
	}
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "localhost"
	}
	return &SyslogClient{conn: conn, hostname: hostname, tag: tag}, nil
}

// Send sends a syslog message with the given severity.
func (s *SyslogClient) Send(severity int, msg string) error {
	priority := syslogFacility*8 + severity
	ts := time.Now().Format(time.Stamp) // "Jan _2 15:04:05"
	line := fmt.Sprintf("<%d>%s %s %s: %s", priority, ts, s.hostname, s.tag, msg)
	_, err := s.conn.Write([]byte(line))
	return err
}

// Close closes the underlying connection.
func (s *SyslogClient) Close() error {
	return s.conn.Close()
}

// severityOf maps slog levels to syslog severity values.
func severityOf(level slog.Level) int {
	switch {
	case level >= slog.LevelError:
		return SyslogError
	case level >= slog.LevelWarn:
		return SyslogWarning
	case level >= slog.LevelInfo:
		return SyslogInfo
	default:
		return SyslogDebug
	}
}

// SyslogHandler is an slog.Handler that forwards records at or above a
// minimum level to a syslog server in addition to a wrapped base handler.
type SyslogHandler struct {
	base   slog.Handler
	client *SyslogClient
	min    slog.Level
	attrs  []slog.Attr
	groups []string
}

// NewSyslogHandler wraps base. Records at min or above are also sent to
// client.
func NewSyslogHandler(base slog.Handler, client *SyslogClient, min slog.Level) *SyslogHandler {
	return &SyslogHandler{base: base, client: client, min: min}
}

// Enabled implements slog.Handler.
func (h *SyslogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.min || h.base.Enabled(ctx, level)
}

// Handle implements slog.Handler. Send failures are dropped; the base
// handler's error is returned.
func (h *SyslogHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if h.base.Enabled(ctx, r.Level) {
		err = h.base.Handle(ctx, r)
	}
	if r.Level >= h.min {
		msg := r.Message
		if attrs := formatAttrs(r, h.attrs, h.groups); attrs != "" {
			msg += " " + attrs
		}
		h.client.Send(severityOf(r.Level), msg)
	}
	return err
}

// WithAttrs implements slog.Handler.
func (h *SyslogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SyslogHandler{
		base:   h.base.WithAttrs(attrs),
		client: h.client,
		min:    h.min,
		attrs:  append(slices.Clone(h.attrs), qualify(attrs, h.groups)...),
		groups: h.groups,
	}
}

// WithGroup implements slog.Handler.
func (h *SyslogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &SyslogHandler{
		base:   h.base.WithGroup(name),
		client: h.client,
		min:    h.min,
		attrs:  h.attrs,
		groups: append(slices.Clone(h.groups), name),
	}
}
