package logging

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// Handler is an slog.Handler that forwards records to a wrapped base
// handler (typically stderr) and copies those at or above a minimum level
// into a DiagBuffer.
type Handler struct {
	base   slog.Handler
	buf    *DiagBuffer
	min    slog.Level
	attrs  []slog.Attr
	groups []string
}

// NewHandler wraps base. Records at min or above are also kept in buf.
func NewHandler(base slog.Handler, buf *DiagBuffer, min slog.Level) *Handler {
	return &Handler{base: base, buf: buf, min: min}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.min || h.base.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if h.base.Enabled(ctx, r.Level) {
		err = h.base.Handle(ctx, r)
	}
	if r.Level >= h.min {
		h.buf.Add(Entry{
			Time:    r.Time,
			Level:   r.Level,
			Message: r.Message,
			Attrs:   formatAttrs(r, h.attrs, h.groups),
		})
	}
	return err
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{
		base:   h.base.WithAttrs(attrs),
		buf:    h.buf,
		min:    h.min,
		attrs:  append(slices.Clone(h.attrs), qualify(attrs, h.groups)...),
		groups: h.groups,
	}
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &Handler{
		base:   h.base.WithGroup(name),
		buf:    h.buf,
		min:    h.min,
		attrs:  h.attrs,
		groups: append(slices.Clone(h.groups), name),
	}
}

// qualify prefixes attribute keys with the open groups.
func qualify(attrs []slog.Attr, groups []string) []slog.Attr {
	if len(groups) == 0 {
		return attrs
	}
	prefix := strings.Join(groups, ".") + "."
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: prefix + a.Key, Value: a.Value}
	}
	return out
}

// formatAttrs produces a compact key=value rendering of a record's
// attributes, preceded by those added with WithAttrs.
func formatAttrs(r slog.Record, preAttrs []slog.Attr, groups []string) string {
	var parts []string
	for _, a := range preAttrs {
		parts = append(parts, formatAttr(a.Key, a.Value))
	}
	r.Attrs(func(a slog.Attr) bool {
		key := a.Key
		if len(groups) > 0 {
			key = strings.Join(groups, ".") + "." + key
		}
		parts = append(parts, formatAttr(key, a.Value))
		return true
	})
	return strings.Join(parts, " ")
}

func formatAttr(key string, v slog.Value) string {
	s := v.Resolve().String()
	if strings.ContainsAny(s, " \t\"=") {
		s = fmt.Sprintf("%q", s)
	}
	return key + "=" + s
}
